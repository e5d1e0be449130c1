package irfile

import (
	"strings"
	"testing"

	"honnef.co/go/rangecheck/go/ir"
)

const loop = `
name: loop
locals:
  - {name: a, type: ref}
  - {name: i, type: int}
blocks:
  - name: entry
    succs: [header]
    stmts:
      - def: i.0
        rhs: {const: 0}
  - name: header
    succs: [body]
    stmts:
      - def: i.1
        rhs: {phi: [{pred: entry, arg: {use: i.0}}, {pred: body, arg: {use: i.2}}]}
  - name: body
    succs: [header]
    facts:
      - {x: {use: i.1}, op: "<", len: {len: {use: a.0}}}
    stmts:
      - check: {index: {use: i.1}, length: {len: {use: a.0}}, expect: eliminated}
      - def: i.2
        rhs: {add: [{use: i.1}, {const: 1}]}
edge_facts:
  - from: header
    to: body
    facts:
      - {x: {use: i.1}, op: ">=", k: 0, holds: false}
`

func TestBuild(t *testing.T) {
	f, err := Parse([]byte(loop))
	if err != nil {
		t.Fatal(err)
	}
	fn, expect, err := f.Build()
	if err != nil {
		t.Fatal(err)
	}
	if fn.Name != "loop" {
		t.Errorf("name = %q", fn.Name)
	}
	if len(fn.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(fn.Blocks))
	}
	header := fn.Blocks[1]
	if len(header.Preds) != 2 || header.Preds[0] != 0 || header.Preds[1] != 2 {
		t.Errorf("header preds = %v, want [0 2]", header.Preds)
	}
	if len(fn.Checks) != 1 {
		t.Fatalf("got %d checks, want 1", len(fn.Checks))
	}
	if want, ok := expect[fn.Checks[0]]; !ok || !want {
		t.Errorf("expectation = %t, %t; want true, true", want, ok)
	}
	def, ok := fn.SSADef(1, 1)
	if !ok || fn.Expr(def.RHS).Op != ir.OpPhi || def.Block != 1 {
		t.Errorf("bad definition of i.1: %+v", def)
	}
	if got := fn.BlockAssertions(2).Len(); got != 1 {
		t.Errorf("body has %d assertions, want 1", got)
	}
	set := fn.EdgeAssertions(1, 2)
	if set.Len() != 1 {
		t.Fatalf("edge has %d assertions, want 1", set.Len())
	}
	a := fn.Assertion(set.Min())
	if a.Kind != ir.ConstantBound || a.Holds || a.K != 0 {
		t.Errorf("edge assertion = %s", a)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		src string
		err string
	}{
		{"locals: [{name: x, type: float}]", "unknown type"},
		{"blocks: [{name: a, succs: [b]}]", `unknown block "b"`},
		{"blocks: [{name: a}, {name: a}]", "declared twice"},
		{"locals: [{name: x, type: int}]\nblocks: [{name: a, stmts: [{def: x.1, rhs: {const: 1}}, {def: x.1, rhs: {const: 2}}]}]", "defined twice"},
		{"blocks: [{name: a, stmts: [{def: y.1, rhs: {const: 1}}]}]", `unknown local "y"`},
		{"locals: [{name: x, type: int}]\nblocks: [{name: a, stmts: [{def: x, rhs: {const: 1}}]}]", "malformed SSA name"},
		{"locals: [{name: x, type: int}]\nblocks: [{name: a, stmts: [{eval: {add: [{use: x.0}]}}]}]", "add takes 2 operands"},
		{"locals: [{name: x, type: int}]\nblocks: [{name: a, facts: [{x: {use: x.0}, op: '=='}]}]", "unsupported comparison"},
		{"blocks: [{name: a, stmts: [{}]}]", "empty statement"},
		{"blocks: [{name: a, stmts: [{check: {index: {const: 1}, length: {const: 2}, expect: maybe}}]}]", "unknown expectation"},
	}
	for _, tt := range tests {
		f, err := Parse([]byte(tt.src))
		if err != nil {
			t.Errorf("%q: unexpected parse error: %s", tt.src, err)
			continue
		}
		_, _, err = f.Build()
		if err == nil || !strings.Contains(err.Error(), tt.err) {
			t.Errorf("%q: got error %v, want one containing %q", tt.src, err, tt.err)
		}
	}
}

func TestParseError(t *testing.T) {
	if _, err := Parse([]byte("blocks: {")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
