// Package irfile reads IR functions from YAML fixtures.
//
// A fixture lists the locals of a function and its blocks in order. The
// first block is the entry block. SSA names are written as "name.version",
// expressions as single-key maps:
//
//	{const: 3}                     integer constant, of type int unless type is given
//	{use: i.1}                     use of an SSA name
//	{add: [x, y]}                  x + y
//	{phi: [{pred: b, arg: x}...]}  φ node
//	{len: x}                       length of the array x
//	{load: x}                      load through x
//	{new: x}                       new array of length x
//	{other: comment}               any other value
//
// Facts have the form {x: expr, op: "<", len: expr, k: 0, holds: true},
// where len is optional and holds defaults to true.
package irfile

import (
	"fmt"
	"go/token"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"honnef.co/go/rangecheck/go/ir"
)

type File struct {
	Name      string      `yaml:"name"`
	Locals    []Local     `yaml:"locals"`
	Blocks    []Block     `yaml:"blocks"`
	EdgeFacts []EdgeFacts `yaml:"edge_facts,omitempty"`
}

type Local struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type Block struct {
	Name  string   `yaml:"name"`
	Succs []string `yaml:"succs,omitempty"`
	Facts []Fact   `yaml:"facts,omitempty"`
	Stmts []Stmt   `yaml:"stmts,omitempty"`
}

type EdgeFacts struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Facts []Fact `yaml:"facts"`
}

type Fact struct {
	X     Expr   `yaml:"x"`
	Op    string `yaml:"op"`
	Len   *Expr  `yaml:"len,omitempty"`
	K     int32  `yaml:"k,omitempty"`
	Holds *bool  `yaml:"holds,omitempty"`
}

// A Stmt is either a definition (Def and RHS), a bounds check (Check) or
// an evaluation (Eval).
type Stmt struct {
	Def   string `yaml:"def,omitempty"`
	RHS   *Expr  `yaml:"rhs,omitempty"`
	Check *Check `yaml:"check,omitempty"`
	Eval  *Expr  `yaml:"eval,omitempty"`
}

type Check struct {
	Index  Expr `yaml:"index"`
	Length Expr `yaml:"length"`
	// Expect is "eliminated", "retained" or empty.
	Expect string `yaml:"expect,omitempty"`
}

type Expr struct {
	Const *int64   `yaml:"const,omitempty"`
	Use   string   `yaml:"use,omitempty"`
	Add   []Expr   `yaml:"add,omitempty"`
	Phi   []PhiArg `yaml:"phi,omitempty"`
	Len   *Expr    `yaml:"len,omitempty"`
	Load  *Expr    `yaml:"load,omitempty"`
	New   *Expr    `yaml:"new,omitempty"`
	Other string   `yaml:"other,omitempty"`
	Type  string   `yaml:"type,omitempty"`
}

type PhiArg struct {
	Pred string `yaml:"pred"`
	Arg  Expr   `yaml:"arg"`
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse IR file: %w", err)
	}
	return &f, nil
}

func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Expectations maps bounds checks to whether they are expected to be
// eliminated. Checks without an expectation are absent.
type Expectations map[*ir.BoundsCheck]bool

type builder struct {
	b      *ir.Builder
	locals map[string]ir.LocalID
	blocks map[string]ir.BlockID
	defs   map[ir.SSAName]bool
}

// Build constructs the function described by f.
func (f *File) Build() (*ir.Function, Expectations, error) {
	bld := &builder{
		b:      ir.NewBuilder(f.Name),
		locals: map[string]ir.LocalID{},
		blocks: map[string]ir.BlockID{},
		defs:   map[ir.SSAName]bool{},
	}
	for _, l := range f.Locals {
		typ, ok := ir.ParseType(l.Type)
		if !ok {
			return nil, nil, fmt.Errorf("local %s: unknown type %q", l.Name, l.Type)
		}
		if _, ok := bld.locals[l.Name]; ok {
			return nil, nil, fmt.Errorf("local %s declared twice", l.Name)
		}
		bld.locals[l.Name] = bld.b.Local(l.Name, typ)
	}
	for _, blk := range f.Blocks {
		if _, ok := bld.blocks[blk.Name]; ok {
			return nil, nil, fmt.Errorf("block %s declared twice", blk.Name)
		}
		bld.blocks[blk.Name] = bld.b.Block(blk.Name)
	}
	for _, blk := range f.Blocks {
		for _, succ := range blk.Succs {
			to, err := bld.block(succ)
			if err != nil {
				return nil, nil, fmt.Errorf("block %s: %w", blk.Name, err)
			}
			bld.b.Edge(bld.blocks[blk.Name], to)
		}
	}

	expect := Expectations{}
	for _, blk := range f.Blocks {
		id := bld.blocks[blk.Name]
		for _, fact := range blk.Facts {
			irf, err := bld.fact(fact)
			if err != nil {
				return nil, nil, fmt.Errorf("block %s: %w", blk.Name, err)
			}
			bld.b.AssertIn(id, irf)
		}
		for i, stmt := range blk.Stmts {
			if err := bld.stmt(id, stmt, expect); err != nil {
				return nil, nil, fmt.Errorf("block %s, statement %d: %w", blk.Name, i, err)
			}
		}
	}
	for _, ef := range f.EdgeFacts {
		from, err := bld.block(ef.From)
		if err != nil {
			return nil, nil, err
		}
		to, err := bld.block(ef.To)
		if err != nil {
			return nil, nil, err
		}
		for _, fact := range ef.Facts {
			irf, err := bld.fact(fact)
			if err != nil {
				return nil, nil, fmt.Errorf("edge %s -> %s: %w", ef.From, ef.To, err)
			}
			bld.b.AssertOnEdge(from, to, irf)
		}
	}
	return bld.b.Finish(), expect, nil
}

func (bld *builder) block(name string) (ir.BlockID, error) {
	id, ok := bld.blocks[name]
	if !ok {
		return ir.NoBlock, fmt.Errorf("unknown block %q", name)
	}
	return id, nil
}

// ssaName parses names of the form "i.2".
func (bld *builder) ssaName(s string) (ir.SSAName, error) {
	dot := strings.LastIndexByte(s, '.')
	if dot == -1 {
		return ir.SSAName{}, fmt.Errorf("malformed SSA name %q", s)
	}
	local, ok := bld.locals[s[:dot]]
	if !ok {
		return ir.SSAName{}, fmt.Errorf("unknown local %q", s[:dot])
	}
	version, err := strconv.ParseInt(s[dot+1:], 10, 32)
	if err != nil {
		return ir.SSAName{}, fmt.Errorf("malformed SSA name %q: %w", s, err)
	}
	return ir.SSAName{Local: local, Version: int32(version)}, nil
}

func (bld *builder) stmt(block ir.BlockID, stmt Stmt, expect Expectations) error {
	switch {
	case stmt.Def != "":
		name, err := bld.ssaName(stmt.Def)
		if err != nil {
			return err
		}
		if bld.defs[name] {
			return fmt.Errorf("%s defined twice", stmt.Def)
		}
		if stmt.RHS == nil {
			return fmt.Errorf("definition of %s has no right-hand side", stmt.Def)
		}
		rhs, err := bld.expr(*stmt.RHS)
		if err != nil {
			return err
		}
		bld.defs[name] = true
		bld.b.Def(block, name.Local, name.Version, rhs)
	case stmt.Check != nil:
		index, err := bld.expr(stmt.Check.Index)
		if err != nil {
			return fmt.Errorf("index: %w", err)
		}
		length, err := bld.expr(stmt.Check.Length)
		if err != nil {
			return fmt.Errorf("length: %w", err)
		}
		c := bld.b.Check(block, index, length)
		switch stmt.Check.Expect {
		case "":
		case "eliminated":
			expect[c] = true
		case "retained":
			expect[c] = false
		default:
			return fmt.Errorf("unknown expectation %q", stmt.Check.Expect)
		}
	case stmt.Eval != nil:
		e, err := bld.expr(*stmt.Eval)
		if err != nil {
			return err
		}
		bld.b.Eval(block, e)
	default:
		return fmt.Errorf("empty statement")
	}
	return nil
}

func (bld *builder) typ(e Expr, def ir.Type) (ir.Type, error) {
	if e.Type == "" {
		return def, nil
	}
	typ, ok := ir.ParseType(e.Type)
	if !ok {
		return 0, fmt.Errorf("unknown type %q", e.Type)
	}
	return typ, nil
}

func (bld *builder) expr(e Expr) (ir.ExprID, error) {
	switch {
	case e.Const != nil:
		typ, err := bld.typ(e, ir.TypeInt)
		if err != nil {
			return ir.NoExpr, err
		}
		return bld.b.Const(typ, *e.Const), nil
	case e.Use != "":
		name, err := bld.ssaName(e.Use)
		if err != nil {
			return ir.NoExpr, err
		}
		return bld.b.Use(name.Local, name.Version), nil
	case e.Add != nil:
		if len(e.Add) != 2 {
			return ir.NoExpr, fmt.Errorf("add takes 2 operands, got %d", len(e.Add))
		}
		x, err := bld.expr(e.Add[0])
		if err != nil {
			return ir.NoExpr, err
		}
		y, err := bld.expr(e.Add[1])
		if err != nil {
			return ir.NoExpr, err
		}
		return bld.b.Add(x, y), nil
	case e.Phi != nil:
		typ, err := bld.typ(e, ir.TypeInt)
		if err != nil {
			return ir.NoExpr, err
		}
		edges := make([]ir.PhiEdge, len(e.Phi))
		for i, arg := range e.Phi {
			pred, err := bld.block(arg.Pred)
			if err != nil {
				return ir.NoExpr, err
			}
			x, err := bld.expr(arg.Arg)
			if err != nil {
				return ir.NoExpr, err
			}
			edges[i] = ir.PhiEdge{Pred: pred, Arg: x}
		}
		return bld.b.Phi(typ, edges...), nil
	case e.Len != nil:
		typ, err := bld.typ(e, ir.TypeInt)
		if err != nil {
			return ir.NoExpr, err
		}
		x, err := bld.expr(*e.Len)
		if err != nil {
			return ir.NoExpr, err
		}
		if typ.IsLong() {
			return bld.b.LongArrLen(x), nil
		}
		return bld.b.ArrLen(x), nil
	case e.Load != nil:
		typ, err := bld.typ(e, ir.TypeInt)
		if err != nil {
			return ir.NoExpr, err
		}
		x, err := bld.expr(*e.Load)
		if err != nil {
			return ir.NoExpr, err
		}
		return bld.b.Load(typ, x), nil
	case e.New != nil:
		x, err := bld.expr(*e.New)
		if err != nil {
			return ir.NoExpr, err
		}
		return bld.b.NewArray(x), nil
	case e.Other != "":
		typ, err := bld.typ(e, ir.TypeInt)
		if err != nil {
			return ir.NoExpr, err
		}
		return bld.b.Other(typ, e.Other), nil
	default:
		return ir.NoExpr, fmt.Errorf("empty expression")
	}
}

var ops = map[string]token.Token{
	"<":  token.LSS,
	"<=": token.LEQ,
	">":  token.GTR,
	">=": token.GEQ,
}

func (bld *builder) fact(f Fact) (ir.Fact, error) {
	op, ok := ops[f.Op]
	if !ok {
		return ir.Fact{}, fmt.Errorf("unsupported comparison %q", f.Op)
	}
	x, err := bld.expr(f.X)
	if err != nil {
		return ir.Fact{}, err
	}
	length := ir.NoExpr
	if f.Len != nil {
		length, err = bld.expr(*f.Len)
		if err != nil {
			return ir.Fact{}, err
		}
	}
	holds := true
	if f.Holds != nil {
		holds = *f.Holds
	}
	return ir.Fact{Op: op, X: x, Len: length, K: f.K, Holds: holds}, nil
}
