// Package ir implements a small SSA intermediate representation that the
// range propagation in package rangecheck operates on.
//
// Expressions are stored in an arena owned by their Function and are
// addressed by dense ExprIDs. Every use of a value is its own expression
// node, so an ExprID identifies one occurrence, not one value. Value
// identity is provided by value numbers (see VN), which the Builder assigns
// when the function is finished.
//
// Besides the code itself, a Function carries the results of the analyses
// that precede bounds-check elimination: the SSA definition table, value
// numbers, and the per-block and per-edge assertions derived from branch
// conditions.
package ir

import (
	"fmt"
	"go/token"

	"golang.org/x/tools/container/intsets"
)

type BlockID int32
type ExprID int32
type LocalID int32
type ValueNum int32

const (
	NoBlock BlockID  = -1
	NoExpr  ExprID   = -1
	NoVN    ValueNum = -1
)

// Type is the static type of an expression, as far as range propagation
// cares about it.
type Type uint8

const (
	TypeOther  Type = iota
	TypeInt         // 32-bit signed integer
	TypeUInt        // 32-bit unsigned integer
	TypeLong        // 64-bit signed integer
	TypeULong       // 64-bit unsigned integer
	TypeByte        // 8-bit signed integer
	TypeUByte       // 8-bit unsigned integer
	TypeShort       // 16-bit signed integer
	TypeUShort      // 16-bit unsigned integer
	TypeRef         // reference to an array, slice or string
)

var typeNames = [...]string{
	TypeOther:  "other",
	TypeInt:    "int",
	TypeUInt:   "uint",
	TypeLong:   "long",
	TypeULong:  "ulong",
	TypeByte:   "byte",
	TypeUByte:  "ubyte",
	TypeShort:  "short",
	TypeUShort: "ushort",
	TypeRef:    "ref",
}

func (typ Type) String() string {
	if int(typ) < len(typeNames) {
		return typeNames[typ]
	}
	return fmt.Sprintf("Type(%d)", typ)
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, bool) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), true
		}
	}
	return 0, false
}

// IsSmallInt reports whether typ is an 8 or 16 bit integer type.
func (typ Type) IsSmallInt() bool {
	switch typ {
	case TypeByte, TypeUByte, TypeShort, TypeUShort:
		return true
	default:
		return false
	}
}

func (typ Type) IsLong() bool {
	return typ == TypeLong || typ == TypeULong
}

// SmallIntBounds returns the inclusive value range of a small integer type.
func (typ Type) SmallIntBounds() (lo, hi int32, ok bool) {
	switch typ {
	case TypeByte:
		return -128, 127, true
	case TypeUByte:
		return 0, 255, true
	case TypeShort:
		return -32768, 32767, true
	case TypeUShort:
		return 0, 65535, true
	default:
		return 0, 0, false
	}
}

// Op is the shape of an expression.
type Op uint8

const (
	OpOther    Op = iota // anything range propagation doesn't understand
	OpConst              // integer constant: Value
	OpLocal              // use of an SSA local: Local, Version
	OpAdd                // X + Y
	OpPhi                // φ(Edges...)
	OpArrLen             // len(X)
	OpLoad               // *X
	OpNewArray           // new array of length X
)

var opNames = [...]string{
	OpOther:    "other",
	OpConst:    "const",
	OpLocal:    "local",
	OpAdd:      "add",
	OpPhi:      "phi",
	OpArrLen:   "arrlen",
	OpLoad:     "load",
	OpNewArray: "newarr",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// PhiEdge is one argument of a φ: the value Arg flowing in from block Pred.
type PhiEdge struct {
	Pred BlockID
	Arg  ExprID
}

type Expr struct {
	Op   Op
	Type Type

	// OpConst
	Value int64
	// OpLocal
	Local   LocalID
	Version int32
	// OpAdd uses X and Y; OpArrLen, OpLoad and OpNewArray use X.
	X, Y ExprID
	// OpPhi
	Edges []PhiEdge
	// OpOther; purely informational.
	Comment string
}

type StmtKind uint8

const (
	StmtDef   StmtKind = iota // Local_Version = RHS
	StmtCheck                 // bounds check Check
	StmtEval                  // evaluate RHS for its effects
)

type Stmt struct {
	Kind StmtKind

	Local   LocalID
	Version int32
	RHS     ExprID

	Check *BoundsCheck
}

// A BoundsCheck is a bounds-check site: the runtime test 0 <= Index <
// Length guarding an indexing operation.
type BoundsCheck struct {
	ID     int
	Block  BlockID
	Index  ExprID
	Length ExprID
	// Pos is the source position of the indexing operation, if known.
	Pos token.Pos
	// Removed is set once the check has been proven redundant and removed
	// from its block.
	Removed bool
}

type Block struct {
	ID      BlockID
	Comment string
	Preds   []BlockID
	Succs   []BlockID
	Stmts   []*Stmt
}

type Local struct {
	Name string
	Type Type
}

// SSAName identifies one SSA version of a local.
type SSAName struct {
	Local   LocalID
	Version int32
}

// Def is the unique definition of an SSA name.
type Def struct {
	Block BlockID
	RHS   ExprID
}

type Edge struct {
	From, To BlockID
}

type Function struct {
	Name   string
	Blocks []*Block
	Locals []Local
	Checks []*BoundsCheck

	exprs []Expr
	defs  map[SSAName]Def

	vn *valueNumbering

	assertions     []Assertion
	assertionIndex map[Assertion]int
	blockFacts     map[BlockID]*intsets.Sparse
	edgeFacts      map[Edge]*intsets.Sparse
}

func (fn *Function) Expr(id ExprID) *Expr {
	return &fn.exprs[id]
}

func (fn *Function) NumExprs() int {
	return len(fn.exprs)
}

func (fn *Function) Block(id BlockID) *Block {
	return fn.Blocks[id]
}

// SSADef returns the definition of an SSA name. Parameters and other
// values without a recorded definition report false.
func (fn *Function) SSADef(local LocalID, version int32) (Def, bool) {
	def, ok := fn.defs[SSAName{local, version}]
	return def, ok
}

// LocalName returns the printable name of an SSA name, such as "i_2".
func (fn *Function) LocalName(local LocalID, version int32) string {
	name := fmt.Sprintf("V%02d", local)
	if int(local) < len(fn.Locals) && fn.Locals[local].Name != "" {
		name = fn.Locals[local].Name
	}
	return fmt.Sprintf("%s_%d", name, version)
}

// RemoveBoundsCheck deletes a bounds check from its block, leaving the
// indexing operation it guarded unconditional.
func (fn *Function) RemoveBoundsCheck(check *BoundsCheck) {
	if check.Removed {
		return
	}
	b := fn.Blocks[check.Block]
	for i, stmt := range b.Stmts {
		if stmt.Kind == StmtCheck && stmt.Check == check {
			copy(b.Stmts[i:], b.Stmts[i+1:])
			b.Stmts[len(b.Stmts)-1] = nil
			b.Stmts = b.Stmts[:len(b.Stmts)-1]
			break
		}
	}
	check.Removed = true
}

// RemainingChecks returns the bounds checks that are still present, in
// block and statement order.
func (fn *Function) RemainingChecks() []*BoundsCheck {
	var out []*BoundsCheck
	for _, b := range fn.Blocks {
		for _, stmt := range b.Stmts {
			if stmt.Kind == StmtCheck {
				out = append(out, stmt.Check)
			}
		}
	}
	return out
}
