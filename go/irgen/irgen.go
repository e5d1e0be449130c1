// Package irgen translates functions in go/ssa form into the IR of package
// ir, so that bounds-check elimination can be run on Go code.
//
// Every SSA value becomes a local. Parameters, free variables and globals
// have no definition; every value-producing instruction defines version 1
// of its local. Index operations become bounds-check sites. Comparisons
// controlling if statements become assertions on the outgoing edges, and on
// every block that is dominated by the edge's target.
package irgen

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"math"
	"strings"

	"golang.org/x/tools/go/ssa"
	"honnef.co/go/rangecheck/go/ir"
	typeparams "honnef.co/go/tools/go/types/typeutil"
)

// Function translates fn. It returns nil for functions without a body.
// sizes determines the width of int, uint and uintptr; nil means 64 bits.
func Function(fn *ssa.Function, sizes types.Sizes) *ir.Function {
	if len(fn.Blocks) == 0 {
		return nil
	}
	g := &generator{
		b:      ir.NewBuilder(fn.String()),
		sizes:  sizes,
		locals: map[ssa.Value]ssaLocal{},
		facts:  map[ir.Edge][]ir.Fact{},
	}
	return g.function(fn)
}

type ssaLocal struct {
	id      ir.LocalID
	version int32
}

type generator struct {
	b      *ir.Builder
	sizes  types.Sizes
	locals map[ssa.Value]ssaLocal
	// facts holds the facts established along each edge leaving an if.
	facts map[ir.Edge][]ir.Fact
}

func (g *generator) function(fn *ssa.Function) *ir.Function {
	for _, blk := range fn.Blocks {
		g.b.Block(blk.Comment)
	}
	for _, blk := range fn.Blocks {
		for _, succ := range blk.Succs {
			g.b.Edge(ir.BlockID(blk.Index), ir.BlockID(succ.Index))
		}
	}
	for _, p := range fn.Params {
		g.local(p)
	}
	for _, fv := range fn.FreeVars {
		g.local(fv)
	}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			g.instr(ir.BlockID(blk.Index), instr)
		}
	}
	for _, blk := range fn.Blocks {
		g.blockFacts(blk)
	}
	return g.b.Finish()
}

// intType returns the IR type of a signed integer of the given size.
func intType(size int64, signed bool) ir.Type {
	switch {
	case size == 1 && signed:
		return ir.TypeByte
	case size == 1:
		return ir.TypeUByte
	case size == 2 && signed:
		return ir.TypeShort
	case size == 2:
		return ir.TypeUShort
	case size == 4 && signed:
		return ir.TypeInt
	case size == 4:
		return ir.TypeUInt
	case signed:
		return ir.TypeLong
	default:
		return ir.TypeULong
	}
}

func (g *generator) sizeof(T types.Type) int64 {
	if g.sizes == nil {
		return 8
	}
	return g.sizes.Sizeof(T)
}

func (g *generator) typ(T types.Type) ir.Type {
	switch T := typeparams.CoreType(T).(type) {
	case *types.Basic:
		info := T.Info()
		switch {
		case info&types.IsString != 0:
			return ir.TypeRef
		case info&types.IsInteger != 0:
			size := g.sizeof(T)
			if info&types.IsUntyped != 0 {
				size = 8
			}
			return intType(size, info&types.IsUnsigned == 0)
		}
		return ir.TypeOther
	case *types.Slice, *types.Array:
		return ir.TypeRef
	case *types.Pointer:
		if _, ok := typeparams.CoreType(T.Elem()).(*types.Array); ok {
			return ir.TypeRef
		}
		return ir.TypeOther
	default:
		return ir.TypeOther
	}
}

// intTypeOfLen is the type of len's result.
func (g *generator) intTypeOfLen() ir.Type {
	return g.typ(types.Typ[types.Int])
}

func (g *generator) local(v ssa.Value) ssaLocal {
	if l, ok := g.locals[v]; ok {
		return l
	}
	var version int32
	if _, ok := v.(ssa.Instruction); ok {
		version = 1
	}
	l := ssaLocal{g.b.Local(v.Name(), g.typ(v.Type())), version}
	g.locals[v] = l
	return l
}

func constInt(c *ssa.Const) (int64, bool) {
	if c.Value == nil {
		return 0, false
	}
	v := constant.ToInt(c.Value)
	if v.Kind() != constant.Int {
		return 0, false
	}
	return constant.Int64Val(v)
}

// use returns a new expression using v.
func (g *generator) use(v ssa.Value) ir.ExprID {
	if c, ok := v.(*ssa.Const); ok {
		typ := g.typ(c.Type())
		if n, ok := constInt(c); ok && typ != ir.TypeOther && typ != ir.TypeRef {
			return g.b.Const(typ, n)
		}
		return g.b.Other(typ, "const")
	}
	l := g.local(v)
	return g.b.Use(l.id, l.version)
}

func (g *generator) instr(block ir.BlockID, instr ssa.Instruction) {
	switch instr := instr.(type) {
	case *ssa.IndexAddr:
		g.check(block, instr.X, instr.Index, instr.Pos())
	case *ssa.Index:
		g.check(block, instr.X, instr.Index, instr.Pos())
	case *ssa.Lookup:
		if _, ok := typeparams.CoreType(instr.X.Type()).(*types.Basic); ok {
			g.check(block, instr.X, instr.Index, instr.Pos())
		}
	case *ssa.If:
		g.ifFacts(block, instr)
	}
	if v, ok := instr.(ssa.Value); ok {
		l := g.local(v)
		g.b.Def(block, l.id, l.version, g.rhs(v))
	}
}

func shortName(instr ssa.Instruction) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", instr), "*ssa.")
}

// rhs translates the value computed by an instruction.
func (g *generator) rhs(v ssa.Value) ir.ExprID {
	typ := g.typ(v.Type())
	switch v := v.(type) {
	case *ssa.BinOp:
		if typ != ir.TypeInt {
			break
		}
		switch v.Op {
		case token.ADD:
			return g.b.Add(g.use(v.X), g.use(v.Y))
		case token.SUB:
			if c, ok := v.Y.(*ssa.Const); ok {
				if n, ok := constInt(c); ok && -n >= math.MinInt32 && -n <= math.MaxInt32 {
					return g.b.Add(g.use(v.X), g.b.Const(typ, -n))
				}
			}
		}
	case *ssa.Phi:
		edges := make([]ir.PhiEdge, len(v.Edges))
		for i, edge := range v.Edges {
			edges[i] = ir.PhiEdge{Pred: ir.BlockID(v.Block().Preds[i].Index), Arg: g.use(edge)}
		}
		return g.b.Phi(typ, edges...)
	case *ssa.Call:
		if b, ok := v.Call.Value.(*ssa.Builtin); ok && b.Name() == "len" && len(v.Call.Args) == 1 {
			return g.length(v.Call.Args[0])
		}
	case *ssa.MakeSlice:
		return g.b.NewArray(g.use(v.Len))
	case *ssa.Slice:
		// new([N]T)[:n], which is also how make([]T, n) with constant
		// arguments is built.
		if _, ok := v.X.(*ssa.Alloc); !ok || v.Low != nil {
			break
		}
		n, ok := arrayLen(v.X.Type())
		if !ok {
			break
		}
		if v.High != nil {
			c, ok := v.High.(*ssa.Const)
			if !ok {
				break
			}
			if n, ok = constInt(c); !ok {
				break
			}
		}
		return g.b.NewArray(g.b.Const(g.intTypeOfLen(), n))
	case *ssa.UnOp:
		if v.Op == token.MUL {
			return g.b.Load(typ, g.use(v.X))
		}
	}
	return g.b.Other(typ, shortName(v.(ssa.Instruction)))
}

// arrayLen returns the length of T if it is an array or a pointer to one.
func arrayLen(T types.Type) (int64, bool) {
	T = typeparams.CoreType(T)
	if ptr, ok := T.(*types.Pointer); ok {
		T = typeparams.CoreType(ptr.Elem())
	}
	if arr, ok := T.(*types.Array); ok {
		return arr.Len(), true
	}
	return 0, false
}

// length returns an expression for len(x).
func (g *generator) length(x ssa.Value) ir.ExprID {
	typ := g.intTypeOfLen()
	if n, ok := arrayLen(x.Type()); ok {
		return g.b.Const(typ, n)
	}
	if typ.IsLong() {
		return g.b.LongArrLen(g.use(x))
	}
	return g.b.ArrLen(g.use(x))
}

func (g *generator) check(block ir.BlockID, x, index ssa.Value, pos token.Pos) {
	g.b.CheckAt(block, g.use(index), g.length(x), pos)
}
