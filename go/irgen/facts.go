package irgen

import (
	"fmt"
	"go/token"
	"math"

	"golang.org/x/tools/go/ssa"
	"honnef.co/go/rangecheck/go/ir"
)

// flipToken flips a binary operator. For example, '>' becomes '<'.
func flipToken(tok token.Token) token.Token {
	switch tok {
	case token.LSS:
		return token.GTR
	case token.GTR:
		return token.LSS
	case token.LEQ:
		return token.GEQ
	case token.GEQ:
		return token.LEQ
	default:
		panic(fmt.Sprintf("unhandled token %v", tok))
	}
}

func (g *generator) ifFacts(block ir.BlockID, instr *ssa.If) {
	cond, ok := instr.Cond.(*ssa.BinOp)
	if !ok {
		return
	}
	switch cond.Op {
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
	default:
		return
	}
	succs := instr.Block().Succs
	if len(succs) != 2 || succs[0] == succs[1] {
		return
	}
	then := ir.Edge{From: block, To: ir.BlockID(succs[0].Index)}
	els := ir.Edge{From: block, To: ir.BlockID(succs[1].Index)}
	for _, f := range []func() (ir.Fact, bool){
		func() (ir.Fact, bool) { return g.fact(cond.Op, cond.X, cond.Y) },
		func() (ir.Fact, bool) { return g.fact(flipToken(cond.Op), cond.Y, cond.X) },
	} {
		fact, ok := f()
		if !ok {
			continue
		}
		fact.Holds = true
		g.addEdgeFact(then, fact)
		fact.Holds = false
		g.addEdgeFact(els, fact)
	}
}

func (g *generator) addEdgeFact(edge ir.Edge, fact ir.Fact) {
	g.b.AssertOnEdge(edge.From, edge.To, fact)
	g.facts[edge] = append(g.facts[edge], fact)
}

// fact returns the fact x op y, if y is a constant or an array length plus
// a constant.
func (g *generator) fact(op token.Token, x, y ssa.Value) (ir.Fact, bool) {
	if _, ok := x.(*ssa.Const); ok {
		return ir.Fact{}, false
	}
	if typ := g.typ(x.Type()); typ != ir.TypeInt && !typ.IsSmallInt() {
		return ir.Fact{}, false
	}
	if c, ok := y.(*ssa.Const); ok {
		n, ok := constInt(c)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return ir.Fact{}, false
		}
		return ir.Fact{Op: op, X: g.use(x), Len: ir.NoExpr, K: int32(n)}, true
	}
	length, k := lengthBound(y)
	return ir.Fact{Op: op, X: g.use(x), Len: g.use(length), K: k}, true
}

// lengthBound splits y into len + k. Whether len really is the length of
// an array is only known once value numbers have been assigned; facts that
// turn out not to be about lengths are dropped by the builder.
func lengthBound(y ssa.Value) (ssa.Value, int32) {
	binop, ok := y.(*ssa.BinOp)
	if !ok || (binop.Op != token.ADD && binop.Op != token.SUB) {
		return y, 0
	}
	c, ok := binop.Y.(*ssa.Const)
	other := binop.X
	if !ok && binop.Op == token.ADD {
		c, ok = binop.X.(*ssa.Const)
		other = binop.Y
	}
	if !ok {
		return y, 0
	}
	n, ok := constInt(c)
	if binop.Op == token.SUB {
		n = -n
	}
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return y, 0
	}
	return other, int32(n)
}

// blockFacts records, for blk, the facts of every edge that leads into a
// dominator of blk, including blk itself, and that is the only way into it.
func (g *generator) blockFacts(blk *ssa.BasicBlock) {
	for d := blk; d != nil; d = d.Idom() {
		if len(d.Preds) != 1 {
			continue
		}
		edge := ir.Edge{From: ir.BlockID(d.Preds[0].Index), To: ir.BlockID(d.Index)}
		for _, fact := range g.facts[edge] {
			g.b.AssertIn(ir.BlockID(blk.Index), fact)
		}
	}
}
