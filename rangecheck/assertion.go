package rangecheck

import (
	"fmt"
	"go/token"

	"golang.org/x/tools/container/intsets"
	"honnef.co/go/rangecheck/go/ir"
)

// negateToken negates a comparison operator. For example, '>' becomes '<='.
func negateToken(tok token.Token) token.Token {
	switch tok {
	case token.LSS:
		return token.GEQ
	case token.GTR:
		return token.LEQ
	case token.LEQ:
		return token.GTR
	case token.GEQ:
		return token.LSS
	default:
		panic(fmt.Sprintf("unhandled token %s", tok))
	}
}

// MergeAssertion tightens r, the range of expr, using the assertions that
// hold in block.
func (e *Engine) MergeAssertion(block ir.BlockID, expr ir.ExprID, r Range) Range {
	return e.mergeAssertions(e.fn.BlockAssertions(block), expr, r)
}

// MergeEdgeAssertion tightens r, the range of the φ argument expr flowing
// in from pred, using the assertions that hold at the end of pred and along
// the edge pred -> succ.
func (e *Engine) MergeEdgeAssertion(pred, succ ir.BlockID, expr ir.ExprID, r Range) Range {
	var set intsets.Sparse
	set.Union(e.fn.BlockAssertions(pred), e.fn.EdgeAssertions(pred, succ))
	return e.mergeAssertions(&set, expr, r)
}

func (e *Engine) mergeAssertions(set *intsets.Sparse, expr ir.ExprID, r Range) Range {
	if set.IsEmpty() {
		return r
	}
	vn := e.fn.VN(expr)
	if vn == ir.NoVN {
		return r
	}
	for _, idx := range set.AppendTo(nil) {
		a := e.fn.Assertion(idx)
		if a.X != vn {
			continue
		}
		op := a.Op
		if !a.Holds {
			op = negateToken(op)
		}
		var limit Limit
		switch a.Kind {
		case ir.ConstantBound:
			limit = Const(a.K)
		case ir.LengthBound:
			limit = Sym(a.Len, a.K)
		default:
			continue
		}
		// Bounds are inclusive.
		switch op {
		case token.LSS:
			if !limit.AddConstant(-1) {
				continue
			}
			op = token.LEQ
		case token.GTR:
			if !limit.AddConstant(1) {
				continue
			}
			op = token.GEQ
		}

		switch op {
		case token.LEQ:
			if e.tightensUpper(r.Upper, limit) {
				e.tracef("assertion A%02d %s: upper %s -> %s", idx, a, r.Upper, limit)
				r.Upper = limit
			}
		case token.GEQ:
			if tightensLower(r.Lower, limit) {
				e.tracef("assertion A%02d %s: lower %s -> %s", idx, a, r.Lower, limit)
				r.Lower = limit
			}
		}
	}
	return r
}

// tightensUpper reports whether the upper bound limit is an improvement
// over cur. Symbolic bounds are only useful if they refer to the length
// checked by the current site.
func (e *Engine) tightensUpper(cur, limit Limit) bool {
	switch cur.Kind {
	case KindUndefined, KindUnknown, KindDependent:
		return true
	case KindConstant:
		if limit.IsConstant() {
			return limit.Cns < cur.Cns
		}
		return e.siteLen != ir.NoVN && limit.Sym == e.siteLen
	case KindSymbolic:
		if limit.IsSymbolic() && limit.Sym == cur.Sym {
			return limit.Cns < cur.Cns
		}
		if cur.Sym == e.siteLen {
			return false
		}
		return limit.IsConstant() || (e.siteLen != ir.NoVN && limit.Sym == e.siteLen)
	default:
		return false
	}
}

// tightensLower reports whether the lower bound limit is an improvement
// over cur. Constant lower bounds are preferred.
func tightensLower(cur, limit Limit) bool {
	switch cur.Kind {
	case KindUndefined, KindUnknown, KindDependent:
		return true
	case KindConstant:
		return limit.IsConstant() && limit.Cns > cur.Cns
	case KindSymbolic:
		if limit.IsConstant() {
			return true
		}
		return limit.Sym == cur.Sym && limit.Cns > cur.Cns
	default:
		return false
	}
}
