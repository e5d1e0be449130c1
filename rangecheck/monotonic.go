package rangecheck

import "honnef.co/go/rangecheck/go/ir"

type monotonicKey struct {
	expr                ir.ExprID
	rejectNegativeConst bool
}

// IsMonotonicallyIncreasing reports whether expr only ever grows from its
// initial value, which is the case for induction variables that are
// incremented by non-negative constants. With rejectNegativeConst set,
// negative constants are not considered monotonic.
//
// Verdicts are cached until the next site. Every newly visited node is
// charged to the visit budget; once it is exhausted, the answer is false.
func (e *Engine) IsMonotonicallyIncreasing(expr ir.ExprID, rejectNegativeConst bool) bool {
	key := monotonicKey{expr, rejectNegativeConst}
	if ok, cached := e.monotonic[key]; cached {
		return ok
	}
	if e.onPath(expr) {
		// A cycle by itself doesn't make a value decrease.
		return true
	}
	if e.overBudget() {
		e.stats.BudgetExhausted = true
		e.tracef("visit budget exhausted")
		return false
	}
	e.budget--
	e.stats.Visited++
	e.path[expr] = ir.NoBlock
	ok := e.computeIsMonotonicallyIncreasing(expr, rejectNegativeConst)
	delete(e.path, expr)
	// Every case is conjunctive: a false verdict always reaches the
	// outermost query, even if this one assumed a node on the path.
	e.monotonic[key] = ok
	return ok
}

func (e *Engine) computeIsMonotonicallyIncreasing(expr ir.ExprID, rejectNegativeConst bool) bool {
	if e.tooDeep() {
		return false
	}

	if c, ok := e.constant(expr); ok {
		return !rejectNegativeConst || c >= 0
	}
	x := e.fn.Expr(expr)
	switch x.Op {
	case ir.OpLocal:
		def, ok := e.fn.SSADef(x.Local, x.Version)
		return ok && e.IsMonotonicallyIncreasing(def.RHS, rejectNegativeConst)
	case ir.OpAdd:
		return e.isAddMonotonicallyIncreasing(x)
	case ir.OpPhi:
		for _, edge := range x.Edges {
			if e.onPath(edge.Arg) {
				continue
			}
			if !e.IsMonotonicallyIncreasing(edge.Arg, rejectNegativeConst) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (e *Engine) isAddMonotonicallyIncreasing(x *ir.Expr) bool {
	op1, op2 := x.X, x.Y
	if e.fn.Expr(op2).Op == ir.OpLocal {
		op1, op2 = op2, op1
	}
	if e.fn.Expr(op1).Op != ir.OpLocal {
		return false
	}
	if c, ok := e.constant(op2); ok {
		return c >= 0 && e.IsMonotonicallyIncreasing(op1, false)
	}
	if e.fn.Expr(op2).Op == ir.OpLocal {
		return e.IsMonotonicallyIncreasing(op1, true) && e.IsMonotonicallyIncreasing(op2, true)
	}
	return false
}

// Widen recomputes the range of expr under the assumption that it grows
// monotonically, if its lower bound is not known and that assumption holds.
func (e *Engine) Widen(block ir.BlockID, expr ir.ExprID, r Range) Range {
	if !r.Lower.IsDependent() && !r.Lower.IsUnknown() {
		return r
	}
	clear(e.path)
	if !e.IsMonotonicallyIncreasing(expr, false) {
		e.tracef("[%d] %s is not monotonically increasing", expr, exprString{e.fn, expr})
		return r
	}
	e.tracef("[%d] %s is monotonically increasing, widening", expr, exprString{e.fn, expr})
	clear(e.ranges)
	return e.GetRange(block, expr, true)
}
