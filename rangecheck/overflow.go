package rangecheck

import (
	"honnef.co/go/rangecheck/go/ir"
	"honnef.co/go/rangecheck/internal/checked"
)

// DoesOverflow reports whether evaluating expr in block may overflow a
// 32-bit integer anywhere along its dependency chain. It relies on the
// ranges computed by GetRange for the same site.
func (e *Engine) DoesOverflow(block ir.BlockID, expr ir.ExprID) bool {
	if of, ok := e.overflows[expr]; ok {
		return of
	}
	if e.onPath(expr) {
		return false
	}
	e.path[expr] = block
	e.indent++
	of := e.computeDoesOverflow(block, expr)
	e.indent--
	e.overflows[expr] = of
	delete(e.path, expr)
	if of {
		e.tracef("[%d] %s may overflow", expr, exprString{e.fn, expr})
	}
	return of
}

func (e *Engine) computeDoesOverflow(block ir.BlockID, expr ir.ExprID) bool {
	if e.tooDeep() {
		return true
	}
	if _, ok := e.constant(expr); ok {
		return false
	}
	x := e.fn.Expr(expr)
	switch x.Op {
	case ir.OpConst, ir.OpLoad, ir.OpArrLen, ir.OpOther:
		// None of these are computed by arithmetic the engine reasons
		// about. Their ranges come from their types and from
		// assertions, which describe the actual values.
		return false
	case ir.OpLocal:
		def, ok := e.fn.SSADef(x.Local, x.Version)
		if !ok {
			return false
		}
		return e.DoesOverflow(def.Block, def.RHS)
	case ir.OpAdd:
		if x.Type != ir.TypeInt {
			return false
		}
		return e.doesAddOverflow(block, x)
	case ir.OpPhi:
		for _, edge := range x.Edges {
			if e.onPath(edge.Arg) {
				continue
			}
			if e.DoesOverflow(edge.Pred, edge.Arg) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func (e *Engine) doesAddOverflow(block ir.BlockID, x *ir.Expr) bool {
	if !e.onPath(x.X) && e.DoesOverflow(block, x.X) {
		return true
	}
	if !e.onPath(x.Y) && e.DoesOverflow(block, x.Y) {
		return true
	}
	r1, ok := e.ranges[x.X]
	if !ok {
		return true
	}
	r2, ok := e.ranges[x.Y]
	if !ok {
		return true
	}
	if r1.Upper.IsDependent() {
		r1 = e.MergeAssertion(block, x.X, r1)
	}
	if r2.Upper.IsDependent() {
		r2 = e.MergeAssertion(block, x.Y, r2)
	}
	max1, ok := e.limitMax(r1.Upper)
	if !ok {
		return true
	}
	max2, ok := e.limitMax(r2.Upper)
	if !ok {
		return true
	}
	_, of := checked.Add(max1, max2)
	return of
}

// limitMax returns the largest value a limit can stand for.
func (e *Engine) limitMax(l Limit) (int32, bool) {
	switch l.Kind {
	case KindConstant:
		return l.Cns, true
	case KindSymbolic:
		n, ok := e.arraySize(l.Sym)
		if !ok {
			n = e.opts.MaxArrayLength
		}
		r, of := checked.Add(n, l.Cns)
		if of {
			return 0, false
		}
		return r, true
	default:
		return 0, false
	}
}

// arraySize returns the statically known value of the length with value
// number vn.
func (e *Engine) arraySize(vn ir.ValueNum) (int32, bool) {
	if v, typ, ok := e.fn.ConstantValue(vn); ok && !typ.IsLong() {
		if v < 0 || v > int64(e.opts.MaxArrayLength) {
			return 0, false
		}
		return int32(v), true
	}
	if e.fn.IsArrLen(vn) {
		return e.fn.NewArraySize(e.fn.ArrOfLen(vn))
	}
	return 0, false
}
