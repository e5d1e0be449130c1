// Package rangecheck implements range propagation for bounds-check
// elimination.
//
// For every bounds-check site of a function, the engine computes the range
// of the index expression by walking its SSA dependency graph, checks that
// no arithmetic along the way can overflow, widens the range of loop
// induction variables and finally tests the range against [0, length). Sites
// that are proven safe are removed from the function.
//
// The analysis is sound but incomplete. Every situation it doesn't
// understand degrades to Unknown and retains the check. Termination on
// arbitrarily large or cyclic graphs is guaranteed by a node visit budget
// shared by all sites of a function and by a cap on the recursion depth.
package rangecheck

import (
	"io"
	"math"

	"honnef.co/go/rangecheck/go/ir"
)

const (
	DefaultBudget         = 8192
	DefaultMaxSearchDepth = 100
	DefaultMaxArrayLength = math.MaxInt32
)

type Options struct {
	// Budget is the number of expression nodes that may be visited for
	// all sites of a function combined.
	Budget int
	// MaxSearchDepth caps the length of the search path.
	MaxSearchDepth int
	// MaxArrayLength is the largest length an array of unknown size is
	// assumed to have when checking for overflow.
	MaxArrayLength int32
	// Trace, if not nil, receives a human-readable log of the analysis.
	Trace io.Writer
}

func (opts Options) withDefaults() Options {
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.MaxSearchDepth <= 0 {
		opts.MaxSearchDepth = DefaultMaxSearchDepth
	}
	if opts.MaxArrayLength <= 0 {
		opts.MaxArrayLength = DefaultMaxArrayLength
	}
	return opts
}

type Stats struct {
	// Sites is the number of bounds-check sites that were considered.
	Sites int
	// Eliminated is the number of sites that were removed.
	Eliminated int
	// Visited is the number of expression nodes visited.
	Visited int
	// BudgetExhausted is set once the visit budget has run out.
	BudgetExhausted bool
}

// An Engine analyses the bounds checks of one function. It is not safe for
// concurrent use.
type Engine struct {
	fn   *ir.Function
	opts Options

	budget int

	// path maps the expressions currently being visited to the block
	// they're being visited in.
	path      map[ir.ExprID]ir.BlockID
	ranges    map[ir.ExprID]Range
	overflows map[ir.ExprID]bool
	monotonic map[monotonicKey]bool

	// The site being analysed and the value number of its length.
	site    *ir.BoundsCheck
	siteLen ir.ValueNum

	indent int
	stats  Stats
}

func New(fn *ir.Function, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		fn:        fn,
		opts:      opts,
		budget:    opts.Budget,
		path:      map[ir.ExprID]ir.BlockID{},
		ranges:    map[ir.ExprID]Range{},
		overflows: map[ir.ExprID]bool{},
		monotonic: map[monotonicKey]bool{},
		siteLen:   ir.NoVN,
	}
}

func (e *Engine) Function() *ir.Function { return e.fn }

// Budget returns the number of node visits left.
func (e *Engine) Budget() int { return e.budget }

func (e *Engine) Stats() Stats { return e.stats }

func (e *Engine) overBudget() bool {
	return e.budget <= 0
}

func (e *Engine) onPath(id ir.ExprID) bool {
	_, ok := e.path[id]
	return ok
}

func (e *Engine) tooDeep() bool {
	return len(e.path) > e.opts.MaxSearchDepth
}

// reset discards everything computed for the previous site.
func (e *Engine) reset() {
	clear(e.path)
	clear(e.ranges)
	clear(e.overflows)
	clear(e.monotonic)
}

// GetRange returns the range of expr, evaluated in block.
func (e *Engine) GetRange(block ir.BlockID, expr ir.ExprID, monotonic bool) Range {
	if r, ok := e.ranges[expr]; ok {
		e.tracef("[%d] %s: cached %s", expr, exprString{e.fn, expr}, r)
		return r
	}
	e.indent++
	r := e.ComputeRange(block, expr, monotonic)
	e.indent--
	return r
}

// ComputeRange computes the range of expr, evaluated in block, and caches
// it. An expression that is already being computed further up the search
// path is a loop-carried value and has the range <Dependent, Dependent>.
func (e *Engine) ComputeRange(block ir.BlockID, expr ir.ExprID, monotonic bool) Range {
	if e.onPath(expr) {
		return dependentRange
	}
	e.path[expr] = block
	if !e.overBudget() {
		e.budget--
		e.stats.Visited++
	}
	e.tracef("[%d] %s in B%d, monotonic=%t", expr, exprString{e.fn, expr}, block, monotonic)

	x := e.fn.Expr(expr)
	var r Range
	switch {
	case e.overBudget():
		e.stats.BudgetExhausted = true
		e.tracef("visit budget exhausted")
		r = unknownRange
	case e.tooDeep():
		e.tracef("search depth exceeded")
		r = unknownRange
	case x.Type.IsLong():
		r = unknownRange
	default:
		if c, ok := e.constant(expr); ok {
			r = single(Const(c))
			break
		}
		switch x.Op {
		case ir.OpLocal:
			r = e.computeLocalRange(block, expr, x, monotonic)
		case ir.OpAdd:
			if x.Type != ir.TypeInt {
				r = typeRange(x.Type)
				break
			}
			r = e.computeAddRange(block, x, monotonic)
		case ir.OpPhi:
			r = e.computePhiRange(block, x, monotonic)
		case ir.OpArrLen:
			// A length is exactly itself.
			if vn := e.fn.VN(expr); e.fn.IsArrLen(vn) {
				r = single(Sym(vn, 0))
			} else {
				r = unknownRange
			}
		default:
			r = typeRange(x.Type)
		}
	}

	e.ranges[expr] = r
	delete(e.path, expr)
	e.tracef("[%d] %s = %s", expr, exprString{e.fn, expr}, r)
	return r
}

// constant returns the value of expr if its value number is a 32-bit
// integer constant.
func (e *Engine) constant(expr ir.ExprID) (int32, bool) {
	v, typ, ok := e.fn.ConstantValue(e.fn.VN(expr))
	if !ok || typ == ir.TypeOther || typ == ir.TypeRef || typ.IsLong() {
		return 0, false
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}

// typeRange returns the range of values representable by typ, which is
// only known for small integer types.
func typeRange(typ ir.Type) Range {
	lo, hi, ok := typ.SmallIntBounds()
	if !ok {
		return unknownRange
	}
	return Range{Const(lo), Const(hi)}
}

func (e *Engine) computeLocalRange(block ir.BlockID, expr ir.ExprID, x *ir.Expr, monotonic bool) Range {
	r := unknownRange
	if def, ok := e.fn.SSADef(x.Local, x.Version); ok {
		r = e.GetRange(def.Block, def.RHS, monotonic)
	} else {
		e.tracef("%s has no definition", e.fn.LocalName(x.Local, x.Version))
	}
	r = e.MergeAssertion(block, expr, r)
	if lo, hi, ok := x.Type.SmallIntBounds(); ok {
		if r.Lower.IsUnknown() {
			r.Lower = Const(lo)
		}
		if r.Upper.IsUnknown() {
			r.Upper = Const(hi)
		}
	}
	return r
}

func (e *Engine) computeAddRange(block ir.BlockID, x *ir.Expr, monotonic bool) Range {
	operand := func(op ir.ExprID) Range {
		if e.onPath(op) {
			return dependentRange
		}
		return e.GetRange(block, op, monotonic)
	}
	r1 := operand(x.X)
	r2 := operand(x.Y)
	r := Add(r1, r2)
	e.tracef("%s + %s = %s", r1, r2, r)
	return r
}

func (e *Engine) computePhiRange(block ir.BlockID, x *ir.Expr, monotonic bool) Range {
	r := Range{Undefined, Undefined}
	for _, edge := range x.Edges {
		var argRange Range
		if e.onPath(edge.Arg) {
			argRange = dependentRange
		} else {
			argRange = e.GetRange(edge.Pred, edge.Arg, monotonic)
		}
		argRange = e.MergeEdgeAssertion(edge.Pred, block, edge.Arg, argRange)
		merged := Merge(r, argRange, monotonic)
		e.tracef("merge %s with %s from B%d = %s", r, argRange, edge.Pred, merged)
		r = merged
	}
	return r
}
