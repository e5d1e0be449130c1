package rangecheck

import (
	"fmt"

	"honnef.co/go/rangecheck/go/ir"
)

// State is the last stage of the analysis a site reached.
type State uint8

const (
	// StateNone: the site wasn't analysed because the budget was exhausted.
	StateNone State = iota
	StateConstantFastPath
	StateRangeComputed
	StateOverflowChecked
	StateWidened
	StateDecided
)

var stateNames = [...]string{
	StateNone:             "None",
	StateConstantFastPath: "ConstantFastPath",
	StateRangeComputed:    "RangeComputed",
	StateOverflowChecked:  "OverflowChecked",
	StateWidened:          "Widened",
	StateDecided:          "Decided",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// A Decision records the outcome of analysing one bounds-check site.
type Decision struct {
	Check *ir.BoundsCheck
	State State
	// Range is the range of the index, as far as it was computed.
	Range      Range
	Eliminated bool
	Reason     string
}

func (d Decision) String() string {
	verdict := "retained"
	if d.Eliminated {
		verdict = "eliminated"
	}
	return fmt.Sprintf("check#%d %s at %s: range %s: %s", d.Check.ID, verdict, d.State, d.Range, d.Reason)
}

// OptimizeRangeChecks runs bounds-check elimination on fn with the given
// options. It is a shorthand for New(fn, opts).OptimizeRangeChecks().
func OptimizeRangeChecks(fn *ir.Function, opts Options) []Decision {
	return New(fn, opts).OptimizeRangeChecks()
}

// OptimizeRangeChecks analyses every bounds-check site that is still
// present, in block and statement order, and removes those that are proven
// redundant. Once the visit budget is exhausted, all remaining sites are
// retained without analysis.
func (e *Engine) OptimizeRangeChecks() []Decision {
	e.tracef("*************** range check elimination for %s", e.fn.Name)
	sites := e.fn.RemainingChecks()
	out := make([]Decision, 0, len(sites))
	for _, site := range sites {
		if e.overBudget() {
			e.stats.BudgetExhausted = true
			out = append(out, Decision{
				Check:  site,
				Range:  unknownRange,
				Reason: "visit budget exhausted",
			})
			continue
		}
		out = append(out, e.OptimizeRangeCheck(site))
	}
	debugf("%s: %d of %d sites eliminated, %d nodes visited", e.fn.Name, e.stats.Eliminated, e.stats.Sites, e.stats.Visited)
	return out
}

// OptimizeRangeCheck analyses a single bounds-check site and removes it if
// its index is provably within [0, length).
func (e *Engine) OptimizeRangeCheck(site *ir.BoundsCheck) Decision {
	d := Decision{Check: site, Range: unknownRange}
	if site.Removed {
		d.Reason = "already removed"
		return d
	}
	e.stats.Sites++
	e.site = site
	e.siteLen = e.fn.VN(site.Length)
	defer func() {
		e.site = nil
		e.siteLen = ir.NoVN
		e.reset()
	}()
	e.tracef("optimizing %s in B%d", e.fn.CheckString(site), site.Block)
	e.indent++
	defer func() { e.indent-- }()

	d.State = StateConstantFastPath
	arrSize, sizeKnown := e.arraySize(e.siteLen)
	if idx, ok := e.constant(site.Index); ok && sizeKnown && arrSize > 0 {
		d.Range = single(Const(idx))
		if idx >= 0 && idx < arrSize {
			return e.eliminate(d, fmt.Sprintf("constant index %d within length %d", idx, arrSize))
		}
		return e.retain(d, fmt.Sprintf("constant index %d out of bounds for length %d", idx, arrSize))
	}

	e.reset()
	d.State = StateRangeComputed
	d.Range = e.GetRange(site.Block, site.Index, false)
	if d.Range.Lower.IsUnknown() || d.Range.Upper.IsUnknown() {
		return e.retain(d, "range is unknown")
	}

	d.State = StateOverflowChecked
	if e.DoesOverflow(site.Block, site.Index) {
		return e.retain(d, "index computation may overflow")
	}

	d.State = StateWidened
	d.Range = e.Widen(site.Block, site.Index, d.Range)
	if d.Range.Lower.IsUnknown() || d.Range.Upper.IsUnknown() {
		return e.retain(d, "widened range is unknown")
	}

	d.State = StateDecided
	if e.BetweenBounds(d.Range, 0, site.Length) {
		return e.eliminate(d, "range within bounds")
	}
	return e.retain(d, "range not within bounds")
}

func (e *Engine) eliminate(d Decision, reason string) Decision {
	d.Eliminated = true
	d.Reason = reason
	e.fn.RemoveBoundsCheck(d.Check)
	e.stats.Eliminated++
	e.tracef("eliminated: %s", reason)
	return d
}

func (e *Engine) retain(d Decision, reason string) Decision {
	d.Reason = reason
	e.tracef("retained: %s, range %s", reason, d.Range)
	return d
}

// BetweenBounds reports whether every value in r lies within
// [lower, length). Only a lower bound of 0 is supported.
func (e *Engine) BetweenBounds(r Range, lower int32, length ir.ExprID) bool {
	if lower != 0 {
		return false
	}
	lenVN := e.fn.VN(length)
	arrSize, sizeKnown := e.arraySize(lenVN)
	if !sizeKnown {
		arrSize = 0
		if !e.fn.IsArrLen(lenVN) {
			return false
		}
	}

	switch {
	case r.Upper.IsSymbolic() && r.Upper.Sym == lenVN:
		// length + ucns
		ucns := r.Upper.Cns
		if ucns >= 0 {
			return false
		}
		if r.Lower.IsConstant() && r.Lower.Cns >= 0 {
			return true
		}
		if arrSize <= 0 {
			return false
		}
		if r.Lower.IsSymbolic() {
			lcns := r.Lower.Cns
			if lcns >= 0 || -int64(lcns) > int64(arrSize) {
				return false
			}
			return r.Lower.Sym == lenVN && lcns <= ucns
		}
	case r.Upper.IsConstant():
		if arrSize <= 0 {
			return false
		}
		ucns := r.Upper.Cns
		if ucns >= arrSize {
			return false
		}
		if r.Lower.IsConstant() {
			lcns := r.Lower.Cns
			return lcns >= 0 && lcns <= ucns
		}
		if r.Lower.IsSymbolic() {
			lcns := r.Lower.Cns
			if lcns >= 0 || -int64(lcns) > int64(arrSize) {
				return false
			}
			return r.Lower.Sym == lenVN && int64(arrSize)+int64(lcns) <= int64(ucns)
		}
	}
	return false
}
