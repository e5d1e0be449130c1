package rangecheck

import "fmt"

// A Range describes the values an expression may take. Nothing guarantees
// that Lower <= Upper.
type Range struct {
	Lower Limit
	Upper Limit
}

func single(l Limit) Range {
	return Range{l, l}
}

var (
	unknownRange   = Range{Unknown, Unknown}
	dependentRange = Range{Dependent, Dependent}
)

func (r Range) String() string {
	return fmt.Sprintf("<%s, %s>", r.Lower, r.Upper)
}

func (r Range) Equals(o Range) bool {
	return r.Lower.Equals(o.Lower) && r.Upper.Equals(o.Upper)
}

// Add returns the range of x + y, for x in r1 and y in r2.
func Add(r1, r2 Range) Range {
	return Range{addLimits(r1.Lower, r2.Lower), addLimits(r1.Upper, r2.Upper)}
}

func addLimits(a, b Limit) Limit {
	switch {
	case a.IsUnknown() || b.IsUnknown():
		return Unknown
	case a.IsDependent() || b.IsDependent():
		return Dependent
	case a.IsConstant():
		if b.AddConstant(a.Cns) {
			return b
		}
		return Unknown
	case b.IsConstant():
		if a.AddConstant(b.Cns) {
			return a
		}
		return Unknown
	default:
		return Unknown
	}
}

// Merge returns the join of r1 and r2, the range of a φ merging values from
// both. With monotonic set, a Dependent lower bound is resolved to the other
// operand's lower bound: the value only grows from its initial value.
func Merge(r1, r2 Range, monotonic bool) Range {
	return Range{mergeLower(r1.Lower, r2.Lower, monotonic), mergeUpper(r1.Upper, r2.Upper)}
}

func mergeLower(a, b Limit, monotonic bool) Limit {
	switch {
	case a.IsUndefined():
		return b
	case b.IsUndefined():
		return a
	case a.IsUnknown() || b.IsUnknown():
		return Unknown
	case a.IsDependent() && b.IsDependent():
		return Dependent
	case a.IsDependent():
		if monotonic {
			return b
		}
		return Dependent
	case b.IsDependent():
		if monotonic {
			return a
		}
		return Dependent
	case a.IsConstant() && b.IsConstant():
		return Const(min(a.Cns, b.Cns))
	case a.IsSymbolic() && b.IsSymbolic() && a.Sym == b.Sym:
		return Sym(a.Sym, min(a.Cns, b.Cns))
	default:
		return Unknown
	}
}

func mergeUpper(a, b Limit) Limit {
	switch {
	case a.IsUndefined():
		return b
	case b.IsUndefined():
		return a
	case a.IsUnknown() || b.IsUnknown():
		return Unknown
	case a.IsDependent() || b.IsDependent():
		return Dependent
	case a.IsConstant() && b.IsConstant():
		return Const(max(a.Cns, b.Cns))
	case a.IsSymbolic() && b.IsSymbolic() && a.Sym == b.Sym:
		return Sym(a.Sym, max(a.Cns, b.Cns))
	case a.IsConstant() && b.IsSymbolic():
		return widenToLength(a, b)
	case a.IsSymbolic() && b.IsConstant():
		return widenToLength(b, a)
	default:
		return Unknown
	}
}

// widenToLength merges the upper bounds k and len + c. Array lengths are
// never negative, so len + c >= k holds whenever 0 <= k <= c.
func widenToLength(k, sym Limit) Limit {
	if k.Cns >= 0 && sym.Cns >= k.Cns {
		return sym
	}
	return Unknown
}
