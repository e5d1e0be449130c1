package rangecheck

import (
	"fmt"

	"honnef.co/go/rangecheck/go/ir"
	"honnef.co/go/rangecheck/internal/checked"
)

type Kind uint8

const (
	// KindUndefined is the bottom element: no value has flowed in yet.
	KindUndefined Kind = iota
	// KindUnknown is the top element: nothing is known.
	KindUnknown
	// KindDependent marks a bound that depends on a value still being
	// computed further up the search path, i.e. a loop-carried value.
	KindDependent
	// KindConstant is the bound Cns.
	KindConstant
	// KindSymbolic is the bound Sym + Cns, where Sym is the value number of
	// an array length.
	KindSymbolic
)

var kindNames = [...]string{
	KindUndefined: "Undef",
	KindUnknown:   "Unknown",
	KindDependent: "Dependent",
	KindConstant:  "Const",
	KindSymbolic:  "Sym",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// A Limit is one bound of a Range.
type Limit struct {
	Kind Kind
	Sym  ir.ValueNum
	Cns  int32
}

var (
	Undefined = Limit{Kind: KindUndefined, Sym: ir.NoVN}
	Unknown   = Limit{Kind: KindUnknown, Sym: ir.NoVN}
	Dependent = Limit{Kind: KindDependent, Sym: ir.NoVN}
)

func Const(c int32) Limit {
	return Limit{Kind: KindConstant, Sym: ir.NoVN, Cns: c}
}

func Sym(vn ir.ValueNum, c int32) Limit {
	return Limit{Kind: KindSymbolic, Sym: vn, Cns: c}
}

func (l Limit) IsUndefined() bool { return l.Kind == KindUndefined }
func (l Limit) IsUnknown() bool   { return l.Kind == KindUnknown }
func (l Limit) IsDependent() bool { return l.Kind == KindDependent }
func (l Limit) IsConstant() bool  { return l.Kind == KindConstant }

// IsSymbolic reports whether l is based on an array length.
func (l Limit) IsSymbolic() bool { return l.Kind == KindSymbolic }

// AddConstant shifts l by c. It reports false, leaving l unchanged, if l
// carries no value or if the shift overflows.
func (l *Limit) AddConstant(c int32) bool {
	switch l.Kind {
	case KindDependent:
		return true
	case KindConstant, KindSymbolic:
		r, of := checked.Add(l.Cns, c)
		if of {
			return false
		}
		l.Cns = r
		return true
	default:
		return false
	}
}

func (l Limit) Equals(o Limit) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case KindConstant:
		return l.Cns == o.Cns
	case KindSymbolic:
		return l.Sym == o.Sym && l.Cns == o.Cns
	default:
		return true
	}
}

func (l Limit) String() string {
	switch l.Kind {
	case KindConstant:
		return fmt.Sprintf("%d", l.Cns)
	case KindSymbolic:
		switch {
		case l.Cns == 0:
			return fmt.Sprintf("$%d", l.Sym)
		case l.Cns > 0:
			return fmt.Sprintf("$%d + %d", l.Sym, l.Cns)
		default:
			return fmt.Sprintf("$%d - %d", l.Sym, -int64(l.Cns))
		}
	default:
		return l.Kind.String()
	}
}
