package ir

import (
	"fmt"
	"go/token"

	"golang.org/x/tools/container/intsets"
)

type AssertionKind uint8

const (
	// (X op K) == Holds
	ConstantBound AssertionKind = iota
	// (X op len + K) == Holds
	LengthBound
)

// An Assertion is a fact about a comparison that is known to hold in some
// blocks, or along some edges. Assertions are expressed in terms of value
// numbers so that they apply to every occurrence of a value.
type Assertion struct {
	Kind AssertionKind
	// Op is one of token.LSS, token.LEQ, token.GTR and token.GEQ.
	Op token.Token
	X  ValueNum
	// Len is the value number of an array length, for LengthBound.
	Len ValueNum
	K   int32
	// Holds is the truth value of the comparison.
	Holds bool
}

// A Fact is an Assertion that is still expressed in terms of expressions.
// The Builder turns facts into assertions once value numbers are known.
type Fact struct {
	Op token.Token
	X  ExprID
	// Len is the array length compared against, or NoExpr for a
	// comparison against the constant K alone.
	Len   ExprID
	K     int32
	Holds bool
}

func (a Assertion) String() string {
	var rhs string
	switch a.Kind {
	case ConstantBound:
		rhs = fmt.Sprintf("%d", a.K)
	case LengthBound:
		switch {
		case a.K == 0:
			rhs = fmt.Sprintf("$%d", a.Len)
		case a.K > 0:
			rhs = fmt.Sprintf("$%d + %d", a.Len, a.K)
		default:
			rhs = fmt.Sprintf("$%d - %d", a.Len, -int64(a.K))
		}
	}
	return fmt.Sprintf("($%d %s %s) == %t", a.X, a.Op, rhs, a.Holds)
}

func (fn *Function) NumAssertions() int {
	return len(fn.assertions)
}

// Assertion returns the assertion with index i, as found in the sets
// returned by BlockAssertions and EdgeAssertions.
func (fn *Function) Assertion(i int) Assertion {
	return fn.assertions[i]
}

var emptySet intsets.Sparse

// BlockAssertions returns the assertions that hold on entry to, and thus
// throughout, block b. The returned set must not be modified.
func (fn *Function) BlockAssertions(b BlockID) *intsets.Sparse {
	if s, ok := fn.blockFacts[b]; ok {
		return s
	}
	return &emptySet
}

// EdgeAssertions returns the assertions that hold along the control flow
// edge from -> to, in addition to those holding in from. The returned set
// must not be modified.
func (fn *Function) EdgeAssertions(from, to BlockID) *intsets.Sparse {
	if s, ok := fn.edgeFacts[Edge{from, to}]; ok {
		return s
	}
	return &emptySet
}

func (fn *Function) addAssertion(a Assertion) int {
	if i, ok := fn.assertionIndex[a]; ok {
		return i
	}
	if fn.assertionIndex == nil {
		fn.assertionIndex = map[Assertion]int{}
	}
	fn.assertions = append(fn.assertions, a)
	fn.assertionIndex[a] = len(fn.assertions) - 1
	return len(fn.assertions) - 1
}

func (fn *Function) resolveFact(f Fact) (Assertion, bool) {
	switch f.Op {
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
	default:
		return Assertion{}, false
	}
	a := Assertion{
		Kind:  ConstantBound,
		Op:    f.Op,
		X:     fn.VN(f.X),
		Len:   NoVN,
		K:     f.K,
		Holds: f.Holds,
	}
	if f.Len != NoExpr {
		a.Kind = LengthBound
		a.Len = fn.VN(f.Len)
		if !fn.IsArrLen(a.Len) {
			return Assertion{}, false
		}
	}
	if a.X == NoVN {
		return Assertion{}, false
	}
	return a, true
}
