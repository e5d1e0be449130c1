package rangecheck

import (
	"math"
	"testing"

	"honnef.co/go/rangecheck/go/ir"
)

func TestAddConstant(t *testing.T) {
	tests := []struct {
		in   Limit
		c    int32
		want Limit
		ok   bool
	}{
		{Const(1), 2, Const(3), true},
		{Const(math.MaxInt32), 1, Const(math.MaxInt32), false},
		{Const(math.MinInt32), -1, Const(math.MinInt32), false},
		{Sym(3, -1), 1, Sym(3, 0), true},
		{Sym(3, math.MaxInt32), 1, Sym(3, math.MaxInt32), false},
		{Dependent, 5, Dependent, true},
		{Unknown, 5, Unknown, false},
		{Undefined, 5, Undefined, false},
	}
	for _, tt := range tests {
		l := tt.in
		ok := l.AddConstant(tt.c)
		if ok != tt.ok || !l.Equals(tt.want) {
			t.Errorf("%s.AddConstant(%d) = %s, %t; want %s, %t", tt.in, tt.c, l, ok, tt.want, tt.ok)
		}
	}
}

func TestAdd(t *testing.T) {
	tests := []struct {
		r1, r2 Range
		want   Range
	}{
		{Range{Const(1), Const(2)}, Range{Const(10), Const(20)}, Range{Const(11), Const(22)}},
		{Range{Const(0), Sym(1, -1)}, single(Const(1)), Range{Const(1), Sym(1, 0)}},
		{Range{Dependent, Sym(1, -1)}, single(Const(1)), Range{Dependent, Sym(1, 0)}},
		{Range{Unknown, Dependent}, single(Const(1)), Range{Unknown, Dependent}},
		{Range{Sym(1, 0), Sym(1, 0)}, Range{Sym(1, 0), Sym(1, 0)}, Range{Unknown, Unknown}},
		{single(Const(math.MaxInt32)), single(Const(1)), Range{Unknown, Unknown}},
	}
	for _, tt := range tests {
		if got := Add(tt.r1, tt.r2); !got.Equals(tt.want) {
			t.Errorf("Add(%s, %s) = %s, want %s", tt.r1, tt.r2, got, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		r1, r2    Range
		monotonic bool
		want      Range
	}{
		{single(Const(2)), single(Const(5)), false, Range{Const(2), Const(5)}},
		{Range{Undefined, Undefined}, single(Const(5)), false, single(Const(5))},
		{single(Const(0)), Range{Dependent, Sym(1, 0)}, false, Range{Dependent, Sym(1, 0)}},
		{single(Const(0)), Range{Dependent, Sym(1, 0)}, true, Range{Const(0), Sym(1, 0)}},
		{single(Const(0)), Range{Dependent, Dependent}, true, Range{Const(0), Dependent}},
		{Range{Sym(1, -2), Sym(1, -2)}, Range{Sym(1, -4), Sym(1, -1)}, false, Range{Sym(1, -4), Sym(1, -1)}},
		{Range{Sym(1, 0), Sym(1, 0)}, Range{Sym(2, 0), Sym(2, 0)}, false, Range{Unknown, Unknown}},
		// Constant upper bounds widen to a length that is at least as large.
		{single(Const(3)), single(Sym(1, 3)), false, Range{Unknown, Sym(1, 3)}},
		{single(Const(3)), single(Sym(1, 2)), false, Range{Unknown, Unknown}},
		{single(Const(-1)), single(Sym(1, 0)), false, Range{Unknown, Unknown}},
		{Range{Unknown, Const(1)}, single(Const(1)), true, Range{Unknown, Const(1)}},
	}
	for _, tt := range tests {
		if got := Merge(tt.r1, tt.r2, tt.monotonic); !got.Equals(tt.want) {
			t.Errorf("Merge(%s, %s, %t) = %s, want %s", tt.r1, tt.r2, tt.monotonic, got, tt.want)
		}
	}
}

func limitFrom(kind uint8, sym uint8, c int32) Limit {
	switch kind % 5 {
	case 0:
		return Undefined
	case 1:
		return Unknown
	case 2:
		return Dependent
	case 3:
		return Const(c)
	default:
		return Sym(ir.ValueNum(sym%3), c)
	}
}

func FuzzMerge(f *testing.F) {
	f.Add(uint8(3), uint8(0), int32(0), uint8(4), uint8(0), int32(0), false)
	f.Add(uint8(2), uint8(0), int32(0), uint8(3), uint8(0), int32(7), true)
	f.Add(uint8(0), uint8(1), int32(-5), uint8(4), uint8(1), int32(5), false)
	f.Fuzz(func(t *testing.T, k1, s1 uint8, c1 int32, k2, s2 uint8, c2 int32, monotonic bool) {
		l1 := limitFrom(k1, s1, c1)
		l2 := limitFrom(k2, s2, c2)
		r1 := Range{l1, l2}
		r2 := Range{l2, l1}
		for _, pair := range [][2]Range{{r1, r2}, {r1, single(l2)}, {single(l1), r2}} {
			a, b := pair[0], pair[1]
			if x, y := Merge(a, b, monotonic), Merge(b, a, monotonic); !x.Equals(y) {
				t.Errorf("Merge not commutative: Merge(%s, %s) = %s, Merge(%s, %s) = %s", a, b, x, b, a, y)
			}
			if got := Merge(unknownRange, a, monotonic); !got.Equals(unknownRange) {
				t.Errorf("Merge(Unknown, %s) = %s", a, got)
			}
			if got := Merge(Range{Undefined, Undefined}, a, monotonic); !got.Equals(a) {
				t.Errorf("Merge(Undefined, %s) = %s", a, got)
			}
		}
	})
}

func TestMergeUnknownAbsorbs(t *testing.T) {
	for _, l := range []Limit{Unknown, Dependent, Const(0), Const(-7), Sym(1, 0), Sym(2, -1)} {
		r := single(l)
		for _, monotonic := range []bool{false, true} {
			if got := Merge(unknownRange, r, monotonic); !got.Equals(unknownRange) {
				t.Errorf("Merge(Unknown, %s, %t) = %s", r, monotonic, got)
			}
			if got := Merge(r, unknownRange, monotonic); !got.Equals(unknownRange) {
				t.Errorf("Merge(%s, Unknown, %t) = %s", r, monotonic, got)
			}
		}
	}
}
