// Package checked implements integer arithmetic that reports overflow.
package checked

import "golang.org/x/exp/constraints"

// Add returns a + b and whether the addition overflowed.
func Add[T constraints.Signed](a, b T) (T, bool) {
	r := a + b
	of := (r > a) != (b > 0)
	return r, of
}
