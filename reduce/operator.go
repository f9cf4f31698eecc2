// Package reduce implements the reduction family: every member contributes
// a local vector, every member ends up with the elementwise combination of
// every contribution under a caller-chosen, commutative-associative
// operator.
package reduce

import "github.com/BTMichalowicz/go-shcoll/typeset"

// Op combines two elements of T into one; every algorithm in this package
// assumes Op is commutative and associative, since the reduction order it
// imposes depends on network topology, not argument position.
type Op[T typeset.Numeric] func(a, b T) T

// Sum returns the addition operator.
func Sum[T typeset.Numeric]() Op[T] { return func(a, b T) T { return a + b } }

// Prod returns the multiplication operator.
func Prod[T typeset.Numeric]() Op[T] { return func(a, b T) T { return a * b } }

// Min returns the minimum operator, defined over integral and floating
// point types only.
func Min[T typeset.Ordered]() Op[T] {
	return func(a, b T) T {
		if a < b {
			return a
		}
		return b
	}
}

// Max returns the maximum operator, defined over integral and floating
// point types only.
func Max[T typeset.Ordered]() Op[T] {
	return func(a, b T) T {
		if a > b {
			return a
		}
		return b
	}
}

// And returns the bitwise AND operator, defined over integral types only.
func And[T typeset.Integer]() Op[T] { return func(a, b T) T { return a & b } }

// Or returns the bitwise OR operator, defined over integral types only.
func Or[T typeset.Integer]() Op[T] { return func(a, b T) T { return a | b } }

// Xor returns the bitwise XOR operator, defined over integral types only.
func Xor[T typeset.Integer]() Op[T] { return func(a, b T) T { return a ^ b } }

func apply[T typeset.Numeric](op Op[T], acc, other []T) {
	for i := range acc {
		acc[i] = op(acc[i], other[i])
	}
}
