// Package typeset gives the collectives engine's algorithms a single,
// generic description for every element type in the reduction/data-movement
// matrix, in place of per-type textual macro expansion. The public entry
// points are generic functions constrained by this type set; no per-type
// wrappers are generated.
package typeset

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/exp/constraints"
)

// Numeric is every element type the reduction/data-movement matrix supports:
// the integral types (for AND/OR/XOR/MIN/MAX/SUM/PROD), the floating point
// types (MIN/MAX/SUM/PROD), and complex64/128 (SUM/PROD only).
type Numeric interface {
	constraints.Signed | constraints.Unsigned | constraints.Float | ~complex64 | ~complex128
}

// Integer is the subset of Numeric that AND/OR/XOR are defined over.
type Integer interface {
	constraints.Signed | constraints.Unsigned
}

// Ordered is the subset of Numeric that MIN/MAX are defined over: integral
// and floating point, but not complex.
type Ordered interface {
	constraints.Signed | constraints.Unsigned | constraints.Float
}

// Size returns the wire size, in bytes, of one element of T.
func Size[T Numeric]() int {
	var zero T
	return binary.Size(zero)
}

// Encode serializes v to bytes, little-endian, for a Substrate Put/PutNB.
func Encode[T Numeric](v []T) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, Size[T]()*len(v)))
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(`typeset: encode: ` + err.Error())
	}
	return buf.Bytes()
}

// Decode deserializes n elements of T from b, little-endian, for the result
// of a Substrate Get/GetNB.
func Decode[T Numeric](b []byte, n int) []T {
	out := make([]T, n)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, out); err != nil {
		panic(`typeset: decode: ` + err.Error())
	}
	return out
}
