// Package scalar defines the numeric type parameter shared by the
// distributed vector and its collaborators, and the handful of
// generic kernels that need different implementations per
// instantiation (the Go-generics replacement for TACS's
// TACS_USE_COMPLEX build switch).
package scalar

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// Type is the set of scalar types a BlockVector may be instantiated
// over: real (float64) or complex (complex128) degrees of freedom.
type Type interface {
	~float64 | ~complex128
}

// Sqrt computes the principal square root of v, dispatching to
// math.Sqrt or cmplx.Sqrt depending on the instantiated type.
func Sqrt[T Type](v T) T {
	switch x := any(v).(type) {
	case float64:
		return any(math.Sqrt(x)).(T)
	case complex128:
		return any(cmplx.Sqrt(x)).(T)
	default:
		panic("scalar: unsupported type")
	}
}

// SumSquares returns sum_i x[i]*x[i], non-conjugated. On the float64
// instantiation it is computed by gonum/floats (the ecosystem stand-in
// for a vendor BLAS nrm2-squared call); on complex128 it falls back to
// the 4-wide unrolled accumulation the spec mandates for the complex
// build.
func SumSquares[T Type](x []T) T {
	if fx, ok := any(x).([]float64); ok {
		return any(floats.Dot(fx, fx)).(T)
	}
	return unrolledDot(x, x)
}

// Dot returns sum_i x[i]*y[i], non-conjugated.
func Dot[T Type](x, y []T) T {
	if len(x) != len(y) {
		panic("scalar: Dot length mismatch")
	}
	if fx, ok := any(x).([]float64); ok {
		fy := any(y).([]float64)
		return any(floats.Dot(fx, fy)).(T)
	}
	return unrolledDot(x, y)
}

// unrolledDot implements the 4-wide unrolled accumulation loop the
// spec describes for the complex build, generalized to any Type so it
// also serves as the fallback for scalar types gonum has no kernel for.
func unrolledDot[T Type](x, y []T) T {
	var res T
	n := len(x)
	rem := n % 4
	i := 0
	for ; i < rem; i++ {
		res += x[i] * y[i]
	}
	for ; i < n; i += 4 {
		res += x[i]*y[i] + x[i+1]*y[i+1] + x[i+2]*y[i+2] + x[i+3]*y[i+3]
	}
	return res
}

// Scale computes x[i] *= alpha in place.
func Scale[T Type](alpha T, x []T) {
	if fx, ok := any(x).([]float64); ok {
		floats.Scale(any(alpha).(float64), fx)
		return
	}
	for i := range x {
		x[i] *= alpha
	}
}

// Axpy computes y[i] += alpha*x[i] in place.
func Axpy[T Type](alpha T, x, y []T) {
	if len(x) != len(y) {
		panic("scalar: Axpy length mismatch")
	}
	if fx, ok := any(x).([]float64); ok {
		fy := any(y).([]float64)
		floats.AddScaled(fy, any(alpha).(float64), fx)
		return
	}
	for i := range x {
		y[i] += alpha * x[i]
	}
}

// Axpby computes y[i] = alpha*x[i] + beta*y[i] in place.
func Axpby[T Type](alpha, beta T, x, y []T) {
	if len(x) != len(y) {
		panic("scalar: Axpby length mismatch")
	}
	n := len(x)
	rem := n % 4
	i := 0
	for ; i < rem; i++ {
		y[i] = beta*y[i] + alpha*x[i]
	}
	for ; i < n; i += 4 {
		y[i] = beta*y[i] + alpha*x[i]
		y[i+1] = beta*y[i+1] + alpha*x[i+1]
		y[i+2] = beta*y[i+2] + alpha*x[i+2]
		y[i+3] = beta*y[i+3] + alpha*x[i+3]
	}
}

// Zero fills x with the zero value of T.
func Zero[T Type](x []T) {
	var z T
	for i := range x {
		x[i] = z
	}
}

// ToFloat64Pair decomposes a scalar into its real/imaginary lanes for
// wire transfer (point-to-point messages and file I/O move raw
// float64, never a native complex128 encoding).
func ToFloat64Pair[T Type](v T) (re, im float64) {
	switch x := any(v).(type) {
	case float64:
		return x, 0
	case complex128:
		return real(x), imag(x)
	default:
		panic("scalar: unsupported type")
	}
}

// FromFloat64Pair is the inverse of ToFloat64Pair.
func FromFloat64Pair[T Type](re, im float64) T {
	var zero T
	switch any(zero).(type) {
	case float64:
		return any(re).(T)
	case complex128:
		return any(complex(re, im)).(T)
	default:
		panic("scalar: unsupported type")
	}
}

// LanesPerValue reports how many float64 lanes ToFloat64Pair/
// FromFloat64Pair use for T (1 for real, 2 for complex).
func LanesPerValue[T Type]() int {
	var zero T
	switch any(zero).(type) {
	case float64:
		return 1
	case complex128:
		return 2
	default:
		panic("scalar: unsupported type")
	}
}
