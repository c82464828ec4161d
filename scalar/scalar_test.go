package scalar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDotFloat64(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{5, 4, 3, 2, 1}
	assert.Equal(t, 35.0, Dot(x, y))
}

func TestDotComplex128UnrolledPath(t *testing.T) {
	x := []complex128{1, 2, 3, 4, 5}
	y := []complex128{1i, 1i, 1i, 1i, 1i}
	assert.Equal(t, complex(0, 15), Dot(x, y))
}

func TestSumSquares(t *testing.T) {
	x := []float64{3, 4}
	assert.Equal(t, 25.0, SumSquares(x))
}

func TestScaleAndAxpy(t *testing.T) {
	x := []float64{1, 2, 3}
	Scale(2.0, x)
	assert.Equal(t, []float64{2, 4, 6}, x)

	y := []float64{1, 1, 1}
	Axpy(3.0, x, y)
	assert.Equal(t, []float64{7, 13, 19}, y)
}

func TestAxpby(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{10, 10, 10, 10, 10}
	Axpby(2.0, 0.5, x, y)
	assert.Equal(t, []float64{7, 9, 11, 13, 15}, y)
}

func TestFloat64PairRoundTrip(t *testing.T) {
	re, im := ToFloat64Pair(complex(1.5, -2.5))
	assert.Equal(t, 1.5, re)
	assert.Equal(t, -2.5, im)
	assert.Equal(t, complex(1.5, -2.5), FromFloat64Pair[complex128](re, im))

	re, im = ToFloat64Pair(float64(3.25))
	assert.Equal(t, 3.25, re)
	assert.Equal(t, 0.0, im)
	assert.Equal(t, 3.25, FromFloat64Pair[float64](re, im))
}

func TestLanesPerValue(t *testing.T) {
	assert.Equal(t, 1, LanesPerValue[float64]())
	assert.Equal(t, 2, LanesPerValue[complex128]())
}
