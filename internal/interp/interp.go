package interp

import (
	"errors"
	"fmt"
	"sort"
)

// Table construction and lookup errors.
var (
	ErrTooShort     = errors.New("interp: need at least two points")
	ErrNotMonotonic = errors.New("interp: axis must be strictly monotonic")
	ErrOutOfRange   = errors.New("interp: point outside tabulated range")
	ErrLength       = errors.New("interp: axis and values differ in length")
)

// Table is a tabulated curve y(x). The axis is stored ascending.
type Table struct {
	xs []float64
	ys []float64
}

// NewTable validates and copies the samples. A descending axis is reversed.
func NewTable(xs, ys []float64) (*Table, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLength, len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, ErrTooShort
	}

	x := append([]float64(nil), xs...)
	y := append([]float64(nil), ys...)
	if x[0] > x[len(x)-1] {
		for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
			x[i], x[j] = x[j], x[i]
			y[i], y[j] = y[j], y[i]
		}
	}
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return nil, fmt.Errorf("%w: index %d", ErrNotMonotonic, i)
		}
	}

	return &Table{xs: x, ys: y}, nil
}

// Bounds returns the tabulated axis range.
func (t *Table) Bounds() (lo, hi float64) {
	return t.xs[0], t.xs[len(t.xs)-1]
}

// At linearly interpolates the curve at x.
func (t *Table) At(x float64) (float64, error) {
	lo, hi := t.Bounds()
	if x < lo || x > hi {
		return 0, fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, x, lo, hi)
	}

	i := sort.SearchFloat64s(t.xs, x)
	if i < len(t.xs) && t.xs[i] == x {
		return t.ys[i], nil
	}

	x0, x1 := t.xs[i-1], t.xs[i]
	frac := (x - x0) / (x1 - x0)

	return Linear2(frac, t.ys[i-1], t.ys[i]), nil
}

// Resample evaluates the curve at every target.
func (t *Table) Resample(targets []float64) ([]float64, error) {
	out := make([]float64, len(targets))
	for i, x := range targets {
		v, err := t.At(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

// Linear2 interpolates between x0 and x1 at frac in [0,1].
func Linear2(frac, x0, x1 float64) float64 {
	return x0 + frac*(x1-x0)
}
