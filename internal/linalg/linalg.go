// Package linalg solves the small dense systems that arise in polynomial,
// spline and peak-shape fitting.
//
// Matrices are row-major [][]float64. Systems here have at most a few dozen
// unknowns, so clarity wins over blocking or SIMD.
package linalg

import (
	"errors"
	"fmt"
	"math"
)

// Solver errors.
var (
	ErrSingular  = errors.New("linalg: matrix is singular")
	ErrShape     = errors.New("linalg: inconsistent dimensions")
	ErrTooFewRow = errors.New("linalg: fewer rows than columns")
)

// LeastSquares returns x minimising ||A x - b||_2 using Householder QR.
// A must have at least as many rows as columns and full column rank.
func LeastSquares(a [][]float64, b []float64) ([]float64, error) {
	m := len(a)
	if m == 0 || m != len(b) {
		return nil, fmt.Errorf("%w: %d rows, %d rhs", ErrShape, m, len(b))
	}
	n := len(a[0])
	if m < n {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooFewRow, m, n)
	}

	r := make([][]float64, m)
	for i := range a {
		if len(a[i]) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrShape, i, len(a[i]))
		}
		r[i] = append([]float64(nil), a[i]...)
	}
	y := append([]float64(nil), b...)

	scale := 0.0
	for k := 0; k < n; k++ {
		var norm float64
		for i := k; i < m; i++ {
			norm = math.Hypot(norm, r[i][k])
		}
		scale = math.Max(scale, norm)
		if norm == 0 {
			return nil, fmt.Errorf("%w: column %d", ErrSingular, k)
		}
		if r[k][k] > 0 {
			norm = -norm
		}

		// v = x - norm*e1, stored in place below the diagonal.
		v := make([]float64, m-k)
		for i := k; i < m; i++ {
			v[i-k] = r[i][k]
		}
		v[0] -= norm

		var vv float64
		for _, vi := range v {
			vv += vi * vi
		}
		if vv == 0 {
			continue
		}

		for j := k; j < n; j++ {
			var dot float64
			for i := k; i < m; i++ {
				dot += v[i-k] * r[i][j]
			}
			f := 2 * dot / vv
			for i := k; i < m; i++ {
				r[i][j] -= f * v[i-k]
			}
		}

		var dot float64
		for i := k; i < m; i++ {
			dot += v[i-k] * y[i]
		}
		f := 2 * dot / vv
		for i := k; i < m; i++ {
			y[i] -= f * v[i-k]
		}
	}

	x := make([]float64, n)
	for k := n - 1; k >= 0; k-- {
		if math.Abs(r[k][k]) <= 1e-14*scale {
			return nil, fmt.Errorf("%w: rank deficient at column %d", ErrSingular, k)
		}
		s := y[k]
		for j := k + 1; j < n; j++ {
			s -= r[k][j] * x[j]
		}
		x[k] = s / r[k][k]
	}

	return x, nil
}

// Solve solves the square system A x = b by Gaussian elimination with
// partial pivoting. A and b are not modified.
func Solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	if n == 0 || n != len(b) {
		return nil, fmt.Errorf("%w: %d rows, %d rhs", ErrShape, n, len(b))
	}

	m := make([][]float64, n)
	for i := range a {
		if len(a[i]) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrShape, i, len(a[i]))
		}
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if m[pivot][col] == 0 {
			return nil, fmt.Errorf("%w: column %d", ErrSingular, col)
		}
		m[col], m[pivot] = m[pivot], m[col]

		for row := col + 1; row < n; row++ {
			f := m[row][col] / m[col][col]
			if f == 0 {
				continue
			}
			for k := col; k <= n; k++ {
				m[row][k] -= f * m[col][k]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := m[i][n]
		for j := i + 1; j < n; j++ {
			s -= m[i][j] * x[j]
		}
		x[i] = s / m[i][i]
	}

	return x, nil
}
