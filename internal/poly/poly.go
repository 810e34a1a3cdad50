// Package poly provides polynomial evaluation, least-squares fitting on a
// centred and scaled abscissa, and conversion back to the plain power
// basis.
//
// Coefficients are stored in ascending power order: c[0] + c[1] t + ...
package poly

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-spectra/internal/linalg"
)

// ErrDegeneratePolynomial is returned when a fit cannot be determined or
// produces non-finite coefficients.
var ErrDegeneratePolynomial = errors.New("poly: degenerate polynomial")

// Normalized is a polynomial in t = (x - Center) / Scale.
type Normalized struct {
	Center       float64
	Scale        float64
	Coefficients []float64
}

// Eval evaluates ascending coefficients at x with Horner's scheme.
func Eval(c []float64, x float64) float64 {
	var y float64
	for i := len(c) - 1; i >= 0; i-- {
		y = y*x + c[i]
	}
	return y
}

// Eval evaluates the normalised polynomial at x.
func (p Normalized) Eval(x float64) float64 {
	return Eval(p.Coefficients, (x-p.Center)/p.Scale)
}

// Degree returns the polynomial degree.
func (p Normalized) Degree() int {
	return len(p.Coefficients) - 1
}

// Fit performs an unweighted least-squares fit of the given degree. The
// abscissa is centred on its midrange and scaled to [-1, 1] before solving,
// which keeps the Vandermonde system well conditioned for pixel-sized x.
func Fit(x, y []float64, degree int) (Normalized, error) {
	if len(x) != len(y) {
		return Normalized{}, fmt.Errorf("%w: %d abscissae, %d ordinates", ErrDegeneratePolynomial, len(x), len(y))
	}
	if degree < 0 || len(x) < degree+1 {
		return Normalized{}, fmt.Errorf("%w: %d points for degree %d", ErrDegeneratePolynomial, len(x), degree)
	}

	lo, hi := x[0], x[0]
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	center := (lo + hi) / 2
	scale := (hi - lo) / 2
	if scale == 0 {
		scale = 1
	}

	a := make([][]float64, len(x))
	for i, v := range x {
		t := (v - center) / scale
		row := make([]float64, degree+1)
		p := 1.0
		for j := range row {
			row[j] = p
			p *= t
		}
		a[i] = row
	}

	c, err := linalg.LeastSquares(a, y)
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: %v", ErrDegeneratePolynomial, err)
	}
	for i, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Normalized{}, fmt.Errorf("%w: coefficient %d is %v", ErrDegeneratePolynomial, i, v)
		}
	}

	return Normalized{Center: center, Scale: scale, Coefficients: c}, nil
}

// PowerBasis expands the normalised polynomial into plain ascending
// coefficients of x.
func (p Normalized) PowerBasis() []float64 {
	n := len(p.Coefficients)
	out := make([]float64, n)

	// t^k = ((x - c)/s)^k = s^-k * sum_j binom(k,j) x^j (-c)^(k-j)
	for k, ck := range p.Coefficients {
		sk := math.Pow(p.Scale, -float64(k))
		for j := 0; j <= k; j++ {
			out[j] += ck * sk * binomial(k, j) * math.Pow(-p.Center, float64(k-j))
		}
	}

	return out
}

// Derivative returns the ascending coefficients of dc/dx.
func Derivative(c []float64) []float64 {
	if len(c) <= 1 {
		return []float64{0}
	}
	out := make([]float64, len(c)-1)
	for i := 1; i < len(c); i++ {
		out[i-1] = float64(i) * c[i]
	}
	return out
}

func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}
