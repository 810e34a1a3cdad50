package calib

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-spectra/spectrum"
)

// UncertaintyStatus tells whether a result carries propagated uncertainty.
type UncertaintyStatus int

// Uncertainty states.
const (
	UncertaintyAbsent UncertaintyStatus = iota
	UncertaintyPropagated
)

func (s UncertaintyStatus) String() string {
	if s == UncertaintyPropagated {
		return "propagated"
	}
	return "absent"
}

// Result is the outcome of applying a calibration step.
type Result struct {
	Series      spectrum.Series
	Uncertainty UncertaintyStatus

	// Extrapolated lists samples whose calibrated wavelength lies outside
	// the artifact's Validity.
	Extrapolated []int
}

func newResult(s spectrum.Series) Result {
	r := Result{Series: s}
	if s.Sigma != nil {
		r.Uncertainty = UncertaintyPropagated
	}
	return r
}

// SubtractBackground subtracts a constant background with standard
// deviation sigma: σ_out² = σ_in² + σ².
func SubtractBackground(series spectrum.Series, value, sigma float64) (Result, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{}, fmt.Errorf("%w: background %v", ErrInvalidInput, value)
	}
	if sigma < 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return Result{}, fmt.Errorf("%w: background sigma %v", ErrInvalidInput, sigma)
	}

	out := series.Clone()
	for i := range out.Values {
		out.Values[i] -= value
	}
	for i, s := range out.Sigma {
		out.Sigma[i] = math.Hypot(s, sigma)
	}

	return newResult(out), nil
}

// Normalize multiplies by an exact constant. Relative uncertainty is
// unchanged.
func Normalize(series spectrum.Series, scale float64) (Result, error) {
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Result{}, fmt.Errorf("%w: normalization scale %v", ErrInvalidInput, scale)
	}

	out := series.Clone()
	vecmath.ScaleBlockInPlace(out.Values, scale)
	if out.Sigma != nil {
		vecmath.ScaleBlockInPlace(out.Sigma, math.Abs(scale))
	}

	return newResult(out), nil
}
