package spectrum

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-spectra/internal/numeric"
)

var (
	// ErrEmpty is returned for a series without samples.
	ErrEmpty = errors.New("spectrum: empty series")
	// ErrLengthMismatch is returned when axis, values and sigma differ in
	// length.
	ErrLengthMismatch = errors.New("spectrum: length mismatch")
	// ErrInvalidValue reports a NaN axis sample, a non-finite intensity or
	// a standard deviation that is negative or not finite.
	ErrInvalidValue = errors.New("spectrum: invalid sample value")
	// ErrUnknownBasis is returned for an intensity basis other than
	// absorbance or counts.
	ErrUnknownBasis = errors.New("spectrum: unknown intensity basis")
	// ErrMissingSum is returned when a spectrum is built without the
	// checksum of its canonical payload.
	ErrMissingSum = errors.New("spectrum: missing checksum")
)

// Series is a mutable working copy of spectral samples.
// Sigma is nil when uncertainty is absent.
type Series struct {
	Axis   []float64
	Values []float64
	Sigma  []float64
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Axis) }

// HasSigma reports whether per-sample uncertainty is present.
func (s Series) HasSigma() bool { return s.Sigma != nil }

// Clone returns a deep copy.
func (s Series) Clone() Series {
	return Series{
		Axis:   numeric.Clone(s.Axis),
		Values: numeric.Clone(s.Values),
		Sigma:  numeric.Clone(s.Sigma),
	}
}

// Validate checks lengths and sample values. The axis may hold the +Inf
// wavenumber sentinel but never NaN; intensities must be finite and
// sigmas finite and non-negative.
func (s Series) Validate() error {
	n := len(s.Axis)
	if n == 0 {
		return ErrEmpty
	}
	if len(s.Values) != n {
		return fmt.Errorf("%w: axis %d, intensity %d", ErrLengthMismatch, n, len(s.Values))
	}
	if s.Sigma != nil && len(s.Sigma) != n {
		return fmt.Errorf("%w: axis %d, uncertainty %d", ErrLengthMismatch, n, len(s.Sigma))
	}
	if i := numeric.FirstNaN(s.Axis); i >= 0 {
		return fmt.Errorf("%w: axis[%d] is NaN", ErrInvalidValue, i)
	}
	if i := numeric.FirstNonFinite(s.Values); i >= 0 {
		return fmt.Errorf("%w: intensity[%d] = %v", ErrInvalidValue, i, s.Values[i])
	}
	for i, v := range s.Sigma {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: uncertainty[%d] = %v", ErrInvalidValue, i, v)
		}
	}

	return nil
}
