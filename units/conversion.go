package units

import (
	"math"

	"github.com/cwbudde/algo-spectra/internal/numeric"
)

// Conversion is the result of converting one sequence.
type Conversion struct {
	// Values are the converted samples, index-aligned with the input.
	Values []float64
	// Unit is the canonical token of the unit Values are expressed in.
	Unit string
	// Clamped lists indices whose input was clamped before conversion.
	Clamped []int
	// Sentinels lists indices mapped to or from the wavenumber-zero
	// sentinel (+Inf nm).
	Sentinels []int
}

// ClampApplied reports whether any sample was clamped.
func (c Conversion) ClampApplied() bool { return len(c.Clamped) > 0 }

// SentinelApplied reports whether any sample hit the wavenumber sentinel.
func (c Conversion) SentinelApplied() bool { return len(c.Sentinels) > 0 }

func checkNaN(domain Domain, unit string, values []float64) error {
	if idx := numeric.FirstNaN(values); idx >= 0 {
		return nonFinite(domain, unit, idx, values[idx])
	}
	return nil
}

func nonFinite(domain Domain, unit string, idx int, v float64) error {
	return &NonFiniteError{Domain: domain, Unit: unit, Index: idx, Value: v}
}

// positiveZero folds -0 into +0 so equal canonical content always encodes
// to the same bytes.
func positiveZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

func isSentinel(v float64) bool {
	return math.IsInf(v, 1)
}
