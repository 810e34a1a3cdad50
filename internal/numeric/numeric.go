// Package numeric holds the small scalar helpers shared by the unit,
// calibration and provenance packages.
package numeric

import "math"

// DefaultTolerance is the round-trip tolerance used for unit conversions
// and replay comparisons.
const DefaultTolerance = 1e-9

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// NearlyEqual reports whether a and b agree within eps, either as an
// absolute difference or relative to the larger magnitude. Equal
// infinities compare equal.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	if a == b {
		return true
	}

	if math.IsInf(a, 0) || math.IsInf(b, 0) || math.IsNaN(a) || math.IsNaN(b) {
		return false
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))

	return diff/largest <= eps
}

// SliceNearlyEqual applies NearlyEqual element-wise. It returns the first
// offending index, or -1 when the slices agree.
func SliceNearlyEqual(a, b []float64, eps float64) int {
	if len(a) != len(b) {
		return min(len(a), len(b))
	}

	for i := range a {
		if !NearlyEqual(a[i], b[i], eps) {
			return i
		}
	}

	return -1
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// FirstNonFinite returns the index of the first NaN or Inf in values, or -1.
func FirstNonFinite(values []float64) int {
	for i, v := range values {
		if !IsFinite(v) {
			return i
		}
	}

	return -1
}

// FirstNaN returns the index of the first NaN in values, or -1.
func FirstNaN(values []float64) int {
	for i, v := range values {
		if math.IsNaN(v) {
			return i
		}
	}

	return -1
}

// Clone returns a copy of values, preserving nil.
func Clone(values []float64) []float64 {
	if values == nil {
		return nil
	}

	return append([]float64(nil), values...)
}
