package testutil

import (
	"math"
	"math/rand"
)

// Grid returns n evenly spaced axis values starting at start.
func Grid(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// GaussianLine evaluates amplitude*exp(-4 ln2 (x-center)^2 / fwhm^2) + baseline
// on axis.
func GaussianLine(axis []float64, center, fwhm, amplitude, baseline float64) []float64 {
	out := make([]float64, len(axis))
	for i, x := range axis {
		d := (x - center) / fwhm
		out[i] = baseline + amplitude*math.Exp(-4*math.Ln2*d*d)
	}
	return out
}

// LorentzianLine evaluates a Lorentzian of the given FWHM on axis.
func LorentzianLine(axis []float64, center, fwhm, amplitude, baseline float64) []float64 {
	out := make([]float64, len(axis))
	for i, x := range axis {
		d := 2 * (x - center) / fwhm
		out[i] = baseline + amplitude/(1+d*d)
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DeterministicGaussian generates normally distributed noise with standard
// deviation sigma and a fixed seed.
func DeterministicGaussian(seed int64, sigma float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// MeasureFWHM returns the full width at half maximum of the single peak in
// values above baseline, interpolating the half-maximum crossings linearly.
// It returns 0 when the peak does not fall to half height on both sides.
func MeasureFWHM(axis, values []float64, baseline float64) float64 {
	peak := 0
	for i := range values {
		if values[i] > values[peak] {
			peak = i
		}
	}
	half := baseline + (values[peak]-baseline)/2

	left := -1.0
	for i := peak; i > 0; i-- {
		if values[i-1] < half {
			f := (half - values[i-1]) / (values[i] - values[i-1])
			left = axis[i-1] + f*(axis[i]-axis[i-1])
			break
		}
	}
	right := -1.0
	for i := peak; i < len(values)-1; i++ {
		if values[i+1] < half {
			f := (values[i] - half) / (values[i] - values[i+1])
			right = axis[i] + f*(axis[i+1]-axis[i])
			break
		}
	}
	if left < 0 || right < 0 {
		return 0
	}
	return right - left
}
