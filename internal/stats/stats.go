// Package stats computes the summary statistics used to judge fits:
// means, RMS, standard deviation and medians.
package stats

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-vecmath"
)

// Summary holds single-pass statistics of a sample.
type Summary struct {
	N        int
	Mean     float64
	RMS      float64
	Variance float64 // sample variance (n-1 denominator)
	StdDev   float64
	Min      float64
	Max      float64
}

// Calculate computes a Summary using Welford's online algorithm.
func Calculate(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	var mean, m2 float64
	minVal, maxVal := values[0], values[0]
	for i, x := range values {
		ni := float64(i + 1)
		delta := x - mean
		mean += delta / ni
		m2 += delta * (x - mean)

		if x < minVal {
			minVal = x
		}
		if x > maxVal {
			maxVal = x
		}
	}

	s := Summary{
		N:    n,
		Mean: mean,
		RMS:  RMS(values),
		Min:  minVal,
		Max:  maxVal,
	}
	if n > 1 {
		s.Variance = m2 / float64(n-1)
		s.StdDev = math.Sqrt(s.Variance)
	}

	return s
}

// RMS returns the root mean square of values.
func RMS(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return math.Sqrt(vecmath.DotProduct(values, values) / float64(len(values)))
}

// Median returns the median of values without modifying them.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}
