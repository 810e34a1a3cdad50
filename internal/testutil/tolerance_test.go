package testutil

import (
	"math"
	"testing"
)

func TestMaxAbsDiff(t *testing.T) {
	a := []float64{1.0, 2.0, 3.0}
	b := []float64{1.0, 2.1, 3.0}

	d, err := MaxAbsDiff(a, b)
	if err != nil {
		t.Fatalf("MaxAbsDiff error: %v", err)
	}

	if math.Abs(d-0.1) > 1e-15 {
		t.Fatalf("MaxAbsDiff = %v, want 0.1", d)
	}
}

func TestMaxAbsDiffLengthMismatch(t *testing.T) {
	_, err := MaxAbsDiff([]float64{1}, []float64{1, 2})
	if err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestRequireSliceRelEqualAcceptsInfinity(t *testing.T) {
	RequireSliceRelEqual(t, []float64{math.Inf(1), 1e12}, []float64{math.Inf(1), 1e12 * (1 + 1e-11)}, 1e-9)
}

func TestRequireFinite(t *testing.T) {
	RequireFinite(t, []float64{0, -1, 1e300})
}
