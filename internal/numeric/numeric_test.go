package numeric

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "inside", value: 0.5, min: 0, max: 1, expected: 0.5},
		{name: "below", value: -1, min: 0, max: 1, expected: 0},
		{name: "above", value: 2, min: 0, max: 1, expected: 1},
		{name: "swapped", value: 2, min: 1, max: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNearlyEqual(t *testing.T) {
	tests := []struct {
		a, b float64
		eps  float64
		want bool
	}{
		{1.0, 1.0 + 1e-13, 1e-12, true},
		{1.0, 1.1, 1e-3, false},
		{1e12, 1e12 * (1 + 1e-10), 1e-9, true},
		{0, 1e-10, 1e-9, true},
		{math.Inf(1), math.Inf(1), 1e-9, true},
		{math.Inf(1), 1e300, 1e-9, false},
		{math.NaN(), math.NaN(), 1e-9, false},
	}

	for _, tt := range tests {
		if got := NearlyEqual(tt.a, tt.b, tt.eps); got != tt.want {
			t.Fatalf("NearlyEqual(%v, %v, %v) = %v, want %v", tt.a, tt.b, tt.eps, got, tt.want)
		}
	}
}

func TestSliceNearlyEqual(t *testing.T) {
	if idx := SliceNearlyEqual([]float64{1, 2, 3}, []float64{1, 2, 3}, 1e-9); idx != -1 {
		t.Fatalf("identical slices: got index %d", idx)
	}
	if idx := SliceNearlyEqual([]float64{1, 2, 3}, []float64{1, 2.5, 3}, 1e-9); idx != 1 {
		t.Fatalf("got index %d, want 1", idx)
	}
	if idx := SliceNearlyEqual([]float64{1, 2}, []float64{1}, 1e-9); idx != 1 {
		t.Fatalf("length mismatch: got index %d, want 1", idx)
	}
}

func TestFirstNonFinite(t *testing.T) {
	if idx := FirstNonFinite([]float64{0, 1, math.Inf(-1)}); idx != 2 {
		t.Fatalf("got %d, want 2", idx)
	}
	if idx := FirstNaN([]float64{0, math.Inf(1), math.NaN()}); idx != 2 {
		t.Fatalf("got %d, want 2", idx)
	}
	if idx := FirstNonFinite([]float64{0, 1}); idx != -1 {
		t.Fatalf("got %d, want -1", idx)
	}
}

func TestClonePreservesNil(t *testing.T) {
	if Clone(nil) != nil {
		t.Fatal("Clone(nil) should be nil")
	}
	src := []float64{1, 2}
	dst := Clone(src)
	dst[0] = 9
	if src[0] != 1 {
		t.Fatal("Clone must not alias its input")
	}
}
