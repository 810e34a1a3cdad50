package stats

import (
	"math"
	"testing"
)

func TestCalculate(t *testing.T) {
	s := Calculate([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.N != 8 || s.Mean != 5 {
		t.Fatalf("N=%d Mean=%v", s.N, s.Mean)
	}
	if math.Abs(s.Variance-32.0/7) > 1e-12 {
		t.Fatalf("Variance = %v, want %v", s.Variance, 32.0/7)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Fatalf("Min/Max = %v/%v", s.Min, s.Max)
	}
}

func TestCalculateEmpty(t *testing.T) {
	if s := Calculate(nil); s.N != 0 || s.RMS != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS([]float64{3, -3, 3, -3}); got != 3 {
		t.Fatalf("RMS = %v, want 3", got)
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{5, 1, 3}); got != 3 {
		t.Fatalf("odd median = %v", got)
	}
	in := []float64{4, 1, 3, 2}
	if got := Median(in); got != 2.5 {
		t.Fatalf("even median = %v", got)
	}
	if in[0] != 4 {
		t.Fatal("Median must not reorder its input")
	}
	if !math.IsNaN(Median(nil)) {
		t.Fatal("median of empty input should be NaN")
	}
}
