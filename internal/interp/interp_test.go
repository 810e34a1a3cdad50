package interp

import (
	"errors"
	"testing"
)

func TestTableAt(t *testing.T) {
	tbl, err := NewTable([]float64{400, 500, 700}, []float64{1, 2, 4})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	tests := []struct {
		x, want float64
	}{
		{400, 1}, {450, 1.5}, {500, 2}, {600, 3}, {700, 4},
	}
	for _, tt := range tests {
		got, err := tbl.At(tt.x)
		if err != nil {
			t.Fatalf("At(%v): %v", tt.x, err)
		}
		if diff := got - tt.want; diff < -1e-12 || diff > 1e-12 {
			t.Fatalf("At(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestTableDescendingAxis(t *testing.T) {
	tbl, err := NewTable([]float64{3, 2, 1}, []float64{30, 20, 10})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	got, err := tbl.Resample([]float64{1.5, 2.5})
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if got[0] != 15 || got[1] != 25 {
		t.Fatalf("Resample = %v, want [15 25]", got)
	}
}

func TestTableErrors(t *testing.T) {
	if _, err := NewTable([]float64{1}, []float64{1}); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
	if _, err := NewTable([]float64{1, 1, 2}, []float64{1, 2, 3}); !errors.Is(err, ErrNotMonotonic) {
		t.Fatalf("expected ErrNotMonotonic, got %v", err)
	}
	if _, err := NewTable([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrLength) {
		t.Fatalf("expected ErrLength, got %v", err)
	}

	tbl, _ := NewTable([]float64{1, 2}, []float64{1, 2})
	if _, err := tbl.At(2.5); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestLinear2(t *testing.T) {
	if got := Linear2(0.25, 2, 4); got != 2.5 {
		t.Fatalf("Linear2 = %v, want 2.5", got)
	}
}
