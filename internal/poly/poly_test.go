package poly

import (
	"errors"
	"math"
	"testing"
)

func TestEval(t *testing.T) {
	// 1 + 2x + 3x^2 at x=2 -> 17
	if got := Eval([]float64{1, 2, 3}, 2); got != 17 {
		t.Fatalf("Eval = %v, want 17", got)
	}
	if got := Eval(nil, 3); got != 0 {
		t.Fatalf("Eval(nil) = %v, want 0", got)
	}
}

func TestFitRecoversCubic(t *testing.T) {
	truth := []float64{350, 0.21, -3e-6, 4e-10}
	var x, y []float64
	for px := 0.0; px <= 2048; px += 128 {
		x = append(x, px)
		y = append(y, Eval(truth, px))
	}

	p, err := Fit(x, y, 3)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got := p.PowerBasis()
	for i := range truth {
		if math.Abs(got[i]-truth[i]) > 1e-9*math.Max(1, math.Abs(truth[i]))+1e-15 {
			t.Fatalf("coefficient %d = %v, want %v", i, got[i], truth[i])
		}
	}
	for i := range x {
		if math.Abs(p.Eval(x[i])-y[i]) > 1e-9 {
			t.Fatalf("residual at %v: %v", x[i], p.Eval(x[i])-y[i])
		}
	}
}

func TestFitUnderdetermined(t *testing.T) {
	if _, err := Fit([]float64{1, 2}, []float64{1, 2}, 2); !errors.Is(err, ErrDegeneratePolynomial) {
		t.Fatalf("expected ErrDegeneratePolynomial, got %v", err)
	}
}

func TestFitRepeatedAbscissa(t *testing.T) {
	if _, err := Fit([]float64{1, 1, 1}, []float64{1, 2, 3}, 1); !errors.Is(err, ErrDegeneratePolynomial) {
		t.Fatalf("expected ErrDegeneratePolynomial, got %v", err)
	}
}

func TestDerivative(t *testing.T) {
	got := Derivative([]float64{5, 3, 2})
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("Derivative = %v, want [3 4]", got)
	}
}

func TestBinomial(t *testing.T) {
	if binomial(5, 2) != 10 || binomial(4, 0) != 1 || binomial(3, 4) != 0 {
		t.Fatal("binomial coefficients wrong")
	}
}
