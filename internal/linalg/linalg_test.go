package linalg

import (
	"errors"
	"math"
	"testing"
)

func TestLeastSquaresExactLine(t *testing.T) {
	// y = 2 + 3x sampled without noise.
	var a [][]float64
	var b []float64
	for x := 0.0; x < 5; x++ {
		a = append(a, []float64{1, x})
		b = append(b, 2+3*x)
	}

	got, err := LeastSquares(a, b)
	if err != nil {
		t.Fatalf("LeastSquares: %v", err)
	}
	if math.Abs(got[0]-2) > 1e-12 || math.Abs(got[1]-3) > 1e-12 {
		t.Fatalf("got %v, want [2 3]", got)
	}
}

func TestLeastSquaresOverdetermined(t *testing.T) {
	// Mean of the observations is the least-squares constant.
	a := [][]float64{{1}, {1}, {1}, {1}}
	b := []float64{1, 2, 3, 6}
	got, err := LeastSquares(a, b)
	if err != nil {
		t.Fatalf("LeastSquares: %v", err)
	}
	if math.Abs(got[0]-3) > 1e-12 {
		t.Fatalf("got %v, want 3", got[0])
	}
}

func TestLeastSquaresRankDeficient(t *testing.T) {
	a := [][]float64{{1, 2}, {2, 4}, {3, 6}}
	if _, err := LeastSquares(a, []float64{1, 2, 3}); !errors.Is(err, ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
}

func TestLeastSquaresShape(t *testing.T) {
	if _, err := LeastSquares([][]float64{{1, 2}}, []float64{1}); !errors.Is(err, ErrTooFewRow) {
		t.Fatalf("expected ErrTooFewRow, got %v", err)
	}
	if _, err := LeastSquares([][]float64{{1}}, []float64{1, 2}); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestSolve(t *testing.T) {
	a := [][]float64{{0, 2, 1}, {1, 1, 0}, {3, 0, 1}}
	b := []float64{5, 3, 6}
	x, err := Solve(a, b)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	for i := range a {
		var s float64
		for j := range a[i] {
			s += a[i][j] * x[j]
		}
		if math.Abs(s-b[i]) > 1e-12 {
			t.Fatalf("row %d: residual %v", i, s-b[i])
		}
	}
	if a[0][0] != 0 {
		t.Fatal("Solve must not modify its input")
	}
}

func TestSolveSingular(t *testing.T) {
	if _, err := Solve([][]float64{{1, 1}, {1, 1}}, []float64{1, 2}); !errors.Is(err, ErrSingular) {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
}
