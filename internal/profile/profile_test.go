package profile

import (
	"math"
	"testing"
)

func TestEvaluateHalfMaximum(t *testing.T) {
	for _, s := range []Shape{Gaussian, Lorentzian, Voigt} {
		t.Run(s.String(), func(t *testing.T) {
			if got := Evaluate(s, 0, 2, 0.3); math.Abs(got-1) > 1e-15 {
				t.Fatalf("peak = %v, want 1", got)
			}
			if got := Evaluate(s, 1, 2, 0.3); math.Abs(got-0.5) > 1e-12 {
				t.Fatalf("value at fwhm/2 = %v, want 0.5", got)
			}
		})
	}
}

func TestKernelNormalised(t *testing.T) {
	for _, s := range []Shape{Gaussian, Lorentzian, Voigt} {
		t.Run(s.String(), func(t *testing.T) {
			k, err := Kernel(s, 0.8, 0.05)
			if err != nil {
				t.Fatalf("Kernel: %v", err)
			}
			if len(k)%2 != 1 {
				t.Fatalf("kernel length %d is even", len(k))
			}
			var sum float64
			for _, v := range k {
				sum += v
			}
			if math.Abs(sum-1) > 1e-12 {
				t.Fatalf("sum = %v, want 1", sum)
			}
			mid := len(k) / 2
			for i := 0; i < mid; i++ {
				if math.Abs(k[i]-k[len(k)-1-i]) > 1e-15 {
					t.Fatalf("kernel not symmetric at %d", i)
				}
			}
		})
	}
}

func TestKernelValidation(t *testing.T) {
	if _, err := Kernel(Gaussian, 0, 0.1); err == nil {
		t.Fatal("expected error for zero fwhm")
	}
	if _, err := Kernel(Gaussian, 1, -1); err == nil {
		t.Fatal("expected error for negative step")
	}
	if _, err := Kernel(Voigt, 1, 0.1, WithEta(1.5)); err == nil {
		t.Fatal("expected error for eta > 1")
	}
	if _, err := Kernel(Lorentzian, 100, 0.001); err == nil {
		t.Fatal("expected error for oversized kernel")
	}
}

func TestParseShape(t *testing.T) {
	tests := map[string]Shape{"Gaussian": Gaussian, "lorentz": Lorentzian, " voigt ": Voigt}
	for in, want := range tests {
		got, err := ParseShape(in)
		if err != nil || got != want {
			t.Fatalf("ParseShape(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseShape("boxcar"); err == nil {
		t.Fatal("expected error for unknown shape")
	}
}

func TestSigmaFromFWHM(t *testing.T) {
	if got := SigmaFromFWHM(2.354820045030949); math.Abs(got-1) > 1e-12 {
		t.Fatalf("SigmaFromFWHM = %v, want 1", got)
	}
}
