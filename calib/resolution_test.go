package calib

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-spectra/internal/profile"
	"github.com/cwbudde/algo-spectra/internal/testutil"
	"github.com/cwbudde/algo-spectra/spectrum"
)

func lineSeries(fwhm float64, sigma []float64) spectrum.Series {
	axis := testutil.Grid(480, 0.01, 4001)
	return spectrum.Series{
		Axis:   axis,
		Values: testutil.GaussianLine(axis, 500, fwhm, 1, 0),
		Sigma:  sigma,
	}
}

func TestMatchResolutionBroadens(t *testing.T) {
	res, err := mustEngine(t).MatchResolution(lineSeries(1.0, nil), 1.0, 2.0)
	if err != nil {
		t.Fatalf("MatchResolution: %v", err)
	}

	got := testutil.MeasureFWHM(res.Series.Axis, res.Series.Values, 0)
	if math.Abs(got-2.0)/2.0 > 0.02 {
		t.Fatalf("output fwhm = %v, want 2.0 within 2%%", got)
	}
	if res.Uncertainty != UncertaintyAbsent || res.Series.Sigma != nil {
		t.Fatal("absent uncertainty must stay absent")
	}
}

func TestMatchResolutionDirection(t *testing.T) {
	_, err := mustEngine(t).MatchResolution(lineSeries(2.0, nil), 2.0, 1.0)
	if !errors.Is(err, ErrResolutionDirection) {
		t.Fatalf("expected ErrResolutionDirection, got %v", err)
	}
	var re *ResolutionDirectionError
	if !errors.As(err, &re) || re.SourceFWHM != 2.0 || re.TargetFWHM != 1.0 {
		t.Fatalf("unexpected detail: %#v", err)
	}
}

func TestMatchResolutionWithinTolerance(t *testing.T) {
	in := lineSeries(1.0, nil)

	for _, target := range []float64{0.995, 1.0, 1.005} {
		res, err := mustEngine(t).MatchResolution(in, 1.0, target)
		if err != nil {
			t.Fatalf("target %v: %v", target, err)
		}
		testutil.RequireSliceNearlyEqual(t, res.Series.Values, in.Values, 0)
	}

	// A tighter tolerance turns the same request into a convolution.
	res, err := mustEngine(t, WithFWHMTolerance(0.001)).MatchResolution(in, 1.0, 1.005)
	if err != nil {
		t.Fatal(err)
	}
	if res.Series.Values[2000] >= in.Values[2000] {
		t.Fatal("expected the peak to broaden")
	}
}

func TestConvolvePreservesFlux(t *testing.T) {
	in := spectrum.Series{
		Axis:   testutil.Grid(400, 0.1, 500),
		Values: testutil.DC(5, 500),
		Sigma:  testutil.DC(0.2, 500),
	}

	e := mustEngine(t)
	art, err := e.ResolutionKernel(0.5, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Convolve(in, art)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, res.Series.Values, in.Values, 1e-9)

	kernel, err := profile.Kernel(profile.Gaussian, art.Kernel.KernelFWHM, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	var sum, sum2 float64
	for _, k := range kernel {
		sum += k
		sum2 += k * k
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("kernel sum = %v", sum)
	}
	want := 0.2 * math.Sqrt(sum2)
	if math.Abs(res.Series.Sigma[250]-want) > 1e-9 {
		t.Fatalf("sigma = %v, want %v", res.Series.Sigma[250], want)
	}
	if res.Uncertainty != UncertaintyPropagated {
		t.Fatal("expected propagated uncertainty")
	}
}

func TestResolutionKernelWidth(t *testing.T) {
	art, err := mustEngine(t).ResolutionKernel(3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if art.Kernel.KernelFWHM != 4 {
		t.Fatalf("kernel fwhm = %v, want 4", art.Kernel.KernelFWHM)
	}

	if _, err := mustEngine(t).ResolutionKernel(0, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestConvolveNonUniformAxis(t *testing.T) {
	in := spectrum.Series{
		Axis:   []float64{1, 2, 3, 4.5, 5.5},
		Values: []float64{0, 1, 2, 1, 0},
	}
	_, err := mustEngine(t).MatchResolution(in, 1, 2)
	if !errors.Is(err, ErrNonUniformAxis) {
		t.Fatalf("expected ErrNonUniformAxis, got %v", err)
	}
}
