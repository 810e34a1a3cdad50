package calib

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-spectra/internal/conv"
	"github.com/cwbudde/algo-spectra/internal/profile"
	"github.com/cwbudde/algo-spectra/spectrum"
)

// ResolutionKernel builds the Gaussian kernel that degrades data of
// sourceFWHM to targetFWHM (both nm). Within the FWHM tolerance the
// returned artifact is an identity (KernelFWHM 0). A target finer than the
// source is a *ResolutionDirectionError.
func (e *Engine) ResolutionKernel(sourceFWHM, targetFWHM float64) (*Artifact, error) {
	for _, w := range []float64{sourceFWHM, targetFWHM} {
		if !(w > 0) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: fwhm %v", ErrInvalidInput, w)
		}
	}

	tol := e.cfg.fwhmTolerance
	if targetFWHM < sourceFWHM*(1-tol) {
		return nil, &ResolutionDirectionError{SourceFWHM: sourceFWHM, TargetFWHM: targetFWHM, Tolerance: tol}
	}

	art, err := e.newArtifact(KindLSFKernel)
	if err != nil {
		return nil, err
	}
	art.Kernel = &Kernel{
		Shape:      Gaussian.String(),
		SourceFWHM: sourceFWHM,
		TargetFWHM: targetFWHM,
	}
	if targetFWHM > sourceFWHM*(1+tol) {
		art.Kernel.KernelFWHM = math.Sqrt(targetFWHM*targetFWHM - sourceFWHM*sourceFWHM)
	}

	return art, nil
}

// MatchResolution degrades series from sourceFWHM to targetFWHM.
func (e *Engine) MatchResolution(series spectrum.Series, sourceFWHM, targetFWHM float64) (Result, error) {
	art, err := e.ResolutionKernel(sourceFWHM, targetFWHM)
	if err != nil {
		return Result{}, err
	}
	return Convolve(series, art)
}

// Convolve applies an lsf_kernel artifact's broadening kernel. The kernel
// is sampled on the series' axis step, normalized to unit sum and applied
// with edge replication; variances are convolved with the squared kernel.
func Convolve(series spectrum.Series, art *Artifact) (Result, error) {
	if err := art.check(KindLSFKernel); err != nil {
		return Result{}, err
	}
	if art.Kernel.KernelFWHM == 0 {
		return newResult(series.Clone()), nil
	}

	step, err := uniformStep(series.Axis)
	if err != nil {
		return Result{}, err
	}
	shape, err := profile.ParseShape(art.Kernel.Shape)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	var opts []profile.Option
	if shape == profile.Voigt {
		opts = append(opts, profile.WithEta(art.Kernel.Eta))
	}
	kernel, err := profile.Kernel(shape, art.Kernel.KernelFWHM, math.Abs(step), opts...)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	out := series.Clone()
	out.Values, err = conv.Same(series.Values, kernel)
	if err != nil {
		return Result{}, err
	}

	if series.Sigma != nil {
		variance := make([]float64, len(series.Sigma))
		for i, s := range series.Sigma {
			variance[i] = s * s
		}
		variance, err = conv.Same(variance, conv.Squared(kernel))
		if err != nil {
			return Result{}, err
		}
		for i, v := range variance {
			// FFT rounding can leave tiny negative variances.
			out.Sigma[i] = math.Sqrt(math.Max(v, 0))
		}
	}

	return newResult(out), nil
}

// uniformStep returns the mean axis step, failing when any step deviates
// from it by more than 2 %.
func uniformStep(axis []float64) (float64, error) {
	n := len(axis)
	if n < 2 {
		return 0, fmt.Errorf("%w: %d samples", ErrNonUniformAxis, n)
	}

	mean := (axis[n-1] - axis[0]) / float64(n-1)
	if mean == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, fmt.Errorf("%w: mean step %v", ErrNonUniformAxis, mean)
	}
	for i := 1; i < n; i++ {
		d := axis[i] - axis[i-1]
		if math.Abs(d-mean) > uniformityTolerance*math.Abs(mean) {
			return 0, fmt.Errorf("%w: step %d is %v, mean %v", ErrNonUniformAxis, i, d, mean)
		}
	}

	return mean, nil
}
