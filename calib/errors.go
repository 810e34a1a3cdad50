package calib

import (
	"errors"
	"fmt"
)

var (
	// ErrUnderdetermined is the kind of every *UnderdeterminedError.
	ErrUnderdetermined = errors.New("calib: underdetermined fit")
	// ErrDivergence is the kind of every *DivergenceError.
	ErrDivergence = errors.New("calib: fit diverged")
	// ErrResolutionDirection is the kind of every *ResolutionDirectionError.
	ErrResolutionDirection = errors.New("calib: target resolution finer than source")
	// ErrFitRejected is the kind of every *FitRejectedError.
	ErrFitRejected = errors.New("calib: fit rejected by acceptance rule")
	// ErrNonUniformAxis is returned when convolution needs a uniform grid.
	ErrNonUniformAxis = errors.New("calib: axis is not uniformly sampled")
	// ErrInvalidInput reports malformed samples, parameters or artifacts.
	ErrInvalidInput = errors.New("calib: invalid input")
	// ErrArtifactKind is returned when an artifact does not match the
	// operation it is applied with, or has no usable parameters.
	ErrArtifactKind = errors.New("calib: wrong artifact kind")
)

// UnderdeterminedError reports a fit with too few usable points.
type UnderdeterminedError struct {
	Kind     Kind
	Points   int
	Required int
	Degree   int
}

func (e *UnderdeterminedError) Error() string {
	return fmt.Sprintf("calib: %s fit underdetermined: %d usable points, need %d (degree %d)",
		e.Kind, e.Points, e.Required, e.Degree)
}

func (e *UnderdeterminedError) Unwrap() error { return ErrUnderdetermined }

// DivergenceError reports a fit that produced no finite solution.
type DivergenceError struct {
	Kind       Kind
	Iterations int
	Reason     string
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("calib: %s fit diverged after %d iterations: %s", e.Kind, e.Iterations, e.Reason)
}

func (e *DivergenceError) Unwrap() error { return ErrDivergence }

// ResolutionDirectionError reports a request to sharpen data.
type ResolutionDirectionError struct {
	SourceFWHM float64
	TargetFWHM float64
	Tolerance  float64
}

func (e *ResolutionDirectionError) Error() string {
	return fmt.Sprintf("calib: target FWHM %g nm is finer than source FWHM %g nm (tolerance %g)",
		e.TargetFWHM, e.SourceFWHM, e.Tolerance)
}

func (e *ResolutionDirectionError) Unwrap() error { return ErrResolutionDirection }

// FitRejectedError reports a fit that failed the acceptance rule.
type FitRejectedError struct {
	Rule    string
	Quality FitQuality
}

func (e *FitRejectedError) Error() string {
	return fmt.Sprintf("calib: fit rejected by %q (rms %g, withheld rms %g, %d excluded)",
		e.Rule, e.Quality.RMS, e.Quality.WithheldRMS, len(e.Quality.Excluded))
}

func (e *FitRejectedError) Unwrap() error { return ErrFitRejected }
