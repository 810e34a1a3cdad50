package calib

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-spectra/internal/codec"
	"github.com/cwbudde/algo-spectra/internal/poly"
)

// Kind names a calibration artifact type.
type Kind string

// Artifact kinds.
const (
	KindWavelengthSolution Kind = "wavelength_solution"
	KindLSFKernel          Kind = "lsf_kernel"
	KindResponseFunction   Kind = "response_function"
)

// Artifact is a fitted calibration. Exactly one of Solution, Kernel and
// Response is set, matching Kind. Artifacts are not modified after
// creation.
type Artifact struct {
	ID        string              `cbor:"id" json:"id"`
	Kind      Kind                `cbor:"kind" json:"kind"`
	CreatedAt time.Time           `cbor:"created_at" json:"created_at"`
	Solution  *WavelengthSolution `cbor:"solution,omitempty" json:"solution,omitempty"`
	Kernel    *Kernel             `cbor:"kernel,omitempty" json:"kernel,omitempty"`
	Response  *Response           `cbor:"response,omitempty" json:"response,omitempty"`
	Validity  Validity            `cbor:"validity" json:"validity"`
	Quality   *FitQuality         `cbor:"quality,omitempty" json:"quality,omitempty"`
}

// WavelengthSolution maps pixel index p to λ(p) in nm through a polynomial
// in t = (p - Center) / Scale with ascending Coefficients.
type WavelengthSolution struct {
	Degree       int       `cbor:"degree" json:"degree"`
	Center       float64   `cbor:"center" json:"center"`
	Scale        float64   `cbor:"scale" json:"scale"`
	Coefficients []float64 `cbor:"coefficients" json:"coefficients"`
	AxisUnit     string    `cbor:"axis_unit" json:"axis_unit"`
}

// Eval returns the wavelength at pixel p.
func (w WavelengthSolution) Eval(p float64) float64 {
	return w.normalized().Eval(p)
}

// PowerCoefficients returns the solution as plain ascending coefficients
// of the pixel index.
func (w WavelengthSolution) PowerCoefficients() []float64 {
	return w.normalized().PowerBasis()
}

// Dispersion returns dλ/dp, the solution's slope in nm per pixel at p.
func (w WavelengthSolution) Dispersion(p float64) float64 {
	return poly.Eval(poly.Derivative(w.Coefficients), (p-w.Center)/w.Scale) / w.Scale
}

func (w WavelengthSolution) normalized() poly.Normalized {
	return poly.Normalized{Center: w.Center, Scale: w.Scale, Coefficients: w.Coefficients}
}

// Kernel describes a line-spread function. FWHM and Eta describe an
// estimated instrumental profile. KernelFWHM, when non-zero, is the width
// of the broadening kernel that takes SourceFWHM data to TargetFWHM.
type Kernel struct {
	Shape      string  `cbor:"shape" json:"shape"`
	FWHM       float64 `cbor:"fwhm,omitempty" json:"fwhm,omitempty"`
	Eta        float64 `cbor:"eta,omitempty" json:"eta,omitempty"`
	SourceFWHM float64 `cbor:"source_fwhm,omitempty" json:"source_fwhm,omitempty"`
	TargetFWHM float64 `cbor:"target_fwhm,omitempty" json:"target_fwhm,omitempty"`
	KernelFWHM float64 `cbor:"kernel_fwhm,omitempty" json:"kernel_fwhm,omitempty"`
}

// Response is a tabulated instrument response with one standard deviation
// per sample.
type Response struct {
	Axis     []float64 `cbor:"axis" json:"axis"`
	Values   []float64 `cbor:"values" json:"values"`
	Sigma    []float64 `cbor:"sigma" json:"sigma"`
	Segments int       `cbor:"segments" json:"segments"`
}

// Validity is the wavelength range an artifact was derived from. The zero
// value means unrestricted.
type Validity struct {
	MinNM float64 `cbor:"min_nm" json:"min_nm"`
	MaxNM float64 `cbor:"max_nm" json:"max_nm"`
}

// Contains reports whether nm lies inside the range.
func (v Validity) Contains(nm float64) bool {
	if v.MinNM == 0 && v.MaxNM == 0 {
		return true
	}
	return nm >= v.MinNM && nm <= v.MaxNM
}

// FitQuality summarises a fit.
type FitQuality struct {
	RMS         float64 `cbor:"rms" json:"rms"`
	WithheldRMS float64 `cbor:"withheld_rms" json:"withheld_rms"`
	MaxResidual float64 `cbor:"max_residual,omitempty" json:"max_residual,omitempty"`
	Used        []int   `cbor:"used" json:"used"`
	Excluded    []int   `cbor:"excluded,omitempty" json:"excluded,omitempty"`
	Iterations  int     `cbor:"iterations" json:"iterations"`
	Converged   bool    `cbor:"converged" json:"converged"`
}

func newArtifact(kind Kind, now time.Time) (*Artifact, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("calib: artifact id: %w", err)
	}
	return &Artifact{ID: id.String(), Kind: kind, CreatedAt: now}, nil
}

// Encode returns the deterministic CBOR form of the artifact.
func (a *Artifact) Encode() ([]byte, error) {
	return codec.Marshal(a)
}

// DecodeArtifact parses an encoded artifact.
func DecodeArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := codec.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("calib: decode artifact: %w", err)
	}
	if err := a.check(a.Kind); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Artifact) check(kind Kind) error {
	if a == nil {
		return fmt.Errorf("%w: nil artifact", ErrArtifactKind)
	}
	if a.Kind != kind {
		return fmt.Errorf("%w: have %s, want %s", ErrArtifactKind, a.Kind, kind)
	}

	ok := false
	switch kind {
	case KindWavelengthSolution:
		ok = a.Solution != nil && len(a.Solution.Coefficients) > 0 && a.Solution.Scale != 0
	case KindLSFKernel:
		ok = a.Kernel != nil
	case KindResponseFunction:
		ok = a.Response != nil && len(a.Response.Axis) == len(a.Response.Values) &&
			len(a.Response.Sigma) == len(a.Response.Values)
	}
	if !ok {
		return fmt.Errorf("%w: %s artifact %s has no usable parameters", ErrArtifactKind, kind, a.ID)
	}

	return nil
}
