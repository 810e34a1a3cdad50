package ingest

import (
	"github.com/cwbudde/algo-spectra/calib"
	"github.com/cwbudde/algo-spectra/provenance"
	"github.com/cwbudde/algo-spectra/spectrum"
	"github.com/cwbudde/algo-spectra/store"
)

// Request is one ingest event. Raw is the importer output; when it is nil,
// IngestSource reads it from Source.Location with the Format importer.
type Request struct {
	Format      string
	Source      spectrum.Source
	Raw         *RawResult
	Calibration *CalibrationRequest
	Display     *Display
}

// Display selects the units the exported view is rendered in. Empty fields
// keep the canonical unit.
type Display struct {
	AxisUnit      string
	IntensityUnit string
}

// CalibrationRequest lists the optional calibration steps. They run in
// field order; nil steps are skipped.
type CalibrationRequest struct {
	Wavelength *WavelengthStep
	Background *BackgroundStep
	Response   *ResponseStep
	Resolution *ResolutionStep
	Normalize  *NormalizeStep
}

// WavelengthStep fits a wavelength solution from matched reference lines
// and maps sample index to wavelength.
type WavelengthStep struct {
	Pixels    []float64
	Reference []float64
	Unit      string
}

// BackgroundStep subtracts a constant background.
type BackgroundStep struct {
	Value float64
	Sigma float64
}

// ResponseStep divides by an instrument response. Either Artifact is set,
// or the response is computed from Measured and Truth sampled on Axis.
type ResponseStep struct {
	Artifact *calib.Artifact
	Axis     []float64
	Measured []float64
	Truth    []float64
}

// ResolutionStep degrades the spectrum to TargetFWHM (nm). The source FWHM
// is SourceFWHM or, when zero, estimated from Lines.
type ResolutionStep struct {
	SourceFWHM float64
	TargetFWHM float64
	Lines      []calib.LineWindow
}

// NormalizeStep multiplies by Scale.
type NormalizeStep struct {
	Scale float64
}

// Result is the outcome of one ingest.
type Result struct {
	Raw     *spectrum.Spectrum
	Derived *spectrum.Spectrum
	// Cache is the store entry of the raw canonical payload.
	Cache     *store.Entry
	Entry     provenance.ManifestEntry
	Artifacts []*calib.Artifact
	// CalibrationErrors lists the steps that failed and were skipped.
	CalibrationErrors []*StepError
	Uncertainty       calib.UncertaintyStatus
	// Clamped and Sentinels are the sample indices the unit conversion
	// clamped or mapped to the +Inf sentinel.
	Clamped   []int
	Sentinels []int
	// Deduplicated is set when the raw payload was already cached.
	Deduplicated bool
	// Unavailable carries the fetcher's reason when it had no data.
	Unavailable string
}

// Final returns the derived spectrum, or the raw one when no calibration
// step was applied.
func (r *Result) Final() *spectrum.Spectrum {
	if r.Derived != nil {
		return r.Derived
	}
	return r.Raw
}
