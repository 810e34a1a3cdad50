package ingest

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-spectra/calib"
	"github.com/cwbudde/algo-spectra/provenance"
	"github.com/cwbudde/algo-spectra/spectrum"
	"github.com/cwbudde/algo-spectra/units"
)

// Transform names recorded in manifests.
const (
	TransformCanonicalize = "units.canonicalize"
	TransformWavelength   = "calibration.wavelength_solution"
	TransformBackground   = "calibration.background_subtract"
	TransformResponse     = "calibration.response"
	TransformConvolve     = "calibration.lsf_convolve"
	TransformNormalize    = "calibration.normalize"
	TransformDisplay      = "units.display"
)

type canonicalizeParams struct {
	Format          string `json:"format"`
	AxisUnit        string `json:"axis_unit"`
	IntensityUnit   string `json:"intensity_unit"`
	Basis           string `json:"basis"`
	UncertaintyKind string `json:"uncertainty_kind,omitempty"`
	Clamped         []int  `json:"clamped,omitempty"`
	Sentinels       []int  `json:"sentinels,omitempty"`
}

// artifactParams reference a cached calibration artifact.
type artifactParams struct {
	Artifact   string `json:"artifact"`
	ArtifactID string `json:"artifact_id"`
	Kind       string `json:"kind"`
}

type backgroundParams struct {
	Value float64 `json:"value"`
	Sigma float64 `json:"sigma"`
}

type normalizeParams struct {
	Scale float64 `json:"scale"`
}

type displayParams struct {
	Basis         string `json:"basis"`
	AxisUnit      string `json:"axis_unit"`
	IntensityUnit string `json:"intensity_unit"`
}

// Transforms returns a registry that replays every transform the
// coordinator records. Artifacts are read from the replay environment by
// checksum.
func Transforms() *provenance.Registry {
	reg := provenance.NewRegistry()
	for name, fn := range map[string]provenance.ApplyFunc{
		TransformWavelength: artifactStep(calib.KindWavelengthSolution, calib.ApplyWavelengthSolution),
		TransformResponse:   artifactStep(calib.KindResponseFunction, calib.ApplyResponse),
		TransformConvolve:   artifactStep(calib.KindLSFKernel, calib.Convolve),
		TransformBackground: applyBackground,
		TransformNormalize:  applyNormalize,
		TransformDisplay:    applyDisplay,
	} {
		if err := reg.Register(name, fn); err != nil {
			panic("ingest: " + err.Error())
		}
	}
	return reg
}

func artifactStep(kind calib.Kind, apply func(spectrum.Series, *calib.Artifact) (calib.Result, error)) provenance.ApplyFunc {
	return func(ctx context.Context, in spectrum.Series, params map[string]any, env provenance.Env) (spectrum.Series, error) {
		var p artifactParams
		if err := provenance.DecodeParams(params, &p); err != nil {
			return spectrum.Series{}, err
		}
		art, err := loadArtifact(ctx, env, p.Artifact)
		if err != nil {
			return spectrum.Series{}, err
		}
		if art.Kind != kind {
			return spectrum.Series{}, fmt.Errorf("%w: artifact %s is %s, want %s", calib.ErrArtifactKind, p.Artifact, art.Kind, kind)
		}
		res, err := apply(in, art)
		if err != nil {
			return spectrum.Series{}, err
		}
		return res.Series, nil
	}
}

func loadArtifact(ctx context.Context, env provenance.Env, checksum string) (*calib.Artifact, error) {
	if env == nil {
		return nil, fmt.Errorf("ingest: no environment to load artifact %s", checksum)
	}
	data, err := env.Read(ctx, checksum)
	if err != nil {
		return nil, fmt.Errorf("ingest: load artifact %s: %w", checksum, err)
	}
	return calib.DecodeArtifact(data)
}

func applyBackground(_ context.Context, in spectrum.Series, params map[string]any, _ provenance.Env) (spectrum.Series, error) {
	var p backgroundParams
	if err := provenance.DecodeParams(params, &p); err != nil {
		return spectrum.Series{}, err
	}
	res, err := calib.SubtractBackground(in, p.Value, p.Sigma)
	if err != nil {
		return spectrum.Series{}, err
	}
	return res.Series, nil
}

func applyNormalize(_ context.Context, in spectrum.Series, params map[string]any, _ provenance.Env) (spectrum.Series, error) {
	var p normalizeParams
	if err := provenance.DecodeParams(params, &p); err != nil {
		return spectrum.Series{}, err
	}
	res, err := calib.Normalize(in, p.Scale)
	if err != nil {
		return spectrum.Series{}, err
	}
	return res.Series, nil
}

func applyDisplay(_ context.Context, in spectrum.Series, params map[string]any, _ provenance.Env) (spectrum.Series, error) {
	var p displayParams
	if err := provenance.DecodeParams(params, &p); err != nil {
		return spectrum.Series{}, err
	}
	return toDisplay(in, p)
}

func toDisplay(in spectrum.Series, p displayParams) (spectrum.Series, error) {
	out := spectrum.Series{Axis: in.Axis, Values: in.Values, Sigma: in.Sigma}

	if p.AxisUnit != "" {
		conv, err := units.AxisFromCanonical(in.Axis, p.AxisUnit)
		if err != nil {
			return spectrum.Series{}, err
		}
		out.Axis = conv.Values
	}
	if p.IntensityUnit != "" {
		conv, err := units.IntensityFromCanonical(in.Values, p.Basis, p.IntensityUnit)
		if err != nil {
			return spectrum.Series{}, err
		}
		out.Values = conv.Values
		if in.Sigma != nil {
			out.Sigma, err = units.IntensitySigmaFromCanonical(in.Values, in.Sigma, p.Basis, p.IntensityUnit)
			if err != nil {
				return spectrum.Series{}, err
			}
		}
	}

	return out.Clone(), nil
}

// checkDisplay validates display units before anything is cached.
func checkDisplay(p displayParams) error {
	if p.AxisUnit != "" {
		if _, err := units.ParseAxisUnit(p.AxisUnit); err != nil {
			return err
		}
	}
	if p.IntensityUnit != "" {
		basis, err := units.IntensityBasis(p.IntensityUnit)
		if err != nil {
			return err
		}
		if basis != p.Basis {
			return &units.UnsupportedUnitError{
				Domain: units.DomainIntensity,
				Unit:   p.IntensityUnit,
				Reason: "cannot display " + p.Basis + " data in a " + basis + " unit",
			}
		}
	}
	return nil
}

// displayUnits returns the units of the last display transform in ts.
func displayUnits(ts []provenance.Transform) (axis, intensity string, err error) {
	for _, t := range ts {
		if t.Name != TransformDisplay || t.Phase != provenance.PhaseDerive {
			continue
		}
		var p displayParams
		if err := provenance.DecodeParams(t.Parameters, &p); err != nil {
			return "", "", err
		}
		axis, intensity = p.AxisUnit, p.IntensityUnit
	}
	return axis, intensity, nil
}
