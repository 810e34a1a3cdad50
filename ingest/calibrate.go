package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/calib"
	"github.com/cwbudde/algo-spectra/provenance"
	"github.com/cwbudde/algo-spectra/spectrum"
	"github.com/cwbudde/algo-spectra/store"
)

// plan is a calibration step ready to apply: its transform and the
// artifacts it produced, encoded and keyed by checksum.
type plan struct {
	name      string
	params    any
	applied   *calib.Artifact
	artifacts []*calib.Artifact
}

// pendingEnv serves artifacts that are not cached yet, so a step is applied
// exactly as it will later be replayed.
type pendingEnv struct {
	provenance.Env
	pending map[string][]byte
}

func (e pendingEnv) Read(ctx context.Context, checksum string) ([]byte, error) {
	if data, ok := e.pending[checksum]; ok {
		return data, nil
	}
	return e.Env.Read(ctx, checksum)
}

// calibrate runs the requested steps on raw. It returns the derived
// spectrum (nil when no step succeeded) and the applied transforms. Only
// context and cache errors are returned; step failures are collected in
// res.
func (c *Coordinator) calibrate(ctx context.Context, raw *spectrum.Spectrum, req *CalibrationRequest, res *Result) (*spectrum.Spectrum, []provenance.Transform, error) {
	var (
		series     = raw.Series()
		transforms []provenance.Transform
		refs       []spectrum.CalibrationRef
	)

	for _, name := range []string{TransformWavelength, TransformBackground, TransformResponse, TransformConvolve, TransformNormalize} {
		p, err := c.prepare(ctx, name, req)
		if p == nil && err == nil {
			continue
		}

		var (
			out     spectrum.Series
			t       provenance.Transform
			encoded map[string][]byte
		)
		if err == nil {
			out, t, encoded, err = c.apply(ctx, p, series)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			c.logger.Warn("calibration step skipped", zap.String("step", name), zap.String("spectrum", raw.Checksum()), zap.Error(err))
			res.CalibrationErrors = append(res.CalibrationErrors, &StepError{Step: name, Err: err})
			continue
		}

		for _, art := range p.artifacts {
			sum := store.Checksum(encoded[art.ID])
			if _, err := c.store.Put(ctx, encoded[art.ID], map[string]string{
				MetaRole:         RoleArtifact,
				MetaArtifactID:   art.ID,
				MetaArtifactKind: string(art.Kind),
				MetaDerivedFrom:  raw.Checksum(),
			}); err != nil {
				return nil, nil, err
			}
			res.Artifacts = append(res.Artifacts, art)
			if art == p.applied {
				refs = append(refs, spectrum.CalibrationRef{
					ArtifactID:       art.ID,
					ArtifactChecksum: sum,
					Kind:             string(art.Kind),
					Parameters:       t.Parameters,
					AppliedAt:        t.Timestamp,
				})
			}
		}
		series = out
		transforms = append(transforms, t)
	}

	if len(transforms) == 0 {
		return nil, nil, nil
	}

	payload, err := spectrum.EncodePayload(series, raw.Basis())
	if err != nil {
		return nil, nil, err
	}
	derived, err := raw.Derive(series, store.Checksum(payload), refs...)
	if err != nil {
		return nil, nil, err
	}
	if derived.Checksum() == raw.Checksum() {
		return derived, transforms, nil
	}
	uncertainty := calib.UncertaintyAbsent.String()
	if series.Sigma != nil {
		uncertainty = "stddev"
	}
	if _, err := c.store.Put(ctx, payload, map[string]string{
		MetaRole:        RoleDerived,
		MetaDerivedFrom: raw.Checksum(),
		MetaUncertainty: uncertainty,
	}); err != nil {
		return nil, nil, err
	}

	return derived, transforms, nil
}

// prepare builds one step. It returns nil, nil when the step was not
// requested.
func (c *Coordinator) prepare(ctx context.Context, name string, req *CalibrationRequest) (*plan, error) {
	switch name {
	case TransformWavelength:
		if req.Wavelength == nil {
			return nil, nil
		}
		w := req.Wavelength
		art, err := c.engine.FitWavelengthSolution(ctx, w.Pixels, w.Reference, w.Unit)
		if err != nil {
			return nil, err
		}
		return &plan{name: name, applied: art, artifacts: []*calib.Artifact{art}}, nil

	case TransformBackground:
		if req.Background == nil {
			return nil, nil
		}
		return &plan{name: name, params: backgroundParams{Value: req.Background.Value, Sigma: req.Background.Sigma}}, nil

	case TransformResponse:
		if req.Response == nil {
			return nil, nil
		}
		r := req.Response
		art := r.Artifact
		if art == nil {
			var err error
			art, err = c.engine.ComputeResponse(r.Axis, r.Measured, r.Truth)
			if err != nil {
				return nil, err
			}
		}
		return &plan{name: name, applied: art, artifacts: []*calib.Artifact{art}}, nil

	case TransformConvolve:
		if req.Resolution == nil {
			return nil, nil
		}
		r := req.Resolution
		p := &plan{name: name}
		source := r.SourceFWHM
		if source == 0 && len(r.Lines) > 0 {
			est, _, err := c.engine.EstimateLSF(ctx, r.Lines, c.engine.PeakShape())
			if err != nil {
				return nil, err
			}
			source = est.Kernel.FWHM
			p.artifacts = append(p.artifacts, est)
		}
		art, err := c.engine.ResolutionKernel(source, r.TargetFWHM)
		if err != nil {
			return nil, err
		}
		p.applied = art
		p.artifacts = append(p.artifacts, art)
		return p, nil

	case TransformNormalize:
		if req.Normalize == nil {
			return nil, nil
		}
		return &plan{name: name, params: normalizeParams{Scale: req.Normalize.Scale}}, nil
	}

	return nil, fmt.Errorf("ingest: unknown calibration step %q", name)
}

// apply encodes the plan's artifacts, builds its transform and runs the
// registered replay function on series.
func (c *Coordinator) apply(ctx context.Context, p *plan, series spectrum.Series) (spectrum.Series, provenance.Transform, map[string][]byte, error) {
	encoded := make(map[string][]byte, len(p.artifacts))
	env := pendingEnv{Env: c.store, pending: map[string][]byte{}}
	for _, art := range p.artifacts {
		data, err := art.Encode()
		if err != nil {
			return spectrum.Series{}, provenance.Transform{}, nil, err
		}
		encoded[art.ID] = data
		env.pending[store.Checksum(data)] = data
	}

	params := p.params
	if p.applied != nil {
		params = artifactParams{
			Artifact:   store.Checksum(encoded[p.applied.ID]),
			ArtifactID: p.applied.ID,
			Kind:       string(p.applied.Kind),
		}
	}
	t, err := provenance.NewTransform(p.name, provenance.PhaseDerive, params)
	if err != nil {
		return spectrum.Series{}, provenance.Transform{}, nil, err
	}
	t.Timestamp = c.clock.Now()

	fn, ok := c.transforms.Lookup(p.name)
	if !ok {
		return spectrum.Series{}, provenance.Transform{}, nil, fmt.Errorf("%w: %q", provenance.ErrUnknownTransform, p.name)
	}
	out, err := fn(ctx, series, t.Parameters, env)
	if err != nil {
		return spectrum.Series{}, provenance.Transform{}, nil, err
	}
	if err := out.Validate(); err != nil {
		return spectrum.Series{}, provenance.Transform{}, nil, err
	}
	return out, t, encoded, nil
}
