package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/calib"
	"github.com/cwbudde/algo-spectra/internal/clock"
	"github.com/cwbudde/algo-spectra/provenance"
	"github.com/cwbudde/algo-spectra/spectrum"
	"github.com/cwbudde/algo-spectra/store"
	"github.com/cwbudde/algo-spectra/units"
)

// Metadata keys the coordinator adds to cache entries.
const (
	MetaRole            = "role"
	MetaAxisUnit        = "declared.axis_unit"
	MetaIntensityUnit   = "declared.intensity_unit"
	MetaUncertainty     = "uncertainty"
	MetaUncertaintyKind = "declared.uncertainty_kind"
	MetaDerivedFrom     = "derived_from"
	MetaArtifactID      = "artifact.id"
	MetaArtifactKind    = "artifact.kind"

	RoleRaw      = "raw"
	RoleDerived  = "derived"
	RoleArtifact = "calibration_artifact"
)

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithImporters sets the importer registry used by IngestSource.
func WithImporters(reg *Registry) Option {
	return func(c *Coordinator) error {
		if reg == nil {
			return errors.New("ingest: nil importer registry")
		}
		c.importers = reg
		return nil
	}
}

// WithWorkers bounds IngestBatch concurrency.
func WithWorkers(n int) Option {
	return func(c *Coordinator) error {
		if n < 1 {
			return fmt.Errorf("ingest: workers must be >= 1, got %d", n)
		}
		c.workers = n
		return nil
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithClock sets the clock used to stamp transforms.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) error {
		if clk != nil {
			c.clock = clk
		}
		return nil
	}
}

// Coordinator runs the ingest pipeline. It is safe for concurrent use.
type Coordinator struct {
	store      *store.Store
	builder    *provenance.Builder
	engine     *calib.Engine
	importers  *Registry
	transforms *provenance.Registry
	workers    int
	logger     *zap.Logger
	clock      clock.Clock
}

// New wires a coordinator to its collaborators.
func New(st *store.Store, builder *provenance.Builder, engine *calib.Engine, opts ...Option) (*Coordinator, error) {
	if st == nil || builder == nil || engine == nil {
		return nil, errors.New("ingest: store, builder and engine are required")
	}

	c := &Coordinator{
		store:      st,
		builder:    builder,
		engine:     engine,
		importers:  DefaultRegistry(),
		transforms: Transforms(),
		workers:    4,
		logger:     zap.NewNop(),
		clock:      clock.Real(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Store returns the cache the coordinator writes to.
func (c *Coordinator) Store() *store.Store { return c.store }

// Builder returns the manifest builder.
func (c *Coordinator) Builder() *provenance.Builder { return c.builder }

// Importers returns the importer registry.
func (c *Coordinator) Importers() *Registry { return c.importers }

// canonical is a validated, canonicalized request ready to be cached.
type canonical struct {
	series    spectrum.Series
	basis     string
	units     spectrum.SourceUnits
	transform provenance.Transform
	clamped   []int
	sentinels []int
	display   *displayParams
}

// Ingest canonicalizes req.Raw, caches it, applies the requested
// calibration and records the manifest entry. Contract and unit errors
// are returned before anything is cached. Calibration failures do not fail
// the ingest; they are listed in the result.
func (c *Coordinator) Ingest(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canon, err := c.canonicalize(req)
	if err != nil {
		return nil, err
	}

	payload, err := spectrum.EncodePayload(canon.series, canon.basis)
	if err != nil {
		return nil, err
	}
	src := req.Source
	if src.Format == "" {
		src.Format = req.Format
	}
	src.Metadata = sourceMetadata(req)
	raw, err := spectrum.New(spectrum.Params{
		Series:      canon.series,
		Basis:       canon.basis,
		SourceUnits: canon.units,
		Source:      src,
		Checksum:    store.Checksum(payload),
	})
	if err != nil {
		return nil, err
	}

	entry, err := c.store.Put(ctx, payload, rawMetadata(req, canon), req.Raw.SourceMetadata, req.Source.Metadata)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Raw:          raw,
		Cache:        entry,
		Clamped:      canon.clamped,
		Sentinels:    canon.sentinels,
		Deduplicated: entry.IngestCount > 1,
	}
	transforms := []provenance.Transform{canon.transform}

	final := raw
	if req.Calibration != nil {
		derived, steps, err := c.calibrate(ctx, raw, req.Calibration, res)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, steps...)
		if derived != nil {
			res.Derived = derived
			final = derived
		}
	}
	if final.HasUncertainty() {
		res.Uncertainty = calib.UncertaintyPropagated
	}

	if canon.display != nil {
		t, err := provenance.NewTransform(TransformDisplay, provenance.PhaseDerive, canon.display)
		if err != nil {
			return nil, err
		}
		t.Timestamp = c.clock.Now()
		transforms = append(transforms, t)
	}

	res.Entry, err = c.builder.Record(final, transforms)
	if err != nil {
		return nil, err
	}

	c.logger.Info("spectrum ingested",
		zap.String("format", req.Format),
		zap.String("checksum", raw.Checksum()),
		zap.String("derived", res.Entry.DerivedChecksum),
		zap.Bool("dedup", res.Deduplicated),
		zap.Int("clamped", len(res.Clamped)),
		zap.Int("calibration_errors", len(res.CalibrationErrors)))

	return res, nil
}

func (c *Coordinator) canonicalize(req Request) (*canonical, error) {
	raw := req.Raw
	if err := checkRaw(req.Format, raw); err != nil {
		return nil, err
	}

	axis, err := units.AxisToCanonical(raw.Axis, raw.AxisUnit)
	if err != nil {
		return nil, err
	}
	intensity, err := units.IntensityToCanonical(raw.Intensity, raw.IntensityUnit)
	if err != nil {
		return nil, err
	}
	var sigma []float64
	if raw.Uncertainty != nil {
		sigma, err = units.IntensitySigmaToCanonical(raw.Intensity, raw.stddev(), raw.IntensityUnit)
		if err != nil {
			return nil, err
		}
	}

	canon := &canonical{
		series:    spectrum.Series{Axis: axis.Values, Values: intensity.Values, Sigma: sigma},
		basis:     intensity.Unit,
		units:     spectrum.SourceUnits{Axis: raw.AxisUnit, Intensity: raw.IntensityUnit, Uncertainty: raw.UncertaintyKind},
		clamped:   intensity.Clamped,
		sentinels: axis.Sentinels,
	}
	if err := canon.series.Validate(); err != nil {
		return nil, err
	}

	if req.Display != nil {
		canon.display = &displayParams{Basis: canon.basis, AxisUnit: req.Display.AxisUnit, IntensityUnit: req.Display.IntensityUnit}
		if err := checkDisplay(*canon.display); err != nil {
			return nil, err
		}
	}

	canon.transform, err = provenance.NewTransform(TransformCanonicalize, provenance.PhaseCanonicalize, canonicalizeParams{
		Format:          req.Format,
		AxisUnit:        raw.AxisUnit,
		IntensityUnit:   raw.IntensityUnit,
		Basis:           canon.basis,
		UncertaintyKind: raw.UncertaintyKind,
		Clamped:         canon.clamped,
		Sentinels:       canon.sentinels,
	})
	if err != nil {
		return nil, err
	}
	canon.transform.Timestamp = c.clock.Now()

	return canon, nil
}

// sourceMetadata combines the importer's metadata with the caller's. The
// importer's value wins a key; a differing caller value is kept under a
// "key#N" sub-key.
func sourceMetadata(req Request) map[string]string {
	meta := maps.Clone(req.Raw.SourceMetadata)
	if meta == nil {
		meta = map[string]string{}
	}
	store.MergeMetadata(meta, req.Source.Metadata)
	return meta
}

// rawMetadata is the coordinator's own layer of cache metadata. It is put
// ahead of the importer and caller layers so its keys cannot be displaced.
func rawMetadata(req Request, canon *canonical) map[string]string {
	meta := map[string]string{}
	meta[MetaRole] = RoleRaw
	meta[MetaAxisUnit] = canon.units.Axis
	meta[MetaIntensityUnit] = canon.units.Intensity
	if canon.series.Sigma == nil {
		meta[MetaUncertainty] = calib.UncertaintyAbsent.String()
	} else {
		meta[MetaUncertainty] = "stddev"
		meta[MetaUncertaintyKind] = canon.units.Uncertainty
	}
	if req.Format != "" {
		meta["source.format"] = req.Format
	}
	if req.Source.Location != "" {
		meta["source.location"] = req.Source.Location
	}
	if req.Source.Checksum != "" {
		meta["source.checksum"] = req.Source.Checksum
	}
	if len(canon.clamped) > 0 {
		meta["units.clamped"] = fmt.Sprint(len(canon.clamped))
	}
	if len(canon.sentinels) > 0 {
		meta["units.sentinels"] = fmt.Sprint(len(canon.sentinels))
	}
	return meta
}

// IngestSource reads req.Source.Location with the importer registered for
// req.Format and ingests the result. The source checksum is computed from
// the file bytes when req.Source.Checksum is empty.
func (c *Coordinator) IngestSource(ctx context.Context, req Request) (*Result, error) {
	imp, err := c.importers.Lookup(req.Format)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(req.Source.Location)
	if err != nil {
		return nil, fmt.Errorf("ingest: read source: %w", err)
	}
	if req.Source.Checksum == "" {
		req.Source.Checksum = store.Checksum(data)
	}

	req.Raw, err = imp.Import(ctx, bytes.NewReader(data), req.Source)
	if err != nil {
		return nil, fmt.Errorf("ingest: import %s: %w", req.Source.Location, err)
	}
	return c.Ingest(ctx, req)
}

// IngestRemote fetches uri and ingests the bytes with the req.Format
// importer. A fetcher reporting CapabilityUnavailable yields a result with
// Unavailable set and no spectrum.
func (c *Coordinator) IngestRemote(ctx context.Context, f Fetcher, uri string, req Request) (*Result, error) {
	if f == nil {
		return nil, errors.New("ingest: nil fetcher")
	}
	imp, err := c.importers.Lookup(req.Format)
	if err != nil {
		return nil, err
	}

	fetched, err := f.Fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("ingest: fetch %s: %w", uri, err)
	}
	if err := checkFetch("fetcher", fetched); err != nil {
		return nil, err
	}
	if fetched.Capability == CapabilityUnavailable {
		c.logger.Info("remote source unavailable", zap.String("uri", uri), zap.String("reason", fetched.Reason))
		return &Result{Unavailable: fetched.Reason}, nil
	}

	req.Source.Location = fetched.URI
	req.Source.Checksum = fetched.Checksum
	if req.Source.Checksum == "" {
		req.Source.Checksum = store.Checksum(fetched.Data)
	}
	meta := maps.Clone(req.Source.Metadata)
	if meta == nil {
		meta = map[string]string{}
	}
	provider := make(map[string]string, len(fetched.Provider))
	for k, v := range fetched.Provider {
		provider["provider."+k] = v
	}
	store.MergeMetadata(meta, provider)
	req.Source.Metadata = meta

	req.Raw, err = imp.Import(ctx, bytes.NewReader(fetched.Data), req.Source)
	if err != nil {
		return nil, fmt.Errorf("ingest: import %s: %w", fetched.URI, err)
	}
	return c.Ingest(ctx, req)
}

// View replays entry against the cache. It implements
// provenance.ViewSource. When the entry records a derived checksum, the
// calibration steps must reproduce it.
func (c *Coordinator) View(ctx context.Context, entry provenance.ManifestEntry) (provenance.View, error) {
	if entry.DerivedChecksum != "" {
		if err := c.checkDerived(ctx, entry); err != nil {
			return provenance.View{}, err
		}
	}
	series, basis, err := provenance.ReplayEntry(ctx, entry, c.transforms, c.store)
	if err != nil {
		return provenance.View{}, err
	}
	axis, intensity, err := displayUnits(entry.TransformsApplied)
	if err != nil {
		return provenance.View{}, err
	}
	return provenance.View{Series: series, Basis: basis, AxisUnit: axis, IntensityUnit: intensity}, nil
}

func (c *Coordinator) checkDerived(ctx context.Context, entry provenance.ManifestEntry) error {
	calibrated := entry
	calibrated.TransformsApplied = nil
	for _, t := range entry.TransformsApplied {
		if t.Name != TransformDisplay {
			calibrated.TransformsApplied = append(calibrated.TransformsApplied, t)
		}
	}
	series, basis, err := provenance.ReplayEntry(ctx, calibrated, c.transforms, c.store)
	if err != nil {
		return err
	}
	payload, err := spectrum.EncodePayload(series, basis)
	if err != nil {
		return err
	}
	if sum := store.Checksum(payload); sum != entry.DerivedChecksum {
		return fmt.Errorf("%w: calibration of %s replays to %s, manifest records %s",
			provenance.ErrReplayMismatch, entry.SpectrumChecksum, sum, entry.DerivedChecksum)
	}
	return nil
}
