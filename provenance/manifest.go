package provenance

import (
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/internal/clock"
	"github.com/cwbudde/algo-spectra/spectrum"
	"github.com/cwbudde/algo-spectra/store"
)

// ManifestEntry is the lineage of one ingested spectrum.
type ManifestEntry struct {
	SpectrumChecksum       string            `json:"spectrum_checksum"`
	DerivedChecksum        string            `json:"derived_checksum,omitempty"`
	CalibrationArtifactIDs []string          `json:"calibration_artifact_ids"`
	TransformsApplied      []Transform       `json:"transforms_applied"`
	SourceMetadata         map[string]string `json:"source_metadata"`
	ViewChecksum           string            `json:"view_checksum,omitempty"`
	ExportPath             string            `json:"export_path,omitempty"`
}

// DeriveTransforms returns the replayable transforms in order.
func (e ManifestEntry) DeriveTransforms() []Transform {
	var out []Transform
	for _, t := range e.TransformsApplied {
		if t.Phase == PhaseDerive {
			out = append(out, t)
		}
	}
	return out
}

func (e ManifestEntry) clone() ManifestEntry {
	e.CalibrationArtifactIDs = slices.Clone(e.CalibrationArtifactIDs)
	e.TransformsApplied = slices.Clone(e.TransformsApplied)
	e.SourceMetadata = maps.Clone(e.SourceMetadata)
	return e
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the clock used to stamp transforms and bundles.
func WithClock(c clock.Clock) Option {
	return func(b *Builder) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithLogger sets the builder logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder accumulates manifest entries. It is safe for concurrent use;
// entries are kept in the order Record was called.
type Builder struct {
	mu      sync.Mutex
	entries []ManifestEntry
	clock   clock.Clock
	logger  *zap.Logger
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{clock: clock.Real(), logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Record appends the lineage of sp. transforms are kept in the given
// order; transforms without a timestamp are stamped now. For a derived
// spectrum the entry references the raw payload through its parent.
func (b *Builder) Record(sp *spectrum.Spectrum, transforms []Transform) (ManifestEntry, error) {
	for _, t := range transforms {
		if err := t.validate(); err != nil {
			return ManifestEntry{}, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	applied := make([]Transform, len(transforms))
	for i, t := range transforms {
		if t.Timestamp.IsZero() {
			t.Timestamp = b.clock.Now()
		}
		t.Parameters = maps.Clone(t.Parameters)
		applied[i] = t
	}

	entry := ManifestEntry{
		SpectrumChecksum:       sp.Checksum(),
		CalibrationArtifactIDs: []string{},
		TransformsApplied:      applied,
		SourceMetadata:         sourceMetadata(sp.Source()),
	}
	if sp.Parent() != "" {
		entry.SpectrumChecksum = sp.Parent()
		entry.DerivedChecksum = sp.Checksum()
	}
	for _, ref := range sp.CalibrationRefs() {
		entry.CalibrationArtifactIDs = append(entry.CalibrationArtifactIDs, ref.ArtifactID)
	}

	b.entries = append(b.entries, entry)
	b.logger.Debug("manifest entry recorded",
		zap.String("spectrum", entry.SpectrumChecksum),
		zap.Int("transforms", len(applied)))

	return entry.clone(), nil
}

// Entries returns the recorded entries in order.
func (b *Builder) Entries() []ManifestEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ManifestEntry, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.clone()
	}
	return out
}

// sourceMetadata flattens src. The source.* keys come from the Source
// fields; a clashing metadata value is kept under a "key#N" sub-key.
func sourceMetadata(src spectrum.Source) map[string]string {
	out := map[string]string{}
	if src.Format != "" {
		out["source.format"] = src.Format
	}
	if src.Location != "" {
		out["source.location"] = src.Location
	}
	if src.Checksum != "" {
		out["source.checksum"] = src.Checksum
	}
	store.MergeMetadata(out, src.Metadata)
	return out
}
