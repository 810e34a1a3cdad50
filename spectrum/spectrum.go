package spectrum

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/cwbudde/algo-spectra/units"
)

// Canonical intensity bases.
const (
	BasisAbsorbance = units.BasisAbsorbance
	BasisCounts     = units.BasisCounts
)

// SourceUnits are the unit tags the data was imported with.
type SourceUnits struct {
	Axis        string `json:"axis" cbor:"axis"`
	Intensity   string `json:"intensity" cbor:"intensity"`
	Uncertainty string `json:"uncertainty,omitempty" cbor:"uncertainty,omitempty"`
}

// Source describes where a spectrum came from.
type Source struct {
	Format   string            `json:"format" cbor:"format"`
	Location string            `json:"location,omitempty" cbor:"location,omitempty"`
	Checksum string            `json:"checksum,omitempty" cbor:"checksum,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" cbor:"metadata,omitempty"`
}

// CalibrationRef records one calibration applied to a spectrum.
type CalibrationRef struct {
	ArtifactID       string         `json:"artifact_id" cbor:"artifact_id"`
	ArtifactChecksum string         `json:"artifact_checksum,omitempty" cbor:"artifact_checksum,omitempty"`
	Kind             string         `json:"kind" cbor:"kind"`
	Parameters       map[string]any `json:"parameters,omitempty" cbor:"parameters,omitempty"`
	AppliedAt        time.Time      `json:"applied_at" cbor:"applied_at"`
}

// Params holds everything needed to build a Spectrum.
type Params struct {
	Series      Series
	Basis       string
	SourceUnits SourceUnits
	Refs        []CalibrationRef
	Source      Source
	Checksum    string
	Parent      string
}

// Spectrum is an immutable canonical spectrum. All accessors return copies.
type Spectrum struct {
	series   Series
	basis    string
	units    SourceUnits
	refs     []CalibrationRef
	source   Source
	checksum string
	parent   string
}

// New validates p and builds a Spectrum. It is called by the ingest
// coordinator once the canonical payload has been stored and its checksum
// is known.
func New(p Params) (*Spectrum, error) {
	if err := p.Series.Validate(); err != nil {
		return nil, err
	}
	if p.Basis != BasisAbsorbance && p.Basis != BasisCounts {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBasis, p.Basis)
	}
	if p.Checksum == "" {
		return nil, ErrMissingSum
	}

	src := p.Source
	src.Metadata = maps.Clone(p.Source.Metadata)

	return &Spectrum{
		series:   p.Series.Clone(),
		basis:    p.Basis,
		units:    p.SourceUnits,
		refs:     cloneRefs(p.Refs),
		source:   src,
		checksum: p.Checksum,
		parent:   p.Parent,
	}, nil
}

// Derive builds the spectrum that results from applying refs to s. The
// new spectrum keeps s's source and units, lists s's references followed
// by refs and points back at s through Parent.
func (s *Spectrum) Derive(series Series, checksum string, refs ...CalibrationRef) (*Spectrum, error) {
	all := append(cloneRefs(s.refs), cloneRefs(refs)...)
	return New(Params{
		Series:      series,
		Basis:       s.basis,
		SourceUnits: s.units,
		Refs:        all,
		Source:      s.source,
		Checksum:    checksum,
		Parent:      s.checksum,
	})
}

// Len returns the number of samples.
func (s *Spectrum) Len() int { return s.series.Len() }

// Axis returns a copy of the canonical axis in nm.
func (s *Spectrum) Axis() []float64 { return slices.Clone(s.series.Axis) }

// Intensity returns a copy of the intensities in the canonical basis.
func (s *Spectrum) Intensity() []float64 { return slices.Clone(s.series.Values) }

// HasUncertainty reports whether per-sample standard deviations are present.
func (s *Spectrum) HasUncertainty() bool { return s.series.Sigma != nil }

// Basis returns the intensity basis, BasisAbsorbance or BasisCounts.
func (s *Spectrum) Basis() string { return s.basis }

// SourceUnits returns the units the importer declared.
func (s *Spectrum) SourceUnits() SourceUnits { return s.units }

// Checksum returns the checksum of the canonical payload, the spectrum's
// identity in the cache.
func (s *Spectrum) Checksum() string { return s.checksum }

// Parent returns the checksum of the spectrum this one was derived from,
// or "" for a raw spectrum.
func (s *Spectrum) Parent() string { return s.parent }

// Uncertainty returns per-sample standard deviations, or nil when absent.
func (s *Spectrum) Uncertainty() []float64 { return slices.Clone(s.series.Sigma) }

// Series returns a mutable copy of the samples.
func (s *Spectrum) Series() Series { return s.series.Clone() }

// CalibrationRefs returns the applied calibrations in order.
func (s *Spectrum) CalibrationRefs() []CalibrationRef { return cloneRefs(s.refs) }

// Source returns a copy of the source descriptor.
func (s *Spectrum) Source() Source {
	src := s.source
	src.Metadata = maps.Clone(s.source.Metadata)
	return src
}

// Payload returns the canonical payload bytes.
func (s *Spectrum) Payload() ([]byte, error) {
	return EncodePayload(s.series, s.basis)
}

func cloneRefs(refs []CalibrationRef) []CalibrationRef {
	if refs == nil {
		return nil
	}
	out := make([]CalibrationRef, len(refs))
	for i, r := range refs {
		r.Parameters = maps.Clone(r.Parameters)
		out[i] = r
	}
	return out
}
