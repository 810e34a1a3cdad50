package ingest

import (
	"context"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/cwbudde/algo-spectra/spectrum"
)

// Uncertainty kinds an importer may declare.
const (
	UncertaintyStdDev   = "stddev"
	UncertaintyVariance = "variance"
)

// RawResult is what an importer hands to the coordinator: raw arrays with
// their declared units.
type RawResult struct {
	Axis            []float64
	Intensity       []float64
	Uncertainty     []float64
	AxisUnit        string
	IntensityUnit   string
	UncertaintyKind string
	SourceMetadata  map[string]string
}

// Importer parses one file format.
type Importer interface {
	Format() string
	Import(ctx context.Context, r io.Reader, src spectrum.Source) (*RawResult, error)
}

// Registry maps format identifiers to importers. It is populated at
// startup and read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	importers map[string]Importer
}

// NewRegistry returns a registry holding imps.
func NewRegistry(imps ...Importer) (*Registry, error) {
	r := &Registry{importers: map[string]Importer{}}
	for _, imp := range imps {
		if err := r.Register(imp); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry holds the built-in importers.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(XYImporter{}, JSONImporter{})
	if err != nil {
		panic("ingest: default registry: " + err.Error())
	}
	return r
}

// Register adds imp under its format. A format is registered once.
func (r *Registry) Register(imp Importer) error {
	if imp == nil || imp.Format() == "" {
		return fmt.Errorf("ingest: register importer without format")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.importers[imp.Format()]; dup {
		return fmt.Errorf("ingest: format %q registered twice", imp.Format())
	}
	r.importers[imp.Format()] = imp
	return nil
}

// Lookup returns the importer for format.
func (r *Registry) Lookup(format string) (Importer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	imp, ok := r.importers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return imp, nil
}

// Formats returns the registered formats, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.importers))
}

// checkRaw enforces the importer contract. Unit tokens are checked later by
// the units package, which reports them as unsupported units.
func checkRaw(format string, raw *RawResult) error {
	fail := func(field, reason string) error {
		return &ContractError{Format: format, Field: field, Reason: reason}
	}

	if raw == nil {
		return fail("result", "importer returned no result")
	}
	n := len(raw.Axis)
	switch {
	case n == 0:
		return fail("raw_axis", "empty")
	case len(raw.Intensity) != n:
		return fail("raw_intensity", fmt.Sprintf("%d samples for %d axis values", len(raw.Intensity), n))
	case raw.AxisUnit == "":
		return fail("declared_axis_unit", "missing")
	case raw.IntensityUnit == "":
		return fail("declared_intensity_unit", "missing")
	}

	if raw.Uncertainty == nil {
		if raw.UncertaintyKind != "" {
			return fail("uncertainty_kind", "declared without uncertainty values")
		}
		return nil
	}
	if len(raw.Uncertainty) != n {
		return fail("uncertainty", fmt.Sprintf("%d samples for %d axis values", len(raw.Uncertainty), n))
	}
	if raw.UncertaintyKind != UncertaintyStdDev && raw.UncertaintyKind != UncertaintyVariance {
		return fail("uncertainty_kind", fmt.Sprintf("%q is neither %s nor %s", raw.UncertaintyKind, UncertaintyStdDev, UncertaintyVariance))
	}
	for i, v := range raw.Uncertainty {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fail("uncertainty", fmt.Sprintf("sample %d is %v", i, v))
		}
	}
	return nil
}

// stddev returns the declared uncertainty as standard deviations.
func (raw *RawResult) stddev() []float64 {
	if raw.Uncertainty == nil {
		return nil
	}
	out := slices.Clone(raw.Uncertainty)
	if raw.UncertaintyKind == UncertaintyVariance {
		for i, v := range out {
			out[i] = math.Sqrt(v)
		}
	}
	return out
}
