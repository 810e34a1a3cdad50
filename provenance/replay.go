package provenance

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/cwbudde/algo-spectra/internal/numeric"
	"github.com/cwbudde/algo-spectra/spectrum"
)

// Env gives transforms access to cached payloads such as calibration
// artifacts. *store.Store satisfies it.
type Env interface {
	Read(ctx context.Context, checksum string) ([]byte, error)
}

// ApplyFunc reapplies one transform.
type ApplyFunc func(ctx context.Context, in spectrum.Series, params map[string]any, env Env) (spectrum.Series, error)

// Registry maps transform names to their replay functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]ApplyFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]ApplyFunc{}}
}

// Register adds fn under name. Names are registered once.
func (r *Registry) Register(name string, fn ApplyFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("%w: register %q", ErrInvalidTransform, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.funcs[name]; dup {
		return fmt.Errorf("%w: %q registered twice", ErrInvalidTransform, name)
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (ApplyFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Replay reapplies the derive-phase transforms to raw in order.
// Canonicalize-phase transforms are skipped.
func Replay(ctx context.Context, raw spectrum.Series, transforms []Transform, reg *Registry, env Env) (spectrum.Series, error) {
	out := raw.Clone()
	for i, t := range transforms {
		if err := ctx.Err(); err != nil {
			return spectrum.Series{}, err
		}
		if err := t.validate(); err != nil {
			return spectrum.Series{}, err
		}
		if t.Phase == PhaseCanonicalize {
			continue
		}

		fn, ok := reg.Lookup(t.Name)
		if !ok {
			return spectrum.Series{}, fmt.Errorf("%w: %q (step %d)", ErrUnknownTransform, t.Name, i)
		}
		next, err := fn(ctx, out, t.Parameters, env)
		if err != nil {
			return spectrum.Series{}, fmt.Errorf("provenance: replay step %d (%s): %w", i, t.Name, err)
		}
		out = next
	}
	return out, nil
}

// CompareSeries checks that got reproduces want within tol (absolute or
// relative) sample by sample, uncertainty included.
func CompareSeries(want, got spectrum.Series, tol float64) error {
	pairs := []struct {
		name      string
		want, got []float64
	}{
		{"axis", want.Axis, got.Axis},
		{"intensity", want.Values, got.Values},
		{"uncertainty", want.Sigma, got.Sigma},
	}
	for _, p := range pairs {
		if len(p.want) != len(p.got) || (p.want == nil) != (p.got == nil) {
			return fmt.Errorf("%w: %s has %d samples, want %d", ErrReplayMismatch, p.name, len(p.got), len(p.want))
		}
		if i := numeric.SliceNearlyEqual(p.want, p.got, tol); i >= 0 {
			return fmt.Errorf("%w: %s[%d] = %v, want %v", ErrReplayMismatch, p.name, i, p.got[i], p.want[i])
		}
	}
	return nil
}

// ReplayEntry replays entry on the raw payload read from env and returns
// the resulting series and basis.
func ReplayEntry(ctx context.Context, entry ManifestEntry, reg *Registry, env Env) (spectrum.Series, string, error) {
	payload, err := env.Read(ctx, entry.SpectrumChecksum)
	if err != nil {
		return spectrum.Series{}, "", fmt.Errorf("provenance: read raw spectrum: %w", err)
	}
	raw, basis, err := spectrum.DecodePayload(payload)
	if err != nil {
		return spectrum.Series{}, "", err
	}
	out, err := Replay(ctx, raw, slices.Clone(entry.TransformsApplied), reg, env)
	if err != nil {
		return spectrum.Series{}, "", err
	}
	return out, basis, nil
}
