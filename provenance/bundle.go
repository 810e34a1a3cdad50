package provenance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/spectrum"
	"github.com/cwbudde/algo-spectra/store"
)

const (
	manifestVersion = 1
	manifestName    = "manifest.json"
	exportDir       = "spectra"
)

// View is the displayable form of one manifest entry.
type View struct {
	Series spectrum.Series
	Basis  string
	// Units are the display units of Series; empty means canonical.
	AxisUnit      string
	IntensityUnit string
}

// ViewSource produces the view of a manifest entry, normally by replaying
// it against the cache.
type ViewSource interface {
	View(ctx context.Context, entry ManifestEntry) (View, error)
}

// Manifest is the exported manifest document.
type Manifest struct {
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Entries   []ManifestEntry `json:"entries"`
}

// Export is the exported view of one entry.
type Export struct {
	SpectrumChecksum string `json:"spectrum_checksum"`
	ViewChecksum     string `json:"view_checksum"`
	Basis            string `json:"basis"`
	AxisUnit         string `json:"axis_unit"`
	IntensityUnit    string `json:"intensity_unit"`
	Axis             Floats `json:"axis"`
	Intensity        Floats `json:"intensity"`
	Uncertainty      Floats `json:"uncertainty,omitempty"`
}

// Bundle is a manifest plus per-entry exports, keyed by slash-separated
// relative path.
type Bundle struct {
	Manifest []byte
	Exports  map[string][]byte
}

// BuildBundle renders entries and their views. Each entry gains the
// checksum and export path of its view; an entry that already records a
// view checksum must reproduce it or ErrReplayMismatch is returned.
func (b *Builder) BuildBundle(ctx context.Context, entries []ManifestEntry, views ViewSource) (*Bundle, error) {
	if views == nil {
		return nil, ErrNoView
	}

	doc := Manifest{Version: manifestVersion, CreatedAt: b.clock.Now(), Entries: make([]ManifestEntry, len(entries))}
	bundle := &Bundle{Exports: make(map[string][]byte, len(entries))}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry = entry.clone()

		view, err := views.View(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("provenance: view of %s: %w", entry.SpectrumChecksum, err)
		}
		payload, err := spectrum.EncodePayload(view.Series, view.Basis)
		if err != nil {
			return nil, fmt.Errorf("provenance: view of %s: %w", entry.SpectrumChecksum, err)
		}
		sum := store.Checksum(payload)
		if entry.ViewChecksum != "" && entry.ViewChecksum != sum {
			return nil, fmt.Errorf("%w: view of %s has checksum %s, manifest records %s",
				ErrReplayMismatch, entry.SpectrumChecksum, shortSum(sum), shortSum(entry.ViewChecksum))
		}
		entry.ViewChecksum = sum
		entry.ExportPath = path.Join(exportDir, fmt.Sprintf("%04d-%s.json", i, shortSum(entry.SpectrumChecksum)))

		export := Export{
			SpectrumChecksum: entry.SpectrumChecksum,
			ViewChecksum:     entry.ViewChecksum,
			Basis:            view.Basis,
			AxisUnit:         view.AxisUnit,
			IntensityUnit:    view.IntensityUnit,
			Axis:             view.Series.Axis,
			Intensity:        view.Series.Values,
			Uncertainty:      view.Series.Sigma,
		}
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("provenance: encode export: %w", err)
		}
		bundle.Exports[entry.ExportPath] = data
		doc.Entries[i] = entry
	}

	manifest, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("provenance: encode manifest: %w", err)
	}
	bundle.Manifest = manifest

	b.logger.Info("bundle built", zap.Int("entries", len(entries)))
	return bundle, nil
}

// ParseManifest decodes an exported manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("provenance: decode manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("provenance: unsupported manifest version %d", m.Version)
	}
	return &m, nil
}

// ParseExport decodes an exported view.
func ParseExport(data []byte) (*Export, error) {
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("provenance: decode export: %w", err)
	}
	return &e, nil
}

// WriteTo writes the bundle below dir.
func (b *Bundle) WriteTo(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, exportDir), 0o755); err != nil {
		return fmt.Errorf("provenance: create bundle directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), b.Manifest, 0o644); err != nil {
		return fmt.Errorf("provenance: write manifest: %w", err)
	}
	for name, data := range b.Exports {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), data, 0o644); err != nil {
			return fmt.Errorf("provenance: write %s: %w", name, err)
		}
	}
	return nil
}

func shortSum(sum string) string {
	if len(sum) > 16 {
		return sum[:16]
	}
	return sum
}

// Floats is a float slice whose JSON form spells non-finite values as the
// strings "+Inf", "-Inf" and "NaN".
type Floats []float64

func (f Floats) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	buf := []byte{'['}
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',')
		}
		switch {
		case math.IsInf(v, 1):
			buf = append(buf, `"+Inf"`...)
		case math.IsInf(v, -1):
			buf = append(buf, `"-Inf"`...)
		case math.IsNaN(v):
			buf = append(buf, `"NaN"`...)
		default:
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
	}
	return append(buf, ']'), nil
}

func (f *Floats) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*f = nil
		return nil
	}

	out := make(Floats, len(raw))
	for i, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			switch s {
			case "+Inf":
				out[i] = math.Inf(1)
			case "-Inf":
				out[i] = math.Inf(-1)
			case "NaN":
				out[i] = math.NaN()
			default:
				return fmt.Errorf("provenance: bad float %q", s)
			}
			continue
		}
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return err
		}
	}
	*f = out
	return nil
}
