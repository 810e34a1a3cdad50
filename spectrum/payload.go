package spectrum

import (
	"fmt"

	"github.com/cwbudde/algo-spectra/internal/codec"
)

type payload struct {
	Axis        []float64 `cbor:"axis"`
	Intensity   []float64 `cbor:"intensity"`
	Uncertainty []float64 `cbor:"uncertainty,omitempty"`
	Basis       string    `cbor:"basis"`
}

// EncodePayload returns the canonical payload for series in basis.
// Equal content always yields equal bytes.
func EncodePayload(series Series, basis string) ([]byte, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if basis != BasisAbsorbance && basis != BasisCounts {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBasis, basis)
	}

	return codec.Marshal(payload{
		Axis:        series.Axis,
		Intensity:   series.Values,
		Uncertainty: series.Sigma,
		Basis:       basis,
	})
}

// DecodePayload parses a canonical payload.
func DecodePayload(data []byte) (Series, string, error) {
	var p payload
	if err := codec.Unmarshal(data, &p); err != nil {
		return Series{}, "", fmt.Errorf("spectrum: decode payload: %w", err)
	}

	s := Series{Axis: p.Axis, Values: p.Intensity, Sigma: p.Uncertainty}
	if err := s.Validate(); err != nil {
		return Series{}, "", err
	}

	return s, p.Basis, nil
}
