package provenance

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTransform reports a transform without a name or with
	// parameters that do not survive JSON encoding.
	ErrInvalidTransform = errors.New("provenance: invalid transform")
	// ErrUnknownTransform is returned when replay meets a name the
	// registry does not know.
	ErrUnknownTransform = errors.New("provenance: unknown transform")
	// ErrReplayMismatch is returned when a replayed view does not match
	// the checksum recorded in the manifest.
	ErrReplayMismatch = errors.New("provenance: replay does not reproduce view")
	// ErrNoView is returned when no ViewSource is available to build a view.
	ErrNoView = errors.New("provenance: no view source")
)

// Phase separates transforms that produced the cached raw payload from
// transforms that are replayed on top of it.
type Phase string

// Transform phases.
const (
	PhaseCanonicalize Phase = "canonicalize"
	PhaseDerive       Phase = "derive"
)

// Transform is one recorded processing step.
type Transform struct {
	Name       string         `json:"name"`
	Phase      Phase          `json:"phase"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewTransform builds a transform whose parameters are params (a struct or
// map) normalized through JSON.
func NewTransform(name string, phase Phase, params any) (Transform, error) {
	t := Transform{Name: name, Phase: phase}
	if err := t.validate(); err != nil {
		return Transform{}, err
	}
	if params == nil {
		return t, nil
	}

	data, err := json.Marshal(params)
	if err != nil {
		return Transform{}, fmt.Errorf("%w: %s parameters: %v", ErrInvalidTransform, name, err)
	}
	if err := json.Unmarshal(data, &t.Parameters); err != nil {
		return Transform{}, fmt.Errorf("%w: %s parameters must encode to an object: %v", ErrInvalidTransform, name, err)
	}
	return t, nil
}

// DecodeParams decodes transform parameters into dst.
func DecodeParams(params map[string]any, dst any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransform, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransform, err)
	}
	return nil
}

func (t Transform) validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTransform)
	}
	if t.Phase != PhaseCanonicalize && t.Phase != PhaseDerive {
		return fmt.Errorf("%w: %s has phase %q", ErrInvalidTransform, t.Name, t.Phase)
	}
	return nil
}
