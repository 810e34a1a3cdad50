package units

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedUnit is the kind of every unit-token failure.
	ErrUnsupportedUnit = errors.New("units: unsupported unit")
	// ErrNonFinite is the kind of every NaN, infinite or overflowing
	// sample failure.
	ErrNonFinite = errors.New("units: non-finite value")
)

// Domain names the quantity a unit applies to.
type Domain string

// Known domains.
const (
	DomainAxis      Domain = "axis"
	DomainIntensity Domain = "intensity"
)

// UnsupportedUnitError reports an unknown or incompatible unit token.
type UnsupportedUnitError struct {
	Domain Domain
	Unit   string
	Reason string
}

func (e *UnsupportedUnitError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("units: unsupported %s unit %q: %s", e.Domain, e.Unit, e.Reason)
	}
	return fmt.Sprintf("units: unsupported %s unit %q", e.Domain, e.Unit)
}

func (e *UnsupportedUnitError) Unwrap() error { return ErrUnsupportedUnit }

// NonFiniteError reports a NaN or infinite sample, or a finite sample whose
// conversion leaves the float64 range. Value is always the input sample.
type NonFiniteError struct {
	Domain Domain
	Unit   string
	Index  int
	Value  float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("units: %s value %v at index %d (unit %q) is not finite", e.Domain, e.Value, e.Index, e.Unit)
}

func (e *NonFiniteError) Unwrap() error { return ErrNonFinite }
