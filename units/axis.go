package units

import (
	"math"
	"strings"
)

// CanonicalAxis is the canonical axis unit token.
const CanonicalAxis = "nm"

// wavenumberFactor converts between nm and cm⁻¹: nm = 1e7 / cm⁻¹.
const wavenumberFactor = 1e7

// AxisUnit is a supported spectral axis unit.
type AxisUnit int

// Supported axis units.
const (
	Nanometer AxisUnit = iota
	Angstrom
	Micrometer
	Wavenumber
)

// String returns the canonical token of the unit.
func (u AxisUnit) String() string {
	switch u {
	case Nanometer:
		return "nm"
	case Angstrom:
		return "angstrom"
	case Micrometer:
		return "um"
	case Wavenumber:
		return "cm-1"
	default:
		return "unknown"
	}
}

var axisTokens = map[string]AxisUnit{
	"nm":          Nanometer,
	"nanometer":   Nanometer,
	"nanometers":  Nanometer,
	"nanometre":   Nanometer,
	"nanometres":  Nanometer,
	"a":           Angstrom,
	"å":           Angstrom, // also the lowered U+212B angstrom sign
	"aa":          Angstrom,
	"angstrom":    Angstrom,
	"angstroms":   Angstrom,
	"um":          Micrometer,
	"µm":          Micrometer, // micro sign
	"μm":          Micrometer, // greek mu
	"micron":      Micrometer,
	"microns":     Micrometer,
	"micrometer":  Micrometer,
	"micrometers": Micrometer,
	"micrometre":  Micrometer,
	"cm-1":        Wavenumber,
	"cm^-1":       Wavenumber,
	"cm⁻¹":        Wavenumber,
	"1/cm":        Wavenumber,
	"wavenumber":  Wavenumber,
	"wavenumbers": Wavenumber,
	"kayser":      Wavenumber,
}

// ParseAxisUnit resolves an axis unit token (case-insensitive).
func ParseAxisUnit(token string) (AxisUnit, error) {
	key := strings.ToLower(strings.TrimSpace(token))
	if u, ok := axisTokens[key]; ok {
		return u, nil
	}
	return 0, &UnsupportedUnitError{Domain: DomainAxis, Unit: token}
}

// AxisToCanonical converts axis values declared in unit to nanometres.
// +Inf in a wavelength unit is the sentinel itself and is reported in
// Sentinels. Any other infinity, or a value whose conversion overflows,
// fails with a NonFiniteError.
func AxisToCanonical(values []float64, unit string) (Conversion, error) {
	u, err := ParseAxisUnit(unit)
	if err != nil {
		return Conversion{}, err
	}
	if err := checkNaN(DomainAxis, unit, values); err != nil {
		return Conversion{}, err
	}

	out := Conversion{Values: make([]float64, len(values)), Unit: CanonicalAxis}
	for i, v := range values {
		var nm float64
		switch u {
		case Nanometer:
			nm = v
		case Angstrom:
			nm = v / 10
		case Micrometer:
			nm = v * 1000
		case Wavenumber:
			nm = reciprocal(v)
		}
		if err := out.set(i, u, v, nm, unit); err != nil {
			return Conversion{}, err
		}
	}

	return out, nil
}

// AxisFromCanonical converts nanometre values to unit.
func AxisFromCanonical(values []float64, unit string) (Conversion, error) {
	u, err := ParseAxisUnit(unit)
	if err != nil {
		return Conversion{}, err
	}
	if err := checkNaN(DomainAxis, CanonicalAxis, values); err != nil {
		return Conversion{}, err
	}

	out := Conversion{Values: make([]float64, len(values)), Unit: u.String()}
	for i, v := range values {
		var x float64
		switch u {
		case Nanometer:
			x = v
		case Angstrom:
			x = v * 10
		case Micrometer:
			x = v / 1000
		case Wavenumber:
			x = reciprocal(v)
		}
		if err := out.set(i, u, v, x, CanonicalAxis); err != nil {
			return Conversion{}, err
		}
	}

	return out, nil
}

// set stores the converted sample x of input v at i. The sentinel pairs
// are +Inf with +Inf between wavelength units and +Inf with zero across
// the reciprocal.
func (c *Conversion) set(i int, u AxisUnit, v, x float64, unit string) error {
	var sentinel bool
	if u == Wavenumber {
		sentinel = v == 0 || isSentinel(v)
	} else {
		sentinel = isSentinel(v)
	}
	switch {
	case sentinel:
		c.Sentinels = append(c.Sentinels, i)
	case math.IsInf(v, 0) || math.IsInf(x, 0):
		return nonFinite(DomainAxis, unit, i, v)
	}
	c.Values[i] = positiveZero(x)
	return nil
}

// reciprocal maps v to 1e7/v, sending zero of either sign to the +Inf
// sentinel and +Inf back to zero.
func reciprocal(v float64) float64 {
	switch {
	case v == 0:
		return math.Inf(1)
	case isSentinel(v):
		return 0
	default:
		return wavenumberFactor / v
	}
}
