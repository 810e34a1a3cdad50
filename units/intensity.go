package units

import (
	"math"
	"strings"
)

// Canonical intensity basis tokens.
const (
	BasisAbsorbance = "absorbance"
	BasisCounts     = "counts"
)

const (
	// MinTransmittance is the transmittance fraction floor applied before
	// taking a logarithm.
	MinTransmittance = 1e-12
	// MaxAbsorbance is -log10(MinTransmittance), the absorbance of a
	// fully clamped sample.
	MaxAbsorbance = 12.0
)

// IntensityUnit is a supported intensity unit.
type IntensityUnit int

// Supported intensity units. The first three share the absorbance basis,
// the rest the counts basis.
const (
	Absorbance IntensityUnit = iota
	Transmittance
	PercentTransmittance
	Counts
	Flux
	Relative
)

// String returns the canonical token of the unit.
func (u IntensityUnit) String() string {
	switch u {
	case Absorbance:
		return "absorbance"
	case Transmittance:
		return "transmittance"
	case PercentTransmittance:
		return "%T"
	case Counts:
		return "counts"
	case Flux:
		return "flux"
	case Relative:
		return "relative"
	default:
		return "unknown"
	}
}

// Basis returns the canonical basis the unit converts into.
func (u IntensityUnit) Basis() string {
	switch u {
	case Absorbance, Transmittance, PercentTransmittance:
		return BasisAbsorbance
	default:
		return BasisCounts
	}
}

var intensityTokens = map[string]IntensityUnit{
	"absorbance":            Absorbance,
	"abs":                   Absorbance,
	"a10":                   Absorbance,
	"transmittance":         Transmittance,
	"t":                     Transmittance,
	"%t":                    PercentTransmittance,
	"percent_transmittance": PercentTransmittance,
	"percent transmittance": PercentTransmittance,
	"%transmittance":        PercentTransmittance,
	"counts":                Counts,
	"count":                 Counts,
	"adu":                   Counts,
	"flux":                  Flux,
	"relative":              Relative,
	"arb":                   Relative,
	"arbitrary":             Relative,
}

// ParseIntensityUnit resolves an intensity unit token (case-insensitive).
func ParseIntensityUnit(token string) (IntensityUnit, error) {
	if u, ok := intensityTokens[strings.ToLower(strings.TrimSpace(token))]; ok {
		return u, nil
	}
	return 0, &UnsupportedUnitError{Domain: DomainIntensity, Unit: token}
}

// IntensityBasis returns the canonical basis for an intensity unit token.
func IntensityBasis(unit string) (string, error) {
	u, err := ParseIntensityUnit(unit)
	if err != nil {
		return "", err
	}
	return u.Basis(), nil
}

// IntensityToCanonical converts intensity values declared in unit to the
// unit's canonical basis.
func IntensityToCanonical(values []float64, unit string) (Conversion, error) {
	u, err := ParseIntensityUnit(unit)
	if err != nil {
		return Conversion{}, err
	}
	if err := checkNaN(DomainIntensity, unit, values); err != nil {
		return Conversion{}, err
	}

	out := Conversion{Values: make([]float64, len(values)), Unit: u.Basis()}
	for i, v := range values {
		// Only a saturated absorbance has a canonical meaning at infinity.
		if math.IsInf(v, 0) && !(u == Absorbance && v > 0) {
			return Conversion{}, nonFinite(DomainIntensity, unit, i, v)
		}
		var (
			a       float64
			clamped bool
		)
		switch u {
		case Absorbance:
			a, clamped = clampAbsorbance(v)
		case Transmittance:
			a, clamped = absorbanceFromTransmittance(v)
		case PercentTransmittance:
			a, clamped = absorbanceFromTransmittance(v / 100)
		default:
			a = v
		}
		out.Values[i] = positiveZero(a)
		if clamped {
			out.Clamped = append(out.Clamped, i)
		}
	}

	return out, nil
}

// IntensityFromCanonical converts canonical values to unit. The unit must
// belong to basis, the basis the values are expressed in.
func IntensityFromCanonical(values []float64, basis, unit string) (Conversion, error) {
	u, err := ParseIntensityUnit(unit)
	if err != nil {
		return Conversion{}, err
	}
	if u.Basis() != basis {
		return Conversion{}, &UnsupportedUnitError{
			Domain: DomainIntensity,
			Unit:   unit,
			Reason: "cannot express " + basis + " data in a " + u.Basis() + " unit",
		}
	}
	if err := checkNaN(DomainIntensity, basis, values); err != nil {
		return Conversion{}, err
	}

	out := Conversion{Values: make([]float64, len(values)), Unit: u.String()}
	for i, a := range values {
		var v float64
		switch u {
		case Transmittance:
			v = math.Pow(10, -a)
		case PercentTransmittance:
			v = 100 * math.Pow(10, -a)
		default:
			v = a
		}
		out.Values[i] = positiveZero(v)
	}

	return out, nil
}

// IntensitySigmaToCanonical propagates per-sample standard deviations
// declared in unit into the canonical basis to first order:
// sigma_A = |dA/dx| * sigma_x. values are the raw (declared-unit) samples.
func IntensitySigmaToCanonical(values, sigma []float64, unit string) ([]float64, error) {
	u, err := ParseIntensityUnit(unit)
	if err != nil {
		return nil, err
	}
	if err := checkNaN(DomainIntensity, unit, sigma); err != nil {
		return nil, err
	}

	out := make([]float64, len(sigma))
	for i, s := range sigma {
		switch u {
		case Transmittance:
			t := math.Max(values[i], MinTransmittance)
			out[i] = math.Abs(s) / (t * math.Ln10)
		case PercentTransmittance:
			t := math.Max(values[i]/100, MinTransmittance)
			out[i] = math.Abs(s) / (100 * t * math.Ln10)
		default:
			out[i] = math.Abs(s)
		}
	}

	return out, nil
}

func absorbanceFromTransmittance(t float64) (float64, bool) {
	if t < MinTransmittance {
		return MaxAbsorbance, true
	}
	return -math.Log10(t), false
}

func clampAbsorbance(a float64) (float64, bool) {
	if a > MaxAbsorbance {
		return MaxAbsorbance, true
	}
	return a, false
}

// IntensitySigmaFromCanonical propagates canonical standard deviations to
// unit to first order. values are the canonical samples sigma belongs to.
func IntensitySigmaFromCanonical(values, sigma []float64, basis, unit string) ([]float64, error) {
	u, err := ParseIntensityUnit(unit)
	if err != nil {
		return nil, err
	}
	if u.Basis() != basis {
		return nil, &UnsupportedUnitError{
			Domain: DomainIntensity,
			Unit:   unit,
			Reason: "cannot express " + basis + " uncertainty in a " + u.Basis() + " unit",
		}
	}
	if err := checkNaN(DomainIntensity, basis, sigma); err != nil {
		return nil, err
	}

	out := make([]float64, len(sigma))
	for i, s := range sigma {
		switch u {
		case Transmittance:
			out[i] = math.Pow(10, -values[i]) * math.Ln10 * math.Abs(s)
		case PercentTransmittance:
			out[i] = 100 * math.Pow(10, -values[i]) * math.Ln10 * math.Abs(s)
		default:
			out[i] = math.Abs(s)
		}
	}

	return out, nil
}
