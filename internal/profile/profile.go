package profile

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Shape identifies a line profile.
type Shape int

// Supported shapes. Voigt is the pseudo-Voigt mixture.
const (
	Gaussian Shape = iota
	Lorentzian
	Voigt
)

// MaxTaps bounds the kernel length.
const MaxTaps = 8191

// String returns the lower-case shape name.
func (s Shape) String() string {
	switch s {
	case Gaussian:
		return "gaussian"
	case Lorentzian:
		return "lorentzian"
	case Voigt:
		return "voigt"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ParseShape parses a shape name.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gaussian", "gauss":
		return Gaussian, nil
	case "lorentzian", "lorentz", "cauchy":
		return Lorentzian, nil
	case "voigt", "pseudo-voigt":
		return Voigt, nil
	default:
		return 0, fmt.Errorf("profile: unknown shape %q", name)
	}
}

// Option configures kernel generation.
type Option func(*config)

type config struct {
	eta       float64
	halfWidth float64
}

func defaultConfig(s Shape) config {
	cfg := config{eta: 0.5, halfWidth: 4}
	if s == Lorentzian {
		cfg.halfWidth = 25
	}
	if s == Voigt {
		cfg.halfWidth = 15
	}
	return cfg
}

// WithEta sets the pseudo-Voigt mixing factor.
func WithEta(eta float64) Option {
	return func(c *config) {
		c.eta = eta
	}
}

// Evaluate returns the unit-peak profile at offset x from the centre.
// eta is only used by Voigt.
func Evaluate(s Shape, x, fwhm, eta float64) float64 {
	switch s {
	case Lorentzian:
		return lorentzian(x, fwhm)
	case Voigt:
		return (1-eta)*gaussian(x, fwhm) + eta*lorentzian(x, fwhm)
	default:
		return gaussian(x, fwhm)
	}
}

func gaussian(x, fwhm float64) float64 {
	d := x / fwhm
	return math.Exp(-4 * math.Ln2 * d * d)
}

func lorentzian(x, fwhm float64) float64 {
	d := 2 * x / fwhm
	return 1 / (1 + d*d)
}

// SigmaFromFWHM converts a Gaussian FWHM to its standard deviation.
func SigmaFromFWHM(fwhm float64) float64 {
	return fwhm / (2 * math.Sqrt(2*math.Ln2))
}

// Kernel samples shape with the given FWHM on a grid of spacing step and
// returns odd-length taps normalised to sum to one.
func Kernel(s Shape, fwhm, step float64, opts ...Option) ([]float64, error) {
	if err := validateKernel(fwhm, step); err != nil {
		return nil, err
	}

	cfg := defaultConfig(s)
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if s == Voigt {
		if err := validateEta(cfg.eta); err != nil {
			return nil, err
		}
	}

	half := int(math.Ceil(cfg.halfWidth * fwhm / step))
	if half < 1 {
		half = 1
	}
	if 2*half+1 > MaxTaps {
		return nil, fmt.Errorf("%w: %d taps for fwhm %v at step %v", errKernelTooWide, 2*half+1, fwhm, step)
	}

	taps := make([]float64, 2*half+1)
	for i := range taps {
		taps[i] = Evaluate(s, float64(i-half)*step, fwhm, cfg.eta)
	}

	sum := vecmath.Sum(taps)
	if sum == 0 {
		return nil, errZeroSum
	}
	vecmath.ScaleBlockInPlace(taps, 1/sum)

	return taps, nil
}
