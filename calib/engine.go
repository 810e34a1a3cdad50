package calib

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/internal/clock"
	"github.com/cwbudde/algo-spectra/internal/profile"
)

// Shape is a line profile.
type Shape = profile.Shape

// Supported line profiles.
const (
	Gaussian   = profile.Gaussian
	Lorentzian = profile.Lorentzian
	Voigt      = profile.Voigt
)

// ParseShape parses "gaussian", "lorentzian" or "voigt".
func ParseShape(name string) (Shape, error) { return profile.ParseShape(name) }

const (
	defaultDegree           = 3
	maxDegree               = 5
	defaultSigmaClip        = 3.0
	defaultMaxIterations    = 50
	defaultMinLines         = 3
	defaultFWHMTolerance    = 0.01
	defaultResponseSegments = 4

	maxLineIterations   = 200
	uniformityTolerance = 0.02
)

// Option configures an Engine.
type Option func(*config) error

type config struct {
	degree           int
	degreeFixed      bool
	sigmaClip        float64
	maxIterations    int
	minLines         int
	fwhmTolerance    float64
	peakShape        Shape
	responseSegments int
	clock            clock.Clock
	logger           *zap.Logger
	acceptance       *Acceptance
}

func defaultConfig() config {
	return config{
		degree:           defaultDegree,
		sigmaClip:        defaultSigmaClip,
		maxIterations:    defaultMaxIterations,
		minLines:         defaultMinLines,
		fwhmTolerance:    defaultFWHMTolerance,
		peakShape:        Gaussian,
		responseSegments: defaultResponseSegments,
		clock:            clock.Real(),
		logger:           zap.NewNop(),
	}
}

// WithDegree fixes the wavelength-solution polynomial degree (1..5).
// Without it the degree is 3, lowered to one less than the number of
// usable lines when fewer are available.
func WithDegree(degree int) Option {
	return func(cfg *config) error {
		if degree < 1 || degree > maxDegree {
			return fmt.Errorf("calib: degree must be in [1, %d]: %d", maxDegree, degree)
		}
		cfg.degree = degree
		cfg.degreeFixed = true
		return nil
	}
}

// WithSigmaClip sets the clipping threshold in robust standard deviations.
func WithSigmaClip(k float64) Option {
	return func(cfg *config) error {
		if !(k > 0) || math.IsInf(k, 0) {
			return fmt.Errorf("calib: sigma clip must be > 0 and finite: %f", k)
		}
		cfg.sigmaClip = k
		return nil
	}
}

// WithMaxIterations caps the sigma-clipping iterations.
func WithMaxIterations(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("calib: max iterations must be >= 1: %d", n)
		}
		cfg.maxIterations = n
		return nil
	}
}

// WithMinLines sets the minimum number of reference lines a wavelength
// solution needs regardless of degree.
func WithMinLines(n int) Option {
	return func(cfg *config) error {
		if n < 2 {
			return fmt.Errorf("calib: min lines must be >= 2: %d", n)
		}
		cfg.minLines = n
		return nil
	}
}

// WithFWHMTolerance sets the relative tolerance under which two FWHMs are
// considered equal.
func WithFWHMTolerance(tol float64) Option {
	return func(cfg *config) error {
		if tol < 0 || tol >= 0.5 || math.IsNaN(tol) {
			return fmt.Errorf("calib: fwhm tolerance must be in [0, 0.5): %f", tol)
		}
		cfg.fwhmTolerance = tol
		return nil
	}
}

// WithPeakShape sets the default line profile used by EstimateLSF.
func WithPeakShape(shape Shape) Option {
	return func(cfg *config) error {
		if shape != Gaussian && shape != Lorentzian && shape != Voigt {
			return fmt.Errorf("calib: unknown peak shape %d", int(shape))
		}
		cfg.peakShape = shape
		return nil
	}
}

// WithResponseSegments sets the number of cubic B-spline segments used to
// smooth response functions.
func WithResponseSegments(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("calib: response segments must be >= 1: %d", n)
		}
		cfg.responseSegments = n
		return nil
	}
}

// WithClock sets the clock used for artifact timestamps.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) error {
		if c != nil {
			cfg.clock = c
		}
		return nil
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) error {
		if logger != nil {
			cfg.logger = logger
		}
		return nil
	}
}

// WithAcceptance installs an acceptance rule evaluated after every
// wavelength-solution fit. An empty rule disables acceptance checks.
func WithAcceptance(rule string) Option {
	return func(cfg *config) error {
		if rule == "" {
			cfg.acceptance = nil
			return nil
		}
		a, err := CompileAcceptance(rule)
		if err != nil {
			return err
		}
		cfg.acceptance = a
		return nil
	}
}

// Engine fits calibration artifacts. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	cfg config
}

// New builds an Engine.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return &Engine{cfg: cfg}, nil
}

// FWHMTolerance returns the configured relative FWHM tolerance.
func (e *Engine) FWHMTolerance() float64 { return e.cfg.fwhmTolerance }

// PeakShape returns the configured default line profile.
func (e *Engine) PeakShape() Shape { return e.cfg.peakShape }

func (e *Engine) newArtifact(kind Kind) (*Artifact, error) {
	return newArtifact(kind, e.cfg.clock.Now())
}
