// Package config loads the YAML configuration of the spectra tools.
//
// The file is named by the --config flag or the SPECTRA_CONFIG environment
// variable. Values in the file are merged over Default, and ${VAR} or
// ${VAR:-default} patterns in paths are expanded.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-spectra/calib"
	"github.com/cwbudde/algo-spectra/ingest"
	"github.com/cwbudde/algo-spectra/store"
)

// EnvVar names the environment variable holding the config path.
const EnvVar = "SPECTRA_CONFIG"

// Config is the complete configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Log         LogConfig         `yaml:"log"`
}

// StoreConfig configures the content-addressed cache.
type StoreConfig struct {
	// Root is the cache directory.
	Root string `yaml:"root"`
	// PrefixLength is the number of checksum characters per bucket
	// directory.
	PrefixLength int `yaml:"prefix_length"`
	// Compression is one of none, lz4 or zstd.
	Compression string `yaml:"compression"`
	// WriteTimeout bounds a single cache write, e.g. "30s".
	WriteTimeout string `yaml:"write_timeout"`
}

// CalibrationConfig configures the calibration engine.
type CalibrationConfig struct {
	// Degree fixes the wavelength-solution degree; 0 lets the engine pick
	// up to cubic from the number of lines.
	Degree           int     `yaml:"degree"`
	SigmaClip        float64 `yaml:"sigma_clip"`
	MaxIterations    int     `yaml:"max_iterations"`
	MinLines         int     `yaml:"min_lines"`
	FWHMTolerance    float64 `yaml:"fwhm_tolerance"`
	PeakShape        string  `yaml:"peak_shape"`
	ResponseSegments int     `yaml:"response_segments"`
	// Acceptance is an optional expression over rms, withheld_rms, kept,
	// excluded, degree and iterations that a wavelength fit must satisfy.
	Acceptance string `yaml:"acceptance"`
}

// IngestConfig configures the coordinator.
type IngestConfig struct {
	Workers  int    `yaml:"workers"`
	WatchDir string `yaml:"watch_dir"`
	Debounce string `yaml:"debounce"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Root:         defaultRoot(),
			PrefixLength: 2,
			Compression:  string(store.CompressionZstd),
			WriteTimeout: "30s",
		},
		Calibration: CalibrationConfig{
			SigmaClip:        3,
			MaxIterations:    50,
			MinLines:         3,
			FWHMTolerance:    0.01,
			PeakShape:        "gaussian",
			ResponseSegments: 4,
		},
		Ingest: IngestConfig{
			Workers:  4,
			Debounce: "500ms",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// defaultRoot is "spectra" under the user cache directory, or under the
// temp directory when no cache directory is known.
func defaultRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "spectra")
}

// Load reads path, or the file named by SPECTRA_CONFIG when path is
// empty. With neither set it returns Default. The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.Store.Root = expandVars(c.Store.Root)
	c.Ingest.WatchDir = expandVars(c.Ingest.WatchDir)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if v := os.Getenv(parts[1]); v != "" {
			return v
		}
		return parts[2]
	})
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Root == "" {
		errs = append(errs, errors.New("store.root is required"))
	}
	if _, err := store.ParseCompression(c.Store.Compression); err != nil {
		errs = append(errs, fmt.Errorf("store.compression: %w", err))
	}
	if _, err := parseDuration("store.write_timeout", c.Store.WriteTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseDuration("ingest.debounce", c.Ingest.Debounce); err != nil {
		errs = append(errs, err)
	}
	if c.Ingest.Workers < 1 {
		errs = append(errs, fmt.Errorf("ingest.workers must be >= 1, got %d", c.Ingest.Workers))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}

	// The engine options carry their own range checks.
	if opts, err := c.EngineOptions(nil); err != nil {
		errs = append(errs, err)
	} else if _, err := calib.New(opts...); err != nil {
		errs = append(errs, fmt.Errorf("calibration: %w", err))
	}
	if c.Store.PrefixLength < 1 || c.Store.PrefixLength > 8 {
		errs = append(errs, fmt.Errorf("store.prefix_length must be in [1, 8], got %d", c.Store.PrefixLength))
	}

	return errors.Join(errs...)
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, s)
	}
	return d, nil
}

// StoreOptions translates the store section. The config must be valid.
func (c *Config) StoreOptions(logger *zap.Logger) []store.Option {
	timeout, _ := time.ParseDuration(c.Store.WriteTimeout)
	return []store.Option{
		store.WithPrefixLength(c.Store.PrefixLength),
		store.WithCompression(store.Compression(c.Store.Compression)),
		store.WithWriteTimeout(timeout),
		store.WithLogger(logger),
	}
}

// EngineOptions translates the calibration section.
func (c *Config) EngineOptions(logger *zap.Logger) ([]calib.Option, error) {
	shape, err := calib.ParseShape(c.Calibration.PeakShape)
	if err != nil {
		return nil, fmt.Errorf("calibration.peak_shape: %w", err)
	}
	opts := []calib.Option{
		calib.WithSigmaClip(c.Calibration.SigmaClip),
		calib.WithMaxIterations(c.Calibration.MaxIterations),
		calib.WithMinLines(c.Calibration.MinLines),
		calib.WithFWHMTolerance(c.Calibration.FWHMTolerance),
		calib.WithResponseSegments(c.Calibration.ResponseSegments),
		calib.WithPeakShape(shape),
		calib.WithLogger(logger),
	}
	if c.Calibration.Degree != 0 {
		opts = append(opts, calib.WithDegree(c.Calibration.Degree))
	}
	if c.Calibration.Acceptance != "" {
		opts = append(opts, calib.WithAcceptance(c.Calibration.Acceptance))
	}
	return opts, nil
}

// CoordinatorOptions translates the ingest section.
func (c *Config) CoordinatorOptions(logger *zap.Logger) []ingest.Option {
	return []ingest.Option{
		ingest.WithWorkers(c.Ingest.Workers),
		ingest.WithLogger(logger),
	}
}

// Debounce returns the watcher debounce period.
func (c *Config) Debounce() time.Duration {
	d, _ := time.ParseDuration(c.Ingest.Debounce)
	return d
}

// Logger builds the zap logger described by the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
