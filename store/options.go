package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/internal/clock"
)

const (
	defaultPrefixLength = 2
	defaultWriteTimeout = 30 * time.Second
)

// Option configures a Store.
type Option func(*config) error

type config struct {
	prefixLength int
	compression  Compression
	writeTimeout time.Duration
	logger       *zap.Logger
	clock        clock.Clock
}

func defaultConfig() config {
	return config{
		prefixLength: defaultPrefixLength,
		compression:  CompressionZstd,
		writeTimeout: defaultWriteTimeout,
		logger:       zap.NewNop(),
		clock:        clock.Real(),
	}
}

// WithPrefixLength sets how many leading hex characters of a checksum name
// the object fan-out directory (1..8).
func WithPrefixLength(n int) Option {
	return func(cfg *config) error {
		if n < 1 || n > 8 {
			return fmt.Errorf("store: prefix length must be in [1, 8]: %d", n)
		}
		cfg.prefixLength = n
		return nil
	}
}

// WithCompression sets the on-disk payload compression.
func WithCompression(c Compression) Option {
	return func(cfg *config) error {
		if _, err := ParseCompression(string(c)); err != nil {
			return err
		}
		cfg.compression = c
		return nil
	}
}

// WithWriteTimeout bounds every Put and flag write.
func WithWriteTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return fmt.Errorf("store: write timeout must be > 0: %v", d)
		}
		cfg.writeTimeout = d
		return nil
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) error {
		if logger != nil {
			cfg.logger = logger
		}
		return nil
	}
}

// WithClock sets the clock used for entry timestamps.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) error {
		if c != nil {
			cfg.clock = c
		}
		return nil
	}
}
