package samplegrid

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/banshee-data/samplegrid/internal/config"
)

// Rand is the source of uniform draws in [0, 1) used for sampling.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// Config provides a configuration builder for grid options. It allows
// setting parameters with defaults and validation before building a grid.
type Config struct {
	DefaultCovariance float64 // Initial covariance of every node (default: 1.0)
	Seed              uint64  // Sampling seed; 0 seeds from the runtime source
	Rand              Rand    // Overrides Seed when set
}

// DefaultConfig returns a Config with the built-in tuning defaults.
func DefaultConfig() *Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) *Config {
	return &Config{
		DefaultCovariance: cfg.GetDefaultCovariance(),
		Seed:              cfg.GetSeed(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DefaultCovariance <= 0 || math.IsNaN(c.DefaultCovariance) || math.IsInf(c.DefaultCovariance, 0) {
		return fmt.Errorf("DefaultCovariance must be positive and finite, got %f", c.DefaultCovariance)
	}
	return nil
}

// Options converts the config into constructor options.
func (c *Config) Options() []Option {
	opts := []Option{WithDefaultCovariance(c.DefaultCovariance)}
	if c.Rand != nil {
		return append(opts, WithRand(c.Rand))
	}
	if c.Seed != 0 {
		opts = append(opts, WithSeed(c.Seed))
	}
	return opts
}

// WithDefaultCovariance sets the initial node covariance.
func (c *Config) WithDefaultCovariance(v float64) *Config {
	c.DefaultCovariance = v
	return c
}

// WithSeed sets the sampling seed.
func (c *Config) WithSeed(seed uint64) *Config {
	c.Seed = seed
	return c
}

// WithRand sets an explicit random source.
func (c *Config) WithRand(r Rand) *Config {
	c.Rand = r
	return c
}

// Option customises a grid at construction.
type Option func(*options)

type options struct {
	covariance float64
	rng        Rand
}

// WithDefaultCovariance sets the initial covariance of every node.
func WithDefaultCovariance(v float64) Option {
	return func(o *options) { o.covariance = v }
}

// WithRand injects the random source used by Sample and SampleAll.
func WithRand(r Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithSeed uses a PCG source seeded with seed, for reproducible sampling.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.rng = NewSeededRand(seed) }
}

// NewSeededRand returns a deterministic source for the given seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func buildOptions(opts []Option) (options, error) {
	o := options{covariance: DefaultConfig().DefaultCovariance}
	for _, opt := range opts {
		opt(&o)
	}
	if o.covariance <= 0 || math.IsNaN(o.covariance) || math.IsInf(o.covariance, 0) {
		return o, fmt.Errorf("%w: default covariance must be positive and finite, got %g", ErrMalformedInput, o.covariance)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o, nil
}
