package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/banshee-data/samplegrid/internal/fsutil"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for belief grid tuning.
// Every field is optional; the Get* methods supply the default for any field
// missing from the JSON, so partial configs are safe.
type TuningConfig struct {
	// Estimator params
	DefaultCovariance *float64 `json:"default_covariance,omitempty"`
	MeasurementNoise  *float64 `json:"measurement_noise,omitempty"`

	// Smoothing params
	BlurKernelSize *int     `json:"blur_kernel_size,omitempty"`
	BlurSigma      *float64 `json:"blur_sigma,omitempty"`

	// Driver loop params
	SyncRadius *int    `json:"sync_radius,omitempty"`
	Iterations *int    `json:"iterations,omitempty"`
	Seed       *uint64 `json:"seed,omitempty"`
	StepDelay  *string `json:"step_delay,omitempty"` // duration string like "250ms"

	// Output params
	PlotWidthInches *float64 `json:"plot_width_inches,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// maxConfigSize bounds tuning files; anything larger is not a tuning file.
const maxConfigSize = 1 << 20

// LoadTuningConfig loads and validates a TuningConfig from a JSON file on disk.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	return LoadTuningConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadTuningConfigFS is LoadTuningConfig reading through fsys. The path must
// have a .json extension and the file must be at most 1 MB.
func LoadTuningConfigFS(fsys fsutil.FileSystem, path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", len(data), maxConfigSize)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/samplegrid/ parent
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.DefaultCovariance != nil && (*c.DefaultCovariance <= 0 || math.IsInf(*c.DefaultCovariance, 0)) {
		return fmt.Errorf("default_covariance must be positive and finite, got %f", *c.DefaultCovariance)
	}
	if c.MeasurementNoise != nil && *c.MeasurementNoise < 0 {
		return fmt.Errorf("measurement_noise must be non-negative, got %f", *c.MeasurementNoise)
	}
	if c.BlurKernelSize != nil && (*c.BlurKernelSize < 1 || *c.BlurKernelSize%2 == 0) {
		return fmt.Errorf("blur_kernel_size must be odd and positive, got %d", *c.BlurKernelSize)
	}
	if c.BlurSigma != nil && *c.BlurSigma <= 0 {
		return fmt.Errorf("blur_sigma must be positive, got %f", *c.BlurSigma)
	}
	if c.SyncRadius != nil && *c.SyncRadius < 0 {
		return fmt.Errorf("sync_radius must be non-negative, got %d", *c.SyncRadius)
	}
	if c.Iterations != nil && *c.Iterations < 0 {
		return fmt.Errorf("iterations must be non-negative, got %d", *c.Iterations)
	}
	if c.StepDelay != nil && *c.StepDelay != "" {
		if _, err := time.ParseDuration(*c.StepDelay); err != nil {
			return fmt.Errorf("invalid step_delay '%s': %w", *c.StepDelay, err)
		}
	}
	if c.PlotWidthInches != nil && *c.PlotWidthInches <= 0 {
		return fmt.Errorf("plot_width_inches must be positive, got %f", *c.PlotWidthInches)
	}
	return nil
}

// GetDefaultCovariance returns the default_covariance value or the default.
func (c *TuningConfig) GetDefaultCovariance() float64 {
	if c.DefaultCovariance == nil {
		return 1.0
	}
	return *c.DefaultCovariance
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 0.5
	}
	return *c.MeasurementNoise
}

// GetBlurKernelSize returns the blur_kernel_size value or the default.
func (c *TuningConfig) GetBlurKernelSize() int {
	if c.BlurKernelSize == nil {
		return 3
	}
	return *c.BlurKernelSize
}

// GetBlurSigma returns the blur_sigma value or the default.
func (c *TuningConfig) GetBlurSigma() float64 {
	if c.BlurSigma == nil {
		return 1.0
	}
	return *c.BlurSigma
}

// GetSyncRadius returns the sync_radius value or the default.
func (c *TuningConfig) GetSyncRadius() int {
	if c.SyncRadius == nil {
		return 2
	}
	return *c.SyncRadius
}

// GetIterations returns the iterations value or the default.
func (c *TuningConfig) GetIterations() int {
	if c.Iterations == nil {
		return 20
	}
	return *c.Iterations
}

// GetSeed returns the seed value. Zero means "seed from the clock".
func (c *TuningConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetStepDelay parses and returns the StepDelay as a time.Duration.
func (c *TuningConfig) GetStepDelay() time.Duration {
	if c.StepDelay == nil || *c.StepDelay == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.StepDelay)
	if err != nil {
		return 0 // default on parse error
	}
	return d
}

// GetPlotWidthInches returns the plot_width_inches value or the default.
func (c *TuningConfig) GetPlotWidthInches() float64 {
	if c.PlotWidthInches == nil {
		return 8.0
	}
	return *c.PlotWidthInches
}
