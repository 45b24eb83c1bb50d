package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/samplegrid/internal/fsutil"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestEmptyTuningConfig_Defaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, 1.0, cfg.GetDefaultCovariance())
	assert.Equal(t, 0.5, cfg.GetMeasurementNoise())
	assert.Equal(t, 3, cfg.GetBlurKernelSize())
	assert.Equal(t, 1.0, cfg.GetBlurSigma())
	assert.Equal(t, 2, cfg.GetSyncRadius())
	assert.Equal(t, 20, cfg.GetIterations())
	assert.Equal(t, uint64(0), cfg.GetSeed())
	assert.Equal(t, time.Duration(0), cfg.GetStepDelay())
	assert.Equal(t, 8.0, cfg.GetPlotWidthInches())
	assert.NoError(t, cfg.Validate())
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "test_config.json", `{
  "measurement_noise": 0.25,
  "blur_kernel_size": 5,
  "blur_sigma": 2.0,
  "seed": 42,
  "step_delay": "250ms"
}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.GetMeasurementNoise())
	assert.Equal(t, 5, cfg.GetBlurKernelSize())
	assert.Equal(t, 2.0, cfg.GetBlurSigma())
	assert.Equal(t, uint64(42), cfg.GetSeed())
	assert.Equal(t, 250*time.Millisecond, cfg.GetStepDelay())

	// Omitted fields fall back to defaults.
	assert.Nil(t, cfg.DefaultCovariance)
	assert.Equal(t, 1.0, cfg.GetDefaultCovariance())
	assert.Equal(t, 20, cfg.GetIterations())
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	t.Run("wrong extension", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", `{}`)
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".json extension")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read")
	})

	t.Run("bad json", func(t *testing.T) {
		path := writeConfig(t, "bad.json", `{"blur_sigma": `)
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("too large", func(t *testing.T) {
		path := writeConfig(t, "big.json", `{"pad": "`+strings.Repeat("x", 1024*1024)+`"}`)
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, "invalid.json", `{"blur_kernel_size": 4}`)
		_, err := LoadTuningConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestLoadTuningConfigFS(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/etc/samplegrid/tuning.json", []byte(`{"iterations": 7, "sync_radius": 0}`), 0644))

	cfg, err := LoadTuningConfigFS(mfs, "/etc/samplegrid/tuning.json")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.GetIterations())
	assert.Equal(t, 0, cfg.GetSyncRadius())

	_, err = LoadTuningConfigFS(mfs, "/etc/samplegrid/missing.json")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  TuningConfig
		want string
	}{
		{"zero covariance", TuningConfig{DefaultCovariance: ptrFloat64(0)}, "default_covariance"},
		{"negative noise", TuningConfig{MeasurementNoise: ptrFloat64(-1)}, "measurement_noise"},
		{"even kernel", TuningConfig{BlurKernelSize: ptrInt(2)}, "blur_kernel_size"},
		{"zero sigma", TuningConfig{BlurSigma: ptrFloat64(0)}, "blur_sigma"},
		{"negative radius", TuningConfig{SyncRadius: ptrInt(-1)}, "sync_radius"},
		{"negative iterations", TuningConfig{Iterations: ptrInt(-5)}, "iterations"},
		{"bad delay", TuningConfig{StepDelay: ptrString("soon")}, "step_delay"},
		{"zero plot width", TuningConfig{PlotWidthInches: ptrFloat64(0)}, "plot_width_inches"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	ok := TuningConfig{
		DefaultCovariance: ptrFloat64(2),
		MeasurementNoise:  ptrFloat64(0),
		Seed:              ptrUint64(7),
		StepDelay:         ptrString(""),
	}
	assert.NoError(t, ok.Validate())
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 3, cfg.GetBlurKernelSize())
	assert.Equal(t, 0.5, cfg.GetMeasurementNoise())
	assert.Equal(t, 20, cfg.GetIterations())
}
