package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demclean/internal/cleanup"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, `^\d+_dem_\d+$`, cfg.TargetPattern)
	assert.Equal(t, 20.0, cfg.EdgeLength)
	assert.Equal(t, 0.0001, cfg.DegenerateTol)
	assert.Equal(t, 0.0001, cfg.WeldTol)
	assert.False(t, cfg.Converge)
	assert.Equal(t, cleanup.DefaultRepairOptions(), cfg.RepairOptions())
	assert.Equal(t, runtime.NumCPU(), cfg.GetWorkers())
	assert.Equal(t, 500*time.Millisecond, cfg.GetDebounce())
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("partial file keeps other defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "demclean.yaml")
		require.NoError(t, os.WriteFile(path, []byte("edge_length: 8\nconverge: true\nlogging:\n  level: debug\n"), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8.0, cfg.EdgeLength)
		assert.True(t, cfg.Converge)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "text", cfg.Logging.Format)
		assert.Equal(t, 0.0001, cfg.WeldTol)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "demclean.yaml")
		require.NoError(t, os.WriteFile(path, []byte("edge_length: [\n"), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "demclean.yaml")
	cfg := DefaultConfig()
	cfg.EdgeLength = 6
	cfg.Workers = 3
	cfg.Watch.Debounce = "2s"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("values override the file", func(t *testing.T) {
		t.Setenv("DEMCLEAN_TARGET_PATTERN", `^tile_`)
		t.Setenv("DEMCLEAN_EDGE_LENGTH", "8.5")
		t.Setenv("DEMCLEAN_WELD_TOL", "0.001")
		t.Setenv("DEMCLEAN_DEGENERATE_TOL", "0.002")
		t.Setenv("DEMCLEAN_WORKERS", "2")
		t.Setenv("DEMCLEAN_LOG_LEVEL", "warn")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, `^tile_`, cfg.TargetPattern)
		assert.Equal(t, 8.5, cfg.EdgeLength)
		assert.Equal(t, 0.001, cfg.WeldTol)
		assert.Equal(t, 0.002, cfg.DegenerateTol)
		assert.Equal(t, 2, cfg.GetWorkers())
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("empty values are ignored", func(t *testing.T) {
		t.Setenv("DEMCLEAN_EDGE_LENGTH", "")
		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, 20.0, cfg.EdgeLength)
	})

	t.Run("bad numbers are reported", func(t *testing.T) {
		t.Setenv("DEMCLEAN_EDGE_LENGTH", "twenty")
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "DEMCLEAN_EDGE_LENGTH")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad pattern", func(c *Config) { c.TargetPattern = "(" }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"negative passes", func(c *Config) { c.MaxPasses = -1 }},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.EdgeLength = 0
	assert.NoError(t, cfg.Validate(), "a zero threshold is allowed and removes every edge")
}
