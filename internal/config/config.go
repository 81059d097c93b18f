// Package config loads expose-water settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"demclean/internal/cleanup"
	"demclean/internal/scene"
)

// Config holds all expose-water configuration.
type Config struct {
	// Objects whose names match are processed
	TargetPattern string `yaml:"target_pattern"`

	// Edge filter: edges at least this long are removed
	EdgeLength float64 `yaml:"edge_length"`

	// Topology repair
	DegenerateTol float64 `yaml:"degenerate_tol"`
	WeldTol       float64 `yaml:"weld_tol"`
	Converge      bool    `yaml:"converge"`
	MaxPasses     int     `yaml:"max_passes"`

	// Objects processed concurrently within a stage; 0 means one per CPU
	Workers int `yaml:"workers"`

	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultEdgeLength is the threshold the tool ships with. Terrain samples
// sit 5 m apart so anything from about 8 m up separates water faces.
const DefaultEdgeLength = 20.0

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TargetPattern: scene.DefaultTargetPattern,
		EdgeLength:    DefaultEdgeLength,
		DegenerateTol: cleanup.DefaultTolerance,
		WeldTol:       cleanup.DefaultTolerance,
		MaxPasses:     cleanup.DefaultRepairOptions().MaxPasses,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("DEMCLEAN_TARGET_PATTERN"); v != "" {
		c.TargetPattern = v
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"DEMCLEAN_EDGE_LENGTH", &c.EdgeLength},
		{"DEMCLEAN_DEGENERATE_TOL", &c.DegenerateTol},
		{"DEMCLEAN_WELD_TOL", &c.WeldTol},
	}
	for _, f := range floats {
		v := os.Getenv(f.name)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, v, err)
		}
		*f.dst = x
	}
	if v := os.Getenv("DEMCLEAN_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DEMCLEAN_WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	if v := os.Getenv("DEMCLEAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := scene.CompilePattern(c.TargetPattern); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"edge_length":    c.EdgeLength,
		"degenerate_tol": c.DegenerateTol,
		"weld_tol":       c.WeldTol,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number, got %v", name, v)
		}
	}
	if c.MaxPasses < 0 {
		return fmt.Errorf("max_passes must not be negative, got %d", c.MaxPasses)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch debounce %q: %w", c.Watch.Debounce, err)
	}
	return nil
}

// RepairOptions returns the topology repair settings.
func (c *Config) RepairOptions() cleanup.RepairOptions {
	return cleanup.RepairOptions{
		DegenerateTol: c.DegenerateTol,
		WeldTol:       c.WeldTol,
		Converge:      c.Converge,
		MaxPasses:     c.MaxPasses,
	}
}

// GetWorkers returns the worker count, resolving 0 to the number of CPUs.
func (c *Config) GetWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}
