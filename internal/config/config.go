// Package config provides unified configuration loading for inflood.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/inflood/internal/diffusion"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".inflood"

// InfloodConfig contains all inflood configuration settings.
type InfloodConfig struct {
	// Simulation contains the diffusion parameters.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Input describes how edge lists are read.
	Input InputConfig `json:"input" yaml:"input"`

	// Output describes how influence graphs are written.
	Output OutputConfig `json:"output" yaml:"output"`

	// Store configures the run archive.
	Store StoreConfig `json:"store" yaml:"store"`

	// Metrics configures Prometheus textfile export.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Logging contains settings for operational and cascade logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig holds the diffusion parameters.
type SimulationConfig struct {
	// Days is the simulation horizon.
	Days int `json:"days" yaml:"days"`

	// Alpha is the decay exponent of the propagation probability.
	Alpha float64 `json:"alpha" yaml:"alpha"`

	// P0 is the initial propagation probability of newly infected nodes.
	// Negative selects a per-node probability from the node's out-weight.
	P0 float64 `json:"p0" yaml:"p0"`

	// SeedCount is the number of initially infected nodes.
	SeedCount int `json:"seed_count" yaml:"seed_count"`

	// SeedMinDegree is the minimum out-degree of a seed.
	SeedMinDegree int `json:"seed_min_degree" yaml:"seed_min_degree"`

	// SeedMaxAttempts bounds the random draws spent selecting seeds.
	SeedMaxAttempts int `json:"seed_max_attempts" yaml:"seed_max_attempts"`

	// MaxAttemptsPerDay bounds one node's attempts on one day.
	MaxAttemptsPerDay int `json:"max_attempts_per_day" yaml:"max_attempts_per_day"`

	// RNGSeed seeds the pseudo-random source. 0 derives one from the clock.
	RNGSeed uint64 `json:"rng_seed" yaml:"rng_seed"`
}

// Diffusion converts the section to an engine configuration.
func (s SimulationConfig) Diffusion() diffusion.Config {
	cfg := diffusion.DefaultConfig()
	cfg.Days = s.Days
	cfg.Alpha = s.Alpha
	cfg.P0 = s.P0
	cfg.SeedCount = s.SeedCount
	cfg.SeedMinDegree = s.SeedMinDegree
	cfg.SeedMaxAttempts = s.SeedMaxAttempts
	cfg.MaxAttemptsPerDay = s.MaxAttemptsPerDay
	return cfg
}

// InputConfig describes the edge-list format.
type InputConfig struct {
	// Delimiter separates the fields of a row. "\t" and "tab" mean tab.
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// Reverse swaps the direction of every edge.
	Reverse bool `json:"reverse" yaml:"reverse"`

	// Weighted requires a third weight column; otherwise every row weighs 1.
	Weighted bool `json:"weighted" yaml:"weighted"`
}

// OutputConfig describes where results go.
type OutputConfig struct {
	// Format is one of "csv", "arrow", "dot" or "json".
	Format string `json:"format" yaml:"format"`

	// TraceDir receives cascade.jsonl at debug and trace log levels.
	// Supports ${VAR} syntax for env vars.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// StoreConfig configures the run archive.
type StoreConfig struct {
	// Enabled archives every finished run.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file. Empty means ~/.inflood/runs.db.
	// Supports ${VAR} syntax for env vars.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// MetricsConfig configures Prometheus metrics export.
type MetricsConfig struct {
	// Textfile is written in the node-exporter textfile format after each
	// run. Empty disables export. Supports ${VAR} syntax for env vars.
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// LoggingConfig configures inflood's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the cascade trace; "trace" adds every attempt to it.
	Level string `json:"level" yaml:"level"`
}

// Default returns an InfloodConfig with sensible defaults.
func Default() *InfloodConfig {
	d := diffusion.DefaultConfig()
	return &InfloodConfig{
		Simulation: SimulationConfig{
			Days:              d.Days,
			Alpha:             d.Alpha,
			P0:                d.P0,
			SeedCount:         d.SeedCount,
			SeedMinDegree:     d.SeedMinDegree,
			SeedMaxAttempts:   d.SeedMaxAttempts,
			MaxAttemptsPerDay: d.MaxAttemptsPerDay,
		},
		Input: InputConfig{
			Delimiter: ",",
			Weighted:  true,
		},
		Output: OutputConfig{
			Format: "csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.inflood/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.inflood/config.yaml -> environment variables
func Load() (*InfloodConfig, error) {
	return LoadPath("")
}

// LoadPath is Load with an explicit config file. An empty path means the
// default location, which may be absent; an explicit path must exist.
func LoadPath(path string) (*InfloodConfig, error) {
	config := Default()

	if path == "" {
		if p, err := DefaultPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*InfloodConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in paths
	config.Store.Path = expandEnvVars(config.Store.Path)
	config.Metrics.Textfile = expandEnvVars(config.Metrics.Textfile)
	config.Output.TraceDir = expandEnvVars(config.Output.TraceDir)

	return config, nil
}

// Save writes the configuration to path as YAML, creating its directory.
func Save(config *InfloodConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is valid.
func (c *InfloodConfig) Validate() error {
	if err := c.Simulation.Diffusion().Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	if c.Input.Delimiter == "" {
		return fmt.Errorf("input delimiter must not be empty")
	}

	validFormats := map[string]bool{"csv": true, "arrow": true, "dot": true, "json": true}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output format: %s (valid: csv, arrow, dot, json)", c.Output.Format)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *InfloodConfig) {
	if v := os.Getenv("INFLOOD_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Days = n
		}
	}

	if v := os.Getenv("INFLOOD_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Alpha = f
		}
	}

	if v := os.Getenv("INFLOOD_P0"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.P0 = f
		}
	}

	if v := os.Getenv("INFLOOD_SEED_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.SeedCount = n
		}
	}

	if v := os.Getenv("INFLOOD_SEED_MIN_DEGREE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.SeedMinDegree = n
		}
	}

	if v := os.Getenv("INFLOOD_RNG_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.RNGSeed = n
		}
	}

	if v := os.Getenv("INFLOOD_STORE_PATH"); v != "" {
		config.Store.Path = v
		config.Store.Enabled = true
	}

	if v := os.Getenv("INFLOOD_METRICS_FILE"); v != "" {
		config.Metrics.Textfile = v
	}

	if v := os.Getenv("INFLOOD_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
