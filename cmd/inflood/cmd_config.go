package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/nvandessel/inflood/internal/config"
	"github.com/spf13/cobra"
)

// configKeys lists every key config get and set accept, in display order.
var configKeys = []string{
	"simulation.days",
	"simulation.alpha",
	"simulation.p0",
	"simulation.seed_count",
	"simulation.seed_min_degree",
	"simulation.seed_max_attempts",
	"simulation.max_attempts_per_day",
	"simulation.rng_seed",
	"input.delimiter",
	"input.reverse",
	"input.weighted",
	"output.format",
	"output.trace_dir",
	"store.enabled",
	"store.path",
	"metrics.textfile",
	"logging.level",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage inflood configuration",
		Long: `View and modify inflood configuration settings.

Configuration is stored in ~/.inflood/config.yaml, or the file named by
--config. INFLOOD_* environment variables override it at run time.

Examples:
  inflood config list                          # Show all settings
  inflood config get simulation.alpha          # Get a specific setting
  inflood config set -- simulation.p0 -1       # Use dynamic p0
  inflood config set store.enabled true        # Archive every run`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}

			w := cmd.OutOrStdout()
			path, _ := configPath(cmd)
			fmt.Fprintf(w, "Configuration (%s):\n", path)
			section := ""
			for _, key := range configKeys {
				if s := sectionOf(key); s != section {
					section = s
					fmt.Fprintln(w)
				}
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(w, "  %-34s %s\n", key+":", displayValue(key, value))
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			// Environment overrides are not persisted.
			cfg, err := loadConfigFile(path)
			if err != nil {
				return err
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}

			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
					"path":   path,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// loadConfigFile loads path without environment overrides. A missing file
// yields the defaults.
func loadConfigFile(path string) (*config.InfloodConfig, error) {
	cfg, err := config.LoadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.InfloodConfig, key string) (interface{}, bool) {
	switch key {
	case "simulation.days":
		return cfg.Simulation.Days, true
	case "simulation.alpha":
		return cfg.Simulation.Alpha, true
	case "simulation.p0":
		return cfg.Simulation.P0, true
	case "simulation.seed_count":
		return cfg.Simulation.SeedCount, true
	case "simulation.seed_min_degree":
		return cfg.Simulation.SeedMinDegree, true
	case "simulation.seed_max_attempts":
		return cfg.Simulation.SeedMaxAttempts, true
	case "simulation.max_attempts_per_day":
		return cfg.Simulation.MaxAttemptsPerDay, true
	case "simulation.rng_seed":
		return cfg.Simulation.RNGSeed, true
	case "input.delimiter":
		return cfg.Input.Delimiter, true
	case "input.reverse":
		return cfg.Input.Reverse, true
	case "input.weighted":
		return cfg.Input.Weighted, true
	case "output.format":
		return cfg.Output.Format, true
	case "output.trace_dir":
		return cfg.Output.TraceDir, true
	case "store.enabled":
		return cfg.Store.Enabled, true
	case "store.path":
		return cfg.Store.Path, true
	case "metrics.textfile":
		return cfg.Metrics.Textfile, true
	case "logging.level":
		return cfg.Logging.Level, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.InfloodConfig, key, value string) error {
	var err error
	switch key {
	case "simulation.days":
		cfg.Simulation.Days, err = parseInt(key, value)
	case "simulation.alpha":
		cfg.Simulation.Alpha, err = parseFloat(key, value)
	case "simulation.p0":
		cfg.Simulation.P0, err = parseFloat(key, value)
	case "simulation.seed_count":
		cfg.Simulation.SeedCount, err = parseInt(key, value)
	case "simulation.seed_min_degree":
		cfg.Simulation.SeedMinDegree, err = parseInt(key, value)
	case "simulation.seed_max_attempts":
		cfg.Simulation.SeedMaxAttempts, err = parseInt(key, value)
	case "simulation.max_attempts_per_day":
		cfg.Simulation.MaxAttemptsPerDay, err = parseInt(key, value)
	case "simulation.rng_seed":
		cfg.Simulation.RNGSeed, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			err = fmt.Errorf("invalid %s: %s (must be a non-negative integer)", key, value)
		}
	case "input.delimiter":
		cfg.Input.Delimiter = value
	case "input.reverse":
		cfg.Input.Reverse = value == "true" || value == "1"
	case "input.weighted":
		cfg.Input.Weighted = value == "true" || value == "1"
	case "output.format":
		cfg.Output.Format = value
	case "output.trace_dir":
		cfg.Output.TraceDir = value
	case "store.enabled":
		cfg.Store.Enabled = value == "true" || value == "1"
	case "store.path":
		cfg.Store.Path = value
	case "metrics.textfile":
		cfg.Metrics.Textfile = value
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return err
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s (must be an integer)", key, value)
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s (must be a number)", key, value)
	}
	return f, nil
}

func sectionOf(key string) string {
	section, _, _ := strings.Cut(key, ".")
	return section
}

// displayValue renders a value for config list.
func displayValue(key string, value interface{}) string {
	switch v := value.(type) {
	case string:
		switch {
		case key == "input.delimiter":
			return strconv.Quote(v)
		case key == "store.path":
			return valueOrDefault(v, "(default ~/.inflood/runs.db)")
		default:
			return valueOrDefault(v, "(not set)")
		}
	case float64:
		if key == "simulation.p0" && v < 0 {
			return fmt.Sprintf("%g (dynamic)", v)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case uint64:
		if key == "simulation.rng_seed" && v == 0 {
			return "0 (from clock)"
		}
		return strconv.FormatUint(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
