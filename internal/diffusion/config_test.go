package diffusion

import (
	"math"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Days != 100 || cfg.Alpha != 1.17 || cfg.P0 != 0.93 {
		t.Errorf("defaults = days %d alpha %v p0 %v", cfg.Days, cfg.Alpha, cfg.P0)
	}
	if cfg.SeedCount != 5 || cfg.SeedMinDegree != 5 {
		t.Errorf("seed defaults = count %d min degree %d", cfg.SeedCount, cfg.SeedMinDegree)
	}
	if cfg.UsesDynamicP0() {
		t.Error("default config should use a fixed p0")
	}
}

func TestConfig_UsesDynamicP0(t *testing.T) {
	cfg := DefaultConfig()
	cfg.P0 = -1
	if !cfg.UsesDynamicP0() {
		t.Error("negative p0 should select dynamic p0")
	}
	cfg.P0 = 0
	if cfg.UsesDynamicP0() {
		t.Error("zero p0 is a fixed probability")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative days", func(c *Config) { c.Days = -1 }},
		{"zero alpha", func(c *Config) { c.Alpha = 0 }},
		{"infinite alpha", func(c *Config) { c.Alpha = math.Inf(1) }},
		{"p0 above one", func(c *Config) { c.P0 = 1.5 }},
		{"nan p0", func(c *Config) { c.P0 = math.NaN() }},
		{"no seeds", func(c *Config) { c.SeedCount = 0 }},
		{"negative min degree", func(c *Config) { c.SeedMinDegree = -1 }},
		{"seed p0 above one", func(c *Config) { c.SeedP0 = 2 }},
		{"no seed attempts", func(c *Config) { c.SeedMaxAttempts = 0 }},
		{"no daily attempts", func(c *Config) { c.MaxAttemptsPerDay = 0 }},
		{"negative min probability", func(c *Config) { c.MinProbability = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
