// Package diffusion simulates the day-by-day spread of influence over a
// weighted directed network. A handful of well-connected seed nodes start
// infected; each day every infected node fires at weighted-random neighbors
// with a probability that decays as a power of the days since its own
// infection. Every firing is recorded as one edge of an influence
// multigraph, whether or not it infected the target.
package diffusion

import (
	"fmt"
	"math"
)

const (
	// DefaultSeedP0 is the initial propagation probability given to seeds.
	DefaultSeedP0 = 0.9

	// DefaultDynamicP0 is the dynamic initial probability of a node whose
	// outgoing weight sums to zero.
	DefaultDynamicP0 = 0.9

	// DefaultMinProbability is the probability below which a node stops
	// firing for the day.
	DefaultMinProbability = 1e-8
)

// Config holds the parameters of one simulation.
type Config struct {
	// Days is the simulation horizon; days 1..Days are simulated. Default: 100.
	Days int `json:"days"`

	// Alpha is the decay exponent of the propagation probability. Default: 1.17.
	Alpha float64 `json:"alpha"`

	// P0 is the initial propagation probability of newly infected nodes.
	// A negative value selects a per-node probability derived from the
	// node's outgoing weight (see DynamicP0). Default: 0.93.
	P0 float64 `json:"p0"`

	// SeedCount is the number of initially infected nodes. Default: 5.
	SeedCount int `json:"seed_count"`

	// SeedMinDegree is the minimum out-degree of a seed. Default: 5.
	SeedMinDegree int `json:"seed_min_degree"`

	// SeedP0 is the initial propagation probability of seeds. Default: 0.9.
	SeedP0 float64 `json:"seed_p0"`

	// SeedMaxAttempts bounds the number of random draws spent selecting
	// seeds. Default: 100000.
	SeedMaxAttempts int `json:"seed_max_attempts"`

	// MaxAttemptsPerDay bounds the propagation attempts of one node on one
	// day, which only matters when its probability is at or near 1.
	// Default: 10000.
	MaxAttemptsPerDay int `json:"max_attempts_per_day"`

	// MinProbability is the probability at or below which a node does not
	// fire. Default: 1e-8.
	MinProbability float64 `json:"min_probability"`
}

// DefaultConfig returns the default simulation configuration.
func DefaultConfig() Config {
	return Config{
		Days:              100,
		Alpha:             1.17,
		P0:                0.93,
		SeedCount:         5,
		SeedMinDegree:     5,
		SeedP0:            DefaultSeedP0,
		SeedMaxAttempts:   100000,
		MaxAttemptsPerDay: 10000,
		MinProbability:    DefaultMinProbability,
	}
}

// UsesDynamicP0 reports whether newly infected nodes get a per-node
// initial probability instead of the fixed P0.
func (c Config) UsesDynamicP0() bool {
	return c.P0 < 0
}

// Validate checks that the configuration can be simulated.
func (c Config) Validate() error {
	if c.Days < 0 {
		return fmt.Errorf("days must be non-negative, got %d", c.Days)
	}
	if !(c.Alpha > 0) || math.IsInf(c.Alpha, 0) {
		return fmt.Errorf("alpha must be a positive number, got %v", c.Alpha)
	}
	if math.IsNaN(c.P0) || c.P0 > 1 {
		return fmt.Errorf("p0 must be at most 1 (negative selects dynamic p0), got %v", c.P0)
	}
	if c.SeedCount < 1 {
		return fmt.Errorf("seed count must be at least 1, got %d", c.SeedCount)
	}
	if c.SeedMinDegree < 0 {
		return fmt.Errorf("seed min degree must be non-negative, got %d", c.SeedMinDegree)
	}
	if math.IsNaN(c.SeedP0) || c.SeedP0 < 0 || c.SeedP0 > 1 {
		return fmt.Errorf("seed p0 must be between 0 and 1, got %v", c.SeedP0)
	}
	if c.SeedMaxAttempts < 1 {
		return fmt.Errorf("seed max attempts must be at least 1, got %d", c.SeedMaxAttempts)
	}
	if c.MaxAttemptsPerDay < 1 {
		return fmt.Errorf("max attempts per day must be at least 1, got %d", c.MaxAttemptsPerDay)
	}
	if math.IsNaN(c.MinProbability) || c.MinProbability < 0 {
		return fmt.Errorf("min probability must be non-negative, got %v", c.MinProbability)
	}
	return nil
}
