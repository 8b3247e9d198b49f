package diffusion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/inflood/internal/logging"
	"github.com/nvandessel/inflood/internal/network"
)

// DayStats summarizes one simulated day.
type DayStats struct {
	Day           int `json:"day"`
	Active        int `json:"active"`         // Infected nodes visited on the day
	Events        int `json:"events"`         // Propagation events recorded
	NewInfections int `json:"new_infections"` // Nodes infected on the day
}

// Result holds the outputs of one simulation run.
type Result struct {
	Config     Config
	Seeds      []int64 // In selection order
	Infections *Infections
	Influence  *InfluenceGraph
	Histogram  *Histogram
	Days       []DayStats

	// RoundingFallbacks counts sampler picks that fell back to the last
	// neighbor.
	RoundingFallbacks int

	// CappedLoops counts node-days whose attempts hit MaxAttemptsPerDay.
	CappedLoops int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource sets the uniform source every stochastic decision draws from.
func WithSource(src Source) Option {
	return func(e *Engine) { e.src = src }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEventLogger sets the cascade trace writer.
func WithEventLogger(el *logging.EventLogger) Option {
	return func(e *Engine) { e.events = el }
}

// Engine runs influence cascades over a read-only graph.
// The engine keeps no per-run state; each call to Run or RunFrom builds
// its own infection table and outputs. Runs sharing an engine share its
// source, so concurrent runs need one engine each.
type Engine struct {
	graph  network.WeightedGraph
	config Config
	src    Source
	logger *slog.Logger
	events *logging.EventLogger
}

// NewEngine creates an engine over g. Without WithSource the engine draws
// from a time-seeded PCG source.
func NewEngine(g network.WeightedGraph, config Config, opts ...Option) *Engine {
	e := &Engine{
		graph:  g,
		config: config,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.src == nil {
		e.src = NewSource(uint64(time.Now().UnixNano()))
	}
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.config
}

// SelectSeeds draws seeds from the engine's source.
func (e *Engine) SelectSeeds() ([]int64, error) {
	return SelectSeeds(e.graph, e.config, e.src)
}

// Run selects seeds and simulates days 1..Days.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid diffusion config: %w", err)
	}
	seeds, err := e.SelectSeeds()
	if err != nil {
		return nil, err
	}
	return e.simulate(ctx, seeds)
}

// RunFrom simulates days 1..Days starting from the given seeds instead of
// random ones. Seeds must be distinct nodes of the graph; the out-degree
// threshold does not apply.
func (e *Engine) RunFrom(ctx context.Context, seeds []int64) (*Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid diffusion config: %w", err)
	}
	if err := checkSeeds(e.graph, seeds, e.config); err != nil {
		return nil, err
	}
	return e.simulate(ctx, seeds)
}

func (e *Engine) simulate(ctx context.Context, seeds []int64) (*Result, error) {
	r := e.newRun()
	start := time.Now()

	e.logger.Info("starting simulation",
		"days", e.config.Days,
		"alpha", e.config.Alpha,
		"p0", e.config.P0,
		"dynamic_p0", e.config.UsesDynamicP0(),
		"seeds", len(seeds))

	for _, s := range seeds {
		r.res.Infections.infect(s, 0, e.config.SeedP0)
		r.res.Seeds = append(r.res.Seeds, s)
		e.logger.Info("seed selected", "node", s, "out_degree", e.graph.OutDegree(s))
		e.events.Log(map[string]any{
			"event":      "seed",
			"node":       s,
			"out_degree": e.graph.OutDegree(s),
			"p0":         e.config.SeedP0,
		})
	}

	for day := 1; day <= e.config.Days; day++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("simulation interrupted on day %d: %w", day, err)
		}
		stats := r.step(day)
		r.res.Days = append(r.res.Days, stats)

		e.logger.Debug("day complete",
			"day", day,
			"active", stats.Active,
			"events", stats.Events,
			"new_infections", stats.NewInfections)
		e.events.Log(map[string]any{
			"event":          "day",
			"day":            day,
			"active":         stats.Active,
			"events":         stats.Events,
			"new_infections": stats.NewInfections,
		})
	}

	e.logger.Info("simulation complete",
		"infected", r.res.Infections.Len(),
		"events", r.res.Influence.Len(),
		"distinct_edges", r.res.Influence.DistinctEdges(),
		"rounding_fallbacks", r.res.RoundingFallbacks,
		"capped_loops", r.res.CappedLoops,
		"duration", time.Since(start))

	return r.res, nil
}

// run is the mutable state of one simulation.
type run struct {
	*Engine
	sampler   *Sampler
	neighbors map[int64][]network.Neighbor
	res       *Result
}

func (e *Engine) newRun() *run {
	return &run{
		Engine:    e,
		sampler:   NewSampler(e.src),
		neighbors: make(map[int64][]network.Neighbor),
		res: &Result{
			Config:     e.config,
			Infections: newInfections(),
			Influence:  NewInfluenceGraph(),
			Histogram:  NewHistogram(),
		},
	}
}

func (r *run) neighborsOf(n int64) []network.Neighbor {
	nbs, ok := r.neighbors[n]
	if !ok {
		nbs = r.graph.Neighbors(n)
		r.neighbors[n] = nbs
	}
	return nbs
}

// step simulates one day. Only nodes infected before the step begins are
// visited; nodes infected during it first fire on the next day.
func (r *run) step(day int) DayStats {
	active := r.res.Infections.snapshot()
	stats := DayStats{Day: day, Active: len(active)}
	before := r.res.Influence.Len()
	infectedBefore := r.res.Infections.Len()

	for _, n := range active {
		nbs := r.neighborsOf(n)
		if len(nbs) == 0 {
			continue
		}

		state, _ := r.res.Infections.Get(n)
		elapsed := day - state.InfectedAt
		pt := Decay(elapsed, r.config.Alpha, state.P0)

		// A node fired on its own infection day is at maximal probability
		// and attempts at least once.
		force := elapsed <= 0
		attempts := 0
		for force || (pt > r.config.MinProbability && r.src.Float64() < pt) {
			force = false
			if attempts >= r.config.MaxAttemptsPerDay {
				r.res.CappedLoops++
				r.logger.Warn("attempt cap reached",
					"node", n, "day", day, "probability", pt, "cap", r.config.MaxAttemptsPerDay)
				break
			}
			attempts++
			r.attempt(day, n, elapsed, nbs)
		}
	}

	stats.Events = r.res.Influence.Len() - before
	stats.NewInfections = r.res.Infections.Len() - infectedBefore
	return stats
}

// attempt samples one neighbor of n and records the propagation event.
func (r *run) attempt(day int, n int64, elapsed int, nbs []network.Neighbor) {
	target, err := r.sampler.Pick(nbs)
	if err != nil {
		var warn *SamplingRoundingWarning
		if !errors.As(err, &warn) {
			return
		}
		r.res.RoundingFallbacks++
		r.logger.Warn("sampler rounding fallback",
			"node", n, "pick", warn.Pick, "total_weight", warn.TotalWeight, "chosen", warn.Chosen)
	}

	infected := false
	if _, ok := r.res.Infections.Get(target.ID); !ok {
		p0 := r.config.P0
		if r.config.UsesDynamicP0() {
			p0 = DynamicP0(r.graph, target.ID)
		}
		infected = r.res.Infections.infect(target.ID, day, p0)
		if infected {
			st, _ := r.res.Infections.Get(target.ID)
			r.events.Log(map[string]any{
				"event":  "infection",
				"day":    day,
				"node":   target.ID,
				"source": n,
				"p0":     st.P0,
			})
		}
	}

	r.res.Influence.Add(Event{
		Day:          day,
		Source:       n,
		Target:       target.ID,
		Elapsed:      elapsed,
		NewInfection: infected,
	})
	r.res.Histogram.Add(n, elapsed)

	if r.events.Tracing() {
		r.events.Log(map[string]any{
			"event":         "attempt",
			"day":           day,
			"source":        n,
			"target":        target.ID,
			"elapsed":       elapsed,
			"new_infection": infected,
		})
	}
}
