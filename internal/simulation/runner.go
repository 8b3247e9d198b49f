package simulation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/inflood/internal/diffusion"
	"github.com/nvandessel/inflood/internal/store"
)

// Runner runs scenarios against the real engine and an isolated run store.
type Runner struct {
	t     *testing.T
	store *store.SQLiteRunStore
}

// NewRunner creates a simulation runner with an isolated SQLite store
// and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteRunStore(filepath.Join(tmpDir, store.DBFile))
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Store returns the runner's run store.
func (r *Runner) Store() *store.SQLiteRunStore {
	return r.store
}

// Run executes the scenario and returns the collected result. Engine
// errors are captured in the result rather than failing the test.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()
	ctx := context.Background()

	// Phase 1: Build the base graph.
	g, err := scenario.Graph()
	if err != nil {
		r.t.Fatalf("Run(%s): building graph: %v", scenario.Name, err)
	}

	// Phase 2: Configure the engine.
	cfg := diffusion.DefaultConfig()
	if scenario.Config != nil {
		cfg = *scenario.Config
	}
	src := scenario.Source
	if src == nil {
		seed := scenario.RNGSeed
		if seed == 0 {
			seed = 1
		}
		src = diffusion.NewSource(seed)
	}
	engine := diffusion.NewEngine(g, cfg, diffusion.WithSource(src))

	// Phase 3: Run the cascade.
	start := time.Now()
	var res *diffusion.Result
	if len(scenario.Seeds) > 0 {
		res, err = engine.RunFrom(ctx, scenario.Seeds)
	} else {
		res, err = engine.Run(ctx)
	}
	result := SimulationResult{Scenario: scenario, Graph: g, Result: res, Err: err}
	if err != nil || !scenario.Archive {
		return result
	}

	// Phase 4: Archive and read back.
	run, err := store.NewRun(scenario.Name, g, res, scenario.RNGSeed, time.Since(start))
	if err != nil {
		r.t.Fatalf("Run(%s): NewRun: %v", scenario.Name, err)
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		r.t.Fatalf("Run(%s): SaveRun: %v", scenario.Name, err)
	}
	stored, err := r.store.GetRun(ctx, run.ID)
	if err != nil {
		r.t.Fatalf("Run(%s): GetRun: %v", scenario.Name, err)
	}
	result.Run = stored
	return result
}
