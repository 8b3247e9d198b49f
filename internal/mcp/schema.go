package mcp

import (
	"time"

	"github.com/nvandessel/inflood/internal/report"
	"github.com/nvandessel/inflood/internal/store"
)

// SimulateInput defines the input for the inflood_simulate tool.
// Zero values fall back to the server's configuration.
type SimulateInput struct {
	Graph         string   `json:"graph" jsonschema:"Path to the base edge list (from,to[,weight] rows)"`
	Days          int      `json:"days,omitempty" jsonschema:"Number of simulated days"`
	Alpha         float64  `json:"alpha,omitempty" jsonschema:"Decay exponent of the propagation probability"`
	P0            *float64 `json:"p0,omitempty" jsonschema:"Initial propagation probability; negative derives it from each node's outgoing weight"`
	SeedCount     int      `json:"seed_count,omitempty" jsonschema:"Number of random seeds"`
	SeedMinDegree int      `json:"seed_min_degree,omitempty" jsonschema:"Minimum out-degree of a random seed"`
	Seeds         []int64  `json:"seeds,omitempty" jsonschema:"Explicit seed nodes, replacing random seeding"`
	RNGSeed       uint64   `json:"rng_seed,omitempty" jsonschema:"Seed of the random source; 0 derives one from the clock"`
	Delimiter     string   `json:"delimiter,omitempty" jsonschema:"Field delimiter of the edge list, a character or one of comma, tab, space, semicolon, pipe"`
	Reverse       bool     `json:"reverse,omitempty" jsonschema:"Swap the direction of every edge"`
	Unweighted    bool     `json:"unweighted,omitempty" jsonschema:"Treat every row as weight 1"`
	Output        string   `json:"output,omitempty" jsonschema:"File to write the collapsed influence graph to, inside the input graph directory or ~/.inflood/outputs"`
	Format        string   `json:"format,omitempty" jsonschema:"Output format: csv, arrow, dot or json"`
	Archive       bool     `json:"archive,omitempty" jsonschema:"Save the run in the run store"`
	Top           int      `json:"top,omitempty" jsonschema:"Number of top influencers to report"`
}

// SimulateOutput defines the output for the inflood_simulate tool.
type SimulateOutput struct {
	RunID   string         `json:"run_id,omitempty" jsonschema:"ID of the archived run"`
	RNGSeed uint64         `json:"rng_seed" jsonschema:"Seed of the random source used"`
	Summary report.Summary `json:"summary" jsonschema:"Summary of the cascade"`
	Output  string         `json:"output,omitempty" jsonschema:"File the influence graph was written to"`
	Message string         `json:"message" jsonschema:"Human-readable result message"`
}

// RunsInput defines the input for the inflood_runs tool.
type RunsInput struct {
	ID    string `json:"id,omitempty" jsonschema:"Show one run in full instead of listing"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of runs to list (default 20)"`
}

// RunsOutput defines the output for the inflood_runs tool.
type RunsOutput struct {
	Runs  []RunListItem `json:"runs,omitempty" jsonschema:"Archived runs, newest first"`
	Run   *store.Run    `json:"run,omitempty" jsonschema:"The requested run"`
	Count int           `json:"count" jsonschema:"Number of runs returned"`
}

// RunListItem provides a list view of an archived run.
type RunListItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	GraphPath string    `json:"graph_path"`
	Days      int       `json:"days"`
	P0        float64   `json:"p0"`
	Seeds     int       `json:"seeds"`
	Infected  int       `json:"infected"`
	Events    int       `json:"events"`
}
