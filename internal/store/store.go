// Package store defines the RunStore interface for archiving finished
// simulation runs, with SQLite and in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/inflood/internal/diffusion"
	"github.com/nvandessel/inflood/internal/network"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Params are the simulation parameters a run was produced with.
type Params struct {
	Days              int     `json:"days"`
	Alpha             float64 `json:"alpha"`
	P0                float64 `json:"p0"`
	SeedCount         int     `json:"seed_count"`
	SeedMinDegree     int     `json:"seed_min_degree"`
	MaxAttemptsPerDay int     `json:"max_attempts_per_day"`
	RNGSeed           uint64  `json:"rng_seed"`
}

// Infection is one row of a run's infection table.
type Infection struct {
	Node       int64   `json:"node"`
	InfectedAt int     `json:"infected_at"`
	P0         float64 `json:"p0"`
}

// HistogramBin is one (node, elapsed days) cell of a run's histogram.
type HistogramBin struct {
	Node    int64 `json:"node"`
	Elapsed int   `json:"elapsed"`
	Count   int   `json:"count"`
}

// Run is an archived simulation run. ListRuns leaves the row slices empty.
type Run struct {
	ID                string    `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	GraphPath         string    `json:"graph_path"`
	GraphNodes        int       `json:"graph_nodes"`
	GraphEdges        int       `json:"graph_edges"`
	Params            Params    `json:"params"`
	Infected          int       `json:"infected"`
	Events            int       `json:"events"`
	DistinctEdges     int       `json:"distinct_edges"`
	RoundingFallbacks int       `json:"rounding_fallbacks"`
	CappedLoops       int       `json:"capped_loops"`
	DurationMS        int64     `json:"duration_ms"`

	Seeds      []int64        `json:"seeds,omitempty"`
	Edges      []network.Edge `json:"edges,omitempty"`
	Infections []Infection    `json:"infections,omitempty"`
	Histogram  []HistogramBin `json:"histogram,omitempty"`
}

// RunStore defines the interface for archiving and querying runs.
type RunStore interface {
	// SaveRun stores run. An empty ID is replaced with a new one.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun returns the full run, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns run headers, newest first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// DeleteRun removes a run, or returns ErrRunNotFound.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}

// NewID returns a new random run ID.
func NewID() string {
	return uuid.NewString()
}

// NewRun builds an archivable run from a simulation result over base,
// read from graphPath.
func NewRun(graphPath string, base *network.Graph, res *diffusion.Result, rngSeed uint64, duration time.Duration) (*Run, error) {
	influence, err := res.Influence.Collapse()
	if err != nil {
		return nil, err
	}

	cfg := res.Config
	run := &Run{
		ID:         NewID(),
		CreatedAt:  time.Now().UTC(),
		GraphPath:  graphPath,
		GraphNodes: base.NumNodes(),
		GraphEdges: base.NumEdges(),
		Params: Params{
			Days:              cfg.Days,
			Alpha:             cfg.Alpha,
			P0:                cfg.P0,
			SeedCount:         len(res.Seeds),
			SeedMinDegree:     cfg.SeedMinDegree,
			MaxAttemptsPerDay: cfg.MaxAttemptsPerDay,
			RNGSeed:           rngSeed,
		},
		Infected:          res.Infections.Len(),
		Events:            res.Influence.Len(),
		DistinctEdges:     res.Influence.DistinctEdges(),
		RoundingFallbacks: res.RoundingFallbacks,
		CappedLoops:       res.CappedLoops,
		DurationMS:        duration.Milliseconds(),
		Seeds:             append([]int64(nil), res.Seeds...),
		Edges:             influence.Edges(),
	}

	for _, n := range res.Infections.Nodes() {
		st, _ := res.Infections.Get(n)
		run.Infections = append(run.Infections, Infection{Node: n, InfectedAt: st.InfectedAt, P0: st.P0})
	}
	for _, n := range res.Histogram.Nodes() {
		for _, e := range res.Histogram.Elapsed(n) {
			run.Histogram = append(run.Histogram, HistogramBin{Node: n, Elapsed: e, Count: res.Histogram.Count(n, e)})
		}
	}
	return run, nil
}

// InfluenceGraph rebuilds the collapsed influence graph of the run.
func (r *Run) InfluenceGraph() (*network.Graph, error) {
	g := network.NewGraph()
	for _, e := range r.Edges {
		if err := g.AddEdge(e.From, e.To, e.Weight); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// header returns a copy of r without its row slices.
func (r *Run) header() Run {
	h := *r
	h.Seeds = nil
	h.Edges = nil
	h.Infections = nil
	h.Histogram = nil
	return h
}

// clone returns a deep copy of r.
func (r *Run) clone() *Run {
	c := r.header()
	c.Seeds = append([]int64(nil), r.Seeds...)
	c.Edges = append([]network.Edge(nil), r.Edges...)
	c.Infections = append([]Infection(nil), r.Infections...)
	c.Histogram = append([]HistogramBin(nil), r.Histogram...)
	return &c
}
