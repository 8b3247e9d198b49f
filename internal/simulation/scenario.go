package simulation

import (
	"fmt"

	"github.com/nvandessel/inflood/internal/diffusion"
	"github.com/nvandessel/inflood/internal/network"
	"github.com/nvandessel/inflood/internal/store"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name   string
	Nodes  []int64 // Nodes without edges
	Edges  []EdgeSpec
	Config *diffusion.Config // nil = diffusion.DefaultConfig()

	// Seeds, when non-empty, replaces random seeding.
	Seeds []int64

	// Source, when non-nil, drives every stochastic decision. Otherwise a
	// PCG source seeded with RNGSeed is used.
	Source  diffusion.Source
	RNGSeed uint64

	// Archive saves the finished run into the runner's store.
	Archive bool
}

// EdgeSpec defines a weighted edge of the base graph.
type EdgeSpec struct {
	From   int64
	To     int64
	Weight int64 // 0 = 1
}

func (e EdgeSpec) weight() int64 {
	if e.Weight == 0 {
		return 1
	}
	return e.Weight
}

// Graph builds the base graph of the scenario.
func (s Scenario) Graph() (*network.Graph, error) {
	g := network.NewGraph()
	for _, n := range s.Nodes {
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("node %d: %w", n, err)
		}
	}
	for _, e := range s.Edges {
		if err := g.AddEdge(e.From, e.To, e.weight()); err != nil {
			return nil, fmt.Errorf("edge %d->%d: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// SimulationResult captures the outcome of one scenario.
type SimulationResult struct {
	Scenario Scenario
	Graph    *network.Graph
	Result   *diffusion.Result // nil when Err is set
	Err      error
	Run      *store.Run // Archived run, when Scenario.Archive
}
