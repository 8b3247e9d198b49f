package diffusion

import (
	"fmt"

	"github.com/nvandessel/inflood/internal/network"
)

// SeedingError is returned when the requested seeds cannot be selected.
type SeedingError struct {
	Wanted    int    // Number of seeds requested
	Eligible  int    // Nodes meeting the out-degree threshold
	MinDegree int    // The out-degree threshold
	Attempts  int    // Random draws spent before giving up
	Reason    string // What went wrong
}

func (e *SeedingError) Error() string {
	return fmt.Sprintf("seeding failed: %s (wanted %d, %d eligible with out-degree >= %d, %d draws)",
		e.Reason, e.Wanted, e.Eligible, e.MinDegree, e.Attempts)
}

// SelectSeeds draws cfg.SeedCount distinct nodes uniformly at random,
// redrawing any node already selected or whose out-degree is below
// cfg.SeedMinDegree. Nodes are drawn from the ascending node list so that a
// fixed source yields the same seeds. Seeds are returned in selection order.
//
// The number of draws is bounded by cfg.SeedMaxAttempts. A graph with fewer
// eligible nodes than cfg.SeedCount fails immediately.
func SelectSeeds(g network.WeightedGraph, cfg Config, src Source) ([]int64, error) {
	nodes := g.Nodes()

	eligible := 0
	for _, n := range nodes {
		if g.OutDegree(n) >= cfg.SeedMinDegree {
			eligible++
		}
	}

	serr := &SeedingError{
		Wanted:    cfg.SeedCount,
		Eligible:  eligible,
		MinDegree: cfg.SeedMinDegree,
	}
	if len(nodes) == 0 {
		serr.Reason = "graph is empty"
		return nil, serr
	}
	if eligible < cfg.SeedCount {
		serr.Reason = "not enough eligible nodes"
		return nil, serr
	}

	seeds := make([]int64, 0, cfg.SeedCount)
	chosen := make(map[int64]bool, cfg.SeedCount)
	for attempts := 1; attempts <= cfg.SeedMaxAttempts; attempts++ {
		n := nodes[src.IntN(len(nodes))]
		if chosen[n] || g.OutDegree(n) < cfg.SeedMinDegree {
			continue
		}
		chosen[n] = true
		seeds = append(seeds, n)
		if len(seeds) == cfg.SeedCount {
			return seeds, nil
		}
	}

	serr.Attempts = cfg.SeedMaxAttempts
	serr.Reason = "draw limit exhausted"
	return nil, serr
}

// checkSeeds validates caller-supplied seeds: each must be a node of g and
// appear once.
func checkSeeds(g network.WeightedGraph, seeds []int64, cfg Config) error {
	if len(seeds) == 0 {
		return &SeedingError{MinDegree: cfg.SeedMinDegree, Reason: "no seeds given"}
	}
	seen := make(map[int64]bool, len(seeds))
	for _, s := range seeds {
		if !g.HasNode(s) {
			return &SeedingError{Wanted: len(seeds), MinDegree: cfg.SeedMinDegree,
				Reason: fmt.Sprintf("seed %d is not a node of the graph", s)}
		}
		if seen[s] {
			return &SeedingError{Wanted: len(seeds), MinDegree: cfg.SeedMinDegree,
				Reason: fmt.Sprintf("seed %d given more than once", s)}
		}
		seen[s] = true
	}
	return nil
}
