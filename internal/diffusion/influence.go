package diffusion

import (
	"fmt"
	"sort"

	"github.com/nvandessel/inflood/internal/network"
)

// Event is one propagation attempt: Source fired at Target on Day, Elapsed
// days after its own infection.
type Event struct {
	Day          int   `json:"day"`
	Source       int64 `json:"source"`
	Target       int64 `json:"target"`
	Elapsed      int   `json:"elapsed"`
	NewInfection bool  `json:"new_infection"`
}

type edgeKey struct {
	from, to int64
}

// InfluenceGraph is a directed multigraph with one edge per propagation
// event, kept in the order the events happened.
type InfluenceGraph struct {
	events []Event
	mult   map[edgeKey]int
	out    map[int64]int
}

// NewInfluenceGraph returns an empty influence graph.
func NewInfluenceGraph() *InfluenceGraph {
	return &InfluenceGraph{
		mult: make(map[edgeKey]int),
		out:  make(map[int64]int),
	}
}

// Add appends one event.
func (g *InfluenceGraph) Add(ev Event) {
	g.events = append(g.events, ev)
	g.mult[edgeKey{ev.Source, ev.Target}]++
	g.out[ev.Source]++
}

// Len returns the number of edges, counting multiplicity.
func (g *InfluenceGraph) Len() int {
	return len(g.events)
}

// Events returns a copy of the event log.
func (g *InfluenceGraph) Events() []Event {
	out := make([]Event, len(g.events))
	copy(out, g.events)
	return out
}

// Multiplicity returns the number of edges from -> to.
func (g *InfluenceGraph) Multiplicity(from, to int64) int {
	return g.mult[edgeKey{from, to}]
}

// OutMultiplicity returns the number of edges leaving from.
func (g *InfluenceGraph) OutMultiplicity(from int64) int {
	return g.out[from]
}

// DistinctEdges returns the number of distinct ordered pairs.
func (g *InfluenceGraph) DistinctEdges() int {
	return len(g.mult)
}

// Sources returns the nodes with at least one outgoing edge, ascending.
func (g *InfluenceGraph) Sources() []int64 {
	out := make([]int64, 0, len(g.out))
	for n := range g.out {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Targets returns the distinct targets of edges leaving from, ascending.
func (g *InfluenceGraph) Targets(from int64) []int64 {
	var out []int64
	for k := range g.mult {
		if k.from == from {
			out = append(out, k.to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Collapse folds parallel edges into a weighted graph whose edge weights
// are the multiplicities.
func (g *InfluenceGraph) Collapse() (*network.Graph, error) {
	out := network.NewGraph()
	for k, c := range g.mult {
		if err := out.AddEdge(k.from, k.to, int64(c)); err != nil {
			return nil, fmt.Errorf("collapsing influence graph: %w", err)
		}
	}
	return out, nil
}
