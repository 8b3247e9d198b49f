// Package network holds the base social graph the simulator runs on: a
// read-only weighted directed graph, plus the loaders and writers that move
// weighted graphs to and from delimited edge lists and Arrow IPC files.
package network

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// MaxWeight bounds edge weights and the out-weight of every node. Weights
// are stored as gonum float64 weights, which hold integers exactly up to 2^53.
const MaxWeight int64 = 1 << 53

// ErrWeightOverflow is returned when an edge would push a weight past
// MaxWeight.
var ErrWeightOverflow = errors.New("weight exceeds maximum")

// Neighbor is one outgoing edge of a node, seen from its source.
type Neighbor struct {
	ID     int64
	Weight int64
}

// Edge is a weighted directed edge.
type Edge struct {
	From   int64 `json:"from"`
	To     int64 `json:"to"`
	Weight int64 `json:"weight"`
}

// WeightedGraph is the read-only view of a network that the diffusion
// engine consumes.
type WeightedGraph interface {
	// Nodes returns every node ID in ascending order.
	Nodes() []int64

	// HasNode reports whether id is a node of the graph.
	HasNode(id int64) bool

	// Neighbors returns the outgoing edges of id ordered by descending
	// weight, ties broken by ascending node ID.
	Neighbors(id int64) []Neighbor

	// OutDegree is the number of distinct out-neighbors of id.
	OutDegree(id int64) int

	// OutWeight is the sum of the weights of the outgoing edges of id.
	OutWeight(id int64) int64
}

// Graph is a WeightedGraph backed by a gonum weighted directed graph.
// Adding an edge that already exists accumulates its weight, which is how
// parallel edges collapse into one weighted edge. Self-loops, which gonum
// simple graphs reject, are kept in a side table.
type Graph struct {
	g     *simple.WeightedDirectedGraph
	loops map[int64]int64
	out   map[int64]int64 // Out-weight per node
}

var _ WeightedGraph = (*Graph)(nil)

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		g:     simple.NewWeightedDirectedGraph(0, 0),
		loops: make(map[int64]int64),
		out:   make(map[int64]int64),
	}
}

// AddNode adds an isolated node. Adding an existing node is a no-op.
func (g *Graph) AddNode(id int64) error {
	if id < 0 {
		return fmt.Errorf("node IDs must be non-negative, got %d", id)
	}
	if g.g.Node(id) == nil {
		g.g.AddNode(simple.Node(id))
	}
	return nil
}

// AddEdge adds weight to the edge from -> to, creating the edge and its
// endpoints if needed. The out-weight of from may not exceed MaxWeight.
func (g *Graph) AddEdge(from, to, weight int64) error {
	if weight <= 0 {
		return fmt.Errorf("edge %d->%d: weight must be positive, got %d", from, to, weight)
	}
	if weight > MaxWeight || g.out[from] > MaxWeight-weight {
		return fmt.Errorf("edge %d->%d: out-weight of %d plus %d: %w (%d)",
			from, to, g.out[from], weight, ErrWeightOverflow, MaxWeight)
	}
	if err := g.AddNode(from); err != nil {
		return err
	}
	if err := g.AddNode(to); err != nil {
		return err
	}

	g.out[from] += weight
	if from == to {
		g.loops[from] += weight
		return nil
	}

	if e := g.g.WeightedEdge(from, to); e != nil {
		weight += int64(e.Weight())
	}
	g.g.SetWeightedEdge(g.g.NewWeightedEdge(simple.Node(from), simple.Node(to), float64(weight)))
	return nil
}

// Nodes returns every node ID in ascending order.
func (g *Graph) Nodes() []int64 {
	nodes := graph.NodesOf(g.g.Nodes())
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int {
	return g.g.Nodes().Len()
}

// NumEdges returns the number of distinct directed edges, self-loops included.
func (g *Graph) NumEdges() int {
	return g.g.Edges().Len() + len(g.loops)
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id int64) bool {
	return g.g.Node(id) != nil
}

// Weight returns the weight of the edge from -> to, or 0 if there is none.
func (g *Graph) Weight(from, to int64) int64 {
	if from == to {
		return g.loops[from]
	}
	e := g.g.WeightedEdge(from, to)
	if e == nil {
		return 0
	}
	return int64(e.Weight())
}

// Neighbors returns the outgoing edges of id ordered by descending weight,
// ties broken by ascending node ID.
func (g *Graph) Neighbors(id int64) []Neighbor {
	it := g.g.From(id)
	out := make([]Neighbor, 0, it.Len()+1)
	for it.Next() {
		to := it.Node().ID()
		out = append(out, Neighbor{ID: to, Weight: int64(g.g.WeightedEdge(id, to).Weight())})
	}
	if w, ok := g.loops[id]; ok {
		out = append(out, Neighbor{ID: id, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// OutDegree is the number of distinct out-neighbors of id.
func (g *Graph) OutDegree(id int64) int {
	n := g.g.From(id).Len()
	if _, ok := g.loops[id]; ok {
		n++
	}
	return n
}

// OutWeight is the sum of the weights of the outgoing edges of id.
func (g *Graph) OutWeight(id int64) int64 {
	return g.out[id]
}

// Edges returns every edge ordered by source, then target.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.NumEdges())
	it := g.g.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		edges = append(edges, Edge{
			From:   e.From().ID(),
			To:     e.To().ID(),
			Weight: int64(e.Weight()),
		})
	}
	for id, w := range g.loops {
		edges = append(edges, Edge{From: id, To: id, Weight: w})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// TotalWeight returns the sum of all edge weights.
func (g *Graph) TotalWeight() int64 {
	var total int64
	for _, e := range g.Edges() {
		total += e.Weight
	}
	return total
}
