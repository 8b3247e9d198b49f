package diffusion

import (
	"sort"
)

// InfectionState records when a node was infected and its initial
// propagation probability.
type InfectionState struct {
	InfectedAt int     `json:"infected_at"`
	P0         float64 `json:"p0"`
}

// Infections is the infection table of a run. Entries are only ever added;
// an existing entry is never changed.
type Infections struct {
	states map[int64]InfectionState
	order  []int64
}

func newInfections() *Infections {
	return &Infections{states: make(map[int64]InfectionState)}
}

// infect adds node with the given state. It returns false, leaving the
// table unchanged, if node is already infected.
func (in *Infections) infect(node int64, day int, p0 float64) bool {
	if _, ok := in.states[node]; ok {
		return false
	}
	in.states[node] = InfectionState{InfectedAt: day, P0: clampP0(p0)}
	in.order = append(in.order, node)
	return true
}

// snapshot returns the infected nodes at this moment, in infection order.
// Nodes infected after the call are not part of it.
func (in *Infections) snapshot() []int64 {
	out := make([]int64, len(in.order))
	copy(out, in.order)
	return out
}

// Get returns the state of node.
func (in *Infections) Get(node int64) (InfectionState, bool) {
	s, ok := in.states[node]
	return s, ok
}

// Len returns the number of infected nodes.
func (in *Infections) Len() int {
	return len(in.order)
}

// Nodes returns the infected nodes in infection order.
func (in *Infections) Nodes() []int64 {
	return in.snapshot()
}

// InfectedOn returns the nodes infected on day, in infection order.
func (in *Infections) InfectedOn(day int) []int64 {
	var out []int64
	for _, n := range in.order {
		if in.states[n].InfectedAt == day {
			out = append(out, n)
		}
	}
	return out
}

// Histogram counts, per infected node, the propagation events it generated
// at each number of elapsed days since its own infection.
type Histogram struct {
	counts map[int64]map[int]int
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	return &Histogram{counts: make(map[int64]map[int]int)}
}

// Add records one event of node at elapsed days.
func (h *Histogram) Add(node int64, elapsed int) {
	bins, ok := h.counts[node]
	if !ok {
		bins = make(map[int]int)
		h.counts[node] = bins
	}
	bins[elapsed]++
}

// Count returns the number of events of node at elapsed days, zero if none.
func (h *Histogram) Count(node int64, elapsed int) int {
	return h.counts[node][elapsed]
}

// Total returns the number of events of node across all elapsed days.
func (h *Histogram) Total(node int64) int {
	total := 0
	for _, c := range h.counts[node] {
		total += c
	}
	return total
}

// Nodes returns the nodes with at least one event, ascending.
func (h *Histogram) Nodes() []int64 {
	nodes := make([]int64, 0, len(h.counts))
	for n := range h.counts {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

// Elapsed returns the elapsed-day values recorded for node, ascending.
func (h *Histogram) Elapsed(node int64) []int {
	bins := h.counts[node]
	out := make([]int, 0, len(bins))
	for e := range bins {
		out = append(out, e)
	}
	sort.Ints(out)
	return out
}

// Overall sums the histogram over all nodes: elapsed days -> event count.
func (h *Histogram) Overall() map[int]int {
	out := make(map[int]int)
	for _, bins := range h.counts {
		for e, c := range bins {
			out[e] += c
		}
	}
	return out
}
