package simulation

// Clique returns the edges of a directed clique over nodes 1..n.
func Clique(n int64, weight int64) []EdgeSpec {
	var edges []EdgeSpec
	for i := int64(1); i <= n; i++ {
		for j := int64(1); j <= n; j++ {
			if i != j {
				edges = append(edges, EdgeSpec{From: i, To: j, Weight: weight})
			}
		}
	}
	return edges
}

// Star returns edges from center to each of leaves.
func Star(center int64, leaves []int64, weight int64) []EdgeSpec {
	edges := make([]EdgeSpec, 0, len(leaves))
	for _, l := range leaves {
		edges = append(edges, EdgeSpec{From: center, To: l, Weight: weight})
	}
	return edges
}

// Chain returns the path 1->2->...->n.
func Chain(n int64, weight int64) []EdgeSpec {
	var edges []EdgeSpec
	for i := int64(1); i < n; i++ {
		edges = append(edges, EdgeSpec{From: i, To: i + 1, Weight: weight})
	}
	return edges
}

// Join concatenates edge lists.
func Join(parts ...[]EdgeSpec) []EdgeSpec {
	var out []EdgeSpec
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// ScriptedSource replays fixed draws, cycling through each list when it
// runs out. An empty list yields 0.
type ScriptedSource struct {
	Floats []float64
	Ints   []int

	fi, ii int
}

// Float64 returns the next scripted float.
func (s *ScriptedSource) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return v
}

// IntN returns the next scripted int, reduced modulo n.
func (s *ScriptedSource) IntN(n int) int {
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.ii%len(s.Ints)]
	s.ii++
	return v % n
}

// Draws reports how many floats and ints have been drawn.
func (s *ScriptedSource) Draws() (floats, ints int) {
	return s.fi, s.ii
}
