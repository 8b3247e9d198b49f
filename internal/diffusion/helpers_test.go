package diffusion

import (
	"testing"

	"github.com/nvandessel/inflood/internal/network"
)

// mustAddEdge is a test helper that adds a weighted edge and fails the test on error.
func mustAddEdge(t *testing.T, g *network.Graph, from, to, weight int64) {
	t.Helper()
	if err := g.AddEdge(from, to, weight); err != nil {
		t.Fatalf("AddEdge(%d, %d, %d): %v", from, to, weight, err)
	}
}

// clique builds a directed clique over nodes 1..n with unit weights.
func clique(t *testing.T, n int64) *network.Graph {
	t.Helper()
	g := network.NewGraph()
	for i := int64(1); i <= n; i++ {
		for j := int64(1); j <= n; j++ {
			if i != j {
				mustAddEdge(t, g, i, j, 1)
			}
		}
	}
	return g
}

// scriptedSource replays fixed draws, cycling when exhausted.
type scriptedSource struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[s.fi%len(s.floats)]
	s.fi++
	return v
}

func (s *scriptedSource) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.ii%len(s.ints)]
	s.ii++
	return v % n
}
