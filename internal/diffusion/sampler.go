package diffusion

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/inflood/internal/network"
)

// ErrNoNeighbors is returned when sampling a node without outgoing edges.
var ErrNoNeighbors = errors.New("node has no outgoing edges")

// SamplingRoundingWarning is returned alongside a valid selection when no
// neighbor absorbed the roulette pick and the last neighbor was taken.
type SamplingRoundingWarning struct {
	Pick        int64
	TotalWeight int64
	Chosen      int64
}

func (w *SamplingRoundingWarning) Error() string {
	return fmt.Sprintf("roulette pick %d not absorbed by total weight %d; fell back to last neighbor %d",
		w.Pick, w.TotalWeight, w.Chosen)
}

// Source is the uniform pseudo-random source the engine draws from.
// *rand.Rand satisfies it.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// NewSource returns a PCG-backed source seeded with seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Roulette selects a neighbor with probability proportional to edge weight
// using the uniform draw r in [0, 1). neighbors must be in the order
// returned by network.WeightedGraph.Neighbors.
//
// The pick is floor((W+1) * r) for total weight W; weights are subtracted
// in order until the remainder is <= 0. A pick of 0 lands on the first
// (heaviest) neighbor. If the remainder never reaches zero the last
// neighbor is returned together with a *SamplingRoundingWarning.
//
// For r in [0, 1) the pick is at most W, so the remainder reaches zero by
// the last neighbor and the warning cannot occur. That holds up to
// network.MaxWeight, where float64(W+1)*r still rounds below W+1. Only a
// draw outside [0, 1) from a faulty Source takes the fallback.
func Roulette(neighbors []network.Neighbor, r float64) (int, error) {
	if len(neighbors) == 0 {
		return -1, ErrNoNeighbors
	}

	var total int64
	for _, nb := range neighbors {
		total += nb.Weight
	}

	pick := int64(float64(total+1) * r)
	remaining := pick
	for i, nb := range neighbors {
		remaining -= nb.Weight
		if remaining <= 0 {
			return i, nil
		}
	}

	last := len(neighbors) - 1
	return last, &SamplingRoundingWarning{Pick: pick, TotalWeight: total, Chosen: neighbors[last].ID}
}

// Sampler draws weighted neighbors from a Source.
type Sampler struct {
	src Source
}

// NewSampler creates a sampler drawing from src.
func NewSampler(src Source) *Sampler {
	return &Sampler{src: src}
}

// Pick selects one neighbor. On a rounding fallback it returns the selected
// neighbor and a *SamplingRoundingWarning; on an empty slice it returns
// ErrNoNeighbors.
func (s *Sampler) Pick(neighbors []network.Neighbor) (network.Neighbor, error) {
	i, err := Roulette(neighbors, s.src.Float64())
	if i < 0 {
		return network.Neighbor{}, err
	}
	return neighbors[i], err
}
