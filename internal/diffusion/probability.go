package diffusion

import (
	"math"

	"github.com/nvandessel/inflood/internal/network"
)

// maxP0 is the largest initial probability stored for a node.
var maxP0 = math.Nextafter(1, 0)

// Decay returns the propagation probability of a node elapsed days after
// its infection: p0 * elapsed^(-alpha). The curve peaks at elapsed = 1, so
// elapsed <= 0 (a node fired on the day it was infected) returns p0 rather
// than the infinite value of the raw formula.
func Decay(elapsed int, alpha, p0 float64) float64 {
	if elapsed <= 0 {
		return p0
	}
	return p0 * math.Pow(float64(elapsed), -alpha)
}

// DynamicP0 derives a node's initial probability from its outgoing weight W
// as 1 - 4/W. Heavier communicators are more likely to pass things on.
// Returns DefaultDynamicP0 when W is zero. The raw value may be negative
// for W < 4; it is clamped when the node is infected.
func DynamicP0(g network.WeightedGraph, node int64) float64 {
	w := g.OutWeight(node)
	if w == 0 {
		return DefaultDynamicP0
	}
	return 1 - 4/float64(w)
}

// clampP0 maps p into [0, 1).
func clampP0(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p >= 1:
		return maxP0
	default:
		return p
	}
}
