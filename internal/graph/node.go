// Package graph owns the authoritative simulation graph: the node and link
// maps, per-node decorative state, and the reverse link index used for
// incremental connection counts. One Store instance exists per simulation;
// the physics and particle packages borrow it for the duration of a tick.
package graph

import (
	"math"

	"github.com/stargraph/stargraph/internal/vec"
)

// Handle identifies a renderable geometry resource owned by the external
// renderer. The store only tracks ownership so removals can report what
// must be disposed.
type Handle uint64

// Pulse is the per-node color-pulse state driving emissive glow.
type Pulse struct {
	Phase        float64
	AngularSpeed float64
	Base         Color
	Peak         Color
	// Multiplier is the luminance-derived glow boost: 0 for bright base
	// colors, approaching 10 for near-black ones.
	Multiplier float64
}

// Node is one simulated body.
type Node struct {
	ID          string
	DisplayName string
	Path        string

	Position vec.V3
	Velocity vec.V3
	Force    vec.V3
	Mass     float64
	Frozen   bool

	Pulse       Pulse
	Connections int
	Scale       float64

	Handle Handle
}

// EmissiveIntensity returns the current glow intensity for the renderer.
// Bright base colors (Multiplier 0) sit at a constant 1; dark colors pulse
// up toward 1+Multiplier.
func (n *Node) EmissiveIntensity() float64 {
	return 1 + n.Pulse.Multiplier*(0.5+0.5*math.Sin(n.Pulse.Phase))
}

// scaleGain tunes how fast node scale grows with connection count.
const scaleGain = 0.25

// recomputeScale refreshes the cached renderer scale from the connection
// count. Logarithmic so hub notes grow visibly but never dominate.
func (n *Node) recomputeScale() {
	n.Scale = 1 + math.Log2(1+float64(n.Connections))*scaleGain
}

// Link is a spring constraint between two nodes. Undirected for physics,
// but From→To order is preserved for particle travel.
type Link struct {
	From   string
	To     string
	Handle Handle
}

// pairKey is the unordered identity of a link: the two endpoint ids in
// lexicographic order. It enforces the at-most-one-link-per-pair invariant.
type pairKey struct {
	a, b string
}

func keyOf(from, to string) pairKey {
	if from < to {
		return pairKey{from, to}
	}
	return pairKey{to, from}
}
