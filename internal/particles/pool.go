// Package particles animates traveling markers along links to show
// traversal direction. A fixed pool of pre-allocated slots is recycled;
// particles never own geometry, only borrow a slot for one flight.
package particles

import (
	"github.com/stargraph/stargraph/internal/graph"
	"github.com/stargraph/stargraph/internal/vec"
)

// Handle identifies one pool slot's renderable geometry.
type Handle uint64

// Particle is one in-flight marker bound to a pool slot.
type Particle struct {
	Link     *graph.Link
	Progress float64
	// Direction is +1 for source→destination travel. Reverse travel is a
	// data change, not a redesign, so the field stays.
	Direction float64
	Speed     float64

	Position vec.V3
	Scale    float64

	slot int
}

type slot struct {
	handle Handle
	busy   bool
	p      Particle
}

// pool is the fixed-capacity slot set. Rebuilt wholesale by
// SetMaxParticles; never grown on the hot path.
type pool struct {
	slots      []slot
	live       int
	nextHandle Handle
}

func newPool(n int, startHandle Handle) *pool {
	p := &pool{slots: make([]slot, n), nextHandle: startHandle}
	for i := range p.slots {
		p.nextHandle++
		p.slots[i].handle = p.nextHandle
	}
	return p
}

// acquire returns an idle slot index, or -1 when the pool is exhausted.
func (p *pool) acquire() int {
	if p.live >= len(p.slots) {
		return -1
	}
	for i := range p.slots {
		if !p.slots[i].busy {
			p.slots[i].busy = true
			p.live++
			return i
		}
	}
	return -1
}

// release returns a slot to idle and unbinds its particle.
func (p *pool) release(i int) {
	if !p.slots[i].busy {
		return
	}
	p.slots[i].busy = false
	p.slots[i].p = Particle{}
	p.live--
}

// handles returns every slot's geometry handle, for disposal on rebuild.
func (p *pool) handles() []Handle {
	out := make([]Handle, len(p.slots))
	for i := range p.slots {
		out[i] = p.slots[i].handle
	}
	return out
}
