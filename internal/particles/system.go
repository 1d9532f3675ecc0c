package particles

import (
	"math"
	"math/rand"
	"time"

	"github.com/stargraph/stargraph/internal/graph"
	"github.com/stargraph/stargraph/internal/vec"
)

// Randomized per-flight speed band, in progress units per second.
const (
	minSpeed = 0.15
	maxSpeed = 0.45
)

// pulse parameters for the liveliness wobble on in-flight particles.
const (
	pulseRate  = 6.0  // radians per second
	pulseDepth = 0.25 // fraction of base scale
)

// scheduledSpawn is one staggered spawn attempt queued by the interval
// timer.
type scheduledSpawn struct {
	link *graph.Link
	at   float64
}

// System owns the particle pool and the spawn scheduler. Not safe for
// concurrent use; the owning simulation serializes access, and the
// configuration setters go through the simulation's mutation queue.
type System struct {
	pool *pool

	spawnEvery   float64 // seconds between spawn cycles
	shuffleDelay float64 // per-link stagger within a cycle, seconds

	clock      float64
	sinceCycle float64
	pending    []scheduledSpawn

	rng *rand.Rand
}

// NewSystem creates a System with n pre-allocated slots.
func NewSystem(n int, spawnRate, shuffleDelay time.Duration) *System {
	return &System{
		pool:         newPool(n, 0),
		spawnEvery:   spawnRate.Seconds(),
		shuffleDelay: shuffleDelay.Seconds(),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Spawn binds an idle slot to a new particle at the source end of link.
// Dropped silently (returns false) when the pool is exhausted — a missing
// particle has no correctness impact.
func (s *System) Spawn(link *graph.Link) bool {
	i := s.pool.acquire()
	if i < 0 {
		return false
	}
	s.pool.slots[i].p = Particle{
		Link:      link,
		Progress:  0,
		Direction: 1,
		Speed:     minSpeed + s.rng.Float64()*(maxSpeed-minSpeed),
		Scale:     1,
		slot:      i,
	}
	return true
}

// Update advances the spawn scheduler and every in-flight particle by dt
// seconds. links and nodes are borrowed from the store for this tick only.
//
// Particle motion is deltaTime-scaled (unlike force integration): progress
// advances by speed·dt, and positions re-interpolate between the link's
// current endpoint positions so particles track live node motion.
func (s *System) Update(dt float64, links []*graph.Link, nodes map[string]*graph.Node) {
	s.clock += dt
	s.scheduleSpawns(dt, links)
	s.fireDue(links)

	for i := range s.pool.slots {
		sl := &s.pool.slots[i]
		if !sl.busy {
			continue
		}
		p := &sl.p

		from, to := nodes[p.Link.From], nodes[p.Link.To]
		if from == nil || to == nil {
			// Endpoint deleted mid-flight; retire immediately.
			s.pool.release(i)
			continue
		}

		p.Progress += p.Speed * dt * p.Direction
		if p.Progress < 0 || p.Progress > 1 {
			s.pool.release(i)
			continue
		}

		p.Position = vec.Lerp(from.Position, to.Position, p.Progress)
		p.Scale = 1 + pulseDepth*math.Sin(s.clock*pulseRate+float64(p.slot))
	}
}

// scheduleSpawns queues one staggered spawn attempt per live link each
// spawn period. Link order is shuffled every cycle so visual emphasis
// doesn't always favor the same links.
func (s *System) scheduleSpawns(dt float64, links []*graph.Link) {
	if s.spawnEvery <= 0 || len(links) == 0 {
		return
	}
	s.sinceCycle += dt
	if s.sinceCycle < s.spawnEvery {
		return
	}
	s.sinceCycle -= s.spawnEvery

	order := s.rng.Perm(len(links))
	for i, idx := range order {
		s.pending = append(s.pending, scheduledSpawn{
			link: links[idx],
			at:   s.clock + float64(i)*s.shuffleDelay,
		})
	}
}

// fireDue executes pending spawn attempts whose stagger delay has elapsed,
// dropping any whose link is no longer live.
func (s *System) fireDue(links []*graph.Link) {
	if len(s.pending) == 0 {
		return
	}
	live := make(map[*graph.Link]struct{}, len(links))
	for _, l := range links {
		live[l] = struct{}{}
	}

	kept := s.pending[:0]
	for _, sp := range s.pending {
		if sp.at > s.clock {
			kept = append(kept, sp)
			continue
		}
		if _, ok := live[sp.link]; ok {
			s.Spawn(sp.link)
		}
	}
	s.pending = kept
}

// SetMaxParticles rebuilds the pool with n slots, discarding every
// in-flight particle, and returns the old slot handles for disposal.
// Not a hot-path operation.
func (s *System) SetMaxParticles(n int) []Handle {
	disposed := s.pool.handles()
	s.pool = newPool(n, s.pool.nextHandle)
	s.pending = s.pending[:0]
	return disposed
}

// SetSpawnRate sets the interval between spawn cycles.
func (s *System) SetSpawnRate(d time.Duration) {
	s.spawnEvery = d.Seconds()
}

// SetShuffleDelay sets the per-link stagger within a spawn cycle.
func (s *System) SetShuffleDelay(d time.Duration) {
	s.shuffleDelay = d.Seconds()
}

// Live returns the number of in-flight particles.
func (s *System) Live() int {
	return s.pool.live
}

// Max returns the pool capacity.
func (s *System) Max() int {
	return len(s.pool.slots)
}

// ForEach visits every in-flight particle. The pointers are only valid
// for the duration of the call.
func (s *System) ForEach(f func(*Particle)) {
	for i := range s.pool.slots {
		if s.pool.slots[i].busy {
			f(&s.pool.slots[i].p)
		}
	}
}
