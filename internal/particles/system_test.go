package particles

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stargraph/stargraph/internal/graph"
	"github.com/stargraph/stargraph/internal/vec"
)

const dt = 1.0 / 60

// wire builds a node map and n links radiating from a single hub.
func wire(t *testing.T, n int) (map[string]*graph.Node, []*graph.Link) {
	t.Helper()

	nodes := map[string]*graph.Node{
		"hub": {ID: "hub", Position: vec.V3{}},
	}
	links := make([]*graph.Link, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("leaf%d", i)
		nodes[id] = &graph.Node{ID: id, Position: vec.V3{X: float64(i + 1)}}
		links = append(links, &graph.Link{From: "hub", To: id})
	}
	return nodes, links
}

func TestSpawnDropsWhenExhausted(t *testing.T) {
	s := NewSystem(2, 0, 0)
	_, links := wire(t, 1)

	if !s.Spawn(links[0]) || !s.Spawn(links[0]) {
		t.Fatal("spawn failed with idle slots available")
	}
	if s.Spawn(links[0]) {
		t.Error("spawn succeeded past pool capacity")
	}
	if s.Live() != 2 {
		t.Errorf("Live = %d, want 2", s.Live())
	}
}

func TestLiveNeverExceedsMax(t *testing.T) {
	s := NewSystem(5, 50*time.Millisecond, 0)
	nodes, links := wire(t, 20)

	for i := 0; i < 600; i++ {
		s.Update(dt, links, nodes)
		if s.Live() > s.Max() {
			t.Fatalf("Live = %d exceeds Max = %d", s.Live(), s.Max())
		}
	}
}

func TestParticleTravelsAndRetires(t *testing.T) {
	s := NewSystem(1, 0, 0) // spawn rate 0 disables the scheduler
	nodes, links := wire(t, 1)

	if !s.Spawn(links[0]) {
		t.Fatal("spawn failed")
	}

	var last float64 = -1
	for i := 0; i < 60 && s.Live() > 0; i++ {
		s.Update(dt, links, nodes)
		s.ForEach(func(p *Particle) {
			if p.Progress <= last {
				t.Fatalf("progress did not advance: %v then %v", last, p.Progress)
			}
			last = p.Progress
			want := vec.Lerp(nodes["hub"].Position, nodes["leaf0"].Position, p.Progress)
			if p.Position != want {
				t.Fatalf("position = %v, want %v", p.Position, want)
			}
		})
	}

	// Max speed 0.45 progress/s means at most ~0.0075 per tick; a full
	// flight takes over 2s, so the particle is still in flight here.
	if s.Live() != 1 {
		t.Fatalf("Live = %d after 1s, want 1", s.Live())
	}

	// Run long enough for even the slowest flight to complete.
	for i := 0; i < 60*8; i++ {
		s.Update(dt, links, nodes)
	}
	if s.Live() != 0 {
		t.Errorf("Live = %d after 9s, want 0 (retired)", s.Live())
	}
}

func TestParticleRetiresWhenEndpointDeleted(t *testing.T) {
	s := NewSystem(4, 0, 0)
	nodes, links := wire(t, 2)

	s.Spawn(links[0])
	s.Spawn(links[1])
	s.Update(dt, links, nodes)
	if s.Live() != 2 {
		t.Fatalf("Live = %d, want 2", s.Live())
	}

	delete(nodes, "leaf0")
	s.Update(dt, links, nodes)
	if s.Live() != 1 {
		t.Errorf("Live = %d after endpoint deletion, want 1", s.Live())
	}
}

func TestPositionsTrackMovingEndpoints(t *testing.T) {
	s := NewSystem(1, 0, 0)
	nodes, links := wire(t, 1)

	s.Spawn(links[0])
	s.Update(dt, links, nodes)

	// Move both endpoints; the particle re-interpolates on the next tick.
	nodes["hub"].Position = vec.V3{Y: 10}
	nodes["leaf0"].Position = vec.V3{Y: 20}
	s.Update(dt, links, nodes)

	s.ForEach(func(p *Particle) {
		want := vec.Lerp(nodes["hub"].Position, nodes["leaf0"].Position, p.Progress)
		if p.Position != want {
			t.Errorf("position = %v, want %v", p.Position, want)
		}
		if p.Position.X != 0 {
			t.Errorf("particle stuck on old segment: %v", p.Position)
		}
	})
}

func TestScalePulsesAroundBase(t *testing.T) {
	s := NewSystem(1, 0, 0)
	nodes, links := wire(t, 1)
	s.Spawn(links[0])

	for i := 0; i < 30; i++ {
		s.Update(dt, links, nodes)
		s.ForEach(func(p *Particle) {
			if math.Abs(p.Scale-1) > pulseDepth+1e-12 {
				t.Fatalf("scale = %v, want within 1±%v", p.Scale, pulseDepth)
			}
		})
	}
}

func TestSchedulerSpawnsEachCycle(t *testing.T) {
	s := NewSystem(100, 100*time.Millisecond, 0)
	nodes, links := wire(t, 3)

	// One full spawn period with zero stagger fires one particle per link.
	for i := 0; i < 7; i++ { // 7 ticks ≈ 117ms > spawn period
		s.Update(dt, links, nodes)
	}
	if s.Live() != 3 {
		t.Errorf("Live = %d after one cycle, want 3", s.Live())
	}
}

func TestStaggerDelaysSpawns(t *testing.T) {
	s := NewSystem(100, 50*time.Millisecond, time.Second)
	nodes, links := wire(t, 5)

	// The cycle fires after 50ms, but only the first link's spawn is due;
	// the rest are staggered a full second apart.
	for i := 0; i < 6; i++ {
		s.Update(dt, links, nodes)
	}
	if s.Live() == 0 || s.Live() >= 5 {
		t.Errorf("Live = %d shortly after cycle, want partial batch", s.Live())
	}
}

func TestPendingSpawnDroppedForDeadLink(t *testing.T) {
	s := NewSystem(100, 0, 0)
	nodes, links := wire(t, 2)

	// Two due spawn attempts, but only the first link is still live.
	s.pending = []scheduledSpawn{
		{link: links[0], at: 0},
		{link: links[1], at: 0},
	}
	s.Update(dt, links[:1], nodes)

	if s.Live() != 1 {
		t.Fatalf("Live = %d, want 1", s.Live())
	}
	s.ForEach(func(p *Particle) {
		if p.Link != links[0] {
			t.Errorf("particle spawned on removed link %s-%s", p.Link.From, p.Link.To)
		}
	})
	if len(s.pending) != 0 {
		t.Errorf("pending = %d entries, want 0", len(s.pending))
	}
}

func TestSetMaxParticlesDiscardsInFlight(t *testing.T) {
	s := NewSystem(500, 0, 0)
	nodes, links := wire(t, 3)
	for i := 0; i < 300; i++ {
		s.Spawn(links[i%3])
	}
	s.Update(dt, links, nodes)
	if s.Live() != 300 {
		t.Fatalf("Live = %d, want 300 in flight", s.Live())
	}

	disposed := s.SetMaxParticles(100)
	if len(disposed) != 500 {
		t.Errorf("disposed %d handles, want 500", len(disposed))
	}
	if s.Live() != 0 {
		t.Errorf("Live = %d after rebuild, want 0", s.Live())
	}
	if s.Max() != 100 {
		t.Errorf("Max = %d, want 100", s.Max())
	}

	// New pool is immediately usable and handles do not repeat.
	if !s.Spawn(links[0]) {
		t.Error("spawn failed after rebuild")
	}
	seen := make(map[Handle]struct{}, len(disposed))
	for _, h := range disposed {
		seen[h] = struct{}{}
	}
	for _, h := range s.pool.handles() {
		if _, dup := seen[h]; dup {
			t.Fatalf("handle %v reused across rebuild", h)
		}
	}
}
