// Package sim owns one simulation instance: the graph store, the physics
// engine, and the particle flow system, plus the tick loop contract.
//
// Concurrency model: a single logical tick advances physics, then node
// pulse/scale state, then particles. One mutex guards the aggregate for the
// whole tick, so a mutation arriving mid-frame blocks until the tick
// boundary and is then applied atomically — no tick ever observes a
// half-applied mutation.
package sim

import (
	"log"
	"sync"
	"time"

	"github.com/stargraph/stargraph/internal/graph"
	"github.com/stargraph/stargraph/internal/particles"
	"github.com/stargraph/stargraph/internal/physics"
	"github.com/stargraph/stargraph/internal/vec"
)

// Options configures a new Simulation.
type Options struct {
	Forces       physics.Config
	ColorPolicy  graph.ColorPolicy
	MaxParticles int
	SpawnRate    time.Duration
	ShuffleDelay time.Duration
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		Forces:       physics.DefaultConfig(),
		MaxParticles: 500,
		SpawnRate:    800 * time.Millisecond,
		ShuffleDelay: 40 * time.Millisecond,
	}
}

// Simulation is the owned aggregate handed to the physics and particle
// subsystems one tick at a time.
type Simulation struct {
	mu      sync.Mutex
	store   *graph.Store
	engine  *physics.Engine
	flow    *particles.System
	running bool
	ticks   uint64
}

// New creates a stopped Simulation.
func New(opts Options) *Simulation {
	return &Simulation{
		store:  graph.NewStore(opts.ColorPolicy),
		engine: physics.New(opts.Forces),
		flow:   particles.NewSystem(opts.MaxParticles, opts.SpawnRate, opts.ShuffleDelay),
	}
}

// Start enables ticking. Idempotent.
func (s *Simulation) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// Stop disables ticking, leaving every position intact. Safe to call from
// within a mutation callback. Idempotent.
func (s *Simulation) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Running reports whether the simulation accepts ticks.
func (s *Simulation) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Tick advances the simulation by dt seconds: physics, then pulse/scale
// state, then particles. Driven by a caller-owned scheduler; a late frame
// simply arrives with a larger dt. No-op while stopped.
func (s *Simulation) Tick(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	nodes := s.store.Nodes()
	links := s.store.Links()

	s.engine.Step(nodes, links, dt)
	s.store.AdvancePulses(dt)
	s.flow.Update(dt, links, nodes)
	s.ticks++
}

// AddNode inserts a node. Re-adding an existing id is a no-op.
func (s *Simulation) AddNode(id, path, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.AddNode(id, path, displayName)
}

// RemoveNode deletes a node and every link touching it, returning the
// renderer handles to dispose. Unknown ids return nil.
func (s *Simulation) RemoveNode(id string) []graph.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RemoveNode(id)
}

// RenameNode moves a node to a new id/path, preserving kinematics exactly.
// An empty newName keeps the current display name; a pure path move never
// touches the label.
func (s *Simulation) RenameNode(oldID, newID, newPath, newName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.store.RenameNode(oldID, newID, newPath, newName) {
		log.Printf("sim: rename %q -> %q dropped (unknown id or taken)", oldID, newID)
	}
}

// AddLink creates a link between two existing nodes. A reference to an
// unknown node is logged and ignored — late events racing with deletion
// are expected, never fatal. Duplicate pairs are silent no-ops.
func (s *Simulation) AddLink(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.store.AddLink(a, b); err != nil {
		log.Printf("sim: drop link %s -> %s: %v", a, b, err)
	}
}

// RemoveLink deletes the link between the pair, in either order. No-op if
// absent. Returns the disposed handle when a link was removed.
func (s *Simulation) RemoveLink(a, b string) (graph.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RemoveLink(a, b)
}

// HasNode reports whether id is live.
func (s *Simulation) HasNode(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.HasNode(id)
}

// GetNode returns a copy of the node state, so callers never retain a
// reference into the live aggregate.
func (s *Simulation) GetNode(id string) (graph.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.store.GetNode(id)
	if n == nil {
		return graph.Node{}, false
	}
	return *n, true
}

// HasLink reports whether a link exists between the unordered pair.
func (s *Simulation) HasLink(a, b string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.HasLink(a, b)
}

// UpdateNodeColors recomputes every node's pulse colors from policy
// without touching kinematics. Callable mid-simulation.
func (s *Simulation) UpdateNodeColors(policy graph.ColorPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.UpdateNodeColors(policy)
}

// SetForces swaps the force configuration; the engine reads it fresh on
// the next tick.
func (s *Simulation) SetForces(cfg physics.Config) {
	s.engine.SetConfig(cfg)
}

// Forces returns the current force configuration.
func (s *Simulation) Forces() physics.Config {
	return s.engine.Config()
}

// SetMaxSpeed updates only the velocity clamp.
func (s *Simulation) SetMaxSpeed(v float64) {
	s.engine.SetMaxSpeed(v)
}

// SetFreezeEnabled toggles the freeze-when-settled policy.
func (s *Simulation) SetFreezeEnabled(on bool) {
	s.engine.SetFreezeEnabled(on)
}

// SetMaxParticles rebuilds the particle pool, discarding in-flight
// particles, and returns the disposed slot handles. Not a hot-path call.
func (s *Simulation) SetMaxParticles(n int) []particles.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.SetMaxParticles(n)
}

// SetParticleSpawnRate sets the interval between spawn cycles.
func (s *Simulation) SetParticleSpawnRate(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow.SetSpawnRate(d)
}

// SetParticleShuffleDelay sets the per-link spawn stagger.
func (s *Simulation) SetParticleShuffleDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow.SetShuffleDelay(d)
}

// LiveParticles reports the in-flight particle count.
func (s *Simulation) LiveParticles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.Live()
}

// NodeCount and LinkCount report current graph sizes.
func (s *Simulation) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.NodeCount()
}

func (s *Simulation) LinkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LinkCount()
}

// NodeInfo is a node's structural summary for graph snapshots.
type NodeInfo struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
	Connections int    `json:"connections"`
	Frozen      bool   `json:"frozen"`
}

// LinkInfo is a link's structural summary for graph snapshots.
type LinkInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Snapshot returns the graph structure (no kinematics) for API consumers.
func (s *Simulation) Snapshot() ([]NodeInfo, []LinkInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]NodeInfo, 0, s.store.NodeCount())
	for _, n := range s.store.Nodes() {
		nodes = append(nodes, NodeInfo{
			ID:          n.ID,
			Path:        n.Path,
			DisplayName: n.DisplayName,
			Connections: n.Connections,
			Frozen:      n.Frozen,
		})
	}
	links := make([]LinkInfo, 0)
	for _, l := range s.store.Links() {
		links = append(links, LinkInfo{From: l.From, To: l.To})
	}
	return nodes, links
}

// NodeFrame is one node's per-frame render state.
type NodeFrame struct {
	ID       string      `json:"id"`
	Position vec.V3      `json:"position"`
	Scale    float64     `json:"scale"`
	Emissive float64     `json:"emissive"`
	Color    graph.Color `json:"color"`
}

// ParticleFrame is one in-flight particle's per-frame render state.
type ParticleFrame struct {
	Position vec.V3  `json:"position"`
	Scale    float64 `json:"scale"`
}

// Frame is the read-back snapshot consumed by the external renderer.
// Distance-to-viewer is the caller's camera concern, not computed here.
type Frame struct {
	Tick      uint64          `json:"tick"`
	Nodes     []NodeFrame     `json:"nodes"`
	Particles []ParticleFrame `json:"particles"`
}

// Frame captures the current render state. The returned value shares
// nothing with the live aggregate.
func (s *Simulation) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := Frame{Tick: s.ticks}
	for _, n := range s.store.Nodes() {
		f.Nodes = append(f.Nodes, NodeFrame{
			ID:       n.ID,
			Position: n.Position,
			Scale:    n.Scale,
			Emissive: n.EmissiveIntensity(),
			Color:    n.Pulse.Base,
		})
	}
	s.flow.ForEach(func(p *particles.Particle) {
		f.Particles = append(f.Particles, ParticleFrame{
			Position: p.Position,
			Scale:    p.Scale,
		})
	})
	return f
}
