package graph

import (
	"math"
	"math/rand"
	"time"

	"github.com/stargraph/stargraph/internal/vec"
)

// spawnRadius bounds the random sphere new nodes appear in.
const spawnRadius = 5.0

// Store is the authoritative graph aggregate. It owns the node and link
// maps plus the node→links reverse index; nothing else mutates them.
// Not safe for concurrent use — the owning simulation serializes access.
type Store struct {
	nodes  map[string]*Node
	links  map[pairKey]*Link
	byNode map[string]map[pairKey]struct{}

	policy     ColorPolicy
	nextHandle Handle
	rng        *rand.Rand
}

// NewStore creates an empty Store using policy for node base colors.
// A nil policy assigns DefaultColor to everything.
func NewStore(policy ColorPolicy) *Store {
	return &Store{
		nodes:  make(map[string]*Node),
		links:  make(map[pairKey]*Link),
		byNode: make(map[string]map[pairKey]struct{}),
		policy: policy,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Store) colorFor(path string) Color {
	if s.policy == nil {
		return DefaultColor
	}
	return s.policy(path)
}

func (s *Store) allocHandle() Handle {
	s.nextHandle++
	return s.nextHandle
}

// AddNode inserts a node with fresh kinematic and pulse state.
// Re-adding an existing id is a no-op (reports false) so replayed events
// never disturb a node's position.
func (s *Store) AddNode(id, path, displayName string) bool {
	if _, exists := s.nodes[id]; exists {
		return false
	}

	base := s.colorFor(path)
	peak, mult := pulseColors(base)

	n := &Node{
		ID:          id,
		DisplayName: displayName,
		Path:        path,
		Position: vec.V3{
			X: (s.rng.Float64()*2 - 1) * spawnRadius,
			Y: (s.rng.Float64()*2 - 1) * spawnRadius,
			Z: (s.rng.Float64()*2 - 1) * spawnRadius,
		},
		Mass: 1,
		Pulse: Pulse{
			Phase:        s.rng.Float64() * 2 * math.Pi,
			AngularSpeed: 0.5 + s.rng.Float64(),
			Base:         base,
			Peak:         peak,
			Multiplier:   mult,
		},
		Scale:  1,
		Handle: s.allocHandle(),
	}
	s.nodes[id] = n
	s.byNode[id] = make(map[pairKey]struct{})
	return true
}

// RemoveNode deletes the node and every link touching it, returning the
// renderer handles the caller must dispose. Unknown ids return nil.
func (s *Store) RemoveNode(id string) []Handle {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}

	disposed := []Handle{n.Handle}
	for key := range s.byNode[id] {
		l := s.links[key]
		disposed = append(disposed, l.Handle)
		s.unlink(key, l)
	}
	delete(s.byNode, id)
	delete(s.nodes, id)
	return disposed
}

// AddLink creates a link between two existing nodes. Reports
// ErrUnknownNode if either endpoint is absent; a duplicate request for the
// same unordered pair is a no-op returning (nil, false).
func (s *Store) AddLink(from, to string) (*Link, bool, error) {
	if _, ok := s.nodes[from]; !ok {
		return nil, false, unknownNode(from)
	}
	if _, ok := s.nodes[to]; !ok {
		return nil, false, unknownNode(to)
	}

	key := keyOf(from, to)
	if _, exists := s.links[key]; exists {
		return nil, false, nil
	}

	l := &Link{From: from, To: to, Handle: s.allocHandle()}
	s.links[key] = l
	s.byNode[from][key] = struct{}{}
	s.byNode[to][key] = struct{}{}
	s.bumpConnections(from, 1)
	s.bumpConnections(to, 1)
	return l, true, nil
}

// RemoveLink deletes the link between the unordered pair, in either
// argument order. Reports the disposed handle, or false if no such link.
func (s *Store) RemoveLink(from, to string) (Handle, bool) {
	key := keyOf(from, to)
	l, ok := s.links[key]
	if !ok {
		return 0, false
	}
	s.unlink(key, l)
	return l.Handle, true
}

// unlink removes the link from the link map, both reverse-index buckets,
// and both endpoints' connection counts.
func (s *Store) unlink(key pairKey, l *Link) {
	delete(s.links, key)
	if bucket, ok := s.byNode[l.From]; ok {
		delete(bucket, key)
	}
	if bucket, ok := s.byNode[l.To]; ok {
		delete(bucket, key)
	}
	s.bumpConnections(l.From, -1)
	s.bumpConnections(l.To, -1)
}

func (s *Store) bumpConnections(id string, delta int) {
	if n, ok := s.nodes[id]; ok {
		n.Connections += delta
		n.recomputeScale()
	}
}

// RenameNode moves a node to a new id, preserving position, velocity, and
// pulse state exactly. Links touching the old id are re-pointed. newPath
// and newName are optional; empty means keep the current value.
// Returns false if oldID is unknown or newID is already taken.
func (s *Store) RenameNode(oldID, newID, newPath, newName string) bool {
	n, ok := s.nodes[oldID]
	if !ok {
		return false
	}
	if oldID == newID {
		if newPath != "" {
			n.Path = newPath
		}
		if newName != "" {
			n.DisplayName = newName
		}
		return true
	}
	if _, taken := s.nodes[newID]; taken {
		return false
	}

	delete(s.nodes, oldID)
	n.ID = newID
	if newPath != "" {
		n.Path = newPath
	}
	if newName != "" {
		n.DisplayName = newName
	}
	s.nodes[newID] = n

	bucket := s.byNode[oldID]
	delete(s.byNode, oldID)
	s.byNode[newID] = bucket
	for key := range bucket {
		l := s.links[key]
		delete(s.links, key)
		if l.From == oldID {
			l.From = newID
		}
		if l.To == oldID {
			l.To = newID
		}
		rekeyed := keyOf(l.From, l.To)
		s.links[rekeyed] = l

		// The unordered key changed, so both endpoints' buckets must swap it.
		other := l.From
		if other == newID {
			other = l.To
		}
		delete(s.byNode[other], key)
		s.byNode[other][rekeyed] = struct{}{}
		delete(s.byNode[newID], key)
		s.byNode[newID][rekeyed] = struct{}{}
	}
	return true
}

// UpdateNodeColors reassigns every node's base/peak pulse colors and glow
// multiplier from policy, leaving phase, speed, and kinematics untouched.
// Safe to call mid-simulation. The policy is retained for future AddNodes.
func (s *Store) UpdateNodeColors(policy ColorPolicy) {
	s.policy = policy
	for _, n := range s.nodes {
		base := s.colorFor(n.Path)
		peak, mult := pulseColors(base)
		n.Pulse.Base = base
		n.Pulse.Peak = peak
		n.Pulse.Multiplier = mult
	}
}

// AdvancePulses advances every node's pulse phase by dt seconds.
func (s *Store) AdvancePulses(dt float64) {
	for _, n := range s.nodes {
		n.Pulse.Phase += n.Pulse.AngularSpeed * dt
		if n.Pulse.Phase > 2*math.Pi {
			n.Pulse.Phase -= 2 * math.Pi
		}
	}
}

// HasNode reports whether id is present.
func (s *Store) HasNode(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// GetNode returns the node for id, or nil. The pointer stays valid until
// the node is removed; callers must not retain it across a mutation.
func (s *Store) GetNode(id string) *Node {
	return s.nodes[id]
}

// HasLink reports whether a link exists between the unordered pair.
func (s *Store) HasLink(a, b string) bool {
	_, ok := s.links[keyOf(a, b)]
	return ok
}

// Nodes returns the live node map for a tick's traversal. Borrowed, not
// owned: callers must not retain it past the current tick.
func (s *Store) Nodes() map[string]*Node {
	return s.nodes
}

// Links returns the live links as a slice in unspecified order.
func (s *Store) Links() []*Link {
	out := make([]*Link, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	return out
}

// LinksOf returns the links touching id.
func (s *Store) LinksOf(id string) []*Link {
	bucket := s.byNode[id]
	out := make([]*Link, 0, len(bucket))
	for key := range bucket {
		out = append(out, s.links[key])
	}
	return out
}

// NodeCount and LinkCount report current sizes.
func (s *Store) NodeCount() int { return len(s.nodes) }
func (s *Store) LinkCount() int { return len(s.links) }
