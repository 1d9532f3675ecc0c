package physics

import (
	"github.com/stargraph/stargraph/internal/graph"
	"github.com/stargraph/stargraph/internal/vec"
)

// distanceEpsilon guards the repulsion singularity: pairs closer than this
// contribute no repulsion rather than a NaN/Inf force.
const distanceEpsilon = 1e-6

// Engine runs the force pass and integration over a borrowed node set.
// It holds no graph state of its own; the store aggregate is lent to Step
// for the duration of one tick.
type Engine struct {
	cfg configHolder
}

// New creates an Engine with the given starting configuration.
func New(cfg Config) *Engine {
	e := &Engine{}
	e.cfg.set(cfg)
	return e
}

// Config returns the current force configuration.
func (e *Engine) Config() Config {
	return e.cfg.get()
}

// SetConfig replaces the full force configuration. Takes effect on the
// next tick; never cached across ticks.
func (e *Engine) SetConfig(cfg Config) {
	e.cfg.set(cfg)
}

// SetMaxSpeed updates only the velocity clamp.
func (e *Engine) SetMaxSpeed(v float64) {
	e.cfg.update(func(c *Config) { c.MaxSpeed = v })
}

// SetFreezeEnabled toggles the freeze-when-settled policy. Disabling it
// wakes every frozen node on the next tick.
func (e *Engine) SetFreezeEnabled(on bool) {
	e.cfg.update(func(c *Config) { c.FreezeEnabled = on })
}

// Step advances the simulation by one tick. All forces are computed from
// the fully-settled prior position set — positions only move in the
// integration phase, so there is no read-after-write within a tick.
func (e *Engine) Step(nodes map[string]*graph.Node, links []*graph.Link, dt float64) {
	cfg := e.cfg.get()

	// Flatten for pairwise iteration. Accumulation is order-independent,
	// so map ordering does not matter.
	all := make([]*graph.Node, 0, len(nodes))
	for _, n := range nodes {
		n.Force = vec.V3{}
		if !cfg.FreezeEnabled && n.Frozen {
			n.Frozen = false
		}
		all = append(all, n)
	}

	e.applyRepulsion(all, cfg)
	e.applySprings(nodes, links, cfg)

	for _, n := range all {
		if n.Frozen {
			continue
		}
		n.Force = n.Force.Sub(n.Position.Scale(cfg.CenterStrength))
		integrate(n, cfg, dt)
	}

	if cfg.FreezeEnabled {
		evaluateFreeze(all, cfg)
	}
}

// applyRepulsion accumulates the O(n²) pairwise inverse-square repulsion.
// Frozen nodes still repel others (immovable anchors); they just keep
// accumulating force so the unfreeze check can see it.
func (e *Engine) applyRepulsion(all []*graph.Node, cfg Config) {
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			delta := a.Position.Sub(b.Position)
			distSq := delta.LenSq()
			if distSq < distanceEpsilon*distanceEpsilon {
				continue // coincident pair, skip to avoid the singularity
			}
			mag := cfg.Repulsion / distSq
			push := delta.Normalized().Scale(mag)
			a.Force = a.Force.Add(push)
			b.Force = b.Force.Sub(push)
		}
	}
}

// applySprings accumulates the per-link spring force. The signed distance
// error produces extension and compression naturally.
func (e *Engine) applySprings(nodes map[string]*graph.Node, links []*graph.Link, cfg Config) {
	for _, l := range links {
		from, to := nodes[l.From], nodes[l.To]
		if from == nil || to == nil {
			continue
		}
		delta := to.Position.Sub(from.Position)
		dist := delta.Len()
		if dist < distanceEpsilon {
			continue
		}
		mag := (dist - cfg.RestLength) * cfg.LinkStrength
		pull := delta.Scale(mag / dist)
		from.Force = from.Force.Add(pull)
		to.Force = to.Force.Sub(pull)
	}
}

// integrate advances one active node's velocity and position.
func integrate(n *graph.Node, cfg Config, dt float64) {
	n.Velocity = n.Velocity.Add(n.Force)

	if cfg.Friction > 0 {
		// Quadratic drag: frictionMagnitude = c·speed², applied as a
		// multiplicative scale clamped at zero so speed never overshoots
		// negative. dt-scaled: drag is a per-second rate.
		speed := n.Velocity.Len()
		if speed > 0 {
			scale := 1 - cfg.Friction*speed*dt
			if scale < 0 {
				scale = 0
			}
			n.Velocity = n.Velocity.Scale(scale)
		}
	} else {
		n.Velocity = n.Velocity.Scale(cfg.Damping)
	}

	n.Velocity = n.Velocity.ClampLen(cfg.MaxSpeed)

	if n.Velocity.LenSq() < cfg.SettleThreshold {
		n.Velocity = vec.V3{}
		if cfg.FreezeEnabled {
			n.Force = vec.V3{}
		}
	}

	n.Position = n.Position.Add(n.Velocity)
}

// evaluateFreeze runs the Active⇄Frozen transitions using the
// just-integrated velocity and force.
func evaluateFreeze(all []*graph.Node, cfg Config) {
	thr := cfg.SettleThreshold
	for _, n := range all {
		if n.Frozen {
			if n.Force.LenSq() > thr*unfreezeFactor {
				n.Frozen = false
			}
			continue
		}
		if n.Velocity.LenSq() < thr && n.Force.LenSq() < thr {
			n.Frozen = true
			n.Velocity = vec.V3{}
		}
	}
}
