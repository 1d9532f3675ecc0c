// Package physics computes and integrates the layout forces each tick and
// owns the per-node freeze/unfreeze state machine.
//
// Integration discipline: forces and velocity integrate at a fixed per-tick
// rate (one tick per frame, no deltaTime scaling); the default force
// coefficients are tuned for that rate. Friction is the exception — it is
// a per-second drag and scales with deltaTime. Converged layouts are
// therefore frame-rate independent in shape but not in wall-clock speed.
package physics

import "sync"

// Config is the tunable force record. It is process-wide configuration:
// hot-swappable at any time, re-read by the engine every tick.
type Config struct {
	// Repulsion is the inverse-square repulsion coefficient between every
	// node pair.
	Repulsion float64 `toml:"repulsion" json:"repulsion"`

	// LinkStrength is the spring constant applied to the distance error
	// of each link.
	LinkStrength float64 `toml:"link_strength" json:"link_strength"`

	// CenterStrength pulls every node toward the origin, preventing
	// unbounded drift.
	CenterStrength float64 `toml:"center_strength" json:"center_strength"`

	// Damping is a constant per-tick multiplicative velocity decay,
	// used when Friction is zero.
	Damping float64 `toml:"damping" json:"damping"`

	// Friction is a speed-proportional drag coefficient (drag force scales
	// with speed squared). When positive it replaces Damping.
	Friction float64 `toml:"friction" json:"friction"`

	// MaxSpeed clamps node velocity by rescaling. Non-positive disables
	// the clamp.
	MaxSpeed float64 `toml:"max_speed" json:"max_speed"`

	// RestLength is the ideal spring length in simulation units.
	RestLength float64 `toml:"rest_length" json:"rest_length"`

	// SettleThreshold is the squared speed/force magnitude below which a
	// node counts as motionless.
	SettleThreshold float64 `toml:"settle_threshold" json:"settle_threshold"`

	// FreezeEnabled turns on the freeze-when-settled optimization.
	FreezeEnabled bool `toml:"freeze_enabled" json:"freeze_enabled"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Repulsion:       0.8,
		LinkStrength:    0.03,
		CenterStrength:  0.001,
		Damping:         0.9,
		Friction:        0,
		MaxSpeed:        10,
		RestLength:      2.5,
		SettleThreshold: 1e-4,
		FreezeEnabled:   false,
	}
}

// unfreezeFactor is the hysteresis ratio: a frozen node wakes only when the
// applied force exceeds 100x the settle threshold, preventing flicker at
// the boundary.
const unfreezeFactor = 100

// configHolder guards the hot-swappable Config. Setters may be called from
// any goroutine (the HTTP settings handlers); the engine snapshots the
// record once per tick.
type configHolder struct {
	mu  sync.RWMutex
	cfg Config
}

func (h *configHolder) get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

func (h *configHolder) set(cfg Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}

func (h *configHolder) update(f func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f(&h.cfg)
}
