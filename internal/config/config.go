// Package config holds all stargraph configuration: a tagged struct with
// documented defaults, loaded from ~/.stargraph/config.toml when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/stargraph/stargraph/internal/graph"
	"github.com/stargraph/stargraph/internal/physics"
)

// Config holds all stargraph configuration.
type Config struct {
	Server    ServerConfig      `toml:"server"`
	Vault     VaultConfig       `toml:"vault"`
	Sim       SimConfig         `toml:"sim"`
	Forces    physics.Config    `toml:"forces"`
	Particles ParticlesConfig   `toml:"particles"`
	Colors    map[string]string `toml:"colors"` // folder prefix -> "#rrggbb"
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type VaultConfig struct {
	Dir        string `toml:"dir"`
	DebounceMS int    `toml:"debounce_ms"`
}

type SimConfig struct {
	TickHz int `toml:"tick_hz"`
}

type ParticlesConfig struct {
	Max       int `toml:"max"`
	SpawnMS   int `toml:"spawn_ms"`
	ShuffleMS int `toml:"shuffle_ms"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38380,
		},
		Vault: VaultConfig{
			DebounceMS: 250,
		},
		Sim: SimConfig{
			TickHz: 60,
		},
		Forces: physics.DefaultConfig(),
		Particles: ParticlesConfig{
			Max:       500,
			SpawnMS:   800,
			ShuffleMS: 40,
		},
	}
}

// ConfigPath returns the default config file path: ~/.stargraph/config.toml
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".stargraph", "config.toml"), nil
}

// Load reads the config at path over the defaults. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Debounce returns the watcher debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Vault.DebounceMS) * time.Millisecond
}

// SpawnRate returns the particle spawn cycle interval.
func (c *Config) SpawnRate() time.Duration {
	return time.Duration(c.Particles.SpawnMS) * time.Millisecond
}

// ShuffleDelay returns the per-link spawn stagger.
func (c *Config) ShuffleDelay() time.Duration {
	return time.Duration(c.Particles.ShuffleMS) * time.Millisecond
}

// ColorPolicy builds the folder→color lookup from the configured table.
// The longest matching folder prefix wins; unmatched paths keep the
// default color. Unparsable entries are skipped.
func (c *Config) ColorPolicy() graph.ColorPolicy {
	type rule struct {
		prefix string
		color  graph.Color
	}
	var rules []rule
	for prefix, hexColor := range c.Colors {
		col, err := ParseHexColor(hexColor)
		if err != nil {
			continue
		}
		rules = append(rules, rule{prefix: prefix, color: col})
	}
	if len(rules) == 0 {
		return nil
	}

	return func(path string) graph.Color {
		best := -1
		out := graph.DefaultColor
		for _, r := range rules {
			if strings.HasPrefix(path, r.prefix) && len(r.prefix) > best {
				best = len(r.prefix)
				out = r.color
			}
		}
		return out
	}
}

// ParseHexColor parses "#rrggbb" (or "rrggbb") into a Color.
func ParseHexColor(s string) (graph.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return graph.Color{}, fmt.Errorf("bad color %q: want rrggbb", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return graph.Color{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return graph.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}, nil
}
