package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stargraph/stargraph/internal/graph"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if got := cfg.ListenAddr(); got != "127.0.0.1:38380" {
		t.Errorf("ListenAddr = %q", got)
	}
	if got := cfg.Debounce(); got != 250*time.Millisecond {
		t.Errorf("Debounce = %v", got)
	}
	if got := cfg.SpawnRate(); got != 800*time.Millisecond {
		t.Errorf("SpawnRate = %v", got)
	}
	if got := cfg.ShuffleDelay(); got != 40*time.Millisecond {
		t.Errorf("ShuffleDelay = %v", got)
	}
	if cfg.Sim.TickHz != 60 {
		t.Errorf("TickHz = %d", cfg.Sim.TickHz)
	}
	if cfg.Forces.Repulsion != 0.8 {
		t.Errorf("Repulsion = %v", cfg.Forces.Repulsion)
	}
	if cfg.ColorPolicy() != nil {
		t.Error("default ColorPolicy should be nil (no color table)")
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 38380 {
		t.Errorf("Port = %d, want default", cfg.Server.Port)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
port = 9090

[vault]
dir = "/notes"
debounce_ms = 100

[forces]
repulsion = 1.5
freeze_enabled = true

[particles]
max = 64

[colors]
"projects/" = "#ff0000"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q, want untouched default", cfg.Server.Bind)
	}
	if cfg.Vault.Dir != "/notes" || cfg.Debounce() != 100*time.Millisecond {
		t.Errorf("vault = %+v", cfg.Vault)
	}
	if cfg.Forces.Repulsion != 1.5 || !cfg.Forces.FreezeEnabled {
		t.Errorf("forces = %+v", cfg.Forces)
	}
	if cfg.Forces.LinkStrength != 0.03 {
		t.Errorf("LinkStrength = %v, want untouched default", cfg.Forces.LinkStrength)
	}
	if cfg.Particles.Max != 64 || cfg.Particles.SpawnMS != 800 {
		t.Errorf("particles = %+v", cfg.Particles)
	}
	if cfg.Colors["projects/"] != "#ff0000" {
		t.Errorf("colors = %v", cfg.Colors)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed config loaded without error")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    graph.Color
		wantErr bool
	}{
		{"#ff0000", graph.Color{R: 1}, false},
		{"00ff00", graph.Color{G: 1}, false},
		{" #0000ff ", graph.Color{B: 1}, false},
		{"#808080", graph.Color{R: 128.0 / 255, G: 128.0 / 255, B: 128.0 / 255}, false},
		{"#fff", graph.Color{}, true},
		{"#gg0000", graph.Color{}, true},
		{"", graph.Color{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseHexColor(%q) succeeded, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHexColor(%q): %v", tt.in, err)
			continue
		}
		if math.Abs(got.R-tt.want.R) > 1e-9 ||
			math.Abs(got.G-tt.want.G) > 1e-9 ||
			math.Abs(got.B-tt.want.B) > 1e-9 {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestColorPolicyLongestPrefixWins(t *testing.T) {
	cfg := Default()
	cfg.Colors = map[string]string{
		"projects/":       "#ff0000",
		"projects/infra/": "#00ff00",
		"journal/":        "#0000ff",
		"badentry/":       "#nothex",
	}

	policy := cfg.ColorPolicy()
	if policy == nil {
		t.Fatal("policy is nil with a color table present")
	}

	tests := []struct {
		path string
		want graph.Color
	}{
		{"projects/Roadmap.md", graph.Color{R: 1}},
		{"projects/infra/DNS.md", graph.Color{G: 1}},
		{"journal/2026-08-27.md", graph.Color{B: 1}},
		{"misc/Other.md", graph.DefaultColor},
		{"badentry/Skipped.md", graph.DefaultColor},
	}
	for _, tt := range tests {
		if got := policy(tt.path); got != tt.want {
			t.Errorf("policy(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
