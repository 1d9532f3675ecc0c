package graph

import (
	"math"
	"testing"
)

func TestLuminance(t *testing.T) {
	if got := Luminance(Color{R: 1, G: 1, B: 1}); math.Abs(got-1) > 1e-12 {
		t.Errorf("white luminance = %v, want 1", got)
	}
	if got := Luminance(Color{}); got != 0 {
		t.Errorf("black luminance = %v, want 0", got)
	}
	if got := Luminance(Color{G: 1}); math.Abs(got-0.587) > 1e-12 {
		t.Errorf("green luminance = %v, want 0.587", got)
	}
}

func TestBrightnessMultiplier(t *testing.T) {
	// Bright colors never glow.
	if got := BrightnessMultiplier(Color{R: 1, G: 1, B: 1}); got != 0 {
		t.Errorf("white multiplier = %v, want 0", got)
	}
	if got := BrightnessMultiplier(Color{R: 0.9, G: 0.9, B: 0.9}); got != 0 {
		t.Errorf("near-white multiplier = %v, want 0", got)
	}

	// Black gets the full 10x boost.
	if got := BrightnessMultiplier(Color{}); math.Abs(got-10) > 1e-12 {
		t.Errorf("black multiplier = %v, want 10", got)
	}

	// Quadratic falloff between the extremes.
	mid := Color{R: 0.425, G: 0.425, B: 0.425} // luminance = glowCeiling/2
	want := 10 * 0.25
	if got := BrightnessMultiplier(mid); math.Abs(got-want) > 1e-9 {
		t.Errorf("mid multiplier = %v, want %v", got, want)
	}

	// Monotone: darker never glows less.
	prev := math.Inf(1)
	for l := 0.0; l <= 1.0; l += 0.05 {
		m := BrightnessMultiplier(Color{R: l, G: l, B: l})
		if m > prev {
			t.Fatalf("multiplier rose from %v to %v at gray %v", prev, m, l)
		}
		prev = m
	}
}

func TestBrightenMovesTowardWhite(t *testing.T) {
	base := Color{R: 0.2, G: 0.4, B: 0.6}
	peak := brighten(base, 0.5)

	want := Color{R: 0.6, G: 0.7, B: 0.8}
	if math.Abs(peak.R-want.R) > 1e-12 ||
		math.Abs(peak.G-want.G) > 1e-12 ||
		math.Abs(peak.B-want.B) > 1e-12 {
		t.Errorf("peak = %v, want %v", peak, want)
	}

	if got := brighten(base, 1); got != (Color{R: 1, G: 1, B: 1}) {
		t.Errorf("brighten(_, 1) = %v, want white", got)
	}
	if got := brighten(base, 0); got != base {
		t.Errorf("brighten(_, 0) = %v, want base", got)
	}
}

func TestEmissiveIntensityRange(t *testing.T) {
	n := Node{Pulse: Pulse{Multiplier: 4}}

	min, max := math.Inf(1), math.Inf(-1)
	for phase := 0.0; phase < 2*math.Pi; phase += 0.01 {
		n.Pulse.Phase = phase
		e := n.EmissiveIntensity()
		if e < min {
			min = e
		}
		if e > max {
			max = e
		}
	}
	if min < 1-1e-9 {
		t.Errorf("min emissive = %v, want >= 1", min)
	}
	if max > 5+1e-9 {
		t.Errorf("max emissive = %v, want <= 1+multiplier", max)
	}

	// A zero multiplier pins intensity at 1 for all phases.
	n.Pulse.Multiplier = 0
	n.Pulse.Phase = 1.3
	if got := n.EmissiveIntensity(); got != 1 {
		t.Errorf("emissive with zero multiplier = %v, want 1", got)
	}
}
