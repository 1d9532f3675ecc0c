package graph

// Color is an RGB triple with components in [0,1].
type Color struct {
	R, G, B float64
}

// ColorPolicy maps a note path to its base color. Supplied by the host
// (folder-to-color settings); the store falls back to DefaultColor when nil.
type ColorPolicy func(path string) Color

// DefaultColor is the base color for nodes with no policy match.
var DefaultColor = Color{R: 0.35, G: 0.55, B: 0.95}

// Luminance returns the perceptual luminance of c (ITU-R BT.601 weights).
func Luminance(c Color) float64 {
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}

// glowCeiling is the luminance above which a color gets no emissive boost.
const glowCeiling = 0.85

// BrightnessMultiplier computes the emissive glow boost for a base color.
// Bright colors get no boost; near-black colors approach a 10x peak,
// scaling quadratically in between. Must be recomputed whenever a node's
// assigned color changes.
func BrightnessMultiplier(c Color) float64 {
	l := Luminance(c)
	if l >= glowCeiling {
		return 0
	}
	f := (glowCeiling - l) / glowCeiling
	return 10 * f * f
}

// brighten moves c toward white by fraction t, producing the pulse peak.
func brighten(c Color, t float64) Color {
	return Color{
		R: c.R + (1-c.R)*t,
		G: c.G + (1-c.G)*t,
		B: c.B + (1-c.B)*t,
	}
}

// pulseFor builds fresh pulse color state for a base color, preserving
// nothing: phase and speed are assigned by the store at node creation.
func pulseColors(base Color) (peak Color, multiplier float64) {
	return brighten(base, 0.5), BrightnessMultiplier(base)
}
