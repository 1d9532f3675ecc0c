package vec

import "math"

// V3 is a 3-component vector in simulation space.
type V3 struct {
	X, Y, Z float64
}

// Add returns v + u.
func (v V3) Add(u V3) V3 {
	return V3{v.X + u.X, v.Y + u.Y, v.Z + u.Z}
}

// Sub returns v - u.
func (v V3) Sub(u V3) V3 {
	return V3{v.X - u.X, v.Y - u.Y, v.Z - u.Z}
}

// Scale returns v scaled by s.
func (v V3) Scale(s float64) V3 {
	return V3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and u.
func (v V3) Dot(u V3) float64 {
	return v.X*u.X + v.Y*u.Y + v.Z*u.Z
}

// LenSq returns the squared length of v. Cheaper than Len when only
// comparing against a squared threshold.
func (v V3) LenSq() float64 {
	return v.Dot(v)
}

// Len returns the length of v.
func (v V3) Len() float64 {
	return math.Sqrt(v.LenSq())
}

// Normalized returns v scaled to unit length, or the zero vector if v is
// too short to normalize safely.
func (v V3) Normalized() V3 {
	l := v.Len()
	if l < 1e-12 {
		return V3{}
	}
	return v.Scale(1 / l)
}

// ClampLen returns v rescaled so its length does not exceed max.
// A non-positive max disables clamping.
func (v V3) ClampLen(max float64) V3 {
	if max <= 0 {
		return v
	}
	l := v.Len()
	if l <= max {
		return v
	}
	return v.Scale(max / l)
}

// Lerp returns the linear interpolation between a and b at t in [0,1].
func Lerp(a, b V3, t float64) V3 {
	return V3{
		a.X + (b.X-a.X)*t,
		a.Y + (b.Y-a.Y)*t,
		a.Z + (b.Z-a.Z)*t,
	}
}
