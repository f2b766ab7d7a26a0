// Package geo provides vector math and toroidal geometry for the world.
package geo

import "math"

// Vec2 is a 2-D vector.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Cross returns the 2-D cross product (z component) of v and o.
func (v Vec2) Cross(o Vec2) float64 {
	return v.X*o.Y - v.Y*o.X
}

// Length returns the magnitude of v.
func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// LengthSq returns the squared magnitude of v.
func (v Vec2) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalize returns v scaled to unit length, or the zero vector if v is zero.
func (v Vec2) Normalize() Vec2 {
	mag := v.Length()
	if mag == 0 {
		return Vec2{}
	}
	return Vec2{v.X / mag, v.Y / mag}
}

// Rotate returns v rotated by angle radians.
func (v Vec2) Rotate(angle float64) Vec2 {
	sin, cos := math.Sincos(angle)
	return Vec2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

// Wrap maps x into [0, bound) for a toroidal axis.
func Wrap(x, bound float64) float64 {
	x = math.Mod(x, bound)
	if x < 0 {
		x += bound
	}
	return x
}

// WrapVec wraps a position onto a w x h torus.
func WrapVec(p Vec2, w, h float64) Vec2 {
	return Vec2{Wrap(p.X, w), Wrap(p.Y, h)}
}

// WrapAngle maps an angle into [0, 2*pi).
func WrapAngle(a float64) float64 {
	return Wrap(a, 2*math.Pi)
}

// NormalizeAngle maps an angle into [-pi, pi].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Delta returns the shortest toroidal offset from a to b on a w x h torus.
func Delta(a, b Vec2, w, h float64) Vec2 {
	dx := b.X - a.X
	dy := b.Y - a.Y

	if dx > w/2 {
		dx -= w
	} else if dx < -w/2 {
		dx += w
	}
	if dy > h/2 {
		dy -= h
	} else if dy < -h/2 {
		dy += h
	}

	return Vec2{dx, dy}
}

// Dist returns the toroidal distance between a and b on a w x h torus.
func Dist(a, b Vec2, w, h float64) float64 {
	return Delta(a, b, w, h).Length()
}
