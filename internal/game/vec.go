package game

import "math"

// Vec3 is a world position. X and Z span the ground plane, Y is height.
type Vec3 struct {
	X, Y, Z float64
}

// V3 is shorthand for a ground-plane position at height 0.
func V3(x, z float64) Vec3 { return Vec3{X: x, Z: z} }

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Len() float64         { return math.Sqrt(v.Dot(v)) }
func (v Vec3) Dist(o Vec3) float64  { return v.Sub(o).Len() }

// PlanarDist ignores height.
func (v Vec3) PlanarDist(o Vec3) float64 { return math.Hypot(v.X-o.X, v.Z-o.Z) }

// Normalized returns the unit vector, or the zero vector for a zero-length input.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// AngleBetween returns the angle in degrees between a and b.
// Zero-length inputs yield 0.
func AngleBetween(a, b Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la < 1e-12 || lb < 1e-12 {
		return 0
	}
	c := a.Dot(b) / (la * lb)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c) * 180 / math.Pi
}

// HeadingTo returns the ground-plane heading in radians from one point toward another.
func HeadingTo(from, to Vec3) float64 {
	return math.Atan2(to.Z-from.Z, to.X-from.X)
}

// HeadingVec converts a heading into a unit forward vector on the ground plane.
func HeadingVec(heading float64) Vec3 {
	return Vec3{X: math.Cos(heading), Z: math.Sin(heading)}
}

// normalizeAngle wraps a radian angle into (-π, π].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
