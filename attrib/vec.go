package attrib

import (
	"math"

	"golang.org/x/image/math/f32"
)

func add(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func scale(a f32.Vec3, s float32) f32.Vec3 { return f32.Vec3{a[0] * s, a[1] * s, a[2] * s} }

func dot(a, b f32.Vec3) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func length(a f32.Vec3) float32 {
	return float32(math.Sqrt(float64(dot(a, a))))
}

// normalize returns a scaled to unit length, or the zero vector if a
// has no usable length.
func normalize(a f32.Vec3) f32.Vec3 {
	l := length(a)
	if !usable(l) {
		return f32.Vec3{}
	}
	return scale(a, 1/l)
}

// usable reports whether l is a finite, non-zero length.
func usable(l float32) bool {
	return l > 0 && !math.IsInf(float64(l), 0) && !math.IsNaN(float64(l))
}

func abs(v float32) float32 { return math.Float32frombits(math.Float32bits(v) &^ (1 << 31)) }
