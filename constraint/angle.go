package constraint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AnglesAdd returns a + b wrapped to the shortest signed angle in [-pi, pi].
func AnglesAdd(a, b float64) float64 {
	sa, ca := math.Sincos(a)
	sb, cb := math.Sincos(b)
	return math.Atan2(sa*cb+ca*sb, ca*cb-sa*sb)
}

// CalculateAngle returns the signed angle about axis that rotates dir onto cosDir.
func CalculateAngle(dir, cosDir, axis mgl64.Vec3) float64 {
	sinAngle := dir.Cross(cosDir).Dot(axis)
	cosAngle := dir.Dot(cosDir)
	return math.Atan2(sinAngle, cosAngle)
}

// AngleBetween returns the unsigned angle between two unit vectors.
func AngleBetween(a, b mgl64.Vec3) float64 {
	return math.Acos(clampUnit(a.Dot(b)))
}

// BasisFromDirection builds a right handed front/up/right frame around dir.
// A zero dir falls back to the X axis.
func BasisFromDirection(dir mgl64.Vec3) (front, up, right mgl64.Vec3) {
	if dir.Len() < 1e-12 {
		dir = mgl64.Vec3{1, 0, 0}
	}
	front = dir.Normalize()

	lateral := mgl64.Vec3{0, 1, 0}
	if math.Abs(front.Y()) > 0.99 {
		lateral = mgl64.Vec3{1, 0, 0}
	}
	right = front.Cross(lateral).Normalize()
	up = right.Cross(front)
	return front, up, right
}

func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(x, 1))
}

// quatAxisAngle decomposes q into a unit axis and an angle in [0, pi] taking the shortest path.
// ok is false when the rotation is too small to define an axis.
func quatAxisAngle(q mgl64.Quat) (axis mgl64.Vec3, angle float64, ok bool) {
	if q.W < 0 {
		q = q.Scale(-1)
	}
	mag2 := q.V.Dot(q.V)
	if mag2 <= 1e-14 {
		return mgl64.Vec3{}, 0, false
	}
	mag := math.Sqrt(mag2)
	return q.V.Mul(1 / mag), 2 * math.Atan2(mag, q.W), true
}

// twistAngle measures the rotation of frame0 about its front axis once the swing that
// aligns frame1's front with frame0's front has been removed.
func twistAngle(front0, up0, front1, up1 mgl64.Vec3) float64 {
	lateral := front1.Cross(front0)
	if lateral.Len() > 1e-6 {
		swing := mgl64.QuatRotate(AngleBetween(front1, front0), lateral.Normalize())
		up1 = swing.Rotate(up1)
	}
	return CalculateAngle(up1, up0, front0)
}
