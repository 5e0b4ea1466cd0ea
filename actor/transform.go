package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform represents a position and an orientation in 3D space.
// The rotated X, Y and Z axes are called front, up and right; front x up = right.
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// NewTransformFrom creates a transform from a position and a rotation
func NewTransformFrom(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	t := Transform{Position: position, Rotation: rotation}
	return t.Normalized()
}

// TransformFromAxes builds a right-handed frame whose front axis is front and whose up axis is
// the part of up orthogonal to front. A degenerate up falls back to a lateral direction.
func TransformFromAxes(position, front, up mgl64.Vec3) Transform {
	front = front.Normalize()
	right := front.Cross(up)
	if right.Len() < 1e-6 {
		_, up = orthogonalBasis(front)
		right = front.Cross(up)
	}
	right = right.Normalize()
	up = right.Cross(front)

	rotation := mgl64.Mat4ToQuat(mgl64.Mat3FromCols(front, up, right).Mat4())
	return NewTransformFrom(position, rotation)
}

// TransformFromMatrix converts a 4x4 frame matrix (columns front, up, right, position).
func TransformFromMatrix(m mgl64.Mat4) Transform {
	rotation := mgl64.Mat4ToQuat(m)
	return NewTransformFrom(m.Col(3).Vec3(), rotation)
}

// Normalized returns the transform with a unit rotation and a refreshed inverse.
// A zero rotation is treated as identity.
func (t Transform) Normalized() Transform {
	if t.Rotation.Len() < 1e-12 {
		t.Rotation = mgl64.QuatIdent()
	}
	t.Rotation = t.Rotation.Normalize()
	t.InverseRotation = t.Rotation.Conjugate()
	return t
}

func (t Transform) Front() mgl64.Vec3 {
	return t.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
}

func (t Transform) Up() mgl64.Vec3 {
	return t.Rotation.Rotate(mgl64.Vec3{0, 1, 0})
}

func (t Transform) Right() mgl64.Vec3 {
	return t.Rotation.Rotate(mgl64.Vec3{0, 0, 1})
}

// Axis returns front, up or right for index 0, 1 or 2
func (t Transform) Axis(i int) mgl64.Vec3 {
	switch i {
	case 0:
		return t.Front()
	case 1:
		return t.Up()
	default:
		return t.Right()
	}
}

// TransformPoint maps a local point into the parent space
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p).Add(t.Position)
}

// UntransformPoint maps a parent space point into local space
func (t Transform) UntransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(p.Sub(t.Position))
}

// Mul composes t with a transform expressed in t's local space.
func (t Transform) Mul(local Transform) Transform {
	return Transform{
		Position: t.TransformPoint(local.Position),
		Rotation: t.Rotation.Mul(local.Rotation),
	}.Normalized()
}

func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Position: inv.Rotate(t.Position.Mul(-1)),
		Rotation: inv,
	}.Normalized()
}

// Local expresses a global transform in t's local space.
func (t Transform) Local(global Transform) Transform {
	return t.Inverse().Mul(global)
}

// Matrix returns the 4x4 frame: columns front, up, right and position.
func (t Transform) Matrix() mgl64.Mat4 {
	m := t.Rotation.Normalize().Mat4()
	m.SetCol(3, t.Position.Vec4(1))
	return m
}

// orthogonalBasis returns two unit vectors orthogonal to dir and to each other.
func orthogonalBasis(dir mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent mgl64.Vec3
	if math.Abs(dir.X()) > 0.9 {
		tangent = mgl64.Vec3{0, 1, 0}
	} else {
		tangent = mgl64.Vec3{1, 0, 0}
	}

	tangent = tangent.Sub(dir.Mul(tangent.Dot(dir))).Normalize()
	bitangent := dir.Cross(tangent).Normalize()

	return tangent, bitangent
}
