package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypePlane
)

// ShapeInterface is the interface that all shapes must implement.
// Shapes only provide mass properties and the features needed to rest bodies on planes.
type ShapeInterface interface {
	Type() ShapeType
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
	// Support returns the furthest local point along a local direction
	Support(direction mgl64.Vec3) mgl64.Vec3
	// ContactFeature returns the local vertices of the feature facing direction
	ContactFeature(direction mgl64.Vec3) []mgl64.Vec3
}

// Box represents an oriented box shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) Type() ShapeType {
	return ShapeTypeBox
}

// ComputeMass calculates mass data for the box
func (b *Box) ComputeMass(density float64) float64 {
	// Volume = 8 * hx * hy * hz (full dimensions are 2*halfExtents)
	volume := 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()

	return density * volume
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	// I = (m/12) * (dimension1² + dimension2²)
	factor := mass / 12.0
	ix := factor * (y*y + z*z)
	iy := factor * (x*x + z*z)
	iz := factor * (x*x + y*y)

	return mgl64.Mat3{
		ix, 0, 0,
		0, iy, 0,
		0, 0, iz,
	}
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

// ContactFeature returns the face whose normal is the most aligned with direction
func (b *Box) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	dir := direction.Normalize()

	hx := b.HalfExtents.X()
	hy := b.HalfExtents.Y()
	hz := b.HalfExtents.Z()

	axis := 0
	best := math.Abs(dir.X())
	if math.Abs(dir.Y()) > best {
		axis, best = 1, math.Abs(dir.Y())
	}
	if math.Abs(dir.Z()) > best {
		axis = 2
	}
	sign := 1.0
	if dir[axis] < 0 {
		sign = -1.0
	}

	switch axis {
	case 0:
		x := sign * hx
		return []mgl64.Vec3{{x, -hy, -hz}, {x, -hy, hz}, {x, hy, hz}, {x, hy, -hz}}
	case 1:
		y := sign * hy
		return []mgl64.Vec3{{-hx, y, -hz}, {-hx, y, hz}, {hx, y, hz}, {hx, y, -hz}}
	default:
		z := sign * hz
		return []mgl64.Vec3{{-hx, -hy, z}, {-hx, hy, z}, {hx, hy, z}, {hx, -hy, z}}
	}
}

// Sphere represents a spherical shape
type Sphere struct {
	Radius float64
}

func (s *Sphere) Type() ShapeType {
	return ShapeTypeSphere
}

// ComputeMass calculates mass data for the sphere
func (s *Sphere) ComputeMass(density float64) float64 {
	// Volume of sphere = (4/3) * π * r³
	volume := (4.0 / 3.0) * math.Pi * math.Pow(s.Radius, 3)

	return density * volume
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// I = (2/5) * m * r²
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Mat3{
		i, 0, 0,
		0, i, 0,
		0, 0, i,
	}
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.Len() < 1e-12 {
		return mgl64.Vec3{}
	}
	return direction.Normalize().Mul(s.Radius)
}

func (s *Sphere) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{s.Support(direction)}
}

// Plane represents an infinite plane shape
// The plane is defined by the equation: Normal · p + Distance = 0, offset by the body position.
// Normal must be normalized. Planes are always static and ignore the body rotation.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

func (p *Plane) Type() ShapeType {
	return ShapeTypePlane
}

// ComputeMass calculates mass data for the plane
// Planes are always static with infinite mass
func (p *Plane) ComputeMass(density float64) float64 {
	return math.Inf(1)
}

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return p.Normal.Mul(-p.Distance)
}

func (p *Plane) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{p.Normal.Mul(-p.Distance)}
}

// SignedDistance returns the distance of a world point above the plane placed at origin
func (p *Plane) SignedDistance(origin, point mgl64.Vec3) float64 {
	return p.Normal.Dot(point.Sub(origin)) + p.Distance
}

// TangentBasis generates two unit tangents orthogonal to normal
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	return orthogonalBasis(normal)
}
