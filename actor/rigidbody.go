package actor

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and constraints
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are never written by the solver (e.g., ground, the world anchor)
	BodyTypeStatic
)

// OrthogonalTolerance bounds how far a matrix handed to SetMatrix may drift from orthonormal.
const OrthogonalTolerance = 1e-4

var uniqueIDCount atomic.Uint32

type Material struct {
	Density     float64
	mass        float64
	Restitution float64 // 0= no rebound, 1= perfect restitution

	StaticFriction  float64
	DynamicFriction float64
	LinearDamping   float64 // 0.0 - 1.0, typical: 0.01
	AngularDamping  float64 // 0.0 - 1.0, typical: 0.05
}

func (material Material) GetMass() float64 {
	return material.mass
}

// RigidBody represents a rigid body in the physics simulation.
// Bodies are owned by the world; joints reference them through their Handle.
type RigidBody struct {
	// ID is unique for the process lifetime and stable across steps, usable by savers
	ID     uint32
	handle BodyHandle

	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	// Linear motion
	Velocity mgl64.Vec3 // Linear velocity of the centre of mass (m/s)

	// Angular motion
	AngularVelocity mgl64.Vec3 // rad/s

	LocalCenterOfMass  mgl64.Vec3
	GlobalCenterOfMass mgl64.Vec3

	InertiaLocal        mgl64.Mat3
	InverseInertiaLocal mgl64.Mat3

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	IsSleeping bool
	// Equilibrium is cleared by any external state change and set when the island rests
	Equilibrium bool
	AutoSleep   bool

	// Physical properties
	Material Material
	BodyType BodyType

	Shape ShapeInterface
}

// NewRigidBody creates a new rigid body with the given properties
// density is used to calculate mass for dynamic bodies (ignored for static)
func NewRigidBody(transform Transform, shape ShapeInterface, bodyType BodyType, density float64) *RigidBody {
	transform = transform.Normalized()
	rb := &RigidBody{
		ID:                uniqueIDCount.Add(1),
		handle:            WorldHandle,
		PreviousTransform: transform,
		Transform:         transform,
		Shape:             shape,
		BodyType:          bodyType,
		AutoSleep:         true,
	}

	if bodyType == BodyTypeStatic {
		rb.Material = Material{
			Density: 0,
			mass:    math.Inf(1),
		}
	} else {
		rb.Material = Material{
			Density: density,
			mass:    shape.ComputeMass(density),
		}
	}

	if bodyType == BodyTypeDynamic && rb.Material.mass > 0 && !math.IsInf(rb.Material.mass, 1) {
		rb.InertiaLocal = shape.ComputeInertia(rb.Material.mass)
		rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
	}
	rb.updateCenterOfMass()

	return rb
}

// NewStaticBody creates an immovable body without a shape, used as a joint anchor
func NewStaticBody(transform Transform) *RigidBody {
	return NewRigidBody(transform, &Sphere{}, BodyTypeStatic, 0)
}

func (rb *RigidBody) Handle() BodyHandle {
	return rb.handle
}

// SetHandle is called by the world when the body is inserted in its arena
func (rb *RigidBody) SetHandle(h BodyHandle) {
	rb.handle = h
}

func (rb *RigidBody) IsStatic() bool {
	return rb.BodyType == BodyTypeStatic
}

// InvMass returns 0 for static bodies and bodies without finite positive mass
func (rb *RigidBody) InvMass() float64 {
	mass := rb.Material.mass
	if rb.IsStatic() || mass <= 0 || math.IsInf(mass, 1) {
		return 0
	}
	return 1.0 / mass
}

// SetMass overrides the mass computed from the shape and rescales the inertia accordingly
func (rb *RigidBody) SetMass(mass float64) {
	if rb.IsStatic() || mass <= 0 {
		return
	}
	rb.Material.mass = mass
	rb.InertiaLocal = rb.Shape.ComputeInertia(mass)
	rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
}

func (rb *RigidBody) SetCenterOfMass(local mgl64.Vec3) {
	rb.LocalCenterOfMass = local
	rb.updateCenterOfMass()
}

func (rb *RigidBody) updateCenterOfMass() {
	rb.GlobalCenterOfMass = rb.Transform.TransformPoint(rb.LocalCenterOfMass)
}

// Matrix returns the body frame (orientation and position of the body origin)
func (rb *RigidBody) Matrix() mgl64.Mat4 {
	return rb.Transform.Matrix()
}

// SetMatrix places the body. The rotation part must be orthonormal within OrthogonalTolerance;
// it is re-orthonormalised through a unit quaternion in any case.
func (rb *RigidBody) SetMatrix(m mgl64.Mat4) bool {
	orthonormal := IsOrthonormal(m.Mat3(), OrthogonalTolerance)
	rb.SetTransform(TransformFromMatrix(m))
	return orthonormal
}

func (rb *RigidBody) SetTransform(t Transform) {
	rb.Equilibrium = false
	rb.Transform = t.Normalized()
	rb.PreviousTransform = rb.Transform
	rb.updateCenterOfMass()
}

func (rb *RigidBody) SetVelocity(v mgl64.Vec3) {
	rb.Equilibrium = false
	rb.SetVelocityNoSleep(v)
	rb.Awake()
}

func (rb *RigidBody) SetOmega(w mgl64.Vec3) {
	rb.Equilibrium = false
	rb.SetOmegaNoSleep(w)
	rb.Awake()
}

// SetVelocityNoSleep writes the velocity without waking the body or clearing its equilibrium
func (rb *RigidBody) SetVelocityNoSleep(v mgl64.Vec3) {
	rb.Velocity = v
}

func (rb *RigidBody) SetOmegaNoSleep(w mgl64.Vec3) {
	rb.AngularVelocity = w
}

// VelocityAtPoint returns the velocity of a world point rigidly attached to the body
func (rb *RigidBody) VelocityAtPoint(point mgl64.Vec3) mgl64.Vec3 {
	return rb.Velocity.Add(rb.AngularVelocity.Cross(point.Sub(rb.GlobalCenterOfMass)))
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.Equilibrium = true

	rb.ClearForces()
	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
}

// IntegrateVelocity applies gravity, accumulated forces and damping to the velocities
func (rb *RigidBody) IntegrateVelocity(dt float64, gravity mgl64.Vec3) {
	if rb.IsStatic() || rb.IsSleeping {
		return
	}

	invMass := rb.InvMass()
	if invMass > 0 {
		accel := gravity.Add(rb.accumulatedForce.Mul(invMass))
		rb.Velocity = rb.Velocity.Add(accel.Mul(dt))
	}
	rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.Material.LinearDamping * dt))

	angularAccel := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAccel.Mul(dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.Material.AngularDamping * dt))

	rb.ClearForces()
}

// IntegratePosition advances the centre of mass and the orientation, then moves the origin
// so that the local centre of mass stays attached
func (rb *RigidBody) IntegratePosition(dt float64) {
	if rb.IsStatic() || rb.IsSleeping {
		return
	}

	rb.PreviousTransform = rb.Transform

	com := rb.GlobalCenterOfMass.Add(rb.Velocity.Mul(dt))

	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.Rotation = rb.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Conjugate()

	rb.GlobalCenterOfMass = com
	rb.Transform.Position = com.Sub(rb.Transform.Rotation.Rotate(rb.LocalCenterOfMass))
}

// AddForce in N, applied at the centre of mass
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if !rb.IsStatic() {
		rb.Awake()
		rb.Equilibrium = false
		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

// AddTorque in N⋅m
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if !rb.IsStatic() {
		rb.Awake()
		rb.Equilibrium = false
		rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	}
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// SupportWorld returns the furthest world point of the shape along a world direction
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	localDirection := rb.Transform.InverseRotation.Rotate(direction)
	localSupport := rb.Shape.Support(localDirection)
	return rb.Transform.TransformPoint(localSupport)
}

// KineticEnergy returns ½mv² + ½ωᵀIω
func (rb *RigidBody) KineticEnergy() float64 {
	if rb.IsStatic() {
		return 0
	}
	linear := 0.5 * rb.Material.mass * rb.Velocity.Dot(rb.Velocity)
	angular := 0.5 * rb.AngularVelocity.Dot(rb.GetInertiaWorld().Mul3x1(rb.AngularVelocity))
	return linear + angular
}

// GetInertiaWorld returns the inertia tensor in world space
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	// I_world = R * I_local * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// GetInverseInertiaWorld returns the inverse inertia tensor in world space
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.IsStatic() {
		return mgl64.Mat3{}
	}

	// I_world^(-1) = R * I_local^(-1) * R^T
	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}

// IsOrthonormal reports whether the columns of m are unit length and mutually orthogonal
func IsOrthonormal(m mgl64.Mat3, tolerance float64) bool {
	c0, c1, c2 := m.Col(0), m.Col(1), m.Col(2)
	if math.Abs(c0.Len()-1) > tolerance || math.Abs(c1.Len()-1) > tolerance || math.Abs(c2.Len()-1) > tolerance {
		return false
	}
	if math.Abs(c0.Dot(c1)) > tolerance || math.Abs(c0.Dot(c2)) > tolerance || math.Abs(c1.Dot(c2)) > tolerance {
		return false
	}
	// right handed
	return c0.Cross(c1).Dot(c2) > 0
}
