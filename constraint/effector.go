package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Ik6DofEffector pulls a frame attached to body0 toward a target frame held by body1.
// It only submits rows during the inverse dynamics pass.
type Ik6DofEffector struct {
	Bilateral

	linearSpring      float64
	linearDamper      float64
	linearRegularizer float64

	angularEnabled     bool
	angularSpring      float64
	angularDamper      float64
	angularRegularizer float64

	// MaxForce and MaxTorque bound the effector rows; zero leaves them unbounded
	MaxForce  float64
	MaxTorque float64
}

// NewIk6DofEffector attaches the effector frame offset (world space) to effector. The target
// starts at the current pose of the frame, expressed in reference space; a nil reference is the world.
func NewIk6DofEffector(offset actor.Transform, effector, reference *actor.RigidBody) *Ik6DofEffector {
	return &Ik6DofEffector{
		Bilateral:         NewBilateral(KindIk6DofEffector, 6, offset, effector, reference),
		linearSpring:      1000,
		linearDamper:      50,
		linearRegularizer: 0.01,
	}
}

func (e *Ik6DofEffector) SetLinearSpringDamper(regularizer, spring, damper float64) {
	e.linearSpring, e.linearDamper, e.linearRegularizer = math.Abs(spring), math.Abs(damper), regularizer
}

// SetAngularSpringDamper enables the rotation rows
func (e *Ik6DofEffector) SetAngularSpringDamper(regularizer, spring, damper float64) {
	e.angularSpring, e.angularDamper, e.angularRegularizer = math.Abs(spring), math.Abs(damper), regularizer
	e.angularEnabled = e.angularSpring > 0 || e.angularDamper > 0
}

// SetTargetMatrix sets the goal frame in reference body space
func (e *Ik6DofEffector) SetTargetMatrix(target actor.Transform) {
	e.LocalMatrix1 = target.Normalized()
}

// SetTargetPosition moves the goal, in reference body space, keeping its rotation
func (e *Ik6DofEffector) SetTargetPosition(position mgl64.Vec3) {
	e.LocalMatrix1.Position = position
}

func (e *Ik6DofEffector) TargetMatrix() actor.Transform { return e.LocalMatrix1 }

// Error returns the distance between the effector frame and its target
func (e *Ik6DofEffector) Error(body0, body1 *actor.RigidBody) float64 {
	matrix0, matrix1 := e.CalculateGlobalMatrix(body0, body1)
	return matrix1.Position.Sub(matrix0.Position).Len()
}

func (e *Ik6DofEffector) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	if !desc.InverseDynamics {
		return
	}
	matrix0, matrix1 := e.CalculateGlobalMatrix(body0, body1)

	for axis := 0; axis < 3; axis++ {
		desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Axis(axis))
		desc.SetMassSpringDamperAcceleration(e.linearRegularizer, e.linearSpring, e.linearDamper)
		desc.SetFrictionBounds(e.MaxForce)
		desc.tagAxis(axis, 0)
	}

	if e.angularEnabled {
		rotationSpringRows(desc, matrix0, matrix1, e.angularRegularizer, e.angularSpring, e.angularDamper, e.MaxTorque)
	}
}

// IkSwivelPositionEffector pulls a point of body0 toward a target position and rotates the limb
// about the line from a pivot on body1 to that point until it reaches the swivel angle.
type IkSwivelPositionEffector struct {
	Bilateral

	pivot        mgl64.Vec3
	swivelRef    mgl64.Vec3
	SwivelAngle  float64
	swivelActive bool

	linearSpring       float64
	linearDamper       float64
	linearRegularizer  float64
	angularSpring      float64
	angularDamper      float64
	angularRegularizer float64

	MaxForce  float64
	MaxTorque float64
}

// NewIkSwivelPositionEffector uses pivotFrame (world) as the limb root: its position is the pivot
// and its up axis the zero swivel reference. effectorPosition is a world point on effector.
func NewIkSwivelPositionEffector(pivotFrame actor.Transform, effectorPosition mgl64.Vec3, effector, reference *actor.RigidBody) *IkSwivelPositionEffector {
	offset := actor.NewTransformFrom(effectorPosition, pivotFrame.Rotation)
	e := &IkSwivelPositionEffector{
		Bilateral:          NewBilateral(KindIkSwivelPositionEffector, 4, offset, effector, reference),
		pivot:              pivotFrame.Position,
		swivelRef:          pivotFrame.Normalized().Up(),
		linearSpring:       1000,
		linearDamper:       50,
		linearRegularizer:  0.01,
		angularSpring:      500,
		angularDamper:      25,
		angularRegularizer: 0.01,
	}
	if reference != nil {
		e.pivot = reference.Transform.UntransformPoint(e.pivot)
		e.swivelRef = reference.Transform.InverseRotation.Rotate(e.swivelRef)
	}
	return e
}

func (e *IkSwivelPositionEffector) SetLinearSpringDamper(regularizer, spring, damper float64) {
	e.linearSpring, e.linearDamper, e.linearRegularizer = math.Abs(spring), math.Abs(damper), regularizer
}

func (e *IkSwivelPositionEffector) SetAngularSpringDamper(regularizer, spring, damper float64) {
	e.angularSpring, e.angularDamper, e.angularRegularizer = math.Abs(spring), math.Abs(damper), regularizer
}

// SetTargetPosition moves the goal, in reference body space
func (e *IkSwivelPositionEffector) SetTargetPosition(position mgl64.Vec3) {
	e.LocalMatrix1.Position = position
}

func (e *IkSwivelPositionEffector) TargetPosition() mgl64.Vec3 { return e.LocalMatrix1.Position }

// SetSwivelAngle enables the swivel row and sets its goal
func (e *IkSwivelPositionEffector) SetSwivelAngle(angle float64) {
	e.SwivelAngle = angle
	e.swivelActive = true
}

// Swivel measures the current rotation of body0's pivot up about the pivot to effector line
func (e *IkSwivelPositionEffector) Swivel(body0, body1 *actor.RigidBody) (float64, bool) {
	matrix0, _ := e.CalculateGlobalMatrix(body0, body1)
	_, angle, ok := e.swivel(matrix0, body1)
	return angle, ok
}

func (e *IkSwivelPositionEffector) swivel(matrix0 actor.Transform, body1 *actor.RigidBody) (mgl64.Vec3, float64, bool) {
	pivot := body1.Transform.TransformPoint(e.pivot)
	axis := matrix0.Position.Sub(pivot)
	if axis.Len() < 1e-6 {
		return mgl64.Vec3{}, 0, false
	}
	axis = axis.Normalize()

	ref := body1.Transform.Rotation.Rotate(e.swivelRef)
	ref = ref.Sub(axis.Mul(ref.Dot(axis)))
	current := matrix0.Up()
	current = current.Sub(axis.Mul(current.Dot(axis)))
	if ref.Len() < 1e-6 || current.Len() < 1e-6 {
		return axis, 0, false
	}
	return axis, CalculateAngle(ref.Normalize(), current.Normalize(), axis), true
}

func (e *IkSwivelPositionEffector) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	if !desc.InverseDynamics {
		return
	}
	matrix0, matrix1 := e.CalculateGlobalMatrix(body0, body1)

	for axis := 0; axis < 3; axis++ {
		desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Axis(axis))
		desc.SetMassSpringDamperAcceleration(e.linearRegularizer, e.linearSpring, e.linearDamper)
		desc.SetFrictionBounds(e.MaxForce)
		desc.tagAxis(axis, 0)
	}

	if !e.swivelActive {
		return
	}
	if axis, angle, ok := e.swivel(matrix0, body1); ok {
		desc.AddAngularRow(axis, AnglesAdd(e.SwivelAngle, -angle))
		desc.SetMassSpringDamperAcceleration(e.angularRegularizer, e.angularSpring, e.angularDamper)
		desc.SetFrictionBounds(e.MaxTorque)
		desc.tagAxis(3, 0)
	}
}

// rotationSpringRows adds three spring rows that rotate frame0 onto frame1 along the shortest arc.
// Small rotations use the three axes of frame1.
func rotationSpringRows(desc *Descriptor, matrix0, matrix1 actor.Transform, regularizer, spring, damper, maxTorque float64) {
	q0 := matrix0.Rotation
	q1 := matrix1.Rotation
	if q1.Dot(q0) < 0 {
		q1 = q1.Scale(-1)
	}

	row := func(dir mgl64.Vec3, angleError float64) {
		desc.AddAngularRow(dir, angleError)
		desc.SetMassSpringDamperAcceleration(regularizer, spring, damper)
		desc.SetFrictionBounds(maxTorque)
	}

	if pin, angle, ok := quatAxisAngle(q0.Mul(q1.Inverse())); ok {
		front, up, right := BasisFromDirection(pin)
		row(front, -angle)
		row(up, 0)
		row(right, 0)
		return
	}

	row(matrix1.Front(), CalculateAngle(matrix0.Up(), matrix1.Up(), matrix1.Front()))
	row(matrix1.Up(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Up()))
	row(matrix1.Right(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Right()))
}
