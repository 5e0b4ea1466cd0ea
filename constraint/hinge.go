package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
)

// Hinge rotates body0 about the front axis of the pivot frame
type Hinge struct {
	Bilateral

	angle float64
	omega float64

	limitEnabled bool
	minAngle     float64
	maxAngle     float64

	TargetAngle float64
	spring      float64
	damper      float64
	regularizer float64
}

// NewHinge creates a hinge whose axis is the front of pivot. A nil parent hinges on the world.
func NewHinge(pivot actor.Transform, child, parent *actor.RigidBody) *Hinge {
	return &Hinge{
		Bilateral: NewBilateral(KindHinge, 7, pivot, child, parent),
	}
}

func (h *Hinge) Angle() float64 { return h.angle }

func (h *Hinge) Omega() float64 { return h.omega }

// SetLimits enables the angle limits; the range must contain zero
func (h *Hinge) SetLimits(minAngle, maxAngle float64) {
	h.limitEnabled = true
	h.minAngle, h.maxAngle = sanitizeLimits(minAngle, maxAngle)
}

func (h *Hinge) Limits() (float64, float64, bool) {
	return h.minAngle, h.maxAngle, h.limitEnabled
}

func (h *Hinge) DisableLimits() {
	h.limitEnabled = false
}

// SetSpringDamper pulls the hinge toward TargetAngle
func (h *Hinge) SetSpringDamper(regularizer, spring, damper float64) {
	h.spring, h.damper, h.regularizer = math.Abs(spring), math.Abs(damper), regularizer
}

func (h *Hinge) updateParameters(matrix0, matrix1 actor.Transform, body0, body1 *actor.RigidBody) {
	measured := CalculateAngle(matrix1.Up(), matrix0.Up(), matrix1.Front())
	h.angle += AnglesAdd(measured, -h.angle)
	h.omega = matrix1.Front().Dot(body0.AngularVelocity.Sub(body1.AngularVelocity))
}

func (h *Hinge) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	matrix0, matrix1 := h.CalculateGlobalMatrix(body0, body1)
	h.updateParameters(matrix0, matrix1, body0, body1)

	desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Front())
	desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Up())
	desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Right())

	desc.AddAngularRow(matrix1.Up(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Up()))
	desc.AddAngularRow(matrix1.Right(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Right()))

	hit := false
	if h.limitEnabled {
		hit = desc.angularLimit(0, matrix0.Front(), h.angle, h.omega, h.minAngle, h.maxAngle, desc.Tuning.AngleRecovery)
	}
	if !hit {
		desc.freeAngularAxis(0, matrix0.Front(), AnglesAdd(h.TargetAngle, -h.angle), h.spring, h.damper, h.regularizer)
	}
}
