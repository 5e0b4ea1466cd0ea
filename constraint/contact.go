package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactPoint is a world space contact; Normal points from body1 toward body0
type ContactPoint struct {
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	Depth    float64
}

// Contact is a unilateral constraint generated by the world for one contact point.
// It submits a normal row and two friction rows bounded by Friction times the normal impulse.
type Contact struct {
	Bilateral

	Point       ContactPoint
	Restitution float64
	Friction    float64
}

func NewContact(body0, body1 *actor.RigidBody, point ContactPoint) *Contact {
	return &Contact{
		Bilateral: Bilateral{
			kind:         KindContact,
			body0:        body0.Handle(),
			body1:        body1.Handle(),
			LocalMatrix0: actor.NewTransform(),
			LocalMatrix1: actor.NewTransform(),
			maxRows:      3,
			enabled:      true,
			model:        ModelLoop,
		},
		Point:       point,
		Restitution: ComputeRestitution(body0.Material, body1.Material),
		Friction:    ComputeStaticFriction(body0.Material, body1.Material),
	}
}

// NormalForce is the force the contact pushed with in the last solve
func (c *Contact) NormalForce() float64 {
	return c.Force(0)
}

func (c *Contact) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	p := c.Point.Position
	normal := c.Point.Normal

	desc.AddLinearRow(p, p, normal)
	speed := desc.last().JointSpeed

	target := 0.0
	if speed < -desc.Tuning.RestitutionSpeed {
		target = -c.Restitution * speed
	}
	recovery := desc.Tuning.ErrorReduction * math.Max(c.Point.Depth-desc.Tuning.ContactSlop, 0) * desc.InvTimestep
	target = math.Max(target, math.Min(recovery, desc.Tuning.ContactRecovery))

	desc.SetMotorAcceleration((target - speed) * desc.InvTimestep)
	desc.SetLowerFriction(0)
	desc.last().Penetration = c.Point.Depth
	desc.tagAxis(0, RowContact)
	normalIndex := desc.RowCount() - 1

	tangent1, tangent2 := actor.TangentBasis(normal)
	for axis, tangent := range []mgl64.Vec3{tangent1, tangent2} {
		desc.AddLinearRow(p, p, tangent)
		desc.SetMotorAcceleration(desc.MotorZeroAcceleration())
		row := desc.last()
		row.NormalIndex = normalIndex
		row.Friction = c.Friction
		desc.tagAxis(axis+1, RowFriction)
	}
}
