package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Gear couples the spin of two bodies: ratio * w0·pin0 + w1·pin1 = 0.
// The pins are stored in the local frame of their body.
type Gear struct {
	Bilateral

	pin0  mgl64.Vec3
	pin1  mgl64.Vec3
	ratio float64
	// MaxTorque bounds the coupling torque; zero leaves it unbounded
	MaxTorque float64
}

// NewGear couples body0 spinning about the world axis pin0 with body1 spinning about pin1
func NewGear(ratio float64, pin0 mgl64.Vec3, body0 *actor.RigidBody, pin1 mgl64.Vec3, body1 *actor.RigidBody) *Gear {
	g := &Gear{
		Bilateral: NewBilateral(KindGear, 1, actor.NewTransform(), body0, body1),
		ratio:     ratio,
	}
	g.pin0 = localDirection(body0, pin0)
	g.pin1 = localDirection(body1, pin1)
	return g
}

func localDirection(body *actor.RigidBody, dir mgl64.Vec3) mgl64.Vec3 {
	if dir.Len() < 1e-12 {
		dir = mgl64.Vec3{1, 0, 0}
	}
	dir = dir.Normalize()
	if body == nil {
		return dir
	}
	return body.Transform.InverseRotation.Rotate(dir)
}

func (g *Gear) Ratio() float64 { return g.ratio }

func (g *Gear) SetRatio(ratio float64) { g.ratio = ratio }

// IsEngaged reports whether the ratio is large enough for the gear to submit its row
func (g *Gear) IsEngaged(threshold float64) bool {
	return math.Abs(g.ratio) >= threshold
}

func (g *Gear) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	if !g.IsEngaged(desc.Tuning.GearRatioThreshold) {
		return
	}
	pin0 := body0.Transform.Rotation.Rotate(g.pin0)
	pin1 := body1.Transform.Rotation.Rotate(g.pin1)

	desc.AddRow(Jacobian{Angular: pin0.Mul(g.ratio)}, Jacobian{Angular: pin1}, 0)
	desc.SetMotorAcceleration(desc.MotorZeroAcceleration())
	desc.SetFrictionBounds(g.MaxTorque)
	desc.tagAxis(0, RowMotor)
}
