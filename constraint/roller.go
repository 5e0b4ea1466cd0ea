package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
)

// Roller spins body0 about the pivot front and lets it slide along the pivot up,
// like a wheel on a suspension strut.
type Roller struct {
	Bilateral

	angle float64
	omega float64
	posit float64
	speed float64

	angleLimit       bool
	minAngle         float64
	maxAngle         float64
	TargetAngle      float64
	springAngle      float64
	damperAngle      float64
	regularizerAngle float64

	positLimit       bool
	minPosit         float64
	maxPosit         float64
	TargetPosit      float64
	springPosit      float64
	damperPosit      float64
	regularizerPosit float64
}

func NewRoller(pivot actor.Transform, child, parent *actor.RigidBody) *Roller {
	return &Roller{
		Bilateral: NewBilateral(KindRoller, 8, pivot, child, parent),
	}
}

func (r *Roller) Angle() float64 { return r.angle }

func (r *Roller) Omega() float64 { return r.omega }

func (r *Roller) Posit() float64 { return r.posit }

func (r *Roller) Speed() float64 { return r.speed }

func (r *Roller) SetLimitsAngle(minAngle, maxAngle float64) {
	r.angleLimit = true
	r.minAngle, r.maxAngle = sanitizeLimits(minAngle, maxAngle)
}

func (r *Roller) SetLimitsPosit(minPosit, maxPosit float64) {
	r.positLimit = true
	r.minPosit, r.maxPosit = sanitizeLimits(minPosit, maxPosit)
}

func (r *Roller) SetSpringDamperAngle(regularizer, spring, damper float64) {
	r.springAngle, r.damperAngle, r.regularizerAngle = math.Abs(spring), math.Abs(damper), regularizer
}

func (r *Roller) SetSpringDamperPosit(regularizer, spring, damper float64) {
	r.springPosit, r.damperPosit, r.regularizerPosit = math.Abs(spring), math.Abs(damper), regularizer
}

// UpdateAngle feeds a measured relative angle into the accumulated angle, which never jumps
// across the +-pi branch cut.
func (r *Roller) UpdateAngle(measured float64) {
	r.angle += AnglesAdd(measured, -r.angle)
}

func (r *Roller) updateParameters(matrix0, matrix1 actor.Transform, body0, body1 *actor.RigidBody) {
	r.UpdateAngle(CalculateAngle(matrix1.Up(), matrix0.Up(), matrix1.Front()))
	r.omega = matrix1.Front().Dot(body0.AngularVelocity.Sub(body1.AngularVelocity))

	pin := matrix1.Up()
	r.posit = matrix0.Position.Sub(matrix1.Position).Dot(pin)
	r.speed = body0.VelocityAtPoint(matrix0.Position).Sub(body1.VelocityAtPoint(matrix0.Position)).Dot(pin)
}

func (r *Roller) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	matrix0, matrix1 := r.CalculateGlobalMatrix(body0, body1)
	r.updateParameters(matrix0, matrix1, body0, body1)
	p0 := matrix0.Position

	desc.AddLinearRow(p0, matrix1.Position, matrix1.Front())
	desc.AddLinearRow(p0, matrix1.Position, matrix1.Right())

	desc.AddAngularRow(matrix1.Up(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Up()))
	desc.AddAngularRow(matrix1.Right(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Right()))

	hit := false
	if r.angleLimit {
		hit = desc.angularLimit(0, matrix0.Front(), r.angle, r.omega, r.minAngle, r.maxAngle, desc.Tuning.AngleRecovery)
	}
	if !hit {
		desc.freeAngularAxis(0, matrix0.Front(), AnglesAdd(r.TargetAngle, -r.angle), r.springAngle, r.damperAngle, r.regularizerAngle)
	}

	pin := matrix1.Up()
	hit = false
	if r.positLimit {
		hit = desc.linearLimit(1, p0, pin, r.posit, r.speed, r.minPosit, r.maxPosit, desc.Tuning.PositionRecovery)
	}
	if !hit {
		target := matrix1.Position.Add(pin.Mul(r.TargetPosit))
		desc.freeLinearAxis(1, p0, target, pin, r.springPosit, r.damperPosit, r.regularizerPosit)
	}
}
