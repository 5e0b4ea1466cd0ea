package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/go-gl/mathgl/mgl64"
)

// PdActuator drives body0's pivot frame toward a target frame held by body1 with
// proportional-derivative rows, inside a cone and twist limit.
type PdActuator struct {
	Bilateral

	linearSpring      float64
	linearDamper      float64
	linearRegularizer float64

	coneSpring      float64
	coneDamper      float64
	coneRegularizer float64

	twistSpring      float64
	twistDamper      float64
	twistRegularizer float64

	maxConeAngle float64
	twistEnabled bool
	minTwist     float64
	maxTwist     float64
}

func NewPdActuator(pivot actor.Transform, child, parent *actor.RigidBody) *PdActuator {
	return &PdActuator{
		Bilateral:    NewBilateral(KindPdActuator, 8, pivot, child, parent),
		maxConeAngle: config.MaxConeAngle,
	}
}

// SetLinearSpringDamper makes the position rows soft; a zero regularizer keeps them hard
func (p *PdActuator) SetLinearSpringDamper(regularizer, spring, damper float64) {
	p.linearSpring = math.Abs(spring)
	p.linearDamper = math.Abs(damper)
	p.linearRegularizer = math.Abs(regularizer)
}

// SetConeSpringDamper sets the rows that swing the pivot front toward the target
func (p *PdActuator) SetConeSpringDamper(regularizer, spring, damper float64) {
	p.coneSpring = math.Abs(spring)
	p.coneDamper = math.Abs(damper)
	p.coneRegularizer = math.Abs(regularizer)
}

// SetTwistSpringDamper sets the row about the pivot front used when the cone is closed
func (p *PdActuator) SetTwistSpringDamper(regularizer, spring, damper float64) {
	p.twistSpring = math.Abs(spring)
	p.twistDamper = math.Abs(damper)
	p.twistRegularizer = math.Abs(regularizer)
}

// SetAngularSpringDamper sets the cone and the twist springs to the same values
func (p *PdActuator) SetAngularSpringDamper(regularizer, spring, damper float64) {
	p.SetConeSpringDamper(regularizer, spring, damper)
	p.SetTwistSpringDamper(regularizer, spring, damper)
}

func (p *PdActuator) angularEnabled() bool {
	return p.coneSpring > 0 || p.coneDamper > 0 || p.twistSpring > 0 || p.twistDamper > 0
}

func (p *PdActuator) SetConeLimit(maxConeAngle float64) {
	p.maxConeAngle = math.Min(math.Abs(maxConeAngle), config.MaxConeAngle)
}

func (p *PdActuator) ConeLimit() float64 { return p.maxConeAngle }

func (p *PdActuator) SetTwistLimits(minTwist, maxTwist float64) {
	p.twistEnabled = true
	p.minTwist, p.maxTwist = sanitizeLimits(minTwist, maxTwist)
}

// SetTargetMatrix sets the goal frame expressed in body1 space
func (p *PdActuator) SetTargetMatrix(target actor.Transform) {
	p.LocalMatrix1 = target.Normalized()
}

func (p *PdActuator) TargetMatrix() actor.Transform { return p.LocalMatrix1 }

func (p *PdActuator) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	matrix0, matrix1 := p.CalculateGlobalMatrix(body0, body1)
	p.submitLinear(desc, matrix0, matrix1)

	if !p.angularEnabled() {
		return
	}
	relOmega := body0.AngularVelocity.Sub(body1.AngularVelocity)
	if matrix1.Front().Dot(matrix0.Front()) >= desc.Tuning.CartesianCosine {
		p.submitAngularCartesian(desc, matrix0, matrix1, relOmega)
	} else {
		p.submitAngular(desc, matrix0, matrix1, relOmega)
	}
}

func (p *PdActuator) submitLinear(desc *Descriptor, matrix0, matrix1 actor.Transform) {
	p0, p1 := matrix0.Position, matrix1.Position
	if p.linearRegularizer == 0 {
		desc.AddLinearRow(p0, p1, matrix1.Front())
		desc.AddLinearRow(p0, p1, matrix1.Up())
		desc.AddLinearRow(p0, p1, matrix1.Right())
		return
	}

	step := p1.Sub(p0)
	if step.Len() <= desc.Tuning.SmallDistance {
		for axis := 0; axis < 3; axis++ {
			desc.AddLinearRow(p0, p1, matrix1.Axis(axis))
			desc.SetMassSpringDamperAcceleration(p.linearRegularizer, p.linearSpring, p.linearDamper)
		}
		return
	}

	// move along the error direction only
	front, up, right := BasisFromDirection(step)
	desc.AddLinearRow(p0, p0, right)
	desc.AddLinearRow(p0, p0, up)
	desc.AddLinearRow(p0, p1, front)
	desc.SetMassSpringDamperAcceleration(p.linearRegularizer, p.linearSpring, p.linearDamper)
}

func (p *PdActuator) submitAngularCartesian(desc *Descriptor, matrix0, matrix1 actor.Transform, relOmega mgl64.Vec3) {
	twist := CalculateAngle(matrix1.Up(), matrix0.Up(), matrix1.Front())
	coneAngle := AngleBetween(matrix1.Front(), matrix0.Front())

	if coneAngle >= p.maxConeAngle {
		// zero cone: the actuator behaves as a hinge about the pivot front
		desc.AddAngularRow(matrix0.Front(), -twist)
		desc.SetMassSpringDamperAcceleration(p.twistRegularizer, p.twistSpring, p.twistDamper)
		desc.AddAngularRow(matrix1.Up(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Up()))
		desc.AddAngularRow(matrix1.Right(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Right()))
	} else {
		rotationSpringRows(desc, matrix0, matrix1, p.coneRegularizer, p.coneSpring, p.coneDamper, 0)
	}
	p.submitTwistLimits(desc, matrix0.Front(), twist, relOmega)
}

func (p *PdActuator) submitAngular(desc *Descriptor, matrix0, matrix1 actor.Transform, relOmega mgl64.Vec3) {
	rotationSpringRows(desc, matrix0, matrix1, p.coneRegularizer, p.coneSpring, p.coneDamper, 0)

	lateral := matrix1.Front().Cross(matrix0.Front())
	if lateral.Len() > 1e-6 {
		lateral = lateral.Normalize()
		coneAngle := AngleBetween(matrix1.Front(), matrix0.Front())
		maxCone := math.Min(p.maxConeAngle, desc.Tuning.MaxConeAngle)
		desc.angularLimit(1, lateral, coneAngle, lateral.Dot(relOmega), math.Inf(-1), maxCone, desc.Tuning.TwistRecovery)
	}

	twist := twistAngle(matrix0.Front(), matrix0.Up(), matrix1.Front(), matrix1.Up())
	p.submitTwistLimits(desc, matrix0.Front(), twist, relOmega)
}

func (p *PdActuator) submitTwistLimits(desc *Descriptor, pin mgl64.Vec3, twist float64, relOmega mgl64.Vec3) {
	if !p.twistEnabled {
		return
	}
	// a range narrower than two lock angles holds the twist with a hard row
	if p.maxTwist-p.minTwist < 2*desc.Tuning.LockAngle {
		desc.AddAngularRow(pin, -twist)
		desc.tagAxis(0, RowLimit)
		return
	}
	desc.angularLimit(0, pin, twist, pin.Dot(relOmega), p.minTwist, p.maxTwist, desc.Tuning.TwistRecovery)
}
