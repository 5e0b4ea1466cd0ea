package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
)

// DoubleHinge is a universal joint: body0 spins about the pivot front (pin0) carried by body0,
// which swings about the pivot up (pin1) carried by body1.
type DoubleHinge struct {
	Bilateral

	angle0, omega0 float64
	angle1, omega1 float64

	limit0, limit1 bool
	min0, max0     float64
	min1, max1     float64

	TargetAngle0, TargetAngle1 float64
	spring0, damper0, reg0     float64
	spring1, damper1, reg1     float64
}

func NewDoubleHinge(pivot actor.Transform, child, parent *actor.RigidBody) *DoubleHinge {
	return &DoubleHinge{
		Bilateral: NewBilateral(KindDoubleHinge, 8, pivot, child, parent),
	}
}

func (j *DoubleHinge) Angles() (float64, float64) { return j.angle0, j.angle1 }

func (j *DoubleHinge) SetLimits0(minAngle, maxAngle float64) {
	j.limit0 = true
	j.min0, j.max0 = sanitizeLimits(minAngle, maxAngle)
}

func (j *DoubleHinge) SetLimits1(minAngle, maxAngle float64) {
	j.limit1 = true
	j.min1, j.max1 = sanitizeLimits(minAngle, maxAngle)
}

func (j *DoubleHinge) SetSpringDamper0(regularizer, spring, damper float64) {
	j.spring0, j.damper0, j.reg0 = math.Abs(spring), math.Abs(damper), regularizer
}

func (j *DoubleHinge) SetSpringDamper1(regularizer, spring, damper float64) {
	j.spring1, j.damper1, j.reg1 = math.Abs(spring), math.Abs(damper), regularizer
}

func (j *DoubleHinge) updateParameters(matrix0, matrix1 actor.Transform, body0, body1 *actor.RigidBody) {
	relOmega := body0.AngularVelocity.Sub(body1.AngularVelocity)

	j.angle0 += AnglesAdd(CalculateAngle(matrix1.Up(), matrix0.Up(), matrix0.Front()), -j.angle0)
	j.omega0 = matrix0.Front().Dot(relOmega)

	j.angle1 += AnglesAdd(CalculateAngle(matrix1.Front(), matrix0.Front(), matrix1.Up()), -j.angle1)
	j.omega1 = matrix1.Up().Dot(relOmega)
}

func (j *DoubleHinge) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	matrix0, matrix1 := j.CalculateGlobalMatrix(body0, body1)
	j.updateParameters(matrix0, matrix1, body0, body1)

	pin0 := matrix0.Front()
	pin1 := matrix1.Up()

	desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Front())
	desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Up())
	desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Right())

	// keep the two pins orthogonal
	lock := pin0.Cross(pin1)
	if lock.Len() < 1e-6 {
		lock = matrix1.Right()
	}
	lock = lock.Normalize()
	desc.AddAngularRow(lock, -math.Asin(clampUnit(pin0.Dot(pin1))))

	hit := false
	if j.limit0 {
		hit = desc.angularLimit(0, pin0, j.angle0, j.omega0, j.min0, j.max0, desc.Tuning.AngleRecovery)
	}
	if !hit {
		desc.freeAngularAxis(0, pin0, AnglesAdd(j.TargetAngle0, -j.angle0), j.spring0, j.damper0, j.reg0)
	}

	hit = false
	if j.limit1 {
		hit = desc.angularLimit(1, pin1, j.angle1, j.omega1, j.min1, j.max1, desc.Tuning.AngleRecovery)
	}
	if !hit {
		desc.freeAngularAxis(1, pin1, AnglesAdd(j.TargetAngle1, -j.angle1), j.spring1, j.damper1, j.reg1)
	}
}
