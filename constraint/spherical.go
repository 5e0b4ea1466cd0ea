package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
)

// Spherical is a ball and socket joint with an optional cone limit around the pivot front,
// twist limits about it and viscous friction on the three rotation axes.
type Spherical struct {
	Bilateral

	maxConeAngle float64
	twistEnabled bool
	minTwist     float64
	maxTwist     float64

	viscousFriction float64
}

func NewSpherical(pivot actor.Transform, child, parent *actor.RigidBody) *Spherical {
	return &Spherical{
		Bilateral: NewBilateral(KindSpherical, 8, pivot, child, parent),
	}
}

// SetConeLimit bounds the swing of body0's front around the parent front; zero disables it
func (s *Spherical) SetConeLimit(maxConeAngle float64) {
	s.maxConeAngle = math.Abs(maxConeAngle)
}

func (s *Spherical) SetTwistLimits(minTwist, maxTwist float64) {
	s.twistEnabled = true
	s.minTwist, s.maxTwist = sanitizeLimits(minTwist, maxTwist)
}

// SetViscousFriction bounds the torque used to stop the relative rotation
func (s *Spherical) SetViscousFriction(torque float64) {
	s.viscousFriction = math.Abs(torque)
}

// ConeAngle returns the current swing between the two pivot fronts
func (s *Spherical) ConeAngle(body0, body1 *actor.RigidBody) float64 {
	matrix0, matrix1 := s.CalculateGlobalMatrix(body0, body1)
	return AngleBetween(matrix0.Front(), matrix1.Front())
}

func (s *Spherical) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	matrix0, matrix1 := s.CalculateGlobalMatrix(body0, body1)
	relOmega := body0.AngularVelocity.Sub(body1.AngularVelocity)

	desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Front())
	desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Up())
	desc.AddLinearRow(matrix0.Position, matrix1.Position, matrix1.Right())

	hit := false
	if s.maxConeAngle > 0 {
		coneAngle := AngleBetween(matrix0.Front(), matrix1.Front())
		lateral := matrix1.Front().Cross(matrix0.Front())
		if lateral.Len() > 1e-6 {
			lateral = lateral.Normalize()
			maxCone := math.Min(s.maxConeAngle, desc.Tuning.MaxConeAngle)
			hit = desc.angularLimit(1, lateral, coneAngle, lateral.Dot(relOmega), math.Inf(-1), maxCone, desc.Tuning.AngleRecovery) || hit
		}
	}

	if s.twistEnabled {
		twist := twistAngle(matrix0.Front(), matrix0.Up(), matrix1.Front(), matrix1.Up())
		hit = desc.angularLimit(0, matrix0.Front(), twist, matrix0.Front().Dot(relOmega), s.minTwist, s.maxTwist, desc.Tuning.TwistRecovery) || hit
	}

	if hit {
		return
	}
	switch {
	case s.ik.Enabled:
		if !desc.InverseDynamics {
			for axis := 0; axis < 3; axis++ {
				desc.AddAngularRow(matrix0.Axis(axis), 0)
				desc.ikMotor(axis)
			}
		}
	case s.viscousFriction > 0:
		for axis := 0; axis < 3; axis++ {
			desc.AddAngularRow(matrix0.Axis(axis), 0)
			desc.SetMotorAcceleration(desc.MotorZeroAcceleration())
			desc.SetFrictionBounds(s.viscousFriction)
			desc.tagAxis(axis, RowFriction)
		}
	}
}
