package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
)

// Slider lets body0 translate along the front axis of the pivot frame, without rotation
type Slider struct {
	Bilateral

	posit float64
	speed float64

	limitEnabled bool
	minPosit     float64
	maxPosit     float64

	TargetPosit float64
	spring      float64
	damper      float64
	regularizer float64
}

func NewSlider(pivot actor.Transform, child, parent *actor.RigidBody) *Slider {
	return &Slider{
		Bilateral: NewBilateral(KindSlider, 7, pivot, child, parent),
	}
}

func (s *Slider) Posit() float64 { return s.posit }

func (s *Slider) Speed() float64 { return s.speed }

func (s *Slider) SetLimits(minPosit, maxPosit float64) {
	s.limitEnabled = true
	s.minPosit, s.maxPosit = sanitizeLimits(minPosit, maxPosit)
}

func (s *Slider) SetSpringDamper(regularizer, spring, damper float64) {
	s.spring, s.damper, s.regularizer = math.Abs(spring), math.Abs(damper), regularizer
}

func (s *Slider) JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody) {
	matrix0, matrix1 := s.CalculateGlobalMatrix(body0, body1)
	pin := matrix1.Front()
	p0 := matrix0.Position

	s.posit = p0.Sub(matrix1.Position).Dot(pin)
	s.speed = body0.VelocityAtPoint(p0).Sub(body1.VelocityAtPoint(p0)).Dot(pin)

	desc.AddLinearRow(p0, matrix1.Position, matrix1.Up())
	desc.AddLinearRow(p0, matrix1.Position, matrix1.Right())

	desc.AddAngularRow(matrix1.Front(), CalculateAngle(matrix0.Up(), matrix1.Up(), matrix1.Front()))
	desc.AddAngularRow(matrix1.Up(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Up()))
	desc.AddAngularRow(matrix1.Right(), CalculateAngle(matrix0.Front(), matrix1.Front(), matrix1.Right()))

	hit := false
	if s.limitEnabled {
		hit = desc.linearLimit(0, p0, pin, s.posit, s.speed, s.minPosit, s.maxPosit, desc.Tuning.PositionRecovery)
	}
	if !hit {
		target := matrix1.Position.Add(pin.Mul(s.TargetPosit))
		desc.freeLinearAxis(0, p0, target, pin, s.spring, s.damper, s.regularizer)
	}
}
