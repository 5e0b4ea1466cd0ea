package solver

import (
	"errors"
	"fmt"

	"github.com/akmonengine/ligament/skeleton"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrUnsupported is returned when an effector cannot be solved by the inverse dynamics pass:
// its effector body is static or does not belong to the island.
var ErrUnsupported = errors.New("ligament: unsupported inverse dynamics topology")

// NeedsInverseDynamics reports whether the island holds an effector or a joint in IK mode
func NeedsInverseDynamics(island *skeleton.Island) bool {
	for _, link := range island.Links {
		base := link.Joint.Base()
		if base.IsEnabled() && (base.Kind().IsEffector() || base.IsIkMode()) {
			return true
		}
	}
	return false
}

// SolveInverseDynamics runs the effector pass: the natural joint rows plus the effector rows
// are iterated on scratch velocities, and every joint in IK mode receives the body accelerations
// that pass found. The bodies are left untouched.
func (s *Solver) SolveInverseDynamics(island *skeleton.Island, dt float64) error {
	if dt <= 0 {
		return nil
	}
	for _, link := range island.Links {
		base := link.Joint.Base()
		if !base.Kind().IsEffector() || !base.IsEnabled() {
			continue
		}
		if link.Body0.IsStatic() || link.Index0 < 0 {
			return fmt.Errorf("effector %d on %s: %w", base.ID(), base.Body0(), ErrUnsupported)
		}
	}

	s.build(island, dt, true)
	s.prepare(island, dt)
	s.loadVelocities(island)
	s.gaussSeidel(s.tuning.IkIterations)
	s.enforceLimits(s.tuning.IkIterations)

	invdt := 1.0 / dt
	acceleration := func(index int) (mgl64.Vec3, mgl64.Vec3) {
		if index < 0 {
			return mgl64.Vec3{}, mgl64.Vec3{}
		}
		body := island.Bodies[index]
		return s.linear[index].Sub(body.Velocity).Mul(invdt), s.angular[index].Sub(body.AngularVelocity).Mul(invdt)
	}

	for _, link := range island.Links {
		base := link.Joint.Base()
		if !base.IsIkMode() {
			continue
		}
		accel0, alpha0 := acceleration(link.Index0)
		accel1, alpha1 := acceleration(link.Index1)
		base.SetIkAccelerations(accel0, alpha0, accel1, alpha1)
	}
	return nil
}
