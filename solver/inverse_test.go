package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// limitedArm is a two bar arm hinged on the world, both hinges limited to [-limit, limit] and in
// IK mode, with an effector at the tip of the lower bar aiming out of reach
type limitedArm struct {
	*rig
	shoulder, elbow *constraint.Hinge
	lower           *actor.RigidBody
	effector        *constraint.Ik6DofEffector
}

func newLimitedArm(limit, maxTorque float64) *limitedArm {
	r := newRig()
	upper := r.link(mgl64.Vec3{0.5, 0, 0})
	lower := r.link(mgl64.Vec3{1.5, 0, 0})
	shoulder := r.hingeZ(upper, nil, mgl64.Vec3{})
	elbow := r.hingeZ(lower, upper, mgl64.Vec3{1, 0, 0})
	for _, h := range []*constraint.Hinge{shoulder, elbow} {
		h.SetLimits(-limit, limit)
		h.SetIkMode(true, maxTorque)
	}

	effector := constraint.NewIk6DofEffector(actor.NewTransformFrom(mgl64.Vec3{2, 0, 0}, mgl64.QuatIdent()), lower, nil)
	effector.SetTargetPosition(mgl64.Vec3{0, 5, 0})
	r.joints = append(r.joints, effector)

	return &limitedArm{rig: r, shoulder: shoulder, elbow: elbow, lower: lower, effector: effector}
}

// step runs the inverse dynamics pass and the solve, then integrates the bodies
func (a *limitedArm) step(t *testing.T, s *Solver) {
	t.Helper()
	for _, body := range a.bodies {
		body.IntegrateVelocity(testTimestep, mgl64.Vec3{})
	}
	island := a.island()
	if err := s.SolveInverseDynamics(island, testTimestep); err != nil {
		t.Fatal(err)
	}
	s.Solve(island, testTimestep)
	for _, body := range a.bodies {
		body.IntegratePosition(testTimestep)
	}
}

func TestSolveInverseDynamics_UnreachableTarget(t *testing.T) {
	const limit = 0.5

	arm := newLimitedArm(limit, 5)
	initial := arm.effector.Error(arm.lower, arm.world)
	s := New(&arm.tuning)

	for step := 0; step < 240; step++ {
		arm.step(t, s)
	}

	// refresh the joint angles from the final pose
	arm.jointSpeeds()
	for name, h := range map[string]*constraint.Hinge{"shoulder": arm.shoulder, "elbow": arm.elbow} {
		if math.Abs(h.Angle()) > limit+0.01 {
			t.Errorf("%s angle = %v, beyond the limit %v", name, h.Angle(), limit)
		}
	}

	final := arm.effector.Error(arm.lower, arm.world)
	if final >= initial {
		t.Errorf("effector error went from %v to %v, want it to shrink", initial, final)
	}
}

func TestSolveInverseDynamics_LimitHoldsAgainstMotor(t *testing.T) {
	const limit = 0.5

	arm := newLimitedArm(limit, 5)
	s := New(&arm.tuning)

	worst := 0.0
	for step := 0; step < 600; step++ {
		arm.step(t, s)
		if step < 300 {
			continue
		}
		arm.jointSpeeds()
		worst = math.Max(worst, math.Max(math.Abs(arm.shoulder.Angle()), math.Abs(arm.elbow.Angle())))
	}

	if worst > limit+0.01 {
		t.Errorf("max angle over the last 300 steps = %v, want at most %v", worst, limit+0.01)
	}
}

func TestSolveInverseDynamics_LeavesBodiesUntouched(t *testing.T) {
	r := newRig()
	bar := r.link(mgl64.Vec3{0.5, 0, 0})
	hinge := r.hingeZ(bar, nil, mgl64.Vec3{})
	hinge.SetIkMode(true, 0)
	effector := constraint.NewIk6DofEffector(actor.NewTransformFrom(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent()), bar, nil)
	effector.SetTargetPosition(mgl64.Vec3{0, 1, 0})
	r.joints = append(r.joints, effector)

	s := New(&r.tuning)
	if err := s.SolveInverseDynamics(r.island(), testTimestep); err != nil {
		t.Fatal(err)
	}

	if bar.Velocity != (mgl64.Vec3{}) || bar.AngularVelocity != (mgl64.Vec3{}) {
		t.Errorf("the inverse dynamics pass moved the body: v=%v w=%v", bar.Velocity, bar.AngularVelocity)
	}
	// the tip has to swing toward +Y, so the bar accelerates counter clockwise about Z
	if alpha := hinge.Ik().Alpha0.Z(); alpha <= 0 {
		t.Errorf("IK angular acceleration about Z = %v, want positive", alpha)
	}
	if hinge.Ik().Alpha1 != (mgl64.Vec3{}) {
		t.Error("the world does not accelerate")
	}
}

func TestSolveInverseDynamics_Unsupported(t *testing.T) {
	r := newRig()
	anchor := r.add(actor.NewStaticBody(actor.NewTransformFrom(mgl64.Vec3{3, 0, 0}, mgl64.QuatIdent())))
	bar := r.link(mgl64.Vec3{0.5, 0, 0})
	r.hingeZ(bar, nil, mgl64.Vec3{})
	// the effector body is static: nothing can move it
	effector := constraint.NewIk6DofEffector(actor.NewTransformFrom(mgl64.Vec3{3, 0, 0}, mgl64.QuatIdent()), anchor, bar)
	r.joints = append(r.joints, effector)

	s := New(&r.tuning)
	err := s.SolveInverseDynamics(r.island(), testTimestep)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestNeedsInverseDynamics(t *testing.T) {
	r := newRig()
	bar := r.link(mgl64.Vec3{0.5, 0, 0})
	hinge := r.hingeZ(bar, nil, mgl64.Vec3{})

	if NeedsInverseDynamics(r.island()) {
		t.Error("a plain hinge needs no inverse dynamics pass")
	}
	hinge.SetIkMode(true, 10)
	if !NeedsInverseDynamics(r.island()) {
		t.Error("an IK mode joint needs the inverse dynamics pass")
	}
}
