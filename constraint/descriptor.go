package constraint

import (
	"math"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/akmonengine/ligament/internal/debug"
	"github.com/go-gl/mathgl/mgl64"
)

// RowFlags mark the role of a row for the solver and for diagnostics
type RowFlags uint8

const (
	RowSpring RowFlags = 1 << iota
	RowLimit
	RowMotor
	RowContact
	RowFriction
)

// Jacobian is the linear and angular part of a row for one body
type Jacobian struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// Dot returns J·(v, w)
func (j Jacobian) Dot(v, w mgl64.Vec3) float64 {
	return j.Linear.Dot(v) + j.Angular.Dot(w)
}

// Row is one scalar constraint equation between body0 and body1.
// Penetration is the displacement of body0 relative to body1 along the row that satisfies it.
type Row struct {
	Jacobian0 Jacobian
	Jacobian1 Jacobian

	JointSpeed  float64
	Accel       float64
	Penetration float64
	// Lower and Upper bound the row force; the solver clamps the accumulated impulse to them times dt
	Lower       float64
	Upper       float64
	Regularizer float64

	// NormalIndex points to the normal row a friction row is bounded by, -1 otherwise
	NormalIndex int
	Friction    float64

	Flags RowFlags
	Axis  int
}

// TargetVelocity is the relative velocity the row asks for at the end of the step
func (r *Row) TargetVelocity(dt float64) float64 {
	return r.JointSpeed + r.Accel*dt
}

// IsBounded reports whether the row needs the projected iterative solver
func (r *Row) IsBounded() bool {
	return r.NormalIndex >= 0 || !math.IsInf(r.Lower, -1) || !math.IsInf(r.Upper, 1)
}

// LimitHit is reported when a limit row had to stop the joint harder than Tuning.MaxStopAccel
type LimitHit struct {
	JointID uint32
	Axis    int
}

// Descriptor is the per step scratch buffer that joints fill with rows.
type Descriptor struct {
	Rows        []Row
	Timestep    float64
	InvTimestep float64
	Tuning      *config.Tuning
	// InverseDynamics is set while the effector pass builds its rows
	InverseDynamics bool
	Hits            []LimitHit

	joint *Bilateral
	body0 *actor.RigidBody
	body1 *actor.RigidBody
}

// NewDescriptor creates a descriptor for steps of dt. A nil tuning uses config.DefaultTuning.
func NewDescriptor(dt float64, tuning *config.Tuning) *Descriptor {
	if tuning == nil {
		defaults := config.DefaultTuning()
		tuning = &defaults
	}
	d := &Descriptor{
		Rows:   make([]Row, 0, 64),
		Tuning: tuning,
	}
	d.Reset(dt)
	return d
}

// Reset empties the descriptor for a new solve
func (d *Descriptor) Reset(dt float64) {
	d.Rows = d.Rows[:0]
	d.Hits = d.Hits[:0]
	d.Timestep = dt
	d.InvTimestep = 0
	if dt > 0 {
		d.InvTimestep = 1.0 / dt
	}
	d.joint, d.body0, d.body1 = nil, nil, nil
}

// Build lets joint submit its rows against the two bodies and returns the range it filled
func (d *Descriptor) Build(joint Joint, body0, body1 *actor.RigidBody) (first, count int) {
	first = len(d.Rows)
	d.joint, d.body0, d.body1 = joint.Base(), body0, body1
	joint.JacobianDerivative(d, body0, body1)
	count = len(d.Rows) - first
	debug.Assert(count <= joint.Base().MaxRows(), "%s joint %d submitted %d rows", joint.Base().Kind(), joint.Base().ID(), count)
	d.joint, d.body0, d.body1 = nil, nil, nil
	return first, count
}

// RowCount returns the rows submitted so far
func (d *Descriptor) RowCount() int {
	return len(d.Rows)
}

func (d *Descriptor) last() *Row {
	return &d.Rows[len(d.Rows)-1]
}

// AddRow submits a hard row with arbitrary jacobians. err is the displacement that satisfies it.
func (d *Descriptor) AddRow(j0, j1 Jacobian, err float64) {
	speed := 0.0
	if d.body0 != nil {
		speed += j0.Dot(d.body0.Velocity, d.body0.AngularVelocity)
	}
	if d.body1 != nil {
		speed += j1.Dot(d.body1.Velocity, d.body1.AngularVelocity)
	}

	beta := d.Tuning.ErrorReduction
	d.Rows = append(d.Rows, Row{
		Jacobian0:   j0,
		Jacobian1:   j1,
		JointSpeed:  speed,
		Accel:       (beta*err*d.InvTimestep - speed) * d.InvTimestep,
		Penetration: err,
		Lower:       math.Inf(-1),
		Upper:       math.Inf(1),
		NormalIndex: -1,
	})
}

// AddLinearRow constrains the motion of pivot p0 on body0 relative to p1 on body1 along dir
func (d *Descriptor) AddLinearRow(p0, p1, dir mgl64.Vec3) {
	r0 := p0.Sub(d.body0.GlobalCenterOfMass)
	r1 := p1.Sub(d.body1.GlobalCenterOfMass)

	d.AddRow(
		Jacobian{Linear: dir, Angular: r0.Cross(dir)},
		Jacobian{Linear: dir.Mul(-1), Angular: r1.Cross(dir).Mul(-1)},
		p1.Sub(p0).Dot(dir),
	)
}

// AddAngularRow constrains the relative rotation about dir; angleError is the rotation of body0
// about dir that satisfies the row
func (d *Descriptor) AddAngularRow(dir mgl64.Vec3, angleError float64) {
	d.AddRow(
		Jacobian{Angular: dir},
		Jacobian{Angular: dir.Mul(-1)},
		angleError,
	)
}

// SetMassSpringDamperAcceleration turns the last row into an implicit spring-damper
// pulling the row error to zero, softened by the regularizer
func (d *Descriptor) SetMassSpringDamperAcceleration(regularizer, spring, damper float64) {
	r := d.last()
	dt := d.Timestep
	x := -r.Penetration
	s := r.JointSpeed
	spring = math.Abs(spring)
	damper = math.Abs(damper)

	num := spring*x + damper*s + dt*spring*s
	den := 1 + dt*damper + dt*dt*spring
	r.Accel = -num / den
	r.Regularizer = d.Tuning.ClampRegularizer(regularizer)
	r.Flags |= RowSpring
}

// MotorZeroAcceleration returns the acceleration that stops the last row
func (d *Descriptor) MotorZeroAcceleration() float64 {
	return -d.last().JointSpeed * d.InvTimestep
}

func (d *Descriptor) SetMotorAcceleration(accel float64) {
	d.last().Accel = accel
}

func (d *Descriptor) SetLowerFriction(force float64) {
	d.last().Lower = force
}

func (d *Descriptor) SetHighFriction(force float64) {
	d.last().Upper = force
}

// SetFrictionBounds bounds the last row to [-force, force]; a non positive force leaves it unbounded
func (d *Descriptor) SetFrictionBounds(force float64) {
	if force <= 0 {
		return
	}
	r := d.last()
	r.Lower, r.Upper = -force, force
}

func (d *Descriptor) tagAxis(axis int, flags RowFlags) {
	r := d.last()
	r.Axis = axis
	r.Flags |= flags
}

func (d *Descriptor) reportHit(axis int) {
	if d.joint == nil {
		return
	}
	d.Hits = append(d.Hits, LimitHit{JointID: d.joint.ID(), Axis: axis})
}

// angularLimit submits a one sided row when the predicted angle reaches [min, max] and
// reports whether the limit stopped the axis, in which case its free axis rows are skipped.
// A nearly closed range locks the axis.
func (d *Descriptor) angularLimit(axis int, pin mgl64.Vec3, angle, omega, minAngle, maxAngle float64, recovery config.Recovery) bool {
	if minAngle > -d.Tuning.LockAngle && maxAngle < d.Tuning.LockAngle {
		d.AddAngularRow(pin, -angle)
		d.tagAxis(axis, RowLimit)
		return true
	}

	predicted := angle + omega*d.Timestep
	switch {
	case predicted <= minAngle:
		d.AddAngularRow(pin, 0)
		stopAccel := d.MotorZeroAcceleration()
		penetration := predicted - minAngle
		d.SetMotorAcceleration(stopAccel + d.InvTimestep*recovery.Speed(-penetration))
		d.SetLowerFriction(0)
		d.tagAxis(axis, RowLimit)
		return d.stopped(axis, stopAccel)
	case predicted >= maxAngle:
		d.AddAngularRow(pin, 0)
		stopAccel := d.MotorZeroAcceleration()
		penetration := predicted - maxAngle
		d.SetMotorAcceleration(stopAccel - d.InvTimestep*recovery.Speed(penetration))
		d.SetHighFriction(0)
		d.tagAxis(axis, RowLimit)
		return d.stopped(axis, stopAccel)
	}
	return false
}

// linearLimit is the prismatic counterpart of angularLimit; posit is measured at p0 along pin
func (d *Descriptor) linearLimit(axis int, p0, pin mgl64.Vec3, posit, speed, minPosit, maxPosit float64, recovery config.Recovery) bool {
	if minPosit > -d.Tuning.LockDistance && maxPosit < d.Tuning.LockDistance {
		d.AddLinearRow(p0, p0.Sub(pin.Mul(posit)), pin)
		d.tagAxis(axis, RowLimit)
		return true
	}

	predicted := posit + speed*d.Timestep
	switch {
	case predicted <= minPosit:
		d.AddLinearRow(p0, p0, pin)
		stopAccel := d.MotorZeroAcceleration()
		penetration := predicted - minPosit
		d.SetMotorAcceleration(stopAccel + d.InvTimestep*recovery.Speed(-penetration))
		d.SetLowerFriction(0)
		d.tagAxis(axis, RowLimit)
		return d.stopped(axis, stopAccel)
	case predicted >= maxPosit:
		d.AddLinearRow(p0, p0, pin)
		stopAccel := d.MotorZeroAcceleration()
		penetration := predicted - maxPosit
		d.SetMotorAcceleration(stopAccel - d.InvTimestep*recovery.Speed(penetration))
		d.SetHighFriction(0)
		d.tagAxis(axis, RowLimit)
		return d.stopped(axis, stopAccel)
	}
	return false
}

func (d *Descriptor) stopped(axis int, stopAccel float64) bool {
	if math.Abs(stopAccel) > d.Tuning.MaxStopAccel {
		d.reportHit(axis)
		return true
	}
	return false
}

// ikMotor drives the last row with the relative acceleration found by the inverse dynamics pass
func (d *Descriptor) ikMotor(axis int) {
	r := d.last()
	ik := d.joint.ik
	accel := r.Jacobian0.Dot(ik.Accel0, ik.Alpha0) + r.Jacobian1.Dot(ik.Accel1, ik.Alpha1)
	d.SetMotorAcceleration(accel)
	d.SetFrictionBounds(ik.MaxTorque)
	d.tagAxis(axis, RowMotor)
}

// freeAngularAxis submits the IK motor or the spring-damper row of an unlocked rotation axis.
// During the inverse dynamics pass an IK axis stays free.
func (d *Descriptor) freeAngularAxis(axis int, pin mgl64.Vec3, angleError float64, spring, damper, regularizer float64) {
	switch {
	case d.joint.ik.Enabled:
		if !d.InverseDynamics {
			d.AddAngularRow(pin, 0)
			d.ikMotor(axis)
		}
	case spring > 0 || damper > 0:
		d.AddAngularRow(pin, angleError)
		d.SetMassSpringDamperAcceleration(regularizer, spring, damper)
		d.tagAxis(axis, 0)
	}
}

// freeLinearAxis is the prismatic counterpart of freeAngularAxis; target is the pivot goal on body1
func (d *Descriptor) freeLinearAxis(axis int, p0, target, pin mgl64.Vec3, spring, damper, regularizer float64) {
	switch {
	case d.joint.ik.Enabled:
		if !d.InverseDynamics {
			d.AddLinearRow(p0, p0, pin)
			d.ikMotor(axis)
		}
	case spring > 0 || damper > 0:
		d.AddLinearRow(p0, target, pin)
		d.SetMassSpringDamperAcceleration(regularizer, spring, damper)
		d.tagAxis(axis, 0)
	}
}
