package constraint

import (
	"math"
	"sync/atomic"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/internal/debug"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxRowsPerJoint is the most rows any joint kind submits in one step
const MaxRowsPerJoint = 8

var uniqueJointCount atomic.Uint32

// Kind identifies a joint implementation in the registry
type Kind uint8

const (
	KindHinge Kind = iota
	KindSpherical
	KindDoubleHinge
	KindSlider
	KindRoller
	KindGear
	KindPdActuator
	KindIk6DofEffector
	KindIkSwivelPositionEffector
	KindContact
)

var kindNames = [...]string{
	KindHinge:                    "hinge",
	KindSpherical:                "spherical",
	KindDoubleHinge:              "double_hinge",
	KindSlider:                   "slider",
	KindRoller:                   "roller",
	KindGear:                     "gear",
	KindPdActuator:               "pd_actuator",
	KindIk6DofEffector:           "ik_6dof_effector",
	KindIkSwivelPositionEffector: "ik_swivel_position_effector",
	KindContact:                  "contact",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsEffector reports whether the kind only takes part in the inverse dynamics pass
func (k Kind) IsEffector() bool {
	return k == KindIk6DofEffector || k == KindIkSwivelPositionEffector
}

// ClosesLoop reports whether the kind is always solved as a loop-closing joint
func (k Kind) ClosesLoop() bool {
	return k == KindGear || k.IsEffector()
}

// SolverModel tells the island builder how a joint may be solved
type SolverModel uint8

const (
	ModelTree SolverModel = iota
	ModelLoop
)

// Joint is implemented by every joint kind. JacobianDerivative reads the two body states and
// submits the joint rows, in a fixed order, into the descriptor.
type Joint interface {
	Base() *Bilateral
	JacobianDerivative(desc *Descriptor, body0, body1 *actor.RigidBody)
}

// IkState holds the inverse dynamics result applied as a motor on the free axes of a joint
type IkState struct {
	Enabled bool
	// MaxTorque bounds the motor rows (force for prismatic axes); zero means unbounded
	MaxTorque float64

	Accel0, Alpha0 mgl64.Vec3
	Accel1, Alpha1 mgl64.Vec3
}

// Bilateral is the state shared by all joints: two bodies by handle and one pivot frame on each.
// body0 is the child, body1 the parent or the world.
type Bilateral struct {
	id    uint32
	kind  Kind
	body0 actor.BodyHandle
	body1 actor.BodyHandle

	LocalMatrix0 actor.Transform
	LocalMatrix1 actor.Transform

	maxRows int
	enabled bool
	model   SolverModel
	ik      IkState

	forces   [MaxRowsPerJoint]float64
	rowCount int
}

// NewBilateral places the pivot frame on both bodies. A nil parent attaches the joint to the world.
func NewBilateral(kind Kind, maxRows int, pivot actor.Transform, child, parent *actor.RigidBody) Bilateral {
	debug.Assert(maxRows <= MaxRowsPerJoint, "%s declares %d rows", kind, maxRows)

	b := Bilateral{
		id:      uniqueJointCount.Add(1),
		kind:    kind,
		body0:   actor.WorldHandle,
		body1:   actor.WorldHandle,
		maxRows: min(maxRows, MaxRowsPerJoint),
		enabled: true,
	}
	pivot = pivot.Normalized()
	b.LocalMatrix0 = pivot
	b.LocalMatrix1 = pivot
	if child != nil {
		b.body0 = child.Handle()
		b.LocalMatrix0 = child.Transform.Local(pivot)
	}
	if parent != nil {
		b.body1 = parent.Handle()
		b.LocalMatrix1 = parent.Transform.Local(pivot)
	}
	if kind.ClosesLoop() {
		b.model = ModelLoop
	}
	return b
}

func (b *Bilateral) Base() *Bilateral { return b }

// ID is unique for the process lifetime and stable across steps
func (b *Bilateral) ID() uint32 { return b.id }

func (b *Bilateral) Kind() Kind { return b.kind }

func (b *Bilateral) Body0() actor.BodyHandle { return b.body0 }

func (b *Bilateral) Body1() actor.BodyHandle { return b.body1 }

func (b *Bilateral) MaxRows() int { return b.maxRows }

func (b *Bilateral) IsEnabled() bool { return b.enabled }

func (b *Bilateral) SetEnabled(enabled bool) { b.enabled = enabled }

func (b *Bilateral) SolverModel() SolverModel { return b.model }

// SetSolverModel forces a joint to be treated as loop closing. Gears and effectors always are.
func (b *Bilateral) SetSolverModel(model SolverModel) {
	if b.kind.ClosesLoop() {
		return
	}
	b.model = model
}

// CalculateGlobalMatrix returns the pivot frame attached to each body in world space
func (b *Bilateral) CalculateGlobalMatrix(body0, body1 *actor.RigidBody) (actor.Transform, actor.Transform) {
	return body0.Transform.Mul(b.LocalMatrix0), body1.Transform.Mul(b.LocalMatrix1)
}

// SetIkMode switches the free axes of the joint to motors driven by the inverse dynamics pass.
func (b *Bilateral) SetIkMode(enabled bool, maxTorque float64) {
	b.ik.Enabled = enabled
	b.ik.MaxTorque = math.Abs(maxTorque)
	if !enabled {
		b.ClearIkAccelerations()
	}
}

func (b *Bilateral) IsIkMode() bool { return b.ik.Enabled }

func (b *Bilateral) Ik() IkState { return b.ik }

// SetIkAccelerations stores the body accelerations computed by the inverse dynamics pass
func (b *Bilateral) SetIkAccelerations(accel0, alpha0, accel1, alpha1 mgl64.Vec3) {
	b.ik.Accel0, b.ik.Alpha0 = accel0, alpha0
	b.ik.Accel1, b.ik.Alpha1 = accel1, alpha1
}

func (b *Bilateral) ClearIkAccelerations() {
	b.SetIkAccelerations(mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{})
}

// SetForces stores the force of each row submitted in the last solve
func (b *Bilateral) SetForces(forces []float64) {
	b.rowCount = copy(b.forces[:], forces)
}

// Force returns the force (or torque) of a row of the last solve
func (b *Bilateral) Force(row int) float64 {
	if row < 0 || row >= b.rowCount {
		return 0
	}
	return b.forces[row]
}

// RowCount is the number of rows submitted in the last solve
func (b *Bilateral) RowCount() int { return b.rowCount }

// ComputeRestitution averages the restitution of two materials
func ComputeRestitution(matA, matB actor.Material) float64 {
	return (matA.Restitution + matB.Restitution) / 2.0
}

// ComputeStaticFriction uses the geometric mean, standard in physics
func ComputeStaticFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

func ComputeDynamicFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

// sanitizeLimits enforces min <= 0 <= max
func sanitizeLimits(minValue, maxValue float64) (float64, float64) {
	debug.Assert(minValue <= 0 && maxValue >= 0, "limits [%v, %v] do not contain zero", minValue, maxValue)
	return math.Min(minValue, 0), math.Max(maxValue, 0)
}
