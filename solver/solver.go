// Package solver computes the joint and contact impulses of an island with a projected
// Gauss-Seidel iteration, or with a dense Cholesky factorisation for small tree islands.
package solver

import (
	"math"

	"github.com/akmonengine/ligament/actor"
	"github.com/akmonengine/ligament/config"
	"github.com/akmonengine/ligament/constraint"
	"github.com/akmonengine/ligament/skeleton"
	"github.com/go-gl/mathgl/mgl64"
)

// velocityThreshold zeroes the residual velocities left by the iteration
const velocityThreshold = 1e-5

// Result summarises one island solve
type Result struct {
	Rows       int
	Iterations int
	// Residual is the largest impulse change of the last iteration, zero for a direct solve
	Residual float64
	Direct   bool
	Hits     []constraint.LimitHit
}

// row is a descriptor row prepared for the iteration: the jacobians, M^-1 J^T for both bodies,
// the impulse bounds and the target relative velocity.
type row struct {
	index0, index1 int
	j0, j1         constraint.Jacobian
	m0, m1         constraint.Jacobian

	diag   float64
	cfm    float64
	target float64

	lower, upper float64
	normal       int
	friction     float64
	limit        bool
}

type span struct {
	link         skeleton.Link
	first, count int
}

// Solver holds the scratch buffers of an island solve. It is not safe for concurrent use;
// the world keeps one per worker.
type Solver struct {
	tuning *config.Tuning
	desc   *constraint.Descriptor

	rows    []row
	lambda  []float64
	limits  []int
	spans   []span
	linear  []mgl64.Vec3
	angular []mgl64.Vec3
	forces  [constraint.MaxRowsPerJoint]float64
}

func New(tuning *config.Tuning) *Solver {
	return &Solver{
		tuning: tuning,
		desc:   constraint.NewDescriptor(config.DefaultFixedStep, tuning),
	}
}

// Solve builds the rows of every joint and contact of the island, computes their impulses and
// writes the resulting velocities back to the bodies. The joint force feedback is refreshed and
// the limit hits of the step are returned.
func (s *Solver) Solve(island *skeleton.Island, dt float64) Result {
	if dt <= 0 {
		return Result{}
	}
	s.build(island, dt, false)
	s.prepare(island, dt)
	s.loadVelocities(island)

	result := Result{Rows: len(s.rows)}
	if s.canSolveDirect(island) && s.solveDirect() {
		result.Direct = true
	} else {
		result.Iterations, result.Residual = s.gaussSeidel(s.tuning.MaxIterations)
		s.enforceLimits(s.tuning.MaxIterations)
	}

	s.storeVelocities(island)
	s.storeForces(dt)
	if len(s.desc.Hits) > 0 {
		result.Hits = append([]constraint.LimitHit(nil), s.desc.Hits...)
	}
	return result
}

func (s *Solver) build(island *skeleton.Island, dt float64, inverseDynamics bool) {
	s.desc.Reset(dt)
	s.desc.InverseDynamics = inverseDynamics
	s.spans = s.spans[:0]

	add := func(link skeleton.Link) {
		if !link.Joint.Base().IsEnabled() {
			return
		}
		first, count := s.desc.Build(link.Joint, link.Body0, link.Body1)
		s.spans = append(s.spans, span{link: link, first: first, count: count})
	}
	for _, link := range island.Links {
		add(link)
	}
	if inverseDynamics {
		return
	}
	for _, link := range island.Contacts {
		add(link)
	}
}

// prepare turns the descriptor rows into iteration rows. Static bodies get no M^-1 J^T and
// never receive impulses.
func (s *Solver) prepare(island *skeleton.Island, dt float64) {
	s.rows = s.rows[:0]
	s.lambda = s.lambda[:0]

	for _, sp := range s.spans {
		for i := sp.first; i < sp.first+sp.count; i++ {
			s.rows = append(s.rows, s.prepareRow(island, sp.link, &s.desc.Rows[i], dt))
			s.lambda = append(s.lambda, 0)
		}
	}
}

func (s *Solver) prepareRow(island *skeleton.Island, link skeleton.Link, desc *constraint.Row, dt float64) row {
	r := row{
		index0:   link.Index0,
		index1:   link.Index1,
		j0:       desc.Jacobian0,
		j1:       desc.Jacobian1,
		target:   desc.TargetVelocity(dt),
		lower:    desc.Lower * dt,
		upper:    desc.Upper * dt,
		normal:   desc.NormalIndex,
		friction: desc.Friction,
		limit:    desc.Flags&constraint.RowLimit != 0,
	}
	if r.index0 >= 0 {
		r.m0 = inverseMassTimes(island, r.index0, r.j0)
	}
	if r.index1 >= 0 {
		r.m1 = inverseMassTimes(island, r.index1, r.j1)
	}
	r.diag = r.j0.Linear.Dot(r.m0.Linear) + r.j0.Angular.Dot(r.m0.Angular) +
		r.j1.Linear.Dot(r.m1.Linear) + r.j1.Angular.Dot(r.m1.Angular)
	if desc.Regularizer > 0 {
		r.cfm = desc.Regularizer * r.diag
	}
	return r
}

func inverseMassTimes(island *skeleton.Island, index int, j constraint.Jacobian) constraint.Jacobian {
	body := island.Bodies[index]
	if body.IsStatic() {
		return constraint.Jacobian{}
	}
	return constraint.Jacobian{
		Linear:  j.Linear.Mul(body.InvMass()),
		Angular: body.GetInverseInertiaWorld().Mul3x1(j.Angular),
	}
}

func (s *Solver) loadVelocities(island *skeleton.Island) {
	s.linear = s.linear[:0]
	s.angular = s.angular[:0]
	for _, body := range island.Bodies {
		s.linear = append(s.linear, body.Velocity)
		s.angular = append(s.angular, body.AngularVelocity)
	}
}

func (s *Solver) storeVelocities(island *skeleton.Island) {
	for i, body := range island.Bodies {
		if body.IsStatic() {
			continue
		}
		body.SetVelocityNoSleep(s.linear[i])
		body.SetOmegaNoSleep(s.angular[i])
		clampSmallVelocities(body)
	}
}

func (s *Solver) storeForces(dt float64) {
	for _, sp := range s.spans {
		n := min(sp.count, len(s.forces))
		for i := 0; i < n; i++ {
			s.forces[i] = s.lambda[sp.first+i] / dt
		}
		sp.link.Joint.Base().SetForces(s.forces[:n])
	}
}

// relativeVelocity returns J v for the current scratch velocities
func (s *Solver) relativeVelocity(r *row) float64 {
	v := 0.0
	if r.index0 >= 0 {
		v += r.j0.Dot(s.linear[r.index0], s.angular[r.index0])
	}
	if r.index1 >= 0 {
		v += r.j1.Dot(s.linear[r.index1], s.angular[r.index1])
	}
	return v
}

func (s *Solver) applyImpulse(r *row, impulse float64) {
	if r.index0 >= 0 {
		s.linear[r.index0] = s.linear[r.index0].Add(r.m0.Linear.Mul(impulse))
		s.angular[r.index0] = s.angular[r.index0].Add(r.m0.Angular.Mul(impulse))
	}
	if r.index1 >= 0 {
		s.linear[r.index1] = s.linear[r.index1].Add(r.m1.Linear.Mul(impulse))
		s.angular[r.index1] = s.angular[r.index1].Add(r.m1.Angular.Mul(impulse))
	}
}

// relax solves row i against the current scratch velocities, clamps its accumulated impulse
// and returns the impulse change.
func (s *Solver) relax(i int) float64 {
	r := &s.rows[i]
	denominator := r.diag + r.cfm
	if denominator <= 1e-12 {
		return 0
	}

	lower, upper := r.lower, r.upper
	if r.normal >= 0 {
		bound := r.friction * s.lambda[r.normal]
		lower, upper = -bound, bound
	}

	delta := (r.target - s.relativeVelocity(r) - r.cfm*s.lambda[i]) / denominator
	accumulated := math.Max(lower, math.Min(s.lambda[i]+delta, upper))
	delta = accumulated - s.lambda[i]
	s.lambda[i] = accumulated

	s.applyImpulse(r, delta)
	return delta
}

// gaussSeidel runs at most iterations sweeps over the rows in order and stops early once the
// largest impulse change falls below the tolerance.
func (s *Solver) gaussSeidel(iterations int) (int, float64) {
	if len(s.rows) == 0 {
		return 0, 0
	}

	residual := 0.0
	for iteration := 1; iteration <= iterations; iteration++ {
		residual = 0
		for i := range s.rows {
			residual = math.Max(residual, math.Abs(s.relax(i)))
		}
		if residual < s.tuning.Tolerance {
			return iteration, residual
		}
	}
	return iterations, residual
}

// enforceLimits sweeps the limit rows alone after the main iteration, keeping their accumulated
// impulses, and returns the sweeps it ran. The motor row of an axis comes after its limit row.
func (s *Solver) enforceLimits(iterations int) int {
	s.limits = s.limits[:0]
	for i := range s.rows {
		if s.rows[i].limit {
			s.limits = append(s.limits, i)
		}
	}
	if len(s.limits) == 0 {
		return 0
	}

	for iteration := 1; iteration <= iterations; iteration++ {
		residual := 0.0
		for _, i := range s.limits {
			residual = math.Max(residual, math.Abs(s.relax(i)))
		}
		if residual < s.tuning.Tolerance {
			return iteration
		}
	}
	return iterations
}

func clampSmallVelocities(body *actor.RigidBody) {
	if body.Velocity.Len() < velocityThreshold {
		body.Velocity = mgl64.Vec3{0, 0, 0}
	}
	if body.AngularVelocity.Len() < velocityThreshold {
		body.AngularVelocity = mgl64.Vec3{0, 0, 0}
	}
}
