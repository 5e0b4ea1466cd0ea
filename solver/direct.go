package solver

import (
	"math"

	"github.com/akmonengine/ligament/skeleton"
	"gonum.org/v1/gonum/mat"
)

// canSolveDirect accepts tree islands whose rows are all unbounded and few enough for a dense solve
func (s *Solver) canSolveDirect(island *skeleton.Island) bool {
	if !island.IsTree() || len(island.Contacts) > 0 {
		return false
	}
	if len(s.rows) == 0 || len(s.rows) > s.tuning.DirectMaxRows {
		return false
	}
	for i := range s.rows {
		r := &s.rows[i]
		if r.normal >= 0 || !math.IsInf(r.lower, -1) || !math.IsInf(r.upper, 1) {
			return false
		}
	}
	return true
}

// coupling returns J_a M^-1 J_b^T, non zero only when the two rows share a body
func coupling(a, b *row) float64 {
	value := 0.0
	if a.index0 >= 0 {
		if a.index0 == b.index0 {
			value += a.j0.Linear.Dot(b.m0.Linear) + a.j0.Angular.Dot(b.m0.Angular)
		}
		if a.index0 == b.index1 {
			value += a.j0.Linear.Dot(b.m1.Linear) + a.j0.Angular.Dot(b.m1.Angular)
		}
	}
	if a.index1 >= 0 {
		if a.index1 == b.index0 {
			value += a.j1.Linear.Dot(b.m0.Linear) + a.j1.Angular.Dot(b.m0.Angular)
		}
		if a.index1 == b.index1 {
			value += a.j1.Linear.Dot(b.m1.Linear) + a.j1.Angular.Dot(b.m1.Angular)
		}
	}
	return value
}

// solveDirect factorises J M^-1 J^T + CFM and applies the exact impulses.
// It reports false, leaving the velocities untouched, when the matrix is not positive definite.
func (s *Solver) solveDirect() bool {
	n := len(s.rows)
	a := mat.NewSymDense(n, nil)
	b := mat.NewVecDense(n, nil)

	for i := 0; i < n; i++ {
		ri := &s.rows[i]
		a.SetSym(i, i, ri.diag+ri.cfm)
		for j := i + 1; j < n; j++ {
			if value := coupling(ri, &s.rows[j]); value != 0 {
				a.SetSym(i, j, value)
			}
		}
		b.SetVec(i, ri.target-s.relativeVelocity(ri))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return false
	}
	var impulses mat.VecDense
	if err := chol.SolveVecTo(&impulses, b); err != nil {
		return false
	}

	for i := 0; i < n; i++ {
		s.lambda[i] = impulses.AtVec(i)
		s.applyImpulse(&s.rows[i], s.lambda[i])
	}
	return true
}
