// Package ilp solves mixed integer linear programs by branch and bound.
//
// A problem is built with the Problem API and handed to a Solver, which
// relaxes the integrality constraints, solves the relaxation with Gonum's
// simplex implementation and branches on fractional variables until an
// integer feasible optimum is found. Which fractional variable to branch
// on is decided by a pluggable branching rule; the default rule is vanilla
// full strong branching, which solves the two child relaxations of every
// candidate and picks the candidate with the best score.
package ilp

import (
	"gonum.org/v1/gonum/mat"
)

// milpProblem is the canonical internal form of a problem: minimize c^T x
// subject to Ax = b, Gx <= h, x >= 0, with integrality required for the
// variables flagged in integralityConstraints.
type milpProblem struct {
	c []float64
	A *mat.Dense
	b []float64

	// optional inequality constraints
	G *mat.Dense
	h []float64

	// which variables are required to take integer values. Same order as c.
	integralityConstraints []bool

	// per-variable branching metadata. Same order as c.
	branchFactors    []float64
	branchPriorities []int
	varNames         []string
}

func (p milpProblem) checkDimensions() {
	n := len(p.c)
	if len(p.integralityConstraints) != n {
		panic("integrality constraint vector is not same length as vector c")
	}
	if len(p.branchFactors) != n || len(p.branchPriorities) != n {
		panic("branching metadata vectors are not same length as vector c")
	}
	if p.A != nil {
		if _, cols := p.A.Dims(); cols != n {
			panic("constraint matrix A is not same width as vector c")
		}
	}
}

func any(in []bool) bool {
	for _, x := range in {
		if x {
			return true
		}
	}
	return false
}
