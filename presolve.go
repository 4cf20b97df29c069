package ilp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// preProcessedProblem is a problem in standard form: minimize c^T x subject
// to Ax = b, x >= 0. Slack columns introduced by the conversion carry
// neutral branching metadata and are never branching candidates.
type preProcessedProblem struct {
	c []float64
	A *mat.Dense
	b []float64

	// which variables to apply the integrality constraint to. Should have same order as c.
	integralityConstraints []bool

	// per-variable branching metadata. Same order as c.
	branchFactors    []float64
	branchPriorities []int
	varNames         []string
}

func (p preProcessedProblem) toInitialSubproblem() subProblem {

	return subProblem{
		// the initial subproblem has 0 as identifier
		id: 0,

		c:                      p.c,
		A:                      p.A,
		b:                      p.b,
		integralityConstraints: p.integralityConstraints,

		// for the initial subproblem, there are no branch-and-bound-specific inequality constraints.
		bnbConstraints: []bnbConstraint{},
	}
}

// preProcessor applies the presolving operations and keeps a stack of
// postsolving functions that map a solution of the transformed problem back
// to the original variable space.
type preProcessor struct {
	undoers []undoer
}

type undoer func(solution) solution

func newPreprocessor() *preProcessor {
	return &preProcessor{}
}

// Remove all rows of the equality constraint matrix that are empty (i.e. all values in row are 0).
// Removing empty rows does not require any postsolve operations.
func removeEmptyRows(A *mat.Dense, b []float64) (*mat.Dense, []float64) {

	aRows, aCols := A.Dims()
	var nonEmptyRows []int
	for i := 0; i < aRows; i++ {

		// find nonzero values
		nonzero := false
	jloop:
		for j := 0; j < aCols; j++ {
			if A.At(i, j) != 0 {
				nonzero = true
				break jloop
			}
		}

		if nonzero {
			nonEmptyRows = append(nonEmptyRows, i)
		}

	}

	if len(nonEmptyRows) == 0 {
		panic("all rows of A are empty")
	}

	// if no empty rows where found, we return a copy of A
	if len(nonEmptyRows) == aRows {
		bNew := make([]float64, aRows)
		copy(bNew, b)
		return mat.DenseCopyOf(A), bNew
	}

	var newAData []float64
	var bNew []float64
	for _, r := range nonEmptyRows {
		//  RawRowView returns a slice backed by the same array as backing the receiver.
		newAData = append(newAData, A.RawRowView(r)...)

		// update the new b vector by index
		bNew = append(bNew, b[r])

	}

	ANew := mat.NewDense(len(nonEmptyRows), aCols, newAData)

	return ANew, bNew
}

// wraps the convertToEqualities function to convert a milpProblem to standard form (converting inequalities to equalities)
func (prepper *preProcessor) toStandardForm(p milpProblem) preProcessedProblem {

	out := preProcessedProblem{
		c:                      p.c,
		A:                      p.A,
		b:                      p.b,
		integralityConstraints: p.integralityConstraints,
		branchFactors:          p.branchFactors,
		branchPriorities:       p.branchPriorities,
		varNames:               p.varNames,
	}

	// convert the inequalities (if any) to equalities
	if p.G != nil {
		out.c, out.A, out.b = convertToEqualities(p.c, p.A, p.b, p.G, p.h)

		nSlack := len(out.c) - len(p.c)

		// the slack variables get 'false' integrality constraints and
		// neutral branching metadata.
		out.integralityConstraints = make([]bool, len(out.c))
		copy(out.integralityConstraints, p.integralityConstraints)

		out.branchFactors = make([]float64, len(out.c))
		copy(out.branchFactors, p.branchFactors)
		out.branchPriorities = make([]int, len(out.c))
		copy(out.branchPriorities, p.branchPriorities)
		out.varNames = make([]string, len(out.c))
		copy(out.varNames, p.varNames)
		for i := 0; i < nSlack; i++ {
			out.branchFactors[len(p.c)+i] = 1
			out.varNames[len(p.c)+i] = fmt.Sprintf("s%d", i)
		}

		// create the corresponding undoer to map the solution back to its original shape (i.e. remove slack variables)
		prepper.addUndoer(func(s solution) solution {
			return solution{
				x:       s.x[:len(p.c)],
				z:       s.z,
				err:     s.err,
				problem: s.problem,
			}
		})
	}

	return out

}

func (prepper *preProcessor) addUndoer(u undoer) {
	prepper.undoers = append(prepper.undoers, u)
}

func (prepper *preProcessor) preSolve(p milpProblem) preProcessedProblem {

	// get the standard form representation of the problem
	prepped := prepper.toStandardForm(p)

	if prepped.A == nil {
		panic("problem contains no constraints")
	}

	prepped.A, prepped.b = removeEmptyRows(prepped.A, prepped.b)

	return prepped
}

func (prepper *preProcessor) postSolve(s solution) solution {

	sol := s
	// walk the slice from the last to the first element (use it as a LIFO queue)
	for i := len(prepper.undoers) - 1; i >= 0; i-- {
		sol = prepper.undoers[i](sol)
	}

	return sol
}
