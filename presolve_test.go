package ilp

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func Test_RemoveEmptyRows(t *testing.T) {
	type args struct {
		A *mat.Dense
		b []float64
	}
	tests := []struct {
		name string
		args args
		Anew *mat.Dense
		bNew []float64
	}{
		{
			name: "no empty rows",
			args: args{
				A: mat.NewDense(4, 4, []float64{
					0, 1, 1, 1,
					2, 0, 0, 0,
					3, 0, 0, 0,
					0, 0, 1, 0,
				}),
				b: []float64{1, 2, 3, 4},
			},
			Anew: mat.NewDense(4, 4, []float64{
				0, 1, 1, 1,
				2, 0, 0, 0,
				3, 0, 0, 0,
				0, 0, 1, 0,
			}),
			bNew: []float64{1, 2, 3, 4},
		},
		{
			name: "one empty row",
			args: args{
				A: mat.NewDense(4, 4, []float64{
					0, 1, 1, 1,
					0, 0, 0, 0,
					3, 0, 0, 0,
					0, 0, 1, 0,
				}),
				b: []float64{1, 2, 3, 4},
			},
			Anew: mat.NewDense(3, 4, []float64{
				0, 1, 1, 1,
				3, 0, 0, 0,
				0, 0, 1, 0,
			}),
			bNew: []float64{1, 3, 4},
		},
		{
			name: "two empty rows",
			args: args{
				A: mat.NewDense(4, 4, []float64{
					0, 1, 1, 1,
					0, 0, 0, 0,
					3, 0, 0, 0,
					0, 0, 0, 0,
				}),
				b: []float64{1, 2, 3, 4},
			},
			Anew: mat.NewDense(2, 4, []float64{
				0, 1, 1, 1,
				3, 0, 0, 0,
			}),
			bNew: []float64{1, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotA, gotB := removeEmptyRows(tt.args.A, tt.args.b)
			if !reflect.DeepEqual(gotA, tt.Anew) {
				t.Errorf("removeEmptyRows() got = %v, want %v", gotA, tt.Anew)
			}
			if !reflect.DeepEqual(gotB, tt.bNew) {
				t.Errorf("removeEmptyRows() got1 = %v, want %v", gotB, tt.bNew)
			}
		})
	}
}

func Test_RemoveEmptyRows_panicsWhenAllRowsEmpty(t *testing.T) {
	A := mat.NewDense(2, 2, []float64{
		0, 0,
		0, 0,
	})
	assert.Panics(t, func() { removeEmptyRows(A, []float64{1, 2}) })
}

// Converting inequalities to equalities appends one slack column per
// inequality. Slack columns are never integer and carry neutral branching
// metadata, so they can never become branching candidates.
func Test_preProcessor_toStandardForm(t *testing.T) {
	prob := newTestMILP(
		[]float64{-1, -2},
		mat.NewDense(1, 2, []float64{1, 1}),
		[]float64{5},
		mat.NewDense(2, 2, []float64{
			1, 0,
			0, 1,
		}),
		[]float64{2, 3},
		[]bool{true, false},
	)
	prob.branchFactors = []float64{2, 1}
	prob.branchPriorities = []int{7, 0}
	prob.varNames = []string{"a", "b"}

	prepper := newPreprocessor()
	got := prepper.toStandardForm(prob)

	assert.Equal(t, []float64{-1, -2, 0, 0}, got.c)
	assert.Equal(t, mat.NewDense(3, 4, []float64{
		1, 1, 0, 0,
		1, 0, 1, 0,
		0, 1, 0, 1,
	}), got.A)
	assert.Equal(t, []float64{5, 2, 3}, got.b)

	assert.Equal(t, []bool{true, false, false, false}, got.integralityConstraints)
	assert.Equal(t, []float64{2, 1, 1, 1}, got.branchFactors)
	assert.Equal(t, []int{7, 0, 0, 0}, got.branchPriorities)
	assert.Equal(t, []string{"a", "b", "s0", "s1"}, got.varNames)

	// exactly one undoer: the slack removal
	require.Len(t, prepper.undoers, 1)
}

func Test_preProcessor_toStandardFormWithoutInequalities(t *testing.T) {
	prob := newTestMILP(
		[]float64{-1, -2},
		mat.NewDense(1, 2, []float64{1, 1}),
		[]float64{5},
		nil,
		nil,
		[]bool{true, false},
	)

	prepper := newPreprocessor()
	got := prepper.toStandardForm(prob)

	assert.Equal(t, prob.c, got.c)
	assert.Equal(t, prob.A, got.A)
	assert.Equal(t, prob.b, got.b)
	assert.Equal(t, prob.integralityConstraints, got.integralityConstraints)
	assert.Empty(t, prepper.undoers)
}

func Test_preProcessor_preSolvePanicsWithoutConstraints(t *testing.T) {
	prob := milpProblem{
		c:                      []float64{1, 2},
		integralityConstraints: []bool{false, false},
		branchFactors:          []float64{1, 1},
		branchPriorities:       []int{0, 0},
		varNames:               []string{"x0", "x1"},
	}

	prepper := newPreprocessor()
	assert.Panics(t, func() { prepper.preSolve(prob) })
}

// Undoers are applied in reverse order of registration.
func Test_preProcessor_postSolveOrder(t *testing.T) {
	prepper := newPreprocessor()
	prepper.addUndoer(func(s solution) solution {
		s.x = append(s.x, 1)
		return s
	})
	prepper.addUndoer(func(s solution) solution {
		s.x = append(s.x, 2)
		return s
	})

	got := prepper.postSolve(solution{x: []float64{0}})
	assert.Equal(t, []float64{0, 2, 1}, got.x)
}

// The slack removal undoer maps a standard-form solution back to the
// original variable space, leaving objective and error untouched.
func Test_preProcessor_postSolveRemovesSlackVariables(t *testing.T) {
	prob := newTestMILP(
		[]float64{-1, -2},
		mat.NewDense(1, 2, []float64{1, 1}),
		[]float64{5},
		mat.NewDense(1, 2, []float64{1, 0}),
		[]float64{2},
		[]bool{true, false},
	)

	prepper := newPreprocessor()
	prepper.toStandardForm(prob)

	wantErr := errors.New("marker")
	got := prepper.postSolve(solution{
		x:   []float64{2, 3, 0},
		z:   -8,
		err: wantErr,
	})

	assert.Equal(t, []float64{2, 3}, got.x)
	assert.Equal(t, -8.0, got.z)
	assert.Equal(t, wantErr, got.err)
}

func Test_preProcessedProblem_toInitialSubproblem(t *testing.T) {
	prepped := preProcessedProblem{
		c:                      []float64{-1, -2},
		A:                      mat.NewDense(1, 2, []float64{1, 1}),
		b:                      []float64{5},
		integralityConstraints: []bool{true, false},
		branchFactors:          []float64{1, 1},
		branchPriorities:       []int{0, 0},
		varNames:               []string{"a", "b"},
	}

	sub := prepped.toInitialSubproblem()
	assert.Equal(t, int64(0), sub.id)
	assert.Equal(t, prepped.c, sub.c)
	assert.Equal(t, prepped.b, sub.b)
	assert.Equal(t, prepped.integralityConstraints, sub.integralityConstraints)
	assert.Empty(t, sub.bnbConstraints)
	assert.Equal(t, 0, sub.depth())
}
