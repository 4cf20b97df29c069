package ilp

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

func TestSimplexSmoke(t *testing.T) {
	// standard form:
	// 	minimize	c^T x
	// s.t. 		A * x = b
	// 				x >= 0 .

	// this example solves the following problem:
	// Minimize Z = -1x1 + -2x2 + 0x3 + 0x4
	// Subject to:
	//		-1x1 	+ 2x2 	+ 1x3 	+ 0x4 	= 4
	//		3x1 	+ 1x2 	+ 0x3 	+ 1x4 	= 9

	c := []float64{-1, -2, 0, 0}
	A := mat.NewDense(2, 4, []float64{
		-1, 2, 1, 0,
		3, 1, 0, 1,
	})
	b := []float64{4, 9}

	z, x, err := lp.Simplex(c, A, b, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, float64(-8), z)
	assert.Equal(t, []float64{2, 3, 0, 0}, x)
}

func Test_subProblem_combineInequalities(t *testing.T) {
	type fields struct {
		c              []float64
		A              *mat.Dense
		b              []float64
		G              *mat.Dense
		h              []float64
		bnbConstraints []bnbConstraint
	}
	tests := []struct {
		name   string
		fields fields
		want   *mat.Dense
		want1  []float64
	}{
		{
			name: "no bnb constraints",
			fields: fields{
				c: []float64{-1, -2, 0, 0},
				A: mat.NewDense(2, 4, []float64{
					-1, 2, 1, 0,
					3, 1, 0, 1,
				}),
				b: []float64{4, 9},
			},
			want:  nil,
			want1: nil,
		},
		{
			name: "One bnb constraint",
			fields: fields{
				c: []float64{-1, -2, 0, 0},
				A: mat.NewDense(2, 4, []float64{
					-1, 2, 1, 0,
					3, 1, 0, 1,
				}),
				b: []float64{4, 9},
				bnbConstraints: []bnbConstraint{
					{
						branchedVariable: 0,
						hsharp:           1,
						gsharp:           []float64{1, 0, 0, 0},
					},
				},
			},
			want:  mat.NewDense(1, 4, []float64{1, 0, 0, 0}),
			want1: []float64{1},
		},
		{
			name: "Two bnb constraints",
			fields: fields{
				c: []float64{-1, -2, 0, 0},
				A: mat.NewDense(2, 4, []float64{
					-1, 2, 1, 0,
					3, 1, 0, 1,
				}),
				b: []float64{4, 9},
				bnbConstraints: []bnbConstraint{
					{
						branchedVariable: 3,
						hsharp:           1,
						gsharp:           []float64{0, 0, 0, 1},
					},
					{
						branchedVariable: 1,
						hsharp:           3,
						gsharp:           []float64{0, 1, 0, 0},
					},
				},
			},
			want: mat.NewDense(2, 4, []float64{
				0, 0, 0, 1,
				0, 1, 0, 0,
			}),
			want1: []float64{1, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := subProblem{
				c:              tt.fields.c,
				A:              tt.fields.A,
				b:              tt.fields.b,
				G:              tt.fields.G,
				h:              tt.fields.h,
				bnbConstraints: tt.fields.bnbConstraints,
			}
			got, got1 := p.combineInequalities()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("subProblem.combineInequalities() got = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(got1, tt.want1) {
				t.Errorf("subProblem.combineInequalities() got1 = %v, want %v", got1, tt.want1)
			}
		})
	}
}

// combining inequalities must never write into the parent's h vector, as
// that vector is shared between sibling subproblems.
func Test_subProblem_combineInequalities_doesNotAliasParent(t *testing.T) {
	h := make([]float64, 1, 4)
	h[0] = 5

	p := subProblem{
		c: []float64{1, 1},
		G: mat.NewDense(1, 2, []float64{1, 1}),
		h: h,
		bnbConstraints: []bnbConstraint{
			{branchedVariable: 0, hsharp: 2, gsharp: []float64{1, 0}},
		},
	}

	_, got := p.combineInequalities()

	assert.Equal(t, []float64{5, 2}, got)
	assert.Equal(t, []float64{5}, h)
	// the spare capacity of the parent vector must be untouched
	assert.Equal(t, 0.0, h[:2][1])
}

func Test_solution_branchOn(t *testing.T) {
	type fields struct {
		problem *subProblem
		x       []float64
		z       float64
	}
	tests := []struct {
		name     string
		fields   fields
		branchOn int
		wantP1   subProblem
		wantP2   subProblem
	}{
		{
			name: "branch on first variable",
			fields: fields{
				problem: &subProblem{
					id:     0,
					parent: 0,
					c:      []float64{-1, -2, 0, 0},
					A: mat.NewDense(2, 4, []float64{
						-1, 2, 1, 0,
						3, 1, 0, 1,
					}),
					b:                      []float64{4, 9},
					integralityConstraints: []bool{true, false, false, false},
				},
				// a fake problem. This solution does not have to be true or feasible.
				x: []float64{1.2, 3, 0, 0},
				z: float64(-8),
			},
			branchOn: 0,
			wantP1: subProblem{
				id:     0,
				parent: 0,
				c:      []float64{-1, -2, 0, 0},
				A: mat.NewDense(2, 4, []float64{
					-1, 2, 1, 0,
					3, 1, 0, 1,
				}),
				b: []float64{4, 9},
				bnbConstraints: []bnbConstraint{
					{
						branchedVariable: 0,
						hsharp:           1,
						gsharp:           []float64{1, 0, 0, 0},
					},
				},
				integralityConstraints: []bool{true, false, false, false},
			},
			wantP2: subProblem{
				id:     0,
				parent: 0,
				c:      []float64{-1, -2, 0, 0},
				A: mat.NewDense(2, 4, []float64{
					-1, 2, 1, 0,
					3, 1, 0, 1,
				}),
				b: []float64{4, 9},
				bnbConstraints: []bnbConstraint{
					{
						branchedVariable: 0,
						hsharp:           -2,
						gsharp:           []float64{-1, 0, 0, 0},
					},
				},
				integralityConstraints: []bool{true, false, false, false},
			},
		},
		{
			name: "branch on second variable",
			fields: fields{
				problem: &subProblem{
					id: 1,
					c:  []float64{-1, -2, 0, 0},
					A: mat.NewDense(2, 4, []float64{
						-1, 2, 1, 0,
						3, 1, 0, 1,
					}),
					b:                      []float64{4, 9},
					integralityConstraints: []bool{true, true, false, false},
					bnbConstraints: []bnbConstraint{
						{
							branchedVariable: 0,
							hsharp:           1,
							gsharp:           []float64{1, 0, 0, 0},
						},
					},
				},
				// a fake problem. This solution does not have to be true or feasible.
				x: []float64{1.2, 3.8, 0, 0},
				z: float64(-8),
			},
			branchOn: 1,
			wantP1: subProblem{
				id:     1,
				parent: 1,
				c:      []float64{-1, -2, 0, 0},
				A: mat.NewDense(2, 4, []float64{
					-1, 2, 1, 0,
					3, 1, 0, 1,
				}),
				b:                      []float64{4, 9},
				integralityConstraints: []bool{true, true, false, false},
				bnbConstraints: []bnbConstraint{
					{
						branchedVariable: 0,
						hsharp:           1,
						gsharp:           []float64{1, 0, 0, 0},
					},
					{
						branchedVariable: 1,
						hsharp:           3,
						gsharp:           []float64{0, 1, 0, 0},
					},
				},
			},
			wantP2: subProblem{
				id:     1,
				parent: 1,
				c:      []float64{-1, -2, 0, 0},
				A: mat.NewDense(2, 4, []float64{
					-1, 2, 1, 0,
					3, 1, 0, 1,
				}),
				b:                      []float64{4, 9},
				integralityConstraints: []bool{true, true, false, false},
				bnbConstraints: []bnbConstraint{
					{
						branchedVariable: 0,
						hsharp:           1,
						gsharp:           []float64{1, 0, 0, 0},
					},
					{
						branchedVariable: 1,
						hsharp:           -4,
						gsharp:           []float64{0, -1, 0, 0},
					},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := solution{
				problem: tt.fields.problem,
				x:       tt.fields.x,
				z:       tt.fields.z,
			}
			gotP1, gotP2 := s.branchOn(tt.branchOn, s.x[tt.branchOn])
			if !reflect.DeepEqual(gotP1, tt.wantP1) {
				t.Errorf("solution.branchOn() gotP1 = %v, want %v", gotP1, tt.wantP1)
			}
			if !reflect.DeepEqual(gotP2, tt.wantP2) {
				t.Errorf("solution.branchOn() gotP2 = %v, want %v", gotP2, tt.wantP2)
			}
		})
	}
}

func Test_convertToEqualities(t *testing.T) {
	type args struct {
		c []float64
		A *mat.Dense
		b []float64
		G *mat.Dense
		h []float64
	}
	tests := []struct {
		name     string
		args     args
		wantCNew []float64
		wantANew *mat.Dense
		wantBNew []float64
	}{
		{
			name: "simple case",
			args: args{
				c: []float64{-1, -2, 0, 0},
				A: mat.NewDense(2, 4, []float64{
					-1, 2, 1, 0,
					3, 1, 0, 1,
				}),
				b: []float64{4, 9},
				h: []float64{2, 5, 8},
				G: mat.NewDense(3, 4, []float64{
					0, 0, 0, 1,
					0, 0, 1, 0,
					0, 1, 0, 0}),
			},
			wantCNew: []float64{-1, -2, 0, 0, 0, 0, 0},
			wantANew: mat.NewDense(5, 7, []float64{
				-1, 2, 1, 0, 0, 0, 0,
				3, 1, 0, 1, 0, 0, 0,
				0, 0, 0, 1, 1, 0, 0,
				0, 0, 1, 0, 0, 1, 0,
				0, 1, 0, 0, 0, 0, 1}),
			wantBNew: []float64{4, 9, 2, 5, 8},
		},
		{
			name: "no equality constraints",
			args: args{
				c: []float64{1, 1},
				G: mat.NewDense(1, 2, []float64{
					1, 2,
				}),
				h: []float64{4},
			},
			wantCNew: []float64{1, 1, 0},
			wantANew: mat.NewDense(1, 3, []float64{
				1, 2, 1,
			}),
			wantBNew: []float64{4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCNew, gotANew, gotBNew := convertToEqualities(tt.args.c, tt.args.A, tt.args.b, tt.args.G, tt.args.h)

			if !reflect.DeepEqual(gotCNew, tt.wantCNew) {
				t.Errorf("convertToEqualities() gotCNew = %v, want %v", gotCNew, tt.wantCNew)
			}
			if !reflect.DeepEqual(gotANew, tt.wantANew) {
				t.Errorf("convertToEqualities() gotANew = %v, want %v", gotANew, tt.wantANew)
			}
			if !reflect.DeepEqual(gotBNew, tt.wantBNew) {
				t.Errorf("convertToEqualities() gotBNew = %v, want %v", gotBNew, tt.wantBNew)
			}
		})
	}
}

func Test_subProblem_children(t *testing.T) {
	parent := subProblem{
		id:                     7,
		c:                      []float64{1, 2},
		A:                      mat.NewDense(1, 2, []float64{1, 1}),
		b:                      []float64{4},
		integralityConstraints: []bool{true, true},
	}

	down := parent.downChild(1, 2.6)
	up := parent.upChild(1, 2.6)

	// x1 <= 2
	assert.Equal(t, []bnbConstraint{
		{branchedVariable: 1, hsharp: 2, gsharp: []float64{0, 1}},
	}, down.bnbConstraints)

	// x1 >= 3, formulated as -x1 <= -3
	assert.Equal(t, []bnbConstraint{
		{branchedVariable: 1, hsharp: -3, gsharp: []float64{0, -1}},
	}, up.bnbConstraints)

	assert.Equal(t, int64(7), down.parent)
	assert.Equal(t, int64(7), up.parent)
	assert.Equal(t, 1, down.depth())
	assert.Equal(t, 0, parent.depth())
}
