package ilp

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Problem is the user-facing description of a mixed integer linear program.
// Build it with AddVariable, AddEquality and AddInEquality, then hand it to
// a Solver (or call Solve directly for the default configuration).
type Problem struct {
	Variables    []*Variable
	Inequalities []Inequality
	Equalities   []Equality

	// if true, the objective is maximized instead of minimized.
	maximize bool
}

// Variable is a single decision variable. All variables are nonnegative.
type Variable struct {
	// coefficient of the variable in the objective function
	Coefficient float64

	// integrality constraint
	Integer bool

	// Name is used in log output and solution reporting. Optional.
	Name string

	// BranchFactor scales the branching score of this variable. Values
	// larger than 1 make the variable more attractive to branch on.
	// Zero means the default factor of 1.
	BranchFactor float64

	// BranchPriority orders branching candidates: only variables of
	// maximal priority among the current candidates are eligible first.
	BranchPriority int
}

// Expression is a coefficient-variable pair for use in defining constraints,
// e.g. "-1 * x1".
type Expression struct {
	coef     float64
	variable *Variable
}

// Expr builds a single constraint term.
func Expr(coef float64, variable *Variable) Expression {
	return Expression{coef: coef, variable: variable}
}

type Inequality struct {
	// expressions will be summed together to form the LHS of ...
	expressions []Expression

	// ... a constraint with a certain RHS
	smallerThan float64
}

type Equality struct {
	// expressions will be summed together to form the LHS of ...
	expressions []Expression

	// ... a constraint with a certain RHS
	equalTo float64
}

func NewProblem() Problem {
	return Problem{}
}

// Maximize flips the objective sense of the problem. The default is to
// minimize.
func (p *Problem) Maximize() {
	p.maximize = true
}

// add a variable and return a reference to that variable
func (p *Problem) AddVariable(coef float64, integer bool) *Variable {

	v := Variable{
		Coefficient: coef,
		Integer:     integer,
	}

	p.Variables = append(p.Variables, &v)

	return &v
}

func (p *Problem) AddEquality(expr []Expression, equalTo float64) {
	if len(expr) == 0 {
		panic("must add expressions")
	}

	for _, e := range expr {
		if !p.checkExpression(e) {
			panic("provided expression contains a variable that has not been declared to this problem yet")
		}
	}

	p.Equalities = append(p.Equalities, Equality{
		expressions: expr,
		equalTo:     equalTo,
	})

}

func (p *Problem) AddInEquality(expr []Expression, smallerThan float64) {
	if len(expr) == 0 {
		panic("must add expressions")
	}

	for _, e := range expr {
		if !p.checkExpression(e) {
			panic("provided expression contains a variable that has not been declared to this problem yet")
		}
	}

	p.Inequalities = append(p.Inequalities, Inequality{
		expressions: expr,
		smallerThan: smallerThan,
	})

}

// Check whether the expression is legal considering the variables currently present in the problem
func (p *Problem) checkExpression(e Expression) bool {

	// check whether the pointer to the variable provided is currently included in the Problem
	for _, v := range p.Variables {
		if v == e.variable {
			return true
		}
	}

	return false

}

// ToSolveable converts the problem to its canonical internal form. Note that
// maximization problems are converted to minimization problems by negating
// the objective; Solve converts the reported objective value back.
func (p *Problem) ToSolveable() *milpProblem {

	if len(p.Variables) == 0 {
		panic("cannot convert a problem with no variables")
	}

	// build the objective function vector and integrality mask in variable
	// declaration order.
	c := make([]float64, len(p.Variables))
	ints := make([]bool, len(p.Variables))
	factors := make([]float64, len(p.Variables))
	priorities := make([]int, len(p.Variables))
	names := make([]string, len(p.Variables))

	index := make(map[*Variable]int, len(p.Variables))

	for i, v := range p.Variables {
		coef := v.Coefficient
		if p.maximize {
			coef = -coef
		}
		c[i] = coef
		ints[i] = v.Integer

		factors[i] = v.BranchFactor
		if factors[i] == 0 {
			factors[i] = 1
		}
		priorities[i] = v.BranchPriority

		names[i] = v.Name
		if names[i] == "" {
			names[i] = fmt.Sprintf("x%d", i)
		}

		index[v] = i
	}

	// build the dense constraint rows. Each row spans all variables; terms
	// of variables absent from the constraint stay zero.
	row := func(exprs []Expression) []float64 {
		r := make([]float64, len(p.Variables))
		for _, e := range exprs {
			r[index[e.variable]] += e.coef
		}
		return r
	}

	var equalityRows, inequalityRows []float64
	var b, h []float64

	for _, eq := range p.Equalities {
		equalityRows = append(equalityRows, row(eq.expressions)...)
		b = append(b, eq.equalTo)
	}

	for _, ineq := range p.Inequalities {
		inequalityRows = append(inequalityRows, row(ineq.expressions)...)
		h = append(h, ineq.smallerThan)
	}

	prob := milpProblem{
		c:                      c,
		b:                      b,
		h:                      h,
		integralityConstraints: ints,
		branchFactors:          factors,
		branchPriorities:       priorities,
		varNames:               names,
	}

	if len(b) > 0 {
		prob.A = mat.NewDense(len(b), len(p.Variables), equalityRows)
	}
	if len(h) > 0 {
		prob.G = mat.NewDense(len(h), len(p.Variables), inequalityRows)
	}

	return &prob
}

// Solution holds the result of a solve: the objective value Z (in the
// problem's own objective sense) and the values of the decision variables
// in declaration order.
type Solution struct {
	Z float64
	X []float64
}

// ValueOf returns the solution value of the given variable.
func (s Solution) ValueOf(p *Problem, v *Variable) float64 {
	for i, cand := range p.Variables {
		if cand == v {
			return s.X[i]
		}
	}
	panic("variable is not part of the given problem")
}

// Solve solves the problem with a default Solver.
func (p *Problem) Solve(ctx context.Context) (Solution, error) {
	return NewSolver().Solve(ctx, p)
}

// undoObjectiveSense converts an internal (minimization) objective value
// back to the problem's declared sense.
func (p *Problem) undoObjectiveSense(z float64) float64 {
	if p.maximize && !math.IsInf(z, 0) {
		return -z
	}
	return z
}
