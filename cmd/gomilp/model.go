package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	ilp "github.com/tju-lzg/gomilp"
)

// modelFile is the YAML description of a MILP model:
//
//	name: knapsack
//	maximize: true
//	variables:
//	  - name: x
//	    coefficient: 8
//	    integer: true
//	constraints:
//	  - terms: {x: 5, y: 7}
//	    op: "<="
//	    rhs: 14
//
// Constraints support the operators <=, >= and == over linear terms; a >=
// constraint is negated into <= form on conversion.
type modelFile struct {
	Name        string            `yaml:"name"`
	Maximize    bool              `yaml:"maximize"`
	Variables   []modelVariable   `yaml:"variables"`
	Constraints []modelConstraint `yaml:"constraints"`
}

type modelVariable struct {
	Name         string  `yaml:"name"`
	Coefficient  float64 `yaml:"coefficient"`
	Integer      bool    `yaml:"integer"`
	BranchFactor float64 `yaml:"branch_factor"`
	Priority     int     `yaml:"priority"`
}

type modelConstraint struct {
	Terms map[string]float64 `yaml:"terms"`
	Op    string             `yaml:"op"`
	RHS   float64            `yaml:"rhs"`
}

func loadModel(path string) (*modelFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}

	var m modelFile
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing model file: %w", err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", path, err)
	}

	return &m, nil
}

func (m *modelFile) validate() error {
	if len(m.Variables) == 0 {
		return fmt.Errorf("model declares no variables")
	}

	seen := make(map[string]bool, len(m.Variables))
	for i, v := range m.Variables {
		if v.Name == "" {
			return fmt.Errorf("variable %d has no name", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("variable %q is declared twice", v.Name)
		}
		seen[v.Name] = true
	}

	for i, c := range m.Constraints {
		switch c.Op {
		case "<=", ">=", "==", "=":
		default:
			return fmt.Errorf("constraint %d has unsupported operator %q", i, c.Op)
		}
		if len(c.Terms) == 0 {
			return fmt.Errorf("constraint %d has no terms", i)
		}
		for name := range c.Terms {
			if !seen[name] {
				return fmt.Errorf("constraint %d references undeclared variable %q", i, name)
			}
		}
	}

	return nil
}

// toProblem builds the solver problem. The returned variables follow the
// declaration order of the model so solution values can be reported per name.
func (m *modelFile) toProblem() (*ilp.Problem, []*ilp.Variable) {
	prob := ilp.NewProblem()
	if m.Maximize {
		prob.Maximize()
	}

	vars := make([]*ilp.Variable, len(m.Variables))
	byName := make(map[string]*ilp.Variable, len(m.Variables))
	for i, mv := range m.Variables {
		v := prob.AddVariable(mv.Coefficient, mv.Integer)
		v.Name = mv.Name
		v.BranchFactor = mv.BranchFactor
		v.BranchPriority = mv.Priority
		vars[i] = v
		byName[mv.Name] = v
	}

	for _, c := range m.Constraints {
		sign := 1.0
		rhs := c.RHS
		if c.Op == ">=" {
			sign, rhs = -1, -c.RHS
		}

		// assemble rows in variable declaration order to keep the built
		// problem independent of YAML map iteration order
		var exprs []ilp.Expression
		for _, mv := range m.Variables {
			coef, ok := c.Terms[mv.Name]
			if !ok {
				continue
			}
			exprs = append(exprs, ilp.Expr(sign*coef, byName[mv.Name]))
		}

		switch c.Op {
		case "==", "=":
			prob.AddEquality(exprs, rhs)
		default:
			prob.AddInEquality(exprs, rhs)
		}
	}

	return &prob, vars
}
