package ilp

import (
	"fmt"
	"io"
	"math"
	"strings"
)

type bnbMiddleware interface {

	// Receives each subproblem solution and a corresponding decision
	ProcessDecision(solution, bnbDecision)
}

type dummyMiddleware struct{}

func (d dummyMiddleware) ProcessDecision(s solution, b bnbDecision) {
}

// node is the instrumentation summary of an enumeration tree node.
// Note that we do not keep a reference to the subProblem struct itself, as
// that would preclude garbage collection of the potentially large search
// frontier.
type node struct {
	id     int64
	parent int64

	// objective function value
	z float64

	// intermediate solution
	x []float64

	// the decision that took place at this node
	decision bnbDecision
}

func newNode(soln solution, decision bnbDecision) node {
	n := node{
		z:        soln.z,
		x:        soln.x,
		decision: decision,
	}
	if soln.problem != nil {
		n.id = soln.problem.id
		n.parent = soln.problem.parent
	}
	return n
}

// treeLogger records every branch-and-bound decision of a search in arrival
// order.
type treeLogger struct {
	nodes []node
}

func newTreeLogger() *treeLogger {
	return &treeLogger{}
}

func (t *treeLogger) ProcessDecision(s solution, d bnbDecision) {
	t.nodes = append(t.nodes, newNode(s, d))
}

// toDOT writes the logged tree in Graphviz DOT format, one graph node per
// enumeration tree node with its objective value and decision.
func (t *treeLogger) toDOT(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("digraph bnb {\n")
	sb.WriteString("\tnode [shape=box, fontname=\"sans-serif\"];\n")

	for _, n := range t.nodes {
		z := "-"
		if !math.IsNaN(n.z) && !math.IsInf(n.z, 0) {
			z = fmt.Sprintf("%.4g", n.z)
		}
		fmt.Fprintf(&sb, "\t%d [label=\"#%d\\nz=%s\\n%s\"];\n", n.id, n.id, z, escapeDOT(string(n.decision)))

		if n.id != 0 {
			fmt.Fprintf(&sb, "\t%d -> %d;\n", n.parent, n.id)
		}
	}

	sb.WriteString("}\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func escapeDOT(s string) string {
	return strings.NewReplacer("\"", "\\\"", "\n", "\\n").Replace(s)
}
