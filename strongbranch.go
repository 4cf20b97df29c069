package ilp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// lpCands holds the branching candidates of a node relaxation: parallel
// slices of column indices, solution values and fractionalities, ordered by
// decreasing branch priority. nprio counts the leading candidates of
// maximal priority.
type lpCands struct {
	cols  []int
	sols  []float64
	fracs []float64
	nprio int
}

// fractionalCands extracts the branching candidates from a relaxation
// solution: the integer variables whose value is fractional beyond feastol.
// Within equal priorities the relaxation's column order is kept.
func fractionalCands(x []float64, integrality []bool, priorities []int) lpCands {
	if !any(integrality) {
		return lpCands{}
	}

	type cand struct {
		col  int
		sol  float64
		frac float64
	}

	var list []cand
	for col, v := range x {
		if integrality[col] && isFractional(v) {
			list = append(list, cand{col: col, sol: v, frac: frac(v)})
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return priorities[list[i].col] > priorities[list[j].col]
	})

	out := lpCands{
		cols:  make([]int, len(list)),
		sols:  make([]float64, len(list)),
		fracs: make([]float64, len(list)),
	}
	for i, c := range list {
		out.cols[i] = c.col
		out.sols[i] = c.sol
		out.fracs[i] = c.frac

		if priorities[c.col] == priorities[list[0].col] {
			out.nprio++
		}
	}

	return out
}

// lpNode is the Host handed to a branching rule: a window on a single
// fractional node of the enumeration tree. It lives for the duration of one
// rule execution and collects the children the rule requests.
type lpNode struct {
	tree *enumerationTree
	sol  solution

	cands         lpCands
	candsComputed bool

	inStrongbranch bool
	branched       bool
	children       []subProblem
}

var _ Host = (*lpNode)(nil)

func (nd *lpNode) LPObjval() float64 {
	return nd.sol.z
}

func (nd *lpNode) LPSolstat() LPSolstat {
	switch {
	case nd.sol.err == nil:
		return LPSolstatOptimal
	case errors.Is(nd.sol.err, lp.ErrInfeasible):
		return LPSolstatInfeasible
	case errors.Is(nd.sol.err, lp.ErrUnbounded):
		return LPSolstatUnbounded
	default:
		return LPSolstatError
	}
}

func (nd *lpNode) CutoffBound() float64 {
	if nd.tree.incumbent == nil {
		return math.Inf(1)
	}
	return nd.tree.incumbent.z
}

func (nd *lpNode) IsStopped() bool {
	return nd.tree.solver.isStopped()
}

func (nd *lpNode) NNodes() int64 {
	return nd.tree.nodes
}

func (nd *lpNode) Depth() int {
	return nd.sol.problem.depth()
}

func (nd *lpNode) ObjCoef(col int) float64 {
	return nd.sol.problem.c[col]
}

func (nd *lpNode) VarName(col int) string {
	if col < 0 || col >= len(nd.tree.varNames) {
		return fmt.Sprintf("x%d", col)
	}
	return nd.tree.varNames[col]
}

func (nd *lpNode) BranchFactor(col int) float64 {
	return nd.tree.branchFactors[col]
}

// BranchScore combines the two gains into the product score, with small
// gains floored to keep the product meaningful on degenerate nodes.
func (nd *lpNode) BranchScore(col int, downgain, upgain float64) float64 {
	return math.Max(downgain, scoreFloor) * math.Max(upgain, scoreFloor) * nd.tree.branchFactors[col]
}

func (nd *lpNode) LPBranchCands() ([]int, []float64, []float64, int) {
	if !nd.candsComputed {
		nd.cands = fractionalCands(nd.sol.x, nd.sol.problem.integralityConstraints, nd.tree.branchPriorities)
		nd.candsComputed = true
	}
	return nd.cands.cols, nd.cands.sols, nd.cands.fracs, nd.cands.nprio
}

func (nd *lpNode) StartStrongbranch(propagate bool) error {
	if propagate {
		return fmt.Errorf("%w: strong branching with domain propagation is not supported", ErrInvalidData)
	}
	if nd.inStrongbranch {
		return fmt.Errorf("%w: strong branching mode already started", ErrInvalidData)
	}
	nd.inStrongbranch = true
	return nil
}

func (nd *lpNode) EndStrongbranch() {
	nd.inStrongbranch = false
}

// StrongbranchFrac evaluates both branching directions of the given column
// by solving the two child relaxations. A side whose relaxation is
// infeasible proves the bound +Inf. Any other relaxation failure, and an
// interrupted solve, surface as lperror.
func (nd *lpNode) StrongbranchFrac(col int, itlim int) (StrongBranch, bool, error) {
	var sb StrongBranch

	if st := nd.tree.solver.currentStage(); st != stagePresolved && st != stageSolving {
		return sb, false, fmt.Errorf("%w: strong branching requires a presolved or solving stage, got %v", ErrInvalidData, st)
	}
	if !nd.inStrongbranch {
		return sb, false, fmt.Errorf("%w: strong branching mode not started", ErrInvalidData)
	}
	if col < 0 || col >= len(nd.sol.problem.c) {
		return sb, false, fmt.Errorf("%w: column %d is not part of the node relaxation", ErrInvalidData, col)
	}
	if itlim <= 0 {
		return sb, false, fmt.Errorf("%w: iteration limit %d is not positive", ErrInvalidData, itlim)
	}

	if nd.tree.solver.isStopped() {
		return sb, true, nil
	}

	nd.tree.sbCalls++
	val := nd.sol.x[col]

	var lperror bool

	down := nd.sol.problem.downChild(col, val).solve()
	nd.tree.sbLPs++
	sb.Down, sb.DownValid, lperror = probeBound(down)
	if lperror {
		return StrongBranch{}, true, nil
	}

	up := nd.sol.problem.upChild(col, val).solve()
	nd.tree.sbLPs++
	sb.Up, sb.UpValid, lperror = probeBound(up)
	if lperror {
		return StrongBranch{}, true, nil
	}

	return sb, false, nil
}

// probeBound classifies the outcome of a probe relaxation.
func probeBound(s solution) (bound float64, valid bool, lperror bool) {
	switch {
	case s.err == nil:
		return s.z, true, false
	case errors.Is(s.err, lp.ErrInfeasible):
		return math.Inf(1), true, false
	default:
		return 0, false, true
	}
}

func (nd *lpNode) BranchVal(col int, val float64) error {
	if nd.inStrongbranch {
		return fmt.Errorf("%w: cannot branch while strong branching mode is active", ErrInvalidData)
	}
	if nd.branched {
		return fmt.Errorf("%w: node has already been branched", ErrInvalidData)
	}
	if col < 0 || col >= len(nd.sol.problem.c) {
		return fmt.Errorf("%w: column %d is not part of the node relaxation", ErrInvalidData, col)
	}

	nd.branched = true
	down, up := nd.sol.branchOn(col, val)
	nd.children = append(nd.children, down, up)
	return nil
}

func (nd *lpNode) Logger() *zap.Logger {
	return nd.tree.solver.log
}
