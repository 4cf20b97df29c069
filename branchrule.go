package ilp

import (
	"errors"

	"go.uber.org/zap"
)

// ErrInvalidData is returned by host operations that were called with
// arguments the current solve state cannot honor, such as probing a column
// that is not part of the node LP.
var ErrInvalidData = errors.New("invalid data")

// BranchResult tells the enumeration tree what a branching rule did with the
// node it was handed.
type BranchResult int

const (
	// BranchDidNotRun means the rule made no branching decision. The tree
	// falls back to branching on the first candidate.
	BranchDidNotRun BranchResult = iota

	// Branched means the rule requested a branch through Host.BranchVal.
	Branched
)

func (r BranchResult) String() string {
	switch r {
	case BranchDidNotRun:
		return "DIDNOTRUN"
	case Branched:
		return "BRANCHED"
	default:
		return "UNKNOWN"
	}
}

// LPSolstat describes the solution status of the current node relaxation.
type LPSolstat int

const (
	LPSolstatNotSolved LPSolstat = iota
	LPSolstatOptimal
	LPSolstatInfeasible
	LPSolstatUnbounded
	LPSolstatError
)

func (s LPSolstat) String() string {
	switch s {
	case LPSolstatNotSolved:
		return "NOTSOLVED"
	case LPSolstatOptimal:
		return "OPTIMAL"
	case LPSolstatInfeasible:
		return "INFEASIBLE"
	case LPSolstatUnbounded:
		return "UNBOUNDED"
	case LPSolstatError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StrongBranch holds the two one-sided dual bounds computed by a strong
// branching probe. A side whose child relaxation is infeasible reports a
// bound of +Inf. A bound is only safe to prune with when its valid flag is
// set; unset flags mark estimates.
type StrongBranch struct {
	Down      float64
	Up        float64
	DownValid bool
	UpValid   bool
}

// Host is the solver-side contract available to a branching rule while it
// executes on a node. All methods must be called from within ExecLP; the
// tree guarantees that no two rule executions run concurrently.
type Host interface {
	// LPObjval returns the objective value of the node relaxation.
	LPObjval() float64

	// LPSolstat returns the solution status of the node relaxation.
	LPSolstat() LPSolstat

	// CutoffBound returns the objective value of the incumbent, or +Inf
	// when no integer feasible solution has been found yet. Nodes whose
	// dual bound reaches the cutoff cannot improve on the incumbent.
	CutoffBound() float64

	// IsStopped reports whether the solve has been interrupted.
	IsStopped() bool

	// NNodes returns the number of nodes processed so far.
	NNodes() int64

	// Depth returns the depth of the current node in the tree.
	Depth() int

	// ObjCoef returns the objective coefficient of the given column.
	ObjCoef(col int) float64

	// VarName returns the name of the given column's variable.
	VarName(col int) string

	// BranchFactor returns the branching priority factor of the given
	// column's variable.
	BranchFactor(col int) float64

	// BranchScore combines a down gain and an up gain into a single score
	// for the given column, applying the column's branch factor.
	BranchScore(col int, downgain, upgain float64) float64

	// LPBranchCands returns the branching candidates of the node
	// relaxation: the columns of integer variables with fractional values,
	// their values and their fractionalities. The candidates are ordered
	// by decreasing branch priority; the first nprio candidates share the
	// maximal priority.
	LPBranchCands() (cols []int, sols []float64, fracs []float64, nprio int)

	// StartStrongbranch enters strong branching mode. Probing with domain
	// propagation is not supported.
	StartStrongbranch(propagate bool) error

	// EndStrongbranch leaves strong branching mode.
	EndStrongbranch()

	// StrongbranchFrac probes both branching directions of a fractional
	// column by solving the two child relaxations. itlim caps the simplex
	// effort per side; the current backend always solves to optimality.
	// lperror is set when a child relaxation failed for a reason other
	// than infeasibility, or when the solve was interrupted.
	StrongbranchFrac(col int, itlim int) (sb StrongBranch, lperror bool, err error)

	// BranchVal requests a branch on the given column around the given
	// fractional value. The tree creates the two child subproblems after
	// the rule returns.
	BranchVal(col int, val float64) error

	// Logger returns the logger of the running solve.
	Logger() *zap.Logger
}

// Branchrule selects the variable to branch on for nodes whose relaxation
// is fractional. Implementations are registered with a Solver and selected
// by name.
//
// A rule may additionally implement any of the optional lifecycle
// interfaces: BranchruleCopier (cloning the rule into a copied solver),
// BranchruleIniter and BranchruleExiter (hooks around each solve) and
// BranchruleFreer (releasing rule data when the solver is freed).
type Branchrule interface {
	// Name identifies the rule in the registry and the parameter table.
	Name() string

	// Description is a one-line human readable summary.
	Description() string

	// Priority orders rules when the tree picks a fallback. Higher is
	// preferred.
	Priority() int

	// MaxDepth limits the tree depth at which the rule applies, -1 for no
	// limit.
	MaxDepth() int

	// MaxBoundDist limits the relative distance of a node's dual bound to
	// the cutoff for the rule to apply, between 0 and 1.
	MaxBoundDist() float64

	// ExecLP makes the branching decision for the current node.
	ExecLP(h Host) (BranchResult, error)
}

// BranchruleCopier is implemented by rules that can clone themselves into an
// independent solver copy.
type BranchruleCopier interface {
	CopyRule() Branchrule
}

// BranchruleIniter is implemented by rules that need setup at the start of a
// solve.
type BranchruleIniter interface {
	InitRule() error
}

// BranchruleExiter is implemented by rules that need teardown at the end of
// a solve.
type BranchruleExiter interface {
	ExitRule() error
}

// BranchruleFreer is implemented by rules that hold data that should be
// released when the owning solver is freed.
type BranchruleFreer interface {
	FreeRule()
}
