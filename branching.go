package ilp

import "math"

// Names of the built-in branching rules.
const (
	RuleFullstrongVanilla = fullstrongName
	RuleMaxFun            = "maxfun"
	RuleMostInfeasible    = "mostinfeasible"
	RuleFirstFractional   = "firstfrac"
)

// The static rules below decide on the node relaxation alone, without
// probing. They only consider candidates of maximal branch priority and
// resolve ties by picking the later candidate.

// maxFunRule branches on the candidate with the largest absolute objective
// coefficient.
type maxFunRule struct{}

func (maxFunRule) Name() string        { return RuleMaxFun }
func (maxFunRule) Description() string { return "most expensive objective coefficient branching" }
func (maxFunRule) Priority() int       { return 50 }
func (maxFunRule) MaxDepth() int       { return -1 }
func (maxFunRule) MaxBoundDist() float64 {
	return 1.0
}
func (maxFunRule) CopyRule() Branchrule { return maxFunRule{} }

func (maxFunRule) ExecLP(h Host) (BranchResult, error) {
	cols, sols, _, nprio := h.LPBranchCands()
	if len(cols) == 0 {
		panic("branching rule executed on a node without fractional candidates")
	}

	best := 0
	bestVal := math.Inf(-1)
	for c := 0; c < nprio; c++ {
		if v := math.Abs(h.ObjCoef(cols[c])); v >= bestVal {
			best = c
			bestVal = v
		}
	}

	if err := h.BranchVal(cols[best], sols[best]); err != nil {
		return BranchDidNotRun, err
	}
	return Branched, nil
}

// mostInfeasibleRule branches on the candidate whose fractional part is
// closest to 1/2.
type mostInfeasibleRule struct{}

func (mostInfeasibleRule) Name() string        { return RuleMostInfeasible }
func (mostInfeasibleRule) Description() string { return "most infeasible branching" }
func (mostInfeasibleRule) Priority() int       { return 100 }
func (mostInfeasibleRule) MaxDepth() int       { return -1 }
func (mostInfeasibleRule) MaxBoundDist() float64 {
	return 1.0
}
func (mostInfeasibleRule) CopyRule() Branchrule { return mostInfeasibleRule{} }

func (mostInfeasibleRule) ExecLP(h Host) (BranchResult, error) {
	cols, sols, fracs, nprio := h.LPBranchCands()
	if len(cols) == 0 {
		panic("branching rule executed on a node without fractional candidates")
	}

	best := 0
	bestDist := math.Inf(1)
	for c := 0; c < nprio; c++ {
		if dist := math.Abs(0.5 - fracs[c]); dist <= bestDist {
			best = c
			bestDist = dist
		}
	}

	if err := h.BranchVal(cols[best], sols[best]); err != nil {
		return BranchDidNotRun, err
	}
	return Branched, nil
}

// firstFracRule branches on the first candidate in host order. Cheap and
// mainly useful as a baseline.
type firstFracRule struct{}

func (firstFracRule) Name() string        { return RuleFirstFractional }
func (firstFracRule) Description() string { return "first fractional variable branching" }
func (firstFracRule) Priority() int       { return 10 }
func (firstFracRule) MaxDepth() int       { return -1 }
func (firstFracRule) MaxBoundDist() float64 {
	return 1.0
}
func (firstFracRule) CopyRule() Branchrule { return firstFracRule{} }

func (firstFracRule) ExecLP(h Host) (BranchResult, error) {
	cols, sols, _, _ := h.LPBranchCands()
	if len(cols) == 0 {
		panic("branching rule executed on a node without fractional candidates")
	}

	if err := h.BranchVal(cols[0], sols[0]); err != nil {
		return BranchDidNotRun, err
	}
	return Branched, nil
}
