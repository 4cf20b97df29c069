package ilp

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

const (
	fullstrongName         = "fullstrong-vanilla"
	fullstrongDesc         = "full strong branching vanilla"
	fullstrongPriority     = -1
	fullstrongMaxDepth     = -1
	fullstrongMaxBoundDist = 1.0

	// iteration budget passed to probes. The backend solves child
	// relaxations to optimality regardless.
	unlimitedIterations = math.MaxInt32

	defaultForceStrongBranch = true
)

// ParamForceStrongBranch keeps the evaluation loop from taking shortcuts:
// strong branching is evaluated for all candidates no matter what.
const ParamForceStrongBranch = "branching/fullstrong-vanilla/forcestrongbranch"

// VanillaFullstrong implements full strong branching in its textbook form:
// every fractional candidate of the node relaxation is probed in both
// directions and the candidate with the best score is branched on. No
// engineering shortcuts (propagation, warm starts, iteration limits) are
// applied, which makes the rule expensive but reproducible, a property
// mostly of interest for research on branching.
//
// Candidates whose probes prove one or both children infeasible take
// precedence over regular candidates: a candidate with both children
// infeasible wins over one with a single infeasible child, which wins over
// any candidate scored on its gains alone. Ties keep the earlier candidate.
type VanillaFullstrong struct {
	// forcestrongbranch keeps the evaluation loop running even when a
	// shortcut would be sound, so that the score buffers always cover
	// every candidate.
	forceStrongBranch bool

	// scores of the last execution, one entry per branching candidate.
	// latestScores starts at -Inf; validScores marks candidates whose
	// score came from two feasible (finite) probe bounds.
	latestScores []float64
	validScores  []bool

	// candidate index selected by the last execution, -1 before the first.
	bestCand int
}

// NewVanillaFullstrong returns the rule with default settings.
func NewVanillaFullstrong() *VanillaFullstrong {
	return &VanillaFullstrong{
		forceStrongBranch: defaultForceStrongBranch,
		bestCand:          -1,
	}
}

func (r *VanillaFullstrong) Name() string          { return fullstrongName }
func (r *VanillaFullstrong) Description() string   { return fullstrongDesc }
func (r *VanillaFullstrong) Priority() int         { return fullstrongPriority }
func (r *VanillaFullstrong) MaxDepth() int         { return fullstrongMaxDepth }
func (r *VanillaFullstrong) MaxBoundDist() float64 { return fullstrongMaxBoundDist }

func (r *VanillaFullstrong) registerParams(ps *paramSet) error {
	return ps.addBool(ParamForceStrongBranch,
		"should strong branching be evaluated for all candidates no matter what?",
		&r.forceStrongBranch, true, defaultForceStrongBranch)
}

// CopyRule clones the rule into a fresh instance with default settings.
// Parameter values are carried over by the solver copy, not here.
func (r *VanillaFullstrong) CopyRule() Branchrule {
	return NewVanillaFullstrong()
}

// InitRule clears any state left over from a previous solve.
func (r *VanillaFullstrong) InitRule() error {
	r.latestScores = nil
	r.validScores = nil
	r.bestCand = -1
	return nil
}

// ExitRule intentionally keeps the score buffers: they remain readable
// through the accessors after the solve has finished.
func (r *VanillaFullstrong) ExitRule() error {
	return nil
}

// FreeRule releases the score buffers.
func (r *VanillaFullstrong) FreeRule() {
	r.latestScores = nil
	r.validScores = nil
	r.bestCand = -1
}

// LatestScores returns the per-candidate scores of the most recent
// execution. The slice is a view into rule state and is replaced by the
// next execution.
func (r *VanillaFullstrong) LatestScores() []float64 {
	return r.latestScores
}

// ValidScores flags which entries of LatestScores were computed from two
// feasible probe bounds. Scores involving an infeasible child are reported
// but not flagged valid.
func (r *VanillaFullstrong) ValidScores() []bool {
	return r.validScores
}

// BestCand returns the candidate index selected by the most recent
// execution, or -1 if the rule has not executed yet.
func (r *VanillaFullstrong) BestCand() int {
	return r.bestCand
}

// FullstrongVanillaScores returns the candidate scores stored by the given
// solver's vanilla full strong branching rule after its latest execution.
// Both return values are nil when the rule is not registered or has not run.
func FullstrongVanillaScores(s *Solver) ([]float64, []bool) {
	r, ok := s.FindBranchrule(RuleFullstrongVanilla).(*VanillaFullstrong)
	if !ok {
		return nil, nil
	}
	return r.LatestScores(), r.ValidScores()
}

// FullstrongVanillaBestCand returns the candidate index selected by the
// given solver's vanilla full strong branching rule, or -1.
func FullstrongVanillaBestCand(s *Solver) int {
	r, ok := s.FindBranchrule(RuleFullstrongVanilla).(*VanillaFullstrong)
	if !ok {
		return -1
	}
	return r.BestCand()
}

// strongBranchSelection is the outcome of the candidate evaluation loop.
type strongBranchSelection struct {
	cand      int
	down      float64
	up        float64
	downValid bool
	upValid   bool
	score     float64

	// dual bound proved for the node by the evaluation, at least the node
	// relaxation objective.
	provedBound float64

	// ran is false when evaluation was skipped entirely and the defaults
	// above were returned untouched.
	ran bool
}

// selectCandidate runs strong branching on all candidates and picks the one
// to branch on. It fills the rule's score buffers as a side effect; the
// buffers must already have one entry per candidate.
func (r *VanillaFullstrong) selectCandidate(h Host, cols []int, sols []float64, nprio int) (strongBranchSelection, error) {
	lpobjval := h.LPObjval()

	sel := strongBranchSelection{
		cand:        0,
		down:        lpobjval,
		up:          lpobjval,
		downValid:   true,
		upValid:     true,
		score:       math.Inf(-1),
		provedBound: lpobjval,
	}

	// A single candidate needs no evaluation to be picked, unless scores
	// are requested for all candidates. An interrupted solve branches on
	// the first candidate without probing.
	if (!r.forceStrongBranch && len(cols) == 1) || h.IsStopped() {
		return sel, nil
	}

	if stat := h.LPSolstat(); stat != LPSolstatOptimal {
		panic(fmt.Sprintf("strong branching requires an optimally solved node relaxation, got %v", stat))
	}

	if err := h.StartStrongbranch(false); err != nil {
		return sel, err
	}
	defer h.EndStrongbranch()

	sel.ran = true
	cutoff := h.CutoffBound()
	besthasinf := false
	log := h.Logger()

	for c := range cols {
		log.Debug("applying vanilla strong branching",
			zap.String("var", h.VarName(cols[c])),
			zap.Float64("solval", sols[c]))

		sb, lperror, err := h.StrongbranchFrac(cols[c], unlimitedIterations)
		if err != nil {
			return sel, err
		}

		// an unresolved relaxation aborts the evaluation; the best
		// candidate found so far stands.
		if lperror {
			log.Debug("error in strong branching call",
				zap.Int64("node", h.NNodes()),
				zap.String("var", h.VarName(cols[c])),
				zap.Float64("solval", sols[c]))
			break
		}

		down := math.Max(sb.Down, lpobjval)
		up := math.Max(sb.Up, lpobjval)
		downgain := down - lpobjval
		upgain := up - lpobjval

		// a child counts as infeasible only when its bound is proved and
		// reaches the cutoff.
		downinf := sb.DownValid && isGE(down, cutoff)
		upinf := sb.UpValid && isGE(up, cutoff)

		var score float64
		switch {
		case downinf && upinf:
			// both children infeasible: the node itself can be cut off.
			score = math.Inf(1)
		case downinf:
			score = upgain * h.BranchFactor(cols[c])
		case upinf:
			score = downgain * h.BranchFactor(cols[c])
		default:
			score = h.BranchScore(cols[c], downgain, upgain)
			r.validScores[c] = true
		}
		r.latestScores[c] = score

		// a candidate with an infeasible child displaces any regular best;
		// among equals, a higher score wins and ties keep the incumbent.
		if (score > sel.score && (downinf || upinf || !besthasinf)) ||
			(!besthasinf && (downinf || upinf)) {
			sel.cand = c
			sel.down = down
			sel.up = up
			sel.downValid = sb.DownValid
			sel.upValid = sb.UpValid
			sel.score = score

			if downinf || upinf {
				besthasinf = true
				if downinf && upinf && !r.forceStrongBranch {
					// both directions infeasible, no better candidate
					// can exist.
					break
				}
			}
		}

		log.Debug("strong branching candidate evaluated",
			zap.Int("cand", c),
			zap.Int("ncands", len(cols)),
			zap.Int("nprio", nprio),
			zap.String("var", h.VarName(cols[c])),
			zap.Float64("solval", sols[c]),
			zap.Float64("downgain", downgain),
			zap.Float64("upgain", upgain),
			zap.Float64("score", score),
			zap.Float64("bestscore", sel.score))
	}

	return sel, nil
}

// ExecLP selects and branches on the best strong branching candidate of the
// current node.
func (r *VanillaFullstrong) ExecLP(h Host) (BranchResult, error) {
	result := BranchDidNotRun

	cols, sols, _, nprio := h.LPBranchCands()
	if len(cols) == 0 {
		panic("branching rule executed on a node without fractional candidates")
	}

	// work on copies: branching invalidates the relaxation data the
	// candidate slices are views into.
	cols = append([]int(nil), cols...)
	sols = append([]float64(nil), sols...)

	if (r.latestScores == nil) != (r.validScores == nil) {
		panic("score buffers out of sync")
	}

	// fresh score buffers for this execution, one entry per candidate.
	r.latestScores = make([]float64, len(cols))
	r.validScores = make([]bool, len(cols))
	for c := range r.latestScores {
		r.latestScores[c] = math.Inf(-1)
	}

	sel, err := r.selectCandidate(h, cols, sols, nprio)
	if err != nil {
		return result, err
	}

	if sel.cand < 0 || sel.cand >= len(cols) {
		panic(fmt.Sprintf("selected candidate %d out of range", sel.cand))
	}
	r.bestCand = sel.cand

	h.Logger().Debug("branching on candidate",
		zap.Int("ncands", len(cols)),
		zap.Int("cand", sel.cand),
		zap.String("var", h.VarName(cols[sel.cand])),
		zap.Float64("solval", sols[sel.cand]),
		zap.Float64("down", sel.down),
		zap.Float64("up", sel.up),
		zap.Float64("score", sel.score),
		zap.Float64("provedbound", sel.provedBound),
		zap.Bool("evaluated", sel.ran))

	if err := h.BranchVal(cols[sel.cand], sols[sel.cand]); err != nil {
		return result, err
	}

	result = Branched
	return result, nil
}
