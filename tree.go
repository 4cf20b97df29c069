package ilp

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Branch-and-bound decisions that can be made by the algorithm
type bnbDecision string

const (
	SUBPROBLEM_IS_DEGENERATE        bnbDecision = "subproblem contains a degenerate (singular) matrix"
	SUBPROBLEM_NOT_FEASIBLE         bnbDecision = "subproblem has no feasible solution"
	WORSE_THAN_INCUMBENT            bnbDecision = "worse than incumbent"
	BETTER_THAN_INCUMBENT_BRANCHING bnbDecision = "better than incumbent but not integer feasible, so branching"
	BETTER_THAN_INCUMBENT_FEASIBLE  bnbDecision = "better than incumbent and integer feasible, so replacing incumbent"
	INITIAL_RX_FEASIBLE_FOR_IP      bnbDecision = "initial relaxation is feasible for IP"
	SEARCH_STOPPED                  bnbDecision = "search stopped before the node could be branched"
)

// Terminal search outcomes reported to the caller.
var (
	INITIAL_RELAXATION_NOT_FEASIBLE = errors.New("initial relaxation is not feasible")
	NO_INTEGER_FEASIBLE_SOLUTION    = errors.New("no integer feasible solution exists")
	SEARCH_INTERRUPTED              = errors.New("search interrupted before an integer feasible solution was found")
)

// solver failures that are expected during branch-and-bound and the decision
// they translate to. Any other failure is a programming error.
var expectedFailures = map[error]bnbDecision{
	lp.ErrInfeasible: SUBPROBLEM_NOT_FEASIBLE,
	lp.ErrSingular:   SUBPROBLEM_IS_DEGENERATE,
	lp.ErrBland:      SUBPROBLEM_IS_DEGENERATE,
}

type enumerationTree struct {
	active     chan subProblem
	toSolve    chan subProblem
	incumbent  *solution
	candidates chan solution

	// track the number of jobs (solving + checking) currently in progress
	inProgress sync.WaitGroup

	// tracks the pump, checker and solve worker goroutines so that the
	// search only returns after all of them have wound down.
	loopsDone sync.WaitGroup

	// the root problem
	rootProblem subProblem

	// objective value of the root relaxation, the weakest dual bound of
	// the tree.
	rootZ float64

	// the solver that owns this search, for stage, interruption state,
	// logging and instrumentation.
	solver *Solver

	// the branching rule applied to fractional nodes.
	rule Branchrule

	// per-variable branching metadata, indexed by column. Covers slack
	// columns introduced by presolve.
	branchFactors    []float64
	branchPriorities []int
	varNames         []string

	// id assigned to the most recently enqueued subproblem. Only the
	// checker enqueues, so no synchronization is needed.
	lastID int64

	// counters. nodes, sbCalls and sbLPs are owned by the checker
	// goroutine; nLPs is shared between the solve workers.
	nodes   int64
	sbCalls int64
	sbLPs   int64
	nLPs    atomic.Int64

	// first fatal error raised by a branching rule. Owned by the checker.
	fatalErr error
}

func newEnumerationTree(rootProblem subProblem, s *Solver, rule Branchrule, factors []float64, priorities []int, names []string) *enumerationTree {
	return &enumerationTree{
		// do not build buffered channels: buffering is managed by a separate goroutine.
		active:     make(chan subProblem),
		toSolve:    make(chan subProblem),
		candidates: make(chan solution),

		rootProblem: rootProblem,

		solver:           s,
		rule:             rule,
		branchFactors:    factors,
		branchPriorities: priorities,
		varNames:         names,
	}
}

func (p *enumerationTree) startSearch(nworkers int) (solution, error) {

	// solve the initial relaxation
	initialRelaxationSolution := p.rootProblem.solve()
	p.nLPs.Add(1)
	if initialRelaxationSolution.err != nil {

		// override the error message in case of infeasible initial relaxation for easier debugging
		if errors.Is(initialRelaxationSolution.err, lp.ErrInfeasible) {
			initialRelaxationSolution.err = INITIAL_RELAXATION_NOT_FEASIBLE
		}
		return initialRelaxationSolution, initialRelaxationSolution.err
	}
	p.rootZ = initialRelaxationSolution.z

	// if the solution to the initial relaxation already satisfies all
	// integrality constraints, we can present it as-is.
	if feasibleForIP(p.rootProblem.integralityConstraints, initialRelaxationSolution.x) {
		p.nodes++
		p.solver.instr.ProcessDecision(initialRelaxationSolution, INITIAL_RX_FEASIBLE_FOR_IP)
		return initialRelaxationSolution, nil
	}

	// start the buffer pump that manages transfers of subProblems from the buffer to the worker pool
	p.loopsDone.Add(1)
	go func() {
		defer p.loopsDone.Done()
		p.bufferPump()
	}()

	// start the checker worker. Running exactly one checker means rule
	// executions and incumbent updates never run concurrently.
	p.loopsDone.Add(1)
	go func() {
		defer p.loopsDone.Done()
		p.solutionChecker()
	}()

	// start the solve workers
	for j := 0; j < nworkers; j++ {
		p.loopsDone.Add(1)
		go func() {
			defer p.loopsDone.Done()
			p.solveWorker()
		}()
	}

	// post the initial relaxation solution as the first candidate
	p.postCandidate(initialRelaxationSolution)

	// wait until there are no longer any jobs active
	p.inProgress.Wait()

	// close the channel feeding the buffer pump, which will close the
	// other channels, and wait for all loops to exit.
	close(p.toSolve)
	p.loopsDone.Wait()

	if p.fatalErr != nil {
		if p.incumbent != nil {
			return *p.incumbent, p.fatalErr
		}
		return solution{}, p.fatalErr
	}

	if p.incumbent == nil {
		if p.solver.isStopped() {
			return solution{}, SEARCH_INTERRUPTED
		}
		return solution{}, NO_INTEGER_FEASIBLE_SOLUTION
	}

	return *p.incumbent, nil

}

func (p *enumerationTree) postCandidate(s solution) {
	// inform the manager that we added a candidate to the queue
	p.inProgress.Add(1)
	p.candidates <- s
}

func (p *enumerationTree) enqueueProblems(probs ...subProblem) {
	for _, s := range probs {

		p.lastID++
		s.id = p.lastID

		p.inProgress.Add(1)

		p.toSolve <- s

	}
}

// Bufferpump should run in a separate goroutine to prevent blocking of the communication between the solvers and the checker
func (p *enumerationTree) bufferPump() {
	var buffer []subProblem
	var next subProblem

	// key exploit of the statement below is the exploitation of nil channels. Select skips over these.
	var output chan subProblem

loopy:
	for {

		select {

		// if presented, store the piece of work in the buffer.
		case msg, open := <-p.toSolve:
			if !open {
				// if the buffer channel is closed, we exit the loop
				break loopy
			}
			buffer = append(buffer, msg)

		// try to send a buffered job to the workers
		// note that when next is nil, so is the output channel. A nil channel causes select to skip over this case.
		case output <- next:
			// pop the buffered job that we just sent (only if it WAS sent, ofcourse)
			if len(buffer) > 1 {
				buffer = buffer[1:]
			} else {
				buffer = nil
			}

		}

		if len(buffer) > 0 {
			next = buffer[0]
			output = p.active
		} else {
			output = nil
		}

	}
	close(p.active)
	close(p.candidates)
}

func (p *enumerationTree) solveWorker() {
	for prob := range p.active {
		// solve the subproblem
		candidate := prob.solve()
		p.nLPs.Add(1)

		// present the candidate solution
		p.postCandidate(candidate)

		// tell the manager we finished a unit of work
		p.inProgress.Done()
	}

}

func (p *enumerationTree) solutionChecker() {

	for candidate := range p.candidates {

		p.nodes++

		// decide on what to do with the candidate solution
		decision := p.assessCandidate(candidate)

		p.solver.instr.ProcessDecision(candidate, decision)

		// inform the manager that we finished checking a candidate
		p.inProgress.Done()
	}

}

func (p *enumerationTree) assessCandidate(candidate solution) bnbDecision {

	// retrieve the objective function value of the incumbent
	// if no incumbent is set, return +Inf
	incumbentZ := math.Inf(1)
	if p.incumbent != nil {
		incumbentZ = p.incumbent.z
	}

	switch {

	case candidate.err != nil:
		return translateSolverFailure(candidate.err)

	// Note that the objective is always minimization.
	case incumbentZ <= candidate.z:
		return WORSE_THAN_INCUMBENT

	case incumbentZ > candidate.z:
		if feasibleForIP(p.rootProblem.integralityConstraints, candidate.x) {
			// Candidate is an improvement over the incumbent

			// Note that we first take the value of candidate before indirecting again.
			// We don't want to be the guy that creates a pointer to the iteration receiver ('candidate' in this case).
			inc := candidate
			p.incumbent = &inc
			return BETTER_THAN_INCUMBENT_FEASIBLE
		}

		// candidate is an improvement over the incumbent, but not feasible.
		// An interrupted search abandons the node instead of growing the
		// tree further.
		if p.solver.isStopped() {
			return SEARCH_STOPPED
		}

		// ask the branching rule for the branching decision, then add the
		// descendants of this candidate to the queue.
		p.branchOnCandidate(candidate)
		return BETTER_THAN_INCUMBENT_BRANCHING

	default:
		// this should never happen and thus should never fail silently.
		// Leave this here in case anything is every screwed up in the case logic that would make this case reachable.
		panic("unexpected case: could not decide what to do with branched subproblem")

	}

}

// branchOnCandidate hands the node to the branching rule and enqueues the
// children it requested. Nodes the rule does not apply to, and rules that
// decline to run, fall back to branching on the first candidate.
func (p *enumerationTree) branchOnCandidate(candidate solution) {
	nd := &lpNode{tree: p, sol: candidate}

	if p.rule != nil && p.ruleApplies(p.rule, candidate) {
		if _, err := p.rule.ExecLP(nd); err != nil {
			p.fail(fmt.Errorf("branching rule %q: %w", p.rule.Name(), err))
			return
		}
	}

	if !nd.branched {
		cols, sols, _, _ := nd.LPBranchCands()
		if err := nd.BranchVal(cols[0], sols[0]); err != nil {
			p.fail(err)
			return
		}
	}

	p.enqueueProblems(nd.children...)
}

// ruleApplies checks the rule's depth and bound distance limits against the
// given node.
func (p *enumerationTree) ruleApplies(r Branchrule, candidate solution) bool {
	if md := r.MaxDepth(); md >= 0 && candidate.problem.depth() > md {
		return false
	}

	// relative distance of the node's bound from the root bound to the
	// cutoff. Without an incumbent every node qualifies.
	if maxdist := r.MaxBoundDist(); maxdist < 1 && p.incumbent != nil {
		width := p.incumbent.z - p.rootZ
		if width > 0 {
			if dist := (candidate.z - p.rootZ) / width; dist > maxdist {
				return false
			}
		}
	}

	return true
}

// fail records the first fatal error and interrupts the search. Later nodes
// drain without branching.
func (p *enumerationTree) fail(err error) {
	if p.fatalErr == nil {
		p.fatalErr = err
		p.solver.markStopped()
	}
}

// takes a solver failure and determines whether it warrants a panic or whether it is expected.
func translateSolverFailure(err error) bnbDecision {
	for failure, decision := range expectedFailures {
		if errors.Is(err, failure) {
			return decision
		}
	}
	panic(err)
}

// check whether the solution vector is feasible in light of the integrality constraints for each variable
func feasibleForIP(constraints []bool, solution []float64) bool {
	if len(constraints) != len(solution) {
		panic(fmt.Sprint("constraints vector and solution vector not of equal size: ", constraints, solution))
	}
	for i := range solution {
		if constraints[i] {
			if !isAllInteger(solution[i]) {
				return false
			}
		}
	}
	return true
}
