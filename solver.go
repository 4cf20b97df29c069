package ilp

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// solveStage tracks where a solver is in its pipeline. Strong branching is
// only available from the presolved stage onwards.
type solveStage int

const (
	stageProblem solveStage = iota
	stagePresolving
	stagePresolved
	stageSolving
	stageSolved
)

func (s solveStage) String() string {
	switch s {
	case stageProblem:
		return "PROBLEM"
	case stagePresolving:
		return "PRESOLVING"
	case stagePresolved:
		return "PRESOLVED"
	case stageSolving:
		return "SOLVING"
	case stageSolved:
		return "SOLVED"
	default:
		return "UNKNOWN"
	}
}

// Statistics summarizes the work done by the most recent solve.
type Statistics struct {
	// NNodes is the number of branch-and-bound nodes processed.
	NNodes int64

	// NLPs is the number of node relaxations solved, including the root.
	NLPs int64

	// NStrongbranchCalls is the number of strong branching probes.
	NStrongbranchCalls int64

	// NStrongbranchLPs is the number of child relaxations solved by
	// strong branching probes.
	NStrongbranchLPs int64
}

// Solver runs branch-and-bound searches. A Solver can be reused for several
// problems, but runs only one solve at a time.
type Solver struct {
	workers  int
	log      *zap.Logger
	ruleName string

	rules  map[string]Branchrule
	params *paramSet

	instr       bnbMiddleware
	treeLog     *treeLogger
	collectTree bool

	stage   solveStage
	stopped atomic.Bool
	freed   bool

	stats Statistics
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger. The solver logs at debug level only.
func WithLogger(log *zap.Logger) Option {
	return func(s *Solver) {
		s.log = log
	}
}

// WithWorkers sets the number of concurrent subproblem solvers. The default
// is the number of CPUs.
func WithWorkers(n int) Option {
	return func(s *Solver) {
		s.workers = n
	}
}

// WithBranchrule selects the branching rule by name. The default is vanilla
// full strong branching.
func WithBranchrule(name string) Option {
	return func(s *Solver) {
		s.ruleName = name
	}
}

// WithTreeLog records every branch-and-bound decision of a solve; the
// resulting tree can be written out with TreeDOT.
func WithTreeLog() Option {
	return func(s *Solver) {
		s.collectTree = true
	}
}

// NewSolver returns a solver with the built-in branching rules included and
// all parameters at their defaults.
func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		workers:  runtime.NumCPU(),
		log:      zap.NewNop(),
		ruleName: RuleFullstrongVanilla,
		rules:    make(map[string]Branchrule),
		params:   newParamSet(),
		instr:    dummyMiddleware{},
	}

	for _, r := range []Branchrule{
		NewVanillaFullstrong(),
		mostInfeasibleRule{},
		maxFunRule{},
		firstFracRule{},
	} {
		if err := s.IncludeBranchrule(r); err != nil {
			panic(err)
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.workers < 1 {
		s.workers = 1
	}

	return s
}

// IncludeBranchrule registers a branching rule under its name and registers
// any parameters the rule declares.
func (s *Solver) IncludeBranchrule(r Branchrule) error {
	if _, ok := s.rules[r.Name()]; ok {
		return fmt.Errorf("branching rule %q is already included", r.Name())
	}
	if pr, ok := r.(paramRegistrar); ok {
		if err := pr.registerParams(s.params); err != nil {
			return err
		}
	}
	s.rules[r.Name()] = r
	return nil
}

// paramRegistrar is implemented by rules that declare solver parameters.
type paramRegistrar interface {
	registerParams(ps *paramSet) error
}

// FindBranchrule returns the registered rule of the given name, or nil.
func (s *Solver) FindBranchrule(name string) Branchrule {
	return s.rules[name]
}

// Branchrules lists the registered rules by decreasing priority.
func (s *Solver) Branchrules() []Branchrule {
	rules := make([]Branchrule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority() != rules[j].Priority() {
			return rules[i].Priority() > rules[j].Priority()
		}
		return rules[i].Name() < rules[j].Name()
	})
	return rules
}

// SetBoolParam sets a registered boolean parameter.
func (s *Solver) SetBoolParam(name string, value bool) error {
	return s.params.setBool(name, value)
}

// BoolParam reads a registered boolean parameter.
func (s *Solver) BoolParam(name string) (bool, error) {
	return s.params.bool(name)
}

// Params lists all registered parameters.
func (s *Solver) Params() []ParamInfo {
	return s.params.list()
}

// ResetParams restores all parameters to their defaults.
func (s *Solver) ResetParams() {
	s.params.resetToDefaults()
}

// Interrupt stops the running solve as soon as possible. The search returns
// the best solution found so far, if any.
func (s *Solver) Interrupt() {
	s.stopped.Store(true)
}

func (s *Solver) isStopped() bool {
	return s.stopped.Load()
}

func (s *Solver) markStopped() {
	s.stopped.Store(true)
}

func (s *Solver) currentStage() solveStage {
	return s.stage
}

// Statistics returns the counters of the most recent solve.
func (s *Solver) Statistics() Statistics {
	return s.stats
}

// TreeDOT writes the branch-and-bound tree of the most recent solve in
// Graphviz DOT format. The solver must have been built with WithTreeLog.
func (s *Solver) TreeDOT(w io.Writer) error {
	if s.treeLog == nil {
		return fmt.Errorf("solver was not configured with WithTreeLog")
	}
	return s.treeLog.toDOT(w)
}

// Copy returns an independent solver with the same configuration. Rules
// implementing BranchruleCopier are cloned; current parameter values carry
// over to the cloned rules.
func (s *Solver) Copy() *Solver {
	c := &Solver{
		workers:  s.workers,
		log:      s.log,
		ruleName: s.ruleName,
		rules:    make(map[string]Branchrule),
		params:   newParamSet(),
		instr:    dummyMiddleware{},
	}

	for _, r := range s.Branchrules() {
		copier, ok := r.(BranchruleCopier)
		if !ok {
			continue
		}
		if err := c.IncludeBranchrule(copier.CopyRule()); err != nil {
			panic(err)
		}
	}

	// carry over the current parameter values. Parameters of rules that
	// could not be cloned have no registered counterpart and are skipped.
	for _, info := range s.params.list() {
		if p, ok := s.params.bools[info.Name]; ok {
			_ = c.params.setBool(info.Name, *p.target)
		}
	}

	return c
}

// Free releases the data held by the solver's rules and empties the
// registry. The solver cannot be used afterwards.
func (s *Solver) Free() {
	for _, r := range s.rules {
		if f, ok := r.(BranchruleFreer); ok {
			f.FreeRule()
		}
	}
	s.rules = nil
	s.params = newParamSet()
	s.treeLog = nil
	s.freed = true
}

// Solve runs branch-and-bound on the given problem. The context interrupts
// the search; an interrupted search returns the incumbent when one exists.
func (s *Solver) Solve(ctx context.Context, p *Problem) (Solution, error) {
	prob := p.ToSolveable()

	sol, err := s.solveMILP(ctx, *prob)
	if err != nil {
		return Solution{}, err
	}

	return Solution{
		Z: p.undoObjectiveSense(sol.z),
		X: sol.x,
	}, nil
}

func (s *Solver) solveMILP(ctx context.Context, prob milpProblem) (solution, error) {
	if s.freed {
		panic("solve called on a freed solver")
	}
	prob.checkDimensions()

	rule := s.rules[s.ruleName]
	if rule == nil {
		return solution{}, fmt.Errorf("unknown branching rule %q", s.ruleName)
	}

	s.stats = Statistics{}
	s.stopped.Store(false)
	s.stage = stageProblem

	if s.collectTree {
		s.treeLog = newTreeLogger()
		s.instr = s.treeLog
	}

	if err := s.initRules(); err != nil {
		return solution{}, err
	}
	defer s.exitRules()

	s.log.Debug("presolving",
		zap.Int("nvars", len(prob.c)),
		zap.Int("nints", countTrue(prob.integralityConstraints)))

	s.stage = stagePresolving
	prepper := newPreprocessor()
	prepped := prepper.preSolve(prob)
	s.stage = stagePresolved

	// interrupt the search when the context is cancelled. The watcher goroutine
	// is waited out to keep solves self-contained.
	done := make(chan struct{})
	var watch sync.WaitGroup
	if ctx != nil {
		watch.Add(1)
		go func() {
			defer watch.Done()
			select {
			case <-ctx.Done():
				s.markStopped()
			case <-done:
			}
		}()
	}
	defer watch.Wait()
	defer close(done)

	s.stage = stageSolving
	tree := newEnumerationTree(prepped.toInitialSubproblem(), s, rule,
		prepped.branchFactors, prepped.branchPriorities, prepped.varNames)

	s.log.Debug("starting branch and bound",
		zap.String("rule", rule.Name()),
		zap.Int("workers", s.workers))

	incumbent, err := tree.startSearch(s.workers)

	s.stats = Statistics{
		NNodes:             tree.nodes,
		NLPs:               tree.nLPs.Load(),
		NStrongbranchCalls: tree.sbCalls,
		NStrongbranchLPs:   tree.sbLPs,
	}
	s.stage = stageSolved

	s.log.Debug("search finished",
		zap.Int64("nodes", s.stats.NNodes),
		zap.Int64("lps", s.stats.NLPs),
		zap.Int64("sbcalls", s.stats.NStrongbranchCalls),
		zap.Int64("sblps", s.stats.NStrongbranchLPs),
		zap.Error(err))

	if err != nil {
		return solution{}, err
	}

	// map the solution back to the original variable space
	return prepper.postSolve(incumbent), nil
}

func (s *Solver) initRules() error {
	for _, r := range s.Branchrules() {
		if init, ok := r.(BranchruleIniter); ok {
			if err := init.InitRule(); err != nil {
				return fmt.Errorf("initializing branching rule %q: %w", r.Name(), err)
			}
		}
	}
	return nil
}

func (s *Solver) exitRules() {
	for _, r := range s.Branchrules() {
		if exit, ok := r.(BranchruleExiter); ok {
			if err := exit.ExitRule(); err != nil {
				s.log.Debug("exiting branching rule failed",
					zap.String("rule", r.Name()),
					zap.Error(err))
			}
		}
	}
}

func countTrue(in []bool) int {
	n := 0
	for _, v := range in {
		if v {
			n++
		}
	}
	return n
}
