package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	ilp "github.com/tju-lzg/gomilp"
)

var (
	ruleName     string
	workers      int
	paramFlags   []string
	showScores   bool
	dotFile      string
	solveTimeout time.Duration
)

// solveCmd solves a YAML model file
var solveCmd = &cobra.Command{
	Use:   "solve [model file]",
	Short: "Solve a MILP model from a YAML file",
	Long: `Solve a mixed integer linear program described in a YAML model file.

Example model:

  name: knapsack
  maximize: true
  variables:
    - {name: x, coefficient: 8, integer: true}
    - {name: y, coefficient: 11, integer: true}
  constraints:
    - {terms: {x: 5, y: 7}, op: "<=", rhs: 14}
    - {terms: {x: 1}, op: "<=", rhs: 1}
    - {terms: {y: 1}, op: "<=", rhs: 1}

The search runs vanilla full strong branching unless --rule selects another
branching rule. Solver parameters are set with repeated --param flags, for
example --param branching/fullstrong-vanilla/forcestrongbranch=false.`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func runSolve(cmd *cobra.Command, args []string) error {
	model, err := loadModel(args[0])
	if err != nil {
		return err
	}

	prob, vars := model.toProblem()

	opts := []ilp.Option{ilp.WithLogger(logger)}
	if ruleName != "" {
		opts = append(opts, ilp.WithBranchrule(ruleName))
	}
	if workers > 0 {
		opts = append(opts, ilp.WithWorkers(workers))
	}
	if dotFile != "" {
		opts = append(opts, ilp.WithTreeLog())
	}

	solver := ilp.NewSolver(opts...)
	for _, kv := range paramFlags {
		name, value, err := parseParamFlag(kv)
		if err != nil {
			return err
		}
		if err := solver.SetBoolParam(name, value); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if solveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, solveTimeout)
		defer cancel()
	}

	start := time.Now()
	soln, err := solver.Solve(ctx, prob)
	elapsed := time.Since(start).Round(time.Microsecond)
	stats := solver.Statistics()

	name := model.Name
	if name == "" {
		name = args[0]
	}

	fmt.Printf("%s: %d nodes, %d relaxations, %d strong branching calls (%d probe relaxations) in %s\n",
		name, stats.NNodes, stats.NLPs, stats.NStrongbranchCalls, stats.NStrongbranchLPs, elapsed)

	if err != nil {
		return err
	}

	fmt.Printf("objective: %g\n", soln.Z)
	for _, v := range vars {
		fmt.Printf("  %s = %g\n", v.Name, soln.ValueOf(prob, v))
	}

	if showScores {
		printScores(solver)
	}

	if dotFile != "" {
		if err := writeTreeDOT(solver, dotFile); err != nil {
			return err
		}
		fmt.Printf("wrote branch-and-bound tree to %s\n", dotFile)
	}

	return nil
}

// printScores reports the strong branching scores of the last full strong
// branching invocation, marking the unreliable ones.
func printScores(solver *ilp.Solver) {
	scores, valid := ilp.FullstrongVanillaScores(solver)
	if scores == nil {
		fmt.Println("no strong branching scores recorded; was the search run with the fullstrong-vanilla rule?")
		return
	}

	best := ilp.FullstrongVanillaBestCand(solver)
	fmt.Printf("strong branching scores of the last branching decision (%d candidates):\n", len(scores))
	for i, score := range scores {
		marker := " "
		if i == best {
			marker = "*"
		}
		reliability := "valid"
		if !valid[i] {
			reliability = "from cutoff or error"
		}
		switch {
		case math.IsInf(score, 1):
			fmt.Printf("  %s cand %d: score +Inf (%s)\n", marker, i, reliability)
		case math.IsInf(score, -1):
			fmt.Printf("  %s cand %d: not probed\n", marker, i)
		default:
			fmt.Printf("  %s cand %d: score %.6g (%s)\n", marker, i, score, reliability)
		}
	}
}

func writeTreeDOT(solver *ilp.Solver, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating DOT file: %w", err)
	}
	defer f.Close()

	if err := solver.TreeDOT(f); err != nil {
		return fmt.Errorf("writing DOT file: %w", err)
	}
	return nil
}

// parseParamFlag splits a --param name=value flag. All solver parameters are
// currently booleans.
func parseParamFlag(kv string) (string, bool, error) {
	name, raw, found := strings.Cut(kv, "=")
	if !found || name == "" {
		return "", false, fmt.Errorf("malformed --param %q: expected name=value", kv)
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return "", false, fmt.Errorf("malformed --param %q: %w", kv, err)
	}
	return name, value, nil
}
