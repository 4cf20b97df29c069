package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ilp "github.com/tju-lzg/gomilp"
)

// rulesCmd lists the built-in branching rules
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the available branching rules",
	Long: `List the branching rules built into the solver, ordered by priority.

The rule named with 'gomilp solve --rule' decides which fractional variable
each branch-and-bound node branches on.`,
	RunE: runRules,
}

// paramsCmd lists the registered solver parameters
var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List the solver parameters",
	Long:  `List the parameters that can be set with 'gomilp solve --param name=value'.`,
	RunE:  runParams,
}

func runRules(cmd *cobra.Command, args []string) error {
	solver := ilp.NewSolver()
	defer solver.Free()

	fmt.Printf("%-22s %9s %9s %10s  %s\n", "NAME", "PRIORITY", "MAXDEPTH", "MAXBDDIST", "DESCRIPTION")
	for _, r := range solver.Branchrules() {
		fmt.Printf("%-22s %9d %9d %10.1f  %s\n",
			r.Name(), r.Priority(), r.MaxDepth(), r.MaxBoundDist(), r.Description())
	}

	return nil
}

func runParams(cmd *cobra.Command, args []string) error {
	solver := ilp.NewSolver()
	defer solver.Free()

	for _, p := range solver.Params() {
		flag := ""
		if p.Advanced {
			flag = " [advanced]"
		}
		fmt.Printf("%s (%s, default %s)%s\n", p.Name, p.Type, p.Default, flag)
		fmt.Printf("    %s\n", p.Description)
	}

	return nil
}
