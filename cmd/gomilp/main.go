package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gomilp",
	Short: "gomilp - a branch-and-bound solver for mixed integer linear programs",
	Long: `gomilp solves mixed integer linear programs with branch-and-bound over
simplex relaxations.

Models are described in YAML files; see 'gomilp solve --help' for the format.
The branching rule is pluggable: the default is vanilla full strong branching,
which probes every fractional variable in both directions before it picks one.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config = zap.NewDevelopmentConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose solver logging")

	solveCmd.Flags().StringVar(&ruleName, "rule", "", "Branching rule to use (see 'gomilp rules')")
	solveCmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent subproblem solvers (default: number of CPUs)")
	solveCmd.Flags().StringArrayVar(&paramFlags, "param", nil, "Set a solver parameter as name=value (repeatable)")
	solveCmd.Flags().BoolVar(&showScores, "scores", false, "Print the strong branching scores of the last branching decision")
	solveCmd.Flags().StringVar(&dotFile, "dot", "", "Write the branch-and-bound tree to this file in Graphviz DOT format")
	solveCmd.Flags().DurationVar(&solveTimeout, "timeout", 0, "Interrupt the search after this duration (0 disables)")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(paramsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
