// Command dpllt is the CLI front-end for the solver package: it wires
// config, logging, metrics, and the solver facade together behind three
// subcommands (solve, explain, round-trip), following the root-command
// plus AddCommand structure cobra-based CLIs in this pack use.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dpllt",
		Short: "dpllt is a DPLL(T) solver for clauses, aggregates, and inductive definitions",
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file (defaults applied when omitted)")
	root.PersistentFlags().Int("verbosity", 0, "log verbosity 0..10, overrides the config file's value")

	root.AddCommand(newSolveCmd())
	root.AddCommand(newExplainCmd())
	root.AddCommand(newRoundTripCmd())
	return root
}
