package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/solver"
	"dpllt/pkg/dpllt/textfmt"
)

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <theory-file>",
		Short: "solve a theory file and print its status and model",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	return cmd
}

func loadTheory(path string) (textfmt.Theory, error) {
	f, err := os.Open(path)
	if err != nil {
		return textfmt.Theory{}, errors.Wrapf(err, "dpllt: open %q", path)
	}
	defer f.Close()
	return textfmt.Parse(f)
}

func runSolve(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	theory, err := loadTheory(args[0])
	if err != nil {
		return err
	}

	s := solver.New(opts, log, newMonitor())
	if err := textfmt.Load(s, theory); err != nil {
		return err
	}

	status := s.Solve(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), status.String())
	if status == kernel.SAT {
		printModel(cmd, s.Model())
	}
	return nil
}

func printModel(cmd *cobra.Command, model []kernel.Lit) {
	for _, l := range model {
		sign := ""
		if l.Sign() {
			sign = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%d ", sign, l.Var())
	}
	fmt.Fprintln(cmd.OutOrStdout())
}
