package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/solver"
	"dpllt/pkg/dpllt/textfmt"
)

func newExplainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <theory-file>",
		Short: "solve a theory file and print entailed literals, or an unsat core if assumptions conflict",
		Args:  cobra.ExactArgs(1),
		RunE:  runExplain,
	}
	cmd.Flags().IntSlice("assume", nil, "signed atom ids to assume before solving (negative = negated)")
	return cmd
}

func runExplain(cmd *cobra.Command, args []string) error {
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

	assumeIDs, _ := cmd.Flags().GetIntSlice("assume")
	markers := make([]kernel.Lit, 0, len(assumeIDs))
	for _, signed := range assumeIDs {
		lit := signedLit(signed)
		s.AddAssumption(lit)
		markers = append(markers, lit)
	}

	status := s.Solve(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), status.String())
	switch status {
	case kernel.SAT:
		for _, l := range s.Entailed() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", litString(l))
		}
	case kernel.UNSAT:
		for _, l := range s.UnsatCore(markers) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", litString(l))
		}
	}
	return nil
}

// signedLit turns a 1-based signed atom id from --assume into the
// kernel.Lit over an atom already minted by textfmt.Load, matching the
// signed-integer convention the theory file itself uses.
func signedLit(signed int) kernel.Lit {
	if signed < 0 {
		return kernel.MkLit(kernel.Atom(-signed-1), true)
	}
	return kernel.MkLit(kernel.Atom(signed-1), false)
}

func litString(l kernel.Lit) string {
	if l.Sign() {
		return fmt.Sprintf("-%d", l.Var()+1)
	}
	return fmt.Sprintf("%d", l.Var()+1)
}
