package textfmt

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dpllt/pkg/dpllt/aggregate"
	"dpllt/pkg/dpllt/config"
	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/solver"
)

// TestRoundTripClausesAndAggregate grounds spec §8's round-trip property:
// serialize a small satisfiable cardinality theory, re-parse it, check the
// record counts survive, then solve the reparsed theory and expect SAT.
func TestRoundTripClausesAndAggregate(t *testing.T) {
	theory := Theory{
		NAtoms: 4, // 1,2,3 = set literals, 4 = head
		Clauses: [][]int{
			{4},  // head true
			{1},  // l1 true
			{-2}, // l2 false
			{-3}, // l3 false
		},
		Sets: []SetLine{
			{ID: 1, Type: aggregate.Card, Lits: []int{1, 2, 3}, Wts: []int64{1, 1, 1}},
		},
		Aggs: []AggLine{
			{Head: 4, SetID: 1, Bound: 1, Sign: aggregate.UB, Sem: aggregate.Comp, DefID: 0},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, theory))

	reparsed, err := Parse(&buf)
	require.NoError(t, err)
	require.Equal(t, theory.NAtoms, reparsed.NAtoms)
	require.Equal(t, len(theory.Clauses), len(reparsed.Clauses))
	require.Equal(t, len(theory.Sets), len(reparsed.Sets))
	require.Equal(t, len(theory.Aggs), len(reparsed.Aggs))

	opts := config.Default()
	opts.PBToCNF = false
	s := solver.New(opts, nil, nil)
	require.NoError(t, Load(s, reparsed))

	status := s.Solve(context.Background())
	require.Equal(t, kernel.SAT, status)
}

// TestRoundTripDetectsUnsat checks a theory whose head/set assignment
// violates the bound round-trips to the same UNSAT verdict.
func TestRoundTripDetectsUnsat(t *testing.T) {
	theory := Theory{
		NAtoms: 4,
		Clauses: [][]int{
			{4}, {1}, {2}, {3}, // head true, all three set literals true: CARD=3 > bound 1
		},
		Sets: []SetLine{
			{ID: 1, Type: aggregate.Card, Lits: []int{1, 2, 3}, Wts: []int64{1, 1, 1}},
		},
		Aggs: []AggLine{
			{Head: 4, SetID: 1, Bound: 1, Sign: aggregate.UB, Sem: aggregate.Comp, DefID: 0},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, theory))
	reparsed, err := Parse(&buf)
	require.NoError(t, err)

	opts := config.Default()
	opts.PBToCNF = false
	s := solver.New(opts, nil, nil)
	require.NoError(t, Load(s, reparsed))

	status := s.Solve(context.Background())
	require.Equal(t, kernel.UNSAT, status)
}

// TestParseRejectsMalformedLine checks the parser fails closed on garbage
// input instead of silently skipping it.
func TestParseRejectsMalformedLine(t *testing.T) {
	_, err := Parse(bytes.NewBufferString("x garbage\n"))
	require.Error(t, err)
}
