package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dpllt/pkg/dpllt/weight"
)

func TestCompileCardKOfNProducesChainClauses(t *testing.T) {
	s := NewStore(weight.Fixed)
	one := weight.One(weight.Fixed)
	wls := make([]WL, 20)
	for i := range wls {
		wls[i] = WL{Lit: MkLit(uint32(i), false), Weight: one}
	}
	setID, err := s.AddSet(1, wls, Card)
	require.NoError(t, err)
	head := MkLit(100, false)
	aggID, err := s.AddAggregate(head, setID, weight.FromInt64(weight.Fixed, 5), LB, Comp, 0)
	require.NoError(t, err)

	enc, err := Compile(context.Background(), s, s.Set(setID), s.Aggregate(aggID), PB2CNFOptions{Model: CostSumOfDigits, Workers: 2}, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, enc.Clauses)
	require.Greater(t, enc.NextAux, uint32(1000))
}

func TestCompileTooExpensiveReportsFailure(t *testing.T) {
	s := NewStore(weight.Fixed)
	wls := make([]WL, 5)
	for i := range wls {
		wls[i] = WL{Lit: MkLit(uint32(i), false), Weight: weight.FromInt64(weight.Fixed, 1000003)}
	}
	setID, err := s.AddSet(1, wls, Sum)
	require.NoError(t, err)
	head := MkLit(100, false)
	aggID, err := s.AddAggregate(head, setID, weight.FromInt64(weight.Fixed, 2000000), LB, Comp, 0)
	require.NoError(t, err)

	_, err = Compile(context.Background(), s, s.Set(setID), s.Aggregate(aggID), PB2CNFOptions{Model: CostCarryCount, Workers: 2, CostThreshold: 1}, 0)
	require.Error(t, err)
	var tooExpensive *ErrTooExpensive
	require.ErrorAs(t, err, &tooExpensive)
}

func TestCandidateBasesIncludesBinary(t *testing.T) {
	bases := candidateBases([]int64{1, 2, 4, 8})
	found := false
	for _, b := range bases {
		if len(b) == 1 && b[0] == 2 {
			found = true
		}
	}
	require.True(t, found)
}
