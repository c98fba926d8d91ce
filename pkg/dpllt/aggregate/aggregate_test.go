package aggregate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dpllt/pkg/dpllt/weight"
)

func TestAddSetRejectsZeroWeightProduct(t *testing.T) {
	s := NewStore(weight.Fixed)
	_, err := s.AddSet(1, []WL{{Lit: MkLit(0, false), Weight: weight.Zero(weight.Fixed)}}, Prod)
	require.ErrorIs(t, err, ErrZeroWeight)
}

func TestAddSetRejectsNonPositiveWeightProduct(t *testing.T) {
	s := NewStore(weight.Fixed)
	_, err := s.AddSet(1, []WL{{Lit: MkLit(0, false), Weight: weight.FromInt64(weight.Fixed, -2)}}, Prod)
	require.ErrorIs(t, err, ErrNonPositiveWeight)
}

func TestAddSetRejectsDuplicateAtomInProduct(t *testing.T) {
	s := NewStore(weight.Fixed)
	one := weight.One(weight.Fixed)
	_, err := s.AddSet(1, []WL{
		{Lit: MkLit(0, false), Weight: one},
		{Lit: MkLit(0, true), Weight: one},
	}, Prod)
	require.ErrorIs(t, err, ErrDuplicateAtomInProduct)
}

func TestAddSetRejectsDuplicateSetID(t *testing.T) {
	s := NewStore(weight.Fixed)
	one := weight.One(weight.Fixed)
	_, err := s.AddSet(1, []WL{{Lit: MkLit(0, false), Weight: one}}, Card)
	require.NoError(t, err)
	_, err = s.AddSet(1, []WL{{Lit: MkLit(1, false), Weight: one}}, Card)
	require.ErrorIs(t, err, ErrDuplicateSetID)
}

func TestSetReduceMergesDuplicateOccurrences(t *testing.T) {
	s := NewStore(weight.Fixed)
	one := weight.One(weight.Fixed)
	setID, err := s.AddSet(1, []WL{
		{Lit: MkLit(0, false), Weight: one},
		{Lit: MkLit(0, false), Weight: one},
	}, Sum)
	require.NoError(t, err)
	n := NewNormalizer(s, 0.5)
	n.Run()
	set := s.Set(setID)
	require.NotNil(t, set)
	require.Len(t, set.WLs, 1)
	require.Equal(t, int64(2), set.WLs[0].Weight.Int64())
}

func TestSetReduceFoldsOppositeOccurrences(t *testing.T) {
	s := NewStore(weight.Fixed)
	three := weight.FromInt64(weight.Fixed, 3)
	one := weight.One(weight.Fixed)
	setID, err := s.AddSet(1, []WL{
		{Lit: MkLit(0, false), Weight: three},
		{Lit: MkLit(0, true), Weight: one},
	}, Sum)
	require.NoError(t, err)
	n := NewNormalizer(s, 0.5)
	n.Run()
	set := s.Set(setID)
	require.NotNil(t, set)
	require.Len(t, set.WLs, 1)
	require.Equal(t, int64(2), set.WLs[0].Weight.Int64())
	require.Equal(t, int64(1), set.Offset.Int64())
}

func TestCardTrivialZeroBoundEncodesAllFalse(t *testing.T) {
	s := NewStore(weight.Fixed)
	one := weight.One(weight.Fixed)
	setID, err := s.AddSet(1, []WL{
		{Lit: MkLit(0, false), Weight: one},
		{Lit: MkLit(1, false), Weight: one},
	}, Card)
	require.NoError(t, err)
	head := MkLit(2, false)
	_, err = s.AddAggregate(head, setID, weight.Zero(weight.Fixed), UB, Comp, 0)
	require.NoError(t, err)

	n := NewNormalizer(s, 0.5)
	results := n.Run()
	require.NotEmpty(t, results)
	found := false
	for _, r := range results {
		if r.Outcome == OutcomeEncoded {
			found = true
			require.NotEmpty(t, r.Clauses)
		}
	}
	require.True(t, found)
}

func TestEmptySetLBZeroHoldsTrivially(t *testing.T) {
	s := NewStore(weight.Fixed)
	setID, err := s.AddSet(1, []WL{{Lit: MkLit(0, false), Weight: weight.Zero(weight.Fixed)}}, Sum)
	require.NoError(t, err)
	head := MkLit(1, false)
	_, err = s.AddAggregate(head, setID, weight.Zero(weight.Fixed), LB, Comp, 0)
	require.NoError(t, err)

	n := NewNormalizer(s, 0.5)
	results := n.Run()
	var clause Clause
	for _, r := range results {
		if len(r.Clauses) > 0 {
			clause = r.Clauses[0]
		}
	}
	require.Equal(t, Clause{head}, clause)
}

// TestPWSelectedSplitsTwoSidedAggregate forces PW selection (via the
// test-only pwSelected override) over a COMP-semantics set and checks
// that splitTwoSided (step 10) actually runs: the original aggregate is
// demoted to a one-sided Impl and a second Impl aggregate with the
// opposite sign and negated head is installed alongside it.
func TestPWSelectedSplitsTwoSidedAggregate(t *testing.T) {
	s := NewStore(weight.Fixed)
	one := weight.One(weight.Fixed)
	setID, err := s.AddSet(1, []WL{
		{Lit: MkLit(0, false), Weight: one},
		{Lit: MkLit(1, false), Weight: one},
		{Lit: MkLit(2, false), Weight: one},
	}, Card)
	require.NoError(t, err)
	head := MkLit(3, false)
	_, err = s.AddAggregate(head, setID, weight.FromInt64(weight.Fixed, 2), UB, Comp, 0)
	require.NoError(t, err)

	n := NewNormalizer(s, 0.5)
	n.pwSelected = true
	n.Run()

	set := s.Set(setID)
	require.NotNil(t, set)
	require.Equal(t, StrategyPW, set.Strategy)
	require.Len(t, set.Aggregates, 2)

	var orig, split *Aggregate
	for _, aid := range set.Aggregates {
		a := s.Aggregate(aid)
		require.NotNil(t, a)
		if a.Head == head {
			orig = a
		} else {
			split = a
		}
	}
	require.NotNil(t, orig)
	require.NotNil(t, split)
	require.Equal(t, Impl, orig.Sem)
	require.Equal(t, UB, orig.Sign)
	require.Equal(t, Impl, split.Sem)
	require.Equal(t, LB, split.Sign)
	require.Equal(t, head.Not(), split.Head)
}

// TestHeadImplicationsChainsOrderedUBBounds checks step 9: two COMP
// aggregates over the same set with ordered UB bounds produce a binary
// clause chaining the tighter bound's head to the looser one's.
func TestHeadImplicationsChainsOrderedUBBounds(t *testing.T) {
	s := NewStore(weight.Fixed)
	one := weight.One(weight.Fixed)
	setID, err := s.AddSet(1, []WL{
		{Lit: MkLit(0, false), Weight: one},
		{Lit: MkLit(1, false), Weight: one},
		{Lit: MkLit(2, false), Weight: one},
	}, Sum)
	require.NoError(t, err)
	tight := MkLit(3, false)
	loose := MkLit(4, false)
	_, err = s.AddAggregate(tight, setID, weight.FromInt64(weight.Fixed, 1), UB, Comp, 0)
	require.NoError(t, err)
	_, err = s.AddAggregate(loose, setID, weight.FromInt64(weight.Fixed, 2), UB, Comp, 0)
	require.NoError(t, err)

	n := NewNormalizer(s, 0.5)
	results := n.Run()

	found := false
	for _, r := range results {
		for _, cl := range r.Clauses {
			if len(cl) == 2 && cl[0] == tight.Not() && cl[1] == loose {
				found = true
			}
		}
	}
	require.True(t, found, "expected a tight-head implies loose-head clause")
}

func TestMinToMaxFlipsSignAndNegatesWeights(t *testing.T) {
	s := NewStore(weight.Fixed)
	two := weight.FromInt64(weight.Fixed, 2)
	setID, err := s.AddSet(1, []WL{
		{Lit: MkLit(0, false), Weight: two},
		{Lit: MkLit(1, false), Weight: weight.FromInt64(weight.Fixed, 5)},
	}, Min)
	require.NoError(t, err)
	head := MkLit(2, false)
	_, err = s.AddAggregate(head, setID, two, UB, Comp, 0)
	require.NoError(t, err)
	head2 := MkLit(3, false)
	_, err = s.AddAggregate(head2, setID, weight.FromInt64(weight.Fixed, -5), UB, Comp, 0)
	require.NoError(t, err)

	n := NewNormalizer(s, 0.5)
	n.Run()
	set := s.Set(setID)
	require.NotNil(t, set)
	require.Equal(t, Max, set.Typ)
}
