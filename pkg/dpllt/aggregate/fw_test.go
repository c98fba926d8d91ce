package aggregate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/theory"
	"dpllt/pkg/dpllt/weight"
)

// toK/toA convert between the aggregate package's kernel-agnostic Lit and
// kernel.Lit under the identity atom mapping a standalone test can use
// directly; the solver facade owns a real mapping in the full module.
func toK(l Lit) kernel.Lit   { return kernel.MkLit(kernel.Atom(l.Var()), l.Sign()) }
func toA(l kernel.Lit) Lit   { return MkLit(uint32(l.Var()), l.Sign()) }

// TestCardinalityOneEquivalence grounds spec §8 scenario 2: set
// {(l1,1),(l2,1),(l3,1)}, aggregate h <-> CARD(S) >= 1. Asserting ¬h
// forces all three literals false; asserting h forces at least one true.
func TestCardinalityOneEquivalenceHeadFalse(t *testing.T) {
	k := kernel.NewKernel(1)
	l1, l2, l3 := k.NewAtom(), k.NewAtom(), k.NewAtom()
	h := k.NewAtom()

	store := NewStore(weight.Fixed)
	one := weight.One(weight.Fixed)
	setID, err := store.AddSet(1, []WL{
		{Lit: MkLit(uint32(l1), false), Weight: one},
		{Lit: MkLit(uint32(l2), false), Weight: one},
		{Lit: MkLit(uint32(l3), false), Weight: one},
	}, Card)
	require.NoError(t, err)
	_, err = store.AddAggregate(MkLit(uint32(h), false), setID, one, LB, Comp, 0)
	require.NoError(t, err)

	n := NewNormalizer(store, 0.5)
	n.Run()
	set := store.Set(setID)
	require.NotNil(t, set)
	set.Strategy = StrategyFW

	d := theory.New(k)
	fw := NewFWPropagator(store, k, toK, toA)
	d.Register(fw)
	d.Finalize()

	k.AddClause([]kernel.Lit{kernel.MkLit(h, true)}) // assert not(h)
	status := k.Solve(d)
	require.Equal(t, kernel.SAT, status)
	require.Equal(t, kernel.LFalse, k.Value(l1))
	require.Equal(t, kernel.LFalse, k.Value(l2))
	require.Equal(t, kernel.LFalse, k.Value(l3))
}

func TestCardinalityOneEquivalenceHeadTrue(t *testing.T) {
	k := kernel.NewKernel(1)
	l1, l2, l3 := k.NewAtom(), k.NewAtom(), k.NewAtom()
	h := k.NewAtom()

	store := NewStore(weight.Fixed)
	one := weight.One(weight.Fixed)
	setID, err := store.AddSet(1, []WL{
		{Lit: MkLit(uint32(l1), false), Weight: one},
		{Lit: MkLit(uint32(l2), false), Weight: one},
		{Lit: MkLit(uint32(l3), false), Weight: one},
	}, Card)
	require.NoError(t, err)
	_, err = store.AddAggregate(MkLit(uint32(h), false), setID, one, LB, Comp, 0)
	require.NoError(t, err)

	n := NewNormalizer(store, 0.5)
	n.Run()
	set := store.Set(setID)
	require.NotNil(t, set)
	set.Strategy = StrategyFW

	d := theory.New(k)
	fw := NewFWPropagator(store, k, toK, toA)
	d.Register(fw)
	d.Finalize()

	k.AddClause([]kernel.Lit{kernel.MkLit(h, false)}) // assert h
	k.AddClause([]kernel.Lit{kernel.MkLit(l1, true)})
	k.AddClause([]kernel.Lit{kernel.MkLit(l2, true)})
	status := k.Solve(d)
	require.Equal(t, kernel.SAT, status)
	require.Equal(t, kernel.LTrue, k.Value(l3))
}
