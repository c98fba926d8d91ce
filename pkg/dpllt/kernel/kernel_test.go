package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// nullDispatcher has no theory propagators registered; used to exercise
// the pure-SAT path of the kernel in isolation.
type nullDispatcher struct{}

func (nullDispatcher) Propagate(Lit) *Conflict          { return nil }
func (nullDispatcher) PropagateEndOfQueue() *Conflict   { return nil }
func (nullDispatcher) Backtrack(int, Lit)               {}
func (nullDispatcher) Explain(Lit, TheoryToken) []Lit   { return nil }

func TestEmptyClauseIsUnsat(t *testing.T) {
	k := NewKernel(1)
	k.NewAtom()
	require.Equal(t, UNSAT, k.AddClause(nil))
	require.Equal(t, UNSAT, k.Solve(nullDispatcher{}))
}

func TestUnitPropagation(t *testing.T) {
	k := NewKernel(1)
	a := k.NewAtom()
	b := k.NewAtom()
	k.AddClause([]Lit{MkLit(a, false)})
	k.AddClause([]Lit{MkLit(a, true), MkLit(b, false)})
	status := k.Solve(nullDispatcher{})
	require.Equal(t, SAT, status)
	require.Equal(t, LTrue, k.Value(a))
	require.Equal(t, LTrue, k.Value(b))
}

func TestBasicUnsat(t *testing.T) {
	k := NewKernel(1)
	a := k.NewAtom()
	k.AddClause([]Lit{MkLit(a, false)})
	k.AddClause([]Lit{MkLit(a, true)})
	require.Equal(t, UNSAT, k.Solve(nullDispatcher{}))
}

func TestAllFourBinaryClausesUnsat(t *testing.T) {
	// (a v b), (a v not b), (not a v b), (not a v not b) is UNSAT and
	// needs a conflict and a learned clause to refute.
	k := NewKernel(7)
	a := k.NewAtom()
	b := k.NewAtom()
	la, lb := MkLit(a, false), MkLit(b, false)
	k.AddClause([]Lit{la, lb})
	k.AddClause([]Lit{la, lb.Not()})
	k.AddClause([]Lit{la.Not(), lb})
	k.AddClause([]Lit{la.Not(), lb.Not()})
	require.Equal(t, UNSAT, k.Solve(nullDispatcher{}))
}

func TestCardinalityOneSatisfiable(t *testing.T) {
	k := NewKernel(3)
	a := k.NewAtom()
	b := k.NewAtom()
	c := k.NewAtom()
	k.AddClause([]Lit{MkLit(a, false), MkLit(b, false), MkLit(c, false)})
	status := k.Solve(nullDispatcher{})
	require.Equal(t, SAT, status)
	model := k.Model()
	require.Len(t, model, 3)
	anyTrue := false
	for _, l := range model {
		if !l.Sign() {
			anyTrue = true
		}
	}
	require.True(t, anyTrue)
}

func TestEntailedAfterRootUnit(t *testing.T) {
	k := NewKernel(1)
	a := k.NewAtom()
	b := k.NewAtom()
	k.NewAtom()
	k.AddClause([]Lit{MkLit(a, false)})
	k.AddClause([]Lit{MkLit(a, true), MkLit(b, false)})
	k.Solve(nullDispatcher{})
	ent := k.Entailed()
	require.NotEmpty(t, ent)
}

func TestIdempotentSolveWithoutNewConstraints(t *testing.T) {
	k := NewKernel(42)
	a := k.NewAtom()
	k.AddClause([]Lit{MkLit(a, false)})
	s1 := k.Solve(nullDispatcher{})
	s2 := k.Solve(nullDispatcher{})
	require.Equal(t, s1, s2)
}
