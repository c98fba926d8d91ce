package optimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dpllt/pkg/dpllt/kernel"
)

// noopDispatcher satisfies kernel.Dispatcher for pure-SAT optimization
// tests that never touch a theory.
type noopDispatcher struct{}

func (noopDispatcher) Propagate(lit kernel.Lit) *kernel.Conflict { return nil }
func (noopDispatcher) PropagateEndOfQueue() *kernel.Conflict     { return nil }
func (noopDispatcher) Backtrack(untilLevel int, decisionLit kernel.Lit) {}
func (noopDispatcher) Explain(lit kernel.Lit, token kernel.TheoryToken) []kernel.Lit { return nil }

// TestListObjectivePrefersEarlierLiteral builds a 3-literal preference
// list with no other constraints, so the optimum is lits[0] true.
func TestListObjectivePrefersEarlierLiteral(t *testing.T) {
	k := kernel.NewKernel(1)
	a, b, c := k.NewAtom(), k.NewAtom(), k.NewAtom()
	k.AddClause([]kernel.Lit{kernel.MkLit(a, false), kernel.MkLit(b, false), kernel.MkLit(c, false)})

	obj := &ListObjective{Lits: []kernel.Lit{
		kernel.MkLit(a, false), kernel.MkLit(b, false), kernel.MkLit(c, false),
	}}
	res := Minimize(k, noopDispatcher{}, obj)
	require.Equal(t, kernel.SAT, res.Status)
	require.Equal(t, 0, res.Value)
	require.True(t, litTrue(res.Model, kernel.MkLit(a, false)))
}

// TestSubsetObjectiveMinimizesCount forces at least one of three
// literals true and checks the optimum keeps exactly one true.
func TestSubsetObjectiveMinimizesCount(t *testing.T) {
	k := kernel.NewKernel(1)
	a, b, c := k.NewAtom(), k.NewAtom(), k.NewAtom()
	k.AddClause([]kernel.Lit{kernel.MkLit(a, false), kernel.MkLit(b, false), kernel.MkLit(c, false)})

	obj := &SubsetObjective{Lits: []kernel.Lit{
		kernel.MkLit(a, false), kernel.MkLit(b, false), kernel.MkLit(c, false),
	}}
	res := Minimize(k, noopDispatcher{}, obj)
	require.Equal(t, kernel.SAT, res.Status)
	require.Equal(t, 1, res.Value)
}

// TestVarObjectiveFindsFloor builds a 4-step order encoding (LEQ[k] =>
// LEQ[k+1]) with no lower bound constraint, so the optimum is LEQ[0].
func TestVarObjectiveFindsFloor(t *testing.T) {
	k := kernel.NewKernel(1)
	leq := make([]kernel.Atom, 4)
	for i := range leq {
		leq[i] = k.NewAtom()
	}
	for i := 0; i < len(leq)-1; i++ {
		// LEQ[i] => LEQ[i+1]
		k.AddClause([]kernel.Lit{kernel.MkLit(leq[i], true), kernel.MkLit(leq[i+1], false)})
	}
	k.AddClause([]kernel.Lit{kernel.MkLit(leq[len(leq)-1], false)}) // var is within range

	lits := make([]kernel.Lit, len(leq))
	for i, a := range leq {
		lits[i] = kernel.MkLit(a, false)
	}
	obj := &VarObjective{LEQ: lits}
	res := Minimize(k, noopDispatcher{}, obj)
	require.Equal(t, kernel.SAT, res.Status)
	require.Equal(t, 0, res.Value)
}

func TestMinimizeReportsUnsatWhenRootInfeasible(t *testing.T) {
	k := kernel.NewKernel(1)
	a := k.NewAtom()
	k.AddClause([]kernel.Lit{kernel.MkLit(a, false)})
	k.AddClause([]kernel.Lit{kernel.MkLit(a, true)})

	obj := &ListObjective{Lits: []kernel.Lit{kernel.MkLit(a, false)}}
	res := Minimize(k, noopDispatcher{}, obj)
	require.Equal(t, kernel.UNSAT, res.Status)
}
