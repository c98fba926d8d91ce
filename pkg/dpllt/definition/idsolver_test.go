package definition

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/theory"
)

// TestUnfoundedSetLoopFormula grounds spec §8 scenario 6: rules a<-b,
// b<-c, c<-a, a<-x. With x false, the UFS {a,b,c} is detected and the
// loop formulas ¬a∨x, ¬b∨x, ¬c∨x are emitted, forcing a,b,c false.
func TestUnfoundedSetLoopFormula(t *testing.T) {
	k := kernel.NewKernel(1)
	a := k.NewAtom()
	b := k.NewAtom()
	c := k.NewAtom()
	x := k.NewAtom()

	id := NewIDSolver(k, Stable, false)
	id.AddRule(&Rule{Head: a, Body: []kernel.Lit{kernel.MkLit(b, false)}, Kind: Disj})
	id.AddRule(&Rule{Head: a, Body: []kernel.Lit{kernel.MkLit(x, false)}, Kind: Disj})
	id.AddRule(&Rule{Head: b, Body: []kernel.Lit{kernel.MkLit(c, false)}, Kind: Disj})
	id.AddRule(&Rule{Head: c, Body: []kernel.Lit{kernel.MkLit(a, false)}, Kind: Disj})
	id.Finalize()

	d := theory.New(k)
	d.Register(id)
	d.Finalize()

	k.AddClause([]kernel.Lit{kernel.MkLit(x, true)}) // assert not(x)
	status := k.Solve(d)

	require.Equal(t, kernel.SAT, status)
	require.Equal(t, kernel.LFalse, k.Value(a))
	require.Equal(t, kernel.LFalse, k.Value(b))
	require.Equal(t, kernel.LFalse, k.Value(c))
}

// TestUnitDefinitionCycleUnderStableIsUnsat grounds spec §8 scenario 1:
// rules a<-b, b<-a, clause a∨b. Under the default Stable-style direct
// engine (no external support ever appears), the cycle can never be
// justified, so every model attempting a∨b is eventually rejected.
func TestUnitDefinitionCycleUnderStableIsUnsat(t *testing.T) {
	k := kernel.NewKernel(1)
	a := k.NewAtom()
	b := k.NewAtom()

	id := NewIDSolver(k, Stable, false)
	id.AddRule(&Rule{Head: a, Body: []kernel.Lit{kernel.MkLit(b, false)}, Kind: Disj})
	id.AddRule(&Rule{Head: b, Body: []kernel.Lit{kernel.MkLit(a, false)}, Kind: Disj})
	id.Finalize()

	d := theory.New(k)
	d.Register(id)
	d.Finalize()

	k.AddClause([]kernel.Lit{kernel.MkLit(a, false), kernel.MkLit(b, false)})
	status := k.Solve(d)

	require.Equal(t, kernel.UNSAT, status)
}

// TestCheckWellFoundedRejectsMixedCycle grounds spec §4.7/§8's
// well-founded second pass against a genuinely mixed SCC: a<-not b,
// b<-not a, closed only through negative body literals, with no rule
// giving either atom support from outside the cycle. The direct
// engine only gates its UFS search on PurePositive (posAdj) classes,
// so it happily accepts a model making one of a,b true; the
// second-pass check must still flag it since neither atom has any
// well-founded derivation.
func TestCheckWellFoundedRejectsMixedCycle(t *testing.T) {
	k := kernel.NewKernel(1)
	a := k.NewAtom()
	b := k.NewAtom()

	id := NewIDSolver(k, WellFounded, true)
	id.AddRule(&Rule{Head: a, Body: []kernel.Lit{kernel.MkLit(b, true)}, Kind: Disj})
	id.AddRule(&Rule{Head: b, Body: []kernel.Lit{kernel.MkLit(a, true)}, Kind: Disj})
	id.Finalize()

	d := theory.New(k)
	d.Register(id)
	d.Finalize()

	k.AddClause([]kernel.Lit{kernel.MkLit(a, false), kernel.MkLit(b, false)}) // a v b
	status := k.Solve(d)
	require.Equal(t, kernel.SAT, status)

	violators := id.WellFoundedViolation()
	require.NotEmpty(t, violators, "neither a nor b has support outside the negation cycle")
	for _, v := range violators {
		require.Equal(t, kernel.LTrue, k.Value(v))
	}
}

func TestSCCClassificationMarksPureCycle(t *testing.T) {
	k := kernel.NewKernel(1)
	a := k.NewAtom()
	b := k.NewAtom()

	id := NewIDSolver(k, Stable, false)
	id.AddRule(&Rule{Head: a, Body: []kernel.Lit{kernel.MkLit(b, false)}, Kind: Disj})
	id.AddRule(&Rule{Head: b, Body: []kernel.Lit{kernel.MkLit(a, false)}, Kind: Disj})
	id.Finalize()

	require.Equal(t, PurePositive, id.state[a].class)
	require.Equal(t, PurePositive, id.state[b].class)
	require.Equal(t, id.state[a].sccID, id.state[b].sccID)
}
