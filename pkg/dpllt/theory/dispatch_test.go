package theory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dpllt/pkg/dpllt/kernel"
)

// countingPropagator records how many times each hook fired and, once
// triggerAtom is assigned true, asserts forcedAtom (reusing the watching
// atom's negation as a cheap eager reason clause).
type countingPropagator struct {
	propagated int
	eoq        int
	backtracks int
	trigger    kernel.Atom
	forced     kernel.Atom
	fired      bool
}

func (p *countingPropagator) Name() string { return "counting" }

func (p *countingPropagator) Propagate(ctx *Context, lit kernel.Lit) *kernel.Conflict {
	p.propagated++
	if lit.Var() == p.trigger && !lit.Sign() && !p.fired {
		p.fired = true
		forced := kernel.MkLit(p.forced, false)
		ctx.NotifySolver(forced, []kernel.Lit{forced, kernel.MkLit(p.trigger, true)})
	}
	return nil
}

func (p *countingPropagator) PropagateEndOfQueue(ctx *Context) *kernel.Conflict {
	p.eoq++
	return nil
}

func (p *countingPropagator) Backtrack(untilLevel int, decisionLit kernel.Lit) {
	p.backtracks++
	p.fired = false
}

func (p *countingPropagator) Explain(lit kernel.Lit, token kernel.TheoryToken) []kernel.Lit {
	return nil
}

func TestDispatchForcesLiteralViaNotifySolver(t *testing.T) {
	k := kernel.NewKernel(1)
	trigger := k.NewAtom()
	forced := k.NewAtom()
	d := New(k)
	cp := &countingPropagator{trigger: trigger, forced: forced}
	d.Register(cp)
	d.Finalize()

	k.AddClause([]kernel.Lit{kernel.MkLit(trigger, false)})
	status := k.Solve(d)

	require.Equal(t, kernel.SAT, status)
	require.Equal(t, kernel.LTrue, k.Value(forced))
	require.Greater(t, cp.propagated, 0)
}

func TestDispatchConflictFromNotifySolver(t *testing.T) {
	k := kernel.NewKernel(1)
	trigger := k.NewAtom()
	forced := k.NewAtom()
	d := New(k)
	cp := &countingPropagator{trigger: trigger, forced: forced}
	d.Register(cp)
	d.Finalize()

	k.AddClause([]kernel.Lit{kernel.MkLit(trigger, false)})
	k.AddClause([]kernel.Lit{kernel.MkLit(forced, true)})
	status := k.Solve(d)

	require.Equal(t, kernel.UNSAT, status)
}

func TestDispatchRegisterAfterFinalizePanics(t *testing.T) {
	k := kernel.NewKernel(1)
	d := New(k)
	d.Finalize()
	require.Panics(t, func() {
		d.Register(&countingPropagator{})
	})
}
