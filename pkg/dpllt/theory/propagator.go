// Package theory implements the PCSolver-style fan-out dispatch that sits
// between the SAT kernel and every domain propagator (aggregates,
// definitions, and anything else registered against a solver instance).
// It is grounded on gokando's constraint_manager.go, which already fans a
// single "variable touched" notification out to every registered
// constraint in a fixed slice order; Dispatch generalizes that pattern to
// the kernel.Dispatcher contract (spec §4.1/§4.2).
package theory

import "dpllt/pkg/dpllt/kernel"

// Propagator is implemented by every domain module that wants to observe
// the trail and add clauses/propagate literals: aggregate.FWPropagator,
// aggregate.PWPropagator, definition.IDSolver, and any future theory.
type Propagator interface {
	// Name identifies the propagator for logging/metrics labeling.
	Name() string
	// Propagate is called once per literal freshly assigned true on the
	// trail, in the propagator's registration order. It may call
	// Context.NotifySolver any number of times and must return a
	// non-nil Conflict to halt the current propagation round.
	Propagate(ctx *Context, lit kernel.Lit) *kernel.Conflict
	// PropagateEndOfQueue runs once the shared SAT+theory queue has
	// drained with no pending conflict; used by propagators whose
	// fixpoint is cheaper to compute in a single batched pass (FW
	// aggregate bound recomputation, UFS search) rather than
	// incrementally per literal.
	PropagateEndOfQueue(ctx *Context) *kernel.Conflict
	// Backtrack undoes any propagator-private state recorded above
	// untilLevel. decisionLit is the literal about to be assigned next,
	// or kernel.LitUndef when unwinding all the way to the root.
	Backtrack(untilLevel int, decisionLit kernel.Lit)
	// Explain reconstructs the reason clause for a literal this
	// propagator propagated lazily via a TheoryToken, rather than
	// eagerly via NotifySolver's reason clause. The kernel only calls
	// this when conflict analysis actually resolves through the
	// literal (spec §4.1's "materialize reason clause on demand").
	Explain(lit kernel.Lit, token kernel.TheoryToken) []kernel.Lit
}

// Context is the callback surface handed to a Propagator during
// Propagate/PropagateEndOfQueue. It lets a propagator push derived
// literals back into the shared queue or signal a conflict, without
// holding a direct reference to *kernel.Kernel (keeping propagators
// ignorant of kernel internals beyond Lit/Atom/LBool, per spec §4.2).
type Context struct {
	d         *Dispatch
	propID    int
	conflict  *kernel.Conflict
}

// NotifySolver reports a derived literal p with an eager reason clause
// (the reason's first literal must be p itself). If p is already true on
// the trail this is a silent no-op; if p is false this immediately
// records reasonClause as the propagation conflict; otherwise p is
// enqueued as a theory-propagated literal (spec §4.2's notify_solver).
func (c *Context) NotifySolver(p kernel.Lit, reasonClause []kernel.Lit) {
	if c.conflict != nil {
		return
	}
	switch c.d.k.LitValue(p) {
	case kernel.LTrue:
		return
	case kernel.LFalse:
		c.conflict = &kernel.Conflict{Lits: append([]kernel.Lit(nil), reasonClause...)}
		return
	default:
		tok := kernel.TheoryToken{PropagatorID: c.propID, Payload: c.d.storeReason(reasonClause)}
		c.d.k.EnqueueTheory(p, tok)
	}
}

// NotifySolverLazy is identical to NotifySolver except the reason clause
// is computed lazily by the propagator's own Explain method, keyed by an
// opaque payload the propagator chooses (e.g. an aggregate index plus
// bound snapshot) instead of a precomputed clause. Callers must keep
// payload non-negative; Dispatch reserves negative payloads for its own
// eager-reason bookkeeping. This matches spec §4.2's distinction between
// eager and lazy theory reasons.
func (c *Context) NotifySolverLazy(p kernel.Lit, payload int64) {
	if c.conflict != nil {
		return
	}
	switch c.d.k.LitValue(p) {
	case kernel.LTrue:
		return
	case kernel.LFalse:
		if expl := c.d.propagators[c.propID].Explain(p, kernel.TheoryToken{PropagatorID: c.propID, Payload: payload}); expl != nil {
			c.conflict = &kernel.Conflict{Lits: expl}
		}
		return
	default:
		c.d.k.EnqueueTheory(p, kernel.TheoryToken{PropagatorID: c.propID, Payload: payload})
	}
}

// Conflict reports a direct conflict clause (every literal currently
// false), bypassing NotifySolver's derived-literal path. Used when a
// propagator detects its own bound is violated outright.
func (c *Context) Conflict(lits []kernel.Lit) {
	if c.conflict == nil {
		c.conflict = &kernel.Conflict{Lits: append([]kernel.Lit(nil), lits...)}
	}
}

// Kernel exposes read access to trail state so propagators can query
// current literal values without importing package kernel's internals
// beyond the shared Lit/Atom/LBool vocabulary.
func (c *Context) Kernel() *kernel.Kernel { return c.d.k }
