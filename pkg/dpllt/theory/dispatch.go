package theory

import "dpllt/pkg/dpllt/kernel"

// reasonBox stores eager reason clauses keyed by an opaque handle so
// TheoryToken.Payload stays a plain int rather than forcing every
// propagator to box a slice inside the token itself.
type reasonBox struct {
	clauses [][]kernel.Lit
}

// store records lits and returns a payload encoding for an eager reason:
// always negative, so Explain can tell an eager handle apart from a
// propagator-chosen lazy payload (which NotifySolverLazy callers keep
// non-negative by convention).
func (b *reasonBox) store(lits []kernel.Lit) int64 {
	b.clauses = append(b.clauses, append([]kernel.Lit(nil), lits...))
	return -(int64(len(b.clauses) - 1) + 1)
}

func (b *reasonBox) get(payload int64) ([]kernel.Lit, bool) {
	if payload >= 0 {
		return nil, false
	}
	id := int(-(payload + 1))
	if id < 0 || id >= len(b.clauses) {
		return nil, false
	}
	return b.clauses[id], true
}

// Dispatch implements kernel.Dispatcher by fanning every call out to a
// fixed, registration-ordered slice of Propagators, exactly as gokando's
// constraint_manager.go walks its registered constraint list on every
// variable binding. Registration order is fixed at Finalize time and
// never reshuffled mid-solve, satisfying spec §4.1's determinism
// requirement.
type Dispatch struct {
	k           *kernel.Kernel
	propagators []Propagator
	reasons     reasonBox
	finalized   bool
}

// New creates a Dispatch bound to k. Register propagators with Register,
// then call Finalize before the first Solve.
func New(k *kernel.Kernel) *Dispatch {
	return &Dispatch{k: k}
}

// Register appends a propagator to the dispatch order. Must be called
// before Finalize.
func (d *Dispatch) Register(p Propagator) {
	if d.finalized {
		panic("theory: Register called after Finalize")
	}
	d.propagators = append(d.propagators, p)
}

// Finalize locks the propagator registration order.
func (d *Dispatch) Finalize() { d.finalized = true }

// Propagators returns the registered propagators in dispatch order, for
// diagnostics and metrics labeling.
func (d *Dispatch) Propagators() []Propagator { return d.propagators }

func (d *Dispatch) storeReason(lits []kernel.Lit) int64 { return d.reasons.store(lits) }

// Propagate implements kernel.Dispatcher.
func (d *Dispatch) Propagate(lit kernel.Lit) *kernel.Conflict {
	for id, p := range d.propagators {
		ctx := &Context{d: d, propID: id}
		if conf := p.Propagate(ctx, lit); conf != nil {
			return conf
		}
		if ctx.conflict != nil {
			return ctx.conflict
		}
	}
	return nil
}

// PropagateEndOfQueue implements kernel.Dispatcher.
func (d *Dispatch) PropagateEndOfQueue() *kernel.Conflict {
	for id, p := range d.propagators {
		ctx := &Context{d: d, propID: id}
		if conf := p.PropagateEndOfQueue(ctx); conf != nil {
			return conf
		}
		if ctx.conflict != nil {
			return ctx.conflict
		}
	}
	return nil
}

// Backtrack implements kernel.Dispatcher.
func (d *Dispatch) Backtrack(untilLevel int, decisionLit kernel.Lit) {
	for _, p := range d.propagators {
		p.Backtrack(untilLevel, decisionLit)
	}
}

// Explain implements kernel.Dispatcher. token.Payload is either a reason
// handle stored by NotifySolver (eager path) or an opaque value the
// owning propagator interprets itself (lazy path via NotifySolverLazy);
// Dispatch tries the eager box first since it owns that namespace, and
// falls back to asking the propagator directly.
func (d *Dispatch) Explain(lit kernel.Lit, token kernel.TheoryToken) []kernel.Lit {
	if token.PropagatorID < 0 || token.PropagatorID >= len(d.propagators) {
		return nil
	}
	if clause, ok := d.reasons.get(token.Payload); ok {
		return clause
	}
	return d.propagators[token.PropagatorID].Explain(lit, token)
}
