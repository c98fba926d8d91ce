package aggregate

import (
	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/theory"
	"dpllt/pkg/dpllt/weight"
)

// explainCode tags why a literal was derived by the FW propagator, so
// Explain can reconstruct a minimal-enough reason by scanning the trail
// instead of storing a full clause eagerly for every derivation (spec
// §4.4's "compact code {HEADONLY, BASED_ON_CB, BASED_ON_PB, BASED_ON_BOTH}").
type explainCode int

const (
	codeHeadOnly explainCode = iota
	codeBasedOnCB
	codeBasedOnPB
	codeBasedOnBoth
)

type derivation struct {
	lit   kernel.Lit
	agg   AggID
	code  explainCode
	level int // decision level lit was derived at
}

// setState is the FW propagator's per-set mutable bookkeeping: the
// current certain-bound/possible-bound bracket and a per-level undo stack
// restoring both on backtrack, mirroring gokando's sum.go SumMin/SumMax
// bracket but maintained incrementally rather than recomputed from
// scratch on every call.
type setState struct {
	cb, pb    weight.Weight
	headsDone map[AggID]bool
	// each levelStack entry holds the (cb,pb) snapshot taken the first
	// time its level touched this set, so Backtrack can restore in O(1)
	// per level instead of O(|WLs|).
	levelStack []levelSnap
}

type levelSnap struct {
	level  int
	cb, pb weight.Weight
}

// FWPropagator implements theory.Propagator for every set assigned
// StrategyFW (spec §4.4).
type FWPropagator struct {
	store    *Store
	k        *kernel.Kernel
	states   map[SetID]*setState
	litIndex map[kernel.Lit][]setMember // kernel atom -> (set, WL index) occurrences
	reasons  map[kernel.Atom]derivation
	toKLit   func(Lit) kernel.Lit
	toALit   func(kernel.Lit) Lit
}

type setMember struct {
	set SetID
	idx int
}

// NewFWPropagator builds an FW propagator over every StrategyFW set in
// store. toKLit/toALit convert between the aggregate package's
// kernel-agnostic Lit and kernel.Lit, since package aggregate must not
// import package kernel's atom allocator directly (the solver facade owns
// that mapping, one-to-one by construction).
func NewFWPropagator(store *Store, k *kernel.Kernel, toKLit func(Lit) kernel.Lit, toALit func(kernel.Lit) Lit) *FWPropagator {
	p := &FWPropagator{
		store:    store,
		k:        k,
		states:   make(map[SetID]*setState),
		litIndex: make(map[kernel.Lit][]setMember),
		reasons:  make(map[kernel.Atom]derivation),
		toKLit:   toKLit,
		toALit:   toALit,
	}
	for _, set := range store.Sets() {
		if set.Strategy != StrategyFW {
			continue
		}
		st := &setState{cb: set.ESV, pb: set.ESV, headsDone: make(map[AggID]bool)}
		for _, wl := range set.WLs {
			pb, _ := set.Typ.Combine(st.pb, wl.Weight)
			st.pb = pb
		}
		p.states[set.ID] = st
		for i, wl := range set.WLs {
			kl := toKLit(wl.Lit)
			p.litIndex[kl] = append(p.litIndex[kl], setMember{set: set.ID, idx: i})
			p.litIndex[kl.Not()] = append(p.litIndex[kl.Not()], setMember{set: set.ID, idx: i})
		}
	}
	return p
}

func (p *FWPropagator) Name() string { return "aggregate-fw" }

// recordReason captures the derivation context for a literal notified via
// NotifySolverLazy, at the decision level it was derived at, so Explain
// can later rebuild its reason clause against the trail state that held
// at that moment rather than whatever later state Explain happens to run
// under (spec §4.1/§8's reason-clause invariant).
func (p *FWPropagator) recordReason(lit kernel.Lit, agg AggID, code explainCode) {
	p.reasons[lit.Var()] = derivation{lit: lit, agg: agg, code: code, level: p.k.DecisionLevel()}
}

func (p *FWPropagator) snapshotIfNeeded(st *setState, level int) {
	if len(st.levelStack) > 0 && st.levelStack[len(st.levelStack)-1].level == level {
		return
	}
	st.levelStack = append(st.levelStack, levelSnap{level: level, cb: st.cb, pb: st.pb})
}

// Propagate updates the CB/PB bracket for every set referencing lit, per
// spec §4.4: positive occurrence becoming true grows CB; negative
// occurrence becoming true shrinks PB.
func (p *FWPropagator) Propagate(ctx *theory.Context, lit kernel.Lit) *kernel.Conflict {
	members := p.litIndex[lit]
	if len(members) == 0 {
		return nil
	}
	level := p.k.DecisionLevel()
	for _, m := range members {
		set := p.store.Set(m.set)
		if set == nil {
			continue
		}
		st := p.states[m.set]
		p.snapshotIfNeeded(st, level)
		wl := set.WLs[m.idx]
		occursPositive := !p.toKLit(wl.Lit).Sign()
		becameTrue := lit == p.toKLit(wl.Lit)
		if becameTrue {
			if occursPositive {
				cb, err := set.Typ.Combine(st.cb, wl.Weight)
				if err == nil {
					st.cb = cb
				}
			}
		} else {
			// lit is the negation of the set occurrence becoming true,
			// i.e. the occurrence itself is now false: PB shrinks by
			// removing wl's contribution from the optimistic bracket.
			if occursPositive {
				st.pb = recomputePB(set, st, p)
			} else {
				st.cb = recomputeCBNeg(set, st, p)
			}
		}
	}
	return nil
}

// recomputePB and recomputeCBNeg fall back to a full rescan for the
// symmetric (negative-occurrence, MAX/MIN) cases, which are rare enough
// relative to the common positive-SUM/CARD path that incremental
// maintenance is not worth the bookkeeping; this mirrors gokando's
// sum.go, which always recomputes SumMin/SumMax from the live domain
// bounds rather than maintaining deltas.
func recomputePB(set *TypedSet, st *setState, p *FWPropagator) weight.Weight {
	pb := set.ESV
	for _, wl := range set.WLs {
		kl := p.toKLit(wl.Lit)
		occursPositive := !kl.Sign()
		v := p.k.LitValue(kl)
		if occursPositive {
			if v != kernel.LFalse {
				pb, _ = set.Typ.Combine(pb, wl.Weight)
			}
		}
	}
	return pb
}

func recomputeCBNeg(set *TypedSet, st *setState, p *FWPropagator) weight.Weight {
	cb := set.ESV
	for _, wl := range set.WLs {
		kl := p.toKLit(wl.Lit)
		occursPositive := !kl.Sign()
		if !occursPositive {
			v := p.k.LitValue(kl)
			if v == kernel.LTrue {
				cb, _ = set.Typ.Combine(cb, wl.Weight)
			}
		}
	}
	return cb
}

// PropagateEndOfQueue runs the per-aggregate bound checks of spec §4.4's
// end-of-queue table against every set's current CB/PB bracket.
func (p *FWPropagator) PropagateEndOfQueue(ctx *theory.Context) *kernel.Conflict {
	for _, set := range p.store.Sets() {
		if set.Strategy != StrategyFW {
			continue
		}
		st := p.states[set.ID]
		if st == nil {
			continue
		}
		for _, aid := range set.Aggregates {
			agg := p.store.Aggregate(aid)
			if agg == nil {
				continue
			}
			if conf := p.checkAggregate(ctx, set, st, agg); conf != nil {
				return conf
			}
		}
	}
	return nil
}

func (p *FWPropagator) checkAggregate(ctx *theory.Context, set *TypedSet, st *setState, agg *Aggregate) *kernel.Conflict {
	head := p.toKLit(agg.Head)
	headVal := p.k.LitValue(head)
	total := func(w weight.Weight) weight.Weight {
		s, _ := w.Add(set.Offset)
		return s
	}
	cb, pb := total(st.cb), total(st.pb)

	if agg.Sign == UB {
		if headVal == kernel.LTrue {
			if cb.Cmp(agg.Bound) > 0 {
				return &kernel.Conflict{Lits: p.headReason(agg, true)}
			}
			if pb.Cmp(agg.Bound) <= 0 {
				p.recordReason(head, agg.ID, codeBasedOnPB)
				ctx.NotifySolverLazy(head, int64(codeBasedOnPB))
			} else {
				p.propagateRemainingUB(ctx, set, st, agg, cb)
			}
		} else if headVal == kernel.LFalse {
			if pb.Cmp(agg.Bound) <= 0 {
				return &kernel.Conflict{Lits: p.headReason(agg, false)}
			}
		} else {
			if cb.Cmp(agg.Bound) > 0 {
				p.recordReason(head.Not(), agg.ID, codeBasedOnCB)
				ctx.NotifySolverLazy(head.Not(), int64(codeBasedOnCB))
			} else if pb.Cmp(agg.Bound) <= 0 && agg.Sem == Comp {
				p.recordReason(head, agg.ID, codeBasedOnPB)
				ctx.NotifySolverLazy(head, int64(codeBasedOnPB))
			}
		}
	} else { // LB
		if headVal == kernel.LTrue {
			if pb.Cmp(agg.Bound) < 0 {
				return &kernel.Conflict{Lits: p.headReason(agg, true)}
			}
			if cb.Cmp(agg.Bound) >= 0 {
				// already satisfied; nothing more to derive
			} else {
				p.propagateRemainingLB(ctx, set, st, agg, pb)
			}
		} else if headVal == kernel.LFalse {
			if cb.Cmp(agg.Bound) >= 0 {
				return &kernel.Conflict{Lits: p.headReason(agg, false)}
			}
		} else {
			if pb.Cmp(agg.Bound) < 0 {
				p.recordReason(head.Not(), agg.ID, codeBasedOnPB)
				ctx.NotifySolverLazy(head.Not(), int64(codeBasedOnPB))
			} else if cb.Cmp(agg.Bound) >= 0 && agg.Sem == Comp {
				p.recordReason(head, agg.ID, codeBasedOnCB)
				ctx.NotifySolverLazy(head, int64(codeBasedOnCB))
			}
		}
	}
	return nil
}

// propagateRemainingUB derives ¬lit for every unassigned positive
// occurrence whose weight would push CB past bound, per spec §4.4: "for
// all remaining wl with CB + w > bound: propagate ¬lit".
func (p *FWPropagator) propagateRemainingUB(ctx *theory.Context, set *TypedSet, st *setState, agg *Aggregate, cb weight.Weight) {
	for _, wl := range set.WLs {
		kl := p.toKLit(wl.Lit)
		if p.k.LitValue(kl) != kernel.LUndef {
			continue
		}
		if kl.Sign() {
			continue // only positive occurrences threaten a UB overflow
		}
		sum, err := cb.Add(wl.Weight)
		if err == nil && sum.Cmp(agg.Bound) > 0 {
			p.recordReason(kl.Not(), agg.ID, codeBasedOnCB)
			ctx.NotifySolverLazy(kl.Not(), int64(codeBasedOnCB))
		}
	}
}

// propagateRemainingLB derives lit for every unassigned positive
// occurrence whose absence would push PB below bound.
func (p *FWPropagator) propagateRemainingLB(ctx *theory.Context, set *TypedSet, st *setState, agg *Aggregate, pb weight.Weight) {
	for _, wl := range set.WLs {
		kl := p.toKLit(wl.Lit)
		if p.k.LitValue(kl) != kernel.LUndef {
			continue
		}
		if kl.Sign() {
			continue
		}
		diff, err := pb.Sub(wl.Weight)
		if err == nil && diff.Cmp(agg.Bound) < 0 {
			p.recordReason(kl, agg.ID, codeBasedOnPB)
			ctx.NotifySolverLazy(kl, int64(codeBasedOnPB))
		}
	}
}

// headReason builds a fallback eager reason clause for a head-level
// conflict: the head literal's negation plus every currently-assigned
// set literal that contributed to the decisive bound. This is the
// HEADONLY/BASED_ON_BOTH case of spec §4.4's explanation scheme,
// materialized eagerly here since a hard conflict must always carry a
// concrete clause back to the kernel.
func (p *FWPropagator) headReason(agg *Aggregate, headWasTrue bool) []kernel.Lit {
	set := p.store.Set(agg.Set)
	head := p.toKLit(agg.Head)
	var reason []kernel.Lit
	if headWasTrue {
		reason = append(reason, head.Not())
	} else {
		reason = append(reason, head)
	}
	for _, wl := range set.WLs {
		kl := p.toKLit(wl.Lit)
		if p.k.LitValue(kl) == kernel.LTrue {
			reason = append(reason, kl.Not())
		} else if p.k.LitValue(kl) == kernel.LFalse {
			reason = append(reason, kl)
		}
	}
	return reason
}

// Refresh recomputes a set's CB/PB bracket from scratch against the
// store's current WLs/ESV and the kernel's current assignment, discarding
// any level-snapshot history. Used by the optimization driver's AGG mode
// (spec §4.8) after Store.TightenBound mutates an aggregate's bound in
// place: the propagator's bracket itself does not depend on the bound, but
// a fresh root-level Solve after tightening still expects Backtrack(0, ...)
// semantics rather than a stale mid-search snapshot stack.
func (p *FWPropagator) Refresh(id SetID) {
	set := p.store.Set(id)
	if set == nil {
		return
	}
	st := &setState{cb: set.ESV, pb: set.ESV, headsDone: make(map[AggID]bool)}
	for _, wl := range set.WLs {
		kl := p.toKLit(wl.Lit)
		occursPositive := !kl.Sign()
		v := p.k.LitValue(kl)
		if occursPositive {
			if v != kernel.LFalse {
				pb, _ := set.Typ.Combine(st.pb, wl.Weight)
				st.pb = pb
			}
			if v == kernel.LTrue {
				cb, _ := set.Typ.Combine(st.cb, wl.Weight)
				st.cb = cb
			}
		} else {
			if v != kernel.LTrue {
				pb, _ := set.Typ.Combine(st.pb, wl.Weight)
				st.pb = pb
			}
		}
	}
	p.states[id] = st
}

// Backtrack restores each touched set's CB/PB bracket to the snapshot
// recorded at or below untilLevel.
func (p *FWPropagator) Backtrack(untilLevel int, decisionLit kernel.Lit) {
	for _, st := range p.states {
		for len(st.levelStack) > 0 && st.levelStack[len(st.levelStack)-1].level > untilLevel {
			top := st.levelStack[len(st.levelStack)-1]
			st.cb, st.pb = top.cb, top.pb
			st.levelStack = st.levelStack[:len(st.levelStack)-1]
		}
	}
}

// Explain reconstructs a reason clause for a literal this propagator
// derived lazily (spec §4.4's explanation contract; the reason is not
// subset-minimized by weight order). It always
// prefers the derivation recorded at propagation time by recordReason,
// since by the time analyze() calls Explain the trail may already have
// moved past the level lit was actually derived at — scanning current
// truth values unfiltered would then pull in literals that were not yet
// false when lit was implied, violating the reason-clause invariant.
func (p *FWPropagator) Explain(lit kernel.Lit, token kernel.TheoryToken) []kernel.Lit {
	if d, ok := p.reasons[lit.Var()]; ok {
		if agg := p.store.Aggregate(d.agg); agg != nil {
			return p.buildReason(lit, agg, d.level)
		}
	}
	return p.explainFromScan(lit)
}

// buildReason assembles lit's reason clause from agg's set, including
// only literals whose current decision level is at or below asLevel —
// the level lit was derived at — plus the head literal when lit is a
// set-member literal rather than the head itself.
func (p *FWPropagator) buildReason(lit kernel.Lit, agg *Aggregate, asLevel int) []kernel.Lit {
	set := p.store.Set(agg.Set)
	if set == nil {
		return []kernel.Lit{lit}
	}
	trail := p.k.Trail()
	reason := []kernel.Lit{lit}
	head := p.toKLit(agg.Head)
	if head != lit && head.Not() != lit && trail.Level(head.Var()) <= asLevel {
		switch p.k.LitValue(head) {
		case kernel.LTrue:
			reason = append(reason, head.Not())
		case kernel.LFalse:
			reason = append(reason, head)
		}
	}
	for _, wl := range set.WLs {
		kl := p.toKLit(wl.Lit)
		if kl == lit || kl.Not() == lit {
			continue
		}
		if trail.Level(kl.Var()) > asLevel {
			continue
		}
		switch p.k.LitValue(kl) {
		case kernel.LTrue:
			reason = append(reason, kl.Not())
		case kernel.LFalse:
			reason = append(reason, kl)
		}
	}
	return reason
}

// explainFromScan is the fallback path for a literal Explain is asked
// about without a recorded derivation (e.g. an eager reason box miss);
// it filters by lit's own current level since no earlier snapshot exists.
func (p *FWPropagator) explainFromScan(lit kernel.Lit) []kernel.Lit {
	targetLevel := p.k.Trail().Level(lit.Var())
	for _, set := range p.store.Sets() {
		if set.Strategy != StrategyFW {
			continue
		}
		for _, aid := range set.Aggregates {
			agg := p.store.Aggregate(aid)
			if agg == nil {
				continue
			}
			if p.toKLit(agg.Head) == lit || p.toKLit(agg.Head).Not() == lit {
				return p.buildReason(lit, agg, targetLevel)
			}
		}
	}
	return []kernel.Lit{lit}
}
