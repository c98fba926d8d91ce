package aggregate

import (
	"sort"

	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/theory"
	"dpllt/pkg/dpllt/weight"
)

// pwWatch is one generalized watch: a position into a set's weight-sorted
// WL order. PWPropagator keeps the smallest prefix of watches whose
// combined slack still leaves the aggregate's bound undecided, lazily
// growing/shrinking that prefix as literals are assigned — the same
// lazy-replacement-on-invocation approach gokando's fd_regin.go uses for
// Régin's bipartite-matching watch maintenance, adapted here from
// variable-domain supports to weighted-literal slack (spec §4.5).
type pwWatch struct {
	order   []int // indices into set.WLs sorted by descending weight
	watched int    // number of leading entries in order currently watched
}

type pwAggState struct {
	watch pwWatch
}

// PWPropagator implements theory.Propagator for every StrategyPW set,
// restricted to the one-sided IMPLICATION aggregates the normalizer's
// step 10 split produces (spec §4.5).
type PWPropagator struct {
	store  *Store
	k      *kernel.Kernel
	states map[AggID]*pwAggState
	byLit  map[kernel.Lit][]AggID
	toKLit func(Lit) kernel.Lit
	// levels records the decision level each lazily-derived literal was
	// notified at, so Explain can filter its watched-literal scan against
	// the trail state that held at that moment rather than whatever later
	// state Explain happens to run under (spec §4.1/§8's reason-clause
	// invariant).
	levels map[kernel.Atom]int
}

// NewPWPropagator builds a PW propagator over every StrategyPW set.
func NewPWPropagator(store *Store, k *kernel.Kernel, toKLit func(Lit) kernel.Lit) *PWPropagator {
	p := &PWPropagator{
		store:  store,
		k:      k,
		states: make(map[AggID]*pwAggState),
		byLit:  make(map[kernel.Lit][]AggID),
		toKLit: toKLit,
		levels: make(map[kernel.Atom]int),
	}
	for _, set := range store.Sets() {
		if set.Strategy != StrategyPW {
			continue
		}
		order := make([]int, len(set.WLs))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool {
			return set.WLs[order[i]].Weight.Cmp(set.WLs[order[j]].Weight) > 0
		})
		for _, aid := range set.Aggregates {
			agg := store.Aggregate(aid)
			if agg == nil || agg.Sem != Impl {
				continue
			}
			st := &pwAggState{watch: pwWatch{order: order}}
			p.states[aid] = st
			p.growWatches(set, agg, st)
			for _, idx := range st.watch.order[:st.watch.watched] {
				kl := toKLit(set.WLs[idx].Lit)
				p.byLit[kl] = append(p.byLit[kl], aid)
				p.byLit[kl.Not()] = append(p.byLit[kl.Not()], aid)
			}
			p.byLit[toKLit(agg.Head)] = append(p.byLit[toKLit(agg.Head)], aid)
			p.byLit[toKLit(agg.Head).Not()] = append(p.byLit[toKLit(agg.Head).Not()], aid)
		}
	}
	return p
}

// growWatches extends the watched prefix until the remaining slack
// (unwatched weight not yet accounted for) can no longer flip the
// aggregate's decision on its own, per spec §4.5's "minimum needed so
// that if any watch's literal becomes assigned wrongly, either the
// complement of an unwatched literal is forced, or the head is forced".
func (p *PWPropagator) growWatches(set *TypedSet, agg *Aggregate, st *pwAggState) {
	slack := set.ESV
	st.watch.watched = 0
	for st.watch.watched < len(st.watch.order) {
		if p.slackDecisive(set, agg, slack) {
			return
		}
		idx := st.watch.order[st.watch.watched]
		slack, _ = set.Typ.Combine(slack, set.WLs[idx].Weight)
		st.watch.watched++
	}
}

// slackDecisive reports whether the aggregate's bound predicate is
// already forced true/false given only the watched slack accumulated so
// far, ignoring every unwatched literal's potential contribution.
func (p *PWPropagator) slackDecisive(set *TypedSet, agg *Aggregate, slack weight.Weight) bool {
	if agg.Sign == UB {
		return slack.Cmp(agg.Bound) > 0
	}
	return slack.Cmp(agg.Bound) >= 0
}

func (p *PWPropagator) Name() string { return "aggregate-pw" }

// Propagate re-evaluates watches touching lit: if the watched prefix's
// accumulated weight now crosses the aggregate's threshold, the head (or
// the complementary unwatched literal) is derived; otherwise the
// propagator lazily grows the watch set by one more candidate in weight
// order, per spec §4.5's "replacement performed lazily on each watch
// invocation".
func (p *PWPropagator) Propagate(ctx *theory.Context, lit kernel.Lit) *kernel.Conflict {
	for _, aid := range p.byLit[lit] {
		agg := p.store.Aggregate(aid)
		if agg == nil {
			continue
		}
		set := p.store.Set(agg.Set)
		if set == nil {
			continue
		}
		st := p.states[aid]
		watched := set.ESV
		for _, idx := range st.watch.order[:st.watch.watched] {
			kl := p.toKLit(set.WLs[idx].Lit)
			if p.k.LitValue(kl) == kernel.LTrue {
				watched, _ = set.Typ.Combine(watched, set.WLs[idx].Weight)
			}
		}
		head := p.toKLit(agg.Head)
		if p.slackDecisive(set, agg, watched) {
			level := p.k.DecisionLevel()
			if agg.Sign == UB {
				p.levels[head.Not().Var()] = level
				ctx.NotifySolverLazy(head.Not(), int64(aid))
			} else {
				p.levels[head.Var()] = level
				ctx.NotifySolverLazy(head, int64(aid))
			}
			continue
		}
		if st.watch.watched < len(st.watch.order) {
			st.watch.watched++
			idx := st.watch.order[st.watch.watched-1]
			kl := p.toKLit(set.WLs[idx].Lit)
			p.byLit[kl] = append(p.byLit[kl], aid)
			p.byLit[kl.Not()] = append(p.byLit[kl.Not()], aid)
		}
	}
	return nil
}

// PropagateEndOfQueue is a no-op: PW derives eagerly per-literal rather
// than batching, since its watch set is already sized to the minimum
// needed for immediate decisiveness (spec §4.5).
func (p *PWPropagator) PropagateEndOfQueue(ctx *theory.Context) *kernel.Conflict { return nil }

// Backtrack is a no-op: watch sets are neither restored nor shrunk on
// backtrack, so a watch added during search stays watched afterwards.
// This keeps Backtrack O(1) rather than O(|WLs|) per aggregate.
func (p *PWPropagator) Backtrack(untilLevel int, decisionLit kernel.Lit) {}

// Explain traverses the watched literals in weight order, including
// negations of those whose contribution was required to reach the
// threshold that caused propagation (spec §4.5). Only literals assigned
// at or below the level lit was actually derived at are included: the
// watch set can grow further (in Propagate) between lit's derivation and
// the point analyze() calls Explain, and an unfiltered scan would then
// pull in literals that were still undef at lit's own assignment point.
func (p *PWPropagator) Explain(lit kernel.Lit, token kernel.TheoryToken) []kernel.Lit {
	aid := AggID(token.Payload)
	agg := p.store.Aggregate(aid)
	if agg == nil {
		return []kernel.Lit{lit}
	}
	set := p.store.Set(agg.Set)
	st := p.states[aid]
	asLevel, ok := p.levels[lit.Var()]
	if !ok {
		asLevel = p.k.Trail().Level(lit.Var())
	}
	trail := p.k.Trail()
	reason := []kernel.Lit{lit}
	for _, idx := range st.watch.order[:st.watch.watched] {
		kl := p.toKLit(set.WLs[idx].Lit)
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
