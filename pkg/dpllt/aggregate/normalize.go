package aggregate

import (
	"sort"

	"dpllt/pkg/dpllt/weight"
)

// Outcome reports what the normalization pipeline decided for one set,
// matching spec §4.3's "mutate, split, encode-and-remove, or mark
// always-true/UNSAT" outcomes.
type Outcome int

const (
	OutcomeKept Outcome = iota
	OutcomeAlwaysTrue
	OutcomeUnsat
	OutcomeEncoded
)

// Clause is a plain literal slice, used by pipeline steps that emit CNF
// directly (step 5 and step 8) without depending on package kernel.
type Clause []Lit

// Result carries what a single pipeline pass produced for a set: new
// clauses to install, a possible terminal Outcome, and the (possibly
// replaced) set id to continue iterating on next round.
type Result struct {
	SetID   SetID
	Clauses []Clause
	Outcome Outcome
}

// Normalizer runs the fixed-order transform pipeline of spec §4.3 to a
// fixed point, per set. watchesRatio selects FW vs PW for sets that
// survive to propagator form (spec §6's watches_ratio option).
type Normalizer struct {
	store        *Store
	watchesRatio float64
	pwSelected   bool // true forces PW regardless of ratio; used by tests
}

// NewNormalizer creates a Normalizer bound to store.
func NewNormalizer(store *Store, watchesRatio float64) *Normalizer {
	return &Normalizer{store: store, watchesRatio: watchesRatio}
}

// Run applies the pipeline to every set in the store until each reaches a
// fixed point, returning one Result per set that produced clauses or a
// terminal outcome. Per set the steps run in this order: Min->Max, set
// reduce, CARD<->SUM, card-trivial, Max-to-SAT, head implications, then
// strategy choice and the PW split. Partitioning by type, attaching the
// ESV and verifying PROD weights are not repeated here: Store.AddSet
// already does them when the set is added.
func (n *Normalizer) Run() []Result {
	var results []Result
	for _, set := range n.store.Sets() {
		results = append(results, n.normalizeSet(set)...)
	}
	return results
}

func (n *Normalizer) normalizeSet(set *TypedSet) []Result {
	var out []Result

	n.minToMax(set)
	if r, done := n.setReduce(set); done {
		out = append(out, r)
		return out
	}
	n.cardSumPromoteDemote(set)

	if r, done := n.cardTrivial(set); done {
		out = append(out, r)
		return out
	}
	if r, done := n.maxToSAT(set); done {
		out = append(out, r)
		return out
	}

	implied := n.headImplications(set)

	strategy := n.chooseStrategy(set)
	set.Strategy = strategy
	if strategy == StrategyPW {
		n.splitTwoSided(set)
	}
	out = append(out, Result{SetID: set.ID, Clauses: implied, Outcome: OutcomeKept})
	return out
}

// minToMax implements step 2: MIN sets are handled as MAX over negated
// weights and flipped bounds, so only one specialization needs
// implementing in the propagators (spec §4.3 step 2, §4.4's "MAX/MIN
// specialization").
func (n *Normalizer) minToMax(set *TypedSet) {
	if set.Typ != Min {
		return
	}
	for i := range set.WLs {
		set.WLs[i].Weight = set.WLs[i].Weight.Neg()
	}
	set.Typ = Max
	set.ESV = Max.ESV(n.store.mode)
	for _, aid := range set.Aggregates {
		agg := n.store.Aggregate(aid)
		if agg == nil {
			continue
		}
		agg.Bound = agg.Bound.Neg()
		if agg.Sign == UB {
			agg.Sign = LB
		} else {
			agg.Sign = UB
		}
	}
}

// setReduce implements step 6: sort by atom, merge duplicate occurrences
// via the type's combiner, fold (lit,w1)+(not lit,w2) pairs via the
// type's dual-sign handling, and drop weights equal to ESV (they cannot
// move the aggregate value). Returns a terminal Result if the set
// collapses to empty.
func (n *Normalizer) setReduce(set *TypedSet) (Result, bool) {
	sort.Slice(set.WLs, func(i, j int) bool {
		if set.WLs[i].Lit.Var() != set.WLs[j].Lit.Var() {
			return set.WLs[i].Lit.Var() < set.WLs[j].Lit.Var()
		}
		return !set.WLs[i].Lit.Sign() && set.WLs[j].Lit.Sign()
	})

	merged := make([]WL, 0, len(set.WLs))
	i := 0
	for i < len(set.WLs) {
		j := i
		posW, negW := weight.Zero(n.store.mode), weight.Zero(n.store.mode)
		hasPos, hasNeg := false, false
		v := set.WLs[i].Lit.Var()
		for j < len(set.WLs) && set.WLs[j].Lit.Var() == v {
			wl := set.WLs[j]
			if wl.Lit.Sign() {
				negW, _ = set.Typ.Combine(negW, wl.Weight)
				hasNeg = true
			} else {
				posW, _ = set.Typ.Combine(posW, wl.Weight)
				hasPos = true
			}
			j++
		}
		switch {
		case hasPos && hasNeg:
			// fold: min(posW,negW) becomes a constant offset (always
			// contributed), remainder stays as a single occurrence on
			// the side with the larger magnitude.
			if posW.Cmp(negW) >= 0 {
				diff, _ := posW.Sub(negW)
				set.Offset, _ = set.Offset.Add(negW)
				if diff.Sign() != 0 {
					merged = append(merged, WL{Lit: MkLit(v, false), Weight: diff})
				}
			} else {
				diff, _ := negW.Sub(posW)
				set.Offset, _ = set.Offset.Add(posW)
				if diff.Sign() != 0 {
					merged = append(merged, WL{Lit: MkLit(v, true), Weight: diff})
				}
			}
		case hasPos:
			if posW.Cmp(set.ESV) != 0 {
				merged = append(merged, WL{Lit: MkLit(v, false), Weight: posW})
			}
		case hasNeg:
			if negW.Cmp(set.ESV) != 0 {
				merged = append(merged, WL{Lit: MkLit(v, true), Weight: negW})
			}
		}
		i = j
	}
	set.WLs = merged
	if len(merged) == 0 {
		return n.emptySetOutcome(set), true
	}
	return Result{}, false
}

// emptySetOutcome implements the "empty set" boundary behavior of spec
// §8: empty set with LB bound <= 0 holds trivially; LB bound > 0 forces
// the head false; for UB the symmetric always-true/false applies.
func (n *Normalizer) emptySetOutcome(set *TypedSet) Result {
	var clauses []Clause
	for _, aid := range set.Aggregates {
		agg := n.store.Aggregate(aid)
		if agg == nil {
			continue
		}
		value := set.Offset
		holds := false
		if agg.Sign == LB {
			holds = value.Cmp(agg.Bound) >= 0
		} else {
			holds = value.Cmp(agg.Bound) <= 0
		}
		if holds {
			clauses = append(clauses, Clause{agg.Head})
		} else {
			clauses = append(clauses, Clause{agg.Head.Not()})
		}
		n.store.DeleteAggregate(aid)
	}
	n.store.DeleteSet(set.ID)
	return Result{SetID: set.ID, Clauses: clauses, Outcome: OutcomeEncoded}
}

// cardSumPromoteDemote implements step 7: a CARD set with non-unit
// weights is promoted to SUM; a SUM set whose every weight equals 1 (the
// CARD identity) is demoted to CARD so the cheaper specialized
// propagation path applies.
func (n *Normalizer) cardSumPromoteDemote(set *TypedSet) {
	one := weight.One(n.store.mode)
	switch set.Typ {
	case Card:
		for _, wl := range set.WLs {
			if wl.Weight.Cmp(one) != 0 {
				set.Typ = Sum
				return
			}
		}
	case Sum:
		for _, wl := range set.WLs {
			if wl.Weight.Cmp(one) != 0 {
				return
			}
		}
		set.Typ = Card
	}
}

// cardTrivial implements step 8: a COMP CARD aggregate with bound 0 (UB)
// is encoded as head <-> (every literal false) and removed; one with
// bound 1 (UB) over more than one literal gets head-guarded pairwise
// exclusion clauses and stays with the propagator. The clauses are
// returned only when at least one bound-0 aggregate was encoded away.
func (n *Normalizer) cardTrivial(set *TypedSet) (Result, bool) {
	if set.Typ != Card {
		return Result{}, false
	}
	var clauses []Clause
	remaining := set.Aggregates[:0]
	any := false
	for _, aid := range set.Aggregates {
		agg := n.store.Aggregate(aid)
		if agg == nil {
			continue
		}
		if agg.Sign != UB || agg.Sem != Comp {
			remaining = append(remaining, aid)
			continue
		}
		boundZero := agg.Bound.Sign() == 0
		boundOne := agg.Bound.Cmp(weight.One(n.store.mode)) == 0
		switch {
		case boundZero:
			// head <-> (0 true out of set) == head <-> AND(not lit)
			for _, wl := range set.WLs {
				clauses = append(clauses, Clause{agg.Head.Not(), wl.Lit.Not()})
			}
			disj := Clause{agg.Head}
			for _, wl := range set.WLs {
				disj = append(disj, wl.Lit)
			}
			clauses = append(clauses, disj)
			n.store.DeleteAggregate(aid)
			any = true
		case boundOne && len(set.WLs) > 1:
			// head -> (at most one true): emit head-guarded pairwise
			// exclusion; the aggregate is kept, so the propagator still
			// covers the converse direction.
			for i := 0; i < len(set.WLs); i++ {
				for j := i + 1; j < len(set.WLs); j++ {
					clauses = append(clauses, Clause{agg.Head.Not(), set.WLs[i].Lit.Not(), set.WLs[j].Lit.Not()})
				}
			}
			remaining = append(remaining, aid)
		default:
			remaining = append(remaining, aid)
		}
	}
	set.Aggregates = remaining
	if !any {
		return Result{}, false
	}
	if len(set.Aggregates) == 0 {
		n.store.DeleteSet(set.ID)
	}
	return Result{SetID: set.ID, Clauses: clauses, Outcome: OutcomeEncoded}, len(clauses) > 0 && len(set.Aggregates) == 0
}

// maxToSAT implements step 5: a single-aggregate MAX set is cheaper as a
// direct clausal encoding than as a propagator, since `MAX(S) <= b` and
// `MAX(S) >= b` both reduce to a disjunction/conjunction over a fixed
// weight threshold.
func (n *Normalizer) maxToSAT(set *TypedSet) (Result, bool) {
	if set.Typ != Max || len(set.Aggregates) != 1 {
		return Result{}, false
	}
	agg := n.store.Aggregate(set.Aggregates[0])
	if agg == nil || agg.Sem != Comp {
		return Result{}, false
	}
	var clauses []Clause
	if agg.Sign == UB {
		// h <-> exists wl with w >= b : lit
		disj := Clause{agg.Head.Not()}
		for _, wl := range set.WLs {
			if wl.Weight.Cmp(agg.Bound) >= 0 {
				clauses = append(clauses, Clause{agg.Head, wl.Lit.Not()})
				disj = append(disj, wl.Lit)
			}
		}
		clauses = append(clauses, disj)
	} else {
		// h <-> forall wl with w > b : not lit
		disj := Clause{agg.Head}
		for _, wl := range set.WLs {
			if wl.Weight.Cmp(agg.Bound) > 0 {
				clauses = append(clauses, Clause{agg.Head.Not(), wl.Lit.Not()})
				disj = append(disj, wl.Lit)
			}
		}
		clauses = append(clauses, disj)
	}
	n.store.DeleteAggregate(agg.ID)
	n.store.DeleteSet(set.ID)
	return Result{SetID: set.ID, Clauses: clauses, Outcome: OutcomeEncoded}, true
}

// headImplications implements step 9: when several COMP-semantics
// aggregates over the same set have ordered bounds, the weaker
// aggregate's head is implied by the stronger one's, giving the
// propagator early derivations without waiting on CB/PB to move. Emitted
// as plain binary clauses, installed the same way every other pipeline
// step's clauses are (Finalize adds every Result.Clauses entry
// regardless of Outcome). Only Sem==Comp aggregates qualify: the
// head_i -> head_j direction needs head_i -> condition_i (true for
// Impl and Comp both) chained with condition_j -> head_j, which only
// Comp's full biconditional guarantees.
func (n *Normalizer) headImplications(set *TypedSet) []Clause {
	if len(set.Aggregates) < 2 {
		return nil
	}
	var ub, lb []*Aggregate
	for _, aid := range set.Aggregates {
		a := n.store.Aggregate(aid)
		if a == nil || a.Sem != Comp {
			continue
		}
		if a.Sign == UB {
			ub = append(ub, a)
		} else {
			lb = append(lb, a)
		}
	}
	sort.Slice(ub, func(i, j int) bool { return ub[i].Bound.Cmp(ub[j].Bound) < 0 })
	sort.Slice(lb, func(i, j int) bool { return lb[i].Bound.Cmp(lb[j].Bound) < 0 })

	var clauses []Clause
	// Smaller UB bound implies every larger UB bound's head, since a
	// value satisfying the tighter bound also satisfies the looser one.
	for i := 0; i+1 < len(ub); i++ {
		clauses = append(clauses, Clause{ub[i].Head.Not(), ub[i+1].Head})
	}
	// Larger LB bound implies every smaller LB bound's head, since a
	// value satisfying the stricter lower bound also satisfies the
	// laxer one.
	for i := 0; i+1 < len(lb); i++ {
		clauses = append(clauses, Clause{lb[i+1].Head.Not(), lb[i].Head})
	}
	return clauses
}

// chooseStrategy implements the watches_ratio-driven FW/PW selection
// (spec §6's watches_ratio option): PW is chosen when the set is large
// relative to the number of aggregates referencing it, regardless of
// whether a referencing aggregate is one-sided (Impl) or two-sided
// (Comp) — a two-sided aggregate selected for PW is split into its two
// one-sided halves by splitTwoSided below (step 10), since PW watches
// only ever certify one direction of slack at a time (spec §4.5). Ties
// prefer FW (decided in DESIGN.md).
func (n *Normalizer) chooseStrategy(set *TypedSet) Strategy {
	if n.pwSelected {
		return StrategyPW
	}
	ratio := float64(len(set.Aggregates)) / float64(max(1, len(set.WLs)))
	if ratio < n.watchesRatio {
		return StrategyPW
	}
	return StrategyFW
}

// splitTwoSided implements step 10: under the PW scheme, a two-sided
// (COMP) aggregate is split into two one-sided IMPLICATION aggregates
// sharing the same set, since PW watches only ever certify one direction
// of slack at a time (spec §4.5).
func (n *Normalizer) splitTwoSided(set *TypedSet) {
	for _, aid := range append([]AggID(nil), set.Aggregates...) {
		agg := n.store.Aggregate(aid)
		if agg == nil || agg.Sem != Comp {
			continue
		}
		agg.Sem = Impl
		opp := Sign(UB)
		if agg.Sign == UB {
			opp = LB
		}
		newID, _ := n.store.AddAggregate(agg.Head.Not(), set.ID, agg.Bound, opp, Impl, agg.DefID)
		_ = newID
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
