// Package solver is the top-level facade wiring kernel, theory, aggregate,
// definition, optimize, and modal into the spec §6 constraint-addition and
// solution-extraction API. It owns the one piece every other package
// deliberately avoids owning: the kernel.Atom <-> aggregate.Lit mapping,
// built one-to-one by construction since every atom the aggregate engine
// ever references was minted through this Solver's own NewAtom.
package solver

import (
	"context"

	"go.uber.org/zap"

	"dpllt/pkg/dpllt/aggregate"
	"dpllt/pkg/dpllt/config"
	"dpllt/pkg/dpllt/definition"
	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/logging"
	"dpllt/pkg/dpllt/metrics"
	"dpllt/pkg/dpllt/modal"
	"dpllt/pkg/dpllt/optimize"
	"dpllt/pkg/dpllt/theory"
	"dpllt/pkg/dpllt/weight"
)

// toKLit/toALit convert between the aggregate package's kernel-agnostic
// Lit and kernel.Lit. Both pack (atom-index, sign) into the low bit the
// same way, so the conversion is a straight re-pack rather than a lookup.
func toKLit(l aggregate.Lit) kernel.Lit { return kernel.MkLit(kernel.Atom(l.Var()), l.Sign()) }
func toALit(l kernel.Lit) aggregate.Lit { return aggregate.MkLit(uint32(l.Var()), l.Sign()) }

// Solver is the facade spec §6 describes: one Kernel, its registered
// theories, and the buffered constraint stores that get finalized into
// propagators on the first Solve call.
type Solver struct {
	opts config.Options
	log  *zap.Logger
	mon  *metrics.MetricsMonitor

	k        *kernel.Kernel
	aggStore *aggregate.Store
	defStore *definition.IDSolver
	hasRules bool

	dispatch  *theory.Dispatch
	fw        *aggregate.FWPropagator
	pw        *aggregate.PWPropagator
	modalRoot []*modal.Node

	objective      optimize.Objective
	symmetryPairs  []symPair
	finalized      bool
	rootUNSAT      bool
}

type symPair struct {
	a, b kernel.Lit
}

// New creates a Solver over a fresh Kernel, applying opts' random seed and
// polarity policy to the default VSIDS heuristic exactly as spec §6
// describes, and installing a MetricsMonitor as the kernel's Monitor when
// mon is non-nil.
func New(opts config.Options, log *zap.Logger, mon *metrics.MetricsMonitor) *Solver {
	log = logging.Safe(log)
	k := kernel.NewKernel(opts.RandomSeed)
	h := kernel.NewVSIDSHeuristic(k)
	h.SetPolarityMode(polarityMode(opts.Polarity))
	k.SetHeuristic(h)
	if mon != nil {
		k.SetMonitor(mon)
	}
	return &Solver{
		opts:     opts,
		log:      log,
		mon:      mon,
		k:        k,
		aggStore: aggregate.NewStore(opts.WeightMode),
		defStore: definition.NewIDSolver(k, defSemantics(opts.DefSemantics), opts.CheckWellFounded),
	}
}

func polarityMode(p config.Polarity) kernel.PolarityMode {
	switch p {
	case config.PolarityTrue:
		return kernel.PolarityTrue
	case config.PolarityFalse:
		return kernel.PolarityFalse
	case config.PolarityRand:
		return kernel.PolarityRandom
	default:
		return kernel.PolarityStored
	}
}

func defSemantics(d config.DefSemantics) definition.Semantics {
	switch d {
	case config.DefWellFounded:
		return definition.WellFounded
	case config.DefCompletion:
		return definition.Completion
	default:
		return definition.Stable
	}
}

// NewAtom mints a fresh atom, delegating to the kernel (spec §3's atom
// allocator has no aggregate/definition-specific variant).
func (s *Solver) NewAtom() kernel.Atom { return s.k.NewAtom() }

// AddClause implements `add_clause` (spec §6).
func (s *Solver) AddClause(lits []kernel.Lit) kernel.Status {
	st := s.k.AddClause(lits)
	if st == kernel.UNSAT {
		s.rootUNSAT = true
	}
	return st
}

// AddRule implements `add_rule` (spec §6): installs a rule into the
// definition engine, buffering it until Finalize.
func (s *Solver) AddRule(head kernel.Atom, body []kernel.Lit, conjunctive bool, defID int) {
	kind := definition.Disj
	if conjunctive {
		kind = definition.Conj
	}
	s.defStore.AddRule(&definition.Rule{Head: head, Body: body, Kind: kind, DefID: defID})
	s.hasRules = true
}

// AddAggrRule installs an AGGR-kind rule (spec §4.7's "for AGGR, delegate
// to the aggregate engine's canJustifyHead"). The head's support check
// only tests that aggregate id still exists in the store; it does not
// consult the aggregate's current bounds or the assignment.
func (s *Solver) AddAggrRule(head kernel.Atom, aggID aggregate.AggID, defID int) {
	s.defStore.AddRule(&definition.Rule{
		Head:  head,
		Kind:  definition.Aggr,
		DefID: defID,
		AggCanJustify: func(supportingBody []kernel.Lit) bool {
			agg := s.aggStore.Aggregate(aggID)
			return agg != nil
		},
	})
	s.hasRules = true
}

// WL is a caller-facing weighted literal using kernel.Lit, converted to
// the aggregate package's Lit internally.
type WL struct {
	Lit    kernel.Lit
	Weight weight.Weight
}

// AddSet implements `add_set` (spec §6).
func (s *Solver) AddSet(externalID int, wls []WL, typ aggregate.Type) (aggregate.SetID, error) {
	conv := make([]aggregate.WL, len(wls))
	for i, wl := range wls {
		conv[i] = aggregate.WL{Lit: toALit(wl.Lit), Weight: wl.Weight}
	}
	return s.aggStore.AddSet(externalID, conv, typ)
}

// AddAggregate implements `add_aggregate` (spec §6).
func (s *Solver) AddAggregate(head kernel.Lit, setID int, bound weight.Weight, sign aggregate.Sign, sem aggregate.Semantics, defID int) (aggregate.AggID, error) {
	set, ok := s.aggStore.ResolveSet(setID)
	if !ok {
		return 0, errUnknownSet(setID)
	}
	return s.aggStore.AddAggregate(toALit(head), set, bound, sign, sem, defID)
}

// AddAssumption implements `add_assumption` (spec §6).
func (s *Solver) AddAssumption(lit kernel.Lit) { s.k.Assume(lit) }

// AddSymmetry implements `add_symmetry` (spec §6): registers a literal
// pair as symmetric, consumed by the symmetry-breaking decision heuristic
// installed at Finalize time (SUPPLEMENTED FEATURES: "symmetry-breaking
// literal maps").
func (s *Solver) AddSymmetry(a, b kernel.Lit) {
	s.symmetryPairs = append(s.symmetryPairs, symPair{a: a, b: b})
}

// AddMinimizeList configures spec §4.8's LIST optimization mode.
func (s *Solver) AddMinimizeList(lits []kernel.Lit) {
	s.objective = &optimize.ListObjective{Lits: lits}
}

// AddMinimizeSubset configures spec §4.8's SUBSET optimization mode.
func (s *Solver) AddMinimizeSubset(lits []kernel.Lit) {
	s.objective = &optimize.SubsetObjective{Lits: lits}
}

// AddMinimizeVar configures spec §4.8's integer-variable optimization
// mode over an order encoding (leq[k] == var <= k).
func (s *Solver) AddMinimizeVar(leq []kernel.Lit) {
	s.objective = &optimize.VarObjective{LEQ: leq}
}

// AddMinimizeAgg configures spec §4.8's AGG optimization mode, tightening
// aggID's bound by one on every improving solve.
func (s *Solver) AddMinimizeAgg(aggID aggregate.AggID) {
	s.objective = &optimize.AggObjective{Handle: &aggHandle{s: s, id: aggID}}
}

// aggHandle adapts the solver's aggregate Store/FW propagator into
// optimize.AggregateHandle.
type aggHandle struct {
	s  *Solver
	id aggregate.AggID
}

func (h *aggHandle) CurrentValue(model []kernel.Lit) (weight.Weight, error) {
	agg := h.s.aggStore.Aggregate(h.id)
	if agg == nil {
		return weight.Weight{}, errUnknownAgg(h.id)
	}
	set := h.s.aggStore.Set(agg.Set)
	acc := set.Typ.ESV(h.s.aggStore.Mode())
	for _, wl := range set.WLs {
		kl := toKLit(wl.Lit)
		if !litTrue(model, kl) {
			continue
		}
		acc, _ = set.Typ.Combine(acc, wl.Weight)
	}
	return acc, nil
}

func (h *aggHandle) Tighten(k *kernel.Kernel) bool {
	if !h.s.aggStore.TightenBound(h.id) {
		return false
	}
	if h.s.fw != nil {
		agg := h.s.aggStore.Aggregate(h.id)
		if agg != nil {
			h.s.fw.Refresh(agg.Set)
		}
	}
	return true
}

func litTrue(model []kernel.Lit, lit kernel.Lit) bool {
	return int(lit.Var()) < len(model) && model[lit.Var()] == lit
}

// Finalize runs the normalization pipeline, compiles eligible aggregates
// to CNF when opts.PBToCNF allows it, builds the FW/PW propagators and the
// definition engine, and wires every theory.Propagator into a single
// theory.Dispatch. Called automatically by the first Solve.
func (s *Solver) Finalize(ctx context.Context) error {
	if s.finalized {
		return nil
	}
	s.finalized = true

	normalizer := aggregate.NewNormalizer(s.aggStore, s.opts.WatchesRatio)
	results := normalizer.Run()
	for _, r := range results {
		for _, cl := range r.Clauses {
			lits := make([]kernel.Lit, len(cl))
			for i, l := range cl {
				lits[i] = toKLit(l)
			}
			if s.k.AddClause(lits) == kernel.UNSAT {
				s.rootUNSAT = true
			}
		}
	}

	if s.opts.PBToCNF {
		s.compileEligibleSets(ctx)
	}

	needFW, needPW := false, false
	for _, set := range s.aggStore.Sets() {
		switch set.Strategy {
		case aggregate.StrategyFW:
			needFW = true
		case aggregate.StrategyPW:
			needPW = true
		}
	}
	if needFW {
		s.fw = aggregate.NewFWPropagator(s.aggStore, s.k, toKLit, toALit)
	}
	if needPW {
		s.pw = aggregate.NewPWPropagator(s.aggStore, s.k, toKLit)
	}

	s.dispatch = theory.New(s.k)
	if s.hasRules {
		if s.mon != nil {
			s.defStore.SetMetrics(s.mon)
		}
		s.defStore.Finalize()
		s.dispatch.Register(s.defStore)
	}
	if s.fw != nil {
		s.dispatch.Register(s.fw)
	}
	if s.pw != nil {
		s.dispatch.Register(s.pw)
	}
	for _, n := range s.modalRoot {
		s.dispatch.Register(n)
	}
	s.dispatch.Finalize()

	if len(s.symmetryPairs) > 0 {
		s.installSymmetryHeuristic()
	}
	return nil
}

// compileEligibleSets tries the PB-to-CNF compiler (spec §4.6) on every
// still-FW-strategy set that is a single-aggregate CARD/SUM set with COMP
// semantics, the only shape Compile handles. A set that is too expensive
// (ErrTooExpensive) or ineligible is left for the FW propagator fallback.
func (s *Solver) compileEligibleSets(ctx context.Context) {
	threshold := uint64(0)
	if s.opts.BDDThreshold > 0 {
		threshold = uint64(s.opts.BDDThreshold * 1000)
	}
	for _, set := range s.aggStore.Sets() {
		if set.Strategy != aggregate.StrategyFW {
			continue
		}
		if set.Typ != aggregate.Card && set.Typ != aggregate.Sum {
			continue
		}
		if len(set.Aggregates) != 1 {
			continue
		}
		agg := s.aggStore.Aggregate(set.Aggregates[0])
		if agg == nil || agg.Sem != aggregate.Comp {
			continue
		}
		firstAux := uint32(s.k.NAtoms())
		opts := aggregate.PB2CNFOptions{CostThreshold: threshold, Workers: 1}
		if s.mon != nil {
			opts.OnEncode = s.mon.IncPB2CNFEncoding
		}
		enc, err := aggregate.Compile(ctx, s.aggStore, set, agg, opts, firstAux)
		if err != nil {
			continue // too expensive or ineligible: keep the FW propagator
		}
		for s.k.NAtoms() < int(enc.NextAux) {
			s.k.NewAtom()
		}
		for _, cl := range enc.Clauses {
			lits := make([]kernel.Lit, len(cl))
			for i, l := range cl {
				lits[i] = toKLit(l)
			}
			if s.k.AddClause(lits) == kernel.UNSAT {
				s.rootUNSAT = true
			}
		}
		s.aggStore.DeleteAggregate(agg.ID)
		s.aggStore.DeleteSet(set.ID)
	}
}

// installSymmetryHeuristic replaces the kernel's decision heuristic with a
// fresh VSIDS heuristic (same polarity policy, sized to every atom minted
// so far) wrapped in one that, for each atom of a registered symmetric
// pair, tries the polarity of its partner literal as registered first —
// the lightweight phase-preference form of symmetry breaking
// (SUPPLEMENTED FEATURES), rather than the heavier dynamic-symmetry
// learned-clause scheme.
func (s *Solver) installSymmetryHeuristic() {
	base := kernel.NewVSIDSHeuristic(s.k)
	base.Grow(s.k.NAtoms())
	base.SetPolarityMode(polarityMode(s.opts.Polarity))
	s.k.SetHeuristic(newSymmetryHeuristic(base, s.symmetryPairs))
}

// Solve implements `solve` (spec §6), finalizing on first call.
func (s *Solver) Solve(ctx context.Context) kernel.Status {
	if err := s.Finalize(ctx); err != nil {
		return kernel.UNSAT
	}
	if s.rootUNSAT {
		return kernel.UNSAT
	}
	for {
		var status kernel.Status
		if s.objective != nil {
			res := optimize.Minimize(s.k, s.dispatch, s.objective)
			status = res.Status
		} else {
			status = s.k.Solve(s.dispatch)
		}
		if status != kernel.SAT || !s.hasRules || !s.opts.CheckWellFounded {
			return status
		}
		violators := s.defStore.WellFoundedViolation()
		if len(violators) == 0 {
			return status
		}
		// The model just found is SAT under the direct/stable engine but
		// violates well-founded semantics on a mixed cycle: reject it by
		// forbidding every violating atom from being simultaneously true
		// again, rewind to root so the blocking clause is actually
		// re-checked, and search again (spec §4.7's optional second pass).
		s.k.RewindToRoot(s.dispatch)
		clause := make([]kernel.Lit, len(violators))
		for i, a := range violators {
			clause[i] = kernel.MkLit(a, true)
		}
		if s.k.AddClause(clause) == kernel.UNSAT {
			s.rootUNSAT = true
			return kernel.UNSAT
		}
	}
}

// Model implements `model` (spec §6).
func (s *Solver) Model() []kernel.Lit { return s.k.Model() }

// Entailed implements `entailed` (spec §6).
func (s *Solver) Entailed() []kernel.Lit { return s.k.Entailed() }

// UnsatCore implements `unsat_core` (spec §6).
func (s *Solver) UnsatCore(markers []kernel.Lit) []kernel.Lit { return s.k.UnsatCore(markers) }

// AddModalNode registers a modal.Node (spec §4.9), buffered until Finalize.
func (s *Solver) AddModalNode(n *modal.Node) { s.modalRoot = append(s.modalRoot, n) }

// Mode reports the weight precision this Solver's aggregate store uses,
// so callers building Weight values for AddSet/AddAggregate (e.g. package
// textfmt's Load) match it rather than guessing.
func (s *Solver) Mode() weight.Mode { return s.aggStore.Mode() }

// Kernel exposes the underlying kernel for callers that need direct access
// (e.g. cmd/dpllt's explain subcommand, or a nested modal child Solver
// building its own kernel-level rigid atoms).
func (s *Solver) Kernel() *kernel.Kernel { return s.k }
