package definition

import (
	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/theory"
)

// atomState is the per-defined-atom bookkeeping of spec §4.7: current
// rule, SCC id/class, a chosen justification, and the cycle-source flag.
type atomState struct {
	rules       []RuleID
	sccID       int
	class       SCCClass
	justSupport []kernel.Lit // CONJ: every body literal; DISJ/AGGR: the single supporting subset
	justRule    RuleID
	cycleSource bool
	defined     bool
}

// IDSolver is the definition engine: a theory.Propagator implementing the
// well-founded/stable fixpoint of spec §4.7.
type IDSolver struct {
	k         *kernel.Kernel
	semantics Semantics
	checkWF   bool

	rules    []*Rule
	state    map[kernel.Atom]*atomState
	graph    *depGraph
	tr       *tarjanResult
	classes  []SCCClass
	initDone bool

	cycleSources []kernel.Atom
	undoStack    []undoFrame

	metrics MetricsSink
}

// MetricsSink receives a count of every unfounded-set search this engine
// runs, satisfied structurally by metrics.MetricsMonitor without this
// package importing prometheus. Nil by default.
type MetricsSink interface {
	IncUFSSearch()
}

// SetMetrics installs an optional sink; pass nil to disable (the
// default).
func (s *IDSolver) SetMetrics(m MetricsSink) { s.metrics = m }

type undoFrame struct {
	level   int
	atom    kernel.Atom
	oldJust []kernel.Lit
	oldRule RuleID
}

// NewIDSolver creates an empty definition engine bound to k.
func NewIDSolver(k *kernel.Kernel, semantics Semantics, checkWellFounded bool) *IDSolver {
	return &IDSolver{
		k:         k,
		semantics: semantics,
		checkWF:   checkWellFounded,
		state:     make(map[kernel.Atom]*atomState),
	}
}

// AddRule installs a rule, implementing `add_rule` (spec §6). Must be
// called before Finalize.
func (s *IDSolver) AddRule(r *Rule) {
	r.ID = RuleID(len(s.rules))
	s.rules = append(s.rules, r)
	st, ok := s.state[r.Head]
	if !ok {
		st = &atomState{defined: true}
		s.state[r.Head] = st
	}
	st.rules = append(st.rules, r.ID)
}

// Finalize runs spec §4.7's one-time initialization: build the positive
// dependency graph, compute SCCs via Tarjan, classify each SCC, and pick
// an initial justification for every defined atom. Atoms in trivial SCCs
// are only tagged Trivial: no equivalence clauses are added for them and
// their definitional bookkeeping is kept.
func (s *IDSolver) Finalize() {
	s.graph = newDepGraph()
	var atoms []kernel.Atom
	for a, st := range s.state {
		if !st.defined {
			continue
		}
		atoms = append(atoms, a)
		for _, rid := range st.rules {
			r := s.rules[rid]
			for _, lit := range r.Body {
				positive := !lit.Sign()
				s.graph.addEdge(a, lit.Var(), positive)
			}
		}
	}
	s.tr = tarjan(atoms, s.graph.posAdj)
	s.classes = classifySCCs(s.tr, s.graph)

	for _, a := range atoms {
		st := s.state[a]
		id, ok := s.tr.sccOf[a]
		if ok {
			st.sccID = id
			st.class = s.classes[id]
		} else {
			st.class = Trivial
		}
		s.pickInitialJustification(a, st)
	}
	s.initDone = true
}

// pickInitialJustification implements init step 4: choose any
// cycle-free support. For a freshly initialized engine (nothing on the
// trail yet) every rule's body is unknown, so any rule is a valid
// provisional justification; propagation will invalidate it once a body
// literal is falsified.
func (s *IDSolver) pickInitialJustification(a kernel.Atom, st *atomState) {
	if len(st.rules) == 0 {
		return
	}
	r := s.rules[st.rules[0]]
	st.justRule = r.ID
	st.justSupport = append([]kernel.Lit(nil), r.Body...)
}

func (s *IDSolver) Name() string { return "definition" }

// Propagate marks every defined atom whose current justification
// includes lit.Not() (i.e. a supporting literal was just falsified) as a
// cycle source, per spec §4.7: "when a supporting justification literal
// is falsified, the affected defined atom becomes a cycle source". It
// also re-examines the SCC lit.Var() belongs to: a positive cycle can
// close purely through decisions, with no justification literal ever
// falsified, so any atom whose chosen support resolves entirely within
// its own pure-positive SCC is marked a cycle source as soon as it turns
// true, forcing PropagateEndOfQueue to verify it actually has external
// support.
func (s *IDSolver) Propagate(ctx *theory.Context, lit kernel.Lit) *kernel.Conflict {
	falsified := lit.Not()
	for a, st := range s.state {
		if st.cycleSource || len(st.justSupport) == 0 {
			continue
		}
		for _, sup := range st.justSupport {
			if sup == falsified {
				s.markCycleSource(a, st)
				break
			}
		}
	}
	if !lit.Sign() {
		if st, ok := s.state[lit.Var()]; ok && st.class == PurePositive && !st.cycleSource {
			if s.supportIsInternal(st) {
				s.markCycleSource(lit.Var(), st)
			}
		}
	}
	return nil
}

// supportIsInternal reports whether every literal of st's current
// justification is a positive occurrence of an atom in st's own SCC,
// meaning the justification cannot reach outside the cycle and must be
// re-verified before the atom's truth can stand.
func (s *IDSolver) supportIsInternal(st *atomState) bool {
	if len(st.justSupport) == 0 {
		return false
	}
	for _, sup := range st.justSupport {
		if sup.Sign() {
			return false
		}
		other, ok := s.state[sup.Var()]
		if !ok || other.sccID != st.sccID {
			return false
		}
	}
	return true
}

func (s *IDSolver) markCycleSource(a kernel.Atom, st *atomState) {
	if st.cycleSource {
		return
	}
	st.cycleSource = true
	s.cycleSources = append(s.cycleSources, a)
	s.undoStack = append(s.undoStack, undoFrame{
		level:   s.k.DecisionLevel(),
		atom:    a,
		oldJust: st.justSupport,
		oldRule: st.justRule,
	})
}

// PropagateEndOfQueue implements spec §4.7's per-propagation-step
// algorithm: for each cycle source, try direct justification; failing
// that, run unfounded-set search and emit loop formulas for any
// confirmed UFS.
func (s *IDSolver) PropagateEndOfQueue(ctx *theory.Context) *kernel.Conflict {
	if len(s.cycleSources) == 0 {
		return nil
	}
	pending := s.cycleSources
	s.cycleSources = nil
	for _, a := range pending {
		st := s.state[a]
		if !st.cycleSource {
			continue
		}
		if s.tryDirectJustification(a, st) {
			st.cycleSource = false
			continue
		}
		ufs, ok := s.searchUnfoundedSet(a)
		if !ok {
			continue
		}
		if conf := s.emitLoopFormula(ctx, ufs); conf != nil {
			return conf
		}
	}
	return nil
}

// tryDirectJustification implements the per-RuleKind re-justification
// rule of spec §4.7: for DISJ, any true-or-unknown body literal whose atom
// lies outside a's own pure-positive SCC (see staysOutsideSCC); for CONJ, impossible (the atom
// must be invalidated by its UFS path instead); for AGGR, delegate to the
// aggregate engine.
func (s *IDSolver) tryDirectJustification(a kernel.Atom, st *atomState) bool {
	for _, rid := range st.rules {
		r := s.rules[rid]
		switch r.Kind {
		case Disj:
			for _, lit := range r.Body {
				if s.k.LitValue(lit) == kernel.LFalse {
					continue
				}
				if s.staysOutsideSCC(a, lit, st) {
					st.justRule = r.ID
					st.justSupport = []kernel.Lit{lit}
					return true
				}
			}
		case Conj:
			// A conjunctive rule never re-justifies its head here; the
			// atom is left to the unfounded-set search.
		case Aggr:
			if r.AggCanJustify != nil && r.AggCanJustify(r.Body) {
				st.justRule = r.ID
				st.justSupport = append([]kernel.Lit(nil), r.Body...)
				return true
			}
		}
	}
	return false
}

// staysOutsideSCC reports whether lit's atom lies outside a's own
// pure-positive SCC. A fellow SCC member can never serve as a quick
// direct re-justification for a, even when that member isn't currently
// flagged as a cycle source: whether it has genuine external support is
// exactly the question searchUnfoundedSet's fixpoint answers, not
// something a single-hop check can determine. Restricting the shortcut
// to true externals keeps tryDirectJustification conservative and
// leaves every same-SCC cycle to the BFS below.
func (s *IDSolver) staysOutsideSCC(a kernel.Atom, lit kernel.Lit, st *atomState) bool {
	other, ok := s.state[lit.Var()]
	if !ok {
		return true
	}
	return other.sccID != st.sccID || st.class != PurePositive
}

// searchUnfoundedSet runs the BFS/DFS unfounded-set computation of spec
// §4.7: starting from the cycle source, follow justification
// back-pointers inside the SCC, accumulating candidates and retrying
// justification at each step; confirmed when every candidate lacks an
// external justification.
func (s *IDSolver) searchUnfoundedSet(source kernel.Atom) ([]kernel.Atom, bool) {
	if s.metrics != nil {
		s.metrics.IncUFSSearch()
	}
	st := s.state[source]
	if st.class != PurePositive {
		return nil, false
	}
	sccID := st.sccID
	visited := map[kernel.Atom]bool{source: true}
	queue := []kernel.Atom{source}
	var ufs []kernel.Atom
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		as := s.state[a]
		if as == nil {
			continue
		}
		if s.tryDirectJustification(a, as) {
			// a escaped the UFS via an external justification; the
			// candidate set is not confirmed as unfounded.
			return nil, false
		}
		ufs = append(ufs, a)
		for _, member := range s.tr.members[sccID] {
			if visited[member] {
				continue
			}
			ms := s.state[member]
			if ms == nil || len(ms.justSupport) == 0 {
				continue
			}
			for _, sup := range ms.justSupport {
				if sup.Var() == a {
					visited[member] = true
					queue = append(queue, member)
					break
				}
			}
		}
	}
	if len(ufs) == 0 {
		return nil, false
	}
	return ufs, true
}

// emitLoopFormula installs, for every atom a in ufs, the clause
// ¬a ∨ (⋁ external(ufs)) where external(ufs) is the set of body literals
// of atoms in ufs that leave ufs (spec §4.7). At decision level 0 this
// directly reports UNSAT if external(ufs) is empty; otherwise it is a
// conflict-free learned-clause style addition the kernel's own analysis
// loop backjumps on once one of the resulting clauses is falsified.
func (s *IDSolver) emitLoopFormula(ctx *theory.Context, ufs []kernel.Atom) *kernel.Conflict {
	inUFS := make(map[kernel.Atom]bool, len(ufs))
	for _, a := range ufs {
		inUFS[a] = true
	}
	var external []kernel.Lit
	for _, a := range ufs {
		st := s.state[a]
		for _, rid := range st.rules {
			for _, lit := range s.rules[rid].Body {
				if !lit.Sign() && !inUFS[lit.Var()] {
					external = append(external, lit)
				}
			}
		}
	}
	for _, a := range ufs {
		lit := kernel.MkLit(a, true)
		clause := append([]kernel.Lit{lit}, external...)
		if s.k.LitValue(lit) == kernel.LFalse {
			// a is currently true: this loop formula is itself the
			// conflict clause (empty external ⇒ UNSAT at this level).
			return &kernel.Conflict{Lits: clause}
		}
		ctx.NotifySolver(lit, clause)
	}
	return nil
}

// Backtrack restores every justification mutated above untilLevel, per
// the trail/level/reason undo contract of spec §3's Lifecycles.
func (s *IDSolver) Backtrack(untilLevel int, decisionLit kernel.Lit) {
	for len(s.undoStack) > 0 && s.undoStack[len(s.undoStack)-1].level > untilLevel {
		top := s.undoStack[len(s.undoStack)-1]
		s.undoStack = s.undoStack[:len(s.undoStack)-1]
		st := s.state[top.atom]
		st.justSupport = top.oldJust
		st.justRule = top.oldRule
		st.cycleSource = false
	}
	s.cycleSources = nil
}

// Explain is unused by this engine: every literal it derives is notified
// eagerly via NotifySolver with a concrete clause, never via
// NotifySolverLazy, so the kernel never calls back here.
func (s *IDSolver) Explain(lit kernel.Lit, token kernel.TheoryToken) []kernel.Lit { return nil }

// CheckWellFounded implements spec §4.7's optional second pass: run an
// SCC pass over the mixed dependency graph, mark atoms reachable above
// any mixed-cycle root in the justification graph, and reject the model
// if any marked atom is currently true. Only meaningful when semantics ==
// WellFounded and a full model has been produced. Solver.Solve calls this
// (via WellFoundedViolation) after every SAT result when
// config.Options.CheckWellFounded is set.
func (s *IDSolver) CheckWellFounded() bool {
	return len(s.WellFoundedViolation()) == 0
}

// WellFoundedViolation runs the same second pass as CheckWellFounded but
// returns every currently-true atom that the pass found improperly
// justified through a mixed cycle, rather than collapsing the result to
// a bool. Solver.Solve uses this list to build a blocking clause and
// re-search rather than silently accepting the model.
func (s *IDSolver) WellFoundedViolation() []kernel.Atom {
	if s.semantics != WellFounded || !s.checkWF {
		return nil
	}
	var atoms []kernel.Atom
	for a, st := range s.state {
		if st.defined {
			atoms = append(atoms, a)
		}
	}
	mixedTR := tarjan(atoms, s.graph.mixedAdj)
	mixedClasses := classifySCCs(mixedTR, s.graph)
	reachable := make(map[kernel.Atom]bool)
	var mark func(a kernel.Atom)
	mark = func(a kernel.Atom) {
		if reachable[a] {
			return
		}
		reachable[a] = true
		st := s.state[a]
		if st == nil {
			return
		}
		for _, sup := range st.justSupport {
			if !sup.Sign() {
				mark(sup.Var())
			}
		}
	}
	for id, members := range mixedTR.members {
		if mixedClasses[id] != PurePositive && mixedClasses[id] != Mixed {
			continue
		}
		if len(members) > 1 {
			for _, a := range members {
				mark(a)
			}
		}
	}
	var violating []kernel.Atom
	for a := range reachable {
		if s.k.Value(a) == kernel.LTrue {
			violating = append(violating, a)
		}
	}
	return violating
}
