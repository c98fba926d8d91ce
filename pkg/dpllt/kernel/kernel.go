package kernel

import (
	"math/rand"
)

// Status is the three-way outcome of Solve, per spec §4.1.
type Status int

const (
	Unknown Status = iota
	SAT
	UNSAT
	Timeout
)

func (s Status) String() string {
	switch s {
	case SAT:
		return "SAT"
	case UNSAT:
		return "UNSAT"
	case Timeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Conflict is a falsified clause: every literal in Lits is currently false.
type Conflict struct {
	Lits []Lit
}

// Dispatcher is the hook the kernel calls into on every propagated literal,
// at end-of-queue, on backtrack, and when explaining a theory-owned
// literal during conflict analysis. package theory's Dispatch implements
// this, fanning a single call out to every registered Propagator — the
// kernel itself never imports package theory, avoiding an import cycle and
// keeping the SAT engine genuinely theory-agnostic (spec §4.1/§4.2).
type Dispatcher interface {
	// Propagate is called once per literal dequeued from the trail,
	// immediately after the kernel's own watched-literal unit
	// propagation for that literal. Returns a non-nil Conflict to abort
	// propagation for this round.
	Propagate(lit Lit) *Conflict
	// PropagateEndOfQueue runs deferred/batched propagators once the
	// shared queue is empty and no conflict is pending. If it derives
	// new literals, the kernel resumes draining the queue and will call
	// PropagateEndOfQueue again once it re-empties.
	PropagateEndOfQueue() *Conflict
	// Backtrack notifies every propagator that the trail is about to
	// unwind to untilLevel because of decisionLit (the new decision
	// about to be tried, or LitUndef if unwinding to root without a
	// pending decision).
	Backtrack(untilLevel int, decisionLit Lit)
	// Explain reconstructs the reason clause for a literal that was
	// propagated with a theory token instead of an eager reason clause.
	// The returned clause's first literal must be lit itself and every
	// other literal must be false at lit's assignment point (spec §4.1).
	Explain(lit Lit, token TheoryToken) []Lit
}

// Monitor receives propagation/backtrack events for external observers
// (spec §6's Monitor API), plus the conflict/restart counts
// MetricsMonitor needs that spec §6 itself doesn't name literals or
// levels for. All four methods are optional no-ops by default.
type Monitor interface {
	OnPropagate(lit Lit, level int)
	OnBacktrack(level int)
	OnConflict(level int)
	OnRestart()
}

// DecisionHeuristic selects the next branching variable and its phase.
// Kept as a swappable interface exactly as gokando keeps LabelingStrategy
// swappable for FD variable ordering (spec §4.1 leaves this implementer's
// choice).
type DecisionHeuristic interface {
	// NextVar returns an unassigned atom to branch on, or AtomUndef if
	// every atom is assigned.
	NextVar(k *Kernel) Atom
	// Phase returns the initial polarity to try for a.
	Phase(a Atom) bool
	// OnConflictBump is called with the atoms involved in a conflict so
	// activity-based heuristics (VSIDS) can bump their scores.
	OnConflictBump(atoms []Atom)
	// Grow extends internal bookkeeping to cover n atoms.
	Grow(n int)
	// OnUnassign is called as an atom is unassigned during backtrack so
	// phase-saving heuristics can record its last polarity.
	OnUnassign(a Atom, wasTrue bool)
}

// Kernel is the CDCL engine: atom/literal/clause storage, the assignment
// trail, watched-literal unit propagation, first-UIP conflict analysis,
// and backjumping. It knows nothing about aggregates or definitions;
// package theory supplies a Dispatcher to hook those in.
type Kernel struct {
	nAtoms      int
	clauses     *ClauseStore
	trail       *Trail
	watches     map[Lit][]ClauseRef
	heuristic   DecisionHeuristic
	monitor     Monitor
	rng         *rand.Rand
	terminate   *bool
	rootUNSAT   bool
	assumptions []Lit

	// restart policy state (Luby sequence)
	restartConflicts int
	conflictsTotal   int
	lubyIdx          int
	lubyBase         int
}

// NewKernel creates an empty kernel. seed seeds the kernel's random source,
// which the default VSIDS heuristic draws on only under PolarityRandom;
// equal-activity ties break by atom index, so the same seed gives the same
// run (spec §5: "same seed -> byte-identical results").
func NewKernel(seed int64) *Kernel {
	flag := false
	k := &Kernel{
		clauses:  NewClauseStore(),
		trail:    NewTrail(0),
		watches:  make(map[Lit][]ClauseRef),
		rng:      rand.New(rand.NewSource(seed)),
		terminate: &flag,
		lubyBase: 100,
	}
	k.heuristic = NewVSIDSHeuristic(k)
	return k
}

// SetHeuristic overrides the decision heuristic.
func (k *Kernel) SetHeuristic(h DecisionHeuristic) { k.heuristic = h }

// SetMonitor installs an observer for propagate/backtrack events.
func (k *Kernel) SetMonitor(m Monitor) { k.monitor = m }

// NAtoms reports how many atoms have been minted.
func (k *Kernel) NAtoms() int { return k.nAtoms }

// Trail exposes the read-only assignment trail to collaborators (theory
// dispatch, explanation reconstruction). Propagators must treat it as a
// view: only the kernel mutates it directly; propagators push derived
// literals through Dispatcher/AssignTheory, never by touching the trail.
func (k *Kernel) Trail() *Trail { return k.trail }

// Clauses exposes the clause arena (read access for explanation scanning,
// GC).
func (k *Kernel) Clauses() *ClauseStore { return k.clauses }

// NewAtom mints a fresh, dense atom.
func (k *Kernel) NewAtom() Atom {
	a := Atom(k.nAtoms)
	k.nAtoms++
	k.trail.Grow(k.nAtoms)
	k.heuristic.Grow(k.nAtoms)
	return a
}

// RequestTerminate sets the cooperative termination flag; the kernel polls
// it between propagation rounds and between solve iterations (spec §5).
func (k *Kernel) RequestTerminate() { *k.terminate = true }

// ClearTerminate resets the termination flag so a cancelled solve can be
// resumed with different assumptions.
func (k *Kernel) ClearTerminate() { *k.terminate = false }

func (k *Kernel) terminated() bool { return *k.terminate }

// Value reports the current value of an atom.
func (k *Kernel) Value(a Atom) LBool { return k.trail.Value(a) }

// LitValue reports the current value of a literal.
func (k *Kernel) LitValue(l Lit) LBool { return k.trail.LitValue(l) }

// DecisionLevel reports the kernel's current decision level.
func (k *Kernel) DecisionLevel() int { return k.trail.DecisionLevel() }

func (k *Kernel) addWatch(ref ClauseRef, a, b Lit) {
	k.watches[a] = append(k.watches[a], ref)
	k.watches[b] = append(k.watches[b], ref)
}

// AddClause installs a clause at the root. It detects and drops
// tautologies, detects unit/empty clauses, and installs watches on the
// first two literals otherwise. Root-unit clauses are propagated
// immediately; a clause found to directly contradict the root assignment
// sets the sticky UNSAT flag described in spec §7 rather than returning an
// error, so subsequent Solve calls short-circuit to UNSAT.
func (k *Kernel) AddClause(lits []Lit) Status {
	if k.rootUNSAT {
		return UNSAT
	}
	dedup := dedupAndCheckTautology(lits)
	if dedup == nil {
		return SAT // tautology: trivially satisfied, nothing to add
	}
	if len(dedup) == 0 {
		k.rootUNSAT = true
		return UNSAT
	}
	// Drop literals already false at level 0; detect literals already
	// true at level 0 (clause satisfied, nothing to add).
	filtered := dedup[:0]
	for _, l := range dedup {
		if k.trail.Level(l.Var()) == 0 {
			switch k.trail.LitValue(l) {
			case LTrue:
				return SAT
			case LFalse:
				continue
			}
		}
		filtered = append(filtered, l)
	}
	if len(filtered) == 0 {
		k.rootUNSAT = true
		return UNSAT
	}
	if len(filtered) == 1 {
		if k.trail.LitValue(filtered[0]) == LFalse {
			k.rootUNSAT = true
			return UNSAT
		}
		if k.trail.LitValue(filtered[0]) == LUndef {
			k.trail.Assign(filtered[0], Reason{Kind: ReasonClause, Clause: ClauseRefUndef})
		}
		return SAT
	}
	ref := k.clauses.Add(filtered, false)
	c := k.clauses.Get(ref)
	k.addWatch(ref, c.Lits[0], c.Lits[1])
	return SAT
}

func dedupAndCheckTautology(lits []Lit) []Lit {
	seen := make(map[Lit]bool, len(lits))
	out := make([]Lit, 0, len(lits))
	for _, l := range lits {
		if seen[l.Not()] {
			return nil // tautology: both l and ¬l present
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// Assume installs a root-level assumption before Solve.
func (k *Kernel) Assume(lit Lit) {
	k.assumptions = append(k.assumptions, lit)
}

// ClearAssumptions drops all pending assumptions.
func (k *Kernel) ClearAssumptions() { k.assumptions = k.assumptions[:0] }

// EnqueueTheory pushes a theory-derived literal onto the trail with a
// theory reason. The caller (package theory) must guarantee lit's atom is
// currently unassigned; this mirrors spec §4.1's propagate_literal
// contract.
func (k *Kernel) EnqueueTheory(lit Lit, token TheoryToken) {
	k.trail.Assign(lit, Reason{Kind: ReasonTheory, Theory: token})
}

// propagateSAT runs watched-literal unit propagation triggered by lit
// having just become true. Returns a Conflict if a clause is falsified.
func (k *Kernel) propagateSAT(lit Lit) *Conflict {
	falseLit := lit.Not()
	ws := k.watches[falseLit]
	j := 0
	var conflict *Conflict
	for i := 0; i < len(ws); i++ {
		ref := ws[i]
		c := k.clauses.Get(ref)
		if c == nil {
			continue
		}
		if c.Lits[0] == falseLit {
			c.Lits[0], c.Lits[1] = c.Lits[1], c.Lits[0]
		}
		if k.trail.LitValue(c.Lits[0]) == LTrue {
			ws[j] = ref
			j++
			continue
		}
		foundNew := false
		for k2 := 2; k2 < len(c.Lits); k2++ {
			if k.trail.LitValue(c.Lits[k2]) != LFalse {
				c.Lits[1], c.Lits[k2] = c.Lits[k2], c.Lits[1]
				k.watches[c.Lits[1]] = append(k.watches[c.Lits[1]], ref)
				foundNew = true
				break
			}
		}
		if foundNew {
			continue
		}
		ws[j] = ref
		j++
		if k.trail.LitValue(c.Lits[0]) == LFalse {
			conflict = &Conflict{Lits: append([]Lit(nil), c.Lits...)}
			// keep remaining watches untouched; copy rest verbatim
			for i2 := i + 1; i2 < len(ws); i2++ {
				ws[j] = ws[i2]
				j++
			}
			break
		}
		k.trail.Assign(c.Lits[0], Reason{Kind: ReasonClause, Clause: ref})
	}
	k.watches[falseLit] = ws[:j]
	return conflict
}

// propagateAll drains the shared propagation queue (SAT + theory) until it
// saturates or a conflict is raised, per spec §4.1 step 1.
func (k *Kernel) propagateAll(d Dispatcher) *Conflict {
	for {
		for {
			lit, ok := k.trail.NextToPropagate()
			if !ok {
				break
			}
			if k.monitor != nil {
				k.monitor.OnPropagate(lit, k.trail.DecisionLevel())
			}
			if conf := k.propagateSAT(lit); conf != nil {
				return conf
			}
			if conf := d.Propagate(lit); conf != nil {
				return conf
			}
		}
		if conf := d.PropagateEndOfQueue(); conf != nil {
			return conf
		}
		if k.trail.QueueEmpty() {
			return nil
		}
	}
}

func (k *Kernel) reasonLits(a Atom, p Lit, d Dispatcher) []Lit {
	r := k.trail.Reason(a)
	switch r.Kind {
	case ReasonClause:
		if r.Clause == ClauseRefUndef {
			return nil // root-unit literal: empty reason, nothing to resolve
		}
		c := k.clauses.Get(r.Clause)
		if c == nil {
			return nil
		}
		return c.Lits
	case ReasonTheory:
		return d.Explain(p, r.Theory)
	default:
		return nil
	}
}

// analyze performs first-UIP conflict analysis, producing a learned clause
// (with the asserting literal at index 0 and the literal implying the
// second-highest decision level at index 1) and the backjump level.
func (k *Kernel) analyze(confl *Conflict, d Dispatcher) ([]Lit, int) {
	seen := make([]bool, k.nAtoms)
	learnt := make([]Lit, 1, 8)
	pathC := 0
	p := LitUndef
	reason := confl.Lits
	idx := k.trail.Len() - 1
	curLevel := k.trail.DecisionLevel()
	bumped := make([]Atom, 0, 8)

	for {
		for _, q := range reason {
			if q == p {
				continue
			}
			a := q.Var()
			if seen[a] {
				continue
			}
			seen[a] = true
			bumped = append(bumped, a)
			lvl := k.trail.Level(a)
			switch {
			case lvl <= 0:
				// permanently false at root: drop from the learned clause
			case lvl >= curLevel:
				pathC++
			default:
				learnt = append(learnt, q)
			}
		}
		for !seen[k.trail.At(idx).Var()] {
			idx--
		}
		p = k.trail.At(idx)
		seen[p.Var()] = false
		pathC--
		if pathC <= 0 {
			break
		}
		reason = k.reasonLits(p.Var(), p, d)
		idx--
	}
	learnt[0] = p.Not()
	k.heuristic.OnConflictBump(bumped)

	btLevel := 0
	if len(learnt) > 1 {
		maxI := 1
		for i := 2; i < len(learnt); i++ {
			if k.trail.Level(learnt[i].Var()) > k.trail.Level(learnt[maxI].Var()) {
				maxI = i
			}
		}
		learnt[1], learnt[maxI] = learnt[maxI], learnt[1]
		btLevel = k.trail.Level(learnt[1].Var())
	}
	return learnt, btLevel
}

func (k *Kernel) cancelUntil(level int, d Dispatcher, decisionLit Lit) {
	if k.monitor != nil {
		k.monitor.OnBacktrack(level)
	}
	d.Backtrack(level, decisionLit)
	k.trail.UndoUntil(level, func(lit Lit) {
		k.heuristic.OnUnassign(lit.Var(), !lit.Sign())
	})
}

// recordLearnt installs a learned clause returned by analyze and performs
// the corresponding propagation of its asserting literal.
func (k *Kernel) recordLearnt(learnt []Lit) {
	if len(learnt) == 1 {
		k.trail.Assign(learnt[0], Reason{Kind: ReasonClause, Clause: ClauseRefUndef})
		return
	}
	ref := k.clauses.Add(learnt, true)
	c := k.clauses.Get(ref)
	k.addWatch(ref, c.Lits[0], c.Lits[1])
	k.trail.Assign(c.Lits[0], Reason{Kind: ReasonClause, Clause: ref})
}

func (k *Kernel) pickBranchLit() Lit {
	a := k.heuristic.NextVar(k)
	if a == AtomUndef {
		return LitUndef
	}
	return MkLit(a, !k.heuristic.Phase(a))
}

// restartDue reports whether the Luby-sequence restart policy says to
// restart now. Using Luby restarts (rather than geometric) follows the
// corpus's own preference for a bounded, well-studied sequence; either is
// permitted by spec §4.1's "implementer's choice" on restart policy.
func (k *Kernel) restartDue() bool {
	k.restartConflicts++
	threshold := luby(k.lubyBase, k.lubyIdx)
	if k.restartConflicts >= threshold {
		k.restartConflicts = 0
		k.lubyIdx++
		return true
	}
	return false
}

func luby(base, i int) int {
	// Standard Luby sequence scaled by base: 1,1,2,1,1,2,4,1,1,2,1,1,2,4,8,...
	size, exp := 1, 0
	for size < i+1 {
		exp++
		size = 2*size + 1
	}
	for size-1 != i {
		size = (size - 1) >> 1
		exp--
		i = i % size
	}
	return base * (1 << exp)
}

// Solve runs the DPLL(T) loop to completion, returning SAT, UNSAT, or
// Timeout. d fans propagation out to every registered theory propagator;
// pass theory.Dispatch (or any other Dispatcher).
func (k *Kernel) Solve(d Dispatcher) Status {
	if k.rootUNSAT {
		return UNSAT
	}
	for _, lit := range k.assumptions {
		if k.trail.LitValue(lit) == LFalse {
			return UNSAT
		}
		if k.trail.LitValue(lit) == LUndef {
			k.trail.NewDecisionLevel()
			k.trail.Assign(lit, DecisionReason)
		}
	}
	for {
		if k.terminated() {
			return Timeout
		}
		conflict := k.propagateAll(d)
		if conflict != nil {
			if k.monitor != nil {
				k.monitor.OnConflict(k.trail.DecisionLevel())
			}
			if k.trail.DecisionLevel() == 0 {
				return UNSAT
			}
			learnt, btLevel := k.analyze(conflict, d)
			assertLit := learnt[0]
			k.cancelUntil(btLevel, d, assertLit)
			k.recordLearnt(learnt)
			if k.restartDue() && k.trail.DecisionLevel() > 0 {
				// restarts unwind to level 0 but keep learned clauses
				k.cancelUntil(0, d, LitUndef)
				if k.monitor != nil {
					k.monitor.OnRestart()
				}
			}
			continue
		}
		if k.trail.Len() == k.nAtoms {
			return SAT
		}
		lit := k.pickBranchLit()
		if lit == LitUndef {
			return SAT
		}
		k.trail.NewDecisionLevel()
		k.trail.Assign(lit, DecisionReason)
	}
}

// RewindToRoot unwinds the trail to decision level 0, undoing every
// decision and derived literal above the root exactly as a restart does.
// Solve only ever drains the propagation queue, so a caller that installs
// a new clause against an already-complete trail (package optimize's
// branch-and-bound re-solve, after Tighten adds a blocking clause) must
// call this before the next Solve: otherwise the fresh clause's watches
// sit on an arbitrary pair of already-assigned literals with nothing new
// queued to propagate, and Solve sees the full trail and immediately
// reports the same stale model SAT again.
func (k *Kernel) RewindToRoot(d Dispatcher) {
	if k.trail.DecisionLevel() == 0 {
		return
	}
	k.cancelUntil(0, d, LitUndef)
}

// Model returns the current complete assignment as literals, valid only
// after Solve returns SAT.
func (k *Kernel) Model() []Lit {
	out := make([]Lit, k.nAtoms)
	for a := 0; a < k.nAtoms; a++ {
		out[a] = MkLit(Atom(a), k.trail.Value(Atom(a)) == LFalse)
	}
	return out
}
