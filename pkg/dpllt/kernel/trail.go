package kernel

// ReasonKind tags why an atom was assigned, matching spec §3's
// level[atom]/reason[atom] auxiliary map.
type ReasonKind uint8

const (
	// ReasonDecision marks a branching decision: no clause or theory
	// explains it.
	ReasonDecision ReasonKind = iota
	// ReasonClause means a SAT clause propagated this literal; Clause
	// is the asserting clause.
	ReasonClause
	// ReasonTheory means a registered theory propagator derived this
	// literal; Token identifies the propagator and an opaque payload
	// the propagator can use to reconstruct the reason lazily in
	// Explain. Token is never interpreted by the kernel itself.
	ReasonTheory
)

// TheoryToken identifies which propagator owns an explanation and carries
// an opaque payload for that propagator's own bookkeeping (e.g. which
// aggregate/derivation code produced the literal). The kernel treats it as
// opaque; only the owning propagator's Explain method interprets Payload.
type TheoryToken struct {
	PropagatorID int
	Payload      int64
}

// Reason records why an atom currently holds its assigned value.
type Reason struct {
	Kind   ReasonKind
	Clause ClauseRef
	Theory TheoryToken
}

// DecisionReason is the sentinel reason for a branching decision.
var DecisionReason = Reason{Kind: ReasonDecision, Clause: ClauseRefUndef}

// trailEntry is one assignment on the trail.
type trailEntry struct {
	lit   Lit
	level int
}

// Trail is the monotonic assignment stack described in spec §3: a
// sequence of literals in the order they were set true, partitioned by
// decision levels, with parallel level[]/reason[] maps keyed by atom.
type Trail struct {
	entries    []trailEntry
	levelMarks []int // index into entries where each decision level begins
	value      []LBool
	level      []int
	reason     []Reason
	qHead      int // propagation queue head: entries[qHead:] are unpropagated
}

// NewTrail allocates a trail sized for nAtoms atoms.
func NewTrail(nAtoms int) *Trail {
	t := &Trail{
		entries:    make([]trailEntry, 0, nAtoms),
		levelMarks: []int{0},
		value:      make([]LBool, nAtoms),
		level:      make([]int, nAtoms),
		reason:     make([]Reason, nAtoms),
	}
	for i := range t.level {
		t.level[i] = -1
	}
	return t
}

// Grow extends the trail's per-atom arrays to accommodate newN atoms.
func (t *Trail) Grow(newN int) {
	for len(t.value) < newN {
		t.value = append(t.value, LUndef)
		t.level = append(t.level, -1)
		t.reason = append(t.reason, Reason{})
	}
}

// DecisionLevel returns the current decision level (0 = root).
func (t *Trail) DecisionLevel() int { return len(t.levelMarks) - 1 }

// Value looks up the current truth value of an atom.
func (t *Trail) Value(a Atom) LBool { return t.value[a] }

// LitValue looks up the current truth value of a literal (accounting for
// its sign).
func (t *Trail) LitValue(l Lit) LBool {
	v := t.value[l.Var()]
	if l.Sign() {
		return v.Negate()
	}
	return v
}

// Level returns the decision level at which an atom was assigned, or -1 if
// unassigned.
func (t *Trail) Level(a Atom) int { return t.level[a] }

// Reason returns the reason an atom was assigned.
func (t *Trail) Reason(a Atom) Reason { return t.reason[a] }

// NewDecisionLevel pushes a new decision level marker.
func (t *Trail) NewDecisionLevel() {
	t.levelMarks = append(t.levelMarks, len(t.entries))
}

// Assign records lit as true at the current decision level with the given
// reason. The caller (Kernel) must guarantee lit's atom is currently
// unassigned.
func (t *Trail) Assign(lit Lit, reason Reason) {
	a := lit.Var()
	t.value[a] = BoolToLBool(!lit.Sign())
	t.level[a] = t.DecisionLevel()
	t.reason[a] = reason
	t.entries = append(t.entries, trailEntry{lit: lit, level: t.level[a]})
}

// Len returns the number of assigned literals.
func (t *Trail) Len() int { return len(t.entries) }

// At returns the literal assigned at trail position i.
func (t *Trail) At(i int) Lit { return t.entries[i].lit }

// QueueHead returns the index of the first not-yet-propagated literal.
func (t *Trail) QueueHead() int { return t.qHead }

// AdvanceQueue marks everything up to Len() as propagated.
func (t *Trail) AdvanceQueue() { t.qHead = len(t.entries) }

// NextToPropagate dequeues the next literal for propagation, or returns
// (0, false) if the queue is empty.
func (t *Trail) NextToPropagate() (Lit, bool) {
	if t.qHead >= len(t.entries) {
		return 0, false
	}
	lit := t.entries[t.qHead].lit
	t.qHead++
	return lit, true
}

// QueueEmpty reports whether every assigned literal has been dequeued for
// propagation.
func (t *Trail) QueueEmpty() bool { return t.qHead >= len(t.entries) }

// UndoUntil pops the trail back to the given decision level, calling
// unassign for every popped atom (in reverse/LIFO order) before its value
// is cleared, so callers can restore auxiliary propagator state (e.g. the
// aggregate engine's per-level CB/PB stack) before it observes the atom as
// unassigned again.
func (t *Trail) UndoUntil(level int, unassign func(Lit)) {
	if level >= t.DecisionLevel() {
		return
	}
	mark := t.levelMarks[level+1]
	for i := len(t.entries) - 1; i >= mark; i-- {
		lit := t.entries[i].lit
		unassign(lit)
		t.value[lit.Var()] = LUndef
		t.level[lit.Var()] = -1
		t.reason[lit.Var()] = Reason{}
	}
	t.entries = t.entries[:mark]
	t.levelMarks = t.levelMarks[:level+1]
	if t.qHead > len(t.entries) {
		t.qHead = len(t.entries)
	}
}
