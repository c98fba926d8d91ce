package kernel

// VSIDSHeuristic is the default DecisionHeuristic: variable state
// independent decaying sum activity scores with phase saving, the same
// combination gokando's fd.go documents as HeuristicActivity (left
// "not yet implemented" there) and that the other_examples SAT solvers
// (gophersat, xDarkicex-logic) implement as their default. Ties among
// equal-activity atoms break lexicographically by atom index, which is
// the deterministic tie-break spec §9 asks reimplementers to pick and
// document explicitly.
type VSIDSHeuristic struct {
	k        *Kernel
	activity []float64
	phase    []bool // last/preferred polarity per atom (true = positive)
	inQueue  []bool
	pq       *activityQueue
	incr     float64
	decay    float64
	polarity PolarityMode
}

// PolarityMode selects the initial phase policy (spec §6 `polarity`
// option).
type PolarityMode int

const (
	PolarityStored PolarityMode = iota // phase-saving: last assigned value
	PolarityTrue
	PolarityFalse
	PolarityRandom
)

// NewVSIDSHeuristic creates a heuristic bound to k, decaying activity by
// 5% on every conflict (the conventional MiniSat-family default, also used
// verbatim by the gophersat reference file in this pack).
func NewVSIDSHeuristic(k *Kernel) *VSIDSHeuristic {
	h := &VSIDSHeuristic{
		k:        k,
		incr:     1.0,
		decay:    0.95,
		polarity: PolarityStored,
		pq:       newActivityQueue(),
	}
	return h
}

// SetPolarityMode configures the initial-phase policy.
func (h *VSIDSHeuristic) SetPolarityMode(m PolarityMode) { h.polarity = m }

func (h *VSIDSHeuristic) Grow(n int) {
	for len(h.activity) < n {
		a := Atom(len(h.activity))
		h.activity = append(h.activity, 0)
		h.phase = append(h.phase, true)
		h.inQueue = append(h.inQueue, false)
		h.pq.push(a, 0)
		h.inQueue[a] = true
	}
}

// NextVar pops the highest-activity unassigned atom.
func (h *VSIDSHeuristic) NextVar(k *Kernel) Atom {
	for h.pq.Len() > 0 {
		a := h.pq.peekTop()
		if k.Value(a) == LUndef {
			return a
		}
		h.pq.pop()
		h.inQueue[a] = false
	}
	return AtomUndef
}

// Phase reports the preferred initial polarity for a.
func (h *VSIDSHeuristic) Phase(a Atom) bool {
	switch h.polarity {
	case PolarityTrue:
		return true
	case PolarityFalse:
		return false
	case PolarityRandom:
		return h.k.rng.Intn(2) == 0
	default:
		return h.phase[a]
	}
}

// OnConflictBump increases activity for every atom that participated in a
// conflict's resolution trace, then periodically rescales to avoid
// floating-point overflow, exactly like MiniSat-family VSIDS.
func (h *VSIDSHeuristic) OnConflictBump(atoms []Atom) {
	for _, a := range atoms {
		h.activity[a] += h.incr
		if h.activity[a] > 1e100 {
			for i := range h.activity {
				h.activity[i] *= 1e-100
			}
			h.incr *= 1e-100
		}
		h.bubble(a)
	}
	h.incr /= h.decay
}

func (h *VSIDSHeuristic) bubble(a Atom) {
	if !h.inQueue[a] {
		h.pq.push(a, h.activity[a])
		h.inQueue[a] = true
		return
	}
	h.pq.update(a, h.activity[a])
}

// OnUnassign records the just-undone polarity for phase saving and
// reinserts the atom into the activity queue.
func (h *VSIDSHeuristic) OnUnassign(a Atom, wasTrue bool) {
	h.phase[a] = wasTrue
	if !h.inQueue[a] {
		h.pq.push(a, h.activity[a])
		h.inQueue[a] = true
	}
}

// activityQueue is a small binary max-heap keyed by activity, with atom
// index as a deterministic tie-break (lower atom index sorts first among
// equal activity, satisfying spec §9's documented tie-break requirement).
type activityQueue struct {
	items []aqItem
	index map[Atom]int
}

type aqItem struct {
	atom Atom
	act  float64
}

func newActivityQueue() *activityQueue {
	return &activityQueue{index: make(map[Atom]int)}
}

func (q *activityQueue) Len() int { return len(q.items) }

func (q *activityQueue) less(i, j int) bool {
	if q.items[i].act != q.items[j].act {
		return q.items[i].act > q.items[j].act
	}
	return q.items[i].atom < q.items[j].atom
}

func (q *activityQueue) swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.index[q.items[i].atom] = i
	q.index[q.items[j].atom] = j
}

func (q *activityQueue) push(a Atom, act float64) {
	q.items = append(q.items, aqItem{atom: a, act: act})
	i := len(q.items) - 1
	q.index[a] = i
	q.up(i)
}

func (q *activityQueue) pop() {
	if len(q.items) == 0 {
		return
	}
	last := len(q.items) - 1
	q.swap(0, last)
	delete(q.index, q.items[last].atom)
	q.items = q.items[:last]
	if len(q.items) > 0 {
		q.down(0)
	}
}

func (q *activityQueue) peekTop() Atom { return q.items[0].atom }

func (q *activityQueue) update(a Atom, act float64) {
	i, ok := q.index[a]
	if !ok {
		return
	}
	q.items[i].act = act
	q.up(i)
	q.down(i)
}

func (q *activityQueue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(i, parent) {
			break
		}
		q.swap(i, parent)
		i = parent
	}
}

func (q *activityQueue) down(i int) {
	n := len(q.items)
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < n && q.less(l, smallest) {
			smallest = l
		}
		if r < n && q.less(r, smallest) {
			smallest = r
		}
		if smallest == i {
			break
		}
		q.swap(i, smallest)
		i = smallest
	}
}
