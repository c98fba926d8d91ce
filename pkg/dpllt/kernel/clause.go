package kernel

// ClauseRef is an opaque handle into the ClauseStore. It is never a raw
// pointer: the store owns lifetime and may compact or garbage-collect
// learned clauses, invalidating stale references via a tombstone rather
// than leaving a dangling pointer (spec §9's arena-storage guidance).
type ClauseRef int32

// ClauseRefUndef marks "no clause" (e.g. a decision's reason).
const ClauseRefUndef ClauseRef = -1

// Clause is an ordered sequence of literals. When the clause lives in the
// SAT store, the first two positions are its watched literals.
type Clause struct {
	Lits     []Lit
	Learnt   bool
	Activity float64
	deleted  bool
}

// Len reports the clause's literal count.
func (c *Clause) Len() int { return len(c.Lits) }

// ClauseStore is an arena: clauses are appended, indexed by ClauseRef, and
// never physically removed except during an explicit GC pass that
// compacts the arena and remaps references. This mirrors spec §9's
// guidance to replace pointer-rich clause graphs with Vec<T> + index
// storage so backtracking only needs to restore indices, never pointers.
type ClauseStore struct {
	clauses []Clause
}

// NewClauseStore creates an empty arena.
func NewClauseStore() *ClauseStore {
	return &ClauseStore{clauses: make([]Clause, 0, 1024)}
}

// Add appends a clause and returns its handle.
func (s *ClauseStore) Add(lits []Lit, learnt bool) ClauseRef {
	own := make([]Lit, len(lits))
	copy(own, lits)
	s.clauses = append(s.clauses, Clause{Lits: own, Learnt: learnt})
	return ClauseRef(len(s.clauses) - 1)
}

// Get dereferences a handle. Returns nil if the clause was GC'd.
func (s *ClauseStore) Get(ref ClauseRef) *Clause {
	if ref < 0 || int(ref) >= len(s.clauses) {
		return nil
	}
	c := &s.clauses[ref]
	if c.deleted {
		return nil
	}
	return c
}

// MarkDeleted tombstones a clause without shrinking the arena, so
// outstanding ClauseRefs used as reasons elsewhere on the trail never
// dangle; only Compact ever invalidates a reference.
func (s *ClauseStore) MarkDeleted(ref ClauseRef) {
	if c := s.Get(ref); c != nil {
		c.deleted = true
		c.Lits = nil
	}
}

// Len returns the number of slots in the arena, including tombstoned ones.
func (s *ClauseStore) Len() int { return len(s.clauses) }

// Compact rewrites the arena keeping only clauses for which keep(ref)
// returns true, and returns a mapping from old ClauseRef to new. Any
// reference not present in the map (because keep returned false for it)
// has been deleted; callers must have already retargeted every live reason
// before compacting, per the invariant in spec §3 ("clause GC must
// preserve all clauses currently referenced as reasons").
func (s *ClauseStore) Compact(keep func(ClauseRef) bool) map[ClauseRef]ClauseRef {
	remap := make(map[ClauseRef]ClauseRef, len(s.clauses))
	newClauses := make([]Clause, 0, len(s.clauses))
	for i := range s.clauses {
		ref := ClauseRef(i)
		c := &s.clauses[i]
		if c.deleted || !keep(ref) {
			continue
		}
		remap[ref] = ClauseRef(len(newClauses))
		newClauses = append(newClauses, *c)
	}
	s.clauses = newClauses
	return remap
}
