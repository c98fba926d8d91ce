package aggregate

import (
	"github.com/pkg/errors"

	"dpllt/pkg/dpllt/weight"
)

// ErrNonPositiveWeight is raised by AddSet for a PROD set containing a
// non-positive weight (spec §4.3 step 4, §7 malformed-input error).
var ErrNonPositiveWeight = errors.New("aggregate: product set requires strictly positive weights")

// ErrZeroWeight is raised for a PROD set containing a zero weight (spec
// §7's "zero-weight in product set").
var ErrZeroWeight = errors.New("aggregate: product set cannot contain a zero weight")

// ErrDuplicateAtomInProduct flags a PROD set referencing the same atom
// twice (spec §7's "non-unique atom in product set").
var ErrDuplicateAtomInProduct = errors.New("aggregate: product set cannot reference the same atom twice")

// ErrDuplicateSetID flags re-use of a caller-supplied set identifier.
var ErrDuplicateSetID = errors.New("aggregate: duplicate set id")

// Store is the arena owning every TypedSet and Aggregate, indexed by
// slice position per spec §9's "replace pointer-rich graphs with arena
// storage" guidance. Tombstones (deleted flags) mark removal; indices are
// never reused or invalidated.
type Store struct {
	mode       weight.Mode
	sets       []*TypedSet
	aggregates []*Aggregate
	externalID map[int]SetID // caller-facing setID -> internal SetID
}

// NewStore creates an empty Store using the given weight precision mode.
func NewStore(mode weight.Mode) *Store {
	return &Store{mode: mode, externalID: make(map[int]SetID)}
}

// Mode reports the weight precision in effect.
func (s *Store) Mode() weight.Mode { return s.mode }

// AddSet validates and installs a new set under the caller's externalID,
// implementing the `add_set` operation of spec §6. Validation performs
// step 4 of the normalization pipeline ("verify weights") eagerly since
// spec §7 requires malformed input to be rejected synchronously at the
// addition call with no partial state persisting.
func (s *Store) AddSet(externalID int, wls []WL, typ Type) (SetID, error) {
	if _, exists := s.externalID[externalID]; exists {
		return 0, ErrDuplicateSetID
	}
	if typ == Prod {
		seen := make(map[uint32]bool, len(wls))
		for _, wl := range wls {
			if wl.Weight.Sign() == 0 {
				return 0, ErrZeroWeight
			}
			if wl.Weight.Sign() < 0 {
				return 0, ErrNonPositiveWeight
			}
			if seen[wl.Lit.Var()] {
				return 0, ErrDuplicateAtomInProduct
			}
			seen[wl.Lit.Var()] = true
		}
	}
	id := SetID(len(s.sets))
	cp := append([]WL(nil), wls...)
	set := &TypedSet{
		ID:     id,
		Typ:    typ,
		WLs:    cp,
		ESV:    typ.ESV(s.mode),
		Offset: weight.Zero(s.mode),
	}
	s.sets = append(s.sets, set)
	s.externalID[externalID] = id
	return id, nil
}

// ResolveSet maps a caller-facing external set id to its internal SetID.
func (s *Store) ResolveSet(externalID int) (SetID, bool) {
	id, ok := s.externalID[externalID]
	return id, ok
}

// Set returns the TypedSet for id, or nil if deleted/out of range.
func (s *Store) Set(id SetID) *TypedSet {
	if int(id) < 0 || int(id) >= len(s.sets) {
		return nil
	}
	set := s.sets[id]
	if set.deleted {
		return nil
	}
	return set
}

// AddAggregate installs a new aggregate referencing an existing set,
// implementing `add_aggregate` (spec §6).
func (s *Store) AddAggregate(head Lit, set SetID, bound weight.Weight, sign Sign, sem Semantics, defID int) (AggID, error) {
	ts := s.Set(set)
	if ts == nil {
		return 0, errors.Errorf("aggregate: unknown or deleted set %d", set)
	}
	id := AggID(len(s.aggregates))
	agg := &Aggregate{ID: id, Head: head, Set: set, Bound: bound, Sign: sign, Sem: sem, DefID: defID}
	s.aggregates = append(s.aggregates, agg)
	ts.Aggregates = append(ts.Aggregates, id)
	return id, nil
}

// Aggregate returns the Aggregate for id, or nil if deleted/out of range.
func (s *Store) Aggregate(id AggID) *Aggregate {
	if int(id) < 0 || int(id) >= len(s.aggregates) {
		return nil
	}
	agg := s.aggregates[id]
	if agg.deleted {
		return nil
	}
	return agg
}

// Sets returns every non-deleted set, for pipeline iteration.
func (s *Store) Sets() []*TypedSet {
	out := make([]*TypedSet, 0, len(s.sets))
	for _, set := range s.sets {
		if !set.deleted {
			out = append(out, set)
		}
	}
	return out
}

// ReplaceSet tombstones old and installs new in its place, returning the
// new set's id. Used by normalization transforms that split or rewrite a
// set (spec §4.3's "may replace a set with one or more new sets and
// delete the original").
func (s *Store) ReplaceSet(old SetID, typ Type, wls []WL) SetID {
	s.sets[old].deleted = true
	id := SetID(len(s.sets))
	set := &TypedSet{
		ID:     id,
		Typ:    typ,
		WLs:    append([]WL(nil), wls...),
		ESV:    typ.ESV(s.mode),
		Offset: weight.Zero(s.mode),
	}
	s.sets = append(s.sets, set)
	return id
}

// DeleteSet tombstones a set once it has been fully encoded to CNF or
// subsumed (spec §4.3's CNF-encode-and-remove transform).
func (s *Store) DeleteSet(id SetID) { s.sets[id].deleted = true }

// DeleteAggregate tombstones an aggregate (e.g. demoted to a plain clause
// by a normalization transform).
func (s *Store) DeleteAggregate(id AggID) { s.aggregates[id].deleted = true }

// TightenBound lowers (UB) or raises (LB) an aggregate's bound by one unit
// of the weight mode's precision, per spec §4.8's AGG optimization mode
// ("tighten the bound by one and re-initialize"). Returns false once the
// bound cannot move further without the set becoming vacuously
// unsatisfiable (an empty positive-weight CARD/SUM set's ESV floor).
func (s *Store) TightenBound(id AggID) bool {
	agg := s.Aggregate(id)
	if agg == nil {
		return false
	}
	one := weight.One(s.mode)
	if agg.Sign == UB {
		next := agg.Bound.Sub
		nb, err := next(one)
		if err != nil || nb.Cmp(agg.ESVFloor(s)) < 0 {
			return false
		}
		agg.Bound = nb
	} else {
		nb, err := agg.Bound.Add(one)
		if err != nil {
			return false
		}
		agg.Bound = nb
	}
	return true
}

// ESVFloor reports the lowest bound TightenBound will allow for this
// aggregate's UB sign: the referenced set's empty-set value, below which
// no assignment can ever satisfy the aggregate.
func (a *Aggregate) ESVFloor(s *Store) weight.Weight {
	set := s.Set(a.Set)
	if set == nil {
		return weight.Zero(s.mode)
	}
	return set.ESV
}
