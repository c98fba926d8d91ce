package solver

import "dpllt/pkg/dpllt/kernel"

// symmetryHeuristic wraps a base DecisionHeuristic and overrides Phase for
// both atoms of every registered symmetric pair, so the search tries each
// atom's partner-literal polarity first for both halves of the pair (SUPPLEMENTED FEATURES: "symmetry-breaking
// literal maps"). It changes only phase selection, never branching order
// or conflict learning, so it stays correct as a pure heuristic decoration
// regardless of how many pairs are registered.
type symmetryHeuristic struct {
	base    kernel.DecisionHeuristic
	partner map[kernel.Atom]kernel.Lit // atom -> the literal its partner prefers mirrored
}

func newSymmetryHeuristic(base kernel.DecisionHeuristic, pairs []symPair) *symmetryHeuristic {
	h := &symmetryHeuristic{base: base, partner: make(map[kernel.Atom]kernel.Lit, len(pairs)*2)}
	for _, p := range pairs {
		h.partner[p.a.Var()] = p.b
		h.partner[p.b.Var()] = p.a
	}
	return h
}

func (h *symmetryHeuristic) NextVar(k *kernel.Kernel) kernel.Atom { return h.base.NextVar(k) }

// Phase prefers the polarity that keeps an atom's value equal to its
// registered partner literal's polarity, breaking the symmetry between the
// two by always trying the "match" assignment before the "mismatch" one.
func (h *symmetryHeuristic) Phase(a kernel.Atom) bool {
	if partner, ok := h.partner[a]; ok {
		return !partner.Sign()
	}
	return h.base.Phase(a)
}

func (h *symmetryHeuristic) OnConflictBump(atoms []kernel.Atom) { h.base.OnConflictBump(atoms) }
func (h *symmetryHeuristic) Grow(n int)                         { h.base.Grow(n) }
func (h *symmetryHeuristic) OnUnassign(a kernel.Atom, wasTrue bool) { h.base.OnUnassign(a, wasTrue) }
