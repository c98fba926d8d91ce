// Package modal implements spec §4.9's optional hierarchical modal
// composition: a parent solver owns a head literal and a set of rigid
// atoms shared with a child sub-theory; assigning the head invokes the
// child's solve under the rigid atoms' current values, and any
// inconsistency between the child and the parent surfaces as a
// parent-level conflict clause over the rigid atoms.
package modal

import (
	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/theory"
)

// ModalApprox selects how aggressively Node checks the child theory
// before deriving a value for the head, grounded on the
// commented-out "universal-only"/"existential-only" incremental-SAT
// approximations noted in spec.md §9's Open Questions — both are
// default-off per SPEC_FULL.md's Decision #2, since spec.md marks their
// role as experimental.
type ModalApprox int

const (
	// ApproxNone runs the exact check: the child must be satisfiable
	// under the rigid assignment whenever the head is true; an UNSAT
	// child is always a conflict. This is the only mode that makes no
	// approximation and is the default.
	ApproxNone ModalApprox = iota
	// ApproxExistentialOnly is the same one-directional witness check
	// as ApproxNone, named separately so a caller can request it
	// explicitly and document the distinction from the universal mode
	// below, mirroring the original source's two named (but
	// commented-out) incremental-SAT approximations.
	ApproxExistentialOnly
	// ApproxUniversalOnly additionally asserts Witness (the child's
	// designated "head could be false" witness literal, if supplied)
	// before solving, checking whether the child rules out every way
	// the head could fail to hold rather than merely exhibiting one way
	// it could succeed. Requires Node.Witness to be set; falls back to
	// ApproxExistentialOnly silently otherwise.
	ApproxUniversalOnly
)

// RigidAtom correlates one atom shared between parent and child kernels,
// which allocate atoms independently — the same converter-pair pattern
// the FW/PW aggregate propagators use for their kernel-agnostic Lit.
type RigidAtom struct {
	Parent kernel.Atom
	Child  kernel.Atom
}

// Node is a theory.Propagator implementing one modal sub-theory. Head is
// owned by the parent kernel; Child is the sub-theory's own kernel,
// solved from scratch (with rigid assumptions) every time Head becomes
// true.
type Node struct {
	Head    kernel.Lit
	Rigid   []RigidAtom
	Child   *kernel.Kernel
	Dispatch kernel.Dispatcher
	Approx  ModalApprox
	// Witness, if set, is a child-kernel literal ApproxUniversalOnly
	// assumes true before solving, representing "the head could still
	// fail to hold"; an UNSAT result then certifies the head
	// universally, not merely existentially.
	Witness kernel.Lit
	hasWitness bool
}

// NewNode builds a modal composition node. Pass childDispatch as built
// by theory.New+Register for the child's own propagators (aggregate,
// definition, or nested modal nodes), exactly as the parent's dispatch
// is built.
func NewNode(head kernel.Lit, rigid []RigidAtom, child *kernel.Kernel, childDispatch kernel.Dispatcher) *Node {
	return &Node{Head: head, Rigid: rigid, Child: child, Dispatch: childDispatch}
}

// SetWitness installs the universal-only approximation's witness
// literal and switches Approx to ApproxUniversalOnly.
func (n *Node) SetWitness(lit kernel.Lit) {
	n.Witness = lit
	n.hasWitness = true
	n.Approx = ApproxUniversalOnly
}

func (n *Node) Name() string { return "modal" }

// Propagate triggers only when the parent's head literal becomes true
// ("on assigning the head", spec §4.9); falsifying the head never
// invokes the child, since a false head makes no claim about the
// sub-theory.
func (n *Node) Propagate(ctx *theory.Context, lit kernel.Lit) *kernel.Conflict {
	if lit != n.Head {
		return nil
	}
	return n.checkChild(ctx)
}

func (n *Node) PropagateEndOfQueue(ctx *theory.Context) *kernel.Conflict { return nil }

// checkChild assumes every rigid atom's current parent-kernel value into
// the child kernel and solves it. An UNSAT child means the sub-theory
// cannot be satisfied under the rigid assignment the parent just
// committed to, which is reported as a conflict clause over the rigid
// atoms (spec §4.9: "any conflict is surfaced as a parent-level conflict
// clause over rigid atoms").
func (n *Node) checkChild(ctx *theory.Context) *kernel.Conflict {
	n.Child.ClearAssumptions()
	var conflictLits []kernel.Lit
	for _, r := range n.Rigid {
		val := ctx.Kernel().Value(r.Parent)
		if val == kernel.LUndef {
			continue
		}
		childLit := kernel.MkLit(r.Child, val == kernel.LFalse)
		n.Child.Assume(childLit)
		// conflictLits accumulates, for every rigid atom, the literal
		// that is currently FALSE under the parent's assignment — the
		// form a falsified conflict clause requires (kernel.Conflict:
		// "every literal in Lits is currently false").
		conflictLits = append(conflictLits, kernel.MkLit(r.Parent, val == kernel.LTrue))
	}
	if n.Approx == ApproxUniversalOnly && n.hasWitness {
		n.Child.Assume(n.Witness)
	}
	status := n.Child.Solve(n.Dispatch)
	if status == kernel.UNSAT {
		clause := append([]kernel.Lit{n.Head.Not()}, conflictLits...)
		return &kernel.Conflict{Lits: clause}
	}
	return nil
}

func (n *Node) Backtrack(untilLevel int, decisionLit kernel.Lit) {}

// Explain is unused: checkChild always returns an eager conflict clause
// directly, never a lazy theory token.
func (n *Node) Explain(lit kernel.Lit, token kernel.TheoryToken) []kernel.Lit { return nil }
