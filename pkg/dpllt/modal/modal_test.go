package modal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/theory"
)

// TestHeadTrueForcesConflictWhenChildUnsat builds a child kernel whose
// theory is unsatisfiable once the rigid atom is assumed true, and
// checks that asserting the parent's head forces a conflict over the
// rigid atom rather than silently accepting the head.
func TestHeadTrueForcesConflictWhenChildUnsat(t *testing.T) {
	parent := kernel.NewKernel(1)
	head := parent.NewAtom()
	rigidParent := parent.NewAtom()

	child := kernel.NewKernel(1)
	rigidChild := child.NewAtom()
	child.AddClause([]kernel.Lit{kernel.MkLit(rigidChild, false)})
	child.AddClause([]kernel.Lit{kernel.MkLit(rigidChild, true)}) // always UNSAT

	node := NewNode(kernel.MkLit(head, false), []RigidAtom{{Parent: rigidParent, Child: rigidChild}}, child, noopDispatch{})

	d := theory.New(parent)
	d.Register(node)
	d.Finalize()

	parent.AddClause([]kernel.Lit{kernel.MkLit(rigidParent, false)}) // assert rigid
	parent.AddClause([]kernel.Lit{kernel.MkLit(head, false)})        // assert head

	status := parent.Solve(d)
	require.Equal(t, kernel.UNSAT, status)
}

// TestHeadTrueAcceptedWhenChildSat checks the ordinary case: the child
// theory is satisfiable under the rigid assignment, so asserting the
// head succeeds.
func TestHeadTrueAcceptedWhenChildSat(t *testing.T) {
	parent := kernel.NewKernel(1)
	head := parent.NewAtom()
	rigidParent := parent.NewAtom()

	child := kernel.NewKernel(1)
	rigidChild := child.NewAtom()
	other := child.NewAtom()
	child.AddClause([]kernel.Lit{kernel.MkLit(rigidChild, false), kernel.MkLit(other, false)})

	node := NewNode(kernel.MkLit(head, false), []RigidAtom{{Parent: rigidParent, Child: rigidChild}}, child, noopDispatch{})

	d := theory.New(parent)
	d.Register(node)
	d.Finalize()

	parent.AddClause([]kernel.Lit{kernel.MkLit(rigidParent, false)})
	parent.AddClause([]kernel.Lit{kernel.MkLit(head, false)})

	status := parent.Solve(d)
	require.Equal(t, kernel.SAT, status)
}

type noopDispatch struct{}

func (noopDispatch) Propagate(lit kernel.Lit) *kernel.Conflict { return nil }
func (noopDispatch) PropagateEndOfQueue() *kernel.Conflict     { return nil }
func (noopDispatch) Backtrack(untilLevel int, decisionLit kernel.Lit) {}
func (noopDispatch) Explain(lit kernel.Lit, token kernel.TheoryToken) []kernel.Lit { return nil }
