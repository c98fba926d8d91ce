// Package definition implements the well-founded/stable definition
// engine: SCC computation over the positive dependency graph, per-atom
// justification tracking, unfounded-set (UFS) search, and loop-formula
// emission (spec §4.7). Tarjan's algorithm and the cycle-source-driven
// fixpoint are grounded on gokando's tabling.go/slg_engine.go, which
// already maintain a dependency graph and a worklist of atoms whose
// support needs re-derivation for tabled Prolog evaluation; this package
// repurposes that same worklist shape for ASP-style justification
// instead of memo-table invalidation.
package definition

import "dpllt/pkg/dpllt/kernel"

// RuleKind tags how a rule's body literals combine to support its head,
// per spec §3's Rule primitive.
type RuleKind int

const (
	// Disj: any single true body literal justifies the head (multiple
	// DISJ rules for the same head are folded by the caller before
	// reaching this package, per spec §3: "every head atom has at most
	// one disjunctive rule").
	Disj RuleKind = iota
	Conj
	Aggr
)

// RuleID identifies a rule within a Store.
type RuleID int

// Rule is (head-atom, body-literals, conjunctive-flag, defID) per spec §3.
type Rule struct {
	ID    RuleID
	Head  kernel.Atom
	Body  []kernel.Lit
	Kind  RuleKind
	DefID int
	// AggCanJustify is supplied only for Kind == Aggr and answers whether
	// the aggregate can justify the head. The closure Solver.AddAggrRule
	// installs only checks that the aggregate still exists; the aggregate
	// package has no canJustifyHead check to delegate to.
	AggCanJustify func(supportingBody []kernel.Lit) bool
}

// Semantics selects which model class Solve computes, per spec §6's
// def_semantics option.
type Semantics int

const (
	Stable Semantics = iota
	WellFounded
	Completion
)

// SCCClass tags whether an SCC participates in unfounded-set search.
type SCCClass int

const (
	// Trivial: no positive self-loop; takes no part in unfounded-set
	// search. No equivalence clauses are added for such atoms.
	Trivial SCCClass = iota
	// PurePositive: a genuine positive-dependency cycle; relevant to
	// unfounded-set search.
	PurePositive
	// Mixed: contains a cycle only through a mix of positive and
	// negative edges; relevant only to well-founded checking, never UFS
	// search (spec §4.7).
	Mixed
)
