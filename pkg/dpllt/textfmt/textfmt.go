// Package textfmt implements the minimal human-readable constraint format
// spec §6 calls out ("human-readable") and §8's round-trip testable
// property depends on: serialize the internal theory, re-parse, solve
// again, expect the identical SAT/UNSAT status. This is deliberately not a
// general-purpose constraint-language parser (DIMACS/ECNF/OPB/LParse/
// FlatZinc are explicitly out of scope per spec §6) — only enough surface
// to round-trip what a Solver itself can express: clauses, sets,
// aggregates, and rules.
package textfmt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"dpllt/pkg/dpllt/aggregate"
	"dpllt/pkg/dpllt/kernel"
	"dpllt/pkg/dpllt/solver"
	"dpllt/pkg/dpllt/weight"
)

// ErrMalformedLine is wrapped with line content for every parse failure.
var ErrMalformedLine = errors.New("textfmt: malformed line")

// Theory is the in-memory, solver-agnostic form Write/Parse exchange:
// every constraint a Solver accepts, named by dense external ids so a
// round trip never depends on a live kernel's atom allocation order.
type Theory struct {
	NAtoms  int
	Clauses [][]int // signed 1-based atom ids: positive = atom, negative = its negation
	Rules   []RuleLine
	Sets    []SetLine
	Aggs    []AggLine
}

type RuleLine struct {
	Head        int
	Body        []int
	Conjunctive bool
	DefID       int
}

type SetLine struct {
	ID   int
	Type aggregate.Type
	Lits []int
	Wts  []int64
}

type AggLine struct {
	Head  int
	SetID int
	Bound int64
	Sign  aggregate.Sign
	Sem   aggregate.Semantics
	DefID int
}

// litString renders a signed literal: positive atom id, negative for ¬.
func litString(a int, neg bool) string {
	if neg {
		return "-" + strconv.Itoa(a)
	}
	return strconv.Itoa(a)
}

func parseLit(tok string) (int, bool, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false, errors.Wrapf(ErrMalformedLine, "literal %q", tok)
	}
	if n < 0 {
		return -n, true, nil
	}
	return n, false, nil
}

// Write serializes t in the line-oriented format:
//
//	n <count>                          -- atom count, one line, first
//	c <lit...>                         -- clause
//	r <head> <: | ::> <body...> <defID> -- rule (: = disjunctive, :: = conjunctive)
//	s <id> <CARD|SUM|PROD|MIN|MAX> <lit>:<weight> ...
//	a <head> <setID> <UB|LB> <bound> <COMP|DEF|IMPL> <defID>
func Write(w io.Writer, t Theory) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "n %d\n", t.NAtoms)
	for _, c := range t.Clauses {
		parts := make([]string, len(c))
		for i, l := range c {
			if l < 0 {
				parts[i] = litString(-l, true)
			} else {
				parts[i] = litString(l, false)
			}
		}
		fmt.Fprintf(bw, "c %s\n", strings.Join(parts, " "))
	}
	for _, r := range t.Rules {
		op := ":"
		if r.Conjunctive {
			op = "::"
		}
		parts := make([]string, len(r.Body))
		for i, l := range r.Body {
			parts[i] = strconv.Itoa(l)
		}
		fmt.Fprintf(bw, "r %d %s %s %d\n", r.Head, op, strings.Join(parts, " "), r.DefID)
	}
	for _, s := range t.Sets {
		parts := make([]string, len(s.Lits))
		for i, l := range s.Lits {
			parts[i] = fmt.Sprintf("%d:%d", l, s.Wts[i])
		}
		fmt.Fprintf(bw, "s %d %s %s\n", s.ID, s.Type.String(), strings.Join(parts, " "))
	}
	for _, a := range t.Aggs {
		fmt.Fprintf(bw, "a %d %d %s %d %s %d\n", a.Head, a.SetID, a.Sign.String(), a.Bound, semString(a.Sem), a.DefID)
	}
	return bw.Flush()
}

func semString(s aggregate.Semantics) string {
	switch s {
	case aggregate.Def:
		return "DEF"
	case aggregate.Impl:
		return "IMPL"
	default:
		return "COMP"
	}
}

func parseSem(s string) (aggregate.Semantics, error) {
	switch s {
	case "COMP":
		return aggregate.Comp, nil
	case "DEF":
		return aggregate.Def, nil
	case "IMPL":
		return aggregate.Impl, nil
	default:
		return 0, errors.Wrapf(ErrMalformedLine, "semantics %q", s)
	}
}

func parseType(s string) (aggregate.Type, error) {
	switch s {
	case "CARD":
		return aggregate.Card, nil
	case "SUM":
		return aggregate.Sum, nil
	case "PROD":
		return aggregate.Prod, nil
	case "MIN":
		return aggregate.Min, nil
	case "MAX":
		return aggregate.Max, nil
	default:
		return 0, errors.Wrapf(ErrMalformedLine, "set type %q", s)
	}
}

func parseSign(s string) (aggregate.Sign, error) {
	switch s {
	case "UB":
		return aggregate.UB, nil
	case "LB":
		return aggregate.LB, nil
	default:
		return 0, errors.Wrapf(ErrMalformedLine, "sign %q", s)
	}
}

// Parse reads a Theory back out of the format Write produces.
func Parse(r io.Reader) (Theory, error) {
	var t Theory
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "n":
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return Theory{}, errors.Wrapf(ErrMalformedLine, "atom count: %q", line)
			}
			t.NAtoms = n
		case "c":
			lits := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				n, err := strconv.Atoi(f)
				if err != nil {
					return Theory{}, errors.Wrapf(ErrMalformedLine, "clause: %q", line)
				}
				lits = append(lits, n)
			}
			t.Clauses = append(t.Clauses, lits)
		case "r":
			if len(fields) < 4 {
				return Theory{}, errors.Wrapf(ErrMalformedLine, "rule: %q", line)
			}
			head, err := strconv.Atoi(fields[1])
			if err != nil {
				return Theory{}, errors.Wrapf(ErrMalformedLine, "rule head: %q", line)
			}
			conj := fields[2] == "::"
			defID, err := strconv.Atoi(fields[len(fields)-1])
			if err != nil {
				return Theory{}, errors.Wrapf(ErrMalformedLine, "rule defID: %q", line)
			}
			body := make([]int, 0, len(fields)-4)
			for _, f := range fields[3 : len(fields)-1] {
				n, err := strconv.Atoi(f)
				if err != nil {
					return Theory{}, errors.Wrapf(ErrMalformedLine, "rule body: %q", line)
				}
				body = append(body, n)
			}
			t.Rules = append(t.Rules, RuleLine{Head: head, Body: body, Conjunctive: conj, DefID: defID})
		case "s":
			if len(fields) < 3 {
				return Theory{}, errors.Wrapf(ErrMalformedLine, "set: %q", line)
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				return Theory{}, errors.Wrapf(ErrMalformedLine, "set id: %q", line)
			}
			typ, err := parseType(fields[2])
			if err != nil {
				return Theory{}, err
			}
			var lits []int
			var wts []int64
			for _, f := range fields[3:] {
				parts := strings.SplitN(f, ":", 2)
				if len(parts) != 2 {
					return Theory{}, errors.Wrapf(ErrMalformedLine, "set wl: %q", f)
				}
				l, err := strconv.Atoi(parts[0])
				if err != nil {
					return Theory{}, errors.Wrapf(ErrMalformedLine, "set wl lit: %q", f)
				}
				w, err := strconv.ParseInt(parts[1], 10, 64)
				if err != nil {
					return Theory{}, errors.Wrapf(ErrMalformedLine, "set wl weight: %q", f)
				}
				lits = append(lits, l)
				wts = append(wts, w)
			}
			t.Sets = append(t.Sets, SetLine{ID: id, Type: typ, Lits: lits, Wts: wts})
		case "a":
			if len(fields) != 7 {
				return Theory{}, errors.Wrapf(ErrMalformedLine, "aggregate: %q", line)
			}
			head, err1 := strconv.Atoi(fields[1])
			setID, err2 := strconv.Atoi(fields[2])
			sign, err3 := parseSign(fields[3])
			bound, err4 := strconv.ParseInt(fields[4], 10, 64)
			sem, err5 := parseSem(fields[5])
			defID, err6 := strconv.Atoi(fields[6])
			if err1 != nil || err2 != nil || err4 != nil || err6 != nil {
				return Theory{}, errors.Wrapf(ErrMalformedLine, "aggregate: %q", line)
			}
			if err3 != nil {
				return Theory{}, err3
			}
			if err5 != nil {
				return Theory{}, err5
			}
			t.Aggs = append(t.Aggs, AggLine{Head: head, SetID: setID, Bound: bound, Sign: sign, Sem: sem, DefID: defID})
		default:
			return Theory{}, errors.Wrapf(ErrMalformedLine, "unknown record: %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		return Theory{}, errors.Wrap(err, "textfmt: scan")
	}
	return t, nil
}

// Load installs every record of t into a freshly-atom'd Solver, mapping
// the Theory's 1-based external atom ids onto atoms minted in order so a
// reparsed Theory reproduces the same id <-> kernel.Atom correspondence
// every time (spec §8's round-trip property: "identical SAT/UNSAT status
// and an equivalent model").
func Load(s *solver.Solver, t Theory) error {
	atoms := make([]kernel.Atom, t.NAtoms+1)
	for i := 1; i <= t.NAtoms; i++ {
		atoms[i] = s.NewAtom()
	}
	toLit := func(signed int) kernel.Lit {
		if signed < 0 {
			return kernel.MkLit(atoms[-signed], true)
		}
		return kernel.MkLit(atoms[signed], false)
	}

	for _, c := range t.Clauses {
		lits := make([]kernel.Lit, len(c))
		for i, l := range c {
			lits[i] = toLit(l)
		}
		s.AddClause(lits)
	}
	for _, r := range t.Rules {
		body := make([]kernel.Lit, len(r.Body))
		for i, l := range r.Body {
			body[i] = toLit(l)
		}
		s.AddRule(atoms[r.Head], body, r.Conjunctive, r.DefID)
	}
	mode := s.Mode()
	for _, set := range t.Sets {
		wls := make([]solver.WL, len(set.Lits))
		for i, l := range set.Lits {
			wls[i] = solver.WL{Lit: toLit(l), Weight: weight.FromInt64(mode, set.Wts[i])}
		}
		if _, err := s.AddSet(set.ID, wls, set.Type); err != nil {
			return err
		}
	}
	for _, a := range t.Aggs {
		if _, err := s.AddAggregate(toLit(a.Head), a.SetID, weight.FromInt64(mode, a.Bound), a.Sign, a.Sem, a.DefID); err != nil {
			return err
		}
	}
	return nil
}
