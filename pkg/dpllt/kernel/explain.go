package kernel

// Entailed returns every literal currently forced at decision level 0,
// i.e. the `entailed()` operation of spec §6 after unit propagation alone
// (before any decision is taken).
func (k *Kernel) Entailed() []Lit {
	var out []Lit
	for i := 0; i < k.trail.Len(); i++ {
		lit := k.trail.At(i)
		if k.trail.Level(lit.Var()) == 0 {
			out = append(out, lit)
		} else {
			break
		}
	}
	return out
}

// UnsatCore returns, in trail order, every given marker whose literal is
// currently false on the trail. It does not re-run conflict analysis or
// inspect a resolution trace, so the result is neither minimized nor
// limited to the markers a refutation actually used. This grounds spec
// §6's `unsat_core()` on original_source's marker-based extraction
// (Run.hpp / PCSolver.cpp), which spec.md declares by signature only.
//
// Callers assume each marker literal via Assume before calling Solve; if
// Solve returns UNSAT, UnsatCore(markers) lists the markers found false.
func (k *Kernel) UnsatCore(markers []Lit) []Lit {
	markerSet := make(map[Atom]Lit, len(markers))
	for _, m := range markers {
		markerSet[m.Var()] = m
	}
	var core []Lit
	seen := make(map[Atom]bool)
	for i := 0; i < k.trail.Len(); i++ {
		lit := k.trail.At(i)
		a := lit.Var()
		if seen[a] {
			continue
		}
		if m, ok := markerSet[a]; ok && k.trail.LitValue(m) == LFalse {
			seen[a] = true
			core = append(core, m)
		}
	}
	return core
}
