package definition

import "dpllt/pkg/dpllt/kernel"

// depGraph is an adjacency list over defined atoms: edge a -> b means
// rule for a has b as a positive body literal (negative-body edges are
// tracked separately for the mixed-dependency pass).
type depGraph struct {
	posAdj   map[kernel.Atom][]kernel.Atom
	mixedAdj map[kernel.Atom][]kernel.Atom // positive + negative edges
}

func newDepGraph() *depGraph {
	return &depGraph{posAdj: make(map[kernel.Atom][]kernel.Atom), mixedAdj: make(map[kernel.Atom][]kernel.Atom)}
}

func (g *depGraph) addEdge(from, to kernel.Atom, positive bool) {
	g.mixedAdj[from] = append(g.mixedAdj[from], to)
	if positive {
		g.posAdj[from] = append(g.posAdj[from], to)
	}
}

// tarjanResult maps every atom reachable in the graph to its SCC id
// (0-based) and records, per SCC id, its member atoms.
type tarjanResult struct {
	sccOf   map[kernel.Atom]int
	members [][]kernel.Atom
}

// tarjan runs Tarjan's SCC algorithm over adj, per spec §4.7 init step 2
// ("build the positive dependency graph and compute SCCs via Tarjan").
// Iterative to avoid recursion-depth issues on deep dependency chains,
// following the same explicit-stack shape gokando's tabling.go uses for
// its own dependency walk.
func tarjan(atoms []kernel.Atom, adj map[kernel.Atom][]kernel.Atom) *tarjanResult {
	index := make(map[kernel.Atom]int)
	low := make(map[kernel.Atom]int)
	onStack := make(map[kernel.Atom]bool)
	var stack []kernel.Atom
	counter := 0
	res := &tarjanResult{sccOf: make(map[kernel.Atom]int)}

	type frame struct {
		node   kernel.Atom
		childI int
	}

	var strongconnect func(start kernel.Atom)
	strongconnect = func(start kernel.Atom) {
		var work []frame
		work = append(work, frame{node: start})
		index[start] = counter
		low[start] = counter
		counter++
		stack = append(stack, start)
		onStack[start] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			v := top.node
			neighbors := adj[v]
			if top.childI < len(neighbors) {
				w := neighbors[top.childI]
				top.childI++
				if _, seen := index[w]; !seen {
					index[w] = counter
					low[w] = counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, frame{node: w})
				} else if onStack[w] {
					if low[w] < low[v] {
						low[v] = low[w]
					}
				}
				continue
			}
			// done with v's neighbors
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].node
				if low[v] < low[parent] {
					low[parent] = low[v]
				}
			}
			if low[v] == index[v] {
				sccID := len(res.members)
				var comp []kernel.Atom
				for {
					n := len(stack) - 1
					w := stack[n]
					stack = stack[:n]
					onStack[w] = false
					res.sccOf[w] = sccID
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				res.members = append(res.members, comp)
			}
		}
	}

	for _, a := range atoms {
		if _, seen := index[a]; !seen {
			strongconnect(a)
		}
	}
	return res
}

// classifySCCs tags each SCC id as Trivial (singleton with no positive
// self-loop) or PurePositive (size > 1, or a singleton with a positive
// self-loop), per spec §4.7 init steps 2-3. It never returns Mixed: an SCC
// of size > 1 is PurePositive whichever adjacency tr was computed over.
func classifySCCs(tr *tarjanResult, g *depGraph) []SCCClass {
	classes := make([]SCCClass, len(tr.members))
	for id, members := range tr.members {
		if len(members) > 1 {
			classes[id] = PurePositive
			continue
		}
		a := members[0]
		selfLoop := false
		for _, to := range g.posAdj[a] {
			if to == a {
				selfLoop = true
				break
			}
		}
		if selfLoop {
			classes[id] = PurePositive
		} else {
			classes[id] = Trivial
		}
	}
	return classes
}
