// Package graph holds the per-scan file import graph and the primitives
// detectors query: fan-in/out, strongly connected components, and orphan
// reachability. The graph is built once per scan and immutable afterwards.
package graph

import "sort"

// Graph is a directed multigraph over repository-relative file paths.
// Deferred edges (imports guarded by lazy constructs such as type-only
// imports or TYPE_CHECKING blocks) are tagged: they are excluded from cycle
// detection but retained for coupling metrics.
type Graph struct {
	edges    map[string]map[string]bool // from -> to, eager edges only
	deferred map[string]map[string]bool // from -> to, deferred edges
	reverse  map[string]map[string]bool // to -> from, eager + deferred
	nodes    map[string]bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		edges:    make(map[string]map[string]bool),
		deferred: make(map[string]map[string]bool),
		reverse:  make(map[string]map[string]bool),
		nodes:    make(map[string]bool),
	}
}

// AddNode registers a file even if it has no edges, so orphan detection
// sees every discovered file.
func (g *Graph) AddNode(file string) {
	g.nodes[file] = true
}

// AddEdge records an import from one file to another. Deferred edges are
// kept out of the eager edge set used by SCCs.
func (g *Graph) AddEdge(from, to string, deferredEdge bool) {
	g.nodes[from] = true
	g.nodes[to] = true

	target := g.edges
	if deferredEdge {
		target = g.deferred
	}
	if target[from] == nil {
		target[from] = make(map[string]bool)
	}
	target[from][to] = true

	if g.reverse[to] == nil {
		g.reverse[to] = make(map[string]bool)
	}
	g.reverse[to][from] = true
}

// ImportsOf returns the sorted files imported by f, eager and deferred.
func (g *Graph) ImportsOf(f string) []string {
	seen := make(map[string]bool)
	for to := range g.edges[f] {
		seen[to] = true
	}
	for to := range g.deferred[f] {
		seen[to] = true
	}
	return sortedKeys(seen)
}

// ImportersOf returns the sorted files that import f.
func (g *Graph) ImportersOf(f string) []string {
	return sortedKeys(g.reverse[f])
}

// FanOut counts distinct import targets of f, including deferred edges.
func (g *Graph) FanOut(f string) int {
	seen := make(map[string]bool)
	for to := range g.edges[f] {
		seen[to] = true
	}
	for to := range g.deferred[f] {
		seen[to] = true
	}
	return len(seen)
}

// FanIn counts distinct importers of f.
func (g *Graph) FanIn(f string) int {
	return len(g.reverse[f])
}

// Nodes returns all known files, sorted.
func (g *Graph) Nodes() []string {
	return sortedKeys(g.nodes)
}

// Orphans returns files with zero importers that are not entry points.
// isEntry is supplied by the language plugin.
func (g *Graph) Orphans(isEntry func(string) bool) []string {
	var out []string
	for f := range g.nodes {
		if g.FanIn(f) == 0 && !isEntry(f) {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// tarjanFrame is one entry of the explicit DFS stack used by SCCs.
type tarjanFrame struct {
	node  string
	succs []string
	next  int
}

// SCCs returns all strongly connected components of size >= 2, each sorted,
// ordered by their first member. Deferred edges do not participate.
//
// The implementation is an iterative Tarjan with an explicit stack:
// repositories routinely exceed recursion depth limits at 10^4+ nodes.
func (g *Graph) SCCs() [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var sccs [][]string

	succsOf := func(v string) []string {
		return sortedKeys(g.edges[v])
	}

	visit := func(root string) {
		frames := []tarjanFrame{{node: root, succs: succsOf(root)}}
		indices[root] = index
		lowlink[root] = index
		index++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			fr := &frames[len(frames)-1]
			if fr.next < len(fr.succs) {
				w := fr.succs[fr.next]
				fr.next++
				if _, visited := indices[w]; !visited {
					indices[w] = index
					lowlink[w] = index
					index++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, tarjanFrame{node: w, succs: succsOf(w)})
				} else if onStack[w] {
					if indices[w] < lowlink[fr.node] {
						lowlink[fr.node] = indices[w]
					}
				}
				continue
			}

			// All successors done: pop the frame, maybe pop an SCC.
			v := fr.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}
			if lowlink[v] == indices[v] {
				var scc []string
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				if len(scc) > 1 {
					sort.Strings(scc)
					sccs = append(sccs, scc)
				}
			}
		}
	}

	for _, node := range g.Nodes() {
		if _, visited := indices[node]; !visited {
			visit(node)
		}
	}

	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
