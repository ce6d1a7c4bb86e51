package graph

import (
	"fmt"
	"reflect"
	"testing"
)

func TestFanInFanOut(t *testing.T) {
	g := New()
	g.AddEdge("a.py", "b.py", false)
	g.AddEdge("a.py", "c.py", false)
	g.AddEdge("a.py", "c.py", true) // duplicate via deferred still counts once
	g.AddEdge("d.py", "c.py", false)

	if got := g.FanOut("a.py"); got != 2 {
		t.Errorf("FanOut(a) = %d", got)
	}
	if got := g.FanIn("c.py"); got != 2 {
		t.Errorf("FanIn(c) = %d", got)
	}
	if got := g.ImportersOf("c.py"); !reflect.DeepEqual(got, []string{"a.py", "d.py"}) {
		t.Errorf("ImportersOf(c) = %v", got)
	}
	if got := g.ImportsOf("a.py"); !reflect.DeepEqual(got, []string{"b.py", "c.py"}) {
		t.Errorf("ImportsOf(a) = %v", got)
	}
}

func TestSCCs(t *testing.T) {
	g := New()
	// Cycle 1: a <-> b. Cycle 2: c -> d -> e -> c. f is acyclic.
	g.AddEdge("a.py", "b.py", false)
	g.AddEdge("b.py", "a.py", false)
	g.AddEdge("c.py", "d.py", false)
	g.AddEdge("d.py", "e.py", false)
	g.AddEdge("e.py", "c.py", false)
	g.AddEdge("f.py", "a.py", false)

	got := g.SCCs()
	want := [][]string{
		{"a.py", "b.py"},
		{"c.py", "d.py", "e.py"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SCCs = %v, want %v", got, want)
	}
}

func TestSCCsExcludeDeferredEdges(t *testing.T) {
	g := New()
	// The back edge is deferred (type-only import): no cycle.
	g.AddEdge("a.py", "b.py", false)
	g.AddEdge("b.py", "a.py", true)

	if got := g.SCCs(); len(got) != 0 {
		t.Fatalf("deferred edge produced a cycle: %v", got)
	}
	// But coupling metrics still see it.
	if g.FanOut("b.py") != 1 || g.FanIn("a.py") != 1 {
		t.Error("deferred edge missing from fan counts")
	}
}

func TestSCCsDeepChainIterative(t *testing.T) {
	// A long path plus a closing edge: one big SCC, no stack overflow.
	g := New()
	n := 50000
	name := func(i int) string { return fmt.Sprintf("f%06d.py", i) }
	for i := 0; i < n-1; i++ {
		g.AddEdge(name(i), name(i+1), false)
	}
	g.AddEdge(name(n-1), name(0), false)

	got := g.SCCs()
	if len(got) != 1 || len(got[0]) != n {
		t.Fatalf("deep cycle: %d components, first size %d", len(got), len(got[0]))
	}
}

func TestOrphans(t *testing.T) {
	g := New()
	g.AddEdge("main.py", "lib.py", false)
	g.AddNode("dead.py")
	g.AddNode("cli.py")

	isEntry := func(f string) bool { return f == "main.py" || f == "cli.py" }
	got := g.Orphans(isEntry)
	if !reflect.DeepEqual(got, []string{"dead.py"}) {
		t.Errorf("Orphans = %v", got)
	}
}

func TestNodesIncludeEdgeEndpoints(t *testing.T) {
	g := New()
	g.AddEdge("x.py", "y.py", false)
	g.AddNode("z.py")
	if got := g.Nodes(); !reflect.DeepEqual(got, []string{"x.py", "y.py", "z.py"}) {
		t.Errorf("Nodes = %v", got)
	}
}
