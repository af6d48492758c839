package models

import "testing"

func TestGraphAddEdge_Dedup(t *testing.T) {
	g := NewGraph()
	g.EnsureNode("decision-a", "A")
	g.EnsureNode("gotcha-b", "B")

	if !g.AddEdge("decision-a", "gotcha-b", RelationRelatesTo) {
		t.Error("first edge should be added")
	}
	if g.AddEdge("decision-a", "gotcha-b", RelationRelatesTo) {
		t.Error("duplicate triple should be rejected")
	}
	// Same pair, different relation, is a distinct edge.
	if !g.AddEdge("decision-a", "gotcha-b", RelationInforms) {
		t.Error("distinct relation should be added")
	}
	if len(g.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(g.Edges))
	}
}

func TestGraphEnsureNode_RefreshesTitle(t *testing.T) {
	g := NewGraph()
	g.EnsureNode("decision-a", "old")
	g.EnsureNode("decision-a", "new")
	if len(g.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(g.Nodes))
	}
	if g.Nodes[0].Title != "new" {
		t.Errorf("title = %q, want %q", g.Nodes[0].Title, "new")
	}
}

func TestGraphRemoveEdges(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a-x", "b-y", RelationRelatesTo)
	g.AddEdge("a-x", "b-y", RelationInforms)
	g.AddEdge("b-y", "a-x", RelationRelatesTo)

	if n := g.RemoveEdges("a-x", "b-y", RelationInforms); n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	// Empty relation removes everything between the pair, one direction only.
	if n := g.RemoveEdges("a-x", "b-y", ""); n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if len(g.Edges) != 1 || g.Edges[0].Source != "b-y" {
		t.Errorf("reverse edge must survive: %+v", g.Edges)
	}
}

func TestGraphRemoveNode(t *testing.T) {
	g := NewGraph()
	g.EnsureNode("a-x", "A")
	g.EnsureNode("b-y", "B")
	g.EnsureNode("c-z", "C")
	g.AddEdge("a-x", "b-y", RelationRelatesTo)
	g.AddEdge("b-y", "c-z", RelationRelatesTo)
	g.AddEdge("a-x", "c-z", RelationRelatesTo)

	g.RemoveNode("b-y")

	if g.HasNode("b-y") {
		t.Error("node still present")
	}
	if len(g.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(g.Edges))
	}
	if g.Edges[0].Source != "a-x" || g.Edges[0].Target != "c-z" {
		t.Errorf("wrong surviving edge: %+v", g.Edges[0])
	}
}

func TestGraphDegreeAndBacklinks(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a-x", "c-z", RelationRelatesTo)
	g.AddEdge("b-y", "c-z", RelationInforms)

	if d := g.Degree("c-z"); d != 2 {
		t.Errorf("degree = %d, want 2", d)
	}
	if d := g.Degree("unknown-q"); d != 0 {
		t.Errorf("degree = %d, want 0", d)
	}
	bl := g.Backlinks("c-z")
	if len(bl) != 2 || bl[0] != "a-x" || bl[1] != "b-y" {
		t.Errorf("backlinks = %v", bl)
	}
}
