package models

// GraphVersion is the current on-disk graph format version.
const GraphVersion = 1

// GraphNode is a record's presence in the graph: its id plus a display title.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// GraphEdge is a directed, labeled link between two record ids.
type GraphEdge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Relation Relation `json:"relation"`
}

// Graph is the typed adjacency structure for one scope root. Edges are
// unique by (source, target, relation).
type Graph struct {
	Version int         `json:"version"`
	Nodes   []GraphNode `json:"nodes"`
	Edges   []GraphEdge `json:"edges"`
}

// NewGraph returns an empty graph at the current version.
func NewGraph() *Graph {
	return &Graph{Version: GraphVersion, Nodes: []GraphNode{}, Edges: []GraphEdge{}}
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return true
		}
	}
	return false
}

// EnsureNode adds a node if absent and refreshes its title otherwise.
func (g *Graph) EnsureNode(id, title string) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			g.Nodes[i].Title = title
			return
		}
	}
	g.Nodes = append(g.Nodes, GraphNode{ID: id, Title: title})
}

// AddEdge appends a directed edge unless the exact (source, target, relation)
// triple already exists. Returns true when the edge was added.
func (g *Graph) AddEdge(source, target string, rel Relation) bool {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target && e.Relation == rel {
			return false
		}
	}
	g.Edges = append(g.Edges, GraphEdge{Source: source, Target: target, Relation: rel})
	return true
}

// RemoveEdges deletes edges from source to target. An empty relation removes
// every edge between the pair; otherwise only the matching label. Returns the
// number of edges removed.
func (g *Graph) RemoveEdges(source, target string, rel Relation) int {
	kept := g.Edges[:0]
	removed := 0
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target && (rel == "" || e.Relation == rel) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	g.Edges = kept
	return removed
}

// RemoveNode drops the node with the given id and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	nodes := g.Nodes[:0]
	for _, n := range g.Nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	g.Nodes = nodes

	edges := g.Edges[:0]
	for _, e := range g.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	g.Edges = edges
}

// Degree returns the number of edges incident to id, in either direction.
func (g *Graph) Degree(id string) int {
	n := 0
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			n++
		}
	}
	return n
}

// Backlinks returns the source ids of every edge pointing at target.
func (g *Graph) Backlinks(target string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Target == target {
			out = append(out, e.Source)
		}
	}
	return out
}
