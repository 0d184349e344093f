package graph

// Graph is the node and edge set of one scan.
// After construction it is read-only except for circular marking.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`

	byID   map[string]*Node
	byPath map[string]*Node
}

// New wraps nodes and edges and indexes them
func New(nodes []*Node, edges []*Edge) *Graph {
	g := &Graph{Nodes: nodes, Edges: edges}
	g.reindex()
	return g
}

func (g *Graph) reindex() {
	g.byID = make(map[string]*Node, len(g.Nodes))
	g.byPath = make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		g.byID[n.ID] = n
		g.byPath[n.Path] = n
	}
}

// NodeByID looks up a node by id
func (g *Graph) NodeByID(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// NodeByPath looks up a node by relative path
func (g *Graph) NodeByPath(path string) (*Node, bool) {
	n, ok := g.byPath[path]
	return n, ok
}

// Adjacency maps each source id to its target ids in edge order
func (g *Graph) Adjacency() map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
	}
	return adj
}

// EdgesBetween indexes edges by ordered (source, target) pair
func (g *Graph) EdgesBetween() map[[2]string]*Edge {
	idx := make(map[[2]string]*Edge, len(g.Edges))
	for _, e := range g.Edges {
		idx[[2]string{e.SourceID, e.TargetID}] = e
	}
	return idx
}

// Incoming returns edges pointing at id
func (g *Graph) Incoming(id string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.TargetID == id {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns edges leaving id
func (g *Graph) Outgoing(id string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.SourceID == id {
			out = append(out, e)
		}
	}
	return out
}
