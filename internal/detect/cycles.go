// Package detect finds structural problems in a built dependency graph:
// circular chains, layer violations and modules worth extracting.
package detect

import (
	"strings"

	"github.com/zheng/archscan/internal/graph"
)

// Severity ranks a cycle for prioritization
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Cycle is a closed chain of node ids; the first and last element are equal
type Cycle struct {
	NodeIDs []string `json:"node_ids"`
}

// Len is the number of distinct nodes in the cycle
func (c Cycle) Len() int {
	if len(c.NodeIDs) == 0 {
		return 0
	}
	return len(c.NodeIDs) - 1
}

// Severity is high for cycles longer than 3, medium otherwise
func (c Cycle) Severity() Severity {
	if c.Len() > 3 {
		return SeverityHigh
	}
	return SeverityMedium
}

// EdgeIDs returns the ids of the edges along the cycle, skipping missing pairs
func (c Cycle) EdgeIDs(g *graph.Graph) []string {
	idx := g.EdgesBetween()
	var ids []string
	for i := 0; i+1 < len(c.NodeIDs); i++ {
		if e, ok := idx[[2]string{c.NodeIDs[i], c.NodeIDs[i+1]}]; ok {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Paths renders the cycle as relative paths, falling back to ids
func (c Cycle) Paths(g *graph.Graph) []string {
	out := make([]string, len(c.NodeIDs))
	for i, id := range c.NodeIDs {
		if n, ok := g.NodeByID(id); ok {
			out[i] = n.Path
		} else {
			out[i] = id
		}
	}
	return out
}

// key identifies a cycle independent of its starting node
func (c Cycle) key() string {
	open := c.NodeIDs[:c.Len()]
	start := 0
	for i, id := range open {
		if id < open[start] {
			start = i
		}
	}
	rotated := make([]string, 0, len(open))
	rotated = append(rotated, open[start:]...)
	rotated = append(rotated, open[:start]...)
	return strings.Join(rotated, ",")
}

type frame struct {
	node int
	next int
}

// FindCycles runs an iterative depth-first search from every unvisited node in node order.
// A back edge to a node on the recursion stack records the stack slice from that node
// through the current node, closed by repeating the first element.
func FindCycles(g *graph.Graph) []Cycle {
	n := len(g.Nodes)
	index := make(map[string]int, n)
	for i, node := range g.Nodes {
		index[node.ID] = i
	}
	adj := make([][]int, n)
	for _, e := range g.Edges {
		s, ok1 := index[e.SourceID]
		t, ok2 := index[e.TargetID]
		if ok1 && ok2 {
			adj[s] = append(adj[s], t)
		}
	}

	visited := make([]bool, n)
	onStack := make([]bool, n)
	pos := make([]int, n) // position on the path while onStack
	var path []int
	var stack []frame

	seen := make(map[string]bool)
	var cycles []Cycle

	for root := 0; root < n; root++ {
		if visited[root] {
			continue
		}
		visited[root], onStack[root] = true, true
		pos[root] = 0
		path = append(path[:0], root)
		stack = append(stack[:0], frame{node: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			v := top.node
			if top.next < len(adj[v]) {
				w := adj[v][top.next]
				top.next++
				switch {
				case onStack[w]:
					ids := make([]string, 0, len(path)-pos[w]+1)
					for _, idx := range path[pos[w]:] {
						ids = append(ids, g.Nodes[idx].ID)
					}
					ids = append(ids, g.Nodes[w].ID)
					c := Cycle{NodeIDs: ids}
					if k := c.key(); !seen[k] {
						seen[k] = true
						cycles = append(cycles, c)
					}
				case !visited[w]:
					visited[w], onStack[w] = true, true
					pos[w] = len(path)
					path = append(path, w)
					stack = append(stack, frame{node: w})
				}
				continue
			}
			onStack[v] = false
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}
	return cycles
}

// MarkCircular forces every edge on a cycle to the circular weight.
// It mutates the graph and must finish before downstream readers run.
func MarkCircular(g *graph.Graph, cycles []Cycle) int {
	idx := g.EdgesBetween()
	marked := 0
	for _, c := range cycles {
		for i := 0; i+1 < len(c.NodeIDs); i++ {
			e, ok := idx[[2]string{c.NodeIDs[i], c.NodeIDs[i+1]}]
			if !ok || e.Circular {
				continue
			}
			e.Weight = graph.WeightCircular
			e.Circular = true
			marked++
		}
	}
	return marked
}
