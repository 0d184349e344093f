package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zheng/archscan/internal/graph"
)

// Mermaid renders the graph as a layered flowchart.
// Circular edges are drawn in red; when maxNodes > 0 only the most connected nodes are kept.
func Mermaid(g *graph.Graph, maxNodes int) string {
	nodes := keepTop(g.Nodes, maxNodes)

	ids := make(map[string]string, len(nodes))
	for i, n := range nodes {
		ids[n.ID] = fmt.Sprintf("n%d", i)
	}

	var sb strings.Builder
	sb.WriteString("flowchart TB\n")

	byLayer := groupByLayer(nodes)
	for _, key := range layerKeys() {
		members := byLayer[key]
		if len(members) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "    subgraph %s [%s]\n", key, getLayerDisplayName(key))
		for _, n := range members {
			fmt.Fprintf(&sb, "        %s[\"%s\"]\n", ids[n.ID], escapeLabel(n.Path))
		}
		sb.WriteString("    end\n")
	}

	var circularLinks []string
	circularNodes := make(map[string]bool)
	link := 0
	for _, e := range g.Edges {
		from, ok1 := ids[e.SourceID]
		to, ok2 := ids[e.TargetID]
		if !ok1 || !ok2 {
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
		if e.Circular {
			circularLinks = append(circularLinks, fmt.Sprint(link))
			circularNodes[from] = true
			circularNodes[to] = true
		}
		link++
	}

	if len(circularLinks) > 0 {
		fmt.Fprintf(&sb, "    linkStyle %s stroke:#e53935,stroke-width:2px\n", strings.Join(circularLinks, ","))

		var names []string
		for id := range circularNodes {
			names = append(names, id)
		}
		sort.Strings(names)
		sb.WriteString("    classDef circular fill:#ffebee,stroke:#e53935\n")
		fmt.Fprintf(&sb, "    class %s circular\n", strings.Join(names, ","))
	}
	return sb.String()
}

// keepTop returns nodes unchanged under the limit, otherwise the most connected ones in original order
func keepTop(nodes []*graph.Node, limit int) []*graph.Node {
	if limit <= 0 || len(nodes) <= limit {
		return nodes
	}
	ranked := append([]*graph.Node(nil), nodes...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Degree() > ranked[j].Degree() })

	keep := make(map[string]bool, limit)
	for _, n := range ranked[:limit] {
		keep[n.ID] = true
	}
	out := make([]*graph.Node, 0, limit)
	for _, n := range nodes {
		if keep[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
