package suggest

import (
	"sort"

	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/metrics"
)

const topCoupledLimit = 10

// NodeBrief is the part of a node shown to the suggestion generator
type NodeBrief struct {
	Path     string `json:"path"`
	Type     string `json:"type"`
	Layer    string `json:"layer,omitempty"`
	Coupling int    `json:"coupling"`
	Incoming int    `json:"incoming"`
	Outgoing int    `json:"outgoing"`
}

// Summary is the JSON document sent to an external suggestion generator
type Summary struct {
	TotalNodes           int            `json:"total_nodes"`
	TotalEdges           int            `json:"total_edges"`
	NodesByType          map[string]int `json:"nodes_by_type"`
	NodesByLayer         map[string]int `json:"nodes_by_layer"`
	CircularDependencies int            `json:"circular_dependencies"`
	LayerViolations      int            `json:"layer_violations"`
	AverageComplexity    float64        `json:"average_complexity"`
	AverageCoupling      float64        `json:"average_coupling"`
	HighCouplingNodes    []NodeBrief    `json:"high_coupling_nodes"`
}

// Summarize condenses a graph and its findings
func Summarize(g *graph.Graph, cycles []detect.Cycle, violations []detect.Violation) Summary {
	s := Summary{
		TotalNodes:           len(g.Nodes),
		TotalEdges:           len(g.Edges),
		NodesByType:          make(map[string]int),
		NodesByLayer:         make(map[string]int),
		CircularDependencies: len(cycles),
		LayerViolations:      len(violations),
	}
	for _, n := range g.Nodes {
		s.NodesByType[string(n.Type)]++
		layer := n.LayerName()
		if layer == "" {
			layer = "unlayered"
		}
		s.NodesByLayer[layer]++
	}

	avg := metrics.Averages(g.Nodes)
	s.AverageComplexity = avg.AverageComplexity
	s.AverageCoupling = avg.AverageCoupling

	nodes := append([]*graph.Node(nil), g.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Coupling > nodes[j].Coupling })
	for i, n := range nodes {
		if i == topCoupledLimit {
			break
		}
		s.HighCouplingNodes = append(s.HighCouplingNodes, NodeBrief{
			Path:     n.Path,
			Type:     string(n.Type),
			Layer:    n.LayerName(),
			Coupling: n.Coupling,
			Incoming: n.Incoming,
			Outgoing: n.Outgoing,
		})
	}
	return s
}
