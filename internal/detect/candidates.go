package detect

import (
	"fmt"
	"sort"

	"github.com/zheng/archscan/internal/graph"
)

// MinCandidateScore is the score a node must exceed to be reported
const MinCandidateScore = 30

// Candidate is a node worth extracting or splitting
type Candidate struct {
	Node    *graph.Node `json:"node"`
	Score   int         `json:"score"`
	Reasons []string    `json:"reasons"`
}

type signal struct {
	points int
	hit    func(n *graph.Node) bool
	reason func(n *graph.Node) string
}

var signals = []signal{
	{30, func(n *graph.Node) bool { return n.Coupling > 70 },
		func(n *graph.Node) string { return fmt.Sprintf("high coupling (%d)", n.Coupling) }},
	{25, func(n *graph.Node) bool { return n.Outgoing > 10 },
		func(n *graph.Node) string { return fmt.Sprintf("depends on %d modules", n.Outgoing) }},
	{20, func(n *graph.Node) bool { return n.Incoming > 15 },
		func(n *graph.Node) string { return fmt.Sprintf("used by %d modules", n.Incoming) }},
	{25, func(n *graph.Node) bool { return n.Complexity > 60 },
		func(n *graph.Node) string { return fmt.Sprintf("high complexity (%d)", n.Complexity) }},
	{15, func(n *graph.Node) bool { return n.LinesOfCode > 500 },
		func(n *graph.Node) string { return fmt.Sprintf("large file (%d lines)", n.LinesOfCode) }},
}

// ExtractionCandidates scores every node and returns those above MinCandidateScore,
// highest score first; equal scores keep node order
func ExtractionCandidates(nodes []*graph.Node) []Candidate {
	var out []Candidate
	for _, n := range nodes {
		c := Candidate{Node: n}
		for _, s := range signals {
			if s.hit(n) {
				c.Score += s.points
				c.Reasons = append(c.Reasons, s.reason(n))
			}
		}
		if c.Score > MinCandidateScore {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
