package metrics

import (
	"bytes"
	"regexp"

	"github.com/zheng/archscan/internal/graph"
)

const (
	// BaselineStability and BaselineCohesion are fixed; they do not vary with structure
	BaselineStability = 50
	BaselineCohesion  = 50

	maxScore = 100
)

// branchPatterns are the control-flow and branching tokens counted by Complexity
var branchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bif\s*\(`),
	regexp.MustCompile(`\bfor\s*\(`),
	regexp.MustCompile(`\bwhile\s*\(`),
	regexp.MustCompile(`\bcase\s+[^:\n]+:`),
	regexp.MustCompile(`\bcatch\b`),
	regexp.MustCompile(` \? `),
	regexp.MustCompile(`&&`),
	regexp.MustCompile(`\|\|`),
}

// Complexity scores control-flow density: (1 + branch tokens) * 2, clamped to 0-100
func Complexity(content []byte) int {
	score := 1
	for _, re := range branchPatterns {
		score += len(re.FindAllIndex(content, -1))
	}
	return clamp(score * 2)
}

// Coupling scores degree: min((in+out)*5, 100)
func Coupling(incoming, outgoing int) int {
	return clamp((incoming + outgoing) * 5)
}

// LinesOfCode counts lines in content, including a final line without newline
func LinesOfCode(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// Apply sets coupling from final degrees and the baseline stability/cohesion on every node.
// Must run after the graph builder finished.
func Apply(g *graph.Graph) {
	for _, n := range g.Nodes {
		n.Coupling = Coupling(n.Incoming, n.Outgoing)
		n.Stability = BaselineStability
		n.Cohesion = BaselineCohesion
	}
}

// Summary holds averages over a node set
type Summary struct {
	AverageComplexity float64 `json:"average_complexity"`
	AverageCoupling   float64 `json:"average_coupling"`
}

// Averages computes mean complexity and coupling, zero for an empty set
func Averages(nodes []*graph.Node) Summary {
	if len(nodes) == 0 {
		return Summary{}
	}
	var complexity, coupling int
	for _, n := range nodes {
		complexity += n.Complexity
		coupling += n.Coupling
	}
	total := float64(len(nodes))
	return Summary{
		AverageComplexity: float64(complexity) / total,
		AverageCoupling:   float64(coupling) / total,
	}
}

func clamp(v int) int {
	return max(0, min(v, maxScore))
}
