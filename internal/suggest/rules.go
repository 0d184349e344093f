package suggest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/graph"
)

const (
	maxExtractSuggestions = 5

	smallUtilityLOC       = 50
	smallUtilityMaxDegree = 2
	minSmallUtilities     = 5
)

// Rules generates the rule-based suggestions: cycles, then layer violations,
// then extraction candidates, then utility consolidation
func Rules(in Input) []Suggestion {
	now := time.Now().UTC()
	var out []Suggestion
	add := func(s Suggestion) {
		s.ID = uuid.NewString()
		s.ProjectID = in.ProjectID
		s.Source = SourceRule
		s.CreatedAt = now
		out = append(out, s)
	}

	for _, c := range in.Cycles {
		add(breakCircular(in.Graph, c))
	}
	if s, ok := moveToLayer(in.Violations); ok {
		add(s)
	}
	for i, c := range in.Candidates {
		if i == maxExtractSuggestions {
			break
		}
		add(extractModule(c))
	}
	if s, ok := consolidateUtilities(in.Graph); ok {
		add(s)
	}
	return out
}

func breakCircular(g *graph.Graph, c detect.Cycle) Suggestion {
	n := c.Len()
	priority := PriorityMedium
	switch {
	case n > 4:
		priority = PriorityCritical
	case n > 2:
		priority = PriorityHigh
	}
	paths := c.Paths(g)
	return Suggestion{
		Type:     TypeBreakCircular,
		Priority: priority,
		Title:    fmt.Sprintf("Break circular dependency between %d modules", n),
		Description: fmt.Sprintf("The modules %s reference each other in a closed chain. "+
			"Extract the shared contract into a separate module or invert one of the references.",
			strings.Join(paths, " -> ")),
		Reasoning: "Circular references make the modules impossible to load, test or change independently " +
			"and often hide initialization-order bugs.",
		AffectedNodes: append([]string(nil), c.NodeIDs[:n]...),
		AffectedEdges: c.EdgeIDs(g),
		Effort:        scale(2 + n),
		Impact:        scale(5 + n),
		Risk:          scale(3 + n/2),
	}
}

func moveToLayer(violations []detect.Violation) (Suggestion, bool) {
	var nodes, edges, lines []string
	seen := make(map[string]bool)
	for _, v := range violations {
		if v.Kind != detect.ViolationServerToClient {
			continue
		}
		edges = append(edges, v.Edge.ID)
		lines = append(lines, "- "+v.Description)
		for _, id := range []string{v.Source.ID, v.Target.ID} {
			if !seen[id] {
				seen[id] = true
				nodes = append(nodes, id)
			}
		}
	}
	count := len(edges)
	if count == 0 {
		return Suggestion{}, false
	}

	priority := PriorityHigh
	if count > 5 {
		priority = PriorityCritical
	}
	return Suggestion{
		Type:     TypeMoveToLayer,
		Priority: priority,
		Title:    fmt.Sprintf("Fix %d server-to-client layer violations", count),
		Description: "Server modules depend on client-side code:\n" + strings.Join(lines, "\n") +
			"\nMove the shared logic into a server or shared module so dependencies point down the stack.",
		Reasoning:     "Dependencies should flow presentation -> client -> server -> external; server code reaching into client state couples deployment targets.",
		AffectedNodes: nodes,
		AffectedEdges: edges,
		Effort:        scale(3 + count),
		Impact:        scale(6 + count/2),
		Risk:          scale(4 + count/2),
	}, true
}

func extractModule(c detect.Candidate) Suggestion {
	priority := PriorityLow
	switch {
	case c.Score >= 70:
		priority = PriorityHigh
	case c.Score >= 50:
		priority = PriorityMedium
	}
	n := c.Node
	return Suggestion{
		Type:          TypeExtractModule,
		Priority:      priority,
		Title:         fmt.Sprintf("Split %s", n.Path),
		Description:   fmt.Sprintf("%s scores %d as an extraction candidate. Split it into smaller, focused modules.", n.Path, c.Score),
		Reasoning:     strings.Join(c.Reasons, "; "),
		AffectedNodes: []string{n.ID},
		Effort:        scale(3 + n.LinesOfCode/200),
		Impact:        scale(c.Score / 10),
		Risk:          scale(2 + n.Incoming/5),
	}
}

func consolidateUtilities(g *graph.Graph) (Suggestion, bool) {
	if g == nil {
		return Suggestion{}, false
	}
	var ids, paths []string
	for _, n := range g.Nodes {
		if n.Type == graph.NodeTypeUtility && n.LinesOfCode < smallUtilityLOC && n.Degree() <= smallUtilityMaxDegree {
			ids = append(ids, n.ID)
			paths = append(paths, n.Path)
		}
	}
	if len(ids) <= minSmallUtilities {
		return Suggestion{}, false
	}
	return Suggestion{
		Type:          TypeConsolidateUtilities,
		Priority:      PriorityLow,
		Title:         fmt.Sprintf("Consolidate %d small utility modules", len(ids)),
		Description:   "These utility modules are small and rarely used: " + strings.Join(paths, ", ") + ". Group related helpers into fewer modules.",
		Reasoning:     "Many tiny helper files fragment the codebase and make shared helpers hard to discover.",
		AffectedNodes: ids,
		Effort:        scale(2 + len(ids)/3),
		Impact:        3,
		Risk:          2,
	}, true
}
