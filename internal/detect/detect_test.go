package detect

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/archscan/internal/graph"
)

// fixture builds a graph from "a->b" style edge specs over the named nodes
func fixture(names []string, edges ...string) *graph.Graph {
	nodes := make([]*graph.Node, len(names))
	for i, n := range names {
		nodes[i] = &graph.Node{ID: n, Path: n + ".ts"}
	}
	var es []*graph.Edge
	for _, spec := range edges {
		parts := strings.Split(spec, "->")
		s, d := parts[0], parts[1]
		es = append(es, &graph.Edge{ID: s + d, SourceID: s, TargetID: d, Weight: graph.WeightWeak, RefCount: 1})
	}
	return graph.New(nodes, es)
}

func TestFindCyclesAcyclic(t *testing.T) {
	g := fixture([]string{"a", "b", "c", "d"}, "a->b", "b->c", "a->c", "c->d")
	cycles := FindCycles(g)
	assert.Empty(t, cycles)
	MarkCircular(g, cycles)
	for _, e := range g.Edges {
		assert.NotEqual(t, graph.WeightCircular, e.Weight)
		assert.False(t, e.Circular)
	}
}

func TestFindCyclesThreeChain(t *testing.T) {
	g := fixture([]string{"a", "b", "c"}, "a->b", "b->c", "c->a")
	cycles := FindCycles(g)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0].NodeIDs)
	assert.Equal(t, 3, cycles[0].Len())
	assert.Equal(t, SeverityMedium, cycles[0].Severity())

	assert.Equal(t, 3, MarkCircular(g, cycles))
	for _, e := range g.Edges {
		assert.Equal(t, graph.WeightCircular, e.Weight)
		assert.True(t, e.Circular)
	}
}

func TestFindCyclesTwoNodeAndSeverity(t *testing.T) {
	g := fixture([]string{"a", "b", "c"}, "a->b", "a->c", "c->a")
	cycles := FindCycles(g)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "c", "a"}, cycles[0].NodeIDs)
	assert.Equal(t, 2, cycles[0].Len())

	MarkCircular(g, cycles)
	idx := g.EdgesBetween()
	assert.False(t, idx[[2]string{"a", "b"}].Circular)
	assert.True(t, idx[[2]string{"a", "c"}].Circular)
	assert.True(t, idx[[2]string{"c", "a"}].Circular)

	long := Cycle{NodeIDs: []string{"a", "b", "c", "d", "a"}}
	assert.Equal(t, SeverityHigh, long.Severity())
}

func TestFindCyclesMultiple(t *testing.T) {
	g := fixture([]string{"a", "b", "c", "d", "e"}, "a->b", "b->a", "c->d", "d->e", "e->c")
	cycles := FindCycles(g)
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"a", "b", "a"}, cycles[0].NodeIDs)
	assert.Equal(t, []string{"c", "d", "e", "c"}, cycles[1].NodeIDs)
}

func TestFindCyclesDeterministic(t *testing.T) {
	g := fixture([]string{"a", "b", "c", "d"}, "a->b", "b->c", "c->a", "c->d", "d->b")
	first := FindCycles(g)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, FindCycles(g))
	}
}

func TestFindCyclesDeepChainDoesNotRecurse(t *testing.T) {
	const n = 20000
	nodes := make([]*graph.Node, n)
	var edges []*graph.Edge
	for i := range nodes {
		nodes[i] = &graph.Node{ID: fmt.Sprintf("n%d", i)}
		if i > 0 {
			edges = append(edges, &graph.Edge{ID: fmt.Sprintf("e%d", i), SourceID: nodes[i-1].ID, TargetID: nodes[i].ID})
		}
	}
	edges = append(edges, &graph.Edge{ID: "back", SourceID: nodes[n-1].ID, TargetID: nodes[0].ID})
	cycles := FindCycles(graph.New(nodes, edges))
	require.Len(t, cycles, 1)
	assert.Equal(t, n, cycles[0].Len())
}

func layered(id string, l graph.Layer) *graph.Node {
	return &graph.Node{ID: id, Path: id + ".ts", Layer: graph.LayerPtr(l)}
}

func TestValidateLayers(t *testing.T) {
	nodes := []*graph.Node{
		layered("srv", graph.LayerServer),
		layered("cli", graph.LayerClient),
		layered("ui", graph.LayerPresentation),
		layered("ext", graph.LayerExternal),
		{ID: "util", Path: "util.ts"},
	}
	edges := []*graph.Edge{
		{ID: "1", SourceID: "srv", TargetID: "cli"},
		{ID: "2", SourceID: "ui", TargetID: "cli"},
		{ID: "3", SourceID: "cli", TargetID: "srv"},
		{ID: "4", SourceID: "ext", TargetID: "srv"},
		{ID: "5", SourceID: "ext", TargetID: "ext"},
		{ID: "6", SourceID: "srv", TargetID: "util"},
		{ID: "7", SourceID: "util", TargetID: "cli"},
		{ID: "8", SourceID: "srv", TargetID: "ui"},
	}
	vs := ValidateLayers(graph.New(nodes, edges))
	require.Len(t, vs, 2)

	assert.Equal(t, ViolationServerToClient, vs[0].Kind)
	assert.Equal(t, "1", vs[0].Edge.ID)
	assert.Contains(t, vs[0].Description, "server module srv.ts depends on client module cli.ts")

	assert.Equal(t, ViolationExternalToInternal, vs[1].Kind)
	assert.Equal(t, "4", vs[1].Edge.ID)

	assert.Equal(t, 1, CountKind(vs, ViolationServerToClient))
}

func TestExtractionCandidates(t *testing.T) {
	// scores: low 30 (not above threshold), mid 45, top 115, tie 40, tie2 40
	nodes := []*graph.Node{
		{ID: "low", Coupling: 75},
		{ID: "mid", Coupling: 80, LinesOfCode: 600},
		{ID: "top", Coupling: 100, Outgoing: 12, Incoming: 20, Complexity: 70, LinesOfCode: 900},
		{ID: "tie", Outgoing: 11, LinesOfCode: 501},
		{ID: "tie2", Complexity: 61, LinesOfCode: 700},
		{ID: "none"},
	}
	cs := ExtractionCandidates(nodes)

	var ids []string
	for _, c := range cs {
		ids = append(ids, c.Node.ID)
		assert.Greater(t, c.Score, MinCandidateScore)
	}
	assert.Equal(t, []string{"top", "mid", "tie", "tie2"}, ids)
	assert.Equal(t, 115, cs[0].Score)
	assert.Len(t, cs[0].Reasons, 5)
	for i := 1; i < len(cs); i++ {
		assert.GreaterOrEqual(t, cs[i-1].Score, cs[i].Score)
	}
}

func TestDriftAlerts(t *testing.T) {
	g := fixture([]string{"a", "b", "c", "d", "e"}, "a->b", "b->c", "c->d", "d->e", "e->a")
	cycles := FindCycles(g)
	require.Len(t, cycles, 1)

	src := layered("s", graph.LayerServer)
	dst := layered("c", graph.LayerClient)
	v := Violation{Edge: &graph.Edge{ID: "sc"}, Source: src, Target: dst, Kind: ViolationServerToClient, Description: "desc"}

	alerts := DriftAlerts("p", g, cycles, []Violation{v})
	require.Len(t, alerts, 2)

	assert.Equal(t, AlertCircularDependency, alerts[0].Kind)
	assert.Equal(t, AlertCritical, alerts[0].Severity)
	assert.Equal(t, "a.ts -> b.ts -> c.ts -> d.ts -> e.ts -> a.ts", alerts[0].DetectedPattern)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, alerts[0].NodeIDs)
	assert.Len(t, alerts[0].EdgeIDs, 5)

	assert.Equal(t, AlertLayerViolation, alerts[1].Kind)
	assert.Equal(t, AlertWarning, alerts[1].Severity)
	assert.Equal(t, "desc", alerts[1].DetectedPattern)
	assert.Equal(t, []string{"sc"}, alerts[1].EdgeIDs)

	for _, a := range alerts {
		assert.Equal(t, "p", a.ProjectID)
		assert.Equal(t, AlertStatusActive, a.Status)
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.IdealPattern)
	}
	assert.NotEqual(t, alerts[0].ID, alerts[1].ID)

	short := Cycle{NodeIDs: []string{"a", "b", "c", "d", "a"}}
	alerts = DriftAlerts("p", g, []Cycle{short}, nil)
	assert.Equal(t, AlertWarning, alerts[0].Severity)
}
