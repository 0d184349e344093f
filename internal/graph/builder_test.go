package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/archscan/internal/extract"
	"github.com/zheng/archscan/internal/resolve"
)

func ref(target string, kinds ...extract.Kind) extract.Reference {
	if len(kinds) == 0 {
		kinds = []extract.Kind{extract.KindDefault}
	}
	return extract.Reference{Target: target, Kinds: kinds}
}

func build(files ...FileAnalysis) (*Graph, BuildStats) {
	return NewBuilder("p1", resolve.New(), DefaultThresholds).Build(files)
}

func TestBuildAggregatesEdges(t *testing.T) {
	g, stats := build(
		FileAnalysis{RelPath: "src/a.ts", Refs: []extract.Reference{
			ref("./b"),
			ref("./b", extract.KindNamed),
			ref("./c.ts", extract.KindNamespace),
			ref("react"),
		}},
		FileAnalysis{RelPath: "src/b.ts"},
		FileAnalysis{RelPath: "src/c.ts"},
	)

	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, 1, stats.ExternalRefs)

	a, _ := g.NodeByPath("src/a.ts")
	b, _ := g.NodeByPath("src/b.ts")
	c, _ := g.NodeByPath("src/c.ts")
	assert.Equal(t, 2, a.Outgoing)
	assert.Equal(t, 0, a.Incoming)
	assert.Equal(t, 1, b.Incoming)
	assert.Equal(t, 1, c.Incoming)

	ab := g.Edges[0]
	assert.Equal(t, a.ID, ab.SourceID)
	assert.Equal(t, b.ID, ab.TargetID)
	assert.Equal(t, 2, ab.RefCount)
	assert.Equal(t, []extract.Kind{extract.KindDefault, extract.KindNamed}, ab.Kinds)
	assert.Equal(t, WeightWeak, ab.Weight)
	assert.Equal(t, 40, ab.Strength)
	assert.Equal(t, "p1", ab.ProjectID)
}

func TestBuildNeverCreatesSelfEdges(t *testing.T) {
	g, stats := build(
		FileAnalysis{RelPath: "src/a.ts", Refs: []extract.Reference{ref("./a"), ref("../src/a.ts"), ref("@/a")}},
	)
	assert.Empty(t, g.Edges)
	assert.Equal(t, 0, g.Nodes[0].Outgoing)
	assert.Equal(t, 3, stats.SelfRefs)
}

func TestBuildExternalTargetsCreateNothing(t *testing.T) {
	g, stats := build(
		FileAnalysis{RelPath: "a.ts", Refs: []extract.Reference{ref("lodash"), ref("@scope/x"), ref("../outside")}},
		FileAnalysis{RelPath: "b.ts"},
	)
	assert.Len(t, g.Nodes, 2)
	assert.Empty(t, g.Edges)
	assert.Equal(t, 3, stats.ExternalRefs)
	for _, n := range g.Nodes {
		assert.Zero(t, n.Degree())
	}
}

func TestBuildWeightThresholds(t *testing.T) {
	refs := func(n int) []extract.Reference {
		out := make([]extract.Reference, n)
		for i := range out {
			out[i] = ref("./t")
		}
		return out
	}
	tests := []struct {
		count  int
		weight Weight
	}{
		{1, WeightWeak},
		{2, WeightWeak},
		{3, WeightRequired},
		{5, WeightRequired},
		{6, WeightStrong},
	}
	for _, tt := range tests {
		g, _ := build(FileAnalysis{RelPath: "s.ts", Refs: refs(tt.count)}, FileAnalysis{RelPath: "t.ts"})
		require.Len(t, g.Edges, 1)
		assert.Equal(t, tt.weight, g.Edges[0].Weight, "count %d", tt.count)
		assert.Equal(t, min(tt.count*20, 100), g.Edges[0].Strength)
	}
}

func TestBuildEdgesSortedByPath(t *testing.T) {
	// input deliberately out of path order
	g, _ := build(
		FileAnalysis{RelPath: "z.ts", Refs: []extract.Reference{ref("./b"), ref("./a")}},
		FileAnalysis{RelPath: "a.ts", Refs: []extract.Reference{ref("./z")}},
		FileAnalysis{RelPath: "b.ts"},
	)
	var pairs []string
	for _, e := range g.Edges {
		s, _ := g.NodeByID(e.SourceID)
		d, _ := g.NodeByID(e.TargetID)
		pairs = append(pairs, s.Path+"->"+d.Path)
	}
	assert.Equal(t, []string{"a.ts->z.ts", "z.ts->a.ts", "z.ts->b.ts"}, pairs)
}

func TestIDsAreDeterministic(t *testing.T) {
	assert.Equal(t, NodeID("p", "src/a.ts"), NodeID("p", "src/a.ts"))
	assert.NotEqual(t, NodeID("p", "src/a.ts"), NodeID("q", "src/a.ts"))
	assert.Regexp(t, `^n_[0-9a-f]{16}$`, NodeID("p", "x"))
	assert.Regexp(t, `^e_[0-9a-f]{16}$`, EdgeID("a", "b"))
	assert.NotEqual(t, EdgeID("a", "b"), EdgeID("b", "a"))

	g1, _ := build(FileAnalysis{RelPath: "a.ts", Refs: []extract.Reference{ref("./b")}}, FileAnalysis{RelPath: "b.ts"})
	g2, _ := build(FileAnalysis{RelPath: "a.ts", Refs: []extract.Reference{ref("./b")}}, FileAnalysis{RelPath: "b.ts"})
	assert.Equal(t, g1.Edges[0].ID, g2.Edges[0].ID)
}

func TestNodeDefaults(t *testing.T) {
	g, _ := build(FileAnalysis{RelPath: "src/lib/format.ts", LinesOfCode: 12, Complexity: 4})
	n := g.Nodes[0]
	assert.Equal(t, "format.ts", n.Name)
	assert.Equal(t, NodeTypeModule, n.Type)
	assert.True(t, n.Active)
	assert.Nil(t, n.Layer)
	assert.Nil(t, n.LastModified)
	assert.Equal(t, "", n.LayerName())
}

func TestLayerOrder(t *testing.T) {
	assert.Less(t, LayerPresentation.Order(), LayerClient.Order())
	assert.Less(t, LayerClient.Order(), LayerServer.Order())
	assert.Less(t, LayerServer.Order(), LayerExternal.Order())
	assert.Equal(t, -1, Layer("other").Order())
}
