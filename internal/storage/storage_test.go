package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/logging"
)

// fixture: Button -> useUser -> user -> format, and user -> useUser closes a cycle
var fixture = map[string]string{
	"src/components/Button.tsx": "import { useUser } from '@/hooks/useUser'\nexport function Button() { return useUser() }\n",
	"src/hooks/useUser.ts":      "import { fetchUser } from '../services/user'\nexport const useUser = () => fetchUser()\n",
	"src/services/user.ts":      "import { format } from '../utils/format'\nimport { useUser } from '../hooks/useUser'\nexport const fetchUser = () => format(useUser)\n",
	"src/utils/format.ts":       "export const format = (v: unknown) => String(v)\n",
}

func scanFixture(t *testing.T) (*DB, *engine.Report) {
	t.Helper()
	root := t.TempDir()
	for name, content := range fixture {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	rep, err := engine.New(engine.WithLogger(logging.Discard())).Run(context.Background(), "web", root)
	require.NoError(t, err)

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SaveReport(rep))
	return db, rep
}

func mustNode(t *testing.T, db *DB, path string) string {
	t.Helper()
	n, err := db.GetNodeByPath("web", path)
	require.NoError(t, err)
	return n.ID
}

func TestSaveAndLoadGraph(t *testing.T) {
	db, rep := scanFixture(t)

	g, err := db.LoadGraph("web")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 4)

	for _, want := range rep.Nodes {
		got, ok := g.NodeByID(want.ID)
		require.True(t, ok, want.Path)
		assert.Equal(t, want.Path, got.Path)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.LayerName(), got.LayerName())
		assert.Equal(t, want.Coupling, got.Coupling)
		assert.Equal(t, want.Incoming, got.Incoming)
		assert.Equal(t, want.Outgoing, got.Outgoing)
		assert.True(t, got.Active)
		require.NotNil(t, got.LastModified)
	}

	circular := 0
	for i, e := range g.Edges {
		assert.Equal(t, rep.Edges[i].ID, e.ID)
		assert.Equal(t, rep.Edges[i].Kinds, e.Kinds)
		if e.Circular {
			circular++
		}
	}
	assert.Equal(t, 2, circular)

	n, e, err := db.Counts("web")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, int64(4), e)
}

func TestSaveReplacesPreviousScan(t *testing.T) {
	db, rep := scanFixture(t)
	require.NoError(t, db.SaveReport(rep))

	n, e, err := db.Counts("web")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, int64(4), e)

	// alerts accumulate across scans
	alerts, err := db.GetAlerts("web", detect.AlertStatusActive)
	require.NoError(t, err)
	assert.Len(t, alerts, 2*len(rep.Alerts))
}

func TestGetNodeNotFound(t *testing.T) {
	db, _ := scanFixture(t)

	_, err := db.GetNodeByID("n_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetNodeByPath("web", "src/missing.ts")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.ResolveNode("web", "nothing-like-this")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindNodesByPattern(t *testing.T) {
	db, _ := scanFixture(t)

	nodes, err := db.FindNodesByPattern("web", "user.ts")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "src/services/user.ts", nodes[0].Path)
	assert.Equal(t, "src/hooks/useUser.ts", nodes[1].Path)

	n, err := db.ResolveNode("web", "Button")
	require.NoError(t, err)
	assert.Equal(t, "src/components/Button.tsx", n.Path)
}

func TestDependentsAndDependencies(t *testing.T) {
	db, _ := scanFixture(t)
	format := mustNode(t, db, "src/utils/format.ts")
	button := mustNode(t, db, "src/components/Button.tsx")

	direct, err := db.GetDirectDependents(format)
	require.NoError(t, err)
	require.Len(t, direct, 1)
	assert.Equal(t, "src/services/user.ts", direct[0].Path)

	// the cycle between user and useUser must not loop
	up, err := db.GetDependents(format, 0)
	require.NoError(t, err)
	var upPaths []string
	for _, n := range up {
		upPaths = append(upPaths, n.Path)
	}
	assert.Equal(t, []string{"src/services/user.ts", "src/hooks/useUser.ts", "src/components/Button.tsx"}, upPaths)

	limited, err := db.GetDependents(format, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	down, err := db.GetDependencies(button, 0)
	require.NoError(t, err)
	var downPaths []string
	for _, n := range down {
		downPaths = append(downPaths, n.Path)
	}
	assert.Equal(t, []string{"src/hooks/useUser.ts", "src/services/user.ts", "src/utils/format.ts"}, downPaths)
}

func TestDependencyTree(t *testing.T) {
	db, _ := scanFixture(t)
	format := mustNode(t, db, "src/utils/format.ts")

	tree, err := db.GetDependencyTree(format, 3, true)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, "src/services/user.ts", tree[0].Node.Path)
	require.Len(t, tree[0].Children, 1)
	hook := tree[0].Children[0]
	assert.Equal(t, "src/hooks/useUser.ts", hook.Node.Path)

	// user.ts is already on the branch, so it is listed but not expanded
	require.Len(t, hook.Children, 2)
	for _, c := range hook.Children {
		assert.Empty(t, c.Children)
	}
}

func TestCyclesSuggestionsAlerts(t *testing.T) {
	db, rep := scanFixture(t)

	cycles, err := db.GetCycles("web")
	require.NoError(t, err)
	require.Len(t, cycles, len(rep.Cycles))
	assert.Equal(t, rep.Cycles[0].NodeIDs, cycles[0].NodeIDs)

	sugs, err := db.GetSuggestions("web")
	require.NoError(t, err)
	require.Len(t, sugs, len(rep.Suggestions))
	for i := range sugs {
		assert.Equal(t, rep.Suggestions[i].Title, sugs[i].Title)
		assert.Equal(t, rep.Suggestions[i].Priority, sugs[i].Priority)
		assert.Equal(t, rep.Suggestions[i].AffectedNodes, sugs[i].AffectedNodes)
	}

	alerts, err := db.GetAlerts("web", "")
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
	kinds := map[detect.AlertKind]bool{}
	for _, a := range alerts {
		kinds[a.Kind] = true
		assert.NotEmpty(t, a.NodeIDs)
	}
	assert.True(t, kinds[detect.AlertCircularDependency])
	assert.True(t, kinds[detect.AlertLayerViolation])

	none, err := db.GetAlerts("web", "resolved")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRiskScore(t *testing.T) {
	db, _ := scanFixture(t)

	rs, err := db.GetRiskScore(mustNode(t, db, "src/hooks/useUser.ts"))
	require.NoError(t, err)
	assert.Equal(t, 2, rs.DirectDependents)
	assert.Equal(t, 2, rs.TotalDependents)
	assert.Equal(t, "low", rs.RiskLevel)

	top, err := db.GetTopCoupled("web", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "src/hooks/useUser.ts", top[0].Node.Path)
}

func TestCalculateRiskLevel(t *testing.T) {
	tests := []struct {
		direct, total int
		want          string
	}{
		{0, 0, "low"},
		{3, 3, "medium"},
		{1, 10, "medium"},
		{10, 10, "high"},
		{1, 30, "high"},
		{20, 20, "critical"},
		{1, 60, "critical"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateRiskLevel(tt.direct, tt.total), "%d/%d", tt.direct, tt.total)
	}
}

func TestStatsAndClear(t *testing.T) {
	db, rep := scanFixture(t)

	s, err := db.GetStats("web")
	require.NoError(t, err)
	assert.Equal(t, 4, s.TotalFiles)
	assert.Equal(t, 4, s.TotalEdges)
	assert.Equal(t, rep.Stats.CircularChains, s.CircularChains)
	assert.Equal(t, rep.Root, s.Root)
	assert.False(t, s.ScannedAt.IsZero())

	require.NoError(t, db.Clear("web"))
	_, err = db.GetStats("web")
	assert.ErrorIs(t, err, ErrNotFound)
	nodes, err := db.GetNodes("web")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestResolveNodeScopedToProject(t *testing.T) {
	db, rep := scanFixture(t)
	id := rep.Nodes[0].ID

	n, err := db.ResolveNode("web", id)
	require.NoError(t, err)
	assert.Equal(t, id, n.ID)

	_, err = db.ResolveNode("other", id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetProjectNode("other", id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindNodesByPatternLiteralWildcards(t *testing.T) {
	db, _ := scanFixture(t)

	for _, pattern := range []string{"%", "_", "src/%/user.ts", `\`} {
		nodes, err := db.FindNodesByPattern("web", pattern)
		require.NoError(t, err)
		assert.Empty(t, nodes, pattern)
	}

	nodes, err := db.FindNodesByPattern("web", "src/utils/")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "src/utils/format.ts", nodes[0].Path)
}
