package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/archscan/internal/storage"
	"github.com/zheng/archscan/internal/testutil"
)

func resetFlags(t *testing.T) {
	t.Cleanup(func() {
		DbPath, ConfigFile, ProjectID, LogLevel = "", "", "", ""
	})
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := &cobra.Command{Use: "archscan", SilenceUsage: true, SilenceErrors: true}
	RegisterCommands(root)
	root.SetArgs(args)
	return root.Execute()
}

func TestLoadConfigOverrides(t *testing.T) {
	resetFlags(t)
	DbPath = "custom.db"
	ProjectID = "shop"
	LogLevel = "debug"

	cfg, err := loadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.Database)
	assert.Equal(t, "shop", cfg.Project)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigDefaults(t *testing.T) {
	resetFlags(t)

	cfg, err := loadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ".archscan.db", cfg.Database)
	assert.Equal(t, "default", cfg.Project)
}

func TestAnalyzeAndQuery(t *testing.T) {
	resetFlags(t)
	root := testutil.WriteTree(t, testutil.Layered)
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	global := []string{"--db", dbPath, "--project", testutil.ProjectID, "--log-level", "error"}

	require.NoError(t, execute(t, append([]string{"analyze", root}, global...)...))

	db, err := storage.Open(dbPath)
	require.NoError(t, err)
	nodes, edges, err := db.Counts(testutil.ProjectID)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.EqualValues(t, 4, nodes)
	assert.EqualValues(t, 4, edges)

	for _, args := range [][]string{
		{"cycles"},
		{"layers", "--format", "json"},
		{"suggest"},
		{"alerts"},
		{"list"},
		{"search", "user"},
		{"risk", "--top"},
		{"risk", "format.ts"},
		{"upstream", "src/utils/format.ts"},
		{"downstream", "src/components/Button.tsx", "--format", "markdown"},
		{"impact", "src/services/user.ts", "--format", "json"},
	} {
		t.Run(args[0], func(t *testing.T) {
			assert.NoError(t, execute(t, append(args, global...)...))
		})
	}
}

func TestExportFormats(t *testing.T) {
	resetFlags(t)
	root := testutil.WriteTree(t, testutil.Layered)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.db")
	global := []string{"--db", dbPath, "--project", testutil.ProjectID, "--log-level", "error"}
	require.NoError(t, execute(t, append([]string{"analyze", root}, global...)...))

	mdPath := filepath.Join(dir, "ARCHITECTURE.md")
	require.NoError(t, execute(t, append([]string{"export", "-o", mdPath, "--no-mermaid"}, global...)...))
	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# ")
	assert.NotContains(t, string(md), "```mermaid")

	jsonPath := filepath.Join(dir, "arch.json")
	require.NoError(t, execute(t, append([]string{"export", "-o", jsonPath, "--format", "json"}, global...)...))
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc["nodes"], 4)
	assert.Len(t, doc["cycles"], 1)
}

func TestExportRescanWithoutDatabase(t *testing.T) {
	resetFlags(t)
	root := testutil.WriteTree(t, testutil.Layered)
	dir := t.TempDir()
	out := filepath.Join(dir, "report.md")

	require.NoError(t, execute(t, "export", root, "--rescan", "-o", out,
		"--db", filepath.Join(dir, "cli.db"), "--project", testutil.ProjectID, "--log-level", "error"))
	md, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(md), "format.ts")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	resetFlags(t)
	err := execute(t, "export", "--format", "pdf", "--db", filepath.Join(t.TempDir(), "cli.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不支持的格式")
}

func TestImpactRequiresTarget(t *testing.T) {
	resetFlags(t)
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	err := execute(t, "impact", "--db", dbPath)
	assert.Error(t, err)
}

func TestUnknownFile(t *testing.T) {
	resetFlags(t)
	root := testutil.WriteTree(t, testutil.Layered)
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	require.NoError(t, execute(t, "analyze", root, "--db", dbPath, "--log-level", "error"))

	err := execute(t, "upstream", "missing.ts", "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未找到文件")
}

func TestGetRiskIcon(t *testing.T) {
	assert.Equal(t, "🔴", getRiskIcon("critical"))
	assert.Equal(t, "🟠", getRiskIcon("high"))
	assert.Equal(t, "🟡", getRiskIcon("medium"))
	assert.Equal(t, "🟢", getRiskIcon("low"))
	assert.Equal(t, "🟢", getRiskIcon(""))
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, ":8080", displayAddr(":8080"))
	assert.Equal(t, ":9000", displayAddr("0.0.0.0:9000"))
	assert.Equal(t, ":3000", displayAddr("3000"))
}
