package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/impact"
	"github.com/zheng/archscan/internal/storage"
	"github.com/zheng/archscan/internal/suggest"
)

// Exporter generates architecture reports from the graph database
type Exporter struct {
	db *storage.DB
}

// NewExporter creates a new exporter
func NewExporter(db *storage.DB) *Exporter {
	return &Exporter{db: db}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	IncludeMermaid  bool
	MaxMermaidNodes int // 超出时只画耦合度最高的节点
	ProjectName     string
}

// DefaultExportOptions returns default export options
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeMermaid:  true,
		MaxMermaidNodes: 150,
		ProjectName:     "项目",
	}
}

// Document is everything a report renders
type Document struct {
	ProjectID   string
	Stats       *storage.ScanSummary
	Graph       *graph.Graph
	Cycles      []detect.Cycle
	Violations  []detect.Violation
	Candidates  []detect.Candidate
	Suggestions []suggest.Suggestion
}

// FromReport builds a document straight from an engine report
func FromReport(rep *engine.Report) Document {
	return Document{
		ProjectID: rep.ProjectID,
		Stats: &storage.ScanSummary{
			ProjectID:         rep.ProjectID,
			Root:              rep.Root,
			TotalFiles:        rep.Stats.TotalFiles,
			TotalEdges:        rep.Stats.TotalEdges,
			CircularChains:    rep.Stats.CircularChains,
			AverageComplexity: rep.Stats.AverageComplexity,
			AverageCoupling:   rep.Stats.AverageCoupling,
			SkippedFiles:      rep.Stats.SkippedFiles,
			SkippedDirs:       rep.Stats.SkippedDirs,
			ExternalRefs:      rep.Stats.ExternalRefs,
			ScannedAt:         time.Now(),
		},
		Graph:       rep.Graph,
		Cycles:      rep.Cycles,
		Violations:  rep.Violations,
		Candidates:  rep.Candidates,
		Suggestions: rep.Suggestions,
	}
}

// Load reads a project's last scan back from the database.
// Violations and candidates are recomputed from the stored graph.
func (e *Exporter) Load(projectID string) (Document, error) {
	doc := Document{ProjectID: projectID}
	var err error

	if doc.Stats, err = e.db.GetStats(projectID); err != nil {
		return doc, fmt.Errorf("failed to get scan summary: %w", err)
	}
	if doc.Graph, err = e.db.LoadGraph(projectID); err != nil {
		return doc, fmt.Errorf("failed to load graph: %w", err)
	}
	if doc.Cycles, err = e.db.GetCycles(projectID); err != nil {
		return doc, fmt.Errorf("failed to get cycles: %w", err)
	}
	if doc.Suggestions, err = e.db.GetSuggestions(projectID); err != nil {
		return doc, fmt.Errorf("failed to get suggestions: %w", err)
	}
	doc.Violations = detect.ValidateLayers(doc.Graph)
	doc.Candidates = detect.ExtractionCandidates(doc.Graph.Nodes)
	return doc, nil
}

// Export generates a complete architecture report for a stored project
func (e *Exporter) Export(w io.Writer, projectID string, opts ExportOptions) error {
	doc, err := e.Load(projectID)
	if err != nil {
		return err
	}
	return Render(w, doc, opts)
}

// Render writes doc as a markdown report
func Render(w io.Writer, doc Document, opts ExportOptions) error {
	g := doc.Graph
	if g == nil {
		g = graph.New(nil, nil)
	}

	fmt.Fprintf(w, "# %s架构分析报告\n\n", opts.ProjectName)
	fmt.Fprintf(w, "> 生成时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "> 文件节点: %d | 依赖边: %d | 循环依赖: %d\n\n", len(g.Nodes), len(g.Edges), len(doc.Cycles))

	writeOverview(w, doc.Stats)
	writeLayerTable(w, g)

	if opts.IncludeMermaid && len(g.Nodes) > 0 {
		fmt.Fprintf(w, "## 架构图\n\n```mermaid\n%s```\n\n", Mermaid(g, opts.MaxMermaidNodes))
	}

	writeCycles(w, g, doc.Cycles)
	writeViolations(w, doc.Violations)
	writeCandidates(w, doc.Candidates)
	writeSuggestions(w, doc.Suggestions)
	writeImpactTable(w, g.Nodes)
	return nil
}

func writeOverview(w io.Writer, s *storage.ScanSummary) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "## 概览\n\n")
	fmt.Fprintf(w, "| 指标 | 值 |\n|------|----|\n")
	fmt.Fprintf(w, "| 扫描目录 | `%s` |\n", s.Root)
	fmt.Fprintf(w, "| 平均复杂度 | %.1f |\n", s.AverageComplexity)
	fmt.Fprintf(w, "| 平均耦合度 | %.1f |\n", s.AverageCoupling)
	fmt.Fprintf(w, "| 外部引用 | %d |\n", s.ExternalRefs)
	fmt.Fprintf(w, "| 跳过文件 | %d |\n", s.SkippedFiles)
	fmt.Fprintf(w, "| 跳过目录 | %d |\n\n", s.SkippedDirs)
}

var layerOrder = []graph.Layer{graph.LayerPresentation, graph.LayerClient, graph.LayerServer, graph.LayerExternal}

func writeLayerTable(w io.Writer, g *graph.Graph) {
	byLayer := groupByLayer(g.Nodes)

	fmt.Fprintf(w, "## 分层统计\n\n")
	fmt.Fprintf(w, "| 层级 | 文件数 | 类型分布 |\n")
	fmt.Fprintf(w, "|------|--------|----------|\n")
	for _, key := range layerKeys() {
		nodes := byLayer[key]
		if len(nodes) == 0 {
			continue
		}
		fmt.Fprintf(w, "| %s | %d | %s |\n", getLayerDisplayName(key), len(nodes), typeBreakdown(nodes))
	}
	fmt.Fprintf(w, "\n")
}

func writeCycles(w io.Writer, g *graph.Graph, cycles []detect.Cycle) {
	fmt.Fprintf(w, "## 循环依赖\n\n")
	if len(cycles) == 0 {
		fmt.Fprintf(w, "_未发现循环依赖_\n\n")
		return
	}
	for i, c := range cycles {
		fmt.Fprintf(w, "%d. **[%s]** `%s`\n", i+1, c.Severity(), strings.Join(c.Paths(g), " → "))
	}
	fmt.Fprintf(w, "\n")
}

func writeViolations(w io.Writer, vs []detect.Violation) {
	fmt.Fprintf(w, "## 分层违规\n\n")
	if len(vs) == 0 {
		fmt.Fprintf(w, "_未发现分层违规_\n\n")
		return
	}
	fmt.Fprintf(w, "| 依赖方 | 被依赖方 | 类型 |\n")
	fmt.Fprintf(w, "|--------|----------|------|\n")
	for _, v := range vs {
		fmt.Fprintf(w, "| %s | %s | %s |\n", v.Source.Path, v.Target.Path, v.Kind)
	}
	fmt.Fprintf(w, "\n")
}

func writeCandidates(w io.Writer, cs []detect.Candidate) {
	if len(cs) == 0 {
		return
	}
	fmt.Fprintf(w, "## 拆分候选\n\n")
	fmt.Fprintf(w, "| 文件 | 得分 | 原因 |\n")
	fmt.Fprintf(w, "|------|------|------|\n")
	for _, c := range cs {
		fmt.Fprintf(w, "| %s | %d | %s |\n", c.Node.Path, c.Score, strings.Join(c.Reasons, "; "))
	}
	fmt.Fprintf(w, "\n")
}

func writeSuggestions(w io.Writer, ss []suggest.Suggestion) {
	fmt.Fprintf(w, "## 重构建议\n\n")
	if len(ss) == 0 {
		fmt.Fprintf(w, "_暂无建议_\n\n")
		return
	}
	for i, s := range ss {
		fmt.Fprintf(w, "### %d. [%s] %s\n\n", i+1, s.Priority, s.Title)
		fmt.Fprintf(w, "%s\n\n", s.Description)
		if s.Reasoning != "" {
			fmt.Fprintf(w, "- **理由**: %s\n", s.Reasoning)
		}
		fmt.Fprintf(w, "- **工作量/收益/风险**: %d / %d / %d\n", s.Effort, s.Impact, s.Risk)
		fmt.Fprintf(w, "- **来源**: %s\n\n", s.Source)
	}
}

// writeImpactTable writes a summary table for impact analysis
func writeImpactTable(w io.Writer, nodes []*graph.Node) {
	var used []*graph.Node
	for _, n := range nodes {
		if n.Incoming > 0 {
			used = append(used, n)
		}
	}
	if len(used) == 0 {
		return
	}

	// Sort by dependent count (most used first)
	sort.SliceStable(used, func(i, j int) bool { return used[i].Incoming > used[j].Incoming })

	fmt.Fprintf(w, "---\n\n## 修改影响速查\n\n")
	fmt.Fprintf(w, "| 文件 | 被依赖 | 依赖 | 风险 |\n")
	fmt.Fprintf(w, "|------|--------|------|------|\n")
	for _, n := range used {
		risk := "🟢"
		if n.Incoming >= 5 {
			risk = "🔴 高"
		} else if n.Incoming >= 3 {
			risk = "🟡 中"
		}
		fmt.Fprintf(w, "| `%s` | %d | %d | %s |\n", n.Path, n.Incoming, n.Outgoing, risk)
	}
	fmt.Fprintf(w, "\n")
}

// ExportIncremental generates a report for changed files only
func (e *Exporter) ExportIncremental(w io.Writer, projectID string, changedFiles []string) error {
	if len(changedFiles) == 0 {
		fmt.Fprintf(w, "# 增量更新报告\n\n> 没有检测到变更\n")
		return nil
	}

	report, err := impact.NewAnalyzer(e.db, projectID).FilesImpact(changedFiles)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "# 增量更新报告\n\n")
	fmt.Fprintf(w, "> 生成时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "> 变更文件: %d | 受影响模块: %d\n\n", len(changedFiles), len(report.Affected))

	fmt.Fprintf(w, "## 变更范围\n\n")
	for _, f := range changedFiles {
		fmt.Fprintf(w, "- `%s`\n", f)
	}
	fmt.Fprintf(w, "\n")

	if len(report.Affected) == 0 {
		fmt.Fprintf(w, "_没有受影响的模块_\n")
		return nil
	}

	fmt.Fprintf(w, "## 影响分析\n\n")
	fmt.Fprintf(w, "**以下 %d 个模块依赖了变更文件，可能需要检查：**\n\n", len(report.Affected))
	fmt.Fprintf(w, "| 模块 | 类型 | 层级 |\n")
	fmt.Fprintf(w, "|------|------|------|\n")
	for _, n := range report.Affected {
		fmt.Fprintf(w, "| `%s` | %s | %s |\n", n.Path, n.Type, getLayerDisplayName(layerKey(n)))
	}
	return nil
}

// Helper functions

const unlayered = "other"

func layerKey(n *graph.Node) string {
	if l := n.LayerName(); l != "" {
		return l
	}
	return unlayered
}

func layerKeys() []string {
	keys := make([]string, 0, len(layerOrder)+1)
	for _, l := range layerOrder {
		keys = append(keys, string(l))
	}
	return append(keys, unlayered)
}

func groupByLayer(nodes []*graph.Node) map[string][]*graph.Node {
	result := make(map[string][]*graph.Node)
	for _, n := range nodes {
		k := layerKey(n)
		result[k] = append(result[k], n)
	}
	return result
}

func typeBreakdown(nodes []*graph.Node) string {
	counts := make(map[string]int)
	for _, n := range nodes {
		counts[string(n.Type)]++
	}
	var types []string
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s %d", t, counts[t])
	}
	return strings.Join(parts, ", ")
}

func getLayerDisplayName(layer string) string {
	switch graph.Layer(layer) {
	case graph.LayerPresentation:
		return "展示层"
	case graph.LayerClient:
		return "客户端层"
	case graph.LayerServer:
		return "服务端层"
	case graph.LayerExternal:
		return "外部集成层"
	default:
		return "未分层"
	}
}
