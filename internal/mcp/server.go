package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zheng/archscan/internal/display"
	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/export"
	"github.com/zheng/archscan/internal/impact"
	"github.com/zheng/archscan/internal/storage"
)

const defaultLimit = 50

// Server exposes the stored module graph as MCP tools over stdio
type Server struct {
	db        *storage.DB
	projectID string
	root      string
	engine    *engine.Engine
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server; root is the default directory for the analyze tool
func NewServer(db *storage.DB, projectID, root string, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:        db,
		projectID: projectID,
		root:      root,
		engine:    eng,
		mcp: server.NewMCPServer(
			"archscan",
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// Run serves MCP requests on stdin/stdout until the input closes
func (s *Server) Run() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcpsdk.NewTool("analyze",
		mcpsdk.WithDescription("扫描项目目录，重建模块依赖图并保存（循环依赖、分层违规、重构建议）"),
		mcpsdk.WithString("path",
			mcpsdk.Description("要扫描的目录，默认为服务启动时的项目目录"),
		),
	), s.handleAnalyze)

	s.mcp.AddTool(mcpsdk.NewTool("impact",
		mcpsdk.WithDescription("分析文件变更的影响范围，返回依赖该文件的上游模块和它依赖的下游模块"),
		mcpsdk.WithString("file",
			mcpsdk.Required(),
			mcpsdk.Description("要分析的文件路径（支持模糊匹配）"),
		),
		mcpsdk.WithNumber("depth",
			mcpsdk.Description("递归查询深度，0表示不限，默认 0"),
		),
	), s.handleImpact)

	s.mcp.AddTool(mcpsdk.NewTool("upstream",
		mcpsdk.WithDescription("以树形结构查询依赖指定文件的上游模块"),
		mcpsdk.WithString("file",
			mcpsdk.Required(),
			mcpsdk.Description("要查询的文件路径"),
		),
		mcpsdk.WithNumber("depth",
			mcpsdk.Description("树的深度，默认 3"),
		),
	), s.handleTree(true))

	s.mcp.AddTool(mcpsdk.NewTool("downstream",
		mcpsdk.WithDescription("以树形结构查询指定文件依赖的下游模块"),
		mcpsdk.WithString("file",
			mcpsdk.Required(),
			mcpsdk.Description("要查询的文件路径"),
		),
		mcpsdk.WithNumber("depth",
			mcpsdk.Description("树的深度，默认 3"),
		),
	), s.handleTree(false))

	s.mcp.AddTool(mcpsdk.NewTool("cycles",
		mcpsdk.WithDescription("列出检测到的循环依赖"),
	), s.handleCycles)

	s.mcp.AddTool(mcpsdk.NewTool("suggestions",
		mcpsdk.WithDescription("列出按优先级排序的重构建议"),
		mcpsdk.WithNumber("limit",
			mcpsdk.Description("最多返回的建议数量，默认 50"),
		),
	), s.handleSuggestions)

	s.mcp.AddTool(mcpsdk.NewTool("search",
		mcpsdk.WithDescription("按路径搜索文件，支持模糊匹配"),
		mcpsdk.WithString("pattern",
			mcpsdk.Required(),
			mcpsdk.Description("搜索模式（路径的一部分）"),
		),
		mcpsdk.WithNumber("limit",
			mcpsdk.Description("最多返回的文件数量，默认 50"),
		),
	), s.handleSearch)

	s.mcp.AddTool(mcpsdk.NewTool("risk",
		mcpsdk.WithDescription("计算文件的变更风险；不指定文件时返回被依赖最多的文件"),
		mcpsdk.WithString("file",
			mcpsdk.Description("要评估的文件路径"),
		),
		mcpsdk.WithNumber("limit",
			mcpsdk.Description("未指定文件时返回的数量，默认 10"),
		),
	), s.handleRisk)

	s.mcp.AddTool(mcpsdk.NewTool("report",
		mcpsdk.WithDescription("生成完整的 Markdown 架构分析报告（含 Mermaid 架构图）"),
	), s.handleReport)
}

func (s *Server) handleAnalyze(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	root := req.GetString("path", s.root)

	rep, err := s.engine.Run(ctx, s.projectID, root)
	if err != nil {
		return mcpsdk.NewToolResultError(fmt.Sprintf("分析失败: %v", err)), nil
	}
	if err := s.db.SaveReport(rep); err != nil {
		return mcpsdk.NewToolResultError(fmt.Sprintf("保存失败: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ 分析完成: %s\n\n", rep.Root)
	fmt.Fprintf(&sb, "- 文件: %d\n- 依赖: %d\n- 循环依赖: %d\n- 分层违规: %d\n- 重构建议: %d\n",
		rep.Stats.TotalFiles, rep.Stats.TotalEdges, rep.Stats.CircularChains, len(rep.Violations), len(rep.Suggestions))
	fmt.Fprintf(&sb, "- 平均复杂度: %.1f\n- 平均耦合度: %.1f\n", rep.Stats.AverageComplexity, rep.Stats.AverageCoupling)
	fmt.Fprintf(&sb, "- 跳过文件: %d, 外部引用: %d\n", rep.Stats.SkippedFiles, rep.Stats.ExternalRefs)
	return mcpsdk.NewToolResultText(sb.String()), nil
}

func (s *Server) handleImpact(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	depth := int(req.GetFloat("depth", 0))

	report, err := impact.NewAnalyzer(s.db, s.projectID).AnalyzeImpact(file, depth, depth)
	if err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	return mcpsdk.NewToolResultText(report.FormatMarkdown()), nil
}

func (s *Server) handleTree(upstream bool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		file, err := req.RequireString("file")
		if err != nil {
			return mcpsdk.NewToolResultError(err.Error()), nil
		}
		depth := int(req.GetFloat("depth", 3))

		target, err := impact.NewAnalyzer(s.db, s.projectID).FindTarget(file)
		if err != nil {
			return mcpsdk.NewToolResultError(err.Error()), nil
		}
		tree, err := s.db.GetDependencyTree(target.ID, depth, upstream)
		if err != nil {
			return mcpsdk.NewToolResultError(err.Error()), nil
		}

		title := "⬇️ 依赖"
		if upstream {
			title = "⬆️ 依赖方"
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s\n%s\n", display.NodeLabel(target), title)
		if len(tree) == 0 {
			sb.WriteString("└── (无)\n")
		} else {
			sb.WriteString(display.RenderTree(tree))
		}
		return mcpsdk.NewToolResultText(sb.String()), nil
	}
}

func (s *Server) handleCycles(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	g, err := s.db.LoadGraph(s.projectID)
	if err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	cycles, err := s.db.GetCycles(s.projectID)
	if err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	if len(cycles) == 0 {
		return mcpsdk.NewToolResultText("✅ 未发现循环依赖"), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔄 循环依赖 (共 %d 个)\n\n", len(cycles))
	for i, c := range cycles {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, c.Severity(), strings.Join(c.Paths(g), " → "))
	}
	return mcpsdk.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSuggestions(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	limit := int(req.GetFloat("limit", defaultLimit))
	sugs, err := s.db.GetSuggestions(s.projectID)
	if err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	if limit > 0 && len(sugs) > limit {
		sugs = sugs[:limit]
	}
	return jsonResult(sugs)
}

func (s *Server) handleSearch(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	limit := int(req.GetFloat("limit", defaultLimit))

	nodes, err := s.db.FindNodesByPattern(s.projectID, pattern)
	if err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	total := len(nodes)
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	if total == 0 {
		return mcpsdk.NewToolResultText(fmt.Sprintf("未找到匹配 %q 的文件", pattern)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "找到 %d 个文件", total)
	if total > len(nodes) {
		fmt.Fprintf(&sb, "（显示前 %d 个）", len(nodes))
	}
	sb.WriteString(":\n\n")
	for _, n := range nodes {
		sb.WriteString("- " + display.NodeLabel(n) + "\n")
	}
	return mcpsdk.NewToolResultText(sb.String()), nil
}

func (s *Server) handleRisk(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	file := req.GetString("file", "")
	if file == "" {
		scores, err := s.db.GetTopCoupled(s.projectID, int(req.GetFloat("limit", 10)))
		if err != nil {
			return mcpsdk.NewToolResultError(err.Error()), nil
		}
		return jsonResult(scores)
	}

	target, err := impact.NewAnalyzer(s.db, s.projectID).FindTarget(file)
	if err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	score, err := s.db.GetRiskScore(target.ID)
	if err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	return jsonResult(score)
}

func (s *Server) handleReport(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var buf bytes.Buffer
	if err := export.NewExporter(s.db).Export(&buf, s.projectID, export.DefaultExportOptions()); err != nil {
		return mcpsdk.NewToolResultError(err.Error()), nil
	}
	return mcpsdk.NewToolResultText(buf.String()), nil
}

func jsonResult(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcpsdk.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpsdk.NewToolResultText(string(data)), nil
}
