package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zheng/archscan/internal/analyzer"
	"github.com/zheng/archscan/internal/export"
)

func exportCmd() *cobra.Command {
	var (
		outputFile  string
		format      string
		changedOnly bool
		gitBase     string
		remote      bool
		rescan      bool
		noMermaid   bool
		maxNodes    int
	)

	cmd := &cobra.Command{
		Use:   "export [project-path]",
		Short: "生成架构报告 (Markdown/JSON)",
		Long: `把最近一次分析结果整理成架构报告，适合提交到仓库或作为 AI 编码上下文。

报告章节：
  概览 · 分层统计 · Mermaid 依赖图 · 循环依赖 · 分层违规 · 拆分候选 · 重构建议 · 修改影响速查

示例：
  archscan export -o ARCHITECTURE.md        # 从数据库导出
  archscan export . --rescan                 # 先重新扫描再导出 (不写数据库)
  archscan export --changed -r               # 只报告相对远程分支的变更影响
  archscan export --format json > arch.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := "."
			if len(args) > 0 {
				projectPath = args[0]
			}
			if format != "markdown" && format != "json" {
				return fmt.Errorf("不支持的格式: %s (可选 markdown/json)", format)
			}

			s, err := openSession(projectPath)
			if err != nil {
				return err
			}
			defer s.Close()

			w, closeOutput, err := createOutput(outputFile)
			if err != nil {
				return err
			}
			defer closeOutput()

			exporter := export.NewExporter(s.db)

			if changedOnly {
				if remote {
					if branch, err := analyzer.GetRemoteTrackingBranch(projectPath); err == nil {
						gitBase = branch
					} else {
						fmt.Fprintf(os.Stderr, "警告: %v，改用 %s\n", err, gitBase)
					}
				}
				changes, err := analyzer.GetGitChanges(projectPath, gitBase)
				if err != nil {
					return fmt.Errorf("获取 git 变更失败: %w", err)
				}
				fmt.Fprintf(os.Stderr, "对比 %s: %s\n", gitBase, changes)
				return exporter.ExportIncremental(w, s.project(), changes.ChangedFiles)
			}

			var doc export.Document
			if rescan {
				eng, err := s.engine()
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				rep, err := eng.Run(ctx, s.project(), projectPath)
				if err != nil {
					return fmt.Errorf("分析失败: %w", err)
				}
				doc = export.FromReport(rep)
			} else if doc, err = exporter.Load(s.project()); err != nil {
				return fmt.Errorf("读取分析结果失败 (请先运行 archscan analyze): %w", err)
			}

			if format == "json" {
				return writeDocumentJSON(w, doc)
			}

			opts := export.DefaultExportOptions()
			opts.ProjectName = s.project()
			opts.IncludeMermaid = !noMermaid
			if maxNodes > 0 {
				opts.MaxMermaidNodes = maxNodes
			}
			if err := export.Render(w, doc, opts); err != nil {
				return err
			}
			if outputFile != "" && outputFile != "-" {
				fmt.Fprintf(os.Stderr, "✓ 报告已写入 %s (%d 模块, %d 条循环, %d 条建议)\n",
					outputFile, len(doc.Graph.Nodes), len(doc.Cycles), len(doc.Suggestions))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outputFile, "output", "o", "", "输出文件 (默认 stdout)")
	f.StringVar(&format, "format", "markdown", "报告格式 (markdown/json)")
	f.BoolVar(&changedOnly, "changed", false, "只输出 git 变更文件及其受影响模块")
	f.StringVar(&gitBase, "base", "HEAD", "git 比较基准，配合 --changed")
	f.BoolVarP(&remote, "remote", "r", false, "以远程跟踪分支为基准，配合 --changed")
	f.BoolVar(&rescan, "rescan", false, "导出前重新扫描项目 (结果不写入数据库)")
	f.BoolVar(&noMermaid, "no-mermaid", false, "省略 Mermaid 依赖图")
	f.IntVar(&maxNodes, "max-nodes", 0, "Mermaid 图最多展示的模块数 (0=默认)")

	return cmd
}

// createOutput opens path for writing; "" and "-" mean stdout, which is never closed
func createOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("创建输出文件失败: %w", err)
	}
	return f, f.Close, nil
}

// writeDocumentJSON emits the report data without the in-memory graph indices
func writeDocumentJSON(w io.Writer, doc export.Document) error {
	cycles := make([][]string, 0, len(doc.Cycles))
	for _, c := range doc.Cycles {
		cycles = append(cycles, c.Paths(doc.Graph))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"project_id":  doc.ProjectID,
		"summary":     doc.Stats,
		"nodes":       doc.Graph.Nodes,
		"edges":       doc.Graph.Edges,
		"cycles":      cycles,
		"violations":  doc.Violations,
		"candidates":  doc.Candidates,
		"suggestions": doc.Suggestions,
	})
}
