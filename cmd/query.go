package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/archscan/internal/display"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/impact"
)

func upstreamCmd() *cobra.Command {
	return treeCmd(true)
}

func downstreamCmd() *cobra.Command {
	return treeCmd(false)
}

// treeCmd builds the upstream (dependents) or downstream (dependencies) query
func treeCmd(upstream bool) *cobra.Command {
	var depth int
	var format string
	var selectN int

	use, short, title, icon, empty := "downstream <file>", "查询文件的下游依赖", "下游依赖", "⬇️ 依赖", "_无下游依赖_"
	if upstream {
		use, short, title, icon, empty = "upstream <file>", "查询依赖该文件的上游模块", "上游依赖方", "⬆️ 依赖方", "_无上游依赖方_"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			a := impact.NewAnalyzer(s.db, s.project())
			report, err := resolveTarget(s, args[0], selectN, func(q string) (*impact.ImpactReport, error) {
				if upstream {
					return a.AnalyzeImpact(q, depth, 1)
				}
				return a.AnalyzeImpact(q, 1, depth)
			})
			if err != nil {
				return err
			}

			direct, indirect := report.DirectDependencies, report.IndirectDependencies
			if upstream {
				direct, indirect = report.DirectDependents, report.IndirectDependents
			}

			switch format {
			case "json":
				return outputJSON(append(append([]*graph.Node{}, direct...), indirect...))
			case "markdown":
				fmt.Printf("## %s: %s\n\n", title, report.Target.Path)
				if len(direct) == 0 && len(indirect) == 0 {
					fmt.Println(empty)
					return nil
				}
				fmt.Println("| 文件 | 类型 | 层级 | 关系 |")
				fmt.Println("|------|------|------|------|")
				for _, n := range direct {
					fmt.Printf("| %s | %s | %s | 直接 |\n", n.Path, n.Type, layerOrDash(n))
				}
				for _, n := range indirect {
					fmt.Printf("| %s | %s | %s | 间接 |\n", n.Path, n.Type, layerOrDash(n))
				}
			default:
				tree, err := s.db.GetDependencyTree(report.Target.ID, depth, upstream)
				if err != nil {
					return fmt.Errorf("获取依赖树失败: %w", err)
				}

				fmt.Println("📍 当前文件")
				fmt.Printf("%s\n\n", display.NodeLabel(report.Target))

				if len(tree) > 0 {
					fmt.Printf("%s (深度 %d)\n", icon, depth)
					fmt.Print(display.RenderTree(tree))
				} else {
					fmt.Println(icon)
					fmt.Println("└── (无)")
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 3, "递归深度")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个文件时，直接选择第N个（跳过交互提示）")

	return cmd
}

func impactCmd() *cobra.Command {
	var upstreamDepth int
	var downstreamDepth int
	var format string
	var selectN int
	var changed bool
	var gitBase string

	cmd := &cobra.Command{
		Use:   "impact [file]",
		Short: "分析文件变更的影响范围",
		Long: `分析修改一个文件会影响哪些模块。

示例：
  archscan impact src/services/user.ts   # 单个文件的上下游
  archscan impact useUser --format markdown
  archscan impact --changed              # 所有 git 变更文件的影响范围`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !changed && len(args) == 0 {
				return fmt.Errorf("请指定文件，或使用 --changed 分析 git 变更")
			}

			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			a := impact.NewAnalyzer(s.db, s.project())

			if changed {
				report, err := a.ChangedImpact(".", gitBase)
				if err != nil {
					return fmt.Errorf("获取 git 变更失败: %w", err)
				}
				if format == "json" {
					return outputJSON(report)
				}
				fmt.Print(report.FormatMarkdown())
				return nil
			}

			report, err := resolveTarget(s, args[0], selectN, func(q string) (*impact.ImpactReport, error) {
				return a.AnalyzeImpact(q, upstreamDepth, downstreamDepth)
			})
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(report)
			case "markdown":
				fmt.Print(report.FormatMarkdown())
			default:
				fmt.Print(report.FormatTree())
				fmt.Printf("\n%s %s\n", getRiskIcon(report.RiskLevel), report.Summary())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&upstreamDepth, "upstream-depth", 0, "上游递归深度 (0=不限)")
	cmd.Flags().IntVar(&downstreamDepth, "downstream-depth", 0, "下游递归深度 (0=不限)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json/markdown)")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个文件时，直接选择第N个（跳过交互提示）")
	cmd.Flags().BoolVar(&changed, "changed", false, "分析所有 git 变更文件")
	cmd.Flags().StringVar(&gitBase, "base", "HEAD", "git 比较基准")

	return cmd
}

func listCmd() *cobra.Command {
	var limit int
	var layer string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出所有模块",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			nodes, err := s.db.GetNodes(s.project())
			if err != nil {
				return fmt.Errorf("查询失败: %w", err)
			}
			if layer != "" {
				filtered := nodes[:0]
				for _, n := range nodes {
					if layerOrDash(n) == layer {
						filtered = append(filtered, n)
					}
				}
				nodes = filtered
			}

			fmt.Printf("共 %d 个模块:\n\n", len(nodes))
			for i, n := range nodes {
				if limit > 0 && i >= limit {
					fmt.Printf("... 还有 %d 个模块\n", len(nodes)-limit)
					break
				}
				fmt.Printf("  %s\n    %s/%s  入度 %d  出度 %d  耦合度 %d\n",
					n.Path, n.Type, layerOrDash(n), n.Incoming, n.Outgoing, n.Coupling)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "限制显示数量 (0=全部)")
	cmd.Flags().StringVar(&layer, "layer", "", "按层级过滤 (presentation/client/server/external/-)")

	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "按文件名或路径搜索模块",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			nodes, err := s.db.FindNodesByPattern(s.project(), args[0])
			if err != nil {
				return fmt.Errorf("搜索失败: %w", err)
			}

			if len(nodes) == 0 {
				fmt.Println("未找到匹配的模块")
				return nil
			}

			fmt.Printf("找到 %d 个匹配:\n\n", len(nodes))
			for _, n := range nodes {
				fmt.Printf("  %s\n    %s\n", n.Name, nodeDesc(n))
			}
			return nil
		},
	}

	return cmd
}

func layerOrDash(n *graph.Node) string {
	if l := n.LayerName(); l != "" {
		return l
	}
	return "-"
}
