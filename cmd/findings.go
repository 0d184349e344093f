package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/suggest"
)

func cyclesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "列出循环依赖",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			g, err := s.db.LoadGraph(s.project())
			if err != nil {
				return fmt.Errorf("加载依赖图失败: %w", err)
			}
			cycles, err := s.db.GetCycles(s.project())
			if err != nil {
				return fmt.Errorf("查询失败: %w", err)
			}

			if format == "json" {
				type cycleOut struct {
					Paths    []string        `json:"paths"`
					Length   int             `json:"length"`
					Severity detect.Severity `json:"severity"`
				}
				out := make([]cycleOut, 0, len(cycles))
				for _, c := range cycles {
					out = append(out, cycleOut{Paths: c.Paths(g), Length: c.Len(), Severity: c.Severity()})
				}
				return outputJSON(out)
			}

			if len(cycles) == 0 {
				fmt.Println("✅ 没有循环依赖")
				return nil
			}

			fmt.Printf("发现 %d 条循环依赖:\n\n", len(cycles))
			for i, c := range cycles {
				icon := "🟡"
				if c.Severity() == detect.SeverityHigh {
					icon = "🔴"
				}
				fmt.Printf("%s [%d] 长度 %d (%s)\n", icon, i+1, c.Len(), c.Severity())
				fmt.Printf("    %s\n\n", strings.Join(c.Paths(g), " → "))
			}
			fmt.Println("💡 使用 archscan suggest 查看拆解建议")
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")
	return cmd
}

func layersCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "layers",
		Aliases: []string{"violations"},
		Short:   "检查分层违规",
		Long: `检查模块之间的依赖是否违反分层顺序：

  presentation(0) < client(1) < server(2) < external(3)

违规类型：
  - server_to_client:     服务端模块依赖客户端模块
  - external_to_internal: 外部集成模块依赖内部模块`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			g, err := s.db.LoadGraph(s.project())
			if err != nil {
				return fmt.Errorf("加载依赖图失败: %w", err)
			}
			violations := detect.ValidateLayers(g)

			if format == "json" {
				return outputJSON(violations)
			}

			if len(violations) == 0 {
				fmt.Println("✅ 没有分层违规")
				return nil
			}

			fmt.Printf("发现 %d 处分层违规 (server→client %d, external→internal %d):\n\n", len(violations),
				detect.CountKind(violations, detect.ViolationServerToClient),
				detect.CountKind(violations, detect.ViolationExternalToInternal))
			for _, v := range violations {
				fmt.Printf("🟠 %s\n", v.Kind)
				fmt.Printf("    %s (%s) → %s (%s)\n\n", v.Source.Path, v.Source.LayerName(), v.Target.Path, v.Target.LayerName())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")
	return cmd
}

func suggestCmd() *cobra.Command {
	var format string
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "查看重构建议",
		Long: `按优先级列出上一次分析生成的重构建议。

建议类型：
  - break-circular:        打破循环依赖
  - move-to-layer:         修正分层违规
  - extract-module:        拆分高耦合/高复杂度模块
  - consolidate-utilities: 合并零散的工具模块`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			suggestions, err := s.db.GetSuggestions(s.project())
			if err != nil {
				return fmt.Errorf("查询失败: %w", err)
			}
			if limit > 0 && len(suggestions) > limit {
				suggestions = suggestions[:limit]
			}

			if format == "json" {
				return outputJSON(suggestions)
			}

			if len(suggestions) == 0 {
				fmt.Println("暂无重构建议")
				return nil
			}

			for i, sg := range suggestions {
				fmt.Printf("%s [%d] %s\n", getRiskIcon(string(sg.Priority)), i+1, sg.Title)
				fmt.Printf("    类型: %s  优先级: %s  来源: %s\n", sg.Type, sg.Priority, sg.Source)
				fmt.Printf("    工作量 %d/10  收益 %d/10  风险 %d/10\n", sg.Effort, sg.Impact, sg.Risk)
				if sg.Description != "" {
					fmt.Printf("    %s\n", sg.Description)
				}
				if sg.Source == suggest.SourceAI && sg.Reasoning != "" {
					fmt.Printf("    理由: %s\n", sg.Reasoning)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")
	cmd.Flags().IntVar(&limit, "limit", 0, "限制显示数量 (0=全部)")
	return cmd
}

func alertsCmd() *cobra.Command {
	var status string
	var format string

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "查看架构漂移告警",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			alerts, err := s.db.GetAlerts(s.project(), status)
			if err != nil {
				return fmt.Errorf("查询失败: %w", err)
			}

			if format == "json" {
				return outputJSON(alerts)
			}

			if len(alerts) == 0 {
				fmt.Println("暂无告警")
				return nil
			}

			fmt.Printf("共 %d 条告警:\n\n", len(alerts))
			for _, a := range alerts {
				icon := "🟡"
				if a.Severity == detect.AlertCritical {
					icon = "🔴"
				}
				fmt.Printf("%s %s  [%s]\n", icon, a.Title, a.Status)
				fmt.Printf("    %s  (期望: %s)\n", a.DetectedPattern, a.IdealPattern)
				fmt.Printf("    %s\n\n", a.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "按状态过滤 (默认全部)")
	cmd.Flags().StringVar(&format, "format", "text", "输出格式 (text/json)")
	return cmd
}
