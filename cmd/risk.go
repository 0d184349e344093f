package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func riskCmd() *cobra.Command {
	var limit int
	var selectN int

	cmd := &cobra.Command{
		Use:   "risk [file]",
		Short: "分析文件变更风险",
		Long: `分析模块的变更风险等级，基于依赖方数量评估。

风险等级说明：
  - critical: 直接依赖方 >= 20 或总依赖方 >= 60
  - high:     直接依赖方 >= 10 或总依赖方 >= 30
  - medium:   直接依赖方 >= 3 或总依赖方 >= 10
  - low:      其他

示例：
  archscan risk src/utils/format.ts   # 查看单个文件的风险
  archscan risk --top --limit 20      # 显示风险最高的20个模块`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showTop, _ := cmd.Flags().GetBool("top")

			s, err := openSession(".")
			if err != nil {
				return err
			}
			defer s.Close()

			if showTop || len(args) == 0 {
				risks, err := s.db.GetTopCoupled(s.project(), limit)
				if err != nil {
					return fmt.Errorf("查询失败: %w", err)
				}

				if len(risks) == 0 {
					fmt.Println("项目中没有模块")
					return nil
				}

				fmt.Printf("高风险模块排行 (Top %d)\n\n", limit)
				for _, r := range risks {
					fmt.Printf("%s %-8s  %s\n", getRiskIcon(r.RiskLevel), r.RiskLevel, r.Node.Path)
					fmt.Printf("             直接依赖方: %d  总依赖方: %d  耦合度: %d\n\n",
						r.DirectDependents, r.TotalDependents, r.Node.Coupling)
				}

				fmt.Println("风险等级: 🔴critical(>=20) 🟠high(>=10) 🟡medium(>=3) 🟢low")
				fmt.Println("\n💡 使用 archscan risk <文件> 查看详细分析")
				return nil
			}

			nodes, err := s.db.FindNodesByPattern(s.project(), args[0])
			if err != nil {
				return fmt.Errorf("查询失败: %w", err)
			}
			if len(nodes) == 0 {
				return fmt.Errorf("未找到文件: %s", args[0])
			}

			node := nodes[0]
			if selectN >= 1 && selectN <= len(nodes) {
				node = nodes[selectN-1]
			}
			risk, err := s.db.GetRiskScore(node.ID)
			if err != nil {
				return fmt.Errorf("计算风险失败: %w", err)
			}

			fmt.Printf("## 变更风险分析: %s\n\n", risk.Node.Name)
			fmt.Printf("**位置:** %s\n", risk.Node.Path)
			fmt.Printf("**类型:** %s/%s\n\n", risk.Node.Type, layerOrDash(risk.Node))

			fmt.Printf("### 风险等级: %s %s\n\n", getRiskIcon(risk.RiskLevel), risk.RiskLevel)
			fmt.Printf("直接依赖方: %d\n", risk.DirectDependents)
			fmt.Printf("总依赖方: %d\n", risk.TotalDependents)
			fmt.Printf("耦合度: %d  复杂度: %d\n", risk.Node.Coupling, risk.Node.Complexity)

			fmt.Println("\n**建议:**")
			switch risk.RiskLevel {
			case "critical":
				fmt.Println("- ⚠️  此模块被大量依赖，修改需极其谨慎")
				fmt.Println("- 建议先运行 `archscan impact` 查看完整影响范围")
				fmt.Println("- 修改前确保有充分的测试覆盖")
				fmt.Println("- 考虑新增导出而非修改现有导出")
			case "high":
				fmt.Println("- ⚠️  此模块依赖方较多，修改需谨慎")
				fmt.Println("- 建议运行 `archscan upstream` 查看依赖方")
				fmt.Println("- 确保修改后同步更新所有引用处")
			case "medium":
				fmt.Println("- 正常风险，注意检查引用处是否需要同步修改")
				fmt.Println("- 可运行 `archscan upstream` 查看具体依赖方")
			case "low":
				fmt.Println("- 低风险，影响范围较小")
				fmt.Println("- 正常修改即可")
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "显示数量")
	cmd.Flags().IntVar(&selectN, "select", 0, "当匹配到多个文件时，选择第N个")
	cmd.Flags().Bool("top", false, "显示风险最高的模块列表")

	return cmd
}

// getRiskIcon maps a risk level or suggestion priority to its marker
func getRiskIcon(level string) string {
	switch level {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	default:
		return "🟢"
	}
}
