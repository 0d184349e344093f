package impact

import (
	"fmt"
	"strings"

	"github.com/zheng/archscan/internal/graph"
)

// FormatMarkdown formats the impact report as markdown
func (r *ImpactReport) FormatMarkdown() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## 变更影响分析: %s\n\n", r.Target.Name))
	sb.WriteString(fmt.Sprintf("**位置:** %s\n\n", r.Target.Path))
	sb.WriteString(fmt.Sprintf("**类型:** %s  **层级:** %s  **风险:** %s\n\n",
		r.Target.Type, layerOrDash(r.Target), r.RiskLevel))

	writeTable(&sb, "### 直接依赖方 (需检查是否需要同步修改)", "_无直接依赖方_", r.DirectDependents)
	if len(r.IndirectDependents) > 0 {
		writeTable(&sb, "### 间接依赖方 (可能受影响)", "", r.IndirectDependents)
	}
	writeTable(&sb, "### 下游依赖 (本文件引用的)", "_无下游依赖_", r.DirectDependencies)
	if len(r.IndirectDependencies) > 0 {
		writeTable(&sb, "### 间接下游依赖", "", r.IndirectDependencies)
	}

	return sb.String()
}

func writeTable(sb *strings.Builder, title, empty string, nodes []*graph.Node) {
	sb.WriteString(title + "\n\n")
	if len(nodes) == 0 {
		sb.WriteString(empty + "\n\n")
		return
	}
	sb.WriteString("| 文件 | 类型 | 层级 | 耦合度 |\n")
	sb.WriteString("|------|------|------|--------|\n")
	for _, n := range nodes {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d |\n", n.Path, n.Type, layerOrDash(n), n.Coupling))
	}
	sb.WriteString("\n")
}

// FormatTree formats the impact report as a tree structure
func (r *ImpactReport) FormatTree() string {
	var sb strings.Builder

	upstream := append(append([]*graph.Node{}, r.DirectDependents...), r.IndirectDependents...)
	downstream := append(append([]*graph.Node{}, r.DirectDependencies...), r.IndirectDependencies...)

	// Calculate max width for alignment
	maxWidth := len(shortPath(r.Target.Path))
	for _, n := range append(append([]*graph.Node{}, upstream...), downstream...) {
		if w := len(shortPath(n.Path)); w > maxWidth {
			maxWidth = w
		}
	}

	sb.WriteString("📍 当前文件\n")
	sb.WriteString(fmt.Sprintf("%-*s  %s\n\n", maxWidth, shortPath(r.Target.Path), r.Target.Type))

	writeBranch(&sb, "⬆️ 依赖方", upstream, maxWidth)
	sb.WriteString("\n")
	writeBranch(&sb, "⬇️ 依赖", downstream, maxWidth)

	return sb.String()
}

func writeBranch(sb *strings.Builder, title string, nodes []*graph.Node, width int) {
	if len(nodes) == 0 {
		sb.WriteString(title + "\n")
		sb.WriteString("└── (无)\n")
		return
	}
	sb.WriteString(fmt.Sprintf("%s (共 %d 个)\n", title, len(nodes)))
	for i, n := range nodes {
		prefix := "├──"
		if i == len(nodes)-1 {
			prefix = "└──"
		}
		sb.WriteString(fmt.Sprintf("%s %-*s  %s\n", prefix, width, shortPath(n.Path), n.Type))
	}
}

// FormatMarkdown formats the change report as markdown
func (c *ChangeReport) FormatMarkdown() string {
	var sb strings.Builder
	sb.WriteString("## 变更影响范围\n\n")
	writeTable(&sb, "### 变更文件", "_无变更文件_", c.Changed)
	writeTable(&sb, "### 受影响模块", "_无受影响模块_", c.Affected)
	if len(c.Unknown) > 0 {
		sb.WriteString("### 未扫描的文件\n\n")
		for _, p := range c.Unknown {
			sb.WriteString("- " + p + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// shortPath extracts the last two path components
// e.g., "src/components/Button.tsx" -> "components/Button.tsx"
func shortPath(fullPath string) string {
	parts := strings.Split(fullPath, "/")
	if len(parts) <= 2 {
		return fullPath
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

func layerOrDash(n *graph.Node) string {
	if l := n.LayerName(); l != "" {
		return l
	}
	return "-"
}

// Summary returns a brief summary of the impact report
func (r *ImpactReport) Summary() string {
	return fmt.Sprintf(
		"Target: %s, Direct Dependents: %d, Indirect Dependents: %d, Direct Dependencies: %d, Indirect Dependencies: %d, Risk: %s",
		r.Target.Path,
		len(r.DirectDependents),
		len(r.IndirectDependents),
		len(r.DirectDependencies),
		len(r.IndirectDependencies),
		r.RiskLevel,
	)
}
