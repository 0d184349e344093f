package display

import (
	"fmt"
	"strings"

	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/storage"
)

// ShortPath keeps the last two components of a relative path.
// e.g., "src/components/Button.tsx" -> "components/Button.tsx"
func ShortPath(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) <= 2 {
		return p
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

// NodeLabel renders a node as "path [type/layer]"
func NodeLabel(n *graph.Node) string {
	if l := n.LayerName(); l != "" {
		return fmt.Sprintf("%s [%s/%s]", n.Path, n.Type, l)
	}
	return fmt.Sprintf("%s [%s]", n.Path, n.Type)
}

// CalcTreeMaxWidth calculates the maximum path width and depth for alignment in the dependency tree.
func CalcTreeMaxWidth(tree []*storage.TreeNode, maxWidth *int, currentDepth int, maxDepth *int) {
	if currentDepth > *maxDepth {
		*maxDepth = currentDepth
	}
	for _, node := range tree {
		w := len(node.Node.Path)
		if w > *maxWidth {
			*maxWidth = w
		}
		if len(node.Children) > 0 {
			CalcTreeMaxWidth(node.Children, maxWidth, currentDepth+1, maxDepth)
		}
	}
}

// FormatTree renders a dependency tree as a string with box-drawing characters.
func FormatTree(tree []*storage.TreeNode, indent string, maxWidth int, maxDepth int, currentDepth int) string {
	var sb strings.Builder
	for i, node := range tree {
		isLast := i == len(tree)-1
		prefix := "├──"
		if isLast {
			prefix = "└──"
		}

		padding := maxWidth + (maxDepth-currentDepth)*4
		sb.WriteString(fmt.Sprintf("%s%s %-*s  %s\n", indent, prefix, padding, node.Node.Path, describe(node.Node)))

		if len(node.Children) > 0 {
			childIndent := indent + "│   "
			if isLast {
				childIndent = indent + "    "
			}
			sb.WriteString(FormatTree(node.Children, childIndent, maxWidth, maxDepth, currentDepth+1))
		}
	}
	return sb.String()
}

// RenderTree formats a whole tree with aligned columns
func RenderTree(tree []*storage.TreeNode) string {
	maxWidth, maxDepth := 0, 0
	CalcTreeMaxWidth(tree, &maxWidth, 0, &maxDepth)
	return FormatTree(tree, "", maxWidth, maxDepth, 0)
}

func describe(n *graph.Node) string {
	if l := n.LayerName(); l != "" {
		return fmt.Sprintf("%s · %s", n.Type, l)
	}
	return string(n.Type)
}
