package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/impact"
	"github.com/zheng/archscan/internal/storage"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveTarget runs analyze on query; when the name is ambiguous it picks the
// selectN-th match or asks the user to choose
func resolveTarget(s *session, query string, selectN int, analyze func(q string) (*impact.ImpactReport, error)) (*impact.ImpactReport, error) {
	report, err := analyze(query)
	if err == nil {
		return report, nil
	}
	if !strings.Contains(err.Error(), "ambiguous file name") {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("未找到文件: %s", query)
		}
		return nil, err
	}

	nodes, ferr := s.db.FindNodesByPattern(s.project(), query)
	if ferr != nil || len(nodes) <= 1 {
		return nil, err
	}

	if selectN >= 1 && selectN <= len(nodes) {
		return analyze(nodes[selectN-1].ID)
	}

	fmt.Println("找到多个匹配的文件，请选择:")
	for i, n := range nodes {
		fmt.Printf("  [%d] %s\n      %s\n", i+1, n.Name, nodeDesc(n))
	}
	fmt.Print("\n请输入序号 [1-" + fmt.Sprint(len(nodes)) + "]: ")

	var choice int
	if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 1 || choice > len(nodes) {
		return nil, fmt.Errorf("无效的选择")
	}
	return analyze(nodes[choice-1].ID)
}

// nodeDesc renders "path  type/layer" for list output
func nodeDesc(n *graph.Node) string {
	layer := n.LayerName()
	if layer == "" {
		layer = "-"
	}
	return fmt.Sprintf("%s  %s/%s", n.Path, n.Type, layer)
}

func printStats(rep *engine.Report) {
	st := rep.Stats
	fmt.Printf("  文件: %d  依赖: %d  循环依赖: %d\n", st.TotalFiles, st.TotalEdges, st.CircularChains)
	fmt.Printf("  平均复杂度: %.1f  平均耦合度: %.1f\n", st.AverageComplexity, st.AverageCoupling)
	fmt.Printf("  跳过文件: %d  跳过目录: %d  外部引用: %d\n", st.SkippedFiles, st.SkippedDirs, st.ExternalRefs)
	fmt.Printf("  分层违规: %d  拆分候选: %d  重构建议: %d  新增告警: %d\n",
		len(rep.Violations), len(rep.Candidates), len(rep.Suggestions), len(rep.Alerts))
}
