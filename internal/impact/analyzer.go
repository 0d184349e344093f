package impact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zheng/archscan/internal/analyzer"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/storage"
)

// Analyzer performs impact analysis on a stored module graph
type Analyzer struct {
	db        *storage.DB
	projectID string
}

// NewAnalyzer creates a new impact analyzer for one project
func NewAnalyzer(db *storage.DB, projectID string) *Analyzer {
	return &Analyzer{db: db, projectID: projectID}
}

// ImpactReport represents the impact analysis of a file change
type ImpactReport struct {
	Target               *graph.Node   `json:"target"`
	DirectDependents     []*graph.Node `json:"direct_dependents"`
	IndirectDependents   []*graph.Node `json:"indirect_dependents"`
	DirectDependencies   []*graph.Node `json:"direct_dependencies"`
	IndirectDependencies []*graph.Node `json:"indirect_dependencies"`
	RiskLevel            string        `json:"risk_level"`
}

// FindTarget resolves a node id, relative path, or path fragment to one node
func (a *Analyzer) FindTarget(query string) (*graph.Node, error) {
	if n, err := a.db.GetProjectNode(a.projectID, query); err == nil {
		return n, nil
	}
	if n, err := a.db.GetNodeByPath(a.projectID, query); err == nil {
		return n, nil
	}

	nodes, err := a.db.FindNodesByPattern(a.projectID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	switch {
	case len(nodes) == 0:
		return nil, fmt.Errorf("file not found: %s: %w", query, storage.ErrNotFound)
	case len(nodes) == 1, nodes[0].Name == query:
		return nodes[0], nil
	}

	var names []string
	for _, n := range nodes {
		names = append(names, n.Path)
	}
	return nil, fmt.Errorf("ambiguous file name, found %d matches: %s", len(nodes), strings.Join(names, ", "))
}

// AnalyzeImpact analyzes the impact of changing a file.
// A depth of 1 only collects direct neighbours; 0 means unbounded up to the traversal cap.
func (a *Analyzer) AnalyzeImpact(query string, upstreamDepth, downstreamDepth int) (*ImpactReport, error) {
	target, err := a.FindTarget(query)
	if err != nil {
		return nil, err
	}

	report := &ImpactReport{Target: target}

	report.DirectDependents, err = a.db.GetDirectDependents(target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct dependents: %w", err)
	}
	if upstreamDepth != 1 {
		all, err := a.db.GetDependents(target.ID, upstreamDepth)
		if err != nil {
			return nil, fmt.Errorf("failed to get upstream dependents: %w", err)
		}
		report.IndirectDependents = subtract(all, report.DirectDependents)
	}

	report.DirectDependencies, err = a.db.GetDirectDependencies(target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct dependencies: %w", err)
	}
	if downstreamDepth != 1 {
		all, err := a.db.GetDependencies(target.ID, downstreamDepth)
		if err != nil {
			return nil, fmt.Errorf("failed to get downstream dependencies: %w", err)
		}
		report.IndirectDependencies = subtract(all, report.DirectDependencies)
	}

	report.RiskLevel = storage.CalculateRiskLevel(len(report.DirectDependents),
		len(report.DirectDependents)+len(report.IndirectDependents))
	return report, nil
}

// ChangeReport lists the modules affected by a set of changed files
type ChangeReport struct {
	Changed  []*graph.Node `json:"changed"`
	Affected []*graph.Node `json:"affected"` // 受影响的上游模块, 不含变更文件本身
	Unknown  []string      `json:"unknown"`  // 未入库的变更文件 (新文件或未扫描)
}

// ChangedImpact runs git diff against base and collects every upstream dependent of the changed files
func (a *Analyzer) ChangedImpact(projectPath, base string) (*ChangeReport, error) {
	changes, err := analyzer.GetGitChanges(projectPath, base)
	if err != nil {
		return nil, err
	}
	return a.FilesImpact(changes.ChangedFiles)
}

// FilesImpact collects every upstream dependent of the given relative paths
func (a *Analyzer) FilesImpact(paths []string) (*ChangeReport, error) {
	report := &ChangeReport{Unknown: []string{}}
	changed := make(map[string]bool)
	affected := make(map[string]*graph.Node)

	for _, p := range paths {
		n, err := a.db.GetNodeByPath(a.projectID, p)
		if err != nil {
			report.Unknown = append(report.Unknown, p)
			continue
		}
		if changed[n.ID] {
			continue
		}
		changed[n.ID] = true
		report.Changed = append(report.Changed, n)

		deps, err := a.db.GetDependents(n.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get dependents of %s: %w", p, err)
		}
		for _, d := range deps {
			affected[d.ID] = d
		}
	}

	for id, n := range affected {
		if !changed[id] {
			report.Affected = append(report.Affected, n)
		}
	}
	sort.Slice(report.Affected, func(i, j int) bool { return report.Affected[i].Path < report.Affected[j].Path })
	return report, nil
}

func subtract(all, direct []*graph.Node) []*graph.Node {
	seen := make(map[string]bool, len(direct))
	for _, n := range direct {
		seen[n.ID] = true
	}
	var out []*graph.Node
	for _, n := range all {
		if !seen[n.ID] {
			out = append(out, n)
		}
	}
	return out
}
