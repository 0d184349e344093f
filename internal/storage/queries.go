package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/extract"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/suggest"
)

// maxTraversalDepth caps recursive queries; cycles are common in module graphs
const maxTraversalDepth = 50

const nodeColumns = `id, project_id, path, name, type, layer, complexity, stability, coupling,
	cohesion, lines_of_code, incoming, outgoing, active, last_modified`

const nodeColumnsN = `n.id, n.project_id, n.path, n.name, n.type, n.layer, n.complexity, n.stability, n.coupling,
	n.cohesion, n.lines_of_code, n.incoming, n.outgoing, n.active, n.last_modified`

const edgeColumns = `id, project_id, source_id, target_id, weight, ref_count, kinds, circular, strength`

// GetNodes returns every node of a project ordered by path
func (db *DB) GetNodes(projectID string) ([]*graph.Node, error) {
	rows, err := db.conn.Query(`SELECT `+nodeColumns+` FROM nodes WHERE project_id = ? ORDER BY path`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetEdges returns every edge of a project in saved order
func (db *DB) GetEdges(projectID string) ([]*graph.Edge, error) {
	rows, err := db.conn.Query(`SELECT `+edgeColumns+` FROM edges WHERE project_id = ? ORDER BY rowid`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// LoadGraph rebuilds the in-memory graph of a project
func (db *DB) LoadGraph(projectID string) (*graph.Graph, error) {
	nodes, err := db.GetNodes(projectID)
	if err != nil {
		return nil, err
	}
	edges, err := db.GetEdges(projectID)
	if err != nil {
		return nil, err
	}
	return graph.New(nodes, edges), nil
}

// GetNodeByID returns a node by its ID
func (db *DB) GetNodeByID(id string) (*graph.Node, error) {
	row := db.conn.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	return scanNode(row)
}

// GetProjectNode returns a node by its ID only if it belongs to projectID
func (db *DB) GetProjectNode(projectID, id string) (*graph.Node, error) {
	row := db.conn.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE project_id = ? AND id = ?`, projectID, id)
	return scanNode(row)
}

// GetNodeByPath returns a node by its project-relative path
func (db *DB) GetNodeByPath(projectID, path string) (*graph.Node, error) {
	row := db.conn.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE project_id = ? AND path = ?`, projectID, path)
	return scanNode(row)
}

// likeEscaper makes user input literal inside a LIKE pattern with ESCAPE '\'
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FindNodesByPattern returns nodes whose path contains pattern literally.
// Results are sorted by match quality: exact file name > path ends with pattern > contains pattern
func (db *DB) FindNodesByPattern(projectID, pattern string) ([]*graph.Node, error) {
	escaped := likeEscaper.Replace(pattern)
	rows, err := db.conn.Query(
		`SELECT `+nodeColumns+` FROM nodes
		 WHERE project_id = ? AND path LIKE ? ESCAPE '\'
		 ORDER BY
			CASE
				WHEN name = ? OR path = ? THEN 0
				WHEN path LIKE ? ESCAPE '\' THEN 1
				ELSE 2
			END,
			length(path) ASC, path ASC`,
		projectID, "%"+escaped+"%", pattern, pattern, "%"+escaped,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// ResolveNode finds a node by id, exact path, or best pattern match
func (db *DB) ResolveNode(projectID, query string) (*graph.Node, error) {
	if n, err := db.GetProjectNode(projectID, query); err == nil {
		return n, nil
	}
	if n, err := db.GetNodeByPath(projectID, query); err == nil {
		return n, nil
	}
	nodes, err := db.FindNodesByPattern(projectID, query)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNotFound
	}
	return nodes[0], nil
}

// GetDirectDependents returns nodes that directly reference the given node
func (db *DB) GetDirectDependents(nodeID string) ([]*graph.Node, error) {
	rows, err := db.conn.Query(
		`SELECT `+nodeColumnsN+`
		 FROM nodes n
		 JOIN edges e ON e.source_id = n.id
		 WHERE e.target_id = ?
		 ORDER BY n.path`,
		nodeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetDirectDependencies returns nodes the given node directly references
func (db *DB) GetDirectDependencies(nodeID string) ([]*graph.Node, error) {
	rows, err := db.conn.Query(
		`SELECT `+nodeColumnsN+`
		 FROM nodes n
		 JOIN edges e ON e.target_id = n.id
		 WHERE e.source_id = ?
		 ORDER BY n.path`,
		nodeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetDependents returns all upstream dependents recursively up to maxDepth.
// maxDepth <= 0 means the traversal cap.
func (db *DB) GetDependents(nodeID string, maxDepth int) ([]*graph.Node, error) {
	return db.traverse(nodeID, maxDepth, "source_id", "target_id")
}

// GetDependencies returns all downstream dependencies recursively up to maxDepth
func (db *DB) GetDependencies(nodeID string, maxDepth int) ([]*graph.Node, error) {
	return db.traverse(nodeID, maxDepth, "target_id", "source_id")
}

// traverse walks edges from nodeID; next is the column reached, from the column matched
func (db *DB) traverse(nodeID string, maxDepth int, next, from string) ([]*graph.Node, error) {
	if maxDepth <= 0 || maxDepth > maxTraversalDepth {
		maxDepth = maxTraversalDepth
	}
	query := `
		WITH RECURSIVE reach(id, depth) AS (
			SELECT ` + next + `, 1 FROM edges WHERE ` + from + ` = ?
			UNION
			SELECT e.` + next + `, r.depth + 1
			FROM edges e
			JOIN reach r ON e.` + from + ` = r.id
			WHERE r.depth < ?
		)
		SELECT ` + nodeColumnsN + `
		FROM nodes n
		JOIN (SELECT id, MIN(depth) AS depth FROM reach GROUP BY id) r ON r.id = n.id
		WHERE n.id != ?
		ORDER BY r.depth, n.path`

	rows, err := db.conn.Query(query, nodeID, maxDepth, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// TreeNode represents a node in a dependency tree with its children
type TreeNode struct {
	Node     *graph.Node `json:"node"`
	Children []*TreeNode `json:"children,omitempty"`
}

// GetDependencyTree builds a tree of dependents (upstream) or dependencies.
// A node already on the current branch is not expanded again.
func (db *DB) GetDependencyTree(nodeID string, maxDepth int, upstream bool) ([]*TreeNode, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return db.buildTree(nodeID, maxDepth, upstream, map[string]bool{nodeID: true})
}

func (db *DB) buildTree(nodeID string, depth int, upstream bool, branch map[string]bool) ([]*TreeNode, error) {
	var direct []*graph.Node
	var err error
	if upstream {
		direct, err = db.GetDirectDependents(nodeID)
	} else {
		direct, err = db.GetDirectDependencies(nodeID)
	}
	if err != nil {
		return nil, err
	}

	result := make([]*TreeNode, len(direct))
	for i, n := range direct {
		result[i] = &TreeNode{Node: n}
		if depth == 1 || branch[n.ID] {
			continue
		}
		branch[n.ID] = true
		children, err := db.buildTree(n.ID, depth-1, upstream, branch)
		delete(branch, n.ID)
		if err != nil {
			return nil, err
		}
		result[i].Children = children
	}
	return result, nil
}

// GetCycles returns the cycles saved with the last scan
func (db *DB) GetCycles(projectID string) ([]detect.Cycle, error) {
	rows, err := db.conn.Query(`SELECT node_ids FROM cycles WHERE project_id = ? ORDER BY seq`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []detect.Cycle
	for rows.Next() {
		var ids string
		if err := rows.Scan(&ids); err != nil {
			return nil, err
		}
		cycles = append(cycles, detect.Cycle{NodeIDs: decodeStrings(ids)})
	}
	return cycles, rows.Err()
}

// GetSuggestions returns the project's suggestions in rank order
func (db *DB) GetSuggestions(projectID string) ([]suggest.Suggestion, error) {
	rows, err := db.conn.Query(`
		SELECT id, project_id, type, priority, title, description, reasoning, affected_nodes,
			affected_edges, effort, impact, risk, source, created_at
		FROM suggestions WHERE project_id = ? ORDER BY rank`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []suggest.Suggestion
	for rows.Next() {
		var s suggest.Suggestion
		var nodes, edges, created string
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Type, &s.Priority, &s.Title, &s.Description,
			&s.Reasoning, &nodes, &edges, &s.Effort, &s.Impact, &s.Risk, &s.Source, &created); err != nil {
			return nil, err
		}
		s.AffectedNodes = decodeStrings(nodes)
		s.AffectedEdges = decodeStrings(edges)
		s.CreatedAt = parseTime(created)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetAlerts returns drift alerts, newest first; an empty status returns all
func (db *DB) GetAlerts(projectID, status string) ([]detect.DriftAlert, error) {
	query := `
		SELECT id, project_id, kind, severity, title, detected_pattern, ideal_pattern,
			node_ids, edge_ids, status, created_at
		FROM drift_alerts WHERE project_id = ?`
	args := []any{projectID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, rowid ASC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []detect.DriftAlert
	for rows.Next() {
		var a detect.DriftAlert
		var nodes, edges, created string
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Kind, &a.Severity, &a.Title, &a.DetectedPattern,
			&a.IdealPattern, &nodes, &edges, &a.Status, &created); err != nil {
			return nil, err
		}
		a.NodeIDs = decodeStrings(nodes)
		a.EdgeIDs = decodeStrings(edges)
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ScanSummary is the stored summary of the last scan of a project
type ScanSummary struct {
	ProjectID         string    `json:"project_id"`
	Root              string    `json:"root"`
	TotalFiles        int       `json:"total_files"`
	TotalEdges        int       `json:"total_edges"`
	CircularChains    int       `json:"circular_chains"`
	AverageComplexity float64   `json:"average_complexity"`
	AverageCoupling   float64   `json:"average_coupling"`
	SkippedFiles      int       `json:"skipped_files"`
	SkippedDirs       int       `json:"skipped_dirs"`
	ExternalRefs      int       `json:"external_refs"`
	ScannedAt         time.Time `json:"scanned_at"`
}

// GetStats returns the stored summary of the last scan
func (db *DB) GetStats(projectID string) (*ScanSummary, error) {
	var s ScanSummary
	var scanned string
	err := db.conn.QueryRow(`
		SELECT project_id, root, total_files, total_edges, circular_chains, average_complexity,
			average_coupling, skipped_files, skipped_dirs, external_refs, scanned_at
		FROM scans WHERE project_id = ?`, projectID).Scan(
		&s.ProjectID, &s.Root, &s.TotalFiles, &s.TotalEdges, &s.CircularChains, &s.AverageComplexity,
		&s.AverageCoupling, &s.SkippedFiles, &s.SkippedDirs, &s.ExternalRefs, &scanned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.ScannedAt = parseTime(scanned)
	return &s, nil
}

// Counts returns the number of stored nodes and edges of a project
func (db *DB) Counts(projectID string) (nodeCount, edgeCount int64, err error) {
	err = db.conn.QueryRow(`SELECT COUNT(*) FROM nodes WHERE project_id = ?`, projectID).Scan(&nodeCount)
	if err != nil {
		return
	}
	err = db.conn.QueryRow(`SELECT COUNT(*) FROM edges WHERE project_id = ?`, projectID).Scan(&edgeCount)
	return
}

// Helper functions

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(s scanner) (*graph.Node, error) {
	var n graph.Node
	var layer, modified sql.NullString
	err := s.Scan(&n.ID, &n.ProjectID, &n.Path, &n.Name, &n.Type, &layer, &n.Complexity, &n.Stability,
		&n.Coupling, &n.Cohesion, &n.LinesOfCode, &n.Incoming, &n.Outgoing, &n.Active, &modified)
	if err != nil {
		return nil, err
	}
	if layer.Valid && layer.String != "" {
		n.Layer = graph.LayerPtr(graph.Layer(layer.String))
	}
	if modified.Valid {
		t := parseTime(modified.String)
		n.LastModified = &t
	}
	return &n, nil
}

func scanNode(row *sql.Row) (*graph.Node, error) {
	n, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

func scanNodes(rows *sql.Rows) ([]*graph.Node, error) {
	var nodes []*graph.Node
	for rows.Next() {
		n, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func scanEdges(rows *sql.Rows) ([]*graph.Edge, error) {
	var edges []*graph.Edge
	for rows.Next() {
		var e graph.Edge
		var kinds string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.SourceID, &e.TargetID, &e.Weight, &e.RefCount,
			&kinds, &e.Circular, &e.Strength); err != nil {
			return nil, err
		}
		for _, k := range decodeStrings(kinds) {
			e.Kinds = append(e.Kinds, extract.Kind(k))
		}
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
