package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/engine"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/suggest"
)

const timeLayout = time.RFC3339Nano

// SaveReport replaces the project's nodes, edges, cycles, suggestions and scan summary,
// and appends the report's drift alerts, in one transaction
func (db *DB) SaveReport(rep *engine.Report) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	pid := rep.ProjectID
	for _, table := range []string{"edges", "nodes", "cycles", "suggestions"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE project_id = ?`, pid); err != nil {
			return fmt.Errorf("replace %s: %w", table, err)
		}
	}

	if err := insertNodes(tx, rep.Nodes); err != nil {
		return err
	}
	if err := insertEdges(tx, rep.Edges); err != nil {
		return err
	}
	if err := insertCycles(tx, pid, rep.Cycles); err != nil {
		return err
	}
	if err := insertSuggestions(tx, rep.Suggestions); err != nil {
		return err
	}
	if err := insertAlerts(tx, rep.Alerts); err != nil {
		return err
	}

	s := rep.Stats
	_, err = tx.Exec(`
		INSERT INTO scans (project_id, root, total_files, total_edges, circular_chains,
			average_complexity, average_coupling, skipped_files, skipped_dirs, external_refs, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			root = excluded.root,
			total_files = excluded.total_files,
			total_edges = excluded.total_edges,
			circular_chains = excluded.circular_chains,
			average_complexity = excluded.average_complexity,
			average_coupling = excluded.average_coupling,
			skipped_files = excluded.skipped_files,
			skipped_dirs = excluded.skipped_dirs,
			external_refs = excluded.external_refs,
			scanned_at = excluded.scanned_at`,
		pid, rep.Root, s.TotalFiles, s.TotalEdges, s.CircularChains,
		s.AverageComplexity, s.AverageCoupling, s.SkippedFiles, s.SkippedDirs, s.ExternalRefs,
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save scan: %w", err)
	}

	return tx.Commit()
}

func insertNodes(tx *sql.Tx, nodes []*graph.Node) error {
	stmt, err := tx.Prepare(`
		INSERT INTO nodes (id, project_id, path, name, type, layer, complexity, stability, coupling,
			cohesion, lines_of_code, incoming, outgoing, active, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range nodes {
		var layer, modified sql.NullString
		if n.Layer != nil {
			layer = sql.NullString{String: string(*n.Layer), Valid: true}
		}
		if n.LastModified != nil {
			modified = sql.NullString{String: n.LastModified.UTC().Format(timeLayout), Valid: true}
		}
		_, err := stmt.Exec(n.ID, n.ProjectID, n.Path, n.Name, string(n.Type), layer,
			n.Complexity, n.Stability, n.Coupling, n.Cohesion, n.LinesOfCode,
			n.Incoming, n.Outgoing, n.Active, modified)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", n.Path, err)
		}
	}
	return nil
}

func insertEdges(tx *sql.Tx, edges []*graph.Edge) error {
	stmt, err := tx.Prepare(`
		INSERT INTO edges (id, project_id, source_id, target_id, weight, ref_count, kinds, circular, strength)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range edges {
		_, err := stmt.Exec(e.ID, e.ProjectID, e.SourceID, e.TargetID, string(e.Weight),
			e.RefCount, encodeJSON(e.Kinds), e.Circular, e.Strength)
		if err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}

func insertCycles(tx *sql.Tx, projectID string, cycles []detect.Cycle) error {
	for i, c := range cycles {
		if _, err := tx.Exec(`INSERT INTO cycles (project_id, seq, node_ids) VALUES (?, ?, ?)`,
			projectID, i, encodeJSON(c.NodeIDs)); err != nil {
			return fmt.Errorf("insert cycle: %w", err)
		}
	}
	return nil
}

func insertSuggestions(tx *sql.Tx, suggestions []suggest.Suggestion) error {
	stmt, err := tx.Prepare(`
		INSERT INTO suggestions (id, project_id, rank, type, priority, title, description, reasoning,
			affected_nodes, affected_edges, effort, impact, risk, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range suggestions {
		_, err := stmt.Exec(s.ID, s.ProjectID, i, string(s.Type), string(s.Priority), s.Title,
			s.Description, s.Reasoning, encodeJSON(s.AffectedNodes), encodeJSON(s.AffectedEdges),
			s.Effort, s.Impact, s.Risk, string(s.Source), s.CreatedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert suggestion: %w", err)
		}
	}
	return nil
}

func insertAlerts(tx *sql.Tx, alerts []detect.DriftAlert) error {
	stmt, err := tx.Prepare(`
		INSERT INTO drift_alerts (id, project_id, kind, severity, title, detected_pattern, ideal_pattern,
			node_ids, edge_ids, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range alerts {
		_, err := stmt.Exec(a.ID, a.ProjectID, string(a.Kind), string(a.Severity), a.Title,
			a.DetectedPattern, a.IdealPattern, encodeJSON(a.NodeIDs), encodeJSON(a.EdgeIDs),
			a.Status, a.CreatedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
	}
	return nil
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func decodeStrings(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
