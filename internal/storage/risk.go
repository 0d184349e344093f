package storage

import "github.com/zheng/archscan/internal/graph"

// RiskScore represents the change risk of a module
type RiskScore struct {
	Node             *graph.Node `json:"node"`
	DirectDependents int         `json:"direct_dependents"` // 直接依赖方
	TotalDependents  int         `json:"total_dependents"`  // 所有上游依赖方 (递归)
	RiskLevel        string      `json:"risk_level"`        // low, medium, high, critical
}

// CalculateRiskLevel determines the risk level from dependent counts.
// Primary factor: direct dependents, secondary: total upstream reach
func CalculateRiskLevel(direct, total int) string {
	if direct >= 20 || total >= 60 {
		return "critical"
	}
	if direct >= 10 || total >= 30 {
		return "high"
	}
	if direct >= 3 || total >= 10 {
		return "medium"
	}
	return "low"
}

// GetRiskScore calculates the risk score for a node
func (db *DB) GetRiskScore(nodeID string) (*RiskScore, error) {
	node, err := db.GetNodeByID(nodeID)
	if err != nil {
		return nil, err
	}

	var direct int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM edges WHERE target_id = ?`, nodeID).Scan(&direct); err != nil {
		return nil, err
	}

	upstream, err := db.GetDependents(nodeID, 0)
	if err != nil {
		return nil, err
	}

	return &RiskScore{
		Node:             node,
		DirectDependents: direct,
		TotalDependents:  len(upstream),
		RiskLevel:        CalculateRiskLevel(direct, len(upstream)),
	}, nil
}

// GetTopCoupled returns the most coupled nodes with their risk.
// Ordered by direct dependents so hot modules surface first.
func (db *DB) GetTopCoupled(projectID string, limit int) ([]*RiskScore, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(`SELECT `+nodeColumns+` FROM nodes
		WHERE project_id = ?
		ORDER BY incoming DESC, coupling DESC, path ASC
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, err
	}
	nodes, err := scanNodes(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	scores := make([]*RiskScore, 0, len(nodes))
	for _, n := range nodes {
		rs, err := db.GetRiskScore(n.ID)
		if err != nil {
			return nil, err
		}
		scores = append(scores, rs)
	}
	return scores, nil
}
