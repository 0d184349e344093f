package detect

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zheng/archscan/internal/graph"
)

// AlertKind is the finding an alert projects
type AlertKind string

const (
	AlertCircularDependency AlertKind = "circular_dependency"
	AlertLayerViolation     AlertKind = "layer_violation"
)

// AlertSeverity tags a drift alert
type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

const (
	AlertStatusActive = "active"

	idealAcyclic = "acyclic-dependencies"
	idealLayered = "layered-dependencies"
)

// DriftAlert is a severity-tagged projection of a cycle or a layer violation
type DriftAlert struct {
	ID              string        `json:"id"`
	ProjectID       string        `json:"project_id"`
	Kind            AlertKind     `json:"kind"`
	Severity        AlertSeverity `json:"severity"`
	Title           string        `json:"title"`
	DetectedPattern string        `json:"detected_pattern"`
	IdealPattern    string        `json:"ideal_pattern"`
	NodeIDs         []string      `json:"node_ids"`
	EdgeIDs         []string      `json:"edge_ids"`
	Status          string        `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
}

// DriftAlerts projects one alert per cycle and one per violation.
// Alerts are created fresh each time; nothing is deduplicated against earlier scans.
func DriftAlerts(projectID string, g *graph.Graph, cycles []Cycle, violations []Violation) []DriftAlert {
	now := time.Now().UTC()
	out := make([]DriftAlert, 0, len(cycles)+len(violations))

	for _, c := range cycles {
		severity := AlertWarning
		if c.Len() > 4 {
			severity = AlertCritical
		}
		out = append(out, DriftAlert{
			ID:              uuid.NewString(),
			ProjectID:       projectID,
			Kind:            AlertCircularDependency,
			Severity:        severity,
			Title:           fmt.Sprintf("Circular dependency across %d modules", c.Len()),
			DetectedPattern: strings.Join(c.Paths(g), " -> "),
			IdealPattern:    idealAcyclic,
			NodeIDs:         append([]string(nil), c.NodeIDs[:c.Len()]...),
			EdgeIDs:         c.EdgeIDs(g),
			Status:          AlertStatusActive,
			CreatedAt:       now,
		})
	}

	for _, v := range violations {
		out = append(out, DriftAlert{
			ID:              uuid.NewString(),
			ProjectID:       projectID,
			Kind:            AlertLayerViolation,
			Severity:        AlertWarning,
			Title:           fmt.Sprintf("Layer violation: %s -> %s", v.Source.LayerName(), v.Target.LayerName()),
			DetectedPattern: v.Description,
			IdealPattern:    idealLayered,
			NodeIDs:         []string{v.Source.ID, v.Target.ID},
			EdgeIDs:         []string{v.Edge.ID},
			Status:          AlertStatusActive,
			CreatedAt:       now,
		})
	}
	return out
}
