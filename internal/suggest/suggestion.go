// Package suggest turns detected findings into ranked, explainable refactoring suggestions.
package suggest

import (
	"sort"
	"time"

	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/graph"
)

// Type is the kind of restructuring a suggestion proposes
type Type string

const (
	TypeBreakCircular        Type = "break-circular"
	TypeMoveToLayer          Type = "move-to-layer"
	TypeExtractModule        Type = "extract-module"
	TypeConsolidateUtilities Type = "consolidate-utilities"
)

// Priority orders suggestions for review
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns the numeric rank of a priority, higher is more urgent
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}

// ParsePriority normalizes free text to a priority, medium when unknown
func ParsePriority(s string) Priority {
	switch p := Priority(normalize(s)); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p
	}
	return PriorityMedium
}

// Source records who produced a suggestion
type Source string

const (
	SourceRule Source = "rule"
	SourceAI   Source = "ai"
)

// Suggestion is a ranked recommendation. It is never mutated after creation.
type Suggestion struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Type          Type      `json:"type"`
	Priority      Priority  `json:"priority"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Reasoning     string    `json:"reasoning"`
	AffectedNodes []string  `json:"affected_nodes"`
	AffectedEdges []string  `json:"affected_edges"`
	Effort        int       `json:"effort"` // 1-10
	Impact        int       `json:"impact"` // 1-10
	Risk          int       `json:"risk"`   // 1-10
	Source        Source    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}

// Input is everything the generator reads; none of it is modified
type Input struct {
	ProjectID  string
	Graph      *graph.Graph
	Cycles     []detect.Cycle
	Violations []detect.Violation
	Candidates []detect.Candidate
}

// Rank orders suggestions by priority, then impact, keeping generation order for ties
func Rank(s []Suggestion) []Suggestion {
	out := append([]Suggestion(nil), s...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].Impact > out[j].Impact
	})
	return out
}

// scale clamps a predicted scalar to 1-10
func scale(v int) int {
	return max(1, min(v, 10))
}
