package graph

import "github.com/zheng/archscan/internal/extract"

// Weight classifies an edge by how heavily the source depends on the target
type Weight string

const (
	WeightWeak     Weight = "weak"
	WeightRequired Weight = "required"
	WeightStrong   Weight = "strong"
	WeightCircular Weight = "circular"
)

// Edge is an aggregated directed dependency between two nodes
type Edge struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	SourceID  string         `json:"source_id"`
	TargetID  string         `json:"target_id"`
	Weight    Weight         `json:"weight"`
	RefCount  int            `json:"ref_count"` // 引用次数
	Kinds     []extract.Kind `json:"kinds"`
	Circular  bool           `json:"circular"`
	Strength  int            `json:"strength"` // 0-100
}

// Strength derives the 0-100 edge strength from a reference count
func Strength(refCount int) int {
	return min(refCount*20, 100)
}

// addKinds appends kinds not yet present on the edge
func (e *Edge) addKinds(kinds []extract.Kind) {
	for _, k := range kinds {
		found := false
		for _, have := range e.Kinds {
			if have == k {
				found = true
				break
			}
		}
		if !found {
			e.Kinds = append(e.Kinds, k)
		}
	}
}
