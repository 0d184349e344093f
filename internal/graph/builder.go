package graph

import (
	"path"
	"sort"
	"time"

	"github.com/zheng/archscan/internal/extract"
	"github.com/zheng/archscan/internal/resolve"
)

// FileAnalysis is the self-contained per-file result of the extraction stage
type FileAnalysis struct {
	RelPath     string
	ModTime     time.Time
	Refs        []extract.Reference
	Type        NodeType
	Layer       *Layer
	Complexity  int
	LinesOfCode int
}

// Thresholds are the reference counts above which an edge is promoted
type Thresholds struct {
	StrongRefs   int `json:"strong_refs" mapstructure:"strong_refs"`
	RequiredRefs int `json:"required_refs" mapstructure:"required_refs"`
}

// DefaultThresholds: strong above 5 references, required above 2
var DefaultThresholds = Thresholds{StrongRefs: 5, RequiredRefs: 2}

// Classify returns the weight for a reference count
func (t Thresholds) Classify(refCount int) Weight {
	switch {
	case refCount > t.StrongRefs:
		return WeightStrong
	case refCount > t.RequiredRefs:
		return WeightRequired
	default:
		return WeightWeak
	}
}

// BuildStats counts references that did not become edges
type BuildStats struct {
	ExternalRefs   int `json:"external_refs"`
	UnresolvedRefs int `json:"unresolved_refs"`
	SelfRefs       int `json:"self_refs"`
}

// Builder aggregates per-file analyses into a graph.
// It is not safe for concurrent use; Build is the single-writer reduce step.
type Builder struct {
	projectID  string
	resolver   *resolve.Resolver
	thresholds Thresholds
}

// NewBuilder creates a new graph builder
func NewBuilder(projectID string, resolver *resolve.Resolver, thresholds Thresholds) *Builder {
	if resolver == nil {
		resolver = resolve.New()
	}
	return &Builder{
		projectID:  projectID,
		resolver:   resolver,
		thresholds: thresholds,
	}
}

// Build creates one node per file and one edge per referenced (source, target) pair
func (b *Builder) Build(files []FileAnalysis) (*Graph, BuildStats) {
	var stats BuildStats

	nodes := make([]*Node, len(files))
	index := make(map[string]int, len(files))
	for i, f := range files {
		nodes[i] = b.newNode(f)
		index[f.RelPath] = i
	}

	type pair struct{ src, dst int }
	edgeMap := make(map[pair]*Edge)
	var order []pair

	for i, f := range files {
		fromDir := path.Dir(f.RelPath)
		for _, ref := range f.Refs {
			res := b.resolver.Resolve(ref.Target, fromDir)
			if res.External {
				stats.ExternalRefs++
				continue
			}
			_, j, ok := resolve.Match(res, index)
			if !ok {
				stats.UnresolvedRefs++
				continue
			}
			if j == i {
				stats.SelfRefs++
				continue
			}

			key := pair{i, j}
			edge, exists := edgeMap[key]
			if !exists {
				src, dst := nodes[i], nodes[j]
				edge = &Edge{
					ID:        EdgeID(src.ID, dst.ID),
					ProjectID: b.projectID,
					SourceID:  src.ID,
					TargetID:  dst.ID,
				}
				edgeMap[key] = edge
				order = append(order, key)
				src.Outgoing++
				dst.Incoming++
			}
			edge.RefCount++
			edge.addKinds(ref.Kinds)
		}
	}

	sort.Slice(order, func(a, c int) bool {
		sa, sc := nodes[order[a].src].Path, nodes[order[c].src].Path
		if sa != sc {
			return sa < sc
		}
		return nodes[order[a].dst].Path < nodes[order[c].dst].Path
	})

	edges := make([]*Edge, 0, len(order))
	for _, key := range order {
		e := edgeMap[key]
		e.Weight = b.thresholds.Classify(e.RefCount)
		e.Strength = Strength(e.RefCount)
		edges = append(edges, e)
	}

	return New(nodes, edges), stats
}

func (b *Builder) newNode(f FileAnalysis) *Node {
	n := &Node{
		ID:          NodeID(b.projectID, f.RelPath),
		ProjectID:   b.projectID,
		Path:        f.RelPath,
		Name:        path.Base(f.RelPath),
		Type:        f.Type,
		Layer:       f.Layer,
		Complexity:  f.Complexity,
		LinesOfCode: f.LinesOfCode,
		Active:      true,
	}
	if n.Type == "" {
		n.Type = NodeTypeModule
	}
	if !f.ModTime.IsZero() {
		t := f.ModTime
		n.LastModified = &t
	}
	return n
}
