package detect

import (
	"fmt"

	"github.com/zheng/archscan/internal/graph"
)

// ViolationKind names the broken layering rule
type ViolationKind string

const (
	ViolationServerToClient     ViolationKind = "server_to_client"
	ViolationExternalToInternal ViolationKind = "external_to_internal"
)

// Violation is one edge that runs against the layer ordering
type Violation struct {
	Edge        *graph.Edge   `json:"edge"`
	Source      *graph.Node   `json:"source"`
	Target      *graph.Node   `json:"target"`
	Kind        ViolationKind `json:"kind"`
	Description string        `json:"description"`
}

// ValidateLayers checks every edge against presentation < client < server < external.
// Edges with an unlayered endpoint are skipped.
func ValidateLayers(g *graph.Graph) []Violation {
	var out []Violation
	for _, e := range g.Edges {
		src, ok1 := g.NodeByID(e.SourceID)
		dst, ok2 := g.NodeByID(e.TargetID)
		if !ok1 || !ok2 || src.Layer == nil || dst.Layer == nil {
			continue
		}
		sl, dl := *src.Layer, *dst.Layer

		switch {
		case sl == graph.LayerServer && dl == graph.LayerClient:
			out = append(out, Violation{
				Edge: e, Source: src, Target: dst,
				Kind:        ViolationServerToClient,
				Description: fmt.Sprintf("server module %s depends on client module %s", src.Path, dst.Path),
			})
		case sl == graph.LayerExternal && dl.Order() < graph.LayerExternal.Order():
			out = append(out, Violation{
				Edge: e, Source: src, Target: dst,
				Kind:        ViolationExternalToInternal,
				Description: fmt.Sprintf("external module %s reaches into %s module %s", src.Path, dl, dst.Path),
			})
		}
	}
	return out
}

// CountKind counts violations of one kind
func CountKind(vs []Violation, kind ViolationKind) int {
	n := 0
	for _, v := range vs {
		if v.Kind == kind {
			n++
		}
	}
	return n
}
