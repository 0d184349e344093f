package graph

import "time"

// NodeType is the structural role of a module
type NodeType string

const (
	NodeTypeComponent     NodeType = "component"
	NodeTypeHook          NodeType = "hook"
	NodeTypeStore         NodeType = "store"
	NodeTypeRepository    NodeType = "repository"
	NodeTypeService       NodeType = "service"
	NodeTypeUtility       NodeType = "utility"
	NodeTypeConfiguration NodeType = "configuration"
	NodeTypeRoute         NodeType = "route"
	NodeTypeModule        NodeType = "module"
)

// Layer is an architectural tier
type Layer string

const (
	LayerPresentation Layer = "presentation"
	LayerClient       Layer = "client"
	LayerServer       Layer = "server"
	LayerExternal     Layer = "external"
)

// Order returns the position of the layer in presentation < client < server < external
func (l Layer) Order() int {
	switch l {
	case LayerPresentation:
		return 0
	case LayerClient:
		return 1
	case LayerServer:
		return 2
	case LayerExternal:
		return 3
	}
	return -1
}

// LayerPtr returns a pointer to l, for building nodes in literals
func LayerPtr(l Layer) *Layer { return &l }

// Node represents one analyzed source file
type Node struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	Path         string     `json:"path"` // 相对路径 (slash separated)
	Name         string     `json:"name"` // 文件名
	Type         NodeType   `json:"type"`
	Layer        *Layer     `json:"layer,omitempty"`
	Complexity   int        `json:"complexity"`
	Stability    int        `json:"stability"`
	Coupling     int        `json:"coupling"`
	Cohesion     int        `json:"cohesion"`
	LinesOfCode  int        `json:"lines_of_code"`
	Incoming     int        `json:"incoming"` // 入度
	Outgoing     int        `json:"outgoing"` // 出度
	Active       bool       `json:"active"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// LayerName returns the layer as a string, empty when unlayered
func (n *Node) LayerName() string {
	if n.Layer == nil {
		return ""
	}
	return string(*n.Layer)
}

// Degree is the sum of incoming and outgoing edges
func (n *Node) Degree() int {
	return n.Incoming + n.Outgoing
}
