package web

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/impact"
	"github.com/zheng/archscan/internal/storage"
)

//go:embed static/*
var staticFS embed.FS

// Server is the web server for visualizing the module graph
type Server struct {
	db           *storage.DB
	projectID    string
	addr         string
	allowOrigins []string
	logger       *slog.Logger
}

// NewServer creates a new web server for one project
func NewServer(db *storage.DB, projectID, addr string, allowOrigins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{db: db, projectID: projectID, addr: addr, allowOrigins: allowOrigins, logger: logger}
}

// API response types
type GraphData struct {
	Nodes []NodeData `json:"nodes"`
	Edges []EdgeData `json:"edges"`
}

type NodeData struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Layer       string `json:"layer"`
	Group       string `json:"group"` // 前端着色分组: layer, 无层级时为 type
	Complexity  int    `json:"complexity"`
	Coupling    int    `json:"coupling"`
	LinesOfCode int    `json:"linesOfCode"`
	Incoming    int    `json:"incoming"`
	Outgoing    int    `json:"outgoing"`
}

type EdgeData struct {
	ID       string   `json:"id"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Weight   string   `json:"weight"`
	RefCount int      `json:"refCount"`
	Kinds    []string `json:"kinds"`
	Circular bool     `json:"circular"`
}

type CycleData struct {
	NodeIDs  []string `json:"nodeIds"`
	Paths    []string `json:"paths"`
	Length   int      `json:"length"`
	Severity string   `json:"severity"`
}

type ViolationData struct {
	EdgeID      string `json:"edgeId"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// Handler builds the gin router with every API route and the static UI
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(s.corsConfig()))

	api := r.Group("/api")
	api.GET("/graph", s.handleGraph)
	api.GET("/nodes", s.handleNodes)
	api.GET("/node/:id", s.handleNode)
	api.GET("/impact/:id", s.handleImpact)
	api.GET("/cycles", s.handleCycles)
	api.GET("/violations", s.handleViolations)
	api.GET("/suggestions", s.handleSuggestions)
	api.GET("/alerts", s.handleAlerts)
	api.GET("/stats", s.handleStats)
	api.GET("/search", s.handleSearch)

	r.GET("/", s.handleIndex)
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range s.allowOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = s.allowOrigins
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// Run starts the web server and shuts it down when ctx is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("web ui started", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// handleGraph returns the complete graph data
func (s *Server) handleGraph(c *gin.Context) {
	g, err := s.db.LoadGraph(s.projectID)
	if err != nil {
		s.fail(c, err)
		return
	}

	data := GraphData{
		Nodes: nodesToData(g.Nodes),
		Edges: make([]EdgeData, 0, len(g.Edges)),
	}
	for _, e := range g.Edges {
		kinds := make([]string, len(e.Kinds))
		for i, k := range e.Kinds {
			kinds[i] = string(k)
		}
		data.Edges = append(data.Edges, EdgeData{
			ID:       e.ID,
			From:     e.SourceID,
			To:       e.TargetID,
			Weight:   string(e.Weight),
			RefCount: e.RefCount,
			Kinds:    kinds,
			Circular: e.Circular,
		})
	}
	c.JSON(http.StatusOK, data)
}

// handleNodes returns all nodes
func (s *Server) handleNodes(c *gin.Context) {
	nodes, err := s.db.GetNodes(s.projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nodesToData(nodes))
}

// handleNode returns a single node with its neighbours and risk
func (s *Server) handleNode(c *gin.Context) {
	id := c.Param("id")
	risk, err := s.db.GetRiskScore(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	dependents, err := s.db.GetDirectDependents(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	dependencies, err := s.db.GetDirectDependencies(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"node":         nodeToData(risk.Node),
		"dependents":   nodesToData(dependents),
		"dependencies": nodesToData(dependencies),
		"risk":         risk.RiskLevel,
	})
}

// handleImpact returns impact analysis for a node
func (s *Server) handleImpact(c *gin.Context) {
	depth := 3
	if d := c.Query("depth"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid depth"})
			return
		}
		depth = parsed
	}

	report, err := impact.NewAnalyzer(s.db, s.projectID).AnalyzeImpact(c.Param("id"), depth, depth)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"target":     nodeToData(report.Target),
		"upstream":   nodesToData(append(report.DirectDependents, report.IndirectDependents...)),
		"downstream": nodesToData(append(report.DirectDependencies, report.IndirectDependencies...)),
		"risk":       report.RiskLevel,
	})
}

func (s *Server) handleCycles(c *gin.Context) {
	g, err := s.db.LoadGraph(s.projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	cycles, err := s.db.GetCycles(s.projectID)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]CycleData, 0, len(cycles))
	for _, cy := range cycles {
		out = append(out, CycleData{
			NodeIDs:  cy.NodeIDs,
			Paths:    cy.Paths(g),
			Length:   cy.Len(),
			Severity: string(cy.Severity()),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleViolations(c *gin.Context) {
	g, err := s.db.LoadGraph(s.projectID)
	if err != nil {
		s.fail(c, err)
		return
	}

	vs := detect.ValidateLayers(g)
	out := make([]ViolationData, 0, len(vs))
	for _, v := range vs {
		out = append(out, ViolationData{
			EdgeID:      v.Edge.ID,
			Source:      v.Source.Path,
			Target:      v.Target.Path,
			Kind:        string(v.Kind),
			Description: v.Description,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSuggestions(c *gin.Context) {
	sugs, err := s.db.GetSuggestions(s.projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if sugs == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, sugs)
}

func (s *Server) handleAlerts(c *gin.Context) {
	alerts, err := s.db.GetAlerts(s.projectID, c.Query("status"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if alerts == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) handleStats(c *gin.Context) {
	summary, err := s.db.GetStats(s.projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleSearch searches nodes by path fragment
func (s *Server) handleSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter 'q'"})
		return
	}

	nodes, err := s.db.FindNodesByPattern(s.projectID, q)
	if err != nil {
		s.fail(c, err)
		return
	}

	// Limit results
	if len(nodes) > 50 {
		nodes = nodes[:50]
	}
	c.JSON(http.StatusOK, nodesToData(nodes))
}

func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.logger.Error("api request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// Helper functions

func nodeToData(n *graph.Node) NodeData {
	group := n.LayerName()
	if group == "" {
		group = string(n.Type)
	}
	return NodeData{
		ID:          n.ID,
		Label:       n.Name,
		Path:        n.Path,
		Type:        string(n.Type),
		Layer:       n.LayerName(),
		Group:       group,
		Complexity:  n.Complexity,
		Coupling:    n.Coupling,
		LinesOfCode: n.LinesOfCode,
		Incoming:    n.Incoming,
		Outgoing:    n.Outgoing,
	}
}

func nodesToData(nodes []*graph.Node) []NodeData {
	result := make([]NodeData, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, nodeToData(n))
	}
	return result
}
