// Package engine runs the full analysis pipeline: walk, extract in parallel,
// reduce into a graph, then detect cycles, layer violations and suggestions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zheng/archscan/internal/classify"
	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/extract"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/metrics"
	"github.com/zheng/archscan/internal/resolve"
	"github.com/zheng/archscan/internal/scanner"
	"github.com/zheng/archscan/internal/suggest"
)

// Engine analyzes one project tree at a time
type Engine struct {
	logger     *slog.Logger
	workers    int
	registry   *extract.Registry
	resolver   *resolve.Resolver
	thresholds graph.Thresholds
	walk       scanner.WalkOptions
	generator  suggest.Generator
}

// Option configures the engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWorkers bounds the number of files extracted concurrently
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRegistry sets the reference recognizers
func WithRegistry(r *extract.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithResolver sets alias and extension handling
func WithResolver(r *resolve.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithThresholds sets the edge weight thresholds
func WithThresholds(t graph.Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithWalkOptions sets depth, extensions and exclude globs
func WithWalkOptions(o scanner.WalkOptions) Option {
	return func(e *Engine) {
		e.walk = o
	}
}

// WithGenerator enables AI-augmented suggestions
func WithGenerator(g suggest.Generator) Option {
	return func(e *Engine) {
		e.generator = g
	}
}

// New creates an engine
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:     slog.Default(),
		workers:    runtime.NumCPU(),
		registry:   extract.DefaultRegistry(),
		resolver:   resolve.New(),
		thresholds: graph.DefaultThresholds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats summarizes one analysis run
type Stats struct {
	TotalFiles        int           `json:"total_files"`
	TotalEdges        int           `json:"total_edges"`
	CircularChains    int           `json:"circular_chains"`
	AverageComplexity float64       `json:"average_complexity"`
	AverageCoupling   float64       `json:"average_coupling"`
	SkippedFiles      int           `json:"skipped_files"`
	SkippedDirs       int           `json:"skipped_dirs"`
	ExternalRefs      int           `json:"external_refs"`
	Duration          time.Duration `json:"duration"`
}

// Result is the graph of one scan plus its cycles
type Result struct {
	ProjectID string         `json:"project_id"`
	Root      string         `json:"root"`
	Nodes     []*graph.Node  `json:"nodes"`
	Edges     []*graph.Edge  `json:"edges"`
	Cycles    []detect.Cycle `json:"cycles"`
	Stats     Stats          `json:"stats"`

	Graph *graph.Graph `json:"-"`
}

// Report extends a result with every derived finding
type Report struct {
	*Result
	Violations  []detect.Violation   `json:"violations"`
	Candidates  []detect.Candidate   `json:"candidates"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
	Alerts      []detect.DriftAlert  `json:"alerts"`
}

type fileResult struct {
	analysis graph.FileAnalysis
	skipped  bool
}

// Analyze scans root and builds the graph. A missing root fails before any work;
// unreadable files and directories are skipped and counted. If ctx is done the
// whole scan is abandoned and ctx's error returned.
func (e *Engine) Analyze(ctx context.Context, projectID, root string) (*Result, error) {
	start := time.Now()

	walked, err := scanner.Walk(root, e.walk)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// fan-out: each worker writes only its own slot
	results := make([]fileResult, len(walked.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, f := range walked.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.analyzeFile(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan abandoned: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan abandoned: %w", err)
	}

	// fan-in: single-threaded reduce in walker order
	analyses := make([]graph.FileAnalysis, 0, len(results))
	skipped := 0
	for _, r := range results {
		if r.skipped {
			skipped++
			continue
		}
		analyses = append(analyses, r.analysis)
	}

	gr, buildStats := graph.NewBuilder(projectID, e.resolver, e.thresholds).Build(analyses)
	metrics.Apply(gr)

	cycles := detect.FindCycles(gr)
	detect.MarkCircular(gr, cycles)

	avg := metrics.Averages(gr.Nodes)
	res := &Result{
		ProjectID: projectID,
		Root:      walked.Root,
		Nodes:     gr.Nodes,
		Edges:     gr.Edges,
		Cycles:    cycles,
		Graph:     gr,
		Stats: Stats{
			TotalFiles:        len(gr.Nodes),
			TotalEdges:        len(gr.Edges),
			CircularChains:    len(cycles),
			AverageComplexity: avg.AverageComplexity,
			AverageCoupling:   avg.AverageCoupling,
			SkippedFiles:      skipped,
			SkippedDirs:       walked.SkippedDirs,
			ExternalRefs:      buildStats.ExternalRefs,
			Duration:          time.Since(start),
		},
	}

	e.logger.Info("analysis complete",
		"project", projectID,
		"files", res.Stats.TotalFiles,
		"edges", res.Stats.TotalEdges,
		"cycles", res.Stats.CircularChains,
		"skipped_files", skipped,
		"duration", res.Stats.Duration)
	return res, nil
}

func (e *Engine) analyzeFile(f scanner.File) fileResult {
	content, err := extract.LoadFile(f.Path)
	if err != nil {
		e.logger.Debug("skip file", "path", f.RelPath, "err", err)
		return fileResult{skipped: true}
	}
	rec := e.registry.For(f.RelPath)
	refs, err := rec.Extract(content)
	if err != nil {
		e.logger.Debug("skip file", "path", f.RelPath, "recognizer", rec.Name(), "err", err)
		return fileResult{skipped: true}
	}
	return fileResult{analysis: graph.FileAnalysis{
		RelPath:     f.RelPath,
		ModTime:     f.ModTime,
		Refs:        refs,
		Type:        classify.Type(f.RelPath, content),
		Layer:       classify.Layer(f.RelPath),
		Complexity:  metrics.Complexity(content),
		LinesOfCode: metrics.LinesOfCode(content),
	}}
}

// Run analyzes root and derives violations, extraction candidates, suggestions and drift alerts
func (e *Engine) Run(ctx context.Context, projectID, root string) (*Report, error) {
	res, err := e.Analyze(ctx, projectID, root)
	if err != nil {
		return nil, err
	}
	return e.Derive(ctx, res), nil
}

// Derive computes the read-only findings of a finished result
func (e *Engine) Derive(ctx context.Context, res *Result) *Report {
	g := res.Graph
	if g == nil {
		g = graph.New(res.Nodes, res.Edges)
		res.Graph = g
	}

	violations := detect.ValidateLayers(g)
	candidates := detect.ExtractionCandidates(g.Nodes)
	in := suggest.Input{
		ProjectID:  res.ProjectID,
		Graph:      g,
		Cycles:     res.Cycles,
		Violations: violations,
		Candidates: candidates,
	}
	suggestions := suggest.Rank(suggest.Augment(ctx, e.generator, in, e.logger))
	alerts := detect.DriftAlerts(res.ProjectID, g, res.Cycles, violations)

	e.logger.Info("findings derived",
		"project", res.ProjectID,
		"violations", len(violations),
		"candidates", len(candidates),
		"suggestions", len(suggestions),
		"alerts", len(alerts))

	return &Report{
		Result:      res,
		Violations:  violations,
		Candidates:  candidates,
		Suggestions: suggestions,
		Alerts:      alerts,
	}
}
