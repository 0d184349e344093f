package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/archscan/internal/config"
	"github.com/zheng/archscan/internal/detect"
	"github.com/zheng/archscan/internal/graph"
	"github.com/zheng/archscan/internal/logging"
	"github.com/zheng/archscan/internal/scanner"
	"github.com/zheng/archscan/internal/suggest"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func newEngine(opts ...Option) *Engine {
	return New(append([]Option{WithLogger(logging.Discard()), WithWorkers(4)}, opts...)...)
}

func TestAnalyzeTwoNodeCycle(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.ts": "import b from './b'\nimport { c } from './c'\n",
		"b.ts": "export const b = 1\n",
		"c.ts": "import a from './a'\nexport const c = a\n",
	})

	res, err := newEngine().Analyze(context.Background(), "p", root)
	require.NoError(t, err)

	// a->b, a->c, c->a; the two edges of the cycle are circular
	assert.Len(t, res.Nodes, 3)
	assert.Len(t, res.Edges, 3)
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, 2, res.Cycles[0].Len())

	a, ok := res.Graph.NodeByPath("a.ts")
	require.True(t, ok)
	c, _ := res.Graph.NodeByPath("c.ts")
	assert.Equal(t, 2, a.Outgoing)
	assert.Equal(t, []string{a.ID, c.ID, a.ID}, res.Cycles[0].NodeIDs)

	idx := res.Graph.EdgesBetween()
	assert.True(t, idx[[2]string{a.ID, c.ID}].Circular)
	assert.True(t, idx[[2]string{c.ID, a.ID}].Circular)

	b, _ := res.Graph.NodeByPath("b.ts")
	assert.False(t, idx[[2]string{a.ID, b.ID}].Circular)

	circular := 0
	for _, e := range res.Edges {
		if e.Circular {
			circular++
		}
	}
	assert.Equal(t, 2, circular)

	assert.Equal(t, 3, res.Stats.TotalFiles)
	assert.Equal(t, 3, res.Stats.TotalEdges)
	assert.Equal(t, 1, res.Stats.CircularChains)
}

func TestAnalyzeThreeChain(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"src/a.ts": "import './b'\n",
		"src/b.ts": "import './c'\n",
		"src/c.ts": "import './a'\n",
	})
	res, err := newEngine().Analyze(context.Background(), "p", root)
	require.NoError(t, err)

	require.Len(t, res.Cycles, 1)
	assert.Equal(t, 3, res.Cycles[0].Len())
	for _, e := range res.Edges {
		assert.Equal(t, graph.WeightCircular, e.Weight)
		assert.True(t, e.Circular)
	}
}

func TestAnalyzeAcyclicAndExternal(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"src/index.ts":       "import React from 'react'\nimport { x } from './lib'\nimport '@/self'\n",
		"src/lib/index.ts":   "import _ from 'lodash'\nexport const x = 1\n",
		"src/self.ts":        "import me from './self'\nexport default 1\n",
		"node_modules/r.js":  "module.exports = 1\n",
		"src/assets/logo.js": "\x00\x01binary",
	})
	res, err := newEngine().Analyze(context.Background(), "p", root)
	require.NoError(t, err)

	assert.Empty(t, res.Cycles)
	for _, e := range res.Edges {
		assert.NotEqual(t, graph.WeightCircular, e.Weight)
		assert.NotEqual(t, e.SourceID, e.TargetID)
	}
	// binary file skipped, node_modules never walked
	assert.Len(t, res.Nodes, 3)
	assert.Equal(t, 1, res.Stats.SkippedFiles)
	assert.Equal(t, 2, res.Stats.ExternalRefs)
	assert.Len(t, res.Edges, 2)
	for _, n := range res.Nodes {
		assert.NotContains(t, n.Path, "node_modules")
	}
}

func TestRunLayerViolation(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"src/server/handler.ts": "import { useCart } from '../hooks/useCart'\n",
		"src/hooks/useCart.ts":  "export function useCart() {}\n",
	})
	rep, err := newEngine().Run(context.Background(), "p", root)
	require.NoError(t, err)

	require.Len(t, rep.Violations, 1)
	assert.Equal(t, detect.ViolationServerToClient, rep.Violations[0].Kind)
	assert.Contains(t, rep.Violations[0].Description, "server")

	require.Len(t, rep.Alerts, 1)
	assert.Equal(t, detect.AlertLayerViolation, rep.Alerts[0].Kind)

	require.Len(t, rep.Suggestions, 1)
	assert.Equal(t, suggest.TypeMoveToLayer, rep.Suggestions[0].Type)
}

func TestRunIsDeterministic(t *testing.T) {
	files := map[string]string{
		"src/components/App.tsx": "import { useUser } from '../hooks/useUser'\nimport api from '@/services/api'\n",
		"src/hooks/useUser.ts":   "import api from '../services/api'\nimport { App } from '../components/App'\n",
		"src/services/api.ts":    "import { useUser } from '../hooks/useUser'\nif (a && b) {}\n",
		"src/utils/format.ts":    "export const f = (x) => x ? 1 : 2\n",
	}
	root := writeFiles(t, files)
	e := newEngine()

	first, err := e.Run(context.Background(), "p", root)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := e.Run(context.Background(), "p", root)
		require.NoError(t, err)
		assert.Equal(t, first.Nodes, again.Nodes)
		assert.Equal(t, first.Edges, again.Edges)
		assert.Equal(t, first.Cycles, again.Cycles)
		assert.Equal(t, len(first.Violations), len(again.Violations))
		for j := range first.Violations {
			assert.Equal(t, first.Violations[j].Edge.ID, again.Violations[j].Edge.ID)
		}
	}
	assert.NotEmpty(t, first.Cycles)
}

func TestAnalyzeRootNotExist(t *testing.T) {
	_, err := newEngine().Analyze(context.Background(), "p", filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, scanner.ErrRootNotExist)
	assert.Contains(t, err.Error(), "path does not exist")
}

func TestAnalyzeCanceled(t *testing.T) {
	root := writeFiles(t, map[string]string{"a.ts": "import './b'\n", "b.ts": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newEngine().Analyze(ctx, "p", root)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeGenerator struct {
	text string
	err  error
}

func (f fakeGenerator) Generate(context.Context, string, []byte) (string, error) {
	return f.text, f.err
}

func TestRunMergesAISuggestions(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.ts": "import './b'\n",
		"b.ts": "import './a'\n",
	})

	gen := fakeGenerator{text: `Some ideas: [{"type": "rename", "priority": "low", "title": "Rename b", "affected_files": ["b.ts"]}]`}
	rep, err := newEngine(WithGenerator(gen)).Run(context.Background(), "p", root)
	require.NoError(t, err)
	require.Len(t, rep.Suggestions, 2)
	assert.Equal(t, suggest.SourceRule, rep.Suggestions[0].Source)
	assert.Equal(t, suggest.SourceAI, rep.Suggestions[1].Source)

	broken := fakeGenerator{err: errors.New("unreachable")}
	rep, err = newEngine(WithGenerator(broken)).Run(context.Background(), "p", root)
	require.NoError(t, err)
	require.Len(t, rep.Suggestions, 1)
	assert.Equal(t, suggest.SourceRule, rep.Suggestions[0].Source)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.Parser = "treesitter"
	cfg.Scan.Workers = 2
	cfg.Thresholds = graph.Thresholds{StrongRefs: 9, RequiredRefs: 1}

	opts, err := FromConfig(cfg, logging.Discard())
	require.NoError(t, err)
	e := New(opts...)
	assert.Equal(t, 2, e.workers)
	assert.Equal(t, 9, e.thresholds.StrongRefs)
	assert.Equal(t, "treesitter-typescript", e.registry.For("a.ts").Name())
	assert.Nil(t, e.generator)

	cfg.AI.Enabled = true
	cfg.AI.Endpoint = "http://localhost:1"
	opts, err = FromConfig(cfg, logging.Discard())
	require.NoError(t, err)
	assert.NotNil(t, New(opts...).generator)

	cfg.AI.RedisURL = "not a url"
	_, err = FromConfig(cfg, logging.Discard())
	assert.Error(t, err)
}
