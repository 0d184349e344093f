package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zheng/archscan/internal/graph"
)

// Instructions is the fixed request format sent with every summary
const Instructions = `You are reviewing the module dependency graph of a JavaScript/TypeScript codebase.
The JSON summary below lists node counts by type and layer, circular dependency and layer violation
counts, average complexity and coupling, and the most coupled modules.
Reply with a JSON array of suggestion objects. Each object has the fields:
"type" (break-circular | move-to-layer | extract-module | consolidate-utilities | other short tag),
"priority" (low | medium | high | critical), "title", "description", "reasoning",
"affected_files" (array of relative paths), "effort", "impact", "risk" (integers 1-10).`

// Generator produces free text that should embed a JSON array of suggestions
type Generator interface {
	Generate(ctx context.Context, instructions string, summary []byte) (string, error)
}

// Augment runs the rules and appends whatever the generator contributes.
// Generator failures are logged and never fail the call.
func Augment(ctx context.Context, gen Generator, in Input, logger *slog.Logger) []Suggestion {
	out := Rules(in)
	if gen == nil || in.Graph == nil {
		return out
	}
	if logger == nil {
		logger = slog.Default()
	}

	summary, err := json.Marshal(Summarize(in.Graph, in.Cycles, in.Violations))
	if err != nil {
		logger.Warn("encode summary failed", "err", err)
		return out
	}
	text, err := gen.Generate(ctx, Instructions, summary)
	if err != nil {
		logger.Warn("ai suggestions unavailable", "err", err)
		return out
	}

	ai := ParseAIResponse(text, in.Graph)
	for i := range ai {
		ai[i].ProjectID = in.ProjectID
	}
	logger.Debug("ai suggestions merged", "count", len(ai))
	return append(out, ai...)
}

// ParseAIResponse locates the first JSON array of objects embedded in text and decodes it.
// Missing or malformed content yields an empty result.
func ParseAIResponse(text string, g *graph.Graph) []Suggestion {
	raw := findArray(text)
	if raw == nil {
		return []Suggestion{}
	}

	now := time.Now().UTC()
	out := make([]Suggestion, 0, len(raw))
	for _, obj := range raw {
		s := Suggestion{
			ID:            uuid.NewString(),
			Type:          Type(str(obj, "type")),
			Priority:      ParsePriority(str(obj, "priority")),
			Title:         str(obj, "title"),
			Description:   str(obj, "description"),
			Reasoning:     str(obj, "reasoning", "rationale"),
			AffectedNodes: mapNodes(g, strList(obj, "affected_files", "affectedFiles", "affected_nodes", "affectedNodes", "files")),
			AffectedEdges: []string{},
			Effort:        num(obj, "effort"),
			Impact:        num(obj, "impact"),
			Risk:          num(obj, "risk"),
			Source:        SourceAI,
			CreatedAt:     now,
		}
		if s.Title == "" && s.Description == "" {
			continue
		}
		if s.Type == "" {
			s.Type = "refactor"
		}
		out = append(out, s)
	}
	return out
}

// findArray tries each '[' in text until one starts a decodable array of objects
func findArray(text string) []map[string]any {
	data := []byte(text)
	for off := 0; off < len(data); {
		i := bytes.IndexByte(data[off:], '[')
		if i < 0 {
			return nil
		}
		start := off + i
		var arr []map[string]any
		if err := json.NewDecoder(bytes.NewReader(data[start:])).Decode(&arr); err == nil && len(arr) > 0 {
			return arr
		}
		off = start + 1
	}
	return nil
}

func str(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func strList(obj map[string]any, keys ...string) []string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case []any:
			var out []string
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			return out
		case string:
			if v != "" {
				return []string{v}
			}
		}
	}
	return nil
}

// num reads a 1-10 scalar, 5 when absent or unreadable
func num(obj map[string]any, key string) int {
	switch v := obj[key].(type) {
	case float64:
		return scale(int(v))
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return scale(n)
		}
	}
	return 5
}

// mapNodes maps paths or ids to node ids, dropping unknown entries
func mapNodes(g *graph.Graph, refs []string) []string {
	out := []string{}
	if g == nil {
		return out
	}
	seen := make(map[string]bool)
	for _, r := range refs {
		r = strings.TrimPrefix(strings.TrimPrefix(r, "./"), "/")
		var id string
		if n, ok := g.NodeByPath(r); ok {
			id = n.ID
		} else if n, ok := g.NodeByID(r); ok {
			id = n.ID
		}
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
