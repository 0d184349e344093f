package extract

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
)

// DefaultExtensions are the source-file extensions the engine recognizes
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// statement forms may start a line or follow a semicolon on the same line
var (
	staticImportRe   = regexp.MustCompile(`(?m)(?:^|;)[ \t]*import\s+(?:type\s+)?([\w$]+)?\s*,?\s*(?:\{([^}]*)\}|\*\s*as\s+([\w$]+))?\s*from\s*['"]([^'"\n]+)['"]`)
	bareImportRe     = regexp.MustCompile(`(?m)(?:^|;)[ \t]*import\s*['"]([^'"\n]+)['"]`)
	reExportRe       = regexp.MustCompile(`(?m)(?:^|;)[ \t]*export\s+(?:type\s+)?(\*(?:\s*as\s+[\w$]+)?|\{[^}]*\})\s*from\s*['"]([^'"\n]+)['"]`)
	importRequireRe  = regexp.MustCompile(`(?m)(?:^|;)[ \t]*(?:export\s+)?import\s+([\w$]+)\s*=\s*require\(\s*['"]([^'"\n]+)['"]\s*\)`)
	requireBindRe    = regexp.MustCompile(`\b(?:const|let|var)\s+(?:([\w$]+)|\{([^}]*)\})\s*=\s*require\(\s*['"]([^'"\n]+)['"]\s*\)`)
	bareRequireRe    = regexp.MustCompile(`(?m)(?:^|;)[ \t]*require\(\s*['"]([^'"\n]+)['"]\s*\)`)
	dynamicRe        = regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)
	blockCommentStop = []byte("*/")
)

// Pattern is a regular-expression surface scanner for JS/TS module references.
// It does not parse; unusual syntax may be missed.
type Pattern struct {
	exts []string
}

// NewPattern creates a pattern recognizer for the default extensions
func NewPattern() *Pattern {
	return &Pattern{exts: DefaultExtensions}
}

func (p *Pattern) Name() string         { return "pattern" }
func (p *Pattern) Extensions() []string { return p.exts }

type located struct {
	offset int
	ref    Reference
}

// Extract returns references in source order. Commented-out statements are ignored.
func (p *Pattern) Extract(content []byte) ([]Reference, error) {
	src := blankComments(content)
	var found []located
	add := func(offset int, ref Reference) {
		ref.Line = lineAt(content, offset)
		found = append(found, located{offset: offset, ref: ref})
	}
	group := func(m []int, i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return string(src[m[2*i]:m[2*i+1]])
	}

	for _, m := range staticImportRe.FindAllSubmatchIndex(src, -1) {
		var kinds []Kind
		if group(m, 1) != "" {
			kinds = append(kinds, KindDefault)
		}
		if hasBindings(group(m, 2)) {
			kinds = append(kinds, KindNamed)
		}
		if group(m, 3) != "" {
			kinds = append(kinds, KindNamespace)
		}
		add(m[0], Reference{Target: group(m, 4), Kinds: orSideEffect(kinds)})
	}

	for _, m := range bareImportRe.FindAllSubmatchIndex(src, -1) {
		add(m[0], Reference{Target: group(m, 1), Kinds: []Kind{KindSideEffect}})
	}

	for _, m := range reExportRe.FindAllSubmatchIndex(src, -1) {
		clause := group(m, 1)
		var kinds []Kind
		if strings.HasPrefix(clause, "*") {
			kinds = append(kinds, KindNamespace)
		} else if hasBindings(strings.Trim(clause, "{}")) {
			kinds = append(kinds, KindNamed)
		}
		add(m[0], Reference{Target: group(m, 2), Kinds: orSideEffect(kinds)})
	}

	for _, m := range importRequireRe.FindAllSubmatchIndex(src, -1) {
		add(m[0], Reference{Target: group(m, 2), Kinds: []Kind{KindDefault}})
	}

	for _, m := range requireBindRe.FindAllSubmatchIndex(src, -1) {
		var kinds []Kind
		if group(m, 1) != "" {
			kinds = append(kinds, KindDefault)
		} else if hasBindings(group(m, 2)) {
			kinds = append(kinds, KindNamed)
		}
		add(m[0], Reference{Target: group(m, 3), Kinds: orSideEffect(kinds)})
	}

	for _, m := range bareRequireRe.FindAllSubmatchIndex(src, -1) {
		add(m[0], Reference{Target: group(m, 1), Kinds: []Kind{KindSideEffect}})
	}

	for _, m := range dynamicRe.FindAllSubmatchIndex(src, -1) {
		add(m[0], Reference{Target: group(m, 1), Kinds: []Kind{KindNamespace}, Dynamic: true})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	refs := make([]Reference, 0, len(found))
	for _, f := range found {
		if f.ref.Target == "" {
			continue
		}
		refs = append(refs, f.ref)
	}
	return refs, nil
}

// hasBindings reports whether a brace list names at least one identifier
func hasBindings(list string) bool {
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		name = strings.TrimPrefix(name, "type ")
		if strings.TrimSpace(name) != "" {
			return true
		}
	}
	return false
}

func orSideEffect(kinds []Kind) []Kind {
	if len(kinds) == 0 {
		return []Kind{KindSideEffect}
	}
	return kinds
}

// blankComments returns a copy of src with line and block comments replaced by
// spaces. Newlines and string literals are kept, so offsets and line numbers match src.
func blankComments(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	var quote byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote || (c == '\n' && quote != '`') {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			for ; i < len(out) && out[i] != '\n'; i++ {
				out[i] = ' '
			}
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			stop := len(out)
			if end := bytes.Index(out[i+2:], blockCommentStop); end >= 0 {
				stop = i + 2 + end + len(blockCommentStop)
			}
			for ; i < stop; i++ {
				if out[i] != '\n' {
					out[i] = ' '
				}
			}
			i--
		}
	}
	return out
}
