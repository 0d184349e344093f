package resolve

import (
	"path"
	"strings"

	"github.com/zheng/archscan/internal/extract"
)

// Resolution is the outcome of resolving one reference target
type Resolution struct {
	External   bool     // 外部包 (bare specifier or outside root)
	Candidates []string // project-relative slash paths, in match order
}

// Resolver turns raw reference targets into project-relative candidate paths
type Resolver struct {
	AliasPrefix string   // e.g. "@/"
	AliasRoots  []string // directories the alias may point at, relative to root
	Extensions  []string
}

// New creates a resolver with the default alias and extensions
func New() *Resolver {
	return &Resolver{
		AliasPrefix: "@/",
		AliasRoots:  []string{"src", "."},
		Extensions:  extract.DefaultExtensions,
	}
}

// Resolve resolves target as referenced from fromDir (project-relative, slash separated)
func (r *Resolver) Resolve(target, fromDir string) Resolution {
	target = strings.TrimSpace(target)
	if target == "" {
		return Resolution{External: true}
	}

	switch {
	case r.AliasPrefix != "" && strings.HasPrefix(target, r.AliasPrefix):
		rest := strings.TrimPrefix(target, r.AliasPrefix)
		var bases []string
		for _, root := range r.AliasRoots {
			p, ok := clean(path.Join(root, rest))
			if ok {
				bases = append(bases, p)
			}
		}
		if len(bases) == 0 {
			return Resolution{External: true}
		}
		var candidates []string
		for _, b := range bases {
			candidates = append(candidates, r.Candidates(b)...)
		}
		return Resolution{Candidates: dedupe(candidates)}

	case strings.HasPrefix(target, "."):
		p, ok := clean(path.Join(fromDir, target))
		if !ok {
			return Resolution{External: true}
		}
		return Resolution{Candidates: r.Candidates(p)}

	default:
		return Resolution{External: true}
	}
}

// Candidates lists the literal path, then path+ext, then path/index+ext
func (r *Resolver) Candidates(p string) []string {
	out := make([]string, 0, 1+2*len(r.Extensions))
	out = append(out, p)
	for _, ext := range r.Extensions {
		out = append(out, p+ext)
	}
	for _, ext := range r.Extensions {
		out = append(out, path.Join(p, "index"+ext))
	}
	return out
}

// Match returns the first candidate present in index
func Match[V any](res Resolution, index map[string]V) (string, V, bool) {
	var zero V
	if res.External {
		return "", zero, false
	}
	for _, c := range res.Candidates {
		if v, ok := index[c]; ok {
			return c, v, true
		}
	}
	return "", zero, false
}

// clean normalizes p and reports whether it stays inside the root
func clean(p string) (string, bool) {
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") || path.IsAbs(p) {
		return "", false
	}
	return p, true
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
