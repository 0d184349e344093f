// Package classify assigns structural types and architectural layers from path conventions.
package classify

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/zheng/archscan/internal/graph"
)

type typeRule struct {
	typ   graph.NodeType
	match func(dirs []string, base string) bool
}

var (
	hookNameRe      = regexp.MustCompile(`^use[A-Z0-9]`)
	configNameRe    = regexp.MustCompile(`(?i)^[\w.-]*config\.[a-z]+$`) // next.config.js, appConfig.ts
	exportedFuncRe  = regexp.MustCompile(`(?m)^\s*export\s+(?:default\s+)?(?:function\s+|const\s+|class\s+)([A-Z][\w$]*)`)
	componentDirs   = []string{"components", "app", "pages", "views", "ui"}
	utilityDirs     = []string{"utils", "util", "lib", "helpers"}
	repositoryDirs  = []string{"repository", "repositories"}
	componentSuffix = map[string]bool{".tsx": true, ".jsx": true}
)

// typeRules are evaluated in order; the first match wins
var typeRules = []typeRule{
	{graph.NodeTypeRoute, func(dirs []string, _ string) bool { return hasDir(dirs, "api") }},
	{graph.NodeTypeHook, func(dirs []string, base string) bool {
		return hasDir(dirs, "hooks") || hookNameRe.MatchString(base)
	}},
	{graph.NodeTypeStore, func(dirs []string, _ string) bool { return hasDir(dirs, "store", "stores") }},
	{graph.NodeTypeRepository, func(dirs []string, _ string) bool { return hasDir(dirs, repositoryDirs...) }},
	{graph.NodeTypeService, func(dirs []string, _ string) bool { return hasDir(dirs, "service", "services") }},
	{graph.NodeTypeUtility, func(dirs []string, _ string) bool { return hasDir(dirs, utilityDirs...) }},
	{graph.NodeTypeConfiguration, func(dirs []string, base string) bool {
		return configNameRe.MatchString(base) || hasDir(dirs, "config")
	}},
	{graph.NodeTypeComponent, func(dirs []string, base string) bool {
		return hasDir(dirs, componentDirs...) && capitalized(base)
	}},
}

// Type infers the structural type of a file.
// content may be nil; when given, tsx/jsx files exporting a capitalized binding are components.
func Type(relPath string, content []byte) graph.NodeType {
	dirs, base := split(relPath)
	for _, r := range typeRules {
		if r.match(dirs, base) {
			return r.typ
		}
	}
	if componentSuffix[strings.ToLower(path.Ext(relPath))] && content != nil && exportedFuncRe.Match(content) {
		return graph.NodeTypeComponent
	}
	return graph.NodeTypeModule
}

type layerRule struct {
	layer graph.Layer
	dirs  []string
}

// layerRules are evaluated in order; the first match wins
var layerRules = []layerRule{
	{graph.LayerServer, []string{"api", "server", "services", "repositories", "db", "prisma"}},
	{graph.LayerExternal, []string{"external", "integrations", "third-party", "adapters"}},
	{graph.LayerPresentation, []string{"components", "pages", "app", "views", "ui", "layouts"}},
	{graph.LayerClient, []string{"hooks", "stores", "store", "context", "client", "state"}},
}

// Layer infers the architectural layer of a file, nil when no convention applies
func Layer(relPath string) *graph.Layer {
	dirs, _ := split(relPath)
	for _, r := range layerRules {
		if hasDir(dirs, r.dirs...) {
			return graph.LayerPtr(r.layer)
		}
	}
	return nil
}

// split returns the lower-cased directory components and the file base name
func split(relPath string) ([]string, string) {
	relPath = strings.TrimPrefix(path.Clean("/"+relPath), "/")
	dir, base := path.Split(relPath)
	var dirs []string
	for _, d := range strings.Split(strings.Trim(dir, "/"), "/") {
		if d != "" {
			dirs = append(dirs, strings.ToLower(d))
		}
	}
	return dirs, base
}

func hasDir(dirs []string, names ...string) bool {
	for _, d := range dirs {
		for _, n := range names {
			if d == n {
				return true
			}
		}
	}
	return false
}

func capitalized(base string) bool {
	for _, r := range base {
		return unicode.IsUpper(r)
	}
	return false
}
