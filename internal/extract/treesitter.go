package extract

import (
	"errors"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// TreeSitter extracts references from a real syntax tree. Files the grammar
// cannot parse cleanly are handed to the fallback recognizer.
type TreeSitter struct {
	lang     string
	exts     []string
	fallback Recognizer
}

// NewTreeSitterJS creates a recognizer for JavaScript files
func NewTreeSitterJS(fallback Recognizer) *TreeSitter {
	return &TreeSitter{lang: "javascript", exts: []string{".js", ".jsx", ".mjs", ".cjs"}, fallback: fallback}
}

// NewTreeSitterTS creates a recognizer for TypeScript files
func NewTreeSitterTS(fallback Recognizer) *TreeSitter {
	return &TreeSitter{lang: "typescript", exts: []string{".ts", ".mts", ".cts"}, fallback: fallback}
}

// NewTreeSitterTSX creates a recognizer for TSX files
func NewTreeSitterTSX(fallback Recognizer) *TreeSitter {
	return &TreeSitter{lang: "tsx", exts: []string{".tsx"}, fallback: fallback}
}

// TreeSitterRegistry registers tree-sitter recognizers for every JS/TS family,
// falling back to the pattern recognizer
func TreeSitterRegistry() *Registry {
	fallback := NewPattern()
	r := NewRegistry(fallback)
	r.Register(NewTreeSitterJS(fallback))
	r.Register(NewTreeSitterTS(fallback))
	r.Register(NewTreeSitterTSX(fallback))
	return r
}

func (t *TreeSitter) Name() string         { return "treesitter-" + t.lang }
func (t *TreeSitter) Extensions() []string { return t.exts }

func (t *TreeSitter) language() *sitter.Language {
	switch t.lang {
	case "typescript":
		return sitter.NewLanguage(typescript.LanguageTypescript())
	case "tsx":
		return sitter.NewLanguage(typescript.LanguageTSX())
	default:
		return sitter.NewLanguage(tree_sitter_javascript.Language())
	}
}

// Extract parses content and walks import, export and call nodes
func (t *TreeSitter) Extract(content []byte) ([]Reference, error) {
	refs, err := t.extract(content)
	if err != nil && t.fallback != nil {
		return t.fallback.Extract(content)
	}
	return refs, err
}

func (t *TreeSitter) extract(content []byte) ([]Reference, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(t.language()); err != nil {
		return nil, err
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New("parse returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New("root node is nil")
	}
	if root.HasError() {
		return nil, errors.New("syntax errors in source")
	}

	var refs []Reference
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Kind() {
		case "import_statement":
			if ref, ok := importStatement(node, content); ok {
				refs = append(refs, ref)
			}
		case "export_statement":
			if ref, ok := reExport(node, content); ok {
				refs = append(refs, ref)
			}
		case "call_expression":
			if ref, ok := callReference(node, content); ok {
				refs = append(refs, ref)
			}
		}

		// push in reverse so children are visited in source order
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(uint(i)); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return refs, nil
}

func importStatement(node *sitter.Node, content []byte) (Reference, bool) {
	target := stringLiteral(node.ChildByFieldName("source"), content)
	if target == "" {
		// import fs = require('./fs')
		if clause := childOfKind(node, "import_require_clause"); clause != nil {
			source := clause.ChildByFieldName("source")
			if source == nil {
				source = childOfKind(clause, "string")
			}
			if target = stringLiteral(source, content); target != "" {
				return Reference{Target: target, Kinds: []Kind{KindDefault}, Line: line(node)}, true
			}
		}
		return Reference{}, false
	}

	var kinds []Kind
	if clause := childOfKind(node, "import_clause"); clause != nil {
		for i := uint(0); i < clause.ChildCount(); i++ {
			child := clause.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "identifier":
				kinds = append(kinds, KindDefault)
			case "named_imports":
				if childOfKind(child, "import_specifier") != nil {
					kinds = append(kinds, KindNamed)
				}
			case "namespace_import":
				kinds = append(kinds, KindNamespace)
			}
		}
	}
	return Reference{Target: target, Kinds: orSideEffect(kinds), Line: line(node)}, true
}

func reExport(node *sitter.Node, content []byte) (Reference, bool) {
	target := stringLiteral(node.ChildByFieldName("source"), content)
	if target == "" {
		return Reference{}, false
	}

	var kinds []Kind
	switch {
	case childOfKind(node, "*") != nil, childOfKind(node, "namespace_export") != nil:
		kinds = append(kinds, KindNamespace)
	case childOfKind(node, "export_clause") != nil:
		if childOfKind(childOfKind(node, "export_clause"), "export_specifier") != nil {
			kinds = append(kinds, KindNamed)
		}
	}
	return Reference{Target: target, Kinds: orSideEffect(kinds), Line: line(node)}, true
}

func callReference(node *sitter.Node, content []byte) (Reference, bool) {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")
	if fn == nil || args == nil || args.NamedChildCount() == 0 {
		return Reference{}, false
	}
	target := stringLiteral(args.NamedChild(0), content)
	if target == "" {
		return Reference{}, false
	}

	switch {
	case fn.Kind() == "import":
		return Reference{Target: target, Kinds: []Kind{KindNamespace}, Dynamic: true, Line: line(node)}, true
	case fn.Kind() == "identifier" && nodeText(fn, content) == "require":
		return Reference{Target: target, Kinds: []Kind{requireKind(node)}, Line: line(node)}, true
	}
	return Reference{}, false
}

// requireKind derives the binding kind from the require call's parent
func requireKind(call *sitter.Node) Kind {
	parent := call.Parent()
	if parent == nil {
		return KindSideEffect
	}
	switch parent.Kind() {
	case "expression_statement":
		return KindSideEffect
	case "variable_declarator":
		if name := parent.ChildByFieldName("name"); name != nil && name.Kind() == "object_pattern" {
			return KindNamed
		}
	}
	return KindDefault
}

func childOfKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

func stringLiteral(node *sitter.Node, content []byte) string {
	if node == nil || (node.Kind() != "string" && node.Kind() != "template_string") {
		return ""
	}
	text := nodeText(node, content)
	if len(text) < 2 || strings.Contains(text, "${") {
		return ""
	}
	return text[1 : len(text)-1]
}

func nodeText(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if start > uint(len(content)) || end > uint(len(content)) || start > end {
		return ""
	}
	return string(content[start:end])
}

func line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}
