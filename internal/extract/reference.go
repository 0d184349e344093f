package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Kind tags how a reference binds the target module
type Kind string

const (
	KindDefault    Kind = "default"
	KindNamed      Kind = "named"
	KindNamespace  Kind = "namespace"
	KindSideEffect Kind = "side-effect"
)

// Reference is a single module-reference statement found in a file
type Reference struct {
	Target  string `json:"target"`  // literal specifier as written
	Kinds   []Kind `json:"kinds"`   // binding kinds of this statement
	Dynamic bool   `json:"dynamic"` // import() / lazy reference
	Line    int    `json:"line"`
}

// Recognizer extracts references from the raw text of one source-file family
type Recognizer interface {
	Name() string
	Extensions() []string
	Extract(content []byte) ([]Reference, error)
}

// ErrBinary marks content that is not a text source file
var ErrBinary = errors.New("binary or non-utf8 content")

// binarySniffLen is how much of a file is inspected for NUL bytes
const binarySniffLen = 8000

// LoadFile reads a source file and rejects binary content
func LoadFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if IsBinary(content) {
		return nil, fmt.Errorf("%s: %w", path, ErrBinary)
	}
	return content, nil
}

// IsBinary reports whether content looks like binary data
func IsBinary(content []byte) bool {
	sniff := content
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return true
	}
	return !utf8.Valid(content)
}

// Registry maps file extensions to recognizers
type Registry struct {
	byExt    map[string]Recognizer
	fallback Recognizer
}

// NewRegistry creates a registry whose fallback handles unknown extensions
func NewRegistry(fallback Recognizer) *Registry {
	r := &Registry{byExt: make(map[string]Recognizer), fallback: fallback}
	if fallback != nil {
		r.Register(fallback)
	}
	return r
}

// DefaultRegistry returns the pattern recognizer for all JS/TS extensions
func DefaultRegistry() *Registry {
	return NewRegistry(NewPattern())
}

// Register binds a recognizer to each of its extensions, replacing any previous binding
func (r *Registry) Register(rec Recognizer) {
	for _, ext := range rec.Extensions() {
		r.byExt[strings.ToLower(ext)] = rec
	}
}

// For returns the recognizer for a path
func (r *Registry) For(path string) Recognizer {
	if rec, ok := r.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return rec
	}
	return r.fallback
}

// lineAt returns the 1-based line number of a byte offset
func lineAt(content []byte, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return bytes.Count(content[:offset], []byte{'\n'}) + 1
}
