package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zheng/archscan/internal/extract"
)

// ErrRootNotExist is returned when the scan root is missing
var ErrRootNotExist = errors.New("path does not exist")

// DefaultMaxDepth bounds directory recursion when no depth is configured
const DefaultMaxDepth = 20

// denylist holds directory names that are never descended into
var denylist = map[string]bool{
	"node_modules": true,
	".git":         true,
	".svn":         true,
	".hg":          true,
	"dist":         true,
	"build":        true,
	"out":          true,
	".next":        true,
	".nuxt":        true,
	".turbo":       true,
	".cache":       true,
	"coverage":     true,
	"vendor":       true,
}

// File is one candidate source file
type File struct {
	Path    string    `json:"path"`     // absolute path
	RelPath string    `json:"rel_path"` // slash-separated, relative to root
	ModTime time.Time `json:"mod_time"`
}

// WalkOptions configures Walk
type WalkOptions struct {
	MaxDepth   int      // root is depth 0; <= 0 means DefaultMaxDepth
	Extensions []string // empty means extract.DefaultExtensions
	Exclude    []string // doublestar globs against RelPath
}

// WalkResult is the sorted file list plus counters for skipped directories
type WalkResult struct {
	Root        string
	Files       []File
	SkippedDirs int
}

// IsDenied reports whether a directory name is excluded from scans
func IsDenied(name string) bool {
	return denylist[name] || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

// Walk enumerates candidate source files under root
func Walk(root string, opts WalkOptions) (*WalkResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrRootNotExist)
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	exts := make(map[string]bool)
	extList := opts.Extensions
	if len(extList) == 0 {
		extList = extract.DefaultExtensions
	}
	for _, e := range extList {
		exts[strings.ToLower(e)] = true
	}

	result := &WalkResult{Root: absRoot}
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// unreadable directory: skip it, keep walking siblings
			if d != nil && d.IsDir() {
				result.SkippedDirs++
				if path == absRoot {
					return walkErr
				}
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if IsDenied(d.Name()) || excluded(opts.Exclude, rel) {
				return filepath.SkipDir
			}
			if strings.Count(rel, "/")+1 > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if excluded(opts.Exclude, rel) {
			return nil
		}

		f := File{Path: path, RelPath: rel}
		if fi, err := d.Info(); err == nil {
			f.ModTime = fi.ModTime()
		}
		result.Files = append(result.Files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].RelPath < result.Files[j].RelPath
	})
	return result, nil
}

func excluded(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
