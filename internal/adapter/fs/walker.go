package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"semkb/internal/domain"
)

// Walker discovers documents under a directory that match glob
// patterns. A pattern matches against the path relative to the walk
// root or against the bare file name, so "*.md" finds markdown files
// at any depth the way recursive globbing does.
type Walker struct {
	defaultPatterns []string
}

// NewWalker creates a walker with the patterns used when a discovery
// call supplies none.
func NewWalker(defaultPatterns []string) *Walker {
	if len(defaultPatterns) == 0 {
		defaultPatterns = []string{"*.md", "*.txt"}
	}
	return &Walker{defaultPatterns: defaultPatterns}
}

// Discover returns the sorted, de-duplicated paths of all matching
// files under root. A missing root yields domain.ErrDirectoryNotFound.
func (w *Walker) Discover(root string, patterns []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDirectoryNotFound, root)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	if len(patterns) == 0 {
		patterns = w.defaultPatterns
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matchesAny(patterns, filepath.ToSlash(relPath)) {
			seen[path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func matchesAny(patterns []string, relPath string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
