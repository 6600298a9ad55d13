// Package ignore provides gitignore-based file filtering using go-git
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the per-project ignore file read on top of .gitignore.
const FileName = ".forgeignore"

// DefaultPatterns are always ignored.
var DefaultPatterns = []string{".git/", ".venv/", "venv/", "__pycache__/", "*.egg-info/", ".tox/", "node_modules/"}

// Matcher provides gitignore-based file filtering relative to a root.
type Matcher struct {
	root    string
	matcher gitignore.Matcher
}

// NewMatcher creates a matcher for root with layered ignore files:
// 1. built-in defaults
// 2. .gitignore files and .git/info/exclude
// 3. <root>/.forgeignore (project overrides)
// 4. <user config dir>/forge/.forgeignore (user overrides)
func NewMatcher(root string) (*Matcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, p := range DefaultPatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	// ReadPatterns with nil reads .gitignore files throughout the tree and
	// .git/info/exclude.
	if gitPatterns, err := gitignore.ReadPatterns(osfs.New(abs), nil); err == nil {
		patterns = append(patterns, gitPatterns...)
	}

	if lines, err := readIgnoreFile(filepath.Join(abs, FileName)); err == nil {
		for _, line := range lines {
			patterns = append(patterns, gitignore.ParsePattern(line, nil))
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		if lines, err := readIgnoreFile(filepath.Join(dir, "forge", FileName)); err == nil {
			for _, line := range lines {
				patterns = append(patterns, gitignore.ParsePattern(line, nil))
			}
		}
	}

	return &Matcher{root: abs, matcher: gitignore.NewMatcher(patterns)}, nil
}

// readIgnoreFile reads patterns from an ignore file, skipping blanks and
// comments.
func readIgnoreFile(path string) ([]string, error) {
	cleaned := filepath.Clean(path)
	if filepath.Base(cleaned) != FileName {
		return nil, fmt.Errorf("disallowed ignore file path: %s", cleaned)
	}
	content, err := os.ReadFile(cleaned) // #nosec G304 -- path cleaned and allowlisted
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// Root returns the absolute directory patterns are anchored at.
func (m *Matcher) Root() string { return m.root }

// IsIgnored reports whether the file at path should be skipped. Relative
// paths are taken relative to the matcher root.
func (m *Matcher) IsIgnored(path string) bool {
	return m.match(path, false)
}

// IsIgnoredDir reports whether the directory at path should be skipped
// during traversal.
func (m *Matcher) IsIgnoredDir(path string) bool {
	return m.match(path, true)
}

func (m *Matcher) match(path string, isDir bool) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(m.root, path)
		if err != nil || strings.HasPrefix(r, "..") {
			return false
		}
		rel = r
	}
	parts := splitPath(filepath.ToSlash(rel))
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, isDir)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return []string{}
	}
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")

	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
