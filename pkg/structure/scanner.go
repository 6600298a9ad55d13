package structure

import (
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pelletier/go-toml/v2"
)

// EntryKind is the type of a filesystem entry in a snapshot.
type EntryKind string

const (
	KindDir     EntryKind = "dir"
	KindFile    EntryKind = "file"
	KindSymlink EntryKind = "symlink"
	KindOther   EntryKind = "other"
)

// DefaultExcludes are directory globs the scanner records but never enters.
var DefaultExcludes = []string{
	".git",
	"**/__pycache__",
	".venv",
	"venv",
	"node_modules",
	"**/*.egg-info",
	".tox",
	".mypy_cache",
	".pytest_cache",
	".ruff_cache",
}

// Snapshot is an immutable view of a directory tree at scan time. Paths are
// slash-separated and relative to the scanned root; the root itself is ".".
type Snapshot struct {
	Root         string
	entries      map[string]EntryKind
	children     map[string]int
	observations map[string]*Observations
}

// Kind returns the entry kind recorded for p.
func (s *Snapshot) Kind(p string) (EntryKind, bool) {
	k, ok := s.entries[cleanRel(p)]
	return k, ok
}

// Exists reports whether any entry is recorded at p.
func (s *Snapshot) Exists(p string) bool {
	_, ok := s.entries[cleanRel(p)]
	return ok
}

// IsDir reports whether p is a real directory (not a symlink to one).
func (s *Snapshot) IsDir(p string) bool {
	k, ok := s.Kind(p)
	return ok && k == KindDir
}

// IsFile reports whether p is a regular file.
func (s *Snapshot) IsFile(p string) bool {
	k, ok := s.Kind(p)
	return ok && k == KindFile
}

// ChildCount returns the number of direct entries in directory p.
func (s *Snapshot) ChildCount(p string) (int, bool) {
	n, ok := s.children[cleanRel(p)]
	return n, ok
}

// Observations returns the content observations for p. The result is never
// nil; files that were not probed yield an empty bag.
func (s *Snapshot) Observations(p string) *Observations {
	if obs, ok := s.observations[cleanRel(p)]; ok {
		return obs
	}
	return &Observations{}
}

// Paths returns every recorded path, sorted.
func (s *Snapshot) Paths() []string {
	out := make([]string, 0, len(s.entries))
	for p := range s.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of recorded entries, the root included.
func (s *Snapshot) Len() int { return len(s.entries) }

func cleanRel(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}

// Scanner walks a tree into a Snapshot.
type Scanner struct {
	// Exclude holds doublestar globs matched against slash-relative paths.
	Exclude []string
}

// NewScanner returns a scanner using exclude, or DefaultExcludes when empty.
func NewScanner(exclude ...string) *Scanner {
	if len(exclude) == 0 {
		exclude = DefaultExcludes
	}
	return &Scanner{Exclude: append([]string(nil), exclude...)}
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Scan records every entry under root. Symlinks are leaves and are never
// followed. Excluded directories are recorded with their child count but not
// descended into. Files named in plan get their content observed; unreadable
// content degrades to empty observations.
func (s *Scanner) Scan(fsys billy.Filesystem, root string, plan ProbePlan) (*Snapshot, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &PathNotFoundError{Path: root}
		}
		return nil, &PathNotFoundError{Path: root, Reason: err.Error()}
	}
	if !info.IsDir() {
		return nil, &PathNotFoundError{Path: root, Reason: "not a directory"}
	}

	snap := &Snapshot{
		Root:         root,
		entries:      map[string]EntryKind{".": KindDir},
		children:     map[string]int{},
		observations: map[string]*Observations{},
	}

	walkErr := util.Walk(fsys, root, func(p string, fi os.FileInfo, err error) error {
		if fi == nil {
			return nil
		}
		rel, relErr := relPath(root, p)
		if relErr != nil || rel == "." {
			if err != nil {
				return nil
			}
			if fi.IsDir() {
				snap.children["."] = countChildren(fsys, p)
			}
			return nil
		}
		kind := kindOf(fi)
		snap.entries[rel] = kind
		if kind != KindDir {
			return nil
		}
		snap.children[rel] = countChildren(fsys, p)
		if s.excluded(rel) {
			return filepath.SkipDir
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, filepath.SkipDir) {
		return nil, walkErr
	}

	// Planned paths are probed directly so that exclusions never hide them.
	for _, d := range plan.Dirs {
		rel := cleanRel(d)
		if _, ok := snap.entries[rel]; ok {
			continue
		}
		full := fsys.Join(root, rel)
		fi, err := fsys.Lstat(full)
		if err != nil {
			continue
		}
		snap.entries[rel] = kindOf(fi)
		if fi.IsDir() {
			snap.children[rel] = countChildren(fsys, full)
		}
	}

	files := make([]string, 0, len(plan.Files))
	for p := range plan.Files {
		files = append(files, p)
	}
	sort.Strings(files)
	for _, p := range files {
		rel := cleanRel(p)
		full := fsys.Join(root, rel)
		if _, ok := snap.entries[rel]; !ok {
			fi, err := fsys.Lstat(full)
			if err != nil {
				continue
			}
			snap.entries[rel] = kindOf(fi)
		}
		if snap.entries[rel] != KindFile {
			continue
		}
		kinds := plan.Files[p]
		if len(kinds) == 0 {
			continue
		}
		data, err := readCapped(fsys, full)
		if err != nil {
			snap.observations[rel] = &Observations{ManifestError: err.Error()}
			continue
		}
		snap.observations[rel] = observe(data, kinds)
	}
	return snap, nil
}

func kindOf(fi os.FileInfo) EntryKind {
	mode := fi.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return KindSymlink
	case mode.IsDir():
		return KindDir
	case mode.IsRegular():
		return KindFile
	default:
		return KindOther
	}
}

func relPath(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	return cleanRel(rel), nil
}

func countChildren(fsys billy.Filesystem, dir string) int {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return 0
	}
	return len(entries)
}

func readCapped(fsys billy.Filesystem, p string) ([]byte, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, maxObservedSize))
}

// DetectModuleName derives the importable module name for the project at
// root: [project].name from pyproject.toml when available, otherwise the
// directory's base name, normalized to a python identifier.
func DetectModuleName(fsys billy.Filesystem, root string) string {
	if data, err := readCapped(fsys, fsys.Join(root, "pyproject.toml")); err == nil {
		var doc struct {
			Project struct {
				Name string `toml:"name"`
			} `toml:"project"`
		}
		if toml.Unmarshal(data, &doc) == nil && doc.Project.Name != "" {
			return NormalizeModuleName(doc.Project.Name)
		}
	}
	return NormalizeModuleName(filepath.Base(filepath.Join(fsys.Root(), root)))
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeModuleName maps a distribution name to its import name: runs of
// anything but lower-case letters and digits become "_".
func NormalizeModuleName(name string) string {
	return strings.Trim(nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_"), "_")
}

// NormalizePackageName maps a project name to its distribution name, using
// "-" as the separator.
func NormalizePackageName(name string) string {
	return strings.Trim(nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-"), "-")
}

// ValidProjectName reports whether name is usable as a distribution name.
func ValidProjectName(name string) bool {
	return nameRe.MatchString(name)
}
