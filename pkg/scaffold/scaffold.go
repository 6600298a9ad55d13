// Package scaffold creates new Python projects from a project type: it
// materializes the type's required and optional paths with rendered
// templates and records an initial git commit.
package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/forge/internal/gitctx"
	"github.com/fulmenhq/forge/pkg/logger"
	"github.com/fulmenhq/forge/pkg/safeio"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/go-git/go-billy/v5/memfs"
)

// ErrTargetNotEmpty is returned when the project directory already holds
// files.
var ErrTargetNotEmpty = errors.New("target directory is not empty")

// InvalidNameError reports a project name that cannot be used.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid project name %q: %s", e.Name, e.Reason)
}

// Options configures Create.
type Options struct {
	Name        string
	ProjectType string
	// Directory is the parent directory of the new project. Defaults to
	// the current directory.
	Directory   string
	Author      string
	Email       string
	Description string
	NoGit       bool
	DryRun      bool

	Registry *structure.Registry
	Renderer structure.Renderer
	Now      func() time.Time
}

// Result describes a scaffold run.
type Result struct {
	Root        string                   `json:"root"`
	Module      string                   `json:"module"`
	ProjectType string                   `json:"project_type"`
	Changes     []structure.ChangeRecord `json:"changes"`
	Commit      string                   `json:"commit,omitempty"`
}

// Create scaffolds a new project. In dry-run mode nothing is written and
// the returned changes are the plan for an empty directory. On a write
// failure the partial result is returned with the error.
func Create(opts Options) (*Result, error) {
	if err := validateName(opts.Name); err != nil {
		return nil, err
	}
	if opts.Registry == nil {
		return nil, errors.New("scaffold: no schema registry")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	dir := opts.Directory
	if dir == "" {
		dir = "."
	}
	dir, err := safeio.CleanUserPath(dir)
	if err != nil {
		return nil, err
	}

	schema, err := opts.Registry.Resolve(opts.ProjectType)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(filepath.Join(dir, opts.Name))
	if err != nil {
		return nil, err
	}
	res := &Result{
		Root:        root,
		Module:      structure.NormalizeModuleName(opts.Name),
		ProjectType: schema.Name,
	}
	if err := checkTarget(root); err != nil {
		return nil, err
	}

	rOpts := structure.Options{
		Renderer:        opts.Renderer,
		Bindings:        Bindings(opts),
		IncludeOptional: true,
	}

	if opts.DryRun {
		// Plan against an empty in-memory root so missing directories do
		// not have to exist on disk.
		fsys := memfs.New()
		if err := fsys.MkdirAll("/project", 0o755); err != nil {
			return nil, err
		}
		res.Changes, err = structure.Reconcile(fsys, "/project", schema, res.Module, structure.DryRun, rOpts)
		return res, err
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	logger.Debug("Scaffolding project", logger.String("root", root), logger.String("type", schema.Name))

	res.Changes, err = structure.Reconcile(safeio.RootFS(root), ".", schema, res.Module, structure.Apply, rOpts)
	if err != nil {
		return res, err
	}

	switch {
	case opts.NoGit:
		logger.Debug("Skipping git init", logger.String("reason", "--no-git"))
	case gitctx.InsideRepo(root):
		logger.Info("Project is inside an existing git repository, skipping git init", logger.String("root", root))
	default:
		hash, err := gitctx.Init(root, gitctx.InitOptions{
			AuthorName:  opts.Author,
			AuthorEmail: opts.Email,
			Message:     fmt.Sprintf("Initial commit: %s project scaffolded by forge", schema.Name),
			When:        opts.Now(),
		})
		if err != nil {
			return res, err
		}
		res.Commit = hash
	}
	return res, nil
}

// Bindings returns the template variables for a project.
func Bindings(opts Options) map[string]string {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return map[string]string{
		"name":         opts.Name,
		"package_name": structure.NormalizePackageName(opts.Name),
		"module_name":  structure.NormalizeModuleName(opts.Name),
		"author":       opts.Author,
		"email":        opts.Email,
		"description":  opts.Description,
		"project_type": opts.ProjectType,
		"year":         strconv.Itoa(now().Year()),
	}
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &InvalidNameError{Name: name, Reason: "name is empty"}
	case strings.ContainsAny(name, `/\`):
		return &InvalidNameError{Name: name, Reason: "name must be a single directory name"}
	case !structure.ValidProjectName(name):
		return &InvalidNameError{Name: name, Reason: "use letters, digits, '.', '_' or '-', starting and ending with a letter or digit"}
	case structure.NormalizeModuleName(name) == "" || !isIdentStart(structure.NormalizeModuleName(name)):
		return &InvalidNameError{Name: name, Reason: "module name must start with a letter"}
	}
	return nil
}

func isIdentStart(s string) bool {
	c := s[0]
	return c >= 'a' && c <= 'z'
}

func checkTarget(root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", root, ErrTargetNotEmpty)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%s: %w", root, ErrTargetNotEmpty)
	}
	return nil
}
