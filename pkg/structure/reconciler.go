package structure

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/fulmenhq/forge/pkg/safeio"
	"github.com/go-git/go-billy/v5"
)

// Mode selects whether Reconcile writes to disk.
type Mode int

const (
	DryRun Mode = iota
	Apply
)

func (m Mode) String() string {
	if m == Apply {
		return "apply"
	}
	return "dry-run"
}

// Action is the kind of change a ChangeRecord describes.
type Action string

const (
	ActionCreatedDir  Action = "created-directory"
	ActionCreatedFile Action = "created-file"
)

// Content sources for files that are not rendered from a template.
const (
	SourceDescription = "description"
	SourceEmpty       = "empty"
)

// ChangeRecord describes one addition made (or planned) by Reconcile.
type ChangeRecord struct {
	Path          string `json:"path"`
	Action        Action `json:"action"`
	ContentSource string `json:"content_source,omitempty"`
}

// Renderer produces file content from a template id and bindings.
type Renderer interface {
	Render(templateID string, bindings map[string]string) (string, error)
}

// Options tunes a reconciliation run.
type Options struct {
	Renderer Renderer
	Bindings map[string]string
	// IncludeOptional also creates missing optional files. Used when
	// scaffolding a new project; upgrades leave optional files alone.
	IncludeOptional bool
	Scanner         *Scanner
	DirPerm         os.FileMode
	FilePerm        os.FileMode
}

type step struct {
	record ChangeRecord
	req    FileRequirement
}

// Reconcile brings the tree at root in line with schema by creating missing
// directories and files. It never modifies or removes an existing path. In
// DryRun mode it returns the plan without touching the filesystem; in Apply
// mode it executes the same plan in order. When a write fails, the records
// applied so far are returned together with an *ApplyError.
func Reconcile(fsys billy.Filesystem, root string, schema *ResolvedSchema, module string, mode Mode, opts Options) ([]ChangeRecord, error) {
	if module == "" && schema.usesModule() {
		return nil, fmt.Errorf("module name required for project type %q", schema.Name)
	}
	if opts.Scanner == nil {
		opts.Scanner = NewScanner()
	}
	if opts.DirPerm == 0 {
		opts.DirPerm = 0o755
	}
	if opts.FilePerm == 0 {
		opts.FilePerm = 0o644
	}

	inst := schema.Instantiate(module)
	plan := existencePlan(inst, opts.IncludeOptional)

	snap, err := opts.Scanner.Scan(fsys, root, plan)
	if err != nil {
		return nil, err
	}

	steps := planSteps(inst, snap, opts)
	if mode == DryRun {
		out := make([]ChangeRecord, 0, len(steps))
		for _, s := range steps {
			out = append(out, s.record)
		}
		return out, nil
	}

	bindings := map[string]string{}
	for k, v := range opts.Bindings {
		bindings[k] = v
	}
	bindings["module_name"] = module

	applied := make([]ChangeRecord, 0, len(steps))
	for _, s := range steps {
		if snap.Exists(s.record.Path) {
			continue
		}
		full := fsys.Join(root, s.record.Path)
		switch s.record.Action {
		case ActionCreatedDir:
			if err := fsys.MkdirAll(full, opts.DirPerm); err != nil {
				return applied, &ApplyError{Path: s.record.Path, Err: err}
			}
		case ActionCreatedFile:
			content, err := fileContent(s.record, s.req, opts.Renderer, bindings)
			if err != nil {
				return applied, &ApplyError{Path: s.record.Path, Err: err}
			}
			if err := safeio.WriteNewFile(fsys, full, []byte(content), opts.FilePerm); err != nil {
				if errors.Is(err, safeio.ErrExists) {
					continue
				}
				return applied, &ApplyError{Path: s.record.Path, Err: err}
			}
		}
		applied = append(applied, s.record)

		snap, err = opts.Scanner.Scan(fsys, root, plan)
		if err != nil {
			return applied, &ApplyError{Path: s.record.Path, Err: fmt.Errorf("rescan: %w", err)}
		}
	}
	return applied, nil
}

func (r *ResolvedSchema) usesModule() bool {
	for _, d := range r.RequiredDirs {
		if strings.Contains(d, ModulePlaceholder) {
			return true
		}
	}
	for _, files := range []FileRequirements{r.RequiredFiles, r.OptionalFiles} {
		for _, f := range files {
			if strings.Contains(f.Path, ModulePlaceholder) {
				return true
			}
		}
	}
	return false
}

// existencePlan lists the paths Reconcile needs to know about, ancestors
// included. No content is observed.
func existencePlan(inst *ResolvedSchema, optional bool) ProbePlan {
	plan := ProbePlan{Files: map[string][]ObservationKind{}}
	seen := map[string]bool{}
	addDirs := func(p string, self bool) {
		parts := strings.Split(cleanRel(p), "/")
		n := len(parts) - 1
		if self {
			n++
		}
		for i := 1; i <= n; i++ {
			d := strings.Join(parts[:i], "/")
			if !seen[d] {
				seen[d] = true
				plan.Dirs = append(plan.Dirs, d)
			}
		}
	}
	for _, d := range inst.RequiredDirs {
		addDirs(d, true)
	}
	for _, f := range inst.RequiredFiles {
		plan.Files[f.Path] = nil
		addDirs(f.Path, false)
	}
	if optional {
		for _, f := range inst.OptionalFiles {
			plan.Files[f.Path] = nil
			addDirs(f.Path, false)
		}
	}
	return plan
}

// blocked reports whether an ancestor of p exists as something other than a
// real directory. Nothing can be created below such a path without
// replacing or following it.
func blocked(snap *Snapshot, p string) bool {
	parts := strings.Split(cleanRel(p), "/")
	for i := 1; i < len(parts); i++ {
		if k, ok := snap.Kind(strings.Join(parts[:i], "/")); ok && k != KindDir {
			return true
		}
	}
	return false
}

func planSteps(inst *ResolvedSchema, snap *Snapshot, opts Options) []step {
	var steps []step
	pending := map[string]bool{}

	addDir := func(p string) {
		if p == "." || snap.Exists(p) || pending[p] {
			return
		}
		pending[p] = true
		steps = append(steps, step{record: ChangeRecord{Path: p, Action: ActionCreatedDir}})
	}
	parents := func(p string) {
		parts := strings.Split(path.Dir(p), "/")
		for i := range parts {
			addDir(strings.Join(parts[:i+1], "/"))
		}
	}

	for _, d := range inst.RequiredDirs {
		if blocked(snap, d) {
			continue
		}
		parents(d)
		addDir(d)
	}

	files := inst.RequiredFiles
	if opts.IncludeOptional {
		for _, f := range inst.OptionalFiles {
			if _, dup := files.Lookup(f.Path); !dup {
				files = append(files, f)
			}
		}
	}
	for _, f := range files {
		if snap.Exists(f.Path) || pending[f.Path] || blocked(snap, f.Path) {
			continue
		}
		parents(f.Path)
		pending[f.Path] = true
		steps = append(steps, step{
			record: ChangeRecord{
				Path:          f.Path,
				Action:        ActionCreatedFile,
				ContentSource: contentSource(f.FileRequirement, opts.Renderer),
			},
			req: f.FileRequirement,
		})
	}
	return steps
}

func contentSource(req FileRequirement, r Renderer) string {
	switch {
	case req.Template != "" && r != nil:
		return req.Template
	case req.Description != "":
		return SourceDescription
	default:
		return SourceEmpty
	}
}

func fileContent(rec ChangeRecord, req FileRequirement, r Renderer, bindings map[string]string) (string, error) {
	switch rec.ContentSource {
	case SourceEmpty:
		return "", nil
	case SourceDescription:
		return descriptionStub(rec.Path, req.Description), nil
	default:
		out, err := r.Render(rec.ContentSource, bindings)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", rec.ContentSource, err)
		}
		return out, nil
	}
}

// descriptionStub derives placeholder content from a requirement
// description, using the comment syntax of the file type.
func descriptionStub(p, description string) string {
	desc := strings.TrimSpace(description)
	switch strings.ToLower(path.Ext(p)) {
	case ".py", ".pyi":
		return fmt.Sprintf("\"\"\"%s.\"\"\"\n", strings.TrimSuffix(desc, "."))
	case ".md":
		return fmt.Sprintf("# %s\n", desc)
	case ".json":
		return "{}\n"
	case "", ".txt", ".rst":
		return desc + "\n"
	default:
		return fmt.Sprintf("# %s\n", desc)
	}
}
