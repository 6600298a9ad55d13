// Package structure holds the project structure engine: the schema registry,
// the tree scanner, the validator and the reconciler used by check and upgrade.
package structure

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModulePlaceholder is substituted with the concrete module name at use time.
const ModulePlaceholder = "{module_name}"

// FileRequirement is the contract for one required (or optional) file.
type FileRequirement struct {
	Description string   `yaml:"description" json:"description"`
	Validators  []string `yaml:"validators,omitempty" json:"validators,omitempty"`
	Template    string   `yaml:"template,omitempty" json:"template,omitempty"`
}

// FileEntry pairs a path pattern with its requirement.
type FileEntry struct {
	Path string `json:"path"`
	FileRequirement
}

// FileRequirements is an ordered path -> requirement mapping. Order follows
// the structure document so findings stay deterministic.
type FileRequirements []FileEntry

// UnmarshalYAML decodes a YAML mapping while keeping declaration order.
func (f *FileRequirements) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		*f = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of path to file requirement", value.Line)
	}
	out := make(FileRequirements, 0, len(value.Content)/2)
	seen := make(map[string]struct{}, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var p string
		if err := value.Content[i].Decode(&p); err != nil {
			return fmt.Errorf("line %d: %w", value.Content[i].Line, err)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("line %d: duplicate file %q", value.Content[i].Line, p)
		}
		seen[p] = struct{}{}
		var req FileRequirement
		if value.Content[i+1].Tag != "!!null" {
			if err := value.Content[i+1].Decode(&req); err != nil {
				return fmt.Errorf("file %q: %w", p, err)
			}
		}
		out = append(out, FileEntry{Path: p, FileRequirement: req})
	}
	*f = out
	return nil
}

// Lookup returns the requirement declared for p.
func (f FileRequirements) Lookup(p string) (FileRequirement, bool) {
	for _, e := range f {
		if e.Path == p {
			return e.FileRequirement, true
		}
	}
	return FileRequirement{}, false
}

// overlay returns f with child entries applied: an existing path keeps its
// position and takes the child's requirement, new paths are appended.
func (f FileRequirements) overlay(child FileRequirements) FileRequirements {
	out := make(FileRequirements, len(f), len(f)+len(child))
	copy(out, f)
	for _, c := range child {
		replaced := false
		for i := range out {
			if out[i].Path == c.Path {
				out[i] = c.clone()
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, c.clone())
		}
	}
	return out
}

func (e FileEntry) clone() FileEntry {
	c := e
	if e.Validators != nil {
		c.Validators = append([]string(nil), e.Validators...)
	}
	return c
}

// FieldEntry lists the recommended dotted keys for one manifest.
type FieldEntry struct {
	Path   string   `json:"path"`
	Fields []string `json:"fields"`
}

// FieldRequirements is an ordered manifest path -> recommended fields mapping.
type FieldRequirements []FieldEntry

// UnmarshalYAML decodes a YAML mapping while keeping declaration order.
func (f *FieldRequirements) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		*f = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of manifest path to field list", value.Line)
	}
	out := make(FieldRequirements, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var entry FieldEntry
		if err := value.Content[i].Decode(&entry.Path); err != nil {
			return fmt.Errorf("line %d: %w", value.Content[i].Line, err)
		}
		if err := value.Content[i+1].Decode(&entry.Fields); err != nil {
			return fmt.Errorf("manifest %q: %w", entry.Path, err)
		}
		out = append(out, entry)
	}
	*f = out
	return nil
}

func (f FieldRequirements) overlay(child FieldRequirements) FieldRequirements {
	out := make(FieldRequirements, len(f), len(f)+len(child))
	copy(out, f)
	for _, c := range child {
		c.Fields = append([]string(nil), c.Fields...)
		replaced := false
		for i := range out {
			if out[i].Path == c.Path {
				out[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, c)
		}
	}
	return out
}

// ProjectTypeSchema is one named entry of the structure document.
type ProjectTypeSchema struct {
	Name              string            `yaml:"-" json:"name"`
	Description       string            `yaml:"description" json:"description"`
	Parent            string            `yaml:"inherits,omitempty" json:"inherits,omitempty"`
	RequiredDirs      []string          `yaml:"required_dirs,omitempty" json:"required_dirs,omitempty"`
	RequiredFiles     FileRequirements  `yaml:"required_files,omitempty" json:"required_files,omitempty"`
	OptionalFiles     FileRequirements  `yaml:"optional_files,omitempty" json:"optional_files,omitempty"`
	RecommendedFields FieldRequirements `yaml:"recommended_fields,omitempty" json:"recommended_fields,omitempty"`
}

// Document is the decoded structure document.
type Document struct {
	Version      int                           `yaml:"version" json:"version"`
	ProjectTypes map[string]*ProjectTypeSchema `yaml:"project_types" json:"project_types"`
}

// Types returns the declared project type ids, sorted.
func (d *Document) Types() []string {
	ids := make([]string, 0, len(d.ProjectTypes))
	for id := range d.ProjectTypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolvedSchema is the flattened result of a project type's inheritance
// chain. It is a self-contained value; nothing refers back to the document.
type ResolvedSchema struct {
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	Chain             []string          `json:"chain"`
	RequiredDirs      []string          `json:"required_dirs"`
	RequiredFiles     FileRequirements  `json:"required_files"`
	OptionalFiles     FileRequirements  `json:"optional_files,omitempty"`
	RecommendedFields FieldRequirements `json:"recommended_fields,omitempty"`
}

func (r *ResolvedSchema) clone() *ResolvedSchema {
	out := &ResolvedSchema{
		Name:          r.Name,
		Description:   r.Description,
		Chain:         append([]string(nil), r.Chain...),
		RequiredDirs:  append([]string{}, r.RequiredDirs...),
		RequiredFiles: FileRequirements{}.overlay(r.RequiredFiles),
	}
	if r.OptionalFiles != nil {
		out.OptionalFiles = FileRequirements{}.overlay(r.OptionalFiles)
	}
	if r.RecommendedFields != nil {
		out.RecommendedFields = FieldRequirements{}.overlay(r.RecommendedFields)
	}
	return out
}

// Instantiate returns a copy with every {module_name} placeholder replaced.
func (r *ResolvedSchema) Instantiate(module string) *ResolvedSchema {
	out := &ResolvedSchema{
		Name:        r.Name,
		Description: r.Description,
		Chain:       append([]string(nil), r.Chain...),
	}
	for _, d := range r.RequiredDirs {
		out.RequiredDirs = append(out.RequiredDirs, SubstituteModule(d, module))
	}
	out.RequiredFiles = instantiateFiles(r.RequiredFiles, module)
	out.OptionalFiles = instantiateFiles(r.OptionalFiles, module)
	for _, f := range r.RecommendedFields {
		out.RecommendedFields = append(out.RecommendedFields, FieldEntry{
			Path:   SubstituteModule(f.Path, module),
			Fields: append([]string(nil), f.Fields...),
		})
	}
	return out
}

func instantiateFiles(files FileRequirements, module string) FileRequirements {
	if files == nil {
		return nil
	}
	out := make(FileRequirements, 0, len(files))
	for _, f := range files {
		c := f.clone()
		c.Path = SubstituteModule(f.Path, module)
		out = append(out, c)
	}
	return out
}

// SubstituteModule replaces {module_name} in pattern and normalizes the
// result to a clean slash-separated relative path.
func SubstituteModule(pattern, module string) string {
	p := strings.ReplaceAll(pattern, ModulePlaceholder, module)
	p = path.Clean(strings.TrimPrefix(p, "/"))
	return p
}

// ProbePlan lists what the scanner must look at beyond the plain walk: the
// directories to stat and the files whose content must be observed.
type ProbePlan struct {
	Dirs  []string
	Files map[string][]ObservationKind
}

// ProbePlan builds the scan plan for this schema and module. Paths are
// substituted; observation kinds come from the catalog entries referenced by
// each file's validators.
func (r *ResolvedSchema) ProbePlan(module string, catalog *Catalog) ProbePlan {
	inst := r.Instantiate(module)
	plan := ProbePlan{
		Dirs:  append([]string(nil), inst.RequiredDirs...),
		Files: make(map[string][]ObservationKind),
	}
	add := func(p string, kinds ...ObservationKind) {
		existing := plan.Files[p]
		for _, k := range kinds {
			dup := false
			for _, e := range existing {
				if e == k {
					dup = true
					break
				}
			}
			if !dup {
				existing = append(existing, k)
			}
		}
		plan.Files[p] = existing
	}
	for _, files := range []FileRequirements{inst.RequiredFiles, inst.OptionalFiles} {
		for _, f := range files {
			add(f.Path)
			for _, id := range f.Validators {
				if spec, ok := catalog.Lookup(id); ok {
					add(f.Path, spec.Needs...)
				}
			}
		}
	}
	for _, m := range inst.RecommendedFields {
		add(m.Path, ObserveManifest)
	}
	return plan
}
