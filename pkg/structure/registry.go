package structure

import (
	"fmt"
	"sync"

	"github.com/fulmenhq/forge/internal/assets"
	"github.com/fulmenhq/forge/internal/schema"
	"github.com/go-git/go-billy/v5"
	"gopkg.in/yaml.v3"
)

// DocumentSchemaName is the embedded JSON Schema that structure documents
// are checked against before decoding.
const DocumentSchemaName = "structure-v1"

// LoadDocument decodes and validates a structure document. source names the
// document in error messages.
func LoadDocument(data []byte, source string) (*Document, error) {
	var generic interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, &DocumentError{Source: source, Err: err}
	}
	res, err := schema.Validate(generic, DocumentSchemaName)
	if err != nil {
		return nil, &DocumentError{Source: source, Err: err}
	}
	if !res.Valid {
		details := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			details = append(details, fmt.Sprintf("%s: %s", e.Path, e.Message))
		}
		return nil, &DocumentError{Source: source, Details: details}
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &DocumentError{Source: source, Err: err}
	}
	for name, pt := range doc.ProjectTypes {
		if pt == nil {
			pt = &ProjectTypeSchema{}
			doc.ProjectTypes[name] = pt
		}
		pt.Name = name
	}
	return &doc, nil
}

// Registry resolves project types from a structure document. Resolved
// schemas are cached for the lifetime of the registry.
type Registry struct {
	doc     *Document
	catalog *Catalog

	mu    sync.Mutex
	cache map[string]*ResolvedSchema
}

// NewRegistry returns a registry over doc. A nil catalog means the default
// validator catalog.
func NewRegistry(doc *Document, catalog *Catalog) *Registry {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if doc.ProjectTypes == nil {
		doc.ProjectTypes = map[string]*ProjectTypeSchema{}
	}
	return &Registry{doc: doc, catalog: catalog, cache: map[string]*ResolvedSchema{}}
}

// LoadRegistry decodes data and validates every project type eagerly, so a
// broken document fails at load rather than on first use.
func LoadRegistry(data []byte, source string) (*Registry, error) {
	doc, err := LoadDocument(data, source)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry(doc, nil)
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// DefaultRegistry loads the embedded structure document.
func DefaultRegistry() (*Registry, error) {
	data, ok := assets.GetStructure()
	if !ok {
		return nil, &DocumentError{Source: "embedded", Err: fmt.Errorf("embedded structure document missing")}
	}
	return LoadRegistry(data, "embedded")
}

// Catalog returns the validator catalog used by the registry.
func (r *Registry) Catalog() *Catalog { return r.catalog }

// Types returns the declared project type ids, sorted.
func (r *Registry) Types() []string { return r.doc.Types() }

// Describe returns the declared (unresolved) schema for name.
func (r *Registry) Describe(name string) (*ProjectTypeSchema, bool) {
	pt, ok := r.doc.ProjectTypes[name]
	return pt, ok
}

// Validate resolves every declared type and returns the first error.
func (r *Registry) Validate() error {
	for _, name := range r.Types() {
		if _, err := r.Resolve(name); err != nil {
			return err
		}
	}
	return nil
}

// Resolve flattens the inheritance chain of name into a ResolvedSchema. The
// returned value is a private copy; callers may modify it freely.
func (r *Registry) Resolve(name string) (*ResolvedSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[name]; ok {
		return cached.clone(), nil
	}

	chain, err := r.chain(name)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedSchema{Name: name}
	seenDirs := map[string]struct{}{}
	for _, pt := range chain {
		resolved.Chain = append(resolved.Chain, pt.Name)
		for _, d := range pt.RequiredDirs {
			if _, dup := seenDirs[d]; dup {
				continue
			}
			seenDirs[d] = struct{}{}
			resolved.RequiredDirs = append(resolved.RequiredDirs, d)
		}
		resolved.RequiredFiles = resolved.RequiredFiles.overlay(pt.RequiredFiles)
		resolved.OptionalFiles = resolved.OptionalFiles.overlay(pt.OptionalFiles)
		resolved.RecommendedFields = resolved.RecommendedFields.overlay(pt.RecommendedFields)
		if pt.Description != "" {
			resolved.Description = pt.Description
		}
	}
	if resolved.RequiredDirs == nil {
		resolved.RequiredDirs = []string{}
	}
	if resolved.RequiredFiles == nil {
		resolved.RequiredFiles = FileRequirements{}
	}

	for _, files := range []FileRequirements{resolved.RequiredFiles, resolved.OptionalFiles} {
		for _, f := range files {
			for _, id := range f.Validators {
				if _, ok := r.catalog.Lookup(id); !ok {
					return nil, &UnknownValidatorError{ProjectType: name, Path: f.Path, Validator: id}
				}
			}
		}
	}

	r.cache[name] = resolved
	return resolved.clone(), nil
}

// chain returns the inheritance chain of name ordered root to leaf.
func (r *Registry) chain(name string) ([]*ProjectTypeSchema, error) {
	var (
		leafToRoot []*ProjectTypeSchema
		visited    = map[string]bool{}
		order      []string
	)
	current, child := name, ""
	for current != "" {
		if visited[current] {
			return nil, &SchemaCycleError{Chain: append(order, current)}
		}
		pt, ok := r.doc.ProjectTypes[current]
		if !ok {
			return nil, &UnknownProjectTypeError{Name: current, Parent: child}
		}
		visited[current] = true
		order = append(order, current)
		leafToRoot = append(leafToRoot, pt)
		child, current = current, pt.Parent
	}

	out := make([]*ProjectTypeSchema, len(leafToRoot))
	for i, pt := range leafToRoot {
		out[len(leafToRoot)-1-i] = pt
	}
	return out, nil
}

// Check resolves projectType, scans root and diffs the tree against it.
// A nil scanner means NewScanner().
func (r *Registry) Check(fsys billy.Filesystem, root, projectType, module string, scanner *Scanner) (*ResolvedSchema, []Finding, error) {
	s, err := r.Resolve(projectType)
	if err != nil {
		return nil, nil, err
	}
	if scanner == nil {
		scanner = NewScanner()
	}
	snap, err := scanner.Scan(fsys, root, s.ProbePlan(module, r.catalog))
	if err != nil {
		return s, nil, err
	}
	return s, NewValidator(r.catalog).Diff(s, snap, module), nil
}
