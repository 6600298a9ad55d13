package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/fulmenhq/forge/internal/assets"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Path    string `json:"path,omitempty"` // Single string path (e.g., "project_types.cli.inherits")
	Message string `json:"message"`
}

// Result holds the validation result.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var (
	mu       sync.Mutex
	compiled = make(map[string]*gojsonschema.Schema)
)

// load compiles the named embedded schema once.
func load(name string) (*gojsonschema.Schema, error) {
	mu.Lock()
	defer mu.Unlock()
	if s, ok := compiled[name]; ok {
		return s, nil
	}
	path, ok := assets.SchemaPath(name)
	if !ok {
		return nil, fmt.Errorf("schema %s not found in registry", name)
	}
	schemaBytes, ok := assets.GetSchema(path)
	if !ok || len(schemaBytes) == 0 {
		return nil, fmt.Errorf("schema %s not embedded at %s", name, path)
	}

	// Convert YAML to JSON for gojsonschema
	var schemaData interface{}
	if err := yaml.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	jsonBytes, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("encode schema %s: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	compiled[name] = s
	return s, nil
}

// Validate validates data (interface{}) against the named schema.
func Validate(data interface{}, schemaName string) (*Result, error) {
	schema, err := load(schemaName)
	if err != nil {
		return nil, err
	}

	docLoader := gojsonschema.NewGoLoader(data)
	result, err := schema.Validate(docLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	res := &Result{Valid: result.Valid()}
	if !result.Valid() {
		for _, verr := range result.Errors() {
			field := verr.Field()
			if field == "" || field == "(root)" {
				field = "root"
			}
			res.Errors = append(res.Errors, ValidationError{
				Path:    field,
				Message: verr.Description(),
			})
		}
		sort.SliceStable(res.Errors, func(i, j int) bool { return res.Errors[i].Path < res.Errors[j].Path })
	}

	return res, nil
}

// ValidateBytes decodes YAML (or JSON) content and validates it.
func ValidateBytes(content []byte, schemaName string) (*Result, error) {
	var doc interface{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return Validate(doc, schemaName)
}
