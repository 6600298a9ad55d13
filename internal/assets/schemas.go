package assets

import (
	"encoding/json"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaInfo holds schema metadata.
type SchemaInfo struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Draft string `json:"draft"`
}

// knownSchemas maps schema names to their embed paths.
var knownSchemas = map[string]string{
	"structure-v1": "embedded_schemas/structure/v1.0.0/structure.schema.yaml",
	"config-v1":    "embedded_schemas/config/v1.0.0/config.schema.yaml",
}

// GetSchema returns the embedded schema bytes by embed path
// (e.g., "embedded_schemas/structure/v1.0.0/structure.schema.yaml").
func GetSchema(relPath string) ([]byte, bool) {
	data, err := Schemas.ReadFile(relPath)
	return data, err == nil
}

// SchemaPath returns the embed path registered for name.
func SchemaPath(name string) (string, bool) {
	p, ok := knownSchemas[name]
	return p, ok
}

// GetSchemaNames returns the available schemas with metadata, sorted by name.
func GetSchemaNames() []SchemaInfo {
	var infos []SchemaInfo
	for name, path := range knownSchemas {
		if _, ok := GetSchema(path); ok {
			infos = append(infos, SchemaInfo{Name: name, Path: path, Draft: detectDraft(path)})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// detectDraft heuristically detects draft from schema bytes via $schema key.
func detectDraft(path string) string {
	bytes, ok := GetSchema(path)
	if !ok {
		return "unknown"
	}
	var doc interface{}
	if err := yaml.Unmarshal(bytes, &doc); err != nil {
		if err := json.Unmarshal(bytes, &doc); err != nil {
			return "unknown"
		}
	}
	if m, ok := doc.(map[string]interface{}); ok {
		if v, ok := m["$schema"].(string); ok {
			if strings.Contains(v, "draft-07") {
				return "draft-07"
			}
			if strings.Contains(v, "2020-12") {
				return "draft-2020-12"
			}
		}
	}
	return "unknown"
}
