package assets

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// TemplateExt is the file extension of embedded templates. Template ids are
// paths below embedded_templates without it, e.g. "python/base/README.md".
const TemplateExt = ".hbs"

//go:embed all:embedded_templates
var Templates embed.FS

//go:embed embedded_schemas
var Schemas embed.FS

//go:embed embedded_structure/structure.yaml
var structureDoc []byte

func GetTemplatesFS() fs.FS {
	if sub, err := fs.Sub(Templates, "embedded_templates"); err == nil {
		return sub
	}
	return Templates
}

func GetSchemasFS() fs.FS {
	if sub, err := fs.Sub(Schemas, "embedded_schemas"); err == nil {
		return sub
	}
	return Schemas
}

// GetStructure returns the default project structure document.
func GetStructure() ([]byte, bool) {
	return structureDoc, len(structureDoc) > 0
}

// GetTemplate returns the template source registered under id.
func GetTemplate(id string) ([]byte, bool) {
	data, err := fs.ReadFile(GetTemplatesFS(), path.Clean(id)+TemplateExt)
	return data, err == nil
}

// TemplateIDs lists every embedded template id, sorted.
func TemplateIDs() []string {
	var ids []string
	_ = fs.WalkDir(GetTemplatesFS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, TemplateExt) {
			return nil
		}
		ids = append(ids, strings.TrimSuffix(p, TemplateExt))
		return nil
	})
	sort.Strings(ids)
	return ids
}
