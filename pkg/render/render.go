// Package render turns embedded Handlebars templates into file content.
package render

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"github.com/fulmenhq/forge/internal/assets"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Renderer renders templates addressed by id. Parsed templates are cached.
type Renderer struct {
	fsys fs.FS
	ext  string

	mu    sync.Mutex
	cache map[string]*raymond.Template
}

// New returns a renderer over the embedded template set.
func New() *Renderer {
	return NewFromFS(assets.GetTemplatesFS(), assets.TemplateExt)
}

// NewFromFS returns a renderer reading "<id><ext>" files from fsys.
func NewFromFS(fsys fs.FS, ext string) *Renderer {
	return &Renderer{fsys: fsys, ext: ext, cache: map[string]*raymond.Template{}}
}

// Has reports whether a template exists for id.
func (r *Renderer) Has(id string) bool {
	_, err := fs.Stat(r.fsys, r.file(id))
	return err == nil
}

// Render executes the template id against bindings.
func (r *Renderer) Render(id string, bindings map[string]string) (string, error) {
	tpl, err := r.template(id)
	if err != nil {
		return "", err
	}
	ctx := make(map[string]interface{}, len(bindings))
	for k, v := range bindings {
		ctx[k] = v
	}
	out, err := tpl.Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("render template %s: %w", id, err)
	}
	return out, nil
}

func (r *Renderer) file(id string) string {
	return path.Clean(strings.TrimPrefix(id, "/")) + r.ext
}

func (r *Renderer) template(id string) (*raymond.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}
	src, err := fs.ReadFile(r.fsys, r.file(id))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", id, err)
	}
	tpl, err := raymond.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", id, err)
	}
	tpl.RegisterHelpers(helpers())
	r.cache[id] = tpl
	return tpl, nil
}

func helpers() map[string]interface{} {
	titler := cases.Title(language.English)
	return map[string]interface{}{
		"title": func(v interface{}) string {
			s := strings.NewReplacer("-", " ", "_", " ").Replace(raymond.Str(v))
			return titler.String(s)
		},
		"lower": func(v interface{}) string {
			return strings.ToLower(raymond.Str(v))
		},
		// toml escapes a value for use inside a TOML basic string.
		"toml": func(v interface{}) string {
			return tomlEscaper.Replace(raymond.Str(v))
		},
	}
}

var tomlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)
