package structure

import (
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
)

const testRoot = "/proj"

// scenarioYAML keeps pyproject.toml optional so that an empty tree yields
// only the structural errors while a present manifest is still validated.
const scenarioYAML = `
version: 1
project_types:
  basic:
    description: test package
    required_dirs:
      - src/{module_name}
    required_files:
      src/{module_name}/__init__.py:
        description: Package initializer
    optional_files:
      pyproject.toml:
        description: Project metadata
        validators: [is_valid_toml, has_valid_name, has_valid_version]
    recommended_fields:
      pyproject.toml: [project.readme, project.license]
  cli:
    description: test cli
    inherits: basic
    required_dirs:
      - src/{module_name}/cli
    required_files:
      src/{module_name}/cli/__init__.py:
        description: CLI package
`

const compliantPyproject = `[project]
name = "my-project"
version = "0.1.0"
readme = "README.md"
license = { text = "MIT" }
`

func loadRegistry(t *testing.T, doc string) *Registry {
	t.Helper()
	reg, err := LoadRegistry([]byte(doc), "test")
	require.NoError(t, err)
	return reg
}

func resolve(t *testing.T, reg *Registry, name string) *ResolvedSchema {
	t.Helper()
	s, err := reg.Resolve(name)
	require.NoError(t, err)
	return s
}

// memTree builds an in-memory tree under testRoot.
func memTree(t *testing.T, files map[string]string, dirs ...string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll(testRoot, 0o755))
	for _, d := range dirs {
		require.NoError(t, fsys.MkdirAll(filepath.Join(testRoot, d), 0o755))
	}
	for p, content := range files {
		full := filepath.Join(testRoot, p)
		require.NoError(t, fsys.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, util.WriteFile(fsys, full, []byte(content), 0o644))
	}
	return fsys
}

// contents returns every regular file under testRoot with its content.
func contents(t *testing.T, fsys billy.Filesystem) map[string]string {
	t.Helper()
	out := map[string]string{}
	snap, err := NewScanner().Scan(fsys, testRoot, ProbePlan{})
	require.NoError(t, err)
	for _, p := range snap.Paths() {
		if snap.IsFile(p) {
			data, err := util.ReadFile(fsys, filepath.Join(testRoot, p))
			require.NoError(t, err)
			out[p] = string(data)
		}
	}
	return out
}

func check(t *testing.T, reg *Registry, typ string, fsys billy.Filesystem, module string) []Finding {
	t.Helper()
	s := resolve(t, reg, typ)
	snap, err := NewScanner().Scan(fsys, testRoot, s.ProbePlan(module, reg.Catalog()))
	require.NoError(t, err)
	return NewValidator(reg.Catalog()).Diff(s, snap, module)
}
