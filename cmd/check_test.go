package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulmenhq/forge/pkg/exitcode"
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packageOnly declares a type that only needs the package initializer.
const packageOnly = `version: 1
project_types:
  basic:
    description: Importable package
    required_dirs:
      - src/{module_name}
    required_files:
      src/{module_name}/__init__.py:
        description: Package initializer
`

// scaffoldProject creates a project with `forge new` and returns its root.
func scaffoldProject(t *testing.T, name, typ string) string {
	t.Helper()
	parent := t.TempDir()
	_, stderr, code := execRoot(t, "new", name, "--type", typ, "--directory", parent, "--no-git",
		"--author", "Ada Lovelace", "--email", "ada@example.com")
	require.Equal(t, exitcode.Success, code, stderr)
	return filepath.Join(parent, name)
}

func decodeCheck(t *testing.T, out string) report.CheckResult {
	t.Helper()
	var res report.CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func TestCheckMissingPackage(t *testing.T) {
	isolateEnv(t)
	structureFile := writeTemp(t, t.TempDir(), "structure.yaml", packageOnly)
	root := t.TempDir()

	out, _, code := execRoot(t, "check", root, "--structure", structureFile,
		"--module", "my_project", "--format", "json")
	assert.Equal(t, exitcode.Failure, code)

	res := decodeCheck(t, out)
	assert.False(t, res.Passed)
	assert.Equal(t, "my_project", res.Module)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, structure.SeverityError, res.Findings[0].Severity)
	assert.Equal(t, "src/my_project", res.Findings[0].Path)
	assert.Equal(t, structure.SeverityError, res.Findings[1].Severity)
	assert.Equal(t, "src/my_project/__init__.py", res.Findings[1].Path)
	assert.Equal(t, 2, res.Summary.Errors)
}

func TestCheckCompliantProject(t *testing.T) {
	isolateEnv(t)
	root := scaffoldProject(t, "weather", "basic")

	out, _, code := execRoot(t, "check", root, "--format", "json")
	assert.Equal(t, exitcode.Success, code)
	res := decodeCheck(t, out)
	assert.True(t, res.Passed)
	assert.Empty(t, res.Findings)
	assert.Equal(t, "weather", res.Module)

	out, _, code = execRoot(t, "check", root)
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, out, "matches project type basic")
}

func TestCheckRecommendedFieldIsInfo(t *testing.T) {
	isolateEnv(t)
	root := scaffoldProject(t, "weather", "basic")

	manifest := filepath.Join(root, "pyproject.toml")
	data, err := os.ReadFile(manifest)
	require.NoError(t, err)
	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "readme = ") {
			kept = append(kept, line)
		}
	}
	require.NoError(t, os.WriteFile(manifest, []byte(strings.Join(kept, "\n")), 0o644))

	out, _, code := execRoot(t, "check", root, "--format", "json")
	assert.Equal(t, exitcode.Success, code)
	res := decodeCheck(t, out)
	assert.True(t, res.Passed)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, structure.SeverityInfo, res.Findings[0].Severity)
	assert.Equal(t, "pyproject.toml", res.Findings[0].Path)
	assert.Equal(t, []string{"project.readme"}, res.Findings[0].Detail)
}

func TestCheckTableAndMarkdown(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()

	out, _, code := execRoot(t, "check", root, "--module", "demo")
	assert.Equal(t, exitcode.Failure, code)
	assert.Contains(t, out, "missing required directory")
	assert.Contains(t, out, "src/demo/__init__.py")
	assert.Contains(t, out, "failed")

	out, _, code = execRoot(t, "check", root, "--module", "demo", "--format", "md")
	assert.Equal(t, exitcode.Failure, code)
	assert.Contains(t, out, "## Structure check:")
	assert.Contains(t, out, "**Result:** failed")
}

func TestCheckUsesProjectSettings(t *testing.T) {
	isolateEnv(t)
	root := scaffoldProject(t, "weather", "basic")
	writeTemp(t, root, ".forge.yaml", "default_type: cli\n")

	out, _, code := execRoot(t, "check", root, "--format", "json")
	assert.Equal(t, exitcode.Failure, code, "a basic project lacks the cli package")
	res := decodeCheck(t, out)
	assert.Equal(t, "cli", res.ProjectType)

	_, _, code = execRoot(t, "check", root, "--type", "basic")
	assert.Equal(t, exitcode.Success, code, "--type overrides the project setting")
}

func TestCheckBadStructureDocument(t *testing.T) {
	isolateEnv(t)
	cyclic := `project_types:
  a:
    inherits: b
  b:
    inherits: a
`
	doc := writeTemp(t, t.TempDir(), "structure.yaml", cyclic)
	_, stderr, code := execRoot(t, "check", t.TempDir(), "--structure", doc, "--type", "a")
	assert.Equal(t, exitcode.Usage, code)
	assert.Contains(t, stderr, "cycle")

	_, _, code = execRoot(t, "check", t.TempDir(), "--structure", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, exitcode.Usage, code)
}

func TestCheckEmptyDirectoryIsWarning(t *testing.T) {
	isolateEnv(t)
	doc := writeTemp(t, t.TempDir(), "structure.yaml", `project_types:
  docs:
    required_dirs: [docs]
`)
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "docs"), 0o755))

	out, stderr, code := execRoot(t, "check", root, "--structure", doc, "--type", "docs", "--format", "json")
	require.Equal(t, exitcode.Success, code, stderr)
	res := decodeCheck(t, out)
	assert.True(t, res.Passed)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, structure.CodeEmptyDir, res.Findings[0].Code)
	assert.Equal(t, structure.SeverityWarning, res.Findings[0].Severity)

	help, _, code := execRoot(t, "check", "--help")
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, help, "Empty required directories are warnings")
}
