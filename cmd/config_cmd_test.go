package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulmenhq/forge/pkg/exitcode"
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func showSettings(t *testing.T, args ...string) map[string]report.SettingInfo {
	t.Helper()
	out, stderr, code := execRoot(t, append([]string{"config", "show", "--format", "json"}, args...)...)
	require.Equal(t, exitcode.Success, code, stderr)
	var rows []report.SettingInfo
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	byKey := map[string]report.SettingInfo{}
	for _, r := range rows {
		byKey[r.Key] = r
	}
	return byKey
}

func TestConfigSetAndShow(t *testing.T) {
	isolateEnv(t)

	settings := showSettings(t)
	assert.Equal(t, "basic", settings["default_type"].Value)
	assert.Equal(t, "default", settings["default_type"].Source)
	assert.Equal(t, "10m0s", settings["test.timeout"].Value)

	for _, kv := range [][2]string{
		{"author", "Ada Lovelace"},
		{"email", "ada@example.com"},
		{"format.tool", "black"},
	} {
		_, stderr, code := execRoot(t, "config", "set", kv[0], kv[1])
		require.Equal(t, exitcode.Success, code, stderr)
	}
	t.Setenv("FORGE_FORMAT_TOOL", "ruff")

	settings = showSettings(t)
	assert.Equal(t, "Ada Lovelace", settings["author"].Value)
	assert.Equal(t, "user", settings["author"].Source)
	assert.Equal(t, "ruff", settings["format.tool"].Value)
	assert.Equal(t, "env", settings["format.tool"].Source)

	out, _, code := execRoot(t, "config", "show")
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, out, "ada@example.com")
}

func TestConfigSetProject(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	_, stderr, code := execRoot(t, "config", "set", "default_type", "web", "--project")
	require.Equal(t, exitcode.Success, code, stderr)
	assert.FileExists(t, filepath.Join(dir, ".forge.yaml"))

	settings := showSettings(t)
	assert.Equal(t, "web", settings["default_type"].Value)
	assert.Equal(t, "project", settings["default_type"].Source)
}

func TestConfigSetRejects(t *testing.T) {
	isolateEnv(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"colour", "blue"}},
		{"bad email", []string{"email", "not-an-email"}},
		{"unknown type", []string{"default_type", "rust"}},
		{"bad workers", []string{"format.workers", "-2"}},
		{"bad timeout", []string{"test.timeout", "forever"}},
		{"bad tool", []string{"format.tool", "yapf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, code := execRoot(t, append([]string{"config", "set"}, tt.args...)...)
			assert.Equal(t, exitcode.Usage, code)
		})
	}
	path := filepath.Join(os.Getenv("FORGE_HOME"), "config.yaml")
	assert.NoFileExists(t, path, "rejected values are never written")
}

func TestConfigInvalidFile(t *testing.T) {
	isolateEnv(t)
	writeTemp(t, os.Getenv("FORGE_HOME"), "config.yaml", "format:\n  workers: many\n")

	_, stderr, code := execRoot(t, "config", "show")
	assert.Equal(t, exitcode.Usage, code)
	assert.Contains(t, stderr, "config.yaml")
}

func TestConfigExplicitFileAndPath(t *testing.T) {
	isolateEnv(t)
	custom := filepath.Join(t.TempDir(), "custom.yaml")

	_, stderr, code := execRoot(t, "--config", custom, "config", "set", "author", "Grace")
	require.Equal(t, exitcode.Success, code, stderr)
	settings := showSettings(t, "--config", custom)
	assert.Equal(t, "Grace", settings["author"].Value)

	out, _, code := execRoot(t, "config", "path")
	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, filepath.Join(os.Getenv("FORGE_HOME"), "config.yaml"), strings.TrimSpace(out))

	_, _, code = execRoot(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "config", "show")
	assert.Equal(t, exitcode.Usage, code)
}
