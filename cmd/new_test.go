package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/forge/pkg/exitcode"
	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesRepository(t *testing.T) {
	isolateEnv(t)
	parent := t.TempDir()

	out, stderr, code := execRoot(t, "new", "weather-cli", "-t", "cli", "-d", parent,
		"--author", "Ada Lovelace", "--email", "ada@example.com")
	require.Equal(t, exitcode.Success, code, stderr)
	assert.Contains(t, out, "Created cli project weather-cli")
	assert.Contains(t, out, "git repository initialized")

	root := filepath.Join(parent, "weather-cli")
	assert.FileExists(t, filepath.Join(root, "src", "weather_cli", "cli", "main.py"))

	repo, err := git.PlainOpen(root)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", commit.Author.Name)
}

func TestNewDryRun(t *testing.T) {
	isolateEnv(t)
	parent := t.TempDir()

	out, _, code := execRoot(t, "new", "demo", "--directory", parent, "--dry-run", "--format", "json")
	require.Equal(t, exitcode.Success, code)

	var res struct {
		Root        string `json:"root"`
		ProjectType string `json:"project_type"`
		DryRun      bool   `json:"dry_run"`
		Changes     []struct {
			Path string `json:"path"`
		} `json:"changes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.True(t, res.DryRun)
	assert.Equal(t, "basic", res.ProjectType)
	assert.NotEmpty(t, res.Changes)
	assert.NoDirExists(t, filepath.Join(parent, "demo"))
}

func TestNewDefaultsFromSettings(t *testing.T) {
	isolateEnv(t)
	_, _, code := execRoot(t, "config", "set", "author", "Grace Hopper")
	require.Equal(t, exitcode.Success, code)
	_, _, code = execRoot(t, "config", "set", "default_type", "data")
	require.Equal(t, exitcode.Success, code)

	parent := t.TempDir()
	_, stderr, code := execRoot(t, "new", "survey", "--directory", parent, "--no-git")
	require.Equal(t, exitcode.Success, code, stderr)

	root := filepath.Join(parent, "survey")
	assert.DirExists(t, filepath.Join(root, "notebooks"), "configured default_type is used")
	manifest, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "Grace Hopper")
	assert.NoDirExists(t, filepath.Join(root, ".git"))
}

func TestNewAuthorFromGitIdentity(t *testing.T) {
	isolateEnv(t)
	home := os.Getenv("HOME")
	writeTemp(t, home, ".gitconfig", "[user]\n\tname = Linus\n\temail = linus@example.com\n")

	parent := t.TempDir()
	_, stderr, code := execRoot(t, "new", "kernel", "--directory", parent, "--no-git")
	require.Equal(t, exitcode.Success, code, stderr)
	manifest, err := os.ReadFile(filepath.Join(parent, "kernel", "pyproject.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "linus@example.com")
}

func TestNewRejectsBadInput(t *testing.T) {
	isolateEnv(t)
	parent := t.TempDir()
	writeTemp(t, parent, "taken/keep.txt", "x")

	tests := []struct {
		name string
		args []string
	}{
		{"invalid name", []string{"new", "-bad-", "--directory", parent}},
		{"path in name", []string{"new", "a/b", "--directory", parent}},
		{"unknown type", []string{"new", "demo", "--type", "rust", "--directory", parent}},
		{"target not empty", []string{"new", "taken", "--directory", parent}},
		{"traversal", []string{"new", "demo", "--directory", "../outside"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, code := execRoot(t, tt.args...)
			assert.Equal(t, exitcode.Usage, code)
		})
	}
	assert.NoDirExists(t, filepath.Join(parent, "demo"))
}
