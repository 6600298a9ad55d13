package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/forge/pkg/config"
	"github.com/fulmenhq/forge/pkg/exitcode"
	"github.com/fulmenhq/forge/pkg/safeio"
	"github.com/fulmenhq/forge/pkg/scaffold"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/fulmenhq/forge/pkg/tools"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv keeps user settings and the git identity out of command tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("FORGE_HOME", filepath.Join(home, "forge"))
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("NO_COLOR", "1")
}

// execRoot runs a fresh command tree and returns stdout, stderr and the
// exit code the process would end with.
func execRoot(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	root := newRootCommand()
	registerSubcommands(root)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--log-level", "error", "--no-color"}, args...))
	code := run(root)
	return stdout.String(), stderr.String(), code
}

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"info", false},
		{"debug", false},
		{"WARNING", false},
		{"invalid", true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().String("log-level", tt.level, "")
			cmd.Flags().Bool("json", false, "")
			cmd.Flags().Bool("no-color", true, "")

			err := initializeLogger(cmd)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, exitcode.Usage, exitCodeFor(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRootVersionSet(t *testing.T) {
	assert.NotEmpty(t, rootCmd.Version)
	for _, name := range []string{"new", "check", "upgrade", "format", "test", "types", "config", "version"} {
		sub, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestGroupedHelp(t *testing.T) {
	isolateEnv(t)
	out, _, code := execRoot(t, "--help")
	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, out, "Project Commands:")
	assert.Contains(t, out, "Tooling Commands:")
	assert.Contains(t, out, "Support Commands:")

	project := bytes.Index([]byte(out), []byte("Project Commands:"))
	tooling := bytes.Index([]byte(out), []byte("Tooling Commands:"))
	assert.Less(t, project, tooling, "groups are listed in order")
	assert.Contains(t, out, "upgrade")
}

func TestInvalidInvocations(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"unknown flag", []string{"check", dir, "--frob"}},
		{"bad format", []string{"check", dir, "--format", "yaml"}},
		{"bad log level", []string{"--log-level", "loud", "types"}},
		{"too many args", []string{"check", dir, dir}},
		{"missing name", []string{"new"}},
		{"unknown type", []string{"check", dir, "--type", "rust"}},
		{"missing path", []string{"check", filepath.Join(dir, "nope")}},
		{"path is a file", []string{"upgrade", writeTemp(t, dir, "file.txt", "x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, code := execRoot(t, tt.args...)
			assert.Equal(t, exitcode.Usage, code)
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitcode.Success},
		{"plain", errors.New("boom"), exitcode.Failure},
		{"silent failure", failed(), exitcode.Failure},
		{"usage", usageErrorf("bad flag"), exitcode.Usage},
		{"unknown type", &structure.UnknownProjectTypeError{Name: "rust"}, exitcode.Usage},
		{"cycle", fmt.Errorf("load: %w", &structure.SchemaCycleError{Chain: []string{"a", "b", "a"}}), exitcode.Usage},
		{"path not found", &structure.PathNotFoundError{Path: "x"}, exitcode.Usage},
		{"apply error", &structure.ApplyError{Path: "src", Err: os.ErrPermission}, exitcode.Failure},
		{"settings file", &config.FileError{Path: "c.yaml", Err: errors.New("bad")}, exitcode.Usage},
		{"settings key", &config.KeyError{Key: "colour"}, exitcode.Usage},
		{"project name", &scaffold.InvalidNameError{Name: "-x", Reason: "bad"}, exitcode.Usage},
		{"target not empty", fmt.Errorf("/tmp/x: %w", scaffold.ErrTargetNotEmpty), exitcode.Usage},
		{"format root", tools.ErrUnsafeTarget, exitcode.Usage},
		{"traversal", safeio.ErrTraversal, exitcode.Usage},
		{"tool missing", tools.ErrToolNotFound, exitcode.Failure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
	assert.True(t, isSilent(failed()))
	assert.False(t, isSilent(usageErrorf("x")))
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}
