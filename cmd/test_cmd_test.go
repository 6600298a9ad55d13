package cmd

import (
	"os"
	"runtime"
	"testing"

	"github.com/fulmenhq/forge/pkg/exitcode"
	"github.com/fulmenhq/forge/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePytest installs a pytest stand-in in dir/.venv that echoes its
// arguments and exits with the status in $FAKE_PYTEST_EXIT.
func fakePytest(t *testing.T, dir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools")
	}
	script := "#!/bin/sh\necho \"pytest $*\"\nexit ${FAKE_PYTEST_EXIT:-0}\n"
	p := writeTemp(t, dir, ".venv/bin/pytest", script)
	require.NoError(t, os.Chmod(p, 0o755))
	t.Setenv("VIRTUAL_ENV", "")
	t.Setenv(tools.EnvOverride("pytest"), "")
}

func TestTestCommand(t *testing.T) {
	isolateEnv(t)
	root := scaffoldProject(t, "weather", "basic")
	fakePytest(t, root)

	tests := []struct {
		name     string
		exit     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{"passing", "0", nil, exitcode.Success, "pytest \n"},
		{"coverage and passthrough", "0", []string{"--coverage", "--", "-k", "slow"}, exitcode.Success,
			"pytest --cov=weather --cov-report=term-missing -k slow"},
		{"failing tests", "1", nil, exitcode.Failure, "pytest"},
		{"no tests collected", "5", nil, exitcode.Success, "pytest"},
		{"usage error from pytest", "4", nil, exitcode.Failure, "pytest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FAKE_PYTEST_EXIT", tt.exit)
			args := append([]string{"test", root}, tt.args...)
			out, _, code := execRoot(t, args...)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestTestCommandArgs(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	_, _, code := execRoot(t, "test", dir, dir)
	assert.Equal(t, exitcode.Usage, code)

	_, _, code = execRoot(t, "test", dir+"/missing")
	assert.Equal(t, exitcode.Usage, code)
}
