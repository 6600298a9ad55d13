package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor answers tool invocations from a callback and records them.
type fakeExecutor struct {
	available map[string]bool
	respond   func(opts ExecuteOptions) *ExecuteResult

	mu    sync.Mutex
	calls []ExecuteOptions
}

func (f *fakeExecutor) IsAvailable(tool, _ string) bool { return f.available[tool] }

func (f *fakeExecutor) Execute(_ context.Context, opts ExecuteOptions) (*ExecuteResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	return f.respond(opts), nil
}

func TestSelectTool(t *testing.T) {
	tests := []struct {
		name      string
		tool      string
		available map[string]bool
		want      string
		wantErr   bool
	}{
		{name: "auto prefers ruff", tool: ToolAuto, available: map[string]bool{"ruff": true, "black": true}, want: ToolRuff},
		{name: "auto falls back to black", tool: "", available: map[string]bool{"black": true}, want: ToolBlack},
		{name: "auto with nothing", tool: ToolAuto, wantErr: true},
		{name: "explicit missing", tool: ToolBlack, available: map[string]bool{"ruff": true}, wantErr: true},
		{name: "unknown", tool: "yapf", available: map[string]bool{"yapf": true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormatter(&fakeExecutor{available: tt.available}, FormatOptions{Tool: tt.tool})
			got, err := f.SelectTool(".")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatterRuffCheck(t *testing.T) {
	fake := &fakeExecutor{
		available: map[string]bool{"ruff": true},
		respond: func(opts ExecuteOptions) *ExecuteResult {
			var out strings.Builder
			for _, a := range opts.Args {
				if strings.HasSuffix(a, "ugly.py") {
					out.WriteString("Would reformat: " + a + "\n")
				}
			}
			if out.Len() == 0 {
				return &ExecuteResult{Stdout: []byte("3 files already formatted\n")}
			}
			out.WriteString("1 file would be reformatted\n")
			return &ExecuteResult{ExitCode: 1, Stdout: []byte(out.String())}
		},
	}
	files := []string{"/p/a.py", "/p/b.py", "/p/ugly.py", "/p/c.py", "/p/d/ugly.py"}
	f := NewFormatter(fake, FormatOptions{Check: true, BatchSize: 2, Workers: 2})

	res, err := f.Run(context.Background(), "/p", files)
	require.NoError(t, err)
	assert.Equal(t, ToolRuff, res.Tool)
	assert.Equal(t, 5, res.Files)
	assert.Equal(t, []string{"/p/d/ugly.py", "/p/ugly.py"}, res.Changed)
	assert.Len(t, fake.calls, 3, "five files in batches of two")
	for _, c := range fake.calls {
		assert.Equal(t, []string{"format", "--check"}, c.Args[:2])
	}
}

func TestFormatterRuffFix(t *testing.T) {
	fake := &fakeExecutor{
		available: map[string]bool{"ruff": true},
		respond: func(opts ExecuteOptions) *ExecuteResult {
			if opts.Args[1] == "--check" {
				return &ExecuteResult{ExitCode: 1, Stdout: []byte("Would reformat: src/x.py\n")}
			}
			return &ExecuteResult{Stdout: []byte("1 file reformatted\n")}
		},
	}
	res, err := NewFormatter(fake, FormatOptions{}).Run(context.Background(), "/p", []string{"/p/src/x.py", "/p/src/y.py"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/src/x.py"}, res.Changed)
	require.Len(t, fake.calls, 2)
	assert.Equal(t, []string{"format", "/p/src/x.py"}, fake.calls[1].Args, "only changed files are rewritten")
}

func TestFormatterBlack(t *testing.T) {
	fake := &fakeExecutor{
		available: map[string]bool{"black": true},
		respond: func(opts ExecuteOptions) *ExecuteResult {
			if opts.Args[0] == "--check" {
				return &ExecuteResult{ExitCode: 1, Stderr: []byte("would reformat /p/a.py\nOh no! 1 file would be reformatted.\n")}
			}
			return &ExecuteResult{Stderr: []byte("reformatted /p/a.py\nAll done! 1 file reformatted.\n")}
		},
	}

	res, err := NewFormatter(fake, FormatOptions{Check: true}).Run(context.Background(), "/p", []string{"/p/a.py"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a.py"}, res.Changed)

	res, err = NewFormatter(fake, FormatOptions{}).Run(context.Background(), "/p", []string{"/p/a.py"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a.py"}, res.Changed)
}

func TestFormatterToolFailure(t *testing.T) {
	fake := &fakeExecutor{
		available: map[string]bool{"ruff": true},
		respond: func(ExecuteOptions) *ExecuteResult {
			return &ExecuteResult{ExitCode: 2, Stderr: []byte("error: Failed to parse a.py")}
		},
	}
	_, err := NewFormatter(fake, FormatOptions{Check: true}).Run(context.Background(), "/p", []string{"/p/a.py"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 2")
	assert.Contains(t, err.Error(), "Failed to parse")
}

func TestFormatterNoFiles(t *testing.T) {
	fake := &fakeExecutor{available: map[string]bool{"ruff": true}}
	res, err := NewFormatter(fake, FormatOptions{}).Run(context.Background(), "/p", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Changed)
	assert.Empty(t, fake.calls)
}

func TestCollectPythonFiles(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for p, c := range map[string]string{
		"src/pkg/__init__.py":       "",
		"src/pkg/mod.py":            "",
		"src/pkg/types.pyi":         "",
		"src/pkg/data.json":         "{}",
		"src/pkg/generated/gen.py":  "",
		"tests/test_mod.py":         "",
		".venv/lib/site.py":         "",
		"build/lib/pkg/mod.py":      "",
		"src/pkg/__pycache__/x.py":  "",
		".gitignore":                "build/\n",
		"notebooks/scratch/cell.py": "",
		"notebooks/scratch/.keep":   "",
		"scripts/one_off.py":        "",
	} {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(c), 0o644))
	}

	files, err := CollectPythonFiles([]string{root}, []string{"src/pkg/generated/**", "notebooks/**"})
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{
		"scripts/one_off.py",
		"src/pkg/__init__.py",
		"src/pkg/mod.py",
		"src/pkg/types.pyi",
		"tests/test_mod.py",
	}, rel)

	// Explicit files are kept even when excluded, and duplicates collapse.
	explicit := filepath.Join(root, "build", "lib", "pkg", "mod.py")
	files, err = CollectPythonFiles([]string{explicit, explicit}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{explicit}, files)
}

func TestCollectPythonFilesRefusesRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix root")
	}
	_, err := CollectPythonFiles([]string{"/"}, nil)
	assert.True(t, errors.Is(err, ErrUnsafeTarget))

	_, err = CollectPythonFiles([]string{filepath.Join(t.TempDir(), "missing")}, nil)
	assert.Error(t, err)
}

func TestPytestArgs(t *testing.T) {
	assert.Empty(t, PytestArgs(TestOptions{}))
	assert.Equal(t, []string{"--cov=pkg", "--cov-report=term-missing"}, PytestArgs(TestOptions{Coverage: true, Module: "pkg"}))
	assert.Equal(t, []string{"-v", "--cov", "--cov-report=term-missing", "-k", "smoke"},
		PytestArgs(TestOptions{Verbose: true, Coverage: true, Args: []string{"-k", "smoke"}}))
}

func TestTestRunner(t *testing.T) {
	tests := []struct {
		code    int
		passed  bool
		noTests bool
		wantErr bool
	}{
		{code: 0, passed: true},
		{code: 1},
		{code: 5, noTests: true},
		{code: 2, wantErr: true},
		{code: 4, wantErr: true},
		{code: 137, wantErr: true},
	}
	for _, tt := range tests {
		fake := &fakeExecutor{respond: func(opts ExecuteOptions) *ExecuteResult {
			return &ExecuteResult{ExitCode: tt.code, Stdout: []byte("collected 3 items\n")}
		}}
		res, err := NewTestRunner(fake, time.Minute).Run(context.Background(), TestOptions{Dir: "/p", Coverage: true})
		if tt.wantErr {
			assert.Error(t, err, "exit %d", tt.code)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.passed, res.Passed, "exit %d", tt.code)
		assert.Equal(t, tt.noTests, res.NoTests, "exit %d", tt.code)
		assert.Contains(t, res.Output, "collected 3 items")
		assert.Equal(t, "pytest", fake.calls[0].Tool)
		assert.Equal(t, "/p", fake.calls[0].WorkDir)
		assert.Equal(t, time.Minute, fake.calls[0].Timeout)
	}
}

func TestLocalExecutor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	t.Setenv("VIRTUAL_ENV", "")
	dir := t.TempDir()
	bin := filepath.Join(dir, ".venv", "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	script := "#!/bin/sh\necho \"out $1\"\necho \"err\" >&2\nexit 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "fakefmt"), []byte(script), 0o755))

	e := NewLocalExecutor()
	assert.True(t, e.IsAvailable("fakefmt", dir), "virtualenv binaries are found")
	assert.False(t, e.IsAvailable("fakefmt", t.TempDir()))

	res, err := e.Execute(context.Background(), ExecuteOptions{Tool: "fakefmt", Args: []string{"x"}, WorkDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out x\n", string(res.Stdout))
	assert.Equal(t, "out x\nerr\n", string(res.Output()))

	_, err = e.Execute(context.Background(), ExecuteOptions{Tool: "definitely-not-a-tool-xyz", WorkDir: dir})
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestResolveBinaryEnvOverride(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "my-ruff")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv(EnvOverride("ruff"), p)

	assert.Equal(t, "FORGE_TOOL_RUFF", EnvOverride("ruff"))
	got, err := ResolveBinary("ruff", "")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}
