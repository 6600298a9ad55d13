package tools

import (
	"context"
	"fmt"
	"time"
)

// pytest exit statuses that are not plain test failures.
const (
	pytestExitFailed      = 1
	pytestExitInterrupted = 2
	pytestExitInternal    = 3
	pytestExitUsage       = 4
	pytestExitNoTests     = 5
)

// TestOptions configures a pytest run.
type TestOptions struct {
	// Dir is the project root; pytest runs from here.
	Dir string
	// Module enables coverage for this import name when Coverage is set.
	Module   string
	Coverage bool
	// Args are passed through after forge's own flags.
	Args    []string
	Verbose bool
}

// TestResult reports a pytest run.
type TestResult struct {
	ExitCode int    `json:"exit_code"`
	Passed   bool   `json:"passed"`
	NoTests  bool   `json:"no_tests"`
	Output   string `json:"output"`
}

// TestRunner runs a project's test suite with pytest.
type TestRunner struct {
	exec    ToolExecutor
	timeout time.Duration
}

// NewTestRunner returns a runner that executes pytest through exec.
func NewTestRunner(exec ToolExecutor, timeout time.Duration) *TestRunner {
	return &TestRunner{exec: exec, timeout: timeout}
}

// PytestArgs builds the pytest command line for opts.
func PytestArgs(opts TestOptions) []string {
	var args []string
	if opts.Verbose {
		args = append(args, "-v")
	}
	if opts.Coverage {
		cov := "--cov"
		if opts.Module != "" {
			cov = "--cov=" + opts.Module
		}
		args = append(args, cov, "--cov-report=term-missing")
	}
	return append(args, opts.Args...)
}

// Run executes the suite. Test failures are reported through the result;
// an error means pytest could not run or did not complete.
func (r *TestRunner) Run(ctx context.Context, opts TestOptions) (*TestResult, error) {
	res, err := r.exec.Execute(ctx, ExecuteOptions{
		Tool:    "pytest",
		Args:    PytestArgs(opts),
		WorkDir: opts.Dir,
		Timeout: r.timeout,
	})
	if err != nil {
		return nil, err
	}
	out := &TestResult{ExitCode: res.ExitCode, Output: string(res.Output())}
	switch res.ExitCode {
	case 0:
		out.Passed = true
	case pytestExitFailed:
	case pytestExitNoTests:
		out.NoTests = true
	case pytestExitInterrupted, pytestExitInternal, pytestExitUsage:
		return out, fmt.Errorf("pytest did not complete (exit code %d)", res.ExitCode)
	default:
		return out, fmt.Errorf("pytest exited with unexpected code %d", res.ExitCode)
	}
	return out, nil
}
