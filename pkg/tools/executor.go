// Package tools runs the external Python tooling forge delegates to: the
// code formatter (ruff, falling back to black) and the pytest test runner.
package tools

import (
	"context"
	"time"
)

// ExecuteOptions configures tool execution
type ExecuteOptions struct {
	// Tool name (e.g., "ruff", "pytest")
	Tool string

	// Args to pass to the tool
	Args []string

	// WorkDir is the working directory (defaults to current directory)
	WorkDir string

	// Env contains additional environment variables
	Env map[string]string

	// Timeout bounds the run; zero means no limit beyond ctx.
	Timeout time.Duration
}

// ExecuteResult contains the output of tool execution
type ExecuteResult struct {
	// ExitCode from the tool
	ExitCode int

	// Stdout contains standard output
	Stdout []byte

	// Stderr contains standard error
	Stderr []byte

	// Duration is the wall time of the run
	Duration time.Duration
}

// Output returns stdout followed by stderr.
func (r *ExecuteResult) Output() []byte {
	out := make([]byte, 0, len(r.Stdout)+len(r.Stderr))
	out = append(out, r.Stdout...)
	return append(out, r.Stderr...)
}

// ToolExecutor executes external tools
type ToolExecutor interface {
	// Execute runs a tool with the given options. A non-zero exit status
	// is reported in the result, not as an error.
	Execute(ctx context.Context, opts ExecuteOptions) (*ExecuteResult, error)

	// IsAvailable checks if this executor can run the specified tool
	// from dir.
	IsAvailable(tool, dir string) bool
}
