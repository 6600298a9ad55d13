/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/forge/pkg/config"
	"github.com/fulmenhq/forge/pkg/exitcode"
	"github.com/fulmenhq/forge/pkg/safeio"
	"github.com/fulmenhq/forge/pkg/scaffold"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/fulmenhq/forge/pkg/tools"
	"github.com/spf13/cobra"
)

// exitError carries an explicit exit code. A silent exitError has already
// been reported to the user and is not logged again.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e.err == nil {
		return exitcode.String(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// usageError marks err as an invalid invocation.
func usageError(err error) error {
	return &exitError{code: exitcode.Usage, err: err}
}

// usageErrorf is usageError over a formatted message.
func usageErrorf(format string, args ...any) error {
	return usageError(fmt.Errorf(format, args...))
}

// failed returns a silent exit 1 for outcomes the report already shows,
// such as error findings or files needing formatting.
func failed() error {
	return &exitError{code: exitcode.Failure, silent: true}
}

// withArgs wraps a cobra positional-args validator so its errors count as
// invalid invocations.
func withArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func isSilent(err error) bool {
	var ee *exitError
	return errors.As(err, &ee) && ee.silent
}

// exitCodeFor maps an error returned from a command to a process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return exitcode.Success
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	var (
		keyErr  *config.KeyError
		nameErr *scaffold.InvalidNameError
	)
	switch {
	case structure.IsConfigError(err),
		structure.IsPathNotFound(err),
		config.IsFileError(err),
		errors.As(err, &keyErr),
		errors.As(err, &nameErr),
		errors.Is(err, scaffold.ErrTargetNotEmpty),
		errors.Is(err, tools.ErrUnsafeTarget),
		errors.Is(err, safeio.ErrTraversal),
		strings.HasPrefix(err.Error(), "unknown command"):
		return exitcode.Usage
	}
	return exitcode.Failure
}
