/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/forge/pkg/logger"
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/fulmenhq/forge/pkg/safeio"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/fulmenhq/forge/pkg/tools"
	"github.com/spf13/cobra"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test [path] [-- pytest args...]",
		Short: "Run the project's tests with pytest",
		Long: `Run pytest from the project root at path (default: the current directory).

pytest is taken from the project virtualenv (.venv, venv or env) when present,
otherwise from PATH. Arguments after -- are passed to pytest unchanged.

Examples:
  forge test
  forge test --coverage
  forge test ../service -- -k slow -x`,
		RunE: runTest,
	}

	cmd.Flags().Bool("coverage", false, "Measure coverage of the project module (requires pytest-cov)")
	cmd.Flags().Duration("timeout", 0, "Abort the run after this long (default: configured test.timeout)")
	cmd.Flags().BoolP("verbose", "v", false, "Run pytest in verbose mode")
	addFormatFlag(cmd)
	return cmd
}

func runTest(cmd *cobra.Command, args []string) error {
	pathArgs, passthrough := args, []string(nil)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		pathArgs, passthrough = args[:dash], args[dash:]
	}
	if len(pathArgs) > 1 {
		return usageErrorf("accepts at most 1 path, received %d", len(pathArgs))
	}

	root, err := projectRoot(pathArgs)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	w, err := newReportWriter(cmd)
	if err != nil {
		return err
	}

	coverage, _ := cmd.Flags().GetBool("coverage")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")
	if timeout <= 0 {
		timeout = cfg.Test.Timeout
	}

	opts := tools.TestOptions{
		Dir:      root,
		Coverage: coverage,
		Args:     passthrough,
		Verbose:  verbose,
	}
	if coverage {
		opts.Module = structure.DetectModuleName(safeio.RootFS(root), ".")
	}

	logger.Debug("Running pytest", logger.String("dir", root), logger.Duration("timeout", timeout))
	res, err := tools.NewTestRunner(tools.NewLocalExecutor(), timeout).Run(context.Background(), opts)
	if res != nil {
		if werr := printTestResult(cmd, w, res); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}

	switch {
	case res.NoTests:
		logger.Warn("No tests were collected", logger.String("dir", root))
		return nil
	case !res.Passed:
		return failed()
	}
	return nil
}

func printTestResult(cmd *cobra.Command, w *report.Writer, res *tools.TestResult) error {
	if cmd.Flags().Lookup("format").Value.String() == string(report.FormatJSON) {
		return w.JSON(res)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), res.Output)
	return err
}
