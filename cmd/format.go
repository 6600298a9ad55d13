/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"context"
	"os"

	"github.com/fulmenhq/forge/pkg/logger"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/fulmenhq/forge/pkg/tools"
	"github.com/spf13/cobra"
)

func newFormatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format [paths...]",
		Short: "Format Python sources with ruff or black",
		Long: `Format Python files in the current directory or the given paths.

Directories are walked honoring .gitignore, .forgeignore, the configured
exclude_patterns and --exclude globs. Explicitly named files are always
formatted. The formatter is ruff when installed (project virtualenv first,
then PATH), otherwise black; --tool selects one explicitly.

With --check nothing is modified and the command exits 1 when any file
would be reformatted.`,
		RunE: runFormat,
	}

	cmd.Flags().Bool("check", false, "Check if files are formatted without modifying")
	cmd.Flags().StringSlice("exclude", []string{}, "Glob patterns to skip (relative to each walked directory)")
	cmd.Flags().String("tool", "", "Formatter to use (auto|ruff|black, default: configured format.tool)")
	cmd.Flags().Int("workers", -1, "Concurrent formatter processes (default: configured format.workers, 0 = CPU count)")
	cmd.Flags().Duration("timeout", 0, "Per-batch timeout (default: configured format.timeout)")
	addFormatFlag(cmd)
	return cmd
}

func runFormat(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, cwd)
	if err != nil {
		return err
	}
	w, err := newReportWriter(cmd)
	if err != nil {
		return err
	}

	check, _ := cmd.Flags().GetBool("check")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	tool, _ := cmd.Flags().GetString("tool")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if tool == "" {
		tool = cfg.Format.Tool
	}
	switch tool {
	case tools.ToolAuto, tools.ToolRuff, tools.ToolBlack:
	default:
		return usageErrorf("unknown formatter %q (want auto, ruff or black)", tool)
	}
	if workers < 0 {
		workers = cfg.Format.Workers
	}
	if timeout <= 0 {
		timeout = cfg.Format.Timeout
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return &structure.PathNotFoundError{Path: p}
		}
	}

	files, err := tools.CollectPythonFiles(paths, append(cfg.ExcludePatterns, exclude...))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Info("No Python files found", logger.Int("paths", len(paths)))
		return w.Formatted(&tools.FormatResult{Tool: tool, Check: check, Changed: []string{}}, cwd)
	}

	formatter := tools.NewFormatter(tools.NewLocalExecutor(), tools.FormatOptions{
		Tool:    tool,
		Check:   check,
		Workers: workers,
		Timeout: timeout,
	})
	res, err := formatter.Run(context.Background(), cwd, files)
	if err != nil {
		return err
	}
	if err := w.Formatted(res, cwd); err != nil {
		return err
	}
	if check && len(res.Changed) > 0 {
		return failed()
	}
	return nil
}
