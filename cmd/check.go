/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"github.com/fulmenhq/forge/pkg/logger"
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/fulmenhq/forge/pkg/safeio"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate a project against its project type",
		Long: `Check scans the project at path (default: the current directory) and reports
how it differs from the layout of its project type.

Missing required directories and files and failed content validators are
errors. Empty required directories are warnings. Missing recommended
pyproject.toml fields are reported at info level. Neither fails the check.

Exit status is 1 when any error finding is reported.`,
		Args: withArgs(cobra.MaximumNArgs(1)),
		RunE: runCheck,
	}

	cmd.Flags().StringP("type", "t", "", "Project type (default: configured default_type)")
	cmd.Flags().String("module", "", "Import name substituted for {module_name} (default: detected)")
	cmd.Flags().StringSlice("exclude", nil, "Additional glob patterns to skip while scanning")
	addFormatFlag(cmd)
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cmd, cfg)
	if err != nil {
		return err
	}
	w, err := newReportWriter(cmd)
	if err != nil {
		return err
	}

	fsys := safeio.RootFS(root)
	module, _ := cmd.Flags().GetString("module")
	if module == "" {
		module = structure.DetectModuleName(fsys, ".")
	}
	schema, findings, err := reg.Check(fsys, ".", projectType(cmd, cfg), module, newScanner(cmd, cfg))
	if err != nil {
		return err
	}

	res := report.CheckResult{
		Path:        root,
		ProjectType: schema.Name,
		Module:      module,
		Passed:      structure.Passed(findings),
		Summary:     structure.Summarize(findings),
		Findings:    findings,
	}
	logger.Debug("Check complete",
		logger.String("type", schema.Name),
		logger.String("module", module),
		logger.Int("findings", len(findings)))
	if err := w.Findings(res); err != nil {
		return err
	}
	if !res.Passed {
		return failed()
	}
	return nil
}
