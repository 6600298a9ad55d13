/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"path/filepath"

	"github.com/fulmenhq/forge/pkg/logger"
	"github.com/fulmenhq/forge/pkg/render"
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/fulmenhq/forge/pkg/safeio"
	"github.com/fulmenhq/forge/pkg/scaffold"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/spf13/cobra"
)

func newUpgradeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [path]",
		Short: "Add missing directories and files to a project",
		Long: `Upgrade brings the project at path (default: the current directory) in line
with its project type by creating the required directories and files that are
missing. Existing paths are never modified or removed.

Use --dry-run to list the changes without writing anything.

Examples:
  forge upgrade . --type cli --dry-run
  forge upgrade ../service --module service_core`,
		Args: withArgs(cobra.MaximumNArgs(1)),
		RunE: runUpgrade,
	}

	cmd.Flags().StringP("type", "t", "", "Project type (default: configured default_type)")
	cmd.Flags().String("module", "", "Import name substituted for {module_name} (default: detected)")
	cmd.Flags().Bool("dry-run", false, "Show the planned changes without writing anything")
	addFormatFlag(cmd)
	return cmd
}

func runUpgrade(cmd *cobra.Command, args []string) error {
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

	schema, err := reg.Resolve(projectType(cmd, cfg))
	if err != nil {
		return err
	}

	fsys := safeio.RootFS(root)
	module, _ := cmd.Flags().GetString("module")
	if module == "" {
		module = structure.DetectModuleName(fsys, ".")
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	mode := structure.Apply
	if dryRun {
		mode = structure.DryRun
		logger.SetDryRun(true)
	}

	bindings := scaffold.Bindings(scaffold.Options{
		Name:        filepath.Base(root),
		ProjectType: schema.Name,
		Author:      cfg.Author,
		Email:       cfg.Email,
	})

	changes, err := structure.Reconcile(fsys, ".", schema, module, mode, structure.Options{
		Renderer: render.New(),
		Bindings: bindings,
		Scanner:  newScanner(cmd, cfg),
	})
	var applyErr *structure.ApplyError
	if err != nil && !errors.As(err, &applyErr) {
		return err
	}

	logger.Debug("Reconcile complete",
		logger.String("type", schema.Name),
		logger.String("mode", mode.String()),
		logger.Int("changes", len(changes)))
	res := report.ChangeResult{
		Path:        root,
		ProjectType: schema.Name,
		Mode:        mode.String(),
		Changes:     changes,
	}
	if rerr := w.Changes(res, err); rerr != nil {
		return rerr
	}
	if applyErr != nil {
		return failed()
	}
	return nil
}
