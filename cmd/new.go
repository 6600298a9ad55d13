/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"github.com/fulmenhq/forge/internal/gitctx"
	"github.com/fulmenhq/forge/pkg/logger"
	"github.com/fulmenhq/forge/pkg/render"
	"github.com/fulmenhq/forge/pkg/scaffold"
	"github.com/spf13/cobra"
)

func newNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new Python project",
		Long: `Create a new Python project from a project type.

The project is created in a new directory <name> under --directory (default:
the current directory). Every required and optional path of the project type
is written from its template, then a git repository is initialized with an
initial commit unless --no-git is given or the target is already inside a
repository.

Author and email default to the configured values, then to the global git
identity.

Examples:
  forge new weather-cli --type cli
  forge new analytics --type data --directory ~/src --no-git
  forge new demo --dry-run`,
		Args: withArgs(cobra.ExactArgs(1)),
		RunE: runNew,
	}

	cmd.Flags().StringP("type", "t", "", "Project type (default: configured default_type)")
	cmd.Flags().String("author", "", "Author name")
	cmd.Flags().String("email", "", "Author email")
	cmd.Flags().String("description", "", "One-line project description")
	cmd.Flags().StringP("directory", "d", ".", "Parent directory for the new project")
	cmd.Flags().Bool("no-git", false, "Skip git repository initialization")
	cmd.Flags().Bool("dry-run", false, "Show what would be created without writing anything")
	addFormatFlag(cmd)
	return cmd
}

func runNew(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "")
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

	author, _ := cmd.Flags().GetString("author")
	email, _ := cmd.Flags().GetString("email")
	description, _ := cmd.Flags().GetString("description")
	directory, _ := cmd.Flags().GetString("directory")
	noGit, _ := cmd.Flags().GetBool("no-git")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if author == "" {
		author = cfg.Author
	}
	if email == "" {
		email = cfg.Email
	}
	if author == "" || email == "" {
		gitName, gitEmail := gitctx.GlobalIdentity()
		if author == "" {
			author = gitName
		}
		if email == "" {
			email = gitEmail
		}
	}
	if dryRun {
		logger.SetDryRun(true)
	}

	res, err := scaffold.Create(scaffold.Options{
		Name:        args[0],
		ProjectType: projectType(cmd, cfg),
		Directory:   directory,
		Author:      author,
		Email:       email,
		Description: description,
		NoGit:       noGit,
		DryRun:      dryRun,
		Registry:    reg,
		Renderer:    render.New(),
	})
	if err != nil {
		if res != nil && len(res.Changes) > 0 {
			_ = w.Scaffold(res, dryRun)
		}
		return err
	}
	logger.Debug("Project scaffolded",
		logger.String("root", res.Root),
		logger.String("type", res.ProjectType),
		logger.Int("changes", len(res.Changes)))
	return w.Scaffold(res, dryRun)
}
