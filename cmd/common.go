/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/forge/pkg/config"
	"github.com/fulmenhq/forge/pkg/logger"
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/spf13/cobra"
)

// loadConfig reads the layered settings. projectDir may be empty when the
// command has no project to look in.
func loadConfig(cmd *cobra.Command, projectDir string) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile, ProjectDir: projectDir})
	if err != nil {
		return nil, err
	}
	for _, src := range cfg.Sources() {
		logger.Debug("Loaded settings", logger.String("layer", src.Layer.String()), logger.String("path", src.Path))
	}
	return cfg, nil
}

// loadRegistry returns the schema registry named by --structure, the
// structure_file setting, or the embedded default, in that order.
func loadRegistry(cmd *cobra.Command, cfg *config.Config) (*structure.Registry, error) {
	path, _ := cmd.Flags().GetString("structure")
	if path == "" && cfg != nil {
		path = cfg.StructureFile
	}
	if path == "" {
		return structure.DefaultRegistry()
	}
	// #nosec G304 -- the structure document path is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &structure.DocumentError{Source: path, Err: err}
	}
	logger.Debug("Using structure document", logger.String("path", path))
	return structure.LoadRegistry(data, path)
}

// projectRoot resolves the positional path argument (default ".") to an
// absolute directory.
func projectRoot(args []string) (string, error) {
	p := "."
	if len(args) > 0 {
		p = args[0]
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &structure.PathNotFoundError{Path: p}
	}
	if !info.IsDir() {
		return "", &structure.PathNotFoundError{Path: p, Reason: "not a directory"}
	}
	return abs, nil
}

// addFormatFlag registers --format on cmd.
func addFormatFlag(cmd *cobra.Command) {
	f := report.FormatTable
	cmd.Flags().Var(&f, "format", "Output format (table|json|markdown)")
}

// newReportWriter builds the report writer for cmd's stdout from --format
// and --no-color.
func newReportWriter(cmd *cobra.Command) (*report.Writer, error) {
	format := report.FormatTable
	if fl := cmd.Flags().Lookup("format"); fl != nil {
		f, err := report.ParseFormat(fl.Value.String())
		if err != nil {
			return nil, usageError(err)
		}
		format = f
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	out := cmd.OutOrStdout()
	color := false
	if f, ok := out.(*os.File); ok {
		color = report.ColorEnabled(f, noColor)
	}
	return report.New(out, report.Options{Format: format, Color: color}), nil
}

// projectType picks --type, falling back to the configured default.
func projectType(cmd *cobra.Command, cfg *config.Config) string {
	t, _ := cmd.Flags().GetString("type")
	if t == "" {
		t = cfg.DefaultType
	}
	return t
}

// newScanner extends the default scan excludes with configured patterns and
// any --exclude flags.
func newScanner(cmd *cobra.Command, cfg *config.Config) *structure.Scanner {
	exclude := append([]string{}, structure.DefaultExcludes...)
	exclude = append(exclude, cfg.ExcludePatterns...)
	if cmd.Flags().Lookup("exclude") != nil {
		extra, _ := cmd.Flags().GetStringSlice("exclude")
		exclude = append(exclude, extra...)
	}
	return structure.NewScanner(exclude...)
}
