/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fulmenhq/forge/pkg/config"
	"github.com/fulmenhq/forge/pkg/logger"
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change forge settings",
		Long: `Show or change forge settings.

Settings are layered, lowest precedence first: built-in defaults, the user
file (~/.config/forge/config.yaml or $FORGE_HOME/config.yaml), the project's
.forge.yaml, then FORGE_* environment variables such as FORGE_FORMAT_TOOL.

Keys: ` + strings.Join(config.Keys, ", "),
		Args: withArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings and where each value comes from",
		Args:  withArgs(cobra.NoArgs),
		RunE:  runConfigShow,
	}
	addFormatFlag(show)

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting",
		Long: `Persist a setting in the user file, or with --project in ./.forge.yaml.

List values such as exclude_patterns take a comma-separated list.

Examples:
  forge config set author "Ada Lovelace"
  forge config set email ada@example.com
  forge config set default_type cli --project`,
		Args: withArgs(cobra.ExactArgs(2)),
		RunE: runConfigSet,
	}
	set.Flags().Bool("project", false, "Write to .forge.yaml in the current directory")

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the user settings file path",
		Args:  withArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _ := cmd.Flags().GetString("config")
			if p == "" {
				var err error
				if p, err = config.UserConfigFile(); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}

	cmd.AddCommand(show, set, path)
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, ".")
	if err != nil {
		return err
	}
	w, err := newReportWriter(cmd)
	if err != nil {
		return err
	}

	settings := make([]report.SettingInfo, 0, len(config.Keys))
	for _, key := range config.Keys {
		value := cfg.Get(key)
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		settings = append(settings, report.SettingInfo{
			Key:    key,
			Value:  value,
			Source: cfg.Origin(key).String(),
		})
	}
	return w.Settings(settings)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if _, err := config.ParseValue(key, value); err != nil {
		return usageError(err)
	}

	project, _ := cmd.Flags().GetBool("project")
	path, _ := cmd.Flags().GetString("config")
	if project {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		path = filepath.Join(cwd, config.ProjectFileName)
	}

	if key == "default_type" {
		cfg, err := loadConfig(cmd, "")
		if err != nil {
			return err
		}
		reg, err := loadRegistry(cmd, cfg)
		if err != nil {
			return err
		}
		if !slices.Contains(reg.Types(), value) {
			return usageErrorf("unknown project type %q (known: %s)", value, strings.Join(reg.Types(), ", "))
		}
	}

	if err := config.Save(path, key, value); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return usageError(err)
		}
		return err
	}
	target := path
	if target == "" {
		target, _ = config.UserConfigFile()
	}
	logger.Info("Setting saved", logger.String("key", key), logger.String("file", target))
	return nil
}
