/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/forge/internal/ops"
	"github.com/fulmenhq/forge/pkg/buildinfo"
	"github.com/fulmenhq/forge/pkg/logger"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forge",
		Short: "Scaffold, check and upgrade Python projects",
		Long: `Forge creates Python projects from templates and keeps existing projects
in line with the expected layout for their project type.

Examples:
   forge new weather-cli --type cli   # Scaffold a CLI application
   forge check .                      # Validate the current project
   forge upgrade . --dry-run          # Preview the files an upgrade would add
   forge format --check               # Report files the formatter would change
   forge types                        # List project types`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeLogger(cmd)
		},
	}

	// Add global flags
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Read user settings from this file instead of ~/.config/forge/config.yaml")
	cmd.PersistentFlags().String("structure", "", "Structure document declaring project types (default: built-in)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	// Wire Cobra's built-in --version using forge's binary version
	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("forge {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command and installs
// the grouped help output.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	reg := ops.NewRegistry()
	add := func(group ops.CommandGroup, sub *cobra.Command) {
		if err := reg.Register(group, sub); err != nil {
			panic(err)
		}
		cmd.AddCommand(sub)
	}

	add(ops.GroupProject, newNewCommand())
	add(ops.GroupProject, newCheckCommand())
	add(ops.GroupProject, newUpgradeCommand())
	add(ops.GroupTooling, newFormatCommand())
	add(ops.GroupTooling, newTestCommand())
	add(ops.GroupSupport, newTypesCommand())
	add(ops.GroupSupport, newConfigCommand())
	add(ops.GroupSupport, newVersionCommand())

	// Grouped help by command group (Project → Tooling → Support)
	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		if c != cmd {
			defaultHelp(c, args)
			return
		}
		out := c.OutOrStdout()
		fmt.Fprintf(out, "%s\n\n", c.Long)
		for _, group := range ops.Groups {
			fmt.Fprintf(out, "%s:\n", group.Title())
			for _, r := range reg.GetCommandsByGroup(group) {
				fmt.Fprintf(out, "  %-12s %s\n", r.Name, r.Description)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Flags:\n%s\n", c.LocalFlags().FlagUsages())
		fmt.Fprintln(out, `Use "forge [command] --help" for more information about a command.`)
	})
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	os.Exit(run(rootCmd))
}

// run executes root and maps the outcome to a process exit code.
func run(root *cobra.Command) int {
	err := root.Execute()
	if err == nil {
		return 0
	}
	if !isSilent(err) {
		logger.Error(err.Error())
	}
	return exitCodeFor(err)
}

func init() {
	// Register all subcommands with the production rootCmd
	registerSubcommands(rootCmd)
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) error {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logLevel, err := logger.ParseLevel(logLevelStr)
	if err != nil {
		return usageError(err)
	}

	config := logger.Config{
		Level:     logLevel,
		UseColor:  !noColor && os.Getenv("NO_COLOR") == "",
		JSON:      jsonLogs,
		Component: "forge",
	}
	if err := logger.Initialize(config); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetOutput(cmd.ErrOrStderr())
	return nil
}
