/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/spf13/cobra"
)

func newTypesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the available project types",
		Long: `List the project types declared in the structure document together with
their inheritance chain, root first.`,
		Args: withArgs(cobra.NoArgs),
		RunE: runTypes,
	}
	addFormatFlag(cmd)
	return cmd
}

func runTypes(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, ".")
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

	var types []report.TypeInfo
	for _, name := range reg.Types() {
		resolved, err := reg.Resolve(name)
		if err != nil {
			return err
		}
		info := report.TypeInfo{Name: name, Chain: resolved.Chain}
		if pt, ok := reg.Describe(name); ok {
			info.Description = pt.Description
		}
		types = append(types, info)
	}
	return w.Types(types)
}
