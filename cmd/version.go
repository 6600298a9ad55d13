/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/forge/pkg/buildinfo"
	"github.com/fulmenhq/forge/pkg/report"
	"github.com/spf13/cobra"
)

// versionInfo is the JSON shape of `forge version`.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the forge version",
		Args:  withArgs(cobra.NoArgs),
		RunE:  runVersion,
	}
	cmd.Flags().Bool("extended", false, "Show detailed build information")
	addFormatFlag(cmd)
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	w, err := newReportWriter(cmd)
	if err != nil {
		return err
	}

	info := versionInfo{
		Version:   buildinfo.Version(),
		Commit:    buildinfo.VCSRevision(),
		BuildDate: buildinfo.BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if cmd.Flags().Lookup("format").Value.String() == string(report.FormatJSON) {
		return w.JSON(info)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "forge %s\n", info.Version)
	if !extended {
		return nil
	}
	if info.Commit != "" {
		fmt.Fprintf(out, "Commit: %s\n", info.Commit)
	}
	if info.BuildDate != "" {
		fmt.Fprintf(out, "Built: %s\n", info.BuildDate)
	}
	fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
	fmt.Fprintf(out, "Platform: %s/%s\n", info.Platform, info.Arch)
	return nil
}
