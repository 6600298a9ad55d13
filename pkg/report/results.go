package report

import (
	"fmt"
	"path/filepath"

	"github.com/fulmenhq/forge/pkg/scaffold"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/fulmenhq/forge/pkg/tools"
	"github.com/jedib0t/go-pretty/v6/table"
)

// SettingInfo is one row of the config listing.
type SettingInfo struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source"`
}

// Scaffold renders the outcome of `forge new`.
func (r *Writer) Scaffold(res *scaffold.Result, dryRun bool) error {
	if res.Changes == nil {
		res.Changes = []structure.ChangeRecord{}
	}
	switch r.opts.Format {
	case FormatJSON:
		return r.json(struct {
			*scaffold.Result
			DryRun bool `json:"dry_run"`
		}{res, dryRun})
	case FormatMarkdown:
		fmt.Fprintf(r.w, "## New %s project: `%s`\n\n", res.ProjectType, filepath.Base(res.Root))
		if len(res.Changes) > 0 {
			r.changesTable(res.Changes, false).RenderMarkdown()
			fmt.Fprintln(r.w)
		}
		fmt.Fprintf(r.w, "**%s**\n", changeSummary(len(res.Changes), dryRun))
		return nil
	default:
		if err := r.Tree(filepath.Base(res.Root), res.Changes); err != nil {
			return err
		}
		fmt.Fprintln(r.w)
		if dryRun {
			fmt.Fprintln(r.w, r.styles.summary.Render(changeSummary(len(res.Changes), true)))
			return nil
		}
		fmt.Fprintf(r.w, "%s Created %s project %s at %s\n", r.styles.ok.Render("✔"),
			r.styles.noun.Render(res.ProjectType), filepath.Base(res.Root), res.Root)
		if res.Commit != "" {
			fmt.Fprintf(r.w, "  git repository initialized (commit %s)\n", shortHash(res.Commit))
		}
		return nil
	}
}

// Formatted renders a formatter run. Paths are shown relative to base.
func (r *Writer) Formatted(res *tools.FormatResult, base string) error {
	if r.opts.Format == FormatJSON {
		return r.json(res)
	}
	verb := "Reformatted"
	if res.Check {
		verb = "Would reformat"
	}
	rows := make([]string, 0, len(res.Changed))
	for _, p := range res.Changed {
		if rel, err := filepath.Rel(base, p); err == nil {
			p = filepath.ToSlash(rel)
		}
		rows = append(rows, p)
	}

	if r.opts.Format == FormatMarkdown {
		fmt.Fprintf(r.w, "## Format (%s)\n\n", res.Tool)
		for _, p := range rows {
			fmt.Fprintf(r.w, "- %s `%s`\n", verb, p)
		}
		if len(rows) > 0 {
			fmt.Fprintln(r.w)
		}
		fmt.Fprintf(r.w, "**%d of %d files %s**\n", len(rows), res.Files, formatOutcome(res.Check))
		return nil
	}

	if len(rows) == 0 {
		fmt.Fprintf(r.w, "%s %d files already formatted (%s)\n", r.styles.ok.Render("✔"), res.Files, res.Tool)
		return nil
	}
	for _, p := range rows {
		fmt.Fprintf(r.w, "%s %s\n", r.styles.warnSev.Render(verb+":"), p)
	}
	fmt.Fprintln(r.w, r.styles.summary.Render(fmt.Sprintf("%d of %d files %s (%s)", len(rows), res.Files, formatOutcome(res.Check), res.Tool)))
	return nil
}

// Settings renders the effective configuration with each value's origin.
func (r *Writer) Settings(settings []SettingInfo) error {
	if settings == nil {
		settings = []SettingInfo{}
	}
	if r.opts.Format == FormatJSON {
		return r.json(settings)
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"Key", "Value", "Source"})
	for _, s := range settings {
		t.AppendRow(table.Row{s.Key, fmt.Sprint(s.Value), s.Source})
	}
	if r.opts.Format == FormatMarkdown {
		t.RenderMarkdown()
		return nil
	}
	t.Render()
	return nil
}

// JSON writes v as indented JSON regardless of the configured format.
func (r *Writer) JSON(v any) error { return r.json(v) }

func formatOutcome(check bool) string {
	if check {
		return "need formatting"
	}
	return "reformatted"
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
