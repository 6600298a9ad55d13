// Package report renders check findings, reconciliation changes and project
// type listings for the terminal (go-pretty tables), for machines (JSON) and
// for documents (markdown).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fulmenhq/forge/pkg/structure"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
)

// DefaultDetailWidth caps the display width of the detail column.
const DefaultDetailWidth = 60

// Options configures a Writer.
type Options struct {
	Format Format
	Color  bool
	// DetailWidth is the maximum display width of detail cells in table
	// output. Zero means DefaultDetailWidth.
	DetailWidth int
}

// Writer renders reports to an io.Writer.
type Writer struct {
	w      io.Writer
	opts   Options
	styles styles
}

// New returns a Writer over w.
func New(w io.Writer, opts Options) *Writer {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	if opts.DetailWidth <= 0 {
		opts.DetailWidth = DefaultDetailWidth
	}
	return &Writer{w: w, opts: opts, styles: newStyles(lipgloss.NewRenderer(w), opts.Color)}
}

// CheckResult is the JSON shape of a check report.
type CheckResult struct {
	Path        string              `json:"path"`
	ProjectType string              `json:"project_type"`
	Module      string              `json:"module"`
	Passed      bool                `json:"passed"`
	Summary     structure.Summary   `json:"summary"`
	Findings    []structure.Finding `json:"findings"`
}

// ChangeResult is the JSON shape of an upgrade or scaffold report.
type ChangeResult struct {
	Path        string                   `json:"path"`
	ProjectType string                   `json:"project_type"`
	Mode        string                   `json:"mode"`
	Changes     []structure.ChangeRecord `json:"changes"`
	Error       string                   `json:"error,omitempty"`
}

// TypeInfo describes one project type for the types listing.
type TypeInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Chain       []string `json:"chain"`
}

// Findings renders the result of a check run.
func (r *Writer) Findings(res CheckResult) error {
	if res.Findings == nil {
		res.Findings = []structure.Finding{}
	}
	res.Summary = structure.Summarize(res.Findings)
	res.Passed = structure.Passed(res.Findings)

	switch r.opts.Format {
	case FormatJSON:
		return r.json(res)
	case FormatMarkdown:
		fmt.Fprintf(r.w, "## Structure check: `%s` (%s)\n\n", res.Path, res.ProjectType)
		if len(res.Findings) > 0 {
			r.findingsTable(res.Findings, false).RenderMarkdown()
			fmt.Fprintln(r.w)
		}
		fmt.Fprintf(r.w, "**Result:** %s (%s)\n", verdict(res.Passed), res.Summary)
		return nil
	default:
		if len(res.Findings) == 0 {
			fmt.Fprintf(r.w, "%s %s matches project type %s\n",
				r.styles.ok.Render("✔"), res.Path, r.styles.noun.Render(res.ProjectType))
			return nil
		}
		r.findingsTable(res.Findings, true).Render()
		style := r.styles.ok
		if !res.Passed {
			style = r.styles.severity(structure.SeverityError)
		}
		fmt.Fprintf(r.w, "%s: %s\n", style.Render(verdict(res.Passed)), res.Summary)
		return nil
	}
}

func (r *Writer) findingsTable(findings []structure.Finding, styled bool) table.Writer {
	t := r.newTable()
	t.AppendHeader(table.Row{"Severity", "Path", "Message", "Detail"})
	for _, f := range findings {
		sev := string(f.Severity)
		if styled {
			sev = r.styles.severity(f.Severity).Render(sev)
		}
		msg := f.Message
		if f.Validator != "" {
			msg = fmt.Sprintf("%s (%s)", msg, f.Validator)
		}
		detail := strings.Join(f.Detail, "; ")
		if styled {
			detail = runewidth.Truncate(detail, r.opts.DetailWidth, "…")
		}
		t.AppendRow(table.Row{sev, f.Path, msg, detail})
	}
	return t
}

// Changes renders the records produced by a reconciliation. applyErr, when
// non-nil, is reported after the records that were applied before it.
func (r *Writer) Changes(res ChangeResult, applyErr error) error {
	if res.Changes == nil {
		res.Changes = []structure.ChangeRecord{}
	}
	if applyErr != nil {
		res.Error = applyErr.Error()
	}
	dry := res.Mode == structure.DryRun.String()

	switch r.opts.Format {
	case FormatJSON:
		return r.json(res)
	case FormatMarkdown:
		fmt.Fprintf(r.w, "## %s: `%s` (%s)\n\n", changeTitle(dry), res.Path, res.ProjectType)
		if len(res.Changes) > 0 {
			r.changesTable(res.Changes, false).RenderMarkdown()
			fmt.Fprintln(r.w)
		}
		fmt.Fprintf(r.w, "**%s**\n", changeSummary(len(res.Changes), dry))
		if res.Error != "" {
			fmt.Fprintf(r.w, "\n**Error:** %s\n", res.Error)
		}
		return nil
	default:
		if len(res.Changes) == 0 && res.Error == "" {
			fmt.Fprintf(r.w, "%s %s already matches project type %s\n",
				r.styles.ok.Render("✔"), res.Path, r.styles.noun.Render(res.ProjectType))
			return nil
		}
		if len(res.Changes) > 0 {
			r.changesTable(res.Changes, true).Render()
		}
		fmt.Fprintln(r.w, r.styles.summary.Render(changeSummary(len(res.Changes), dry)))
		if res.Error != "" {
			fmt.Fprintf(r.w, "%s %s\n", r.styles.severity(structure.SeverityError).Render("error:"), res.Error)
		}
		return nil
	}
}

func (r *Writer) changesTable(records []structure.ChangeRecord, styled bool) table.Writer {
	t := r.newTable()
	t.AppendHeader(table.Row{"Action", "Path", "Content"})
	for _, c := range records {
		action := string(c.Action)
		if styled {
			action = r.styles.created.Render(action)
		}
		t.AppendRow(table.Row{action, c.Path, c.ContentSource})
	}
	return t
}

// Types renders the available project types.
func (r *Writer) Types(types []TypeInfo) error {
	if types == nil {
		types = []TypeInfo{}
	}
	switch r.opts.Format {
	case FormatJSON:
		return r.json(types)
	case FormatMarkdown:
		r.typesTable(types).RenderMarkdown()
		return nil
	default:
		r.typesTable(types).Render()
		return nil
	}
}

func (r *Writer) typesTable(types []TypeInfo) table.Writer {
	t := r.newTable()
	t.AppendHeader(table.Row{"Type", "Inherits", "Description"})
	for _, ti := range types {
		t.AppendRow(table.Row{ti.Name, strings.Join(ti.Chain, " → "), ti.Description})
	}
	return t
}

func (r *Writer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	return t
}

func (r *Writer) json(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func verdict(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

func changeTitle(dry bool) string {
	if dry {
		return "Planned changes"
	}
	return "Applied changes"
}

func changeSummary(n int, dry bool) string {
	noun := "changes"
	if n == 1 {
		noun = "change"
	}
	if dry {
		return fmt.Sprintf("Dry run: %d %s planned", n, noun)
	}
	return fmt.Sprintf("Applied %d %s", n, noun)
}
