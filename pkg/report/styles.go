package report

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fulmenhq/forge/pkg/structure"
)

// Palette. Use these instead of inline color literals.
var (
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("220")
	colorCyan   = lipgloss.Color("14")
	colorGreen  = lipgloss.Color("82")
)

type styles struct {
	errorSev lipgloss.Style
	warnSev  lipgloss.Style
	infoSev  lipgloss.Style
	noun     lipgloss.Style
	ok       lipgloss.Style
	created  lipgloss.Style
	summary  lipgloss.Style
}

// newStyles binds the palette to r. With color off every style is a no-op.
func newStyles(r *lipgloss.Renderer, color bool) styles {
	if !color {
		plain := r.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		errorSev: r.NewStyle().Bold(true).Foreground(colorRed),
		warnSev:  r.NewStyle().Foreground(colorYellow),
		infoSev:  r.NewStyle().Foreground(colorCyan),
		noun:     r.NewStyle().Foreground(colorCyan),
		ok:       r.NewStyle().Foreground(colorGreen),
		created:  r.NewStyle().Foreground(colorGreen),
		summary:  r.NewStyle().Bold(true),
	}
}

func (s styles) severity(sev structure.Severity) lipgloss.Style {
	switch sev {
	case structure.SeverityError:
		return s.errorSev
	case structure.SeverityWarning:
		return s.warnSev
	default:
		return s.infoSev
	}
}
