package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Header2: r.NewStyle().Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
		Success: r.NewStyle().Foreground(lipgloss.Color("42")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}
