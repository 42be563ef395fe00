package report

import "github.com/charmbracelet/lipgloss"

// Styles is the visual theme for the terminal summary. Lipgloss degrades to
// plain text when output is not a TTY.
type Styles struct {
	Header lipgloss.Style
	Label  lipgloss.Style
	Pass   lipgloss.Style
	Fail   lipgloss.Style
	Muted  lipgloss.Style
}

// DefaultStyles returns the standard theme.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true),
		Label:  lipgloss.NewStyle().Faint(true),
		Pass:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		Fail:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Muted:  lipgloss.NewStyle().Faint(true),
	}
}
