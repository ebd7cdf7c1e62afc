package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the colors and base styles shared by every view.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Selected lipgloss.Style
}

// DefaultTheme returns the standard palette bound to renderer r.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#5A3FC0", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#B58900", Dark: "#F1FA8C"},
		Muted:     lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6272A4"},
		Highlight: lipgloss.AdaptiveColor{Light: "#0B7285", Dark: "#8BE9FD"},
		Border:    lipgloss.AdaptiveColor{Light: "#C8C8C8", Dark: "#44475A"},
		Success:   lipgloss.AdaptiveColor{Light: "#2B8A3E", Dark: "#50FA7B"},
		Danger:    lipgloss.AdaptiveColor{Light: "#C92A2A", Dark: "#FF5555"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#5C5C5C", Dark: "#A0A8C0"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E6E0FA", Dark: "#44475A"}).
		Bold(true)
	return t
}

// GetNodeIcon returns the folder or leaf glyph for a menu row and its color.
func (t Theme) GetNodeIcon(hasChildren, expanded bool) (string, lipgloss.AdaptiveColor) {
	switch {
	case hasChildren && expanded:
		return "📂", t.Secondary
	case hasChildren:
		return "📁", t.Secondary
	default:
		return "📄", t.Highlight
	}
}
