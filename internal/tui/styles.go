// Package tui provides the interactive country picker.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/deeptube/deeptube/internal/model"
)

// Theme holds the picker color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// Semantic colors, shared by both themes.
var (
	Destructive = lipgloss.Color("#EF4444")
	Success     = lipgloss.Color("#10B981")
	Warning     = lipgloss.Color("#F59E0B")
	Info        = lipgloss.Color("#60A5FA")
)

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#111827"),
		Primary:    lipgloss.Color("#7C3AED"),
		Accent:     lipgloss.Color("#9333EA"),
		Muted:      lipgloss.Color("#9CA3AF"),
		Border:     lipgloss.Color("#D1D5DB"),
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#F3F4F6"),
		Primary:    lipgloss.Color("#A78BFA"),
		Accent:     lipgloss.Color("#C084FC"),
		Muted:      lipgloss.Color("#6B7280"),
		Border:     lipgloss.Color("#4C1D95"),
		IsDark:     true,
	}
}

// DetectTheme picks the dark theme unless the terminal reports a light one.
func DetectTheme() Theme {
	if os.Getenv("DEEPTUBE_LIGHT_MODE") == "1" || !lipgloss.HasDarkBackground() {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles holds all the styled components.
type Styles struct {
	Theme Theme

	Title  lipgloss.Style
	Prompt lipgloss.Style
	Pane   lipgloss.Style
	Focus  lipgloss.Style
	Hint   lipgloss.Style
	Muted  lipgloss.Style
	Bold   lipgloss.Style

	Cursor   lipgloss.Style
	Selected lipgloss.Style

	Badges map[model.LabelKind]lipgloss.Style
	Toasts map[model.Severity]lipgloss.Style

	Note lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme.
func NewStyles(theme Theme) Styles {
	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)

	badge := lipgloss.NewStyle().Padding(0, 1)
	toast := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		PaddingLeft(1).
		Bold(true)

	return Styles{
		Theme: theme,

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
		Prompt: lipgloss.NewStyle().
			Foreground(theme.Foreground),
		Pane:  pane,
		Focus: pane.BorderForeground(theme.Accent),
		Hint: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),
		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),
		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Cursor: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Badges: map[model.LabelKind]lipgloss.Style{
			model.LabelBlocked:     badge.Foreground(Destructive),
			model.LabelUpcoming:    badge.Foreground(Warning),
			model.LabelUnavailable: badge.Foreground(theme.Muted),
		},
		Toasts: map[model.Severity]lipgloss.Style{
			model.SeveritySuccess: toast.Foreground(Success).BorderForeground(Success),
			model.SeverityWarning: toast.Foreground(Warning).BorderForeground(Warning),
			model.SeverityError:   toast.Foreground(Destructive).BorderForeground(Destructive),
			model.SeverityInfo:    toast.Foreground(Info).BorderForeground(Info),
		},

		Note: lipgloss.NewStyle().
			Foreground(theme.Muted),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}
