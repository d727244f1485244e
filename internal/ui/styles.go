package ui

import "github.com/charmbracelet/lipgloss"

// Color palette. One blue accent over grays keeps both screens readable on
// light and dark terminals.
const (
	ColorAccent    = "39"  // primary accent, bright azure
	ColorAccentDim = "24"  // dimmed accent for inactive elements
	ColorWhite     = "255" // headers, important text
	ColorGray      = "245" // secondary text, labels
	ColorDarkGray  = "238" // borders, separators
	ColorRed       = "196" // errors
	ColorYellow    = "220" // warnings
)

// Styles holds the lipgloss styles shared by the progress and search
// screens.
type Styles struct {
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Active   lipgloss.Style
	Label    lipgloss.Style
	Speed    lipgloss.Style
	Border   lipgloss.Style
	Score    lipgloss.Style
	Selected lipgloss.Style
}

// DefaultStyles returns the styled set for color terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Active:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Speed:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Border:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Score:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentDim)),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)).Background(lipgloss.Color(ColorAccentDim)),
	}
}

// NoColorStyles returns an unstyled set for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle(),
		Success:  lipgloss.NewStyle(),
		Warning:  lipgloss.NewStyle(),
		Error:    lipgloss.NewStyle(),
		Dim:      lipgloss.NewStyle(),
		Active:   lipgloss.NewStyle(),
		Label:    lipgloss.NewStyle(),
		Speed:    lipgloss.NewStyle(),
		Border:   lipgloss.NewStyle(),
		Score:    lipgloss.NewStyle(),
		Selected: lipgloss.NewStyle().Reverse(true),
	}
}

// GetStyles returns the style set matching the color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
