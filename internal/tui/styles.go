package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, the subset the screens use.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

const (
	colorAccent  = colorPink
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle    = lipgloss.NewStyle().Foreground(colorText)
	hintStyle     = lipgloss.NewStyle().Foreground(colorOverlay1)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	warnStyle     = lipgloss.NewStyle().Foreground(colorWarning)
	successStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	infoStyle     = lipgloss.NewStyle().Foreground(colorInfo)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFocus)
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)
)

// cursor renders the list marker for row i.
func cursor(i, at int) string {
	if i == at {
		return selectedStyle.Render("> ")
	}
	return "  "
}

func errLine(msg string) string {
	if msg == "" {
		return ""
	}
	return "\n" + errorStyle.Render(msg)
}
