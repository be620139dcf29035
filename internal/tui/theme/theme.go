// Package theme provides the Lip Gloss color palette and reusable styles
// for the menu client. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Message colors.
var (
	ColorBlue   = lipgloss.Color("#3b82f6")
	ColorRed    = lipgloss.Color("#dc2626")
	ColorYellow = lipgloss.Color("#f59e0b")
	ColorCyan   = lipgloss.Color("#06b6d4")
)

// Coordinator state colors.
var (
	ColorIdle      = lipgloss.Color("#4b5563")
	ColorPending   = lipgloss.Color("#d97706")
	ColorHosting   = lipgloss.Color("#16a34a")
	ColorConnected = lipgloss.Color("#2563eb")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorDefault = lipgloss.Color("#9ca3af")
)

// MessageColor maps a message color name ("blue", "red", ...) to a color.
func MessageColor(name string) lipgloss.Color {
	switch name {
	case "blue":
		return ColorBlue
	case "red":
		return ColorRed
	case "yellow":
		return ColorYellow
	case "cyan":
		return ColorCyan
	default:
		return ColorDefault
	}
}

// StateColor returns the color for a coordinator state name.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "creating", "searching", "joining":
		return ColorPending
	case "hosting":
		return ColorHosting
	case "connected":
		return ColorConnected
	default:
		return ColorIdle
	}
}

// StateGlyph returns a glyph for a coordinator state name.
func StateGlyph(state string) string {
	switch state {
	case "creating", "searching", "joining":
		return "◎"
	case "hosting":
		return "●"
	case "connected":
		return "⇄"
	default:
		return "○"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)
)
