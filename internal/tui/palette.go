package tui

import "github.com/charmbracelet/lipgloss"

// Ink-on-paper palette.
var (
	ColorInk       = lipgloss.Color("#ECEFF4")
	ColorDim       = lipgloss.Color("#6C7383")
	ColorAccent    = lipgloss.Color("#D08770")
	ColorAccentAlt = lipgloss.Color("#88C0D0")
	ColorSuccess   = lipgloss.Color("#A3BE8C")
	ColorWarn      = lipgloss.Color("#EBCB8B")
	ColorError     = lipgloss.Color("#BF616A")
)
