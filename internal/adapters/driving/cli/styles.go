package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Colour palette for terminal output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourAccent  = lipgloss.Color("#06B6D4")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
)

// Styles for command output. Colour is dropped automatically when the
// output is not a terminal.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colourAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colourWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colourError)
	answerStyle  = lipgloss.NewStyle().PaddingLeft(2)
)

// checkbox renders a task completion marker.
func checkbox(done bool) string {
	if done {
		return successStyle.Render("[x]")
	}
	return "[ ]"
}
