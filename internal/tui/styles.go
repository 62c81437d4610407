package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	primaryColor   = lipgloss.Color("#A78BFA")
	secondaryColor = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#F87171")
	mutedColor     = lipgloss.Color("#9CA3AF")
	borderColor    = lipgloss.Color("#6B7280")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Italic(true)

	stateStyles = map[rowState]lipgloss.Style{
		stateRunning:   lipgloss.NewStyle().Foreground(primaryColor),
		stateSucceeded: lipgloss.NewStyle().Foreground(secondaryColor),
		stateFailed:    lipgloss.NewStyle().Foreground(errorColor),
		stateAbandoned: lipgloss.NewStyle().Foreground(mutedColor).Strikethrough(true),
	}
)
