package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#7D56F4") // Purple accent
	secondaryColor = lipgloss.Color("#6C6C6C") // Gray for secondary text
	successColor   = lipgloss.Color("#73F59F") // Green for success
	errorColor     = lipgloss.Color("#FF6B6B") // Red for errors
	warnColor      = lipgloss.Color("#F5D573") // Yellow for review states

	// TitleStyle for headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// SubtleStyle for hints/help text
	SubtleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	// SelectedStyle for the row under the cursor
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// StatusBarStyle for the bottom status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	// SuccessStyle for done tasks
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// ErrorStyle for failed tasks and error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// ReviewStyle for tasks waiting on a human
	ReviewStyle = lipgloss.NewStyle().
			Foreground(warnColor)
)
