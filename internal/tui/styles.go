package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorBlue     = lipgloss.Color("#0f93fc")
	ColorGreen    = lipgloss.Color("#49E209")
	ColorNavy     = lipgloss.Color("#081C39")
	ColorGray     = lipgloss.Color("#BCBEC0")
	ColorDimGray  = lipgloss.Color("#565F89")
	ColorDarkGray = lipgloss.Color("#2D2D2D") // modal backgrounds
	ColorWhite    = lipgloss.Color("#FFFFFF")
	ColorRed      = lipgloss.Color("#FF6B6B")
)

// Shared styles used across views
var (
	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true).
			Padding(1)

	chartTitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	queryPromptStyle = lipgloss.NewStyle().
				Foreground(ColorBlue).
				Bold(true)

	queryTextStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	tooltipStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue).
			Background(ColorDarkGray).
			Padding(0, 1)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBlue)
)
