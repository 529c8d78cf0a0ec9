package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF3B30")
	ColorGreen   = lipgloss.Color("#34C759")
	ColorYellow  = lipgloss.Color("#FFCC00")
	ColorOrange  = lipgloss.Color("#FF9500")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorOrange)

	CountdownStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	SoundingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed)

	PausedStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	BannerStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorOrange).
			Bold(true)

	EnabledStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	DisabledStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FieldLabelStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Width(11)

	FieldActiveStyle = lipgloss.NewStyle().
				Foreground(ColorOrange).
				Bold(true).
				Width(11)

	SwitchStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorRed).
			Padding(0, 2)

	SwitchHeldStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(ColorOrange).
			Padding(0, 2)

	SwitchLockedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorDimGray).
				Foreground(ColorDimGray).
				Padding(0, 2)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)
)
