package tui

import "github.com/charmbracelet/lipgloss"

var (
	base     = lipgloss.Color("#1e1e2e")
	surface  = lipgloss.Color("#45475a")
	text     = lipgloss.Color("#cdd6f4")
	subtext  = lipgloss.Color("#a6adc8")
	lavender = lipgloss.Color("#b4befe")
	sapphire = lipgloss.Color("#74c7ec")
	green    = lipgloss.Color("#a6e3a1")
	red      = lipgloss.Color("#f38ba8")

	appStyle = lipgloss.NewStyle().Foreground(text).Padding(1, 2)

	titleStyle = lipgloss.NewStyle().Foreground(sapphire).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(subtext)

	tabStyle       = lipgloss.NewStyle().Foreground(subtext).Padding(0, 2)
	activeTabStyle = lipgloss.NewStyle().Foreground(base).Background(lavender).Bold(true).Padding(0, 2)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(surface).
			Padding(0, 1)

	cursorStyle  = lipgloss.NewStyle().Foreground(lavender).Bold(true)
	blockedStyle = lipgloss.NewStyle().Foreground(red)
	allowedStyle = lipgloss.NewStyle().Foreground(green)
	userStyle    = lipgloss.NewStyle().Foreground(lavender).Bold(true)
	botStyle     = lipgloss.NewStyle().Foreground(sapphire).Bold(true)
)
