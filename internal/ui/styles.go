package ui

import "github.com/charmbracelet/lipgloss"

// Shared color palette.
var (
	ColorAccent = lipgloss.Color("6")
	ColorMuted  = lipgloss.Color("8")
	ColorWarn   = lipgloss.Color("3")
	ColorOid    = lipgloss.Color("3")
	ColorBranch = lipgloss.Color("2")
)

// Styles used across commands.
var (
	OidStyle      = lipgloss.NewStyle().Foreground(ColorOid)
	BranchStyle   = lipgloss.NewStyle().Foreground(ColorBranch)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	WarningStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
	HeadStyle     = lipgloss.NewStyle().Bold(true)
	HiddenStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	SelectorTitle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)
