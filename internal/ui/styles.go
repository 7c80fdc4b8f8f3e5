package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("63")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorError   = lipgloss.Color("196")
	ColorDim     = lipgloss.Color("241")

	StatusThinkingStyle  = lipgloss.NewStyle().Foreground(ColorPrimary)
	StatusExecutingStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StatusDoneStyle      = lipgloss.NewStyle().Foreground(ColorSuccess)
	StatusErrorStyle     = lipgloss.NewStyle().Foreground(ColorError)
	StatusDeniedStyle    = lipgloss.NewStyle().Foreground(ColorWarning)
	NoticeStyle          = lipgloss.NewStyle().Foreground(ColorWarning).Italic(true)
	DimStyle             = lipgloss.NewStyle().Foreground(ColorDim)

	PermissionBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorWarning).
				Padding(0, 1)
)
