package tui

import "github.com/charmbracelet/lipgloss"

var (
	Scarlet  = lipgloss.Color("#d64545")
	Ember    = lipgloss.Color("#f28b82")
	Leaf     = lipgloss.Color("#81c995")
	Sky      = lipgloss.Color("#8ab4f8")
	Sand     = lipgloss.Color("#fdd663")
	Text     = lipgloss.Color("#e8eaed")
	Subtext  = lipgloss.Color("#9aa0a6")
	Surface  = lipgloss.Color("#3c4043")
	Backdrop = lipgloss.Color("#202124")

	Title    = lipgloss.NewStyle().Foreground(Scarlet).Bold(true)
	Header   = lipgloss.NewStyle().Foreground(Subtext).Bold(true)
	Muted    = lipgloss.NewStyle().Foreground(Subtext)
	Selected = lipgloss.NewStyle().Foreground(Backdrop).Background(Sky).Bold(true)
	Editing  = lipgloss.NewStyle().Foreground(Sand)
	Good     = lipgloss.NewStyle().Foreground(Leaf)
	Bad      = lipgloss.NewStyle().Foreground(Ember).Bold(true)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface).
		Foreground(Text).
		Padding(0, 1)

	Dialog = Pane.BorderForeground(Scarlet)
)
