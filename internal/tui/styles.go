package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E05561")).
			Bold(true)
)

var (
	quitKeys  = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	upKeys    = key.NewBinding(key.WithKeys("up", "k"))
	downKeys  = key.NewBinding(key.WithKeys("down", "j"))
	enterKeys = key.NewBinding(key.WithKeys("enter"))
)
