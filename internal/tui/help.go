package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// HelpOverlayStyle frames the key reference shown by "?".
var HelpOverlayStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("62")).
	Padding(1, 2).
	MarginTop(1)

// HelpModel renders the full key reference.
type HelpModel struct {
	help   help.Model
	keymap KeyMap
}

// NewHelpModel creates a help overlay for keymap.
func NewHelpModel(keymap KeyMap) HelpModel {
	h := help.New()
	h.ShowAll = true
	return HelpModel{help: h, keymap: keymap}
}

// View renders the overlay within width.
func (m HelpModel) View(width int) string {
	m.help.Width = width - 8 // padding and border
	body := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render("Keys"),
		m.help.View(m.keymap),
		HelpStyle.Render("Cards show days to target and progress; colors follow deadline status."),
	)
	return HelpOverlayStyle.Render(body)
}
