package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/linearpulse/internal/flatten"
)

var (
	// TitleStyle is used for screen titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")). // Purple
			MarginBottom(1)

	// SelectedItemStyle is used for highlighted/selected items.
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")). // Light purple
				Bold(true)

	// NormalItemStyle is used for non-selected items.
	NormalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Light gray

	// ErrorStyle is used for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// PromptStyle is used for prompt text.
	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")). // Light blue
			MarginBottom(1)

	// HelpStyle is used for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")). // Dark gray
			MarginTop(1)
)

// deadlineStyles colors project cards by deadline status.
var deadlineStyles = map[flatten.DeadlineStatus]lipgloss.Style{
	flatten.StatusOverdue:             lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	flatten.StatusDueSoon:             lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	flatten.StatusOnTrack:             lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	flatten.StatusNoDeadline:          lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	flatten.StatusCompletedOrCanceled: lipgloss.NewStyle().Foreground(lipgloss.Color("62")),
}

// healthStyle colors a health score: green from 70, amber from 40, red below.
func healthStyle(score int) lipgloss.Style {
	switch {
	case score >= 70:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	case score >= 40:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
}
