package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/store"
)

// teamItem represents a team, or every team, in the list.
type teamItem struct {
	name     string // analytics.AllTeams for the first entry
	key      string
	projects int
}

func (i teamItem) FilterValue() string { return i.name }

// teamItemDelegate handles rendering of team items.
type teamItemDelegate struct{}

func (d teamItemDelegate) Height() int                             { return 1 }
func (d teamItemDelegate) Spacing() int                            { return 0 }
func (d teamItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d teamItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(teamItem)
	if !ok {
		return
	}

	// Format: name [KEY] (n projects)
	label := i.name
	if i.name == analytics.AllTeams {
		label = "All teams"
	}
	if i.key != "" {
		label += " [" + i.key + "]"
	}
	str := fmt.Sprintf("%s (%d projects)", label, i.projects)

	fn := NormalItemStyle.Render
	if index == m.Index() {
		fn = func(s ...string) string {
			return SelectedItemStyle.Render("> " + s[0])
		}
	}

	fmt.Fprint(w, fn(str))
}

// TeamPickerModel lets the user pick the team the board is scoped to.
type TeamPickerModel struct {
	list      list.Model
	canCancel bool // esc returns to the board instead of quitting
	err       error
}

// NewTeamPickerModel lists "All teams" followed by every team in s.
func NewTeamPickerModel(s *store.Store, canCancel bool) TeamPickerModel {
	items := []list.Item{teamItem{name: analytics.AllTeams, projects: len(s.Projects())}}
	for _, t := range s.Teams() {
		items = append(items, teamItem{
			name:     t.Name,
			key:      t.Key,
			projects: len(s.ColumnProjectIDs(t.ID)),
		})
	}

	// Start with a reasonable default - will be resized by WindowSizeMsg
	l := list.New(items, teamItemDelegate{}, 80, 20)
	l.Title = "Select Team"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle
	l.Styles.PaginationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	l.Styles.HelpStyle = HelpStyle

	return TeamPickerModel{list: l, canCancel: canCancel}
}

// Init initializes the model.
func (m TeamPickerModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages.
func (m TeamPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(teamItem); ok {
				return m, func() tea.Msg {
					return TeamSelectedMsg{Team: item.name}
				}
			}
		case "q", "esc":
			if !m.list.SettingFilter() {
				if m.canCancel {
					return m, func() tea.Msg { return closePickerMsg{} }
				}
				return m, func() tea.Msg { return QuitMsg{} }
			}
		}

	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width - 2)
		m.list.SetHeight(msg.Height - 2)
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the model.
func (m TeamPickerModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return m.list.View()
}
