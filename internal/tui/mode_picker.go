package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/robby/linearpulse/internal/store"
)

var modeItems = []list.Item{
	optionItem{
		title: "All",
		desc:  "Shared projects appear under every team they belong to",
		value: store.ModeAll,
	},
	optionItem{
		title: "Primary",
		desc:  "Shared projects appear under their first team only",
		value: store.ModePrimary,
	},
	optionItem{
		title: "Exclude",
		desc:  "Shared projects move to a separate Shared column",
		value: store.ModeExclude,
	},
}

// ModePickerModel lets the user pick how multi-team projects are attributed.
type ModePickerModel struct {
	list list.Model
}

// NewModePickerModel creates a picker with current preselected.
func NewModePickerModel(current store.TeamMode) ModePickerModel {
	selected := 0
	for i, it := range modeItems {
		if it.(optionItem).value == current {
			selected = i
		}
	}
	return ModePickerModel{list: newOptionList("Multi-team Projects", modeItems, selected)}
}

// Init initializes the model.
func (m ModePickerModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages and updates the model state.
func (m ModePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			return m, func() tea.Msg { return closePickerMsg{} }
		case "enter":
			if item, ok := m.list.SelectedItem().(optionItem); ok {
				mode := item.value.(store.TeamMode)
				return m, func() tea.Msg { return ModeSelectedMsg{Mode: mode} }
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the model.
func (m ModePickerModel) View() string {
	return m.list.View()
}
