package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robby/linearpulse/internal/analytics"
)

// optionItem is a two-line picker entry. value carries the selection.
type optionItem struct {
	title string
	desc  string
	value any
}

func (i optionItem) FilterValue() string { return i.title }

// optionDelegate renders an optionItem as a numbered title and a dim description.
type optionDelegate struct{}

func (d optionDelegate) Height() int                             { return 2 }
func (d optionDelegate) Spacing() int                            { return 1 }
func (d optionDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d optionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(optionItem)
	if !ok {
		return
	}

	str := fmt.Sprintf("%d. %s", index+1, i.title)
	if index == m.Index() {
		fmt.Fprint(w, SelectedItemStyle.Render("> "+str))
		fmt.Fprint(w, "\n  "+NormalItemStyle.Render(i.desc))
	} else {
		fmt.Fprint(w, NormalItemStyle.Render("  "+str))
		fmt.Fprint(w, "\n  "+lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(i.desc))
	}
}

func newOptionList(title string, items []list.Item, selected int) list.Model {
	l := list.New(items, optionDelegate{}, 80, 20)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = TitleStyle
	l.Select(selected)
	return l
}

// rangeItems lists the presets followed by "all time".
func rangeItems() []list.Item {
	items := make([]list.Item, 0, len(analytics.RangePresets)+1)
	for _, days := range analytics.RangePresets {
		items = append(items, optionItem{
			title: fmt.Sprintf("Last %d days", days),
			desc:  "Projects and issues created or updated in the window",
			value: analytics.LastDays(days),
		})
	}
	return append(items, optionItem{
		title: "All time",
		desc:  "Every record, regardless of dates",
		value: analytics.AllTime(),
	})
}

// RangePickerModel lets the user pick the date range the metrics cover.
type RangePickerModel struct {
	list list.Model
}

// NewRangePickerModel creates a picker with current preselected.
func NewRangePickerModel(current analytics.DateRange) RangePickerModel {
	items := rangeItems()
	selected := 0
	for i, it := range items {
		if it.(optionItem).value.(analytics.DateRange).String() == current.String() {
			selected = i
		}
	}
	return RangePickerModel{list: newOptionList("Select Date Range", items, selected)}
}

// Init initializes the model.
func (m RangePickerModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages and updates the model state.
func (m RangePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
				r := item.value.(analytics.DateRange)
				return m, func() tea.Msg { return RangeSelectedMsg{Range: r} }
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the model.
func (m RangePickerModel) View() string {
	return m.list.View()
}
