package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/flatten"
	"github.com/robby/linearpulse/internal/store"
)

// Layout constants
const (
	minColumnWidth = 24
	maxColumnWidth = 40
	headerLines    = 2  // title/status line + hints line
	pageJumpSize   = 10 // Number of projects to jump with Ctrl+D/U
)

// sharedColumnKey holds multi-team projects in exclude mode.
const sharedColumnKey = "_shared_"

// stateColumns are the single-team board columns, in lifecycle order.
var stateColumns = []struct {
	state domain.ProjectState
	name  string
}{
	{domain.ProjectPlanned, "Planned"},
	{domain.ProjectStarted, "In Progress"},
	{domain.ProjectPaused, "Paused"},
	{domain.ProjectCompleted, "Completed"},
	{domain.ProjectCanceled, "Canceled"},
}

// Styles for the board view - base styles without width/height (set dynamically)
var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true)
)

// boardScope is what the board shows: a team (or all), a date range for the
// metrics and card filter, and the multi-team attribution mode.
type boardScope struct {
	Team  string
	Range analytics.DateRange
	Mode  store.TeamMode
}

func (s boardScope) analytics() analytics.Scope {
	return analytics.Scope{Team: s.Team, Range: s.Range}
}

// BoardModel shows the workspace's projects as columns of cards.
type BoardModel struct {
	// Dependencies
	store  *store.Store
	client Client
	ctx    context.Context
	logger *zap.Logger
	now    func() time.Time

	// UI components
	keymap      KeyMap
	help        HelpModel
	spinner     spinner.Model
	filterInput textinput.Model

	scope    boardScope
	teamID   string                        // resolved ID when scope.Team is a single team
	snapshot analytics.Snapshot            // metrics for the header
	rows     map[string]flatten.ProjectRow // project ID -> flattened row

	// Board state
	columns        []string            // Column IDs in order
	columnNames    map[string]string   // Column ID -> display name
	columnProjects map[string][]string // Column ID -> project IDs before filtering
	filtered       map[string][]string // Column ID -> project IDs shown
	selectedColumn int                 // Currently selected column
	columnOffset   int                 // Horizontal scroll offset (first visible column index)
	selectedCard   map[string]int      // Column ID -> selected card index
	scrollOffset   map[string]int      // Column ID -> scroll offset

	// View state
	width      int
	height     int
	showHelp   bool
	filterMode bool
	filterText string
	atRiskOnly bool
	loading    bool
	errorToast string
}

// NewBoardModel creates a board over the loaded store.
func NewBoardModel(s *store.Store, client Client, ctx context.Context, scope boardScope) BoardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Prompt = "/ "

	if scope.Team == "" {
		scope.Team = analytics.AllTeams
	}
	if scope.Mode == "" {
		scope.Mode = store.ModeAll
	}

	return BoardModel{
		store:          s,
		client:         client,
		ctx:            ctx,
		logger:         zap.NewNop(),
		now:            time.Now,
		keymap:         DefaultKeyMap(),
		help:           NewHelpModel(DefaultKeyMap()),
		spinner:        sp,
		filterInput:    ti,
		scope:          scope,
		rows:           make(map[string]flatten.ProjectRow),
		columns:        []string{},
		columnNames:    make(map[string]string),
		columnProjects: make(map[string][]string),
		filtered:       make(map[string][]string),
		selectedCard:   make(map[string]int),
		scrollOffset:   make(map[string]int),
	}
}

// boardInitMsg triggers initial column build
type boardInitMsg struct{}

// refreshedMsg carries a new fetch of the workspace.
type refreshedMsg struct {
	ds        domain.Dataset
	fetchedAt time.Time
	err       error
}

// Init builds the columns.
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.WindowSize(),
		func() tea.Msg { return boardInitMsg{} },
	)
}

// Update handles messages
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardInitMsg:
		(&m).rebuild()
		return m, nil

	case refreshedMsg:
		m.loading = false
		if msg.err != nil {
			m.logger.Error("Refetch failed", zap.Error(msg.err))
			m.errorToast = fmt.Sprintf("Refresh failed: %v", msg.err)
			return m, nil
		}
		m.errorToast = ""
		m.store.Load(msg.ds, msg.fetchedAt)
		(&m).rebuild()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input
func (m BoardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Help overlay
	if m.showHelp {
		if msg.String() == "?" || msg.String() == "q" || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	// Filter mode
	if m.filterMode {
		switch msg.String() {
		case "enter":
			m.filterMode = false
			m.filterText = m.filterInput.Value()
			(&m).applyFilter()
			return m, nil
		case "esc":
			m.filterMode = false
			m.filterInput.SetValue(m.filterText)
			return m, nil
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			return m, cmd
		}
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true
	case key.Matches(msg, m.keymap.Filter):
		m.filterMode = true
		m.filterInput.Focus()
	case key.Matches(msg, m.keymap.Left):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			(&m).adjustColumnScroll()
		}
	case key.Matches(msg, m.keymap.Right):
		if m.selectedColumn < len(m.columns)-1 {
			m.selectedColumn++
			(&m).adjustColumnScroll()
		}
	case key.Matches(msg, m.keymap.Down):
		(&m).moveCardSelection(1)
	case key.Matches(msg, m.keymap.Up):
		(&m).moveCardSelection(-1)
	case msg.String() == "g":
		(&m).jumpToCard(0)
	case msg.String() == "G":
		(&m).jumpToCard(-1)
	case msg.String() == "ctrl+d":
		(&m).moveCardSelection(pageJumpSize)
	case msg.String() == "ctrl+u":
		(&m).moveCardSelection(-pageJumpSize)
	case key.Matches(msg, m.keymap.Open):
		if p, ok := m.selectedProject(); ok && p.URL != "" {
			if err := browser.OpenURL(p.URL); err != nil {
				m.errorToast = fmt.Sprintf("Open failed: %v", err)
			}
		}
	case key.Matches(msg, m.keymap.Refresh):
		if !m.loading {
			m.loading = true
			return m, m.refetch()
		}
	case key.Matches(msg, m.keymap.AtRisk):
		m.atRiskOnly = !m.atRiskOnly
		(&m).applyFilter()
	case key.Matches(msg, m.keymap.ChangeTeam):
		return m, func() tea.Msg { return changeTeamMsg{} }
	case key.Matches(msg, m.keymap.DateRange):
		return m, func() tea.Msg { return changeRangeMsg{} }
	case key.Matches(msg, m.keymap.TeamMode):
		return m, func() tea.Msg { return changeModeMsg{} }
	case key.Matches(msg, m.keymap.Detail):
		if p, ok := m.selectedProject(); ok {
			return m, func() tea.Msg { return openDetailMsg{project: p, row: m.rows[p.ID]} }
		}
	}

	return m, nil
}

// View renders the board - fills entire terminal exactly
func (m BoardModel) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	sections := []string{m.renderHeader(width), m.renderSecondHeader(width)}
	if m.filterMode {
		sections = append(sections, m.filterInput.View())
	}

	boardHeight := height - headerLines
	if m.filterMode {
		boardHeight--
	}
	if boardHeight < 5 {
		boardHeight = 5
	}

	var mainContent string
	switch {
	case m.showHelp:
		helpLines := strings.Split(m.help.View(width), "\n")
		if len(helpLines) > boardHeight {
			helpLines = helpLines[:boardHeight]
		}
		mainContent = strings.Join(helpLines, "\n")
	case m.loading && !m.store.Loaded():
		mainContent = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center, m.spinner.View()+" Loading...")
	case len(m.columns) == 0:
		mainContent = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center,
			"No projects in this scope. Press 't' to change team or 'r' to refresh.")
	default:
		mainContent = m.renderBoard(width, boardHeight)
	}
	sections = append(sections, mainContent)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderSecondHeader renders navigation hints and position info
func (m BoardModel) renderSecondHeader(width int) string {
	left := "h/l:col j/k:project enter:detail o:open t:team d:range m:mode"

	right := ""
	if m.errorToast != "" {
		right = errorStyle.Render(m.errorToast)
	} else if len(m.columns) > 0 {
		colID := m.columns[m.selectedColumn]
		ids := m.filtered[colID]
		colPos := fmt.Sprintf("col %d/%d", m.selectedColumn+1, len(m.columns))
		if len(ids) > 0 {
			right = fmt.Sprintf("%s | project %d/%d", colPos, m.selectedCard[colID]+1, len(ids))
		} else {
			right = colPos
		}
	}

	padding := width - len(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return dimStyle.Render(left) + strings.Repeat(" ", padding) + right
}

// renderHeader renders the scope on the left and its metrics on the right.
func (m BoardModel) renderHeader(width int) string {
	team := m.scope.Team
	if team == analytics.AllTeams {
		team = "All teams"
	}
	title := fmt.Sprintf("Linear - %s (%s, %s)", team, m.scope.Range, m.scope.Mode)

	var parts []string
	if m.loading {
		parts = append(parts, m.spinner.View()+"loading")
	}

	shown := 0
	for _, ids := range m.filtered {
		shown += len(ids)
	}
	parts = append(parts,
		fmt.Sprintf("%d projects", shown),
		fmt.Sprintf("%d overdue", len(m.snapshot.Overdue)),
		fmt.Sprintf("velocity %.2f", m.snapshot.Velocity),
	)
	if m.atRiskOnly {
		parts = append(parts, "at-risk")
	}
	if m.filterText != "" {
		parts = append(parts, "/"+m.filterText)
	}
	parts = append(parts, "[?]help")

	status := strings.Join(parts, " | ")
	health := healthStyle(m.snapshot.HealthScore).Render(fmt.Sprintf("health %d", m.snapshot.HealthScore))

	padding := width - len(title) - len(status) - lipgloss.Width(health) - 5
	if padding < 1 {
		padding = 1
	}
	return titleStyle.Render(title) + strings.Repeat(" ", padding) + health + dimStyle.Render(" | "+status)
}

// renderBoard renders the columns within the given dimensions, scrolling
// horizontally when they overflow.
func (m BoardModel) renderBoard(totalWidth, totalHeight int) string {
	numCols := len(m.columns)
	if numCols == 0 {
		return ""
	}

	// Border adds 2 lines to the content height
	colContentHeight := totalHeight - 2
	if colContentHeight < 3 {
		colContentHeight = 3
	}

	visibleCols := totalWidth / minColumnWidth
	if visibleCols < 1 {
		visibleCols = 1
	}
	if visibleCols > numCols {
		visibleCols = numCols
	}

	colWidth := totalWidth / visibleCols
	if colWidth > maxColumnWidth {
		colWidth = maxColumnWidth
	}
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}

	// 2 border + 2 padding
	innerWidth := colWidth - 4
	if innerWidth < 10 {
		innerWidth = 10
	}

	startCol := m.columnOffset
	endCol := startCol + visibleCols
	if endCol > numCols {
		endCol = numCols
		startCol = endCol - visibleCols
		if startCol < 0 {
			startCol = 0
		}
	}

	columnViews := make([]string, 0, visibleCols+2)
	if startCol > 0 {
		columnViews = append(columnViews, scrollIndicator("◀", colContentHeight+2))
	}
	for i := startCol; i < endCol; i++ {
		columnViews = append(columnViews, m.renderColumn(m.columns[i], i == m.selectedColumn, colWidth, colContentHeight, innerWidth))
	}
	if endCol < numCols {
		columnViews = append(columnViews, scrollIndicator("▶", colContentHeight+2))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)
}

func scrollIndicator(arrow string, height int) string {
	return lipgloss.NewStyle().
		Width(2).
		Height(height).
		Foreground(lipgloss.Color("205")).
		Align(lipgloss.Center, lipgloss.Center).
		Render(arrow)
}

// renderColumn renders a single column. innerHeight excludes the border.
func (m BoardModel) renderColumn(colID string, selected bool, width, innerHeight, innerWidth int) string {
	ids := m.filtered[colID]

	headerText := fmt.Sprintf("%s (%d)", m.columnNames[colID], len(ids))
	if len(headerText) > innerWidth {
		headerText = headerText[:innerWidth-1] + "…"
	}

	scrollOffset := m.scrollOffset[colID]
	selectedIdx := m.selectedCard[colID]

	// One line for the header
	slots := innerHeight - 1
	if slots < 1 {
		slots = 1
	}
	if scrollOffset > 0 {
		slots--
	}
	endIdx := min(scrollOffset+slots, len(ids))
	needDown := endIdx < len(ids)
	if needDown {
		endIdx = min(scrollOffset+slots-1, len(ids))
	}

	lines := []string{columnHeaderStyle.Render(headerText)}
	if scrollOffset > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↑ %d more", scrollOffset)))
	}

	for i := scrollOffset; i < endIdx; i++ {
		row, ok := m.rows[ids[i]]
		if !ok {
			continue
		}
		text := m.formatCardText(row, innerWidth-2) // "> " or "  " prefix
		if selected && i == selectedIdx {
			lines = append(lines, selectedCardStyle.Render("> "+text))
		} else {
			lines = append(lines, cardStyle.Render("  "+text))
		}
	}

	if remaining := len(ids) - endIdx; needDown && remaining > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↓ %d more", remaining)))
	}
	if len(ids) == 0 {
		lines = append(lines, dimStyle.Render("(empty)"))
	}

	borderColor := lipgloss.Color("240")
	if selected {
		borderColor = lipgloss.Color("205")
	}

	// Height sets the content area; the border adds 2 lines. MaxHeight would
	// cut the border off.
	colStyle := lipgloss.NewStyle().
		Width(width - 2).
		Height(innerHeight).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor)

	return colStyle.Render(strings.Join(lines, "\n"))
}

// formatCardText renders the project name with its progress right-aligned and
// colored by deadline status.
func (m BoardModel) formatCardText(row flatten.ProjectRow, maxWidth int) string {
	title := row.Name
	suffix := fmt.Sprintf("%d%%", row.ProgressPercent)
	if row.DaysToDeadline != nil && !row.State.Terminal() {
		suffix = fmt.Sprintf("%dd %s", *row.DaysToDeadline, suffix)
	}

	available := maxWidth - len(suffix) - 1
	if available < 5 {
		available = 5
	}
	if len(title) > available {
		title = title[:available-1] + "…"
	}

	padding := maxWidth - len(title) - len(suffix)
	if padding < 1 {
		padding = 1
	}

	style, ok := deadlineStyles[row.DeadlineStatus]
	if !ok {
		style = dimStyle
	}
	return title + strings.Repeat(" ", padding) + style.Render(suffix)
}

// rebuild recomputes rows, metrics and columns from the store.
func (m *BoardModel) rebuild() {
	now := m.now()

	m.errorToast = ""
	m.rows = make(map[string]flatten.ProjectRow)
	ds, err := m.store.Dataset()
	if err != nil {
		m.columns = nil
		return
	}
	rows, err := flatten.Dataset(ds, now)
	if err != nil {
		m.logger.Warn("Failed to flatten dataset", zap.Error(err))
		m.errorToast = err.Error()
		return
	}
	for _, r := range rows.Projects {
		m.rows[r.ID] = r
	}
	m.snapshot = analytics.Compute(rows.Projects, rows.Issues, rows.Teams, m.scope.analytics(), now)

	m.rebuildColumns()
	m.applyFilter()
}

// rebuildColumns lays out one column per team for all teams, or one per
// project state for a single team.
func (m *BoardModel) rebuildColumns() {
	m.columns = []string{}
	m.columnNames = make(map[string]string)
	m.columnProjects = make(map[string][]string)
	m.teamID = ""

	add := func(id, name string, projects []domain.Project) {
		m.columns = append(m.columns, id)
		m.columnNames[id] = name
		ids := make([]string, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
		m.columnProjects[id] = ids
	}

	if m.scope.analytics().IsAllTeams() {
		for _, t := range m.store.Teams() {
			projects, err := m.store.ProjectsForTeam(t.ID, m.scope.Mode)
			if err != nil {
				m.errorToast = err.Error()
				continue
			}
			add(t.ID, t.Name, projects)
		}
		if m.scope.Mode == store.ModeExclude {
			if shared := store.Shared(m.store.Projects()); len(shared) > 0 {
				add(sharedColumnKey, "Shared", shared)
			}
		}
		if ids := m.store.ColumnProjectIDs(store.NoTeamKey); len(ids) > 0 {
			m.columns = append(m.columns, store.NoTeamKey)
			m.columnNames[store.NoTeamKey] = "No Team"
			m.columnProjects[store.NoTeamKey] = ids
		}
	} else {
		team, err := m.store.TeamByName(m.scope.Team)
		if err != nil {
			m.errorToast = err.Error()
		} else {
			m.teamID = team.ID
			projects, err := m.store.ProjectsForTeam(team.ID, m.scope.Mode)
			if err != nil {
				m.errorToast = err.Error()
			}
			for _, col := range stateColumns {
				var inState []domain.Project
				for _, p := range projects {
					if p.State == col.state {
						inState = append(inState, p)
					}
				}
				add(string(col.state), col.name, inState)
			}
		}
	}

	if m.selectedColumn >= len(m.columns) {
		m.selectedColumn = 0
		m.columnOffset = 0
	}
}

// applyFilter narrows each column to projects in the date range that match
// the text filter and, when enabled, the at-risk filter.
func (m *BoardModel) applyFilter() {
	now := m.now()
	needle := strings.ToLower(m.filterText)
	rng := analytics.Scope{Range: m.scope.Range}

	m.filtered = make(map[string][]string, len(m.columns))
	for _, colID := range m.columns {
		shown := []string{}
		for _, id := range m.columnProjects[colID] {
			row, ok := m.rows[id]
			if !ok || !rng.MatchProject(row, now) {
				continue
			}
			if needle != "" && !strings.Contains(strings.ToLower(row.Name), needle) {
				continue
			}
			if m.atRiskOnly && !analytics.IsAtRisk(row) {
				continue
			}
			shown = append(shown, id)
		}
		m.filtered[colID] = shown
	}

	// Reset scroll and clamp selection
	for colID, ids := range m.filtered {
		m.scrollOffset[colID] = 0
		if m.selectedCard[colID] >= len(ids) {
			m.selectedCard[colID] = max(len(ids)-1, 0)
		}
	}
}

// moveCardSelection moves the selection up or down by delta
func (m *BoardModel) moveCardSelection(delta int) {
	if len(m.columns) == 0 {
		return
	}
	colID := m.columns[m.selectedColumn]
	ids := m.filtered[colID]
	if len(ids) == 0 {
		return
	}

	idx := m.selectedCard[colID] + delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(ids) {
		idx = len(ids) - 1
	}

	m.selectedCard[colID] = idx
	m.adjustScroll(colID)
}

// jumpToCard jumps to a specific index. -1 jumps to the last project.
func (m *BoardModel) jumpToCard(idx int) {
	if len(m.columns) == 0 {
		return
	}
	colID := m.columns[m.selectedColumn]
	ids := m.filtered[colID]
	if len(ids) == 0 {
		return
	}

	if idx < 0 || idx >= len(ids) {
		idx = len(ids) - 1
	}
	m.selectedCard[colID] = idx
	m.adjustScroll(colID)
}

// adjustScroll keeps the selected card visible
func (m *BoardModel) adjustScroll(colID string) {
	selectedIdx := m.selectedCard[colID]

	contentHeight := m.height - headerLines - 2 // column borders
	if m.filterMode {
		contentHeight--
	}
	visible := contentHeight - 3 // header + scroll indicators
	if visible < 3 {
		visible = 3
	}

	if selectedIdx < m.scrollOffset[colID] {
		m.scrollOffset[colID] = selectedIdx
	}
	if selectedIdx >= m.scrollOffset[colID]+visible {
		m.scrollOffset[colID] = selectedIdx - visible + 1
	}
}

// adjustColumnScroll keeps the selected column visible
func (m *BoardModel) adjustColumnScroll() {
	if len(m.columns) == 0 || m.width == 0 {
		return
	}

	visibleCols := m.width / minColumnWidth
	if visibleCols < 1 {
		visibleCols = 1
	}
	if visibleCols > len(m.columns) {
		visibleCols = len(m.columns)
	}

	if m.selectedColumn < m.columnOffset {
		m.columnOffset = m.selectedColumn
	}
	if m.selectedColumn >= m.columnOffset+visibleCols {
		m.columnOffset = m.selectedColumn - visibleCols + 1
	}
}

// selectedProject returns the project under the cursor.
func (m BoardModel) selectedProject() (domain.Project, bool) {
	if len(m.columns) == 0 {
		return domain.Project{}, false
	}
	colID := m.columns[m.selectedColumn]
	ids := m.filtered[colID]
	if len(ids) == 0 {
		return domain.Project{}, false
	}

	idx := m.selectedCard[colID]
	if idx >= len(ids) {
		idx = 0
	}
	p, err := m.store.Project(ids[idx])
	if err != nil {
		return domain.Project{}, false
	}
	return p, true
}

// setScope changes what the board shows and rebuilds it.
func (m *BoardModel) setScope(scope boardScope) {
	m.scope = scope
	m.selectedColumn = 0
	m.columnOffset = 0
	m.selectedCard = make(map[string]int)
	m.scrollOffset = make(map[string]int)
	m.rebuild()
}

// refetch reloads the whole workspace in the background.
func (m BoardModel) refetch() tea.Cmd {
	client, ctx, now := m.client, m.ctx, m.now
	return func() tea.Msg {
		if client == nil {
			return refreshedMsg{err: fmt.Errorf("no Linear client")}
		}
		ds, err := client.FetchAll(ctx)
		return refreshedMsg{ds: ds, fetchedAt: now(), err: err}
	}
}
