package tui

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/browser"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/flatten"
	"github.com/robby/linearpulse/internal/store"
)

// Layout constants
const (
	leftPanelRatio = 0.35 // Left panel takes 35% of width
	minLeftWidth   = 30
	maxLeftWidth   = 50
	headerHeight   = 1
	footerHeight   = 1
	borderSize     = 2 // Top + bottom border
)

// Detail view styles
var (
	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	issueKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	focusedPanelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205"))

	scrollIndicatorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205"))
)

// issueStateOrder groups the issue list; unknown types sort last.
var issueStateOrder = map[domain.StateType]int{
	domain.StateStarted:   0,
	domain.StateUnstarted: 1,
	domain.StateCompleted: 3,
	domain.StateCanceled:  4,
}

// DetailModel shows one project: metadata on the left, description and
// issues on the right.
type DetailModel struct {
	// Dependencies
	client Client
	store  *store.Store
	ctx    context.Context
	now    func() time.Time

	project domain.Project
	row     flatten.ProjectRow
	issues  []flatten.IssueRow
	summary analytics.ProjectSummary

	// UI components
	spinner  spinner.Model
	viewport viewport.Model

	loadingIssues bool
	issuesError   string
	errorMsg      string

	width  int
	height int
}

// NewDetailModel creates a detail view for p. Issues already cached in s are
// shown immediately; otherwise they are fetched on Init.
func NewDetailModel(p domain.Project, row flatten.ProjectRow, client Client, s *store.Store, ctx context.Context) DetailModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(40, 10) // Will be resized in WindowSizeMsg
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	m := DetailModel{
		client:   client,
		store:    s,
		ctx:      ctx,
		now:      time.Now,
		project:  p,
		row:      row,
		spinner:  sp,
		viewport: vp,
	}
	if p.Issues != nil {
		m.setProject(p)
	} else {
		m.loadingIssues = true
	}
	return m
}

// Init initializes the detail model
func (m DetailModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, tea.WindowSize()}
	if m.loadingIssues {
		cmds = append(cmds, m.loadIssues())
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m DetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeComponents()
		return m, nil

	case spinner.TickMsg:
		if !m.loadingIssues {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case issuesLoadedMsg:
		m.loadingIssues = false
		if m.store != nil {
			m.store.UpsertProject(msg.project)
		}
		m.setProject(msg.project)
		return m, nil

	case issuesErrorMsg:
		m.loadingIssues = false
		m.issuesError = msg.err.Error()
		m.updateViewportContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// setProject stores the detailed project and derives its issue rows.
func (m *DetailModel) setProject(p domain.Project) {
	m.project = p
	m.summary = analytics.SummarizeProject(p)

	rows, err := flatten.Issues(p.Issues, m.now())
	if err != nil {
		m.issuesError = err.Error()
		rows = nil
	}
	sortIssueRows(rows)
	m.issues = rows
	m.updateViewportContent()
}

// sortIssueRows orders by state group, then by priority with urgent first and
// "no priority" last.
func sortIssueRows(rows []flatten.IssueRow) {
	rank := func(r flatten.IssueRow) (int, int) {
		state, ok := issueStateOrder[r.StateType]
		if !ok {
			state = 2
		}
		prio := r.Priority
		if prio == domain.PriorityNone {
			prio = domain.PriorityLow + 1
		}
		return state, prio
	}
	slices.SortStableFunc(rows, func(a, b flatten.IssueRow) int {
		sa, pa := rank(a)
		sb, pb := rank(b)
		if c := cmp.Compare(sa, sb); c != 0 {
			return c
		}
		return cmp.Compare(pa, pb)
	})
}

// resizeComponents calculates and sets component dimensions
func (m *DetailModel) resizeComponents() {
	leftWidth := int(float64(m.width) * leftPanelRatio)
	if leftWidth < minLeftWidth {
		leftWidth = minLeftWidth
	}
	if leftWidth > maxLeftWidth {
		leftWidth = maxLeftWidth
	}

	rightWidth := m.width - leftWidth - 3 // gap between panels
	if rightWidth < 30 {
		rightWidth = 30
	}

	contentHeight := m.height - headerHeight - footerHeight - borderSize
	if contentHeight < 10 {
		contentHeight = 10
	}

	m.viewport.Width = rightWidth - borderSize - 2 // padding
	m.viewport.Height = contentHeight - borderSize - 1
	m.updateViewportContent()
}

// handleKeyPress processes keyboard input
func (m DetailModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		return m, func() tea.Msg { return closeDetailMsg{} }
	case "o":
		if m.project.URL != "" {
			if err := browser.OpenURL(m.project.URL); err != nil {
				m.errorMsg = fmt.Sprintf("Open failed: %v", err)
			}
		}
	case "j", "down":
		m.viewport.LineDown(1)
	case "k", "up":
		m.viewport.LineUp(1)
	case "ctrl+d":
		m.viewport.HalfViewDown()
	case "ctrl+u":
		m.viewport.HalfViewUp()
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	}

	return m, nil
}

// View renders the split-screen detail view
func (m DetailModel) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 30
	}

	leftWidth := int(float64(width) * leftPanelRatio)
	if leftWidth < minLeftWidth {
		leftWidth = minLeftWidth
	}
	if leftWidth > maxLeftWidth {
		leftWidth = maxLeftWidth
	}
	rightWidth := width - leftWidth - 1 // 1 char gap

	contentHeight := height - headerHeight - footerHeight
	if contentHeight < 10 {
		contentHeight = 10
	}

	header := dimStyle.Render("[q]back [o]open [j/k]scroll [g/G]top/bottom")

	leftPanel := panelBorderStyle.
		Width(leftWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderLeftPanel(leftWidth - borderSize))

	rightPanel := focusedPanelBorderStyle.
		Width(rightWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderRightPanel())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, " ", rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, panels, m.renderFooter(width))
}

// renderFooter renders the bottom status bar
func (m DetailModel) renderFooter(width int) string {
	var left, right string

	switch {
	case m.loadingIssues:
		left = m.spinner.View() + " Loading issues..."
	case m.errorMsg != "":
		left = errorStyle.Render("✗ " + m.errorMsg)
	case m.project.UpdatedAt != nil:
		left = "updated " + formatTimeAgo(m.project.UpdatedAt, m.now())
	}

	if m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			right = "TOP"
		case m.viewport.AtBottom():
			right = "END"
		default:
			right = fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
		}
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return dimStyle.Render(left) + strings.Repeat(" ", padding) + dimStyle.Render(right)
}

// renderLeftPanel renders the project metadata panel
func (m DetailModel) renderLeftPanel(width int) string {
	var b strings.Builder

	field := func(label, value string) {
		if value == "" {
			return
		}
		if len(value) > width-len(label)-1 && width-len(label)-4 > 0 {
			value = value[:width-len(label)-4] + "..."
		}
		b.WriteString(detailLabelStyle.Render(label + " "))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteString("\n")
	}

	b.WriteString(detailLabelStyle.Render("Project"))
	b.WriteString("\n\n")
	b.WriteString(detailTitleStyle.Render(wordwrap.String(m.project.Name, width-2)))
	b.WriteString("\n\n")

	field("State:", string(m.row.State))
	field("Progress:", fmt.Sprintf("%d%%", m.row.ProgressPercent))
	field("Start:", formatDate(m.row.StartDate))
	field("Target:", formatDate(m.row.TargetDate))

	deadline := string(m.row.DeadlineStatus)
	if m.row.DaysToDeadline != nil && !m.row.State.Terminal() {
		deadline = fmt.Sprintf("%s (%s)", deadline, daysLeftText(*m.row.DaysToDeadline))
	}
	b.WriteString(detailLabelStyle.Render("Deadline: "))
	style, ok := deadlineStyles[m.row.DeadlineStatus]
	if !ok {
		style = detailValueStyle
	}
	b.WriteString(style.Render(deadline))
	b.WriteString("\n")

	field("Teams:", strings.Join(m.row.TeamNames, ", "))
	field("Lead:", m.row.LeadName)
	if m.row.MemberCount > 0 {
		field("Members:", fmt.Sprintf("%d", m.row.MemberCount))
	}

	if !m.loadingIssues && m.issuesError == "" {
		b.WriteString("\n")
		field("Issues:", fmt.Sprintf("%d (%d done, %d in progress, %d todo)",
			m.summary.TotalIssues, m.summary.CompletedIssues, m.summary.InProgressIssues, m.summary.TodoIssues))
		if m.summary.TotalEstimate > 0 {
			field("Estimate:", fmt.Sprintf("%.0f/%.0f pts (%.0f%%)",
				m.summary.CompletedEstimate, m.summary.TotalEstimate, m.summary.EstimateProgress))
		}
	}

	return b.String()
}

// renderRightPanel renders the description and issues viewport
func (m DetailModel) renderRightPanel() string {
	var b strings.Builder

	title := "Issues"
	if !m.loadingIssues {
		title = fmt.Sprintf("Issues (%d)", len(m.issues))
	}

	scrollHint := ""
	if m.viewport.TotalLineCount() > m.viewport.Height {
		switch {
		case m.viewport.AtTop():
			scrollHint = " ↓"
		case m.viewport.AtBottom():
			scrollHint = " ↑"
		default:
			scrollHint = " ↕"
		}
	}

	b.WriteString(detailLabelStyle.Render(title))
	b.WriteString(scrollIndicatorStyle.Render(scrollHint))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())

	return b.String()
}

// updateViewportContent formats the description and issue list
func (m *DetailModel) updateViewportContent() {
	var b strings.Builder
	wrapWidth := m.viewport.Width - 4
	if wrapWidth < 30 {
		wrapWidth = 30
	}

	if desc := strings.TrimSpace(m.project.Description); desc != "" {
		b.WriteString(detailLabelStyle.Render("Description"))
		b.WriteString("\n")
		b.WriteString(wordwrap.String(desc, wrapWidth))
		b.WriteString("\n\n")
	}

	switch {
	case m.loadingIssues:
		b.WriteString(m.spinner.View() + " Loading issues...")
	case m.issuesError != "":
		b.WriteString(errorStyle.Render("Error: " + m.issuesError))
	case len(m.issues) == 0:
		b.WriteString(dimStyle.Render("No issues"))
	default:
		var group string
		for _, r := range m.issues {
			if r.StateName != group {
				group = r.StateName
				b.WriteString("\n")
				b.WriteString(detailLabelStyle.Render("── " + group + " ──"))
				b.WriteString("\n")
			}
			b.WriteString(issueKeyStyle.Render(r.Identifier))
			b.WriteString(" ")
			b.WriteString(wordwrap.String(r.Title, wrapWidth-len(r.Identifier)-1))
			b.WriteString("\n")

			meta := []string{r.PriorityLabel}
			if r.AssigneeName != "" {
				meta = append(meta, r.AssigneeName)
			}
			if r.Estimate > 0 {
				meta = append(meta, fmt.Sprintf("%.0f pts", r.Estimate))
			}
			if r.UpdatedAt != nil {
				meta = append(meta, formatTimeAgo(r.UpdatedAt, m.now()))
			}
			b.WriteString("  ")
			b.WriteString(dimStyle.Render(strings.Join(meta, " • ")))
			b.WriteString("\n")
		}
	}

	m.viewport.SetContent(b.String())
}

// loadIssues fetches the project with its issues.
func (m DetailModel) loadIssues() tea.Cmd {
	client, ctx, id := m.client, m.ctx, m.project.ID
	return func() tea.Msg {
		if client == nil {
			return issuesErrorMsg{err: fmt.Errorf("no Linear client")}
		}
		p, err := client.Project(ctx, id)
		if err != nil {
			return issuesErrorMsg{err: err}
		}
		if p.Issues == nil {
			p.Issues = []domain.Issue{}
		}
		return issuesLoadedMsg{project: p}
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// daysLeftText renders a signed day count as "3 days left" or "2 days overdue".
func daysLeftText(days int) string {
	switch {
	case days == 0:
		return "due today"
	case days == 1:
		return "1 day left"
	case days > 1:
		return fmt.Sprintf("%d days left", days)
	case days == -1:
		return "1 day overdue"
	}
	return fmt.Sprintf("%d days overdue", -days)
}

// formatTimeAgo renders t relative to now, e.g. "3h ago".
func formatTimeAgo(t *time.Time, now time.Time) string {
	if t == nil {
		return ""
	}
	duration := now.Sub(*t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	case duration < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
	case duration < 30*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(duration.Hours()/24/7))
	case duration < 365*24*time.Hour:
		return fmt.Sprintf("%dmo ago", int(duration.Hours()/24/30))
	default:
		return fmt.Sprintf("%dy ago", int(duration.Hours()/24/365))
	}
}

// Message types for detail view
type (
	closeDetailMsg  struct{}
	issuesLoadedMsg struct{ project domain.Project }
	issuesErrorMsg  struct{ err error }
)
