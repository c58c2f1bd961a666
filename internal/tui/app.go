package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/flatten"
	"github.com/robby/linearpulse/internal/store"
)

// AppScreen represents the different screens in the application flow.
type AppScreen int

const (
	ScreenLoading AppScreen = iota
	ScreenTeamPicker
	ScreenRangePicker
	ScreenModePicker
	ScreenBoard
	ScreenDetail
)

// Options pre-fills the dashboard from command-line flags.
type Options struct {
	Team   string // team name or "all"; empty shows the team picker
	Range  analytics.DateRange
	Mode   store.TeamMode
	Logger *zap.Logger
	Now    func() time.Time
}

// AppModel is the root Bubble Tea model that manages screen transitions.
// It orchestrates the flow from loading -> team selection -> board -> detail.
type AppModel struct {
	// Dependencies
	client Client
	store  *store.Store
	ctx    context.Context
	logger *zap.Logger
	now    func() time.Time

	teamFlag string
	scope    boardScope

	// Current state
	currentScreen AppScreen
	currentModel  tea.Model
	err           error
	loadingMsg    string

	// Cached models to preserve state across screen transitions
	boardModel *BoardModel
}

// NewAppModel creates the dashboard.
func NewAppModel(client Client, s *store.Store, ctx context.Context, opts Options) AppModel {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Mode == "" {
		opts.Mode = store.ModeAll
	}
	return AppModel{
		client:        client,
		store:         s,
		ctx:           ctx,
		logger:        opts.Logger,
		now:           opts.Now,
		teamFlag:      opts.Team,
		scope:         boardScope{Team: analytics.AllTeams, Range: opts.Range, Mode: opts.Mode},
		currentScreen: ScreenLoading,
		loadingMsg:    "Fetching teams, projects and issues from Linear...",
	}
}

// Init starts the initial fetch.
func (m AppModel) Init() tea.Cmd {
	return m.fetchData()
}

// Update handles messages and transitions between screens.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.currentScreen != ScreenBoard {
			return m, tea.Quit
		}

	case ErrorMsg:
		m.logger.Error("Dashboard error", zap.Error(msg.Err))
		m.err = msg.Err
		return m, nil

	case QuitMsg:
		return m, tea.Quit

	case dataLoadedMsg:
		m.store.Load(msg.ds, msg.fetchedAt)
		m.logger.Info("Workspace loaded",
			zap.Int("teams", len(msg.ds.Teams)),
			zap.Int("projects", len(msg.ds.Projects)),
			zap.Int("issues", len(msg.ds.Issues)),
		)

		if m.teamFlag == "" {
			return m.showTeamPicker(false)
		}
		team := m.teamFlag
		if team != analytics.AllTeams {
			t, err := m.store.TeamByName(team)
			if err != nil {
				m.err = fmt.Errorf("unknown team %q: %w", team, err)
				return m, nil
			}
			team = t.Name
		}
		return m.showBoard(team)

	case TeamSelectedMsg:
		return m.showBoard(msg.Team)

	case RangeSelectedMsg:
		m.scope.Range = msg.Range
		return m.returnToBoard()

	case ModeSelectedMsg:
		m.scope.Mode = msg.Mode
		return m.returnToBoard()

	case closePickerMsg:
		return m.returnToBoard()

	case changeTeamMsg:
		return m.showTeamPicker(true)

	case changeRangeMsg:
		m.currentScreen = ScreenRangePicker
		picker := NewRangePickerModel(m.scope.Range)
		m.currentModel = picker
		return m, picker.Init()

	case changeModeMsg:
		m.currentScreen = ScreenModePicker
		picker := NewModePickerModel(m.scope.Mode)
		m.currentModel = picker
		return m, picker.Init()

	case openDetailMsg:
		m.currentScreen = ScreenDetail
		detail := NewDetailModel(msg.project, msg.row, m.client, m.store, m.ctx)
		detail.now = m.now
		m.currentModel = detail
		return m, detail.Init()

	case closeDetailMsg:
		if m.boardModel == nil {
			return m.showTeamPicker(false)
		}
		m.currentScreen = ScreenBoard
		m.currentModel = *m.boardModel
		return m, tea.WindowSize()
	}

	// Delegate to current screen's model
	if m.currentModel != nil {
		var cmd tea.Cmd
		m.currentModel, cmd = m.currentModel.Update(msg)
		if m.currentScreen == ScreenBoard {
			if bm, ok := m.currentModel.(BoardModel); ok {
				m.boardModel = &bm
			}
		}
		return m, cmd
	}

	return m, nil
}

// View renders the current screen.
func (m AppModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v\n\nPress Ctrl+C to quit", m.err))
	}
	if m.currentModel != nil {
		return m.currentModel.View()
	}
	return m.loadingMsg + "\n\nPress Ctrl+C to quit"
}

func (m AppModel) showTeamPicker(canCancel bool) (tea.Model, tea.Cmd) {
	m.currentScreen = ScreenTeamPicker
	picker := NewTeamPickerModel(m.store, canCancel && m.boardModel != nil)
	m.currentModel = picker
	return m, picker.Init()
}

// showBoard scopes the board to team, reusing the cached board if there is one.
func (m AppModel) showBoard(team string) (tea.Model, tea.Cmd) {
	m.scope.Team = team
	m.currentScreen = ScreenBoard

	if m.boardModel != nil {
		m.boardModel.setScope(m.scope)
		m.currentModel = *m.boardModel
		return m, tea.WindowSize()
	}

	board := NewBoardModel(m.store, m.client, m.ctx, m.scope)
	board.logger = m.logger
	board.now = m.now
	(&board).rebuild()
	m.boardModel = &board
	m.currentModel = board
	return m, board.Init()
}

// returnToBoard applies the current scope to the cached board.
func (m AppModel) returnToBoard() (tea.Model, tea.Cmd) {
	if m.boardModel == nil {
		return m.showTeamPicker(false)
	}
	return m.showBoard(m.scope.Team)
}

// fetchData loads the whole workspace.
func (m AppModel) fetchData() tea.Cmd {
	client, ctx, now := m.client, m.ctx, m.now
	return func() tea.Msg {
		ds, err := client.FetchAll(ctx)
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("failed to fetch workspace: %w", err)}
		}
		return dataLoadedMsg{ds: ds, fetchedAt: now()}
	}
}

// Message types for app flow
type (
	dataLoadedMsg struct {
		ds        domain.Dataset
		fetchedAt time.Time
	}
	changeTeamMsg  struct{}
	changeRangeMsg struct{}
	changeModeMsg  struct{}
	openDetailMsg  struct {
		project domain.Project
		row     flatten.ProjectRow
	}
)
