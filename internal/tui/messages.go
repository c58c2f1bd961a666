// Package tui provides Bubble Tea models for the Linear terminal dashboard.
package tui

import (
	"context"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/store"
)

// Client is the part of the Linear client the dashboard uses.
type Client interface {
	FetchAll(ctx context.Context) (domain.Dataset, error)
	Project(ctx context.Context, id string) (domain.Project, error)
}

// TeamSelectedMsg is emitted when the user selects a team.
// Team is a team name or analytics.AllTeams.
type TeamSelectedMsg struct {
	Team string
}

// RangeSelectedMsg is emitted when the user selects a date range.
type RangeSelectedMsg struct {
	Range analytics.DateRange
}

// ModeSelectedMsg is emitted when the user selects a multi-team mode.
type ModeSelectedMsg struct {
	Mode store.TeamMode
}

// ErrorMsg is emitted when an error occurs.
type ErrorMsg struct {
	Err error
}

// QuitMsg is emitted when the user requests to quit.
type QuitMsg struct{}

// closePickerMsg returns from a picker to the board without a change.
type closePickerMsg struct{}
