// Package flatten turns nested Linear records into flat rows carrying the
// derived fields every presenter needs: progress percent, deadline status,
// days to deadline, cycle time and age.
//
// All functions are pure over their inputs and the supplied "now".
package flatten

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robby/linearpulse/internal/domain"
)

// ErrMissingIdentity is returned when a record has no id or no name/title.
var ErrMissingIdentity = errors.New("record is missing id or name")

// DeadlineStatus classifies a project relative to its target date.
type DeadlineStatus string

const (
	StatusNoDeadline          DeadlineStatus = "No Deadline"
	StatusOverdue             DeadlineStatus = "Overdue"
	StatusDueSoon             DeadlineStatus = "Due Soon"
	StatusOnTrack             DeadlineStatus = "On Track"
	StatusCompletedOrCanceled DeadlineStatus = "Completed/Canceled"
)

// DueSoonDays is the inclusive window, in days, for StatusDueSoon.
const DueSoonDays = 7

const day = 24 * time.Hour

// ProjectRow is a flattened project.
type ProjectRow struct {
	ID              string              `json:"ProjectId"`
	Name            string              `json:"ProjectName"`
	Description     string              `json:"ProjectDescription"`
	URL             string              `json:"Url,omitempty"`
	State           domain.ProjectState `json:"State"`
	ProgressPercent int                 `json:"ProgressPercent"`
	StartDate       *time.Time          `json:"StartDate"`
	TargetDate      *time.Time          `json:"TargetDate"`
	CreatedAt       *time.Time          `json:"CreatedAt"`
	UpdatedAt       *time.Time          `json:"UpdatedAt"`
	CompletedAt     *time.Time          `json:"CompletedAt"`
	CanceledAt      *time.Time          `json:"CanceledAt"`
	TeamNames       []string            `json:"TeamNames"`
	TeamIDs         []string            `json:"TeamIds"`
	LeadName        string              `json:"LeadName"`
	LeadEmail       string              `json:"LeadEmail"`
	MemberCount     int                 `json:"MemberCount"`
	DaysToDeadline  *int                `json:"DaysToDeadline"`
	DeadlineStatus  DeadlineStatus      `json:"DeadlineStatus"`
	DurationDays    *int                `json:"DurationDays"`
}

// HasTeam reports whether the project belongs to the named team.
func (r ProjectRow) HasTeam(name string) bool {
	for _, n := range r.TeamNames {
		if n == name {
			return true
		}
	}
	return false
}

// IssueRow is a flattened issue.
type IssueRow struct {
	ID             string           `json:"IssueId"`
	Identifier     string           `json:"Identifier"`
	Title          string           `json:"IssueTitle"`
	StateName      string           `json:"StateName"`
	StateType      domain.StateType `json:"StateType"`
	Priority       int              `json:"Priority"`
	PriorityLabel  string           `json:"PriorityLabel"`
	Estimate       float64          `json:"Estimate"`
	CreatedAt      *time.Time       `json:"CreatedAt"`
	UpdatedAt      *time.Time       `json:"UpdatedAt"`
	CompletedAt    *time.Time       `json:"CompletedAt"`
	CanceledAt     *time.Time       `json:"CanceledAt"`
	AssigneeName   string           `json:"AssigneeName"`
	CreatorName    string           `json:"CreatorName"`
	TeamID         string           `json:"TeamId"`
	TeamName       string           `json:"TeamName"`
	TeamKey        string           `json:"TeamKey"`
	ProjectID      string           `json:"ProjectId"`
	ProjectName    string           `json:"ProjectName"`
	Labels         []string         `json:"Labels"`
	DaysToComplete *int             `json:"DaysToComplete"`
	AgeDays        *int             `json:"AgeDays"`
}

// Completed reports whether the issue is in a completed state.
func (r IssueRow) Completed() bool {
	return r.StateType == domain.StateCompleted
}

// TeamRow is a flattened team.
type TeamRow struct {
	ID          string `json:"TeamId" csv:"TeamId"`
	Name        string `json:"TeamName" csv:"TeamName"`
	Key         string `json:"TeamKey" csv:"TeamKey"`
	Description string `json:"TeamDescription" csv:"TeamDescription"`
	Color       string `json:"TeamColor" csv:"TeamColor"`
}

// DaysBetween returns ceil((to-from)/24h). A partial day counts as a whole one.
func DaysBetween(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}

// ProgressPercent converts Linear's 0..1 progress fraction to a whole percent
// in [0,100].
func ProgressPercent(fraction float64) int {
	switch {
	case math.IsNaN(fraction), fraction <= 0:
		return 0
	case fraction >= 1:
		return 100
	}
	return int(math.Round(fraction * 100))
}

// DeadlineStatusFor classifies a project and returns the signed number of days
// until target. The day count is reported whenever a target exists, including
// for completed or canceled projects.
func DeadlineStatusFor(state domain.ProjectState, target *time.Time, now time.Time) (DeadlineStatus, *int) {
	var days *int
	if target != nil {
		d := DaysBetween(now, *target)
		days = &d
	}

	switch {
	case state.Terminal():
		return StatusCompletedOrCanceled, days
	case days == nil:
		return StatusNoDeadline, nil
	case *days < 0:
		return StatusOverdue, days
	case *days <= DueSoonDays:
		return StatusDueSoon, days
	default:
		return StatusOnTrack, days
	}
}

// Project flattens p relative to now.
func Project(p domain.Project, now time.Time) (ProjectRow, error) {
	if p.ID == "" || p.Name == "" {
		return ProjectRow{}, fmt.Errorf("project %q: %w", p.ID, ErrMissingIdentity)
	}

	row := ProjectRow{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		URL:             p.URL,
		State:           p.State,
		ProgressPercent: ProgressPercent(p.Progress),
		StartDate:       p.StartDate,
		TargetDate:      p.TargetDate,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		CompletedAt:     p.CompletedAt,
		CanceledAt:      p.CanceledAt,
		TeamNames:       p.TeamNames(),
		TeamIDs:         make([]string, 0, len(p.Teams)),
		MemberCount:     len(p.Members),
	}

	for _, t := range p.Teams {
		row.TeamIDs = append(row.TeamIDs, t.ID)
	}

	if p.Lead != nil {
		row.LeadName = p.Lead.Name
		row.LeadEmail = p.Lead.Email
	}

	row.DeadlineStatus, row.DaysToDeadline = DeadlineStatusFor(p.State, p.TargetDate, now)

	if p.StartDate != nil && p.TargetDate != nil {
		d := DaysBetween(*p.StartDate, *p.TargetDate)
		row.DurationDays = &d
	}

	return row, nil
}

// Rederive recomputes the deadline fields of an already flattened row from
// its own state and target date.
func Rederive(row ProjectRow, now time.Time) ProjectRow {
	row.DeadlineStatus, row.DaysToDeadline = DeadlineStatusFor(row.State, row.TargetDate, now)
	return row
}

// Issue flattens i relative to now.
func Issue(i domain.Issue, now time.Time) (IssueRow, error) {
	if i.ID == "" || i.Title == "" {
		return IssueRow{}, fmt.Errorf("issue %q: %w", i.ID, ErrMissingIdentity)
	}

	row := IssueRow{
		ID:            i.ID,
		Identifier:    i.Identifier,
		Title:         i.Title,
		StateName:     i.StateName,
		StateType:     i.StateType,
		Priority:      i.Priority,
		PriorityLabel: domain.PriorityLabel(i.Priority),
		Estimate:      i.Estimate,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
		CompletedAt:   i.CompletedAt,
		CanceledAt:    i.CanceledAt,
		AssigneeName:  i.Assignee,
		CreatorName:   i.Creator,
		Labels:        make([]string, 0, len(i.Labels)),
	}

	if i.Team != nil {
		row.TeamID = i.Team.ID
		row.TeamName = i.Team.Name
		row.TeamKey = i.Team.Key
	}
	if i.Project != nil {
		row.ProjectID = i.Project.ID
		row.ProjectName = i.Project.Name
	}
	for _, l := range i.Labels {
		row.Labels = append(row.Labels, l.Name)
	}

	if i.CreatedAt != nil {
		age := DaysBetween(*i.CreatedAt, now)
		row.AgeDays = &age

		if i.CompletedAt != nil {
			d := DaysBetween(*i.CreatedAt, *i.CompletedAt)
			row.DaysToComplete = &d
		}
	}

	return row, nil
}

// Team flattens t.
func Team(t domain.Team) (TeamRow, error) {
	if t.ID == "" || t.Name == "" {
		return TeamRow{}, fmt.Errorf("team %q: %w", t.ID, ErrMissingIdentity)
	}
	return TeamRow{
		ID:          t.ID,
		Name:        t.Name,
		Key:         t.Key,
		Description: t.Description,
		Color:       t.Color,
	}, nil
}

// Projects flattens every project, stopping at the first integrity error.
func Projects(projects []domain.Project, now time.Time) ([]ProjectRow, error) {
	rows := make([]ProjectRow, 0, len(projects))
	for _, p := range projects {
		row, err := Project(p, now)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Issues flattens every issue, stopping at the first integrity error.
func Issues(issues []domain.Issue, now time.Time) ([]IssueRow, error) {
	rows := make([]IssueRow, 0, len(issues))
	for _, i := range issues {
		row, err := Issue(i, now)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Teams flattens every team, stopping at the first integrity error.
func Teams(teams []domain.Team) ([]TeamRow, error) {
	rows := make([]TeamRow, 0, len(teams))
	for _, t := range teams {
		row, err := Team(t)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Rows is a fully flattened dataset.
type Rows struct {
	Projects []ProjectRow
	Issues   []IssueRow
	Teams    []TeamRow
}

// Dataset flattens a full fetch.
func Dataset(ds domain.Dataset, now time.Time) (Rows, error) {
	projects, err := Projects(ds.Projects, now)
	if err != nil {
		return Rows{}, err
	}
	issues, err := Issues(ds.Issues, now)
	if err != nil {
		return Rows{}, err
	}
	teams, err := Teams(ds.Teams)
	if err != nil {
		return Rows{}, err
	}
	return Rows{Projects: projects, Issues: issues, Teams: teams}, nil
}
