package analytics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robby/linearpulse/internal/flatten"
)

// AllTeams is the team filter value that matches every team.
const AllTeams = "all"

// ErrInvalidRange is returned by ParseRange for unknown presets or bad dates.
var ErrInvalidRange = errors.New("invalid date range")

// RangePresets are the day counts accepted by ParseRange.
var RangePresets = []int{7, 30, 90, 180, 365}

// DefaultRangeDays is used when no range is given.
const DefaultRangeDays = 30

// DateRange selects records by their created or updated timestamps.
// The zero value matches everything.
type DateRange struct {
	// Days, when positive, keeps records no older than Days before now.
	Days int
	// Start and End bound a custom range. Either may be nil (unbounded).
	Start *time.Time
	End   *time.Time
	// custom distinguishes an explicit custom range from "all".
	custom bool
}

// LastDays returns a preset range covering the n days before now.
func LastDays(n int) DateRange {
	return DateRange{Days: n}
}

// AllTime returns a range that matches every record.
func AllTime() DateRange {
	return DateRange{}
}

// Between returns a custom range. Nil bounds are open.
func Between(start, end *time.Time) DateRange {
	return DateRange{Start: start, End: end, custom: true}
}

// String renders the range the way ParseRange accepts it.
func (r DateRange) String() string {
	switch {
	case r.Days > 0:
		return fmt.Sprintf("%ddays", r.Days)
	case r.custom:
		return "custom"
	default:
		return "all"
	}
}

// Contains reports whether t falls inside the range evaluated at now.
// A nil timestamp is always in range.
func (r DateRange) Contains(t *time.Time, now time.Time) bool {
	if t == nil {
		return true
	}

	if r.Days > 0 {
		cutoff := now.AddDate(0, 0, -r.Days)
		return !t.Before(cutoff)
	}

	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// Includes reports whether a record with the given created and updated
// timestamps is in range. Either timestamp being in range is enough.
func (r DateRange) Includes(createdAt, updatedAt *time.Time, now time.Time) bool {
	return r.Contains(createdAt, now) || r.Contains(updatedAt, now)
}

// ParseRange parses a range preset ("7days", "30", "all", "custom").
// For "custom", start and end are optional YYYY-MM-DD or RFC3339 strings; a
// date-only end includes that whole day. An empty preset yields the default
// 30-day range.
func ParseRange(preset, start, end string) (DateRange, error) {
	preset = strings.ToLower(strings.TrimSpace(preset))

	switch preset {
	case "":
		return LastDays(DefaultRangeDays), nil
	case "all":
		return AllTime(), nil
	case "custom":
		s, err := parseBound(start, false)
		if err != nil {
			return DateRange{}, err
		}
		e, err := parseBound(end, true)
		if err != nil {
			return DateRange{}, err
		}
		if s != nil && e != nil && e.Before(*s) {
			return DateRange{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end, start)
		}
		return Between(s, e), nil
	}

	n, err := strconv.Atoi(strings.TrimSuffix(preset, "days"))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, preset)
	}
	for _, p := range RangePresets {
		if p == n {
			return LastDays(n), nil
		}
	}
	return DateRange{}, fmt.Errorf("%w: unsupported preset %q", ErrInvalidRange, preset)
}

func parseBound(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidRange, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// Scope is the (team, date range) pair a snapshot is computed for.
type Scope struct {
	Team  string
	Range DateRange
}

// IsAllTeams reports whether the scope matches every team.
func (s Scope) IsAllTeams() bool {
	return s.Team == "" || s.Team == AllTeams
}

// MatchProject reports whether a project row is in scope. Projects match a
// team when any of their teams has exactly that name.
func (s Scope) MatchProject(p flatten.ProjectRow, now time.Time) bool {
	if !s.IsAllTeams() && !p.HasTeam(s.Team) {
		return false
	}
	return s.Range.Includes(p.CreatedAt, p.UpdatedAt, now)
}

// MatchIssue reports whether an issue row is in scope. Issues belong to a
// single team.
func (s Scope) MatchIssue(i flatten.IssueRow, now time.Time) bool {
	if !s.IsAllTeams() && i.TeamName != s.Team {
		return false
	}
	return s.Range.Includes(i.CreatedAt, i.UpdatedAt, now)
}

// FilterProjects returns the project rows in scope, preserving order.
func (s Scope) FilterProjects(rows []flatten.ProjectRow, now time.Time) []flatten.ProjectRow {
	out := make([]flatten.ProjectRow, 0, len(rows))
	for _, r := range rows {
		if s.MatchProject(r, now) {
			out = append(out, r)
		}
	}
	return out
}

// FilterIssues returns the issue rows in scope, preserving order.
func (s Scope) FilterIssues(rows []flatten.IssueRow, now time.Time) []flatten.IssueRow {
	out := make([]flatten.IssueRow, 0, len(rows))
	for _, r := range rows {
		if s.MatchIssue(r, now) {
			out = append(out, r)
		}
	}
	return out
}
