package analytics

import (
	"math"
	"time"

	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/flatten"
)

// Period is an inclusive time window used by periodic reports.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t is inside the period. Unlike DateRange, a nil
// timestamp is never inside.
func (p Period) Contains(t *time.Time) bool {
	return t != nil && !t.Before(p.Start) && !t.After(p.End)
}

// containsHalfOpen is Contains with an exclusive end, for trend intervals.
func (p Period) containsHalfOpen(t *time.Time) bool {
	return t != nil && !t.Before(p.Start) && t.Before(p.End)
}

// ActiveInPeriod returns the projects created, updated or completed in the
// period, preserving order.
func ActiveInPeriod(projects []flatten.ProjectRow, p Period) []flatten.ProjectRow {
	var out []flatten.ProjectRow
	for _, r := range projects {
		if p.Contains(r.CreatedAt) || p.Contains(r.UpdatedAt) || p.Contains(r.CompletedAt) {
			out = append(out, r)
		}
	}
	return out
}

// CompletedInPeriod returns the projects completed in the period.
func CompletedInPeriod(projects []flatten.ProjectRow, p Period) []flatten.ProjectRow {
	var out []flatten.ProjectRow
	for _, r := range projects {
		if p.Contains(r.CompletedAt) {
			out = append(out, r)
		}
	}
	return out
}

// PeriodStats are the headline numbers of a periodic report.
type PeriodStats struct {
	TotalProjects     int `json:"totalProjects"`
	CompletedInPeriod int `json:"completedInPeriod"`
	CreatedInPeriod   int `json:"createdInPeriod"`
	ActiveInPeriod    int `json:"activeInPeriod"`
	CompletionRate    int `json:"completionRate"` // percent of all projects completed
}

// ComputePeriodStats derives PeriodStats from every project and the subset
// with activity in the period.
func ComputePeriodStats(all, active []flatten.ProjectRow, p Period) PeriodStats {
	s := PeriodStats{TotalProjects: len(all)}

	completed := 0
	for _, r := range all {
		if p.Contains(r.CompletedAt) {
			s.CompletedInPeriod++
		}
		if p.Contains(r.CreatedAt) {
			s.CreatedInPeriod++
		}
		if r.State == domain.ProjectCompleted {
			completed++
		}
	}

	for _, r := range active {
		if !r.State.Terminal() {
			s.ActiveInPeriod++
		}
	}

	s.CompletionRate = int(math.Round(safeDiv(float64(completed), float64(len(all))) * 100))
	return s
}

// TrendPoint counts projects completed and created in one interval.
type TrendPoint struct {
	Label     string `json:"label"`
	Completed int    `json:"completed"`
	Created   int    `json:"created"`
}

// Interval is a labelled half-open window [Start, End).
type Interval struct {
	Label string
	Period
}

// Trend counts completions and creations per interval.
func Trend(projects []flatten.ProjectRow, intervals []Interval) []TrendPoint {
	points := make([]TrendPoint, len(intervals))
	for n, iv := range intervals {
		points[n].Label = iv.Label
		for _, r := range projects {
			if iv.containsHalfOpen(r.CompletedAt) {
				points[n].Completed++
			}
			if iv.containsHalfOpen(r.CreatedAt) {
				points[n].Created++
			}
		}
	}
	return points
}

// TeamActivity is one team's completed and created project counts in a period.
type TeamActivity struct {
	Team      string `json:"team"`
	Completed int    `json:"completed"`
	Created   int    `json:"created"`
}

// CompareTeams counts, per team, projects completed and created in the
// period. Teams are matched by ID and reported in the given order.
func CompareTeams(projects []flatten.ProjectRow, teams []flatten.TeamRow, p Period) []TeamActivity {
	out := make([]TeamActivity, 0, len(teams))
	for _, t := range teams {
		a := TeamActivity{Team: t.Name}
		for _, r := range projects {
			if !hasTeamID(r, t.ID) {
				continue
			}
			if p.Contains(r.CompletedAt) {
				a.Completed++
			}
			if p.Contains(r.CreatedAt) {
				a.Created++
			}
		}
		out = append(out, a)
	}
	return out
}

func hasTeamID(r flatten.ProjectRow, id string) bool {
	for _, tid := range r.TeamIDs {
		if tid == id {
			return true
		}
	}
	return false
}
