// Package analytics computes per-scope metrics from flattened Linear rows:
// health score, velocity, cycle time, risk classifications, per-team
// breakdowns and the progress histogram.
package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/flatten"
)

// Classification thresholds.
const (
	BlockedAgeDays      = 30 // started issues older than this are blocked
	StuckProgress       = 20 // active projects below this percent are stuck
	AtRiskProgress      = 50
	AtRiskWindowDays    = 14
	HighProgressPercent = 80
)

// Health score weights. They sum to 100.
const (
	healthCompletedW  = 30.0
	healthEstimateW   = 30.0
	healthNotOverdueW = 20.0
	healthNotBlockedW = 20.0
)

// ProjectCounts counts projects by lifecycle state.
type ProjectCounts struct {
	Total     int `json:"total"`
	Active    int `json:"active"` // neither completed nor canceled
	Planned   int `json:"planned"`
	Started   int `json:"started"`
	Paused    int `json:"paused"`
	Completed int `json:"completed"`
	Canceled  int `json:"canceled"`
}

// IssueCounts counts issues by state type.
type IssueCounts struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Todo       int `json:"todo"`
	Canceled   int `json:"canceled"`
	Other      int `json:"other"` // backlog, triage and unknown
}

// TeamMetrics is the per-team breakdown inside a snapshot.
type TeamMetrics struct {
	ProjectCount   int     `json:"projects"`
	IssueCount     int     `json:"issues"`
	CompletedCount int     `json:"completed"`
	Velocity       float64 `json:"velocity"`
	AvgCycleTime   int     `json:"avgCycleTime"`
}

// Bucket is one bar of the progress histogram. Min is exclusive except for
// the first bucket; Max is inclusive.
type Bucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// Snapshot is the metrics view of one scope at one instant. It is built per
// request or report and never stored.
type Snapshot struct {
	Team        string    `json:"team"`
	Range       string    `json:"range"`
	GeneratedAt time.Time `json:"generatedAt"`

	Projects []flatten.ProjectRow `json:"projects"`
	Issues   []flatten.IssueRow   `json:"issues"`

	ProjectCounts ProjectCounts `json:"projectCounts"`
	IssueCounts   IssueCounts   `json:"issueCounts"`

	TotalEstimate     float64 `json:"totalEstimate"`
	CompletedEstimate float64 `json:"completedEstimate"`

	HealthScore  int     `json:"healthScore"`
	Velocity     float64 `json:"velocity"`
	AvgCycleTime int     `json:"avgCycleTime"`

	Overdue      []flatten.ProjectRow `json:"overdueProjects"`
	AtRisk       []flatten.ProjectRow `json:"atRiskProjects"`
	Stuck        []flatten.ProjectRow `json:"stuckProjects"`
	HighProgress []flatten.ProjectRow `json:"highProgressProjects"`

	Critical  []flatten.IssueRow `json:"criticalIssues"`
	Blocked   []flatten.IssueRow `json:"blockedIssues"`
	Completed []flatten.IssueRow `json:"completedIssues"`

	// DeadlineCounts covers projects that are neither completed nor canceled.
	DeadlineCounts map[flatten.DeadlineStatus]int `json:"deadlineCounts"`

	TeamMetrics     map[string]TeamMetrics `json:"teamMetrics"`
	ProgressBuckets []Bucket               `json:"progressBuckets"`
}

// Compute filters the rows to scope and derives every aggregate. Teams
// supplies the keys of the per-team breakdown. Empty input yields an
// all-zero snapshot.
func Compute(projects []flatten.ProjectRow, issues []flatten.IssueRow, teams []flatten.TeamRow, scope Scope, now time.Time) Snapshot {
	ps := scope.FilterProjects(projects, now)
	is := scope.FilterIssues(issues, now)

	team := scope.Team
	if scope.IsAllTeams() {
		team = AllTeams
	}

	s := Snapshot{
		Team:           team,
		Range:          scope.Range.String(),
		GeneratedAt:    now,
		Projects:       ps,
		Issues:         is,
		ProjectCounts:  CountProjects(ps),
		IssueCounts:    CountIssues(is),
		DeadlineCounts: DeadlineCounts(ps),
		TeamMetrics:    make(map[string]TeamMetrics, len(teams)),
	}

	for _, p := range ps {
		if p.DeadlineStatus == flatten.StatusOverdue {
			s.Overdue = append(s.Overdue, p)
		}
		if IsAtRisk(p) {
			s.AtRisk = append(s.AtRisk, p)
		}
		if IsStuck(p) {
			s.Stuck = append(s.Stuck, p)
		}
		if p.ProgressPercent > HighProgressPercent {
			s.HighProgress = append(s.HighProgress, p)
		}
	}

	for _, i := range is {
		if IsCritical(i) {
			s.Critical = append(s.Critical, i)
		}
		if IsBlocked(i) {
			s.Blocked = append(s.Blocked, i)
		}
		if i.Completed() {
			s.Completed = append(s.Completed, i)
		}
	}

	s.TotalEstimate = sumEstimates(is)
	s.CompletedEstimate = sumEstimates(s.Completed)
	s.Velocity = Velocity(s.Completed)
	s.AvgCycleTime = AvgCycleTime(s.Completed)
	s.HealthScore = HealthScore(s.ProjectCounts.Total, s.ProjectCounts.Completed, len(s.Overdue),
		s.CompletedEstimate, s.TotalEstimate, len(is), len(s.Blocked))
	s.ProgressBuckets = ProgressBuckets(ps)

	for _, t := range teams {
		s.TeamMetrics[t.Name] = teamMetrics(t.Name, ps, is)
	}

	return s
}

func teamMetrics(name string, projects []flatten.ProjectRow, issues []flatten.IssueRow) TeamMetrics {
	var m TeamMetrics
	for _, p := range projects {
		if p.HasTeam(name) {
			m.ProjectCount++
		}
	}

	var completed []flatten.IssueRow
	for _, i := range issues {
		if i.TeamName != name {
			continue
		}
		m.IssueCount++
		if i.Completed() {
			completed = append(completed, i)
		}
	}

	m.CompletedCount = len(completed)
	m.Velocity = Velocity(completed)
	m.AvgCycleTime = AvgCycleTime(completed)
	return m
}

// IsAtRisk reports whether a project is due soon, or behind with less than
// two weeks left.
func IsAtRisk(p flatten.ProjectRow) bool {
	if p.DeadlineStatus == flatten.StatusDueSoon {
		return true
	}
	if p.DaysToDeadline == nil {
		return false
	}
	d := *p.DaysToDeadline
	return p.ProgressPercent < AtRiskProgress && d > 0 && d < AtRiskWindowDays
}

// IsStuck reports whether an unfinished project has barely progressed.
func IsStuck(p flatten.ProjectRow) bool {
	return !p.State.Terminal() && p.ProgressPercent < StuckProgress
}

// IsCritical reports whether an issue carries domain.CriticalPriority.
func IsCritical(i flatten.IssueRow) bool {
	return i.Priority == domain.CriticalPriority
}

// IsBlocked reports whether a started issue has been open for more than
// BlockedAgeDays.
func IsBlocked(i flatten.IssueRow) bool {
	return i.StateType == domain.StateStarted && i.AgeDays != nil && *i.AgeDays > BlockedAgeDays
}

// Velocity is completed estimate points per day of cycle time, rounded to two
// decimals. It is 0 when nothing is completed or no time elapsed.
func Velocity(completed []flatten.IssueRow) float64 {
	if len(completed) == 0 {
		return 0
	}
	points := sumEstimates(completed)
	days := floats.Sum(cycleTimes(completed))
	v := safeDiv(points, days)
	if v < 0 {
		return 0
	}
	return math.Round(v*100) / 100
}

// AvgCycleTime is the mean days-to-complete of completed issues, rounded.
// Issues missing a cycle time count as 0 days.
func AvgCycleTime(completed []flatten.IssueRow) int {
	if len(completed) == 0 {
		return 0
	}
	mean := stat.Mean(cycleTimes(completed), nil)
	if math.IsNaN(mean) || mean < 0 {
		return 0
	}
	return int(math.Round(mean))
}

// HealthScore blends completion rate, estimate completion, on-time rate and
// unblocked rate into an integer in [0,100]. A term whose denominator is zero
// contributes nothing.
func HealthScore(totalProjects, completedProjects, overdueProjects int, completedEstimate, totalEstimate float64, totalIssues, blockedIssues int) int {
	tp := float64(totalProjects)
	ti := float64(totalIssues)

	score := healthCompletedW*safeDiv(float64(completedProjects), tp) +
		healthEstimateW*safeDiv(completedEstimate, totalEstimate) +
		healthNotOverdueW*safeDiv(tp-float64(overdueProjects), tp) +
		healthNotBlockedW*safeDiv(ti-float64(blockedIssues), ti)

	return clamp(int(math.Round(score)), 0, 100)
}

// ProgressBuckets builds the five-bar progress histogram. Canceled projects
// are left out of the lowest bucket only.
func ProgressBuckets(projects []flatten.ProjectRow) []Bucket {
	buckets := []Bucket{
		{Label: "0-20%", Min: 0, Max: 20},
		{Label: "21-40%", Min: 20, Max: 40},
		{Label: "41-60%", Min: 40, Max: 60},
		{Label: "61-80%", Min: 60, Max: 80},
		{Label: "81-100%", Min: 80, Max: 100},
	}

	for _, p := range projects {
		pct := p.ProgressPercent
		switch {
		case pct <= 20:
			if p.State != domain.ProjectCanceled {
				buckets[0].Count++
			}
		case pct <= 40:
			buckets[1].Count++
		case pct <= 60:
			buckets[2].Count++
		case pct <= 80:
			buckets[3].Count++
		default:
			buckets[4].Count++
		}
	}
	return buckets
}

// CountProjects tallies projects by state.
func CountProjects(projects []flatten.ProjectRow) ProjectCounts {
	c := ProjectCounts{Total: len(projects)}
	for _, p := range projects {
		switch p.State {
		case domain.ProjectPlanned:
			c.Planned++
		case domain.ProjectStarted:
			c.Started++
		case domain.ProjectPaused:
			c.Paused++
		case domain.ProjectCompleted:
			c.Completed++
		case domain.ProjectCanceled:
			c.Canceled++
		}
		if !p.State.Terminal() {
			c.Active++
		}
	}
	return c
}

// CountIssues tallies issues by state type.
func CountIssues(issues []flatten.IssueRow) IssueCounts {
	c := IssueCounts{Total: len(issues)}
	for _, i := range issues {
		switch i.StateType {
		case domain.StateCompleted:
			c.Completed++
		case domain.StateStarted:
			c.InProgress++
		case domain.StateUnstarted:
			c.Todo++
		case domain.StateCanceled:
			c.Canceled++
		default:
			c.Other++
		}
	}
	return c
}

// DeadlineCounts counts unfinished projects by deadline status.
func DeadlineCounts(projects []flatten.ProjectRow) map[flatten.DeadlineStatus]int {
	counts := map[flatten.DeadlineStatus]int{
		flatten.StatusOnTrack:    0,
		flatten.StatusDueSoon:    0,
		flatten.StatusOverdue:    0,
		flatten.StatusNoDeadline: 0,
	}
	for _, p := range projects {
		if p.State.Terminal() {
			continue
		}
		counts[p.DeadlineStatus]++
	}
	return counts
}

func sumEstimates(issues []flatten.IssueRow) float64 {
	est := make([]float64, len(issues))
	for n, i := range issues {
		est[n] = i.Estimate
	}
	return floats.Sum(est)
}

func cycleTimes(issues []flatten.IssueRow) []float64 {
	days := make([]float64, len(issues))
	for n, i := range issues {
		if i.DaysToComplete != nil {
			days[n] = float64(*i.DaysToComplete)
		}
	}
	return days
}

// safeDiv returns a/b, or 0 when b is zero or the result is not finite.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
