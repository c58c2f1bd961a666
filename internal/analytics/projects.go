package analytics

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/robby/linearpulse/internal/domain"
)

// compareSchedule orders unfinished projects before finished ones, then by
// target date (projects without one last), then by start date. Projects with
// neither date compare equal.
func compareSchedule(aTerminal bool, aTarget, aStart *time.Time, bTerminal bool, bTarget, bStart *time.Time) int {
	if aTerminal != bTerminal {
		if aTerminal {
			return 1
		}
		return -1
	}

	switch {
	case aTarget != nil && bTarget != nil:
		return aTarget.Compare(*bTarget)
	case aTarget != nil:
		return -1
	case bTarget != nil:
		return 1
	}

	if aStart != nil && bStart != nil {
		return aStart.Compare(*bStart)
	}
	return 0
}

// SortProjects sorts projects in place for display: ongoing work first,
// earliest deadline first. The sort is stable.
func SortProjects(projects []domain.Project) {
	slices.SortStableFunc(projects, func(a, b domain.Project) int {
		return compareSchedule(a.State.Terminal(), a.TargetDate, a.StartDate, b.State.Terminal(), b.TargetDate, b.StartDate)
	})
}

// ProjectSummary is the issue breakdown of a single project.
type ProjectSummary struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Progress          float64 `json:"progress"`
	TotalIssues       int     `json:"totalIssues"`
	CompletedIssues   int     `json:"completedIssues"`
	InProgressIssues  int     `json:"inProgressIssues"`
	TodoIssues        int     `json:"todoIssues"`
	CanceledIssues    int     `json:"canceledIssues"`
	TotalEstimate     float64 `json:"totalEstimate"`
	CompletedEstimate float64 `json:"completedEstimate"`
	EstimateProgress  float64 `json:"estimateProgress"` // percent, 0 when nothing is estimated
}

// SummarizeProject counts a project's issues by state type and totals their
// estimates.
func SummarizeProject(p domain.Project) ProjectSummary {
	s := ProjectSummary{
		ID:          p.ID,
		Name:        p.Name,
		Progress:    p.Progress,
		TotalIssues: len(p.Issues),
	}

	for _, i := range p.Issues {
		s.TotalEstimate += i.Estimate
		switch i.StateType {
		case domain.StateCompleted:
			s.CompletedIssues++
			s.CompletedEstimate += i.Estimate
		case domain.StateStarted:
			s.InProgressIssues++
		case domain.StateUnstarted:
			s.TodoIssues++
		case domain.StateCanceled:
			s.CanceledIssues++
		}
	}

	s.EstimateProgress = safeDiv(s.CompletedEstimate, s.TotalEstimate) * 100
	return s
}

// Metrics is the single-row summary table written alongside an export.
type Metrics struct {
	ExportDate              string  `json:"ExportDate" csv:"ExportDate"`
	ExportTimestamp         string  `json:"ExportTimestamp" csv:"ExportTimestamp"`
	TotalProjects           int     `json:"TotalProjects" csv:"TotalProjects"`
	ActiveProjects          int     `json:"ActiveProjects" csv:"ActiveProjects"`
	CompletedProjects       int     `json:"CompletedProjects" csv:"CompletedProjects"`
	CanceledProjects        int     `json:"CanceledProjects" csv:"CanceledProjects"`
	TotalIssues             int     `json:"TotalIssues" csv:"TotalIssues"`
	CompletedIssues         int     `json:"CompletedIssues" csv:"CompletedIssues"`
	InProgressIssues        int     `json:"InProgressIssues" csv:"InProgressIssues"`
	TodoIssues              int     `json:"TodoIssues" csv:"TodoIssues"`
	CanceledIssues          int     `json:"CanceledIssues" csv:"CanceledIssues"`
	TotalTeams              int     `json:"TotalTeams" csv:"TotalTeams"`
	AverageProjectProgress  int     `json:"AverageProjectProgress" csv:"AverageProjectProgress"`
	TotalEstimatePoints     float64 `json:"TotalEstimatePoints" csv:"TotalEstimatePoints"`
	CompletedEstimatePoints float64 `json:"CompletedEstimatePoints" csv:"CompletedEstimatePoints"`
}

// ExportMetrics summarizes a whole, unfiltered dataset.
func ExportMetrics(ds domain.Dataset, now time.Time) Metrics {
	m := Metrics{
		ExportDate:      now.Format("2006-01-02"),
		ExportTimestamp: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		TotalProjects:   len(ds.Projects),
		TotalIssues:     len(ds.Issues),
		TotalTeams:      len(ds.Teams),
	}

	progress := make([]float64, 0, len(ds.Projects))
	for _, p := range ds.Projects {
		progress = append(progress, p.Progress)
		switch p.State {
		case domain.ProjectCompleted:
			m.CompletedProjects++
		case domain.ProjectCanceled:
			m.CanceledProjects++
		default:
			m.ActiveProjects++
		}
	}
	if len(progress) > 0 {
		m.AverageProjectProgress = int(math.Round(floats.Sum(progress) / float64(len(progress)) * 100))
	}

	for _, i := range ds.Issues {
		m.TotalEstimatePoints += i.Estimate
		switch i.StateType {
		case domain.StateCompleted:
			m.CompletedIssues++
			m.CompletedEstimatePoints += i.Estimate
		case domain.StateStarted:
			m.InProgressIssues++
		case domain.StateUnstarted:
			m.TodoIssues++
		case domain.StateCanceled:
			m.CanceledIssues++
		}
	}

	return m
}
