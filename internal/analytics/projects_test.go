package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robby/linearpulse/internal/domain"
)

func TestSortProjects(t *testing.T) {
	projects := []domain.Project{
		{ID: "done-early", State: domain.ProjectCompleted, TargetDate: at(-30)},
		{ID: "no-dates", State: domain.ProjectStarted},
		{ID: "late-target", State: domain.ProjectStarted, TargetDate: at(40)},
		{ID: "start-only", State: domain.ProjectPlanned, StartDate: at(-3)},
		{ID: "early-target", State: domain.ProjectPaused, TargetDate: at(2)},
		{ID: "start-earlier", State: domain.ProjectStarted, StartDate: at(-9)},
		{ID: "canceled", State: domain.ProjectCanceled},
	}

	SortProjects(projects)

	got := make([]string, 0, len(projects))
	for _, p := range projects {
		got = append(got, p.ID)
	}

	assert.Equal(t, "early-target", got[0])
	assert.Equal(t, "late-target", got[1])
	assert.Equal(t, []string{"done-early", "canceled"}, got[5:], "finished projects sort last")
	assert.ElementsMatch(t, []string{"no-dates", "start-only", "start-earlier"}, got[2:5])
}

func TestSummarizeProject(t *testing.T) {
	p := domain.Project{
		ID:       "p1",
		Name:     "Billing",
		Progress: 0.5,
		Issues: []domain.Issue{
			{StateType: domain.StateCompleted, Estimate: 3},
			{StateType: domain.StateCompleted, Estimate: 1},
			{StateType: domain.StateStarted, Estimate: 2},
			{StateType: domain.StateUnstarted, Estimate: 2},
			{StateType: domain.StateCanceled},
			{StateType: "backlog"},
		},
	}

	s := SummarizeProject(p)

	assert.Equal(t, ProjectSummary{
		ID:                "p1",
		Name:              "Billing",
		Progress:          0.5,
		TotalIssues:       6,
		CompletedIssues:   2,
		InProgressIssues:  1,
		TodoIssues:        1,
		CanceledIssues:    1,
		TotalEstimate:     8,
		CompletedEstimate: 4,
		EstimateProgress:  50,
	}, s)

	t.Run("no estimates", func(t *testing.T) {
		s := SummarizeProject(domain.Project{ID: "p", Issues: []domain.Issue{{StateType: domain.StateCompleted}}})
		assert.Equal(t, 0.0, s.EstimateProgress)
	})
}

func TestExportMetrics(t *testing.T) {
	ds := domain.Dataset{
		Teams: []domain.Team{{ID: "t1"}, {ID: "t2"}},
		Projects: []domain.Project{
			{State: domain.ProjectCompleted, Progress: 1},
			{State: domain.ProjectCanceled, Progress: 0},
			{State: domain.ProjectStarted, Progress: 0.5},
			{State: domain.ProjectPaused, Progress: 0.25},
		},
		Issues: []domain.Issue{
			{StateType: domain.StateCompleted, Estimate: 5},
			{StateType: domain.StateStarted, Estimate: 3},
			{StateType: domain.StateUnstarted},
			{StateType: domain.StateCanceled, Estimate: 1},
		},
	}

	m := ExportMetrics(ds, testNow)

	assert.Equal(t, "2026-10-18", m.ExportDate)
	assert.Equal(t, "2026-10-18T12:00:00.000Z", m.ExportTimestamp)
	assert.Equal(t, 4, m.TotalProjects)
	assert.Equal(t, 2, m.ActiveProjects)
	assert.Equal(t, 1, m.CompletedProjects)
	assert.Equal(t, 1, m.CanceledProjects)
	assert.Equal(t, 4, m.TotalIssues)
	assert.Equal(t, 1, m.CompletedIssues)
	assert.Equal(t, 1, m.InProgressIssues)
	assert.Equal(t, 1, m.TodoIssues)
	assert.Equal(t, 1, m.CanceledIssues)
	assert.Equal(t, 2, m.TotalTeams)
	assert.Equal(t, 44, m.AverageProjectProgress)
	assert.Equal(t, 9.0, m.TotalEstimatePoints)
	assert.Equal(t, 5.0, m.CompletedEstimatePoints)

	t.Run("empty dataset has zero average", func(t *testing.T) {
		m := ExportMetrics(domain.Dataset{}, testNow)
		assert.Equal(t, 0, m.AverageProjectProgress)
	})
}
