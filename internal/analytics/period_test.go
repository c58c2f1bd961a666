package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/flatten"
)

func lastWeek() Period {
	return Period{Start: *at(-7), End: testNow}
}

func TestActiveInPeriod(t *testing.T) {
	created := createTestProjectRow("created", domain.ProjectStarted, 10)
	created.CreatedAt = at(-2)
	created.UpdatedAt = nil

	completed := createTestProjectRow("completed", domain.ProjectCompleted, 100)
	completed.CreatedAt = at(-90)
	completed.UpdatedAt = at(-60)
	completed.CompletedAt = at(-1)

	stale := createTestProjectRow("stale", domain.ProjectStarted, 10)
	stale.CreatedAt = at(-90)
	stale.UpdatedAt = at(-30)

	undated := createTestProjectRow("undated", domain.ProjectStarted, 10)
	undated.CreatedAt = nil
	undated.UpdatedAt = nil

	all := []flatten.ProjectRow{created, completed, stale, undated}
	active := ActiveInPeriod(all, lastWeek())

	assert.Equal(t, []string{"created", "completed"}, ids(active), "nil dates are never inside a period")
	assert.Equal(t, []string{"completed"}, ids(CompletedInPeriod(all, lastWeek())))

	stats := ComputePeriodStats(all, active, lastWeek())
	assert.Equal(t, PeriodStats{
		TotalProjects:     4,
		CompletedInPeriod: 1,
		CreatedInPeriod:   1,
		ActiveInPeriod:    1,
		CompletionRate:    25,
	}, stats)
}

func TestComputePeriodStats_Empty(t *testing.T) {
	assert.Equal(t, PeriodStats{}, ComputePeriodStats(nil, nil, lastWeek()))
}

func TestTrend(t *testing.T) {
	day0 := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	intervals := []Interval{
		{Label: "Mon", Period: Period{Start: day0, End: day0.AddDate(0, 0, 1)}},
		{Label: "Tue", Period: Period{Start: day0.AddDate(0, 0, 1), End: day0.AddDate(0, 0, 2)}},
	}

	boundary := day0.AddDate(0, 0, 1)
	a := createTestProjectRow("a", domain.ProjectCompleted, 100)
	a.CreatedAt = &day0
	a.CompletedAt = &boundary

	points := Trend([]flatten.ProjectRow{a}, intervals)
	require.Len(t, points, 2)
	assert.Equal(t, TrendPoint{Label: "Mon", Created: 1}, points[0])
	assert.Equal(t, TrendPoint{Label: "Tue", Completed: 1}, points[1], "interval ends are exclusive")
}

func TestCompareTeams(t *testing.T) {
	shared := createTestProjectRow("shared", domain.ProjectCompleted, 100, "Platform", "Mobile")
	shared.CompletedAt = at(-1)
	shared.CreatedAt = at(-3)
	other := createTestProjectRow("other", domain.ProjectStarted, 10, "Mobile")
	other.CreatedAt = at(-40)

	teams := []flatten.TeamRow{
		{ID: "id-Platform", Name: "Platform"},
		{ID: "id-Mobile", Name: "Mobile"},
		{ID: "id-Empty", Name: "Empty"},
	}

	got := CompareTeams([]flatten.ProjectRow{shared, other}, teams, lastWeek())
	assert.Equal(t, []TeamActivity{
		{Team: "Platform", Completed: 1, Created: 1},
		{Team: "Mobile", Completed: 1, Created: 1},
		{Team: "Empty"},
	}, got)
}
