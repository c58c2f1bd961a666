package flatten

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/robby/linearpulse/internal/domain"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func daysFromNow(n int) *time.Time {
	return ptr(testNow.Add(time.Duration(n) * day))
}

func createTestProject() domain.Project {
	return domain.Project{
		ID:         "p1",
		Name:       "Billing revamp",
		State:      domain.ProjectStarted,
		Progress:   0.45,
		StartDate:  daysFromNow(-20),
		TargetDate: daysFromNow(5),
		CreatedAt:  daysFromNow(-25),
		UpdatedAt:  daysFromNow(-1),
		Teams: []domain.TeamRef{
			{ID: "t1", Name: "Platform", Key: "PLT"},
			{ID: "t2", Name: "Mobile", Key: "MOB"},
		},
		Lead:    &domain.Person{ID: "u1", Name: "Ada", Email: "ada@example.com"},
		Members: []domain.Person{{ID: "u1"}, {ID: "u2"}},
	}
}

func createTestIssue() domain.Issue {
	return domain.Issue{
		ID:         "i1",
		Identifier: "PLT-1",
		Title:      "Invoice export",
		StateName:  "In Progress",
		StateType:  domain.StateStarted,
		Priority:   4,
		Estimate:   3,
		Team:       &domain.TeamRef{ID: "t1", Name: "Platform", Key: "PLT"},
		Project:    &domain.ProjectRef{ID: "p1", Name: "Billing revamp"},
		Labels:     []domain.Label{{Name: "backend"}, {Name: "billing"}},
		CreatedAt:  daysFromNow(-30),
	}
}

func TestProject_DueSoonScenario(t *testing.T) {
	row, err := Project(createTestProject(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 45, row.ProgressPercent)
	assert.Equal(t, StatusDueSoon, row.DeadlineStatus)
	require.NotNil(t, row.DaysToDeadline)
	assert.Equal(t, 5, *row.DaysToDeadline)
	require.NotNil(t, row.DurationDays)
	assert.Equal(t, 25, *row.DurationDays)
	assert.Equal(t, []string{"Platform", "Mobile"}, row.TeamNames)
	assert.Equal(t, []string{"t1", "t2"}, row.TeamIDs)
	assert.Equal(t, "Ada", row.LeadName)
	assert.Equal(t, 2, row.MemberCount)
	assert.True(t, row.HasTeam("Mobile"))
	assert.False(t, row.HasTeam("Mob"))
}

func TestDeadlineStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		state    domain.ProjectState
		target   *time.Time
		want     DeadlineStatus
		wantDays *int
	}{
		{"no target", domain.ProjectStarted, nil, StatusNoDeadline, nil},
		{"overdue", domain.ProjectStarted, daysFromNow(-3), StatusOverdue, intPtr(-3)},
		{"due today", domain.ProjectPlanned, ptr(testNow), StatusDueSoon, intPtr(0)},
		{"due in 7 days", domain.ProjectStarted, daysFromNow(7), StatusDueSoon, intPtr(7)},
		{"due in 8 days", domain.ProjectStarted, daysFromNow(8), StatusOnTrack, intPtr(8)},
		{"partial day rounds up", domain.ProjectPaused, ptr(testNow.Add(7*day + time.Hour)), StatusOnTrack, intPtr(8)},
		{"completed overdue", domain.ProjectCompleted, daysFromNow(-10), StatusCompletedOrCanceled, intPtr(-10)},
		{"canceled without target", domain.ProjectCanceled, nil, StatusCompletedOrCanceled, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, days := DeadlineStatusFor(tt.state, tt.target, testNow)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDays, days)
		})
	}
}

func intPtr(n int) *int { return &n }

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, ProgressPercent(0))
	assert.Equal(t, 45, ProgressPercent(0.45))
	assert.Equal(t, 100, ProgressPercent(1))
	assert.Equal(t, 100, ProgressPercent(1.3))
	assert.Equal(t, 0, ProgressPercent(-0.2))
	assert.Equal(t, 67, ProgressPercent(0.666))
}

func TestProject_MissingIdentity(t *testing.T) {
	p := createTestProject()
	p.Name = ""
	_, err := Project(p, testNow)
	assert.ErrorIs(t, err, ErrMissingIdentity)

	p = createTestProject()
	p.ID = ""
	_, err = Project(p, testNow)
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestProject_OptionalFieldsMissing(t *testing.T) {
	row, err := Project(domain.Project{ID: "p", Name: "bare", State: domain.ProjectPlanned}, testNow)
	require.NoError(t, err)

	assert.Equal(t, StatusNoDeadline, row.DeadlineStatus)
	assert.Nil(t, row.DaysToDeadline)
	assert.Nil(t, row.DurationDays)
	assert.Empty(t, row.TeamNames)
	assert.Equal(t, "", row.LeadName)
	assert.Equal(t, 0, row.MemberCount)
}

func TestIssue(t *testing.T) {
	row, err := Issue(createTestIssue(), testNow)
	require.NoError(t, err)

	assert.Equal(t, "Platform", row.TeamName)
	assert.Equal(t, "PLT", row.TeamKey)
	assert.Equal(t, "p1", row.ProjectID)
	assert.Equal(t, []string{"backend", "billing"}, row.Labels)
	assert.Equal(t, "Low", row.PriorityLabel)
	assert.Nil(t, row.DaysToComplete)
	require.NotNil(t, row.AgeDays)
	assert.Equal(t, 30, *row.AgeDays)
	assert.False(t, row.Completed())

	t.Run("completed issue has cycle time", func(t *testing.T) {
		i := createTestIssue()
		i.StateType = domain.StateCompleted
		i.CompletedAt = ptr(i.CreatedAt.Add(4*day + time.Minute))

		row, err := Issue(i, testNow)
		require.NoError(t, err)
		require.NotNil(t, row.DaysToComplete)
		assert.Equal(t, 5, *row.DaysToComplete)
		assert.True(t, row.Completed())
	})

	t.Run("age of 31 days", func(t *testing.T) {
		i := createTestIssue()
		i.CreatedAt = daysFromNow(-31)
		row, err := Issue(i, testNow)
		require.NoError(t, err)
		assert.Equal(t, 31, *row.AgeDays)
	})

	t.Run("no createdAt leaves age nil", func(t *testing.T) {
		i := createTestIssue()
		i.CreatedAt = nil
		i.CompletedAt = daysFromNow(-1)
		row, err := Issue(i, testNow)
		require.NoError(t, err)
		assert.Nil(t, row.AgeDays)
		assert.Nil(t, row.DaysToComplete)
	})

	t.Run("missing title", func(t *testing.T) {
		i := createTestIssue()
		i.Title = ""
		_, err := Issue(i, testNow)
		assert.ErrorIs(t, err, ErrMissingIdentity)
	})
}

func TestDataset(t *testing.T) {
	ds := domain.Dataset{
		Teams:    []domain.Team{{ID: "t1", Name: "Platform"}},
		Projects: []domain.Project{createTestProject()},
		Issues:   []domain.Issue{createTestIssue()},
	}

	rows, err := Dataset(ds, testNow)
	require.NoError(t, err)
	assert.Len(t, rows.Projects, 1)
	assert.Len(t, rows.Issues, 1)
	assert.Len(t, rows.Teams, 1)

	ds.Teams = append(ds.Teams, domain.Team{ID: "t2"})
	_, err = Dataset(ds, testNow)
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func genState() *rapid.Generator[domain.ProjectState] {
	return rapid.SampledFrom([]domain.ProjectState{
		domain.ProjectPlanned,
		domain.ProjectStarted,
		domain.ProjectPaused,
		domain.ProjectCompleted,
		domain.ProjectCanceled,
	})
}

func genProject(t *rapid.T) domain.Project {
	p := domain.Project{
		ID:       "p",
		Name:     "n",
		State:    genState().Draw(t, "state"),
		Progress: rapid.Float64Range(-0.5, 1.5).Draw(t, "progress"),
	}
	if rapid.Bool().Draw(t, "hasTarget") {
		offset := rapid.Int64Range(-400*24, 400*24).Draw(t, "targetHours")
		p.TargetDate = ptr(testNow.Add(time.Duration(offset) * time.Hour))
	}
	return p
}

func TestProperty_TerminalProjectsAreCompletedOrCanceled(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genProject(t)
		row, err := Project(p, testNow)
		require.NoError(t, err)

		if p.State.Terminal() {
			assert.Equal(t, StatusCompletedOrCanceled, row.DeadlineStatus)
		}
	})
}

func TestProperty_PastTargetIsOverdue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := genProject(t)
		daysAgo := rapid.IntRange(1, 500).Draw(t, "daysAgo")
		p.TargetDate = daysFromNow(-daysAgo)

		row, err := Project(p, testNow)
		require.NoError(t, err)

		if !p.State.Terminal() {
			assert.Equal(t, StatusOverdue, row.DeadlineStatus)
			require.NotNil(t, row.DaysToDeadline)
			assert.Less(t, *row.DaysToDeadline, 0)
		}
	})
}

func TestProperty_ProgressPercentInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pct := ProgressPercent(rapid.Float64().Draw(t, "fraction"))
		assert.GreaterOrEqual(t, pct, 0)
		assert.LessOrEqual(t, pct, 100)
	})
}

func TestProperty_RederiveIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		row, err := Project(genProject(t), testNow)
		require.NoError(t, err)

		again := Rederive(row, testNow)
		assert.Equal(t, row.DeadlineStatus, again.DeadlineStatus)
		assert.Equal(t, row.DaysToDeadline, again.DaysToDeadline)
		assert.Equal(t, again, Rederive(again, testNow))
	})
}
