package linear

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/linearpulse/internal/domain"
)

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// fakeLinear answers GraphQL requests by matching a substring of the query.
type fakeLinear struct {
	responses map[string]string
	requests  []gqlRequest
	auth      []string
}

func (f *fakeLinear) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.requests = append(f.requests, req)
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/json")
	for marker, body := range f.responses {
		if strings.Contains(req.Query, marker) {
			_, _ = w.Write([]byte(body))
			return
		}
	}
	_, _ = w.Write([]byte(`{"errors":[{"message":"unexpected query"}]}`))
}

func createTestClient(t *testing.T, responses map[string]string, opts ...Option) (*Client, *fakeLinear) {
	t.Helper()
	fake := &fakeLinear{responses: responses}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(srv.URL, "lin_api_test", opts...), fake
}

const teamsResponse = `{"data":{"teams":{"nodes":[
	{"id":"t1","name":"Platform","key":"PLT","description":null,"color":"#ff0000"},
	{"id":"t2","name":"Mobile","key":"MOB","description":"Apps","color":null}
]}}}`

const projectsResponse = `{"data":{"projects":{"nodes":[
	{"id":"p1","name":"Billing","description":"New billing","url":"https://linear.app/p1","state":"started","progress":0.45,
	 "startDate":"2026-09-01","targetDate":"2026-10-23","createdAt":"2026-08-30T10:00:00.000Z","updatedAt":"2026-10-17T08:00:00.000Z",
	 "completedAt":null,"canceledAt":null,
	 "teams":{"nodes":[{"id":"t1","name":"Platform","key":"PLT"},{"id":"t2","name":"Mobile","key":"MOB"}]},
	 "lead":{"id":"u1","name":"Ada","email":"ada@example.com"},
	 "members":{"nodes":[{"id":"u1","name":"Ada","email":"ada@example.com"},{"id":"u2","name":"Lin","email":"lin@example.com"}]}}
]}}}`

const issuesResponse = `{"data":{"issues":{"nodes":[
	{"id":"i1","identifier":"PLT-1","title":"Invoice export","description":null,"state":{"name":"Done","type":"completed"},
	 "priority":2,"estimate":3,"createdAt":"2026-10-01T00:00:00.000Z","updatedAt":"2026-10-05T00:00:00.000Z",
	 "completedAt":"2026-10-05T12:00:00.000Z","canceledAt":null,
	 "assignee":{"id":"u1","name":"Ada"},"creator":{"id":"u2","name":"Lin"},
	 "team":{"id":"t1","name":"Platform","key":"PLT"},"project":{"id":"p1","name":"Billing"},
	 "labels":{"nodes":[{"id":"l1","name":"backend","color":"#000"}]}},
	{"id":"i2","identifier":"PLT-2","title":"Unscoped","description":"x","state":null,
	 "priority":null,"estimate":null,"createdAt":"2026-10-02T00:00:00.000Z","updatedAt":null,
	 "completedAt":null,"canceledAt":null,"assignee":null,"creator":null,"team":null,"project":null,"labels":null}
]}}}`

func TestTeams(t *testing.T) {
	client, fake := createTestClient(t, map[string]string{"teams": teamsResponse})

	teams, err := client.Teams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 2)

	assert.Equal(t, domain.Team{ID: "t1", Name: "Platform", Key: "PLT", Color: "#ff0000"}, teams[0])
	assert.Equal(t, "Apps", teams[1].Description)
	assert.Equal(t, "", teams[1].Color)

	require.Len(t, fake.auth, 1)
	assert.Equal(t, "lin_api_test", fake.auth[0], "API key is sent without a Bearer prefix")
}

func TestProjects(t *testing.T) {
	client, _ := createTestClient(t, map[string]string{"projects": projectsResponse})

	projects, err := client.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)

	p := projects[0]
	assert.Equal(t, "Billing", p.Name)
	assert.Equal(t, domain.ProjectStarted, p.State)
	assert.InDelta(t, 0.45, p.Progress, 1e-9)
	require.NotNil(t, p.TargetDate)
	assert.Equal(t, time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC), *p.TargetDate)
	require.NotNil(t, p.CreatedAt)
	assert.Equal(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), *p.CreatedAt)
	assert.Nil(t, p.CompletedAt)
	assert.Equal(t, []string{"Platform", "Mobile"}, p.TeamNames())
	require.NotNil(t, p.Lead)
	assert.Equal(t, "ada@example.com", p.Lead.Email)
	assert.Len(t, p.Members, 2)
}

func TestIssues(t *testing.T) {
	client, fake := createTestClient(t, map[string]string{"issues(": issuesResponse}, WithIssueLimit(50))

	issues, err := client.Issues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)

	require.Len(t, fake.requests, 1)
	assert.EqualValues(t, 50, fake.requests[0].Variables["first"])

	done := issues[0]
	assert.Equal(t, "PLT-1", done.Identifier)
	assert.Equal(t, domain.StateCompleted, done.StateType)
	assert.Equal(t, 2, done.Priority)
	assert.InDelta(t, 3.0, done.Estimate, 1e-9)
	assert.Equal(t, "Ada", done.Assignee)
	assert.Equal(t, "Lin", done.Creator)
	require.NotNil(t, done.Team)
	assert.Equal(t, "Platform", done.Team.Name)
	require.NotNil(t, done.Project)
	assert.Equal(t, "p1", done.Project.ID)
	require.Len(t, done.Labels, 1)
	assert.Equal(t, "backend", done.Labels[0].Name)

	t.Run("null fields become zero values", func(t *testing.T) {
		sparse := issues[1]
		assert.Equal(t, 0, sparse.Priority)
		assert.Equal(t, 0.0, sparse.Estimate)
		assert.Equal(t, domain.StateType(""), sparse.StateType)
		assert.Nil(t, sparse.Team)
		assert.Nil(t, sparse.Project)
		assert.Nil(t, sparse.UpdatedAt)
		assert.Empty(t, sparse.Labels)
	})
}

func TestIssues_DefaultLimit(t *testing.T) {
	client, fake := createTestClient(t, map[string]string{"issues(": `{"data":{"issues":{"nodes":[]}}}`})

	issues, err := client.Issues(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.EqualValues(t, DefaultIssueLimit, fake.requests[0].Variables["first"])
}

func TestProject(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		body := `{"data":{"project":{"id":"p1","name":"Billing","state":"completed","progress":1,
			"issues":{"nodes":[{"id":"i1","identifier":"PLT-1","title":"Done","state":{"name":"Done","type":"completed"}}]}}}}`
		client, fake := createTestClient(t, map[string]string{"ProjectDetails": body})

		p, err := client.Project(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, domain.ProjectCompleted, p.State)
		require.Len(t, p.Issues, 1)
		assert.Equal(t, "PLT-1", p.Issues[0].Identifier)
		assert.Equal(t, "p1", fake.requests[0].Variables["id"])
	})

	t.Run("null project is ErrNotFound", func(t *testing.T) {
		client, _ := createTestClient(t, map[string]string{"ProjectDetails": `{"data":{"project":null}}`})

		_, err := client.Project(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGraphQLErrorIsReturned(t *testing.T) {
	client, _ := createTestClient(t, map[string]string{
		"teams": `{"errors":[{"message":"Authentication required"}]}`,
	})

	_, err := client.Teams(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication required")
	assert.Contains(t, err.Error(), "failed to list teams")
}

func TestViewer(t *testing.T) {
	client, _ := createTestClient(t, map[string]string{
		"viewer": `{"data":{"viewer":{"id":"u1","name":"Ada","email":"ada@example.com"}}}`,
	})

	v, err := client.Viewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Viewer{ID: "u1", Name: "Ada", Email: "ada@example.com"}, v)
}

type recordingObserver struct {
	mu   sync.Mutex
	ops  []string
	errs []error
}

func (o *recordingObserver) ObserveUpstream(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

func TestFetchAll(t *testing.T) {
	obs := &recordingObserver{}
	client, fake := createTestClient(t, map[string]string{
		"query Teams":    teamsResponse,
		"query Projects": projectsResponse,
		"issues(":        issuesResponse,
	}, WithObserver(obs))

	ds, err := client.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, ds.Teams, 2)
	assert.Len(t, ds.Projects, 1)
	assert.Len(t, ds.Issues, 2)
	assert.Len(t, fake.requests, 3)
	assert.Equal(t, []string{"teams", "projects", "issues"}, obs.ops)
}

func TestFetchAll_AbortsOnFirstFailure(t *testing.T) {
	obs := &recordingObserver{}
	client, fake := createTestClient(t, map[string]string{
		"query Teams": teamsResponse,
		// projects query unanswered -> GraphQL error
	}, WithObserver(obs))

	_, err := client.FetchAll(context.Background())
	require.Error(t, err)
	assert.Len(t, fake.requests, 2, "issues must not be fetched after a failure")
	require.Len(t, obs.errs, 2)
	assert.NoError(t, obs.errs[0])
	assert.Error(t, obs.errs[1])
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-10-18", time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)},
		{"2026-10-18T09:30:00Z", time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)},
		{"2026-10-18T09:30:00.123Z", time.Date(2026, 10, 18, 9, 30, 0, 123000000, time.UTC)},
		{"2026-10-18T12:30:00+03:00", time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTime("18/10/2026")
	assert.Error(t, err)
}
