package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/linear"
	"github.com/robby/linearpulse/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var serverNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type fakeLinear struct {
	ds  domain.Dataset
	err error
}

func (f *fakeLinear) Viewer(context.Context) (domain.Viewer, error) {
	if f.err != nil {
		return domain.Viewer{}, f.err
	}
	return domain.Viewer{ID: "u1", Name: "Ada", Email: "ada@example.com"}, nil
}

func (f *fakeLinear) Teams(context.Context) ([]domain.Team, error) {
	return f.ds.Teams, f.err
}

func (f *fakeLinear) Projects(context.Context) ([]domain.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Project(nil), f.ds.Projects...), nil
}

func (f *fakeLinear) Project(_ context.Context, id string) (domain.Project, error) {
	if f.err != nil {
		return domain.Project{}, f.err
	}
	for _, p := range f.ds.Projects {
		if p.ID == id {
			for _, i := range f.ds.Issues {
				if i.Project != nil && i.Project.ID == id {
					p.Issues = append(p.Issues, i)
				}
			}
			return p, nil
		}
	}
	return domain.Project{}, fmt.Errorf("project %s: %w", id, linear.ErrNotFound)
}

func (f *fakeLinear) FetchAll(context.Context) (domain.Dataset, error) {
	return f.ds, f.err
}

func at(days int) *time.Time {
	t := serverNow.AddDate(0, 0, days)
	return &t
}

// Test fixtures
func createTestDataset() domain.Dataset {
	plt := domain.TeamRef{ID: "t1", Name: "Platform"}
	mob := domain.TeamRef{ID: "t2", Name: "Mobile"}
	ref := &domain.ProjectRef{ID: "p2", Name: "Checkout"}

	return domain.Dataset{
		Teams: []domain.Team{{ID: "t1", Name: "Platform"}, {ID: "t2", Name: "Mobile"}},
		Projects: []domain.Project{
			{ID: "p1", Name: "Done thing", State: domain.ProjectCompleted, Progress: 1,
				TargetDate: at(-30), CreatedAt: at(-60), UpdatedAt: at(-5), Teams: []domain.TeamRef{plt}},
			{ID: "p2", Name: "Checkout", State: domain.ProjectStarted, Progress: 0.4,
				TargetDate: at(20), CreatedAt: at(-20), UpdatedAt: at(-1), Teams: []domain.TeamRef{plt, mob}},
			{ID: "p3", Name: "Search", State: domain.ProjectPlanned,
				TargetDate: at(5), CreatedAt: at(-3), UpdatedAt: at(-3), Teams: []domain.TeamRef{mob}},
		},
		Issues: []domain.Issue{
			{ID: "i1", Title: "Cart", StateType: domain.StateCompleted, Estimate: 3,
				CreatedAt: at(-10), CompletedAt: at(-2), Team: &plt, Project: ref},
			{ID: "i2", Title: "Pay", StateType: domain.StateStarted, Estimate: 1,
				CreatedAt: at(-4), Team: &mob, Project: ref},
		},
	}
}

func createTestRouter(api LinearAPI, rec *telemetry.Recorder) *gin.Engine {
	h := NewHandler(api, time.UTC, zap.NewNop())
	h.now = func() time.Time { return serverNow }
	return NewRouter(h, rec, zap.NewNop())
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// TestHealth verifies both health endpoints
func TestHealth(t *testing.T) {
	r := createTestRouter(&fakeLinear{}, nil)

	for _, path := range []string{"/healthz", "/api/health"} {
		w := get(t, r, path)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	}
}

// TestTestConnection verifies the viewer probe
func TestTestConnection(t *testing.T) {
	w := get(t, createTestRouter(&fakeLinear{}, nil), "/api/test-connection")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Ada", body["user"].(map[string]any)["name"])

	w = get(t, createTestRouter(&fakeLinear{err: errors.New("bad key")}, nil), "/api/test-connection")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "bad key")
}

// TestListProjects verifies ongoing projects come first
func TestListProjects(t *testing.T) {
	w := get(t, createTestRouter(&fakeLinear{ds: createTestDataset()}, nil), "/api/projects")
	require.Equal(t, http.StatusOK, w.Code)

	projects := decode[[]map[string]any](t, w)
	var names []string
	for _, p := range projects {
		names = append(names, p["name"].(string))
	}
	assert.Equal(t, []string{"Search", "Checkout", "Done thing"}, names)
}

// TestListTeams verifies empty lists encode as arrays
func TestListTeams(t *testing.T) {
	w := get(t, createTestRouter(&fakeLinear{}, nil), "/api/teams")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

// TestProjectEndpoints verifies detail, summary and not-found handling
func TestProjectEndpoints(t *testing.T) {
	r := createTestRouter(&fakeLinear{ds: createTestDataset()}, nil)

	t.Run("detail", func(t *testing.T) {
		w := get(t, r, "/api/projects/p2")
		require.Equal(t, http.StatusOK, w.Code)
		p := decode[map[string]any](t, w)
		assert.Equal(t, "Checkout", p["name"])
		assert.Len(t, p["issues"], 2)
	})

	t.Run("summary", func(t *testing.T) {
		w := get(t, r, "/api/projects/p2/summary")
		require.Equal(t, http.StatusOK, w.Code)
		s := decode[map[string]any](t, w)
		assert.Equal(t, 2.0, s["totalIssues"])
		assert.Equal(t, 1.0, s["completedIssues"])
		assert.Equal(t, 75.0, s["estimateProgress"])
	})

	t.Run("not found", func(t *testing.T) {
		for _, path := range []string{"/api/projects/nope", "/api/projects/nope/summary"} {
			w := get(t, r, path)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.JSONEq(t, `{"error":"Project not found"}`, w.Body.String())
		}
	})
}

// TestUpstreamFailure verifies upstream errors become 500s
func TestUpstreamFailure(t *testing.T) {
	r := createTestRouter(&fakeLinear{err: errors.New("linear down")}, nil)

	for _, path := range []string{
		"/api/teams", "/api/projects", "/api/projects/p1", "/api/powerbi/data", "/api/analytics",
	} {
		w := get(t, r, path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		body := decode[map[string]string](t, w)
		assert.NotEmpty(t, body["error"])
		assert.NotContains(t, body["error"], "linear down", "details stay in the log")
	}
}

// TestPowerBI verifies the export tables
func TestPowerBI(t *testing.T) {
	r := createTestRouter(&fakeLinear{ds: createTestDataset()}, nil)

	w := get(t, r, "/api/powerbi/data")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode[map[string][]map[string]any](t, w)
	assert.Len(t, data["Projects"], 3)
	assert.Len(t, data["Issues"], 2)
	assert.Len(t, data["Teams"], 2)
	assert.Len(t, data["Metrics"], 1)

	w = get(t, r, "/api/powerbi/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	m := decode[map[string]any](t, w)
	assert.Equal(t, "2026-10-18", m["ExportDate"])
	assert.Equal(t, 3.0, m["TotalProjects"])

	w = get(t, r, "/api/powerbi/projects")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 3)
}

// TestAnalytics verifies scope parameters
func TestAnalytics(t *testing.T) {
	r := createTestRouter(&fakeLinear{ds: createTestDataset()}, nil)

	t.Run("all teams, all time", func(t *testing.T) {
		w := get(t, r, "/api/analytics?range=all")
		require.Equal(t, http.StatusOK, w.Code)
		s := decode[map[string]any](t, w)
		assert.Equal(t, "all", s["team"])
		assert.Equal(t, 3.0, s["projectCounts"].(map[string]any)["total"])
	})

	t.Run("team filter", func(t *testing.T) {
		w := get(t, r, "/api/analytics?team=Mobile&range=all")
		require.Equal(t, http.StatusOK, w.Code)
		s := decode[map[string]any](t, w)
		assert.Equal(t, "Mobile", s["team"])
		assert.Len(t, s["projects"], 2)
	})

	t.Run("default range drops old records", func(t *testing.T) {
		w := get(t, r, "/api/analytics")
		require.Equal(t, http.StatusOK, w.Code)
		s := decode[map[string]any](t, w)
		assert.Equal(t, "30days", s["range"])
	})

	t.Run("bad range", func(t *testing.T) {
		w := get(t, r, "/api/analytics?range=13days")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestChart verifies SVG chart rendering
func TestChart(t *testing.T) {
	r := createTestRouter(&fakeLinear{ds: createTestDataset()}, nil)

	w := get(t, r, "/api/charts/status.svg?range=all")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(w.Body.String()), "<?xml"))
	assert.Contains(t, w.Body.String(), "</svg>")

	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/charts/pie.svg").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/charts/status.png").Code)

	empty := createTestRouter(&fakeLinear{}, nil)
	assert.Equal(t, http.StatusNotFound, get(t, empty, "/api/charts/teams.svg").Code)
}

// TestMetricsEndpoint verifies request metrics are exposed
func TestMetricsEndpoint(t *testing.T) {
	rec := telemetry.New()
	r := createTestRouter(&fakeLinear{ds: createTestDataset()}, rec)

	require.Equal(t, http.StatusOK, get(t, r, "/api/projects/p1").Code)

	w := get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `path="/api/projects/:id"`)
}
