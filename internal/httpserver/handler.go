package httpserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/chart"
	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/export"
	"github.com/robby/linearpulse/internal/flatten"
	"github.com/robby/linearpulse/internal/linear"
)

// LinearAPI is the subset of the Linear client the handlers use.
type LinearAPI interface {
	Viewer(ctx context.Context) (domain.Viewer, error)
	Teams(ctx context.Context) ([]domain.Team, error)
	Projects(ctx context.Context) ([]domain.Project, error)
	Project(ctx context.Context, id string) (domain.Project, error)
	FetchAll(ctx context.Context) (domain.Dataset, error)
}

// Handler serves the JSON API. Every request fetches fresh data upstream.
type Handler struct {
	linear LinearAPI
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewHandler creates a Handler. Timestamps are evaluated in loc.
func NewHandler(api LinearAPI, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{linear: api, logger: logger, loc: loc, now: time.Now}
}

func (h *Handler) clock() time.Time {
	return h.now().In(h.loc)
}

// fail logs an upstream error and answers 500, or 404 for missing records.
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	if errors.Is(err, linear.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	h.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TestConnection verifies the API key by asking Linear who we are.
func (h *Handler) TestConnection(c *gin.Context) {
	v, err := h.linear.Viewer(c.Request.Context())
	if err != nil {
		h.logger.Error("Linear connection test failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to connect to Linear API",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": v})
}

func (h *Handler) ListTeams(c *gin.Context) {
	teams, err := h.linear.Teams(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to fetch teams", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(teams))
}

// ListProjects returns ongoing projects first, each group by target date.
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.linear.Projects(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to fetch projects", err)
		return
	}
	analytics.SortProjects(projects)
	c.JSON(http.StatusOK, nonNil(projects))
}

func (h *Handler) GetProject(c *gin.Context) {
	p, err := h.linear.Project(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to fetch project details", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ProjectSummary(c *gin.Context) {
	p, err := h.linear.Project(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to fetch project summary", err)
		return
	}
	c.JSON(http.StatusOK, analytics.SummarizeProject(p))
}

// PowerBI serves the export tables. table is "" for the combined document.
func (h *Handler) PowerBI(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ds, err := h.linear.FetchAll(c.Request.Context())
		if err != nil {
			h.fail(c, "Failed to fetch Power BI data", err)
			return
		}
		t, err := export.Build(ds, h.clock())
		if err != nil {
			h.fail(c, "Failed to transform Power BI data", err)
			return
		}

		switch table {
		case "projects":
			c.JSON(http.StatusOK, t.Projects)
		case "issues":
			c.JSON(http.StatusOK, t.Issues)
		case "teams":
			c.JSON(http.StatusOK, t.Teams)
		case "metrics":
			c.JSON(http.StatusOK, t.Metrics[0])
		default:
			c.JSON(http.StatusOK, t)
		}
	}
}

// snapshot computes metrics for the team and range in the query string.
// ok is false when a response has already been written.
func (h *Handler) snapshot(c *gin.Context) (analytics.Snapshot, bool) {
	r, err := analytics.ParseRange(c.Query("range"), c.Query("start"), c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return analytics.Snapshot{}, false
	}
	scope := analytics.Scope{Team: c.DefaultQuery("team", analytics.AllTeams), Range: r}

	ds, err := h.linear.FetchAll(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to fetch analytics data", err)
		return analytics.Snapshot{}, false
	}
	now := h.clock()
	rows, err := flatten.Dataset(ds, now)
	if err != nil {
		h.fail(c, "Failed to flatten analytics data", err)
		return analytics.Snapshot{}, false
	}
	return analytics.Compute(rows.Projects, rows.Issues, rows.Teams, scope, now), true
}

// Analytics returns the metrics snapshot for ?team=&range=&start=&end=.
func (h *Handler) Analytics(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Chart renders /api/charts/<kind>.svg for the same query as Analytics.
func (h *Handler) Chart(c *gin.Context) {
	kind, ok := strings.CutSuffix(c.Param("file"), ".svg")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "charts are served as .svg"})
		return
	}

	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	ch, err := chart.ForSnapshot(kind, snap)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	err = chart.SVG(&buf, ch, chart.DefaultWidth, chart.DefaultHeight)
	if errors.Is(err, chart.ErrEmpty) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for chart"})
		return
	}
	if err != nil {
		h.fail(c, "Failed to render chart", err)
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
