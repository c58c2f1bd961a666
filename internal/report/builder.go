// Package report turns a fetched Linear dataset into HTML email reports with
// inline charts and delivers them. One Builder covers the daily team reports,
// the overall snapshot and the weekly to yearly period summaries.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/chart"
	"github.com/robby/linearpulse/internal/flatten"
	"github.com/robby/linearpulse/internal/mail"
	"github.com/robby/linearpulse/internal/store"
)

// Table sizes.
const (
	MaxActiveRows    = 15
	MaxCompletedRows = 10
)

// Inline image content IDs referenced by the templates.
const (
	CIDStatus    = "statusChart"
	CIDProgress  = "progressChart"
	CIDDeadlines = "deadlineChart"
	CIDTeams     = "teamChart"
	CIDTrend     = "trendChart"
)

// Spec describes one report to build.
type Spec struct {
	Kind Kind
	// Scope.Team names the team, or is analytics.AllTeams for the whole workspace.
	Scope analytics.Scope
	// Period is the window of a periodic report. Snapshot reports ignore it.
	Period     analytics.Period
	Recipients []string
}

// Name identifies the report in logs and dedupe keys.
func (s Spec) Name() string {
	if s.Scope.IsAllTeams() {
		return "overall"
	}
	return s.Scope.Team
}

// Report is a rendered email, ready to deliver.
type Report struct {
	Spec     Spec
	Title    string
	Subject  string
	HTML     string
	Charts   []mail.Inline
	Projects int
	Shared   int
}

// Builder plans and renders reports.
type Builder struct {
	mode   store.TeamMode
	loc    *time.Location
	logger *zap.Logger
}

// NewBuilder creates a Builder attributing shared projects by mode and
// formatting dates in loc.
func NewBuilder(mode store.TeamMode, loc *time.Location, logger *zap.Logger) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{mode: mode, loc: loc, logger: logger}
}

// Plan lists the reports one run of kind produces. team restricts the run to
// one team by name; empty means every team (daily) or the whole workspace.
// Daily runs skip teams that have no projects under the configured mode.
func (b *Builder) Plan(st *store.Store, k Kind, team string, recipients []string, now time.Time) ([]Spec, error) {
	now = now.In(b.loc)

	scope := analytics.Scope{Team: analytics.AllTeams, Range: analytics.AllTime()}
	if team != "" && team != analytics.AllTeams {
		t, err := st.TeamByName(team)
		if err != nil {
			return nil, err
		}
		scope.Team = t.Name
	}

	period, err := PeriodRange(k, now)
	if err != nil {
		return nil, err
	}
	base := Spec{Kind: k, Scope: scope, Period: period, Recipients: recipients}

	if k != Daily || !scope.IsAllTeams() {
		return []Spec{base}, nil
	}

	specs := []Spec{base}
	for _, t := range st.Teams() {
		ps, err := st.ProjectsForTeam(t.ID, b.mode)
		if err != nil {
			return nil, err
		}
		if len(ps) == 0 {
			b.logger.Info("Skipping team with no projects", zap.String("team", t.Name))
			continue
		}
		s := base
		s.Scope.Team = t.Name
		specs = append(specs, s)
	}
	return specs, nil
}

// Build renders spec from the store contents.
func (b *Builder) Build(st *store.Store, spec Spec, now time.Time) (Report, error) {
	now = now.In(b.loc)

	ds, err := st.Dataset()
	if err != nil {
		return Report{}, err
	}
	rows, err := flatten.Dataset(ds, now)
	if err != nil {
		return Report{}, fmt.Errorf("failed to flatten dataset: %w", err)
	}

	if spec.Kind.Periodic() {
		return b.buildPeriodic(rows, spec, now)
	}

	projects := rows.Projects
	if !spec.Scope.IsAllTeams() {
		projects, err = b.teamProjects(st, spec.Scope.Team, now)
		if err != nil {
			return Report{}, err
		}
	}
	return b.buildSnapshot(rows, projects, spec, now)
}

// teamProjects selects a team's projects under the builder's multi-team mode.
func (b *Builder) teamProjects(st *store.Store, name string, now time.Time) ([]flatten.ProjectRow, error) {
	t, err := st.TeamByName(name)
	if err != nil {
		return nil, err
	}
	ps, err := st.ProjectsForTeam(t.ID, b.mode)
	if err != nil {
		return nil, err
	}
	return flatten.Projects(ps, now)
}

func (b *Builder) buildSnapshot(rows flatten.Rows, projects []flatten.ProjectRow, spec Spec, now time.Time) (Report, error) {
	snap := analytics.Compute(projects, rows.Issues, rows.Teams, spec.Scope, now)

	title := Title(Overall, now)
	p := page{
		DateLine:    now.Format("2006-01-02"),
		GeneratedAt: generatedAt(now),
	}
	if !spec.Scope.IsAllTeams() {
		title = TeamTitle(spec.Scope.Team)
		p.Team = spec.Scope.Team
		p.Shared = len(sharedRows(snap.Projects))
	}
	p.Title = title

	counts := snap.ProjectCounts
	p.Stats = []stat{
		{Value: strconv.Itoa(counts.Total), Label: "Total Projects"},
		{Value: strconv.Itoa(counts.Active), Label: "Active Projects"},
		{Value: strconv.Itoa(counts.Completed), Label: "Completed"},
		{Value: fmt.Sprintf("%d%%", percent(counts.Completed, counts.Total)), Label: "Completion Rate"},
		{Value: strconv.Itoa(snap.HealthScore), Label: "Health Score"},
	}

	charts := []chartSpec{
		{CIDStatus, "status-chart.png", "Status Chart", chart.StatusDistribution(counts)},
		{CIDProgress, "progress-chart.png", "Progress Chart", chart.ProgressHistogram(snap.ProgressBuckets)},
		{CIDDeadlines, "deadline-chart.png", "Deadline Status", chart.DeadlineStatus(snap.DeadlineCounts)},
	}
	if spec.Scope.IsAllTeams() && len(snap.TeamMetrics) > 0 {
		charts = append(charts, chartSpec{CIDTeams, "team-chart.png", "Team Comparison", chart.TeamOverview(snap.TeamMetrics)})
	}

	for _, r := range snap.Projects {
		if r.State.Terminal() {
			continue
		}
		if len(p.Active) == MaxActiveRows {
			break
		}
		p.Active = append(p.Active, toActiveRow(r, spec.Scope.IsAllTeams()))
	}

	return b.finish(spec, p, charts, "snapshot.html", len(snap.Projects), now)
}

func (b *Builder) buildPeriodic(rows flatten.Rows, spec Spec, now time.Time) (Report, error) {
	all := rows.Projects
	if !spec.Scope.IsAllTeams() {
		var scoped []flatten.ProjectRow
		for _, r := range all {
			if r.HasTeam(spec.Scope.Team) {
				scoped = append(scoped, r)
			}
		}
		all = scoped
	}

	period := spec.Period
	active := analytics.ActiveInPeriod(all, period)
	stats := analytics.ComputePeriodStats(all, active, period)
	title := Title(spec.Kind, now)

	p := page{
		Title:       title,
		DateLine:    RangeText(period),
		GeneratedAt: generatedAt(now),
		Period:      stats,
	}
	if !spec.Scope.IsAllTeams() {
		p.Team = spec.Scope.Team
	}
	p.Stats = []stat{
		{Value: strconv.Itoa(stats.TotalProjects), Label: "Total Projects"},
		{Value: strconv.Itoa(stats.CreatedInPeriod), Label: "Created This Period"},
		{Value: strconv.Itoa(stats.CompletedInPeriod), Label: "Completed This Period"},
		{Value: strconv.Itoa(stats.ActiveInPeriod), Label: "Currently Active"},
		{Value: fmt.Sprintf("%d%%", stats.CompletionRate), Label: "Overall Completion Rate"},
	}

	charts := []chartSpec{
		{CIDTrend, "trend-chart.png", "Activity Trend",
			chart.ActivityTrend(title+" - Project Activity Trend", analytics.Trend(all, Intervals(spec.Kind, period)))},
	}
	if spec.Scope.IsAllTeams() && len(rows.Teams) > 0 {
		charts = append(charts, chartSpec{CIDTeams, "team-chart.png", "Team Performance",
			chart.TeamActivity("Team Performance - "+title, analytics.CompareTeams(all, rows.Teams, period))})
	}
	progress := chart.ProgressHistogram(analytics.ProgressBuckets(all))
	progress.Title = "Current Progress Distribution"
	charts = append(charts, chartSpec{CIDProgress, "progress-chart.png", "Progress Overview", progress})

	for _, r := range analytics.CompletedInPeriod(all, period) {
		if len(p.Completed) == MaxCompletedRows {
			break
		}
		p.Completed = append(p.Completed, completedRow{
			Name:        r.Name,
			CompletedAt: FormatDate(localTime(r.CompletedAt, b.loc)),
			Teams:       r.TeamNames,
		})
	}

	return b.finish(spec, p, charts, "periodic.html", len(all), now)
}

type chartSpec struct {
	cid      string
	filename string
	alt      string
	chart    chart.Chart
}

// finish renders charts and HTML and assembles the Report.
func (b *Builder) finish(spec Spec, p page, charts []chartSpec, tmpl string, projects int, now time.Time) (Report, error) {
	var inline []mail.Inline
	for _, c := range charts {
		data, err := chart.PNGBytes(c.chart)
		if err != nil {
			return Report{}, fmt.Errorf("failed to render %s: %w", c.cid, err)
		}
		inline = append(inline, mail.Inline{CID: c.cid, Filename: c.filename, ContentType: "image/png", Data: data})
		p.Charts = append(p.Charts, chartRef{CID: c.cid, Alt: c.alt})
	}

	html, err := render(tmpl, p)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Spec:     spec,
		Title:    p.Title,
		Subject:  Subject(spec, p.Title, now),
		HTML:     html,
		Charts:   inline,
		Projects: projects,
		Shared:   p.Shared,
	}, nil
}

// Subject embeds the report title and the local date.
func Subject(spec Spec, title string, now time.Time) string {
	date := now.Format("2006-01-02")
	if !spec.Kind.Periodic() {
		return title + " - " + date
	}
	where := "Linear Projects"
	if !spec.Scope.IsAllTeams() {
		where = spec.Scope.Team
	}
	return fmt.Sprintf("%s - %s - %s", title, where, date)
}

func toActiveRow(r flatten.ProjectRow, overall bool) activeRow {
	row := activeRow{
		Name:        r.Name,
		Progress:    r.ProgressPercent,
		Target:      FormatDate(r.TargetDate),
		Status:      "No deadline",
		StatusColor: "#3B82F6",
	}
	switch {
	case r.ProgressPercent > analytics.HighProgressPercent:
		row.BarColor = "#10B981"
	case r.ProgressPercent > analytics.AtRiskProgress:
		row.BarColor = "#3B82F6"
	default:
		row.BarColor = "#F59E0B"
	}

	if d := r.DaysToDeadline; d != nil {
		switch {
		case *d < 0:
			row.Status = fmt.Sprintf("%d days overdue", -*d)
			row.StatusColor = "#EF4444"
		case *d <= flatten.DueSoonDays:
			row.Status = fmt.Sprintf("%d days left", *d)
			row.StatusColor = "#F59E0B"
		default:
			row.Status = fmt.Sprintf("%d days left", *d)
		}
	}

	if !overall && len(r.TeamNames) > 1 {
		row.SharedWith = strings.Join(r.TeamNames, ", ")
	}
	return row
}

func sharedRows(rows []flatten.ProjectRow) []flatten.ProjectRow {
	var out []flatten.ProjectRow
	for _, r := range rows {
		if len(r.TeamIDs) > 1 {
			out = append(out, r)
		}
	}
	return out
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func generatedAt(now time.Time) string {
	return fmt.Sprintf("%s (%s)", now.Format("Jan 2, 2006, 3:04:05 PM"), now.Location())
}

func localTime(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	l := t.In(loc)
	return &l
}
