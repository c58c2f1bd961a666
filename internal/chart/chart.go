// Package chart renders the report and dashboard charts as PNG (for email
// attachments) or SVG (for the HTTP API). A Chart is a plain data description;
// the builders in this file turn analytics results into one.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"sort"

	"github.com/robby/linearpulse/internal/analytics"
	"github.com/robby/linearpulse/internal/flatten"
)

// ErrUnknownKind is returned by ForSnapshot for an unsupported chart name.
var ErrUnknownKind = errors.New("unknown chart kind")

// ErrEmpty is returned when a chart has nothing to draw.
var ErrEmpty = errors.New("chart has no data")

// Kind is the chart shape.
type Kind int

const (
	Doughnut Kind = iota
	Bar
	Line
)

// Default image size, matching the email layout.
const (
	DefaultWidth  = 800
	DefaultHeight = 400
)

// Series is one named set of values, aligned with Chart.Labels.
type Series struct {
	Name   string
	Color  color.RGBA
	Values []float64
}

// Chart describes what to draw.
// Doughnut charts use the first series and color each slice from Colors.
type Chart struct {
	Kind   Kind
	Title  string
	Labels []string
	Series []Series
	Colors []color.RGBA // per-label colors for doughnut and single-series bars
}

func (c Chart) validate() error {
	if len(c.Labels) == 0 || len(c.Series) == 0 {
		return ErrEmpty
	}
	for _, s := range c.Series {
		if len(s.Values) != len(c.Labels) {
			return fmt.Errorf("series %q has %d values for %d labels", s.Name, len(s.Values), len(c.Labels))
		}
	}
	return nil
}

// total sums the first series.
func (c Chart) total() float64 {
	var t float64
	for _, v := range c.Series[0].Values {
		if v > 0 {
			t += v
		}
	}
	return t
}

// maxValue returns the largest value across all series, at least 1.
func (c Chart) maxValue() float64 {
	m := 1.0
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// sliceColor returns the color of label i.
func (c Chart) sliceColor(i int) color.RGBA {
	if i < len(c.Colors) {
		return c.Colors[i]
	}
	return palette[i%len(palette)]
}

var (
	colorBlue   = color.RGBA{0x3b, 0x82, 0xf6, 0xff}
	colorGreen  = color.RGBA{0x10, 0xb9, 0x81, 0xff}
	colorRed    = color.RGBA{0xef, 0x44, 0x44, 0xff}
	colorAmber  = color.RGBA{0xf5, 0x9e, 0x0b, 0xff}
	colorGray   = color.RGBA{0x9c, 0xa3, 0xaf, 0xff}
	colorPurple = color.RGBA{0x8b, 0x5c, 0xf6, 0xff}

	colorText     = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	colorSubtle   = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	colorGrid     = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	colorBackdrop = color.RGBA{0xff, 0xff, 0xff, 0xff}

	palette = []color.RGBA{colorBlue, colorGreen, colorAmber, colorRed, colorPurple, colorGray}
)

// StatusDistribution is a doughnut of projects by lifecycle bucket.
// Planned and started projects are both shown as Active.
func StatusDistribution(c analytics.ProjectCounts) Chart {
	return Chart{
		Kind:   Doughnut,
		Title:  "Project Status Distribution",
		Labels: []string{"Active", "Completed", "Canceled", "Paused"},
		Series: []Series{{
			Name:   "Projects",
			Values: []float64{float64(c.Planned + c.Started), float64(c.Completed), float64(c.Canceled), float64(c.Paused)},
		}},
		Colors: []color.RGBA{colorBlue, colorGreen, colorRed, colorAmber},
	}
}

// ProgressHistogram is a bar chart of the progress buckets.
func ProgressHistogram(buckets []analytics.Bucket) Chart {
	c := Chart{
		Kind:   Bar,
		Title:  "Project Progress Distribution",
		Series: []Series{{Name: "Number of Projects", Color: colorBlue}},
		Colors: []color.RGBA{colorRed, colorAmber, colorAmber, colorBlue, colorGreen},
	}
	for _, b := range buckets {
		c.Labels = append(c.Labels, b.Label)
		c.Series[0].Values = append(c.Series[0].Values, float64(b.Count))
	}
	return c
}

// DeadlineStatus is a doughnut of unfinished projects by deadline status.
func DeadlineStatus(counts map[flatten.DeadlineStatus]int) Chart {
	order := []flatten.DeadlineStatus{
		flatten.StatusOnTrack,
		flatten.StatusDueSoon,
		flatten.StatusOverdue,
		flatten.StatusNoDeadline,
	}
	c := Chart{
		Kind:   Doughnut,
		Title:  "Deadline Status",
		Series: []Series{{Name: "Projects"}},
		Colors: []color.RGBA{colorGreen, colorAmber, colorRed, colorGray},
	}
	for _, s := range order {
		c.Labels = append(c.Labels, string(s))
		c.Series[0].Values = append(c.Series[0].Values, float64(counts[s]))
	}
	return c
}

// TeamOverview compares teams by project count and completed issues, sorted
// by team name.
func TeamOverview(metrics map[string]analytics.TeamMetrics) Chart {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	c := Chart{
		Kind:   Bar,
		Title:  "Team Comparison",
		Labels: names,
		Series: []Series{
			{Name: "Projects", Color: colorBlue},
			{Name: "Completed Issues", Color: colorGreen},
		},
	}
	for _, n := range names {
		m := metrics[n]
		c.Series[0].Values = append(c.Series[0].Values, float64(m.ProjectCount))
		c.Series[1].Values = append(c.Series[1].Values, float64(m.CompletedCount))
	}
	return c
}

// TeamActivity compares teams by projects completed and created in a period.
func TeamActivity(title string, activity []analytics.TeamActivity) Chart {
	c := Chart{
		Kind:  Bar,
		Title: title,
		Series: []Series{
			{Name: "Completed", Color: colorGreen},
			{Name: "Created", Color: colorBlue},
		},
	}
	for _, a := range activity {
		c.Labels = append(c.Labels, a.Team)
		c.Series[0].Values = append(c.Series[0].Values, float64(a.Completed))
		c.Series[1].Values = append(c.Series[1].Values, float64(a.Created))
	}
	return c
}

// ActivityTrend is a line chart of projects completed and created per interval.
func ActivityTrend(title string, points []analytics.TrendPoint) Chart {
	c := Chart{
		Kind:  Line,
		Title: title,
		Series: []Series{
			{Name: "Projects Completed", Color: colorGreen},
			{Name: "Projects Created", Color: colorBlue},
		},
	}
	for _, p := range points {
		c.Labels = append(c.Labels, p.Label)
		c.Series[0].Values = append(c.Series[0].Values, float64(p.Completed))
		c.Series[1].Values = append(c.Series[1].Values, float64(p.Created))
	}
	return c
}

// Snapshot chart names accepted by ForSnapshot.
const (
	KindStatus    = "status"
	KindProgress  = "progress"
	KindTeams     = "teams"
	KindDeadlines = "deadlines"
)

// ForSnapshot builds the named chart from a metrics snapshot.
func ForSnapshot(kind string, s analytics.Snapshot) (Chart, error) {
	switch kind {
	case KindStatus:
		return StatusDistribution(s.ProjectCounts), nil
	case KindProgress:
		return ProgressHistogram(s.ProgressBuckets), nil
	case KindTeams:
		return TeamOverview(s.TeamMetrics), nil
	case KindDeadlines:
		return DeadlineStatus(s.DeadlineCounts), nil
	}
	return Chart{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
