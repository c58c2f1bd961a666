package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robby/linearpulse/internal/analytics"
)

// ErrUnknownKind is returned for an unsupported report kind.
var ErrUnknownKind = errors.New("unknown report kind")

// Kind selects what a report run produces.
type Kind string

const (
	// Daily sends the overall report followed by one report per team.
	Daily Kind = "daily"
	// Overall sends only the workspace-wide snapshot report.
	Overall   Kind = "overall"
	Weekly    Kind = "weekly"
	Monthly   Kind = "monthly"
	Quarterly Kind = "quarterly"
	Yearly    Kind = "yearly"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{Daily, Overall, Weekly, Monthly, Quarterly, Yearly}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Periodic reports whether k summarizes activity within a calendar period.
func (k Kind) Periodic() bool {
	switch k {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// PeriodRange returns the window a periodic report covers: from the start of
// the current week (Monday), month, quarter or year up to now. Boundaries use
// now's location. Snapshot kinds cover everything up to now.
func PeriodRange(k Kind, now time.Time) (analytics.Period, error) {
	y, m, d := now.Date()
	loc := now.Location()

	var start time.Time
	switch k {
	case Weekly:
		// Sunday belongs to the week that started six days earlier.
		back := (int(now.Weekday()) + 6) % 7
		start = time.Date(y, m, d-back, 0, 0, 0, 0, loc)
	case Monthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case Quarterly:
		start = time.Date(y, quarterStart(m), 1, 0, 0, 0, 0, loc)
	case Yearly:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	case Daily, Overall:
		return analytics.Period{End: now}, nil
	default:
		return analytics.Period{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return analytics.Period{Start: start, End: now}, nil
}

func quarterStart(m time.Month) time.Month {
	return time.Month((int(m)-1)/3*3 + 1)
}

// Title returns the human title of a periodic report.
func Title(k Kind, now time.Time) string {
	switch k {
	case Weekly:
		return "Weekly Report"
	case Monthly:
		return fmt.Sprintf("%s %d Report", now.Month(), now.Year())
	case Quarterly:
		return fmt.Sprintf("Q%d %d Report", (int(now.Month())-1)/3+1, now.Year())
	case Yearly:
		return fmt.Sprintf("%d Annual Report", now.Year())
	case Overall, Daily:
		return "Overall Project Report"
	}
	return "Report"
}

// TeamTitle is the title of a per-team snapshot report.
func TeamTitle(team string) string {
	return team + " Team Report"
}

// Intervals splits a periodic report's window into trend buckets: Monday to
// Friday for weekly, four 7-day weeks for monthly, and calendar months for
// quarterly and yearly reports. Each bucket is half-open.
func Intervals(k Kind, p analytics.Period) []analytics.Interval {
	var out []analytics.Interval
	add := func(label string, from, to time.Time) {
		out = append(out, analytics.Interval{Label: label, Period: analytics.Period{Start: from, End: to}})
	}

	switch k {
	case Weekly:
		for i, label := range []string{"Mon", "Tue", "Wed", "Thu", "Fri"} {
			add(label, p.Start.AddDate(0, 0, i), p.Start.AddDate(0, 0, i+1))
		}
	case Monthly:
		for i := 0; i < 4; i++ {
			add(fmt.Sprintf("Week %d", i+1), p.Start.AddDate(0, 0, 7*i), p.Start.AddDate(0, 0, 7*(i+1)))
		}
	case Quarterly, Yearly:
		n := 3
		if k == Yearly {
			n = 12
		}
		for i := 0; i < n; i++ {
			add(fmt.Sprintf("Month %d", i+1), p.Start.AddDate(0, i, 0), p.Start.AddDate(0, i+1, 0))
		}
	}
	return out
}

// RangeText formats a period as "Oct 12, 2026 - Oct 18, 2026".
func RangeText(p analytics.Period) string {
	return FormatDate(&p.Start) + " - " + FormatDate(&p.End)
}

// FormatDate formats t as "Oct 18, 2026", or "Not set" when nil.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "Not set"
	}
	return t.Format("Jan 2, 2006")
}
