package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/robby/linearpulse/internal/flatten"
)

// WriteCSV writes rows with a header taken from the struct's csv tags.
// An empty table produces an empty file.
func WriteCSV[T any](w io.Writer, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return gocsv.Marshal(rows, w)
}

// csvTime is a nullable timestamp cell in RFC 3339 UTC.
type csvTime struct{ t *time.Time }

func (c csvTime) MarshalCSV() (string, error) {
	if c.t == nil {
		return "", nil
	}
	return c.t.UTC().Format(time.RFC3339), nil
}

// csvInt is a nullable integer cell.
type csvInt struct{ n *int }

func (c csvInt) MarshalCSV() (string, error) {
	if c.n == nil {
		return "", nil
	}
	return strconv.Itoa(*c.n), nil
}

// csvList joins values with ", " in one cell.
type csvList struct{ items []string }

func (c csvList) MarshalCSV() (string, error) {
	return strings.Join(c.items, ", "), nil
}

// projectRecord is one line of projects_<date>.csv.
type projectRecord struct {
	ID              string  `csv:"ProjectId"`
	Name            string  `csv:"ProjectName"`
	Description     string  `csv:"ProjectDescription"`
	URL             string  `csv:"Url"`
	State           string  `csv:"State"`
	ProgressPercent int     `csv:"ProgressPercent"`
	StartDate       csvTime `csv:"StartDate"`
	TargetDate      csvTime `csv:"TargetDate"`
	CreatedAt       csvTime `csv:"CreatedAt"`
	UpdatedAt       csvTime `csv:"UpdatedAt"`
	CompletedAt     csvTime `csv:"CompletedAt"`
	CanceledAt      csvTime `csv:"CanceledAt"`
	TeamNames       csvList `csv:"TeamNames"`
	TeamIDs         csvList `csv:"TeamIds"`
	LeadName        string  `csv:"LeadName"`
	LeadEmail       string  `csv:"LeadEmail"`
	MemberCount     int     `csv:"MemberCount"`
	DaysToDeadline  csvInt  `csv:"DaysToDeadline"`
	DeadlineStatus  string  `csv:"DeadlineStatus"`
	DurationDays    csvInt  `csv:"DurationDays"`
}

func projectRecords(rows []flatten.ProjectRow) []projectRecord {
	out := make([]projectRecord, len(rows))
	for i, r := range rows {
		out[i] = projectRecord{
			ID:              r.ID,
			Name:            r.Name,
			Description:     r.Description,
			URL:             r.URL,
			State:           string(r.State),
			ProgressPercent: r.ProgressPercent,
			StartDate:       csvTime{r.StartDate},
			TargetDate:      csvTime{r.TargetDate},
			CreatedAt:       csvTime{r.CreatedAt},
			UpdatedAt:       csvTime{r.UpdatedAt},
			CompletedAt:     csvTime{r.CompletedAt},
			CanceledAt:      csvTime{r.CanceledAt},
			TeamNames:       csvList{r.TeamNames},
			TeamIDs:         csvList{r.TeamIDs},
			LeadName:        r.LeadName,
			LeadEmail:       r.LeadEmail,
			MemberCount:     r.MemberCount,
			DaysToDeadline:  csvInt{r.DaysToDeadline},
			DeadlineStatus:  string(r.DeadlineStatus),
			DurationDays:    csvInt{r.DurationDays},
		}
	}
	return out
}

// issueRecord is one line of issues_<date>.csv.
type issueRecord struct {
	ID             string  `csv:"IssueId"`
	Identifier     string  `csv:"Identifier"`
	Title          string  `csv:"IssueTitle"`
	StateName      string  `csv:"StateName"`
	StateType      string  `csv:"StateType"`
	Priority       int     `csv:"Priority"`
	PriorityLabel  string  `csv:"PriorityLabel"`
	Estimate       float64 `csv:"Estimate"`
	CreatedAt      csvTime `csv:"CreatedAt"`
	UpdatedAt      csvTime `csv:"UpdatedAt"`
	CompletedAt    csvTime `csv:"CompletedAt"`
	CanceledAt     csvTime `csv:"CanceledAt"`
	AssigneeName   string  `csv:"AssigneeName"`
	CreatorName    string  `csv:"CreatorName"`
	TeamID         string  `csv:"TeamId"`
	TeamName       string  `csv:"TeamName"`
	TeamKey        string  `csv:"TeamKey"`
	ProjectID      string  `csv:"ProjectId"`
	ProjectName    string  `csv:"ProjectName"`
	Labels         csvList `csv:"Labels"`
	DaysToComplete csvInt  `csv:"DaysToComplete"`
	AgeDays        csvInt  `csv:"AgeDays"`
}

func issueRecords(rows []flatten.IssueRow) []issueRecord {
	out := make([]issueRecord, len(rows))
	for i, r := range rows {
		out[i] = issueRecord{
			ID:             r.ID,
			Identifier:     r.Identifier,
			Title:          r.Title,
			StateName:      r.StateName,
			StateType:      string(r.StateType),
			Priority:       r.Priority,
			PriorityLabel:  r.PriorityLabel,
			Estimate:       r.Estimate,
			CreatedAt:      csvTime{r.CreatedAt},
			UpdatedAt:      csvTime{r.UpdatedAt},
			CompletedAt:    csvTime{r.CompletedAt},
			CanceledAt:     csvTime{r.CanceledAt},
			AssigneeName:   r.AssigneeName,
			CreatorName:    r.CreatorName,
			TeamID:         r.TeamID,
			TeamName:       r.TeamName,
			TeamKey:        r.TeamKey,
			ProjectID:      r.ProjectID,
			ProjectName:    r.ProjectName,
			Labels:         csvList{r.Labels},
			DaysToComplete: csvInt{r.DaysToComplete},
			AgeDays:        csvInt{r.AgeDays},
		}
	}
	return out
}
