package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/flatten"
)

var exportNow = time.Date(2026, 10, 18, 17, 0, 0, 0, time.UTC)

// Test fixtures
func createTestDataset() domain.Dataset {
	created := exportNow.AddDate(0, 0, -10)
	target := exportNow.AddDate(0, 0, 5)
	plt := domain.TeamRef{ID: "team_plt", Name: "Platform", Key: "PLT"}
	ops := domain.TeamRef{ID: "team_ops", Name: "Ops", Key: "OPS"}

	return domain.Dataset{
		Teams: []domain.Team{
			{ID: "team_plt", Name: "Platform", Key: "PLT"},
			{ID: "team_ops", Name: "Ops", Key: "OPS"},
		},
		Projects: []domain.Project{
			{
				ID: "proj_1", Name: "Billing, v2", State: domain.ProjectStarted, Progress: 0.5,
				CreatedAt: &created, TargetDate: &target, Teams: []domain.TeamRef{plt, ops},
			},
			{ID: "proj_2", Name: "Done", State: domain.ProjectCompleted, Progress: 1, Teams: []domain.TeamRef{plt}},
		},
		Issues: []domain.Issue{
			{
				ID: "iss_1", Identifier: "PLT-1", Title: "Invoices", StateType: domain.StateCompleted,
				Estimate: 3, Team: &plt, Labels: []domain.Label{{Name: "bug"}, {Name: "billing"}},
			},
			{ID: "iss_2", Identifier: "PLT-2", Title: "Refunds", StateType: domain.StateStarted, Estimate: 2, Team: &plt},
		},
	}
}

// TestBuild verifies the export tables
func TestBuild(t *testing.T) {
	tables, err := Build(createTestDataset(), exportNow)
	require.NoError(t, err)

	assert.Len(t, tables.Projects, 2)
	assert.Len(t, tables.Issues, 2)
	assert.Len(t, tables.Teams, 2)
	require.Len(t, tables.Metrics, 1)

	m := tables.Metrics[0]
	assert.Equal(t, "2026-10-18", m.ExportDate)
	assert.Equal(t, 75, m.AverageProjectProgress)
	assert.Equal(t, 5.0, m.TotalEstimatePoints)
	assert.Equal(t, 3.0, m.CompletedEstimatePoints)

	t.Run("empty dataset encodes empty arrays", func(t *testing.T) {
		tables, err := Build(domain.Dataset{}, exportNow)
		require.NoError(t, err)
		data, err := json.Marshal(tables)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"Projects":[]`)
		assert.Equal(t, 0, tables.Metrics[0].AverageProjectProgress)
	})

	t.Run("missing identity", func(t *testing.T) {
		_, err := Build(domain.Dataset{Projects: []domain.Project{{ID: "p"}}}, exportNow)
		assert.ErrorIs(t, err, flatten.ErrMissingIdentity)
	})
}

// TestWrite verifies every file is written with the date suffix
func TestWrite(t *testing.T) {
	tables, err := Build(createTestDataset(), exportNow)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := New(dir, nil).Write(context.Background(), tables, exportNow)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
		assert.FileExists(t, p)
	}
	assert.Equal(t, []string{
		"projects_2026-10-18.json",
		"issues_2026-10-18.json",
		"teams_2026-10-18.json",
		"metrics_2026-10-18.json",
		"linear_data_2026-10-18.json",
		"projects_2026-10-18.csv",
		"issues_2026-10-18.csv",
		"teams_2026-10-18.csv",
		"metrics_2026-10-18.csv",
	}, names)

	t.Run("combined json", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "linear_data_2026-10-18.json"))
		require.NoError(t, err)

		var combined map[string][]map[string]any
		require.NoError(t, json.Unmarshal(data, &combined))
		assert.Len(t, combined["Projects"], 2)
		assert.Len(t, combined["Metrics"], 1)
		assert.Equal(t, "Billing, v2", combined["Projects"][0]["ProjectName"])
	})

	t.Run("projects csv", func(t *testing.T) {
		f, err := os.Open(filepath.Join(dir, "projects_2026-10-18.csv"))
		require.NoError(t, err)
		defer f.Close()

		records, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)

		head := records[0]
		assert.Equal(t, "ProjectId", head[0])
		col := func(name string) string {
			for i, h := range head {
				if h == name {
					return records[1][i]
				}
			}
			t.Fatalf("column %s missing", name)
			return ""
		}
		assert.Equal(t, "Billing, v2", col("ProjectName"))
		assert.Equal(t, "Platform, Ops", col("TeamNames"))
		assert.Equal(t, "5", col("DaysToDeadline"))
		assert.Equal(t, "", col("CompletedAt"))
		assert.Equal(t, "2026-10-08T17:00:00Z", col("CreatedAt"))
	})

	t.Run("metrics and teams csv", func(t *testing.T) {
		for name, first := range map[string]string{
			"metrics_2026-10-18.csv": "ExportDate",
			"teams_2026-10-18.csv":   "TeamId",
		} {
			f, err := os.Open(filepath.Join(dir, name))
			require.NoError(t, err)
			records, err := csv.NewReader(f).ReadAll()
			f.Close()
			require.NoError(t, err)
			require.NotEmpty(t, records)
			assert.Equal(t, first, records[0][0], name)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(t.TempDir(), nil).Write(ctx, tables, exportNow)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// TestWriteCSV verifies header and cell formatting
func TestWriteCSV(t *testing.T) {
	type row struct {
		Name  string  `csv:"Name"`
		Score float64 `csv:"Score"`
		Tags  csvList `csv:"Tags"`
		Days  csvInt  `csv:"Days"`
		Seen  csvTime `csv:"Seen"`
	}
	days := 3
	seen := time.Date(2026, 10, 18, 20, 0, 0, 0, time.FixedZone("EAT", 3*3600))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []row{
		{Name: "a", Score: 1.5, Tags: csvList{[]string{"x", "y"}}, Days: csvInt{&days}, Seen: csvTime{&seen}},
		{Name: "b \"quoted\""},
	}))

	assert.Equal(t,
		"Name,Score,Tags,Days,Seen\n"+
			"a,1.5,\"x, y\",3,2026-10-18T17:00:00Z\n"+
			"\"b \"\"quoted\"\"\",0,,,\n",
		buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV[row](&buf, nil))
	assert.Empty(t, buf.String())
}

func TestRecords(t *testing.T) {
	tables, err := Build(createTestDataset(), exportNow)
	require.NoError(t, err)

	projects := projectRecords(tables.Projects)
	require.Len(t, projects, 2)
	assert.Equal(t, "started", projects[0].State)
	assert.Equal(t, []string{"Platform", "Ops"}, projects[0].TeamNames.items)

	issues := issueRecords(tables.Issues)
	require.Len(t, issues, 2)
	labels, err := issues[0].Labels.MarshalCSV()
	require.NoError(t, err)
	assert.Equal(t, "bug, billing", labels)
	completed, err := issues[1].CompletedAt.MarshalCSV()
	require.NoError(t, err)
	assert.Empty(t, completed)
}
