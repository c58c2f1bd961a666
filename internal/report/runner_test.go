package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/linearpulse/internal/dedupe"
	"github.com/robby/linearpulse/internal/domain"
	"github.com/robby/linearpulse/internal/mail"
	"github.com/robby/linearpulse/internal/store"
)

type fakeFetcher struct {
	ds    domain.Dataset
	err   error
	calls int
}

func (f *fakeFetcher) FetchAll(context.Context) (domain.Dataset, error) {
	f.calls++
	return f.ds, f.err
}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) RecordReportSent(kind, status string) {
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[kind+"/"+status]++
}

type sleepLog struct {
	delays []time.Duration
}

func (s *sleepLog) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

var recipients = []string{"lead@example.com", "cto@example.com"}

func createTestRunner(t *testing.T) (*Runner, *mail.Outbox, *sleepLog, *countingRecorder) {
	t.Helper()
	outbox := &mail.Outbox{}
	sleeps := &sleepLog{}
	rec := &countingRecorder{}
	r := &Runner{
		Fetcher:   &fakeFetcher{ds: createTestDataset()},
		Builder:   createTestBuilder(store.ModeAll),
		Mailer:    outbox,
		Deduper:   dedupe.NewMemory(36 * time.Hour),
		Recorder:  rec,
		From:      "reports@example.com",
		SendDelay: 2 * time.Second,
		Now:       func() time.Time { return reportNow },
		Sleep:     sleeps.Sleep,
	}
	return r, outbox, sleeps, rec
}

func subjects(msgs []mail.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Subject)
	}
	return out
}

// TestRun_Daily verifies a daily run sends the overall and team emails
func TestRun_Daily(t *testing.T) {
	r, outbox, sleeps, rec := createTestRunner(t)

	res, err := r.Run(context.Background(), Daily, "", recipients)
	require.NoError(t, err)

	assert.Equal(t, []string{"overall", "Platform", "Mobile"}, res.Sent)
	assert.Empty(t, res.Failed)
	assert.Equal(t, []string{
		"Overall Project Report - 2026-10-18",
		"Platform Team Report - 2026-10-18",
		"Mobile Team Report - 2026-10-18",
	}, subjects(outbox.Sent()))

	msg := outbox.Sent()[0]
	assert.Equal(t, "reports@example.com", msg.From)
	assert.Equal(t, recipients, msg.To)
	assert.Len(t, msg.Inline, 4)

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeps.delays,
		"delay between sends only")
	assert.Equal(t, 3, rec.counts["daily/sent"])
}

// TestRun_Dedupe verifies a repeated run on the same day sends nothing
func TestRun_Dedupe(t *testing.T) {
	r, outbox, _, rec := createTestRunner(t)
	ctx := context.Background()

	_, err := r.Run(ctx, Weekly, "", recipients)
	require.NoError(t, err)

	res, err := r.Run(ctx, Weekly, "", recipients)
	require.NoError(t, err)

	assert.Empty(t, res.Sent)
	assert.Equal(t, []string{"overall"}, res.Skipped)
	assert.Len(t, outbox.Sent(), 1)
	assert.Equal(t, 1, rec.counts["weekly/skipped"])

	t.Run("other kinds are independent", func(t *testing.T) {
		res, err := r.Run(ctx, Monthly, "", recipients)
		require.NoError(t, err)
		assert.Equal(t, []string{"overall"}, res.Sent)
	})
}

// TestRun_SendFailure verifies failures are reported and retried next run
func TestRun_SendFailure(t *testing.T) {
	r, outbox, _, rec := createTestRunner(t)
	ctx := context.Background()
	relayDown := errors.New("relay down")
	outbox.Err = relayDown

	res, err := r.Run(ctx, Overall, "", recipients)
	assert.ErrorIs(t, err, relayDown)
	assert.Equal(t, []string{"overall"}, res.Failed)
	assert.Equal(t, 1, rec.counts["overall/failed"])

	outbox.Err = nil
	res, err = r.Run(ctx, Overall, "", recipients)
	require.NoError(t, err)
	assert.Equal(t, []string{"overall"}, res.Sent, "failed send releases its dedupe key")
}

// TestRun_FetchFailure verifies nothing is sent when the fetch fails
func TestRun_FetchFailure(t *testing.T) {
	r, outbox, _, _ := createTestRunner(t)
	r.Fetcher = &fakeFetcher{err: errors.New("linear unavailable")}

	_, err := r.Run(context.Background(), Daily, "", recipients)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch data")
	assert.Empty(t, outbox.Sent())
}

// TestRun_UnknownTeam verifies planning errors abort before any send
func TestRun_UnknownTeam(t *testing.T) {
	r, outbox, _, _ := createTestRunner(t)

	_, err := r.Run(context.Background(), Daily, "Nope", recipients)
	assert.ErrorIs(t, err, store.ErrTeamNotFound)
	assert.Empty(t, outbox.Sent())
}

// TestRun_NoRecipients verifies a run without recipients does not fetch
func TestRun_NoRecipients(t *testing.T) {
	r, _, _, _ := createTestRunner(t)
	f := r.Fetcher.(*fakeFetcher)

	_, err := r.Run(context.Background(), Daily, "", nil)
	assert.ErrorIs(t, err, mail.ErrNoRecipients)
	assert.Zero(t, f.calls)
}

// TestRun_SaveHTML verifies rendered reports are written when configured
func TestRun_SaveHTML(t *testing.T) {
	r, _, _, _ := createTestRunner(t)
	r.SaveHTMLDir = filepath.Join(t.TempDir(), "reports")

	_, err := r.Run(context.Background(), Daily, "platform", recipients)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(r.SaveHTMLDir, "daily-platform-2026-10-18.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "data:image/png;base64,")
	assert.NotContains(t, string(data), "cid:")
}

// TestPreview verifies previews are self-contained files handed to the opener
func TestPreview(t *testing.T) {
	r, outbox, _, _ := createTestRunner(t)
	dir := t.TempDir()

	var opened []string
	paths, err := r.Preview(context.Background(), Overall, "", dir, func(p string) error {
		opened = append(opened, p)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "overall-overall-2026-10-18.html")}, paths)
	assert.Equal(t, paths, opened)
	assert.Empty(t, outbox.Sent())

	t.Run("opener failure", func(t *testing.T) {
		_, err := r.Preview(context.Background(), Overall, "", dir, func(string) error {
			return errors.New("no browser")
		})
		assert.ErrorContains(t, err, "failed to open preview")
	})
}

// TestInlineCharts verifies cid references become data URIs
func TestInlineCharts(t *testing.T) {
	rep := Report{
		HTML: `<img src="cid:statusChart"><img src="cid:trendChart">`,
		Charts: []mail.Inline{
			{CID: CIDStatus, ContentType: "image/png", Data: []byte("png")},
		},
	}

	html := InlineCharts(rep)

	assert.Contains(t, html, `src="data:image/png;base64,cG5n"`)
	assert.Contains(t, html, "cid:trendChart", "unknown references are left alone")
}

// TestFileName verifies report file names are slugged
func TestFileName(t *testing.T) {
	rep := Report{Spec: Spec{Kind: Daily}}
	rep.Spec.Scope.Team = "Data & ML"
	assert.Equal(t, "daily-data---ml-2026-10-18.html", fileName(rep, reportNow))
	assert.False(t, strings.ContainsAny(fileName(rep, reportNow), " &"))
}
