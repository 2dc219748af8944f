package reporter

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timernudge/timernudge/internal/database"
	"github.com/timernudge/timernudge/internal/models"
)

// Wednesday.
var now = time.Date(2026, 6, 3, 14, 30, 0, 0, time.UTC)

func newTestReporter(t *testing.T) (*Reporter, *database.Repository) {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	r := New(repo)
	r.now = func() time.Time { return now }
	return r, repo
}

func TestPeriodStart(t *testing.T) {
	tests := []struct {
		period string
		want   time.Time
	}{
		{"hour", now.Add(-time.Hour)},
		{"day", time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)},
		{"today", time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"90m", now.Add(-90 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, err := periodStart(tt.period, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := periodStart("fortnight", now)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = periodStart("-5m", now)
	assert.Error(t, err)
}

func TestGenerateReport(t *testing.T) {
	r, repo := newTestReporter(t)

	records := []*models.CheckRecord{
		{Timestamp: now.Add(-3 * time.Hour), FrontmostApp: "code", Decision: "notify", Notified: true},
		{Timestamp: now.Add(-30 * time.Minute), FrontmostApp: "code", ActiveWorkContext: true, Decision: "notify", Notified: true, Message: "Last check 14:00:00: reminder sent"},
		{Timestamp: now.Add(-20 * time.Minute), FrontmostApp: "code", ActiveWorkContext: true, Decision: "no_action"},
		{Timestamp: now.Add(-10 * time.Minute), ErrorCode: "network.unauthorized", Message: "The API rejected the token (unauthorized)"},
	}
	for _, rec := range records {
		require.NoError(t, repo.CreateCheck(rec))
	}

	report, err := r.GenerateReport("hour")
	require.NoError(t, err)

	assert.Equal(t, "hour", report.Period)
	assert.Len(t, report.Records, 3)
	assert.EqualValues(t, 1, report.Notifications)
	assert.EqualValues(t, 1, report.Errors)
	assert.Equal(t, now, report.GeneratedAt)

	text := r.FormatReportText(report)
	assert.Contains(t, text, "Reminder History - hour")
	assert.Contains(t, text, "Reminders sent: 1   Errors: 1")
	assert.Contains(t, text, "reminder sent")
	assert.Contains(t, text, "unauthorized")

	js, err := r.FormatReportJSON(report)
	require.NoError(t, err)
	var decoded models.HistoryReport
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	assert.Len(t, decoded.Records, 3)
}

func TestGenerateReportLimit(t *testing.T) {
	r, repo := newTestReporter(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.CreateCheck(&models.CheckRecord{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			Decision:  "no_action",
		}))
	}

	report, err := r.WithLimit(2).GenerateReport("day")
	require.NoError(t, err)
	assert.Len(t, report.Records, 2)
	assert.Equal(t, []models.DecisionCount{{Decision: "no_action", Count: 5}}, report.Decisions)
}

func TestEmptyReportText(t *testing.T) {
	r, _ := newTestReporter(t)

	report, err := r.GenerateReport("day")
	require.NoError(t, err)
	assert.Contains(t, r.FormatReportText(report), "No checks recorded for this period.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "jetbrains...", truncate("jetbrains-idea-ultimate", 12))
}
