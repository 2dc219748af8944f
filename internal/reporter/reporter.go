package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/timernudge/timernudge/internal/models"
)

// DefaultLimit caps the records listed in a report.
const DefaultLimit = 50

var ErrInvalidPeriod = errors.New("invalid period")

// History is the check-history query surface; *database.Repository satisfies it.
type History interface {
	GetChecksSince(since time.Time, limit int) ([]*models.CheckRecord, error)
	CountDecisionsSince(since time.Time) ([]models.DecisionCount, error)
	CountNotificationsSince(since time.Time) (int64, error)
	CountErrorsSince(since time.Time) (int64, error)
}

// Reporter handles check-history reports
type Reporter struct {
	repo  History
	limit int
	now   func() time.Time
}

// New creates a reporter over repo listing up to DefaultLimit records.
func New(repo History) *Reporter {
	return &Reporter{repo: repo, limit: DefaultLimit, now: time.Now}
}

// WithLimit returns a copy listing at most n records; n <= 0 keeps the limit.
func (r *Reporter) WithLimit(n int) *Reporter {
	c := *r
	if n > 0 {
		c.limit = n
	}
	return &c
}

// GenerateReport summarises checks for a period: "hour", "day"/"today",
// "week", or any Go duration such as "90m".
func (r *Reporter) GenerateReport(period string) (*models.HistoryReport, error) {
	now := r.now()
	since, err := periodStart(period, now)
	if err != nil {
		return nil, err
	}

	records, err := r.repo.GetChecksSince(since, r.limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load check history")
	}
	decisions, err := r.repo.CountDecisionsSince(since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count decisions")
	}
	notifications, err := r.repo.CountNotificationsSince(since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count notifications")
	}
	errCount, err := r.repo.CountErrorsSince(since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count errors")
	}

	return &models.HistoryReport{
		Period:        period,
		Since:         since,
		Records:       records,
		Decisions:     decisions,
		Notifications: notifications,
		Errors:        errCount,
		GeneratedAt:   now,
	}, nil
}

func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "hour":
		return now.Add(-time.Hour), nil
	case "day", "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	case "week":
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return day.AddDate(0, 0, -(weekday - 1)), nil
	}

	d, err := time.ParseDuration(period)
	if err != nil || d <= 0 {
		return time.Time{}, errors.Wrapf(ErrInvalidPeriod, "%q (valid: hour, day, week, or a duration like 90m)", period)
	}
	return now.Add(-d), nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.HistoryReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Reminder History - %s\n", report.Period)
	fmt.Fprintf(&b, "Since: %s\n", report.Since.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Reminders sent: %d   Errors: %d\n", report.Notifications, report.Errors)

	if len(report.Decisions) > 0 {
		parts := make([]string, 0, len(report.Decisions))
		for _, dc := range report.Decisions {
			parts = append(parts, fmt.Sprintf("%s=%d", dc.Decision, dc.Count))
		}
		fmt.Fprintf(&b, "Decisions: %s\n", strings.Join(parts, " "))
	}
	b.WriteString("\n")

	if len(report.Records) == 0 {
		b.WriteString("No checks recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-9s %-24s %-6s %-6s %-10s %s\n", "Time", "Frontmost", "Work", "Timer", "Decision", "Message")
	b.WriteString(strings.Repeat("-", 80) + "\n")

	for _, rec := range report.Records {
		decision := rec.Decision
		if decision == "" {
			decision = "-"
		}
		fmt.Fprintf(&b, "%-9s %-24s %-6s %-6s %-10s %s\n",
			rec.Timestamp.Format("15:04:05"),
			truncate(rec.FrontmostApp, 24),
			yesNo(rec.ActiveWorkContext),
			yesNo(rec.TimerRunning),
			decision,
			rec.Message)
	}
	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.HistoryReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
