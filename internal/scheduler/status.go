package scheduler

import (
	"fmt"
	"time"

	"github.com/timernudge/timernudge/internal/reminder"
	"github.com/timernudge/timernudge/internal/timerapi"
	"github.com/timernudge/timernudge/pkg/utils"
)

// Status is the snapshot published after every cycle and every snooze change.
type Status struct {
	Running      bool          `json:"running"`
	PollInterval time.Duration `json:"poll_interval"`
	NextCheckAt  time.Time     `json:"next_check_at,omitempty"`

	Configured       bool      `json:"configured"`
	LastCheckAt      time.Time `json:"last_check_at,omitempty"`
	LastCheckMessage string    `json:"last_check_message"`
	LastError        string    `json:"last_error,omitempty"`
	LastErrorCode    string    `json:"last_error_code,omitempty"`

	FrontmostApp      string            `json:"frontmost_app"`
	RecentlyActive    bool              `json:"recently_active"`
	ActiveWorkContext bool              `json:"active_work_context"`
	TimerRunning      bool              `json:"timer_running"`
	Identity          timerapi.Identity `json:"identity"`

	Decision     reminder.Decision `json:"decision,omitempty"`
	State        reminder.State    `json:"state"`
	Reminded     bool              `json:"reminded"`
	SnoozedUntil *time.Time        `json:"snoozed_until,omitempty"`
	SnoozeLabel  string            `json:"snooze_label,omitempty"`
}

func (s Status) clone() Status {
	if s.SnoozedUntil != nil {
		t := *s.SnoozedUntil
		s.SnoozedUntil = &t
	}
	return s
}

// snoozeLabel renders the remaining snooze, e.g. "Snoozed for 12m".
func snoozeLabel(until, now time.Time) string {
	remaining := until.Sub(now)
	if remaining <= 0 {
		return ""
	}
	return "Snoozed for " + utils.FormatRemaining(remaining)
}

func successMessage(at time.Time, decision reminder.Decision, timerRunning bool) string {
	var what string
	switch {
	case decision == reminder.DecisionSnoozed:
		what = "reminders snoozed"
	case decision == reminder.DecisionNotify:
		what = "reminder sent"
	case timerRunning:
		what = "timer running"
	default:
		what = "no reminder needed"
	}
	return fmt.Sprintf("Last check %s: %s", at.Format("15:04:05"), what)
}

func failureMessage(at time.Time, msg string) string {
	return fmt.Sprintf("Check failed %s: %s", at.Format("15:04:05"), msg)
}
