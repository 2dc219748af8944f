package scheduler

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ParseSnooze turns a user argument into a snooze end time. It accepts a Go
// duration ("15m"), a wall-clock time ("17:30", rolled to tomorrow once
// passed) or an RFC3339 timestamp.
func ParseSnooze(arg string, now time.Time) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return time.Time{}, errors.New("snooze needs a duration or time")
	}

	if d, err := time.ParseDuration(arg); err == nil {
		if d <= 0 {
			return time.Time{}, errors.Errorf("snooze duration must be positive, got %s", arg)
		}
		return now.Add(d), nil
	}

	if clock, err := time.ParseInLocation("15:04", arg, now.Location()); err == nil {
		until := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
		if !until.After(now) {
			until = until.AddDate(0, 0, 1)
		}
		return until, nil
	}

	until, err := time.Parse(time.RFC3339, arg)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid snooze %q (use a duration like 30m, a time like 17:30, or RFC3339)", arg)
	}
	if !until.After(now) {
		return time.Time{}, errors.Errorf("snooze time %s is in the past", arg)
	}
	return until, nil
}
