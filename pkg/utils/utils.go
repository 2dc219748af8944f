package utils

import (
	"fmt"
	"time"
)

// FormatRemaining renders a countdown rounded up to the minute: "45s",
// "12m", "2h", "1h 30m". Sub-minute values keep their seconds.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}

	mins := int64((d + time.Minute - 1) / time.Minute)
	h, m := mins/60, mins%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// FormatInterval renders a poll interval compactly, e.g. "15s", "1m", "1m30s".
func FormatInterval(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int64(d/time.Second))
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	default:
		return fmt.Sprintf("%dm%ds", int64(d/time.Minute), int64(d%time.Minute/time.Second))
	}
}
