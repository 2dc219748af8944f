package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnooze(t *testing.T) {
	now := time.Date(2026, 6, 1, 16, 0, 0, 0, time.UTC)

	tests := []struct {
		arg  string
		want time.Time
	}{
		{"15m", now.Add(15 * time.Minute)},
		{" 1h30m ", now.Add(90 * time.Minute)},
		{"17:30", time.Date(2026, 6, 1, 17, 30, 0, 0, time.UTC)},
		{"09:00", time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)},
		{"16:00", time.Date(2026, 6, 2, 16, 0, 0, 0, time.UTC)},
		{"2026-06-02T08:00:00Z", time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseSnooze(tt.arg, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseSnoozeRejects(t *testing.T) {
	now := time.Date(2026, 6, 1, 16, 0, 0, 0, time.UTC)

	for _, arg := range []string{"", "0s", "-5m", "soon", "2026-05-01T00:00:00Z"} {
		_, err := ParseSnooze(arg, now)
		assert.Error(t, err, arg)
	}
}
