package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{time.Minute, "1m"},
		{10 * time.Minute, "10m"},
		{9*time.Minute + time.Second, "10m"},
		{time.Hour, "1h"},
		{90 * time.Minute, "1h 30m"},
		{-5 * time.Minute, "5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRemaining(tt.in), "FormatRemaining(%s)", tt.in)
	}
}

func TestFormatInterval(t *testing.T) {
	assert.Equal(t, "15s", FormatInterval(15*time.Second))
	assert.Equal(t, "1m", FormatInterval(time.Minute))
	assert.Equal(t, "1m30s", FormatInterval(90*time.Second))
	assert.Equal(t, "5m", FormatInterval(5*time.Minute+200*time.Millisecond))
}
