package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "timernudge.log")

	l, err := New("info", path)
	require.NoError(t, err)
	l.Info("scheduler started")
	l.Debug("hidden")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"scheduler started"`)
	assert.NotContains(t, string(data), "hidden")
	assert.Same(t, l, Log)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", "")
	assert.ErrorContains(t, err, "invalid log level")

	_, err = NewConsole("chatty")
	assert.Error(t, err)
}

func TestNewConsole(t *testing.T) {
	l, err := NewConsole("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}
