package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	src, err := OpenFile(path, nil)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	s := src.Snapshot()
	assert.Equal(t, DefaultPollIntervalSeconds, s.PollIntervalSeconds)
	assert.Equal(t, 2*time.Minute, s.ActivityWindow())
	assert.True(t, s.Apps().Contains("Code"))
}

func TestSnapshotSeesExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	src, err := OpenFile(path, nil)
	require.NoError(t, err)

	edited := []byte("poll_interval_seconds: 5\nactivity_window_seconds: 30\nwork_apps: [Kitty, kitty, Emacs]\n")
	require.NoError(t, os.WriteFile(path, edited, 0o600))
	// Make sure the modification time moves even on coarse filesystems.
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	s := src.Snapshot()
	assert.Equal(t, 5, s.PollIntervalSeconds)
	assert.Equal(t, 30*time.Second, s.ActivityWindow())
	assert.Equal(t, []string{"emacs", "kitty"}, s.WorkApps)
}

func TestSnapshotKeepsLastGoodOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	src, err := OpenFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, src.Update(func(s *Settings) { s.PollIntervalSeconds = 90 }))

	require.NoError(t, os.WriteFile(path, []byte("poll_interval_seconds: [oops"), 0o600))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	assert.Equal(t, 90, src.Snapshot().PollIntervalSeconds)
}

func TestCacheIdentityRespectsOverrides(t *testing.T) {
	src := NewMemorySource(Settings{TeamID: "team-user"})

	require.NoError(t, CacheIdentity(src, "team-remote", "user-remote"))
	s := src.Snapshot()

	assert.Equal(t, "team-user", s.TeamID)
	assert.Empty(t, s.CachedTeamID)
	assert.Empty(t, s.UserID)
	assert.Equal(t, "user-remote", s.CachedUserID)
	assert.Equal(t, "team-user", s.PreferredTeam())
	assert.Equal(t, "user-remote", s.PreferredUser())

	require.NoError(t, ForgetIdentity(src))
	assert.Empty(t, src.Snapshot().PreferredUser())
}

func TestCacheIdentityPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	src, err := OpenFile(path, nil)
	require.NoError(t, err)

	require.NoError(t, CacheIdentity(src, "ws-1", "u-1"))

	reopened, err := OpenFile(path, nil)
	require.NoError(t, err)
	s := reopened.Snapshot()
	assert.Equal(t, "ws-1", s.CachedTeamID)
	assert.Equal(t, "u-1", s.CachedUserID)
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	src := NewMemorySource(Settings{})
	s := src.Snapshot()
	assert.Equal(t, DefaultPollIntervalSeconds, s.PollIntervalSeconds)
	assert.Equal(t, DefaultActivityWindowSeconds, s.ActivityWindowSeconds)
}
