// Package settings holds the user-editable reminder settings. Sources are
// read on every check, so edits take effect on the next poll.
package settings

import (
	"strings"
	"time"

	"github.com/timernudge/timernudge/internal/workcontext"
)

const (
	DefaultPollIntervalSeconds   = 60
	DefaultActivityWindowSeconds = 120
)

// Settings is a point-in-time snapshot.
type Settings struct {
	PollIntervalSeconds   int      `yaml:"poll_interval_seconds" json:"poll_interval_seconds"`
	ActivityWindowSeconds int      `yaml:"activity_window_seconds" json:"activity_window_seconds"`
	WorkApps              []string `yaml:"work_apps" json:"work_apps"`

	// User overrides. Never written by the daemon.
	TeamID string `yaml:"team_id,omitempty" json:"team_id,omitempty"`
	UserID string `yaml:"user_id,omitempty" json:"user_id,omitempty"`

	// Filled from the API for whichever override is blank.
	CachedTeamID string `yaml:"cached_team_id,omitempty" json:"cached_team_id,omitempty"`
	CachedUserID string `yaml:"cached_user_id,omitempty" json:"cached_user_id,omitempty"`
}

// Source is the live settings collaborator.
type Source interface {
	Snapshot() Settings
	Update(fn func(*Settings)) error
}

// Defaults returns the settings used when no file exists yet.
func Defaults() Settings {
	return Settings{
		PollIntervalSeconds:   DefaultPollIntervalSeconds,
		ActivityWindowSeconds: DefaultActivityWindowSeconds,
		WorkApps:              []string{"code", "jetbrains-idea", "kitty", "gnome-terminal-server", "org.gnome.terminal"},
	}
}

func (s Settings) ActivityWindow() time.Duration {
	if s.ActivityWindowSeconds <= 0 {
		return DefaultActivityWindowSeconds * time.Second
	}
	return time.Duration(s.ActivityWindowSeconds) * time.Second
}

func (s Settings) Apps() workcontext.AppSet {
	return workcontext.NewAppSet(s.WorkApps...)
}

// PreferredTeam is the override, else the cached value.
func (s Settings) PreferredTeam() string {
	if v := strings.TrimSpace(s.TeamID); v != "" {
		return v
	}
	return strings.TrimSpace(s.CachedTeamID)
}

// PreferredUser is the override, else the cached value.
func (s Settings) PreferredUser() string {
	if v := strings.TrimSpace(s.UserID); v != "" {
		return v
	}
	return strings.TrimSpace(s.CachedUserID)
}

// CacheIdentity stores a resolved identity into the cache fields for the
// overrides the user left blank.
func CacheIdentity(src Source, teamID, userID string) error {
	return src.Update(func(s *Settings) {
		if strings.TrimSpace(s.TeamID) == "" {
			s.CachedTeamID = teamID
		}
		if strings.TrimSpace(s.UserID) == "" {
			s.CachedUserID = userID
		}
	})
}

// ForgetIdentity drops cached identity, e.g. after the token changes.
func ForgetIdentity(src Source) error {
	return src.Update(func(s *Settings) {
		s.CachedTeamID = ""
		s.CachedUserID = ""
	})
}

// normalize deduplicates work apps and fills zero values with defaults.
func normalize(s Settings) Settings {
	def := Defaults()
	if s.PollIntervalSeconds <= 0 {
		s.PollIntervalSeconds = def.PollIntervalSeconds
	}
	if s.ActivityWindowSeconds <= 0 {
		s.ActivityWindowSeconds = def.ActivityWindowSeconds
	}
	if s.WorkApps != nil {
		s.WorkApps = workcontext.NewAppSet(s.WorkApps...).List()
	}
	return s
}
