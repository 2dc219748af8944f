// Package workcontext decides whether the user is actively working: recent
// input combined with a frontmost application from the configured work set.
package workcontext

import (
	"sort"
	"strings"
	"time"

	"github.com/timernudge/timernudge/pkg/window"
)

// NoApp is reported when the frontmost application is unavailable. It never
// matches a work application.
const NoApp = "-"

// AppSet is a case-insensitive, deduplicated set of application identifiers.
type AppSet map[string]struct{}

// NewAppSet normalises ids; blanks and the NoApp sentinel are dropped.
func NewAppSet(ids ...string) AppSet {
	set := make(AppSet, len(ids))
	for _, id := range ids {
		key := normalize(id)
		if key == "" || key == NoApp {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

func (s AppSet) Contains(id string) bool {
	key := normalize(id)
	if key == "" || key == NoApp {
		return false
	}
	_, ok := s[key]
	return ok
}

// List returns the identifiers sorted, for display and persistence.
func (s AppSet) List() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Result is the outcome of one work-context evaluation.
type Result struct {
	Active         bool
	RecentlyActive bool
	FrontmostApp   string // NoApp when unavailable
}

// Evaluate reads both signals and combines them with the live window and set.
func Evaluate(activity window.ActivitySignal, fg window.ForegroundApp, within time.Duration, apps AppSet) Result {
	frontmost := NoApp
	if id, ok := fg.FrontmostIdentifier(); ok && strings.TrimSpace(id) != "" {
		frontmost = id
	}

	recent := activity.RecentlyActive(within)

	return Result{
		Active:         recent && apps.Contains(frontmost),
		RecentlyActive: recent,
		FrontmostApp:   frontmost,
	}
}
