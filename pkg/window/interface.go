package window

import (
	"context"
	"errors"
	"strings"
	"time"
)

// WindowInfo represents information about the currently focused window
type WindowInfo struct {
	AppName       string // WM_CLASS class, app_id, or process name
	WindowTitle   string
	ProcessName   string
	DisplayServer string // "x11" or "wayland"
}

// IdleInfo represents time since the last user input and lock state
type IdleInfo struct {
	IdleTime time.Duration
	IsLocked bool
}

// Detector is the interface that all window detection implementations must satisfy
type Detector interface {
	// GetFocusedWindow returns information about the currently focused window
	GetFocusedWindow() (*WindowInfo, error)

	// GetIdleInfo returns time since last input and lock state
	GetIdleInfo() (*IdleInfo, error)

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11" or "wayland")
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}

// Watcher is optionally implemented by detectors that can push focus changes.
// The channel carries frontmost app identifiers and is closed when ctx ends.
type Watcher interface {
	WatchFocus(ctx context.Context) (<-chan string, error)
}

// ActivitySignal reports whether the user provided input within a window.
type ActivitySignal interface {
	RecentlyActive(within time.Duration) bool
}

// ForegroundApp reports the frontmost application identifier.
type ForegroundApp interface {
	FrontmostIdentifier() (string, bool)
}

// Probe adapts a Detector to ActivitySignal and ForegroundApp. Detector
// failures read as "not active" and "no frontmost app".
type Probe struct {
	Detector Detector
}

// NewProbe creates a Probe over d
func NewProbe(d Detector) *Probe {
	return &Probe{Detector: d}
}

func (p *Probe) RecentlyActive(within time.Duration) bool {
	info, err := p.Detector.GetIdleInfo()
	if err != nil || info == nil {
		return false
	}
	if info.IsLocked {
		return false
	}
	return info.IdleTime < within
}

func (p *Probe) FrontmostIdentifier() (string, bool) {
	info, err := p.Detector.GetFocusedWindow()
	if err != nil || info == nil {
		return "", false
	}
	id := strings.TrimSpace(info.AppName)
	if id == "" || strings.EqualFold(id, "unknown") {
		return "", false
	}
	return id, true
}

// Unavailable stands in when no display detector works. Nothing is focused
// and the user never reads as recently active.
type Unavailable struct {
	Reason error
}

func (u Unavailable) err() error {
	if u.Reason != nil {
		return u.Reason
	}
	return errors.New("no window detector available")
}

func (u Unavailable) GetFocusedWindow() (*WindowInfo, error) { return nil, u.err() }
func (u Unavailable) GetIdleInfo() (*IdleInfo, error) { return nil, u.err() }
func (u Unavailable) IsAvailable() bool { return false }
func (u Unavailable) GetDisplayServer() string { return "none" }
func (u Unavailable) Close() error { return nil }
