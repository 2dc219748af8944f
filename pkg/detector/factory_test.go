package detector

import (
	"testing"
	"time"

	"github.com/timernudge/timernudge/pkg/window"
)

func TestNew(t *testing.T) {
	detector, err := New()
	if err != nil {
		t.Logf("New() returned error (may be expected): %v", err)
		return
	}
	defer detector.Close()

	displayServer := detector.GetDisplayServer()
	t.Logf("Detected display server: %s", displayServer)

	if displayServer != "x11" && displayServer != "wayland" {
		t.Errorf("GetDisplayServer() = %s, want x11 or wayland", displayServer)
	}

	if info, err := detector.GetFocusedWindow(); err != nil {
		t.Logf("GetFocusedWindow() error: %v", err)
	} else {
		t.Logf("Current window: %s - %s", info.AppName, info.WindowTitle)
	}

	if idle, err := detector.GetIdleInfo(); err != nil {
		t.Logf("GetIdleInfo() error: %v", err)
	} else {
		t.Logf("Idle state: idle=%s, locked=%v", idle.IdleTime, idle.IsLocked)
	}
}

func TestDetectDisplayServer(t *testing.T) {
	tests := []struct {
		name           string
		sessionType    string
		waylandDisplay string
		x11Display     string
		expected       string
	}{
		{"Wayland session", "wayland", "wayland-0", "", "wayland"},
		{"X11 session", "x11", "", ":0", "x11"},
		{"Unknown session", "", "", "", "unknown"},
		{"Wayland display set", "", "wayland-1", "", "wayland"},
		{"X11 display set", "", "", ":1", "x11"},
		{"XWayland display alongside wayland", "", "wayland-0", ":0", "wayland"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_SESSION_TYPE", tt.sessionType)
			t.Setenv("WAYLAND_DISPLAY", tt.waylandDisplay)
			t.Setenv("DISPLAY", tt.x11Display)

			if result := DetectDisplayServer(); result != tt.expected {
				t.Errorf("DetectDisplayServer() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestNewWithUnsupportedSystem(t *testing.T) {
	t.Setenv("XDG_SESSION_TYPE", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("DISPLAY", "")

	detector, err := New()
	if err == nil {
		detector.Close()
		t.Fatal("New() succeeded without any display server")
	}
	t.Logf("New() error: %v", err)
}

func TestNewProbe(t *testing.T) {
	probe, err := NewProbe()
	if err != nil {
		t.Skip("Display server not available")
	}
	defer probe.Detector.Close()

	var _ window.ActivitySignal = probe
	var _ window.ForegroundApp = probe

	app, ok := probe.FrontmostIdentifier()
	t.Logf("Frontmost: %q (%v), recently active: %v", app, ok, probe.RecentlyActive(time.Minute))
}
