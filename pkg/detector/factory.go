// Package detector picks the window detector for the running session.
package detector

import (
	"fmt"
	"os"

	"github.com/timernudge/timernudge/pkg/integrations/wayland"
	"github.com/timernudge/timernudge/pkg/integrations/x11"
	"github.com/timernudge/timernudge/pkg/window"
)

// New returns the first available detector. Wayland sessions fall back to
// X11 so XWayland windows are still seen when the compositor is unsupported.
func New() (window.Detector, error) {
	server := DetectDisplayServer()

	if server == "wayland" {
		if det := wayland.NewDetector(); det.IsAvailable() {
			return det, nil
		}
	}

	if os.Getenv("DISPLAY") != "" {
		det := x11.NewDetector()
		if det.IsAvailable() {
			return det, nil
		}
		det.Close()
	}

	return nil, fmt.Errorf("no window detector available for display server %q", server)
}

// NewProbe returns a window.Probe over the session's detector.
func NewProbe() (*window.Probe, error) {
	det, err := New()
	if err != nil {
		return nil, err
	}
	return window.NewProbe(det), nil
}

// DetectDisplayServer reports "wayland", "x11" or "unknown" from the session environment.
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
