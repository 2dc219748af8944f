package wayland

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/timernudge/timernudge/pkg/window"
)

// Detector implements window.Detector for Wayland compositors
type Detector struct {
	compositor string
	hasSwaymsg bool
	hasHyprctl bool
	hasGdbus   bool
}

// NewDetector creates a new Wayland detector
func NewDetector() *Detector {
	d := &Detector{
		hasSwaymsg: commandExists("swaymsg"),
		hasHyprctl: commandExists("hyprctl"),
		hasGdbus:   commandExists("gdbus"),
	}
	d.compositor = compositorFromEnv(os.Getenv)
	if d.compositor == "unknown" {
		d.compositor = compositorFromProcesses()
	}
	return d
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// compositorFromEnv recognises compositors that export a marker variable.
func compositorFromEnv(getenv func(string) string) string {
	switch {
	case getenv("SWAYSOCK") != "":
		return "sway"
	case getenv("HYPRLAND_INSTANCE_SIGNATURE") != "":
		return "hyprland"
	}

	desktop := strings.ToLower(getenv("XDG_CURRENT_DESKTOP"))
	switch {
	case strings.Contains(desktop, "gnome"), strings.Contains(desktop, "ubuntu"):
		return "gnome"
	case strings.Contains(desktop, "sway"):
		return "sway"
	case strings.Contains(desktop, "hyprland"):
		return "hyprland"
	}
	return "unknown"
}

func compositorFromProcesses() string {
	compositors := []struct{ process, name string }{
		{"sway", "sway"},
		{"Hyprland", "hyprland"},
		{"gnome-shell", "gnome"},
	}
	for _, c := range compositors {
		if exec.Command("pgrep", "-x", c.process).Run() == nil {
			return c.name
		}
	}
	return "unknown"
}

// Compositor returns the detected compositor name.
func (d *Detector) Compositor() string {
	return d.compositor
}

// IsAvailable checks if Wayland detection is available
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case "sway":
		return d.hasSwaymsg
	case "hyprland":
		return d.hasHyprctl
	case "gnome":
		return d.hasGdbus
	default:
		return false
	}
}

func (d *Detector) GetDisplayServer() string {
	return "wayland"
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	var (
		info *window.WindowInfo
		err  error
	)
	switch d.compositor {
	case "sway":
		info, err = d.focusedSway()
	case "hyprland":
		info, err = d.focusedHyprland()
	case "gnome":
		info, err = d.focusedGnome()
	default:
		return nil, fmt.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil {
		return nil, err
	}
	info.DisplayServer = "wayland"
	return info, nil
}

func (d *Detector) focusedSway() (*window.WindowInfo, error) {
	output, err := exec.Command("swaymsg", "-t", "get_tree", "-r").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute swaymsg: %w", err)
	}
	return parseSwayTree(output)
}

type swayNode struct {
	Focused          bool   `json:"focused"`
	Name             string `json:"name"`
	AppID            string `json:"app_id"`
	PID              int    `json:"pid"`
	WindowProperties struct {
		Class string `json:"class"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

func (n *swayNode) focused() *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := n.Nodes[i].focused(); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := n.FloatingNodes[i].focused(); f != nil {
			return f
		}
	}
	return nil
}

// parseSwayTree finds the focused node of a `swaymsg -t get_tree` document.
// Native clients carry app_id, XWayland clients window_properties.class.
func parseSwayTree(data []byte) (*window.WindowInfo, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}

	node := root.focused()
	if node == nil {
		return nil, fmt.Errorf("no focused node in sway tree")
	}

	appName := node.AppID
	if appName == "" {
		appName = node.WindowProperties.Class
	}
	return newInfo(appName, node.Name, node.PID), nil
}

func (d *Detector) focusedHyprland() (*window.WindowInfo, error) {
	output, err := exec.Command("hyprctl", "activewindow", "-j").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute hyprctl: %w", err)
	}
	return parseHyprlandWindow(output)
}

// parseHyprlandWindow parses `hyprctl activewindow -j`; "{}" means no window.
func parseHyprlandWindow(data []byte) (*window.WindowInfo, error) {
	var active struct {
		Class string `json:"class"`
		Title string `json:"title"`
		PID   int    `json:"pid"`
	}
	if err := json.Unmarshal(data, &active); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}
	if active.Class == "" && active.Title == "" {
		return nil, fmt.Errorf("no active hyprland window")
	}
	return newInfo(active.Class, active.Title, active.PID), nil
}

const gnomeFocusScript = `
try {
	let win = global.display.get_focus_window();
	win ? (win.get_wm_class() || '') + '|||' + (win.get_title() || '') : '|||';
} catch (e) {
	'|||';
}`

// focusedGnome asks GNOME Shell over D-Bus. Shell.Eval is disabled unless
// unsafe mode is on; XWayland windows are then read through xprop.
func (d *Detector) focusedGnome() (*window.WindowInfo, error) {
	output, err := exec.Command("gdbus", "call", "--session",
		"--dest", "org.gnome.Shell",
		"--object-path", "/org/gnome/Shell",
		"--method", "org.gnome.Shell.Eval",
		gnomeFocusScript).Output()
	if err == nil {
		if app, title, ok := parseGnomeEval(string(output)); ok && app != "" {
			return newInfo(app, title, 0), nil
		}
	}

	if commandExists("xprop") && os.Getenv("DISPLAY") != "" {
		return focusedXWayland()
	}
	return nil, fmt.Errorf("GNOME window detection failed: Shell.Eval blocked and xprop unavailable")
}

// parseGnomeEval parses gdbus output like (true, 'code|||main.go').
func parseGnomeEval(output string) (app, title string, ok bool) {
	result := strings.TrimSpace(output)
	if !strings.HasPrefix(result, "(true,") {
		return "", "", false
	}
	result = strings.TrimPrefix(result, "(true,")
	result = strings.TrimSuffix(result, ")")
	result = strings.Trim(strings.TrimSpace(result), `'"`)

	parts := strings.SplitN(result, "|||", 2)
	app = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		title = strings.TrimSpace(parts[1])
	}
	return app, title, true
}

func focusedXWayland() (*window.WindowInfo, error) {
	rootOutput, err := exec.Command("xprop", "-root", "_NET_ACTIVE_WINDOW").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to read _NET_ACTIVE_WINDOW: %w", err)
	}

	// _NET_ACTIVE_WINDOW(WINDOW): window id # 0x80032b
	_, windowID, found := strings.Cut(string(rootOutput), "# ")
	windowID = strings.TrimSpace(windowID)
	if !found || windowID == "" || windowID == "0x0" {
		return nil, fmt.Errorf("no active window found (focused window may be native Wayland)")
	}

	classOutput, _ := exec.Command("xprop", "-id", windowID, "WM_CLASS").Output()
	nameOutput, _ := exec.Command("xprop", "-id", windowID, "WM_NAME").Output()
	return newInfo(parseXPropClass(string(classOutput)), parseXPropString(string(nameOutput)), 0), nil
}

// parseXPropString parses xprop output like: WM_NAME(STRING) = "title"
func parseXPropString(output string) string {
	_, value, found := strings.Cut(output, "=")
	if !found {
		return ""
	}
	return strings.Trim(strings.TrimSpace(value), `"`)
}

// parseXPropClass returns the class half of: WM_CLASS(STRING) = "inst", "Class"
func parseXPropClass(output string) string {
	value := parseXPropString(output)
	if value == "" {
		return ""
	}
	classes := strings.Split(value, ",")
	return strings.Trim(classes[len(classes)-1], `" `)
}

func newInfo(appName, title string, pid int) *window.WindowInfo {
	if appName == "" {
		appName = "Unknown"
	}
	processName := appName
	if pid > 0 {
		if name := processNameFor(pid); name != "" {
			processName = name
		}
	}
	return &window.WindowInfo{
		AppName:     appName,
		WindowTitle: title,
		ProcessName: processName,
	}
}

func processNameFor(pid int) string {
	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(comm))
}

// GetIdleInfo returns time since the last input and lock state. Only GNOME
// exposes an idle clock to clients; elsewhere idle time reads as zero and
// the lock state is the only inactivity signal.
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	info := &window.IdleInfo{IsLocked: isScreenLocked()}

	if d.compositor == "gnome" && d.hasGdbus {
		idle, err := gnomeIdleTime()
		if err != nil {
			return nil, err
		}
		info.IdleTime = idle
	}
	return info, nil
}

func gnomeIdleTime() (time.Duration, error) {
	output, err := exec.Command("gdbus", "call", "--session",
		"--dest", "org.gnome.Mutter.IdleMonitor",
		"--object-path", "/org/gnome/Mutter/IdleMonitor/Core",
		"--method", "org.gnome.Mutter.IdleMonitor.GetIdletime").Output()
	if err != nil {
		return 0, fmt.Errorf("failed to query Mutter idle monitor: %w", err)
	}
	return parseIdletime(string(output))
}

// parseIdletime parses gdbus output like (uint64 4213,).
func parseIdletime(output string) (time.Duration, error) {
	s := strings.TrimSpace(output)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimSuffix(strings.TrimSpace(s), ",")
	s = strings.TrimSpace(strings.TrimPrefix(s, "uint64"))

	ms, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected idle monitor output %q: %w", output, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

var screenLockers = []string{
	"swaylock",
	"waylock",
	"gtklock",
	"hyprlock",
	"gnome-screensaver-dialog",
}

func isScreenLocked() bool {
	for _, locker := range screenLockers {
		if exec.Command("pgrep", "-x", locker).Run() == nil {
			return true
		}
	}

	output, err := exec.Command("loginctl", "show-session", "-p", "LockedHint").Output()
	return err == nil && parseLockedHint(string(output))
}

func parseLockedHint(output string) bool {
	return strings.TrimSpace(output) == "LockedHint=yes"
}

func (d *Detector) Close() error {
	return nil
}
