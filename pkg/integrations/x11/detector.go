package x11

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"

	"github.com/timernudge/timernudge/pkg/window"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// Detector implements window.Detector and window.Watcher over a native X11
// connection. The connection is opened lazily and reused.
type Detector struct {
	mu             sync.Mutex
	conn           *xgb.Conn
	root           xproto.Window
	atoms          map[string]xproto.Atom
	hasScreensaver bool

	display       string
	hasXprintidle bool
}

// NewDetector creates a new X11 detector
func NewDetector() *Detector {
	return &Detector{
		display:       os.Getenv("DISPLAY"),
		hasXprintidle: commandExists("xprintidle"),
	}
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable reports whether an X server accepts our connection.
func (d *Detector) IsAvailable() bool {
	if d.display == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connectLocked() == nil
}

func (d *Detector) GetDisplayServer() string {
	return "x11"
}

func (d *Detector) connectLocked() error {
	if d.conn != nil {
		return nil
	}

	conn, root, atoms, err := dial()
	if err != nil {
		return err
	}

	d.conn = conn
	d.root = root
	d.atoms = atoms
	d.hasScreensaver = screensaver.Init(conn) == nil
	return nil
}

func dial() (*xgb.Conn, xproto.Window, map[string]xproto.Atom, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	atoms := make(map[string]xproto.Atom, len(atomNames))
	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, 0, nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		atoms[name] = reply.Atom
	}
	return conn, root, atoms, nil
}

// resetLocked drops a broken connection so the next call redials.
func (d *Detector) resetLocked() {
	if d.conn != nil {
		d.conn.Close()
	}
	d.conn = nil
}

func (d *Detector) property(w xproto.Window, atom, typ xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(d.conn, false, w, atom, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// GetFocusedWindow returns information about the currently focused window
func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connectLocked(); err != nil {
		return nil, err
	}

	win, err := d.activeWindowLocked()
	if err != nil {
		return nil, err
	}

	info := &window.WindowInfo{
		AppName:       "Unknown",
		WindowTitle:   d.windowName(win),
		DisplayServer: "x11",
	}

	data, _ := d.property(win, d.atoms["WM_CLASS"], xproto.AtomString, 256)
	if _, class := parseWMClass(data); class != "" {
		info.AppName = class
	}

	// WM_CLASS is missing for some toolkits; fall back to the process name.
	if pid := d.windowPID(win); pid != 0 {
		info.ProcessName = processName(pid)
		if info.AppName == "Unknown" && info.ProcessName != "" {
			info.AppName = info.ProcessName
		}
	}

	return info, nil
}

func (d *Detector) activeWindowLocked() (xproto.Window, error) {
	for i := 0; i < 3; i++ {
		data, err := d.property(d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
		if err != nil {
			d.resetLocked()
			return 0, fmt.Errorf("failed to read _NET_ACTIVE_WINDOW: %w", err)
		}
		if w := decodeWindow(data); w != 0 {
			return w, nil
		}

		// Window managers without EWMH: use the input focus' top-level parent.
		focus, err := xproto.GetInputFocus(d.conn).Reply()
		if err == nil && focus.Focus != 0 && focus.Focus != d.root {
			return d.topLevel(focus.Focus), nil
		}

		time.Sleep(20 * time.Millisecond)
	}
	return 0, fmt.Errorf("no active window found")
}

func (d *Detector) topLevel(w xproto.Window) xproto.Window {
	for {
		tree, err := xproto.QueryTree(d.conn, w).Reply()
		if err != nil || tree.Parent == d.root || tree.Parent == 0 {
			return w
		}
		w = tree.Parent
	}
}

func (d *Detector) windowName(w xproto.Window) string {
	if data, err := d.property(w, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 256); err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	if data, err := d.property(w, d.atoms["WM_NAME"], xproto.AtomString, 256); err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

func (d *Detector) windowPID(w xproto.Window) uint32 {
	data, err := d.property(w, d.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xgb.Get32(data)
}

func processName(pid uint32) string {
	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(comm))
}

// decodeWindow reads a WINDOW property value. Zero means none.
func decodeWindow(data []byte) xproto.Window {
	if len(data) < 4 {
		return 0
	}
	return xproto.Window(xgb.Get32(data))
}

// parseWMClass splits a raw WM_CLASS value ("instance\0class\0").
func parseWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = strings.TrimSpace(parts[0])
	}
	if len(parts) >= 2 {
		class = strings.TrimSpace(parts[1])
	}
	if class == "" {
		class = instance
	}
	return instance, class
}

// GetIdleInfo returns time since the last input and lock state
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	idle, err := d.idleTime()
	if err != nil {
		return nil, err
	}
	return &window.IdleInfo{
		IdleTime: idle,
		IsLocked: isScreenLocked(),
	}, nil
}

func (d *Detector) idleTime() (time.Duration, error) {
	d.mu.Lock()
	if err := d.connectLocked(); err == nil && d.hasScreensaver {
		reply, err := screensaver.QueryInfo(d.conn, xproto.Drawable(d.root)).Reply()
		d.mu.Unlock()
		if err != nil {
			return 0, fmt.Errorf("failed to query screensaver info: %w", err)
		}
		return time.Duration(reply.MsSinceUserInput) * time.Millisecond, nil
	}
	d.mu.Unlock()

	if !d.hasXprintidle {
		return 0, fmt.Errorf("no idle source available (MIT-SCREEN-SAVER or xprintidle required)")
	}
	out, err := exec.Command("xprintidle").Output()
	if err != nil {
		return 0, fmt.Errorf("failed to execute xprintidle: %w", err)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected xprintidle output %q: %w", out, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

var screenLockers = []string{
	"gnome-screensaver-dialog",
	"kscreenlocker_greet",
	"i3lock",
	"slock",
	"xscreensaver",
	"xsecurelock",
}

func isScreenLocked() bool {
	for _, locker := range screenLockers {
		if exec.Command("pgrep", "-x", locker).Run() == nil {
			return true
		}
	}
	return false
}

// WatchFocus pushes the frontmost app each time _NET_ACTIVE_WINDOW changes.
// It uses its own connection since WaitForEvent blocks.
func (d *Detector) WatchFocus(ctx context.Context) (<-chan string, error) {
	conn, root, atoms, err := dial()
	if err != nil {
		return nil, err
	}

	err = xproto.ChangeWindowAttributesChecked(conn, root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to select PropertyNotify on root: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(ch)
		for {
			ev, xerr := conn.WaitForEvent()
			if ev == nil && xerr == nil {
				return
			}
			pn, ok := ev.(xproto.PropertyNotifyEvent)
			if !ok || pn.Atom != atoms["_NET_ACTIVE_WINDOW"] {
				continue
			}

			info, err := d.GetFocusedWindow()
			app := ""
			if err == nil && info.AppName != "Unknown" {
				app = info.AppName
			}
			select {
			case ch <- app:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Close cleans up resources
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	return nil
}
