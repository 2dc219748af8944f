package notify

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/apperr"
)

// Notifier presents a message to the user. Failures are non-fatal.
type Notifier interface {
	Present(ctx context.Context, title, body string) error
}

// Nop is a no-op notifier useful in tests.
type Nop struct{}

func (Nop) Present(context.Context, string, string) error { return nil }

// Log writes reminders to the logger instead of the desktop.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Present(_ context.Context, title, body string) error {
	l.Logger.Info("reminder", zap.String("title", title), zap.String("body", body))
	return nil
}

// Desktop sends freedesktop notifications through notify-send, or gdbus when
// notify-send is not installed.
type Desktop struct {
	AppName string
	Timeout time.Duration // how long the notification stays up

	hasNotifySend bool
	hasGdbus      bool
}

// NewDesktop creates a notifier that shows reminders through notify-send
// under appName.
func NewDesktop(appName string) *Desktop {
	d := &Desktop{AppName: appName, Timeout: 10 * time.Second}
	d.hasNotifySend = commandExists("notify-send")
	d.hasGdbus = commandExists("gdbus")
	return d
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable reports whether a delivery tool was found.
func (d *Desktop) IsAvailable() bool {
	return d.hasNotifySend || d.hasGdbus
}

func (d *Desktop) Present(ctx context.Context, title, body string) error {
	var cmd *exec.Cmd
	switch {
	case d.hasNotifySend:
		cmd = exec.CommandContext(ctx, "notify-send",
			"--app-name", d.AppName,
			"--expire-time", fmt.Sprintf("%d", d.Timeout.Milliseconds()),
			title, body)
	case d.hasGdbus:
		cmd = exec.CommandContext(ctx, "gdbus", "call", "--session",
			"--dest", "org.freedesktop.Notifications",
			"--object-path", "/org/freedesktop/Notifications",
			"--method", "org.freedesktop.Notifications.Notify",
			d.AppName, "0", "", title, body, "[]", "{}",
			fmt.Sprintf("%d", d.Timeout.Milliseconds()))
	default:
		return apperr.DeliveryFailed(fmt.Errorf("neither notify-send nor gdbus is installed"))
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return apperr.DeliveryFailed(fmt.Errorf("%s: %w: %s", cmd.Args[0], err, out))
	}
	return nil
}
