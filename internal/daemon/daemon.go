// Package daemon manages the background process through a PID file.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// ChildEnv marks the re-executed background process.
const ChildEnv = "TIMERNUDGE_DAEMON_CHILD"

var (
	ErrNotRunning   = errors.New("daemon is not running")
	ErrExited       = errors.New("daemon exited during startup")
	ErrStartTimeout = errors.New("daemon did not become ready in time")
)

type Daemon struct {
	pidFile string
}

// New creates a daemon manager for the given PID file
func New(pidFile string) *Daemon {
	return &Daemon{pidFile: pidFile}
}

func (d *Daemon) PIDFile() string {
	return d.pidFile
}

// WritePID records the current process ID
func (d *Daemon) WritePID() error {
	pid := os.Getpid()
	if err := os.WriteFile(d.pidFile, fmt.Appendf(nil, "%d", pid), 0o644); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	return nil
}

// ReadPID returns 0 when no PID file exists.
func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}
	return pid, nil
}

func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether the recorded process is alive. A stale PID file
// is removed.
func (d *Daemon) IsRunning() (bool, int, error) {
	pid, err := d.ReadPID()
	if err != nil {
		return false, 0, err
	}
	if pid == 0 {
		return false, 0, nil
	}

	if !alive(pid) {
		_ = d.RemovePID()
		return false, 0, nil
	}
	return true, pid, nil
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// Stop sends SIGTERM and waits up to timeout for the process to exit.
func (d *Daemon) Stop(timeout time.Duration) error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking daemon status")
	}
	if !running {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrap(err, "failed to find process")
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		_ = d.RemovePID()
		return errors.Wrap(err, "failed to send SIGTERM")
	}

	deadline := time.Now().Add(timeout)
	for alive(pid) {
		if time.Now().After(deadline) {
			return errors.Errorf("daemon (PID %d) did not exit within %s", pid, timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
	return d.RemovePID()
}

// IsChild reports whether this process is the re-executed daemon.
func IsChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

// Child is a spawned daemon process. Its exit is reaped in the background
// so a failed startup is seen instead of lingering as a zombie.
type Child struct {
	PID    int
	exited chan struct{}
}

// Exited is closed once the child process has exited.
func (c *Child) Exited() <-chan struct{} {
	return c.exited
}

// WaitReady polls ready until it reports true. It fails with ErrExited when
// the child dies first and ErrStartTimeout when timeout passes.
func (c *Child) WaitReady(ready func() bool, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-c.exited:
			return ErrExited
		default:
		}
		if ready() {
			return nil
		}

		select {
		case <-c.exited:
			return ErrExited
		case <-deadline.C:
			return ErrStartTimeout
		case <-tick.C:
		}
	}
}

// Spawn re-executes the current binary with args in a new session, detached
// from the terminal.
func Spawn(args []string) (*Child, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(err, "failed to locate executable")
	}

	procAttr := &os.ProcAttr{
		Env:   append(os.Environ(), ChildEnv+"=1"),
		Files: []*os.File{nil, nil, nil},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}

	process, err := os.StartProcess(exe, append([]string{exe}, args...), procAttr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start daemon process")
	}

	child := &Child{PID: process.Pid, exited: make(chan struct{})}
	go func() {
		_, _ = process.Wait()
		close(child.exited)
	}()
	return child, nil
}
