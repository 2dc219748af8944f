package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "timernudge.pid"))
}

func TestPIDRoundTrip(t *testing.T) {
	d := newTestDaemon(t)

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Zero(t, pid, "missing PID file reads as zero")

	require.NoError(t, d.WritePID())
	pid, err = d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, got, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), got)

	require.NoError(t, d.RemovePID())
	require.NoError(t, d.RemovePID(), "removing twice is fine")
}

func TestInvalidPIDFile(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte("not-a-pid"), 0o644))

	_, err := d.ReadPID()
	assert.ErrorContains(t, err, "invalid PID")
}

func TestStalePIDFileIsRemoved(t *testing.T) {
	d := newTestDaemon(t)

	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte(strconv.Itoa(cmd.Process.Pid)), 0o644))

	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
	assert.NoFileExists(t, d.PIDFile())
}

func TestStopNotRunning(t *testing.T) {
	d := newTestDaemon(t)
	assert.ErrorIs(t, d.Stop(time.Second), ErrNotRunning)
}

func TestStopTerminatesProcess(t *testing.T) {
	d := newTestDaemon(t)

	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	go func() { _ = cmd.Wait() }()
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte(strconv.Itoa(cmd.Process.Pid)), 0o644))

	require.NoError(t, d.Stop(5*time.Second))
	assert.NoFileExists(t, d.PIDFile())
}

func TestIsChild(t *testing.T) {
	t.Setenv(ChildEnv, "")
	assert.False(t, IsChild())
	t.Setenv(ChildEnv, "1")
	assert.True(t, IsChild())
}

func TestChildWaitReady(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		child := &Child{PID: 1, exited: make(chan struct{})}
		calls := 0
		err := child.WaitReady(func() bool {
			calls++
			return calls == 3
		}, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exited during startup", func(t *testing.T) {
		child := &Child{PID: 1, exited: make(chan struct{})}
		go func() {
			time.Sleep(150 * time.Millisecond)
			close(child.exited)
		}()
		err := child.WaitReady(func() bool { return false }, 5*time.Second)
		assert.ErrorIs(t, err, ErrExited)
	})

	t.Run("timeout", func(t *testing.T) {
		child := &Child{PID: 1, exited: make(chan struct{})}
		start := time.Now()
		err := child.WaitReady(func() bool { return false }, 250*time.Millisecond)
		assert.ErrorIs(t, err, ErrStartTimeout)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
