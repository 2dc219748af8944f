package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/daemon"
	"github.com/timernudge/timernudge/internal/scheduler"
	"github.com/timernudge/timernudge/pkg/utils"
)

// controlClient talks to the web API of a running daemon; the engine state
// (debounce, snooze) only exists in that process.
type controlClient struct {
	base string
	http *http.Client
}

func newControlClient(base string) *controlClient {
	return &controlClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *app) control() *controlClient {
	return newControlClient("http://" + a.cfg.WebAddress())
}

// healthy reports whether the daemon answers /health.
func (c *controlClient) healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	return resp.StatusCode == http.StatusOK &&
		json.NewDecoder(resp.Body).Decode(&body) == nil &&
		body.Status == "healthy"
}

func (c *controlClient) status(ctx context.Context) (scheduler.Status, error) {
	return c.do(ctx, http.MethodGet, "/api/status", nil)
}

func (c *controlClient) check(ctx context.Context) (scheduler.Status, error) {
	return c.do(ctx, http.MethodPost, "/api/check", nil)
}

func (c *controlClient) snooze(ctx context.Context, arg string) (scheduler.Status, error) {
	return c.do(ctx, http.MethodPost, "/api/snooze", url.Values{"for": {arg}})
}

func (c *controlClient) unsnooze(ctx context.Context) (scheduler.Status, error) {
	return c.do(ctx, http.MethodDelete, "/api/snooze", nil)
}

func (c *controlClient) do(ctx context.Context, method, path string, form url.Values) (scheduler.Status, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return scheduler.Status{}, errors.Wrap(err, "build request")
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return scheduler.Status{}, errors.Wrap(err, "daemon API unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return scheduler.Status{}, errors.Errorf("daemon API: %s", strings.TrimSpace(string(msg)))
	}

	var st scheduler.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return scheduler.Status{}, errors.Wrap(err, "decode daemon status")
	}
	return st, nil
}

// daemonPID returns the PID of the running daemon, or 0.
func (a *app) daemonPID() (int, error) {
	running, pid, err := daemon.New(a.cfg.Daemon.PIDFile).IsRunning()
	if err != nil || !running {
		return 0, err
	}
	return pid, nil
}

func printStatus(w io.Writer, st scheduler.Status) {
	reminders := string(st.State)
	if st.SnoozeLabel != "" {
		reminders = st.SnoozeLabel
		if st.SnoozedUntil != nil {
			reminders += fmt.Sprintf(" (until %s)", st.SnoozedUntil.Local().Format("15:04"))
		}
	}

	fmt.Fprintf(w, "Reminders: %s\n", reminders)
	fmt.Fprintf(w, "%s\n", st.LastCheckMessage)
	if st.LastError != "" {
		fmt.Fprintf(w, "Error: %s (%s)\n", st.LastError, st.LastErrorCode)
	}
	if !st.Configured {
		fmt.Fprintf(w, "Token: not configured (run '%s token set')\n", appName)
	}
	fmt.Fprintf(w, "Frontmost app: %s (work context: %s)\n", st.FrontmostApp, yesNo(st.ActiveWorkContext))
	fmt.Fprintf(w, "Timer running: %s\n", yesNo(st.TimerRunning))
	if st.Running && !st.NextCheckAt.IsZero() {
		fmt.Fprintf(w, "Next check: %s (every %s)\n", st.NextCheckAt.Local().Format("15:04:05"), utils.FormatInterval(st.PollInterval))
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the latest check",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pid, err := a.daemonPID()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if pid == 0 {
				fmt.Fprintln(out, "Status: Not running")
				return a.printLocalState(out)
			}

			st, err := a.control().status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
			printStatus(out, st)
			return nil
		},
	}
}

// printLocalState shows what the detector sees when no daemon is running.
func (a *app) printLocalState(out io.Writer) error {
	st, err := openStores(a.cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer st.Close()

	_, configured, err := st.creds.Load()
	if err != nil {
		return err
	}
	snap := st.settings.Snapshot()
	fmt.Fprintf(out, "Token configured: %s\n", yesNo(configured))
	fmt.Fprintf(out, "Work apps: %s\n", strings.Join(snap.Apps().List(), ", "))
	fmt.Fprintf(out, "Poll interval: %s\n", utils.FormatInterval(scheduler.EffectiveInterval(snap.PollIntervalSeconds)))

	if latest, err := st.repo.GetLatestCheck(); err == nil && latest != nil {
		fmt.Fprintf(out, "Last recorded check: %s\n", latest.Message)
	}
	return nil
}

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one reminder check now",
		Long: `Runs one check-and-act cycle immediately. With a daemon running the
cycle runs inside it (sharing its reminder state); otherwise a one-off
cycle runs in this process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pid, err := a.daemonPID()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}

			var st scheduler.Status
			if pid != 0 {
				st, err = a.control().check(cmd.Context())
			} else {
				st, err = a.checkOnce(cmd.Context())
			}
			if err != nil {
				return err
			}
			printStatus(out, st)
			return nil
		},
	}
}

func (a *app) checkOnce(ctx context.Context) (scheduler.Status, error) {
	logger := zap.NewNop()
	st, err := openStores(a.cfg, logger)
	if err != nil {
		return scheduler.Status{}, err
	}
	defer st.Close()

	sched, det, err := newScheduler(a.cfg, st, logger)
	if err != nil {
		return scheduler.Status{}, err
	}
	defer det.Close()

	return sched.CheckNow(ctx), nil
}

func snoozeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snooze <duration|HH:MM|RFC3339>",
		Short: "Suppress reminders for a while",
		Example: `  timernudge snooze 30m
  timernudge snooze 17:30
  timernudge snooze 2026-06-02T09:00:00+02:00`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := scheduler.ParseSnooze(args[0], time.Now()); err != nil {
				return err
			}
			st, err := a.requireDaemon(cmd.Context(), func(ctx context.Context, c *controlClient) (scheduler.Status, error) {
				return c.snooze(ctx, args[0])
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.SnoozeLabel)
			return nil
		},
	}
}

func unsnoozeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unsnooze",
		Short: "Resume reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.requireDaemon(cmd.Context(), func(ctx context.Context, c *controlClient) (scheduler.Status, error) {
				return c.unsnooze(ctx)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reminders resumed")
			return nil
		},
	}
}

func (a *app) requireDaemon(ctx context.Context, fn func(context.Context, *controlClient) (scheduler.Status, error)) (scheduler.Status, error) {
	pid, err := a.daemonPID()
	if err != nil {
		return scheduler.Status{}, errors.Wrap(err, "failed to check daemon status")
	}
	if pid == 0 {
		return scheduler.Status{}, errors.Errorf("daemon is not running (start it with '%s start')", appName)
	}
	return fn(ctx, a.control())
}
