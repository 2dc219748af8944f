package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/timernudge/timernudge/internal/daemon"
	"github.com/timernudge/timernudge/internal/logging"
	"github.com/timernudge/timernudge/internal/reporter"
	"github.com/timernudge/timernudge/internal/web"
)

// historyRetention bounds how long check records and error logs are kept.
const historyRetention = 30 * 24 * time.Hour

// startupTimeout bounds how long start waits for the daemon's web API.
const startupTimeout = 10 * time.Second

func runCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Aliases: []string{"serve"},
		Short:   "Run the reminder scheduler and local web API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}
}

func (a *app) run(parent context.Context) error {
	cfg := a.cfg

	var (
		logger *zap.Logger
		err    error
	)
	if daemon.IsChild() {
		logger, err = logging.New(cfg.Log.Level, cfg.Log.File)
	} else {
		logger, err = logging.NewConsole(cfg.Log.Level)
	}
	if err != nil {
		return err
	}
	defer logger.Sync()

	dm := daemon.New(cfg.Daemon.PIDFile)
	if running, pid, err := dm.IsRunning(); err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	} else if running && pid != os.Getpid() {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	sched, det, err := newScheduler(cfg, st, logger)
	if err != nil {
		return err
	}
	defer det.Close()

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer dm.RemovePID()

	handler := web.NewHandler(sched, reporter.New(st.repo), st.settings, logger)
	server := web.NewServer(cfg, handler, logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting timernudge",
		zap.String("web", "http://"+server.GetAddress()),
		zap.String("settings", st.settings.Path()),
		zap.Duration("poll_interval", sched.Interval()),
	)

	g, gctx := errgroup.WithContext(ctx)
	sched.Start(gctx)
	g.Go(func() error {
		sched.Wait()
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		pruneHistory(gctx, st.repo, logger)
		return nil
	})

	err = g.Wait()
	sched.Stop()
	logger.Info("timernudge stopped")
	return err
}

// historyPruner is the part of the repository the retention job uses.
type historyPruner interface {
	DeleteChecksBefore(before time.Time) (int64, error)
	DeleteErrorLogsBefore(before time.Time) (int64, error)
}

// pruneHistory drops old check records and error logs at startup and then daily.
func pruneHistory(ctx context.Context, repo historyPruner, logger *zap.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		pruneOnce(repo, time.Now(), logger)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pruneOnce(repo historyPruner, now time.Time, logger *zap.Logger) {
	cutoff := now.Add(-historyRetention)

	if n, err := repo.DeleteChecksBefore(cutoff); err != nil {
		logger.Warn("failed to prune check history", zap.Error(err))
	} else if n > 0 {
		logger.Info("pruned check history", zap.Int64("records", n))
	}

	if n, err := repo.DeleteErrorLogsBefore(cutoff); err != nil {
		logger.Warn("failed to prune error logs", zap.Error(err))
	} else if n > 0 {
		logger.Info("pruned error logs", zap.Int64("records", n))
	}
}

func startCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the reminder daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			dm := daemon.New(a.cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if running {
				return errors.Errorf("daemon is already running (PID: %d)", pid)
			}

			childArgs := []string{"run"}
			if a.port > 0 {
				childArgs = append(childArgs, "--port", strconv.Itoa(a.port))
			}
			child, err := daemon.Spawn(childArgs)
			if err != nil {
				return err
			}

			ctrl := a.control()
			err = child.WaitReady(func() bool {
				return ctrl.healthy(cmd.Context())
			}, startupTimeout)
			switch {
			case errors.Is(err, daemon.ErrExited):
				return errors.Errorf("daemon exited during startup, see %s", a.cfg.Log.File)
			case errors.Is(err, daemon.ErrStartTimeout):
				return errors.Errorf("daemon (PID %d) did not answer on http://%s within %s, see %s",
					child.PID, a.cfg.WebAddress(), startupTimeout, a.cfg.Log.File)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon started successfully (PID: %d)\n", child.PID)
			fmt.Fprintf(out, "Web API available at: http://%s\n", a.cfg.WebAddress())
			fmt.Fprintf(out, "Logs: %s\n", a.cfg.Log.File)
			return nil
		},
	}
}

func stopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the reminder daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			dm := daemon.New(a.cfg.Daemon.PIDFile)
			err := dm.Stop(10 * time.Second)
			if errors.Is(err, daemon.ErrNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "failed to stop daemon")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped successfully")
			return nil
		},
	}
}
