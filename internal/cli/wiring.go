package cli

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/config"
	"github.com/timernudge/timernudge/internal/credentials"
	"github.com/timernudge/timernudge/internal/database"
	"github.com/timernudge/timernudge/internal/notify"
	"github.com/timernudge/timernudge/internal/scheduler"
	"github.com/timernudge/timernudge/internal/settings"
	"github.com/timernudge/timernudge/internal/timerapi"
	"github.com/timernudge/timernudge/pkg/detector"
	"github.com/timernudge/timernudge/pkg/window"
)

const settingsFileName = "settings.yaml"

// stores are the on-disk collaborators shared by most commands.
type stores struct {
	db       *database.DB
	repo     *database.Repository
	settings *settings.FileSource
	creds    *credentials.DBStore
}

func openStores(cfg *config.Config, logger *zap.Logger) (*stores, error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize database")
	}

	src, err := openSettings(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	repo := database.NewRepository(db)
	return &stores{
		db:       db,
		repo:     repo,
		settings: src,
		creds:    credentials.NewDBStore(repo),
	}, nil
}

func openSettings(cfg *config.Config, logger *zap.Logger) (*settings.FileSource, error) {
	path := cfg.Settings.Path
	if path == "" {
		var err error
		if path, err = config.DefaultPath(settingsFileName); err != nil {
			return nil, err
		}
	}
	src, err := settings.OpenFile(path, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open settings")
	}
	return src, nil
}

func (s *stores) Close() {
	_ = s.db.Close()
}

// newScheduler wires the detector, remote API and notifier around st. The
// returned detector must be closed by the caller.
func newScheduler(cfg *config.Config, st *stores, logger *zap.Logger) (*scheduler.Scheduler, window.Detector, error) {
	det, err := detector.New()
	if err != nil {
		// Cycles still run: the frontmost app reads as "-" and nobody is active.
		logger.Warn("no window detector, reminders stay silent", zap.Error(err))
		det = window.Unavailable{Reason: err}
	} else {
		logger.Info("window detector initialized", zap.String("display_server", det.GetDisplayServer()))
	}

	client, err := timerapi.NewClient(cfg.API, logger)
	if err != nil {
		det.Close()
		return nil, nil, err
	}

	var notifier notify.Notifier
	if desktop := notify.NewDesktop(appName); desktop.IsAvailable() {
		notifier = desktop
	} else {
		logger.Warn("no desktop notification tool found, reminders go to the log")
		notifier = notify.Log{Logger: logger}
	}

	probe := window.NewProbe(det)
	deps := scheduler.Deps{
		Activity:    probe,
		Foreground:  probe,
		Timers:      client,
		Credentials: st.creds,
		Settings:    st.settings,
		Notifier:    notifier,
		Recorder:    st.repo,
		Logger:      logger,
	}
	if w, ok := det.(window.Watcher); ok {
		deps.FocusWatcher = w
	}
	return scheduler.New(deps), det, nil
}
