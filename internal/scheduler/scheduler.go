package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/apperr"
	"github.com/timernudge/timernudge/internal/credentials"
	"github.com/timernudge/timernudge/internal/metrics"
	"github.com/timernudge/timernudge/internal/models"
	"github.com/timernudge/timernudge/internal/notify"
	"github.com/timernudge/timernudge/internal/reminder"
	"github.com/timernudge/timernudge/internal/settings"
	"github.com/timernudge/timernudge/internal/timerapi"
	"github.com/timernudge/timernudge/internal/workcontext"
	"github.com/timernudge/timernudge/pkg/window"
)

// MinPollInterval keeps a misconfigured interval from hammering the remote API.
const MinPollInterval = 15 * time.Second

const (
	ReminderTitle = "Start your timer"
	ReminderBody  = "You are working without a running timer."
)

// TimerSource resolves the account identity and reports timer state.
type TimerSource interface {
	ResolveIdentity(ctx context.Context, token, preferredTeam, preferredUser string) (timerapi.Identity, error)
	HasRunningTimer(ctx context.Context, token string, id timerapi.Identity) (bool, error)
}

// Recorder persists check history; *database.Repository satisfies it.
type Recorder interface {
	CreateCheck(record *models.CheckRecord) error
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Deps are the collaborators of a Scheduler. Recorder, FocusWatcher, Logger,
// Now and After are optional.
type Deps struct {
	Activity     window.ActivitySignal
	Foreground   window.ForegroundApp
	FocusWatcher window.Watcher
	Timers       TimerSource
	Credentials  credentials.Store
	Settings     settings.Source
	Notifier     notify.Notifier
	Recorder     Recorder
	Logger       *zap.Logger

	Now   func() time.Time
	After func(d time.Duration) <-chan time.Time
}

// Scheduler runs the reminder check on an interval. It is the only writer of
// its reminder engine.
type Scheduler struct {
	deps   Deps
	engine *reminder.Engine
	logger *zap.Logger

	// cycleMu serialises cycles so a "check now" never overlaps the loop.
	cycleMu sync.Mutex

	// runMu serialises Start and Stop.
	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status Status
}

// New creates a stopped scheduler over deps. Unset optional deps get
// wall-clock or no-op defaults.
func New(deps Deps) *Scheduler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.After == nil {
		deps.After = time.After
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}

	return &Scheduler{
		deps:   deps,
		engine: reminder.NewEngine(),
		logger: deps.Logger,
		status: Status{
			FrontmostApp:     workcontext.NoApp,
			State:            reminder.StateIdle,
			LastCheckMessage: "Not checked yet",
		},
	}
}

// EffectiveInterval applies the MinPollInterval floor to a configured value.
func EffectiveInterval(seconds int) time.Duration {
	d := time.Duration(seconds) * time.Second
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

// Interval reads the current poll interval from live settings.
func (s *Scheduler) Interval() time.Duration {
	return EffectiveInterval(s.deps.Settings.Snapshot().PollIntervalSeconds)
}

// Start runs the poll loop in the background, beginning with an immediate
// cycle. Calling Start while running replaces the previous loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.setStatus(func(st *Status) { st.Running = true })
	s.logger.Info("reminder scheduler started", zap.Duration("interval", s.Interval()))

	if s.deps.FocusWatcher != nil {
		s.watchFocus(loopCtx)
	}
	go s.loop(loopCtx, done)
}

// Stop cancels the loop and waits for an in-flight cycle to unwind.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.setStatus(func(st *Status) {
		st.Running = false
		st.NextCheckAt = time.Time{}
	})
	s.logger.Info("reminder scheduler stopped")
}

// Wait blocks until the current loop exits. It returns immediately when the
// scheduler is not running.
func (s *Scheduler) Wait() {
	s.runMu.Lock()
	done := s.done
	s.runMu.Unlock()
	if done != nil {
		<-done
	}
}

// IsRunning reports whether the background loop is active.
func (s *Scheduler) IsRunning() bool {
	return s.Status().Running
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		s.RunCheck(ctx)
		if ctx.Err() != nil {
			return
		}

		// Read fresh each iteration so edits apply from the next sleep.
		interval := s.Interval()
		s.setStatus(func(st *Status) {
			st.PollInterval = interval
			st.NextCheckAt = s.deps.Now().Add(interval)
		})

		select {
		case <-ctx.Done():
			return
		case <-s.deps.After(interval):
		}
	}
}

func (s *Scheduler) watchFocus(ctx context.Context) {
	ch, err := s.deps.FocusWatcher.WatchFocus(ctx)
	if err != nil {
		s.logger.Debug("focus watch unavailable, polling only", zap.Error(err))
		return
	}
	go func() {
		for app := range ch {
			if strings.TrimSpace(app) == "" {
				app = workcontext.NoApp
			}
			s.setStatus(func(st *Status) { st.FrontmostApp = app })
		}
	}()
}

// CheckNow runs one cycle immediately, outside the regular cadence. The
// background loop's sleep is not reset.
func (s *Scheduler) CheckNow(ctx context.Context) Status {
	return s.RunCheck(ctx)
}

// RunCheck performs one full check-and-act cycle and returns the published
// status. Errors are recorded in the status, never returned.
func (s *Scheduler) RunCheck(ctx context.Context) Status {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	now := s.deps.Now()
	snap := s.deps.Settings.Snapshot()

	s.setStatus(func(st *Status) {
		st.LastError = ""
		st.LastErrorCode = ""
		st.PollInterval = EffectiveInterval(snap.PollIntervalSeconds)
		s.refreshSnoozeLocked(st, now)
	})

	wc := workcontext.Evaluate(s.deps.Activity, s.deps.Foreground, snap.ActivityWindow(), snap.Apps())
	s.setStatus(func(st *Status) {
		st.FrontmostApp = wc.FrontmostApp
		st.RecentlyActive = wc.RecentlyActive
		st.ActiveWorkContext = wc.Active
	})

	record := &models.CheckRecord{
		Timestamp:         now,
		FrontmostApp:      wc.FrontmostApp,
		ActiveWorkContext: wc.Active,
	}

	token, ok, err := s.deps.Credentials.Load()
	if err != nil {
		return s.fail(now, record, err)
	}
	if !ok {
		msg := apperr.UserMessage(apperr.NotConfigured())
		s.setStatus(func(st *Status) {
			st.Configured = false
			st.LastCheckAt = now
			st.LastCheckMessage = msg
			// Nothing below was learned for this cycle.
			st.TimerRunning = false
			st.Decision = ""
			st.Identity = timerapi.Identity{}
		})
		record.Message = msg
		s.record(record)
		metrics.RecordCheck("not_configured")
		return s.Status()
	}
	s.setStatus(func(st *Status) { st.Configured = true })

	identity, err := s.deps.Timers.ResolveIdentity(ctx, token, snap.PreferredTeam(), snap.PreferredUser())
	if err != nil {
		return s.fail(now, record, err)
	}
	if identity.TeamID != snap.PreferredTeam() || identity.UserID != snap.PreferredUser() {
		if err := settings.CacheIdentity(s.deps.Settings, identity.TeamID, identity.UserID); err != nil {
			s.logger.Warn("could not cache resolved identity", zap.Error(err))
		}
	}
	s.setStatus(func(st *Status) { st.Identity = identity })

	running, err := s.deps.Timers.HasRunningTimer(ctx, token, identity)
	if err != nil {
		return s.fail(now, record, err)
	}
	record.TimerRunning = running

	decision := s.engine.Evaluate(reminder.Input{
		ActiveWorkContext: wc.Active,
		TimerRunning:      running,
	}, now)
	record.Decision = string(decision)
	metrics.RecordDecision(string(decision))

	var deliveryErr error
	if decision == reminder.DecisionNotify {
		deliveryErr = s.deps.Notifier.Present(ctx, ReminderTitle, ReminderBody)
		if deliveryErr != nil {
			if !apperr.Is(deliveryErr, apperr.CodeDeliveryFailed) {
				deliveryErr = apperr.DeliveryFailed(deliveryErr)
			}
			metrics.RecordNotification("failed")
			s.logError(now, deliveryErr)
		} else {
			record.Notified = true
			metrics.RecordNotification("delivered")
		}
	}

	msg := successMessage(now, decision, running)
	s.setStatus(func(st *Status) {
		st.TimerRunning = running
		st.Decision = decision
		st.LastCheckAt = now
		st.LastCheckMessage = msg
		s.refreshSnoozeLocked(st, now)
		if deliveryErr != nil {
			st.LastError = apperr.UserMessage(deliveryErr)
			st.LastErrorCode = apperr.Code(deliveryErr)
		}
	})

	record.Message = msg
	if deliveryErr != nil {
		record.ErrorCode = apperr.Code(deliveryErr)
	}
	s.record(record)
	metrics.RecordCheck("ok")

	s.logger.Info("reminder check",
		zap.String("decision", string(decision)),
		zap.String("frontmost", wc.FrontmostApp),
		zap.Bool("active", wc.Active),
		zap.Bool("timer_running", running),
	)
	return s.Status()
}

// fail publishes a classified error; engine state is left as it was.
func (s *Scheduler) fail(now time.Time, record *models.CheckRecord, err error) Status {
	if errors.Is(err, context.Canceled) {
		s.logger.Debug("check cancelled")
		return s.Status()
	}

	msg := apperr.UserMessage(err)
	code := apperr.Code(err)

	s.setStatus(func(st *Status) {
		st.LastCheckAt = now
		st.LastCheckMessage = failureMessage(now, msg)
		st.LastError = msg
		st.LastErrorCode = code
	})

	record.ErrorCode = code
	record.Message = msg
	s.record(record)
	s.logError(now, err)
	metrics.RecordCheck("error")
	return s.Status()
}

func (s *Scheduler) logError(now time.Time, err error) {
	s.logger.Warn("reminder check error", zap.String("code", apperr.Code(err)), zap.Error(err))
	if s.deps.Recorder == nil {
		return
	}
	if dbErr := s.deps.Recorder.CreateErrorLog(&models.ErrorLog{
		Timestamp: now,
		Code:      apperr.Code(err),
		ErrorMsg:  err.Error(),
	}); dbErr != nil {
		s.logger.Warn("failed to store error log", zap.Error(dbErr))
	}
}

func (s *Scheduler) record(record *models.CheckRecord) {
	if s.deps.Recorder == nil {
		return
	}
	if err := s.deps.Recorder.CreateCheck(record); err != nil {
		s.logger.Warn("failed to store check record", zap.Error(err))
	}
}

// Snooze suppresses reminders for d from now.
func (s *Scheduler) Snooze(d time.Duration) time.Time {
	until := s.deps.Now().Add(d)
	s.SnoozeUntil(until)
	return until
}

// SnoozeUntil suppresses reminders until an absolute time.
func (s *Scheduler) SnoozeUntil(until time.Time) {
	s.engine.Snooze(until)
	now := s.deps.Now()
	s.setStatus(func(st *Status) { s.refreshSnoozeLocked(st, now) })
	s.logger.Info("reminders snoozed", zap.Time("until", until))
}

// ClearSnooze lifts any snooze.
func (s *Scheduler) ClearSnooze() {
	s.engine.ClearSnooze()
	now := s.deps.Now()
	s.setStatus(func(st *Status) { s.refreshSnoozeLocked(st, now) })
	s.logger.Info("snooze cleared")
}

// Status returns a copy of the latest published status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status.clone()
	now := s.deps.Now()
	s.refreshSnoozeLocked(&st, now)
	return st
}

// refreshSnoozeLocked derives snooze UI fields; it only reads the engine.
func (s *Scheduler) refreshSnoozeLocked(st *Status, now time.Time) {
	st.State = s.engine.State(now)
	st.Reminded = s.engine.Reminded()
	st.SnoozedUntil = nil
	st.SnoozeLabel = ""
	if until, ok := s.engine.SnoozedUntil(); ok && now.Before(until) {
		st.SnoozedUntil = &until
		st.SnoozeLabel = snoozeLabel(until, now)
	}
}

func (s *Scheduler) setStatus(fn func(st *Status)) {
	s.mu.Lock()
	fn(&s.status)
	s.mu.Unlock()
}
