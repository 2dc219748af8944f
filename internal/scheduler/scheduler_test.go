package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timernudge/timernudge/internal/apperr"
	"github.com/timernudge/timernudge/internal/credentials"
	"github.com/timernudge/timernudge/internal/models"
	"github.com/timernudge/timernudge/internal/reminder"
	"github.com/timernudge/timernudge/internal/settings"
	"github.com/timernudge/timernudge/internal/timerapi"
)

var t0 = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type fakeSignal struct {
	mu        sync.Mutex
	active    bool
	frontmost string
}

func (f *fakeSignal) RecentlyActive(time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeSignal) FrontmostIdentifier() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frontmost, f.frontmost != ""
}

type fakeTimers struct {
	mu          sync.Mutex
	identity    timerapi.Identity
	running     bool
	identityErr error
	timerErr    error
	resolves    int
	queries     int
	lastTeam    string
	lastUser    string
}

func (f *fakeTimers) ResolveIdentity(_ context.Context, _, team, user string) (timerapi.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves++
	f.lastTeam, f.lastUser = team, user
	if f.identityErr != nil {
		return timerapi.Identity{}, f.identityErr
	}
	id := f.identity
	if team != "" {
		id.TeamID = team
	}
	if user != "" {
		id.UserID = user
	}
	return id, nil
}

func (f *fakeTimers) HasRunningTimer(context.Context, string, timerapi.Identity) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return f.running, f.timerErr
}

func (f *fakeTimers) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolves + f.queries
}

type sentNotification struct{ title, body string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Present(_ context.Context, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{title, body})
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeRecorder struct {
	mu     sync.Mutex
	checks []*models.CheckRecord
	errs   []*models.ErrorLog
}

func (f *fakeRecorder) CreateCheck(r *models.CheckRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, r)
	return nil
}

func (f *fakeRecorder) CreateErrorLog(e *models.ErrorLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, e)
	return nil
}

type harness struct {
	sched    *Scheduler
	signal   *fakeSignal
	timers   *fakeTimers
	notifier *fakeNotifier
	recorder *fakeRecorder
	creds    *credentials.MemoryStore
	settings *settings.MemorySource
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		signal:   &fakeSignal{active: true, frontmost: "Code"},
		timers:   &fakeTimers{identity: timerapi.Identity{TeamID: "ws-1", UserID: "u-1"}},
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
		creds:    credentials.NewMemoryStore("tok"),
		settings: settings.NewMemorySource(settings.Settings{
			PollIntervalSeconds: 60,
			WorkApps:            []string{"code"},
		}),
		now: t0,
	}
	h.sched = New(Deps{
		Activity:    h.signal,
		Foreground:  h.signal,
		Timers:      h.timers,
		Credentials: h.creds,
		Settings:    h.settings,
		Notifier:    h.notifier,
		Recorder:    h.recorder,
		Now:         func() time.Time { return h.now },
	})
	return h
}

func TestNoCredentialEndsCycleEarly(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.creds.Delete())

	st := h.sched.RunCheck(context.Background())

	assert.Equal(t, "No token configured", st.LastCheckMessage)
	assert.False(t, st.Configured)
	assert.Empty(t, st.LastError)
	assert.Zero(t, h.timers.calls(), "no network calls without a token")
	assert.Zero(t, h.notifier.count())
	assert.False(t, h.sched.engine.Reminded())
	assert.Equal(t, reminder.StateIdle, st.State)
}

func TestClearedTokenForgetsRemoteState(t *testing.T) {
	h := newHarness(t)
	h.timers.running = true

	st := h.sched.RunCheck(context.Background())
	require.True(t, st.TimerRunning)
	require.Equal(t, "ws-1", st.Identity.TeamID)
	require.Equal(t, reminder.DecisionNoAction, st.Decision)

	require.NoError(t, h.creds.Delete())
	st = h.sched.RunCheck(context.Background())

	assert.False(t, st.Configured)
	assert.False(t, st.TimerRunning)
	assert.Empty(t, st.Decision)
	assert.Equal(t, timerapi.Identity{}, st.Identity)
}

func TestNotifiesOnceForContinuousStretch(t *testing.T) {
	h := newHarness(t)

	st := h.sched.RunCheck(context.Background())
	require.Equal(t, reminder.DecisionNotify, st.Decision)
	require.Equal(t, 1, h.notifier.count())
	assert.Equal(t, sentNotification{ReminderTitle, ReminderBody}, h.notifier.sent[0])
	assert.Contains(t, st.LastCheckMessage, "reminder sent")

	h.now = h.now.Add(time.Minute)
	st = h.sched.RunCheck(context.Background())
	assert.Equal(t, reminder.DecisionNoAction, st.Decision)
	assert.Equal(t, 1, h.notifier.count(), "second identical cycle must not notify")
	assert.Equal(t, reminder.StateReminded, st.State)
}

func TestUnresolvableHostLeavesEngineUntouched(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, reminder.DecisionNotify, h.sched.RunCheck(context.Background()).Decision)

	h.timers.identityErr = apperr.HostUnresolvable("api.clockify.me", errors.New("no such host"))
	h.signal.active = false // would clear the debounce if evaluated
	h.now = h.now.Add(time.Minute)

	st := h.sched.RunCheck(context.Background())

	assert.Equal(t, "Cannot resolve host api.clockify.me", st.LastError)
	assert.Equal(t, apperr.CodeHostUnresolvable, st.LastErrorCode)
	assert.Contains(t, st.LastCheckMessage, "Check failed")
	assert.True(t, h.sched.engine.Reminded(), "debounce unchanged by a failed cycle")
	_, snoozed := h.sched.engine.SnoozedUntil()
	assert.False(t, snoozed)

	require.Len(t, h.recorder.errs, 1)
	assert.Equal(t, apperr.CodeHostUnresolvable, h.recorder.errs[0].Code)
}

func TestErrorSlotClearedNextCycle(t *testing.T) {
	h := newHarness(t)
	h.timers.timerErr = apperr.BadStatus(503)

	st := h.sched.RunCheck(context.Background())
	require.Equal(t, "Unexpected response status 503", st.LastError)

	h.timers.timerErr = nil
	st = h.sched.RunCheck(context.Background())
	assert.Empty(t, st.LastError)
	assert.Empty(t, st.LastErrorCode)
}

func TestStorageFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.sched.deps.Credentials = brokenStore{}

	st := h.sched.RunCheck(context.Background())
	assert.Equal(t, apperr.CodeStorageFailed, st.LastErrorCode)
	assert.Zero(t, h.timers.calls())
}

type brokenStore struct{}

func (brokenStore) Load() (string, bool, error) {
	return "", false, apperr.StorageFailed("read", errors.New("keyring locked"))
}
func (brokenStore) Save(string) error { return nil }
func (brokenStore) Delete() error     { return nil }

func TestTimerStartRearmsReminder(t *testing.T) {
	h := newHarness(t)
	h.sched.RunCheck(context.Background())

	h.timers.running = true
	st := h.sched.RunCheck(context.Background())
	assert.Equal(t, reminder.DecisionNoAction, st.Decision)
	assert.True(t, st.TimerRunning)
	assert.Contains(t, st.LastCheckMessage, "timer running")

	h.timers.running = false
	h.sched.RunCheck(context.Background())
	assert.Equal(t, 2, h.notifier.count())
}

func TestNonWorkAppNeverNotifies(t *testing.T) {
	h := newHarness(t)
	h.signal.frontmost = "firefox"

	st := h.sched.RunCheck(context.Background())
	assert.False(t, st.ActiveWorkContext)
	assert.Equal(t, "firefox", st.FrontmostApp)
	assert.Zero(t, h.notifier.count())
}

func TestSnoozeSuppressesAndLabels(t *testing.T) {
	h := newHarness(t)

	until := h.sched.Snooze(10 * time.Minute)
	assert.Equal(t, t0.Add(10*time.Minute), until)

	st := h.sched.RunCheck(context.Background())
	assert.Equal(t, reminder.DecisionSnoozed, st.Decision)
	assert.Equal(t, "Snoozed for 10m", st.SnoozeLabel)
	require.NotNil(t, st.SnoozedUntil)
	assert.Zero(t, h.notifier.count())

	h.sched.ClearSnooze()
	st = h.sched.RunCheck(context.Background())
	assert.Equal(t, reminder.DecisionNotify, st.Decision)
	assert.Nil(t, st.SnoozedUntil)
}

func TestNotificationFailureDoesNotAbortStatus(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("dbus down")

	st := h.sched.RunCheck(context.Background())
	assert.Equal(t, reminder.DecisionNotify, st.Decision)
	assert.Contains(t, st.LastCheckMessage, "Last check")
	assert.Equal(t, apperr.CodeDeliveryFailed, st.LastErrorCode)
	require.Len(t, h.recorder.checks, 1)
	assert.False(t, h.recorder.checks[0].Notified)
}

func TestIdentityCachedForBlankFields(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.Update(func(s *settings.Settings) { s.TeamID = "my-team" }))

	h.sched.RunCheck(context.Background())
	snap := h.settings.Snapshot()
	assert.Equal(t, "my-team", snap.TeamID)
	assert.Empty(t, snap.CachedTeamID)
	assert.Equal(t, "u-1", snap.CachedUserID)

	h.sched.RunCheck(context.Background())
	assert.Equal(t, "my-team", h.timers.lastTeam)
	assert.Equal(t, "u-1", h.timers.lastUser)
}

func TestEffectiveIntervalFloor(t *testing.T) {
	assert.Equal(t, 15*time.Second, EffectiveInterval(5))
	assert.Equal(t, 15*time.Second, EffectiveInterval(0))
	assert.Equal(t, 15*time.Second, EffectiveInterval(15))
	assert.Equal(t, 90*time.Second, EffectiveInterval(90))
}

// sleeper records requested sleeps and lets the test decide when they end.
type sleeper struct {
	requested chan time.Duration
	fire      chan time.Time
}

func newSleeper() *sleeper {
	return &sleeper{requested: make(chan time.Duration, 16), fire: make(chan time.Time)}
}

func (s *sleeper) after(d time.Duration) <-chan time.Time {
	s.requested <- d
	return s.fire
}

func TestLoopSleepsForFlooredIntervalReadFresh(t *testing.T) {
	h := newHarness(t)
	sl := newSleeper()
	h.sched.deps.After = sl.after
	require.NoError(t, h.settings.Update(func(s *settings.Settings) { s.PollIntervalSeconds = 5 }))

	h.sched.Start(context.Background())
	defer h.sched.Stop()

	assert.Equal(t, 15*time.Second, <-sl.requested)

	require.NoError(t, h.settings.Update(func(s *settings.Settings) { s.PollIntervalSeconds = 120 }))
	sl.fire <- t0
	assert.Equal(t, 120*time.Second, <-sl.requested)
	assert.Equal(t, 2, h.timers.queries)
}

func TestStopCancelsSleepPromptly(t *testing.T) {
	h := newHarness(t)
	sl := newSleeper()
	h.sched.deps.After = sl.after

	h.sched.Start(context.Background())
	<-sl.requested
	require.True(t, h.sched.IsRunning())

	stopped := make(chan struct{})
	go func() {
		h.sched.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while the loop was sleeping")
	}
	assert.False(t, h.sched.IsRunning())

	// Stop on a stopped scheduler is a no-op.
	h.sched.Stop()
}

func TestStartIsIdempotentAndRestartsImmediately(t *testing.T) {
	h := newHarness(t)
	sl := newSleeper()
	h.sched.deps.After = sl.after

	h.sched.Start(context.Background())
	<-sl.requested
	h.sched.Start(context.Background())
	<-sl.requested

	assert.Equal(t, 2, h.timers.queries, "each start runs one immediate cycle")

	h.sched.Stop()
	h.sched.Start(context.Background())
	<-sl.requested
	h.sched.Stop()

	assert.Equal(t, 3, h.timers.queries)
	select {
	case d := <-sl.requested:
		t.Fatalf("unexpected extra loop sleeping for %v", d)
	default:
	}
}

func TestCheckNowDoesNotResetLoopTimer(t *testing.T) {
	h := newHarness(t)
	sl := newSleeper()
	h.sched.deps.After = sl.after

	h.sched.Start(context.Background())
	defer h.sched.Stop()
	<-sl.requested

	h.sched.CheckNow(context.Background())

	select {
	case d := <-sl.requested:
		t.Fatalf("check now started a new sleep of %v", d)
	default:
	}
	assert.Equal(t, 2, h.timers.queries)
}

func TestConcurrentChecksNotifyOnce(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.sched.CheckNow(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.notifier.count())
}

func TestCancelledCycleKeepsStatus(t *testing.T) {
	h := newHarness(t)
	h.sched.RunCheck(context.Background())
	before := h.sched.Status()

	h.timers.timerErr = context.Canceled
	st := h.sched.RunCheck(context.Background())

	assert.Equal(t, before.LastCheckMessage, st.LastCheckMessage)
	assert.Empty(t, st.LastError)
}
