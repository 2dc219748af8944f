package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0         = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	needsNudge = Input{ActiveWorkContext: true, TimerRunning: false}
)

func TestEvaluateInactiveClearsDebounce(t *testing.T) {
	inputs := []Input{
		{ActiveWorkContext: false, TimerRunning: false},
		{ActiveWorkContext: false, TimerRunning: true},
	}

	for _, in := range inputs {
		e := NewEngine()
		require.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0))
		require.True(t, e.Reminded())

		assert.Equal(t, DecisionNoAction, e.Evaluate(in, t0.Add(time.Minute)))
		assert.False(t, e.Reminded())
		assert.Equal(t, StateIdle, e.State(t0.Add(time.Minute)))
	}
}

func TestEvaluateSnoozeTakesPrecedence(t *testing.T) {
	inputs := []Input{
		needsNudge,
		{ActiveWorkContext: false},
		{ActiveWorkContext: true, TimerRunning: true},
	}

	for _, in := range inputs {
		e := NewEngine()
		e.Snooze(t0.Add(time.Hour))
		assert.Equal(t, DecisionSnoozed, e.Evaluate(in, t0))
		assert.False(t, e.Reminded(), "debounce must be left untouched while snoozed")
	}
}

func TestEvaluateSnoozePreservesDebounce(t *testing.T) {
	e := NewEngine()
	require.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0))

	e.Snooze(t0.Add(time.Hour))
	// Leaving the work context while snoozed must not reset the debounce.
	require.Equal(t, DecisionSnoozed, e.Evaluate(Input{}, t0.Add(time.Minute)))
	assert.True(t, e.Reminded())
	assert.Equal(t, StateSnoozed, e.State(t0.Add(time.Minute)))
}

func TestEvaluateNotifiesOncePerStretch(t *testing.T) {
	e := NewEngine()

	assert.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0))
	for i := 1; i <= 5; i++ {
		assert.Equal(t, DecisionNoAction, e.Evaluate(needsNudge, t0.Add(time.Duration(i)*time.Minute)))
	}
	assert.Equal(t, StateReminded, e.State(t0))
}

func TestEvaluateTimerStartRearms(t *testing.T) {
	e := NewEngine()

	require.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0))
	require.Equal(t, DecisionNoAction, e.Evaluate(Input{ActiveWorkContext: true, TimerRunning: true}, t0.Add(time.Minute)))
	assert.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0.Add(2*time.Minute)))
}

func TestSnoozeThenClear(t *testing.T) {
	t.Run("debounce clear before snoozing", func(t *testing.T) {
		e := NewEngine()
		e.Snooze(t0.Add(time.Hour))
		e.ClearSnooze()
		assert.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0.Add(time.Minute)))
	})

	t.Run("debounce set before snoozing", func(t *testing.T) {
		e := NewEngine()
		require.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0))
		e.Snooze(t0.Add(time.Hour))
		e.ClearSnooze()
		assert.Equal(t, DecisionNoAction, e.Evaluate(needsNudge, t0.Add(time.Minute)))
	})
}

func TestSnoozeExpires(t *testing.T) {
	e := NewEngine()
	e.Snooze(t0.Add(10 * time.Minute))

	assert.Equal(t, DecisionSnoozed, e.Evaluate(needsNudge, t0.Add(9*time.Minute)))
	// Boundary: now == snoozedUntil is no longer snoozed.
	assert.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0.Add(10*time.Minute)))
}

func TestSnoozeOverwrites(t *testing.T) {
	e := NewEngine()
	e.Snooze(t0.Add(time.Hour))
	e.Snooze(t0.Add(5 * time.Minute))

	until, ok := e.SnoozedUntil()
	require.True(t, ok)
	assert.Equal(t, t0.Add(5*time.Minute), until)
	assert.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0.Add(6*time.Minute)))
}

func TestClearSnoozeIdempotent(t *testing.T) {
	e := NewEngine()
	e.ClearSnooze()
	e.ClearSnooze()

	_, ok := e.SnoozedUntil()
	assert.False(t, ok)
	assert.False(t, e.IsSnoozed(t0))
	assert.Equal(t, StateIdle, e.State(t0))
}

func TestZeroValueEngine(t *testing.T) {
	var e Engine
	assert.Equal(t, DecisionNotify, e.Evaluate(needsNudge, t0))
}

func TestInputNeedsReminder(t *testing.T) {
	assert.True(t, needsNudge.NeedsReminder())
	assert.False(t, Input{ActiveWorkContext: true, TimerRunning: true}.NeedsReminder())
	assert.False(t, Input{}.NeedsReminder())
}
