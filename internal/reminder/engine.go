package reminder

import (
	"sync"
	"time"
)

// Decision is the outcome of one evaluation.
type Decision string

const (
	DecisionNotify   Decision = "notify"
	DecisionNoAction Decision = "no_action"
	DecisionSnoozed  Decision = "snoozed"
)

// State is the conceptual engine state derived from the debounce flag and snooze.
type State string

const (
	StateIdle     State = "idle"     // no debounce, no snooze
	StateReminded State = "reminded" // reminded for the current stretch
	StateSnoozed  State = "snoozed"  // snooze active, debounce preserved underneath
)

// Input is built fresh each poll cycle.
type Input struct {
	ActiveWorkContext bool
	TimerRunning      bool
}

// NeedsReminder reports whether the input is an active-work, no-timer situation.
func (in Input) NeedsReminder() bool {
	return in.ActiveWorkContext && !in.TimerRunning
}

// Engine decides when a reminder should fire. It emits one Notify per
// uninterrupted stretch of active work without a running timer, and stays
// silent while snoozed. The zero value is ready to use.
type Engine struct {
	mu           sync.Mutex
	reminded     bool
	snoozedUntil time.Time // zero means no snooze
}

// NewEngine creates an engine with no snooze and the reminder armed.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate applies one input at time now and returns the decision.
func (e *Engine) Evaluate(in Input, now time.Time) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Debounce flag is left untouched while snoozed.
	if !e.snoozedUntil.IsZero() && now.Before(e.snoozedUntil) {
		return DecisionSnoozed
	}

	if !in.ActiveWorkContext || in.TimerRunning {
		e.reminded = false
		return DecisionNoAction
	}

	if e.reminded {
		return DecisionNoAction
	}

	e.reminded = true
	return DecisionNotify
}

// Snooze suppresses all decisions until the given time. A later call
// overwrites an earlier one.
func (e *Engine) Snooze(until time.Time) {
	e.mu.Lock()
	e.snoozedUntil = until
	e.mu.Unlock()
}

// ClearSnooze removes any snooze. It is a no-op when none is set.
func (e *Engine) ClearSnooze() {
	e.mu.Lock()
	e.snoozedUntil = time.Time{}
	e.mu.Unlock()
}

// SnoozedUntil returns the snooze deadline and whether one is set. An expired
// deadline is still reported until cleared; callers compare against now.
func (e *Engine) SnoozedUntil() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snoozedUntil, !e.snoozedUntil.IsZero()
}

// IsSnoozed reports whether a snooze is in effect at now.
func (e *Engine) IsSnoozed(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.snoozedUntil.IsZero() && now.Before(e.snoozedUntil)
}

// Reminded reports the debounce flag.
func (e *Engine) Reminded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reminded
}

// State returns the engine state as seen at now.
func (e *Engine) State(now time.Time) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case !e.snoozedUntil.IsZero() && now.Before(e.snoozedUntil):
		return StateSnoozed
	case e.reminded:
		return StateReminded
	default:
		return StateIdle
	}
}
