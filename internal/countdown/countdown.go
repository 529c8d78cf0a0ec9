// Package countdown computes the time left until an alarm's wall-clock
// target and detects the moment it comes due.
package countdown

import (
	"fmt"
	"time"

	"github.com/ursineenterprises/koom/internal/db"
)

const (
	// ActiveLabel replaces the duration while the alarm is inside its
	// first minute of being due.
	ActiveLabel = "ALARM ACTIVE!"

	// PollInterval is how often the host should call Tick.
	PollInterval = time.Second

	// ActiveWindow is how long after the target ActiveLabel is shown.
	ActiveWindow = time.Minute
)

// Reading is the result of one tick.
type Reading struct {
	Remaining time.Duration
	Fire      bool
	Display   string
	Paused    bool
}

// Engine tracks a single target for the lifetime of a session.
type Engine struct {
	target db.Clock
	fired  bool
	paused bool
	last   Reading
	seen   bool
}

// New returns an engine aimed at the given time of day.
func New(target db.Clock) *Engine {
	return &Engine{target: target}
}

// Tick evaluates the countdown at now. Fire is true on the first tick at or
// past the target and never again until Rearm. While paused the
// previous reading is returned with Fire cleared and nothing is evaluated.
func (e *Engine) Tick(now time.Time) Reading {
	if e.paused {
		r := e.last
		r.Fire = false
		r.Paused = true
		return r
	}

	remaining := Remaining(now, e.target)
	r := Reading{
		Remaining: remaining,
		Display:   Format(remaining),
	}
	if remaining <= 0 && !e.fired {
		e.fired = true
		r.Fire = true
	}
	e.last = r
	e.seen = true
	return r
}

// Last returns the most recent reading. ok is false before the first tick.
func (e *Engine) Last() (r Reading, ok bool) {
	r = e.last
	r.Fire = false
	r.Paused = e.paused
	return r, e.seen
}

// Pause freezes the engine. Ticks become no-ops until Resume.
func (e *Engine) Pause() { e.paused = true }

// Resume lifts a Pause.
func (e *Engine) Resume() { e.paused = false }

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool { return e.paused }

// Fired reports whether the fire edge has been reported.
func (e *Engine) Fired() bool { return e.fired }

// Rearm clears the fired bit so the next due tick fires again.
func (e *Engine) Rearm() { e.fired = false }

// Remaining returns the time from now until target on now's calendar day,
// in now's location. The result is negative once the target has passed.
func Remaining(now time.Time, target db.Clock) time.Duration {
	y, m, d := now.Date()
	at := time.Date(y, m, d, target.Hour, target.Minute, 0, 0, now.Location())
	return at.Sub(now)
}

// Format renders a remaining duration. Inside the active window it returns
// ActiveLabel; otherwise hours, minutes and seconds, each truncated. Elapsed
// durations are prefixed with "-".
func Format(remaining time.Duration) string {
	if remaining <= 0 && remaining > -ActiveWindow {
		return ActiveLabel
	}
	sign := ""
	if remaining < 0 {
		sign = "-"
		remaining = -remaining
	}
	h := remaining / time.Hour
	m := (remaining % time.Hour) / time.Minute
	s := (remaining % time.Minute) / time.Second
	return fmt.Sprintf("%s%dh %dm %ds", sign, h, m, s)
}
