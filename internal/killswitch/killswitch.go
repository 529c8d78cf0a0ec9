// Package killswitch turns a sustained hold into a one-shot confirmation.
package killswitch

import "time"

const (
	// HoldDuration is how long the switch must be held to complete.
	HoldDuration = 8 * time.Second

	// SampleInterval is how often progress is recomputed while held.
	SampleInterval = 50 * time.Millisecond

	// InitialProgress is shown the moment a hold begins so the bar
	// appears before the first sample.
	InitialProgress = 0.01
)

// Switch accumulates a single hold. The zero value is not usable; call New.
type Switch struct {
	hold      time.Duration
	startedAt time.Time
	holding   bool
	completed bool
	progress  float64
}

// New returns a switch that completes after hold. A non-positive hold uses
// HoldDuration.
func New(hold time.Duration) *Switch {
	if hold <= 0 {
		hold = HoldDuration
	}
	return &Switch{hold: hold}
}

// Hold returns the configured hold duration.
func (s *Switch) Hold() time.Duration { return s.hold }

// Start begins a fresh hold at now. It reports false if a hold is already
// in progress; an earlier hold's progress never carries over.
func (s *Switch) Start(now time.Time) bool {
	if s.holding {
		return false
	}
	s.startedAt = now
	s.holding = true
	s.completed = false
	s.progress = InitialProgress
	return true
}

// Sample recomputes progress at now. completed is true exactly once per
// hold, on the sample that reaches 1; the hold ends at that point and
// further samples return (1, false).
func (s *Switch) Sample(now time.Time) (progress float64, completed bool) {
	if !s.holding {
		return s.progress, false
	}
	p := float64(now.Sub(s.startedAt)) / float64(s.hold)
	if p < InitialProgress {
		p = InitialProgress
	}
	if p >= 1 {
		s.progress = 1
		s.holding = false
		s.completed = true
		return 1, true
	}
	s.progress = p
	return p, false
}

// Release aborts a hold in progress and resets progress to zero. It reports
// whether a hold was actually aborted. Releasing after completion keeps the
// completed state.
func (s *Switch) Release() bool {
	if !s.holding {
		return false
	}
	s.holding = false
	s.progress = 0
	return true
}

// Reset clears everything, including a completed hold.
func (s *Switch) Reset() {
	*s = Switch{hold: s.hold}
}

// Progress returns the last computed progress in [0,1].
func (s *Switch) Progress() float64 { return s.progress }

// Holding reports whether a hold is in progress.
func (s *Switch) Holding() bool { return s.holding }

// Completed reports whether the last hold reached completion.
func (s *Switch) Completed() bool { return s.completed }
