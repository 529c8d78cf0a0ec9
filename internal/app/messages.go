package app

import (
	"time"

	"github.com/ursineenterprises/koom/internal/alarm"
	"github.com/ursineenterprises/koom/internal/db"
	"github.com/ursineenterprises/koom/internal/playback"
)

// AlarmsLoadedMsg carries the stored alarms. Active is set when at least
// one of them is enabled.
type AlarmsLoadedMsg struct {
	Alarms []db.AlarmRecord
	Active bool
	Err    error
}

// AlarmSavedMsg is the outcome of a save from the editor.
type AlarmSavedMsg struct {
	Record db.AlarmRecord
	Err    error
}

// AlarmChangedMsg is the outcome of a delete or enable toggle from the list.
type AlarmChangedMsg struct {
	ID  string
	Err error
}

// TimerMsg delivers a machine timer once its delay has elapsed.
type TimerMsg struct {
	Timer alarm.Timer
	At    time.Time
}

// PlaybackResultMsg wraps a result reported by the playback queue.
type PlaybackResultMsg struct {
	Result playback.Result
}

// PlaybackClosedMsg is sent when the playback result stream ends.
type PlaybackClosedMsg struct{}

// HoldCheckMsg polls for the end of a keyboard hold.
type HoldCheckMsg struct {
	Seq int
	At  time.Time
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
