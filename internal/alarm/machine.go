package alarm

import (
	"context"
	"fmt"
	"time"

	"github.com/ursineenterprises/koom/internal/countdown"
	"github.com/ursineenterprises/koom/internal/db"
	"github.com/ursineenterprises/koom/internal/killswitch"
	"github.com/ursineenterprises/koom/internal/playback"
)

// Status is the lifecycle state of a session.
type Status int

const (
	Idle Status = iota
	Armed
	CountingDown
	Sounding
	Killed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Armed:
		return "Armed"
	case CountingDown:
		return "CountingDown"
	case Sounding:
		return "Sounding"
	case Killed:
		return "Killed"
	case Cancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Route is the screen the host should show.
type Route int

const (
	RouteHome Route = iota
	RouteList
	RouteEditor
	RouteActive
)

func (r Route) String() string {
	switch r {
	case RouteHome:
		return "home"
	case RouteList:
		return "list"
	case RouteEditor:
		return "editor"
	case RouteActive:
		return "active"
	default:
		return fmt.Sprintf("route(%d)", int(r))
	}
}

// TimerKind identifies a machine-owned timer.
type TimerKind int

const (
	TimerCountdown TimerKind = iota
	TimerHoldSample
	TimerSettle
	TimerPreviewProgress
	TimerPreviewDone
	TimerPreviewFade
	numTimerKinds
)

func (k TimerKind) String() string {
	switch k {
	case TimerCountdown:
		return "countdown"
	case TimerHoldSample:
		return "holdSample"
	case TimerSettle:
		return "settle"
	case TimerPreviewProgress:
		return "previewProgress"
	case TimerPreviewDone:
		return "previewDone"
	case TimerPreviewFade:
		return "previewFade"
	default:
		return fmt.Sprintf("timer(%d)", int(k))
	}
}

// Timer asks the host to call Fire with it after After has elapsed. A timer
// whose generation has been superseded is ignored when it fires.
type Timer struct {
	Kind  TimerKind
	After time.Duration
	Gen   uint64
}

// Session is the one live alarm.
type Session struct {
	AlarmID string
	TrackID string
	Record  db.AlarmRecord
	Status  Status
	Gen     uint64

	triggered       bool
	cancelRequested bool
}

// Snapshot is a read-only view of the machine for rendering.
type Snapshot struct {
	Status        Status
	Paused        bool
	Display       string
	Remaining     time.Duration
	HoldProgress  float64
	Holding       bool
	KillAvailable bool
	Route         Route
	RouteSeq      uint64
	Banner        string
	AlarmID       string
	TrackID       string
	Record        db.AlarmRecord
	Preview       PreviewSnapshot
}

// StatusLabel is Status with the pause modifier folded in.
func (s Snapshot) StatusLabel() string {
	if s.Paused && (s.Status == CountingDown || s.Status == Sounding) {
		return "Paused"
	}
	return s.Status.String()
}

// Machine owns the alarm session, its countdown, the kill switch and every
// timer. It is not safe for concurrent use; the host serializes calls.
type Machine struct {
	env *Env

	session   *Session
	countdown *countdown.Engine
	kill      *killswitch.Switch
	gens      [numTimerKinds]uint64
	nextGen   uint64

	route    Route
	routeSeq uint64
	banner   string

	preview previewState
}

// NewMachine returns an idle machine.
func NewMachine(env *Env) *Machine {
	return &Machine{
		env:  env,
		kill: killswitch.New(env.Settings.HoldDuration),
	}
}

func (m *Machine) schedule(kind TimerKind, after time.Duration) Timer {
	return Timer{Kind: kind, After: after, Gen: m.gens[kind]}
}

func (m *Machine) cancelTimer(kinds ...TimerKind) {
	for _, k := range kinds {
		m.gens[k]++
	}
}

func (m *Machine) navigate(r Route) {
	m.route = r
	m.routeSeq++
}

// Navigate records a host-initiated screen change.
func (m *Machine) Navigate(r Route) {
	m.navigate(r)
}

// Session returns a copy of the live session, if any.
func (m *Machine) Session() (Session, bool) {
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

func (m *Machine) live() bool {
	if m.session == nil {
		return false
	}
	switch m.session.Status {
	case Armed, CountingDown, Sounding, Killed:
		return true
	}
	return false
}

// ArmSession loads the record and arms a session for it. A missing record
// routes home and returns ErrNotFound.
func (m *Machine) ArmSession(ctx context.Context, id string) (Session, error) {
	if m.live() {
		return Session{}, ErrSessionActive
	}

	rec, err := m.env.Store.GetAlarm(ctx, id)
	if err != nil {
		return Session{}, &StorageError{Op: "get", ID: id, Err: err}
	}
	if rec == nil {
		m.env.Log.Warn().Str("id", id).Msg("arm: alarm not found")
		m.navigate(RouteHome)
		return Session{}, fmt.Errorf("alarm %s: %w", id, ErrNotFound)
	}
	if !rec.Enabled {
		return Session{}, fmt.Errorf("alarm %s: %w", id, ErrDisabled)
	}

	var problems []FieldError
	clock, err := rec.Clock()
	if err != nil {
		problems = append(problems, FieldError{Field: "time", Problem: "must be HH:MM"})
	}
	track := rec.PrimaryTrack()
	if track == "" {
		problems = append(problems, FieldError{Field: "trackIds", Problem: "needs at least one track"})
	} else if _, ok := m.env.Catalog.ResolveSource(track); !ok {
		problems = append(problems, FieldError{Field: "trackIds", Problem: fmt.Sprintf("track %q is not in the catalog", track)})
	}
	if len(problems) > 0 {
		return Session{}, &ValidationError{Fields: problems}
	}

	m.nextGen++
	m.session = &Session{
		AlarmID: rec.ID,
		TrackID: track,
		Record:  *rec,
		Status:  Armed,
		Gen:     m.nextGen,
	}
	m.countdown = countdown.New(clock)
	m.kill.Reset()
	m.banner = ""
	m.cancelTimer(TimerCountdown, TimerHoldSample, TimerSettle)
	m.navigate(RouteActive)

	m.env.Log.Info().
		Str("id", rec.ID).
		Str("time", rec.Time).
		Str("track", track).
		Msg("session armed")
	return *m.session, nil
}

// Start moves an armed session to CountingDown, evaluates the first tick
// and schedules polling.
func (m *Machine) Start(now time.Time) ([]Timer, error) {
	if m.session == nil {
		return nil, ErrNoSession
	}
	if m.session.Status != Armed {
		return nil, nil
	}
	m.session.Status = CountingDown
	m.cancelTimer(TimerCountdown)
	m.Tick(now)
	return []Timer{m.schedule(TimerCountdown, m.env.Settings.PollInterval)}, nil
}

// Tick evaluates the countdown at now and starts the alarm sound on the
// fire edge. An armed session is started implicitly.
func (m *Machine) Tick(now time.Time) countdown.Reading {
	if m.session == nil || m.countdown == nil {
		return countdown.Reading{}
	}
	switch m.session.Status {
	case Armed:
		m.session.Status = CountingDown
	case CountingDown, Sounding:
	default:
		r, _ := m.countdown.Last()
		return r
	}

	r := m.countdown.Tick(now)
	if r.Fire {
		m.trigger()
	}
	return r
}

// trigger starts the alarm sound once per session.
func (m *Machine) trigger() {
	s := m.session
	if s.Status != CountingDown || s.triggered || s.cancelRequested {
		return
	}
	src, ok := m.env.Catalog.ResolveSource(s.TrackID)
	if !ok {
		m.env.Log.Error().Str("track", s.TrackID).Msg("alarm track vanished from catalog")
		m.banner = "Sound unavailable"
		return
	}

	s.triggered = true
	s.Status = Sounding
	m.env.Player.Dispatch(playback.Command{
		Slot:    playback.SlotAlarm,
		Op:      playback.OpPlay,
		Source:  src,
		Options: playback.PlayOptions{Loop: true, Volume: 1},
		Gen:     s.Gen,
	})
	m.env.Log.Info().Str("id", s.AlarmID).Str("track", s.TrackID).Msg("alarm sounding")
}

// PauseCountdown freezes the countdown display and fire evaluation.
func (m *Machine) PauseCountdown() error {
	if m.countdown == nil {
		return ErrNoSession
	}
	m.countdown.Pause()
	return nil
}

// ResumeCountdown lifts PauseCountdown.
func (m *Machine) ResumeCountdown() error {
	if m.countdown == nil {
		return ErrNoSession
	}
	m.countdown.Resume()
	return nil
}

// KillAvailable reports whether the kill switch may be operated.
func (m *Machine) KillAvailable() bool {
	if m.session == nil {
		return false
	}
	switch m.session.Status {
	case Sounding:
		return true
	case Armed, CountingDown:
		return m.env.Settings.KillOverride
	}
	return false
}

// HoldStart begins a kill-switch hold and pauses the countdown.
func (m *Machine) HoldStart(now time.Time) ([]Timer, error) {
	if !m.KillAvailable() {
		return nil, ErrKillSwitchUnavailable
	}
	if !m.kill.Start(now) {
		return nil, nil
	}
	m.countdown.Pause()
	m.cancelTimer(TimerHoldSample)
	return []Timer{m.schedule(TimerHoldSample, m.env.Settings.HoldSample)}, nil
}

// HoldProgress returns the current hold progress in [0,1].
func (m *Machine) HoldProgress() float64 {
	return m.kill.Progress()
}

// HoldRelease aborts a hold before completion. Progress resets to zero and
// the countdown resumes.
func (m *Machine) HoldRelease() {
	if !m.kill.Release() {
		return
	}
	m.cancelTimer(TimerHoldSample)
	if m.countdown != nil {
		m.countdown.Resume()
	}
}

func (m *Machine) sampleHold(now time.Time) []Timer {
	_, completed := m.kill.Sample(now)
	if completed {
		return m.killSession()
	}
	if !m.kill.Holding() {
		return nil
	}
	return []Timer{m.schedule(TimerHoldSample, m.env.Settings.HoldSample)}
}

func (m *Machine) killSession() []Timer {
	s := m.session
	if s == nil || s.Status == Killed {
		return nil
	}
	s.Status = Killed
	m.banner = "Alarm killed"
	m.cancelTimer(TimerCountdown, TimerHoldSample)
	m.stopSlots()

	m.env.Log.Info().Str("id", s.AlarmID).Msg("alarm killed")

	m.cancelTimer(TimerSettle)
	return []Timer{m.schedule(TimerSettle, m.env.Settings.SettleDelay)}
}

func (m *Machine) stopSlots() {
	m.env.Player.Dispatch(playback.Command{Slot: playback.SlotAlarm, Op: playback.OpStop})
	m.stopPreview()
}

// settle finishes a kill: the record is disabled and persisted, the session
// is released and the host goes home. Storage failures are logged only.
func (m *Machine) settle(ctx context.Context) {
	s := m.session
	if s == nil || s.Status != Killed {
		return
	}
	log := m.env.Log.With().Str("id", s.AlarmID).Logger()

	rec, err := m.env.Store.GetAlarm(ctx, s.AlarmID)
	switch {
	case err != nil:
		log.Error().Err(&StorageError{Op: "get", ID: s.AlarmID, Err: err}).Msg("settle")
	case rec == nil:
		log.Warn().Msg("settle: alarm deleted while sounding")
	case rec.Recurring && m.env.Settings.RearmRecurring:
		log.Info().Msg("recurring alarm left enabled")
	default:
		rec.Enabled = false
		if err := m.env.Store.SaveAlarm(ctx, *rec); err != nil {
			log.Error().Err(&StorageError{Op: "save", ID: s.AlarmID, Err: err}).Msg("settle: disable alarm")
		}
	}

	m.release()
	m.navigate(RouteHome)
}

// release drops the session and cancels its timers.
func (m *Machine) release() {
	m.session = nil
	m.countdown = nil
	m.kill.Reset()
	m.banner = ""
	m.cancelTimer(TimerCountdown, TimerHoldSample, TimerSettle)
}

// Cancel abandons a counting-down or sounding session. The request is
// processed once: the flag is raised and cleared within this call.
func (m *Machine) Cancel() error {
	s := m.session
	if s == nil {
		return ErrNoSession
	}
	switch s.Status {
	case Armed, CountingDown, Sounding:
	default:
		return ErrNoSession
	}
	s.cancelRequested = true
	m.processCancel(RouteList)
	return nil
}

func (m *Machine) processCancel(to Route) {
	s := m.session
	if s == nil || !s.cancelRequested {
		return
	}
	s.cancelRequested = false
	s.Status = Cancelled
	m.stopSlots()
	m.env.Log.Info().Str("id", s.AlarmID).Str("to", to.String()).Msg("session cancelled")

	m.release()
	m.navigate(to)
}

// Edit cancels the session and routes to the editor with its record.
func (m *Machine) Edit() (db.AlarmRecord, error) {
	s := m.session
	if s == nil {
		return db.AlarmRecord{}, ErrNoSession
	}
	switch s.Status {
	case Armed, CountingDown, Sounding:
	default:
		return db.AlarmRecord{}, ErrNoSession
	}
	rec := s.Record
	s.cancelRequested = true
	m.processCancel(RouteEditor)
	return rec, nil
}

// Fire delivers a timer previously returned by the machine. Stale timers
// are ignored. The returned timers must be scheduled by the host.
func (m *Machine) Fire(ctx context.Context, t Timer, now time.Time) []Timer {
	if t.Kind < 0 || t.Kind >= numTimerKinds || t.Gen != m.gens[t.Kind] {
		return nil
	}
	switch t.Kind {
	case TimerCountdown:
		if m.session == nil {
			return nil
		}
		switch m.session.Status {
		case CountingDown, Sounding:
		default:
			return nil
		}
		m.Tick(now)
		return []Timer{m.schedule(TimerCountdown, m.env.Settings.PollInterval)}
	case TimerHoldSample:
		return m.sampleHold(now)
	case TimerSettle:
		m.settle(ctx)
		return nil
	case TimerPreviewProgress, TimerPreviewDone, TimerPreviewFade:
		return m.firePreview(t.Kind, now)
	}
	return nil
}

// HandlePlayback applies a playback result. A failed alarm start rolls the
// session back to CountingDown with the trigger latch released so the next
// tick retries.
func (m *Machine) HandlePlayback(res playback.Result) []Timer {
	cmd := res.Command
	if cmd.Slot == playback.SlotPreview {
		return m.handlePreviewResult(res)
	}
	if res.Err == nil {
		return nil
	}

	perr := &PlaybackError{Op: cmd.Op.String(), Err: res.Err}
	if cmd.Op != playback.OpPlay {
		m.env.Log.Warn().Err(perr).Msg("alarm playback cleanup failed")
		return nil
	}

	s := m.session
	if s == nil || cmd.Gen != s.Gen || s.Status != Sounding {
		m.env.Log.Warn().Err(perr).Msg("stale alarm playback failure")
		return nil
	}

	m.env.Log.Error().Err(perr).Str("id", s.AlarmID).Msg("alarm sound failed, will retry")
	s.Status = CountingDown
	s.triggered = false
	m.countdown.Rearm()
	m.banner = "Sound failed, retrying"
	if m.kill.Holding() && !m.KillAvailable() {
		m.HoldRelease()
	}
	return nil
}

// Teardown cancels every timer and stops all playback. The session is
// released but the route is left alone.
func (m *Machine) Teardown() {
	for k := TimerKind(0); k < numTimerKinds; k++ {
		m.gens[k]++
	}
	m.env.Player.Dispatch(playback.Command{Slot: playback.SlotAlarm, Op: playback.OpStop})
	if m.preview.active {
		m.env.Player.Dispatch(playback.Command{Slot: playback.SlotPreview, Op: playback.OpStop})
	}
	m.preview = previewState{}
	m.session = nil
	m.countdown = nil
	m.kill.Reset()
}

// Snapshot returns the state needed to render the machine.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		Status:        Idle,
		Route:         m.route,
		RouteSeq:      m.routeSeq,
		Banner:        m.banner,
		HoldProgress:  m.kill.Progress(),
		Holding:       m.kill.Holding(),
		KillAvailable: m.KillAvailable(),
		Preview:       m.previewSnapshot(),
	}
	if s := m.session; s != nil {
		snap.Status = s.Status
		snap.AlarmID = s.AlarmID
		snap.TrackID = s.TrackID
		snap.Record = s.Record
	}
	if m.countdown != nil {
		r, _ := m.countdown.Last()
		snap.Paused = m.countdown.Paused()
		snap.Display = r.Display
		snap.Remaining = r.Remaining
	}
	return snap
}
