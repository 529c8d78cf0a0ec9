package alarm

import (
	"fmt"
	"time"

	"github.com/ursineenterprises/koom/internal/catalog"
	"github.com/ursineenterprises/koom/internal/playback"
)

// fadeSteps is the number of volume steps in a preview fade-out.
const fadeSteps = 10

type previewState struct {
	active    bool
	trackID   string
	startedAt time.Time
	progress  float64
	fadeStep  int
	gen       uint64
}

// PreviewSnapshot is the preview part of a Snapshot.
type PreviewSnapshot struct {
	Active   bool
	TrackID  string
	Progress float64
	Fading   bool
}

func (m *Machine) previewSnapshot() PreviewSnapshot {
	p := m.preview
	return PreviewSnapshot{
		Active:   p.active,
		TrackID:  p.trackID,
		Progress: p.progress,
		Fading:   p.active && p.fadeStep > 0,
	}
}

// StartPreview plays a short, non-looping clip of trackID. Any preview in
// progress is stopped first, along with both of its timers.
func (m *Machine) StartPreview(trackID string, now time.Time) ([]Timer, error) {
	src, ok := m.env.Catalog.ResolveSource(trackID)
	if !ok {
		return nil, &ValidationError{Fields: []FieldError{{
			Field:   "trackIds",
			Problem: fmt.Sprintf("track %q is not in the catalog", trackID),
		}}}
	}

	m.stopPreview()

	set := m.env.Settings
	m.nextGen++
	m.preview = previewState{
		active:    true,
		trackID:   trackID,
		startedAt: now,
		gen:       m.nextGen,
	}
	m.env.Player.Dispatch(playback.Command{
		Slot:   playback.SlotPreview,
		Op:     playback.OpPlay,
		Source: src,
		Options: playback.PlayOptions{
			StartOffset: catalog.ClampOffset(src, set.PreviewOffset, set.PreviewDuration),
			Volume:      1,
		},
		Gen: m.preview.gen,
	})

	return []Timer{
		m.schedule(TimerPreviewProgress, set.PreviewProgress),
		m.schedule(TimerPreviewDone, set.PreviewDuration),
	}, nil
}

// StopPreview stops a preview in progress. It is a no-op otherwise.
func (m *Machine) StopPreview() {
	m.stopPreview()
}

// PreviewProgress returns the preview progress in [0,1].
func (m *Machine) PreviewProgress() float64 {
	return m.preview.progress
}

func (m *Machine) stopPreview() {
	m.cancelTimer(TimerPreviewProgress, TimerPreviewDone, TimerPreviewFade)
	if !m.preview.active {
		return
	}
	m.env.Player.Dispatch(playback.Command{
		Slot: playback.SlotPreview,
		Op:   playback.OpStop,
		Gen:  m.preview.gen,
	})
	m.preview = previewState{}
}

func (m *Machine) firePreview(kind TimerKind, now time.Time) []Timer {
	if !m.preview.active {
		return nil
	}
	set := m.env.Settings

	switch kind {
	case TimerPreviewProgress:
		total := set.PreviewDuration + set.PreviewFade
		p := float64(now.Sub(m.preview.startedAt)) / float64(total)
		if p > 1 {
			p = 1
		}
		m.preview.progress = p
		return []Timer{m.schedule(TimerPreviewProgress, set.PreviewProgress)}

	case TimerPreviewDone:
		if set.PreviewFade <= 0 {
			m.stopPreview()
			return nil
		}
		m.preview.fadeStep = 0
		return []Timer{m.schedule(TimerPreviewFade, set.PreviewFade/fadeSteps)}

	case TimerPreviewFade:
		m.preview.fadeStep++
		if m.preview.fadeStep >= fadeSteps {
			m.stopPreview()
			return nil
		}
		m.env.Player.Dispatch(playback.Command{
			Slot:   playback.SlotPreview,
			Op:     playback.OpSetVolume,
			Volume: 1 - float64(m.preview.fadeStep)/fadeSteps,
			Gen:    m.preview.gen,
		})
		return []Timer{m.schedule(TimerPreviewFade, set.PreviewFade/fadeSteps)}
	}
	return nil
}

func (m *Machine) handlePreviewResult(res playback.Result) []Timer {
	if !m.preview.active || res.Command.Gen != m.preview.gen {
		return nil
	}
	switch {
	case res.Command.Op == playback.OpFinished:
		// The clip ended before the timers did.
		m.stopPreview()
	case res.Err != nil && res.Command.Op == playback.OpPlay:
		m.env.Log.Warn().
			Err(&PlaybackError{Op: "preview", Err: res.Err}).
			Str("track", m.preview.trackID).
			Msg("preview failed")
		m.stopPreview()
	case res.Err != nil:
		m.env.Log.Warn().Err(&PlaybackError{Op: res.Command.Op.String(), Err: res.Err}).Msg("preview command failed")
	}
	return nil
}
