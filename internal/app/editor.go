package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/ursineenterprises/koom/internal/alarm"
	"github.com/ursineenterprises/koom/internal/db"
	"github.com/ursineenterprises/koom/internal/ui"
)

// editorField is the focused row of the editor.
type editorField int

const (
	fieldTime editorField = iota
	fieldDay
	fieldTrack
	fieldRecurring
	numEditorFields
)

func (f editorField) label() string {
	switch f {
	case fieldTime:
		return "Time"
	case fieldDay:
		return "Day"
	case fieldTrack:
		return "Sound"
	case fieldRecurring:
		return "Repeat"
	}
	return ""
}

// editor holds the form for creating or changing one alarm.
type editor struct {
	id        string
	enabled   bool
	timeInput textinput.Model
	day       int
	track     int
	tracks    []string
	recurring bool
	focus     editorField
	problems  []alarm.FieldError
}

func newEditor(tracks []string) editor {
	ti := textinput.New()
	ti.Placeholder = "07:30"
	ti.CharLimit = 5
	ti.Width = 6
	ti.Prompt = ""
	ti.Focus()
	return editor{
		enabled:   true,
		timeInput: ti,
		tracks:    tracks,
	}
}

// editorFor fills the form from an existing record.
func editorFor(rec db.AlarmRecord, tracks []string) editor {
	e := newEditor(tracks)
	e.id = rec.ID
	e.enabled = rec.Enabled
	e.recurring = rec.Recurring
	e.timeInput.SetValue(rec.Time)
	for i, d := range db.Weekdays {
		if d == rec.Day {
			e.day = i
		}
	}
	if primary := rec.PrimaryTrack(); primary != "" {
		for i, t := range tracks {
			if t == primary {
				e.track = i
			}
		}
	}
	return e
}

func (e editor) trackID() string {
	if len(e.tracks) == 0 {
		return ""
	}
	return e.tracks[e.track]
}

func (e editor) request() alarm.SaveRequest {
	enabled := e.enabled
	req := alarm.SaveRequest{
		ID:        e.id,
		Time:      strings.TrimSpace(e.timeInput.Value()),
		Day:       db.Weekdays[e.day],
		Recurring: e.recurring,
		Enabled:   &enabled,
	}
	if id := e.trackID(); id != "" {
		req.TrackIDs = []string{id}
	}
	return req
}

func (e *editor) setFocus(f editorField) {
	e.focus = (f + numEditorFields) % numEditorFields
	if e.focus == fieldTime {
		e.timeInput.Focus()
	} else {
		e.timeInput.Blur()
	}
}

// cycle moves the focused choice by delta. It reports whether the focused
// field is a choice at all.
func (e *editor) cycle(delta int) bool {
	switch e.focus {
	case fieldDay:
		e.day = wrapIndex(e.day+delta, len(db.Weekdays))
	case fieldTrack:
		e.track = wrapIndex(e.track+delta, len(e.tracks))
	case fieldRecurring:
		e.recurring = !e.recurring
	default:
		return false
	}
	return true
}

func (e editor) problemFor(field string) string {
	var parts []string
	for _, p := range e.problems {
		if p.Field == field {
			parts = append(parts, p.Problem)
		}
	}
	return strings.Join(parts, "; ")
}

func (e editor) view(preview alarm.PreviewSnapshot, bar string) string {
	var lines []string
	title := "NEW ALARM"
	if e.id != "" {
		title = "EDIT ALARM"
	}
	lines = append(lines, ui.PanelTitleStyle.Render(title), "")

	for f := fieldTime; f < numEditorFields; f++ {
		label := ui.FieldLabelStyle.Render(f.label())
		if f == e.focus {
			label = ui.FieldActiveStyle.Render(f.label())
		}

		var value, problem string
		switch f {
		case fieldTime:
			value = e.timeInput.View()
			problem = e.problemFor("time")
		case fieldDay:
			value = "‹ " + db.Weekdays[e.day] + " ›"
			problem = e.problemFor("day")
		case fieldTrack:
			value = "‹ " + e.trackID() + " ›"
			problem = e.problemFor("trackIds")
		case fieldRecurring:
			value = "[ ]"
			if e.recurring {
				value = "[x]"
			}
		}
		line := label + " " + value
		if problem != "" {
			line += "  " + ui.ErrorTextStyle.Render(problem)
		}
		lines = append(lines, line)
	}

	if preview.Active {
		lines = append(lines, "", ui.DimStyle.Render(fmt.Sprintf("Previewing %s", preview.TrackID)), bar)
	}
	return strings.Join(lines, "\n")
}

func wrapIndex(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}
