package alarm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the alarm record does not exist.
	ErrNotFound = errors.New("alarm not found")

	// ErrDisabled means the record exists but is not enabled.
	ErrDisabled = errors.New("alarm is disabled")

	// ErrSessionActive means a session is already armed or sounding.
	ErrSessionActive = errors.New("an alarm session is already active")

	// ErrNoSession means the operation needs a live session.
	ErrNoSession = errors.New("no active alarm session")

	// ErrKillSwitchUnavailable means the kill switch cannot be operated in
	// the current state.
	ErrKillSwitchUnavailable = errors.New("kill switch is not available")
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Problem string
}

func (f FieldError) String() string {
	return f.Field + " " + f.Problem
}

// ValidationError is returned when an alarm cannot be saved or armed.
// Nothing is persisted when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "invalid alarm: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the problems.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// PlaybackError wraps an audio engine failure.
type PlaybackError struct {
	Op  string
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.Op, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
