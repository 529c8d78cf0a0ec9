// Package db provides persistence for alarm records.
package db

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyPrefix namespaces alarm records in the key-value table.
const KeyPrefix = "alarm_"

// Weekdays lists the day labels an alarm may carry, Monday first.
var Weekdays = []string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
	"Sunday",
}

// AlarmRecord is a persisted alarm definition.
type AlarmRecord struct {
	ID        string   `json:"id" yaml:"id"`
	Time      string   `json:"time" yaml:"time"`
	Day       string   `json:"day" yaml:"day"`
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	TrackIDs  []string `json:"trackIds" yaml:"trackIds"`
	Recurring bool     `json:"recurring" yaml:"recurring"`
}

// Key returns the storage key for an alarm id.
func Key(id string) string {
	return KeyPrefix + id
}

// Clock parses the record's time of day.
func (r AlarmRecord) Clock() (Clock, error) {
	return ParseClock(r.Time)
}

// PrimaryTrack returns the first track id, or "" when none is set.
func (r AlarmRecord) PrimaryTrack() string {
	if len(r.TrackIDs) == 0 {
		return ""
	}
	return r.TrackIDs[0]
}

// Clock is a wall-clock time of day with no zone attached.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24-hour). The hour is one or two digits, the
// minute exactly two; signs and spaces inside the value are rejected.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("parse clock %q: missing ':'", s)
	}
	if !digits(hh, 1, 2) {
		return Clock{}, fmt.Errorf("parse clock %q: bad hour", s)
	}
	if !digits(mm, 2, 2) {
		return Clock{}, fmt.Errorf("parse clock %q: bad minute", s)
	}
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h > 23 {
		return Clock{}, fmt.Errorf("parse clock %q: bad hour", s)
	}
	if m > 59 {
		return Clock{}, fmt.Errorf("parse clock %q: bad minute", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// digits reports whether s is lo to hi ASCII digits long.
func digits(s string, lo, hi int) bool {
	if len(s) < lo || len(s) > hi {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
