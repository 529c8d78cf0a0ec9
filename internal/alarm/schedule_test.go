package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ursineenterprises/koom/internal/db"
)

// 2026-10-19 is a Monday.
var scheduleNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name string
		day  string
		time string
		want time.Time
	}{
		{"later today", "Monday", "09:15", time.Date(2026, 10, 19, 9, 15, 0, 0, time.UTC)},
		{"earlier today rolls a week", "Monday", "07:00", time.Date(2026, 10, 26, 7, 0, 0, 0, time.UTC)},
		{"exactly now rolls a week", "Monday", "08:00", time.Date(2026, 10, 26, 8, 0, 0, 0, time.UTC)},
		{"later this week", "Thursday", "06:30", time.Date(2026, 10, 22, 6, 30, 0, 0, time.UTC)},
		{"sunday", "Sunday", "23:59", time.Date(2026, 10, 25, 23, 59, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(db.AlarmRecord{ID: "a", Day: tt.day, Time: tt.time}, scheduleNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextOccurrenceRejectsBadRecords(t *testing.T) {
	_, err := NextOccurrence(db.AlarmRecord{ID: "a", Day: "Someday", Time: "07:00"}, scheduleNow)
	assert.ErrorContains(t, err, "unknown day")

	_, err = NextOccurrence(db.AlarmRecord{ID: "a", Day: "Monday", Time: "7"}, scheduleNow)
	assert.Error(t, err)
}

func TestUpcomingSkipsDisabledAndInvalid(t *testing.T) {
	alarms := []db.AlarmRecord{
		{ID: "off", Day: "Monday", Time: "08:30", Enabled: false},
		{ID: "bad", Day: "Monday", Time: "nope", Enabled: true},
		{ID: "fri", Day: "Friday", Time: "07:00", Enabled: true},
		{ID: "tue", Day: "Tuesday", Time: "07:00", Enabled: true},
	}

	rec, at, ok := Upcoming(alarms, scheduleNow)
	require.True(t, ok)
	assert.Equal(t, "tue", rec.ID)
	assert.Equal(t, time.Date(2026, 10, 20, 7, 0, 0, 0, time.UTC), at)

	_, _, ok = Upcoming(alarms[:2], scheduleNow)
	assert.False(t, ok)
}
