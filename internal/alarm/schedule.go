package alarm

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ursineenterprises/koom/internal/db"
)

var weekdayByLabel = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

// NextOccurrence returns the first wall-clock instant after now that matches
// the record's day and time. It is informational only and never arms
// anything; arming always counts down from the moment the user arms.
func NextOccurrence(rec db.AlarmRecord, now time.Time) (time.Time, error) {
	clock, err := rec.Clock()
	if err != nil {
		return time.Time{}, err
	}
	wd, ok := weekdayByLabel[rec.Day]
	if !ok {
		return time.Time{}, fmt.Errorf("alarm %s: unknown day %q", rec.ID, rec.Day)
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("%d %d * * %d", clock.Minute, clock.Hour, int(wd)))
	if err != nil {
		return time.Time{}, fmt.Errorf("alarm %s: schedule: %w", rec.ID, err)
	}
	return sched.Next(now), nil
}

// Upcoming returns the enabled alarm whose next occurrence is soonest.
// ok is false when no enabled alarm has a valid schedule.
func Upcoming(alarms []db.AlarmRecord, now time.Time) (rec db.AlarmRecord, at time.Time, ok bool) {
	for _, a := range alarms {
		if !a.Enabled {
			continue
		}
		next, err := NextOccurrence(a, now)
		if err != nil {
			continue
		}
		if !ok || next.Before(at) {
			rec, at, ok = a, next, true
		}
	}
	return rec, at, ok
}
