package alarm

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ursineenterprises/koom/internal/catalog"
	"github.com/ursineenterprises/koom/internal/db"
	"github.com/ursineenterprises/koom/internal/playback"
)

// recorder is a Dispatcher that keeps every command.
type recorder struct {
	mu   sync.Mutex
	cmds []playback.Command
}

func (r *recorder) Dispatch(cmd playback.Command) {
	r.mu.Lock()
	r.cmds = append(r.cmds, cmd)
	r.mu.Unlock()
}

func (r *recorder) commands() []playback.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]playback.Command(nil), r.cmds...)
}

func (r *recorder) count(slot playback.Slot, op playback.Op) int {
	n := 0
	for _, c := range r.commands() {
		if c.Slot == slot && c.Op == op {
			n++
		}
	}
	return n
}

func (r *recorder) last() playback.Command {
	cmds := r.commands()
	if len(cmds) == 0 {
		return playback.Command{}
	}
	return cmds[len(cmds)-1]
}

// failingStore wraps a store and fails writes on demand.
type failingStore struct {
	db.AlarmStore
	failSave bool
	saves    int
}

func (f *failingStore) SaveAlarm(ctx context.Context, rec db.AlarmRecord) error {
	f.saves++
	if f.failSave {
		return context.DeadlineExceeded
	}
	return f.AlarmStore.SaveAlarm(ctx, rec)
}

func newTestEnv(t *testing.T) (*Env, *recorder) {
	t.Helper()
	return newTestEnvWith(t, db.NewMemoryStore(), DefaultSettings())
}

func newTestEnvWith(t *testing.T, store db.AlarmStore, settings Settings) (*Env, *recorder) {
	t.Helper()
	rec := &recorder{}
	env := NewEnv(store, catalog.Default(t.TempDir()), rec, zerolog.Nop(), settings)
	return env, rec
}

type pendingTimer struct {
	due time.Time
	seq int
	t   Timer
}

// clock drives a Machine on virtual time, delivering timers in due order.
type clock struct {
	m       *Machine
	now     time.Time
	seq     int
	pending []pendingTimer
}

func newClock(m *Machine, start time.Time) *clock {
	return &clock{m: m, now: start}
}

func (c *clock) add(timers []Timer) {
	for _, t := range timers {
		c.seq++
		c.pending = append(c.pending, pendingTimer{due: c.now.Add(t.After), seq: c.seq, t: t})
	}
}

// advance moves time forward by d, firing every timer that comes due.
func (c *clock) advance(d time.Duration) {
	end := c.now.Add(d)
	for {
		sort.Slice(c.pending, func(i, j int) bool {
			if c.pending[i].due.Equal(c.pending[j].due) {
				return c.pending[i].seq < c.pending[j].seq
			}
			return c.pending[i].due.Before(c.pending[j].due)
		})
		if len(c.pending) == 0 || c.pending[0].due.After(end) {
			break
		}
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.now = next.due
		c.add(c.m.Fire(context.Background(), next.t, c.now))
	}
	c.now = end
}

var testMonday = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.Local)

func clockAt(h, m, s int) time.Time {
	return testMonday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

func boolPtr(b bool) *bool { return &b }
