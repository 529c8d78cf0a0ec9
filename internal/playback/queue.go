package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ursineenterprises/koom/internal/catalog"
)

// Slot is an independent playback lane. Each slot holds at most one handle.
type Slot int

const (
	SlotAlarm Slot = iota
	SlotPreview
	numSlots
)

func (s Slot) String() string {
	switch s {
	case SlotAlarm:
		return "alarm"
	case SlotPreview:
		return "preview"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Op is a queued operation.
type Op int

const (
	// OpPlay stops and unloads the slot's current handle, then plays.
	OpPlay Op = iota
	// OpSetVolume changes the slot's volume.
	OpSetVolume
	// OpStop stops and unloads the slot's handle.
	OpStop
	// OpFinished is never queued; it is reported when a stream ends.
	OpFinished
)

func (o Op) String() string {
	switch o {
	case OpPlay:
		return "play"
	case OpSetVolume:
		return "setVolume"
	case OpStop:
		return "stop"
	case OpFinished:
		return "finished"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Command is one queued playback instruction. Gen is an opaque tag echoed
// back in the Result so the sender can discard stale outcomes.
type Command struct {
	Slot    Slot
	Op      Op
	Source  catalog.Source
	Options PlayOptions
	Volume  float64
	Gen     uint64
}

// Result reports the outcome of a command.
type Result struct {
	Command Command
	Err     error
}

// Dispatcher accepts playback commands without blocking.
type Dispatcher interface {
	Dispatch(cmd Command)
}

type slotState struct {
	handle Handle
	gen    uint64
}

// Queue drains commands in order on a single worker.
type Queue struct {
	ctrl Controller
	mode Mode
	log  zerolog.Logger

	mu      sync.Mutex
	pending []Command
	wake    chan struct{}
	results chan Result

	hmu     sync.Mutex
	slots   [numSlots]slotState
	modeSet bool
}

// NewQueue returns a queue in front of ctrl. SetMode(mode) is issued once,
// before the first play.
func NewQueue(ctrl Controller, mode Mode, log zerolog.Logger) *Queue {
	return &Queue{
		ctrl:    ctrl,
		mode:    mode,
		log:     log.With().Str("component", "playback").Logger(),
		wake:    make(chan struct{}, 1),
		results: make(chan Result, 64),
	}
}

// Dispatch appends cmd to the queue. It never blocks.
func (q *Queue) Dispatch(cmd Command) {
	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Results delivers the outcome of every executed command.
func (q *Queue) Results() <-chan Result {
	return q.results
}

// Run executes queued commands until ctx is cancelled, then stops and
// unloads anything still held.
func (q *Queue) Run(ctx context.Context) {
	if n, ok := q.ctrl.(Notifier); ok {
		if finished, err := n.Finished(ctx); err != nil {
			q.log.Warn().Err(err).Msg("completion events unavailable")
		} else {
			go q.watchFinished(ctx, finished)
		}
	}

	defer q.releaseAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}

		for {
			cmd, ok := q.next()
			if !ok {
				break
			}
			res := q.Exec(ctx, cmd)
			select {
			case q.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (q *Queue) next() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Command{}, false
	}
	cmd := q.pending[0]
	q.pending = q.pending[1:]
	return cmd, true
}

// Exec runs one command synchronously. Run calls it for each queued
// command; it is exported for callers that have no worker.
func (q *Queue) Exec(ctx context.Context, cmd Command) Result {
	var err error
	switch cmd.Op {
	case OpPlay:
		err = q.play(ctx, cmd)
	case OpSetVolume:
		err = q.setVolume(ctx, cmd)
	case OpStop:
		err = q.release(ctx, cmd.Slot)
	default:
		err = fmt.Errorf("unexpected op %s", cmd.Op)
	}
	if err != nil {
		q.log.Error().Err(err).
			Str("slot", cmd.Slot.String()).
			Str("op", cmd.Op.String()).
			Msg("playback command failed")
	}
	return Result{Command: cmd, Err: err}
}

func (q *Queue) play(ctx context.Context, cmd Command) error {
	if err := q.ensureMode(ctx); err != nil {
		return err
	}
	// A slot never holds two streams.
	if err := q.release(ctx, cmd.Slot); err != nil {
		q.log.Warn().Err(err).Str("slot", cmd.Slot.String()).Msg("release before play")
	}

	opts := cmd.Options
	opts.Volume = ClampVolume(opts.Volume)
	h, err := q.ctrl.Play(ctx, cmd.Source, opts)
	if err != nil {
		return fmt.Errorf("play %s: %w", cmd.Source.FileName, err)
	}

	q.hmu.Lock()
	q.slots[cmd.Slot] = slotState{handle: h, gen: cmd.Gen}
	q.hmu.Unlock()

	q.log.Debug().
		Str("slot", cmd.Slot.String()).
		Str("handle", string(h)).
		Str("file", cmd.Source.FileName).
		Bool("loop", opts.Loop).
		Msg("playing")
	return nil
}

func (q *Queue) ensureMode(ctx context.Context) error {
	q.hmu.Lock()
	set := q.modeSet
	q.hmu.Unlock()
	if set {
		return nil
	}
	if err := q.ctrl.SetMode(ctx, q.mode); err != nil {
		return fmt.Errorf("set audio mode: %w", err)
	}
	q.hmu.Lock()
	q.modeSet = true
	q.hmu.Unlock()
	return nil
}

func (q *Queue) setVolume(ctx context.Context, cmd Command) error {
	h := q.Handle(cmd.Slot)
	if h == "" {
		return nil
	}
	if err := q.ctrl.SetVolume(ctx, h, ClampVolume(cmd.Volume)); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

// release stops and unloads the slot's handle. Both calls are always made.
func (q *Queue) release(ctx context.Context, slot Slot) error {
	q.hmu.Lock()
	h := q.slots[slot].handle
	q.slots[slot] = slotState{}
	q.hmu.Unlock()

	if h == "" {
		return nil
	}
	stopErr := q.ctrl.Stop(ctx, h)
	unloadErr := q.ctrl.Unload(ctx, h)
	if err := errors.Join(stopErr, unloadErr); err != nil {
		return fmt.Errorf("release %s: %w", slot, err)
	}
	return nil
}

func (q *Queue) releaseAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for s := Slot(0); s < numSlots; s++ {
		if err := q.release(ctx, s); err != nil {
			q.log.Warn().Err(err).Msg("release on shutdown")
		}
	}
}

// Handle returns the handle currently held by slot, or "".
func (q *Queue) Handle(slot Slot) Handle {
	q.hmu.Lock()
	defer q.hmu.Unlock()
	return q.slots[slot].handle
}

func (q *Queue) watchFinished(ctx context.Context, finished <-chan Handle) {
	for {
		select {
		case <-ctx.Done():
			return
		case h, ok := <-finished:
			if !ok {
				return
			}
			q.hmu.Lock()
			var res *Result
			for s := Slot(0); s < numSlots; s++ {
				if q.slots[s].handle == h {
					res = &Result{Command: Command{Slot: s, Op: OpFinished, Gen: q.slots[s].gen}}
					break
				}
			}
			q.hmu.Unlock()
			if res == nil {
				continue
			}
			select {
			case q.results <- *res:
			case <-ctx.Done():
				return
			}
		}
	}
}

var _ Dispatcher = (*Queue)(nil)
