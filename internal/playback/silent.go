package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ursineenterprises/koom/internal/catalog"
)

// Silent is a Controller that plays nothing and logs every call. It is used
// when no audio daemon is configured.
type Silent struct {
	log zerolog.Logger

	mu     sync.Mutex
	next   int
	active map[Handle]catalog.Source
}

// NewSilent returns a silent controller.
func NewSilent(log zerolog.Logger) *Silent {
	return &Silent{
		log:    log.With().Str("driver", "silent").Logger(),
		active: make(map[Handle]catalog.Source),
	}
}

func (s *Silent) SetMode(_ context.Context, mode Mode) error {
	s.log.Debug().
		Bool("silentMode", mode.PlaysInSilentMode).
		Bool("background", mode.StaysInBackground).
		Msg("set mode")
	return nil
}

func (s *Silent) Play(_ context.Context, src catalog.Source, opts PlayOptions) (Handle, error) {
	s.mu.Lock()
	s.next++
	h := Handle(fmt.Sprintf("silent-%d", s.next))
	s.active[h] = src
	s.mu.Unlock()

	s.log.Info().
		Str("handle", string(h)).
		Str("file", src.FileName).
		Bool("loop", opts.Loop).
		Dur("offset", opts.StartOffset).
		Float64("volume", opts.Volume).
		Msg("play")
	return h, nil
}

func (s *Silent) SetVolume(_ context.Context, h Handle, volume float64) error {
	s.log.Debug().Str("handle", string(h)).Float64("volume", volume).Msg("set volume")
	return nil
}

func (s *Silent) Stop(_ context.Context, h Handle) error {
	s.log.Debug().Str("handle", string(h)).Msg("stop")
	return nil
}

func (s *Silent) Unload(_ context.Context, h Handle) error {
	s.mu.Lock()
	delete(s.active, h)
	s.mu.Unlock()
	s.log.Debug().Str("handle", string(h)).Msg("unload")
	return nil
}

// Active returns the number of loaded handles.
func (s *Silent) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

var _ Controller = (*Silent)(nil)
