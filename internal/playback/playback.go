// Package playback defines the audio controller boundary and the ordered
// command queue the alarm core talks to.
package playback

import (
	"context"
	"time"

	"github.com/ursineenterprises/koom/internal/catalog"
)

// Mode configures how audio behaves before the first play.
type Mode struct {
	PlaysInSilentMode bool `json:"playsInSilentMode"`
	StaysInBackground bool `json:"staysActiveInBackground"`
}

// PlayOptions control a single play call.
type PlayOptions struct {
	Loop        bool
	StartOffset time.Duration
	Volume      float64
}

// Handle identifies a loaded stream.
type Handle string

// Controller is an audio engine. Stop and Unload must tolerate handles that
// are already stopped or unloaded.
type Controller interface {
	SetMode(ctx context.Context, mode Mode) error
	Play(ctx context.Context, src catalog.Source, opts PlayOptions) (Handle, error)
	SetVolume(ctx context.Context, h Handle, volume float64) error
	Stop(ctx context.Context, h Handle) error
	Unload(ctx context.Context, h Handle) error
}

// Notifier is implemented by controllers that report when a non-looping
// stream reaches its natural end.
type Notifier interface {
	Finished(ctx context.Context) (<-chan Handle, error)
}

// ClampVolume limits v to [0,1].
func ClampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
