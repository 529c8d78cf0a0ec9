// Package alarm holds the alarm lifecycle: saving and validating records,
// and the state machine that arms, sounds and silences a session.
package alarm

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ursineenterprises/koom/internal/catalog"
	"github.com/ursineenterprises/koom/internal/config"
	"github.com/ursineenterprises/koom/internal/countdown"
	"github.com/ursineenterprises/koom/internal/db"
	"github.com/ursineenterprises/koom/internal/killswitch"
	"github.com/ursineenterprises/koom/internal/playback"
)

// Settings are the lifecycle timings and switches.
type Settings struct {
	HoldDuration   time.Duration
	HoldSample     time.Duration
	SettleDelay    time.Duration
	PollInterval   time.Duration
	RearmRecurring bool
	KillOverride   bool

	PreviewDuration time.Duration
	PreviewFade     time.Duration
	PreviewOffset   time.Duration
	PreviewProgress time.Duration
}

// DefaultSettings returns the stock timings.
func DefaultSettings() Settings {
	return Settings{
		HoldDuration:    killswitch.HoldDuration,
		HoldSample:      killswitch.SampleInterval,
		SettleDelay:     2 * time.Second,
		PollInterval:    countdown.PollInterval,
		PreviewDuration: 10 * time.Second,
		PreviewFade:     time.Second,
		PreviewProgress: 100 * time.Millisecond,
	}
}

// SettingsFromConfig maps loaded configuration onto Settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		HoldDuration:    cfg.Alarm.HoldDuration,
		HoldSample:      cfg.Alarm.HoldSample,
		SettleDelay:     cfg.Alarm.SettleDelay,
		PollInterval:    cfg.Alarm.PollInterval,
		RearmRecurring:  cfg.Alarm.RearmRecurring,
		KillOverride:    cfg.KillOverride(),
		PreviewDuration: cfg.Preview.Duration,
		PreviewFade:     cfg.Preview.Fade,
		PreviewOffset:   cfg.Preview.Offset,
		PreviewProgress: cfg.Preview.Progress,
	}
}

// Env is the application context shared by the service, the machine and
// the UI. It is built once at startup.
type Env struct {
	Store    db.AlarmStore
	Catalog  *catalog.Catalog
	Player   playback.Dispatcher
	Log      zerolog.Logger
	Settings Settings
}

// NewEnv builds an Env and logs catalog collisions.
func NewEnv(store db.AlarmStore, cat *catalog.Catalog, player playback.Dispatcher, log zerolog.Logger, settings Settings) *Env {
	env := &Env{
		Store:    store,
		Catalog:  cat,
		Player:   player,
		Log:      log.With().Str("component", "alarm").Logger(),
		Settings: settings,
	}
	for _, c := range cat.Collisions() {
		env.Log.Warn().
			Str("trackId", c.TrackID).
			Str("shadowed", c.Shadowed).
			Str("winner", c.Winner).
			Msg("duplicate track id in catalog")
	}
	return env
}
