// Package config loads koom's layered configuration: defaults, an optional
// YAML file, then KOOM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Variant selects a build flavor.
type Variant string

const (
	Production Variant = "production"
	Dev        Variant = "dev"
	Staging    Variant = "staging"
)

// AppName returns the display name for the variant.
func (v Variant) AppName() string {
	switch v {
	case Dev:
		return "KooM! (Dev)"
	case Staging:
		return "KooM! (Staging)"
	default:
		return "KooM!"
	}
}

// BundleID returns the application identifier for the variant.
func (v Variant) BundleID() string {
	switch v {
	case Dev:
		return "com.ursineenterprises.nochoicealarm.dev"
	case Staging:
		return "com.ursineenterprises.nochoicealarm.staging"
	default:
		return "com.ursineenterprises.nochoicealarm"
	}
}

// Config is the full application configuration.
type Config struct {
	Variant  Variant        `mapstructure:"variant"`
	LogLevel string         `mapstructure:"log_level"`
	LogFile  string         `mapstructure:"log_file"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Assets   AssetsConfig   `mapstructure:"assets"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Alarm    AlarmConfig    `mapstructure:"alarm"`
	Preview  PreviewConfig  `mapstructure:"preview"`
}

// StorageConfig locates the alarm database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// AssetsConfig locates the bundled audio files.
type AssetsConfig struct {
	Dir string `mapstructure:"dir"`
}

// PlaybackConfig selects and configures the audio driver.
type PlaybackConfig struct {
	Driver     string `mapstructure:"driver"`
	Socket     string `mapstructure:"socket"`
	SilentMode bool   `mapstructure:"plays_in_silent_mode"`
	Background bool   `mapstructure:"stays_active_in_background"`
}

// AlarmConfig tunes the alarm lifecycle.
type AlarmConfig struct {
	HoldDuration        time.Duration `mapstructure:"hold_duration"`
	HoldSample          time.Duration `mapstructure:"hold_sample"`
	SettleDelay         time.Duration `mapstructure:"settle_delay"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	RearmRecurring      bool          `mapstructure:"rearm_recurring"`
	StagingKillOverride bool          `mapstructure:"staging_kill_override"`
}

// PreviewConfig tunes track previews in the editor.
type PreviewConfig struct {
	Duration time.Duration `mapstructure:"duration"`
	Fade     time.Duration `mapstructure:"fade"`
	Offset   time.Duration `mapstructure:"offset"`
	Progress time.Duration `mapstructure:"progress"`
}

const (
	DriverDaemon = "daemon"
	DriverSilent = "silent"
)

// DataDir returns the directory koom keeps its files in.
func DataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "koom")
}

func setDefaults(v *viper.Viper) {
	dataDir := DataDir()

	v.SetDefault("variant", string(Production))
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", filepath.Join(dataDir, "koom.log"))

	v.SetDefault("storage.path", filepath.Join(dataDir, "koom.sqlite"))
	v.SetDefault("assets.dir", filepath.Join(dataDir, "audio"))

	v.SetDefault("playback.driver", DriverSilent)
	v.SetDefault("playback.socket", filepath.Join(dataDir, "koom-audio.sock"))
	v.SetDefault("playback.plays_in_silent_mode", true)
	v.SetDefault("playback.stays_active_in_background", true)

	v.SetDefault("alarm.hold_duration", 8*time.Second)
	v.SetDefault("alarm.hold_sample", 50*time.Millisecond)
	v.SetDefault("alarm.settle_delay", 2*time.Second)
	v.SetDefault("alarm.poll_interval", time.Second)
	v.SetDefault("alarm.rearm_recurring", false)
	v.SetDefault("alarm.staging_kill_override", false)

	v.SetDefault("preview.duration", 10*time.Second)
	v.SetDefault("preview.fade", time.Second)
	v.SetDefault("preview.offset", time.Duration(0))
	v.SetDefault("preview.progress", 100*time.Millisecond)
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration. When path is empty, config.yaml is searched for
// in the data dir and the working directory; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		// An explicit file must exist.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DataDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("KOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the app cannot run with.
func (c *Config) Validate() error {
	switch c.Variant {
	case Production, Dev, Staging:
	default:
		return fmt.Errorf("variant must be production, dev or staging, got %q", c.Variant)
	}

	switch c.Playback.Driver {
	case DriverDaemon:
		if c.Playback.Socket == "" {
			return fmt.Errorf("playback.socket is required for the daemon driver")
		}
	case DriverSilent:
	default:
		return fmt.Errorf("playback.driver must be daemon or silent, got %q", c.Playback.Driver)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path cannot be empty")
	}
	if c.Alarm.HoldDuration <= 0 {
		return fmt.Errorf("alarm.hold_duration must be positive")
	}
	if c.Alarm.HoldSample <= 0 || c.Alarm.HoldSample >= c.Alarm.HoldDuration {
		return fmt.Errorf("alarm.hold_sample must be positive and shorter than the hold")
	}
	if c.Alarm.SettleDelay < 0 {
		return fmt.Errorf("alarm.settle_delay cannot be negative")
	}
	if c.Alarm.PollInterval <= 0 {
		return fmt.Errorf("alarm.poll_interval must be positive")
	}
	if c.Preview.Duration <= 0 {
		return fmt.Errorf("preview.duration must be positive")
	}
	if c.Preview.Fade < 0 || c.Preview.Fade > c.Preview.Duration {
		return fmt.Errorf("preview.fade must be between 0 and preview.duration")
	}
	if c.Preview.Offset < 0 {
		return fmt.Errorf("preview.offset cannot be negative")
	}
	if c.Preview.Progress <= 0 {
		return fmt.Errorf("preview.progress must be positive")
	}
	if c.Alarm.StagingKillOverride && c.Variant != Staging {
		return fmt.Errorf("alarm.staging_kill_override is only allowed in the staging variant")
	}
	return nil
}

// KillOverride reports whether the kill switch is operable before the alarm
// sounds.
func (c *Config) KillOverride() bool {
	return c.Variant == Staging && c.Alarm.StagingKillOverride
}
