// Package main provides the koom binary: the alarm TUI plus management
// subcommands and an MCP tool server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ursineenterprises/koom/internal/alarm"
	"github.com/ursineenterprises/koom/internal/app"
	"github.com/ursineenterprises/koom/internal/catalog"
	"github.com/ursineenterprises/koom/internal/config"
	"github.com/ursineenterprises/koom/internal/daemon"
	"github.com/ursineenterprises/koom/internal/db"
	"github.com/ursineenterprises/koom/internal/logging"
	"github.com/ursineenterprises/koom/internal/playback"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "koom"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runtimeDeps is everything a command needs, built from the config.
type runtimeDeps struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *db.Store
	env     *alarm.Env
	queue   *playback.Queue
	closers []io.Closer
}

func (d *runtimeDeps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i].Close()
	}
}

// setup loads config and opens the store, logger and playback driver. When
// toFile is set, logs go to the configured log file so stdout stays clean
// for the TUI or the MCP protocol.
func setup(configPath string, toFile bool) (*runtimeDeps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	d := &runtimeDeps{cfg: cfg}
	if toFile {
		log, closer, err := logging.Open(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		d.log = log
		d.closers = append(d.closers, closer)
	} else {
		d.log = logging.Console(cfg.LogLevel, os.Stderr)
	}
	d.log = d.log.With().Str("variant", string(cfg.Variant)).Logger()

	store, err := db.Open(cfg.Storage.Path)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	d.store = store
	d.closers = append(d.closers, store)

	var ctrl playback.Controller
	switch cfg.Playback.Driver {
	case config.DriverDaemon:
		player := daemon.NewPlayer(cfg.Playback.Socket)
		d.closers = append(d.closers, player)
		ctrl = player
	default:
		ctrl = playback.NewSilent(logging.Component(d.log, "silent"))
	}
	mode := playback.Mode{
		PlaysInSilentMode: cfg.Playback.SilentMode,
		StaysInBackground: cfg.Playback.Background,
	}
	d.queue = playback.NewQueue(ctrl, mode, d.log)

	cat := catalog.Default(cfg.Assets.Dir)
	d.env = alarm.NewEnv(store, cat, d.queue, d.log, alarm.SettingsFromConfig(cfg))
	return d, nil
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "An alarm clock you cannot snooze",
		Long: `koom is an alarm clock for the terminal. Once an alarm sounds the only
way out is to hold the kill switch until it completes.

Run without a subcommand to open the alarm screen.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(configPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(
		listCmd(&configPath),
		addCmd(&configPath),
		deleteCmd(&configPath),
		tracksCmd(&configPath),
		exportCmd(&configPath),
		importCmd(&configPath),
		mcpCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func runTUI(configPath string) error {
	d, err := setup(configPath, true)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.queue.Run(ctx)
	}()

	d.log.Info().Str("version", Version).Msg("koom started")
	model := app.New(d.env, d.queue.Results(), d.cfg.Variant.AppName())
	_, runErr := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()

	// Run releases whatever the queue still holds on the way out.
	cancel()
	<-done
	d.log.Info().Msg("koom stopped")

	if runErr != nil {
		return fmt.Errorf("run tui: %w", runErr)
	}
	return nil
}
