package daemon

import (
	"context"
	"fmt"
	"sync"

	"github.com/ursineenterprises/koom/internal/catalog"
	"github.com/ursineenterprises/koom/internal/playback"
)

// Player is a playback.Controller backed by the audio daemon. It connects
// lazily and redials once when a command fails on a dead connection.
type Player struct {
	socketPath string

	mu     sync.Mutex
	client *Client
}

// NewPlayer returns a player for the daemon at socketPath.
func NewPlayer(socketPath string) *Player {
	return &Player{socketPath: socketPath}
}

// Close drops the daemon connection.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func (p *Player) send(ctx context.Context, cmd Command) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if p.client == nil {
			c, err := Connect(ctx, p.socketPath)
			if err != nil {
				return Response{}, err
			}
			p.client = c
		}
		resp, err := p.client.SendCommand(ctx, cmd)
		if err == nil {
			if !resp.OK {
				return resp, fmt.Errorf("daemon %s: %s", cmd.Cmd, resp.Error)
			}
			return resp, nil
		}
		lastErr = err
		p.client.Close()
		p.client = nil
		if ctx.Err() != nil {
			break
		}
	}
	return Response{}, lastErr
}

func (p *Player) SetMode(ctx context.Context, mode playback.Mode) error {
	_, err := p.send(ctx, Command{
		Cmd:        CmdSetMode,
		SilentMode: BoolPtr(mode.PlaysInSilentMode),
		Background: BoolPtr(mode.StaysInBackground),
	})
	return err
}

func (p *Player) Play(ctx context.Context, src catalog.Source, opts playback.PlayOptions) (playback.Handle, error) {
	cmd := Command{
		Cmd:    CmdPlay,
		Path:   src.Path,
		Loop:   BoolPtr(opts.Loop),
		Volume: Float64Ptr(opts.Volume),
	}
	if opts.StartOffset > 0 {
		cmd.OffsetMs = Int64Ptr(opts.StartOffset.Milliseconds())
	}
	resp, err := p.send(ctx, cmd)
	if err != nil {
		return "", err
	}
	if resp.Handle == "" {
		return "", fmt.Errorf("daemon play: no handle returned")
	}
	return playback.Handle(resp.Handle), nil
}

func (p *Player) SetVolume(ctx context.Context, h playback.Handle, volume float64) error {
	_, err := p.send(ctx, Command{Cmd: CmdSetVolume, Handle: string(h), Volume: Float64Ptr(volume)})
	return err
}

func (p *Player) Stop(ctx context.Context, h playback.Handle) error {
	_, err := p.send(ctx, Command{Cmd: CmdStop, Handle: string(h)})
	return err
}

func (p *Player) Unload(ctx context.Context, h playback.Handle) error {
	_, err := p.send(ctx, Command{Cmd: CmdUnload, Handle: string(h)})
	return err
}

// Status returns the daemon status and the handles it is playing.
func (p *Player) Status(ctx context.Context) (Response, error) {
	return p.send(ctx, Command{Cmd: CmdStatus})
}

// Finished subscribes to completion events on a dedicated connection. The
// channel closes when ctx ends or the connection drops.
func (p *Player) Finished(ctx context.Context) (<-chan playback.Handle, error) {
	c, err := Connect(ctx, p.socketPath)
	if err != nil {
		return nil, err
	}
	if _, err := c.Do(ctx, Command{Cmd: CmdSubscribe, Events: []string{EventFinished}}); err != nil {
		c.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan playback.Handle, 8)
	go func() {
		defer close(out)
		defer c.Close()
		for {
			ev, err := c.ReadEvent(ctx)
			if err != nil {
				return
			}
			if ev.Event != EventFinished || ev.Handle == "" {
				continue
			}
			select {
			case out <- playback.Handle(ev.Handle):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var (
	_ playback.Controller = (*Player)(nil)
	_ playback.Notifier   = (*Player)(nil)
)
