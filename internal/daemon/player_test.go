package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ursineenterprises/koom/internal/catalog"
	"github.com/ursineenterprises/koom/internal/playback"
)

// scriptedDaemon answers every command on every connection through reply
// and records what it received.
type scriptedDaemon struct {
	mu       sync.Mutex
	received []Command
	reply    func(Command) Response
}

func (d *scriptedDaemon) commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.received...)
}

func startScriptedDaemon(t *testing.T, d *scriptedDaemon) string {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "audio.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				sc := bufio.NewScanner(conn)
				for sc.Scan() {
					var cmd Command
					if err := json.Unmarshal(sc.Bytes(), &cmd); err != nil {
						return
					}
					d.mu.Lock()
					d.received = append(d.received, cmd)
					d.mu.Unlock()

					data, _ := json.Marshal(d.reply(cmd))
					if _, err := conn.Write(append(data, '\n')); err != nil {
						return
					}
					if cmd.Cmd == CmdSubscribe {
						ev, _ := json.Marshal(Event{Event: EventFinished, Handle: "h1"})
						conn.Write(append(ev, '\n'))
					}
				}
			}(conn)
		}
	}()
	return sockPath
}

func TestPlayerCommands(t *testing.T) {
	n := 0
	d := &scriptedDaemon{reply: func(cmd Command) Response {
		if cmd.Cmd == CmdPlay {
			n++
			return Response{OK: true, Handle: fmt.Sprintf("h%d", n)}
		}
		return Response{OK: true}
	}}
	player := NewPlayer(startScriptedDaemon(t, d))
	defer player.Close()

	ctx := context.Background()
	if err := player.SetMode(ctx, playback.Mode{PlaysInSilentMode: true, StaysInBackground: true}); err != nil {
		t.Fatalf("setMode: %v", err)
	}
	h, err := player.Play(ctx, catalog.Source{FileName: "a", Path: "/a.m4a"}, playback.PlayOptions{
		Loop:        true,
		StartOffset: 1500 * time.Millisecond,
		Volume:      1,
	})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if h != "h1" {
		t.Errorf("handle = %q, want h1", h)
	}
	if err := player.SetVolume(ctx, h, 0.25); err != nil {
		t.Fatalf("setVolume: %v", err)
	}
	if err := player.Stop(ctx, h); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := player.Unload(ctx, h); err != nil {
		t.Fatalf("unload: %v", err)
	}

	cmds := d.commands()
	want := []string{CmdSetMode, CmdPlay, CmdSetVolume, CmdStop, CmdUnload}
	if len(cmds) != len(want) {
		t.Fatalf("got %d commands, want %d", len(cmds), len(want))
	}
	for i, c := range cmds {
		if c.Cmd != want[i] {
			t.Errorf("command %d = %q, want %q", i, c.Cmd, want[i])
		}
	}
	play := cmds[1]
	if play.Path != "/a.m4a" || play.Loop == nil || !*play.Loop {
		t.Errorf("play command = %+v", play)
	}
	if play.OffsetMs == nil || *play.OffsetMs != 1500 {
		t.Errorf("offsetMs = %v, want 1500", play.OffsetMs)
	}
	if cmds[2].Volume == nil || *cmds[2].Volume != 0.25 {
		t.Errorf("volume = %v, want 0.25", cmds[2].Volume)
	}
}

func TestPlayerDaemonError(t *testing.T) {
	d := &scriptedDaemon{reply: func(Command) Response {
		return Response{OK: false, Error: "file not found"}
	}}
	player := NewPlayer(startScriptedDaemon(t, d))
	defer player.Close()

	_, err := player.Play(context.Background(), catalog.Source{Path: "/missing.m4a"}, playback.PlayOptions{})
	if err == nil {
		t.Fatal("expected error from failed play")
	}
}

func TestPlayerNoDaemon(t *testing.T) {
	player := NewPlayer(filepath.Join(t.TempDir(), "absent.sock"))
	if err := player.SetMode(context.Background(), playback.Mode{}); err == nil {
		t.Error("expected error without a daemon")
	}
}

func TestPlayerFinished(t *testing.T) {
	d := &scriptedDaemon{reply: func(Command) Response { return Response{OK: true} }}
	player := NewPlayer(startScriptedDaemon(t, d))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	finished, err := player.Finished(ctx)
	if err != nil {
		t.Fatalf("finished: %v", err)
	}

	select {
	case h := <-finished:
		if h != "h1" {
			t.Errorf("finished handle = %q, want h1", h)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for finished event")
	}

	cancel()
	for range finished {
	}
}

func TestPlayerDeadlineDoesNotRetry(t *testing.T) {
	d := &scriptedDaemon{reply: func(cmd Command) Response {
		if cmd.Cmd == CmdStatus {
			time.Sleep(500 * time.Millisecond)
		}
		return Response{OK: true}
	}}
	p := NewPlayer(startScriptedDaemon(t, d))
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Status(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if n := len(d.commands()); n != 1 {
		t.Errorf("daemon saw %d commands, want 1 (no redial after the deadline)", n)
	}

	if err := p.Stop(context.Background(), "h1"); err != nil {
		t.Errorf("next command should redial: %v", err)
	}
}
