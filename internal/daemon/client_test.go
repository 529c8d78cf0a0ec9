package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// fakeDaemon serves one connection on a temp socket. handle gets the
// decoded commands in order and the connection to answer on.
func fakeDaemon(t *testing.T, handle func(cmds <-chan Command, conn net.Conn)) string {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "audio.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		cmds := make(chan Command)
		go func() {
			defer close(cmds)
			sc := bufio.NewScanner(conn)
			for sc.Scan() {
				var cmd Command
				if json.Unmarshal(sc.Bytes(), &cmd) != nil {
					return
				}
				cmds <- cmd
			}
		}()
		handle(cmds, conn)
	}()
	return sockPath
}

func reply(conn net.Conn, v any) {
	data, _ := json.Marshal(v)
	conn.Write(append(data, '\n'))
}

func dial(t *testing.T, sockPath string) *Client {
	t.Helper()
	client, err := Connect(context.Background(), sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientSendCommand(t *testing.T) {
	got := make(chan Command, 1)
	sockPath := fakeDaemon(t, func(cmds <-chan Command, conn net.Conn) {
		cmd := <-cmds
		got <- cmd
		reply(conn, Response{OK: true, Handle: "h1", Status: "playing"})
	})

	resp, err := dial(t, sockPath).SendCommand(context.Background(), Command{Cmd: CmdPlay, Path: "/a.m4a", Loop: BoolPtr(true)})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !resp.OK || resp.Handle != "h1" {
		t.Errorf("resp = %+v", resp)
	}

	cmd := <-got
	if cmd.Cmd != CmdPlay || cmd.Path != "/a.m4a" || cmd.Loop == nil || !*cmd.Loop {
		t.Errorf("daemon saw %+v", cmd)
	}
}

func TestClientDoRefused(t *testing.T) {
	sockPath := fakeDaemon(t, func(cmds <-chan Command, conn net.Conn) {
		<-cmds
		reply(conn, Response{OK: false, Error: "no such handle"})
	})

	_, err := dial(t, sockPath).Do(context.Background(), Command{Cmd: CmdStop, Handle: "gone"})
	if err == nil || err.Error() != "daemon stop: no such handle" {
		t.Errorf("err = %v", err)
	}
}

func TestClientDeadline(t *testing.T) {
	sockPath := fakeDaemon(t, func(cmds <-chan Command, conn net.Conn) {
		<-cmds
		time.Sleep(time.Second)
	})
	client := dial(t, sockPath)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := client.SendCommand(ctx, Command{Cmd: CmdStatus})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if waited := time.Since(start); waited > 500*time.Millisecond {
		t.Errorf("waited %v for a 50ms deadline", waited)
	}
}

func TestClientCancelUnblocksRead(t *testing.T) {
	sockPath := fakeDaemon(t, func(cmds <-chan Command, conn net.Conn) {
		<-cmds
		time.Sleep(time.Second)
	})
	client := dial(t, sockPath)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)
	_, err := client.SendCommand(ctx, Command{Cmd: CmdStatus})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

func TestClientHangUp(t *testing.T) {
	sockPath := fakeDaemon(t, func(cmds <-chan Command, conn net.Conn) {
		<-cmds
	})

	_, err := dial(t, sockPath).SendCommand(context.Background(), Command{Cmd: CmdStatus})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestClientConnectFailure(t *testing.T) {
	_, err := Connect(context.Background(), "/nonexistent/path/koom-audio.sock")
	if err == nil {
		t.Error("expected error connecting to nonexistent socket")
	}
}

func TestClientReadEvents(t *testing.T) {
	sockPath := fakeDaemon(t, func(cmds <-chan Command, conn net.Conn) {
		if cmd := <-cmds; cmd.Cmd != CmdSubscribe {
			return
		}
		reply(conn, Response{OK: true})
		reply(conn, Event{Event: EventFinished, Handle: "h2"})
		reply(conn, Event{Event: "error", Message: "decoder stalled"})
	})
	client := dial(t, sockPath)
	ctx := context.Background()

	if _, err := client.Do(ctx, Command{Cmd: CmdSubscribe}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ev, err := client.ReadEvent(ctx)
	if err != nil {
		t.Fatalf("read event 1: %v", err)
	}
	if ev.Event != EventFinished || ev.Handle != "h2" {
		t.Errorf("event1 = %+v", ev)
	}

	ev, err = client.ReadEvent(ctx)
	if err != nil {
		t.Fatalf("read event 2: %v", err)
	}
	if ev.Event != "error" || ev.Message != "decoder stalled" {
		t.Errorf("event2 = %+v", ev)
	}

	if _, err := client.ReadEvent(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed once the stream ends", err)
	}
}
