package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrClosed is returned when the daemon hangs up mid-exchange.
var ErrClosed = errors.New("daemon connection closed")

// SocketPath returns the default daemon socket path.
func SocketPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "koom", "koom-audio.sock")
}

// Client speaks NDJSON to the audio daemon over one Unix socket
// connection. Exchanges are serialized.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

// Connect dials the daemon socket. ctx bounds the dial only.
func Connect(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	return &Client{conn: conn, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SendCommand writes cmd and reads the response line. The ctx deadline
// becomes the connection deadline, and cancelling ctx interrupts a blocked
// exchange. A daemon-side failure comes back as a Response with OK unset,
// not as an error.
func (c *Client) SendCommand(ctx context.Context, cmd Command) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	release := c.bind(ctx)
	defer release()

	if err := c.enc.Encode(cmd); err != nil {
		return Response{}, c.fail(ctx, "write "+cmd.Cmd, err)
	}
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return Response{}, c.fail(ctx, "read "+cmd.Cmd+" response", err)
	}
	return resp, nil
}

// Do is SendCommand with a refused command turned into an error.
func (c *Client) Do(ctx context.Context, cmd Command) (Response, error) {
	resp, err := c.SendCommand(ctx, cmd)
	if err != nil {
		return resp, err
	}
	if !resp.OK {
		return resp, fmt.Errorf("daemon %s: %s", cmd.Cmd, resp.Error)
	}
	return resp, nil
}

// ReadEvent blocks for the next event line after a subscribe. Cancelling
// ctx unblocks it.
func (c *Client) ReadEvent(ctx context.Context) (Event, error) {
	release := c.bind(ctx)
	defer release()

	var ev Event
	if err := c.dec.Decode(&ev); err != nil {
		return Event{}, c.fail(ctx, "read event", err)
	}
	return ev, nil
}

// bind ties the connection deadline to ctx until the returned func runs.
func (c *Client) bind(ctx context.Context) func() {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	return func() {
		stop()
		_ = c.conn.SetDeadline(time.Time{})
	}
}

func (c *Client) fail(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}
