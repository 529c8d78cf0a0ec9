// Package daemon provides the client and protocol types for driving the
// koom audio daemon over a Unix socket using NDJSON.
package daemon

// Command is sent from a client to the daemon.
type Command struct {
	Cmd        string   `json:"cmd"`
	Path       string   `json:"path,omitempty"`
	Handle     string   `json:"handle,omitempty"`
	Loop       *bool    `json:"loop,omitempty"`
	OffsetMs   *int64   `json:"offsetMs,omitempty"`
	Volume     *float64 `json:"volume,omitempty"`
	SilentMode *bool    `json:"playsInSilentMode,omitempty"`
	Background *bool    `json:"staysActiveInBackground,omitempty"`
	Events     []string `json:"events,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK      bool     `json:"ok"`
	Handle  string   `json:"handle,omitempty"`
	Playing []string `json:"playing,omitempty"`
	Status  string   `json:"status,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Event is streamed from the daemon to subscribed clients.
type Event struct {
	Event   string `json:"event"`
	Handle  string `json:"handle,omitempty"`
	Message string `json:"message,omitempty"`
}

// Command names understood by the daemon.
const (
	CmdSetMode   = "setMode"
	CmdPlay      = "play"
	CmdSetVolume = "setVolume"
	CmdStop      = "stop"
	CmdUnload    = "unload"
	CmdStatus    = "status"
	CmdSubscribe = "subscribe"
)

// EventFinished is emitted when a non-looping stream ends on its own.
const EventFinished = "finished"

// BoolPtr returns a pointer to a bool value. Convenience for building commands.
func BoolPtr(b bool) *bool { return &b }

// Int64Ptr returns a pointer to an int64 value.
func Int64Ptr(n int64) *int64 { return &n }

// Float64Ptr returns a pointer to a float64 value.
func Float64Ptr(f float64) *float64 { return &f }
