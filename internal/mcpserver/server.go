// Package mcpserver exposes alarm management as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/ursineenterprises/koom/internal/alarm"
	"github.com/ursineenterprises/koom/internal/catalog"
	"github.com/ursineenterprises/koom/internal/db"
)

// Tool names.
const (
	ToolListAlarms  = "list_alarms"
	ToolGetAlarm    = "get_alarm"
	ToolSaveAlarm   = "save_alarm"
	ToolDeleteAlarm = "delete_alarm"
	ToolListTracks  = "list_tracks"
)

type handlers struct {
	svc *alarm.Service
	cat *catalog.Catalog
	log zerolog.Logger
}

// New builds an MCP server with the alarm tools registered.
func New(env *alarm.Env, version string) *server.MCPServer {
	h := &handlers{
		svc: alarm.NewService(env),
		cat: env.Catalog,
		log: env.Log.With().Str("component", "mcp").Logger(),
	}

	s := server.NewMCPServer("koom", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool(ToolListAlarms,
		mcp.WithDescription("List every stored alarm."),
	), h.listAlarms)

	s.AddTool(mcp.NewTool(ToolGetAlarm,
		mcp.WithDescription("Get one alarm by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Alarm id")),
	), h.getAlarm)

	s.AddTool(mcp.NewTool(ToolSaveAlarm,
		mcp.WithDescription("Create an alarm, or update it when id is given."),
		mcp.WithString("id", mcp.Description("Alarm id to update; omit to create")),
		mcp.WithString("time", mcp.Required(), mcp.Description("Time of day, HH:MM 24-hour")),
		mcp.WithString("day", mcp.Required(),
			mcp.Description("Weekday label"),
			mcp.Enum(db.Weekdays...),
		),
		mcp.WithArray("trackIds", mcp.Required(),
			mcp.Description("Track ids from list_tracks; the first one sounds"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("recurring", mcp.Description("Repeat weekly")),
		mcp.WithBoolean("enabled", mcp.Description("Defaults to true")),
	), h.saveAlarm)

	s.AddTool(mcp.NewTool(ToolDeleteAlarm,
		mcp.WithDescription("Delete one alarm, or all of them."),
		mcp.WithString("id", mcp.Description("Alarm id")),
		mcp.WithBoolean("all", mcp.Description("Delete every alarm")),
	), h.deleteAlarm)

	s.AddTool(mcp.NewTool(ToolListTracks,
		mcp.WithDescription("List the track ids an alarm can use."),
		mcp.WithString("collection",
			mcp.Description("Only tracks from this collection"),
			mcp.Enum(string(catalog.Music), string(catalog.Speech)),
		),
	), h.listTracks)

	return s
}

// Serve runs s on stdin and stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports err to the client as a tool error.
func (h *handlers) errorResult(tool string, err error) *mcp.CallToolResult {
	var verr *alarm.ValidationError
	if !errors.As(err, &verr) && !errors.Is(err, alarm.ErrNotFound) {
		h.log.Error().Err(err).Str("tool", tool).Msg("tool failed")
	}
	return mcp.NewToolResultError(err.Error())
}

func (h *handlers) listAlarms(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	alarms, err := h.svc.List(ctx)
	if err != nil {
		return h.errorResult(ToolListAlarms, err), nil
	}
	if alarms == nil {
		alarms = []db.AlarmRecord{}
	}
	return jsonResult(alarms)
}

func (h *handlers) getAlarm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := h.svc.Get(ctx, id)
	if err != nil {
		return h.errorResult(ToolGetAlarm, err), nil
	}
	return jsonResult(rec)
}

func (h *handlers) saveAlarm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	save := alarm.SaveRequest{
		ID:        req.GetString("id", ""),
		Time:      req.GetString("time", ""),
		Day:       req.GetString("day", ""),
		TrackIDs:  req.GetStringSlice("trackIds", nil),
		Recurring: req.GetBool("recurring", false),
	}
	if v, ok := req.GetArguments()["enabled"].(bool); ok {
		save.Enabled = &v
	}

	rec, err := h.svc.CreateOrUpdate(ctx, save)
	if err != nil {
		return h.errorResult(ToolSaveAlarm, err), nil
	}
	return jsonResult(rec)
}

func (h *handlers) deleteAlarm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("all", false) {
		if err := h.svc.DeleteAll(ctx); err != nil {
			return h.errorResult(ToolDeleteAlarm, err), nil
		}
		return mcp.NewToolResultText("deleted all alarms"), nil
	}

	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("id is required unless all is true"), nil
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		return h.errorResult(ToolDeleteAlarm, err), nil
	}
	return mcp.NewToolResultText("deleted " + id), nil
}

// trackInfo is one list_tracks row.
type trackInfo struct {
	TrackID    string `json:"trackId"`
	Collection string `json:"collection"`
	File       string `json:"file"`
	Seconds    int    `json:"seconds,omitempty"`
}

func (h *handlers) listTracks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := h.cat.Entries()
	if col := req.GetString("collection", ""); col != "" {
		entries = h.cat.Collection(catalog.Collection(strings.ToUpper(col)))
	}
	tracks := make([]trackInfo, 0, len(entries))
	for _, e := range entries {
		tracks = append(tracks, trackInfo{
			TrackID:    e.TrackID,
			Collection: string(e.Collection),
			File:       e.Source.FileName,
			Seconds:    int(e.Source.Length.Round(time.Second) / time.Second),
		})
	}
	return jsonResult(tracks)
}
