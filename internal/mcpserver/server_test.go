package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ursineenterprises/koom/internal/alarm"
	"github.com/ursineenterprises/koom/internal/catalog"
	"github.com/ursineenterprises/koom/internal/db"
	"github.com/ursineenterprises/koom/internal/playback"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(playback.Command) {}

func newTestHandlers(t *testing.T) (*handlers, *alarm.Env) {
	t.Helper()
	env := alarm.NewEnv(db.NewMemoryStore(), catalog.Default(t.TempDir()), nopDispatcher{}, zerolog.Nop(), alarm.DefaultSettings())
	return &handlers{svc: alarm.NewService(env), cat: env.Catalog, log: zerolog.Nop()}, env
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestToolsAreRegistered(t *testing.T) {
	_, env := newTestHandlers(t)
	s := New(env, "test")

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, name := range []string{ToolListAlarms, ToolGetAlarm, ToolSaveAlarm, ToolDeleteAlarm, ToolListTracks} {
		assert.Contains(t, string(data), `"`+name+`"`)
	}
}

func TestSaveGetAndList(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()

	res, err := h.saveAlarm(ctx, call(ToolSaveAlarm, map[string]any{
		"time":      "6:05",
		"day":       "Wednesday",
		"trackIds":  []any{"Zizek"},
		"recurring": true,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var saved db.AlarmRecord
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &saved))
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "06:05", saved.Time)
	assert.Equal(t, []string{"Zizek"}, saved.TrackIDs)
	assert.True(t, saved.Recurring)
	assert.True(t, saved.Enabled)

	res, err = h.getAlarm(ctx, call(ToolGetAlarm, map[string]any{"id": saved.ID}))
	require.NoError(t, err)
	var got db.AlarmRecord
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, saved, got)

	res, err = h.listAlarms(ctx, call(ToolListAlarms, nil))
	require.NoError(t, err)
	var all []db.AlarmRecord
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &all))
	assert.Len(t, all, 1)
}

func TestSaveRejectsInvalidAlarm(t *testing.T) {
	h, env := newTestHandlers(t)

	res, err := h.saveAlarm(context.Background(), call(ToolSaveAlarm, map[string]any{
		"time":     "07:30",
		"day":      "Monday",
		"trackIds": []any{"Nobody"},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "trackIds")

	all, err := env.Store.GetAllAlarms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveCanDisable(t *testing.T) {
	h, _ := newTestHandlers(t)

	res, err := h.saveAlarm(context.Background(), call(ToolSaveAlarm, map[string]any{
		"time":     "07:30",
		"day":      "Monday",
		"trackIds": []any{"Pete"},
		"enabled":  false,
	}))
	require.NoError(t, err)
	var saved db.AlarmRecord
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &saved))
	assert.False(t, saved.Enabled)
}

func TestGetMissingAlarm(t *testing.T) {
	h, _ := newTestHandlers(t)

	res, err := h.getAlarm(context.Background(), call(ToolGetAlarm, map[string]any{"id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "not found")

	res, err = h.getAlarm(context.Background(), call(ToolGetAlarm, nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDeleteOneAndAll(t *testing.T) {
	h, env := newTestHandlers(t)
	ctx := context.Background()
	svc := alarm.NewService(env)

	a, err := svc.CreateOrUpdate(ctx, alarm.SaveRequest{Time: "07:30", Day: "Monday", TrackIDs: []string{"Pete"}})
	require.NoError(t, err)
	_, err = svc.CreateOrUpdate(ctx, alarm.SaveRequest{Time: "08:30", Day: "Friday", TrackIDs: []string{"Pete"}})
	require.NoError(t, err)

	res, err := h.deleteAlarm(ctx, call(ToolDeleteAlarm, map[string]any{"id": a.ID}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	all, _ := svc.List(ctx)
	assert.Len(t, all, 1)

	res, err = h.deleteAlarm(ctx, call(ToolDeleteAlarm, nil))
	require.NoError(t, err)
	assert.True(t, res.IsError, "id or all is required")

	res, err = h.deleteAlarm(ctx, call(ToolDeleteAlarm, map[string]any{"all": true}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	all, _ = svc.List(ctx)
	assert.Empty(t, all)
}

func TestListTracks(t *testing.T) {
	h, env := newTestHandlers(t)

	res, err := h.listTracks(context.Background(), call(ToolListTracks, nil))
	require.NoError(t, err)
	var tracks []trackInfo
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &tracks))
	assert.Len(t, tracks, env.Catalog.Len())

	res, err = h.listTracks(context.Background(), call(ToolListTracks, map[string]any{"collection": "speech"}))
	require.NoError(t, err)
	tracks = nil
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &tracks))
	require.NotEmpty(t, tracks)
	for _, tr := range tracks {
		assert.Equal(t, string(catalog.Speech), tr.Collection)
	}
}
