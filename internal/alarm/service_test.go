package alarm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ursineenterprises/koom/internal/db"
)

func TestCreateOrUpdateAssignsIDAndEnables(t *testing.T) {
	env, _ := newTestEnv(t)
	svc := NewService(env)
	ctx := context.Background()

	rec, err := svc.CreateOrUpdate(ctx, SaveRequest{
		Time:     "7:30",
		Day:      "Monday",
		TrackIDs: []string{"Pete"},
	})
	require.NoError(t, err)

	id, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, "07:30", rec.Time, "time is stored canonically")
	assert.True(t, rec.Enabled)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, rec, all[0])

	active, err := svc.HasActiveAlarm(ctx)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestCreateOrUpdateOverwrites(t *testing.T) {
	env, _ := newTestEnv(t)
	svc := NewService(env)
	ctx := context.Background()

	rec, err := svc.CreateOrUpdate(ctx, SaveRequest{Time: "07:30", Day: "Monday", TrackIDs: []string{"Pete"}})
	require.NoError(t, err)

	req := RequestFromRecord(rec)
	req.Day = "Friday"
	req.Enabled = boolPtr(false)
	updated, err := svc.CreateOrUpdate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID)

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Friday", got.Day)
	assert.False(t, got.Enabled)

	active, err := svc.HasActiveAlarm(ctx)
	require.NoError(t, err)
	assert.False(t, active, "disabled records do not count")
}

func TestValidationGate(t *testing.T) {
	tests := []struct {
		name  string
		req   SaveRequest
		field string
	}{
		{"unknown track", SaveRequest{Time: "07:30", Day: "Monday", TrackIDs: []string{"Nobody"}}, "trackIds"},
		{"no tracks", SaveRequest{Time: "07:30", Day: "Monday"}, "trackIds"},
		{"blank track", SaveRequest{Time: "07:30", Day: "Monday", TrackIDs: []string{""}}, "trackIds"},
		{"missing time", SaveRequest{Day: "Monday", TrackIDs: []string{"Pete"}}, "time"},
		{"bad time", SaveRequest{Time: "25:00", Day: "Monday", TrackIDs: []string{"Pete"}}, "time"},
		{"signed hour", SaveRequest{Time: "+7:30", Day: "Monday", TrackIDs: []string{"Pete"}}, "time"},
		{"negative hour", SaveRequest{Time: "-0:30", Day: "Monday", TrackIDs: []string{"Pete"}}, "time"},
		{"missing day", SaveRequest{Time: "07:30", TrackIDs: []string{"Pete"}}, "day"},
		{"bad day", SaveRequest{Time: "07:30", Day: "Funday", TrackIDs: []string{"Pete"}}, "day"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &failingStore{AlarmStore: db.NewMemoryStore()}
			env, _ := newTestEnvWith(t, store, DefaultSettings())
			svc := NewService(env)

			_, err := svc.CreateOrUpdate(context.Background(), tt.req)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.True(t, verr.Has(tt.field), "fields: %v", verr.Fields)
			assert.Zero(t, store.saves, "saveAlarm must not be called")
		})
	}
}

func TestStorageErrorOnSave(t *testing.T) {
	store := &failingStore{AlarmStore: db.NewMemoryStore(), failSave: true}
	env, _ := newTestEnvWith(t, store, DefaultSettings())

	_, err := NewService(env).CreateOrUpdate(context.Background(), SaveRequest{
		Time: "07:30", Day: "Monday", TrackIDs: []string{"Pete"},
	})

	var serr *StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "save", serr.Op)
}

func TestGetDeleteAndDeleteAll(t *testing.T) {
	env, _ := newTestEnv(t)
	svc := NewService(env)
	ctx := context.Background()

	a, _ := svc.CreateOrUpdate(ctx, SaveRequest{Time: "07:30", Day: "Monday", TrackIDs: []string{"Pete"}})
	b, _ := svc.CreateOrUpdate(ctx, SaveRequest{Time: "08:00", Day: "Tuesday", TrackIDs: []string{"Zizek"}})

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err := svc.Get(ctx, a.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	off, err := svc.SetEnabled(ctx, b.ID, false)
	require.NoError(t, err)
	assert.False(t, off.Enabled)

	require.NoError(t, svc.DeleteAll(ctx))
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = svc.SetEnabled(ctx, b.ID, true)
	assert.True(t, errors.Is(err, ErrNotFound))
}
