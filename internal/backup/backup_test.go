package backup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

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

func newService(t *testing.T) *alarm.Service {
	t.Helper()
	env := alarm.NewEnv(db.NewMemoryStore(), catalog.Default(t.TempDir()), nopDispatcher{}, zerolog.Nop(), alarm.DefaultSettings())
	return alarm.NewService(env)
}

func TestExportThenImportIntoEmptyStore(t *testing.T) {
	ctx := context.Background()
	src := newService(t)
	a, err := src.CreateOrUpdate(ctx, alarm.SaveRequest{Time: "07:30", Day: "Monday", TrackIDs: []string{"Pete"}, Recurring: true})
	require.NoError(t, err)
	b, err := src.CreateOrUpdate(ctx, alarm.SaveRequest{Time: "22:15", Day: "Sunday", TrackIDs: []string{"Zizek"}, Enabled: new(bool)})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := Export(ctx, src, &buf, time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), "version: 1")
	assert.Contains(t, buf.String(), "trackIds:")

	dst := newService(t)
	n, err = Import(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	gotA, err := dst.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, gotA)
	gotB, err := dst.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, gotB.Enabled)
}

func TestImportStopsAtInvalidRecord(t *testing.T) {
	doc := `version: 1
alarms:
  - id: one
    time: "07:00"
    day: Monday
    enabled: true
    trackIds: [Pete]
  - id: two
    time: "31:00"
    day: Monday
    enabled: true
    trackIds: [Pete]
`
	svc := newService(t)
	n, err := Import(context.Background(), svc, strings.NewReader(doc))

	var verr *alarm.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.True(t, verr.Has("time"))
	assert.Equal(t, 1, n)

	_, err = svc.Get(context.Background(), "one")
	assert.NoError(t, err)
}

func TestImportRejectsNewerVersion(t *testing.T) {
	_, err := Import(context.Background(), newService(t), strings.NewReader("version: 9\nalarms: []\n"))
	assert.ErrorContains(t, err, "newer")
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	n, err := Export(context.Background(), newService(t), &buf, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, buf.String(), "alarms: []")
}
