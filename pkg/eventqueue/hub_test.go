package eventqueue_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/archive"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/config"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/queue"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/subscriber"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/wire"
)

type documentSaved struct {
	event.Base
	Path  string
	Bytes int64
}

func (e *documentSaved) WriteFields(w wire.StreamWriter) {
	w.WriteString(e.Path)
	w.WriteInt64(e.Bytes)
}

func (e *documentSaved) ReadFields(r wire.StreamReader) error {
	var err error
	if e.Path, err = r.ReadString(); err != nil {
		return err
	}
	e.Bytes, err = r.ReadInt64()
	return err
}

type cursorMoved struct {
	event.Base
}

type batteryLow struct {
	event.CriticalBase
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newHub(t *testing.T, cfg config.Config, opts ...eventqueue.Option) *eventqueue.Hub {
	t.Helper()
	opts = append([]eventqueue.Option{eventqueue.WithLogger(quietLogger())}, opts...)
	hub, err := eventqueue.New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = hub.Close(context.Background()) })
	return hub
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "eager"

	_, err := eventqueue.New(context.Background(), cfg)
	assert.ErrorContains(t, err, "mode")
}

func TestPublishRoutesByKind(t *testing.T) {
	ctx := context.Background()
	hub := newHub(t, config.Default())

	var order []string
	subscriber.Subscribe[*documentSaved](hub.Subscribers(),
		subscriber.Func(func(context.Context, *documentSaved) error {
			order = append(order, "regular")
			return nil
		}))
	subscriber.Subscribe[*batteryLow](hub.Subscribers(),
		subscriber.Func(func(context.Context, *batteryLow) error {
			order = append(order, "critical")
			return nil
		}))

	saved := &documentSaved{Path: "a.txt"}
	ok, err := hub.Publish(ctx, saved)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, saved.EnqueuePosition(), "hub_test.go:", "position is the publisher's")

	ok, err = hub.Publish(ctx, &batteryLow{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"critical"}, order, "critical delivered before the pending event")

	assert.Equal(t, 1, hub.Drain(ctx))
	assert.Equal(t, []string{"critical", "regular"}, order)

	_, err = hub.Publish(ctx, nil)
	assert.ErrorIs(t, err, queue.ErrNilEvent)
}

func TestSnapshotAndRestore(t *testing.T) {
	ctx := context.Background()
	types := wire.NewTypes()
	wire.MustRegister[documentSaved](types)

	for _, format := range []string{"binary", "text"} {
		t.Run(format, func(t *testing.T) {
			cfg := config.Default()
			cfg.Wire.Format = format
			store := archive.NewMemoryStore()

			src := newHub(t, cfg, eventqueue.WithTypes(types), eventqueue.WithStore(store))
			q := src.Queue()
			require.True(t, q.EnqueueAt(&documentSaved{Path: "a.txt", Bytes: 10}, "editor.go:1"))
			require.True(t, q.Enqueue(&cursorMoved{}))
			require.True(t, q.EnqueueAt(&documentSaved{Path: "b.txt", Bytes: 20}, "editor.go:2"))

			name, err := src.Snapshot("")
			require.NoError(t, err)
			assert.NotEmpty(t, name)

			infos, err := src.Snapshots()
			require.NoError(t, err)
			require.Len(t, infos, 1)
			assert.Equal(t, 2, infos[0].Events, "unregistered types are left out")
			assert.Equal(t, format, infos[0].Format)

			dst := newHub(t, cfg, eventqueue.WithTypes(types), eventqueue.WithStore(store))
			var restored []*documentSaved
			subscriber.Subscribe[*documentSaved](dst.Subscribers(),
				subscriber.Func(func(_ context.Context, e *documentSaved) error {
					restored = append(restored, e)
					return nil
				}))

			n, err := dst.Restore(name)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			assert.Equal(t, 2, dst.Drain(ctx))
			require.Len(t, restored, 2)
			assert.Equal(t, "a.txt", restored[0].Path)
			assert.Equal(t, int64(10), restored[0].Bytes)
			assert.Equal(t, "editor.go:1", restored[0].EnqueuePosition())
			assert.Equal(t, "b.txt", restored[1].Path)
		})
	}
}

func TestSnapshotWithSQLite(t *testing.T) {
	types := wire.NewTypes()
	wire.MustRegister[documentSaved](types)

	cfg := config.Default()
	cfg.Archive = config.ArchiveConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "snap.db")}

	hub := newHub(t, cfg, eventqueue.WithTypes(types))
	require.True(t, hub.Queue().Enqueue(&documentSaved{Path: "x"}))

	name, err := hub.Snapshot("before-exit")
	require.NoError(t, err)
	assert.Equal(t, "before-exit", name)

	n, err := hub.Restore("before-exit")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, hub.Queue().Len())
}

func TestSnapshotWithoutArchive(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Driver = config.DriverNone
	hub := newHub(t, cfg)

	_, err := hub.Snapshot("x")
	assert.ErrorIs(t, err, eventqueue.ErrNoArchive)
	_, err = hub.Restore("x")
	assert.ErrorIs(t, err, eventqueue.ErrNoArchive)
	_, err = hub.Snapshots()
	assert.ErrorIs(t, err, eventqueue.ErrNoArchive)
}

func TestRestoreMissingSnapshot(t *testing.T) {
	hub := newHub(t, config.Default())

	_, err := hub.Restore("missing")
	assert.ErrorIs(t, err, archive.ErrNotFound)
	var snapErr *eventqueue.SnapshotError
	require.ErrorAs(t, err, &snapErr)
	assert.Equal(t, "load", snapErr.Op)
}

func TestBackgroundHubCloseDrains(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = config.ModeBackground
	cfg.ShutdownTimeout = 2 * time.Second

	hub, err := eventqueue.New(context.Background(), cfg, eventqueue.WithLogger(quietLogger()))
	require.NoError(t, err)

	delivered := make(chan string, 10)
	subscriber.Subscribe[*documentSaved](hub.Subscribers(),
		subscriber.Func(func(_ context.Context, e *documentSaved) error {
			delivered <- e.Path
			return nil
		}))

	_, err = hub.Publish(context.Background(), &documentSaved{Path: "bg"})
	require.NoError(t, err)

	require.NoError(t, hub.Close(context.Background()))
	assert.Equal(t, queue.StateShutdown, hub.Queue().State())
	assert.Equal(t, "bg", <-delivered)
	assert.False(t, hub.HandleNext(context.Background()))
	assert.Zero(t, hub.Drain(context.Background()))
	require.NoError(t, hub.Close(context.Background()), "second close is a no-op")
}

func TestStartSuspendedAndRequestShutdown(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.StartSuspended = true
	hub := newHub(t, cfg)

	require.True(t, hub.RequestShutdown())
	assert.False(t, hub.HandleNext(ctx))

	require.NoError(t, hub.Queue().EventHandling().Resume())
	assert.Equal(t, 3, hub.Drain(ctx))
	assert.Equal(t, queue.StateShutdown, hub.Queue().State())
}

func TestHubLogsFromConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := config.Default()
	cfg.Name = "editor"
	newHub(t, cfg, eventqueue.WithLogger(logger))

	assert.Contains(t, buf.String(), "event queue ready")
	assert.Contains(t, buf.String(), "queue_name=editor")
}
