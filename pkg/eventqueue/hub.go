package eventqueue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/archive"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/config"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/observability"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/queue"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/subscriber"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/wire"
)

// Hub is a queue, its critical wrapper and its snapshot archive, built
// from one config.Config.
type Hub struct {
	cfg    config.Config
	logger *slog.Logger

	queue      queue.Queue
	manual     *queue.ManualQueue
	background *queue.BackgroundQueue
	critical   *queue.CriticalQueue

	spans observability.SpanManager

	types     *wire.Types
	wireOpts  wire.Options
	store     archive.Store
	ownsStore bool

	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and builds a Hub. ctx is handed to handlers of a
// background queue.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Hub, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o hubOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = cfg.Log.NewLogger(os.Stderr); err != nil {
			return nil, err
		}
	}

	format, err := wire.ParseFormat(cfg.Wire.Format)
	if err != nil {
		return nil, err
	}

	h := &Hub{
		cfg:      cfg,
		logger:   logger,
		spans:    spansFor(cfg, o.spans),
		types:    o.types,
		wireOpts: wire.Options{Format: format, Verbose: cfg.Wire.Verbose},
		store:    o.store,
	}
	if h.types == nil {
		h.types = wire.NewTypes()
	}
	if h.store == nil {
		if h.store, err = openStore(cfg.Archive); err != nil {
			return nil, err
		}
		h.ownsStore = h.store != nil
	}

	shared := []queue.Option{
		queue.WithName(cfg.Name),
		queue.WithLogger(logger),
		queue.WithMetrics(metricsFor(cfg, o.metrics)),
		queue.WithSpanManager(h.spans),
	}
	qopts := append([]queue.Option{
		queue.WithCapacity(cfg.Capacity),
		queue.WithRaiseUnhandledEvents(cfg.RaiseUnhandledEvents),
	}, shared...)
	if cfg.StartSuspended {
		qopts = append(qopts, queue.WithHandlingSuspended())
	}
	qopts = append(qopts, o.queueOpts...)

	if cfg.Mode == config.ModeBackground {
		h.background = queue.NewBackgroundQueue(ctx, qopts...)
		h.queue = h.background
	} else {
		h.manual = queue.NewManualQueue(qopts...)
		h.queue = h.manual
	}
	h.critical = queue.NewCriticalQueue(h.queue, shared...)

	logger.Info("event queue ready",
		slog.String("queue_id", h.queue.ID()),
		slog.String("queue_name", cfg.Name),
		slog.String("mode", cfg.Mode),
		slog.String("archive", cfg.Archive.Driver),
	)
	return h, nil
}

func openStore(cfg config.ArchiveConfig) (archive.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return archive.NewMemoryStore(), nil
	case config.DriverSQLite:
		store, err := archive.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

func metricsFor(cfg config.Config, override observability.MetricsRecorder) observability.MetricsRecorder {
	switch {
	case override != nil:
		return override
	case cfg.Metrics:
		return observability.NewMetricsRecorder()
	default:
		return observability.NoopMetrics{}
	}
}

func spansFor(cfg config.Config, override observability.SpanManager) observability.SpanManager {
	switch {
	case override != nil:
		return override
	case cfg.Tracing:
		return observability.NewSpanManager()
	default:
		return observability.NoopSpanManager{}
	}
}

// Config returns the configuration the hub was built from.
func (h *Hub) Config() config.Config {
	return h.cfg
}

// Queue returns the underlying queue.
func (h *Hub) Queue() queue.Queue {
	return h.queue
}

// Critical returns the critical wrapper around Queue.
func (h *Hub) Critical() *queue.CriticalQueue {
	return h.critical
}

// Subscribers returns the queue's subscriber registry.
func (h *Hub) Subscribers() *subscriber.Registry {
	return h.queue.Subscribers()
}

// Types returns the event types snapshots can hold.
func (h *Hub) Types() *wire.Types {
	return h.types
}

// Store returns the snapshot archive, or nil.
func (h *Hub) Store() archive.Store {
	return h.store
}

// Publish routes evt by kind: critical events are delivered immediately,
// others are enqueued. Reports whether the event was accepted.
func (h *Hub) Publish(ctx context.Context, evt event.Event) (bool, error) {
	if evt != nil && event.IsCritical(evt) {
		return h.critical.HandleCritical(ctx, evt)
	}
	return h.critical.EnqueueRegular(evt)
}

// HandleNext delivers one pending event. It always returns false for a
// background queue, whose worker does the delivery.
func (h *Hub) HandleNext(ctx context.Context) bool {
	if h.manual == nil {
		return false
	}
	return h.manual.HandleNext(ctx)
}

// Drain delivers pending events until none are left and reports how many
// were delivered. Always 0 for a background queue.
func (h *Hub) Drain(ctx context.Context) int {
	if h.manual == nil {
		return 0
	}
	return h.manual.Drain(ctx)
}

// RequestShutdown enqueues a vetoable shutdown request.
func (h *Hub) RequestShutdown() bool {
	return h.queue.RequestShutdown()
}

// Snapshot encodes the pending events and saves them under name, or under
// a generated name when name is empty. Lifecycle sentinels and events whose
// type is not registered are left out. Returns the snapshot name.
func (h *Hub) Snapshot(name string) (_ string, err error) {
	if h.store == nil {
		return "", ErrNoArchive
	}
	if name == "" {
		name = uuid.New().String()
	}
	_, span := h.spans.StartSnapshotSpan(context.Background(), "snapshot", h.cfg.Name, name)
	defer func() { h.spans.EndSpan(span, err) }()

	var events []event.Event
	skipped := 0
	for _, evt := range h.queue.Pending() {
		switch {
		case event.IsSentinel(evt):
		case !h.types.Has(evt):
			skipped++
		default:
			events = append(events, evt)
		}
	}
	if skipped > 0 {
		h.logger.Warn("snapshot skipped unregistered events",
			slog.String("snapshot", name),
			slog.Int("skipped", skipped),
		)
	}

	var buf bytes.Buffer
	if err := wire.Encode(&buf, h.types, events, h.wireOpts); err != nil {
		return "", &SnapshotError{Name: name, Op: "encode", Err: err}
	}
	blob := archive.Blob{
		Format:  h.wireOpts.Format.String(),
		Verbose: h.wireOpts.Verbose,
		Events:  len(events),
		Data:    buf.Bytes(),
	}
	if err := h.store.Save(h.cfg.Name, name, blob); err != nil {
		return "", &SnapshotError{Name: name, Op: "save", Err: err}
	}

	h.logger.Info("snapshot saved",
		slog.String("snapshot", name),
		slog.Int("events", len(events)),
		slog.Int("bytes", len(blob.Data)),
	)
	return name, nil
}

// Restore loads a snapshot and enqueues its events with their recorded
// positions. Returns how many events the queue accepted.
func (h *Hub) Restore(name string) (_ int, err error) {
	if h.store == nil {
		return 0, ErrNoArchive
	}
	_, span := h.spans.StartSnapshotSpan(context.Background(), "restore", h.cfg.Name, name)
	defer func() { h.spans.EndSpan(span, err) }()

	blob, err := h.store.Load(h.cfg.Name, name)
	if err != nil {
		return 0, &SnapshotError{Name: name, Op: "load", Err: err}
	}
	format, err := wire.ParseFormat(blob.Format)
	if err != nil {
		return 0, &SnapshotError{Name: name, Op: "decode", Err: err}
	}
	events, err := wire.Decode(bytes.NewReader(blob.Data), h.types,
		wire.Options{Format: format, Verbose: blob.Verbose})
	if err != nil {
		return 0, &SnapshotError{Name: name, Op: "decode", Err: err}
	}

	accepted := 0
	for _, evt := range events {
		if h.queue.EnqueueAt(evt, evt.EnqueuePosition()) {
			accepted++
		}
	}
	h.logger.Info("snapshot restored",
		slog.String("snapshot", name),
		slog.Int("events", len(events)),
		slog.Int("accepted", accepted),
	)
	return accepted, nil
}

// Snapshots lists the saved snapshots of this hub's queue.
func (h *Hub) Snapshots() ([]archive.Info, error) {
	if h.store == nil {
		return nil, ErrNoArchive
	}
	return h.store.List(h.cfg.Name)
}

// Close shuts a background queue down, waiting at most
// config.ShutdownTimeout, and closes an archive the hub opened.
// A manual queue is left as is; drive its shutdown with RequestShutdown
// and HandleNext. Safe to call more than once.
func (h *Hub) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		var errs []error
		if h.background != nil {
			if h.cfg.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, h.cfg.ShutdownTimeout)
				defer cancel()
			}
			if err := h.background.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown queue: %w", err))
			}
		}
		if h.ownsStore {
			if err := h.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close archive: %w", err))
			}
		}
		h.closeErr = errors.Join(errs...)
		h.logger.Info("event queue closed", slog.String("queue_name", h.cfg.Name))
	})
	return h.closeErr
}
