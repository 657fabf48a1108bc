/*
Package eventqueue is an in-process publish/subscribe event queue.

# Overview

Components talk to each other by publishing events instead of holding
references to each other. The queue guarantees:
  - each event instance is pending at most once
  - events are delivered in FIFO order
  - critical events are delivered immediately, ahead of pending ones
  - shutdown lets pending work finish before subscribers are torn down

The building blocks live in sub-packages:
  - event: the Event envelope, sentinels and the critical marker
  - subscriber: the registry that maps event types to handlers
  - queue: ManualQueue, BackgroundQueue and CriticalQueue
  - wire: binary and JSON stream formats for dumping events
  - archive: snapshot storage (memory, SQLite)
  - config: YAML/JSON configuration

Hub assembles them from a config.Config.

# Basic Usage

	type FileSaved struct {
	    event.Base
	    Path string
	}

	hub, err := eventqueue.New(ctx, config.Default())
	if err != nil {
	    log.Fatal(err)
	}
	defer hub.Close(ctx)

	subscriber.Subscribe[*FileSaved](hub.Subscribers(),
	    subscriber.Func(func(ctx context.Context, e *FileSaved) error {
	        fmt.Println("saved", e.Path)
	        return nil
	    }))

	hub.Publish(ctx, &FileSaved{Path: "main.go"})
	for hub.HandleNext(ctx) {
	}

# Critical Events

Events embedding event.CriticalBase bypass the queue. Publish delivers them
synchronously on the calling goroutine while regular delivery is paused:

	type PowerLoss struct {
	    event.CriticalBase
	}

	hub.Publish(ctx, &PowerLoss{}) // handlers have run when this returns

# Shutdown

RequestShutdown enqueues a shutdown request that handlers may veto:

	subscriber.Subscribe[*event.ShutdownRequest](hub.Subscribers(),
	    subscriber.Func(func(ctx context.Context, r *event.ShutdownRequest) error {
	        if unsavedChanges {
	            r.Cancel()
	        }
	        return nil
	    }))

Once the request is handled without a veto, the queue stops accepting
events, drains what is pending and disables the registry.

# Snapshots

With an archive configured, the pending events can be saved and restored:

	types := wire.NewTypes()
	wire.MustRegister[FileSaved](types)

	hub, _ := eventqueue.New(ctx, cfg, eventqueue.WithTypes(types))
	name, err := hub.Snapshot("")
	...
	n, err := hub.Restore(name)

# Observability

Logging uses log/slog; metrics and tracing use OpenTelemetry and are
enabled with config.Config.Metrics and config.Config.Tracing.
*/
package eventqueue
