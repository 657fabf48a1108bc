// Package queue implements the event queue state machine and its schedulers.
//
// # Queues
//
// A Core owns pending events, the lifecycle state and three feature
// switches. Two schedulers drive it:
//
//   - ManualQueue: the caller pulls events with HandleNext, e.g. from a UI
//     message loop or a test.
//   - BackgroundQueue: a dedicated goroutine drains the queue whenever an
//     event is accepted and handling is enabled.
//
// Both deliver events in FIFO order through the queue's subscriber registry:
//
//	q := queue.NewManualQueue(queue.WithLogger(logger))
//	subscriber.Subscribe[*FileSaved](q.Subscribers(), indexer)
//
//	q.Enqueue(&FileSaved{Path: "main.go"})
//	for q.HandleNext(ctx) {
//	}
//
// # Feature switches
//
// EventAdding, EventHandling and RaiseUnhandledEvents can each be suspended
// and resumed independently. Suspensions nest: every Suspend needs a matching
// Resume before the feature is enabled again.
//
//   - adding suspended: Enqueue silently refuses events
//   - handling suspended: HandleNext delivers nothing, pending events stay
//   - raising suspended: handler errors are logged instead of being queued
//     as *event.UnhandledError
//
// # Shutdown protocol
//
// Shutdown is driven by sentinel events travelling through the queue:
//
//  1. *event.ShutdownRequest: handlers may veto it with Cancel.
//  2. *event.ShuttingDown: once handled, adding is suspended and the queue
//     only drains what is left.
//  3. *event.ShutDown: once handled, the registry is cleared and disabled and
//     the state is StateShutdown.
//
// # Critical events
//
// CriticalQueue wraps any Queue. HandleCritical suspends regular handling,
// delivers the event synchronously on the caller's goroutine and resumes
// handling afterwards. A handler may raise another critical event by calling
// HandleCritical with the context it was given.
package queue
