// Package event defines the envelope every queued event carries.
//
// # Events
//
// An event is any pointer to a struct that embeds Base:
//
//	type FileSaved struct {
//	    event.Base
//	    Path string
//	}
//
//	q.Enqueue(&FileSaved{Path: "main.go"})
//
// Identity is by pointer. Enqueueing the same *FileSaved twice while it is
// still pending is refused; two distinct instances with equal fields are
// independent events.
//
// # Provenance
//
// Every accepted enqueue stamps the event with the source position of the
// caller and the enqueue time. A re-enqueue overwrites the previous stamp.
// Stamps are informational and show up in logs, diagnostic events and on
// the wire.
//
// # Critical events
//
// Embedding CriticalBase instead of Base tags an event as critical. Critical
// events bypass the FIFO and are delivered synchronously by a critical queue.
//
// # Sentinels
//
// ShutdownRequest, ShuttingDown and ShutDown drive the queue lifecycle. A
// handler may veto a ShutdownRequest by calling Cancel before it finishes.
package event
