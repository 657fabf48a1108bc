package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/queue"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/subscriber"
)

type tick struct {
	event.Base
	N int
}

type alarm struct {
	event.CriticalBase
}

func newQueue(b *testing.B, handlers int) *queue.ManualQueue {
	b.Helper()
	q := queue.NewManualQueue()
	for range handlers {
		subscriber.Subscribe[*tick](q.Subscribers(), subscriber.Func(func(context.Context, *tick) error {
			return nil
		}))
	}
	return q
}

// BenchmarkEnqueue measures enqueue with caller provenance capture.
func BenchmarkEnqueue(b *testing.B) {
	q := newQueue(b, 0)
	events := make([]*tick, b.N)
	for i := range events {
		events[i] = &tick{N: i}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Enqueue(events[i])
	}
}

// BenchmarkEnqueueAt measures enqueue with an explicit position.
func BenchmarkEnqueueAt(b *testing.B) {
	q := newQueue(b, 0)
	events := make([]*tick, b.N)
	for i := range events {
		events[i] = &tick{N: i}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.EnqueueAt(events[i], "bench.go:1")
	}
}

// BenchmarkHandleNext_1 enqueues and delivers to one subscriber.
func BenchmarkHandleNext_1(b *testing.B) {
	benchmarkHandleNext(b, 1)
}

// BenchmarkHandleNext_10 enqueues and delivers to ten subscribers.
func BenchmarkHandleNext_10(b *testing.B) {
	benchmarkHandleNext(b, 10)
}

func benchmarkHandleNext(b *testing.B, handlers int) {
	q := newQueue(b, handlers)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.EnqueueAt(&tick{N: i}, "bench.go:1")
		q.HandleNext(ctx)
	}
}

// BenchmarkHandleCritical measures the synchronous critical path.
func BenchmarkHandleCritical(b *testing.B) {
	q := newQueue(b, 0)
	subscriber.Subscribe[*alarm](q.Subscribers(), subscriber.Func(func(context.Context, *alarm) error {
		return nil
	}))
	cq := queue.NewCriticalQueue(q)
	ctx := context.Background()
	evt := &alarm{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cq.HandleCritical(ctx, evt)
	}
}

// BenchmarkBackground_Parallel publishes from parallel goroutines to a
// background worker.
func BenchmarkBackground_Parallel(b *testing.B) {
	q := queue.NewBackgroundQueue(context.Background())
	subscriber.Subscribe[*tick](q.Subscribers(), subscriber.Func(func(context.Context, *tick) error {
		return nil
	}))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			q.EnqueueAt(&tick{}, "bench.go:1")
		}
	})
	b.StopTimer()
	_ = q.Shutdown(context.Background())
}
