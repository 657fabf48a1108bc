package queue_test

import (
	"context"
	"sync"

	"github.com/randalmurphal/eventqueue/pkg/eventqueue/event"
	"github.com/randalmurphal/eventqueue/pkg/eventqueue/subscriber"
)

type textChanged struct {
	event.Base
	Text string
}

type powerLoss struct {
	event.CriticalBase
	Reason string
}

// journal records deliveries in order and is safe for concurrent use.
type journal struct {
	mu      sync.Mutex
	entries []event.Event
}

func (j *journal) HandleEvent(_ context.Context, evt event.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, evt)
	return nil
}

func (j *journal) events() []event.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]event.Event, len(j.entries))
	copy(out, j.entries)
	return out
}

func (j *journal) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// texts returns the Text of every recorded *textChanged.
func (j *journal) texts() []string {
	var out []string
	for _, evt := range j.events() {
		if tc, ok := evt.(*textChanged); ok {
			out = append(out, tc.Text)
		}
	}
	return out
}

// listenAll records every event delivered by reg.
func listenAll(reg *subscriber.Registry) *journal {
	j := &journal{}
	subscriber.Subscribe[event.Event](reg, j)
	return j
}
