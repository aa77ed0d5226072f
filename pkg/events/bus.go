package events

import (
	"log/slog"
	"sync"

	"github.com/coreflow-dev/agentcore/pkg/model"
)

// ringSize bounds the in-memory replay buffer kept for introspection (e.g.
// an admin endpoint dumping "what just happened"). It is not a durability
// mechanism — ActivityStream is.
const ringSize = 500

// wildcard is the subscription key that receives every published event,
// regardless of Type.
const wildcard = "*"

// Subscriber receives a published Event. A Subscriber that returns an error
// only has that error logged — it never blocks or cancels delivery to
// other subscribers.
type Subscriber func(model.Event) error

// Bus is an in-process, synchronous publish/subscribe fan-out keyed by
// event type, with a wildcard subscription for bridges and loggers.
// Order within a single publishing goroutine is preserved: Publish invokes
// every matching subscriber, one at a time, before returning.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	ring        []model.Event
	ringPos     int
	logger      *slog.Logger
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: map[string][]Subscriber{},
		ring:        make([]model.Event, 0, ringSize),
		logger:      slog.Default().With("component", "event-bus"),
	}
}

// Subscribe registers a handler for a specific event type. Use SubscribeAll
// for a handler that should see every event.
func (b *Bus) Subscribe(eventType string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)
}

// SubscribeAll registers a wildcard handler, invoked for every published event.
func (b *Bus) SubscribeAll(sub Subscriber) {
	b.Subscribe(wildcard, sub)
}

// Publish records the event in the ring buffer, then invokes every
// type-specific subscriber followed by every wildcard subscriber. A
// subscriber error is logged and does not prevent the remaining
// subscribers from running.
func (b *Bus) Publish(evt model.Event) {
	b.mu.Lock()
	b.appendRingLocked(evt)
	typed := append([]Subscriber{}, b.subscribers[evt.Type]...)
	all := append([]Subscriber{}, b.subscribers[wildcard]...)
	b.mu.Unlock()

	for _, sub := range typed {
		if err := sub(evt); err != nil {
			b.logger.Error("event subscriber failed", "event_type", evt.Type, "error", err)
		}
	}
	for _, sub := range all {
		if err := sub(evt); err != nil {
			b.logger.Error("wildcard event subscriber failed", "event_type", evt.Type, "error", err)
		}
	}
}

func (b *Bus) appendRingLocked(evt model.Event) {
	if len(b.ring) < ringSize {
		b.ring = append(b.ring, evt)
		return
	}
	b.ring[b.ringPos] = evt
	b.ringPos = (b.ringPos + 1) % ringSize
}

// Recent returns up to n most-recently-published events, newest last. It is
// a best-effort introspection snapshot, not an authoritative replay log —
// use ActivityStream for that.
func (b *Bus) Recent(n int) []model.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > len(b.ring) {
		n = len(b.ring)
	}
	out := make([]model.Event, 0, n)
	if len(b.ring) < ringSize {
		start := len(b.ring) - n
		out = append(out, b.ring[start:]...)
		return out
	}
	// Ring is full: oldest entry is at ringPos.
	for i := 0; i < n; i++ {
		idx := (b.ringPos + (ringSize - n) + i) % ringSize
		out = append(out, b.ring[idx])
	}
	return out
}
