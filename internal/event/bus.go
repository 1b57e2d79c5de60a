package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 100

// InMemoryBus delivers each event to every live subscriber. A subscriber whose
// buffer is full misses the event; the publisher is never held up.
type InMemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	closed bool
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string]chan Event)}
}

func (b *InMemoryBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			slog.Warn("event dropped for slow subscriber", "subscriber", id, "type", string(e.Type), "event_id", e.ID)
		}
	}
}

// Subscribe returns a channel of future events and a function that detaches
// it. After Close the channel is returned already closed.
func (b *InMemoryBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := uuid.NewString()
	b.subs[id] = ch
	return ch, func() { b.detach(id) }
}

// Subscribers reports how many subscribers are attached.
func (b *InMemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close detaches every subscriber, closing their channels. Later publishes
// are dropped.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.closed = true
}

func (b *InMemoryBus) detach(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}
