package event

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const subscriberBuffer = 100

type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	dropped     atomic.Int64
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string]chan Event),
	}
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (b *InMemoryBus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
			slog.Warn("event dropped for slow subscriber", "type", e.Type, "event_id", e.ID)
		}
	}
}

func (b *InMemoryBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, exists := b.subscribers[id]; exists {
			close(ch)
			delete(b.subscribers, id)
		}
	}

	return ch, unsubscribe
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (b *InMemoryBus) Dropped() int64 {
	return b.dropped.Load()
}
