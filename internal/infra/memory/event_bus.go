package memory

import (
	"context"
	"sync"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

// EventBus fans events out to in-process subscribers. It implements both
// app.Publisher and app.Subscriber for single-instance deployments.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[chan domain.Event]struct{}
	buffer int
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan domain.Event]struct{}), buffer: 64}
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (b *EventBus) Publish(_ context.Context, ev domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *EventBus) Subscribe(_ context.Context) (<-chan domain.Event, func(), error) {
	ch := make(chan domain.Event, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}
