package notify

import (
	"context"
	"sync"

	"github.com/akarpov/userhub/internal/models"
)

// Size of each subscriber buffer. A sink that falls this far behind
// starts losing events rather than blocking publishers.
const subscriberBuffer = 16

// Hub is an in-process broker: a registry of subscriber channels
// guarded by a mutex. Publish never blocks.
type Hub struct {
	mu   sync.Mutex
	subs map[chan models.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[chan models.Event]struct{}),
	}
}

func (h *Hub) Publish(ctx context.Context, event models.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			// Slow sink, drop the event for it
		}
	}

	return nil
}

// Subscribe registers a sink. It is released by the cancel func or,
// whichever happens first, by ctx cancellation.
func (h *Hub) Subscribe(ctx context.Context) (<-chan models.Event, func()) {
	ch := make(chan models.Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
			close(done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel
}

// Len returns the number of active subscribers
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
