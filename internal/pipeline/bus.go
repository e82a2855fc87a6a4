package pipeline

import (
	"sync"
)

// Handler processes an Event; return error to signal failure.
type Handler func(Event) error

// Bus is a simple synchronous pub/sub event bus. Handlers run on the
// publishing goroutine; the run history recorder and the daemon subscribe
// here.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

func NewBus() *Bus { return &Bus{subscribers: map[string][]Handler{}} }

// Subscribe registers a handler for a given event name.
func (b *Bus) Subscribe(event string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.subscribers[event] = append(b.subscribers[event], h)
	b.mu.Unlock()
}

// Publish delivers an event to all handlers synchronously, in subscription
// order. The first handler error stops delivery and is returned.
func (b *Bus) Publish(e Event) error {
	b.mu.RLock()
	hs := append([]Handler(nil), b.subscribers[e.Name()]...)
	b.mu.RUnlock()
	for _, h := range hs {
		if err := h(e); err != nil {
			return err
		}
	}
	return nil
}
