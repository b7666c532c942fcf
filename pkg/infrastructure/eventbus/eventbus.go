// Package eventbus provides the in-process implementation of the domain
// event bus. Relay services publish message and conversation lifecycle
// events here; the API layer bridges them to WebSocket clients.
package eventbus

import (
	"sync"

	"github.com/smartkrishi/smsgate/pkg/domain"
)

// Bus is a synchronous in-process event bus. Events are dispatched to
// handlers on the publisher's goroutine, so handlers must be fast and must
// not publish re-entrantly under their own locks.
type Bus struct {
	handlers    map[domain.EventType][]domain.EventHandler
	allHandlers []domain.EventHandler
	mu          sync.RWMutex
	closed      bool
}

// New creates a new in-process event bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[domain.EventType][]domain.EventHandler),
	}
}

// Publish dispatches an event to typed handlers first, then global ones.
// Handler slices are copied out under the read lock so a handler may safely
// subscribe more handlers.
func (b *Bus) Publish(event domain.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	typed := append([]domain.EventHandler(nil), b.handlers[event.EventType()]...)
	global := append([]domain.EventHandler(nil), b.allHandlers...)
	b.mu.RUnlock()

	for _, handler := range typed {
		handler(event)
	}
	for _, handler := range global {
		handler(event)
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler that receives every event.
func (b *Bus) SubscribeAll(handler domain.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.allHandlers = append(b.allHandlers, handler)
}

// PublishAll dispatches multiple events, e.g. from AggregateRoot.PullEvents.
func (b *Bus) PublishAll(events []domain.Event) {
	for _, event := range events {
		b.Publish(event)
	}
}

// Close marks the bus as closed. No more events will be dispatched.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
}

// Verify interface compliance at compile time.
var _ domain.EventBus = (*Bus)(nil)
