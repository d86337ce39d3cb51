// Package events publishes operative lifecycle events to live subscribers.
package events

import (
	"context"
	"sync"

	"patrolops/api/internal/model"
)

// Publisher delivers an event after the mutation it describes was persisted.
type Publisher interface {
	Publish(ctx context.Context, event model.OperativeEvent) error
}

// Handler receives events from a Bus or a NATS subscription.
type Handler func(event model.OperativeEvent)

// Bus is an in-process publisher used when NATS is disabled.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty in-process bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for every future event.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish calls every handler synchronously.
func (b *Bus) Publish(_ context.Context, event model.OperativeEvent) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, model.OperativeEvent) error { return nil }
