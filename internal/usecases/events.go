package usecases

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"coinledger.backend/internal/domain/entities"
	"coinledger.backend/pkg/logger"
)

// EventHandler consumes one ledger event. Handlers run synchronously on
// the publishing goroutine and must not block.
type EventHandler func(ctx context.Context, ev entities.LedgerEvent)

// EventBus is the in-process publish path for ledger events. Delivery
// beyond the process boundary (email, webhooks) is the host's concern;
// the host subscribes whatever consumers it needs at startup.
type EventBus struct {
	mu       sync.RWMutex
	handlers []EventHandler
}

// NewEventBus creates an empty event bus
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler for every subsequent event.
func (b *EventBus) Subscribe(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish fans the event out to every handler. A panicking handler is
// logged and does not take down the engine or the other handlers.
func (b *EventBus) Publish(ctx context.Context, ev entities.LedgerEvent) {
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(ctx, "ledger event handler panicked",
					zap.Any("panic", r), zap.String("event", string(ev.Type)))
				}
			}()
			h(ctx, ev)
		}()
	}
}
