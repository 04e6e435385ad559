package domain

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/pkg/logger"
)

// EventHandler processes a ticket event.
type EventHandler func(ctx context.Context, event *TicketEvent) error

// EventDispatcher routes ticket events to registered handlers.
type EventDispatcher struct {
	handlers map[EventType][]EventHandler
	all      []EventHandler
	mu       sync.RWMutex
}

// NewEventDispatcher creates a new EventDispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Register registers a handler for the given event types. With no types the
// handler receives every event.
func (d *EventDispatcher) Register(handler EventHandler, types ...EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(types) == 0 {
		d.all = append(d.all, handler)
		return
	}
	for _, t := range types {
		d.handlers[t] = append(d.handlers[t], handler)
	}
}

// Dispatch calls every matching handler in registration order. A failing
// handler is logged and does not stop the rest; the first error is returned.
func (d *EventDispatcher) Dispatch(ctx context.Context, event *TicketEvent) error {
	d.mu.RLock()
	handlers := make([]EventHandler, 0, len(d.all)+len(d.handlers[event.EventType]))
	handlers = append(handlers, d.handlers[event.EventType]...)
	handlers = append(handlers, d.all...)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debug("No handlers registered for event type",
			zap.String("event_type", string(event.EventType)),
			zap.String("event_id", event.EventID),
		)
		return nil
	}

	var firstErr error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			logger.Error("Event handler failed",
				zap.String("event_type", string(event.EventType)),
				zap.String("event_id", event.EventID),
				logger.TicketID(event.TicketID),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("handler for %s failed: %w", event.EventType, err)
			}
		}
	}
	return firstErr
}
