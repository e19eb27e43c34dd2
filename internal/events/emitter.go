package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEmitter is a simple implementation of the Emitter interface that
// stores registered handlers in memory and dispatches events to them.
type InMemoryEmitter struct {
	handlers map[int]Handler
	nextID   int
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEmitter creates a new instance of InMemoryEmitter.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	return &InMemoryEmitter{
		handlers: make(map[int]Handler),
		logger:   logger.With("component", "in_memory_emitter"),
	}
}

// Subscribe adds a new event handler and returns a cancel function that
// removes it again. The cancel function is safe to call more than once.
func (e *InMemoryEmitter) Subscribe(handler Handler) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = handler
	count := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("registered new event handler", "handler_count", count)

	return func() {
		e.mu.Lock()
		delete(e.handlers, id)
		e.mu.Unlock()
	}
}

// Emit publishes the given event to all registered handlers.
// If any handler returns an error, the event is still delivered to all
// other handlers, and the first error encountered is returned.
func (e *InMemoryEmitter) Emit(ctx context.Context, event *Event) error {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	e.logger.Debug("emitting event",
		"event_id", event.ID,
		"event_type", event.Type,
		"handler_count", len(handlers))

	if len(handlers) == 0 {
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
