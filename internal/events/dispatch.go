// Package events maps lifecycle events to ordered handler lists.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/metrics"
)

// HandlerFunc handles one event payload.
type HandlerFunc func(ctx context.Context, payload any) error

type entry struct {
	name    string
	handler HandlerFunc
}

// Table maps event types to handlers kept in registration order.
type Table struct {
	mu       sync.RWMutex
	handlers map[domain.EventType][]entry
	logger   *zap.Logger
	metrics  *metrics.Metrics
	inflight sync.WaitGroup
}

// NewTable creates an empty dispatch table.
func NewTable(logger *zap.Logger, m *metrics.Metrics) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{
		handlers: make(map[domain.EventType][]entry),
		logger:   logger,
		metrics:  m,
	}
}

// On appends a handler for the event. name identifies it in logs.
func (t *Table) On(event domain.EventType, name string, handler HandlerFunc) {
	if handler == nil {
		panic(fmt.Sprintf("events: nil handler %q for %s", name, event))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[event] = append(t.handlers[event], entry{name: name, handler: handler})
}

// Handlers returns the handler names registered for the event, in order.
func (t *Table) Handlers(event domain.EventType) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.handlers[event]))
	for _, e := range t.handlers[event] {
		names = append(names, e.name)
	}
	return names
}

// Emit runs every handler of the event in registration order. A failing or
// panicking handler does not stop the ones after it; their errors are joined.
// Emitting an event without handlers is a no-op.
func (t *Table) Emit(ctx context.Context, event domain.EventType, payload any) error {
	t.mu.RLock()
	list := t.handlers[event]
	t.mu.RUnlock()

	var errs []error
	for _, e := range list {
		if err := t.run(ctx, e, payload); err != nil {
			t.logger.Error("event handler failed",
				zap.String("event", string(event)),
				zap.String("handler", e.name),
				zap.Error(err))
			t.metrics.IncHandlerError(string(event))
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Table) run(ctx context.Context, e entry, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return e.handler(ctx, payload)
}

// EmitAsync runs Emit in its own goroutine, detached from ctx cancellation.
// Errors are logged by Emit.
func (t *Table) EmitAsync(ctx context.Context, event domain.EventType, payload any) {
	ctx = context.WithoutCancel(ctx)
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		_ = t.Emit(ctx, event, payload)
	}()
}

// Wait blocks until every EmitAsync call has finished.
func (t *Table) Wait() {
	t.inflight.Wait()
}
