// Package dispatcher routes lifecycle events to registered hooks. Hooks
// handle side channels such as logging, metrics, tracing and run history;
// report artifacts themselves are produced by the aggregator.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pentestflow/pentestflow/pkg/output/events"
)

// Hook is the interface for event hooks.
type Hook interface {
	// OnEvent is called for each matching event.
	OnEvent(ctx context.Context, event events.Event) error

	// EventTypes returns the event types this hook handles.
	// Return nil or empty slice to receive all events.
	EventTypes() []events.EventType
}

// Closer is implemented by hooks that hold resources.
type Closer interface {
	Close() error
}

// Dispatcher routes events to hooks. It is safe for concurrent use and a
// nil *Dispatcher discards everything.
type Dispatcher struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger
}

// New creates a dispatcher. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// RegisterHook adds a hook. Hooks receive events in registration order.
func (d *Dispatcher) RegisterHook(h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, h)
}

// Dispatch sends an event to every hook that handles it. Hook failures are
// collected and returned together so that one failing hook never prevents
// the others from seeing the event.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) []error {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var errs []error
	for _, h := range d.hooks {
		if !supports(h, event.EventType()) {
			continue
		}
		if err := h.OnEvent(ctx, event); err != nil {
			d.logger.Warn("hook failed",
				slog.String("event", string(event.EventType())),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errs
}

func supports(h Hook, eventType events.EventType) bool {
	types := h.EventTypes()
	if len(types) == 0 {
		return true
	}
	for _, et := range types {
		if et == eventType {
			return true
		}
	}
	return false
}

// Close closes every hook that implements Closer.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var first error
	for _, h := range d.hooks {
		if c, ok := h.(Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	d.hooks = nil
	return first
}
