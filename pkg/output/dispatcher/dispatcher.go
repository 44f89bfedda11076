// Package dispatcher routes scan lifecycle events to registered hooks.
//
// The orchestrator emits events; hooks (logging, metrics, tracing) consume
// them. A failing or panicking hook never affects the scan or other hooks.
package dispatcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/waftester/reconsuite/pkg/output/events"
)

// Hook is the interface for event hooks.
type Hook interface {
	// OnEvent is called for each matching event.
	OnEvent(ctx context.Context, event events.Event) error

	// EventTypes returns the event types this hook handles.
	// Return nil or empty slice to receive all events.
	EventTypes() []events.EventType
}

// Dispatcher routes events to hooks. It is safe for concurrent use.
type Dispatcher struct {
	hooks  []Hook
	mu     sync.RWMutex
	closed bool

	async  bool
	hookWG sync.WaitGroup
	logger *slog.Logger
}

// Config configures the dispatcher behavior.
type Config struct {
	// Async runs each hook call in its own goroutine. Close waits for them.
	Async bool

	// Logger receives hook failures at debug level. Nil means slog.Default().
	Logger *slog.Logger
}

// New creates a new event dispatcher with the given configuration.
func New(cfg Config) *Dispatcher {
	l := cfg.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Dispatcher{async: cfg.Async, logger: l}
}

// RegisterHook adds a hook to the dispatcher.
func (d *Dispatcher) RegisterHook(h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, h)
}

// Hooks returns the number of registered hooks.
func (d *Dispatcher) Hooks() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hooks)
}

// Dispatch sends an event to every hook that handles its type. Events sent
// after Close are dropped. A nil Dispatcher drops everything.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	for _, h := range d.hooks {
		if !supports(h, event.EventType()) {
			continue
		}
		if d.async {
			d.hookWG.Add(1)
			go func(hook Hook) {
				defer d.hookWG.Done()
				d.call(ctx, hook, event)
			}(h)
			continue
		}
		d.call(ctx, h, event)
	}
}

func (d *Dispatcher) call(ctx context.Context, h Hook, event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("event hook panicked",
				slog.String("hook", fmt.Sprintf("%T", h)),
				slog.String("event", string(event.EventType())),
				slog.Any("panic", r))
		}
	}()
	if err := h.OnEvent(ctx, event); err != nil {
		d.logger.Debug("event hook failed",
			slog.String("hook", fmt.Sprintf("%T", h)),
			slog.String("event", string(event.EventType())),
			slog.String("error", err.Error()))
	}
}

func supports(h Hook, t events.EventType) bool {
	types := h.EventTypes()
	return len(types) == 0 || slices.Contains(types, t)
}

// Close stops accepting events, waits for in-flight async hook calls, and
// closes every hook that implements io.Closer. It is idempotent.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	hooks := d.hooks
	d.mu.Unlock()

	d.hookWG.Wait()

	var firstErr error
	for _, h := range hooks {
		if c, ok := h.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
