package event

import (
	"fmt"
	"log/slog"
	"sync"
)

// Handler receives events published on a Bus. A returned error is logged by
// the bus and does not affect other handlers.
type Handler func(Event) error

// Subscription identifies one registered handler.
type Subscription struct {
	kind Kind
	id   uint64
}

// Kind returns the dispatch key the subscription listens on.
func (s Subscription) Kind() Kind {
	return s.kind
}

// BusStats contains runtime statistics.
type BusStats struct {
	Published     int64 // Events passed to Publish
	Delivered     int64 // Handler invocations
	Unrouted      int64 // Events published with no handler for their kind
	HandlerErrors int64 // Handlers that returned an error or panicked
}

type entry struct {
	id      uint64
	handler Handler
}

// Bus is a per-kind listener registry. Handlers run synchronously on the
// publishing goroutine in subscription order.
type Bus struct {
	logger *slog.Logger

	mu       sync.Mutex
	nextID   uint64
	handlers map[Kind][]entry
	stats    BusStats
}

// NewBus creates an empty Bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[Kind][]entry),
	}
}

// Subscribe registers h for events of the given kind.
func (b *Bus) Subscribe(kind Kind, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], entry{id: b.nextID, handler: h})

	return Subscription{kind: kind, id: b.nextID}
}

// Unsubscribe removes a handler. It reports whether the subscription was
// still registered.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[sub.kind]
	for i, e := range list {
		if e.id != sub.id {
			continue
		}
		// Copy so that a Publish iterating the old slice is unaffected.
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, sub.kind)
		} else {
			b.handlers[sub.kind] = next
		}
		return true
	}
	return false
}

// Publish delivers ev to every handler subscribed to ev.Kind().
// Publishing a kind with no subscribers is a no-op.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	kind := ev.Kind()

	b.mu.Lock()
	b.stats.Published++
	list := b.handlers[kind]
	if len(list) == 0 {
		b.stats.Unrouted++
	}
	b.mu.Unlock()

	var failed int64
	for _, e := range list {
		if err := b.invoke(e.handler, ev); err != nil {
			failed++
			b.logger.Warn("event handler failed",
				"kind", kind,
				"subscription", e.id,
				"error", err,
			)
		}
	}

	b.mu.Lock()
	b.stats.Delivered += int64(len(list))
	b.stats.HandlerErrors += failed
	b.mu.Unlock()
}

// Stats returns current statistics.
func (b *Bus) Stats() BusStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// invoke runs one handler, converting a panic into an error.
func (b *Bus) invoke(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ev)
}
