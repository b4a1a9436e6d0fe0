// Package bridge republishes the reconciled view and every push event to an
// MQTT broker, so other processes on the site can follow the camera without
// their own connection to the server.
//
// Topics, under the configured prefix:
//
//	<prefix>/view            retained JSON of the full view, on every change
//	<prefix>/events/<kind>   each push event in its wire form
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rickgao/camsync/internal/event"
	"github.com/rickgao/camsync/internal/state"
)

const queueSize = 256

// Stats counts bridge activity.
type Stats struct {
	Published int64
	Failed    int64
	Dropped   int64
}

type message struct {
	topic    string
	retained bool
	payload  []byte
}

// viewMessage is the payload of <prefix>/view.
type viewMessage struct {
	Source state.Source   `json:"source"`
	View   state.Snapshot `json:"view"`
}

// Bridge forwards to a Publisher from a single worker goroutine, so slow
// brokers never block event delivery.
type Bridge struct {
	pub    Publisher
	prefix string
	logger *slog.Logger

	queue chan message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// New creates a Bridge that publishes under prefix.
func New(pub Publisher, prefix string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		pub:    pub,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger,
		queue:  make(chan message, queueSize),
	}
}

// ViewTopic is where the retained view is published.
func (b *Bridge) ViewTopic() string { return b.prefix + "/view" }

// EventTopic is where events of kind are published.
func (b *Bridge) EventTopic(kind event.Kind) string { return b.prefix + "/events/" + string(kind) }

// Attach subscribes to every event kind on bus.
func (b *Bridge) Attach(bus *event.Bus) []event.Subscription {
	subs := make([]event.Subscription, 0, len(event.Kinds))
	for _, kind := range event.Kinds {
		subs = append(subs, bus.Subscribe(kind, func(ev event.Event) error {
			b.HandleEvent(ev)
			return nil
		}))
	}
	return subs
}

// HandleEvent queues one push event.
func (b *Bridge) HandleEvent(ev event.Event) {
	payload, err := event.Encode(ev)
	if err != nil {
		b.logger.Warn("cannot encode event for mqtt", "kind", ev.Kind(), "error", err)
		return
	}
	b.enqueue(message{topic: b.EventTopic(ev.Kind()), payload: payload})
}

// HandleChange queues the new view. It matches state.ChangeFunc.
func (b *Bridge) HandleChange(view state.Snapshot, source state.Source) {
	payload, err := json.Marshal(viewMessage{Source: source, View: view})
	if err != nil {
		b.logger.Warn("cannot encode view for mqtt", "error", err)
		return
	}
	b.enqueue(message{topic: b.ViewTopic(), retained: true, payload: payload})
}

func (b *Bridge) enqueue(m message) {
	select {
	case b.queue <- m:
	default:
		b.dropped.Add(1)
		b.logger.Warn("mqtt queue full, dropping message", "topic", m.topic)
	}
}

// Start runs the publish worker.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.run()

	b.logger.Info("mqtt bridge started", "prefix", b.prefix)
	return nil
}

// Stop publishes what is already queued, then closes the publisher.
func (b *Bridge) Stop(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for drained := false; !drained; {
		select {
		case m := <-b.queue:
			b.publish(m)
		default:
			drained = true
		}
	}
	b.pub.Close()

	b.logger.Info("mqtt bridge stopped")
	return nil
}

// Stats returns bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Failed:    b.failed.Load(),
		Dropped:   b.dropped.Load(),
	}
}

func (b *Bridge) run() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case m := <-b.queue:
			b.publish(m)
		}
	}
}

func (b *Bridge) publish(m message) {
	if err := b.pub.Publish(m.topic, 0, m.retained, m.payload); err != nil {
		b.failed.Add(1)
		b.logger.Warn("mqtt publish failed", "topic", m.topic, "error", err)
		return
	}
	b.published.Add(1)
}
