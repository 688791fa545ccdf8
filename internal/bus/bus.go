// Package bus implements the synchronous in-process event bus for
// triage events.
//
// Publishing delivers to subscribers on the caller's goroutine, in
// registration order. A misbehaving subscriber (panic) is isolated:
// later subscribers still receive the event and the publish itself
// never fails. The bus keeps a bounded in-memory history for
// inspection; history is not durable across restarts.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/ashita-ai/monban/internal/model"
)

var busMeter = otel.GetMeterProvider().Meter("monban/bus")

// Handler receives published events. Handlers run synchronously on
// the publisher's goroutine and must not block for long.
type Handler func(model.Event)

type subscriber struct {
	name string
	fn   Handler
}

// Metrics is a point-in-time snapshot of bus counters.
type Metrics struct {
	TotalEvents   int64                     `json:"total_events"`
	EventsByType  map[model.EventType]int64 `json:"events_by_type"`
	LastEventTime time.Time                 `json:"last_event_time"`
}

// Bus is the in-process pub/sub hub. Safe for concurrent use.
type Bus struct {
	logger *slog.Logger

	mu           sync.RWMutex
	subscribers  map[model.EventType][]subscriber
	history      []model.Event
	historyLimit int

	totalEvents   int64
	eventsByType  map[model.EventType]int64
	lastEventTime time.Time
}

// New creates a bus whose history keeps at most historyLimit events.
// A non-positive limit falls back to 1000.
func New(logger *slog.Logger, historyLimit int) *Bus {
	if historyLimit <= 0 {
		historyLimit = 1000
	}
	return &Bus{
		logger:       logger,
		subscribers:  make(map[model.EventType][]subscriber),
		historyLimit: historyLimit,
		eventsByType: make(map[model.EventType]int64),
	}
}

// Subscribe registers fn for events of type t. The name identifies
// the subscriber in logs when it fails.
func (b *Bus) Subscribe(t model.EventType, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], subscriber{name: name, fn: fn})
}

// Publish records evt in the history, updates metrics, and delivers
// it to every subscriber of its type in registration order. Missing
// ID and timestamp fields are filled in.
func (b *Bus) Publish(ctx context.Context, evt model.Event) model.Event {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	b.mu.Lock()
	if len(b.history) >= b.historyLimit {
		b.history = b.history[1:]
	}
	b.history = append(b.history, evt)
	b.totalEvents++
	b.eventsByType[evt.Type]++
	b.lastEventTime = evt.OccurredAt
	subs := make([]subscriber, len(b.subscribers[evt.Type]))
	copy(subs, b.subscribers[evt.Type])
	b.mu.Unlock()

	// Record metrics (best-effort, instruments lazily created).
	if counter, err := busMeter.Int64Counter("bus.events_published"); err == nil {
		counter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("event.type", string(evt.Type)),
		))
	}

	// Deliver outside the lock so handlers may publish follow-up
	// events without deadlocking.
	for _, sub := range subs {
		b.deliver(sub, evt)
	}
	return evt
}

// deliver invokes one subscriber, converting a panic into a log line
// so the remaining subscribers still run.
func (b *Bus) deliver(sub subscriber, evt model.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus: subscriber panicked",
				"subscriber", sub.name,
				"event_type", evt.Type,
				"event_id", evt.ID,
				"panic", r,
			)
		}
	}()
	sub.fn(evt)
}

// Events returns history records, oldest first. A non-nil filter
// restricts by type. A positive limit returns only the most recent
// limit records (still in chronological order).
func (b *Bus) Events(filter *model.EventType, limit int) []model.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []model.Event
	for _, evt := range b.history {
		if filter != nil && evt.Type != *filter {
			continue
		}
		out = append(out, evt)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Metrics returns a snapshot of the bus counters.
func (b *Bus) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()

	byType := make(map[model.EventType]int64, len(b.eventsByType))
	for t, n := range b.eventsByType {
		byType[t] = n
	}
	return Metrics{
		TotalEvents:   b.totalEvents,
		EventsByType:  byType,
		LastEventTime: b.lastEventTime,
	}
}
