// Package events implements the process-local typed pub/sub bus: subscribers
// register by event name, emission dispatches to every listener synchronously
// and in registration order, and a listener's panic is caught and logged
// rather than propagating to other listeners or the emitter.
package events

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventHandler is a function that handles events.
type EventHandler func(*Event)

// Middleware runs synchronously, in registration order, before an event is
// dispatched to listeners. A middleware that panics is caught and logged;
// dispatch proceeds to listeners regardless, since a middleware failure
// must never suppress the underlying event.
type Middleware func(*Event)

// Subscription represents a registered event handler, used to unsubscribe
// when a consumer disconnects.
type Subscription struct {
	eventType EventType
	id        uint64
}

// defaultMaxListeners is the diagnostic warning threshold for any single
// event type, mirroring Node's EventEmitter default of 10 — exceeding it
// usually indicates a subscription leak rather than a deliberate design.
const defaultMaxListeners = 10

// Bus provides pub/sub event functionality.
type Bus struct {
	subscribers  map[EventType]map[uint64]EventHandler
	nextID       uint64
	maxListeners map[EventType]int
	middleware   []Middleware
	mu           sync.RWMutex
	log          zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers:  make(map[EventType]map[uint64]EventHandler),
		maxListeners: make(map[EventType]int),
		log:          log.With().Str("service", "events").Logger(),
	}
}

// Use registers a middleware. Middleware run in registration order, before
// any listener for the emitted event.
func (b *Bus) Use(mw Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, mw)
}

// SetMaxListeners sets the diagnostic warning threshold for an event type.
// It does not cap the number of subscriptions; Subscribe still succeeds
// past the threshold, but logs a warning so leaks surface in logs.
func (b *Bus) SetMaxListeners(eventType EventType, max int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxListeners[eventType] = max
}

// ListenerCount returns the number of handlers currently subscribed to an
// event type.
func (b *Bus) ListenerCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}

// EventNames returns every event type with at least one subscriber.
func (b *Bus) EventNames() []EventType {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]EventType, 0, len(b.subscribers))
	for eventType, handlers := range b.subscribers {
		if len(handlers) > 0 {
			names = append(names, eventType)
		}
	}
	return names
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType EventType, handler EventHandler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	if _, ok := b.subscribers[eventType]; !ok {
		b.subscribers[eventType] = make(map[uint64]EventHandler)
	}
	b.subscribers[eventType][id] = handler

	limit := b.maxListeners[eventType]
	if limit == 0 {
		limit = defaultMaxListeners
	}
	if count := len(b.subscribers[eventType]); count > limit {
		b.log.Warn().
			Str("event_type", string(eventType)).
			Int("listener_count", count).
			Int("max_listeners", limit).
			Msg("possible event listener leak detected")
	}

	return Subscription{eventType: eventType, id: id}
}

// Unsubscribe removes a previously registered handler. Safe to call
// multiple times.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.subscribers[sub.eventType]; ok {
		delete(handlers, sub.id)
		if len(handlers) == 0 {
			delete(b.subscribers, sub.eventType)
		}
	}
}

// Emit publishes an event to all subscribers. Middleware and listeners all
// run synchronously, in the order they were registered, so a caller that
// emits a chain of events knows every prior listener has already observed
// the one before it by the time Emit returns.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:          eventType,
		Module:        module,
		Data:          data,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
	}

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("correlation_id", event.CorrelationID).
		Msg("Starting emission")

	b.mu.RLock()
	middleware := b.middleware
	b.mu.RUnlock()
	for _, mw := range middleware {
		b.runMiddleware(mw, event)
	}

	// Snapshot handlers while holding the lock so newly-added listeners
	// registered during this emission are not delivered the in-flight
	// event.
	b.mu.RLock()
	var handlers []EventHandler
	if registered := b.subscribers[eventType]; len(registered) > 0 {
		// Subscription ids increase with each Subscribe call, so sorting
		// them restores registration order that map iteration loses.
		ids := make([]uint64, 0, len(registered))
		for id := range registered {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		handlers = make([]EventHandler, 0, len(registered))
		for _, id := range ids {
			handlers = append(handlers, registered[id])
		}
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(handler, event)
	}

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("correlation_id", event.CorrelationID).
		Str("module", module).
		Int("subscribers", len(handlers)).
		Msg("Successfully emitted")
}

// dispatch invokes a single handler, catching and logging any panic so one
// misbehaving listener can never affect another or the emitter.
func (b *Bus) dispatch(handler EventHandler, event *Event) {
	defer func() {
		if p := recover(); p != nil {
			b.log.Error().
				Str("event_type", string(event.Type)).
				Str("correlation_id", event.CorrelationID).
				Interface("panic", p).
				Msg("event listener panicked")
		}
	}()
	handler(event)
}

// runMiddleware invokes one middleware, catching and logging any panic so
// dispatch to listeners still proceeds.
func (b *Bus) runMiddleware(mw Middleware, event *Event) {
	defer func() {
		if p := recover(); p != nil {
			b.log.Error().
				Str("event_type", string(event.Type)).
				Str("correlation_id", event.CorrelationID).
				Interface("panic", p).
				Msg("event middleware panicked")
		}
	}()
	mw(event)
}
