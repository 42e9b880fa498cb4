package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var receivedEvent *Event
	_ = bus.Subscribe(EventSiteAdded, func(event *Event) {
		receivedEvent = event
	})

	data := map[string]interface{}{"identifier": "site-1"}
	bus.Emit(EventSiteAdded, "sitewriter", data)

	require.NotNil(t, receivedEvent)
	assert.Equal(t, EventSiteAdded, receivedEvent.Type)
	assert.Equal(t, "sitewriter", receivedEvent.Module)
	assert.Equal(t, "site-1", receivedEvent.Data["identifier"])
	assert.NotEmpty(t, receivedEvent.CorrelationID)
	assert.False(t, receivedEvent.Timestamp.IsZero())
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var callCount1, callCount2 int
	_ = bus.Subscribe(EventSiteAdded, func(*Event) { callCount1++ })
	_ = bus.Subscribe(EventSiteAdded, func(*Event) { callCount2++ })

	bus.Emit(EventSiteAdded, "test", map[string]interface{}{})

	assert.Equal(t, 1, callCount1)
	assert.Equal(t, 1, callCount2)
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	bus.Emit(EventSiteAdded, "test", map[string]interface{}{})
}

func TestBus_DifferentEventTypes(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var addedCount, removedCount int
	_ = bus.Subscribe(EventSiteAdded, func(*Event) { addedCount++ })
	_ = bus.Subscribe(EventSiteRemoved, func(*Event) { removedCount++ })

	bus.Emit(EventSiteAdded, "test", map[string]interface{}{})
	bus.Emit(EventSiteRemoved, "test", map[string]interface{}{})

	assert.Equal(t, 1, addedCount)
	assert.Equal(t, 1, removedCount)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var callCount int
	sub := bus.Subscribe(EventSiteAdded, func(*Event) { callCount++ })

	bus.Emit(EventSiteAdded, "test", map[string]interface{}{})
	bus.Unsubscribe(sub)
	bus.Emit(EventSiteAdded, "test", map[string]interface{}{})

	assert.Equal(t, 1, callCount, "handler should not be called after unsubscribe")
}

func TestBus_ListenerPanicDoesNotAffectOtherListeners(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var called bool
	_ = bus.Subscribe(EventSiteAdded, func(*Event) { panic("boom") })
	_ = bus.Subscribe(EventSiteAdded, func(*Event) { called = true })

	bus.Emit(EventSiteAdded, "test", map[string]interface{}{})

	assert.True(t, called, "a panicking listener must not prevent others from running")
}

func TestBus_ListenerCount(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	assert.Equal(t, 0, bus.ListenerCount(EventSiteAdded))

	sub := bus.Subscribe(EventSiteAdded, func(*Event) {})
	assert.Equal(t, 1, bus.ListenerCount(EventSiteAdded))

	bus.Unsubscribe(sub)
	assert.Equal(t, 0, bus.ListenerCount(EventSiteAdded))
}

func TestBus_SetMaxListeners_WarnsOnExcess(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	bus.SetMaxListeners(EventSiteAdded, 1)

	_ = bus.Subscribe(EventSiteAdded, func(*Event) {})
	_ = bus.Subscribe(EventSiteAdded, func(*Event) {})

	assert.Equal(t, 2, bus.ListenerCount(EventSiteAdded))
}

func TestBus_Use_MiddlewareRunsBeforeListeners(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var order []string
	bus.Use(func(event *Event) { order = append(order, "middleware") })
	_ = bus.Subscribe(EventSiteAdded, func(*Event) { order = append(order, "listener") })

	bus.Emit(EventSiteAdded, "test", map[string]interface{}{})

	require.Len(t, order, 2)
	assert.Equal(t, "middleware", order[0])
	assert.Equal(t, "listener", order[1])
}

func TestBus_MiddlewarePanicDoesNotBlockDispatch(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var called bool
	bus.Use(func(*Event) { panic("middleware boom") })
	_ = bus.Subscribe(EventSiteAdded, func(*Event) { called = true })

	bus.Emit(EventSiteAdded, "test", map[string]interface{}{})

	assert.True(t, called)
}

func TestEventType_IsInternal(t *testing.T) {
	assert.True(t, EventInternalSiteCacheUpdated.IsInternal())
	assert.False(t, EventSiteAdded.IsInternal())
}
