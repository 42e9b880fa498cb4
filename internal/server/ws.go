package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/uptimewatcher/watcher/internal/events"
)

// eventChanBuffer bounds how many unconsumed events a single websocket
// subscriber can queue before enqueueEvent starts dropping the oldest one;
// a slow UI client must never apply backpressure to event emission.
const eventChanBuffer = 64

// streamedEventTypes is the closed set of bus events forwarded to
// external subscribers. internal:* events are never included — see
// events.EventType.IsInternal.
var streamedEventTypes = []events.EventType{
	events.EventSiteAdded,
	events.EventSiteUpdated,
	events.EventSiteRemoved,
	events.EventMonitorStatusChanged,
	events.EventMonitorUp,
	events.EventMonitorDown,
	events.EventMonitoringStarted,
	events.EventMonitoringStopped,
	events.EventHistoryLimitChanged,
	events.EventDataImported,
	events.EventDataExported,
}

// wireEvent is the JSON shape pushed to a websocket subscriber.
type wireEvent struct {
	Type          events.EventType       `json:"type"`
	Module        string                 `json:"module"`
	CorrelationID string                 `json:"correlationId"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

// eventsStreamHandler pushes events.Bus events to websocket subscribers.
// One subscription per connection, torn down when the client disconnects.
type eventsStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

func newEventsStreamHandler(bus *events.Bus, log zerolog.Logger) *eventsStreamHandler {
	return &eventsStreamHandler{bus: bus, log: log.With().Str("handler", "events_stream").Logger()}
}

// enqueueEvent pushes an event onto ch, dropping the oldest queued event
// first if ch is full rather than blocking the bus's synchronous Emit
// call — a slow websocket reader must never stall every other listener.
func (h *eventsStreamHandler) enqueueEvent(ch chan *events.Event, event *events.Event) {
	select {
	case ch <- event:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- event:
	default:
	}
}

// ServeHTTP upgrades the request to a websocket and streams every
// external bus event until the client disconnects or the server shuts
// down.
func (h *eventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	eventChan := make(chan *events.Event, eventChanBuffer)

	var subs []events.Subscription
	for _, eventType := range streamedEventTypes {
		sub := h.bus.Subscribe(eventType, func(event *events.Event) {
			h.enqueueEvent(eventChan, event)
		})
		subs = append(subs, sub)
	}
	defer func() {
		for _, sub := range subs {
			h.bus.Unsubscribe(sub)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, wireEvent{
				Type:          event.Type,
				Module:        event.Module,
				CorrelationID: event.CorrelationID,
				Data:          event.Data,
			})
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("websocket write failed, closing")
				return
			}
		}
	}
}
