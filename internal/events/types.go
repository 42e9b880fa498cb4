package events

import "time"

// Event is the payload every subscriber receives. CorrelationID is
// generated fresh per emission so a chain of events triggered by one
// user action can be traced through logs.
type Event struct {
	Type          EventType
	Module        string
	Timestamp     time.Time
	CorrelationID string
	Data          map[string]interface{}
}

// EventType is a closed registry of event names. Payload shape is
// determined by the name: every emitter and listener for a given
// EventType agrees on the keys it puts in/reads from Event.Data.
type EventType string

// Public event types — safe to forward to external subscribers (the
// websocket live stream in internal/server, the TUI).
const (
	// EventSiteAdded carries {"site": domain.Site}.
	EventSiteAdded EventType = "site:added"
	// EventSiteUpdated carries {"site": domain.Site}.
	EventSiteUpdated EventType = "site:updated"
	// EventSiteRemoved carries {"identifier": string}.
	EventSiteRemoved EventType = "site:removed"

	// EventMonitorStatusChanged carries {"site", "monitor", "previousStatus", "newStatus"}.
	EventMonitorStatusChanged EventType = "monitor:status-changed"
	// EventMonitorUp carries {"site", "monitor"}. Emitted in addition to
	// EventMonitorStatusChanged when a check's status differs from the
	// previous one and the new status is up (e.g. down->up, pending->up).
	EventMonitorUp EventType = "monitor:up"
	// EventMonitorDown carries {"site", "monitor"}. Emitted in addition to
	// EventMonitorStatusChanged when a check's status differs from the
	// previous one and the new status is down (e.g. up->down, pending->down).
	EventMonitorDown EventType = "monitor:down"

	// EventMonitoringStarted carries {"site": identifier string, "monitor":
	// monitor id string, empty for a site-wide start}. The correlation id
	// is the Event's own CorrelationID.
	EventMonitoringStarted EventType = "monitoring:started"
	// EventMonitoringStopped carries the same keys as EventMonitoringStarted.
	EventMonitoringStopped EventType = "monitoring:stopped"

	// EventDatabaseTransactionCompleted carries {"operation", "durationMs"}.
	EventDatabaseTransactionCompleted EventType = "database:transaction-completed"

	// EventHistoryLimitChanged carries {"limit": int}.
	EventHistoryLimitChanged EventType = "history:limit-changed"
	// EventDataImported carries {"sites": int}.
	EventDataImported EventType = "data:imported"
	// EventDataExported carries {"sites": int}.
	EventDataExported EventType = "data:exported"
)

// Internal event types — used only between core components, never
// forwarded to external subscribers.
const (
	// EventInternalSiteCacheUpdated carries {"site": domain.Site} and is
	// emitted by internal/sitecache after a commit so the in-memory cache
	// stays the single source of truth for reads.
	EventInternalSiteCacheUpdated EventType = "internal:site:cache-updated"
	// EventInternalMonitorStarted carries {"siteId", "monitorId"}.
	EventInternalMonitorStarted EventType = "internal:monitor:started"
	// EventInternalMonitorStopped carries {"siteId", "monitorId"}.
	EventInternalMonitorStopped EventType = "internal:monitor:stopped"
)

// IsInternal reports whether an event type is in the internal:* namespace
// and must never be forwarded to external subscribers (the HTTP/websocket
// command surface filters on this before relaying a Bus subscription).
func (t EventType) IsInternal() bool {
	return len(t) >= len("internal:") && t[:len("internal:")] == "internal:"
}
