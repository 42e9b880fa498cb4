// Package monitors implements the probe services that actually reach out
// over the network: one Service per domain.MonitorType. Every Service is
// pure — it persists nothing and emits no events — so internal/checker can
// run it under a retry policy without special-casing failure modes.
package monitors

import (
	"context"
	"errors"
	"time"

	"github.com/uptimewatcher/watcher/internal/domain"
)

// ErrCancelled is returned when a check is aborted mid-flight via its
// context. Callers treat it identically to a Result with Status=down.
var ErrCancelled = errors.New("check cancelled")

// Result is the outcome of a single probe.
type Result struct {
	Status       domain.MonitorStatus
	ResponseTime time.Duration
	Details      string
}

// Service checks one monitor. ctx carries the timeout; cancelling ctx before
// the probe settles must make Check return promptly, either with a
// Status=down Result carrying the elapsed time, or ErrCancelled — the
// status checker handles both the same way.
type Service interface {
	Check(ctx context.Context, monitor domain.Monitor) (Result, error)
}

// Registry maps a domain.MonitorType to the Service that handles it. The
// set of monitor types is closed (domain.MonitorType's const block); there
// is no runtime plugin mechanism (see internal/domain/models.go).
type Registry struct {
	services map[domain.MonitorType]Service
}

// NewRegistry builds the registry with the built-in HTTP and Port services.
func NewRegistry() *Registry {
	return &Registry{
		services: map[domain.MonitorType]Service{
			domain.MonitorTypeHTTP: NewHTTPService(),
			domain.MonitorTypePort: NewPortService(),
		},
	}
}

// Get returns the Service for a monitor type, or false if none is
// registered (a programmer error — every domain.MonitorType must have a
// Service registered here).
func (r *Registry) Get(monitorType domain.MonitorType) (Service, bool) {
	s, ok := r.services[monitorType]
	return s, ok
}

// elapsedDownResult builds the Result a Service returns when ctx is
// cancelled before the underlying I/O completed.
func elapsedDownResult(start time.Time, details string) Result {
	return Result{Status: domain.StatusDown, ResponseTime: time.Since(start), Details: details}
}
