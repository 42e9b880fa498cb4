package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/events"
)

// ProbeFunc performs one check of a monitor. The scheduler invokes it and
// nothing else — persistence, retries and event emission all live in
// internal/checker, which supplies this callback.
type ProbeFunc func(siteID string, monitor domain.Monitor)

// monitorJob is one running timer, keyed by monitor ID.
type monitorJob struct {
	siteID  string
	ticker  *time.Ticker
	stop    chan struct{}
	stopped sync.Once
}

// MonitorScheduler owns one repeating timer per monitor. It never persists
// history or decides status itself; every probe invocation is delegated to
// an injected ProbeFunc. It emits the internal:monitor:started/stopped
// events when a monitor's timer actually starts or stops ticking,
// independent of who asked for it. Being internal:* events, they are not
// forwarded by the websocket stream in internal/server.
type MonitorScheduler struct {
	probe ProbeFunc
	bus   *events.Bus
	log   zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*monitorJob // keyed by monitor.ID
}

// NewMonitorScheduler creates a MonitorScheduler that calls probe for
// every immediate and interval check it triggers.
func NewMonitorScheduler(probe ProbeFunc, bus *events.Bus, log zerolog.Logger) *MonitorScheduler {
	return &MonitorScheduler{
		probe: probe,
		bus:   bus,
		log:   log.With().Str("component", "monitor_scheduler").Logger(),
		jobs:  make(map[string]*monitorJob),
	}
}

// StartMonitor registers a repeating timer for monitor with period =
// monitor.CheckInterval, after stopping any prior timer for the same ID
// so at most one timer ever runs per monitor. It runs one immediate probe
// in its own goroutine before the first tick, so starting a batch of
// monitors in a loop returns immediately instead of blocking on however
// long each probe's timeout allows.
func (s *MonitorScheduler) StartMonitor(siteID string, monitor domain.Monitor) bool {
	s.mu.Lock()
	if existing, ok := s.jobs[monitor.ID]; ok {
		s.stopLocked(monitor.ID, existing)
	}

	interval := monitor.CheckInterval
	if interval <= 0 {
		interval = domain.DefaultCheckInterval
	}

	job := &monitorJob{
		siteID: siteID,
		ticker: time.NewTicker(interval),
		stop:   make(chan struct{}),
	}
	s.jobs[monitor.ID] = job
	s.mu.Unlock()

	go s.probe(siteID, monitor)

	go func() {
		for {
			select {
			case <-job.stop:
				job.ticker.Stop()
				return
			case <-job.ticker.C:
				s.probe(siteID, monitor)
			}
		}
	}()

	s.bus.Emit(events.EventInternalMonitorStarted, "monitor_scheduler", map[string]interface{}{
		"siteId":    siteID,
		"monitorId": monitor.ID,
	})

	s.log.Debug().
		Str("monitor_id", monitor.ID).
		Str("site_id", siteID).
		Dur("interval", interval).
		Msg("monitor scheduled")
	return true
}

// StopMonitor cancels and removes the timer for monitorID, if present.
// Idempotent: stopping an unscheduled monitor is a no-op.
func (s *MonitorScheduler) StopMonitor(monitorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[monitorID]
	if !ok {
		return
	}
	s.stopLocked(monitorID, job)
}

// stopLocked stops and forgets job. Callers must hold s.mu.
func (s *MonitorScheduler) stopLocked(monitorID string, job *monitorJob) {
	job.stopped.Do(func() { close(job.stop) })
	delete(s.jobs, monitorID)

	s.bus.Emit(events.EventInternalMonitorStopped, "monitor_scheduler", map[string]interface{}{
		"siteId":    job.siteID,
		"monitorId": monitorID,
	})

	s.log.Debug().Str("monitor_id", monitorID).Msg("monitor unscheduled")
}

// StartSite schedules every monitor in monitors whose Monitoring flag is
// true; monitors with Monitoring=false are left unscheduled.
func (s *MonitorScheduler) StartSite(siteID string, monitors []domain.Monitor) {
	for _, m := range monitors {
		if !m.Monitoring {
			continue
		}
		s.StartMonitor(siteID, m)
	}
}

// StopSite cancels every timer belonging to siteID.
func (s *MonitorScheduler) StopSite(siteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, job := range s.jobs {
		if job.siteID == siteID {
			s.stopLocked(id, job)
		}
	}
}

// RestartMonitor stops then restarts monitor's timer — used when
// checkInterval changes, since a running *time.Ticker cannot have its
// period adjusted in place.
func (s *MonitorScheduler) RestartMonitor(siteID string, monitor domain.Monitor) {
	s.StopMonitor(monitor.ID)
	s.StartMonitor(siteID, monitor)
}

// IsScheduled reports whether monitorID currently has a running timer.
// Test-facing; production callers don't need to poll this.
func (s *MonitorScheduler) IsScheduled(monitorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[monitorID]
	return ok
}

// StopAll cancels every scheduled timer, used on process shutdown.
func (s *MonitorScheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		s.stopLocked(id, job)
	}
}
