// Package checker implements the monitor lifecycle and status checker: the
// single place that turns a scheduler tick into a probe, a persisted
// history row, an updated monitor row and, on success, an emitted event.
// Nothing else in the module is allowed to write Monitor.Status or append
// to history.
package checker

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/events"
	"github.com/uptimewatcher/watcher/internal/monitors"
	"github.com/uptimewatcher/watcher/internal/repositories"
	"github.com/uptimewatcher/watcher/internal/scheduler"
)

// retryBackoff separates retry attempts on a failed probe. A fixed short
// delay rather than exponential backoff: total elapsed time must stay
// comfortably under (retryAttempts+1)*timeout, and the monitors this
// module probes are expected to recover in seconds, not minutes.
const retryBackoff = 250 * time.Millisecond

// pruneBufferRatio is the "likely exceeds" threshold for the smart pruning
// rule: prune once history grows past historyLimit*pruneBufferRatio.
const pruneBufferRatio = 1.2

// minPruneInterval is the minimum wall-clock time between prune passes for
// a single monitor, so a busy monitor doesn't run a DELETE on every check.
const minPruneInterval = 5 * time.Minute

// serviceRegistry is the slice of monitors.Registry's API the checker
// needs; narrowed to an interface so tests can substitute a fake without
// constructing a real monitors.Registry.
type serviceRegistry interface {
	Get(monitorType domain.MonitorType) (monitors.Service, bool)
}

// StatusChecker runs single-monitor checks and the start/stop-monitoring
// operations that flow through the same transactional boundary.
type StatusChecker struct {
	db           *database.DB
	registry     serviceRegistry
	siteRepo     *repositories.SiteRepository
	monitorRepo  *repositories.MonitorRepository
	historyRepo  *repositories.HistoryRepository
	settingsRepo *repositories.SettingsRepository
	scheduler    *scheduler.MonitorScheduler
	bus          *events.Bus
	log          zerolog.Logger

	mu         sync.Mutex
	inFlight   map[string]bool
	lastPruned map[string]time.Time
}

// New creates a StatusChecker wired to its dependencies. Callers pass the
// StatusChecker's Probe method to scheduler.NewMonitorScheduler so that
// every scheduled tick and immediate check routes through here.
func New(
	db *database.DB,
	registry serviceRegistry,
	siteRepo *repositories.SiteRepository,
	monitorRepo *repositories.MonitorRepository,
	historyRepo *repositories.HistoryRepository,
	settingsRepo *repositories.SettingsRepository,
	bus *events.Bus,
	log zerolog.Logger,
) *StatusChecker {
	return &StatusChecker{
		db:           db,
		registry:     registry,
		siteRepo:     siteRepo,
		monitorRepo:  monitorRepo,
		historyRepo:  historyRepo,
		settingsRepo: settingsRepo,
		bus:          bus,
		log:          log.With().Str("component", "checker").Logger(),
		inFlight:     make(map[string]bool),
		lastPruned:   make(map[string]time.Time),
	}
}

// SetScheduler wires the scheduler back in after construction, breaking
// the otherwise-circular New(scheduler.New(checker.Probe)) dependency.
func (c *StatusChecker) SetScheduler(s *scheduler.MonitorScheduler) {
	c.scheduler = s
}

// Probe is the scheduler.ProbeFunc for every monitor. It never returns an
// error to its caller: probe failures are recorded as status=down, and
// any other failure is logged and swallowed so a single bad check can
// never interrupt the scheduler.
func (c *StatusChecker) Probe(siteID string, monitor domain.Monitor) {
	if !c.tryAcquire(monitor.ID) {
		c.log.Debug().Str("monitor_id", monitor.ID).Msg("check already in flight, dropping tick")
		return
	}
	defer c.release(monitor.ID)

	if err := c.check(siteID, monitor); err != nil {
		c.log.Error().Err(err).Str("monitor_id", monitor.ID).Msg("check failed")
	}
}

// CheckNow runs one check synchronously and returns once it has committed
// (or failed to). Used by the orchestrator's "check monitor now" command,
// which wants to know the outcome rather than fire-and-forget like Probe.
func (c *StatusChecker) CheckNow(siteID string, monitor domain.Monitor) error {
	if !c.tryAcquire(monitor.ID) {
		return fmt.Errorf("check already in flight for monitor %s", monitor.ID)
	}
	defer c.release(monitor.ID)
	return c.check(siteID, monitor)
}

func (c *StatusChecker) tryAcquire(monitorID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[monitorID] {
		return false
	}
	c.inFlight[monitorID] = true
	return true
}

func (c *StatusChecker) release(monitorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, monitorID)
}

// check runs one probe through to completion: invoke the registered
// service, persist a history entry and the monitor's new status in a
// single transaction, prune old history if it's grown past the buffer
// threshold, then emit the resulting status-change events.
func (c *StatusChecker) check(siteID string, monitor domain.Monitor) error {
	service, ok := c.registry.Get(monitor.Type)
	if !ok {
		return fmt.Errorf("no monitor service registered for type %q", monitor.Type)
	}

	previousStatus := monitor.Status
	result := c.runWithRetry(service, monitor)

	now := time.Now()
	status := result.Status
	responseMS := int(result.ResponseTime / time.Millisecond)

	err := c.db.WithTransaction(func(tx *sql.Tx) error {
		entry := domain.HistoryEntry{
			MonitorID:      monitor.ID,
			Status:         status,
			ResponseTimeMS: responseMS,
			Timestamp:      now,
		}
		if err := c.historyRepo.AddEntryInternal(tx, monitor.ID, entry, result.Details); err != nil {
			return err
		}

		if err := c.monitorRepo.UpdateInternal(tx, monitor.ID, repositories.MonitorPartial{
			Status:         &status,
			ResponseTimeMS: &responseMS,
			LastChecked:    &now,
		}); err != nil {
			return err
		}

		if c.shouldPrune(monitor.ID) {
			limit, err := c.settingsRepo.GetHistoryLimit()
			if err != nil {
				return err
			}
			if err := c.historyRepo.PruneHistoryInternal(tx, monitor.ID, limit); err != nil {
				return err
			}
			c.markPruned(monitor.ID)
		}
		return nil
	})
	if err != nil {
		// Persistence failure: rolled back, no events, logged by the caller.
		return err
	}

	site, lookupErr := c.siteRepo.FindByIdentifier(siteID)
	if lookupErr != nil {
		c.log.Warn().Err(lookupErr).Str("site_id", siteID).Msg("failed to reload site for event payload")
	}
	var sitePayload interface{}
	if site != nil {
		sitePayload = *site
	}

	updatedMonitor := monitor
	updatedMonitor.Status = status
	updatedMonitor.ResponseTimeMS = responseMS
	updatedMonitor.LastChecked = &now

	c.bus.Emit(events.EventMonitorStatusChanged, "checker", map[string]interface{}{
		"site":           sitePayload,
		"monitor":        updatedMonitor,
		"previousStatus": previousStatus,
		"newStatus":      status,
	})
	if previousStatus != status {
		transition := events.EventMonitorDown
		if status == domain.StatusUp {
			transition = events.EventMonitorUp
		}
		c.bus.Emit(transition, "checker", map[string]interface{}{
			"site":    sitePayload,
			"monitor": updatedMonitor,
		})
	}
	return nil
}

// runWithRetry invokes service up to monitor.RetryAttempts+1 times,
// stopping as soon as a result reports up. The final attempt's result is
// always what gets recorded, whether or not it succeeded.
func (c *StatusChecker) runWithRetry(service monitors.Service, monitor domain.Monitor) monitors.Result {
	timeout := monitor.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}

	attempts := monitor.RetryAttempts + 1
	var result monitors.Result
	for attempt := 0; attempt < attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		r, _ := service.Check(ctx, monitor)
		cancel()
		result = r

		if result.Status == domain.StatusUp {
			return result
		}
		if attempt < attempts-1 {
			time.Sleep(retryBackoff)
		}
	}
	return result
}

// shouldPrune reports whether history for monitorID likely exceeds the
// buffer threshold and enough wall-clock time has passed since the last
// prune to make another one worthwhile.
func (c *StatusChecker) shouldPrune(monitorID string) bool {
	c.mu.Lock()
	last, pruned := c.lastPruned[monitorID]
	c.mu.Unlock()
	if pruned && time.Since(last) < minPruneInterval {
		return false
	}

	limit, err := c.settingsRepo.GetHistoryLimit()
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to read history limit, skipping prune check")
		return false
	}
	count, err := c.historyRepo.CountByMonitorID(monitorID)
	if err != nil {
		c.log.Warn().Err(err).Str("monitor_id", monitorID).Msg("failed to count history, skipping prune check")
		return false
	}
	return float64(count) > float64(limit)*pruneBufferRatio
}

func (c *StatusChecker) markPruned(monitorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPruned[monitorID] = time.Now()
}
