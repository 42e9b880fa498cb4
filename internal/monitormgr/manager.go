// Package monitormgr implements the monitor manager: the surface the
// orchestrator uses to bring a site's monitors under scheduling, both on
// initial load and when new monitors are added to an existing site. It
// never touches history and never decides status — it only applies
// defaults, persists them, and starts/stops timers.
package monitormgr

import (
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/repositories"
	"github.com/uptimewatcher/watcher/internal/scheduler"
)

// monitoringControl is the slice of internal/checker.StatusChecker's API
// that start/stop wrap; narrowed to an interface to avoid a hard
// dependency on the checker package's concrete type.
type monitoringControl interface {
	StartMonitoringForSite(siteID, monitorID string) error
	StopMonitoringForSite(siteID, monitorID string) error
}

// Manager brings a site's monitors under scheduling and keeps their
// defaults persisted.
type Manager struct {
	db          *database.DB
	monitorRepo *repositories.MonitorRepository
	scheduler   *scheduler.MonitorScheduler
	checker     monitoringControl
	log         zerolog.Logger
}

// New creates a Manager.
func New(
	db *database.DB,
	monitorRepo *repositories.MonitorRepository,
	sched *scheduler.MonitorScheduler,
	checker monitoringControl,
	log zerolog.Logger,
) *Manager {
	return &Manager{
		db:          db,
		monitorRepo: monitorRepo,
		scheduler:   sched,
		checker:     checker,
		log:         log.With().Str("component", "monitor_manager").Logger(),
	}
}

// StartMonitoringForSite is a thin wrapper around the status checker's
// operation of the same name; monitorID empty means the whole site.
func (m *Manager) StartMonitoringForSite(siteID, monitorID string) error {
	return m.checker.StartMonitoringForSite(siteID, monitorID)
}

// StopMonitoringForSite mirrors StartMonitoringForSite.
func (m *Manager) StopMonitoringForSite(siteID, monitorID string) error {
	return m.checker.StopMonitoringForSite(siteID, monitorID)
}

// SetupSiteForMonitoring is called once per site on load. It applies
// default intervals to any monitor missing one, then evaluates auto-start:
// if the site itself is enabled, every monitor with Monitoring=true gets
// scheduled. The scheduler's own immediate-check behavior on start covers
// the "first check" requirement, so no separate check is issued here.
func (m *Manager) SetupSiteForMonitoring(site domain.Site) error {
	normalized, err := m.applyDefaultIntervals(site.Monitors)
	if err != nil {
		return err
	}

	if !site.Monitoring {
		return nil
	}
	for _, monitor := range normalized {
		if monitor.Monitoring {
			m.scheduler.StartMonitor(site.Identifier, monitor)
		}
	}
	return nil
}

// SetupNewMonitors applies the same per-monitor setup as
// SetupSiteForMonitoring to a set of monitors just added to an existing
// site (detected via DetectNewMonitors). Exactly one check is issued per
// new monitor, via the scheduler's immediate-check behavior.
func (m *Manager) SetupNewMonitors(site domain.Site, newMonitors []domain.Monitor) error {
	normalized, err := m.applyDefaultIntervals(newMonitors)
	if err != nil {
		return err
	}

	if !site.Monitoring {
		return nil
	}
	for _, monitor := range normalized {
		if monitor.Monitoring {
			m.scheduler.StartMonitor(site.Identifier, monitor)
		}
	}
	return nil
}

// applyDefaultIntervals persists domain.DefaultCheckInterval/DefaultTimeout
// for any monitor whose CheckInterval or Timeout is zero, in one
// transaction, and returns the monitors with those defaults applied
// in-memory so callers can schedule them without a re-read.
func (m *Manager) applyDefaultIntervals(monitors []domain.Monitor) ([]domain.Monitor, error) {
	normalized := make([]domain.Monitor, len(monitors))
	copy(normalized, monitors)

	needsUpdate := false
	for i := range normalized {
		if normalized[i].CheckInterval <= 0 || normalized[i].Timeout <= 0 {
			needsUpdate = true
			break
		}
	}
	if !needsUpdate {
		return normalized, nil
	}

	err := m.db.WithTransaction(func(tx *sql.Tx) error {
		for i := range normalized {
			interval := normalized[i].CheckInterval
			timeout := normalized[i].Timeout
			var partial repositories.MonitorPartial
			dirty := false

			if interval <= 0 {
				interval = domain.DefaultCheckInterval
				partial.CheckInterval = &interval
				dirty = true
			}
			if timeout <= 0 {
				timeout = domain.DefaultTimeout
				partial.Timeout = &timeout
				dirty = true
			}
			if !dirty {
				continue
			}
			if err := m.monitorRepo.UpdateInternal(tx, normalized[i].ID, partial); err != nil {
				return err
			}
			normalized[i].CheckInterval = interval
			normalized[i].Timeout = timeout
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// DetectNewMonitors is a pure utility: it returns the monitors present in
// incoming but absent (by ID) from previous. A monitor with an empty ID
// is always considered new (it has not been assigned one yet).
func DetectNewMonitors(previous, incoming []domain.Monitor) []domain.Monitor {
	existing := make(map[string]struct{}, len(previous))
	for _, m := range previous {
		if m.ID != "" {
			existing[m.ID] = struct{}{}
		}
	}

	var added []domain.Monitor
	for _, m := range incoming {
		if m.ID == "" {
			added = append(added, m)
			continue
		}
		if _, ok := existing[m.ID]; !ok {
			added = append(added, m)
		}
	}
	return added
}
