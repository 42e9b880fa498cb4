package checker

import (
	"database/sql"
	"fmt"

	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/events"
	"github.com/uptimewatcher/watcher/internal/repositories"
)

// StartMonitoringForSite enables monitoring for a site, or for a single
// monitor within it when monitorID is non-empty. Both the flag update and
// the scheduler registration happen before the event is emitted, and the
// flag update is always a single transaction.
func (c *StatusChecker) StartMonitoringForSite(siteID, monitorID string) error {
	return c.setMonitoring(siteID, monitorID, true)
}

// StopMonitoringForSite mirrors StartMonitoringForSite, turning monitoring
// off.
func (c *StatusChecker) StopMonitoringForSite(siteID, monitorID string) error {
	return c.setMonitoring(siteID, monitorID, false)
}

func (c *StatusChecker) setMonitoring(siteID, monitorID string, enabled bool) error {
	site, err := c.siteRepo.FindByIdentifier(siteID)
	if err != nil {
		return err
	}
	if site == nil {
		return fmt.Errorf("%w: %s", domain.ErrSiteNotFound, siteID)
	}

	targets := site.Monitors
	if monitorID != "" {
		targets = nil
		for _, m := range site.Monitors {
			if m.ID == monitorID {
				targets = append(targets, m)
			}
		}
		if len(targets) == 0 {
			return fmt.Errorf("%w: %s", domain.ErrMonitorNotFound, monitorID)
		}
	}

	err = c.db.WithTransaction(func(tx *sql.Tx) error {
		if monitorID == "" {
			if err := c.siteRepo.UpdateInternal(tx, siteID, repositories.SitePartial{Monitoring: &enabled}); err != nil {
				return err
			}
		}
		for _, m := range targets {
			if err := c.monitorRepo.UpdateInternal(tx, m.ID, repositories.MonitorPartial{Monitoring: &enabled}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := range targets {
		targets[i].Monitoring = enabled
		if enabled {
			c.scheduler.StartMonitor(siteID, targets[i])
		} else {
			c.scheduler.StopMonitor(targets[i].ID)
		}
	}

	eventType := events.EventMonitoringStopped
	if enabled {
		eventType = events.EventMonitoringStarted
	}
	c.bus.Emit(eventType, "checker", map[string]interface{}{
		"site":    siteID,
		"monitor": monitorID,
	})
	return nil
}
