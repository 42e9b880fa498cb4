// Package sitewriter implements the site writer: the create, update and
// delete operations for a single Site, each inside one transaction, and
// the post-commit scheduling fallout (interval-change restarts,
// new-monitor setup) those operations trigger.
package sitewriter

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/repositories"
	"github.com/uptimewatcher/watcher/internal/scheduler"
)

// monitorSetup is the slice of internal/monitormgr.Manager's API the
// writer needs post-commit, for new monitors added by UpdateSite.
type monitorSetup interface {
	SetupNewMonitors(site domain.Site, newMonitors []domain.Monitor) error
}

// SitePartial carries the optional scalar fields UpdateSite may change,
// plus an optional full replacement monitor list.
type SitePartial struct {
	Name       *string
	Monitoring *bool
	Monitors   []domain.Monitor // nil means "leave monitors untouched"
}

// Writer owns every mutating Site operation and the scheduling fallout
// that follows a successful commit.
type Writer struct {
	db          *database.DB
	siteRepo    *repositories.SiteRepository
	monitorRepo *repositories.MonitorRepository
	scheduler   *scheduler.MonitorScheduler
	monitorMgr  monitorSetup
	log         zerolog.Logger
}

// New creates a Writer.
func New(
	db *database.DB,
	siteRepo *repositories.SiteRepository,
	monitorRepo *repositories.MonitorRepository,
	sched *scheduler.MonitorScheduler,
	monitorMgr monitorSetup,
	log zerolog.Logger,
) *Writer {
	return &Writer{
		db:          db,
		siteRepo:    siteRepo,
		monitorRepo: monitorRepo,
		scheduler:   sched,
		monitorMgr:  monitorMgr,
		log:         log.With().Str("component", "site_writer").Logger(),
	}
}

// CreateSite inserts site and every monitor it carries, inside one
// transaction, and returns the site hydrated with the monitor ids
// persistence assigned.
func (w *Writer) CreateSite(site domain.Site) (domain.Site, error) {
	created := site
	created.Monitors = make([]domain.Monitor, len(site.Monitors))

	err := w.db.WithTransaction(func(tx *sql.Tx) error {
		if err := w.siteRepo.UpsertInternal(tx, domain.Site{
			Identifier: site.Identifier,
			Name:       site.Name,
			Monitoring: site.Monitoring,
		}); err != nil {
			return err
		}
		for i, m := range site.Monitors {
			cm, err := w.monitorRepo.CreateInternal(tx, site.Identifier, m)
			if err != nil {
				return err
			}
			created.Monitors[i] = cm
		}
		return nil
	})
	if err != nil {
		return domain.Site{}, err
	}
	return created, nil
}

// UpdateSite applies partial to an existing site. existing is the site as
// currently known (from the cache); callers are responsible for resolving
// it and failing with domain.ErrSiteNotFound beforehand.
func (w *Writer) UpdateSite(existing domain.Site, partial SitePartial) (domain.Site, error) {
	updated := existing
	if partial.Name != nil {
		updated.Name = *partial.Name
	}
	if partial.Monitoring != nil {
		updated.Monitoring = *partial.Monitoring
	}

	var newMonitors []domain.Monitor
	intervalChanged := make([]domain.Monitor, 0)

	err := w.db.WithTransaction(func(tx *sql.Tx) error {
		if err := w.siteRepo.UpsertInternal(tx, domain.Site{
			Identifier: updated.Identifier,
			Name:       updated.Name,
			Monitoring: updated.Monitoring,
		}); err != nil {
			return err
		}

		if partial.Monitors == nil {
			updated.Monitors = existing.Monitors
			return nil
		}

		reconciled, added, changed, err := w.updateMonitorsPreservingHistory(tx, updated.Identifier, existing.Monitors, partial.Monitors)
		if err != nil {
			return err
		}
		updated.Monitors = reconciled
		newMonitors = added
		intervalChanged = changed
		return nil
	})
	if err != nil {
		return domain.Site{}, err
	}

	for _, m := range intervalChanged {
		w.scheduler.RestartMonitor(updated.Identifier, m)
	}
	if len(newMonitors) > 0 {
		if err := w.monitorMgr.SetupNewMonitors(updated, newMonitors); err != nil {
			w.log.Error().Err(err).Str("site", updated.Identifier).Msg("failed to set up new monitors after site update")
		}
	}

	return updated, nil
}

// updateMonitorsPreservingHistory reconciles incoming against existing by
// monitor ID: matched monitors are updated in place (history untouched,
// I3/I7), unmatched incoming monitors are created, and existing monitors
// absent from incoming are deleted (cascading to their history). It
// returns the reconciled list, the newly created monitors, and the
// subset of matched monitors whose CheckInterval changed.
func (w *Writer) updateMonitorsPreservingHistory(
	tx *sql.Tx,
	siteIdentifier string,
	existing []domain.Monitor,
	incoming []domain.Monitor,
) (reconciled, added, intervalChanged []domain.Monitor, err error) {
	existingByID := make(map[string]domain.Monitor, len(existing))
	for _, m := range existing {
		if m.ID != "" {
			existingByID[m.ID] = m
		}
	}
	seen := make(map[string]bool, len(incoming))

	for _, m := range incoming {
		prior, ok := existingByID[m.ID]
		if m.ID == "" || !ok {
			created, createErr := w.monitorRepo.CreateInternal(tx, siteIdentifier, m)
			if createErr != nil {
				return nil, nil, nil, createErr
			}
			reconciled = append(reconciled, created)
			added = append(added, created)
			continue
		}

		seen[m.ID] = true
		partial := monitorUpdatePartial(m)
		if updateErr := w.monitorRepo.UpdateInternal(tx, m.ID, partial); updateErr != nil {
			return nil, nil, nil, updateErr
		}
		reconciled = append(reconciled, m)
		if prior.CheckInterval != m.CheckInterval {
			intervalChanged = append(intervalChanged, m)
		}
	}

	for id, m := range existingByID {
		if seen[id] {
			continue
		}
		if _, deleteErr := w.monitorRepo.DeleteInternal(tx, id); deleteErr != nil {
			return nil, nil, nil, deleteErr
		}
	}

	return reconciled, added, intervalChanged, nil
}

// monitorUpdatePartial builds the MonitorPartial for an incoming monitor
// whose ID matched an existing row — every scalar field is written so an
// UpdateSite call always reflects the caller's full incoming monitor.
func monitorUpdatePartial(m domain.Monitor) repositories.MonitorPartial {
	status := m.Status
	monitoring := m.Monitoring
	interval := m.CheckInterval
	timeout := m.Timeout
	retryAttempts := m.RetryAttempts
	partial := repositories.MonitorPartial{
		Status:        &status,
		Monitoring:    &monitoring,
		CheckInterval: &interval,
		Timeout:       &timeout,
		RetryAttempts: &retryAttempts,
	}
	if m.URL != "" {
		partial.URL = &m.URL
	}
	if m.Host != "" {
		partial.Host = &m.Host
	}
	if m.Port != 0 {
		partial.Port = &m.Port
	}
	return partial
}

// DeleteSite removes site and, via the monitor repository's cascade, all
// its monitors and their history, inside one transaction. Returns whether
// the site existed.
func (w *Writer) DeleteSite(identifier string) (bool, error) {
	var existed bool
	err := w.db.WithTransaction(func(tx *sql.Tx) error {
		var deleteErr error
		existed, deleteErr = w.siteRepo.DeleteInternal(tx, identifier)
		return deleteErr
	})
	if err != nil {
		return false, fmt.Errorf("delete site %s: %w", identifier, err)
	}
	if existed {
		w.scheduler.StopSite(identifier)
	}
	return existed, nil
}
