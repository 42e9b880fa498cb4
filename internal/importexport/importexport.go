// Package importexport implements the export/import pair: a lossless JSON
// snapshot of every site, monitor, history entry and setting, and the
// single transaction that replaces the entire database with a replayed
// snapshot.
package importexport

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/events"
	"github.com/uptimewatcher/watcher/internal/repositories"
)

// exportFormatVersion is bumped whenever the JSON shape changes in a way
// that breaks backward compatibility with older exports.
const exportFormatVersion = 1

// Snapshot is the top-level JSON shape exchanged by export/import:
// `{sites, settings, exportedAt, version}`, with sites carrying fully
// nested monitors and history.
type Snapshot struct {
	Sites      []SiteSnapshot   `json:"sites"`
	Settings   []domain.Setting `json:"settings"`
	ExportedAt time.Time        `json:"exportedAt"`
	Version    int              `json:"version"`
}

// SiteSnapshot is a Site with its monitors fully hydrated, each monitor
// carrying its complete history.
type SiteSnapshot struct {
	Identifier string           `json:"identifier"`
	Name       string           `json:"name"`
	Monitoring bool             `json:"monitoring"`
	Monitors   []MonitorSnapshot `json:"monitors"`
}

// MonitorSnapshot is a Monitor with its full, unbounded history (export
// ignores historyLimit — it is a durability snapshot, not a UI view).
// domain.Monitor already carries a History field; it is simply populated
// in full here instead of being left empty as repository reads normally
// leave it.
type MonitorSnapshot = domain.Monitor

// Manager implements exportData/importData.
type Manager struct {
	db          *database.DB
	siteRepo    *repositories.SiteRepository
	monitorRepo *repositories.MonitorRepository
	historyRepo *repositories.HistoryRepository
	settingsRepo *repositories.SettingsRepository
	bus         *events.Bus
	log         zerolog.Logger
}

// New creates a Manager.
func New(
	db *database.DB,
	siteRepo *repositories.SiteRepository,
	monitorRepo *repositories.MonitorRepository,
	historyRepo *repositories.HistoryRepository,
	settingsRepo *repositories.SettingsRepository,
	bus *events.Bus,
	log zerolog.Logger,
) *Manager {
	return &Manager{
		db:           db,
		siteRepo:     siteRepo,
		monitorRepo:  monitorRepo,
		historyRepo:  historyRepo,
		settingsRepo: settingsRepo,
		bus:          bus,
		log:          log.With().Str("component", "import_export").Logger(),
	}
}

// ExportData snapshots every site, monitor, history entry and setting via
// read-only operations and serializes the result as JSON. No transaction
// is required: a concurrent write racing the snapshot just means the
// export reflects whichever side of that write won, which is acceptable
// for a point-in-time backup.
func (m *Manager) ExportData() ([]byte, error) {
	snapshot, err := m.buildSnapshot()
	if err != nil {
		return nil, fmt.Errorf("export data: %w", err)
	}

	out, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("export data: marshal snapshot: %w", err)
	}

	m.bus.Emit(events.EventDataExported, "importexport", map[string]interface{}{"sites": len(snapshot.Sites)})
	return out, nil
}

func (m *Manager) buildSnapshot() (Snapshot, error) {
	sites, err := m.siteRepo.FindAll()
	if err != nil {
		return Snapshot{}, err
	}
	settings, err := m.settingsRepo.FindAll()
	if err != nil {
		return Snapshot{}, err
	}

	siteSnapshots := make([]SiteSnapshot, 0, len(sites))
	for _, site := range sites {
		monitors, err := m.monitorRepo.FindBySiteIdentifier(site.Identifier)
		if err != nil {
			return Snapshot{}, err
		}

		monitorSnapshots := make([]MonitorSnapshot, 0, len(monitors))
		for _, monitor := range monitors {
			history, err := m.historyRepo.FindByMonitorID(monitor.ID, 0)
			if err != nil {
				return Snapshot{}, err
			}
			monitor.History = history
			monitorSnapshots = append(monitorSnapshots, monitor)
		}

		siteSnapshots = append(siteSnapshots, SiteSnapshot{
			Identifier: site.Identifier,
			Name:       site.Name,
			Monitoring: site.Monitoring,
			Monitors:   monitorSnapshots,
		})
	}

	return Snapshot{
		Sites:      siteSnapshots,
		Settings:   settings,
		ExportedAt: time.Now().UTC(),
		Version:    exportFormatVersion,
	}, nil
}

// ImportData replaces the entire database with the snapshot encoded in
// data, inside one transaction: any failure aborts the whole replay, so
// partial import state is impossible.
func (m *Manager) ImportData(data []byte) error {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("%w: import data: invalid JSON", domain.ErrValidation)
	}

	err := m.db.WithTransaction(func(tx *sql.Tx) error {
		if err := m.settingsRepo.DeleteAllInternal(tx); err != nil {
			return err
		}
		if err := m.historyRepo.DeleteAllInternal(tx); err != nil {
			return err
		}
		if err := m.siteRepo.DeleteAllInternal(tx); err != nil {
			return err
		}

		for _, site := range snapshot.Sites {
			if err := m.siteRepo.UpsertInternal(tx, domain.Site{
				Identifier: site.Identifier,
				Name:       site.Name,
				Monitoring: site.Monitoring,
			}); err != nil {
				return err
			}

			created, err := m.monitorRepo.BulkCreateInternal(tx, site.Identifier, site.Monitors)
			if err != nil {
				return err
			}

			for i, ms := range site.Monitors {
				for _, entry := range ms.History {
					if err := m.historyRepo.AddEntryInternal(tx, created[i].ID, entry, entry.Details); err != nil {
						return err
					}
				}
			}
		}

		return m.settingsRepo.BulkInsertInternal(tx, snapshot.Settings)
	})
	if err != nil {
		return fmt.Errorf("import data: %w", err)
	}

	m.log.Info().Int("sites", len(snapshot.Sites)).Msg("data imported")
	m.bus.Emit(events.EventDataImported, "importexport", map[string]interface{}{"sites": len(snapshot.Sites)})
	return nil
}
