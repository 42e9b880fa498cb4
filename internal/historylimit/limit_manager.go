// Package historylimit implements the history-limit setter: apart from a
// full data import (internal/importexport replaces every setting), the
// only place that changes domain.HistoryLimitKey, and the one transaction that
// keeps the stored setting and every monitor's pruned history row count
// consistent with it.
package historylimit

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/events"
	"github.com/uptimewatcher/watcher/internal/repositories"
)

// LimitManager owns the historyLimit setting.
type LimitManager struct {
	db          *database.DB
	settingsRepo *repositories.SettingsRepository
	historyRepo *repositories.HistoryRepository
	bus         *events.Bus
	log         zerolog.Logger
}

// New creates a LimitManager.
func New(
	db *database.DB,
	settingsRepo *repositories.SettingsRepository,
	historyRepo *repositories.HistoryRepository,
	bus *events.Bus,
	log zerolog.Logger,
) *LimitManager {
	return &LimitManager{
		db:           db,
		settingsRepo: settingsRepo,
		historyRepo:  historyRepo,
		bus:          bus,
		log:          log.With().Str("component", "history_limit").Logger(),
	}
}

// GetHistoryLimit returns the currently configured limit.
func (m *LimitManager) GetHistoryLimit() (int, error) {
	return m.settingsRepo.GetHistoryLimit()
}

// SetHistoryLimit floors newLimit at domain.HistoryLimitFloor, then, inside
// one transaction, persists it and prunes every monitor's history down to
// the new limit.
func (m *LimitManager) SetHistoryLimit(newLimit int) error {
	if newLimit < domain.HistoryLimitFloor {
		newLimit = domain.HistoryLimitFloor
	}

	err := m.db.WithTransaction(func(tx *sql.Tx) error {
		if err := m.settingsRepo.SetInternal(tx, domain.HistoryLimitKey, strconv.Itoa(newLimit)); err != nil {
			return err
		}
		return m.historyRepo.PruneAllHistoryInternal(tx, newLimit)
	})
	if err != nil {
		return fmt.Errorf("set history limit: %w", err)
	}

	m.log.Info().Int("limit", newLimit).Msg("history limit updated")
	m.bus.Emit(events.EventHistoryLimitChanged, "historylimit", map[string]interface{}{"limit": newLimit})
	return nil
}
