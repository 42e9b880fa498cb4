package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
)

const historyColumns = `id, monitor_id, status, response_time, timestamp, details`

// HistoryRepository persists probe-outcome rows for monitors. Every write
// is Internal-only in routine use: history is always appended as part of
// the status checker's single transaction, never on its own, so
// AddEntryExternal exists only so tests can append outside that flow.
type HistoryRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a HistoryRepository.
func NewHistoryRepository(db *database.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, log: log.With().Str("repo", "history").Logger()}
}

// AddEntryInternal appends one history row for a monitor.
func (r *HistoryRepository) AddEntryInternal(tx *sql.Tx, monitorID string, entry domain.HistoryEntry, details string) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := tx.Exec(
		`INSERT INTO history (monitor_id, status, response_time, timestamp, details) VALUES (?, ?, ?, ?, ?)`,
		monitorID, string(entry.Status), entry.ResponseTimeMS, ts.UTC().Format(time.RFC3339Nano), details,
	)
	if err != nil {
		return fmt.Errorf("%w: add history entry for monitor %s", domain.ErrPersistence, monitorID)
	}
	return nil
}

// AddEntryExternal wraps AddEntryInternal in its own transaction.
func (r *HistoryRepository) AddEntryExternal(monitorID string, entry domain.HistoryEntry, details string) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		return r.AddEntryInternal(tx, monitorID, entry, details)
	})
}

// PruneHistoryInternal deletes the oldest rows for one monitor beyond limit,
// keeping the most recent `limit` entries. Called by the status checker
// when the smart-pruning threshold trips.
func (r *HistoryRepository) PruneHistoryInternal(tx *sql.Tx, monitorID string, limit int) error {
	_, err := tx.Exec(
		`DELETE FROM history WHERE monitor_id = ? AND id NOT IN (
			SELECT id FROM history WHERE monitor_id = ? ORDER BY timestamp DESC LIMIT ?
		)`,
		monitorID, monitorID, limit,
	)
	if err != nil {
		return fmt.Errorf("%w: prune history for monitor %s", domain.ErrPersistence, monitorID)
	}
	return nil
}

// PruneHistoryExternal wraps PruneHistoryInternal in its own transaction.
func (r *HistoryRepository) PruneHistoryExternal(monitorID string, limit int) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		return r.PruneHistoryInternal(tx, monitorID, limit)
	})
}

// PruneAllHistoryInternal prunes every monitor's history down to limit, in
// one pass, one transaction. Used when historyLimit is changed, so every
// monitor is pruned atomically rather than monitor-by-monitor.
func (r *HistoryRepository) PruneAllHistoryInternal(tx *sql.Tx, limit int) error {
	rows, err := tx.Query(`SELECT DISTINCT monitor_id FROM history`)
	if err != nil {
		return fmt.Errorf("%w: list monitors with history", domain.ErrPersistence)
	}
	var monitorIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scan monitor id", domain.ErrPersistence)
		}
		monitorIDs = append(monitorIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate monitor ids", domain.ErrPersistence)
	}

	for _, id := range monitorIDs {
		if err := r.PruneHistoryInternal(tx, id, limit); err != nil {
			return err
		}
	}
	return nil
}

// PruneAllHistoryExternal wraps PruneAllHistoryInternal in its own transaction.
func (r *HistoryRepository) PruneAllHistoryExternal(limit int) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		return r.PruneAllHistoryInternal(tx, limit)
	})
}

// DeleteByMonitorIDInternal removes all history for a monitor. No
// production code path calls it; deleting a monitor removes its history
// through the schema's ON DELETE CASCADE.
func (r *HistoryRepository) DeleteByMonitorIDInternal(tx *sql.Tx, monitorID string) error {
	if _, err := tx.Exec(`DELETE FROM history WHERE monitor_id = ?`, monitorID); err != nil {
		return fmt.Errorf("%w: delete history for monitor %s", domain.ErrPersistence, monitorID)
	}
	return nil
}

// DeleteAllInternal removes every history row. Used by the import path to
// clear prior state before replaying an export; site/monitor deletion
// would cascade to history anyway, but the import sequence deletes it
// explicitly first to keep the delete order independent of foreign keys.
func (r *HistoryRepository) DeleteAllInternal(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("%w: delete all history", domain.ErrPersistence)
	}
	return nil
}

// CountByMonitorID returns the current history row count for a monitor,
// used by the status checker to decide whether the smart-pruning buffer
// threshold has been crossed.
func (r *HistoryRepository) CountByMonitorID(monitorID string) (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM history WHERE monitor_id = ?`, monitorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count history for monitor %s", domain.ErrPersistence, monitorID)
	}
	return count, nil
}

// FindByMonitorID returns the most recent `limit` history entries for a
// monitor, newest first. limit <= 0 means no limit.
func (r *HistoryRepository) FindByMonitorID(monitorID string, limit int) ([]domain.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM history WHERE monitor_id = ? ORDER BY timestamp DESC`
	args := []interface{}{monitorID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: find history for monitor %s", domain.ErrPersistence, monitorID)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan history entry", domain.ErrPersistence)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate history", domain.ErrPersistence)
	}
	return entries, nil
}

func scanHistoryEntry(rows *sql.Rows) (domain.HistoryEntry, error) {
	var e domain.HistoryEntry
	var monitorID int64
	var status, timestamp, details string

	if err := rows.Scan(&e.ID, &monitorID, &status, &e.ResponseTimeMS, &timestamp, &details); err != nil {
		return e, err
	}

	e.MonitorID = fmt.Sprintf("%d", monitorID)
	e.Status = domain.MonitorStatus(status)
	e.Details = details

	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return e, err
	}
	e.Timestamp = ts

	return e, nil
}
