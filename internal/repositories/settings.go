package repositories

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
)

// SettingsRepository persists the key/value settings map. historyLimit is
// the only key the core itself reads (domain.HistoryLimitKey); every other
// key is opaque passthrough storage.
type SettingsRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewSettingsRepository creates a SettingsRepository.
func NewSettingsRepository(db *database.DB, log zerolog.Logger) *SettingsRepository {
	return &SettingsRepository{db: db, log: log.With().Str("repo", "settings").Logger()}
}

// SetInternal inserts or overwrites a key's value.
func (r *SettingsRepository) SetInternal(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: set setting %s", domain.ErrPersistence, key)
	}
	return nil
}

// SetExternal wraps SetInternal in its own transaction.
func (r *SettingsRepository) SetExternal(key, value string) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		return r.SetInternal(tx, key, value)
	})
}

// DeleteInternal removes a key. Returns whether it existed.
func (r *SettingsRepository) DeleteInternal(tx *sql.Tx, key string) (bool, error) {
	result, err := tx.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("%w: delete setting %s", domain.ErrPersistence, key)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// DeleteExternal wraps DeleteInternal in its own transaction.
func (r *SettingsRepository) DeleteExternal(key string) (bool, error) {
	var existed bool
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		var txErr error
		existed, txErr = r.DeleteInternal(tx, key)
		return txErr
	})
	return existed, err
}

// DeleteAllInternal removes every setting. Used by the import path to clear
// prior state before replaying an export.
func (r *SettingsRepository) DeleteAllInternal(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("%w: delete all settings", domain.ErrPersistence)
	}
	return nil
}

// BulkInsertInternal inserts every setting. Assumes the table is already
// empty (the import path calls DeleteAllInternal first). Each row goes
// through SetInternal, so a key repeated in settings overwrites its earlier
// value.
func (r *SettingsRepository) BulkInsertInternal(tx *sql.Tx, settings []domain.Setting) error {
	for _, s := range settings {
		if err := r.SetInternal(tx, s.Key, s.Value); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a key's value and whether it was found.
func (r *SettingsRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get setting %s", domain.ErrPersistence, key)
	}
	return value, true, nil
}

// GetHistoryLimit returns the configured history limit, falling back to
// domain.DefaultHistoryLimit when unset, and enforcing domain.HistoryLimitFloor.
func (r *SettingsRepository) GetHistoryLimit() (int, error) {
	value, found, err := r.Get(domain.HistoryLimitKey)
	if err != nil {
		return 0, err
	}
	if !found {
		return domain.DefaultHistoryLimit, nil
	}

	var limit int
	if _, err := fmt.Sscanf(value, "%d", &limit); err != nil {
		return domain.DefaultHistoryLimit, nil
	}
	if limit < domain.HistoryLimitFloor {
		limit = domain.HistoryLimitFloor
	}
	return limit, nil
}

// FindAll returns every setting.
func (r *SettingsRepository) FindAll() ([]domain.Setting, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("%w: find all settings", domain.ErrPersistence)
	}
	defer rows.Close()

	var settings []domain.Setting
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, fmt.Errorf("%w: scan setting", domain.ErrPersistence)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate settings", domain.ErrPersistence)
	}
	return settings, nil
}
