package repositories

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
)

const siteColumns = `identifier, name, monitoring`

// SiteRepository persists domain.Site rows. It never touches the monitors
// table directly except through MonitorRepository, which it holds a
// reference to so DeleteExternal/DeleteInternal can cascade a site's
// monitors within the same transaction.
type SiteRepository struct {
	db       *database.DB
	monitors *MonitorRepository
	log      zerolog.Logger
}

// NewSiteRepository creates a SiteRepository. monitors must be non-nil;
// site deletion cascades through it.
func NewSiteRepository(db *database.DB, monitors *MonitorRepository, log zerolog.Logger) *SiteRepository {
	return &SiteRepository{db: db, monitors: monitors, log: log.With().Str("repo", "site").Logger()}
}

// SitePartial carries only the fields an UpdateExternal/UpdateInternal call
// should write; a nil field is left untouched on the stored row.
type SitePartial struct {
	Name       *string
	Monitoring *bool
}

// CreateInternal inserts a new site row. Fails with a constraint violation
// if the identifier already exists; callers that want idempotent semantics
// (the site writer's createSite/updateSite flow) use UpsertInternal instead.
func (r *SiteRepository) CreateInternal(tx *sql.Tx, site domain.Site) error {
	_, err := tx.Exec(
		`INSERT INTO sites (identifier, name, monitoring) VALUES (?, ?, ?)`,
		site.Identifier, site.Name, boolToInt(site.Monitoring),
	)
	if err != nil {
		return fmt.Errorf("%w: create site %s", domain.ErrPersistence, site.Identifier)
	}
	return nil
}

// CreateExternal wraps CreateInternal in its own transaction.
func (r *SiteRepository) CreateExternal(site domain.Site) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		return r.CreateInternal(tx, site)
	})
}

// UpsertInternal inserts the site row, or updates name/monitoring if the
// identifier already exists. This is the write path used by the site
// writer for both new and edited sites.
func (r *SiteRepository) UpsertInternal(tx *sql.Tx, site domain.Site) error {
	_, err := tx.Exec(
		`INSERT INTO sites (identifier, name, monitoring) VALUES (?, ?, ?)
		 ON CONFLICT(identifier) DO UPDATE SET name = excluded.name, monitoring = excluded.monitoring`,
		site.Identifier, site.Name, boolToInt(site.Monitoring),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert site %s", domain.ErrPersistence, site.Identifier)
	}
	return nil
}

// UpsertExternal wraps UpsertInternal in its own transaction.
func (r *SiteRepository) UpsertExternal(site domain.Site) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		return r.UpsertInternal(tx, site)
	})
}

// UpdateInternal applies only the fields present in partial. An unknown
// identifier is a logged no-op, not an error.
func (r *SiteRepository) UpdateInternal(tx *sql.Tx, identifier string, partial SitePartial) error {
	if partial.Name == nil && partial.Monitoring == nil {
		return nil
	}

	query := `UPDATE sites SET `
	args := make([]interface{}, 0, 3)
	clauses := make([]string, 0, 2)
	if partial.Name != nil {
		clauses = append(clauses, "name = ?")
		args = append(args, *partial.Name)
	}
	if partial.Monitoring != nil {
		clauses = append(clauses, "monitoring = ?")
		args = append(args, boolToInt(*partial.Monitoring))
	}
	for i, c := range clauses {
		if i > 0 {
			query += ", "
		}
		query += c
	}
	query += " WHERE identifier = ?"
	args = append(args, identifier)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("%w: update site %s", domain.ErrPersistence, identifier)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		r.log.Debug().Str("identifier", identifier).Msg("update site: identifier not found, treating as no-op")
	}
	return nil
}

// UpdateExternal wraps UpdateInternal in its own transaction.
func (r *SiteRepository) UpdateExternal(identifier string, partial SitePartial) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		return r.UpdateInternal(tx, identifier, partial)
	})
}

// DeleteInternal removes the site row and cascades to its monitors (and,
// transitively, their history, via ON DELETE CASCADE on the history table).
// Returns whether the site existed.
func (r *SiteRepository) DeleteInternal(tx *sql.Tx, identifier string) (bool, error) {
	if err := r.monitors.DeleteBySiteIdentifierInternal(tx, identifier); err != nil {
		return false, err
	}

	result, err := tx.Exec(`DELETE FROM sites WHERE identifier = ?`, identifier)
	if err != nil {
		return false, fmt.Errorf("%w: delete site %s", domain.ErrPersistence, identifier)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// DeleteExternal wraps DeleteInternal in its own transaction.
func (r *SiteRepository) DeleteExternal(identifier string) (bool, error) {
	var existed bool
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		var txErr error
		existed, txErr = r.DeleteInternal(tx, identifier)
		return txErr
	})
	return existed, err
}

// DeleteAllInternal removes every site, cascading to monitors and history.
// Used by the import path to clear prior state before replaying an export.
func (r *SiteRepository) DeleteAllInternal(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM sites`); err != nil {
		return fmt.Errorf("%w: delete all sites", domain.ErrPersistence)
	}
	return nil
}

// FindAll returns every site, including the monitoring column, without
// hydrating monitors (callers needing full hydration use it together with
// MonitorRepository.FindBySiteIdentifier, typically from internal/sitecache
// on startup).
func (r *SiteRepository) FindAll() ([]domain.Site, error) {
	rows, err := r.db.Query(`SELECT ` + siteColumns + ` FROM sites`)
	if err != nil {
		return nil, fmt.Errorf("%w: find all sites", domain.ErrPersistence)
	}
	defer rows.Close()

	var sites []domain.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan site", domain.ErrPersistence)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate sites", domain.ErrPersistence)
	}
	return sites, nil
}

// FindByIdentifier returns one site, or nil if it does not exist. A missing
// row is never an error at the repository layer — callers that need
// NotFound semantics (internal/sitewriter) wrap a nil result themselves.
func (r *SiteRepository) FindByIdentifier(identifier string) (*domain.Site, error) {
	row := r.db.QueryRow(`SELECT `+siteColumns+` FROM sites WHERE identifier = ?`, identifier)
	site, err := scanSiteRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find site %s", domain.ErrPersistence, identifier)
	}
	return &site, nil
}

// ExportAll returns a snapshot of every site for backup/export.
func (r *SiteRepository) ExportAll() ([]domain.Site, error) {
	return r.FindAll()
}

func scanSite(rows *sql.Rows) (domain.Site, error) {
	var site domain.Site
	var monitoring int
	if err := rows.Scan(&site.Identifier, &site.Name, &monitoring); err != nil {
		return site, err
	}
	site.Monitoring = monitoring != 0
	return site, nil
}

func scanSiteRow(row *sql.Row) (domain.Site, error) {
	var site domain.Site
	var monitoring int
	if err := row.Scan(&site.Identifier, &site.Name, &monitoring); err != nil {
		return site, err
	}
	site.Monitoring = monitoring != 0
	return site, nil
}
