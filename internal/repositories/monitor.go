package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
)

const monitorColumns = `id, site_identifier, type, status, monitoring, check_interval, timeout,
	retry_attempts, response_time, last_checked, url, host, port`

// MonitorRepository persists domain.Monitor rows belonging to a site.
type MonitorRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewMonitorRepository creates a MonitorRepository.
func NewMonitorRepository(db *database.DB, log zerolog.Logger) *MonitorRepository {
	return &MonitorRepository{db: db, log: log.With().Str("repo", "monitor").Logger()}
}

// MonitorPartial carries only the fields an UpdateExternal/UpdateInternal
// call should write. URL/Host/Port/LastChecked are optional columns and are
// left untouched (never written as NULL) when their pointer is nil.
type MonitorPartial struct {
	Status        *domain.MonitorStatus
	Monitoring    *bool
	CheckInterval *time.Duration
	Timeout       *time.Duration
	RetryAttempts *int
	ResponseTimeMS *int
	LastChecked   *time.Time
	URL           *string
	Host          *string
	Port          *int
}

// buildMonitorParameters maps an in-memory Monitor to the column values for
// an INSERT, applying defaults: a zero CheckInterval or Timeout is replaced
// by the package default.
func buildMonitorParameters(siteIdentifier string, m domain.Monitor) []interface{} {
	interval := m.CheckInterval
	if interval == 0 {
		interval = domain.DefaultCheckInterval
	}
	timeout := m.Timeout
	if timeout == 0 {
		timeout = domain.DefaultTimeout
	}
	status := m.Status
	if status == "" {
		status = domain.StatusPending
	}
	responseTime := m.ResponseTimeMS
	if responseTime == 0 {
		responseTime = domain.NeverChecked
	}

	var url, host interface{}
	var port interface{}
	switch m.Type {
	case domain.MonitorTypeHTTP:
		url = m.URL
	case domain.MonitorTypePort:
		host = m.Host
		port = m.Port
	}

	return []interface{}{
		siteIdentifier, string(m.Type), string(status), boolToInt(m.Monitoring),
		int64(interval / time.Millisecond), int64(timeout / time.Millisecond),
		m.RetryAttempts, responseTime, nullTime(m.LastChecked), url, host, port,
	}
}

// CreateInternal inserts a new monitor row and writes the assigned id back
// into the returned copy.
func (r *MonitorRepository) CreateInternal(tx *sql.Tx, siteIdentifier string, m domain.Monitor) (domain.Monitor, error) {
	params := buildMonitorParameters(siteIdentifier, m)
	result, err := tx.Exec(
		`INSERT INTO monitors (site_identifier, type, status, monitoring, check_interval, timeout,
			retry_attempts, response_time, last_checked, url, host, port)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params...,
	)
	if err != nil {
		return domain.Monitor{}, fmt.Errorf("%w: create monitor for site %s", domain.ErrPersistence, siteIdentifier)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.Monitor{}, fmt.Errorf("%w: read assigned monitor id", domain.ErrPersistence)
	}

	created := m
	created.ID = fmt.Sprintf("%d", id)
	created.SiteID = siteIdentifier
	return created, nil
}

// CreateExternal wraps CreateInternal in its own transaction.
func (r *MonitorRepository) CreateExternal(siteIdentifier string, m domain.Monitor) (domain.Monitor, error) {
	var created domain.Monitor
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		var txErr error
		created, txErr = r.CreateInternal(tx, siteIdentifier, m)
		return txErr
	})
	return created, err
}

// BulkCreateInternal creates every monitor for a site in one transaction,
// aborting the whole batch (via the caller's transaction rollback) if any
// single insert fails.
func (r *MonitorRepository) BulkCreateInternal(tx *sql.Tx, siteIdentifier string, monitors []domain.Monitor) ([]domain.Monitor, error) {
	created := make([]domain.Monitor, 0, len(monitors))
	for _, m := range monitors {
		c, err := r.CreateInternal(tx, siteIdentifier, m)
		if err != nil {
			return nil, err
		}
		created = append(created, c)
	}
	return created, nil
}

// BulkCreateExternal wraps BulkCreateInternal in its own transaction.
func (r *MonitorRepository) BulkCreateExternal(siteIdentifier string, monitors []domain.Monitor) ([]domain.Monitor, error) {
	var created []domain.Monitor
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		var txErr error
		created, txErr = r.BulkCreateInternal(tx, siteIdentifier, monitors)
		return txErr
	})
	return created, err
}

// UpdateInternal applies only the fields present in partial. An unknown id
// is a logged no-op, not an error.
func (r *MonitorRepository) UpdateInternal(tx *sql.Tx, id string, partial MonitorPartial) error {
	clauses := make([]string, 0, 10)
	args := make([]interface{}, 0, 10)

	if partial.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*partial.Status))
	}
	if partial.Monitoring != nil {
		clauses = append(clauses, "monitoring = ?")
		args = append(args, boolToInt(*partial.Monitoring))
	}
	if partial.CheckInterval != nil {
		clauses = append(clauses, "check_interval = ?")
		args = append(args, int64(*partial.CheckInterval/time.Millisecond))
	}
	if partial.Timeout != nil {
		clauses = append(clauses, "timeout = ?")
		args = append(args, int64(*partial.Timeout/time.Millisecond))
	}
	if partial.RetryAttempts != nil {
		clauses = append(clauses, "retry_attempts = ?")
		args = append(args, *partial.RetryAttempts)
	}
	if partial.ResponseTimeMS != nil {
		clauses = append(clauses, "response_time = ?")
		args = append(args, *partial.ResponseTimeMS)
	}
	if partial.LastChecked != nil {
		clauses = append(clauses, "last_checked = ?")
		args = append(args, nullTime(partial.LastChecked))
	}
	if partial.URL != nil {
		clauses = append(clauses, "url = ?")
		args = append(args, *partial.URL)
	}
	if partial.Host != nil {
		clauses = append(clauses, "host = ?")
		args = append(args, *partial.Host)
	}
	if partial.Port != nil {
		clauses = append(clauses, "port = ?")
		args = append(args, *partial.Port)
	}

	if len(clauses) == 0 {
		return nil
	}

	query := "UPDATE monitors SET "
	for i, c := range clauses {
		if i > 0 {
			query += ", "
		}
		query += c
	}
	query += " WHERE id = ?"
	args = append(args, id)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("%w: update monitor %s", domain.ErrPersistence, id)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		r.log.Debug().Str("id", id).Msg("update monitor: id not found, treating as no-op")
	}
	return nil
}

// UpdateExternal wraps UpdateInternal in its own transaction.
func (r *MonitorRepository) UpdateExternal(id string, partial MonitorPartial) error {
	return r.db.WithTransaction(func(tx *sql.Tx) error {
		return r.UpdateInternal(tx, id, partial)
	})
}

// DeleteInternal removes a monitor row (and, via ON DELETE CASCADE, its
// history). Returns whether it existed.
func (r *MonitorRepository) DeleteInternal(tx *sql.Tx, id string) (bool, error) {
	result, err := tx.Exec(`DELETE FROM monitors WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("%w: delete monitor %s", domain.ErrPersistence, id)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// DeleteExternal wraps DeleteInternal in its own transaction.
func (r *MonitorRepository) DeleteExternal(id string) (bool, error) {
	var existed bool
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		var txErr error
		existed, txErr = r.DeleteInternal(tx, id)
		return txErr
	})
	return existed, err
}

// DeleteBySiteIdentifierInternal removes every monitor belonging to a site.
// Used by SiteRepository.DeleteInternal to cascade a site delete within the
// same transaction.
func (r *MonitorRepository) DeleteBySiteIdentifierInternal(tx *sql.Tx, siteIdentifier string) error {
	if _, err := tx.Exec(`DELETE FROM monitors WHERE site_identifier = ?`, siteIdentifier); err != nil {
		return fmt.Errorf("%w: delete monitors for site %s", domain.ErrPersistence, siteIdentifier)
	}
	return nil
}

// FindBySiteIdentifier returns every monitor belonging to a site, without
// hydrating history.
func (r *MonitorRepository) FindBySiteIdentifier(siteIdentifier string) ([]domain.Monitor, error) {
	rows, err := r.db.Query(`SELECT `+monitorColumns+` FROM monitors WHERE site_identifier = ?`, siteIdentifier)
	if err != nil {
		return nil, fmt.Errorf("%w: find monitors for site %s", domain.ErrPersistence, siteIdentifier)
	}
	defer rows.Close()

	var monitors []domain.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan monitor", domain.ErrPersistence)
		}
		monitors = append(monitors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate monitors", domain.ErrPersistence)
	}
	return monitors, nil
}

// FindByID returns one monitor, or nil if it does not exist.
func (r *MonitorRepository) FindByID(id string) (*domain.Monitor, error) {
	row := r.db.QueryRow(`SELECT `+monitorColumns+` FROM monitors WHERE id = ?`, id)
	m, err := scanMonitorRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find monitor %s", domain.ErrPersistence, id)
	}
	return &m, nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanMonitorFrom(s scannable) (domain.Monitor, error) {
	var m domain.Monitor
	var id int64
	var typ, status string
	var monitoring int
	var checkIntervalMS, timeoutMS int64
	var lastChecked sql.NullString
	var url, host sql.NullString
	var port sql.NullInt64

	err := s.Scan(
		&id, &m.SiteID, &typ, &status, &monitoring, &checkIntervalMS, &timeoutMS,
		&m.RetryAttempts, &m.ResponseTimeMS, &lastChecked, &url, &host, &port,
	)
	if err != nil {
		return m, err
	}

	m.ID = fmt.Sprintf("%d", id)
	m.Type = domain.MonitorType(typ)
	m.Status = domain.MonitorStatus(status)
	m.Monitoring = monitoring != 0
	m.CheckInterval = time.Duration(checkIntervalMS) * time.Millisecond
	m.Timeout = time.Duration(timeoutMS) * time.Millisecond
	if url.Valid {
		m.URL = url.String
	}
	if host.Valid {
		m.Host = host.String
	}
	if port.Valid {
		m.Port = int(port.Int64)
	}

	lc, err := scanNullableTime(lastChecked)
	if err != nil {
		return m, err
	}
	m.LastChecked = lc

	return m, nil
}

func scanMonitor(rows *sql.Rows) (domain.Monitor, error)  { return scanMonitorFrom(rows) }
func scanMonitorRow(row *sql.Row) (domain.Monitor, error) { return scanMonitorFrom(row) }
