// Package database provides database connection and initialization
// functionality for the single uptime.db SQLite database: PRAGMA
// configuration, connection pooling, schema migration, transaction
// management, and health checks.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGo dependency)

	"github.com/uptimewatcher/watcher/internal/domain"
)

// schemaFiles embeds the SQL schema into the binary at compile time so it
// is always available regardless of deployment location.
//
//go:embed schemas/*.sql
var schemaFiles embed.FS

// DB wraps the database connection with production-grade configuration.
type DB struct {
	conn *sql.DB // Underlying SQLite connection
	path string  // Absolute path to database file
	name string  // Database name for logging

	// inTx guards against WithTransaction being re-entered while a
	// transaction opened by this DB is still in flight. Transactions are
	// non-reentrant by design: an External repository method always opens
	// its own transaction and calls only Internal methods,
	// which accept a *sql.Tx and never open one themselves. A programmer
	// error that violates that contract fails fast instead of deadlocking
	// or silently nesting SQLite savepoints.
	inTx atomic.Bool
}

// Config holds database configuration used when creating a new connection.
type Config struct {
	Path string // Database file path (resolved to absolute)
	Name string // Friendly name for logging (e.g. "uptime")
}

// New creates a new database connection with production-grade configuration.
func New(cfg Config) (*DB, error) {
	// file: URIs (used for in-memory databases in tests) are used as-is.
	if !strings.HasPrefix(cfg.Path, "file:") {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		cfg.Path = absPath
	}

	connStr := buildConnectionString(cfg.Path)

	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}

	configureConnectionPool(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	return &DB{conn: conn, path: cfg.Path, name: cfg.Name}, nil
}

// getSchemaContent retrieves schema content from the embedded schema file.
func getSchemaContent(schemaFile string) ([]byte, error) {
	content, err := schemaFiles.ReadFile("schemas/" + schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded schema file %s: %w", schemaFile, err)
	}
	return content, nil
}

// buildConnectionString creates the SQLite connection string with PRAGMAs
// tuned for a single, regularly-written, moderately-sized monitoring
// database: WAL for concurrent readers during writes, NORMAL synchronous
// (fsync at checkpoints rather than every write) since history rows are
// reproducible from the next probe if a crash loses the last one,
// INCREMENTAL auto_vacuum so space is reclaimed gradually after pruning
// without a large VACUUM stall.
func buildConnectionString(path string) string {
	connStr := path + "?_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(NORMAL)"
	connStr += "&_pragma=auto_vacuum(INCREMENTAL)"
	connStr += "&_pragma=temp_store(MEMORY)"
	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=wal_autocheckpoint(1000)"
	connStr += "&_pragma=cache_size(-64000)"
	connStr += "&_pragma=busy_timeout(5000)"
	return connStr
}

// configureConnectionPool sets up connection pool limits. SQLite serializes
// writers regardless of pool size, but a modest pool lets concurrent
// readers (the HTTP command surface, the TUI) proceed without waiting on
// the scheduler's writes.
func configureConnectionPool(conn *sql.DB) {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection, used by repositories to
// execute queries directly.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Name returns the database name used in log messages.
func (db *DB) Name() string {
	return db.name
}

// Path returns the absolute path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies the embedded schema. It is idempotent: CREATE TABLE/INDEX
// IF NOT EXISTS means re-running it on every startup is safe, and any
// unexpected "already exists" style error is treated as already-applied
// rather than fatal.
func (db *DB) Migrate() error {
	content, err := getSchemaContent("uptime_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to get schema content: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schema migration: %w", err)
	}

	if _, err := tx.Exec(string(content)); err != nil {
		_ = tx.Rollback()

		errStr := err.Error()
		if strings.Contains(errStr, "duplicate column") || strings.Contains(errStr, "already exists") {
			return nil
		}
		return fmt.Errorf("failed to execute schema migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema migration: %w", err)
	}

	return nil
}

// Begin starts a new transaction directly, bypassing the nested-transaction
// guard. WithTransaction does not call it (it begins on the underlying
// connection itself); repository code should go through WithTransaction.
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// BeginTx starts a new transaction with options.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.conn.BeginTx(ctx, opts)
}

// WithTransaction executes fn within a database transaction, handling
// begin, commit, rollback and panic recovery. fn must use its *sql.Tx to
// call Internal repository methods only — calling an External method (which
// itself calls WithTransaction) from inside fn returns ErrNestedTransaction
// instead of nesting.
func (db *DB) WithTransaction(fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	if !db.inTx.CompareAndSwap(false, true) {
		return fmt.Errorf("WithTransaction: %w", domain.ErrNestedTransaction)
	}
	defer db.inTx.Store(false)

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("%w: %v (rollback also failed: %v)", domain.ErrPersistence, err, rollbackErr)
			} else {
				err = fmt.Errorf("%w: %v", domain.ErrPersistence, err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return err
}

// Exec executes a query without returning rows.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// ExecContext executes a query with context.
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows. Caller must close the result.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryContext executes a query with context. Caller must close the result.
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// QueryRowContext executes a query with context that returns at most one row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// HealthCheck performs a ping plus a full integrity check. Expensive on a
// large database; use QuickCheck for frequent polling.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}

	var integrityResult string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		return fmt.Errorf("integrity check query failed for %s: %w", db.name, err)
	}
	if integrityResult != "ok" {
		return fmt.Errorf("integrity check failed for %s: %s", db.name, integrityResult)
	}

	return nil
}

// QuickCheck performs a cheap ping-only health check.
func (db *DB) QuickCheck(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// WALCheckpoint forces a WAL checkpoint. Modes: PASSIVE, FULL, RESTART,
// TRUNCATE (default, also truncates the WAL file to minimal size).
func (db *DB) WALCheckpoint(mode string) error {
	if mode == "" {
		mode = "TRUNCATE"
	}
	if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)); err != nil {
		return fmt.Errorf("WAL checkpoint failed for %s: %w", db.name, err)
	}
	return nil
}

// Vacuum reclaims space and reduces fragmentation. Can be slow on a large
// database; only run during maintenance windows (see internal/scheduler).
func (db *DB) Vacuum() error {
	if _, err := db.conn.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum failed for %s: %w", db.name, err)
	}
	return nil
}

// Stats contains database statistics for monitoring and maintenance.
type Stats struct {
	SizeBytes     int64
	WALSizeBytes  int64
	PageCount     int64
	PageSize      int64
	FreelistCount int64
}

// GetStats retrieves database statistics for monitoring and maintenance.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	if fileInfo, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = fileInfo.Size()
	}
	if fileInfo, err := os.Stat(db.path + "-wal"); err == nil {
		stats.WALSizeBytes = fileInfo.Size()
	}

	if err := db.conn.QueryRow("PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := db.conn.QueryRow("PRAGMA page_size").Scan(&stats.PageSize); err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}
	if err := db.conn.QueryRow("PRAGMA freelist_count").Scan(&stats.FreelistCount); err != nil {
		return nil, fmt.Errorf("failed to get freelist count: %w", err)
	}

	return stats, nil
}
