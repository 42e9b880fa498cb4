// Package repositories implements the persistence layer: one repository per
// entity (sites, monitors, history, settings), each following the same
// External/Internal method shape described by the database service (see
// internal/database). External methods open their own transaction via
// DB.WithTransaction and are safe to call from any non-transactional
// context; Internal methods accept the already-open *sql.Tx and must never
// open a transaction of their own, so they can be composed inside a
// caller's transaction (internal/checker and internal/sitewriter do this
// routinely).
package repositories

import (
	"database/sql"
	"time"
)

// nullString returns a NULL bind value for an empty string pointer, and the
// dereferenced value otherwise. Used to implement the "undefined fields
// leave the column untouched / are never written as NULL" partial-update
// rule: callers only pass non-nil pointers for fields actually present in
// the partial.
func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func scanNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
