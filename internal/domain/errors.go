package domain

import "errors"

// Category sentinels for every error kind the core returns. Wrap with
// fmt.Errorf("...: %w", ErrSiteNotFound) and unwrap with errors.Is at the
// adapter boundary.
var (
	// ErrSiteNotFound/ErrMonitorNotFound — NotFound. Surfaced to callers;
	// the site cache and repositories treat deletes/updates of an absent
	// row as a logged no-op rather than a hard failure where appropriate.
	ErrSiteNotFound    = errors.New("site not found")
	ErrMonitorNotFound = errors.New("monitor not found")

	// ErrValidation — invalid user input. Never persisted.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence — transaction abort or constraint violation. Always
	// rolled back automatically before this is returned.
	ErrPersistence = errors.New("persistence error")

	// ErrCancelled — a probe was cancelled mid-flight.
	ErrCancelled = errors.New("check cancelled")

	// ErrNestedTransaction — a programmer error: database.DB.WithTransaction
	// was invoked while already inside one. Never a user-facing failure mode;
	// indicates a bug in an internal code path using an External method
	// where an Internal one was required.
	ErrNestedTransaction = errors.New("transaction already in progress")
)
