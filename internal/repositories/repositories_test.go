package repositories

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/database"
)

// testRepos bundles all four repositories against one in-memory database,
// mirroring how internal/di wires them against the real one.
type testRepos struct {
	db       *database.DB
	sites    *SiteRepository
	monitors *MonitorRepository
	history  *HistoryRepository
	settings *SettingsRepository
}

func newTestRepos(t *testing.T) *testRepos {
	t.Helper()

	db, err := database.New(database.Config{Path: "file::memory:?cache=shared", Name: "test"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	monitors := NewMonitorRepository(db, log)
	sites := NewSiteRepository(db, monitors, log)
	history := NewHistoryRepository(db, log)
	settings := NewSettingsRepository(db, log)

	return &testRepos{db: db, sites: sites, monitors: monitors, history: history, settings: settings}
}

func (tr *testRepos) withTx(t *testing.T, fn func(tx *sql.Tx)) {
	t.Helper()
	require.NoError(t, tr.db.WithTransaction(func(tx *sql.Tx) error {
		fn(tx)
		return nil
	}))
}
