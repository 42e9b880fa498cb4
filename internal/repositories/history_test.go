package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/domain"
)

func createTestMonitor(t *testing.T, tr *testRepos, siteID string) string {
	t.Helper()
	createTestSite(t, tr, siteID)
	m, err := tr.monitors.CreateExternal(siteID, domain.Monitor{Type: domain.MonitorTypeHTTP, URL: "https://example.com"})
	require.NoError(t, err)
	return m.ID
}

func TestHistoryRepository_AddEntryAndFind(t *testing.T) {
	tr := newTestRepos(t)
	monitorID := createTestMonitor(t, tr, "site-1")

	require.NoError(t, tr.history.AddEntryExternal(monitorID, domain.HistoryEntry{
		Status: domain.StatusUp, ResponseTimeMS: 120, Timestamp: time.Now(),
	}, ""))

	entries, err := tr.history.FindByMonitorID(monitorID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusUp, entries[0].Status)
	assert.Equal(t, 120, entries[0].ResponseTimeMS)
}

func TestHistoryRepository_FindByMonitorID_NewestFirst(t *testing.T) {
	tr := newTestRepos(t)
	monitorID := createTestMonitor(t, tr, "site-1")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.history.AddEntryExternal(monitorID, domain.HistoryEntry{
			Status: domain.StatusUp, ResponseTimeMS: i, Timestamp: base.Add(time.Duration(i) * time.Minute),
		}, ""))
	}

	entries, err := tr.history.FindByMonitorID(monitorID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 2, entries[0].ResponseTimeMS, "newest entry first")
	assert.Equal(t, 0, entries[2].ResponseTimeMS, "oldest entry last")
}

func TestHistoryRepository_PruneHistoryInternal_KeepsMostRecent(t *testing.T) {
	tr := newTestRepos(t)
	monitorID := createTestMonitor(t, tr, "site-1")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		require.NoError(t, tr.history.AddEntryExternal(monitorID, domain.HistoryEntry{
			Status: domain.StatusUp, ResponseTimeMS: i, Timestamp: base.Add(time.Duration(i) * time.Minute),
		}, ""))
	}

	require.NoError(t, tr.db.WithTransaction(func(tx *sql.Tx) error {
		return tr.history.PruneHistoryInternal(tx, monitorID, 3)
	}))

	entries, err := tr.history.FindByMonitorID(monitorID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 9, entries[0].ResponseTimeMS)
	assert.Equal(t, 7, entries[2].ResponseTimeMS)
}

func TestHistoryRepository_PruneAllHistoryExternal_PrunesEveryMonitor(t *testing.T) {
	tr := newTestRepos(t)
	monitorA := createTestMonitor(t, tr, "site-a")
	monitorB := createTestMonitor(t, tr, "site-b")

	base := time.Now().Add(-time.Hour)
	for _, id := range []string{monitorA, monitorB} {
		for i := 0; i < 5; i++ {
			require.NoError(t, tr.history.AddEntryExternal(id, domain.HistoryEntry{
				Status: domain.StatusUp, ResponseTimeMS: i, Timestamp: base.Add(time.Duration(i) * time.Minute),
			}, ""))
		}
	}

	require.NoError(t, tr.history.PruneAllHistoryExternal(2))

	entriesA, err := tr.history.FindByMonitorID(monitorA, 0)
	require.NoError(t, err)
	assert.Len(t, entriesA, 2)

	entriesB, err := tr.history.FindByMonitorID(monitorB, 0)
	require.NoError(t, err)
	assert.Len(t, entriesB, 2)
}

func TestHistoryRepository_DeleteByMonitorIDInternal(t *testing.T) {
	tr := newTestRepos(t)
	monitorID := createTestMonitor(t, tr, "site-1")
	require.NoError(t, tr.history.AddEntryExternal(monitorID, domain.HistoryEntry{Status: domain.StatusUp, Timestamp: time.Now()}, ""))

	require.NoError(t, tr.db.WithTransaction(func(tx *sql.Tx) error {
		return tr.history.DeleteByMonitorIDInternal(tx, monitorID)
	}))

	entries, err := tr.history.FindByMonitorID(monitorID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryRepository_CountByMonitorID(t *testing.T) {
	tr := newTestRepos(t)
	monitorID := createTestMonitor(t, tr, "site-1")
	require.NoError(t, tr.history.AddEntryExternal(monitorID, domain.HistoryEntry{Status: domain.StatusUp, Timestamp: time.Now()}, ""))
	require.NoError(t, tr.history.AddEntryExternal(monitorID, domain.HistoryEntry{Status: domain.StatusDown, Timestamp: time.Now()}, ""))

	count, err := tr.history.CountByMonitorID(monitorID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
