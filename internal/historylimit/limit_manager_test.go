package historylimit

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/events"
	"github.com/uptimewatcher/watcher/internal/repositories"
)

func newTestManager(t *testing.T) (*LimitManager, *repositories.HistoryRepository, *repositories.MonitorRepository, *repositories.SiteRepository) {
	t.Helper()
	db, err := database.New(database.Config{Path: "file::memory:?cache=shared", Name: "test"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	monitorRepo := repositories.NewMonitorRepository(db, log)
	siteRepo := repositories.NewSiteRepository(db, monitorRepo, log)
	historyRepo := repositories.NewHistoryRepository(db, log)
	settingsRepo := repositories.NewSettingsRepository(db, log)
	bus := events.NewBus(log)

	return New(db, settingsRepo, historyRepo, bus, log), historyRepo, monitorRepo, siteRepo
}

func TestLimitManager_SetHistoryLimit_PersistsValue(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	require.NoError(t, mgr.SetHistoryLimit(100))

	limit, err := mgr.GetHistoryLimit()
	require.NoError(t, err)
	assert.Equal(t, 100, limit)
}

func TestLimitManager_SetHistoryLimit_FloorsBelowMinimum(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	require.NoError(t, mgr.SetHistoryLimit(1))

	limit, err := mgr.GetHistoryLimit()
	require.NoError(t, err)
	assert.Equal(t, domain.HistoryLimitFloor, limit)
}

func TestLimitManager_SetHistoryLimit_KeepsHistoryBelowLimit(t *testing.T) {
	mgr, historyRepo, monitorRepo, siteRepo := newTestManager(t)

	require.NoError(t, siteRepo.CreateExternal(domain.Site{Identifier: "site-1", Monitoring: true}))
	monitor, err := monitorRepo.CreateExternal("site-1", domain.Monitor{Type: domain.MonitorTypeHTTP, URL: "http://x"})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, historyRepo.AddEntryExternal(monitor.ID, domain.HistoryEntry{Status: domain.StatusUp}, ""))
	}

	require.NoError(t, mgr.SetHistoryLimit(domain.HistoryLimitFloor))

	count, err := historyRepo.CountByMonitorID(monitor.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, count) // fewer rows than the floor: nothing pruned
}

func TestLimitManager_SetHistoryLimit_EmitsChangedEvent(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	done := make(chan events.Event, 1)
	mgr.bus.Subscribe(events.EventHistoryLimitChanged, func(e *events.Event) { done <- *e })

	require.NoError(t, mgr.SetHistoryLimit(200))

	e := <-done
	assert.Equal(t, 200, e.Data["limit"])
}
