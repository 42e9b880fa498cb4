package orchestrator

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/analytics"
	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/events"
	"github.com/uptimewatcher/watcher/internal/historylimit"
	"github.com/uptimewatcher/watcher/internal/importexport"
	"github.com/uptimewatcher/watcher/internal/repositories"
	"github.com/uptimewatcher/watcher/internal/sitewriter"
)

type fakeSites struct {
	sites       map[string]domain.Site
	createErr   error
	deleteExist bool
}

func (f *fakeSites) Get(identifier string) (domain.Site, bool) {
	s, ok := f.sites[identifier]
	return s, ok
}
func (f *fakeSites) All() []domain.Site {
	out := make([]domain.Site, 0, len(f.sites))
	for _, s := range f.sites {
		out = append(out, s)
	}
	return out
}
func (f *fakeSites) CreateSite(site domain.Site) (domain.Site, error) {
	if f.createErr != nil {
		return domain.Site{}, f.createErr
	}
	if f.sites == nil {
		f.sites = make(map[string]domain.Site)
	}
	f.sites[site.Identifier] = site
	return site, nil
}
func (f *fakeSites) UpdateSite(identifier string, partial sitewriter.SitePartial) (domain.Site, error) {
	s := f.sites[identifier]
	if partial.Name != nil {
		s.Name = *partial.Name
	}
	f.sites[identifier] = s
	return s, nil
}
func (f *fakeSites) DeleteSite(identifier string) (bool, error) {
	delete(f.sites, identifier)
	return f.deleteExist, nil
}

type fakeMonitors struct {
	started []string
	stopped []string
}

func (f *fakeMonitors) StartMonitoringForSite(siteID, monitorID string) error {
	f.started = append(f.started, siteID+"/"+monitorID)
	return nil
}
func (f *fakeMonitors) StopMonitoringForSite(siteID, monitorID string) error {
	f.stopped = append(f.stopped, siteID+"/"+monitorID)
	return nil
}

type fakeChecker struct {
	checkedMonitorIDs []string
	err               error
}

func (f *fakeChecker) CheckNow(siteID string, monitor domain.Monitor) error {
	f.checkedMonitorIDs = append(f.checkedMonitorIDs, monitor.ID)
	return f.err
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeSites, *fakeMonitors, *fakeChecker) {
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

	limits := historylimit.New(db, settingsRepo, historyRepo, bus, log)
	importExp := importexport.New(db, siteRepo, monitorRepo, historyRepo, settingsRepo, bus, log)
	analyzer := analytics.New(historyRepo, log)

	sites := &fakeSites{sites: make(map[string]domain.Site)}
	monitors := &fakeMonitors{}
	checker := &fakeChecker{}

	return New(sites, monitors, checker, limits, importExp, analyzer, log), sites, monitors, checker
}

func TestOrchestrator_AddSite_DelegatesToSiteManager(t *testing.T) {
	o, sites, _, _ := newTestOrchestrator(t)

	_, err := o.AddSite(domain.Site{Identifier: "s1", Name: "A"})
	require.NoError(t, err)
	_, ok := sites.Get("s1")
	assert.True(t, ok)
}

func TestOrchestrator_AddSite_PropagatesFailure(t *testing.T) {
	o, sites, _, _ := newTestOrchestrator(t)
	sites.createErr = errors.New("db down")

	_, err := o.AddSite(domain.Site{Identifier: "s1"})
	assert.Error(t, err)
}

func TestOrchestrator_StartStopMonitoring_IteratesAllCachedSites(t *testing.T) {
	o, sites, monitors, _ := newTestOrchestrator(t)
	sites.sites["s1"] = domain.Site{Identifier: "s1"}
	sites.sites["s2"] = domain.Site{Identifier: "s2"}

	require.NoError(t, o.StartMonitoring())
	assert.ElementsMatch(t, []string{"s1/", "s2/"}, monitors.started)

	require.NoError(t, o.StopMonitoring())
	assert.ElementsMatch(t, []string{"s1/", "s2/"}, monitors.stopped)
}

func TestOrchestrator_CheckMonitorNow_ResolvesMonitorWithinSite(t *testing.T) {
	o, sites, _, checker := newTestOrchestrator(t)
	sites.sites["s1"] = domain.Site{Identifier: "s1", Monitors: []domain.Monitor{{ID: "m1"}}}

	require.NoError(t, o.CheckMonitorNow("s1", "m1"))
	assert.Contains(t, checker.checkedMonitorIDs, "m1")
}

func TestOrchestrator_CheckMonitorNow_UnknownSiteFails(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	err := o.CheckMonitorNow("missing", "m1")
	assert.ErrorIs(t, err, domain.ErrSiteNotFound)
}

func TestOrchestrator_CheckMonitorNow_UnknownMonitorFails(t *testing.T) {
	o, sites, _, _ := newTestOrchestrator(t)
	sites.sites["s1"] = domain.Site{Identifier: "s1"}

	err := o.CheckMonitorNow("s1", "missing")
	assert.ErrorIs(t, err, domain.ErrMonitorNotFound)
}

func TestOrchestrator_SetAndGetHistoryLimit_RoundTrips(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	require.NoError(t, o.SetHistoryLimit(200))
	limit, err := o.GetHistoryLimit()
	require.NoError(t, err)
	assert.Equal(t, 200, limit)
}

func TestOrchestrator_ExportThenImport_Succeeds(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	data, err := o.ExportData()
	require.NoError(t, err)
	require.NoError(t, o.ImportData(data))
}

func TestOrchestrator_GetMonitorAnalytics_HandlesEmptyHistory(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)

	summary, err := o.GetMonitorAnalytics("missing-monitor")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.SampleCount)
}
