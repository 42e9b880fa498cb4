package di

import (
	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/analytics"
	"github.com/uptimewatcher/watcher/internal/checker"
	"github.com/uptimewatcher/watcher/internal/events"
	"github.com/uptimewatcher/watcher/internal/historylimit"
	"github.com/uptimewatcher/watcher/internal/importexport"
	"github.com/uptimewatcher/watcher/internal/monitormgr"
	"github.com/uptimewatcher/watcher/internal/monitors"
	"github.com/uptimewatcher/watcher/internal/orchestrator"
	"github.com/uptimewatcher/watcher/internal/scheduler"
	"github.com/uptimewatcher/watcher/internal/sitecache"
	"github.com/uptimewatcher/watcher/internal/sitewriter"
)

// InitializeServices builds every business-logic package on top of
// container's database and repositories, in the order their
// constructors require:
//
//  1. events.Bus and monitors.Registry have no dependencies.
//  2. checker.StatusChecker is constructed without its scheduler — the
//     scheduler needs the checker's Probe method, so the circular
//     dependency is broken by wiring the scheduler back in afterward via
//     SetScheduler.
//  3. monitormgr.Manager, sitewriter.Writer and sitecache.Manager each
//     compose the one before it.
//  4. sitecache.LoadAll hydrates the cache from persistence, then every
//     cached site is handed to monitormgr.SetupSiteForMonitoring so
//     monitors already marked as enabled resume scheduling on restart.
//  5. historylimit, importexport and analytics have no dependency on one
//     another and are built last, alongside the orchestrator that
//     dispatches to all of them.
func InitializeServices(container *Container, log zerolog.Logger) error {
	container.Bus = events.NewBus(log)
	container.MonitorRegistry = monitors.NewRegistry()

	container.Checker = checker.New(
		container.DB,
		container.MonitorRegistry,
		container.SiteRepo,
		container.MonitorRepo,
		container.HistoryRepo,
		container.SettingsRepo,
		container.Bus,
		log,
	)

	container.MonitorScheduler = scheduler.NewMonitorScheduler(container.Checker.Probe, container.Bus, log)
	container.Checker.SetScheduler(container.MonitorScheduler)

	container.MonitorMgr = monitormgr.New(
		container.DB,
		container.MonitorRepo,
		container.MonitorScheduler,
		container.Checker,
		log,
	)

	container.Writer = sitewriter.New(
		container.DB,
		container.SiteRepo,
		container.MonitorRepo,
		container.MonitorScheduler,
		container.MonitorMgr,
		log,
	)

	container.SiteCache = sitecache.New(
		container.Writer,
		container.SiteRepo,
		container.MonitorRepo,
		container.HistoryRepo,
		container.SettingsRepo,
		container.Bus,
		log,
	)

	if err := container.SiteCache.LoadAll(); err != nil {
		return err
	}
	for _, site := range container.SiteCache.All() {
		if err := container.MonitorMgr.SetupSiteForMonitoring(site); err != nil {
			return err
		}
	}

	container.LimitManager = historylimit.New(container.DB, container.SettingsRepo, container.HistoryRepo, container.Bus, log)
	container.ImportExport = importexport.New(container.DB, container.SiteRepo, container.MonitorRepo, container.HistoryRepo, container.SettingsRepo, container.Bus, log)
	container.Analyzer = analytics.New(container.HistoryRepo, log)

	container.Orchestrator = orchestrator.New(
		container.SiteCache,
		container.MonitorMgr,
		container.Checker,
		container.LimitManager,
		container.ImportExport,
		container.Analyzer,
		log,
	)

	log.Info().Msg("services initialized")

	return nil
}
