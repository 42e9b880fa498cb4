// Package di wires every package in the module together in dependency
// order: database, then repositories, then the business-logic packages
// (checker, monitormgr, sitewriter, sitecache, historylimit,
// importexport, analytics), then the command facade, then the optional
// remote backup infrastructure, via a staged InitializeX(container, log)
// call sequence, down to this repo's single database and single
// orchestrator.
package di

import (
	"github.com/uptimewatcher/watcher/internal/analytics"
	"github.com/uptimewatcher/watcher/internal/backup"
	"github.com/uptimewatcher/watcher/internal/checker"
	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/events"
	"github.com/uptimewatcher/watcher/internal/historylimit"
	"github.com/uptimewatcher/watcher/internal/importexport"
	"github.com/uptimewatcher/watcher/internal/monitormgr"
	"github.com/uptimewatcher/watcher/internal/monitors"
	"github.com/uptimewatcher/watcher/internal/orchestrator"
	"github.com/uptimewatcher/watcher/internal/repositories"
	"github.com/uptimewatcher/watcher/internal/scheduler"
	"github.com/uptimewatcher/watcher/internal/sitecache"
	"github.com/uptimewatcher/watcher/internal/sitewriter"
)

// Container holds every fully constructed component of the running
// application. Every field except the optional remote backup ones below
// is populated by the time Wire returns successfully.
type Container struct {
	DB *database.DB

	SiteRepo     *repositories.SiteRepository
	MonitorRepo  *repositories.MonitorRepository
	HistoryRepo  *repositories.HistoryRepository
	SettingsRepo *repositories.SettingsRepository

	Bus *events.Bus

	MonitorRegistry      *monitors.Registry
	MonitorScheduler     *scheduler.MonitorScheduler
	MaintenanceScheduler *scheduler.MaintenanceScheduler
	Checker              *checker.StatusChecker
	MonitorMgr           *monitormgr.Manager
	Writer               *sitewriter.Writer
	SiteCache            *sitecache.Manager
	LimitManager         *historylimit.LimitManager
	ImportExport         *importexport.Manager
	Analyzer             *analytics.Calculator

	Orchestrator *orchestrator.Orchestrator

	// Remote backup is optional: populated only when cfg.BackupBucket is
	// set. Nil means the feature is disabled for this run.
	BackupClient   *backup.Client
	BackupService  *backup.BackupService
	RestoreService *backup.RestoreService
}

// Close releases every resource the container holds: it stops the
// monitor and maintenance schedulers and closes the database handle.
// Safe to call after a partially successful Wire, since each step is
// skipped when its field is still nil.
func (c *Container) Close() {
	if c.MonitorScheduler != nil {
		c.MonitorScheduler.StopAll()
	}
	if c.MaintenanceScheduler != nil {
		c.MaintenanceScheduler.Stop()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
