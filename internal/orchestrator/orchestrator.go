// Package orchestrator implements the uptime orchestrator: the single
// command facade the HTTP adapter (internal/server) calls into; cmd/tui
// does not use it and reads the repositories directly.
// Every exported method dispatches to the site cache, monitor manager,
// history limit manager or import/export manager inside their own
// transactional boundaries; this package holds no transaction of its own
// and never touches a repository directly.
package orchestrator

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/analytics"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/historylimit"
	"github.com/uptimewatcher/watcher/internal/importexport"
	"github.com/uptimewatcher/watcher/internal/sitewriter"
)

// siteManager is the slice of internal/sitecache.Manager's API the
// orchestrator dispatches reads and writes to.
type siteManager interface {
	Get(identifier string) (domain.Site, bool)
	All() []domain.Site
	CreateSite(site domain.Site) (domain.Site, error)
	UpdateSite(identifier string, partial sitewriter.SitePartial) (domain.Site, error)
	DeleteSite(identifier string) (bool, error)
}

// monitorManager is the slice of internal/monitormgr.Manager's API the
// orchestrator dispatches start/stop commands to.
type monitorManager interface {
	StartMonitoringForSite(siteID, monitorID string) error
	StopMonitoringForSite(siteID, monitorID string) error
}

// monitorChecker is the slice of internal/checker.StatusChecker's API
// checkMonitorNow needs.
type monitorChecker interface {
	CheckNow(siteID string, monitor domain.Monitor) error
}

// analyticsWindow bounds how much history GetMonitorAnalytics pulls per
// call; analytics is a point-in-time read, not a durability snapshot, so
// it does not need the unbounded history import/export deals with.
const analyticsWindow = 500

// Orchestrator is the command facade used by the HTTP adapter.
type Orchestrator struct {
	sites     siteManager
	monitors  monitorManager
	checker   monitorChecker
	limits    *historylimit.LimitManager
	importExp *importexport.Manager
	analyzer  *analytics.Calculator
	log       zerolog.Logger
}

// New creates an Orchestrator.
func New(
	sites siteManager,
	monitors monitorManager,
	checker monitorChecker,
	limits *historylimit.LimitManager,
	importExp *importexport.Manager,
	analyzer *analytics.Calculator,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sites:     sites,
		monitors:  monitors,
		checker:   checker,
		limits:    limits,
		importExp: importExp,
		analyzer:  analyzer,
		log:       log.With().Str("component", "orchestrator").Logger(),
	}
}

// AddSite creates a site and its monitors.
func (o *Orchestrator) AddSite(site domain.Site) (domain.Site, error) {
	return o.sites.CreateSite(site)
}

// UpdateSite applies a partial update to an existing site.
func (o *Orchestrator) UpdateSite(identifier string, partial sitewriter.SitePartial) (domain.Site, error) {
	return o.sites.UpdateSite(identifier, partial)
}

// RemoveSite deletes a site and everything it owns.
func (o *Orchestrator) RemoveSite(identifier string) (bool, error) {
	return o.sites.DeleteSite(identifier)
}

// GetSites returns every cached site.
func (o *Orchestrator) GetSites() []domain.Site {
	return o.sites.All()
}

// StartMonitoringForSite enables monitoring for a site, or a single monitor
// within it when monitorID is non-empty.
func (o *Orchestrator) StartMonitoringForSite(siteID, monitorID string) error {
	return o.monitors.StartMonitoringForSite(siteID, monitorID)
}

// StopMonitoringForSite mirrors StartMonitoringForSite.
func (o *Orchestrator) StopMonitoringForSite(siteID, monitorID string) error {
	return o.monitors.StopMonitoringForSite(siteID, monitorID)
}

// StartMonitoring enables monitoring across every cached site.
func (o *Orchestrator) StartMonitoring() error {
	for _, site := range o.sites.All() {
		if err := o.monitors.StartMonitoringForSite(site.Identifier, ""); err != nil {
			return fmt.Errorf("start monitoring for site %s: %w", site.Identifier, err)
		}
	}
	return nil
}

// StopMonitoring disables monitoring across every cached site.
func (o *Orchestrator) StopMonitoring() error {
	for _, site := range o.sites.All() {
		if err := o.monitors.StopMonitoringForSite(site.Identifier, ""); err != nil {
			return fmt.Errorf("stop monitoring for site %s: %w", site.Identifier, err)
		}
	}
	return nil
}

// CheckMonitorNow runs one synchronous check for a single monitor,
// identified by its owning site and its own id.
func (o *Orchestrator) CheckMonitorNow(siteID, monitorID string) error {
	site, ok := o.sites.Get(siteID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSiteNotFound, siteID)
	}
	for _, m := range site.Monitors {
		if m.ID == monitorID {
			return o.checker.CheckNow(siteID, m)
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrMonitorNotFound, monitorID)
}

// GetHistoryLimit returns the configured history limit.
func (o *Orchestrator) GetHistoryLimit() (int, error) {
	return o.limits.GetHistoryLimit()
}

// SetHistoryLimit changes the configured history limit and prunes existing
// history to match.
func (o *Orchestrator) SetHistoryLimit(newLimit int) error {
	return o.limits.SetHistoryLimit(newLimit)
}

// ExportData serializes the entire database as JSON.
func (o *Orchestrator) ExportData() ([]byte, error) {
	return o.importExp.ExportData()
}

// ImportData replaces the entire database with the snapshot encoded in data.
func (o *Orchestrator) ImportData(data []byte) error {
	return o.importExp.ImportData(data)
}

// GetMonitorAnalytics computes response-time statistics and a smoothed
// trend for a monitor over its recent history. Read-only; it never
// touches the status state machine.
func (o *Orchestrator) GetMonitorAnalytics(monitorID string) (analytics.Summary, error) {
	return o.analyzer.Summarize(monitorID, analyticsWindow)
}
