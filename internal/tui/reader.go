// Package tui implements a read-only bubbletea dashboard over the
// monitoring database. It issues no commands — only reads sites,
// monitors, and analytics for display.
package tui

import (
	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/analytics"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/repositories"
)

// analyticsWindow bounds how many history samples feed the per-monitor
// trend summary shown in the dashboard.
const analyticsWindow = 50

// Dashboard is one point-in-time snapshot of every site and monitor.
type Dashboard struct {
	Sites        []domain.Site
	Analytics    map[string]analytics.Summary // keyed by monitor ID
	HistoryLimit int
}

// Reader assembles Dashboard snapshots from the repository layer. It
// never writes: no Internal/External mutation method is called here.
type Reader struct {
	sites    *repositories.SiteRepository
	monitors *repositories.MonitorRepository
	settings *repositories.SettingsRepository
	analyzer *analytics.Calculator
	log      zerolog.Logger
}

func NewReader(
	sites *repositories.SiteRepository,
	monitors *repositories.MonitorRepository,
	settings *repositories.SettingsRepository,
	analyzer *analytics.Calculator,
	log zerolog.Logger,
) *Reader {
	return &Reader{sites: sites, monitors: monitors, settings: settings, analyzer: analyzer, log: log.With().Str("component", "tui_reader").Logger()}
}

// Snapshot hydrates every site with its monitors and computes a trend
// summary for each. A monitor analytics failure (e.g. too few samples)
// is logged and simply omitted from the result rather than failing the
// whole snapshot.
func (r *Reader) Snapshot() (Dashboard, error) {
	sites, err := r.sites.FindAll()
	if err != nil {
		return Dashboard{}, err
	}

	summaries := make(map[string]analytics.Summary)
	for i := range sites {
		monitors, err := r.monitors.FindBySiteIdentifier(sites[i].Identifier)
		if err != nil {
			return Dashboard{}, err
		}
		sites[i].Monitors = monitors

		for _, m := range monitors {
			summary, err := r.analyzer.Summarize(m.ID, analyticsWindow)
			if err != nil {
				r.log.Debug().Err(err).Str("monitor_id", m.ID).Msg("skipping analytics for monitor")
				continue
			}
			summaries[m.ID] = summary
		}
	}

	limit, err := r.settings.GetHistoryLimit()
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{Sites: sites, Analytics: summaries, HistoryLimit: limit}, nil
}
