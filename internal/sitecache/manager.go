// Package sitecache implements the in-memory identifier->Site cache that
// UI-facing reads serve from. Repositories remain the durability source of
// truth; the cache is kept in sync by wrapping every mutating operation
// from internal/sitewriter and updating itself only after that operation's
// transaction commits.
package sitecache

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/events"
	"github.com/uptimewatcher/watcher/internal/repositories"
	"github.com/uptimewatcher/watcher/internal/sitewriter"
)

// siteMutator is the slice of internal/sitewriter.Writer's API the cache
// wraps.
type siteMutator interface {
	CreateSite(site domain.Site) (domain.Site, error)
	UpdateSite(existing domain.Site, partial sitewriter.SitePartial) (domain.Site, error)
	DeleteSite(identifier string) (bool, error)
}

// Manager owns the in-memory site cache.
type Manager struct {
	writer      siteMutator
	siteRepo    *repositories.SiteRepository
	monitorRepo *repositories.MonitorRepository
	historyRepo *repositories.HistoryRepository
	settings    *repositories.SettingsRepository
	bus         *events.Bus
	log         zerolog.Logger

	mu    sync.RWMutex
	sites map[string]domain.Site
}

// New creates a Manager. Call LoadAll once, on startup, before serving
// reads.
func New(
	writer siteMutator,
	siteRepo *repositories.SiteRepository,
	monitorRepo *repositories.MonitorRepository,
	historyRepo *repositories.HistoryRepository,
	settings *repositories.SettingsRepository,
	bus *events.Bus,
	log zerolog.Logger,
) *Manager {
	return &Manager{
		writer:      writer,
		siteRepo:    siteRepo,
		monitorRepo: monitorRepo,
		historyRepo: historyRepo,
		settings:    settings,
		bus:         bus,
		log:         log.With().Str("component", "site_cache").Logger(),
		sites:       make(map[string]domain.Site),
	}
}

// LoadAll hydrates the cache from persistence: every site, its monitors,
// and up to the configured historyLimit of each monitor's most recent
// history entries.
func (m *Manager) LoadAll() error {
	sites, err := m.siteRepo.FindAll()
	if err != nil {
		return err
	}

	limit, err := m.settings.GetHistoryLimit()
	if err != nil {
		return err
	}

	hydrated := make(map[string]domain.Site, len(sites))
	for _, site := range sites {
		monitors, err := m.monitorRepo.FindBySiteIdentifier(site.Identifier)
		if err != nil {
			return err
		}
		for i := range monitors {
			history, err := m.historyRepo.FindByMonitorID(monitors[i].ID, limit)
			if err != nil {
				return err
			}
			monitors[i].History = history
		}
		site.Monitors = monitors
		hydrated[site.Identifier] = site
	}

	m.mu.Lock()
	m.sites = hydrated
	m.mu.Unlock()

	m.log.Info().Int("sites", len(hydrated)).Msg("site cache loaded")
	return nil
}

// Get returns a deep copy of the cached site, or false if unknown.
func (m *Manager) Get(identifier string) (domain.Site, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	site, ok := m.sites[identifier]
	if !ok {
		return domain.Site{}, false
	}
	return site.Clone(), true
}

// All returns a deep copy of every cached site.
func (m *Manager) All() []domain.Site {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Site, 0, len(m.sites))
	for _, site := range m.sites {
		out = append(out, site.Clone())
	}
	return out
}

// CreateSite delegates to the writer, then updates the cache and emits
// internal:site:cache-updated plus site:added.
func (m *Manager) CreateSite(site domain.Site) (domain.Site, error) {
	created, err := m.writer.CreateSite(site)
	if err != nil {
		return domain.Site{}, err
	}
	m.put(created)
	m.emitCacheUpdated()
	m.bus.Emit(events.EventSiteAdded, "sitecache", map[string]interface{}{"site": created})
	return created, nil
}

// UpdateSite resolves the existing cached site, failing with
// domain.ErrSiteNotFound if absent, delegates to the writer, then updates
// the cache and emits site:updated.
func (m *Manager) UpdateSite(identifier string, partial sitewriter.SitePartial) (domain.Site, error) {
	existing, ok := m.Get(identifier)
	if !ok {
		return domain.Site{}, fmt.Errorf("%w: %s", domain.ErrSiteNotFound, identifier)
	}

	updated, err := m.writer.UpdateSite(existing, partial)
	if err != nil {
		return domain.Site{}, err
	}
	m.put(updated)
	m.emitCacheUpdated()
	m.bus.Emit(events.EventSiteUpdated, "sitecache", map[string]interface{}{"site": updated})
	return updated, nil
}

// DeleteSite delegates to the writer, then removes the site from cache
// (if it existed) and emits site:removed.
func (m *Manager) DeleteSite(identifier string) (bool, error) {
	existed, err := m.writer.DeleteSite(identifier)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}

	m.mu.Lock()
	delete(m.sites, identifier)
	m.mu.Unlock()

	m.emitCacheUpdated()
	m.bus.Emit(events.EventSiteRemoved, "sitecache", map[string]interface{}{"identifier": identifier})
	return true, nil
}

func (m *Manager) put(site domain.Site) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[site.Identifier] = site
}

func (m *Manager) emitCacheUpdated() {
	m.bus.Emit(events.EventInternalSiteCacheUpdated, "sitecache", nil)
}
