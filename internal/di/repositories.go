package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/repositories"
)

// InitializeRepositories creates every repository against container.DB and
// stores them in the container. MonitorRepository has no dependencies;
// SiteRepository composes it to hydrate each site's monitor list, so it
// must be created second.
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container must have a database before repositories can be initialized")
	}

	container.MonitorRepo = repositories.NewMonitorRepository(container.DB, log)
	container.SiteRepo = repositories.NewSiteRepository(container.DB, container.MonitorRepo, log)
	container.HistoryRepo = repositories.NewHistoryRepository(container.DB, log)
	container.SettingsRepo = repositories.NewSettingsRepository(container.DB, log)

	log.Info().Msg("repositories initialized")

	return nil
}
