package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/config"
	"github.com/uptimewatcher/watcher/internal/database"
)

// InitializeDatabase opens uptime.db under cfg.DataDir and applies the
// schema. A single database backs the whole service; there is no
// per-database profile selector to choose between.
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "uptime.db"),
		Name: "uptime",
	})
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	container.DB = db

	log.Info().Str("path", db.Path()).Msg("database initialized and schema applied")

	return container, nil
}
