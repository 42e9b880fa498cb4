// Package main runs the read-only terminal dashboard, a companion
// process to cmd/server that renders sites, monitors, and response-time
// trends without ever issuing a command against them.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uptimewatcher/watcher/internal/analytics"
	"github.com/uptimewatcher/watcher/internal/config"
	"github.com/uptimewatcher/watcher/internal/database"
	"github.com/uptimewatcher/watcher/internal/repositories"
	"github.com/uptimewatcher/watcher/internal/tui"
	"github.com/uptimewatcher/watcher/pkg/logger"
)

func main() {
	var dataDirFlag string
	flag.StringVar(&dataDirFlag, "data-dir", "", "database directory path (overrides UPTIME_DATA_DIR)")
	flag.Parse()

	cfg, err := config.Load(dataDirFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "uptime.db"),
		Name: "uptime",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	monitorRepo := repositories.NewMonitorRepository(db, log)
	siteRepo := repositories.NewSiteRepository(db, monitorRepo, log)
	historyRepo := repositories.NewHistoryRepository(db, log)
	settingsRepo := repositories.NewSettingsRepository(db, log)
	analyzer := analytics.New(historyRepo, log)

	reader := tui.NewReader(siteRepo, monitorRepo, settingsRepo, analyzer, log)

	p := tea.NewProgram(tui.NewModel(reader), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
