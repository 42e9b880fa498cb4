// Package main is the entry point for Uptime Watcher, a self-hosted
// uptime monitoring backend. It manages HTTP/TCP health monitors, keeps
// their check history, and serves both a REST command surface and a
// live event stream for the desktop UI.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/uptimewatcher/watcher/internal/backup"
	"github.com/uptimewatcher/watcher/internal/config"
	"github.com/uptimewatcher/watcher/internal/di"
	"github.com/uptimewatcher/watcher/internal/server"
	"github.com/uptimewatcher/watcher/pkg/logger"
)

func main() {
	var dataDirFlag string
	flag.StringVar(&dataDirFlag, "data-dir", "", "database directory path (overrides UPTIME_DATA_DIR)")
	flag.Parse()

	cfg, err := config.Load(dataDirFlag)
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	log.Info().Msg("starting uptime watcher")

	// Check for a pending restore before any database connection is
	// opened, so a staged backup restore is applied cleanly rather than
	// clobbering a live WAL.
	dbPath := filepath.Join(cfg.DataDir, "uptime.db")
	restoreSvc := backup.NewRestoreService(nil, cfg.DataDir, dbPath, log)
	pending, err := restoreSvc.HasPendingRestore()
	if err != nil {
		log.Error().Err(err).Msg("failed to check for pending restore")
	}
	if pending {
		log.Warn().Msg("pending restore detected, executing staged restore")
		if err := restoreSvc.ExecuteStagedRestore(); err != nil {
			log.Fatal().Err(err).Msg("failed to execute staged restore")
		}
		log.Info().Msg("restore completed, proceeding with normal startup")
	}

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Port:         cfg.Port,
		Orchestrator: container.Orchestrator,
		Bus:          container.Bus,
		DB:           container.DB,
		DevMode:      cfg.DevMode,
		Log:          log,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	if container.MaintenanceScheduler != nil {
		container.MaintenanceScheduler.Stop()
		log.Info().Msg("maintenance scheduler stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
