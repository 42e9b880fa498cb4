package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/backup"
	"github.com/uptimewatcher/watcher/internal/config"
	"github.com/uptimewatcher/watcher/internal/scheduler"
)

const (
	walCheckpointSchedule = "@every 5m"
	vacuumSchedule        = "@every 24h"
	backupUploadSchedule  = "@every 1h"
)

// Wire initializes every dependency and returns a fully constructed
// container, in four stages:
//
//  1. InitializeDatabase opens uptime.db and applies its schema.
//  2. InitializeRepositories builds every repository on top of it.
//  3. InitializeServices builds the business-logic packages and the
//     orchestrator that fronts them.
//  4. The optional remote backup client is constructed when
//     cfg.BackupBucket is set, and the maintenance scheduler is started
//     with its recurring jobs.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabase(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	if err := InitializeRepositories(container, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("initialize repositories: %w", err)
	}

	if err := InitializeServices(container, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("initialize services: %w", err)
	}

	if err := initializeBackup(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("initialize backup: %w", err)
	}

	if err := initializeMaintenance(container, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("initialize maintenance scheduler: %w", err)
	}

	log.Info().Msg("dependency wiring completed")

	return container, nil
}

// initializeBackup constructs the S3-compatible backup client and its
// upload/restore services. A blank BackupBucket leaves all three fields
// nil, which every caller treats as "remote backup disabled".
func initializeBackup(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if cfg.BackupBucket == "" {
		return nil
	}

	client, err := backup.NewClient(
		context.Background(),
		cfg.BackupEndpoint,
		cfg.BackupRegion,
		cfg.BackupAccessKeyID,
		cfg.BackupSecretAccessKey,
		cfg.BackupBucket,
		log,
	)
	if err != nil {
		return err
	}
	container.BackupClient = client
	container.BackupService = backup.NewBackupService(client, container.DB.Path(), cfg.DataDir, log)
	container.RestoreService = backup.NewRestoreService(client, cfg.DataDir, container.DB.Path(), log)

	return nil
}

// initializeMaintenance registers the recurring upkeep jobs and starts
// the cron scheduler that runs them. BackupUploadJob is only registered
// when remote backup was enabled above.
func initializeMaintenance(container *Container, log zerolog.Logger) error {
	container.MaintenanceScheduler = scheduler.NewMaintenanceScheduler(log)

	if err := container.MaintenanceScheduler.AddJob(walCheckpointSchedule, scheduler.NewWALCheckpointJob(container.DB, log)); err != nil {
		return err
	}
	if err := container.MaintenanceScheduler.AddJob(vacuumSchedule, scheduler.NewVacuumJob(container.DB, log)); err != nil {
		return err
	}
	if container.BackupService != nil {
		if err := container.MaintenanceScheduler.AddJob(backupUploadSchedule, scheduler.NewBackupUploadJob(container.BackupService, log)); err != nil {
			return err
		}
	}

	container.MaintenanceScheduler.Start()

	return nil
}
