package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/database"
)

// WALCheckpointJob truncates uptime.db's write-ahead log on a cron
// schedule, keeping the WAL file from growing unbounded between the
// natural checkpoints SQLite runs on its own.
type WALCheckpointJob struct {
	JobBase
	db  *database.DB
	log zerolog.Logger
}

// NewWALCheckpointJob creates a WALCheckpointJob.
func NewWALCheckpointJob(db *database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{db: db, log: log.With().Str("job", "wal_checkpoint").Logger()}
}

// Name returns the job name.
func (j *WALCheckpointJob) Name() string { return "wal_checkpoint" }

// Run runs a TRUNCATE-mode WAL checkpoint.
func (j *WALCheckpointJob) Run() error {
	return j.db.WALCheckpoint("TRUNCATE")
}

// VacuumJob reclaims space in uptime.db on a cron schedule. Runs far less
// often than WALCheckpointJob: VACUUM rewrites the entire file and can be
// slow on a large history table.
type VacuumJob struct {
	JobBase
	db  *database.DB
	log zerolog.Logger
}

// NewVacuumJob creates a VacuumJob.
func NewVacuumJob(db *database.DB, log zerolog.Logger) *VacuumJob {
	return &VacuumJob{db: db, log: log.With().Str("job", "vacuum").Logger()}
}

// Name returns the job name.
func (j *VacuumJob) Name() string { return "vacuum" }

// Run runs VACUUM.
func (j *VacuumJob) Run() error {
	return j.db.Vacuum()
}

// snapshotUploader is the slice of internal/backup.BackupService's API
// BackupUploadJob needs; narrowed to an interface so the scheduler
// package never imports internal/backup's S3 client construction path.
type snapshotUploader interface {
	UploadSnapshot(ctx context.Context) error
}

// BackupUploadJob pushes a remote snapshot of uptime.db on a cron
// schedule. Only registered when a backup bucket is configured.
type BackupUploadJob struct {
	JobBase
	uploader snapshotUploader
	log      zerolog.Logger
}

// NewBackupUploadJob creates a BackupUploadJob.
func NewBackupUploadJob(uploader snapshotUploader, log zerolog.Logger) *BackupUploadJob {
	return &BackupUploadJob{uploader: uploader, log: log.With().Str("job", "backup_upload").Logger()}
}

// Name returns the job name.
func (j *BackupUploadJob) Name() string { return "backup_upload" }

// Run uploads a snapshot, bounding the attempt to 10 minutes.
func (j *BackupUploadJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := j.uploader.UploadSnapshot(ctx); err != nil {
		return fmt.Errorf("backup upload job: %w", err)
	}
	return nil
}
