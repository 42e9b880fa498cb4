package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// MaintenanceScheduler runs cron-scheduled Jobs (WAL checkpoint, vacuum,
// scheduled backup) on their own goroutine, independent of the per-monitor
// timers owned by MonitorScheduler.
type MaintenanceScheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewMaintenanceScheduler creates a stopped MaintenanceScheduler.
func NewMaintenanceScheduler(log zerolog.Logger) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "maintenance_scheduler").Logger(),
	}
}

// AddJob registers a Job against a standard five-field cron spec
// ("0 3 * * *" = daily at 3 AM). A job's error is logged, never
// propagated — one failed maintenance run must not stop the scheduler or
// any other job.
func (s *MaintenanceScheduler) AddJob(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		log := s.log.With().Str("job", job.Name()).Logger()
		log.Info().Msg("starting maintenance job")
		if err := job.Run(); err != nil {
			log.Error().Err(err).Msg("maintenance job failed")
			return
		}
		log.Info().Msg("maintenance job completed")
	})
	if err != nil {
		return fmt.Errorf("scheduler: register job %q: %w", job.Name(), err)
	}
	return nil
}

// Start begins running registered jobs on their schedules.
func (s *MaintenanceScheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("maintenance scheduler started")
}

// Stop halts the cron loop. It blocks until any in-flight job returns.
func (s *MaintenanceScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("maintenance scheduler stopped")
}
