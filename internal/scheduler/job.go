package scheduler

// Job is a unit of cron-scheduled maintenance work (WAL checkpoint,
// vacuum, backup upload). Distinct from a monitor probe, which is
// driven by MonitorScheduler instead.
type Job interface {
	Name() string
	Run() error
}

// JobBase is embedded by every Job. It carries no state today; it exists
// so common behavior (last-run tracking, metrics) can be added in one
// place later without touching every job's struct literal.
type JobBase struct{}
