package jobs

import (
	"fmt"
	"log/slog"
	"time"
)

// Config holds the schedules of the background jobs.
type Config struct {
	LauncherSchedule  string
	LauncherBatchSize int
	CleanupSchedule   string
	Retention         time.Duration
}

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	launcherJob *WorkflowLauncherJob
	cleanupJob  *ExecutionCleanupJob
}

// NewJobManager creates a new job manager with all required jobs.
// Takes command handlers as dependencies to wire up the job execution.
func NewJobManager(
	launcher WorkflowLauncher,
	cleaner ExecutionCleaner,
	cfg Config,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		launcherJob: NewWorkflowLauncherJob(launcher, cfg.LauncherSchedule, cfg.LauncherBatchSize, logger),
		cleanupJob:  NewExecutionCleanupJob(cleaner, cfg.CleanupSchedule, cfg.Retention, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.launcherJob.Start(); err != nil {
		return fmt.Errorf("failed to start workflow launcher job: %w", err)
	}

	if err := jm.cleanupJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.launcherJob.Stop()
		return fmt.Errorf("failed to start execution cleanup job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully. The launcher stops first so
// no new run starts while the engine shuts down.
func (jm *JobManager) StopAll() {
	jm.launcherJob.Stop()
	jm.cleanupJob.Stop()
}
