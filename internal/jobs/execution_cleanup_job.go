package jobs

import (
	"context"
	"log/slog"
	"time"

	"orderflow/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

// ExecutionCleaner removes old stage executions and finished run snapshots.
type ExecutionCleaner interface {
	Handle(ctx context.Context, cmd commands.CleanupStageExecutionsCommand) (commands.CleanupResult, error)
}

// ExecutionCleanupJob periodically deletes workflow records older than the
// retention window.
type ExecutionCleanupJob struct {
	handler   ExecutionCleaner
	schedule  string
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
}

func NewExecutionCleanupJob(handler ExecutionCleaner, schedule string, retention time.Duration, logger *slog.Logger) *ExecutionCleanupJob {
	return &ExecutionCleanupJob{
		handler:   handler,
		schedule:  schedule,
		retention: retention,
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger.With("component", "execution_cleanup_job"),
	}
}

// Start schedules the cleanup.
func (j *ExecutionCleanupJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Execution cleanup job started",
		"schedule", j.schedule, "retention", j.retention.String())
	return nil
}

// RunOnce performs a single cleanup pass.
func (j *ExecutionCleanupJob) RunOnce(ctx context.Context) commands.CleanupResult {
	cmd, err := commands.NewCleanupStageExecutionsCommand(j.retention)
	if err != nil {
		j.logger.ErrorContext(ctx, "Execution cleanup job misconfigured", "error", err)
		return commands.CleanupResult{}
	}

	result, err := j.handler.Handle(ctx, cmd)
	if err != nil {
		j.logger.ErrorContext(ctx, "Execution cleanup job failed", "error", err)
	}
	return result
}

// Stop stops the schedule and waits for a running pass to return.
func (j *ExecutionCleanupJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Execution cleanup job stopped")
}
