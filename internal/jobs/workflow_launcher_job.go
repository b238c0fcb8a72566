package jobs

import (
	"context"
	"errors"
	"log/slog"

	"orderflow/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

// WorkflowLauncher starts the workflows of orders nobody picked up yet.
type WorkflowLauncher interface {
	Handle(ctx context.Context, cmd commands.StartAwaitingWorkflowsCommand) (int, error)
}

// WorkflowLauncherJob periodically hands awaiting orders to the engine.
// A tick is skipped while the previous one is still running.
type WorkflowLauncherJob struct {
	handler   WorkflowLauncher
	schedule  string
	batchSize int
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewWorkflowLauncherJob creates the launcher. schedule uses the six-field
// cron syntax with seconds, or descriptors like "@every 5s".
func NewWorkflowLauncherJob(handler WorkflowLauncher, schedule string, batchSize int, logger *slog.Logger) *WorkflowLauncherJob {
	return &WorkflowLauncherJob{
		handler:   handler,
		schedule:  schedule,
		batchSize: batchSize,
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger.With("component", "workflow_launcher_job"),
	}
}

// Start schedules the launcher.
func (j *WorkflowLauncherJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Workflow launcher job started", "schedule", j.schedule)
	return nil
}

// RunOnce performs a single launch pass and returns how many workflows started.
func (j *WorkflowLauncherJob) RunOnce(ctx context.Context) int {
	cmd, err := commands.NewStartAwaitingWorkflowsCommand(j.batchSize)
	if err != nil {
		j.logger.ErrorContext(ctx, "Workflow launcher job misconfigured", "error", err)
		return 0
	}

	started, err := j.handler.Handle(ctx, cmd)
	if err != nil && !errors.Is(err, commands.ErrNoAwaitingOrders) {
		j.logger.ErrorContext(ctx, "Workflow launcher job failed", "started", started, "error", err)
	}
	return started
}

// Stop stops the schedule and waits for a running pass to return.
func (j *WorkflowLauncherJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Workflow launcher job stopped")
}
