package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const DefaultExecutionRetention = 7 * 24 * time.Hour

var ErrCleanupStageExecutionsCommandIsNotConstructed = errors.New(
	"CleanupStageExecutionsCommand must be created via NewCleanupStageExecutionsCommand constructor",
)

// CleanupStageExecutionsCommand removes stage execution records and run
// snapshots that finished more than retention ago.
type CleanupStageExecutionsCommand struct { //nolint:recvcheck //using for validation
	retention time.Duration

	guard guard.ConstructorGuard
}

func NewCleanupStageExecutionsCommand(retention time.Duration) (CleanupStageExecutionsCommand, error) {
	if retention <= 0 {
		return CleanupStageExecutionsCommand{}, errs.NewValueIsRequiredError("retention")
	}
	return CleanupStageExecutionsCommand{retention: retention, guard: guard.NewConstructorGuard()}, nil
}

func (c CleanupStageExecutionsCommand) Validate() error {
	return c.guard.Validate(ErrCleanupStageExecutionsCommandIsNotConstructed)
}

func (c CleanupStageExecutionsCommand) Retention() time.Duration {
	return c.retention
}

// CleanupResult reports what a cleanup pass removed.
type CleanupResult struct {
	DeletedExecutions int64
	PrunedRuns        int
}

type CleanupStageExecutionsCommandHandler struct {
	uowFactory ExecutionUoWFactory
	pruner     RunPruner
	now        func() time.Time
	logger     *slog.Logger
}

func NewCleanupStageExecutionsCommandHandler(
	uowFactory ExecutionUoWFactory,
	pruner RunPruner,
	logger *slog.Logger,
) CleanupStageExecutionsCommandHandler {
	return CleanupStageExecutionsCommandHandler{
		uowFactory: uowFactory,
		pruner:     pruner,
		now:        time.Now,
		logger:     logger.With("component", "cleanup_stage_executions"),
	}
}

// Handle deletes the old records in a transaction, then prunes the engine's
// finished snapshots with the same cutoff.
func (h *CleanupStageExecutionsCommandHandler) Handle(
	ctx context.Context,
	cmd CleanupStageExecutionsCommand,
) (CleanupResult, error) {
	if err := cmd.Validate(); err != nil {
		return CleanupResult{}, err
	}

	cutoff := h.now().Add(-cmd.Retention())

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return CleanupResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	deleted, err := uow.StageExecutionRepository().DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return CleanupResult{}, err
	}
	if err = uow.Commit(ctx); err != nil {
		return CleanupResult{}, err
	}

	result := CleanupResult{DeletedExecutions: deleted, PrunedRuns: h.pruner.Prune(cutoff)}
	if result.DeletedExecutions > 0 || result.PrunedRuns > 0 {
		h.logger.InfoContext(ctx, "old workflow records removed",
			"deleted_executions", result.DeletedExecutions,
			"pruned_runs", result.PrunedRuns,
			"cutoff", cutoff,
		)
	}
	return result, nil
}
