package ports

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/execution"
)

// StageExecutionRepository stores the audit trail of stage executions.
type StageExecutionRepository interface {
	// Add inserts or replaces the record with the same id.
	Add(ctx context.Context, e *execution.StageExecution) error

	// GetFailed returns up to limit failed executions, newest first.
	GetFailed(ctx context.Context, limit int) ([]*execution.StageExecution, error)

	// DeleteFinishedBefore removes terminal records finished before t and
	// reports how many were deleted.
	DeleteFinishedBefore(ctx context.Context, t time.Time) (int64, error)
}
