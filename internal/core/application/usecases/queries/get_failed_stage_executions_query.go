package queries

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const MaxFailedStageExecutionsLimit = 500

var ErrGetFailedStageExecutionsQueryIsNotConstructed = errors.New(
	"GetFailedStageExecutionsQuery must be created via NewGetFailedStageExecutionsQuery constructor",
)

// GetFailedStageExecutionsQuery lists the most recent failed stage executions.
type GetFailedStageExecutionsQuery struct {
	limit int

	guard guard.ConstructorGuard
}

func NewGetFailedStageExecutionsQuery(limit int) (GetFailedStageExecutionsQuery, error) {
	if limit < 1 || limit > MaxFailedStageExecutionsLimit {
		return GetFailedStageExecutionsQuery{}, errs.NewValueIsOutOfRangeError("limit", limit, 1, MaxFailedStageExecutionsLimit)
	}
	return GetFailedStageExecutionsQuery{limit: limit, guard: guard.NewConstructorGuard()}, nil
}

func (q GetFailedStageExecutionsQuery) Validate() error {
	return q.guard.Validate(ErrGetFailedStageExecutionsQueryIsNotConstructed)
}

func (q GetFailedStageExecutionsQuery) Limit() int {
	return q.limit
}

type GetFailedStageExecutionsQueryResponse struct {
	ID         kernel.UUID
	RunID      kernel.UUID
	OrderID    kernel.UUID
	Stage      string
	Attempts   int
	LastError  string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// GetFailedStageExecutionsQueryHandler reads the execution log, newest first.
type GetFailedStageExecutionsQueryHandler struct {
	readers ExecutionReaderFactory
}

func NewGetFailedStageExecutionsQueryHandler(readers ExecutionReaderFactory) GetFailedStageExecutionsQueryHandler {
	return GetFailedStageExecutionsQueryHandler{readers: readers}
}

func (h GetFailedStageExecutionsQueryHandler) Handle(
	ctx context.Context,
	query GetFailedStageExecutionsQuery,
) ([]GetFailedStageExecutionsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	executions, err := h.readers.Create().StageExecutionRepository().GetFailed(ctx, query.Limit())
	if err != nil {
		return nil, err
	}

	out := make([]GetFailedStageExecutionsQueryResponse, 0, len(executions))
	for _, e := range executions {
		out = append(out, GetFailedStageExecutionsQueryResponse{
			ID:         e.ID(),
			RunID:      e.RunID(),
			OrderID:    e.OrderID(),
			Stage:      e.Stage(),
			Attempts:   e.Attempts(),
			LastError:  e.LastError(),
			StartedAt:  e.StartedAt(),
			FinishedAt: e.FinishedAt(),
		})
	}
	return out, nil
}
