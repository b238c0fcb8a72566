package commands

import (
	"context"

	"orderflow/internal/core/domain/model/workflow"
)

// StartOrderWorkflowCommandHandler starts a run and returns its first
// snapshot. The RunID in the snapshot is the handle for polling and cancel.
//
// Errors from the engine pass through unchanged so callers can match
// engine.ErrOrderNotFound, engine.ErrAlreadyRunning and
// engine.ErrOrderNotStartable.
type StartOrderWorkflowCommandHandler struct {
	engine WorkflowEngine
}

func NewStartOrderWorkflowCommandHandler(engine WorkflowEngine) StartOrderWorkflowCommandHandler {
	return StartOrderWorkflowCommandHandler{engine: engine}
}

func (h StartOrderWorkflowCommandHandler) Handle(ctx context.Context, cmd StartOrderWorkflowCommand) (workflow.Progress, error) {
	if err := cmd.Validate(); err != nil {
		return workflow.Progress{}, err
	}
	return h.engine.Start(ctx, cmd.OrderID())
}
