package commands

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var ErrCancelOrderWorkflowCommandIsNotConstructed = errors.New(
	"CancelOrderWorkflowCommand must be created via NewCancelOrderWorkflowCommand constructor",
)

// CancelOrderWorkflowCommand cancels one run by its id.
type CancelOrderWorkflowCommand struct { //nolint:recvcheck //using for validation
	runID kernel.UUID

	guard guard.ConstructorGuard
}

func NewCancelOrderWorkflowCommand(runID kernel.UUID) (CancelOrderWorkflowCommand, error) {
	if err := runID.Validate(); err != nil {
		return CancelOrderWorkflowCommand{}, err
	}
	return CancelOrderWorkflowCommand{runID: runID, guard: guard.NewConstructorGuard()}, nil
}

func (c CancelOrderWorkflowCommand) Validate() error {
	return c.guard.Validate(ErrCancelOrderWorkflowCommandIsNotConstructed)
}

func (c CancelOrderWorkflowCommand) RunID() kernel.UUID {
	return c.runID
}

type CancelOrderWorkflowCommandHandler struct {
	engine WorkflowEngine
}

func NewCancelOrderWorkflowCommandHandler(engine WorkflowEngine) CancelOrderWorkflowCommandHandler {
	return CancelOrderWorkflowCommandHandler{engine: engine}
}

// Handle returns engine.ErrRunNotFound or engine.ErrAlreadyTerminal unchanged.
func (h CancelOrderWorkflowCommandHandler) Handle(ctx context.Context, cmd CancelOrderWorkflowCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	return h.engine.Cancel(ctx, cmd.RunID())
}
