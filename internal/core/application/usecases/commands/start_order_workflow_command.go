package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var ErrStartOrderWorkflowCommandIsNotConstructed = errors.New(
	"StartOrderWorkflowCommand must be created via NewStartOrderWorkflowCommand constructor",
)

// StartOrderWorkflowCommand asks the engine to run the pipeline for an order.
type StartOrderWorkflowCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewStartOrderWorkflowCommand(orderID kernel.UUID) (StartOrderWorkflowCommand, error) {
	if err := orderID.Validate(); err != nil {
		return StartOrderWorkflowCommand{}, err
	}
	return StartOrderWorkflowCommand{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (c StartOrderWorkflowCommand) Validate() error {
	return c.guard.Validate(ErrStartOrderWorkflowCommandIsNotConstructed)
}

func (c StartOrderWorkflowCommand) OrderID() kernel.UUID {
	return c.orderID
}
