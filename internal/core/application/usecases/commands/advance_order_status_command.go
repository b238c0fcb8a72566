package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/guard"
)

var ErrAdvanceOrderStatusCommandIsNotConstructed = errors.New(
	"AdvanceOrderStatusCommand must be created via NewAdvanceOrderStatusCommand constructor",
)

// AdvanceOrderStatusCommand moves a confirmed order one step along the
// fulfilment path: preparing, ready, out_for_delivery, delivered.
//
// Example:
//
//	cmd, err := NewAdvanceOrderStatusCommand(orderID, order.Preparing)
//	if err != nil {
//	    return err
//	}
//	err = handler.Handle(ctx, cmd)
type AdvanceOrderStatusCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	next    order.Status

	guard guard.ConstructorGuard
}

func NewAdvanceOrderStatusCommand(orderID kernel.UUID, next order.Status) (AdvanceOrderStatusCommand, error) {
	if err := errors.Join(orderID.Validate(), next.Validate()); err != nil {
		return AdvanceOrderStatusCommand{}, err
	}
	return AdvanceOrderStatusCommand{orderID: orderID, next: next, guard: guard.NewConstructorGuard()}, nil
}

func (c AdvanceOrderStatusCommand) Validate() error {
	return c.guard.Validate(ErrAdvanceOrderStatusCommandIsNotConstructed)
}

func (c AdvanceOrderStatusCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c AdvanceOrderStatusCommand) Next() order.Status {
	return c.next
}
