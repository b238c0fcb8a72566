package queries

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/guard"
)

var ErrGetOrderWorkflowQueryIsNotConstructed = errors.New(
	"GetOrderWorkflowQuery must be created via NewGetOrderWorkflowQuery constructor",
)

// GetOrderWorkflowQuery reads the workflow state of one order.
//
// Example:
//
//	query, err := NewGetOrderWorkflowQuery(orderID)
//	if err != nil {
//	    return err
//	}
//	resp, err := handler.Handle(ctx, query)
//	fmt.Printf("%s %s %d%%\n", resp.Status, resp.WorkflowStatus, resp.Progress)
type GetOrderWorkflowQuery struct {
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

func NewGetOrderWorkflowQuery(orderID kernel.UUID) (GetOrderWorkflowQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetOrderWorkflowQuery{}, err
	}
	return GetOrderWorkflowQuery{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetOrderWorkflowQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderWorkflowQueryIsNotConstructed)
}

func (q GetOrderWorkflowQuery) OrderID() kernel.UUID {
	return q.orderID
}

// GetOrderWorkflowQueryResponse combines the persisted order with the live
// run, when one is active. Active is false for orders no run drives.
type GetOrderWorkflowQueryResponse struct {
	OrderID        kernel.UUID
	Status         order.Status
	WorkflowStatus order.WorkflowStatus
	Progress       int
	Metadata       order.Metadata

	Active       bool
	RunID        kernel.UUID
	CurrentStage string
	RetryCount   int
	StartedAt    time.Time
}
