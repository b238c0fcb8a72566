package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

// StageInput is the read-only view of an order handed to a stage operation.
type StageInput struct {
	OrderID         kernel.UUID
	CustomerID      kernel.UUID
	RestaurantID    kernel.UUID
	TotalAmount     int64
	DeliveryAddress string
	// Attempt is 1 for the first call of a stage and grows with each retry.
	Attempt int
}

// NewStageInput copies the fields a stage may need out of the aggregate.
func NewStageInput(o *order.Order, attempt int) StageInput {
	return StageInput{
		OrderID:         o.ID(),
		CustomerID:      o.CustomerID(),
		RestaurantID:    o.RestaurantID(),
		TotalAmount:     o.TotalAmount(),
		DeliveryAddress: o.DeliveryAddress(),
		Attempt:         attempt,
	}
}

// Operation is the external work a stage performs. It must return promptly
// once ctx is done.
type Operation func(ctx context.Context, in StageInput) error

// Stage describes one step of the pipeline.
type Stage struct {
	Name string
	// Weight is the share of total progress, in percent, the stage
	// contributes once it commits.
	Weight    int
	Operation Operation
	Timeout   time.Duration
	// MaxRetries is the number of consecutive failed attempts after which
	// the run fails.
	MaxRetries int
	// Reaches is the customer-visible status the order takes when the stage
	// commits, or order.Unknown for none. Completing the last stage always
	// confirms the order, whether or not a stage reached it before.
	Reaches order.Status
}

// Validate checks a single stage in isolation.
func (s Stage) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errs.NewValueIsRequiredError("stage name")
	}
	if s.Weight <= 0 || s.Weight > 100 {
		return errs.NewValueIsOutOfRangeError(s.Name+" weight", s.Weight, 1, 100)
	}
	if s.Operation == nil {
		return errs.NewValueIsRequiredError(s.Name + " operation")
	}
	if s.Timeout <= 0 {
		return errs.NewValueIsInvalidErrorWithCause(s.Name+" timeout", fmt.Errorf("%s is not greater than 0", s.Timeout))
	}
	if s.MaxRetries < 1 {
		return errs.NewValueIsInvalidErrorWithCause(s.Name+" max retries", fmt.Errorf("%d is less than 1", s.MaxRetries))
	}
	return nil
}
