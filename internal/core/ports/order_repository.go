// Package ports defines the contracts between the order workflow core and
// its infrastructure: persistence, the run registry, the task dispatcher and
// the notification sink.
package ports

import (
	"context"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
type OrderRepository interface {
	// Add persists a new order aggregate to storage.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists every field of an existing order aggregate.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order aggregate by its unique identifier.
	// Returns *errs.ObjectNotFoundError when no such order exists.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// UpdateStatus writes only the customer-visible status.
	UpdateStatus(ctx context.Context, id kernel.UUID, status order.Status) error

	// UpdateWorkflow writes only the workflow status, progress and metadata.
	// The three columns are written together so readers never observe a
	// progress value that disagrees with the workflow status.
	UpdateWorkflow(ctx context.Context, id kernel.UUID, state order.WorkflowState) error

	// GetAwaitingWorkflow returns up to limit pending orders whose workflow
	// is still initiated, oldest first.
	GetAwaitingWorkflow(ctx context.Context, limit int) ([]*order.Order, error)
}
