package ports

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
)

// ErrRunAlreadyClaimed is returned by RunRegistry.Claim when another run
// holds the order.
var ErrRunAlreadyClaimed = errors.New("order already has an active run")

// RunRegistry guarantees at most one active run per order id.
//
// Implementations must make Claim an atomic insert-if-absent, whether the
// registry lives in process memory or in a shared store.
type RunRegistry interface {
	// Claim records runID as the owner of orderID. It fails with
	// ErrRunAlreadyClaimed if the order is already owned.
	Claim(ctx context.Context, orderID, runID kernel.UUID) error

	// Release drops the claim, but only if runID still owns it.
	Release(ctx context.Context, orderID, runID kernel.UUID) error
}
