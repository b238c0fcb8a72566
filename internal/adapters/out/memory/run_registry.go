package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"
)

// RunRegistry is the single-process run registry: a map from order id to
// the owning run id behind a mutex.
type RunRegistry struct {
	mu     sync.Mutex
	owners map[kernel.UUID]kernel.UUID
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{owners: make(map[kernel.UUID]kernel.UUID)}
}

func (r *RunRegistry) Claim(_ context.Context, orderID, runID kernel.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[orderID]; ok {
		return errors.WithMessagef(ports.ErrRunAlreadyClaimed, "order %s is owned by run %s", orderID, owner)
	}
	r.owners[orderID] = runID
	return nil
}

func (r *RunRegistry) Release(_ context.Context, orderID, runID kernel.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[orderID]; ok && owner.IsEqual(runID) {
		delete(r.owners, orderID)
	}
	return nil
}

// Owner reports the run currently holding orderID.
func (r *RunRegistry) Owner(orderID kernel.UUID) (kernel.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[orderID]
	return owner, ok
}
