package memory

import (
	"context"
	"sort"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
)

type OrderRepository struct {
	uow *UnitOfWork
}

func (r *OrderRepository) Add(_ context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	if err := r.exists(aggregate.ID()); err == nil {
		return errs.NewObjectConflictError("order", aggregate.ID().String())
	}

	rec := fromDomain(aggregate)
	r.uow.write(func(s *Store) {
		s.seq++
		rec.seq = s.seq
		s.orders[rec.id] = rec
	})
	return nil
}

func (r *OrderRepository) Update(_ context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	if err := r.exists(aggregate.ID()); err != nil {
		return err
	}

	rec := fromDomain(aggregate)
	r.uow.write(func(s *Store) {
		rec.seq = s.orders[rec.id].seq
		s.orders[rec.id] = rec
	})
	return nil
}

func (r *OrderRepository) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	r.uow.store.mu.RLock()
	rec, ok := r.uow.store.orders[id]
	r.uow.store.mu.RUnlock()
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}
	return rec.toDomain()
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id kernel.UUID, status order.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if err := r.exists(id); err != nil {
		return err
	}

	r.uow.write(func(s *Store) {
		rec := s.orders[id]
		rec.status = status
		s.orders[id] = rec
	})
	return nil
}

func (r *OrderRepository) UpdateWorkflow(_ context.Context, id kernel.UUID, state order.WorkflowState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	if err := r.exists(id); err != nil {
		return err
	}

	state.Metadata = state.Metadata.Clone()
	r.uow.write(func(s *Store) {
		rec := s.orders[id]
		rec.workflow = state
		s.orders[id] = rec
	})
	return nil
}

func (r *OrderRepository) GetAwaitingWorkflow(_ context.Context, limit int) ([]*order.Order, error) {
	r.uow.store.mu.RLock()
	var recs []orderRecord
	for _, rec := range r.uow.store.orders {
		if rec.status == order.Pending && rec.workflow.Status == order.WorkflowInitiated {
			recs = append(recs, rec)
		}
	}
	r.uow.store.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	out := make([]*order.Order, 0, len(recs))
	for _, rec := range recs {
		o, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *OrderRepository) exists(id kernel.UUID) error {
	r.uow.store.mu.RLock()
	defer r.uow.store.mu.RUnlock()
	if _, ok := r.uow.store.orders[id]; !ok {
		return errs.NewObjectNotFoundError("order", id.String())
	}
	return nil
}
