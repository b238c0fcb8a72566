package memory

import (
	"context"
	"errors"

	"orderflow/internal/core/ports"
)

var ErrNoActiveTransaction = errors.New("no active transaction")

// UnitOfWorkFactory creates units of work over a shared Store.
type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) Create() ports.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

// UnitOfWork buffers writes made after Begin and applies them atomically on
// Commit. Reads always see committed state. Without Begin, writes apply
// immediately.
type UnitOfWork struct {
	store   *Store
	active  bool
	pending []func(s *Store)
}

func (u *UnitOfWork) Begin(_ context.Context) error {
	u.active = true
	return nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if !u.active {
		return ErrNoActiveTransaction
	}
	u.store.mu.Lock()
	for _, apply := range u.pending {
		apply(u.store)
	}
	u.store.mu.Unlock()

	u.pending = nil
	u.active = false
	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	u.pending = nil
	u.active = false
	return nil
}

func (u *UnitOfWork) OrderRepository() ports.OrderRepository {
	return &OrderRepository{uow: u}
}

func (u *UnitOfWork) StageExecutionRepository() ports.StageExecutionRepository {
	return &StageExecutionRepository{uow: u}
}

func (u *UnitOfWork) NotificationRepository() ports.NotificationRepository {
	return &NotificationRepository{uow: u}
}

func (u *UnitOfWork) write(apply func(s *Store)) {
	if u.active {
		u.pending = append(u.pending, apply)
		return
	}
	u.store.mu.Lock()
	apply(u.store)
	u.store.mu.Unlock()
}
