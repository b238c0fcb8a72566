package memory

import (
	"context"

	"orderflow/internal/core/domain/model/notification"
)

type NotificationRepository struct {
	uow *UnitOfWork
}

func (r *NotificationRepository) Add(_ context.Context, n *notification.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	r.uow.write(func(s *Store) {
		s.notifications = append(s.notifications, n)
	})
	return nil
}
