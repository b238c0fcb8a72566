package ports

import (
	"context"

	"orderflow/internal/core/domain/model/notification"
)

// NotificationRepository persists emitted notifications.
type NotificationRepository interface {
	Add(ctx context.Context, n *notification.Notification) error
}
