package ports

import (
	"context"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"
)

// NotificationSink receives order events. Callers treat delivery as
// fire-and-forget: an error is logged, never propagated into the workflow.
type NotificationSink interface {
	Notify(ctx context.Context, orderID kernel.UUID, eventType notification.EventType, payload map[string]string) error
}
