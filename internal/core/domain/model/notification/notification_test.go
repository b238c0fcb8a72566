package notification_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	t.Run("should copy the payload", func(t *testing.T) {
		payload := map[string]string{notification.PayloadStatus: "confirmed"}

		n, err := notification.NewNotification(kernel.NewUUID(), kernel.NewUUID(), notification.OrderStatusUpdate, payload, time.Now())
		require.NoError(t, err)
		payload[notification.PayloadStatus] = "changed"

		require.NoError(t, n.Validate())
		assert.Equal(t, notification.OrderStatusUpdate, n.EventType())
		assert.Equal(t, "confirmed", n.Payload()[notification.PayloadStatus])
	})

	t.Run("should require an event type", func(t *testing.T) {
		_, err := notification.NewNotification(kernel.NewUUID(), kernel.NewUUID(), "", nil, time.Now())

		require.Error(t, err)
	})

	t.Run("zero value is not constructed", func(t *testing.T) {
		var n notification.Notification

		assert.ErrorIs(t, n.Validate(), notification.ErrNotificationIsNotConstructed)
	})
}
