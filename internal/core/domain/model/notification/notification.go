// Package notification models the status-change events emitted for an order.
package notification

import (
	"errors"
	"maps"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// EventType classifies a notification.
type EventType string

const (
	OrderStatusUpdate EventType = "order_status_update"
	WorkflowFailed    EventType = "workflow_failed"
	WorkflowCancelled EventType = "workflow_cancelled"
)

// Payload keys shared by every event.
const (
	PayloadStatus         = "status"
	PayloadWorkflowStatus = "workflow_status"
	PayloadProgress       = "progress"
	PayloadStage          = "stage"
	PayloadError          = "error"
	PayloadRunID          = "run_id"
)

var ErrNotificationIsNotConstructed = errors.New("Notification must be created via NewNotification constructor")

// Notification is one event addressed to whoever follows an order.
type Notification struct {
	id        kernel.UUID
	orderID   kernel.UUID
	eventType EventType
	payload   map[string]string
	createdAt time.Time

	isConstructed bool
}

func NewNotification(id, orderID kernel.UUID, eventType EventType, payload map[string]string, now time.Time) (*Notification, error) {
	if err := errors.Join(id.Validate(), orderID.Validate()); err != nil {
		return nil, err
	}
	if eventType == "" {
		return nil, errs.NewValueIsRequiredError("event type")
	}
	return &Notification{
		id:            id,
		orderID:       orderID,
		eventType:     eventType,
		payload:       maps.Clone(payload),
		createdAt:     now,
		isConstructed: true,
	}, nil
}

func (n *Notification) Validate() error {
	if n == nil || !n.isConstructed {
		return ErrNotificationIsNotConstructed
	}
	return nil
}

func (n *Notification) ID() kernel.UUID { return n.id }

func (n *Notification) OrderID() kernel.UUID { return n.orderID }

func (n *Notification) EventType() EventType { return n.eventType }

func (n *Notification) Payload() map[string]string { return maps.Clone(n.payload) }

func (n *Notification) CreatedAt() time.Time { return n.createdAt }
