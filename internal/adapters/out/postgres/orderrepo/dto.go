// Package orderrepo maps order aggregates to the orders table. The workflow
// state lives in three columns of the same row: status, progress and a JSON
// metadata document.
package orderrepo

import (
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO represents the database structure for persisting order aggregates.
// Indexed on the status pair the workflow launcher scans.
type OrderDTO struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CustomerID       uuid.UUID      `gorm:"type:uuid;index"`
	RestaurantID     uuid.UUID      `gorm:"type:uuid;index"`
	TotalAmount      int64          `gorm:"not null"`
	DeliveryAddress  string         `gorm:"type:text;not null"`
	Status           int            `gorm:"index:idx_orders_awaiting,priority:1"`
	WorkflowStatus   int            `gorm:"index:idx_orders_awaiting,priority:2"`
	WorkflowProgress int            `gorm:"type:smallint"`
	WorkflowMetadata order.Metadata `gorm:"type:jsonb;serializer:json"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
}

// TableName specifies the database table name for order entities.
func (OrderDTO) TableName() string {
	return "orders"
}

func fromDomain(o *order.Order) OrderDTO {
	wf := o.Workflow()
	return OrderDTO{
		ID:               o.ID().Bytes(),
		CustomerID:       o.CustomerID().Bytes(),
		RestaurantID:     o.RestaurantID().Bytes(),
		TotalAmount:      o.TotalAmount(),
		DeliveryAddress:  o.DeliveryAddress(),
		Status:           int(o.Status()),
		WorkflowStatus:   int(wf.Status),
		WorkflowProgress: wf.Progress,
		WorkflowMetadata: wf.Metadata,
	}
}

func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	customerID, err := kernel.UUIDFromBytes(dto.CustomerID[:])
	if err != nil {
		return nil, err
	}
	restaurantID, err := kernel.UUIDFromBytes(dto.RestaurantID[:])
	if err != nil {
		return nil, err
	}

	return order.RestoreOrder(
		id,
		customerID,
		restaurantID,
		dto.TotalAmount,
		dto.DeliveryAddress,
		order.Status(dto.Status),
		order.WorkflowState{
			Status:   order.WorkflowStatus(dto.WorkflowStatus),
			Progress: dto.WorkflowProgress,
			Metadata: dto.WorkflowMetadata,
		},
	)
}
