// Package notificationrepo stores the order notifications the engine emits.
package notificationrepo

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/notification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationDTO struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"type:uuid;index"`
	EventType string            `gorm:"type:varchar(64);not null"`
	Payload   map[string]string `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time         `gorm:"not null"`
}

func (NotificationDTO) TableName() string {
	return "notifications"
}

type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Add(ctx context.Context, n *notification.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	dto := NotificationDTO{
		ID:        n.ID().Bytes(),
		OrderID:   n.OrderID().Bytes(),
		EventType: string(n.EventType()),
		Payload:   n.Payload(),
		CreatedAt: n.CreatedAt(),
	}
	return r.db.WithContext(ctx).Create(&dto).Error
}
