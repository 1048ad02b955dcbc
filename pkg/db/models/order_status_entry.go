package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/afyakart/storefront-backend/pkg/enums"
)

// OrderStatusEntry is an append-only record of a status transition.
type OrderStatusEntry struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	PreviousStatus enums.OrderStatus `gorm:"column:previous_status;type:text;not null"`
	NewStatus      enums.OrderStatus `gorm:"column:new_status;type:text;not null"`
	ChangedByID    *uuid.UUID        `gorm:"column:changed_by_id;type:uuid"`
	Notes          *string           `gorm:"column:notes"`
	ChangedAt      time.Time         `gorm:"column:changed_at;autoCreateTime"`
}
