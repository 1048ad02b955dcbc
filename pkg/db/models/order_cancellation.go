package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderCancellation records who cancelled an order and why.
type OrderCancellation struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CancelledByID *uuid.UUID `gorm:"column:cancelled_by_id;type:uuid"`
	Reason        string     `gorm:"column:reason;not null"`
	CancelledAt   time.Time  `gorm:"column:cancelled_at;autoCreateTime"`
}
