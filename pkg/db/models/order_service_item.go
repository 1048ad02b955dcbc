package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderServiceItem snapshots a service line and links the appointment booked
// for it during checkout.
type OrderServiceItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ServiceID     uuid.UUID       `gorm:"column:service_id;type:uuid;not null"`
	ServiceName   string          `gorm:"column:service_name;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	AppointmentID *uuid.UUID      `gorm:"column:appointment_id;type:uuid"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
