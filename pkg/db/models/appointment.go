package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/afyakart/storefront-backend/pkg/enums"
	"github.com/afyakart/storefront-backend/pkg/types"
)

// Appointment is a scheduled slot created when an order with service lines is
// placed.
type Appointment struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID  uuid.UUID               `gorm:"column:customer_id;type:uuid;not null;index"`
	ServiceID   uuid.UUID               `gorm:"column:service_id;type:uuid;not null"`
	OrderID     *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	Status      enums.AppointmentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ScheduledAt *time.Time              `gorm:"column:scheduled_at"`
	Details     *types.JSONMap          `gorm:"column:details;type:jsonb;serializer:json"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
