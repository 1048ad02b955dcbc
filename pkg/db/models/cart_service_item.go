package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/afyakart/storefront-backend/pkg/types"
)

// CartServiceItem is a bookable service line inside a cart.
type CartServiceItem struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	CartID             uuid.UUID      `gorm:"column:cart_id;type:uuid;not null;index"`
	ServiceID          uuid.UUID      `gorm:"column:service_id;type:uuid;not null"`
	AppointmentDetails *types.JSONMap `gorm:"column:appointment_details;type:jsonb;serializer:json"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
