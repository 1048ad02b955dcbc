package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/afyakart/storefront-backend/pkg/enums"
	"github.com/afyakart/storefront-backend/pkg/types"
)

// Notification stores a customer-facing message produced from domain events.
type Notification struct {
	ID         uuid.UUID              `gorm:"type:uuid;primaryKey"`
	CustomerID uuid.UUID              `gorm:"type:uuid;not null"`
	Type       enums.NotificationType `gorm:"type:text;not null"`
	Title      string                 `gorm:"type:text;not null"`
	Message    string                 `gorm:"type:text;not null"`
	Context    *types.JSONMap         `gorm:"type:jsonb;serializer:json"`
	ReadAt     *time.Time             `gorm:"column:read_at"`
	CreatedAt  time.Time              `gorm:"column:created_at"`
}
