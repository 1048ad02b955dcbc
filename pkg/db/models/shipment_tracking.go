package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/afyakart/storefront-backend/pkg/types"
)

// ShipmentTracking is the per-order tracking record; checkpoints append as the
// shipment moves.
type ShipmentTracking struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Status            string               `gorm:"column:status;not null"`
	Location          *string              `gorm:"column:location"`
	Carrier           *string              `gorm:"column:carrier"`
	TrackingNumber    *string              `gorm:"column:tracking_number"`
	EstimatedDelivery *time.Time           `gorm:"column:estimated_delivery"`
	Details           *types.JSONMap       `gorm:"column:details;type:jsonb;serializer:json"`
	Checkpoints       []ShipmentCheckpoint `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// ShipmentCheckpoint is one append-only waypoint in a shipment's journey.
type ShipmentCheckpoint struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ShipmentID  uuid.UUID `gorm:"column:shipment_id;type:uuid;not null;index"`
	Status      string    `gorm:"column:status;not null"`
	Location    *string   `gorm:"column:location"`
	Description *string   `gorm:"column:description"`
	Timestamp   time.Time `gorm:"column:timestamp;autoCreateTime"`
}
