package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afyakart/storefront-backend/pkg/enums"
)

// InventoryTransaction is one append-only ledger entry per stock change.
// Quantity is signed; PreviousStock + Quantity always equals NewStock.
type InventoryTransaction struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	Movement      enums.InventoryMovement `gorm:"column:movement;type:text;not null"`
	Quantity      int                     `gorm:"column:quantity;not null"`
	PreviousStock int                     `gorm:"column:previous_stock;not null"`
	NewStock      int                     `gorm:"column:new_stock;not null"`
	RefKind       enums.InventoryRefKind  `gorm:"column:ref_kind;type:text;not null"`
	RefID         *uuid.UUID              `gorm:"column:ref_id;type:uuid"`
	UnitCost      *decimal.Decimal        `gorm:"column:unit_cost;type:numeric(12,2)"`
	TotalCost     *decimal.Decimal        `gorm:"column:total_cost;type:numeric(12,2)"`
	Notes         *string                 `gorm:"column:notes"`
	PerformedByID *uuid.UUID              `gorm:"column:performed_by_id;type:uuid"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}
