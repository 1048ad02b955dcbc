package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the canonical catalog listing. Stock only changes through the
// inventory ledger.
type Product struct {
	ID                   uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name                 string           `gorm:"column:name;not null"`
	Slug                 string           `gorm:"column:slug;not null;uniqueIndex"`
	SKU                  string           `gorm:"column:sku;not null;uniqueIndex"`
	Description          *string          `gorm:"column:description"`
	Price                decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountedPrice      *decimal.Decimal `gorm:"column:discounted_price;type:numeric(12,2)"`
	TaxRate              decimal.Decimal  `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0"`
	Stock                int              `gorm:"column:stock;not null;default:0"`
	ReorderLevel         *int             `gorm:"column:reorder_level"`
	RequiresPrescription bool             `gorm:"column:requires_prescription;not null;default:false"`
	IsActive             bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt            time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice returns the discounted price when one is set, otherwise the
// list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountedPrice != nil && p.DiscountedPrice.IsPositive() {
		return *p.DiscountedPrice
	}
	return p.Price
}
