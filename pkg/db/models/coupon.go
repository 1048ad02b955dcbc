package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afyakart/storefront-backend/pkg/enums"
)

// Coupon is a redeemable discount code. TimesUsed only moves through the
// guarded update in the coupon repository so the usage limit holds under
// concurrent applies.
type Coupon struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code               string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType       enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue      decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinimumOrderAmount *decimal.Decimal   `gorm:"column:minimum_order_amount;type:numeric(12,2)"`
	MaximumDiscount    *decimal.Decimal   `gorm:"column:maximum_discount;type:numeric(12,2)"`
	ValidFrom          time.Time          `gorm:"column:valid_from;not null"`
	ValidTo            time.Time          `gorm:"column:valid_to;not null"`
	IsActive           bool               `gorm:"column:is_active;not null;default:true"`
	UsageLimit         *int               `gorm:"column:usage_limit"`
	TimesUsed          int                `gorm:"column:times_used;not null;default:0"`
	Description        *string            `gorm:"column:description"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
