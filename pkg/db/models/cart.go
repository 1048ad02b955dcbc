package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afyakart/storefront-backend/pkg/enums"
)

// Cart is the single live cart per customer. Coupon fields snapshot the
// discount computed at apply time.
type Cart struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID        uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;uniqueIndex"`
	AppliedCouponCode *string             `gorm:"column:applied_coupon_code"`
	DiscountAmount    decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	DiscountType      *enums.DiscountType `gorm:"column:discount_type;type:text"`
	LastActiveAt      time.Time           `gorm:"column:last_active_at;autoUpdateTime"`
	Items             []CartItem          `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	ServiceItems      []CartServiceItem   `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
