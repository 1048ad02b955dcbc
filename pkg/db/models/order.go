package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afyakart/storefront-backend/pkg/enums"
	"github.com/afyakart/storefront-backend/pkg/types"
)

// Order is the immutable financial snapshot produced from a cart at checkout.
// Monetary fields are fixed at creation and never recomputed.
type Order struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber          string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID           uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Status               enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	ShippingAddress      types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress       types.Address       `gorm:"column:billing_address;type:jsonb;serializer:json;not null"`
	PaymentMethod        enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus        enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentTransactionID *string             `gorm:"column:payment_transaction_id"`
	PaymentCurrency      string              `gorm:"column:payment_currency;not null;default:'KES'"`
	PaymentDate          *time.Time          `gorm:"column:payment_date"`
	Subtotal             decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax                  decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	ShippingCost         decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Discount             decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total                decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	AppliedCouponCode    *string             `gorm:"column:applied_coupon_code"`
	TrackingCarrier      *string             `gorm:"column:tracking_carrier"`
	TrackingNumber       *string             `gorm:"column:tracking_number"`
	EstimatedDelivery    *time.Time          `gorm:"column:estimated_delivery"`
	RequiresVerification bool                `gorm:"column:requires_verification;not null;default:false"`
	PrescriptionID       *uuid.UUID          `gorm:"column:prescription_id;type:uuid"`
	Items                []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ServiceItems         []OrderServiceItem  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory        []OrderStatusEntry  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Notes                []OrderNote         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
