package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afyakart/storefront-backend/pkg/enums"
)

// MpesaTransaction tracks an STK push from initiation through settlement.
// The row is created before the provider call so a transport failure still
// leaves an auditable pending record.
type MpesaTransaction struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	MerchantRequestID  *string           `gorm:"column:merchant_request_id;index"`
	CheckoutRequestID  *string           `gorm:"column:checkout_request_id;index"`
	MpesaReceiptNumber *string           `gorm:"column:mpesa_receipt_number;uniqueIndex"`
	PhoneNumber        string            `gorm:"column:phone_number;not null"`
	Amount             decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	Status             enums.MpesaStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderID            *uuid.UUID        `gorm:"column:order_id;type:uuid;index"`
	ResultCode         *int              `gorm:"column:result_code"`
	ResultDesc         *string           `gorm:"column:result_desc"`
	AccountReference   *string           `gorm:"column:account_reference"`
	TransactionDesc    *string           `gorm:"column:transaction_desc"`
	TransactionDate    *time.Time        `gorm:"column:transaction_date"`
	APIResponse        *string           `gorm:"column:api_response"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
