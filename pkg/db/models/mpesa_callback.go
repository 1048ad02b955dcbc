package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MpesaCallback stores every callback delivery verbatim before any matching
// runs. Rows are append-only; redeliveries create new rows.
type MpesaCallback struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	MerchantRequestID  *string          `gorm:"column:merchant_request_id;index"`
	CheckoutRequestID  *string          `gorm:"column:checkout_request_id;index"`
	CallbackData       string           `gorm:"column:callback_data;not null"`
	ResultCode         *int             `gorm:"column:result_code"`
	ResultDesc         *string          `gorm:"column:result_desc"`
	Processed          bool             `gorm:"column:processed;not null;default:false"`
	ProcessingError    *string          `gorm:"column:processing_error"`
	MpesaReceiptNumber *string          `gorm:"column:mpesa_receipt_number"`
	TransactionDate    *time.Time       `gorm:"column:transaction_date"`
	PhoneNumber        *string          `gorm:"column:phone_number"`
	Amount             *decimal.Decimal `gorm:"column:amount;type:numeric(12,2)"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
