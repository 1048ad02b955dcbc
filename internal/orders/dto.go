package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/enums"
	"github.com/afyakart/storefront-backend/pkg/types"
)

// CreateOrderInput captures everything checkout needs beyond the cart itself.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	ShippingAddress types.Address
	BillingAddress  *types.Address
	PaymentMethod   enums.PaymentMethod
	ShippingCost    decimal.Decimal
	Notes           *string
	PrescriptionID  *uuid.UUID
}

// UpdateStatusInput carries a staff-driven status change.
type UpdateStatusInput struct {
	OrderID           uuid.UUID
	NewStatus         enums.OrderStatus
	ActorID           *uuid.UUID
	Notes             *string
	TrackingCarrier   *string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
}

// CancelInput carries a customer-initiated cancellation.
type CancelInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Reason     string
}

// SettleInput records an external payment outcome against an order. The
// payment gateway calls this inside its own reconciliation transaction.
type SettleInput struct {
	OrderID       uuid.UUID
	TransactionID string
	Amount        decimal.Decimal
	Method        enums.PaymentMethod
	Details       *types.JSONMap
	PaidAt        time.Time
}

// AddNoteInput appends an annotation to an order.
type AddNoteInput struct {
	OrderID  uuid.UUID
	AuthorID *uuid.UUID
	Body     string
}

// ListFilters describe the inputs supported by the customer order list.
type ListFilters struct {
	Status   *enums.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderList wraps paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderCreatedEvent is emitted once per checkout, in the creation transaction.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Currency      string              `json:"currency"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"item_count"`
	ServiceCount  int                 `json:"service_count"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	NewStatus      enums.OrderStatus `json:"new_status"`
	Notes          *string           `json:"notes,omitempty"`
}

// OrderCancelledEvent is emitted when an order is cancelled, by either side.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Reason         string            `json:"reason"`
	RestockedLines int               `json:"restocked_lines"`
}

// PaymentSettledEvent is emitted when a payment completes or fails.
type PaymentSettledEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	TransactionID string              `json:"transaction_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Method        enums.PaymentMethod `json:"method"`
	Status        enums.PaymentStatus `json:"status"`
}
