package payloads

import (
	"time"

	"github.com/afyakart/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent signals a freshly placed order awaiting payment.
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

// OrderStatusChangedEvent mirrors every lifecycle transition, including the
// terminal delivered hop which is published under its own event type.
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

// PaymentInitiatedEvent reports an accepted STK push awaiting its callback.
type PaymentInitiatedEvent struct {
	TransactionID     uuid.UUID       `json:"transaction_id"`
	OrderID           uuid.UUID       `json:"order_id"`
	CheckoutRequestID string          `json:"checkout_request_id"`
	PhoneNumber       string          `json:"phone_number"`
	Amount            decimal.Decimal `json:"amount"`
}

// PaymentSettledEvent carries the outcome of a settlement attempt, published
// as payment_completed or payment_failed.
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

// ShipmentCheckpointEvent surfaces a new tracking checkpoint.
type ShipmentCheckpointEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// NotificationQueuedEvent tells downstream channels to deliver a stored
// notification to the customer.
type NotificationQueuedEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	CustomerID     uuid.UUID              `json:"customer_id"`
	Type           enums.NotificationType `json:"type"`
}
