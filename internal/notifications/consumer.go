package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/enums"
	"github.com/afyakart/storefront-backend/pkg/logger"
	"github.com/afyakart/storefront-backend/pkg/outbox"
	"github.com/afyakart/storefront-backend/pkg/outbox/idempotency"
	"github.com/afyakart/storefront-backend/pkg/types"
)

const customerNotificationConsumer = "customer-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns order and payment transitions
// into customer notifications.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a customer notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	notification, err := notificationForEvent(enums.OutboxEventType(eventType), envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	if notification == nil {
		c.logg.Info(logCtx, "event does not notify customers")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, customerNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to store notification", err)
		_ = c.idempotency.Delete(ctx, customerNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"customer_id": notification.CustomerID.String(),
		"type":        string(notification.Type),
	}), "customer notification queued")
	return processResult{ack: true}
}

// orderEventPayload is the superset of fields shared by the order and
// payment event payloads this consumer cares about.
type orderEventPayload struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	NewStatus     enums.OrderStatus `json:"new_status"`
	Total         decimal.Decimal   `json:"total"`
	Reason        string            `json:"reason"`
	TransactionID string            `json:"transaction_id"`
	Amount        decimal.Decimal   `json:"amount"`
}

// notificationForEvent maps a domain event to the customer notification it
// produces. A nil notification with a nil error means the event type does
// not notify customers.
func notificationForEvent(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventOrderCreated, enums.EventOrderStatusChanged, enums.EventOrderDelivered,
		enums.EventOrderCancelled, enums.EventPaymentCompleted, enums.EventPaymentFailed:
	default:
		return nil, nil
	}

	var payload orderEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("customer id missing")
	}

	orderContext := types.JSONMap{
		"order_id":     payload.OrderID.String(),
		"order_number": payload.OrderNumber,
	}

	switch eventType {
	case enums.EventOrderCreated:
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypeOrderConfirmation,
			Title:      "Order placed",
			Message: fmt.Sprintf("Your order %s for KES %s has been received.",
				payload.OrderNumber, payload.Total.StringFixed(2)),
			Context: &orderContext,
		}, nil
	case enums.EventOrderStatusChanged:
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypeOrderStatus,
			Title:      "Order update",
			Message:    fmt.Sprintf("Your order %s is now %s.", payload.OrderNumber, payload.NewStatus),
			Context:    &orderContext,
		}, nil
	case enums.EventOrderDelivered:
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypeOrderStatus,
			Title:      "Order delivered",
			Message:    fmt.Sprintf("Your order %s has been delivered.", payload.OrderNumber),
			Context:    &orderContext,
		}, nil
	case enums.EventOrderCancelled:
		message := fmt.Sprintf("Your order %s has been cancelled.", payload.OrderNumber)
		if payload.Reason != "" {
			message = fmt.Sprintf("Your order %s has been cancelled. Reason: %s", payload.OrderNumber, payload.Reason)
		}
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypeOrderStatus,
			Title:      "Order cancelled",
			Message:    message,
			Context:    &orderContext,
		}, nil
	case enums.EventPaymentCompleted:
		orderContext["transaction_id"] = payload.TransactionID
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypePaymentReceipt,
			Title:      "Payment received",
			Message: fmt.Sprintf("We received KES %s for order %s. Receipt: %s",
				payload.Amount.StringFixed(2), payload.OrderNumber, payload.TransactionID),
			Context: &orderContext,
		}, nil
	default:
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypePaymentFailure,
			Title:      "Payment failed",
			Message: fmt.Sprintf("Your payment for order %s did not go through. You can retry from your orders page.",
				payload.OrderNumber),
			Context: &orderContext,
		}, nil
	}
}
