package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/afyakart/storefront-backend/internal/cart"
	"github.com/afyakart/storefront-backend/internal/inventory"
	dbpkg "github.com/afyakart/storefront-backend/pkg/db"
	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/enums"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
	"github.com/afyakart/storefront-backend/pkg/logger"
	"github.com/afyakart/storefront-backend/pkg/outbox"
	"github.com/afyakart/storefront-backend/pkg/pagination"
	"github.com/afyakart/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the order lifecycle from checkout to a terminal status.
type Service interface {
	CreateFromCart(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Settle(ctx context.Context, tx *gorm.DB, input SettleInput) error
	FailPayment(ctx context.Context, tx *gorm.DB, input SettleInput) error
	GetTracking(ctx context.Context, customerID, orderID uuid.UUID) (*models.ShipmentTracking, error)
	AddNote(ctx context.Context, input AddNoteInput) (*models.OrderNote, error)
}

type service struct {
	repo      Repository
	carts     cart.CartRepository
	catalog   catalogLoader
	inventory stockApplier
	tx        txRunner
	outbox    outboxPublisher
	logg      *logger.Logger
}

// NewService builds the order orchestrator with its full dependency set.
func NewService(
	repo Repository,
	carts cart.CartRepository,
	catalog catalogLoader,
	stock stockApplier,
	tx txRunner,
	publisher outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory applier required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		carts:     carts,
		catalog:   catalog,
		inventory: stock,
		tx:        tx,
		outbox:    publisher,
		logg:      logg,
	}, nil
}

// CreateFromCart converts the customer's cart into an order in one
// transaction. Pricing, stock movements, appointment creation, the cart wipe
// and the outbox event all commit or roll back together.
func (s *service) CreateFromCart(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	if input.ShippingCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}
	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		if err := input.BillingAddress.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing address")
		}
		billing = *input.BillingAddress
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.carts.WithTx(tx)

		customerCart, err := cartRepo.FindByCustomer(ctx, input.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(customerCart.Items) == 0 && len(customerCart.ServiceItems) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		productLines, serviceLines, err := s.priceLines(ctx, customerCart)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		tax := decimal.Zero
		requiresVerification := false
		for _, line := range productLines {
			subtotal = subtotal.Add(line.item.LineTotal)
			tax = tax.Add(line.item.LineTotal.Mul(line.item.TaxRate).Div(decimal.NewFromInt(100)))
			if line.product.RequiresPrescription {
				requiresVerification = true
			}
		}
		for _, line := range serviceLines {
			subtotal = subtotal.Add(line.item.Price)
		}
		tax = tax.Round(2)

		discount := customerCart.DiscountAmount
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
		total := subtotal.Add(tax).Add(input.ShippingCost).Sub(discount)

		status := enums.OrderStatusPending
		if input.PaymentMethod == enums.PaymentMethodCashOnDelivery {
			status = enums.OrderStatusProcessing
		}

		order := models.Order{
			ID:                   uuid.New(),
			OrderNumber:          generateOrderNumber(),
			CustomerID:           input.CustomerID,
			Status:               status,
			ShippingAddress:      input.ShippingAddress,
			BillingAddress:       billing,
			PaymentMethod:        input.PaymentMethod,
			PaymentStatus:        enums.PaymentStatusPending,
			PaymentCurrency:      "KES",
			Subtotal:             subtotal,
			Tax:                  tax,
			ShippingCost:         input.ShippingCost,
			Discount:             discount,
			Total:                total,
			AppliedCouponCode:    customerCart.AppliedCouponCode,
			RequiresVerification: requiresVerification,
			PrescriptionID:       input.PrescriptionID,
		}
		if _, err := repo.CreateOrder(ctx, &order); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_orders_order_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision, retry checkout")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(productLines))
		for _, line := range productLines {
			item := line.item
			item.OrderID = order.ID
			items = append(items, item)
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		orderID := order.ID
		for _, line := range productLines {
			_, err := s.inventory.Apply(ctx, tx, inventory.ApplyInput{
				ProductID:     line.product.ID,
				Movement:      enums.InventoryMovementSale,
				Quantity:      -line.item.Quantity,
				RefKind:       enums.InventoryRefKindOrder,
				RefID:         &orderID,
				PerformedByID: &input.CustomerID,
			})
			if err != nil {
				return err
			}
		}

		serviceItems := make([]models.OrderServiceItem, 0, len(serviceLines))
		for _, line := range serviceLines {
			appointment, err := repo.CreateAppointment(ctx, &models.Appointment{
				CustomerID: input.CustomerID,
				ServiceID:  line.item.ServiceID,
				OrderID:    &orderID,
				Status:     enums.AppointmentStatusPending,
				Details:    line.details,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create appointment")
			}
			item := line.item
			item.OrderID = order.ID
			item.AppointmentID = &appointment.ID
			serviceItems = append(serviceItems, item)
		}
		if err := repo.CreateOrderServiceItems(ctx, serviceItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order service items")
		}

		entry := models.OrderStatusEntry{
			OrderID:        order.ID,
			PreviousStatus: enums.OrderStatusPending,
			NewStatus:      status,
			ChangedByID:    &input.CustomerID,
			Notes:          input.Notes,
		}
		if err := repo.CreateStatusEntry(ctx, &entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}

		if err := cartRepo.DeleteAllItems(ctx, customerCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		customerCart.AppliedCouponCode = nil
		customerCart.DiscountAmount = decimal.Zero
		customerCart.DiscountType = nil
		if err := cartRepo.Save(ctx, customerCart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart")
		}

		created = &order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{CustomerID: input.CustomerID, Role: "customer"},
			Data: OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CustomerID:    order.CustomerID,
				Status:        order.Status,
				PaymentMethod: order.PaymentMethod,
				Currency:      order.PaymentCurrency,
				Total:         order.Total,
				ItemCount:     len(items),
				ServiceCount:  len(serviceItems),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	full, err := s.repo.FindOrder(ctx, created.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id":     full.ID.String(),
			"order_number": full.OrderNumber,
			"customer_id":  full.CustomerID.String(),
			"total":        full.Total.StringFixed(2),
		}), "order created")
	}
	return full, nil
}

type pricedProductLine struct {
	product models.Product
	item    models.OrderItem
}

type pricedServiceLine struct {
	item    models.OrderServiceItem
	details *types.JSONMap
}

// priceLines snapshots cart lines against the live catalog. A product that
// vanished or went inactive since it was carted fails the checkout.
func (s *service) priceLines(ctx context.Context, customerCart *models.Cart) ([]pricedProductLine, []pricedServiceLine, error) {
	productIDs := make([]uuid.UUID, 0, len(customerCart.Items))
	for _, item := range customerCart.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	serviceIDs := make([]uuid.UUID, 0, len(customerCart.ServiceItems))
	for _, item := range customerCart.ServiceItems {
		serviceIDs = append(serviceIDs, item.ServiceID)
	}

	products, err := s.catalog.ListProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	services, err := s.catalog.ListServicesByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load services")
	}

	productByID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	serviceByID := make(map[uuid.UUID]models.CatalogService, len(services))
	for _, svc := range services {
		serviceByID[svc.ID] = svc
	}

	productLines := make([]pricedProductLine, 0, len(customerCart.Items))
	for _, item := range customerCart.Items {
		product, ok := productByID[item.ProductID]
		if !ok || !product.IsActive {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is no longer available", item.ProductID))
		}
		unitPrice := product.EffectivePrice()
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		productLines = append(productLines, pricedProductLine{
			product: product,
			item: models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   unitPrice,
				TaxRate:     product.TaxRate,
				LineTotal:   lineTotal,
			},
		})
	}

	serviceLines := make([]pricedServiceLine, 0, len(customerCart.ServiceItems))
	for _, item := range customerCart.ServiceItems {
		svc, ok := serviceByID[item.ServiceID]
		if !ok || !svc.IsActive {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("service %s is no longer available", item.ServiceID))
		}
		serviceLines = append(serviceLines, pricedServiceLine{
			item: models.OrderServiceItem{
				ServiceID:   svc.ID,
				ServiceName: svc.Name,
				Price:       svc.Price,
			},
			details: item.AppointmentDetails,
		})
	}
	return productLines, serviceLines, nil
}

func (s *service) Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderForCustomer(ctx, customerID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	list, err := s.repo.ListByCustomer(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// UpdateStatus moves an order along the lifecycle graph and performs the
// side effects the target status implies. Same-status calls append a
// notes-only history entry and change nothing else.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status == input.NewStatus {
			if input.Notes == nil {
				return nil
			}
			return repo.CreateStatusEntry(ctx, &models.OrderStatusEntry{
				OrderID:        order.ID,
				PreviousStatus: order.Status,
				NewStatus:      order.Status,
				ChangedByID:    input.ActorID,
				Notes:          input.Notes,
			})
		}

		if !CanTransition(order.Status, input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, input.NewStatus)).
				WithDetails(map[string]any{
					"current_status":   order.Status,
					"requested_status": input.NewStatus,
				})
		}

		if input.NewStatus == enums.OrderStatusCancelled {
			reason := "cancelled by staff"
			if input.Notes != nil {
				reason = *input.Notes
			}
			return s.cancelLocked(ctx, tx, order, input.ActorID, reason)
		}

		updates := map[string]any{"status": input.NewStatus}
		switch input.NewStatus {
		case enums.OrderStatusProcessing:
			if err := s.recordCheckpoint(ctx, repo, order.ID, "processing", "Warehouse", "Order is being prepared"); err != nil {
				return err
			}
		case enums.OrderStatusShipped:
			if err := s.applyShippingDetails(ctx, repo, order, input, updates); err != nil {
				return err
			}
		case enums.OrderStatusDelivered:
			if err := s.recordCheckpoint(ctx, repo, order.ID, "delivered", "Destination", "Package delivered"); err != nil {
				return err
			}
			if order.PaymentMethod == enums.PaymentMethodCashOnDelivery && order.PaymentStatus == enums.PaymentStatusPending {
				if err := s.settleCashOnDelivery(ctx, tx, repo, order, updates); err != nil {
					return err
				}
			}
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.CreateStatusEntry(ctx, &models.OrderStatusEntry{
			OrderID:        order.ID,
			PreviousStatus: order.Status,
			NewStatus:      input.NewStatus,
			ChangedByID:    input.ActorID,
			Notes:          input.Notes,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}

		eventType := enums.EventOrderStatusChanged
		if input.NewStatus == enums.OrderStatusDelivered {
			eventType = enums.EventOrderDelivered
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				CustomerID:     order.CustomerID,
				PreviousStatus: order.Status,
				NewStatus:      input.NewStatus,
				Notes:          input.Notes,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return updated, nil
}

// Cancel is the customer-facing path. Only pending and processing orders can
// be cancelled by their owner.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "cancelled by customer"
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForCustomer(ctx, input.CustomerID, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order in status %s can no longer be cancelled", order.Status))
		}
		return s.cancelLocked(ctx, tx, order, &input.CustomerID, reason)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, input.CustomerID, input.OrderID)
}

// cancelLocked performs the cancellation side effects inside the caller's
// transaction: restock, appointment cancellation, the audit row and the
// outbox event.
func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, order *models.Order, actorID *uuid.UUID, reason string) error {
	repo := s.repo.WithTx(tx)
	orderID := order.ID

	restocked := 0
	note := fmt.Sprintf("restock for cancelled order %s", order.OrderNumber)
	for _, item := range order.Items {
		_, err := s.inventory.Apply(ctx, tx, inventory.ApplyInput{
			ProductID:     item.ProductID,
			Movement:      enums.InventoryMovementReturn,
			Quantity:      item.Quantity,
			RefKind:       enums.InventoryRefKindOrder,
			RefID:         &orderID,
			Notes:         &note,
			PerformedByID: actorID,
		})
		if err != nil {
			return err
		}
		restocked++
	}

	if err := repo.CancelAppointmentsByOrder(ctx, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel appointments")
	}

	updates := map[string]any{"status": enums.OrderStatusCancelled}
	if order.PaymentStatus == enums.PaymentStatusCompleted {
		updates["payment_status"] = enums.PaymentStatusRefunded
	}
	if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	if err := repo.CreateCancellation(ctx, &models.OrderCancellation{
		OrderID:       orderID,
		CancelledByID: actorID,
		Reason:        reason,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record cancellation")
	}
	if err := repo.CreateStatusEntry(ctx, &models.OrderStatusEntry{
		OrderID:        orderID,
		PreviousStatus: order.Status,
		NewStatus:      enums.OrderStatusCancelled,
		ChangedByID:    actorID,
		Notes:          &reason,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Version:       1,
		Data: OrderCancelledEvent{
			OrderID:        orderID,
			OrderNumber:    order.OrderNumber,
			CustomerID:     order.CustomerID,
			PreviousStatus: order.Status,
			Reason:         reason,
			RestockedLines: restocked,
		},
	})
}

// Settle marks the order paid. The payment gateway calls this inside its own
// reconciliation transaction so the payment row and the order update commit
// together.
func (s *service) Settle(ctx context.Context, tx *gorm.DB, input SettleInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "settle requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	order, err := repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentStatus == enums.PaymentStatusCompleted {
		return nil
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	updates := map[string]any{
		"payment_status":         enums.PaymentStatusCompleted,
		"payment_transaction_id": input.TransactionID,
		"payment_date":           paidAt,
	}
	advanced := false
	if order.Status == enums.OrderStatusPending {
		updates["status"] = enums.OrderStatusProcessing
		advanced = true
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}

	txnID := input.TransactionID
	if err := repo.CreatePaymentTransaction(ctx, &models.PaymentTransaction{
		OrderID:       order.ID,
		TransactionID: &txnID,
		Amount:        input.Amount,
		Currency:      order.PaymentCurrency,
		Method:        input.Method,
		Status:        enums.PaymentStatusCompleted,
		Details:       input.Details,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment transaction")
	}

	if advanced {
		if err := repo.CreateStatusEntry(ctx, &models.OrderStatusEntry{
			OrderID:        order.ID,
			PreviousStatus: order.Status,
			NewStatus:      enums.OrderStatusProcessing,
			Notes:          ptr("payment received"),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status history")
		}
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentCompleted,
		AggregateType: enums.AggregatePayment,
		AggregateID:   order.ID,
		Version:       1,
		Data: PaymentSettledEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			TransactionID: input.TransactionID,
			Amount:        input.Amount,
			Currency:      order.PaymentCurrency,
			Method:        input.Method,
			Status:        enums.PaymentStatusCompleted,
		},
	})
}

// FailPayment records a failed settlement attempt. The order stays in its
// current lifecycle status so the customer can retry.
func (s *service) FailPayment(ctx context.Context, tx *gorm.DB, input SettleInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "fail payment requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	order, err := repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentStatus == enums.PaymentStatusCompleted {
		return nil
	}

	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"payment_status": enums.PaymentStatusFailed,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}

	txnID := input.TransactionID
	if err := repo.CreatePaymentTransaction(ctx, &models.PaymentTransaction{
		OrderID:       order.ID,
		TransactionID: &txnID,
		Amount:        input.Amount,
		Currency:      order.PaymentCurrency,
		Method:        input.Method,
		Status:        enums.PaymentStatusFailed,
		Details:       input.Details,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment transaction")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   order.ID,
		Version:       1,
		Data: PaymentSettledEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			TransactionID: input.TransactionID,
			Amount:        input.Amount,
			Currency:      order.PaymentCurrency,
			Method:        input.Method,
			Status:        enums.PaymentStatusFailed,
		},
	})
}

func (s *service) GetTracking(ctx context.Context, customerID, orderID uuid.UUID) (*models.ShipmentTracking, error) {
	if _, err := s.Get(ctx, customerID, orderID); err != nil {
		return nil, err
	}
	shipment, err := s.repo.FindShipmentByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no tracking information yet")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking")
	}
	return shipment, nil
}

func (s *service) AddNote(ctx context.Context, input AddNoteInput) (*models.OrderNote, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note body is required")
	}
	if _, err := s.repo.FindOrder(ctx, input.OrderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	note := models.OrderNote{
		OrderID:  input.OrderID,
		AuthorID: input.AuthorID,
		Body:     body,
	}
	if err := s.repo.CreateNote(ctx, &note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create note")
	}
	return &note, nil
}

func (s *service) applyShippingDetails(ctx context.Context, repo Repository, order *models.Order, input UpdateStatusInput, updates map[string]any) error {
	trackingNumber := input.TrackingNumber
	if trackingNumber == nil {
		generated := generateTrackingNumber()
		trackingNumber = &generated
	}
	updates["tracking_number"] = *trackingNumber
	if input.TrackingCarrier != nil {
		updates["tracking_carrier"] = *input.TrackingCarrier
	}
	if input.EstimatedDelivery != nil {
		updates["estimated_delivery"] = *input.EstimatedDelivery
	}

	shipmentUpdates := map[string]any{
		"status":          "in_transit",
		"tracking_number": *trackingNumber,
	}
	if input.TrackingCarrier != nil {
		shipmentUpdates["carrier"] = *input.TrackingCarrier
	}
	if input.EstimatedDelivery != nil {
		shipmentUpdates["estimated_delivery"] = *input.EstimatedDelivery
	}
	shipment, err := repo.UpsertShipment(ctx, order.ID, shipmentUpdates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment")
	}
	location := "Distribution center"
	description := "Package left the distribution center"
	return repo.AppendCheckpoint(ctx, &models.ShipmentCheckpoint{
		ShipmentID:  shipment.ID,
		Status:      "in_transit",
		Location:    &location,
		Description: &description,
	})
}

func (s *service) recordCheckpoint(ctx context.Context, repo Repository, orderID uuid.UUID, status, location, description string) error {
	shipment, err := repo.UpsertShipment(ctx, orderID, map[string]any{"status": status})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment")
	}
	if err := repo.AppendCheckpoint(ctx, &models.ShipmentCheckpoint{
		ShipmentID:  shipment.ID,
		Status:      status,
		Location:    &location,
		Description: &description,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append checkpoint")
	}
	return nil
}

// settleCashOnDelivery closes out payment when a cash order is delivered.
func (s *service) settleCashOnDelivery(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, updates map[string]any) error {
	now := time.Now()
	txnID := fmt.Sprintf("COD-%s", order.OrderNumber)
	updates["payment_status"] = enums.PaymentStatusCompleted
	updates["payment_transaction_id"] = txnID
	updates["payment_date"] = now

	if err := repo.CreatePaymentTransaction(ctx, &models.PaymentTransaction{
		OrderID:       order.ID,
		TransactionID: &txnID,
		Amount:        order.Total,
		Currency:      order.PaymentCurrency,
		Method:        enums.PaymentMethodCashOnDelivery,
		Status:        enums.PaymentStatusCompleted,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record cash payment")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentCompleted,
		AggregateType: enums.AggregatePayment,
		AggregateID:   order.ID,
		Version:       1,
		Data: PaymentSettledEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			TransactionID: txnID,
			Amount:        order.Total,
			Currency:      order.PaymentCurrency,
			Method:        enums.PaymentMethodCashOnDelivery,
			Status:        enums.PaymentStatusCompleted,
		},
	})
}

func generateOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func generateTrackingNumber() string {
	return "TRK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func ptr[T any](v T) *T {
	return &v
}
