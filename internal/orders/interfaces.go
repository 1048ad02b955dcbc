package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/afyakart/storefront-backend/internal/inventory"
	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	CreateOrderServiceItems(ctx context.Context, items []models.OrderServiceItem) error
	CreateStatusEntry(ctx context.Context, entry *models.OrderStatusEntry) error
	CreateNote(ctx context.Context, note *models.OrderNote) error
	CreateCancellation(ctx context.Context, cancellation *models.OrderCancellation) error
	CreatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error

	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error

	CreateAppointment(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error)
	CancelAppointmentsByOrder(ctx context.Context, orderID uuid.UUID) error

	UpsertShipment(ctx context.Context, orderID uuid.UUID, updates map[string]any) (*models.ShipmentTracking, error)
	AppendCheckpoint(ctx context.Context, checkpoint *models.ShipmentCheckpoint) error
	FindShipmentByOrder(ctx context.Context, orderID uuid.UUID) (*models.ShipmentTracking, error)
	FindStatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEntry, error)
}

// catalogLoader prices cart lines at checkout time.
type catalogLoader interface {
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListServicesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CatalogService, error)
}

// stockApplier moves stock through the inventory ledger inside the caller's
// transaction.
type stockApplier interface {
	Apply(ctx context.Context, tx *gorm.DB, input inventory.ApplyInput) (*models.InventoryTransaction, error)
}
