package mpesa

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/afyakart/storefront-backend/pkg/db/models"
)

// Repository persists STK transactions and raw callback deliveries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateTransaction(ctx context.Context, txn *models.MpesaTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *Repository) UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.MpesaTransaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *Repository) FindTransaction(ctx context.Context, id uuid.UUID) (*models.MpesaTransaction, error) {
	var txn models.MpesaTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindTransactionByCheckoutID locks the row on Postgres so concurrent
// callback deliveries for the same push serialize. SQLite runs with a single
// writer and needs no lock clause.
func (r *Repository) FindTransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.MpesaTransaction, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var txn models.MpesaTransaction
	err := query.Where("checkout_request_id = ?", checkoutRequestID).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *Repository) ListTransactionsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.MpesaTransaction, error) {
	var txns []models.MpesaTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *Repository) CreateCallback(ctx context.Context, callback *models.MpesaCallback) error {
	if callback.ID == uuid.Nil {
		callback.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(callback).Error
}

func (r *Repository) UpdateCallback(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.MpesaCallback{}).
		Where("id = ?", id).
		Updates(updates).Error
}
