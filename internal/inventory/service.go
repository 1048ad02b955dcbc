package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/enums"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
	"github.com/afyakart/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ApplyInput describes one stock movement. Quantity is the signed delta:
// negative for sales and write-offs, positive for purchases and returns.
type ApplyInput struct {
	ProductID     uuid.UUID
	Movement      enums.InventoryMovement
	Quantity      int
	RefKind       enums.InventoryRefKind
	RefID         *uuid.UUID
	UnitCost      *decimal.Decimal
	Notes         *string
	PerformedByID *uuid.UUID
	// AllowNegative lets an explicit adjustment drive stock below zero,
	// for correcting a count that was already wrong. Order flows never set it.
	AllowNegative bool
}

// Service is the single entry point for stock changes. Validation and the
// write happen under one product row lock.
type Service interface {
	Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.InventoryTransaction, error)
	Adjust(ctx context.Context, input ApplyInput) (*models.InventoryTransaction, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.InventoryTransaction, error)
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the inventory ledger service.
func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// Apply validates and records one movement inside the caller's transaction.
// The product row lock serializes concurrent movements on the same product.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.InventoryTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory apply requires a transaction")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-zero")
	}
	if !input.Movement.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory movement")
	}
	if !input.RefKind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory reference kind")
	}
	if input.AllowNegative && input.RefKind != enums.InventoryRefKindAdjustment {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only adjustments may drive stock negative")
	}

	repo := s.repo.WithTx(tx)

	product, err := repo.GetProductForUpdate(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
	}

	newStock := product.Stock + input.Quantity
	if newStock < 0 && !input.AllowNegative {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("insufficient stock for %s: %d available", product.Name, product.Stock)).
			WithDetails(map[string]any{
				"product_id": product.ID.String(),
				"available":  product.Stock,
				"requested":  -input.Quantity,
			})
	}

	entry := &models.InventoryTransaction{
		ProductID:     product.ID,
		Movement:      input.Movement,
		Quantity:      input.Quantity,
		PreviousStock: product.Stock,
		NewStock:      newStock,
		RefKind:       input.RefKind,
		RefID:         input.RefID,
		UnitCost:      input.UnitCost,
		Notes:         input.Notes,
		PerformedByID: input.PerformedByID,
	}
	if input.UnitCost != nil {
		total := input.UnitCost.Mul(decimal.NewFromInt(int64(abs(input.Quantity))))
		entry.TotalCost = &total
	}

	if err := repo.UpdateStock(ctx, product.ID, newStock); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}
	if err := repo.InsertTransaction(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record inventory transaction")
	}

	return entry, nil
}

// Adjust runs a standalone movement in its own transaction. Used by the admin
// adjustment surface; order flows call Apply inside their own transactions.
func (s *service) Adjust(ctx context.Context, input ApplyInput) (*models.InventoryTransaction, error) {
	var entry *models.InventoryTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, applyErr := s.Apply(ctx, tx, input)
		if applyErr != nil {
			return applyErr
		}
		entry = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"product_id": input.ProductID.String(),
			"movement":   input.Movement.String(),
			"quantity":   input.Quantity,
		}), "inventory adjusted")
	}
	return entry, nil
}

// ListByProduct returns the movement history for a product.
func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.InventoryTransaction, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.repo.ListByProduct(ctx, productID, limit)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
