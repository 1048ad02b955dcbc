package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/enums"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
)

func TestApplyRecordsLedgerEntry(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, 10)
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		entry, applyErr := svc.Apply(ctx, tx, ApplyInput{
			ProductID: product.ID,
			Movement:  enums.InventoryMovementSale,
			Quantity:  -3,
			RefKind:   enums.InventoryRefKindOrder,
			RefID:     &orderID,
		})
		if applyErr != nil {
			return applyErr
		}
		if entry.PreviousStock != 10 || entry.NewStock != 7 {
			t.Fatalf("unexpected entry stock: %+v", entry)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("apply transaction: %v", err)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if reloaded.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", reloaded.Stock)
	}

	repo := NewRepository(db)
	sum, err := repo.SumQuantity(ctx, product.ID)
	if err != nil {
		t.Fatalf("sum quantities: %v", err)
	}
	if sum != -3 {
		t.Fatalf("expected ledger sum -3, got %d", sum)
	}
}

func TestApplyRejectsShortfall(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, applyErr := svc.Apply(ctx, tx, ApplyInput{
			ProductID: product.ID,
			Movement:  enums.InventoryMovementSale,
			Quantity:  -2,
			RefKind:   enums.InventoryRefKindOrder,
		})
		return applyErr
	})
	if err == nil {
		t.Fatal("expected shortfall error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if reloaded.Stock != 1 {
		t.Fatalf("stock must be untouched after rejection, got %d", reloaded.Stock)
	}

	var count int64
	if err := db.Model(&models.InventoryTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no ledger entries, got %d", count)
	}
}

func TestApplyValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	product := seedProduct(t, db, 5)

	cases := []ApplyInput{
		{ProductID: uuid.Nil, Movement: enums.InventoryMovementSale, Quantity: -1, RefKind: enums.InventoryRefKindOrder},
		{ProductID: product.ID, Movement: enums.InventoryMovementSale, Quantity: 0, RefKind: enums.InventoryRefKindOrder},
		{ProductID: product.ID, Movement: "bogus", Quantity: -1, RefKind: enums.InventoryRefKindOrder},
		{ProductID: product.ID, Movement: enums.InventoryMovementSale, Quantity: -1, RefKind: "bogus"},
	}
	for i, input := range cases {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, applyErr := svc.Apply(ctx, tx, input)
			return applyErr
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestAdjustRunsOwnTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	product := seedProduct(t, db, 0)

	entry, err := svc.Adjust(ctx, ApplyInput{
		ProductID: product.ID,
		Movement:  enums.InventoryMovementPurchase,
		Quantity:  25,
		RefKind:   enums.InventoryRefKindPurchaseOrder,
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if entry.NewStock != 25 {
		t.Fatalf("expected new stock 25, got %d", entry.NewStock)
	}

	history, err := svc.ListByProduct(ctx, product.ID, 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(history))
	}
}

func TestAdjustAllowNegative(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	product := seedProduct(t, db, 2)

	entry, err := svc.Adjust(ctx, ApplyInput{
		ProductID:     product.ID,
		Movement:      enums.InventoryMovementWriteOff,
		Quantity:      -5,
		RefKind:       enums.InventoryRefKindAdjustment,
		AllowNegative: true,
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if entry.NewStock != -3 {
		t.Fatalf("expected new stock -3, got %d", entry.NewStock)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.Stock != -3 {
		t.Fatalf("expected stock -3, got %d", reloaded.Stock)
	}
}

func TestAllowNegativeRequiresAdjustmentRef(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	product := seedProduct(t, db, 2)
	orderID := uuid.New()

	_, err := svc.Adjust(ctx, ApplyInput{
		ProductID:     product.ID,
		Movement:      enums.InventoryMovementSale,
		Quantity:      -5,
		RefKind:       enums.InventoryRefKindOrder,
		RefID:         &orderID,
		AllowNegative: true,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", appErr.Code())
	}
}

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:    uuid.New(),
		Name:  "Paracetamol 500mg",
		Slug:  "paracetamol-" + uuid.NewString()[:8],
		SKU:   "SKU-" + uuid.NewString()[:8],
		Stock: stock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.InventoryTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
