package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/afyakart/storefront-backend/internal/catalog"
	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/enums"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
	"github.com/afyakart/storefront-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.CatalogService{},
		&models.Cart{},
		&models.CartItem{},
		&models.CartServiceItem{},
		&models.Coupon{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "cart-test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	svc, err := NewService(
		NewRepository(db),
		NewCouponRepo(db),
		catalog.NewRepository(db),
		gormTxRunner{db: db},
		logg,
	)
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, price string, stock int) models.Product {
	t.Helper()
	id := uuid.New()
	product := models.Product{
		ID:       id,
		Name:     "Product " + id.String()[:8],
		Slug:     "product-" + id.String()[:8],
		SKU:      "SKU-" + id.String()[:8],
		Price:    decimal.RequireFromString(price),
		TaxRate:  decimal.Zero,
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func seedCoupon(t *testing.T, db *gorm.DB, coupon models.Coupon) models.Coupon {
	t.Helper()
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	if coupon.ValidFrom.IsZero() {
		coupon.ValidFrom = time.Now().Add(-time.Hour)
	}
	if coupon.ValidTo.IsZero() {
		coupon.ValidTo = time.Now().Add(time.Hour)
	}
	coupon.IsActive = true
	require.NoError(t, db.Create(&coupon).Error)
	return coupon
}

func TestAddProductMergesQuantities(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "500.00", 10)

	_, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	quote, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, quote.Cart.Items, 1)
	assert.Equal(t, 5, quote.Cart.Items[0].Quantity)
	assert.True(t, quote.Subtotal.Equal(decimal.RequireFromString("2500.00")),
		"subtotal = %s", quote.Subtotal)
}

func TestAddProductRejectsShortStock(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "120.00", 3)

	_, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	// 2 already in the cart, so 2 more exceeds the 3 on hand.
	_, err = svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 2})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestAddProductRejectsInactive(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, "80.00", 5)
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("is_active", false).Error)

	_, err := svc.AddProduct(ctx, uuid.New(), AddProductInput{ProductID: product.ID, Quantity: 1})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestApplyCouponPercentageWithMinimum(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "500.00", 10)
	minAmount := decimal.RequireFromString("900.00")
	seedCoupon(t, db, models.Coupon{
		Code:               "SAVE10",
		DiscountType:       enums.DiscountTypePercentage,
		DiscountValue:      decimal.RequireFromString("10"),
		MinimumOrderAmount: &minAmount,
	})

	_, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	quote, err := svc.ApplyCoupon(ctx, customerID, "SAVE10")
	require.NoError(t, err)

	assert.True(t, quote.Subtotal.Equal(decimal.RequireFromString("1000.00")), "subtotal = %s", quote.Subtotal)
	assert.True(t, quote.Discount.Equal(decimal.RequireFromString("100.00")), "discount = %s", quote.Discount)
	assert.True(t, quote.Total.Equal(decimal.RequireFromString("900.00")), "total = %s", quote.Total)
	require.NotNil(t, quote.Cart.AppliedCouponCode)
	assert.Equal(t, "SAVE10", *quote.Cart.AppliedCouponCode)
}

func TestApplyCouponInactiveOrExpiredReadsAsNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "500.00", 10)
	seedCoupon(t, db, models.Coupon{
		Code:          "DISABLED",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.RequireFromString("10"),
	})
	require.NoError(t, db.Model(&models.Coupon{}).
		Where("code = ?", "DISABLED").
		Update("is_active", false).Error)
	seedCoupon(t, db, models.Coupon{
		Code:          "LAPSED",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.RequireFromString("10"),
		ValidFrom:     time.Now().Add(-48 * time.Hour),
		ValidTo:       time.Now().Add(-24 * time.Hour),
	})

	_, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	for _, code := range []string{"DISABLED", "LAPSED", "NO-SUCH-CODE"} {
		_, err = svc.ApplyCoupon(ctx, customerID, code)
		require.Error(t, err, "code %s", code)
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code(), "code %s", code)
	}
}

func TestApplyCouponMinimumNotMet(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "100.00", 10)
	minAmount := decimal.RequireFromString("900.00")
	seedCoupon(t, db, models.Coupon{
		Code:               "SAVE10",
		DiscountType:       enums.DiscountTypePercentage,
		DiscountValue:      decimal.RequireFromString("10"),
		MinimumOrderAmount: &minAmount,
	})

	_, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, customerID, "SAVE10")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	var coupon models.Coupon
	require.NoError(t, db.Where("code = ?", "SAVE10").First(&coupon).Error)
	assert.Equal(t, 0, coupon.TimesUsed, "rejected apply must not consume a use")
}

func TestApplyCouponCapsPercentageDiscount(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "2000.00", 5)
	maxDiscount := decimal.RequireFromString("150.00")
	seedCoupon(t, db, models.Coupon{
		Code:            "BIG20",
		DiscountType:    enums.DiscountTypePercentage,
		DiscountValue:   decimal.RequireFromString("20"),
		MaximumDiscount: &maxDiscount,
	})

	_, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	quote, err := svc.ApplyCoupon(ctx, customerID, "BIG20")
	require.NoError(t, err)
	assert.True(t, quote.Discount.Equal(maxDiscount), "discount = %s", quote.Discount)
}

func TestApplyCouponFixedNeverExceedsSubtotal(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "60.00", 5)
	seedCoupon(t, db, models.Coupon{
		Code:          "FLAT100",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: decimal.RequireFromString("100.00"),
	})

	_, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	quote, err := svc.ApplyCoupon(ctx, customerID, "FLAT100")
	require.NoError(t, err)
	assert.True(t, quote.Discount.Equal(decimal.RequireFromString("60.00")), "discount = %s", quote.Discount)
	assert.True(t, quote.Total.IsZero(), "total = %s", quote.Total)
}

func TestApplyCouponEmptyCart(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	seedCoupon(t, db, models.Coupon{
		Code:          "SAVE10",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.RequireFromString("10"),
	})

	_, err := svc.GetCart(ctx, customerID)
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, customerID, "SAVE10")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestApplyCouponUsageLimitExhausted(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, "200.00", 50)
	limit := 1
	seedCoupon(t, db, models.Coupon{
		Code:          "ONCE",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: decimal.RequireFromString("50.00"),
		UsageLimit:    &limit,
	})

	first := uuid.New()
	_, err := svc.AddProduct(ctx, first, AddProductInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, first, "ONCE")
	require.NoError(t, err)

	second := uuid.New()
	_, err = svc.AddProduct(ctx, second, AddProductInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, second, "ONCE")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestRemoveCouponReleasesUse(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "200.00", 50)
	limit := 1
	seedCoupon(t, db, models.Coupon{
		Code:          "ONCE",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: decimal.RequireFromString("50.00"),
		UsageLimit:    &limit,
	})

	_, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, customerID, "ONCE")
	require.NoError(t, err)

	quote, err := svc.RemoveCoupon(ctx, customerID)
	require.NoError(t, err)
	assert.Nil(t, quote.Cart.AppliedCouponCode)
	assert.True(t, quote.Discount.IsZero())

	var coupon models.Coupon
	require.NoError(t, db.Where("code = ?", "ONCE").First(&coupon).Error)
	assert.Equal(t, 0, coupon.TimesUsed)

	// The released use is available again.
	_, err = svc.ApplyCoupon(ctx, customerID, "ONCE")
	require.NoError(t, err)
}

func TestClearResetsCouponSnapshot(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "300.00", 10)
	seedCoupon(t, db, models.Coupon{
		Code:          "SAVE10",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.RequireFromString("10"),
	})

	_, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, customerID, "SAVE10")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, customerID))

	quote, err := svc.GetCart(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, quote.Cart.Items)
	assert.Nil(t, quote.Cart.AppliedCouponCode)
	assert.True(t, quote.Subtotal.IsZero())
	assert.True(t, quote.Total.IsZero())
}

func TestUpdateItemQuantityAndRemove(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customerID := uuid.New()

	product := seedProduct(t, db, "50.00", 4)

	quote, err := svc.AddProduct(ctx, customerID, AddProductInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := quote.Cart.Items[0].ID

	_, err = svc.UpdateItemQuantity(ctx, customerID, itemID, 9)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	quote, err = svc.UpdateItemQuantity(ctx, customerID, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, quote.Cart.Items[0].Quantity)

	quote, err = svc.RemoveItem(ctx, customerID, itemID)
	require.NoError(t, err)
	assert.Empty(t, quote.Cart.Items)

	_, err = svc.RemoveItem(ctx, customerID, itemID)
	require.Error(t, err)
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
