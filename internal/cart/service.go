package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/afyakart/storefront-backend/pkg/db/models"
	"github.com/afyakart/storefront-backend/pkg/enums"
	pkgerrors "github.com/afyakart/storefront-backend/pkg/errors"
	"github.com/afyakart/storefront-backend/pkg/logger"
	"github.com/afyakart/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalogLoader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetService(ctx context.Context, id uuid.UUID) (*models.CatalogService, error)
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListServicesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CatalogService, error)
}

// Quote is the priced view of a cart. Line prices come from the catalog at
// read time; only the coupon discount is a stored snapshot.
type Quote struct {
	Cart     *models.Cart
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// AddProductInput captures a product line request.
type AddProductInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// AddServiceInput captures a service line request.
type AddServiceInput struct {
	ServiceID          uuid.UUID
	AppointmentDetails *types.JSONMap
}

// Service exposes cart operations scoped to a customer.
type Service interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*Quote, error)
	AddProduct(ctx context.Context, customerID uuid.UUID, input AddProductInput) (*Quote, error)
	AddService(ctx context.Context, customerID uuid.UUID, input AddServiceInput) (*Quote, error)
	UpdateItemQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*Quote, error)
	RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*Quote, error)
	RemoveServiceItem(ctx context.Context, customerID, itemID uuid.UUID) (*Quote, error)
	ApplyCoupon(ctx context.Context, customerID uuid.UUID, code string) (*Quote, error)
	RemoveCoupon(ctx context.Context, customerID uuid.UUID) (*Quote, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

type service struct {
	repo    CartRepository
	coupons CouponRepository
	catalog catalogLoader
	tx      txRunner
	logg    *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, coupons CouponRepository, catalog catalogLoader, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, coupons: coupons, catalog: catalog, tx: tx, logg: logg}, nil
}

// GetCart returns the customer's cart, creating an empty one on first touch.
func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (*Quote, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	cart, err := s.repo.GetOrCreateByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.quote(ctx, cart)
}

// AddProduct merges the quantity into an existing line or creates a new one.
// The stock check here is advisory; the authoritative check runs at order
// creation under the product row lock.
func (s *service) AddProduct(ctx context.Context, customerID uuid.UUID, input AddProductInput) (*Quote, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "this product is not available")
	}

	cart, err := s.repo.GetOrCreateByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	requested := input.Quantity
	existing, err := s.repo.FindItemByProduct(ctx, cart.ID, product.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if existing != nil {
		requested += existing.Quantity
	}
	if product.Stock < requested {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("not enough stock available, only %d left", product.Stock))
	}

	if existing != nil {
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, requested); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
	} else {
		item := models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: input.Quantity}
		if err := s.repo.CreateItem(ctx, &item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
		}
	}

	return s.reload(ctx, customerID)
}

// AddService appends a service line; service lines never merge.
func (s *service) AddService(ctx context.Context, customerID uuid.UUID, input AddServiceInput) (*Quote, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	offering, err := s.catalog.GetService(ctx, input.ServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	if !offering.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "this service is not available")
	}

	cart, err := s.repo.GetOrCreateByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	item := models.CartServiceItem{
		CartID:             cart.ID,
		ServiceID:          offering.ID,
		AppointmentDetails: input.AppointmentDetails,
	}
	if err := s.repo.CreateServiceItem(ctx, &item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart service item")
	}

	return s.reload(ctx, customerID)
}

// UpdateItemQuantity sets an absolute quantity on a product line.
func (s *service) UpdateItemQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*Quote, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.requireCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	product, err := s.catalog.GetProduct(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Stock < quantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("not enough stock available, only %d left", product.Stock))
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}

	return s.reload(ctx, customerID)
}

// RemoveItem deletes a product line.
func (s *service) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*Quote, error) {
	cart, err := s.requireCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.reload(ctx, customerID)
}

// RemoveServiceItem deletes a service line.
func (s *service) RemoveServiceItem(ctx context.Context, customerID, itemID uuid.UUID) (*Quote, error) {
	cart, err := s.requireCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	affected, err := s.repo.DeleteServiceItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart service item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart service item not found")
	}
	return s.reload(ctx, customerID)
}

// ApplyCoupon validates the coupon against the live cart total and snapshots
// the discount. The usage counter moves through a guarded update in the same
// transaction, so a limit of N holds under concurrent applies.
func (s *service) ApplyCoupon(ctx context.Context, customerID uuid.UUID, code string) (*Quote, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	cart, err := s.requireCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	subtotal, err := s.subtotal(ctx, cart)
	if err != nil {
		return nil, err
	}
	if !subtotal.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot apply coupon to an empty cart")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.repo.WithTx(tx)
		couponRepo := s.coupons.WithTx(tx)

		coupon, cerr := couponRepo.FindByCode(ctx, code)
		if cerr != nil {
			if errors.Is(cerr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("coupon %s not found", code))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, cerr, "load coupon")
		}

		// Inactive and out-of-window coupons read the same as unknown ones so
		// callers cannot probe which codes exist.
		now := time.Now()
		if !coupon.IsActive || now.Before(coupon.ValidFrom) || now.After(coupon.ValidTo) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("coupon %s not found", code))
		}
		if coupon.MinimumOrderAmount != nil && subtotal.LessThan(*coupon.MinimumOrderAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("minimum order amount for this coupon is %s", coupon.MinimumOrderAmount.StringFixed(2)))
		}

		// Replacing a coupon releases the previous use first.
		if cart.AppliedCouponCode != nil && *cart.AppliedCouponCode != coupon.Code {
			if derr := couponRepo.DecrementUsage(ctx, *cart.AppliedCouponCode); derr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, derr, "release previous coupon")
			}
		}

		if cart.AppliedCouponCode == nil || *cart.AppliedCouponCode != coupon.Code {
			claimed, ierr := couponRepo.IncrementUsage(ctx, coupon.Code)
			if ierr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, ierr, "claim coupon use")
			}
			if !claimed {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "this coupon has reached its usage limit")
			}
		}

		discount := computeDiscount(coupon, subtotal)
		cart.AppliedCouponCode = &coupon.Code
		cart.DiscountAmount = discount
		cart.DiscountType = &coupon.DiscountType
		return cartRepo.Save(ctx, cart)
	}); err != nil {
		return nil, err
	}

	return s.reload(ctx, customerID)
}

// RemoveCoupon clears the coupon snapshot and releases the counted use.
func (s *service) RemoveCoupon(ctx context.Context, customerID uuid.UUID) (*Quote, error) {
	cart, err := s.requireCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.repo.WithTx(tx)
		couponRepo := s.coupons.WithTx(tx)

		if cart.AppliedCouponCode != nil {
			if derr := couponRepo.DecrementUsage(ctx, *cart.AppliedCouponCode); derr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, derr, "release coupon use")
			}
		}
		cart.AppliedCouponCode = nil
		cart.DiscountAmount = decimal.Zero
		cart.DiscountType = nil
		return cartRepo.Save(ctx, cart)
	}); err != nil {
		return nil, err
	}

	return s.reload(ctx, customerID)
}

// Clear empties the cart and resets the discount snapshot.
func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	cart, err := s.requireCart(ctx, customerID)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.repo.WithTx(tx)
		if err := cartRepo.DeleteAllItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart items")
		}
		cart.AppliedCouponCode = nil
		cart.DiscountAmount = decimal.Zero
		cart.DiscountType = nil
		return cartRepo.Save(ctx, cart)
	})
}

func (s *service) requireCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) reload(ctx context.Context, customerID uuid.UUID) (*Quote, error) {
	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return s.quote(ctx, cart)
}

func (s *service) quote(ctx context.Context, cart *models.Cart) (*Quote, error) {
	subtotal, err := s.subtotal(ctx, cart)
	if err != nil {
		return nil, err
	}

	discount := cart.DiscountAmount
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Quote{Cart: cart, Subtotal: subtotal, Discount: discount, Total: total}, nil
}

// subtotal prices the cart from the live catalog. Lines whose product or
// service vanished from the catalog contribute nothing.
func (s *service) subtotal(ctx context.Context, cart *models.Cart) (decimal.Decimal, error) {
	productIDs := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	serviceIDs := make([]uuid.UUID, 0, len(cart.ServiceItems))
	for _, item := range cart.ServiceItems {
		serviceIDs = append(serviceIDs, item.ServiceID)
	}

	products, err := s.catalog.ListProductsByIDs(ctx, productIDs)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	services, err := s.catalog.ListServicesByIDs(ctx, serviceIDs)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart services")
	}

	productByID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	serviceByID := make(map[uuid.UUID]models.CatalogService, len(services))
	for _, svc := range services {
		serviceByID[svc.ID] = svc
	}

	subtotal := decimal.Zero
	for _, item := range cart.Items {
		product, ok := productByID[item.ProductID]
		if !ok {
			continue
		}
		line := product.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}
	for _, item := range cart.ServiceItems {
		svc, ok := serviceByID[item.ServiceID]
		if !ok {
			continue
		}
		subtotal = subtotal.Add(svc.Price)
	}
	return subtotal, nil
}

func computeDiscount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100))
		if coupon.MaximumDiscount != nil && discount.GreaterThan(*coupon.MaximumDiscount) {
			discount = *coupon.MaximumDiscount
		}
	default:
		discount = coupon.DiscountValue
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}
	return discount.Round(2)
}
