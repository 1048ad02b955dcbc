package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/afyakart/storefront-backend/pkg/db/models"
)

// CouponRepo persists coupons. Usage counters only move through the guarded
// statements below so limits hold under concurrent applies.
type CouponRepo struct {
	db *gorm.DB
}

// NewCouponRepo constructs a coupon repository bound to the provided DB.
func NewCouponRepo(db *gorm.DB) *CouponRepo {
	return &CouponRepo{db: db}
}

// WithTx binds the repository to a transaction.
func (r *CouponRepo) WithTx(tx *gorm.DB) CouponRepository {
	if tx == nil {
		return r
	}
	return &CouponRepo{db: tx}
}

// FindByCode loads a coupon by its code.
func (r *CouponRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// IncrementUsage bumps times_used only while the usage limit holds. A false
// return means the limit was already reached.
func (r *CouponRepo) IncrementUsage(ctx context.Context, code string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND (usage_limit IS NULL OR times_used < usage_limit)", code).
		Update("times_used", gorm.Expr("times_used + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DecrementUsage releases one use, never going below zero.
func (r *CouponRepo) DecrementUsage(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND times_used > 0", code).
		Update("times_used", gorm.Expr("times_used - 1")).Error
}
