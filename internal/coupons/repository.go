package coupons

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
)

// Repository persists coupons and user claims.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByCode loads a coupon by its case-insensitive code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindUserCoupon returns the claim row of userID for couponID.
func (r *Repository) FindUserCoupon(ctx context.Context, userID, couponID uint) (*models.UserCoupon, error) {
	var uc models.UserCoupon
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND coupon_id = ?", userID, couponID).
		First(&uc).Error; err != nil {
		return nil, err
	}
	return &uc, nil
}

// EnsureClaim inserts the claim row unless one already exists. A conflicting
// insert is a no-op so it never aborts an enclosing transaction.
func (r *Repository) EnsureClaim(ctx context.Context, userID, couponID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "coupon_id"}},
			DoNothing: true,
		}).
		Create(&models.UserCoupon{UserID: userID, CouponID: couponID}).Error
}

// MarkUsed sets used_at only when the claim is still unused. It reports false
// when another redemption already consumed the claim.
func (r *Repository) MarkUsed(ctx context.Context, userID, couponID uint, orderID *uint, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserCoupon{}).
		Where("user_id = ? AND coupon_id = ? AND used_at IS NULL", userID, couponID).
		Updates(map[string]any{
			"used_at":    now,
			"order_id":   orderID,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
