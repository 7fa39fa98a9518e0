package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
	"github.com/furnihub/marketplace-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes coupon collection, preview and redemption.
type Service interface {
	Claim(ctx context.Context, userID uint, code string) (*models.UserCoupon, error)
	Preview(ctx context.Context, userID uint, input PreviewInput) (*PreviewResult, error)
	Redeem(ctx context.Context, userID, couponID uint, orderID *uint) error
}

type service struct {
	repo    *Repository
	tx      txRunner
	metrics *metrics.PricingMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the coupon service.
func NewService(repo *Repository, tx txRunner, m *metrics.PricingMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// PreviewInput describes a dry-run discount request. ShopID restricts the
// subtotal to a single shop; it is required for shop coupons.
type PreviewInput struct {
	Code     string
	Subtotal decimal.Decimal
	ShopID   *uint
}

// PreviewResult is the discount the coupon would grant right now.
type PreviewResult struct {
	Code          string          `json:"code"`
	Scope         string          `json:"scope"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	TotalAfterUse decimal.Decimal `json:"total_after_discount"`
}

func (s *service) Claim(ctx context.Context, userID uint, code string) (*models.UserCoupon, error) {
	coupon, err := LoadByCode(ctx, s.repo, code)
	if err != nil {
		return nil, err
	}
	if coupon.Status != enums.CouponStatusActive {
		return nil, pricing.CouponNotApplicable(coupon.Code, pricing.ConditionInactive)
	}
	if s.now().After(coupon.EndDate) {
		return nil, pricing.CouponNotApplicable(coupon.Code, pricing.ConditionExpired)
	}

	var claim *models.UserCoupon
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.EnsureClaim(ctx, userID, coupon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim coupon")
		}
		found, err := repo.FindUserCoupon(ctx, userID, coupon.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claim")
		}
		claim = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": userID, "coupon_code": coupon.Code}), "coupon.claimed")
	return claim, nil
}

func (s *service) Preview(ctx context.Context, userID uint, input PreviewInput) (*PreviewResult, error) {
	if input.Subtotal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must not be negative")
	}
	coupon, err := LoadByCode(ctx, s.repo, input.Code)
	if err != nil {
		return nil, err
	}
	if err := CheckEligibility(ctx, s.repo, userID, *coupon); err != nil {
		s.metrics.CouponEvaluated(Outcome(err))
		return nil, err
	}

	line := pricing.Line{Total: input.Subtotal}
	if input.ShopID != nil {
		line.ShopID = *input.ShopID
	}
	view := pricing.CouponFromModel(*coupon)
	eval, err := pricing.EvaluateCoupon(view, []pricing.Line{line}, s.now())
	s.metrics.CouponEvaluated(Outcome(err))
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Code:          coupon.Code,
		Scope:         view.Scope.String(),
		Subtotal:      input.Subtotal,
		Discount:      eval.Discount,
		TotalAfterUse: input.Subtotal.Sub(eval.Discount),
	}, nil
}

func (s *service) Redeem(ctx context.Context, userID, couponID uint, orderID *uint) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		coupon, err := repo.FindByID(ctx, couponID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
		}
		err = Redeem(ctx, repo, userID, *coupon, orderID, s.now())
		s.metrics.CouponRedeemed(redemptionResult(err))
		if err == nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": userID, "coupon_code": coupon.Code}), "coupon.redeemed")
		}
		return err
	})
}

type couponFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// LoadByCode resolves a coupon code into its record.
func LoadByCode(ctx context.Context, repo couponFinder, code string) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").WithDetails(map[string]any{"coupon_code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

type claimReader interface {
	FindUserCoupon(ctx context.Context, userID, couponID uint) (*models.UserCoupon, error)
}

// CheckEligibility verifies the user may still use the coupon: an existing
// claim must be unused, and shop coupons require a claim.
func CheckEligibility(ctx context.Context, repo claimReader, userID uint, coupon models.Coupon) error {
	claim, err := repo.FindUserCoupon(ctx, userID, coupon.ID)
	switch {
	case err == nil:
		if claim.UsedAt != nil {
			return pricing.CouponAlreadyUsed(coupon.Code)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if coupon.ShopID != nil {
			return pricing.CouponNotApplicable(coupon.Code, pricing.ConditionNotClaimed)
		}
		return nil
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claim")
	}
}

type redemptionStore interface {
	claimReader
	EnsureClaim(ctx context.Context, userID, couponID uint) error
	MarkUsed(ctx context.Context, userID, couponID uint, orderID *uint, now time.Time) (bool, error)
}

// Redeem marks the coupon used for userID exactly once. Platform coupons are
// claimed on the fly; the conditional update decides concurrent attempts.
func Redeem(ctx context.Context, repo redemptionStore, userID uint, coupon models.Coupon, orderID *uint, now time.Time) error {
	if err := CheckEligibility(ctx, repo, userID, coupon); err != nil {
		return err
	}
	if coupon.ShopID == nil {
		if err := repo.EnsureClaim(ctx, userID, coupon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim coupon")
		}
	}
	ok, err := repo.MarkUsed(ctx, userID, coupon.ID, orderID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem coupon")
	}
	if !ok {
		return pricing.CouponAlreadyUsed(coupon.Code)
	}
	return nil
}

// Outcome labels a coupon evaluation result for metrics.
func Outcome(err error) string {
	if err == nil {
		return "applied"
	}
	if cond, ok := pricing.ConditionOf(err); ok {
		return cond.String()
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeCouponAlreadyUsed) {
		return "already_used"
	}
	return "error"
}

func redemptionResult(err error) string {
	if err == nil {
		return "success"
	}
	return Outcome(err)
}
