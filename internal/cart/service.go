package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/internal/coupons"
	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/pkg/config"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
	"github.com/furnihub/marketplace-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type priceResolver interface {
	ResolveForCart(ctx context.Context, productID uint, variantID *uint) (*pricing.Resolution, error)
}

// Service exposes cart operations. Every mutation ends with a full
// recomputation of the cart total inside the same transaction.
type Service interface {
	Get(ctx context.Context, userID uint) (*CartDTO, error)
	AddItem(ctx context.Context, userID uint, input AddItemInput) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uint) (*CartDTO, error)
	ApplyCoupon(ctx context.Context, userID uint, code string) (*CartDTO, error)
	RemoveCoupon(ctx context.Context, userID uint) (*CartDTO, error)
	RecomputeTotal(ctx context.Context, cartID uint) (*CartDTO, error)
}

// txScope holds the repositories bound to one transaction.
type txScope struct {
	carts   CartRepository
	coupons *coupons.Repository
}

func (s *service) scope(tx *gorm.DB) txScope {
	return txScope{carts: s.repo.WithTx(tx), coupons: s.coupons.WithTx(tx)}
}

// AddItemInput is a request to put quantity units of a product into the cart.
type AddItemInput struct {
	ProductID uint
	VariantID *uint
	Quantity  int
}

type service struct {
	repo    CartRepository
	coupons *coupons.Repository
	prices  priceResolver
	tx      txRunner
	pricing config.PricingConfig
	metrics *metrics.PricingMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, couponRepo *coupons.Repository, prices priceResolver, tx txRunner, cfg config.PricingConfig, m *metrics.PricingMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if prices == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		coupons: couponRepo,
		prices:  prices,
		tx:      tx,
		pricing: cfg,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Get recomputes the cart before returning it, so a coupon that lapsed since
// the last change is detached rather than shown with its old discount.
func (s *service) Get(ctx context.Context, userID uint) (*CartDTO, error) {
	out, err := s.mutate(ctx, userID, func(txScope, *models.Cart) error { return nil })
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return s.emptyCart(userID), nil
		}
		return nil, err
	}
	return out, nil
}

func (s *service) AddItem(ctx context.Context, userID uint, input AddItemInput) (*CartDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	res, err := s.prices.ResolveForCart(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}
	variantID := res.VariantID

	var out *CartDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sc := s.scope(tx)
		repo := sc.carts
		cart, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if _, err := repo.LockByID(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}

		items := repo.Items()
		existing, err := items.FindMatching(ctx, cart.ID, res.ProductID, &variantID)
		switch {
		case err == nil:
			// re-adding refreshes the snapshot to the current price
			existing.Quantity += input.Quantity
			existing.Price = res.UnitPrice
			existing.Discount = res.Discount
			if existing.Total, err = pricing.ComputeLineTotal(existing.Quantity, existing.Price, existing.Discount); err != nil {
				return err
			}
			if err := items.Save(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			total, err := pricing.ComputeLineTotal(input.Quantity, res.UnitPrice, res.Discount)
			if err != nil {
				return err
			}
			line := &models.CartItem{
				CartID:    cart.ID,
				ProductID: res.ProductID,
				VariantID: &variantID,
				ShopID:    res.ShopID,
				Quantity:  input.Quantity,
				Price:     res.UnitPrice,
				Discount:  res.Discount,
				Total:     total,
			}
			if err := items.Create(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		out, err = s.recompute(ctx, sc, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*CartDTO, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, userID, func(sc txScope, cart *models.Cart) error {
		items := sc.carts.Items()
		item, err := items.Find(ctx, cart.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
		item.Quantity = quantity
		if item.Total, err = pricing.ComputeLineTotal(item.Quantity, item.Price, item.Discount); err != nil {
			return err
		}
		if err := items.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uint) (*CartDTO, error) {
	return s.mutate(ctx, userID, func(sc txScope, cart *models.Cart) error {
		if err := sc.carts.Items().Delete(ctx, cart.ID, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
		return nil
	})
}

// ApplyCoupon attaches a coupon after checking it strictly against the current
// lines. A coupon that does not apply is reported and not attached.
func (s *service) ApplyCoupon(ctx context.Context, userID uint, code string) (*CartDTO, error) {
	return s.mutate(ctx, userID, func(sc txScope, cart *models.Cart) error {
		coupon, err := coupons.LoadByCode(ctx, sc.coupons, code)
		if err != nil {
			return err
		}
		lines, err := sc.carts.Items().List(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
		}
		err = s.evaluateCoupon(ctx, sc.coupons, userID, *coupon, lines)
		s.metrics.CouponEvaluated(coupons.Outcome(err))
		if err != nil {
			return err
		}
		if err := sc.carts.SetCoupon(ctx, cart.ID, &coupon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach coupon")
		}
		return nil
	})
}

func (s *service) RemoveCoupon(ctx context.Context, userID uint) (*CartDTO, error) {
	return s.mutate(ctx, userID, func(sc txScope, cart *models.Cart) error {
		if err := sc.carts.SetCoupon(ctx, cart.ID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach coupon")
		}
		return nil
	})
}

// RecomputeTotal re-reads every line of the cart under a row lock and rewrites
// the stored totals.
func (s *service) RecomputeTotal(ctx context.Context, cartID uint) (*CartDTO, error) {
	ctx = s.logg.WithCartID(ctx, cartID)
	var out *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.recompute(ctx, s.scope(tx), cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) mutate(ctx context.Context, userID uint, fn func(sc txScope, cart *models.Cart) error) (*CartDTO, error) {
	var out *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sc := s.scope(tx)
		repo := sc.carts
		cart, err := repo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		ctx := s.logg.WithCartID(ctx, cart.ID)
		locked, err := repo.LockByID(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}
		if err := fn(sc, locked); err != nil {
			return err
		}
		out, err = s.recompute(ctx, sc, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) recompute(ctx context.Context, sc txScope, cartID uint) (*CartDTO, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveRecompute("cart", time.Since(started)) }()

	repo := sc.carts
	cart, err := repo.LockByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	items := repo.Items()
	rows, err := items.List(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}

	lineTotals := make([]decimal.Decimal, 0, len(rows))
	shops := map[uint]struct{}{}
	for i := range rows {
		total, err := pricing.ComputeLineTotal(rows[i].Quantity, rows[i].Price, rows[i].Discount)
		if err != nil {
			return nil, err
		}
		if !total.Equal(rows[i].Total) {
			if err := items.UpdateTotal(ctx, rows[i].ID, total); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line total")
			}
			rows[i].Total = total
		}
		lineTotals = append(lineTotals, total)
		shops[rows[i].ShopID] = struct{}{}
	}

	cart.Subtotal = pricing.Sum(lineTotals)
	cart.ShippingFee = s.pricing.ShippingFeePerShop.Mul(decimal.NewFromInt(int64(len(shops))))
	cart.CouponDiscount = decimal.Zero

	var (
		couponCode *string
		notice     *CouponNotice
	)
	if cart.CouponID != nil {
		discount, code, detached, err := s.reapplyCoupon(ctx, sc.coupons, cart, rows)
		if err != nil {
			return nil, err
		}
		if detached != nil {
			cart.CouponID = nil
			notice = detached
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"coupon_code": detached.CouponCode,
				"reason":      string(detached.Reason),
			}), "cart.coupon_detached")
		} else {
			cart.CouponDiscount = discount
			couponCode = code
		}
	}

	cart.TotalPrice = pricing.ContainerTotal(lineTotals, cart.ShippingFee, cart.CouponDiscount)
	if err := repo.SaveTotals(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart totals")
	}

	dto := newCartDTO(cart, rows, couponCode, s.pricing.Currency)
	dto.CouponNotice = notice
	return dto, nil
}

// reapplyCoupon evaluates the attached coupon against the fresh lines. A
// coupon that no longer applies is reported through the notice instead of
// failing the mutation that triggered the recomputation.
func (s *service) reapplyCoupon(ctx context.Context, couponRepo *coupons.Repository, cart *models.Cart, rows []models.CartItem) (decimal.Decimal, *string, *CouponNotice, error) {
	coupon, err := couponRepo.FindByID(ctx, *cart.CouponID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil, &CouponNotice{Reason: pricing.ConditionInactive}, nil
		}
		return decimal.Zero, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart coupon")
	}

	verr := coupons.CheckEligibility(ctx, couponRepo, cart.UserID, *coupon)
	var eval pricing.Evaluation
	if verr == nil {
		eval, verr = pricing.EvaluateCoupon(pricing.CouponFromModel(*coupon), linesOf(rows), s.now())
	}
	s.metrics.CouponEvaluated(coupons.Outcome(verr))
	if verr != nil {
		if cond, ok := pricing.ConditionOf(verr); ok {
			return decimal.Zero, nil, &CouponNotice{CouponCode: coupon.Code, Reason: cond}, nil
		}
		if pkgerrors.IsCode(verr, pkgerrors.CodeCouponAlreadyUsed) {
			return decimal.Zero, nil, &CouponNotice{CouponCode: coupon.Code, Reason: ReasonAlreadyUsed}, nil
		}
		return decimal.Zero, nil, nil, verr
	}
	return eval.Discount, &coupon.Code, nil, nil
}

func (s *service) evaluateCoupon(ctx context.Context, couponRepo *coupons.Repository, userID uint, coupon models.Coupon, rows []models.CartItem) error {
	if err := coupons.CheckEligibility(ctx, couponRepo, userID, coupon); err != nil {
		return err
	}
	_, err := pricing.EvaluateCoupon(pricing.CouponFromModel(coupon), linesOf(rows), s.now())
	return err
}

func (s *service) emptyCart(userID uint) *CartDTO {
	return &CartDTO{
		UserID:         userID,
		Currency:       s.pricing.Currency,
		Subtotal:       decimal.Zero,
		ShippingFee:    decimal.Zero,
		CouponDiscount: decimal.Zero,
		TotalPrice:     decimal.Zero,
		Items:          []CartItemDTO{},
	}
}

// ReasonAlreadyUsed is reported when the attached coupon was redeemed
// elsewhere since it was applied.
const ReasonAlreadyUsed pricing.Condition = "already_used"

func linesOf(rows []models.CartItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, pricing.Line{ShopID: r.ShopID, Total: r.Total})
	}
	return lines
}
