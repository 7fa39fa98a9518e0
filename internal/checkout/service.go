package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/internal/cart"
	"github.com/furnihub/marketplace-backend/internal/checkout/helpers"
	"github.com/furnihub/marketplace-backend/internal/checkout/reservation"
	"github.com/furnihub/marketplace-backend/internal/coupons"
	"github.com/furnihub/marketplace-backend/internal/orders"
	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/internal/products"
	"github.com/furnihub/marketplace-backend/pkg/config"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
	"github.com/furnihub/marketplace-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service finalizes a cart into an order.
type Service interface {
	Execute(ctx context.Context, userID uint) (*orders.OrderDTO, error)
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Tx       txRunner
	Carts    cart.CartRepository
	Orders   orders.Repository
	Coupons  *coupons.Repository
	Products *products.Repository
	Pricing  config.PricingConfig
	Metrics  *metrics.PricingMetrics
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	carts    cart.CartRepository
	orders   orders.Repository
	coupons  *coupons.Repository
	products *products.Repository
	pricing  config.PricingConfig
	metrics  *metrics.PricingMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Coupons == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       deps.Tx,
		carts:    deps.Carts,
		orders:   deps.Orders,
		coupons:  deps.Coupons,
		products: deps.Products,
		pricing:  deps.Pricing,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		now:      time.Now,
	}, nil
}

// Execute turns the user's cart into an order with one sub-order per shop.
// Stock for every line and the attached coupon are checked before anything is
// written; any failure leaves cart, stock and coupon untouched.
func (s *service) Execute(ctx context.Context, userID uint) (*orders.OrderDTO, error) {
	var result *orders.OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)
		couponRepo := s.coupons.WithTx(tx)
		stock := s.products.WithTx(tx)

		record, err := cartRepo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		locked, err := cartRepo.LockByID(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}
		items, err := cartRepo.Items().List(ctx, locked.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}

		requests, err := reservationRequests(items)
		if err != nil {
			return err
		}
		if err := reservation.Check(ctx, stock, requests); err != nil {
			return err
		}

		groups, err := helpers.GroupCartItemsByShop(items)
		if err != nil {
			return err
		}

		now := s.now()
		var (
			coupon *models.Coupon
			eval   pricing.Evaluation
		)
		if locked.CouponID != nil {
			coupon, err = couponRepo.FindByID(ctx, *locked.CouponID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
			}
			verr := coupons.CheckEligibility(ctx, couponRepo, userID, *coupon)
			if verr == nil {
				eval, verr = pricing.EvaluateCoupon(pricing.CouponFromModel(*coupon), helpers.PricingLines(groups), now)
			}
			s.metrics.CouponEvaluated(coupons.Outcome(verr))
			if verr != nil {
				return verr
			}
		}

		order := s.buildOrder(userID, groups, coupon, eval)

		if err := reservation.Commit(ctx, stock, requests); err != nil {
			return err
		}
		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if coupon != nil {
			err := coupons.Redeem(ctx, couponRepo, userID, *coupon, &order.ID, now)
			if err != nil {
				s.metrics.CouponRedeemed(coupons.Outcome(err))
				return err
			}
			s.metrics.CouponRedeemed("success")
		}

		if err := cartRepo.Items().DeleteAll(ctx, locked.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		locked.CouponID = nil
		locked.Subtotal = decimal.Zero
		locked.ShippingFee = decimal.Zero
		locked.CouponDiscount = decimal.Zero
		locked.TotalPrice = decimal.Zero
		if err := cartRepo.SaveTotals(ctx, locked); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart")
		}

		created, err := ordersRepo.FindOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		result = orders.NewOrderDTO(created)
		return nil
	})
	s.metrics.CheckoutCompleted(checkoutOutcome(err))
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":     userID,
		"order_id":    result.ID,
		"sub_orders":  len(result.SubOrders),
		"total_price": result.TotalPrice.String(),
	}), "checkout.completed")
	return result, nil
}

// buildOrder prices the order from the grouped lines. A shop coupon reduces
// the matching sub-order; a platform coupon reduces the order.
func (s *service) buildOrder(userID uint, groups []helpers.ShopGroup, coupon *models.Coupon, eval pricing.Evaluation) *models.Order {
	order := &models.Order{
		UserID:    userID,
		Currency:  s.pricing.Currency,
		SubOrders: make([]models.SubOrder, 0, len(groups)),
	}

	var (
		couponShop uint
		shopScoped bool
		terms      models.CouponTerms
	)
	if coupon != nil {
		view := pricing.CouponFromModel(*coupon)
		couponShop, shopScoped = view.Scope.ShopID()
		terms = pricing.TermsOf(view)
	}
	subtotals := make([]decimal.Decimal, 0, len(groups))
	totals := make([]decimal.Decimal, 0, len(groups))
	for _, g := range groups {
		sub := models.SubOrder{
			ShopID:         g.ShopID,
			Status:         enums.OrderStatusPending,
			Subtotal:       g.Subtotal(),
			ShippingFee:    s.pricing.ShippingFeePerShop,
			CouponDiscount: decimal.Zero,
			Items:          make([]models.OrderItem, 0, len(g.Items)),
		}
		if shopScoped && couponShop == g.ShopID {
			sub.CouponID = &coupon.ID
			sub.CouponTerms = terms
			sub.CouponDiscount = eval.Discount
		}
		for i, item := range g.Items {
			sub.Items = append(sub.Items, models.OrderItem{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
				Price:     item.Price,
				Discount:  item.Discount,
				Total:     g.LineTotals[i],
			})
		}
		sub.TotalPrice = pricing.ContainerTotal(g.LineTotals, sub.ShippingFee, sub.CouponDiscount)
		subtotals = append(subtotals, sub.Subtotal)
		totals = append(totals, sub.TotalPrice)
		order.SubOrders = append(order.SubOrders, sub)
	}

	order.Subtotal = pricing.Sum(subtotals)
	order.CouponDiscount = decimal.Zero
	if coupon != nil && !shopScoped {
		order.CouponID = &coupon.ID
		order.CouponTerms = terms
		order.CouponDiscount = eval.Discount
	}
	order.TotalPrice = pricing.ContainerTotal(totals, decimal.Zero, order.CouponDiscount)
	return order
}

func reservationRequests(items []models.CartItem) ([]reservation.Request, error) {
	requests := make([]reservation.Request, 0, len(items))
	for _, item := range items {
		if item.VariantID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line has no variant").WithDetails(map[string]any{"line_id": item.ID})
		}
		requests = append(requests, reservation.Request{
			LineID:    item.ID,
			ProductID: item.ProductID,
			VariantID: *item.VariantID,
			Qty:       item.Quantity,
		})
	}
	return requests, nil
}

func checkoutOutcome(err error) string {
	if err == nil {
		return "success"
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	return strings.ToLower(string(typed.Code()))
}
