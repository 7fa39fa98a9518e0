package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/internal/products"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
	"github.com/furnihub/marketplace-backend/pkg/metrics"
	"github.com/furnihub/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order reads, sub-order status transitions, and total
// recomputation.
type Service interface {
	Get(ctx context.Context, userID, orderID uint) (*OrderDTO, error)
	List(ctx context.Context, userID uint, params pagination.Params) (*OrderPage, error)
	UpdateSubOrderStatus(ctx context.Context, actorID, subOrderID uint, next enums.OrderStatus) (*SubOrderDTO, error)
	RecomputeSubOrderTotal(ctx context.Context, actorID, subOrderID uint) (*SubOrderDTO, error)
}

type service struct {
	repo     Repository
	products *products.Repository
	tx       txRunner
	metrics  *metrics.PricingMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the orders service.
func NewService(repo Repository, productRepo *products.Repository, tx txRunner, m *metrics.PricingMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		products: productRepo,
		tx:       tx,
		metrics:  m,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Get returns the order when it belongs to userID. Orders of other users are
// reported as missing.
func (s *service) Get(ctx context.Context, userID, orderID uint) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return NewOrderDTO(order), nil
}

// OrderPage is one page of a user's order history. Cursor is empty on the
// last page.
type OrderPage struct {
	Items  []OrderDTO `json:"items"`
	Cursor string     `json:"cursor,omitempty"`
}

func (s *service) List(ctx context.Context, userID uint, params pagination.Params) (*OrderPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListOrdersByUser(ctx, userID, pagination.LimitWithBuffer(limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := &OrderPage{Items: make([]OrderDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		page.Cursor = pagination.EncodeCursor(pagination.Cursor{ID: rows[limit-1].ID})
	}
	for i := range rows {
		page.Items = append(page.Items, *NewOrderDTO(&rows[i]))
	}
	return page, nil
}

// UpdateSubOrderStatus moves a sub-order along the status machine. The shop
// owner may make any allowed transition; the buyer may only cancel.
// Cancelling returns the reserved stock and refreshes the order totals.
func (s *service) UpdateSubOrderStatus(ctx context.Context, actorID, subOrderID uint, next enums.OrderStatus) (*SubOrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").WithDetails(map[string]any{"status": string(next)})
	}

	var out *SubOrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := lockSubOrder(ctx, repo, subOrderID)
		if err != nil {
			return err
		}
		order, err := repo.LockOrder(ctx, sub.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if err := s.authorize(ctx, repo, actorID, order, sub, next); err != nil {
			return err
		}
		if !sub.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").WithDetails(map[string]any{
				"from": string(sub.Status),
				"to":   string(next),
			})
		}

		now := s.now()
		ok, err := repo.UpdateSubOrderStatus(ctx, sub.ID, sub.Status, next, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sub-order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "sub-order status changed concurrently")
		}
		from := sub.Status
		sub.Status = next
		switch next {
		case enums.OrderStatusCancelled:
			sub.CancelledAt = &now
		case enums.OrderStatusDelivered:
			sub.DeliveredAt = &now
		}

		items, err := repo.ListItems(ctx, sub.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-order lines")
		}
		if next == enums.OrderStatusCancelled {
			stock := s.products.WithTx(tx)
			for _, item := range items {
				if item.VariantID == nil {
					continue
				}
				if err := stock.RestoreStock(ctx, *item.VariantID, item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
				}
			}
			if err := s.rollupOrder(ctx, repo, order); err != nil {
				return err
			}
		}

		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"sub_order_id": sub.ID,
			"order_id":     sub.OrderID,
			"from":         string(from),
			"to":           string(next),
			"actor_id":     actorID,
		}), "sub_order.status_changed")
		out = newSubOrderDTO(sub, items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) authorize(ctx context.Context, repo Repository, actorID uint, order *models.Order, sub *models.SubOrder, next enums.OrderStatus) error {
	shop, err := repo.FindShop(ctx, sub.ShopID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	if shop.OwnerUserID == actorID {
		return nil
	}
	if order.UserID == actorID && next == enums.OrderStatusCancelled {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "sub-order status change not permitted")
}

// RecomputeSubOrderTotal re-reads every line of the sub-order under a row
// lock, rewrites its totals, and rolls the result up into the order. Only the
// owner of the sub-order's shop may trigger it.
func (s *service) RecomputeSubOrderTotal(ctx context.Context, actorID, subOrderID uint) (*SubOrderDTO, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveRecompute("sub_order", time.Since(started)) }()

	var out *SubOrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sub, err := lockSubOrder(ctx, repo, subOrderID)
		if err != nil {
			return err
		}
		order, err := repo.LockOrder(ctx, sub.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if err := s.authorizeRecompute(ctx, repo, actorID, order, sub); err != nil {
			return err
		}
		items, err := repo.ListItems(ctx, sub.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-order lines")
		}

		lineTotals := make([]decimal.Decimal, 0, len(items))
		for i := range items {
			total, err := pricing.ComputeLineTotal(items[i].Quantity, items[i].Price, items[i].Discount)
			if err != nil {
				return err
			}
			if !total.Equal(items[i].Total) {
				if err := repo.UpdateItemTotal(ctx, items[i].ID, total); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line total")
				}
				items[i].Total = total
			}
			lineTotals = append(lineTotals, total)
		}

		sub.Subtotal = pricing.Sum(lineTotals)
		// the coupon was redeemed at checkout; only its amount is refreshed
		sub.CouponDiscount, err = pricing.RedeemedAmount(sub.CouponTerms, sub.CouponDiscount, sub.Subtotal)
		if err != nil {
			return err
		}
		sub.TotalPrice = pricing.ContainerTotal(lineTotals, sub.ShippingFee, sub.CouponDiscount)
		sub.UpdatedAt = s.now()
		if err := repo.SaveSubOrderTotals(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sub-order totals")
		}
		if err := s.rollupOrder(ctx, repo, order); err != nil {
			return err
		}

		s.logg.Info(s.logg.WithSubOrderID(s.logg.WithField(ctx, "actor_id", actorID), sub.ID), "sub_order.recomputed")
		out = newSubOrderDTO(sub, items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// authorizeRecompute hides the sub-order from anyone outside the order and
// refuses the buyer, who may only cancel.
func (s *service) authorizeRecompute(ctx context.Context, repo Repository, actorID uint, order *models.Order, sub *models.SubOrder) error {
	shop, err := repo.FindShop(ctx, sub.ShopID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	switch actorID {
	case shop.OwnerUserID:
		return nil
	case order.UserID:
		return pkgerrors.New(pkgerrors.CodeForbidden, "sub-order recompute not permitted")
	default:
		return pkgerrors.New(pkgerrors.CodeNotFound, "sub-order not found")
	}
}

// rollupOrder sets the order totals from its live sub-orders. Cancelled
// sub-orders no longer count and the platform coupon is re-measured against
// the remaining subtotal.
func (s *service) rollupOrder(ctx context.Context, repo Repository, order *models.Order) error {
	subs, err := repo.ListSubOrders(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-orders")
	}
	subtotals := make([]decimal.Decimal, 0, len(subs))
	totals := make([]decimal.Decimal, 0, len(subs))
	for _, sub := range subs {
		if sub.Status == enums.OrderStatusCancelled {
			continue
		}
		subtotals = append(subtotals, sub.Subtotal)
		totals = append(totals, sub.TotalPrice)
	}
	order.Subtotal = pricing.Sum(subtotals)
	order.CouponDiscount, err = pricing.RedeemedAmount(order.CouponTerms, order.CouponDiscount, order.Subtotal)
	if err != nil {
		return err
	}
	order.TotalPrice = pricing.ContainerTotal(totals, decimal.Zero, order.CouponDiscount)
	order.UpdatedAt = s.now()
	if err := repo.SaveOrderTotals(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order totals")
	}
	return nil
}

func lockSubOrder(ctx context.Context, repo Repository, subOrderID uint) (*models.SubOrder, error) {
	sub, err := repo.LockSubOrder(ctx, subOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sub-order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock sub-order")
	}
	return sub, nil
}
