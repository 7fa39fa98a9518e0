package orders

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/internal/products"
	"github.com/furnihub/marketplace-backend/pkg/db"
	"github.com/furnihub/marketplace-backend/pkg/db/dbtest"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
	"github.com/furnihub/marketplace-backend/pkg/metrics"
	"github.com/furnihub/marketplace-backend/pkg/pagination"
)

const (
	buyerID     uint = 700
	ownerA      uint = 1
	ownerB      uint = 2
	strangerID  uint = 999
	shippingFee      = 30000
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(
		NewRepository(conn),
		products.NewRepository(conn),
		db.NewFromGorm(conn),
		metrics.NewPricingMetrics(nil),
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	)
	require.NoError(t, err)
	return svc, conn
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(amount(want)), "%s: expected %d, got %s", field, want, got)
}

type fixture struct {
	order    *models.Order
	variantA models.ProductVariant
	variantB models.ProductVariant
}

// seedOrder stores an order as checkout would have produced it: shop A sells
// 2 x 100000 at 10% off, shop B sells 1 x 50000. A platform coupon, when
// given, is applied to the order as a whole.
func seedOrder(t *testing.T, conn *gorm.DB, platform *models.Coupon) fixture {
	t.Helper()
	shopA := dbtest.MustCreateShop(t, conn, ownerA)
	shopB := dbtest.MustCreateShop(t, conn, ownerB)
	pa, va := dbtest.MustCreateProduct(t, conn, shopA.ID, "10", 5, "100000")
	pb, vb := dbtest.MustCreateProduct(t, conn, shopB.ID, "0", 5, "50000")

	subA := models.SubOrder{
		ShopID:      shopA.ID,
		Status:      enums.OrderStatusPending,
		Subtotal:    amount(180000),
		ShippingFee: amount(shippingFee),
		TotalPrice:  amount(210000),
		Items: []models.OrderItem{{
			ProductID: pa.ID, VariantID: &va[0].ID, Quantity: 2,
			Price: amount(100000), Discount: amount(10), Total: amount(180000),
		}},
	}
	subB := models.SubOrder{
		ShopID:      shopB.ID,
		Status:      enums.OrderStatusPending,
		Subtotal:    amount(50000),
		ShippingFee: amount(shippingFee),
		TotalPrice:  amount(80000),
		Items: []models.OrderItem{{
			ProductID: pb.ID, VariantID: &vb[0].ID, Quantity: 1,
			Price: amount(50000), Discount: decimal.Zero, Total: amount(50000),
		}},
	}
	order := &models.Order{
		UserID:     buyerID,
		Currency:   "VND",
		Subtotal:   amount(230000),
		TotalPrice: amount(290000),
		SubOrders:  []models.SubOrder{subA, subB},
	}
	if platform != nil {
		order.CouponID = &platform.ID
		order.CouponTerms = pricing.TermsOf(pricing.CouponFromModel(*platform))
		order.CouponDiscount = amount(23000)
		order.TotalPrice = amount(267000)
	}
	require.NoError(t, NewRepository(conn).CreateOrder(context.Background(), order))
	return fixture{order: order, variantA: va[0], variantB: vb[0]}
}

func TestGetReturnsOwnOrderOnly(t *testing.T) {
	svc, conn := newTestService(t)
	fx := seedOrder(t, conn, nil)
	ctx := context.Background()

	got, err := svc.Get(ctx, buyerID, fx.order.ID)
	require.NoError(t, err)
	require.Len(t, got.SubOrders, 2)
	assert.Len(t, got.SubOrders[0].Items, 1)
	assertAmount(t, 290000, got.TotalPrice, "order total")

	_, err = svc.Get(ctx, strangerID, fx.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, buyerID, fx.order.ID+100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPagesNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	first := seedOrder(t, conn, nil)
	second := seedOrder(t, conn, nil)
	third := seedOrder(t, conn, nil)
	ctx := context.Background()

	page, err := svc.List(ctx, buyerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, third.order.ID, page.Items[0].ID)
	assert.Equal(t, second.order.ID, page.Items[1].ID)
	assert.Len(t, page.Items[0].SubOrders, 2)
	require.NotEmpty(t, page.Cursor)

	page, err = svc.List(ctx, buyerID, pagination.Params{Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.order.ID, page.Items[0].ID)
	assert.Empty(t, page.Cursor)

	page, err = svc.List(ctx, strangerID, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = svc.List(ctx, buyerID, pagination.Params{Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestShopOwnerWalksStatusMachine(t *testing.T) {
	svc, conn := newTestService(t)
	fx := seedOrder(t, conn, nil)
	ctx := context.Background()
	subID := fx.order.SubOrders[0].ID

	for _, next := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	} {
		sub, err := svc.UpdateSubOrderStatus(ctx, ownerA, subID, next)
		require.NoError(t, err)
		assert.Equal(t, next, sub.Status)
	}

	var stored models.SubOrder
	require.NoError(t, conn.First(&stored, subID).Error)
	assert.Equal(t, enums.OrderStatusDelivered, stored.Status)
	assert.NotNil(t, stored.DeliveredAt)

	_, err := svc.UpdateSubOrderStatus(ctx, ownerA, subID, enums.OrderStatusCancelled)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestStatusSkipIsRejected(t *testing.T) {
	svc, conn := newTestService(t)
	fx := seedOrder(t, conn, nil)

	_, err := svc.UpdateSubOrderStatus(context.Background(), ownerA, fx.order.SubOrders[0].ID, enums.OrderStatusDelivered)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.UpdateSubOrderStatus(context.Background(), ownerA, fx.order.SubOrders[0].ID, enums.OrderStatus("lost"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStatusChangePermissions(t *testing.T) {
	svc, conn := newTestService(t)
	fx := seedOrder(t, conn, nil)
	ctx := context.Background()
	subA := fx.order.SubOrders[0].ID

	_, err := svc.UpdateSubOrderStatus(ctx, buyerID, subA, enums.OrderStatusProcessing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdateSubOrderStatus(ctx, ownerB, subA, enums.OrderStatusProcessing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdateSubOrderStatus(ctx, strangerID, subA, enums.OrderStatusCancelled)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdateSubOrderStatus(ctx, ownerA, subA+100, enums.OrderStatusProcessing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestBuyerCancelRestoresStockAndRollsUpOrder(t *testing.T) {
	svc, conn := newTestService(t)
	fx := seedOrder(t, conn, nil)
	ctx := context.Background()

	sub, err := svc.UpdateSubOrderStatus(ctx, buyerID, fx.order.SubOrders[1].ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, sub.Status)
	assert.NotNil(t, sub.CancelledAt)

	var variant models.ProductVariant
	require.NoError(t, conn.First(&variant, fx.variantB.ID).Error)
	assert.Equal(t, 6, variant.Stock)

	got, err := svc.Get(ctx, buyerID, fx.order.ID)
	require.NoError(t, err)
	assertAmount(t, 180000, got.Subtotal, "order subtotal")
	assertAmount(t, 210000, got.TotalPrice, "order total")
}

func TestCancelRemeasuresPlatformCoupon(t *testing.T) {
	svc, conn := newTestService(t)
	coupon := dbtest.MustCreateCoupon(t, conn, "SITE10", "10")
	fx := seedOrder(t, conn, coupon)
	ctx := context.Background()

	_, err := svc.UpdateSubOrderStatus(ctx, ownerB, fx.order.SubOrders[1].ID, enums.OrderStatusCancelled)
	require.NoError(t, err)

	got, err := svc.Get(ctx, buyerID, fx.order.ID)
	require.NoError(t, err)
	assertAmount(t, 180000, got.Subtotal, "order subtotal")
	assertAmount(t, 18000, got.CouponDiscount, "platform discount")
	assertAmount(t, 192000, got.TotalPrice, "order total")
}

func TestRecomputeSubOrderTotalRepairsDrift(t *testing.T) {
	svc, conn := newTestService(t)
	fx := seedOrder(t, conn, nil)
	ctx := context.Background()
	sub := fx.order.SubOrders[0]

	require.NoError(t, conn.Model(&models.OrderItem{}).Where("id = ?", sub.Items[0].ID).Update("total", amount(1)).Error)
	require.NoError(t, conn.Model(&models.SubOrder{}).Where("id = ?", sub.ID).Update("total_price", amount(1)).Error)

	got, err := svc.RecomputeSubOrderTotal(ctx, ownerA, sub.ID)
	require.NoError(t, err)
	assertAmount(t, 180000, got.Items[0].Total, "line total")
	assertAmount(t, 180000, got.Subtotal, "subtotal")
	assertAmount(t, 210000, got.TotalPrice, "sub-order total")

	var item models.OrderItem
	require.NoError(t, conn.First(&item, sub.Items[0].ID).Error)
	assertAmount(t, 180000, item.Total, "stored line total")

	order, err := svc.Get(ctx, buyerID, fx.order.ID)
	require.NoError(t, err)
	assertAmount(t, 290000, order.TotalPrice, "order total")
}

func TestRecomputeSubOrderAppliesShopCouponCap(t *testing.T) {
	svc, conn := newTestService(t)
	fx := seedOrder(t, conn, nil)
	sub := fx.order.SubOrders[0]
	coupon := dbtest.MustCreateCoupon(t, conn, "SHOPA20", "20", dbtest.WithShop(sub.ShopID), dbtest.WithMaxDiscount("25000"))
	terms := pricing.TermsOf(pricing.CouponFromModel(*coupon))
	require.NoError(t, conn.Model(&models.SubOrder{}).Where("id = ?", sub.ID).Updates(map[string]any{
		"coupon_id":           coupon.ID,
		"coupon_type":         *terms.Type,
		"coupon_value":        *terms.Value,
		"coupon_max_discount": *terms.MaxDiscount,
	}).Error)

	got, err := svc.RecomputeSubOrderTotal(context.Background(), ownerA, sub.ID)
	require.NoError(t, err)
	assertAmount(t, 25000, got.CouponDiscount, "capped discount")
	assertAmount(t, 185000, got.TotalPrice, "sub-order total")

	order, err := svc.Get(context.Background(), buyerID, fx.order.ID)
	require.NoError(t, err)
	assertAmount(t, 265000, order.TotalPrice, "order total")
}

func TestRecomputeSubOrderMissing(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RecomputeSubOrderTotal(context.Background(), ownerA, 42)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRecomputeSubOrderIsRestrictedToShopOwner(t *testing.T) {
	svc, conn := newTestService(t)
	fx := seedOrder(t, conn, nil)
	ctx := context.Background()
	subA := fx.order.SubOrders[0].ID

	_, err := svc.RecomputeSubOrderTotal(ctx, strangerID, subA)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.RecomputeSubOrderTotal(ctx, ownerB, subA)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.RecomputeSubOrderTotal(ctx, buyerID, subA)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, conn.Model(&models.SubOrder{}).Where("id = ?", subA).Update("total_price", amount(1)).Error)
	_, err = svc.RecomputeSubOrderTotal(ctx, strangerID, subA)
	require.Error(t, err)
	var stored models.SubOrder
	require.NoError(t, conn.First(&stored, subA).Error)
	assertAmount(t, 1, stored.TotalPrice, "untouched total")
}

func TestRecomputeIgnoresCouponEditsAfterCheckout(t *testing.T) {
	svc, conn := newTestService(t)
	coupon := dbtest.MustCreateCoupon(t, conn, "SITE10", "10")
	fx := seedOrder(t, conn, coupon)
	ctx := context.Background()

	require.NoError(t, conn.Model(&models.Coupon{}).Where("id = ?", coupon.ID).Updates(map[string]any{
		"value":               amount(50),
		"max_discount_amount": amount(5),
	}).Error)

	_, err := svc.RecomputeSubOrderTotal(ctx, ownerA, fx.order.SubOrders[0].ID)
	require.NoError(t, err)

	got, err := svc.Get(ctx, buyerID, fx.order.ID)
	require.NoError(t, err)
	assertAmount(t, 23000, got.CouponDiscount, "platform discount")
	assertAmount(t, 267000, got.TotalPrice, "order total")
}
