// Package dbtest opens isolated in-memory sqlite databases for repository and
// service tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
)

// Open returns a migrated in-memory database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:furnihub_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// MustCreateShop inserts a shop owned by ownerID.
func MustCreateShop(t *testing.T, db *gorm.DB, ownerID uint) *models.Shop {
	t.Helper()
	shop := &models.Shop{OwnerUserID: ownerID, Name: "Oak & Iron", Slug: "shop-" + uuid.NewString()}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("create shop: %v", err)
	}
	return shop
}

// MustCreateProduct inserts an active product with the given discount and one
// variant per price, each stocked with stock units.
func MustCreateProduct(t *testing.T, db *gorm.DB, shopID uint, discount string, stock int, prices ...string) (*models.Product, []models.ProductVariant) {
	t.Helper()
	product := &models.Product{
		ShopID:   shopID,
		Name:     "Walnut sideboard",
		Discount: decimal.RequireFromString(discount),
		Status:   enums.ProductStatusActive,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	variants := make([]models.ProductVariant, 0, len(prices))
	for _, p := range prices {
		v := models.ProductVariant{
			ProductID: product.ID,
			Price:     decimal.RequireFromString(p),
			Stock:     stock,
		}
		if err := db.Create(&v).Error; err != nil {
			t.Fatalf("create variant: %v", err)
		}
		variants = append(variants, v)
	}
	return product, variants
}

// CouponOption adjusts a coupon before it is inserted.
type CouponOption func(*models.Coupon)

func WithMinOrderValue(v string) CouponOption {
	return func(c *models.Coupon) { c.MinOrderValue = decimal.RequireFromString(v) }
}

func WithMaxDiscount(v string) CouponOption {
	return func(c *models.Coupon) {
		d := decimal.RequireFromString(v)
		c.MaxDiscountAmount = &d
	}
}

func WithShop(shopID uint) CouponOption {
	return func(c *models.Coupon) { c.ShopID = &shopID }
}

func WithFixed(amount string) CouponOption {
	return func(c *models.Coupon) {
		c.Type = enums.CouponTypeFixed
		c.Value = decimal.RequireFromString(amount)
	}
}

func WithWindow(start, end time.Time) CouponOption {
	return func(c *models.Coupon) {
		c.StartDate = start
		c.EndDate = end
	}
}

// MustCreateCoupon inserts an active percentage coupon valid for a day either
// side of now.
func MustCreateCoupon(t *testing.T, db *gorm.DB, code, percent string, opts ...CouponOption) *models.Coupon {
	t.Helper()
	now := time.Now().UTC()
	coupon := &models.Coupon{
		Code:          code,
		Type:          enums.CouponTypePercentage,
		Value:         decimal.RequireFromString(percent),
		MinOrderValue: decimal.Zero,
		StartDate:     now.Add(-24 * time.Hour),
		EndDate:       now.Add(24 * time.Hour),
		Status:        enums.CouponStatusActive,
	}
	for _, opt := range opts {
		opt(coupon)
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	return coupon
}
