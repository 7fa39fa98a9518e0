package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the single mutable cart owned by a user. The stored totals are a
// snapshot written by the last recomputation.
type Cart struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement"`
	UserID         uint            `gorm:"column:user_id;not null;uniqueIndex"`
	CouponID       *uint           `gorm:"column:coupon_id"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	ShippingFee    decimal.Decimal `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0"`
	CouponDiscount decimal.Decimal `gorm:"column:coupon_discount;type:numeric(12,2);not null;default:0"`
	TotalPrice     decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	Coupon         *Coupon         `gorm:"foreignKey:CouponID;constraint:OnDelete:SET NULL"`
	Items          []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is a cart line. Price and Discount are snapshots taken when the
// line was added and are never re-derived from the live product.
type CartItem struct {
	ID        uint            `gorm:"column:id;primaryKey;autoIncrement"`
	CartID    uint            `gorm:"column:cart_id;not null;index"`
	ProductID uint            `gorm:"column:product_id;not null"`
	VariantID *uint           `gorm:"column:variant_id"`
	ShopID    uint            `gorm:"column:shop_id;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Discount  decimal.Decimal `gorm:"column:discount;type:numeric(5,2);not null;default:0"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
