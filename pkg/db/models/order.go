package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/pkg/enums"
)

// Order groups the per-shop sub-orders produced by one checkout. A
// platform-wide coupon is applied here; shop coupons live on the sub-order.
type Order struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement"`
	UserID         uint            `gorm:"column:user_id;not null;index"`
	CouponID       *uint           `gorm:"column:coupon_id"`
	CouponTerms    CouponTerms     `gorm:"embedded"`
	Currency       string          `gorm:"column:currency;type:varchar(3);not null"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	CouponDiscount decimal.Decimal `gorm:"column:coupon_discount;type:numeric(12,2);not null;default:0"`
	TotalPrice     decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	SubOrders      []SubOrder      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// CouponTerms are the pricing terms of the coupon as they stood at checkout.
// Recomputing a placed order reads these instead of the live coupon row.
type CouponTerms struct {
	Type        *enums.CouponType `gorm:"column:coupon_type;type:varchar(16)"`
	Value       *decimal.Decimal  `gorm:"column:coupon_value;type:numeric(12,2)"`
	MaxDiscount *decimal.Decimal  `gorm:"column:coupon_max_discount;type:numeric(12,2)"`
}

// SubOrder is the slice of an order fulfilled by a single shop.
type SubOrder struct {
	ID             uint              `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID        uint              `gorm:"column:order_id;not null;index"`
	ShopID         uint              `gorm:"column:shop_id;not null;index"`
	CouponID       *uint             `gorm:"column:coupon_id"`
	CouponTerms    CouponTerms       `gorm:"embedded"`
	Status         enums.OrderStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	Subtotal       decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	ShippingFee    decimal.Decimal   `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0"`
	CouponDiscount decimal.Decimal   `gorm:"column:coupon_discount;type:numeric(12,2);not null;default:0"`
	TotalPrice     decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null;default:0"`
	Items          []OrderItem       `gorm:"foreignKey:SubOrderID;constraint:OnDelete:CASCADE"`
	CancelledAt    *time.Time        `gorm:"column:cancelled_at"`
	DeliveredAt    *time.Time        `gorm:"column:delivered_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a sub-order line converted from a cart line at checkout.
type OrderItem struct {
	ID         uint            `gorm:"column:id;primaryKey;autoIncrement"`
	SubOrderID uint            `gorm:"column:sub_order_id;not null;index"`
	ProductID  uint            `gorm:"column:product_id;not null"`
	VariantID  *uint           `gorm:"column:variant_id"`
	Quantity   int             `gorm:"column:quantity;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Discount   decimal.Decimal `gorm:"column:discount;type:numeric(5,2);not null;default:0"`
	Total      decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
