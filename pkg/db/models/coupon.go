package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/pkg/enums"
)

// Coupon is a platform-wide coupon when ShopID is nil, otherwise it is scoped
// to that shop's lines.
type Coupon struct {
	ID                uint               `gorm:"column:id;primaryKey;autoIncrement"`
	Code              string             `gorm:"column:code;not null;uniqueIndex"`
	Type              enums.CouponType   `gorm:"column:type;type:varchar(16);not null"`
	Value             decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MinOrderValue     decimal.Decimal    `gorm:"column:min_order_value;type:numeric(12,2);not null;default:0"`
	MaxDiscountAmount *decimal.Decimal   `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	StartDate         time.Time          `gorm:"column:start_date;not null"`
	EndDate           time.Time          `gorm:"column:end_date;not null"`
	Status            enums.CouponStatus `gorm:"column:status;type:varchar(16);not null;default:'active'"`
	ShopID            *uint              `gorm:"column:shop_id;index"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// UserCoupon records that a user collected a coupon. A non-nil UsedAt means the
// coupon has been redeemed and can never be used again by that user.
type UserCoupon struct {
	ID        uint       `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    uint       `gorm:"column:user_id;not null;uniqueIndex:ux_user_coupons_user_coupon"`
	CouponID  uint       `gorm:"column:coupon_id;not null;uniqueIndex:ux_user_coupons_user_coupon"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	OrderID   *uint      `gorm:"column:order_id"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
