package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
)

// CartDTO is the cart summary returned to clients.
type CartDTO struct {
	ID             uint            `json:"id"`
	UserID         uint            `json:"user_id"`
	Currency       string          `json:"currency"`
	CouponCode     *string         `json:"coupon_code,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Items          []CartItemDTO   `json:"items"`
	CouponNotice   *CouponNotice   `json:"coupon_notice,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type CartItemDTO struct {
	ID        uint            `json:"id"`
	ProductID uint            `json:"product_id"`
	VariantID *uint           `json:"variant_id,omitempty"`
	ShopID    uint            `json:"shop_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

// CouponNotice explains why a previously attached coupon was detached.
type CouponNotice struct {
	CouponCode string            `json:"coupon_code"`
	Reason     pricing.Condition `json:"reason"`
}

func newCartDTO(cart *models.Cart, items []models.CartItem, couponCode *string, currency string) *CartDTO {
	dto := &CartDTO{
		ID:             cart.ID,
		UserID:         cart.UserID,
		Currency:       currency,
		CouponCode:     couponCode,
		Subtotal:       cart.Subtotal,
		ShippingFee:    cart.ShippingFee,
		CouponDiscount: cart.CouponDiscount,
		TotalPrice:     cart.TotalPrice,
		Items:          make([]CartItemDTO, 0, len(items)),
		UpdatedAt:      cart.UpdatedAt,
	}
	for _, item := range items {
		dto.Items = append(dto.Items, CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			ShopID:    item.ShopID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Discount:  item.Discount,
			Total:     item.Total,
		})
	}
	return dto
}
