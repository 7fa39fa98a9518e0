package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
)

// OrderDTO is the buyer-facing view of an order and its sub-orders.
type OrderDTO struct {
	ID             uint            `json:"id"`
	UserID         uint            `json:"user_id"`
	CouponID       *uint           `json:"coupon_id,omitempty"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	SubOrders      []SubOrderDTO   `json:"sub_orders"`
	CreatedAt      time.Time       `json:"created_at"`
}

type SubOrderDTO struct {
	ID             uint              `json:"id"`
	OrderID        uint              `json:"order_id"`
	ShopID         uint              `json:"shop_id"`
	CouponID       *uint             `json:"coupon_id,omitempty"`
	Status         enums.OrderStatus `json:"status"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	ShippingFee    decimal.Decimal   `json:"shipping_fee"`
	CouponDiscount decimal.Decimal   `json:"coupon_discount"`
	TotalPrice     decimal.Decimal   `json:"total_price"`
	Items          []OrderItemDTO    `json:"items"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
	DeliveredAt    *time.Time        `json:"delivered_at,omitempty"`
}

type OrderItemDTO struct {
	ID        uint            `json:"id"`
	ProductID uint            `json:"product_id"`
	VariantID *uint           `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

// NewOrderDTO maps a persisted order, with its sub-orders and items loaded.
func NewOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:             order.ID,
		UserID:         order.UserID,
		CouponID:       order.CouponID,
		Currency:       order.Currency,
		Subtotal:       order.Subtotal,
		CouponDiscount: order.CouponDiscount,
		TotalPrice:     order.TotalPrice,
		SubOrders:      make([]SubOrderDTO, 0, len(order.SubOrders)),
		CreatedAt:      order.CreatedAt,
	}
	for i := range order.SubOrders {
		dto.SubOrders = append(dto.SubOrders, *newSubOrderDTO(&order.SubOrders[i], order.SubOrders[i].Items))
	}
	return dto
}

func newSubOrderDTO(sub *models.SubOrder, items []models.OrderItem) *SubOrderDTO {
	dto := &SubOrderDTO{
		ID:             sub.ID,
		OrderID:        sub.OrderID,
		ShopID:         sub.ShopID,
		CouponID:       sub.CouponID,
		Status:         sub.Status,
		Subtotal:       sub.Subtotal,
		ShippingFee:    sub.ShippingFee,
		CouponDiscount: sub.CouponDiscount,
		TotalPrice:     sub.TotalPrice,
		Items:          make([]OrderItemDTO, 0, len(items)),
		CancelledAt:    sub.CancelledAt,
		DeliveredAt:    sub.DeliveredAt,
	}
	for _, item := range items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Discount:  item.Discount,
			Total:     item.Total,
		})
	}
	return dto
}
