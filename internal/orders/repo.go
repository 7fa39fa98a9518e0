package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
	"github.com/furnihub/marketplace-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order together with its sub-orders and lines.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("SubOrders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("SubOrders.Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByUser returns up to limit orders of the user, newest first, with
// their sub-orders but without lines.
func (r *repository) ListOrdersByUser(ctx context.Context, userID uint, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("SubOrders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("id < ?", cursor.ID)
	}
	var rows []models.Order
	if err := query.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) LockOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) SaveOrderTotals(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Select("subtotal", "coupon_discount", "total_price", "updated_at").
		Updates(order).Error
}

func (r *repository) ListSubOrders(ctx context.Context, orderID uint) ([]models.SubOrder, error) {
	var rows []models.SubOrder
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LockSubOrder loads the sub-order with SELECT ... FOR UPDATE.
func (r *repository) LockSubOrder(ctx context.Context, subOrderID uint) (*models.SubOrder, error) {
	var sub models.SubOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sub, "id = ?", subOrderID).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListItems(ctx context.Context, subOrderID uint) ([]models.OrderItem, error) {
	var rows []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("sub_order_id = ?", subOrderID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateItemTotal(ctx context.Context, itemID uint, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("total", total).Error
}

func (r *repository) SaveSubOrderTotals(ctx context.Context, sub *models.SubOrder) error {
	return r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("id = ?", sub.ID).
		Select("subtotal", "shipping_fee", "coupon_discount", "total_price", "updated_at").
		Updates(sub).Error
}

// UpdateSubOrderStatus moves the sub-order from one status to another. It
// reports false when the row was no longer in the expected status.
func (r *repository) UpdateSubOrderStatus(ctx context.Context, subOrderID uint, from, to enums.OrderStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": at}
	switch to {
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = at
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("id = ? AND status = ?", subOrderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindShop(ctx context.Context, shopID uint) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).First(&shop, "id = ?", shopID).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}
