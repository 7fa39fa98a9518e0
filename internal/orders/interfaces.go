package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
	"github.com/furnihub/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and sub-orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, orderID uint) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uint, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	LockOrder(ctx context.Context, orderID uint) (*models.Order, error)
	SaveOrderTotals(ctx context.Context, order *models.Order) error
	ListSubOrders(ctx context.Context, orderID uint) ([]models.SubOrder, error)
	LockSubOrder(ctx context.Context, subOrderID uint) (*models.SubOrder, error)
	ListItems(ctx context.Context, subOrderID uint) ([]models.OrderItem, error)
	UpdateItemTotal(ctx context.Context, itemID uint, total decimal.Decimal) error
	SaveSubOrderTotals(ctx context.Context, sub *models.SubOrder) error
	UpdateSubOrderStatus(ctx context.Context, subOrderID uint, from, to enums.OrderStatus, at time.Time) (bool, error)
	FindShop(ctx context.Context, shopID uint) (*models.Shop, error)
}
