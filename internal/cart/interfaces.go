package cart

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uint) (*models.Cart, error)
	GetOrCreate(ctx context.Context, userID uint) (*models.Cart, error)
	LockByID(ctx context.Context, id uint) (*models.Cart, error)
	SaveTotals(ctx context.Context, cart *models.Cart) error
	SetCoupon(ctx context.Context, cartID uint, couponID *uint) error
	Items() CartItemRepository
}

// CartItemRepository manages cart lines.
type CartItemRepository interface {
	List(ctx context.Context, cartID uint) ([]models.CartItem, error)
	Find(ctx context.Context, cartID, itemID uint) (*models.CartItem, error)
	FindMatching(ctx context.Context, cartID, productID uint, variantID *uint) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	Save(ctx context.Context, item *models.CartItem) error
	UpdateTotal(ctx context.Context, itemID uint, total decimal.Decimal) error
	Delete(ctx context.Context, cartID, itemID uint) error
	DeleteAll(ctx context.Context, cartID uint) error
}
