package cart

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
)

// ItemRepository persists cart lines.
type ItemRepository struct {
	db *gorm.DB
}

// NewCartItemRepository binds the repository to the provided DB handle.
func NewCartItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// List returns every line of the cart in insertion order.
func (r *ItemRepository) List(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ItemRepository) Find(ctx context.Context, cartID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindMatching returns the line holding the same product and variant.
func (r *ItemRepository) FindMatching(ctx context.Context, cartID, productID uint, variantID *uint) (*models.CartItem, error) {
	q := r.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID)
	if variantID == nil {
		q = q.Where("variant_id IS NULL")
	} else {
		q = q.Where("variant_id = ?", *variantID)
	}
	var item models.CartItem
	if err := q.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ItemRepository) Save(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// UpdateTotal rewrites a line total that drifted from its snapshot.
func (r *ItemRepository) UpdateTotal(ctx context.Context, itemID uint, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("total", total).Error
}

func (r *ItemRepository) Delete(ctx context.Context, cartID, itemID uint) error {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAll empties the cart.
func (r *ItemRepository) DeleteAll(ctx context.Context, cartID uint) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
