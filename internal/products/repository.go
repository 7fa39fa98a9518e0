package products

import (
	"context"

	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
)

// Repository persists products and their variants.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListVariants returns every variant of the product ordered by id.
func (r *Repository) ListVariants(ctx context.Context, productID uint) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

// FindVariantsByIDs loads the requested variants keyed by id.
func (r *Repository) FindVariantsByIDs(ctx context.Context, ids []uint) (map[uint]models.ProductVariant, error) {
	out := make(map[uint]models.ProductVariant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var variants []models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&variants).Error; err != nil {
		return nil, err
	}
	for _, v := range variants {
		out[v.ID] = v
	}
	return out, nil
}

// DecrementStock removes qty units from the variant only if enough stock is
// available. It reports false when the guard rejected the update.
func (r *Repository) DecrementStock(ctx context.Context, variantID uint, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStock adds qty units back to the variant.
func (r *Repository) RestoreStock(ctx context.Context, variantID uint, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}
