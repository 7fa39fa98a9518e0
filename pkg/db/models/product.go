package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/pkg/enums"
	"github.com/furnihub/marketplace-backend/pkg/types"
)

// Product represents a shop listing. Prices live on its variants.
type Product struct {
	ID            uint                `gorm:"column:id;primaryKey;autoIncrement"`
	ShopID        uint                `gorm:"column:shop_id;not null;index"`
	Name          string              `gorm:"column:name;not null"`
	Description   *string             `gorm:"column:description"`
	Discount      decimal.Decimal     `gorm:"column:discount;type:numeric(5,2);not null;default:0"`
	Status        enums.ProductStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	RatingAverage decimal.Decimal     `gorm:"column:rating_average;type:numeric(3,2);not null;default:0"`
	RatingCount   int                 `gorm:"column:rating_count;not null;default:0"`
	Variants      []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is a purchasable unit of a product.
type ProductVariant struct {
	ID         uint                    `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID  uint                    `gorm:"column:product_id;not null;index"`
	SKU        *string                 `gorm:"column:sku"`
	Attributes types.VariantAttributes `gorm:"column:attributes;type:jsonb;not null;default:'{}'"`
	Price      decimal.Decimal         `gorm:"column:price;type:numeric(12,2);not null"`
	Stock      int                     `gorm:"column:stock;not null;default:0"`
	ImageURL   *string                 `gorm:"column:image_url"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
