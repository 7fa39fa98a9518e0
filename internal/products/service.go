package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
)

// Service resolves purchasable prices for products.
type Service interface {
	QuoteUnitPrice(ctx context.Context, productID uint, variantID *uint, qty int) (*Quote, error)
	ResolveForCart(ctx context.Context, productID uint, variantID *uint) (*pricing.Resolution, error)
}

type productReader interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	ListVariants(ctx context.Context, productID uint) ([]models.ProductVariant, error)
}

type service struct {
	repo productReader
}

// NewService wires the product pricing service.
func NewService(repo productReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// Quote is the price preview for qty units of a product.
type Quote struct {
	ProductID uint            `json:"product_id"`
	ShopID    uint            `json:"shop_id"`
	VariantID uint            `json:"variant_id"`
	Variant   string          `json:"variant,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (s *service) QuoteUnitPrice(ctx context.Context, productID uint, variantID *uint, qty int) (*Quote, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	product, variants, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	res, err := pricing.ResolveUnitPrice(*product, variants, variantID)
	if err != nil {
		return nil, err
	}
	total, err := pricing.ComputeLineTotal(qty, res.UnitPrice, res.Discount)
	if err != nil {
		return nil, err
	}

	quote := &Quote{
		ProductID: res.ProductID,
		ShopID:    res.ShopID,
		VariantID: res.VariantID,
		Quantity:  qty,
		UnitPrice: res.UnitPrice,
		Discount:  res.Discount,
		LineTotal: total,
	}
	for _, v := range variants {
		if v.ID == res.VariantID {
			quote.Variant = v.Attributes.Label()
			break
		}
	}
	return quote, nil
}

// ResolveForCart resolves the snapshot price of a line about to be added. Only
// active products are purchasable.
func (s *service) ResolveForCart(ctx context.Context, productID uint, variantID *uint) (*pricing.Resolution, error) {
	product, variants, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != enums.ProductStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available for purchase").WithDetails(map[string]any{
			"product_id": product.ID,
			"status":     product.Status,
		})
	}
	res, err := pricing.ResolveUnitPrice(*product, variants, variantID)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *service) load(ctx context.Context, productID uint) (*models.Product, []models.ProductVariant, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	variants, err := s.repo.ListVariants(ctx, productID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}
	return product, variants, nil
}
