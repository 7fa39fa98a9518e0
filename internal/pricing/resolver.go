package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
)

// Resolution is the unit price snapshot for a product line.
type Resolution struct {
	ProductID uint
	ShopID    uint
	VariantID uint
	UnitPrice decimal.Decimal
	// Discount is the product level percentage at resolution time.
	Discount decimal.Decimal
}

// ResolveUnitPrice returns the unit price of the requested variant, or the
// cheapest variant when variantID is nil. Stock is not considered.
func ResolveUnitPrice(product models.Product, variants []models.ProductVariant, variantID *uint) (Resolution, error) {
	res := Resolution{
		ProductID: product.ID,
		ShopID:    product.ShopID,
		Discount:  product.Discount,
	}

	if variantID != nil {
		for _, v := range variants {
			if v.ID == *variantID && v.ProductID == product.ID {
				res.VariantID = v.ID
				res.UnitPrice = v.Price
				return res, nil
			}
		}
		return Resolution{}, variantNotFound(product.ID, *variantID)
	}

	var cheapest *models.ProductVariant
	for i := range variants {
		v := &variants[i]
		if v.ProductID != product.ID {
			continue
		}
		// ties keep the lowest id so repeated quotes pick the same variant
		if cheapest == nil || v.Price.LessThan(cheapest.Price) || (v.Price.Equal(cheapest.Price) && v.ID < cheapest.ID) {
			cheapest = v
		}
	}
	if cheapest == nil {
		return Resolution{}, noPurchasableUnit(product.ID)
	}
	res.VariantID = cheapest.ID
	res.UnitPrice = cheapest.Price
	return res, nil
}
