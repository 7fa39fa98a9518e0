package helpers

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
)

// ShopGroup holds the cart lines sold by one shop together with their
// freshly computed line totals.
type ShopGroup struct {
	ShopID     uint
	Items      []models.CartItem
	LineTotals []decimal.Decimal
}

// Subtotal sums the group's line totals.
func (g ShopGroup) Subtotal() decimal.Decimal {
	return pricing.Sum(g.LineTotals)
}

// GroupCartItemsByShop splits the cart lines into one group per shop, ordered
// by shop id. Line totals are recomputed from the snapshot price and discount.
func GroupCartItemsByShop(items []models.CartItem) ([]ShopGroup, error) {
	index := make(map[uint]int, len(items))
	groups := make([]ShopGroup, 0)
	for _, item := range items {
		total, err := pricing.ComputeLineTotal(item.Quantity, item.Price, item.Discount)
		if err != nil {
			return nil, err
		}
		i, ok := index[item.ShopID]
		if !ok {
			i = len(groups)
			index[item.ShopID] = i
			groups = append(groups, ShopGroup{ShopID: item.ShopID})
		}
		groups[i].Items = append(groups[i].Items, item)
		groups[i].LineTotals = append(groups[i].LineTotals, total)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].ShopID < groups[b].ShopID })
	return groups, nil
}

// PricingLines flattens the groups into the lines used for coupon evaluation.
func PricingLines(groups []ShopGroup) []pricing.Line {
	var lines []pricing.Line
	for _, g := range groups {
		for _, total := range g.LineTotals {
			lines = append(lines, pricing.Line{ShopID: g.ShopID, Total: total})
		}
	}
	return lines
}
