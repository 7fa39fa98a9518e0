// Package reservation checks and takes variant stock for a checkout.
package reservation

import (
	"context"
	"sort"

	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
)

// Request asks for Qty units of a variant on behalf of one cart line.
type Request struct {
	LineID    uint
	ProductID uint
	VariantID uint
	Qty       int
}

// StockReader loads variants by id.
type StockReader interface {
	FindVariantsByIDs(ctx context.Context, ids []uint) (map[uint]models.ProductVariant, error)
}

// StockWriter decrements stock behind a stock >= qty guard.
type StockWriter interface {
	StockReader
	DecrementStock(ctx context.Context, variantID uint, qty int) (bool, error)
}

// Check compares every request against current stock without writing. All
// shortfalls are reported together.
func Check(ctx context.Context, reader StockReader, requests []Request) error {
	for _, req := range requests {
		if req.Qty < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").WithDetails(map[string]any{"line_id": req.LineID})
		}
	}
	variants, err := reader.FindVariantsByIDs(ctx, variantIDs(requests))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}

	demand := make(map[uint]int, len(requests))
	for _, req := range requests {
		demand[req.VariantID] += req.Qty
	}

	var shortfalls []pricing.StockShortfall
	for _, req := range requests {
		available := 0
		if v, ok := variants[req.VariantID]; ok && v.ProductID == req.ProductID {
			available = v.Stock
		}
		if demand[req.VariantID] > available {
			shortfalls = append(shortfalls, pricing.StockShortfall{
				LineID:    req.LineID,
				ProductID: req.ProductID,
				VariantID: req.VariantID,
				Requested: req.Qty,
				Available: available,
			})
		}
	}
	if len(shortfalls) > 0 {
		return pricing.InsufficientStock(shortfalls)
	}
	return nil
}

// Commit takes the stock for every request. A guard rejection means stock
// moved since Check; the affected lines are reported and the caller must
// roll back.
func Commit(ctx context.Context, writer StockWriter, requests []Request) error {
	var rejected []Request
	for _, req := range requests {
		ok, err := writer.DecrementStock(ctx, req.VariantID, req.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			rejected = append(rejected, req)
		}
	}
	if len(rejected) == 0 {
		return nil
	}
	variants, err := writer.FindVariantsByIDs(ctx, variantIDs(rejected))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	shortfalls := make([]pricing.StockShortfall, 0, len(rejected))
	for _, req := range rejected {
		shortfalls = append(shortfalls, pricing.StockShortfall{
			LineID:    req.LineID,
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Requested: req.Qty,
			Available: variants[req.VariantID].Stock,
		})
	}
	return pricing.InsufficientStock(shortfalls)
}

func variantIDs(requests []Request) []uint {
	seen := make(map[uint]struct{}, len(requests))
	ids := make([]uint, 0, len(requests))
	for _, req := range requests {
		if _, ok := seen[req.VariantID]; ok {
			continue
		}
		seen[req.VariantID] = struct{}{}
		ids = append(ids, req.VariantID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
