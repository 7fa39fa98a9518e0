package products

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furnihub/marketplace-backend/pkg/db/dbtest"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	"github.com/furnihub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestQuoteUnitPrice(t *testing.T) {
	svc, repo := newTestService(t)
	shop := dbtest.MustCreateShop(t, repo.db, 1)
	product, variants := dbtest.MustCreateProduct(t, repo.db, shop.ID, "10", 5, "120000", "100000")

	color := "walnut"
	require.NoError(t, repo.db.Model(&models.ProductVariant{}).
		Where("id = ?", variants[1].ID).
		Update("attributes", types.VariantAttributes{Color: &color}).Error)

	quote, err := svc.QuoteUnitPrice(context.Background(), product.ID, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, variants[1].ID, quote.VariantID)
	assert.Equal(t, "color: walnut", quote.Variant)
	assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(100000)))
	assert.True(t, quote.LineTotal.Equal(decimal.NewFromInt(180000)), "got %s", quote.LineTotal)

	explicit := variants[0].ID
	quote, err = svc.QuoteUnitPrice(context.Background(), product.ID, &explicit, 1)
	require.NoError(t, err)
	assert.True(t, quote.LineTotal.Equal(decimal.NewFromInt(108000)), "got %s", quote.LineTotal)
}

func TestQuoteUnitPriceErrors(t *testing.T) {
	svc, repo := newTestService(t)
	shop := dbtest.MustCreateShop(t, repo.db, 1)
	bare, _ := dbtest.MustCreateProduct(t, repo.db, shop.ID, "0", 0)

	_, err := svc.QuoteUnitPrice(context.Background(), bare.ID, nil, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNoPurchasableUnit), "got %v", err)

	_, err = svc.QuoteUnitPrice(context.Background(), 4242, nil, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = svc.QuoteUnitPrice(context.Background(), bare.ID, nil, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestResolveForCartRequiresActiveProduct(t *testing.T) {
	svc, repo := newTestService(t)
	shop := dbtest.MustCreateShop(t, repo.db, 1)
	product, variants := dbtest.MustCreateProduct(t, repo.db, shop.ID, "5", 1, "900")

	res, err := svc.ResolveForCart(context.Background(), product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, variants[0].ID, res.VariantID)
	assert.Equal(t, shop.ID, res.ShopID)

	require.NoError(t, repo.db.Model(&models.Product{}).Where("id = ?", product.ID).Update("status", enums.ProductStatusInactive).Error)
	_, err = svc.ResolveForCart(context.Background(), product.ID, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
