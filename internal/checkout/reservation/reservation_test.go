package reservation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furnihub/marketplace-backend/internal/pricing"
	"github.com/furnihub/marketplace-backend/internal/products"
	"github.com/furnihub/marketplace-backend/pkg/db/dbtest"
	"github.com/furnihub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
)

func shortfallsOf(t *testing.T, err error) []pricing.StockShortfall {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	lines, ok := details["lines"].([]pricing.StockShortfall)
	require.True(t, ok)
	return lines
}

func TestCheckReportsEveryShortfall(t *testing.T) {
	t.Parallel()

	conn := dbtest.Open(t)
	repo := products.NewRepository(conn)
	shop := dbtest.MustCreateShop(t, conn, 1)
	pa, va := dbtest.MustCreateProduct(t, conn, shop.ID, "0", 2, "100")
	pb, vb := dbtest.MustCreateProduct(t, conn, shop.ID, "0", 1, "100")
	pc, vc := dbtest.MustCreateProduct(t, conn, shop.ID, "0", 10, "100")

	err := Check(context.Background(), repo, []Request{
		{LineID: 1, ProductID: pa.ID, VariantID: va[0].ID, Qty: 3},
		{LineID: 2, ProductID: pb.ID, VariantID: vb[0].ID, Qty: 2},
		{LineID: 3, ProductID: pc.ID, VariantID: vc[0].ID, Qty: 4},
	})
	require.Error(t, err)

	lines := shortfallsOf(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, pricing.StockShortfall{LineID: 1, ProductID: pa.ID, VariantID: va[0].ID, Requested: 3, Available: 2}, lines[0])
	assert.Equal(t, pricing.StockShortfall{LineID: 2, ProductID: pb.ID, VariantID: vb[0].ID, Requested: 2, Available: 1}, lines[1])

	// nothing was written
	var variant models.ProductVariant
	require.NoError(t, conn.First(&variant, vc[0].ID).Error)
	assert.Equal(t, 10, variant.Stock)
}

func TestCheckTreatsMissingVariantAsOutOfStock(t *testing.T) {
	t.Parallel()

	conn := dbtest.Open(t)
	shop := dbtest.MustCreateShop(t, conn, 1)
	pa, _ := dbtest.MustCreateProduct(t, conn, shop.ID, "0", 2, "100")
	pb, vb := dbtest.MustCreateProduct(t, conn, shop.ID, "0", 2, "100")

	err := Check(context.Background(), products.NewRepository(conn), []Request{
		{LineID: 7, ProductID: pa.ID, VariantID: vb[0].ID, Qty: 1},
		{LineID: 8, ProductID: pb.ID, VariantID: 9999, Qty: 1},
	})
	lines := shortfallsOf(t, err)
	require.Len(t, lines, 2)
	assert.Zero(t, lines[0].Available)
	assert.Zero(t, lines[1].Available)
}

func TestCheckRejectsInvalidQty(t *testing.T) {
	t.Parallel()

	conn := dbtest.Open(t)
	err := Check(context.Background(), products.NewRepository(conn), []Request{{LineID: 1, VariantID: 1, Qty: 0}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCommitDecrementsStock(t *testing.T) {
	t.Parallel()

	conn := dbtest.Open(t)
	repo := products.NewRepository(conn)
	shop := dbtest.MustCreateShop(t, conn, 1)
	pa, va := dbtest.MustCreateProduct(t, conn, shop.ID, "0", 5, "100")

	reqs := []Request{{LineID: 1, ProductID: pa.ID, VariantID: va[0].ID, Qty: 3}}
	require.NoError(t, Check(context.Background(), repo, reqs))
	require.NoError(t, Commit(context.Background(), repo, reqs))

	var variant models.ProductVariant
	require.NoError(t, conn.First(&variant, va[0].ID).Error)
	assert.Equal(t, 2, variant.Stock)

	err := Commit(context.Background(), repo, reqs)
	lines := shortfallsOf(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Available)
}
