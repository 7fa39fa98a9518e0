package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furnihub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
)

func uintPtr(v uint) *uint { return &v }

func TestResolveUnitPrice(t *testing.T) {
	t.Parallel()

	product := models.Product{ID: 10, ShopID: 3, Discount: dec("15")}
	variants := []models.ProductVariant{
		{ID: 101, ProductID: 10, Price: dec("450000")},
		{ID: 102, ProductID: 10, Price: dec("320000")},
		{ID: 103, ProductID: 10, Price: dec("320000")},
		{ID: 201, ProductID: 20, Price: dec("1000")},
	}

	t.Run("explicit variant", func(t *testing.T) {
		res, err := ResolveUnitPrice(product, variants, uintPtr(101))
		require.NoError(t, err)
		assert.Equal(t, uint(101), res.VariantID)
		assert.True(t, res.UnitPrice.Equal(dec("450000")))
		assert.True(t, res.Discount.Equal(dec("15")))
		assert.Equal(t, uint(3), res.ShopID)
	})

	t.Run("default picks cheapest with lowest id", func(t *testing.T) {
		res, err := ResolveUnitPrice(product, variants, nil)
		require.NoError(t, err)
		assert.Equal(t, uint(102), res.VariantID)
		assert.True(t, res.UnitPrice.Equal(dec("320000")))
	})

	t.Run("variant of another product", func(t *testing.T) {
		_, err := ResolveUnitPrice(product, variants, uintPtr(201))
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	})

	t.Run("unknown variant", func(t *testing.T) {
		_, err := ResolveUnitPrice(product, variants, uintPtr(999))
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	})
}

func TestResolveUnitPriceWithoutVariants(t *testing.T) {
	t.Parallel()

	product := models.Product{ID: 10}

	_, err := ResolveUnitPrice(product, nil, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNoPurchasableUnit))

	_, err = ResolveUnitPrice(product, nil, uintPtr(1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
