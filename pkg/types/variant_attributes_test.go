package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func TestVariantAttributesLabel(t *testing.T) {
	attrs := VariantAttributes{
		Color:    strPtr("walnut"),
		Size:     strPtr("king"),
		Material: strPtr("  "),
		Extra:    map[string]string{"legs": "steel", "drawers": "2"},
	}

	assert.Equal(t, "size: king, color: walnut, drawers: 2, legs: steel", attrs.Label())
	assert.False(t, attrs.IsEmpty())

	v, ok := attrs.Get("LEGS")
	assert.True(t, ok)
	assert.Equal(t, "steel", v)

	_, ok = attrs.Get("material")
	assert.False(t, ok)
}

func TestVariantAttributesEmpty(t *testing.T) {
	assert.True(t, VariantAttributes{}.IsEmpty())
	assert.Equal(t, "", VariantAttributes{}.Label())
}

func TestVariantAttributesValueScan(t *testing.T) {
	attrs := VariantAttributes{Color: strPtr("oak"), Extra: map[string]string{"seats": "3"}}

	raw, err := attrs.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":"oak","extra":{"seats":"3"}}`, raw.(string))

	var decoded VariantAttributes
	require.NoError(t, decoded.Scan([]byte(raw.(string))))
	assert.Equal(t, "color: oak, seats: 3", decoded.Label())

	require.NoError(t, decoded.Scan(nil))
	assert.True(t, decoded.IsEmpty())

	assert.Error(t, decoded.Scan(42))
}
