package pagination

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-5))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestCursorRoundTrip(t *testing.T) {
	got, err := ParseCursor(EncodeCursor(Cursor{ID: 42}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(42), got.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("42")),
		base64.RawURLEncoding.EncodeToString([]byte("id:0")),
		base64.RawURLEncoding.EncodeToString([]byte("id:abc")),
	} {
		_, err := ParseCursor(raw)
		assert.Error(t, err, raw)
	}
}
