package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
	"github.com/furnihub/marketplace-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "world", body.Data.(map[string]any)["hello"])
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"field": "qty"}), http.StatusBadRequest},
		{"coupon", pkgerrors.New(pkgerrors.CodeCouponNotApplicable, "coupon SALE not applicable").WithDetails(map[string]any{"condition": "expired"}), http.StatusUnprocessableEntity},
		{"stock", pkgerrors.New(pkgerrors.CodeInsufficientStock, "1 line(s) exceed available stock").WithDetails(map[string]any{"lines": []int{1}}), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body types.ErrorEnvelope
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, string(pkgerrors.As(tt.err).Code()), body.Error.Code)
			assert.Equal(t, pkgerrors.As(tt.err).Message(), body.Error.Message)
			assert.NotNil(t, body.Error.Details)
		})
	}
}

func TestWriteErrorHidesUntypedErrors(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.NotContains(t, body.Error.Message, "relation")
	assert.Nil(t, body.Error.Details)
	assert.Contains(t, buf.String(), "request.error")
}
