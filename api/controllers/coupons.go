package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/furnihub/marketplace-backend/api/responses"
	"github.com/furnihub/marketplace-backend/api/validators"
	"github.com/furnihub/marketplace-backend/internal/coupons"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
)

type claimResponse struct {
	CouponID  uint       `json:"coupon_id"`
	ClaimedAt time.Time  `json:"claimed_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// CouponClaim collects a coupon into the caller's wallet.
func CouponClaim(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required"))
			return
		}

		claim, err := svc.Claim(r.Context(), userID, code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, claimResponse{
			CouponID:  claim.CouponID,
			ClaimedAt: claim.CreatedAt,
			UsedAt:    claim.UsedAt,
		})
	}
}

type previewRequest struct {
	Code     string          `json:"code" validate:"required"`
	Subtotal decimal.Decimal `json:"subtotal"`
	ShopID   *uint           `json:"shop_id,omitempty" validate:"omitempty,gt=0"`
}

// CouponPreview reports the discount a coupon would grant on a subtotal
// without redeeming it.
func CouponPreview(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload previewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Preview(r.Context(), userID, coupons.PreviewInput{
			Code:     payload.Code,
			Subtotal: payload.Subtotal,
			ShopID:   payload.ShopID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
