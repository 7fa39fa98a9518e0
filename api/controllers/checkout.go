package controllers

import (
	"net/http"

	"github.com/furnihub/marketplace-backend/api/responses"
	"github.com/furnihub/marketplace-backend/internal/checkout"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
)

// Checkout converts the caller's cart into an order.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
