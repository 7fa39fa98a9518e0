package controllers

import (
	"net/http"

	"github.com/furnihub/marketplace-backend/api/middleware"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
)

func userIDFromRequest(r *http.Request) (uint, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return userID, nil
}
