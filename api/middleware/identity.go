package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/furnihub/marketplace-backend/api/responses"
	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
	"github.com/furnihub/marketplace-backend/pkg/logger"
)

// UserIDHeader carries the caller id resolved by the upstream auth gateway.
const UserIDHeader = "X-User-Id"

// Identity reads the authenticated user id from UserIDHeader. Requests
// without a valid id are rejected.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
				return
			}
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity invalid"))
				return
			}
			userID := uint(id)
			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
