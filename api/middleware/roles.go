package middleware

import (
	"net/http"

	"github.com/mgardella/storefront-backend/api/responses"
	"github.com/mgardella/storefront-backend/pkg/enums"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

// RequireRole gates a subtree on the authenticated role. Must run after
// Authenticate.
func RequireRole(required enums.UserRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), w, logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if role != required {
				responses.WriteError(r.Context(), w, logg, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
