package middleware

import (
	"fmt"
	"net/http"

	"github.com/mgardella/storefront-backend/api/responses"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

// Recoverer converts handler panics into a 500 envelope instead of dropping
// the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err := pkgerrors.Wrap(
						pkgerrors.CodeInternal,
						fmt.Errorf("panic: %v", rec),
						"handler panicked",
					)
					responses.WriteError(r.Context(), w, logg, err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
