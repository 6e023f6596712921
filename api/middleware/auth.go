package middleware

import (
	"net/http"
	"strings"

	"github.com/mgardella/storefront-backend/api/responses"
	pkgauth "github.com/mgardella/storefront-backend/pkg/auth"
	"github.com/mgardella/storefront-backend/pkg/auth/session"
	"github.com/mgardella/storefront-backend/pkg/config"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

const bearerPrefix = "Bearer "

// Authenticate validates the bearer token and loads identity into the
// context. A token whose refresh session has been revoked is rejected even
// while its signature is still valid.
func Authenticate(jwtCfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				responses.WriteError(ctx, w, logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(jwtCfg, strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				responses.WriteError(ctx, w, logg, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
				return
			}

			if sessions != nil {
				alive, err := sessions.HasSession(ctx, claims.ID)
				if err != nil {
					responses.WriteError(ctx, w, logg, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed"))
					return
				}
				if !alive {
					responses.WriteError(ctx, w, logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked"))
					return
				}
			}

			ctx = WithUserID(ctx, claims.UserID)
			ctx = WithRole(ctx, claims.Role)
			ctx = logg.WithUserID(ctx, claims.UserID.String())
			ctx = logg.WithActorRole(ctx, claims.Role.String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
