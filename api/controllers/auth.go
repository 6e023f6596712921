package controllers

import (
	"net/http"

	"github.com/mgardella/storefront-backend/api/middleware"
	"github.com/mgardella/storefront-backend/api/responses"
	"github.com/mgardella/storefront-backend/api/validators"
	"github.com/mgardella/storefront-backend/internal/auth"
	pkgauth "github.com/mgardella/storefront-backend/pkg/auth"
	"github.com/mgardella/storefront-backend/pkg/config"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

// AuthController serves signup, login, refresh, logout, and password reset.
type AuthController struct {
	svc    auth.Service
	jwtCfg config.JWTConfig
	logg   *logger.Logger
}

// NewAuthController wires the auth endpoints.
func NewAuthController(svc auth.Service, jwtCfg config.JWTConfig, logg *logger.Logger) *AuthController {
	return &AuthController{svc: svc, jwtCfg: jwtCfg, logg: logg}
}

// Register handles POST /auth/register.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var input auth.RegisterInput
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	session, err := c.svc.Register(r.Context(), input)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, session)
}

// Login handles POST /auth/login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var input auth.LoginInput
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	session, err := c.svc.Login(r.Context(), input)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, session)
}

// AdminLogin handles POST /admin/auth/login.
func (c *AuthController) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var input auth.LoginInput
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	session, err := c.svc.AdminLogin(r.Context(), input)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, session)
}

// Refresh handles POST /auth/refresh.
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var input auth.RefreshInput
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	session, err := c.svc.Refresh(r.Context(), input)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, session)
}

// Logout handles POST /auth/logout. It revokes the refresh session tied to
// the presented access token.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	claims, err := pkgauth.ParseAccessToken(c.jwtCfg, bearerToken(header))
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
		return
	}

	if err := c.svc.Logout(r.Context(), claims.ID); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
}

// ResetPassword handles POST /auth/reset-password. The response is identical
// whether or not the email exists.
func (c *AuthController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input auth.ResetPasswordInput
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	if err := c.svc.ResetPassword(r.Context(), input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{
		"status": "if the account exists, the password has been reset",
	})
}

// Me handles GET /me for the authenticated user.
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), w, c.logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	user, err := c.svc.Profile(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, auth.NewUserSummary(user))
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
