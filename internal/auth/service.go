// Package auth implements signup, credential login, token refresh, and
// password reset for the storefront.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mgardella/storefront-backend/internal/users"
	pkgauth "github.com/mgardella/storefront-backend/pkg/auth"
	"github.com/mgardella/storefront-backend/pkg/auth/session"
	"github.com/mgardella/storefront-backend/pkg/config"
	"github.com/mgardella/storefront-backend/pkg/db"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	"github.com/mgardella/storefront-backend/pkg/enums"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
	"github.com/mgardella/storefront-backend/pkg/security"
)

// SessionStore is the refresh-session surface the service needs. Satisfied by
// session.Manager.
type SessionStore interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// Service is the authentication surface.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Login(ctx context.Context, input LoginInput) (*Session, error)
	AdminLogin(ctx context.Context, input LoginInput) (*Session, error)
	Refresh(ctx context.Context, input RefreshInput) (*Session, error)
	Logout(ctx context.Context, accessID string) error
	ResetPassword(ctx context.Context, input ResetPasswordInput) error
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type service struct {
	repo     users.Repository
	sessions SessionStore
	jwtCfg   config.JWTConfig
	pwdCfg   config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the auth service.
func NewService(repo users.Repository, sessions SessionStore, jwtCfg config.JWTConfig, pwdCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		sessions: sessions,
		jwtCfg:   jwtCfg,
		pwdCfg:   pwdCfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Register creates a customer account and logs it in. Self-service signup
// can never produce an admin.
func (s *service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	hash, err := security.HashPassword(input.Password, s.pwdCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	user := &models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Role:         enums.UserRoleCustomer,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return s.issueSession(ctx, user)
}

func (s *service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	user, err := s.verifyCredentials(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

// AdminLogin behaves like Login but only admits admin accounts. A valid
// customer credential fails the same way a bad password does, so the console
// endpoint leaks nothing about roles.
func (s *service) AdminLogin(ctx context.Context, input LoginInput) (*Session, error) {
	user, err := s.verifyCredentials(ctx, input)
	if err != nil {
		return nil, err
	}
	if user.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token and mints a fresh access token. The old
// access token may be expired; only its signature and jti matter here.
func (s *service) Refresh(ctx context.Context, input RefreshInput) (*Session, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, input.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid refresh token")
		}
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "account no longer exists")
	}

	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		User:         NewUserSummary(user),
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	return s.sessions.Revoke(ctx, accessID)
}

// ResetPassword always reports success so callers cannot probe which emails
// have accounts. A miss is logged and otherwise dropped.
func (s *service) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "password reset requested for unknown email")
			return nil
		}
		return err
	}

	hash, err := security.HashPassword(input.NewPassword, s.pwdCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}
	user.PasswordHash = hash
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "password reset")
	return nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) verifyCredentials(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return user, nil
}

func (s *service) issueSession(ctx context.Context, user *models.User) (*Session, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         NewUserSummary(user),
	}, nil
}
