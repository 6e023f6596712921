package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mgardella/storefront-backend/pkg/config"
	"github.com/mgardella/storefront-backend/pkg/db"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	"github.com/mgardella/storefront-backend/pkg/enums"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/security"
)

// OrderCounter is the slice of the orders surface user deletion depends on.
type OrderCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// CreateInput carries the fields for an admin-created account.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     enums.UserRole
}

// UpdateInput carries optional account updates; nil fields are left alone.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *enums.UserRole
}

// Service is the admin console's user management surface.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   Repository
	orders OrderCounter
	pwdCfg config.PasswordConfig
}

// NewService builds the user management service.
func NewService(repo Repository, orders OrderCounter, pwdCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order counter required")
	}
	return &service{repo: repo, orders: orders, pwdCfg: pwdCfg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.User, error) {
	role := input.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown user role")
	}

	hash, err := security.HashPassword(input.Password, s.pwdCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	user := &models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		}
		return nil, err
	}
	return user, nil
}

func (s *service) List(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		user.Email = normalizeEmail(*input.Email)
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown user role")
		}
		user.Role = *input.Role
	}
	if input.Password != nil {
		hash, err := security.HashPassword(*input.Password, s.pwdCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		}
		return nil, err
	}
	return user, nil
}

// Delete removes an account that has never ordered. Accounts with order
// history are kept so the history stays attributable.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}

	count, err := s.orders.CountByUser(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "user has order history")
	}
	return s.repo.Delete(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
