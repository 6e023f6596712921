package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mgardella/storefront-backend/api/responses"
	"github.com/mgardella/storefront-backend/api/validators"
	"github.com/mgardella/storefront-backend/internal/auth"
	"github.com/mgardella/storefront-backend/internal/users"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	"github.com/mgardella/storefront-backend/pkg/enums"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

// AdminUsersController serves the admin console user management endpoints.
type AdminUsersController struct {
	svc  users.Service
	logg *logger.Logger
}

// NewAdminUsersController wires the user management endpoints.
func NewAdminUsersController(svc users.Service, logg *logger.Logger) *AdminUsersController {
	return &AdminUsersController{svc: svc, logg: logg}
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=customer admin"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
	Role     *string `json:"role" validate:"omitempty,oneof=customer admin"`
}

// Create handles POST /admin/users.
func (c *AdminUsersController) Create(w http.ResponseWriter, r *http.Request) {
	var input createUserRequest
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	user, err := c.svc.Create(r.Context(), users.CreateInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     enums.UserRole(input.Role),
	})
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, auth.NewUserSummary(user))
}

// List handles GET /admin/users.
func (c *AdminUsersController) List(w http.ResponseWriter, r *http.Request) {
	list, err := c.svc.List(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, summarize(list))
}

// Get handles GET /admin/users/{userID}.
func (c *AdminUsersController) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := validators.ParsePathUUID(chi.URLParam(r, "userID"), "user id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	user, err := c.svc.Get(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, auth.NewUserSummary(user))
}

// Update handles PUT /admin/users/{userID}.
func (c *AdminUsersController) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := validators.ParsePathUUID(chi.URLParam(r, "userID"), "user id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	var input updateUserRequest
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	patch := users.UpdateInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	}
	if input.Role != nil {
		role := enums.UserRole(*input.Role)
		patch.Role = &role
	}

	user, err := c.svc.Update(r.Context(), userID, patch)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, auth.NewUserSummary(user))
}

// Delete handles DELETE /admin/users/{userID}.
func (c *AdminUsersController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := validators.ParsePathUUID(chi.URLParam(r, "userID"), "user id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	if err := c.svc.Delete(r.Context(), userID); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "deleted"})
}

func summarize(list []models.User) []auth.UserSummary {
	out := make([]auth.UserSummary, 0, len(list))
	for i := range list {
		out = append(out, auth.NewUserSummary(&list[i]))
	}
	return out
}
