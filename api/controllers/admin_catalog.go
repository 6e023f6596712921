package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgardella/storefront-backend/api/responses"
	"github.com/mgardella/storefront-backend/api/validators"
	"github.com/mgardella/storefront-backend/internal/catalog"
	"github.com/mgardella/storefront-backend/pkg/logger"
	"github.com/mgardella/storefront-backend/pkg/pagination"
)

// AdminCatalogController serves category and product maintenance.
type AdminCatalogController struct {
	svc  catalog.Service
	logg *logger.Logger
}

// NewAdminCatalogController wires the catalog maintenance endpoints.
func NewAdminCatalogController(svc catalog.Service, logg *logger.Logger) *AdminCatalogController {
	return &AdminCatalogController{svc: svc, logg: logg}
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

type createProductRequest struct {
	CategoryID  uuid.UUID       `json:"category_id" validate:"required"`
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Description string          `json:"description" validate:"max=4000"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

type updateProductRequest struct {
	CategoryID  *uuid.UUID       `json:"category_id"`
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=4000"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
}

// ListCategories handles GET /admin/categories.
func (c *AdminCatalogController) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.svc.ListCategories(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, categories)
}

// ListProducts handles GET /admin/products with cursor pagination.
func (c *AdminCatalogController) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := validators.ParseQueryInt(r, "limit", 0)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	products, nextCursor, err := c.svc.ListProducts(r.Context(), pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{
		"products":    products,
		"next_cursor": nextCursor,
	})
}

// CreateCategory handles POST /admin/categories.
func (c *AdminCatalogController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input categoryRequest
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	category, err := c.svc.CreateCategory(r.Context(), input.Name)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, category)
}

// UpdateCategory handles PATCH /admin/categories/{categoryID}.
func (c *AdminCatalogController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := validators.ParsePathUUID(chi.URLParam(r, "categoryID"), "category id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	var input categoryRequest
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	category, err := c.svc.RenameCategory(r.Context(), categoryID, input.Name)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, category)
}

// DeleteCategory handles DELETE /admin/categories/{categoryID}.
func (c *AdminCatalogController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := validators.ParsePathUUID(chi.URLParam(r, "categoryID"), "category id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	if err := c.svc.DeleteCategory(r.Context(), categoryID); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "deleted"})
}

// CreateProduct handles POST /admin/products.
func (c *AdminCatalogController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input createProductRequest
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	product, err := c.svc.CreateProduct(r.Context(), catalog.ProductInput{
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
	})
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, product)
}

// UpdateProduct handles PATCH /admin/products/{productID}.
func (c *AdminCatalogController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "product id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	var input updateProductRequest
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	product, err := c.svc.UpdateProduct(r.Context(), productID, catalog.ProductPatch{
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
	})
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, product)
}

// DeleteProduct handles DELETE /admin/products/{productID}.
func (c *AdminCatalogController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "product id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	if err := c.svc.DeleteProduct(r.Context(), productID); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "deleted"})
}
