package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mgardella/storefront-backend/api/responses"
	"github.com/mgardella/storefront-backend/api/validators"
	"github.com/mgardella/storefront-backend/internal/catalog"
	"github.com/mgardella/storefront-backend/pkg/logger"
	"github.com/mgardella/storefront-backend/pkg/pagination"
)

// CatalogController serves the public browse endpoints.
type CatalogController struct {
	svc  catalog.Service
	logg *logger.Logger
}

// NewCatalogController wires the public catalog endpoints.
func NewCatalogController(svc catalog.Service, logg *logger.Logger) *CatalogController {
	return &CatalogController{svc: svc, logg: logg}
}

// ListCategories handles GET /catalog/categories.
func (c *CatalogController) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.svc.ListCategories(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, categories)
}

// CategoryProducts handles GET /catalog/categories/{categoryID}/products.
func (c *CatalogController) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := validators.ParsePathUUID(chi.URLParam(r, "categoryID"), "category id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	category, products, err := c.svc.CategoryProducts(r.Context(), categoryID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{
		"category": category,
		"products": products,
	})
}

// ListProducts handles GET /catalog/products with cursor pagination.
func (c *CatalogController) ListProducts(w http.ResponseWriter, r *http.Request) {
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

// GetProduct handles GET /catalog/products/{productID}.
func (c *CatalogController) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "product id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	product, err := c.svc.GetProduct(r.Context(), productID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, product)
}
