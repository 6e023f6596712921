package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mgardella/storefront-backend/api/middleware"
	"github.com/mgardella/storefront-backend/api/responses"
	"github.com/mgardella/storefront-backend/api/validators"
	"github.com/mgardella/storefront-backend/internal/cart"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

// CartController serves the authenticated cart endpoints.
type CartController struct {
	svc  cart.Service
	logg *logger.Logger
}

// NewCartController wires the cart endpoints.
func NewCartController(svc cart.Service, logg *logger.Logger) *CartController {
	return &CartController{svc: svc, logg: logg}
}

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

// View handles GET /cart.
func (c *CartController) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), w, c.logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	view, err := c.svc.View(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, view)
}

// AddItem handles POST /cart/items.
func (c *CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), w, c.logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	var input addCartItemRequest
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	item, err := c.svc.AddItem(r.Context(), userID, input.ProductID, input.Qty)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, item)
}

// RemoveItem handles DELETE /cart/items/{productID}.
func (c *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), w, c.logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "product id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	if err := c.svc.RemoveItem(r.Context(), userID, productID); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "removed"})
}
