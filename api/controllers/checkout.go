package controllers

import (
	"net/http"

	"github.com/mgardella/storefront-backend/api/middleware"
	"github.com/mgardella/storefront-backend/api/responses"
	"github.com/mgardella/storefront-backend/internal/checkout"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

// CheckoutController serves POST /checkout.
type CheckoutController struct {
	svc  checkout.Service
	logg *logger.Logger
}

// NewCheckoutController wires the checkout endpoint.
func NewCheckoutController(svc checkout.Service, logg *logger.Logger) *CheckoutController {
	return &CheckoutController{svc: svc, logg: logg}
}

// Checkout converts the caller's cart into an order.
func (c *CheckoutController) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), w, c.logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	result, err := c.svc.Checkout(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, result)
}
