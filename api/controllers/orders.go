package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mgardella/storefront-backend/api/middleware"
	"github.com/mgardella/storefront-backend/api/responses"
	"github.com/mgardella/storefront-backend/api/validators"
	"github.com/mgardella/storefront-backend/internal/orders"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

// OrdersController serves the customer-facing order history endpoints.
type OrdersController struct {
	svc  orders.Service
	logg *logger.Logger
}

// NewOrdersController wires the order history endpoints.
func NewOrdersController(svc orders.Service, logg *logger.Logger) *OrdersController {
	return &OrdersController{svc: svc, logg: logg}
}

// History handles GET /orders.
func (c *OrdersController) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), w, c.logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	list, err := c.svc.HistoryForUser(r.Context(), userID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, list)
}

// Track handles GET /orders/{orderID}.
func (c *OrdersController) Track(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), w, c.logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "order id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	order, err := c.svc.TrackForUser(r.Context(), orderID, userID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, order)
}
