package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mgardella/storefront-backend/api/responses"
	"github.com/mgardella/storefront-backend/api/validators"
	"github.com/mgardella/storefront-backend/internal/orders"
	"github.com/mgardella/storefront-backend/pkg/enums"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
	"github.com/mgardella/storefront-backend/pkg/pagination"
)

// AdminOrdersController serves the console order endpoints and the sales
// report.
type AdminOrdersController struct {
	svc  orders.Service
	logg *logger.Logger
}

// NewAdminOrdersController wires the console order endpoints.
func NewAdminOrdersController(svc orders.Service, logg *logger.Logger) *AdminOrdersController {
	return &AdminOrdersController{svc: svc, logg: logg}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// List handles GET /admin/orders with cursor pagination.
func (c *AdminOrdersController) List(w http.ResponseWriter, r *http.Request) {
	limit, err := validators.ParseQueryInt(r, "limit", 0)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	list, nextCursor, err := c.svc.List(r.Context(), pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{
		"orders":      list,
		"next_cursor": nextCursor,
	})
}

// Get handles GET /admin/orders/{orderID}.
func (c *AdminOrdersController) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "order id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	order, err := c.svc.Get(r.Context(), orderID)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, order)
}

// UpdateStatus handles POST /admin/orders/{orderID}/status.
func (c *AdminOrdersController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "order id")
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	var input updateOrderStatusRequest
	if err := validators.DecodeJSONBody(w, r, &input); err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}

	status, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status"))
		return
	}

	order, err := c.svc.UpdateStatus(r.Context(), orderID, status)
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, order)
}

// SalesReport handles GET /admin/reports/sales.
func (c *AdminOrdersController) SalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := c.svc.SalesReport(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), w, c.logg, err)
		return
	}
	responses.WriteSuccess(w, report)
}
