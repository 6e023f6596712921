package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgardella/storefront-backend/pkg/db/models"
	"github.com/mgardella/storefront-backend/pkg/enums"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
	"github.com/mgardella/storefront-backend/pkg/pagination"
)

// SalesReport aggregates revenue across orders counted as sales.
type SalesReport struct {
	OrdersCount int             `json:"orders_count"`
	TotalSales  decimal.Decimal `json:"total_sales"`
}

// saleStatuses are the statuses that count toward revenue. Paid orders count
// immediately; shipped ones stay counted once delivered.
var saleStatuses = []enums.OrderStatus{
	enums.OrderStatusPaid,
	enums.OrderStatusDelivered,
}

// Service covers customer order history and the admin console surface.
type Service interface {
	HistoryForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	TrackForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)

	List(ctx context.Context, params pagination.Params) ([]models.Order, string, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	SalesReport(ctx context.Context) (*SalesReport, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the orders service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) HistoryForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// TrackForUser fetches one order scoped to its owner. Another user's order id
// yields NOT_FOUND rather than FORBIDDEN so ids cannot be probed.
func (s *service) TrackForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	return s.repo.FindByIDForUser(ctx, orderID, userID)
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list, err := s.repo.List(ctx, limit+1, cursor)
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(list) > limit {
		list = list[:limit]
		last := list[len(list)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nextCursor, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, orderID)
}

// UpdateStatus moves an order along its lifecycle. Any move outside the
// transition table is rejected with STATE_CONFLICT and changes nothing.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": status})
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(order.Status, status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
			WithDetails(map[string]any{"from": order.Status, "to": status})
	}

	if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": orderID, "from": order.Status, "to": status})
	s.logg.Info(logCtx, "order status updated")

	order.Status = status
	return order, nil
}

// SalesReport sums totals over paid and delivered orders.
func (s *service) SalesReport(ctx context.Context) (*SalesReport, error) {
	sales, err := s.repo.ListByStatuses(ctx, saleStatuses)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{TotalSales: decimal.Zero}
	for _, order := range sales {
		report.OrdersCount++
		report.TotalSales = report.TotalSales.Add(order.Total)
	}
	return report, nil
}
