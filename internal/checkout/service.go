// Package checkout converts a cart into an order. The whole conversion runs
// in one database transaction so a failure at any step leaves the cart, the
// order tables, and product stock exactly as they were.
package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mgardella/storefront-backend/internal/cart"
	"github.com/mgardella/storefront-backend/internal/catalog"
	"github.com/mgardella/storefront-backend/internal/checkout/stock"
	"github.com/mgardella/storefront-backend/internal/orders"
	"github.com/mgardella/storefront-backend/pkg/db"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	"github.com/mgardella/storefront-backend/pkg/enums"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

// Result reports the order produced by a successful checkout.
type Result struct {
	OrderID uuid.UUID       `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
	Status  string          `json:"status"`
}

// Service runs the checkout transaction.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*Result, error)
}

type service struct {
	dbc     *db.Client
	carts   cart.Repository
	catalog catalog.Repository
	orders  orders.Repository
	logg    *logger.Logger
}

// NewService wires the checkout orchestrator.
func NewService(dbc *db.Client, carts cart.Repository, cat catalog.Repository, ord orders.Repository, logg *logger.Logger) (Service, error) {
	if dbc == nil {
		return nil, fmt.Errorf("db client required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ord == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{dbc: dbc, carts: carts, catalog: cat, orders: ord, logg: logg}, nil
}

// Checkout turns the user's cart into a pending order.
//
// Inside a single transaction it loads the cart, resolves every product at
// its current price, totals the lines, creates the order with price
// snapshots, decrements stock with a guarded UPDATE per product, and clears
// the cart. The guarded UPDATE is the authoritative stock check; a shortfall
// at any step rolls the whole transaction back.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID) (*Result, error) {
	var result *Result

	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		products := s.catalog.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		items, err := carts.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no items")
		}

		total := decimal.Zero
		lines := make([]models.OrderLine, 0, len(items))
		requests := make([]stock.Request, 0, len(items))
		for _, item := range items {
			product, err := products.FindProductByID(ctx, item.ProductID)
			if err != nil {
				if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "cart references a product that no longer exists").
						WithDetails(map[string]any{"product_id": item.ProductID})
				}
				return err
			}

			// Early shortfall detection; the guarded UPDATE below remains
			// the authoritative check under concurrency.
			if item.Qty > product.Stock {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for product").
					WithDetails(map[string]any{"product_id": product.ID, "requested": item.Qty, "available": product.Stock})
			}

			lines = append(lines, models.OrderLine{
				ProductID: product.ID,
				Qty:       item.Qty,
				Price:     product.Price,
			})
			requests = append(requests, stock.Request{ProductID: product.ID, Qty: item.Qty})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
		}

		order := &models.Order{
			UserID: userID,
			Total:  total,
			Status: enums.OrderStatusPending,
			Lines:  lines,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}

		if err := stock.Decrement(ctx, tx, requests); err != nil {
			return err
		}

		if err := carts.DeleteAllForUser(ctx, userID); err != nil {
			return err
		}

		result = &Result{OrderID: order.ID, Total: order.Total, Status: order.Status.String()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithUserID(ctx, userID.String())
	s.logg.Info(logCtx, fmt.Sprintf("checkout complete order=%s total=%s", result.OrderID, result.Total))
	return result, nil
}
