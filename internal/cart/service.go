package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mgardella/storefront-backend/pkg/db"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
)

// Service manages the per-user cart. Quantities are provisional; nothing here
// touches product stock.
type Service interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	View(ctx context.Context, userID uuid.UUID) (*View, error)
}

// View is the rendered cart: items joined with their current products plus a
// running total at today's prices.
type View struct {
	Items []ViewItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// ViewItem is one cart line with its product snapshot.
type ViewItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Qty         int             `json:"qty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ProductFinder is the slice of the catalog the cart needs.
type ProductFinder interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     Repository
	products ProductFinder
	dbc      txRunner
}

// NewService builds the cart service.
func NewService(repo Repository, products ProductFinder, dbc *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if dbc == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, products: products, dbc: dbc}, nil
}

// AddItem upserts a (user, product) line. A repeat add for the same product
// increments the stored quantity rather than inserting a second row. Stock is
// not checked here; availability is settled at checkout.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.CartItem, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		return nil, err
	}

	var out *models.CartItem
	upsert := func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindItem(ctx, userID, productID)
		if err != nil {
			if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				return err
			}
			item := &models.CartItem{UserID: userID, ProductID: productID, Qty: qty}
			if err := repo.CreateItem(ctx, item); err != nil {
				return err
			}
			out = item
			return nil
		}

		existing.Qty += qty
		if err := repo.UpdateItemQty(ctx, existing.ID, existing.Qty); err != nil {
			return err
		}
		out = existing
		return nil
	}

	err := s.dbc.WithTx(ctx, upsert)
	if db.IsUniqueViolation(err, "") {
		// Two first-adds raced and the insert lost to a row that did not
		// exist at read time. The transaction is already rolled back, so
		// rerun the upsert; it now finds the row and increments it.
		err = s.dbc.WithTx(ctx, upsert)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem deletes the line outright regardless of quantity.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	affected, err := s.repo.DeleteItem(ctx, userID, productID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*View, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &View{Items: make([]ViewItem, 0, len(items)), Total: decimal.Zero}
	for _, item := range items {
		if item.Product == nil {
			// Product rows are never hard-deleted while referenced, but a
			// missing preload should not take the whole cart down.
			continue
		}
		subtotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Qty)))
		view.Items = append(view.Items, ViewItem{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			UnitPrice:   item.Product.Price,
			Qty:         item.Qty,
			Subtotal:    subtotal,
		})
		view.Total = view.Total.Add(subtotal)
	}
	return view, nil
}
