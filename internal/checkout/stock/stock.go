// Package stock performs the check-and-decrement step of checkout against
// the stock column on products. The conditional UPDATE is the only write path
// for sold inventory, so concurrent checkouts can never drive stock negative.
package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mgardella/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
)

// Request asks for qty units of one product.
type Request struct {
	ProductID uuid.UUID
	Qty       int
}

// Decrement applies every request inside the caller's transaction. Each
// product row is updated with "stock = stock - qty" guarded by "stock >= qty";
// a guard miss distinguishes a vanished product from a shortfall. Any failure
// leaves the transaction for the caller to roll back.
func Decrement(ctx context.Context, tx *gorm.DB, requests []Request) error {
	if tx == nil {
		return fmt.Errorf("transaction handle required")
	}

	for _, req := range requests {
		if req.Qty < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": req.ProductID})
		}

		result := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock >= ?", req.ProductID, req.Qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", req.Qty))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.WithContext(ctx).
				Model(&models.Product{}).
				Where("id = ?", req.ProductID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product no longer exists").
					WithDetails(map[string]any{"product_id": req.ProductID})
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for product").
				WithDetails(map[string]any{"product_id": req.ProductID})
		}
	}
	return nil
}
