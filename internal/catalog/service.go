package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mgardella/storefront-backend/pkg/db"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/pagination"
)

// Service exposes catalog browsing plus admin maintenance of categories and
// products.
type Service interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoryProducts(ctx context.Context, categoryID uuid.UUID) (*models.Category, []models.Product, error)
	ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, string, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)

	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	RenameCategory(ctx context.Context, id uuid.UUID, name string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// ProductInput carries the fields required to create a product.
type ProductInput struct {
	CategoryID  uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// ProductPatch carries optional updates; nil fields are left untouched.
type ProductPatch struct {
	CategoryID  *uuid.UUID
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

// txRunner is the transactional slice of db.Client the service needs.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	dbc  txRunner
}

// NewService builds the catalog service.
func NewService(repo Repository, dbc *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbc == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbc: dbc}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *service) CategoryProducts(ctx context.Context, categoryID uuid.UUID) (*models.Category, []models.Product, error) {
	category, err := s.repo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	products, err := s.repo.ListProductsByCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	return category, products, nil
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	products, err := s.repo.ListProducts(ctx, limit+1, cursor)
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(products) > limit {
		products = products[:limit]
		last := products[len(products)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return products, nextCursor, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.repo.FindProductByID(ctx, id)
}

func (s *service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	category, err := s.repo.CreateCategory(ctx, &models.Category{Name: name})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category name already exists")
		}
		return nil, err
	}
	return category, nil
}

func (s *service) RenameCategory(ctx context.Context, id uuid.UUID, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = name
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category name already exists")
		}
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes an empty category. Deletion is blocked while any
// product still references it, so no product can be orphaned.
func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindCategoryByID(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category has products")
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	if err := validateProductFields(input.Name, input.Price, input.Stock); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindCategoryByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		CategoryID:  input.CategoryID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
	}
	return s.repo.CreateProduct(ctx, product)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.CategoryID != nil {
		if _, err := s.repo.FindCategoryByID(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = *patch.CategoryID
	}
	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}

	if err := validateProductFields(product.Name, product.Price, product.Stock); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product that no order line references. The guard
// keeps historical order totals reconstructible. Cart rows pointing at the
// product are dropped in the same transaction; carts tolerate products
// disappearing underneath them, the FK does not.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindProductByID(ctx, id); err != nil {
		return err
	}

	return s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		count, err := repo.CountOrderLinesForProduct(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by orders")
		}

		if err := repo.DeleteCartItemsForProduct(ctx, id); err != nil {
			return err
		}
		return repo.DeleteProduct(ctx, id)
	})
}

func validateProductFields(name string, price decimal.Decimal, stock int) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price must be non-negative")
	}
	if stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product stock must be non-negative")
	}
	return nil
}
