package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mgardella/storefront-backend/pkg/db"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/pagination"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderLine{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := openTestDB(t)
	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func TestCreateCategoryDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateCategory(ctx, "Books"); err != nil {
		t.Fatalf("create category: %v", err)
	}

	_, err := svc.CreateCategory(ctx, "Books")
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Books")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	cases := []struct {
		name  string
		input ProductInput
		code  pkgerrors.Code
	}{
		{
			name:  "negative price",
			input: ProductInput{CategoryID: category.ID, Name: "Paperback", Price: decimal.NewFromInt(-1), Stock: 3},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "negative stock",
			input: ProductInput{CategoryID: category.ID, Name: "Paperback", Price: decimal.NewFromInt(5), Stock: -1},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:  "unknown category",
			input: ProductInput{CategoryID: uuid.New(), Name: "Paperback", Price: decimal.NewFromInt(5), Stock: 3},
			code:  pkgerrors.CodeNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tc.input)
			if !pkgerrors.Is(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestDeleteCategoryBlockedByProducts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Books")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := svc.CreateProduct(ctx, ProductInput{
		CategoryID: category.ID,
		Name:       "Paperback",
		Price:      decimal.NewFromInt(9),
		Stock:      4,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	err = svc.DeleteCategory(ctx, category.ID)
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestDeleteProductBlockedByOrderLines(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Books")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	product, err := svc.CreateProduct(ctx, ProductInput{
		CategoryID: category.ID,
		Name:       "Paperback",
		Price:      decimal.NewFromInt(9),
		Stock:      4,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	order := models.Order{UserID: uuid.New(), Total: decimal.NewFromInt(9)}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	line := models.OrderLine{OrderID: order.ID, ProductID: product.ID, Qty: 1, Price: product.Price}
	if err := conn.Create(&line).Error; err != nil {
		t.Fatalf("seed order line: %v", err)
	}

	err = svc.DeleteProduct(ctx, product.ID)
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestDeleteProductClearsCartRows(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Books")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	product, err := svc.CreateProduct(ctx, ProductInput{
		CategoryID: category.ID,
		Name:       "Paperback",
		Price:      decimal.NewFromInt(9),
		Stock:      4,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	keeper, err := svc.CreateProduct(ctx, ProductInput{
		CategoryID: category.ID,
		Name:       "Hardcover",
		Price:      decimal.NewFromInt(19),
		Stock:      2,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	shopper := uuid.New()
	rows := []models.CartItem{
		{UserID: shopper, ProductID: product.ID, Qty: 2},
		{UserID: uuid.New(), ProductID: product.ID, Qty: 1},
		{UserID: shopper, ProductID: keeper.ID, Qty: 1},
	}
	for i := range rows {
		if err := conn.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed cart item: %v", err)
		}
	}

	if err := svc.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("delete product with carted rows: %v", err)
	}

	var orphaned int64
	if err := conn.Model(&models.CartItem{}).
		Where("product_id = ?", product.ID).
		Count(&orphaned).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if orphaned != 0 {
		t.Fatalf("expected cart rows for the deleted product to be gone, found %d", orphaned)
	}

	var remaining int64
	if err := conn.Model(&models.CartItem{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected the unrelated cart row to survive, found %d rows", remaining)
	}

	if _, err := svc.GetProduct(ctx, product.ID); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestUpdateProductPartialPatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Books")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	product, err := svc.CreateProduct(ctx, ProductInput{
		CategoryID: category.ID,
		Name:       "Paperback",
		Price:      decimal.NewFromInt(9),
		Stock:      4,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	newStock := 10
	updated, err := svc.UpdateProduct(ctx, product.ID, ProductPatch{Stock: &newStock})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Stock != 10 {
		t.Fatalf("expected stock 10, got %d", updated.Stock)
	}
	if updated.Name != "Paperback" {
		t.Fatalf("name changed unexpectedly: %q", updated.Name)
	}
	if !updated.Price.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("price changed unexpectedly: %s", updated.Price)
	}
}

func TestListProductsPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, "Books")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := svc.CreateProduct(ctx, ProductInput{
			CategoryID: category.ID,
			Name:       "Book " + uuid.NewString()[:8],
			Price:      decimal.NewFromInt(5),
			Stock:      2,
		}); err != nil {
			t.Fatalf("create product: %v", err)
		}
	}

	page, cursor, err := svc.ListProducts(ctx, pagination.Params{Limit: 3})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 products, got %d", len(page))
	}
	if cursor == "" {
		t.Fatal("expected next cursor")
	}

	rest, cursor, err := svc.ListProducts(ctx, pagination.Params{Limit: 3, Cursor: cursor})
	if err != nil {
		t.Fatalf("list products page 2: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("expected 2 products, got %d", len(rest))
	}
	if cursor != "" {
		t.Fatalf("expected empty cursor, got %q", cursor)
	}
}
