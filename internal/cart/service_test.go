package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mgardella/storefront-backend/internal/catalog"
	"github.com/mgardella/storefront-backend/pkg/db"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
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
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedProduct(t *testing.T, conn *gorm.DB, price decimal.Decimal, stock int) *models.Product {
	t.Helper()

	category := models.Category{Name: "Fixtures " + uuid.NewString()[:8]}
	if err := conn.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	product := models.Product{
		CategoryID: category.ID,
		Name:       "Widget " + uuid.NewString()[:8],
		Price:      price,
		Stock:      stock,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return &product
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := openTestDB(t)
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn), db.NewWithConn(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func TestAddItemCreatesThenIncrements(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, conn, decimal.NewFromFloat(4.5), 10)

	item, err := svc.AddItem(ctx, userID, product.ID, 2)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.Qty != 2 {
		t.Fatalf("expected qty 2, got %d", item.Qty)
	}

	item, err = svc.AddItem(ctx, userID, product.ID, 3)
	if err != nil {
		t.Fatalf("re-add item: %v", err)
	}
	if item.Qty != 5 {
		t.Fatalf("expected qty 5, got %d", item.Qty)
	}

	var count int64
	if err := conn.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row, got %d", count)
	}
}

// racingCartRepo replays the first-add race: the initial read sees no row,
// the insert collides with a row committed in between, the re-read finds it.
type racingCartRepo struct {
	item    *models.CartItem
	finds   int
	creates int
}

func (r *racingCartRepo) WithTx(*gorm.DB) Repository { return r }

func (r *racingCartRepo) FindItem(context.Context, uuid.UUID, uuid.UUID) (*models.CartItem, error) {
	r.finds++
	if r.finds == 1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	row := *r.item
	return &row, nil
}

func (r *racingCartRepo) CreateItem(context.Context, *models.CartItem) error {
	r.creates++
	return errors.New("UNIQUE constraint failed: cart_items.user_id, cart_items.product_id")
}

func (r *racingCartRepo) UpdateItemQty(_ context.Context, _ uuid.UUID, qty int) error {
	r.item.Qty = qty
	return nil
}

func (r *racingCartRepo) ListByUser(context.Context, uuid.UUID) ([]models.CartItem, error) {
	return nil, nil
}
func (r *racingCartRepo) DeleteItem(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, nil
}
func (r *racingCartRepo) DeleteAllForUser(context.Context, uuid.UUID) error { return nil }

type passthroughRunner struct{}

func (passthroughRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixedProductFinder struct{ product *models.Product }

func (f fixedProductFinder) FindProductByID(context.Context, uuid.UUID) (*models.Product, error) {
	return f.product, nil
}

func TestAddItemRetriesAfterLosingInsertRace(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	productID := uuid.New()

	repo := &racingCartRepo{
		item: &models.CartItem{ID: uuid.New(), UserID: userID, ProductID: productID, Qty: 1},
	}
	svc := &service{
		repo:     repo,
		products: fixedProductFinder{product: &models.Product{ID: productID, Price: decimal.NewFromInt(5)}},
		dbc:      passthroughRunner{},
	}

	item, err := svc.AddItem(ctx, userID, productID, 2)
	if err != nil {
		t.Fatalf("losing the insert race must not surface an error: %v", err)
	}
	if item.Qty != 3 {
		t.Fatalf("expected the retry to increment to qty 3, got %d", item.Qty)
	}
	if repo.creates != 1 {
		t.Fatalf("expected a single insert attempt, got %d", repo.creates)
	}
	if repo.finds != 2 {
		t.Fatalf("expected a re-read after the collision, got %d reads", repo.finds)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestAddItemRejectsZeroQty(t *testing.T) {
	svc, conn := newTestService(t)
	product := seedProduct(t, conn, decimal.NewFromInt(3), 5)

	_, err := svc.AddItem(context.Background(), uuid.New(), product.ID, 0)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestRemoveItemAbsent(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestViewTotals(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first := seedProduct(t, conn, decimal.NewFromFloat(10.00), 10)
	second := seedProduct(t, conn, decimal.NewFromFloat(3.50), 10)

	if _, err := svc.AddItem(ctx, userID, first.ID, 2); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if _, err := svc.AddItem(ctx, userID, second.ID, 1); err != nil {
		t.Fatalf("add second: %v", err)
	}

	view, err := svc.View(ctx, userID)
	if err != nil {
		t.Fatalf("view cart: %v", err)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(view.Items))
	}
	if want := decimal.NewFromFloat(23.50); !view.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, view.Total)
	}
}

func TestViewEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)

	view, err := svc.View(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("view cart: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(view.Items))
	}
	if !view.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", view.Total)
	}
}
