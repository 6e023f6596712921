package checkout

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mgardella/storefront-backend/internal/cart"
	"github.com/mgardella/storefront-backend/internal/catalog"
	"github.com/mgardella/storefront-backend/internal/orders"
	"github.com/mgardella/storefront-backend/pkg/db"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	"github.com/mgardella/storefront-backend/pkg/enums"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

type fixture struct {
	svc  Service
	conn *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderLine{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	svc, err := NewService(
		db.NewWithConn(conn),
		cart.NewRepository(conn),
		catalog.NewRepository(conn),
		orders.NewRepository(conn),
		logg,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, conn: conn}
}

func (f *fixture) seedProduct(t *testing.T, price decimal.Decimal, stock int) *models.Product {
	t.Helper()

	category := models.Category{Name: "Fixtures " + uuid.NewString()[:8]}
	if err := f.conn.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	product := models.Product{
		CategoryID: category.ID,
		Name:       "Widget " + uuid.NewString()[:8],
		Price:      price,
		Stock:      stock,
	}
	if err := f.conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return &product
}

func (f *fixture) seedCartItem(t *testing.T, userID, productID uuid.UUID, qty int) {
	t.Helper()

	item := models.CartItem{UserID: userID, ProductID: productID, Qty: qty}
	if err := f.conn.Create(&item).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
}

func (f *fixture) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()

	var product models.Product
	if err := f.conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.Stock
}

func (f *fixture) cartCount(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()

	var count int64
	if err := f.conn.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count cart: %v", err)
	}
	return count
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()

	var count int64
	if err := f.conn.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return count
}

func TestCheckoutHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	first := f.seedProduct(t, decimal.NewFromFloat(10.00), 5)
	second := f.seedProduct(t, decimal.NewFromFloat(3.50), 5)
	f.seedCartItem(t, userID, first.ID, 2)
	f.seedCartItem(t, userID, second.ID, 1)

	result, err := f.svc.Checkout(ctx, userID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if want := decimal.NewFromFloat(23.50); !result.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, result.Total)
	}
	if result.Status != enums.OrderStatusPending.String() {
		t.Fatalf("expected pending order, got %s", result.Status)
	}

	if got := f.stockOf(t, first.ID); got != 3 {
		t.Fatalf("expected stock 3 for first product, got %d", got)
	}
	if got := f.stockOf(t, second.ID); got != 4 {
		t.Fatalf("expected stock 4 for second product, got %d", got)
	}
	if got := f.cartCount(t, userID); got != 0 {
		t.Fatalf("cart must be cleared, %d rows remain", got)
	}

	var order models.Order
	if err := f.conn.Preload("Lines").First(&order, "id = ?", result.OrderID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("expected 2 order lines, got %d", len(order.Lines))
	}
	for _, line := range order.Lines {
		if line.ProductID == first.ID && !line.Price.Equal(first.Price) {
			t.Fatalf("line price must snapshot product price, got %s", line.Price)
		}
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected EMPTY_CART, got %v", err)
	}
	if got := f.orderCount(t); got != 0 {
		t.Fatalf("no order may exist, got %d", got)
	}
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	plenty := f.seedProduct(t, decimal.NewFromInt(10), 5)
	scarce := f.seedProduct(t, decimal.NewFromInt(4), 1)
	f.seedCartItem(t, userID, plenty.ID, 1)
	f.seedCartItem(t, userID, scarce.ID, 3)

	_, err := f.svc.Checkout(ctx, userID)
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	if got := f.stockOf(t, plenty.ID); got != 5 {
		t.Fatalf("rollback must restore stock, got %d", got)
	}
	if got := f.stockOf(t, scarce.ID); got != 1 {
		t.Fatalf("rollback must restore stock, got %d", got)
	}
	if got := f.orderCount(t); got != 0 {
		t.Fatalf("no order may survive the rollback, got %d", got)
	}
	if got := f.cartCount(t, userID); got != 2 {
		t.Fatalf("cart must be intact, got %d rows", got)
	}
}

func TestCheckoutStaleProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	product := f.seedProduct(t, decimal.NewFromInt(10), 5)
	f.seedCartItem(t, userID, product.ID, 1)
	if err := f.conn.Delete(&models.Product{}, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("delete product: %v", err)
	}

	_, err := f.svc.Checkout(ctx, userID)
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if got := f.orderCount(t); got != 0 {
		t.Fatalf("no order may exist, got %d", got)
	}
}

func TestCheckoutDrainsLastUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, decimal.NewFromInt(10), 1)

	winner := uuid.New()
	loser := uuid.New()
	f.seedCartItem(t, winner, product.ID, 1)
	f.seedCartItem(t, loser, product.ID, 1)

	if _, err := f.svc.Checkout(ctx, winner); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	_, err := f.svc.Checkout(ctx, loser)
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("second checkout must fail with INSUFFICIENT_STOCK, got %v", err)
	}

	if got := f.stockOf(t, product.ID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
	if got := f.orderCount(t); got != 1 {
		t.Fatalf("exactly one order may exist, got %d", got)
	}
	if got := f.cartCount(t, loser); got != 1 {
		t.Fatalf("losing cart must be intact, got %d rows", got)
	}
}

func TestConcurrentCheckoutsOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// sqlite cannot interleave write transactions, so the pool is pinned
	// to one connection: the goroutines still race to enter checkout, the
	// store serializes the commits.
	sqlDB, err := f.conn.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	product := f.seedProduct(t, decimal.NewFromInt(10), 1)
	shoppers := []uuid.UUID{uuid.New(), uuid.New()}
	for _, shopper := range shoppers {
		f.seedCartItem(t, shopper, product.ID, 1)
	}

	results := make(chan error, len(shoppers))
	var wg sync.WaitGroup
	for _, shopper := range shoppers {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Checkout(ctx, userID)
			results <- err
		}(shopper)
	}
	wg.Wait()
	close(results)

	var wins, shortfalls int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case pkgerrors.Is(err, pkgerrors.CodeInsufficientStock):
			shortfalls++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	if wins != 1 || shortfalls != 1 {
		t.Fatalf("expected exactly one winner and one shortfall, got %d wins, %d shortfalls", wins, shortfalls)
	}

	if got := f.stockOf(t, product.ID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
	if got := f.orderCount(t); got != 1 {
		t.Fatalf("exactly one order may exist, got %d", got)
	}
}
