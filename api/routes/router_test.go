package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgardella/storefront-backend/api/controllers"
	"github.com/mgardella/storefront-backend/internal/auth"
	"github.com/mgardella/storefront-backend/internal/cart"
	"github.com/mgardella/storefront-backend/internal/catalog"
	"github.com/mgardella/storefront-backend/internal/checkout"
	"github.com/mgardella/storefront-backend/internal/orders"
	"github.com/mgardella/storefront-backend/internal/users"
	pkgauth "github.com/mgardella/storefront-backend/pkg/auth"
	"github.com/mgardella/storefront-backend/pkg/config"
	"github.com/mgardella/storefront-backend/pkg/db/models"
	"github.com/mgardella/storefront-backend/pkg/enums"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
	"github.com/mgardella/storefront-backend/pkg/pagination"
)

// Service stubs. Each returns the zero path the routing tests need; the
// service logic itself is covered in the internal packages.

type stubCatalog struct{}

func (stubCatalog) ListCategories(context.Context) ([]models.Category, error) { return nil, nil }
func (stubCatalog) CategoryProducts(context.Context, uuid.UUID) (*models.Category, []models.Product, error) {
	return &models.Category{}, nil, nil
}
func (stubCatalog) ListProducts(context.Context, pagination.Params) ([]models.Product, string, error) {
	return nil, "", nil
}
func (stubCatalog) GetProduct(context.Context, uuid.UUID) (*models.Product, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}
func (stubCatalog) CreateCategory(context.Context, string) (*models.Category, error) {
	return &models.Category{}, nil
}
func (stubCatalog) RenameCategory(context.Context, uuid.UUID, string) (*models.Category, error) {
	return &models.Category{}, nil
}
func (stubCatalog) DeleteCategory(context.Context, uuid.UUID) error { return nil }
func (stubCatalog) CreateProduct(context.Context, catalog.ProductInput) (*models.Product, error) {
	return &models.Product{}, nil
}
func (stubCatalog) UpdateProduct(context.Context, uuid.UUID, catalog.ProductPatch) (*models.Product, error) {
	return &models.Product{}, nil
}
func (stubCatalog) DeleteProduct(context.Context, uuid.UUID) error { return nil }

type stubCart struct{}

func (stubCart) AddItem(context.Context, uuid.UUID, uuid.UUID, int) (*models.CartItem, error) {
	return &models.CartItem{}, nil
}
func (stubCart) RemoveItem(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (stubCart) View(context.Context, uuid.UUID) (*cart.View, error) {
	return &cart.View{Total: decimal.Zero}, nil
}

type stubCheckout struct{}

func (stubCheckout) Checkout(context.Context, uuid.UUID) (*checkout.Result, error) {
	return &checkout.Result{OrderID: uuid.New(), Total: decimal.NewFromInt(10), Status: "pending"}, nil
}

type stubOrders struct{}

func (stubOrders) HistoryForUser(context.Context, uuid.UUID) ([]models.Order, error) {
	return nil, nil
}
func (stubOrders) TrackForUser(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}
func (stubOrders) List(context.Context, pagination.Params) ([]models.Order, string, error) {
	return nil, "", nil
}
func (stubOrders) Get(context.Context, uuid.UUID) (*models.Order, error) { return &models.Order{}, nil }
func (stubOrders) UpdateStatus(context.Context, uuid.UUID, enums.OrderStatus) (*models.Order, error) {
	return &models.Order{}, nil
}
func (stubOrders) SalesReport(context.Context) (*orders.SalesReport, error) {
	return &orders.SalesReport{TotalSales: decimal.Zero}, nil
}

type stubUsers struct{}

func (stubUsers) Create(context.Context, users.CreateInput) (*models.User, error) {
	return &models.User{}, nil
}
func (stubUsers) List(context.Context) ([]models.User, error)           { return nil, nil }
func (stubUsers) Get(context.Context, uuid.UUID) (*models.User, error)  { return &models.User{}, nil }
func (stubUsers) Update(context.Context, uuid.UUID, users.UpdateInput) (*models.User, error) {
	return &models.User{}, nil
}
func (stubUsers) Delete(context.Context, uuid.UUID) error { return nil }

type stubAuth struct{}

func (stubAuth) Register(context.Context, auth.RegisterInput) (*auth.Session, error) {
	return &auth.Session{}, nil
}
func (stubAuth) Login(context.Context, auth.LoginInput) (*auth.Session, error) {
	return &auth.Session{}, nil
}
func (stubAuth) AdminLogin(context.Context, auth.LoginInput) (*auth.Session, error) {
	return &auth.Session{}, nil
}
func (stubAuth) Refresh(context.Context, auth.RefreshInput) (*auth.Session, error) {
	return &auth.Session{}, nil
}
func (stubAuth) Logout(context.Context, string) error { return nil }
func (stubAuth) ResetPassword(context.Context, auth.ResetPasswordInput) error {
	return nil
}
func (stubAuth) Profile(context.Context, uuid.UUID) (*models.User, error) {
	return &models.User{Role: enums.UserRoleCustomer}, nil
}

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "router-test-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 30,
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	cfg := &config.Config{JWT: testJWTConfig()}

	return New(Deps{
		Config:   cfg,
		Logger:   logg,
		Sessions: stubSessions{},

		Health:       controllers.NewHealthController(nil, nil, logg),
		Auth:         controllers.NewAuthController(stubAuth{}, cfg.JWT, logg),
		Catalog:      controllers.NewCatalogController(stubCatalog{}, logg),
		Cart:         controllers.NewCartController(stubCart{}, logg),
		Checkout:     controllers.NewCheckoutController(stubCheckout{}, logg),
		Orders:       controllers.NewOrdersController(stubOrders{}, logg),
		AdminUsers:   controllers.NewAdminUsersController(stubUsers{}, logg),
		AdminCatalog: controllers.NewAdminCatalogController(stubCatalog{}, logg),
		AdminOrders:  controllers.NewAdminOrdersController(stubOrders{}, logg),
	})
}

func mintToken(t *testing.T, role enums.UserRole) string {
	t.Helper()

	token, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/categories", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestCartRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCartWithValidToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.UserRoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutRespondsOK(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.UserRoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAddCartItemRespondsOK(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"product_id":"` + uuid.NewString() + `","qty":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.UserRoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminTreeRejectsCustomers(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.UserRoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdminTreeAdmitsAdmins(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/reports/sales", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.UserRoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterValidatesBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"name":"Ada","email":"not-an-email","password":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}
