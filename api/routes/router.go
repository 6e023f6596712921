// Package routes assembles the HTTP surface.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mgardella/storefront-backend/api/controllers"
	"github.com/mgardella/storefront-backend/api/middleware"
	"github.com/mgardella/storefront-backend/pkg/auth/session"
	"github.com/mgardella/storefront-backend/pkg/config"
	"github.com/mgardella/storefront-backend/pkg/enums"
	"github.com/mgardella/storefront-backend/pkg/logger"
	"github.com/mgardella/storefront-backend/pkg/metrics"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.HTTPMetrics
	Sessions session.AccessSessionChecker

	RateLimitStore middleware.RateLimitStore

	Health       *controllers.HealthController
	Auth         *controllers.AuthController
	Catalog      *controllers.CatalogController
	Cart         *controllers.CartController
	Checkout     *controllers.CheckoutController
	Orders       *controllers.OrdersController
	AdminUsers   *controllers.AdminUsersController
	AdminCatalog *controllers.AdminCatalogController
	AdminOrders  *controllers.AdminOrdersController

	AllowedOrigins []string
}

// New builds the chi router with the full middleware chain and route tree.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(deps.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/health/live", deps.Health.Live)
	r.Get("/health/ready", deps.Health.Ready)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	authn := middleware.Authenticate(deps.Config.JWT, deps.Sessions, deps.Logger)
	adminOnly := middleware.RequireRole(enums.UserRoleAdmin, deps.Logger)

	loginLimit := middleware.AuthRateLimit(deps.RateLimitStore, middleware.RateLimitPolicy{
		Name:       "login",
		Window:     deps.Config.AuthRateLimit.LoginWindow,
		IPLimit:    deps.Config.AuthRateLimit.LoginIPLimit,
		EmailLimit: deps.Config.AuthRateLimit.LoginEmailLimit,
	}, deps.Logger)
	registerLimit := middleware.AuthRateLimit(deps.RateLimitStore, middleware.RateLimitPolicy{
		Name:       "register",
		Window:     deps.Config.AuthRateLimit.RegisterWindow,
		IPLimit:    deps.Config.AuthRateLimit.RegisterIPLimit,
		EmailLimit: deps.Config.AuthRateLimit.RegisterEmailLimit,
	}, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", deps.Catalog.ListCategories)
			r.Get("/categories/{categoryID}/products", deps.Catalog.CategoryProducts)
			r.Get("/products", deps.Catalog.ListProducts)
			r.Get("/products/{productID}", deps.Catalog.GetProduct)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit).Post("/register", deps.Auth.Register)
			r.With(loginLimit).Post("/login", deps.Auth.Login)
			r.Post("/refresh", deps.Auth.Refresh)
			r.Post("/logout", deps.Auth.Logout)
			r.With(loginLimit).Post("/reset-password", deps.Auth.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/me", deps.Auth.Me)

			r.Get("/cart", deps.Cart.View)
			r.Post("/cart/items", deps.Cart.AddItem)
			r.Delete("/cart/items/{productID}", deps.Cart.RemoveItem)

			r.Post("/checkout", deps.Checkout.Checkout)

			r.Get("/orders", deps.Orders.History)
			r.Get("/orders/{orderID}", deps.Orders.Track)
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(loginLimit).Post("/auth/login", deps.Auth.AdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(authn, adminOnly)

			r.Route("/users", func(r chi.Router) {
				r.Post("/", deps.AdminUsers.Create)
				r.Get("/", deps.AdminUsers.List)
				r.Get("/{userID}", deps.AdminUsers.Get)
				r.Patch("/{userID}", deps.AdminUsers.Update)
				r.Delete("/{userID}", deps.AdminUsers.Delete)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", deps.AdminCatalog.ListCategories)
				r.Post("/", deps.AdminCatalog.CreateCategory)
				r.Patch("/{categoryID}", deps.AdminCatalog.UpdateCategory)
				r.Delete("/{categoryID}", deps.AdminCatalog.DeleteCategory)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", deps.AdminCatalog.ListProducts)
				r.Post("/", deps.AdminCatalog.CreateProduct)
				r.Patch("/{productID}", deps.AdminCatalog.UpdateProduct)
				r.Delete("/{productID}", deps.AdminCatalog.DeleteProduct)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", deps.AdminOrders.List)
				r.Get("/{orderID}", deps.AdminOrders.Get)
				r.Post("/{orderID}/status", deps.AdminOrders.UpdateStatus)
			})

			r.Get("/reports/sales", deps.AdminOrders.SalesReport)
		})
	})

	return r
}
