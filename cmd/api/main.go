package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mgardella/storefront-backend/api/controllers"
	"github.com/mgardella/storefront-backend/api/routes"
	"github.com/mgardella/storefront-backend/internal/auth"
	"github.com/mgardella/storefront-backend/internal/cart"
	"github.com/mgardella/storefront-backend/internal/catalog"
	"github.com/mgardella/storefront-backend/internal/checkout"
	"github.com/mgardella/storefront-backend/internal/orders"
	"github.com/mgardella/storefront-backend/internal/users"
	"github.com/mgardella/storefront-backend/pkg/auth/session"
	"github.com/mgardella/storefront-backend/pkg/config"
	"github.com/mgardella/storefront-backend/pkg/db"
	"github.com/mgardella/storefront-backend/pkg/logger"
	"github.com/mgardella/storefront-backend/pkg/metrics"
	"github.com/mgardella/storefront-backend/pkg/migrate"
	redisclient "github.com/mgardella/storefront-backend/pkg/redis"
)

const (
	serviceName     = "storefront-api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "service exited", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	redisClient, err := redisclient.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	userRepo := users.NewRepository(conn)

	catalogSvc, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		return err
	}
	cartSvc, err := cart.NewService(cartRepo, catalogRepo, dbClient)
	if err != nil {
		return err
	}
	checkoutSvc, err := checkout.NewService(dbClient, cartRepo, catalogRepo, orderRepo, logg)
	if err != nil {
		return err
	}
	orderSvc, err := orders.NewService(orderRepo, logg)
	if err != nil {
		return err
	}
	userSvc, err := users.NewService(userRepo, orderRepo, cfg.Password)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(userRepo, sessions, cfg.JWT, cfg.Password, logg)
	if err != nil {
		return err
	}

	httpMetrics := metrics.NewHTTPMetrics(serviceName)

	handler := routes.New(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		Metrics:        httpMetrics,
		Sessions:       sessions,
		RateLimitStore: redisClient,

		Health:       controllers.NewHealthController(dbClient, redisClient, logg),
		Auth:         controllers.NewAuthController(authSvc, cfg.JWT, logg),
		Catalog:      controllers.NewCatalogController(catalogSvc, logg),
		Cart:         controllers.NewCartController(cartSvc, logg),
		Checkout:     controllers.NewCheckoutController(checkoutSvc, logg),
		Orders:       controllers.NewOrdersController(orderSvc, logg),
		AdminUsers:   controllers.NewAdminUsersController(userSvc, logg),
		AdminCatalog: controllers.NewAdminCatalogController(catalogSvc, logg),
		AdminOrders:  controllers.NewAdminOrdersController(orderSvc, logg),
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, fmt.Sprintf("listening on %s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
