package main

import (
	"context"
	"net/http"
	"os"

	"github.com/afyakart/storefront-backend/api/routes"
	"github.com/afyakart/storefront-backend/internal/cart"
	"github.com/afyakart/storefront-backend/internal/catalog"
	"github.com/afyakart/storefront-backend/internal/customers"
	"github.com/afyakart/storefront-backend/internal/inventory"
	"github.com/afyakart/storefront-backend/internal/mpesa"
	"github.com/afyakart/storefront-backend/internal/notifications"
	"github.com/afyakart/storefront-backend/internal/orders"
	"github.com/afyakart/storefront-backend/pkg/config"
	"github.com/afyakart/storefront-backend/pkg/db"
	"github.com/afyakart/storefront-backend/pkg/logger"
	"github.com/afyakart/storefront-backend/pkg/metrics"
	"github.com/afyakart/storefront-backend/pkg/migrate"
	"github.com/afyakart/storefront-backend/pkg/outbox"
	"github.com/afyakart/storefront-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	publisher := outbox.NewService(outbox.NewRepository(gormDB), logg)
	catalogRepo := catalog.NewRepository(gormDB)

	cartService, err := cart.NewService(cart.NewRepository(gormDB), cart.NewCouponRepo(gormDB), catalogRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(gormDB), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(
		orders.NewRepository(gormDB),
		cart.NewRepository(gormDB),
		catalogRepo,
		inventoryService,
		dbClient,
		publisher,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	darajaClient, err := mpesa.NewClient(cfg.Mpesa)
	if err != nil {
		logg.Error(context.Background(), "failed to create daraja client", err)
		os.Exit(1)
	}

	mpesaService, err := mpesa.NewService(
		mpesa.NewRepository(gormDB),
		darajaClient,
		orderService,
		orders.NewRepository(gormDB),
		dbClient,
		publisher,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create mpesa service", err)
		os.Exit(1)
	}

	customerService, err := customers.NewService(customers.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Cart:          cartService,
			Customers:     customerService,
			Inventory:     inventoryService,
			Orders:        orderService,
			Mpesa:         mpesaService,
			Notifications: notificationService,
			Metrics:       metrics.NewStorefrontMetrics(prometheus.DefaultRegisterer),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
