package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/omoshop/shop-backend/api/routes"
	"github.com/omoshop/shop-backend/internal/address"
	"github.com/omoshop/shop-backend/internal/cart"
	"github.com/omoshop/shop-backend/internal/categories"
	"github.com/omoshop/shop-backend/internal/checkout"
	"github.com/omoshop/shop-backend/internal/orders"
	"github.com/omoshop/shop-backend/internal/products"
	"github.com/omoshop/shop-backend/internal/users"
	"github.com/omoshop/shop-backend/pkg/config"
	"github.com/omoshop/shop-backend/pkg/db"
	"github.com/omoshop/shop-backend/pkg/logger"
	"github.com/omoshop/shop-backend/pkg/metrics"
	"github.com/omoshop/shop-backend/pkg/migrate"
	"github.com/omoshop/shop-backend/pkg/outbox"
	"github.com/omoshop/shop-backend/pkg/redis"
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

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "api",
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	conn := dbClient.DB()

	categoryRepo := categories.NewRepository(conn)
	categoryService, err := categories.NewService(categoryRepo)
	if err != nil {
		fatal(ctx, logg, "category service", err)
	}

	productRepo := products.NewRepository(conn)
	productService, err := products.NewService(productRepo, categoryService)
	if err != nil {
		fatal(ctx, logg, "product service", err)
	}

	orderRepo := orders.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	cartService, err := cart.NewService(cartRepo, productRepo, orderRepo, logg)
	if err != nil {
		fatal(ctx, logg, "cart service", err)
	}

	addressService, err := address.NewService(address.NewRepository(conn))
	if err != nil {
		fatal(ctx, logg, "address service", err)
	}

	ordersService, err := orders.NewService(orderRepo)
	if err != nil {
		fatal(ctx, logg, "orders service", err)
	}

	usersService, err := users.NewService(users.NewRepository(conn))
	if err != nil {
		fatal(ctx, logg, "users service", err)
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		cartRepo,
		orderRepo,
		addressService,
		cartService,
		nil,
		outbox.NewService(outbox.NewRepository(conn), logg),
		metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		logg,
		cfg.Checkout.TxTimeout,
	)
	if err != nil {
		fatal(ctx, logg, "checkout service", err)
	}

	router := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		redisClient,
		checkoutService,
		ordersService,
		cartService,
		productService,
		categoryService,
		addressService,
		usersService,
	)

	port := cfg.App.Port
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"port": port}), "starting http server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "http server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatal(ctx context.Context, logg *logger.Logger, what string, err error) {
	logg.Error(ctx, "failed to create "+what, err)
	os.Exit(1)
}
