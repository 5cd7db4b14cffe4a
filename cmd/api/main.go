package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avdeevlav/sborka-backend/api/routes"
	"github.com/avdeevlav/sborka-backend/internal/cart"
	"github.com/avdeevlav/sborka-backend/internal/catalog"
	"github.com/avdeevlav/sborka-backend/internal/checkout"
	"github.com/avdeevlav/sborka-backend/internal/inventory"
	"github.com/avdeevlav/sborka-backend/internal/merge"
	"github.com/avdeevlav/sborka-backend/internal/notifications"
	"github.com/avdeevlav/sborka-backend/internal/orders"
	"github.com/avdeevlav/sborka-backend/internal/pricing"
	"github.com/avdeevlav/sborka-backend/internal/users"
	"github.com/avdeevlav/sborka-backend/pkg/config"
	"github.com/avdeevlav/sborka-backend/pkg/db"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
	"github.com/avdeevlav/sborka-backend/pkg/metrics"
	"github.com/avdeevlav/sborka-backend/pkg/migrate"
	"github.com/avdeevlav/sborka-backend/pkg/redis"
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

	catalogRepo := catalog.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	usersRepo := users.NewRepository(gormDB)
	notificationsRepo := notifications.NewRepository(gormDB)

	catalogService, err := catalog.NewService(catalogRepo, redisClient, cfg.Catalog.CacheTTL, logg)
	if err != nil {
		fatal(logg, "failed to create catalog service", err)
	}

	resolver, err := pricing.NewResolver(catalogRepo)
	if err != nil {
		fatal(logg, "failed to create pricing resolver", err)
	}

	cartService, err := cart.NewService(cartRepo, resolver, catalogRepo)
	if err != nil {
		fatal(logg, "failed to create cart service", err)
	}

	ledger, err := inventory.NewLedger(gormDB, logg)
	if err != nil {
		fatal(logg, "failed to create inventory ledger", err)
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		fatal(logg, "failed to create notifications service", err)
	}

	checkoutService, err := checkout.NewService(
		cartRepo,
		catalogRepo,
		ordersRepo,
		ledger,
		dbClient,
		notificationsService,
		logg,
		metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		fatal(logg, "failed to create checkout service", err)
	}

	ordersService, err := orders.NewService(ordersRepo, catalogRepo, ledger, dbClient, cartService)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}

	mergeService, err := merge.NewService(cartRepo, ordersRepo, dbClient, logg)
	if err != nil {
		fatal(logg, "failed to create merge service", err)
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:        usersRepo,
		JWTConfig:   cfg.JWT,
		PasswordCfg: cfg.Password,
		Logger:      logg,
	})
	if err != nil {
		fatal(logg, "failed to create users service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Users:    usersService,
			Catalog:  catalogService,
			Cart:     cartService,
			Checkout: checkoutService,
			Orders:   ordersService,
			Merge:    mergeService,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
