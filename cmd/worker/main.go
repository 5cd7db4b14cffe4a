package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avdeevlav/sborka-backend/internal/notifications"
	"github.com/avdeevlav/sborka-backend/pkg/config"
	"github.com/avdeevlav/sborka-backend/pkg/db"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
	"github.com/avdeevlav/sborka-backend/pkg/metrics"
	"github.com/avdeevlav/sborka-backend/pkg/telegram"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "notification-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, telegram.WithBaseURL(cfg.Telegram.BaseURL))
	if err != nil {
		logg.Error(ctx, "failed to create telegram client", err)
		os.Exit(1)
	}

	worker, err := notifications.NewWorker(
		notifications.NewRepository(dbClient.DB()),
		telegramClient,
		cfg.Telegram.AdminChatID,
		cfg.Worker,
		logg,
		metrics.NewNotificationMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(ctx, "failed to create notification worker", err)
		os.Exit(1)
	}

	if cfg.Worker.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.Worker.MetricsAddr, logg)
	}

	logg.Info(logg.WithField(ctx, "poll_interval", cfg.Worker.PollInterval.String()), "starting notification worker")

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "notification worker shut down")
}

func serveMetrics(ctx context.Context, addr string, logg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}
