package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/larriantoniy/tg_webapp_api/internal/adapters/httpapi"
	"github.com/larriantoniy/tg_webapp_api/internal/adapters/redislock"
	"github.com/larriantoniy/tg_webapp_api/internal/adapters/tg"
	"github.com/larriantoniy/tg_webapp_api/internal/broker"
	"github.com/larriantoniy/tg_webapp_api/internal/classifier"
	"github.com/larriantoniy/tg_webapp_api/internal/config"
	"github.com/larriantoniy/tg_webapp_api/internal/credentials"
	"github.com/larriantoniy/tg_webapp_api/internal/metrics"
	"github.com/larriantoniy/tg_webapp_api/internal/ports"
	"github.com/larriantoniy/tg_webapp_api/internal/useCases"
	"github.com/larriantoniy/tg_webapp_api/internal/webview"
)

const (
	envDev  = "dev"
	envProd = "prod"

	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := setupLogger(cfg.Env)
	if cfg.Env != envDev {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()

	registry, err := webview.NewRegistry(cfg.IntegrationsPath)
	if err != nil {
		logger.Error("integration registry", "error", err)
		os.Exit(1)
	}

	prober := tg.NewProxyProber(logger, cfg.Session.ProbeTimeout)
	opener := tg.NewOpener(logger, prober, cfg.Session.TDLibVerbosity)
	legacy := tg.NewLegacyStore(logger)
	normalizer := credentials.NewNormalizer()

	locker, closeLocker := setupLocker(cfg.Redis, logger)
	defer closeLocker()

	b := broker.New(opener, legacy, normalizer, m, logger, cfg.Session.RetryBackoff)
	runner := useCases.NewRunner(b, locker, m, logger, cfg.Session.RequestTimeout)
	svc := useCases.NewService(runner, normalizer, registry, webview.NewGateway(logger), legacy, logger)

	router := httpapi.NewRouter(httpapi.Options{
		Service:         svc,
		Classifier:      classifier.New(logger),
		Metrics:         m,
		Log:             logger,
		DefaultPlatform: cfg.Session.DefaultPlatform,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("http server started", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}

	logger.Info("exit")
}

// setupLocker поднимает аренду артефактов в Redis; без URL работает без аренды
func setupLocker(cfg config.Redis, logger *slog.Logger) (ports.SessionLocker, func()) {
	if cfg.URL == "" {
		logger.Info("redis url is empty, session lease disabled")
		return redislock.Nop{}, func() {}
	}

	locker, err := redislock.NewFromURL(cfg.URL, cfg.LeaseTTL, logger)
	if err != nil {
		logger.Error("redis lease disabled", "error", err)
		return redislock.Nop{}, func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := locker.Ping(ctx); err != nil {
		logger.Warn("redis is unreachable, lease fails open until it recovers", "error", err)
	}

	return locker, func() {
		if err := locker.Close(); err != nil {
			logger.Debug("redis close", "error", err)
		}
	}
}

func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envDev:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return logger
}
