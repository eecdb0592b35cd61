// Command server starts the admissions scoring HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/httpserver"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/observability"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/queue/redpanda"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/repo/postgres"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/app"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/config"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/service/ratelimiter"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL, cfg.DBConnectMaxElapsed)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()

	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer producer.Close()

	subRepo := postgres.NewSubmissionRepo(pool)
	limiter := ratelimiter.NewRedisLuaLimiter(rdb, ratelimiter.NewBucketConfigFromPerMinute(cfg.RateLimitPerMin))

	intakeSvc := usecase.NewIntakeService(subRepo, producer)
	resultSvc := usecase.NewResultService(subRepo)

	srv := httpserver.NewServer(intakeSvc, resultSvc, limiter, cfg.JotformWebhookSecret, cfg.DecisionSecret)
	handler := app.BuildRouter(cfg, srv, app.BuildReadinessChecks(pool, rdb))

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
