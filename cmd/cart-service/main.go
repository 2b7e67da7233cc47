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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
	"github.com/jcmexdev/cart-service/internal/cart-service/core/service"
	"github.com/jcmexdev/cart-service/internal/cart-service/infra/adapters/auth"
	"github.com/jcmexdev/cart-service/internal/cart-service/infra/adapters/product"
	"github.com/jcmexdev/cart-service/internal/cart-service/infra/adapters/repository"
	"github.com/jcmexdev/cart-service/internal/cart-service/infra/httpx"
	"github.com/jcmexdev/cart-service/internal/pkg/breaker"
	"github.com/jcmexdev/cart-service/internal/pkg/cache"
	"github.com/jcmexdev/cart-service/internal/pkg/config"
	"github.com/jcmexdev/cart-service/internal/pkg/httpclient"
	"github.com/jcmexdev/cart-service/internal/pkg/telemetry"
)

const redisReadyAttempts = 8

func main() {
	cfg := config.Load()
	telemetry.InitLogger(telemetry.LoggerOptions{
		Service: cfg.ServiceName,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := telemetry.NoopShutdown
	if cfg.TracingEnabled {
		var err error
		shutdownTracer, err = telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.AppEnv)
		if err != nil {
			slog.Error("failed to initialise tracer", "error", err)
			os.Exit(1)
		}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	repo, closeRepo, err := newCartRepository(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise cart store", "store", cfg.CartStore, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	client := httpclient.New(cfg.HTTPClientTimeout)
	products := newProductClient(cfg, client)
	validator := auth.NewRESTTokenValidator(client, cfg.AuthServiceURL, cfg.InternalAPIKey)

	cartService := service.NewCartService(repo, products, cfg.CartTTLDays)
	handler := httpx.NewHandler(cartService, repo)
	router := httpx.NewRouter(handler, validator)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, cfg.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("cart service HTTP running",
			"addr", cfg.HTTPAddr,
			"store", cfg.CartStore,
			"product_client", cfg.ProductClient,
			"cart_ttl", cfg.CartTTL().String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			slog.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

// newCartRepository returns the configured store and a func releasing it.
func newCartRepository(ctx context.Context, cfg config.Config) (ports.CartRepository, func(), error) {
	if cfg.CartStore == config.CartStoreMemory {
		slog.Warn("using in-memory cart store; carts are lost on restart")
		return repository.NewMemoryCartRepository(), func() {}, nil
	}

	rdb, err := cache.NewRedisClient(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Tracing:  cfg.TracingEnabled,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := cache.WaitReady(ctx, rdb, redisReadyAttempts); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	return repository.NewRedisCartRepository(rdb, cfg.ServiceName), closeFn, nil
}

func newProductClient(cfg config.Config, client *http.Client) ports.ProductClient {
	if cfg.ProductClient == config.ProductClientFake {
		slog.Warn("using fake product client")
		return product.NewFakeProductClient()
	}

	cb := breaker.New(breaker.Settings{
		Name:                 "productService",
		FailureRateThreshold: cfg.Breaker.FailureRateThreshold,
		WindowSize:           cfg.Breaker.WindowSize,
		MinimumCalls:         cfg.Breaker.MinimumCalls,
		OpenTimeout:          cfg.Breaker.OpenTimeout,
		IsExcluded:           product.IsCallerCanceled,
		OnStateChange: func(name string, from, to breaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return product.NewRESTProductClient(client, cfg.ProductServiceURL, cfg.InternalAPIKey, cb)
}
