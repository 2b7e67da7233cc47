package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Tracing adds an OpenTelemetry span per redis command.
	Tracing bool
}

func NewRedisClient(opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if opts.Tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("cache: instrument redis tracing: %w", err)
		}
	}

	return client, nil
}

// WaitReady pings redis until it answers, backing off exponentially (capped
// at 10s) between attempts.
func WaitReady(ctx context.Context, client redis.UniversalClient, attempts int) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			slog.InfoContext(ctx, "redis ready", "attempt", i+1)
			return nil
		}

		backoff := time.Duration(1<<uint(i)) * 250 * time.Millisecond
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
		slog.WarnContext(ctx, "redis not ready", "attempt", i+1, "retry_in", backoff, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("cache: redis not reachable after %d attempts: %w", attempts, lastErr)
}

func GenerateKey(serviceName, operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", serviceName, operation, key)
}
