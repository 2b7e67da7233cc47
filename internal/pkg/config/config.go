package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CartStoreRedis  = "redis"
	CartStoreMemory = "memory"

	ProductClientREST = "rest"
	ProductClientFake = "fake"
)

type Config struct {
	AppEnv          string
	LogLevel        string
	ServiceName     string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	CartStore     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTLDays   int64

	AuthServiceURL    string
	ProductServiceURL string
	ProductClient     string
	InternalAPIKey    string
	HTTPClientTimeout time.Duration

	Breaker BreakerConfig

	TracingEnabled bool
}

type BreakerConfig struct {
	FailureRateThreshold float64
	WindowSize           int
	MinimumCalls         int
	OpenTimeout          time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real env vars win.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using process environment", "error", err)
	}

	return Config{
		AppEnv:          getEnv("APP_ENV", "dev"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ServiceName:     getEnv("SERVICE_NAME", "cart-service"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		CartStore:     strings.ToLower(getEnv("CART_STORE", CartStoreRedis)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CartTTLDays:   int64(getEnvInt("CART_TTL_DAYS", 7)),

		AuthServiceURL:    getEnv("AUTH_SERVICE_URL", ""),
		ProductServiceURL: strings.TrimRight(getEnv("PRODUCT_SERVICE_URL", ""), "/"),
		ProductClient:     strings.ToLower(getEnv("PRODUCT_CLIENT", ProductClientREST)),
		InternalAPIKey:    getEnv("INTERNAL_API_KEY", ""),
		HTTPClientTimeout: getEnvDuration("HTTP_CLIENT_TIMEOUT", 5*time.Second),

		Breaker: BreakerConfig{
			FailureRateThreshold: getEnvFloat("BREAKER_FAILURE_RATE", 50),
			WindowSize:           getEnvInt("BREAKER_WINDOW_SIZE", 10),
			MinimumCalls:         getEnvInt("BREAKER_MIN_CALLS", 5),
			OpenTimeout:          getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}
}

// Validate reports every setting that would keep the service from starting.
func (c Config) Validate() error {
	var errs []error

	if c.AuthServiceURL == "" {
		errs = append(errs, errors.New("AUTH_SERVICE_URL is required"))
	}

	switch c.ProductClient {
	case ProductClientREST:
		if c.ProductServiceURL == "" {
			errs = append(errs, errors.New("PRODUCT_SERVICE_URL is required when PRODUCT_CLIENT=rest"))
		}
	case ProductClientFake:
	default:
		errs = append(errs, fmt.Errorf("PRODUCT_CLIENT must be %q or %q, got %q", ProductClientREST, ProductClientFake, c.ProductClient))
	}

	switch c.CartStore {
	case CartStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when CART_STORE=redis"))
		}
	case CartStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("CART_STORE must be %q or %q, got %q", CartStoreRedis, CartStoreMemory, c.CartStore))
	}

	if c.CartTTLDays <= 0 {
		errs = append(errs, errors.New("CART_TTL_DAYS must be positive"))
	}
	if c.HTTPClientTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_CLIENT_TIMEOUT must be positive"))
	}
	if c.Breaker.FailureRateThreshold <= 0 || c.Breaker.FailureRateThreshold > 100 {
		errs = append(errs, errors.New("BREAKER_FAILURE_RATE must be in (0, 100]"))
	}
	if c.Breaker.WindowSize <= 0 || c.Breaker.MinimumCalls <= 0 {
		errs = append(errs, errors.New("BREAKER_WINDOW_SIZE and BREAKER_MIN_CALLS must be positive"))
	}
	if c.Breaker.OpenTimeout <= 0 {
		errs = append(errs, errors.New("BREAKER_OPEN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// CartTTL is the cart lifetime as a duration.
func (c Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
