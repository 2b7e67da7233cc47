package product

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
	"github.com/jcmexdev/cart-service/internal/pkg/breaker"
	"github.com/jcmexdev/cart-service/internal/pkg/constants"
	"github.com/jcmexdev/cart-service/internal/pkg/httpclient"
)

func newClient(url string) (*RESTProductClient, *breaker.CircuitBreaker) {
	cb := breaker.New(breaker.Settings{
		Name:                 "productService",
		FailureRateThreshold: 50,
		WindowSize:           4,
		MinimumCalls:         4,
		OpenTimeout:          time.Minute,
		IsExcluded:           IsCallerCanceled,
	})
	return NewRESTProductClient(httpclient.New(2*time.Second), url, "fake-api-key", cb), cb
}

func TestGetProductByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		var gotPath, gotKey string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			gotKey = r.Header.Get(constants.HeaderXInternalAPIKey)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"prod 1","name":"Keyboard","description":"x","price":99.99,"stock":3,"created_at":"2025-01-02T03:04:05Z","extra":true}`))
		}))
		defer srv.Close()

		client, _ := newClient(srv.URL + "/products")
		p, found, err := client.GetProductByID(ctx, "prod 1")
		if err != nil || !found {
			t.Fatalf("GetProductByID() = %+v, %v, %v", p, found, err)
		}
		if gotPath != "/products/prod%201" {
			t.Fatalf("path = %q", gotPath)
		}
		if gotKey != "fake-api-key" {
			t.Fatalf("X-Internal-Api-Key = %q", gotKey)
		}
		if p.Name != "Keyboard" || !p.Price.Equal(decimal.RequireFromString("99.99")) || p.Stock != 3 {
			t.Fatalf("unexpected product: %+v", p)
		}
		if p.CreatedAt.IsZero() {
			t.Fatal("created_at not parsed")
		}
	})

	t.Run("404 is absent, not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		client, cb := newClient(srv.URL)
		for i := 0; i < 10; i++ {
			_, found, err := client.GetProductByID(ctx, "missing")
			if err != nil || found {
				t.Fatalf("GetProductByID() = found %v, err %v", found, err)
			}
		}
		if cb.State() != breaker.StateClosed {
			t.Fatalf("404s tripped the breaker: %s", cb.State())
		}
	})

	t.Run("5xx is service unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client, _ := newClient(srv.URL)
		_, _, err := client.GetProductByID(ctx, "1")
		if !errors.Is(err, entity.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
		if errors.Is(err, entity.ErrProductNotFound) {
			t.Fatal("service unavailable must not look like not found")
		}
	})

	t.Run("other 4xx is service unavailable and counted", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		client, cb := newClient(srv.URL)
		for i := 0; i < 4; i++ {
			_, found, err := client.GetProductByID(ctx, "1")
			if !errors.Is(err, entity.ErrServiceUnavailable) || found {
				t.Fatalf("call %d: found %v, err %v", i+1, found, err)
			}
			if errors.Is(err, entity.ErrProductNotFound) {
				t.Fatal("a rejected call must not look like not found")
			}
		}
		if cb.State() != breaker.StateOpen {
			t.Fatalf("state = %s, want open after 4 forbidden answers", cb.State())
		}
		if hits.Load() != 4 {
			t.Fatalf("hits = %d, want 4", hits.Load())
		}
	})

	t.Run("empty payload is absent", func(t *testing.T) {
		for _, body := range []string{"", "null", "{}", `{"id":"1","price":0}`} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))

			client, cb := newClient(srv.URL)
			_, found, err := client.GetProductByID(ctx, "1")
			srv.Close()
			if err != nil || found {
				t.Fatalf("body %q: found %v, err %v", body, found, err)
			}
			if cb.State() != breaker.StateClosed {
				t.Fatalf("body %q tripped the breaker", body)
			}
		}
	})

	t.Run("caller cancellation is not counted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client, cb := newClient(srv.URL)
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		for i := 0; i < 8; i++ {
			if _, _, err := client.GetProductByID(canceled, "1"); err == nil {
				t.Fatal("expected an error for a canceled context")
			}
		}
		if cb.State() != breaker.StateClosed {
			t.Fatalf("state = %s, canceled callers opened the breaker", cb.State())
		}
	})

	t.Run("bad body is service unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"price": "abc"`))
		}))
		defer srv.Close()

		client, _ := newClient(srv.URL)
		if _, _, err := client.GetProductByID(ctx, "1"); !errors.Is(err, entity.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("open breaker fails fast without network calls", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client, cb := newClient(srv.URL)
		for i := 0; i < 4; i++ {
			_, _, _ = client.GetProductByID(ctx, "1")
		}
		if cb.State() != breaker.StateOpen {
			t.Fatalf("state = %s, want open", cb.State())
		}
		before := hits.Load()

		for i := 0; i < 5; i++ {
			_, _, err := client.GetProductByID(ctx, "1")
			if !errors.Is(err, entity.ErrServiceUnavailable) {
				t.Fatalf("expected ErrServiceUnavailable, got %v", err)
			}
		}
		if hits.Load() != before {
			t.Fatalf("open breaker made %d network calls", hits.Load()-before)
		}
	})

	t.Run("connection refused is service unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client, _ := newClient(url)
		if _, _, err := client.GetProductByID(ctx, "1"); !errors.Is(err, entity.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestFakeProductClient(t *testing.T) {
	client := NewFakeProductClient(entity.Product{ID: "2", Name: "Mouse", Price: decimal.NewFromInt(20)})

	if _, found, _ := client.GetProductByID(context.Background(), "1"); !found {
		t.Fatal("product 1 should always exist")
	}
	if p, found, _ := client.GetProductByID(context.Background(), "2"); !found || p.Name != "Mouse" {
		t.Fatalf("seeded product missing: %+v", p)
	}
	if _, found, err := client.GetProductByID(context.Background(), "3"); found || err != nil {
		t.Fatalf("unknown product: found %v, err %v", found, err)
	}
}
