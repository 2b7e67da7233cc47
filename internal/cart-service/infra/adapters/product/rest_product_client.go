package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
	"github.com/jcmexdev/cart-service/internal/pkg/breaker"
	"github.com/jcmexdev/cart-service/internal/pkg/constants"
)

var _ ports.ProductClient = (*RESTProductClient)(nil)

// productDTO mirrors the product service payload; unknown fields are ignored.
type productDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func (p productDTO) toEntity() entity.Product {
	out := entity.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
	// Timestamps are informational; a format we cannot read leaves them zero.
	out.CreatedAt, _ = time.Parse(time.RFC3339Nano, p.CreatedAt)
	out.UpdatedAt, _ = time.Parse(time.RFC3339Nano, p.UpdatedAt)
	return out
}

// errUpstream marks a response that counts against the circuit breaker.
var errUpstream = errors.New("product service error")

// IsCallerCanceled reports a lookup abandoned by its caller. It says nothing
// about the product service and is excluded from the breaker window.
func IsCallerCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// RESTProductClient fetches products over HTTP behind a circuit breaker.
type RESTProductClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	breaker    *breaker.CircuitBreaker
}

func NewRESTProductClient(httpClient *http.Client, baseURL, apiKey string, cb *breaker.CircuitBreaker) *RESTProductClient {
	return &RESTProductClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		breaker:    cb,
	}
}

// GetProductByID returns found=false for a 404, an empty product or a non-200
// 2xx answer. Transport failures, every other 4xx and 5xx answer and
// undecodable bodies are counted by the breaker and reported as
// entity.ErrServiceUnavailable, as is any call rejected by an open breaker.
func (c *RESTProductClient) GetProductByID(ctx context.Context, productID string) (entity.Product, bool, error) {
	var (
		product entity.Product
		found   bool
	)

	err := c.breaker.Execute(func() error {
		var err error
		product, found, err = c.fetch(ctx, productID)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "product lookup fallback triggered",
			"product_id", productID,
			"breaker_state", c.breaker.State().String(),
			"error", err,
		)
		return entity.Product{}, false, fmt.Errorf("%w: %v", entity.ErrServiceUnavailable, err)
	}
	return product, found, nil
}

func (c *RESTProductClient) fetch(ctx context.Context, productID string) (entity.Product, bool, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entity.Product{}, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(constants.HeaderXInternalAPIKey, c.apiKey)
	req.Header.Set("Accept", "application/json")

	slog.InfoContext(ctx, "calling product service", "method", http.MethodGet, "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entity.Product{}, false, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		var dto productDTO
		err := json.NewDecoder(resp.Body).Decode(&dto)
		if err != nil && !errors.Is(err, io.EOF) {
			return entity.Product{}, false, fmt.Errorf("%w: decode product %s: %v", errUpstream, productID, err)
		}
		// An empty body, null or {} carries no product.
		if dto.Name == "" {
			slog.WarnContext(ctx, "product service returned an empty product", "product_id", productID)
			return entity.Product{}, false, nil
		}
		slog.InfoContext(ctx, "product found", "product_id", productID)
		return dto.toEntity(), true, nil

	case resp.StatusCode == http.StatusNotFound:
		slog.WarnContext(ctx, "product not found", "product_id", productID)
		return entity.Product{}, false, nil

	case resp.StatusCode >= http.StatusBadRequest:
		return entity.Product{}, false, fmt.Errorf("%w: GET %s returned %d", errUpstream, endpoint, resp.StatusCode)

	default:
		slog.WarnContext(ctx, "unexpected status from product service",
			"product_id", productID,
			"status", resp.StatusCode,
		)
		return entity.Product{}, false, nil
	}
}
