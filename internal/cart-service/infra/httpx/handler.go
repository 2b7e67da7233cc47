package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
	"github.com/jcmexdev/cart-service/internal/cart-service/infra/httpx/middlewares"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the cart endpoints for the authenticated user.
type Handler struct {
	cartService ports.CartService
	store       Pinger
}

func NewHandler(cs ports.CartService, store Pinger) *Handler {
	return &Handler{
		cartService: cs,
		store:       store,
	}
}

// AddItem merges the requested product into the caller's cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	slog.InfoContext(r.Context(), "adding item to cart",
		"user_id", userID,
		"product_id", req.ProductID,
		"quantity", req.Quantity,
	)

	cart, err := h.cartService.AddItemToCart(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapCartToResponse(cart))
}

// GetCart returns the caller's cart or 404 when there is none.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), userID)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapCartToResponse(cart))
}

// DeleteCart removes the caller's cart. Deleting a missing cart still yields 204.
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	if err := h.cartService.DeleteCart(r.Context(), userID); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Cart Service is up!"))
}

// Health pings the cart store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.ErrorContext(ctx, "health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

type errorMapping struct {
	target error
	status int
	code   string
}

var domainErrors = []errorMapping{
	{entity.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{entity.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{entity.ErrCartNotFound, http.StatusNotFound, "cart_not_found"},
	{entity.ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
	{entity.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{entity.ErrInvalidProductID, http.StatusBadRequest, "invalid_product_id"},
	{entity.ErrCartConflict, http.StatusConflict, "cart_conflict"},
}

func statusFromError(err error) (int, string) {
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusFromError(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "unhandled error", "error", err)
		writeError(w, status, code, "")
		return
	}
	writeError(w, status, code, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
