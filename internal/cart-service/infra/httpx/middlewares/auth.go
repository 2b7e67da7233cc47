package middlewares

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
	"github.com/jcmexdev/cart-service/internal/pkg/constants"
)

type unauthorizedResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Authenticate resolves the bearer token to a user id before the request
// reaches any cart handler. Requests that fail are answered with 401 here.
func Authenticate(validator ports.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(constants.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, constants.BearerPrefix)
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				slog.WarnContext(r.Context(), "missing or malformed authorization header")
				unauthorized(w, "missing or malformed bearer token")
				return
			}

			userID, err := validator.Validate(r.Context(), token)
			if err != nil {
				slog.WarnContext(r.Context(), "token validation failed", "error", err)
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), constants.ContextKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the user id set by Authenticate.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(constants.ContextKeyUserID).(string)
	return userID, ok && userID != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(unauthorizedResponse{Error: "unauthorized", Message: msg})
}
